package utils

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRunWithTimeout(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		name    string
		timeout time.Duration
		fn      func(ctx context.Context) error
		cancel  bool
		wantErr error
	}{
		{
			name:    "正常終了",
			timeout: time.Second,
			fn:      func(ctx context.Context) error { return nil },
		},
		{
			name:    "処理のエラーをそのまま返す",
			timeout: time.Second,
			fn:      func(ctx context.Context) error { return errBoom },
			wantErr: errBoom,
		},
		{
			name:    "タイムアウト",
			timeout: 10 * time.Millisecond,
			fn: func(ctx context.Context) error {
				<-ctx.Done()
				time.Sleep(50 * time.Millisecond)
				return nil
			},
			wantErr: ErrBatchTimeout,
		},
		{
			name:    "親のキャンセル",
			timeout: time.Second,
			fn: func(ctx context.Context) error {
				<-ctx.Done()
				time.Sleep(50 * time.Millisecond)
				return nil
			},
			cancel:  true,
			wantErr: context.Canceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tt.cancel {
				cancel()
			}

			err := RunWithTimeout(ctx, tt.timeout, tt.fn)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("RunWithTimeout() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("RunWithTimeout() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestWithStack(t *testing.T) {
	if WithStack(nil) != nil {
		t.Errorf("WithStack(nil) != nil")
	}

	errBase := errors.New("base")
	err := WithStack(errBase)
	if !errors.Is(err, errBase) {
		t.Errorf("errors.Is() = false")
	}
	if !strings.Contains(err.Error(), "Stack trace:") {
		t.Errorf("Error() = %q, want stack trace", err.Error())
	}
	if WithStack(err) != err {
		t.Errorf("WithStack() wrapped twice")
	}
}
