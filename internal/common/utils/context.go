package utils

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrBatchTimeout はバッチ処理がタイムアウトしたことを表します
var ErrBatchTimeout = errors.New("batch process timed out")

// RunWithTimeout はtimeout以内にfnを実行します
// タイムアウトした場合はfnの完了を待たずにErrBatchTimeoutを返します
// 親のコンテキストがキャンセルされた場合はその理由を返します
func RunWithTimeout(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- fn(runCtx)
	}()

	select {
	case err := <-errChan:
		return err
	case <-runCtx.Done():
		if ctx.Err() != nil {
			return fmt.Errorf("batch process canceled: %w", ctx.Err())
		}
		return fmt.Errorf("%w after %v", ErrBatchTimeout, timeout)
	}
}
