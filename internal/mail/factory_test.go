package mail

import (
	"context"
	"testing"

	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/common/config"
)

func TestNewSender_Local(t *testing.T) {
	sender, err := NewSender(context.Background(), &config.Config{Env: "local"})
	if err != nil {
		t.Fatalf("NewSender() error = %v", err)
	}
	if _, ok := sender.(*LogSender); !ok {
		t.Errorf("NewSender() = %T, want *LogSender", sender)
	}
}
