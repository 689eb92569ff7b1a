package mail

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/common/config"
)

// NewSender は環境に応じたSenderを作成します
// ENV=LOCALではログ出力のみ行います
func NewSender(ctx context.Context, cfg *config.Config) (Sender, error) {
	if cfg.IsLocal() {
		return NewLogSender(), nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewSESSender(sesv2.NewFromConfig(awsCfg), cfg.Mail.From, cfg.Mail.RetryDelay), nil
}
