package utils

import (
	"log"
	"os"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/common/config"
)

// ConfigureTracing はX-Rayの送信先を設定します
// トレースが無効の場合は何もしません
func ConfigureTracing(cfg *config.Config, version string) error {
	if !cfg.EnableTracing {
		return nil
	}
	if err := xray.Configure(xray.Config{
		DaemonAddr:     "127.0.0.1:2000",
		ServiceVersion: version,
	}); err != nil {
		log.Printf("Failed to configure X-Ray: %v", err)
		// デフォルトの設定で再試行
		if configErr := xray.Configure(xray.Config{}); configErr != nil {
			return configErr
		}
	}
	os.Setenv("AWS_XRAY_CONTEXT_MISSING", "LOG_ERROR")
	return nil
}
