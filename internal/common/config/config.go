package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/common/database"
)

type Config struct {
	Env    string          `envconfig:"ENV" default:"LOCAL"`
	DB     database.Config `envconfig:"DB"`
	Server ServerConfig    `envconfig:"HTTP"`
	Mail   MailConfig      `envconfig:"MAIL"`
	// 予約日の「今日」を判定するタイムゾーン。カレンダー招待の時刻もこのゾーンで解釈します
	BusinessTimeZone string `envconfig:"BUSINESS_TIME_ZONE" default:"Asia/Ho_Chi_Minh"`
	// 行ロックを伴う操作全体のタイムアウト
	TxTimeout time.Duration `envconfig:"TX_TIMEOUT" default:"5s"`
	SFN       struct {
		TaskToken string `ignored:"true"`
	}
	EnableTracing bool `ignored:"true"`
}

type ServerConfig struct {
	Addr            string        `default:":8080"`
	ShutdownTimeout time.Duration `split_words:"true" default:"10s"`
	// カンマ区切り。空の場合は全てのオリジンを許可します
	AllowOrigins []string `split_words:"true"`
}

type MailConfig struct {
	From       string        `default:"no-reply@booking.local"`
	RetryDelay time.Duration `split_words:"true" default:"2s"`
	// カレンダー招待のORGANIZERとUIDのドメインに使用します
	Organizer string `default:"booking@booking.local"`
}

// LoadConfig は設定を読み込みます
func LoadConfig(taskToken string) (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	cfg.SFN.TaskToken = taskToken

	if _, err := time.LoadLocation(cfg.BusinessTimeZone); err != nil {
		return nil, fmt.Errorf("invalid BUSINESS_TIME_ZONE %q: %w", cfg.BusinessTimeZone, err)
	}
	if cfg.DB.Host == "localhost" {
		log.Printf("DB_HOST is localhost, SSL is disabled")
	}

	// 環境変数[SBCNTR_ENABLE_TRACING]を見てトレースを有効にする。対応しているTracingはAWS_XRAYのみ。
	// 環境変数[AWS_XRAY_SDK_DISABLED]がtrueの場合は必ずトレースを無効にする。
	enableKey := os.Getenv("SBCNTR_ENABLE_TRACING")
	if !sdkDisabled() && (strings.ToLower(enableKey) == "true" || enableKey == "1") {
		os.Setenv("AWS_XRAY_SDK_DISABLED", "FALSE")
		cfg.EnableTracing = true
	} else {
		os.Setenv("AWS_XRAY_SDK_DISABLED", "TRUE")
		cfg.EnableTracing = false
	}

	return cfg, nil
}

// IsLocal はローカル環境で動作しているかを返します
func (c *Config) IsLocal() bool {
	return strings.EqualFold(c.Env, "LOCAL")
}

// Location は業務タイムゾーンを返します
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.BusinessTimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Check if SDK is disabled
func sdkDisabled() bool {
	disableKey := os.Getenv("AWS_XRAY_SDK_DISABLED")
	return strings.ToLower(disableKey) == "true"
}

// LoadDotEnv はローカル実行用の.envファイルを環境変数に読み込みます
// ファイルが存在しない場合は何もしません
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}
