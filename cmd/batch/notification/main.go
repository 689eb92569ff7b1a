package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/common/config"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/common/utils"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/mail"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/model"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/service/batch"
)

const (
	projectName = "booking-stadium-notification-batch"
)

func main() {
	// コマンドライン引数のパース
	timeout := flag.Duration("timeout", 5*time.Minute, "バッチ処理のタイムアウト時間")
	flag.Parse()

	// 最後の引数として確定バッチの出力({"events": [...]})を受け取る
	// ENV=LOCALで引数がない場合はイベントなしで実行する
	payload := `{"events": []}`
	if flag.NArg() > 0 && flag.Arg(flag.NArg()-1) != "" {
		payload = flag.Arg(flag.NArg() - 1)
	} else if os.Getenv("ENV") != "LOCAL" {
		log.Fatalf("Task token is required")
	}
	if os.Getenv("ENV") == "LOCAL" {
		if err := config.LoadDotEnv(".env"); err != nil {
			log.Printf("Failed to load .env: %v", err)
		}
	}

	cfg, err := config.LoadConfig(payload)
	if err != nil {
		log.Fatalf("Failed to load config: %v\nStack trace:\n%s", err, debug.Stack())
	}
	if err := utils.ConfigureTracing(cfg, "1.0.0"); err != nil {
		log.Fatalf("Failed to configure default X-Ray settings: %v", err)
	}

	events, err := parseEvents(payload)
	if err != nil {
		log.Fatalf("Failed to parse events: %v", err)
	}

	sender, err := mail.NewSender(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to create mail sender: %v", err)
	}

	service, err := batch.NewNotificationBatchService(cfg, sender)
	if err != nil {
		log.Fatalf("Failed to create notification batch service: %v", err)
	}
	defer service.Close()
	service.SetArgs(events)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// X-Rayセグメントの作成
	if cfg.EnableTracing {
		var seg *xray.Segment
		ctx, seg = xray.BeginSegment(ctx, projectName)
		defer seg.Close(nil)

		if err := seg.AddMetadata("events", len(events)); err != nil {
			log.Printf("Failed to add events metadata: %v", err)
		}
		if err := seg.AddMetadata("timeout", timeout.String()); err != nil {
			log.Printf("Failed to add timeout metadata: %v", err)
		}
	}

	// シグナルハンドリング
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- utils.RunWithTimeout(ctx, *timeout, service.Run)
	}()

	select {
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
		cancel()
	case err := <-errChan:
		if err != nil {
			log.Printf("Batch process failed: %v", err)
			service.Close()
			os.Exit(1)
		}
		log.Println("Batch process completed successfully")
	}
}

// parseEvents は確定バッチの出力から予約イベントを取り出します
func parseEvents(payload string) ([]model.BookingEvent, error) {
	var input struct {
		Events []model.BookingEvent `json:"events"`
	}
	if err := json.Unmarshal([]byte(payload), &input); err != nil {
		return nil, fmt.Errorf("failed to parse task input: %w", err)
	}
	return input.Events, nil
}
