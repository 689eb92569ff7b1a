package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/calendar"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/common/config"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/common/database"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/mail"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/model"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/repository"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/service/notification"
)

// Dispatcher は通知バッチが使用する通知の振り分けです
type Dispatcher interface {
	NotifyOnBookingChange(ctx context.Context, booking model.Booking, kind model.EventKind, actor string)
	Summarize(ctx context.Context, booking model.Booking, actor string) (model.BookingSummary, error)
}

// NotificationBatchService は通知バッチ処理を担当します
type NotificationBatchService struct {
	args             []model.BookingEvent
	db               io.Closer
	bookingRepo      repository.BookingRepository
	notificationRepo repository.NotificationRepository
	dispatcher       Dispatcher
	cfg              *config.Config
}

// NewNotificationBatchService は新しいNotificationBatchServiceを作成します
func NewNotificationBatchService(cfg *config.Config, sender mail.Sender) (*NotificationBatchService, error) {
	db, err := database.NewDB(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	repos := repository.NewRepositories(repository.NewDB(db.DB, cfg.DB.LockTimeout))
	encoder := calendar.NewEncoder(cfg.Mail.Organizer, cfg.Location())

	return &NotificationBatchService{
		db:               db,
		bookingRepo:      repos.Booking,
		notificationRepo: repos.Notification,
		dispatcher:       notification.NewDispatcher(repos, sender, encoder),
		cfg:              cfg,
	}, nil
}

// Close は終了処理を行います
func (s *NotificationBatchService) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SetArgs は通知バッチ処理の引数を設定します
func (s *NotificationBatchService) SetArgs(args []model.BookingEvent) {
	s.args = args
}

// Run は通知バッチ処理を実行します
func (s *NotificationBatchService) Run(ctx context.Context) error {
	ctx, seg := xray.BeginSubsegment(ctx, "NotificationBatchService.Run")
	defer seg.Close(nil)

	events := s.args
	log.Printf("Starting notification batch process for %d events...", len(events))

	if err := seg.AddMetadata("event_count", len(events)); err != nil {
		log.Printf("Failed to add event_count metadata: %v", err)
	}

	startTime := time.Now()

	bookings, summaries, err := s.getSummaryMap(ctx, events)
	if err != nil {
		seg.Close(err)
		return err
	}

	records := make([]model.NotificationRecord, 0, len(events))
	for _, event := range events {
		b, ok := bookings[event.BookingID]
		if !ok {
			continue
		}
		s.dispatcher.NotifyOnBookingChange(ctx, b, event.Kind, event.Actor)

		record, err := event.ToNotificationRecord(summaries)
		if err != nil {
			seg.Close(err)
			return err
		}
		records = append(records, *record)
	}

	if err := s.notificationRepo.CreateNotifications(ctx, records); err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to create notifications: %w", err)
	}

	duration := time.Since(startTime)
	if err := seg.AddMetadata("duration", duration.String()); err != nil {
		log.Printf("Failed to add duration metadata: %v", err)
	}
	if err := seg.AddMetadata("booking_count", len(bookings)); err != nil {
		log.Printf("Failed to add booking_count metadata: %v", err)
	}

	log.Printf("Notification batch process completed successfully. Duration: %v", duration)
	return nil
}

// イベントに含まれる予約を読み込み、通知用の要約を作成する
// N+1とならないように重複のない予約IDごとに1回だけ取得する
// 予約がすでに削除されている場合はそのイベントを通知しない
func (s *NotificationBatchService) getSummaryMap(ctx context.Context, events []model.BookingEvent) (map[string]model.Booking, map[string]model.BookingSummary, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "NotificationBatchService.getSummaryMap")
	defer seg.Close(nil)

	bookings := make(map[string]model.Booking)
	summaries := make(map[string]model.BookingSummary)
	seen := make(map[string]struct{})

	for _, event := range events {
		if event.BookingID == "" {
			err := fmt.Errorf("booking_id is required")
			seg.Close(err)
			return nil, nil, err
		}
		if _, ok := seen[event.BookingID]; ok {
			continue
		}
		seen[event.BookingID] = struct{}{}

		b, err := s.bookingRepo.Get(ctx, event.BookingID)
		if errors.Is(err, repository.ErrNotFound) {
			log.Printf("Booking %s no longer exists, skipping its events", event.BookingID)
			continue
		}
		if err != nil {
			seg.Close(err)
			return nil, nil, fmt.Errorf("failed to get booking %s: %w", event.BookingID, err)
		}

		summary, err := s.dispatcher.Summarize(ctx, *b, event.Actor)
		if err != nil {
			seg.Close(err)
			return nil, nil, fmt.Errorf("failed to summarize booking %s: %w", event.BookingID, err)
		}
		bookings[b.ID] = *b
		summaries[b.ID] = summary
	}

	if err := seg.AddMetadata("unique_booking_count", len(seen)); err != nil {
		log.Printf("Failed to add unique_booking_count metadata: %v", err)
	}

	return bookings, summaries, nil
}
