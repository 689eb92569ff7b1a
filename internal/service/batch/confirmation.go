package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/common/apperror"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/common/config"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/common/database"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/common/utils"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/model"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/repository"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/service/booking"
)

// BatchActor は確定バッチが予約を更新したときの操作者です
const BatchActor = "confirmation-batch"

// SFNAPI はStep Functionsクライアントのうち使用するメソッドのインターフェースです
type SFNAPI interface {
	SendTaskSuccess(ctx context.Context, params *sfn.SendTaskSuccessInput, optFns ...func(*sfn.Options)) (*sfn.SendTaskSuccessOutput, error)
	SendTaskFailure(ctx context.Context, params *sfn.SendTaskFailureInput, optFns ...func(*sfn.Options)) (*sfn.SendTaskFailureOutput, error)
}

// BookingLifecycle は確定バッチが使用する予約操作です
type BookingLifecycle interface {
	ConfirmBooking(ctx context.Context, bookingID, confirmedBy string) (*model.Booking, error)
	RejectBooking(ctx context.Context, bookingID, rejectedBy string) (*model.Booking, error)
}

// ConfirmationBatchService は保留中の予約を確定するバッチ処理を担当します
type ConfirmationBatchService struct {
	db          io.Closer
	bookingRepo repository.BookingRepository
	bookings    BookingLifecycle
	events      *EventCollector
	sfnClient   SFNAPI
	cfg         *config.Config
	now         func() time.Time
}

// NewConfirmationBatchService は新しいConfirmationBatchServiceを作成します
func NewConfirmationBatchService(cfg *config.Config, sfnClient SFNAPI) (*ConfirmationBatchService, error) {
	db, err := database.NewDB(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	s := newConfirmationBatchService(cfg, repository.NewRepositories(repository.NewDB(db.DB, cfg.DB.LockTimeout)), sfnClient)
	s.db = db
	return s, nil
}

func newConfirmationBatchService(cfg *config.Config, repos *repository.Repositories, sfnClient SFNAPI) *ConfirmationBatchService {
	events := NewEventCollector()
	return &ConfirmationBatchService{
		bookingRepo: repos.Booking,
		bookings:    booking.NewService(cfg, repos, events),
		events:      events,
		sfnClient:   sfnClient,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Close は終了処理を行います
func (s *ConfirmationBatchService) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Run は確定バッチ処理を実行します
func (s *ConfirmationBatchService) Run(ctx context.Context) error {
	ctx, seg := xray.BeginSubsegment(ctx, "ConfirmationBatchService.Run")
	defer seg.Close(nil)

	startTime := time.Now()

	events, err := s.processPendingBookings(ctx)
	if err != nil {
		seg.Close(err)
		return utils.WithStack(fmt.Errorf("failed to process pending bookings: %w", err))
	}

	if err := s.sendTaskSuccess(ctx, events); err != nil {
		seg.Close(err)
		return utils.WithStack(fmt.Errorf("failed to send task success: %w", err))
	}

	duration := time.Since(startTime)
	if err := seg.AddMetadata("duration", duration.String()); err != nil {
		log.Printf("Failed to add duration metadata: %v", err)
	}
	if err := seg.AddMetadata("event_count", len(events)); err != nil {
		log.Printf("Failed to add event_count metadata: %v", err)
	}

	log.Printf("Confirmation batch process completed successfully. Duration: %v", duration)
	return nil
}

// processPendingBookings は今日以降の保留中の予約を古い順に確定します
// スロットが埋まっている予約は却下し、それ以外の失敗はログに記録して次に進みます
func (s *ConfirmationBatchService) processPendingBookings(ctx context.Context) ([]model.BookingEvent, error) {
	pending, err := s.bookingRepo.FindByStatus(ctx, model.BookingStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending bookings: %w", err)
	}

	today := model.DateOf(s.now().In(s.cfg.Location()))
	log.Printf("Found %d pending bookings", len(pending))

	for _, b := range pending {
		if b.BookingDate.Before(today) {
			log.Printf("Skipping booking %s dated %s in the past", b.ID, b.BookingDate.Format(model.DateLayout))
			continue
		}

		_, err := s.bookings.ConfirmBooking(ctx, b.ID, BatchActor)
		if err == nil {
			continue
		}
		if !apperror.Is(err, apperror.KindConflict) {
			log.Printf("Failed to confirm booking %s: %v", b.ID, err)
			continue
		}

		if _, err := s.bookings.RejectBooking(ctx, b.ID, BatchActor); err != nil {
			log.Printf("Failed to reject conflicting booking %s: %v", b.ID, err)
		}
	}

	return s.events.Drain(), nil
}

// sendTaskSuccess はStep Functionsのタスク成功を通知し、イベントを返却します
func (s *ConfirmationBatchService) sendTaskSuccess(ctx context.Context, events []model.BookingEvent) error {
	// ローカルの場合はStep Functionsの処理をスキップ
	if s.cfg.IsLocal() || s.sfnClient == nil {
		log.Printf("Local environment detected. Skipping Step Functions task success notification")
		return nil
	}

	output, err := json.Marshal(map[string]any{
		"events": events,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}

	taskToken := s.cfg.SFN.TaskToken
	if taskToken == "" {
		return fmt.Errorf("SFN_TASK_TOKEN is not set in config")
	}

	_, err = s.sfnClient.SendTaskSuccess(ctx, &sfn.SendTaskSuccessInput{
		TaskToken: aws.String(taskToken),
		Output:    aws.String(string(output)),
	})
	if err != nil {
		return fmt.Errorf("failed to send task success: %w", err)
	}

	log.Printf("Successfully sent task success with %d events", len(events))
	return nil
}

// SendTaskFailure はStep Functionsにタスク失敗を通知します
func (s *ConfirmationBatchService) SendTaskFailure(ctx context.Context, cause error) {
	if s.cfg.IsLocal() || s.sfnClient == nil {
		return
	}
	_, err := s.sfnClient.SendTaskFailure(ctx, &sfn.SendTaskFailureInput{
		TaskToken: aws.String(s.cfg.SFN.TaskToken),
		Error:     aws.String("Batch process failed"),
		Cause:     aws.String(cause.Error()),
	})
	if err != nil {
		log.Printf("Failed to send task failure: %v", err)
	}
}
