// Package booking は予約のライフサイクルを管理します
package booking

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/common/apperror"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/common/config"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/model"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/repository"
)

// Notifier は予約の状態遷移を通知します
// 失敗は呼び出し元に返しません
type Notifier interface {
	NotifyOnBookingChange(ctx context.Context, booking model.Booking, kind model.EventKind, actor string)
}

// CreateRequest は予約作成の入力です
type CreateRequest struct {
	UserID      string
	SportHallID string
	SportID     string
	Date        time.Time
	TimeSlotID  string
	Purpose     string
}

// ModifyRequest は予約変更の入力です
// 空のフィールドは現在の値を維持します
type ModifyRequest struct {
	BookingID   string
	ModifiedBy  string
	UserID      string
	SportHallID string
	SportID     string
	Date        time.Time
	TimeSlotID  string
	Purpose     string
}

// Service は予約の作成、確定、取消、変更、削除を担当します
type Service struct {
	repos     *repository.Repositories
	notifier  Notifier
	loc       *time.Location
	txTimeout time.Duration
	now       func() time.Time
	newID     func() string
}

// NewService は新しいServiceを作成します
func NewService(cfg *config.Config, repos *repository.Repositories, notifier Notifier) *Service {
	return &Service{
		repos:     repos,
		notifier:  notifier,
		loc:       cfg.Location(),
		txTimeout: cfg.TxTimeout,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// CreateBooking は保留状態の予約を作成します
func (s *Service) CreateBooking(ctx context.Context, req CreateRequest) (*model.Booking, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "BookingService.CreateBooking")
	defer seg.Close(nil)

	var created model.Booking
	err := s.inTx(ctx, func(ctx context.Context) error {
		candidate := model.Booking{
			SportHallID: req.SportHallID,
			SportID:     req.SportID,
			UserID:      req.UserID,
			TimeSlotID:  req.TimeSlotID,
			BookingDate: model.DateOf(req.Date),
			Purpose:     strings.TrimSpace(req.Purpose),
		}
		if err := s.validate(ctx, candidate); err != nil {
			return err
		}
		if err := s.checkAvailability(ctx, candidate, ""); err != nil {
			return err
		}

		now := s.now()
		candidate.ID = s.newID()
		candidate.Status = model.BookingStatusPending
		candidate.Participants = 1
		candidate.TotalCost = decimal.Zero
		candidate.CreatedAt = now
		candidate.UpdatedAt = now
		if err := s.repos.Booking.Save(ctx, &candidate); err != nil {
			return err
		}
		created = candidate
		return nil
	})
	if err != nil {
		seg.Close(err)
		return nil, err
	}

	s.notifier.NotifyOnBookingChange(ctx, created, model.EventCreation, req.UserID)
	return &created, nil
}

// ConfirmBooking は保留中の予約を確定します
// 保留中以外の予約はBadRequestになります
func (s *Service) ConfirmBooking(ctx context.Context, bookingID, confirmedBy string) (*model.Booking, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "BookingService.ConfirmBooking")
	defer seg.Close(nil)

	booking, err := s.transition(ctx, bookingID, func(ctx context.Context, b *model.Booking) error {
		if b.Status != model.BookingStatusPending {
			return apperror.BadRequest("only pending bookings can be confirmed")
		}
		taken, err := s.repos.Booking.ExistsByCompositeKey(ctx, b.Key(), model.BookingStatusConfirmed, b.ID)
		if err != nil {
			return err
		}
		if taken {
			return apperror.Conflict("time slot is already booked")
		}
		b.Status = model.BookingStatusConfirmed
		b.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		seg.Close(err)
		return nil, err
	}

	s.notifier.NotifyOnBookingChange(ctx, *booking, model.EventModification, confirmedBy)
	return booking, nil
}

// CancelBooking は利用者自身の保留中の予約を取り消します
func (s *Service) CancelBooking(ctx context.Context, bookingID, canceledBy string) (*model.Booking, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "BookingService.CancelBooking")
	defer seg.Close(nil)

	booking, err := s.transition(ctx, bookingID, func(ctx context.Context, b *model.Booking) error {
		if b.UserID != canceledBy {
			return apperror.BadRequest("booking does not belong to the user")
		}
		return s.reject(b, canceledBy)
	})
	if err != nil {
		seg.Close(err)
		return nil, err
	}

	s.notifier.NotifyOnBookingChange(ctx, *booking, model.EventCancellation, canceledBy)
	return booking, nil
}

// RejectBooking は保留中の予約を所有者の確認なしに却下します
// 確定バッチや管理者の操作で使用します
func (s *Service) RejectBooking(ctx context.Context, bookingID, rejectedBy string) (*model.Booking, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "BookingService.RejectBooking")
	defer seg.Close(nil)

	booking, err := s.transition(ctx, bookingID, func(ctx context.Context, b *model.Booking) error {
		return s.reject(b, rejectedBy)
	})
	if err != nil {
		seg.Close(err)
		return nil, err
	}

	s.notifier.NotifyOnBookingChange(ctx, *booking, model.EventCancellation, rejectedBy)
	return booking, nil
}

func (s *Service) reject(b *model.Booking, actor string) error {
	if b.Status != model.BookingStatusPending {
		return apperror.BadRequest("only pending bookings can be canceled")
	}
	now := s.now()
	b.Status = model.BookingStatusRejected
	b.CanceledAt = &now
	b.CanceledBy = &actor
	b.UpdatedAt = now
	return nil
}

// ModifyBooking は利用者自身の予約の内容を変更します
// 変更後の値は作成時と同じ検証を受け、自身を除いて重複と上限を確認します
// 予約の所有者は変更できません
func (s *Service) ModifyBooking(ctx context.Context, req ModifyRequest) (*model.Booking, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "BookingService.ModifyBooking")
	defer seg.Close(nil)

	booking, err := s.transition(ctx, req.BookingID, func(ctx context.Context, b *model.Booking) error {
		if b.UserID != req.ModifiedBy {
			return apperror.BadRequest("booking does not belong to the user")
		}
		if req.UserID != "" && req.UserID != b.UserID {
			return apperror.BadRequest("booking owner cannot be changed")
		}
		if b.Status == model.BookingStatusRejected {
			return apperror.BadRequest("rejected bookings cannot be modified")
		}
		applyChanges(b, req)
		if err := s.validate(ctx, *b); err != nil {
			return err
		}
		if err := s.checkAvailability(ctx, *b, b.ID); err != nil {
			return err
		}
		b.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		seg.Close(err)
		return nil, err
	}

	s.notifier.NotifyOnBookingChange(ctx, *booking, model.EventModification, req.ModifiedBy)
	return booking, nil
}

func applyChanges(b *model.Booking, req ModifyRequest) {
	if req.SportHallID != "" {
		b.SportHallID = req.SportHallID
	}
	if req.SportID != "" {
		b.SportID = req.SportID
	}
	if !req.Date.IsZero() {
		b.BookingDate = model.DateOf(req.Date)
	}
	if req.TimeSlotID != "" {
		b.TimeSlotID = req.TimeSlotID
	}
	if strings.TrimSpace(req.Purpose) != "" {
		b.Purpose = strings.TrimSpace(req.Purpose)
	}
}

// DeleteBooking は利用者自身の予約を物理削除します
func (s *Service) DeleteBooking(ctx context.Context, bookingID, requestingUserID string) error {
	ctx, seg := xray.BeginSubsegment(ctx, "BookingService.DeleteBooking")
	defer seg.Close(nil)

	if bookingID == "" {
		return apperror.BadRequest("booking id is required")
	}

	err := s.inTx(ctx, func(ctx context.Context) error {
		b, err := s.repos.Booking.GetAndLock(ctx, bookingID)
		if err != nil {
			return lookupError(err, "booking")
		}
		if b.UserID != requestingUserID {
			return apperror.BadRequest("booking does not belong to the user")
		}
		return s.repos.Booking.Delete(ctx, bookingID)
	})
	if err != nil {
		seg.Close(err)
		return err
	}
	return nil
}

// GetBookingByID は予約を取得します
func (s *Service) GetBookingByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "BookingService.GetBookingByID")
	defer seg.Close(nil)

	if id == "" {
		return nil, apperror.BadRequest("booking not found")
	}
	b, err := s.repos.Booking.Get(ctx, id)
	if err != nil {
		err = lookupError(err, "booking")
		seg.Close(err)
		return nil, err
	}
	return b, nil
}

// GetAllBookings は全ての予約を作成日時順に取得します
func (s *Service) GetAllBookings(ctx context.Context) ([]model.Booking, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "BookingService.GetAllBookings")
	defer seg.Close(nil)

	bookings, err := s.repos.Booking.FindAll(ctx)
	if err != nil {
		err = storeError(err)
		seg.Close(err)
		return nil, err
	}
	return bookings, nil
}

// GetBookingsByUserID は利用者の予約を取得します
func (s *Service) GetBookingsByUserID(ctx context.Context, userID string) ([]model.Booking, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "BookingService.GetBookingsByUserID")
	defer seg.Close(nil)

	if _, err := s.activeProfile(ctx, userID); err != nil {
		seg.Close(err)
		return nil, err
	}
	bookings, err := s.repos.Booking.FindByUserID(ctx, userID)
	if err != nil {
		err = storeError(err)
		seg.Close(err)
		return nil, err
	}
	return bookings, nil
}

// transition はロックを取得した予約にmutateを適用して保存します
func (s *Service) transition(ctx context.Context, bookingID string, mutate func(ctx context.Context, b *model.Booking) error) (*model.Booking, error) {
	if bookingID == "" {
		return nil, apperror.BadRequest("booking id is required")
	}

	var updated model.Booking
	err := s.inTx(ctx, func(ctx context.Context) error {
		b, err := s.repos.Booking.GetAndLock(ctx, bookingID)
		if err != nil {
			return lookupError(err, "booking")
		}
		if err := mutate(ctx, b); err != nil {
			return err
		}
		if err := s.repos.Booking.Save(ctx, b); err != nil {
			return err
		}
		updated = *b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// inTx はタイムアウト付きのトランザクションでfnを実行します
func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}
	return storeError(s.repos.Tx.WithTx(ctx, fn))
}

// validate は予約の入力値と参照先を検証します
func (s *Service) validate(ctx context.Context, b model.Booking) error {
	if strings.TrimSpace(b.Purpose) == "" {
		return apperror.BadRequest("purpose is required")
	}
	if b.BookingDate.IsZero() {
		return apperror.BadRequest("booking date is required")
	}
	if b.BookingDate.Before(s.today()) {
		return apperror.BadRequest("booking date must not be in the past")
	}
	if b.UserID == "" || b.SportHallID == "" || b.SportID == "" || b.TimeSlotID == "" {
		return apperror.BadRequest("user, sport hall, sport and time slot are required")
	}

	if _, err := s.activeProfile(ctx, b.UserID); err != nil {
		return err
	}
	hall, err := s.repos.SportHall.Get(ctx, b.SportHallID)
	if err != nil {
		return lookupError(err, "sport hall")
	}
	if _, err := s.repos.Sport.Get(ctx, b.SportID); err != nil {
		return lookupError(err, "sport")
	}
	if hall.SportID != b.SportID {
		return apperror.BadRequest("sport hall %s does not host sport %s", hall.ID, b.SportID)
	}
	slot, err := s.repos.TimeSlot.Get(ctx, b.TimeSlotID)
	if err != nil {
		return lookupError(err, "time slot")
	}
	if !slot.IsActive {
		return apperror.BadRequest("time slot is not available")
	}
	return nil
}

// checkAvailability はスロットの重複と1日1件の上限を確認します
// 重複の確認を上限より先に行います
func (s *Service) checkAvailability(ctx context.Context, b model.Booking, excludeID string) error {
	for _, status := range []model.BookingStatus{model.BookingStatusConfirmed, model.BookingStatusPending} {
		taken, err := s.repos.Booking.ExistsByCompositeKey(ctx, b.Key(), status, excludeID)
		if err != nil {
			return err
		}
		if taken {
			return apperror.Conflict("time slot is already booked")
		}
	}

	reached, err := s.repos.Booking.ExistsActiveByUserAndDate(ctx, b.UserID, b.BookingDate, excludeID)
	if err != nil {
		return err
	}
	if reached {
		return apperror.Forbidden("only one booking per day is allowed")
	}
	return nil
}

func (s *Service) activeProfile(ctx context.Context, userID string) (*model.Profile, error) {
	if userID == "" {
		return nil, apperror.BadRequest("user not found")
	}
	p, err := s.repos.Profile.Get(ctx, userID)
	if err != nil {
		return nil, lookupError(err, "user")
	}
	if p.IsDeleted {
		return nil, apperror.BadRequest("user not found")
	}
	return p, nil
}

// today は業務タイムゾーンでの今日の日付を返します
func (s *Service) today() time.Time {
	return model.DateOf(s.now().In(s.loc))
}
