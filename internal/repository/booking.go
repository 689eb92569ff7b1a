package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/model"
)

// BookingRepository は予約の永続化を担当するインターフェースです
type BookingRepository interface {
	Get(ctx context.Context, id string) (*model.Booking, error)
	GetAndLock(ctx context.Context, id string) (*model.Booking, error)
	Save(ctx context.Context, booking *model.Booking) error
	Delete(ctx context.Context, id string) error
	// ExistsByCompositeKey はスロットに指定ステータスの予約があるかを返します。excludeIDの予約は除外します
	ExistsByCompositeKey(ctx context.Context, key model.SlotKey, status model.BookingStatus, excludeID string) (bool, error)
	// ExistsActiveByUserAndDate はユーザーが指定日に有効な予約を持っているかを返します
	ExistsActiveByUserAndDate(ctx context.Context, userID string, date time.Time, excludeID string) (bool, error)
	FindAll(ctx context.Context) ([]model.Booking, error)
	FindByUserID(ctx context.Context, userID string) ([]model.Booking, error)
	FindByStatus(ctx context.Context, status model.BookingStatus) ([]model.Booking, error)
	DeleteAll(ctx context.Context) error
}

type BookingRepositoryImpl struct {
	db *DB
}

func NewBookingRepository(db *DB) *BookingRepositoryImpl {
	return &BookingRepositoryImpl{db: db}
}

const bookingColumns = `
	id,
	sport_hall_id,
	sport_id,
	user_id,
	time_slot_id,
	booking_date,
	status,
	participants,
	purpose,
	special_requirements,
	canceled_at,
	canceled_by,
	total_cost,
	created_at,
	updated_at`

// Get は指定されたIDの予約を取得します
func (r *BookingRepositoryImpl) Get(ctx context.Context, id string) (*model.Booking, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "BookingRepository.Get")
	defer seg.Close(nil)

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	var booking model.Booking
	if err := sqlx.GetContext(ctx, r.db.executor(ctx), &booking, query, id); err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to get booking %s: %w", id, classify(err))
	}

	return &booking, nil
}

// GetAndLock は予約を取得し、トランザクション終了まで行ロックを保持します
// ロック待ちがlock_timeoutを超えた場合はErrTimeoutを返します
func (r *BookingRepositoryImpl) GetAndLock(ctx context.Context, id string) (*model.Booking, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "BookingRepository.GetAndLock")
	defer seg.Close(nil)

	exec, err := r.db.lockedExecutor(ctx)
	if err != nil {
		seg.Close(err)
		return nil, err
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`

	var booking model.Booking
	if err := sqlx.GetContext(ctx, exec, &booking, query, id); err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to lock booking %s: %w", id, classify(err))
	}

	return &booking, nil
}

// Save は予約を作成または更新します
// スロットの一意制約に違反した場合はErrDuplicateを返します
func (r *BookingRepositoryImpl) Save(ctx context.Context, booking *model.Booking) error {
	ctx, seg := xray.BeginSubsegment(ctx, "BookingRepository.Save")
	defer seg.Close(nil)

	query := `
		INSERT INTO bookings (` + bookingColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6::date, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
		ON CONFLICT (id) DO UPDATE SET
			sport_hall_id = EXCLUDED.sport_hall_id,
			sport_id = EXCLUDED.sport_id,
			user_id = EXCLUDED.user_id,
			time_slot_id = EXCLUDED.time_slot_id,
			booking_date = EXCLUDED.booking_date,
			status = EXCLUDED.status,
			participants = EXCLUDED.participants,
			purpose = EXCLUDED.purpose,
			special_requirements = EXCLUDED.special_requirements,
			canceled_at = EXCLUDED.canceled_at,
			canceled_by = EXCLUDED.canceled_by,
			total_cost = EXCLUDED.total_cost,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.executor(ctx).ExecContext(ctx, query,
		booking.ID,
		booking.SportHallID,
		booking.SportID,
		booking.UserID,
		booking.TimeSlotID,
		booking.BookingDate.Format(model.DateLayout),
		booking.Status,
		booking.Participants,
		booking.Purpose,
		booking.SpecialRequirements,
		booking.CanceledAt,
		booking.CanceledBy,
		booking.TotalCost,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to save booking %s: %w", booking.ID, classify(err))
	}

	return nil
}

// Delete は予約を物理削除します
func (r *BookingRepositoryImpl) Delete(ctx context.Context, id string) error {
	ctx, seg := xray.BeginSubsegment(ctx, "BookingRepository.Delete")
	defer seg.Close(nil)

	result, err := r.db.executor(ctx).ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to delete booking %s: %w", id, classify(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		err := fmt.Errorf("no booking found with ID %s: %w", id, ErrNotFound)
		seg.Close(err)
		return err
	}

	return nil
}

// ExistsByCompositeKey は、指定されたスロットに指定ステータスの予約が存在するかチェックします
func (r *BookingRepositoryImpl) ExistsByCompositeKey(ctx context.Context, key model.SlotKey, status model.BookingStatus, excludeID string) (bool, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "BookingRepository.ExistsByCompositeKey")
	defer seg.Close(nil)

	query := `
		SELECT EXISTS (
			SELECT 1
			FROM bookings
			WHERE sport_hall_id = $1
			AND booking_date = $2::date
			AND time_slot_id = $3
			AND status = $4
			AND id <> $5
		)
	`

	var exists bool
	err := sqlx.GetContext(ctx, r.db.executor(ctx), &exists, query,
		key.SportHallID,
		key.BookingDate.Format(model.DateLayout),
		key.TimeSlotID,
		status,
		excludeID,
	)
	if err != nil {
		seg.Close(err)
		return false, fmt.Errorf("failed to check existing booking: %w", classify(err))
	}

	return exists, nil
}

// ExistsActiveByUserAndDate は、ユーザーが指定日に保留中または確定済みの予約を持っているかチェックします
func (r *BookingRepositoryImpl) ExistsActiveByUserAndDate(ctx context.Context, userID string, date time.Time, excludeID string) (bool, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "BookingRepository.ExistsActiveByUserAndDate")
	defer seg.Close(nil)

	query := `
		SELECT EXISTS (
			SELECT 1
			FROM bookings
			WHERE user_id = $1
			AND booking_date = $2::date
			AND status IN ('pending', 'confirmed')
			AND id <> $3
		)
	`

	var exists bool
	err := sqlx.GetContext(ctx, r.db.executor(ctx), &exists, query, userID, date.Format(model.DateLayout), excludeID)
	if err != nil {
		seg.Close(err)
		return false, fmt.Errorf("failed to check daily booking quota: %w", classify(err))
	}

	return exists, nil
}

// FindAll は全ての予約を作成日時順に取得します
func (r *BookingRepositoryImpl) FindAll(ctx context.Context) ([]model.Booking, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "BookingRepository.FindAll")
	defer seg.Close(nil)

	query := `SELECT ` + bookingColumns + ` FROM bookings ORDER BY created_at ASC, id ASC`

	bookings := []model.Booking{}
	if err := sqlx.SelectContext(ctx, r.db.executor(ctx), &bookings, query); err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to query bookings: %w", classify(err))
	}

	return bookings, nil
}

// FindByUserID は指定されたユーザーの予約を取得します
func (r *BookingRepositoryImpl) FindByUserID(ctx context.Context, userID string) ([]model.Booking, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "BookingRepository.FindByUserID")
	defer seg.Close(nil)

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = $1 ORDER BY created_at ASC, id ASC`

	bookings := []model.Booking{}
	if err := sqlx.SelectContext(ctx, r.db.executor(ctx), &bookings, query, userID); err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to query bookings of user %s: %w", userID, classify(err))
	}

	return bookings, nil
}

// FindByStatus は、指定されたステータスの予約を予約日の古い順に取得します
func (r *BookingRepositoryImpl) FindByStatus(ctx context.Context, status model.BookingStatus) ([]model.Booking, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "BookingRepository.FindByStatus")
	defer seg.Close(nil)

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE status = $1 ORDER BY booking_date ASC, created_at ASC`

	bookings := []model.Booking{}
	if err := sqlx.SelectContext(ctx, r.db.executor(ctx), &bookings, query, status); err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to query bookings with status %s: %w", status, classify(err))
	}

	return bookings, nil
}

// DeleteAll は全ての予約を削除します
func (r *BookingRepositoryImpl) DeleteAll(ctx context.Context) error {
	ctx, seg := xray.BeginSubsegment(ctx, "BookingRepository.DeleteAll")
	defer seg.Close(nil)

	if _, err := r.db.executor(ctx).ExecContext(ctx, `DELETE FROM bookings`); err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to delete bookings: %w", classify(err))
	}

	return nil
}
