package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/model"
)

type TimeSlotRepository interface {
	Get(ctx context.Context, id string) (*model.TimeSlot, error)
	FindAll(ctx context.Context) ([]model.TimeSlot, error)
}

type TimeSlotRepositoryImpl struct {
	db *DB
}

func NewTimeSlotRepository(db *DB) *TimeSlotRepositoryImpl {
	return &TimeSlotRepositoryImpl{db: db}
}

// TIME型はtextとして取り出してHH:MM:SSのまま扱う
const timeSlotColumns = `id, start_time::text AS start_time, end_time::text AS end_time, duration_minutes, is_active`

func (r *TimeSlotRepositoryImpl) Get(ctx context.Context, id string) (*model.TimeSlot, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "TimeSlotRepository.Get")
	defer seg.Close(nil)

	var slot model.TimeSlot
	err := sqlx.GetContext(ctx, r.db.executor(ctx), &slot, `SELECT `+timeSlotColumns+` FROM time_slots WHERE id = $1`, id)
	if err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to get time slot %s: %w", id, classify(err))
	}

	return &slot, nil
}

// FindAll は全ての時間帯を開始時刻順に取得します
func (r *TimeSlotRepositoryImpl) FindAll(ctx context.Context) ([]model.TimeSlot, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "TimeSlotRepository.FindAll")
	defer seg.Close(nil)

	slots := []model.TimeSlot{}
	if err := sqlx.SelectContext(ctx, r.db.executor(ctx), &slots, `SELECT `+timeSlotColumns+` FROM time_slots ORDER BY start_time`); err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to query time slots: %w", classify(err))
	}

	return slots, nil
}
