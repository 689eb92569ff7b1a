package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/model"
)

// SportHallRepository はホール情報の参照を担当するインターフェースです
type SportHallRepository interface {
	Get(ctx context.Context, id string) (*model.SportHall, error)
	FindByIDs(ctx context.Context, ids []string) ([]model.SportHall, error)
	FindAll(ctx context.Context) ([]model.SportHall, error)
}

// SportHallRepositoryImpl はSportHallRepositoryの実装です
type SportHallRepositoryImpl struct {
	db *DB
}

// NewSportHallRepository は新しいSportHallRepositoryを作成します
func NewSportHallRepository(db *DB) *SportHallRepositoryImpl {
	return &SportHallRepositoryImpl{
		db: db,
	}
}

const sportHallColumns = `id, sport_id, name, location, capacity`

// Get は指定されたIDのホールを取得します
func (r *SportHallRepositoryImpl) Get(ctx context.Context, id string) (*model.SportHall, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "SportHallRepository.Get")
	defer seg.Close(nil)

	var hall model.SportHall
	err := sqlx.GetContext(ctx, r.db.executor(ctx), &hall, `SELECT `+sportHallColumns+` FROM sport_halls WHERE id = $1`, id)
	if err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to get sport hall %s: %w", id, classify(err))
	}

	return &hall, nil
}

// FindByIDs は複数のホールをまとめて取得します
func (r *SportHallRepositoryImpl) FindByIDs(ctx context.Context, ids []string) ([]model.SportHall, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "SportHallRepository.FindByIDs")
	defer seg.Close(nil)

	halls := []model.SportHall{}
	if len(ids) == 0 {
		return halls, nil
	}

	err := sqlx.SelectContext(ctx, r.db.executor(ctx), &halls,
		`SELECT `+sportHallColumns+` FROM sport_halls WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to query sport halls: %w", classify(err))
	}

	return halls, nil
}

// FindAll は全てのホールを名前順に取得します
func (r *SportHallRepositoryImpl) FindAll(ctx context.Context) ([]model.SportHall, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "SportHallRepository.FindAll")
	defer seg.Close(nil)

	halls := []model.SportHall{}
	if err := sqlx.SelectContext(ctx, r.db.executor(ctx), &halls, `SELECT `+sportHallColumns+` FROM sport_halls ORDER BY name`); err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to query sport halls: %w", classify(err))
	}

	return halls, nil
}
