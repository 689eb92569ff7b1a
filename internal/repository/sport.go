package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/model"
)

type SportRepository interface {
	Get(ctx context.Context, id string) (*model.Sport, error)
	FindAll(ctx context.Context) ([]model.Sport, error)
}

type SportRepositoryImpl struct {
	db *DB
}

func NewSportRepository(db *DB) *SportRepositoryImpl {
	return &SportRepositoryImpl{db: db}
}

const sportColumns = `id, name, description, icon, is_active`

func (r *SportRepositoryImpl) Get(ctx context.Context, id string) (*model.Sport, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "SportRepository.Get")
	defer seg.Close(nil)

	var sport model.Sport
	err := sqlx.GetContext(ctx, r.db.executor(ctx), &sport, `SELECT `+sportColumns+` FROM sports WHERE id = $1`, id)
	if err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to get sport %s: %w", id, classify(err))
	}

	return &sport, nil
}

func (r *SportRepositoryImpl) FindAll(ctx context.Context) ([]model.Sport, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "SportRepository.FindAll")
	defer seg.Close(nil)

	sports := []model.Sport{}
	if err := sqlx.SelectContext(ctx, r.db.executor(ctx), &sports, `SELECT `+sportColumns+` FROM sports ORDER BY name`); err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to query sports: %w", classify(err))
	}

	return sports, nil
}
