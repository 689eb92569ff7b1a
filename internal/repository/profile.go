package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/model"
)

// ProfileRepository は利用者情報の永続化を担当するインターフェースです
// 利用者は論理削除のみのためDeleteは提供しません
type ProfileRepository interface {
	Get(ctx context.Context, id string) (*model.Profile, error)
	GetAndLock(ctx context.Context, id string) (*model.Profile, error)
	FindByIDs(ctx context.Context, ids []string) ([]model.Profile, error)
	FindAll(ctx context.Context) ([]model.Profile, error)
	Save(ctx context.Context, profile *model.Profile) error
}

type ProfileRepositoryImpl struct {
	db *DB
}

func NewProfileRepository(db *DB) *ProfileRepositoryImpl {
	return &ProfileRepositoryImpl{db: db}
}

const profileColumns = `id, email, student_id, type, is_deleted`

// Get は指定されたIDの利用者を取得します。論理削除済みの利用者も返します
func (r *ProfileRepositoryImpl) Get(ctx context.Context, id string) (*model.Profile, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "ProfileRepository.Get")
	defer seg.Close(nil)

	var profile model.Profile
	err := sqlx.GetContext(ctx, r.db.executor(ctx), &profile, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	if err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to get profile %s: %w", id, classify(err))
	}

	return &profile, nil
}

// GetAndLock は利用者を取得し、トランザクション終了まで行ロックを保持します
func (r *ProfileRepositoryImpl) GetAndLock(ctx context.Context, id string) (*model.Profile, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "ProfileRepository.GetAndLock")
	defer seg.Close(nil)

	exec, err := r.db.lockedExecutor(ctx)
	if err != nil {
		seg.Close(err)
		return nil, err
	}

	var profile model.Profile
	err = sqlx.GetContext(ctx, exec, &profile, `SELECT `+profileColumns+` FROM profiles WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to lock profile %s: %w", id, classify(err))
	}

	return &profile, nil
}

// FindByIDs は複数の利用者をまとめて取得します
func (r *ProfileRepositoryImpl) FindByIDs(ctx context.Context, ids []string) ([]model.Profile, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "ProfileRepository.FindByIDs")
	defer seg.Close(nil)

	profiles := []model.Profile{}
	if len(ids) == 0 {
		return profiles, nil
	}

	err := sqlx.SelectContext(ctx, r.db.executor(ctx), &profiles,
		`SELECT `+profileColumns+` FROM profiles WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to query profiles: %w", classify(err))
	}

	return profiles, nil
}

// FindAll は全ての利用者を取得します
func (r *ProfileRepositoryImpl) FindAll(ctx context.Context) ([]model.Profile, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "ProfileRepository.FindAll")
	defer seg.Close(nil)

	profiles := []model.Profile{}
	if err := sqlx.SelectContext(ctx, r.db.executor(ctx), &profiles, `SELECT `+profileColumns+` FROM profiles ORDER BY id`); err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to query profiles: %w", classify(err))
	}

	return profiles, nil
}

// Save は利用者を作成または更新します
func (r *ProfileRepositoryImpl) Save(ctx context.Context, profile *model.Profile) error {
	ctx, seg := xray.BeginSubsegment(ctx, "ProfileRepository.Save")
	defer seg.Close(nil)

	query := `
		INSERT INTO profiles (id, email, student_id, type, is_deleted)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			student_id = EXCLUDED.student_id,
			type = EXCLUDED.type,
			is_deleted = EXCLUDED.is_deleted
	`

	_, err := r.db.executor(ctx).ExecContext(ctx, query,
		profile.ID,
		profile.Email,
		profile.StudentID,
		profile.Type,
		profile.IsDeleted,
	)
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to save profile %s: %w", profile.ID, classify(err))
	}

	return nil
}
