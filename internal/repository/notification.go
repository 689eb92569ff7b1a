package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/model"
)

// NotificationRepository はアプリ内通知の永続化を担当するインターフェースです
type NotificationRepository interface {
	CreateNotifications(ctx context.Context, records []model.NotificationRecord) error
	Create(ctx context.Context, record *model.NotificationRecord) error
	GetByUserID(ctx context.Context, userID string) ([]model.NotificationRecord, error)
	UpdateIsRead(ctx context.Context, userID string, id int, isRead bool) error
}

// NotificationRepositoryImpl はアプリ内通知の永続化を担当します
type NotificationRepositoryImpl struct {
	db *DB
}

// NewNotificationRepository は新しいNotificationRepositoryを作成します
func NewNotificationRepository(db *DB) *NotificationRepositoryImpl {
	return &NotificationRepositoryImpl{
		db: db,
	}
}

// CreateNotifications は複数の通知レコードを1つのトランザクションで作成します
func (r *NotificationRepositoryImpl) CreateNotifications(ctx context.Context, records []model.NotificationRecord) error {
	ctx, seg := xray.BeginSubsegment(ctx, "NotificationRepository.CreateNotifications")
	defer seg.Close(nil)

	err := r.db.WithTx(ctx, func(ctx context.Context) error {
		for i := range records {
			if err := r.Create(ctx, &records[i]); err != nil {
				return fmt.Errorf("failed to create notification: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		seg.Close(err)
		return err
	}

	return nil
}

// Create は単一の通知レコードを作成します
func (r *NotificationRepositoryImpl) Create(ctx context.Context, record *model.NotificationRecord) error {
	ctx, seg := xray.BeginSubsegment(ctx, "NotificationRepository.Create")
	defer seg.Close(nil)

	query := `
		INSERT INTO notifications (
			user_id, title, message, is_read, type, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		RETURNING id`

	err := r.db.executor(ctx).QueryRowxContext(ctx,
		query,
		record.UserID,
		record.Title,
		record.Message,
		record.IsRead,
		record.Type,
		record.CreatedAt,
		record.UpdatedAt,
	).Scan(&record.ID)

	if err != nil {
		seg.Close(err)
		return classify(err)
	}

	return nil
}

// GetByUserID は指定されたユーザーIDの通知を新しい順に取得します
func (r *NotificationRepositoryImpl) GetByUserID(ctx context.Context, userID string) ([]model.NotificationRecord, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "NotificationRepository.GetByUserID")
	defer seg.Close(nil)

	query := `
		SELECT id, user_id, title, message, is_read, type, created_at, updated_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC`

	records := []model.NotificationRecord{}
	if err := sqlx.SelectContext(ctx, r.db.executor(ctx), &records, query, userID); err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to query notifications: %w", classify(err))
	}

	return records, nil
}

// UpdateIsRead は通知の既読状態を更新します
// 他のユーザーの通知は更新できません
func (r *NotificationRepositoryImpl) UpdateIsRead(ctx context.Context, userID string, id int, isRead bool) error {
	ctx, seg := xray.BeginSubsegment(ctx, "NotificationRepository.UpdateIsRead")
	defer seg.Close(nil)

	query := `
		UPDATE notifications
		SET is_read = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND user_id = $3`

	result, err := r.db.executor(ctx).ExecContext(ctx, query, isRead, id, userID)
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to update notification is_read: %w", classify(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		err := fmt.Errorf("notification with id %d not found: %w", id, ErrNotFound)
		seg.Close(err)
		return err
	}

	return nil
}
