// Package profile は利用者情報とアプリ内通知を扱います
package profile

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/common/apperror"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/model"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/repository"
)

type Service struct {
	tx            repository.Transactor
	profiles      repository.ProfileRepository
	notifications repository.NotificationRepository
	txTimeout     time.Duration
}

func NewService(repos *repository.Repositories, txTimeout time.Duration) *Service {
	return &Service{
		tx:            repos.Tx,
		profiles:      repos.Profile,
		notifications: repos.Notification,
		txTimeout:     txTimeout,
	}
}

// GetProfile は論理削除されていない利用者を取得します
func (s *Service) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "ProfileService.GetProfile")
	defer seg.Close(nil)

	p, err := s.profiles.Get(ctx, id)
	if err != nil {
		err = mapError(err)
		seg.Close(err)
		return nil, err
	}
	if p.IsDeleted {
		return nil, apperror.BadRequest("user not found")
	}
	return p, nil
}

// RequireAdmin は利用者が管理者であることを確認します
// 管理者でない場合はForbiddenを返します
func (s *Service) RequireAdmin(ctx context.Context, id string) error {
	p, err := s.GetProfile(ctx, id)
	if err != nil {
		return err
	}
	if p.Type != model.ProfileTypeAdmin {
		return apperror.Forbidden("admin privileges are required")
	}
	return nil
}

// DeleteProfile は利用者を論理削除します
// 行ロックを取得してからフラグを更新します
func (s *Service) DeleteProfile(ctx context.Context, id string) error {
	ctx, seg := xray.BeginSubsegment(ctx, "ProfileService.DeleteProfile")
	defer seg.Close(nil)

	ctx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		p, err := s.profiles.GetAndLock(ctx, id)
		if err != nil {
			return err
		}
		if p.IsDeleted {
			return apperror.BadRequest("user is already deleted")
		}
		p.IsDeleted = true
		return s.profiles.Save(ctx, p)
	})
	if err != nil {
		err = mapError(err)
		seg.Close(err)
		return err
	}
	return nil
}

// ListNotifications は利用者の通知を新しい順に返します
func (s *Service) ListNotifications(ctx context.Context, userID string) ([]model.NotificationRecord, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "ProfileService.ListNotifications")
	defer seg.Close(nil)

	if _, err := s.GetProfile(ctx, userID); err != nil {
		seg.Close(err)
		return nil, err
	}
	records, err := s.notifications.GetByUserID(ctx, userID)
	if err != nil {
		err = mapError(err)
		seg.Close(err)
		return nil, err
	}
	return records, nil
}

// MarkNotificationRead は利用者自身の通知の既読状態を更新します
func (s *Service) MarkNotificationRead(ctx context.Context, userID string, notificationID int, isRead bool) error {
	ctx, seg := xray.BeginSubsegment(ctx, "ProfileService.MarkNotificationRead")
	defer seg.Close(nil)

	if err := s.notifications.UpdateIsRead(ctx, userID, notificationID, isRead); err != nil {
		err = mapError(err)
		seg.Close(err)
		return err
	}
	return nil
}

func mapError(err error) error {
	var appErr *apperror.Error
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return apperror.Wrap(apperror.KindBadRequest, err, "not found")
	case errors.Is(err, repository.ErrUnavailable):
		return apperror.Wrap(apperror.KindServiceUnavailable, err, "storage is unavailable")
	case errors.Is(err, repository.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return apperror.Wrap(apperror.KindRequestTimeout, err, "operation timed out")
	}
	return apperror.Wrap(apperror.KindUnclassified, err, "unexpected error")
}
