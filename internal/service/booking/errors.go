package booking

import (
	"context"
	"errors"

	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/common/apperror"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/repository"
)

// storeError はリポジトリのエラーを利用者向けのエラー種別に変換します
// 種別が付与済みのエラーはそのまま返します
func storeError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}

	switch {
	case errors.Is(err, repository.ErrUnavailable):
		return apperror.Wrap(apperror.KindServiceUnavailable, err, "storage is unavailable")
	case errors.Is(err, repository.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return apperror.Wrap(apperror.KindRequestTimeout, err, "operation timed out")
	case errors.Is(err, repository.ErrDuplicate):
		return apperror.Wrap(apperror.KindConflict, err, "time slot is already booked")
	case errors.Is(err, repository.ErrNotFound):
		return apperror.Wrap(apperror.KindBadRequest, err, "not found")
	}
	return apperror.Wrap(apperror.KindUnclassified, err, "unexpected error")
}

// lookupError は参照先が見つからない場合にwhatを含むBadRequestを返します
func lookupError(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.Wrap(apperror.KindBadRequest, err, "%s not found", what)
	}
	return storeError(err)
}
