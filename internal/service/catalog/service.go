// Package catalog は競技、ホール、時間帯の参照データを提供します
package catalog

import (
	"context"
	"errors"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/common/apperror"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/model"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/repository"
)

type Service struct {
	sports    repository.SportRepository
	halls     repository.SportHallRepository
	timeSlots repository.TimeSlotRepository
}

func NewService(repos *repository.Repositories) *Service {
	return &Service{
		sports:    repos.Sport,
		halls:     repos.SportHall,
		timeSlots: repos.TimeSlot,
	}
}

func (s *Service) ListSports(ctx context.Context) ([]model.Sport, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "CatalogService.ListSports")
	defer seg.Close(nil)

	sports, err := s.sports.FindAll(ctx)
	if err != nil {
		err = mapError(err)
		seg.Close(err)
		return nil, err
	}
	return sports, nil
}

func (s *Service) ListSportHalls(ctx context.Context) ([]model.SportHall, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "CatalogService.ListSportHalls")
	defer seg.Close(nil)

	halls, err := s.halls.FindAll(ctx)
	if err != nil {
		err = mapError(err)
		seg.Close(err)
		return nil, err
	}
	return halls, nil
}

// ListTimeSlots は予約可能な時間帯だけを返します
func (s *Service) ListTimeSlots(ctx context.Context) ([]model.TimeSlot, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "CatalogService.ListTimeSlots")
	defer seg.Close(nil)

	slots, err := s.timeSlots.FindAll(ctx)
	if err != nil {
		err = mapError(err)
		seg.Close(err)
		return nil, err
	}

	active := make([]model.TimeSlot, 0, len(slots))
	for _, slot := range slots {
		if slot.IsActive {
			active = append(active, slot)
		}
	}
	return active, nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, repository.ErrUnavailable):
		return apperror.Wrap(apperror.KindServiceUnavailable, err, "storage is unavailable")
	case errors.Is(err, repository.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return apperror.Wrap(apperror.KindRequestTimeout, err, "operation timed out")
	}
	return apperror.Wrap(apperror.KindUnclassified, err, "unexpected error")
}
