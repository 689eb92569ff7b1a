package booking

import (
	"context"
	"log"
	"sort"
	"strings"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/model"
)

// Filter は予約検索の条件です
// nilの条件は絞り込みに使用しません。全ての条件はANDで結合します
type Filter struct {
	// StudentIDPrefix は予約者の学籍番号の前方一致です。空文字は条件なしとして扱います
	StudentIDPrefix *string
	Location        *model.Location
	ProfileType     *model.ProfileType
	Status          *model.BookingStatus
}

// FilterBookings は条件に一致する予約を作成日時順に返します
func (s *Service) FilterBookings(ctx context.Context, f Filter) ([]model.Booking, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "BookingService.FilterBookings")
	defer seg.Close(nil)

	bookings, err := s.repos.Booking.FindAll(ctx)
	if err != nil {
		err = storeError(err)
		seg.Close(err)
		return nil, err
	}

	if f.Status != nil {
		bookings = keep(bookings, func(b model.Booking) bool { return b.Status == *f.Status })
	}

	prefix := ""
	if f.StudentIDPrefix != nil {
		prefix = *f.StudentIDPrefix
	}

	if prefix != "" || f.ProfileType != nil {
		profiles, err := s.profileMap(ctx, bookings)
		if err != nil {
			seg.Close(err)
			return nil, err
		}
		bookings = keep(bookings, func(b model.Booking) bool {
			p, ok := profiles[b.UserID]
			if !ok {
				return false
			}
			if f.ProfileType != nil && p.Type != *f.ProfileType {
				return false
			}
			if prefix != "" && (p.StudentID == nil || !strings.HasPrefix(*p.StudentID, prefix)) {
				return false
			}
			return true
		})
	}

	if f.Location != nil {
		halls, err := s.hallMap(ctx, bookings)
		if err != nil {
			seg.Close(err)
			return nil, err
		}
		bookings = keep(bookings, func(b model.Booking) bool {
			h, ok := halls[b.SportHallID]
			return ok && h.Location == *f.Location
		})
	}

	sort.SliceStable(bookings, func(i, j int) bool {
		if !bookings[i].CreatedAt.Equal(bookings[j].CreatedAt) {
			return bookings[i].CreatedAt.Before(bookings[j].CreatedAt)
		}
		return bookings[i].ID < bookings[j].ID
	})

	if err := seg.AddMetadata("result_count", len(bookings)); err != nil {
		log.Printf("Failed to add result_count metadata: %v", err)
	}
	return bookings, nil
}

func keep(bookings []model.Booking, match func(model.Booking) bool) []model.Booking {
	out := make([]model.Booking, 0, len(bookings))
	for _, b := range bookings {
		if match(b) {
			out = append(out, b)
		}
	}
	return out
}

// profileMap は予約者のプロフィールを重複のないIDで一度に取得します
func (s *Service) profileMap(ctx context.Context, bookings []model.Booking) (map[string]model.Profile, error) {
	ids := distinct(bookings, func(b model.Booking) string { return b.UserID })
	out := make(map[string]model.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	profiles, err := s.repos.Profile.FindByIDs(ctx, ids)
	if err != nil {
		return nil, storeError(err)
	}
	for _, p := range profiles {
		out[p.ID] = p
	}
	return out, nil
}

// hallMap は予約先のホールを重複のないIDで一度に取得します
func (s *Service) hallMap(ctx context.Context, bookings []model.Booking) (map[string]model.SportHall, error) {
	ids := distinct(bookings, func(b model.Booking) string { return b.SportHallID })
	out := make(map[string]model.SportHall, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	halls, err := s.repos.SportHall.FindByIDs(ctx, ids)
	if err != nil {
		return nil, storeError(err)
	}
	for _, h := range halls {
		out[h.ID] = h
	}
	return out, nil
}

func distinct(bookings []model.Booking, key func(model.Booking) string) []string {
	seen := make(map[string]struct{}, len(bookings))
	ids := make([]string, 0, len(bookings))
	for _, b := range bookings {
		k := key(b)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		ids = append(ids, k)
	}
	return ids
}
