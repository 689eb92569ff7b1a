// Package repositorytest はテスト用のインメモリなリポジトリ実装を提供します
package repositorytest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/model"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/repository"
)

// Store はPostgreSQL実装と同じ契約を持つインメモリストアです
// WithTxは直列化され、エラー時には開始時点の状態に戻します
type Store struct {
	mu            sync.Mutex
	txMu          sync.Mutex
	bookings      map[string]model.Booking
	profiles      map[string]model.Profile
	halls         map[string]model.SportHall
	slots         map[string]model.TimeSlot
	sports        map[string]model.Sport
	notifications []model.NotificationRecord
	failures      map[string]error
	calls         map[string]int
}

func NewStore() *Store {
	return &Store{
		bookings: map[string]model.Booking{},
		profiles: map[string]model.Profile{},
		halls:    map[string]model.SportHall{},
		slots:    map[string]model.TimeSlot{},
		sports:   map[string]model.Sport{},
		failures: map[string]error{},
		calls:    map[string]int{},
	}
}

// Repositories はストアを背後に持つリポジトリ一式を返します
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Tx:           s,
		Booking:      &bookingRepo{s},
		Profile:      &profileRepo{s},
		SportHall:    &sportHallRepo{s},
		TimeSlot:     &timeSlotRepo{s},
		Sport:        &sportRepo{s},
		Notification: &notificationRepo{s},
	}
}

// Fail は"Booking.ExistsByCompositeKey"のような操作名に対してエラーを注入します
func (s *Store) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

// Calls は操作が呼ばれた回数を返します
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *Store) AddProfile(p model.Profile)     { s.mu.Lock(); s.profiles[p.ID] = p; s.mu.Unlock() }
func (s *Store) AddSportHall(h model.SportHall) { s.mu.Lock(); s.halls[h.ID] = h; s.mu.Unlock() }
func (s *Store) AddTimeSlot(t model.TimeSlot)   { s.mu.Lock(); s.slots[t.ID] = t; s.mu.Unlock() }
func (s *Store) AddSport(sp model.Sport)        { s.mu.Lock(); s.sports[sp.ID] = sp; s.mu.Unlock() }
func (s *Store) AddBooking(b model.Booking)     { s.mu.Lock(); s.bookings[b.ID] = b; s.mu.Unlock() }

// BookingCount は保存されている予約の数を返します
func (s *Store) BookingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookings)
}

// Notifications は保存されている通知レコードを返します
func (s *Store) Notifications() []model.NotificationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.NotificationRecord(nil), s.notifications...)
}

type txKey struct{}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	if err := s.enter("Tx.Begin"); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	bookings := cloneMap(s.bookings)
	profiles := cloneMap(s.profiles)
	notifications := append([]model.NotificationRecord(nil), s.notifications...)
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.bookings = bookings
		s.profiles = profiles
		s.notifications = notifications
		s.mu.Unlock()
		return err
	}
	return nil
}

func inTx(ctx context.Context) bool {
	return ctx.Value(txKey{}) != nil
}

// enter は呼び出し回数を記録し、注入されたエラーがあれば返します
func (s *Store) enter(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	return s.failures[op]
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, repository.ErrNotFound)
}

type bookingRepo struct{ s *Store }

func (r *bookingRepo) Get(ctx context.Context, id string) (*model.Booking, error) {
	if err := r.s.enter("Booking.Get"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, notFound("booking", id)
	}
	return &b, nil
}

func (r *bookingRepo) GetAndLock(ctx context.Context, id string) (*model.Booking, error) {
	if !inTx(ctx) {
		return nil, repository.ErrNoTransaction
	}
	if err := r.s.enter("Booking.GetAndLock"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, notFound("booking", id)
	}
	return &b, nil
}

func (r *bookingRepo) Save(ctx context.Context, booking *model.Booking) error {
	if err := r.s.enter("Booking.Save"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	// 確定済みスロットの部分一意インデックスを再現する
	if booking.Status == model.BookingStatusConfirmed {
		for _, other := range r.s.bookings {
			if other.ID != booking.ID && other.Status == model.BookingStatusConfirmed && other.Key().Equal(booking.Key()) {
				return fmt.Errorf("slot already confirmed: %w", repository.ErrDuplicate)
			}
		}
	}
	r.s.bookings[booking.ID] = *booking
	return nil
}

func (r *bookingRepo) Delete(ctx context.Context, id string) error {
	if err := r.s.enter("Booking.Delete"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.bookings[id]; !ok {
		return notFound("booking", id)
	}
	delete(r.s.bookings, id)
	return nil
}

func (r *bookingRepo) ExistsByCompositeKey(ctx context.Context, key model.SlotKey, status model.BookingStatus, excludeID string) (bool, error) {
	if err := r.s.enter("Booking.ExistsByCompositeKey"); err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.bookings {
		if b.ID != excludeID && b.Status == status && b.Key().Equal(key) {
			return true, nil
		}
	}
	return false, nil
}

func (r *bookingRepo) ExistsActiveByUserAndDate(ctx context.Context, userID string, date time.Time, excludeID string) (bool, error) {
	if err := r.s.enter("Booking.ExistsActiveByUserAndDate"); err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.bookings {
		if b.ID != excludeID && b.UserID == userID && b.Status.Occupying() && model.SameDate(b.BookingDate, date) {
			return true, nil
		}
	}
	return false, nil
}

func (r *bookingRepo) FindAll(ctx context.Context) ([]model.Booking, error) {
	return r.find("Booking.FindAll", func(model.Booking) bool { return true })
}

func (r *bookingRepo) FindByUserID(ctx context.Context, userID string) ([]model.Booking, error) {
	return r.find("Booking.FindByUserID", func(b model.Booking) bool { return b.UserID == userID })
}

func (r *bookingRepo) FindByStatus(ctx context.Context, status model.BookingStatus) ([]model.Booking, error) {
	bookings, err := r.find("Booking.FindByStatus", func(b model.Booking) bool { return b.Status == status })
	if err != nil {
		return nil, err
	}
	sort.SliceStable(bookings, func(i, j int) bool {
		return bookings[i].BookingDate.Before(bookings[j].BookingDate)
	})
	return bookings, nil
}

func (r *bookingRepo) DeleteAll(ctx context.Context) error {
	if err := r.s.enter("Booking.DeleteAll"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.bookings = map[string]model.Booking{}
	return nil
}

func (r *bookingRepo) find(op string, match func(model.Booking) bool) ([]model.Booking, error) {
	if err := r.s.enter(op); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Booking{}
	for _, b := range r.s.bookings {
		if match(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type profileRepo struct{ s *Store }

func (r *profileRepo) Get(ctx context.Context, id string) (*model.Profile, error) {
	if err := r.s.enter("Profile.Get"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.profiles[id]
	if !ok {
		return nil, notFound("profile", id)
	}
	return &p, nil
}

func (r *profileRepo) GetAndLock(ctx context.Context, id string) (*model.Profile, error) {
	if !inTx(ctx) {
		return nil, repository.ErrNoTransaction
	}
	if err := r.s.enter("Profile.GetAndLock"); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *profileRepo) FindByIDs(ctx context.Context, ids []string) ([]model.Profile, error) {
	if err := r.s.enter("Profile.FindByIDs"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Profile{}
	for _, id := range ids {
		if p, ok := r.s.profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *profileRepo) FindAll(ctx context.Context) ([]model.Profile, error) {
	if err := r.s.enter("Profile.FindAll"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.Profile, 0, len(r.s.profiles))
	for _, p := range r.s.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *profileRepo) Save(ctx context.Context, profile *model.Profile) error {
	if err := r.s.enter("Profile.Save"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.profiles[profile.ID] = *profile
	return nil
}

type sportHallRepo struct{ s *Store }

func (r *sportHallRepo) Get(ctx context.Context, id string) (*model.SportHall, error) {
	if err := r.s.enter("SportHall.Get"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	h, ok := r.s.halls[id]
	if !ok {
		return nil, notFound("sport hall", id)
	}
	return &h, nil
}

func (r *sportHallRepo) FindByIDs(ctx context.Context, ids []string) ([]model.SportHall, error) {
	if err := r.s.enter("SportHall.FindByIDs"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.SportHall{}
	for _, id := range ids {
		if h, ok := r.s.halls[id]; ok {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *sportHallRepo) FindAll(ctx context.Context) ([]model.SportHall, error) {
	if err := r.s.enter("SportHall.FindAll"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.SportHall, 0, len(r.s.halls))
	for _, h := range r.s.halls {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type timeSlotRepo struct{ s *Store }

func (r *timeSlotRepo) Get(ctx context.Context, id string) (*model.TimeSlot, error) {
	if err := r.s.enter("TimeSlot.Get"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.slots[id]
	if !ok {
		return nil, notFound("time slot", id)
	}
	return &t, nil
}

func (r *timeSlotRepo) FindAll(ctx context.Context) ([]model.TimeSlot, error) {
	if err := r.s.enter("TimeSlot.FindAll"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.TimeSlot, 0, len(r.s.slots))
	for _, t := range r.s.slots {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

type sportRepo struct{ s *Store }

func (r *sportRepo) Get(ctx context.Context, id string) (*model.Sport, error) {
	if err := r.s.enter("Sport.Get"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sp, ok := r.s.sports[id]
	if !ok {
		return nil, notFound("sport", id)
	}
	return &sp, nil
}

func (r *sportRepo) FindAll(ctx context.Context) ([]model.Sport, error) {
	if err := r.s.enter("Sport.FindAll"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.Sport, 0, len(r.s.sports))
	for _, sp := range r.s.sports {
		out = append(out, sp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type notificationRepo struct{ s *Store }

func (r *notificationRepo) CreateNotifications(ctx context.Context, records []model.NotificationRecord) error {
	return r.s.WithTx(ctx, func(ctx context.Context) error {
		for i := range records {
			if err := r.Create(ctx, &records[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *notificationRepo) Create(ctx context.Context, record *model.NotificationRecord) error {
	if err := r.s.enter("Notification.Create"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	record.ID = len(r.s.notifications) + 1
	r.s.notifications = append(r.s.notifications, *record)
	return nil
}

func (r *notificationRepo) GetByUserID(ctx context.Context, userID string) ([]model.NotificationRecord, error) {
	if err := r.s.enter("Notification.GetByUserID"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.NotificationRecord{}
	for i := len(r.s.notifications) - 1; i >= 0; i-- {
		if r.s.notifications[i].UserID == userID {
			out = append(out, r.s.notifications[i])
		}
	}
	return out, nil
}

func (r *notificationRepo) UpdateIsRead(ctx context.Context, userID string, id int, isRead bool) error {
	if err := r.s.enter("Notification.UpdateIsRead"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.notifications {
		if r.s.notifications[i].ID == id && r.s.notifications[i].UserID == userID {
			r.s.notifications[i].IsRead = isRead
			r.s.notifications[i].UpdatedAt = time.Now()
			return nil
		}
	}
	return fmt.Errorf("notification %d: %w", id, repository.ErrNotFound)
}
