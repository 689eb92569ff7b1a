package repository

import "context"

// Transactor は関数を単一のトランザクションとして実行します
// 各リポジトリはコンテキストに載ったトランザクションに参加します
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Repositories はサービス層が利用するリポジトリの一式です
type Repositories struct {
	Tx           Transactor
	Booking      BookingRepository
	Profile      ProfileRepository
	SportHall    SportHallRepository
	TimeSlot     TimeSlotRepository
	Sport        SportRepository
	Notification NotificationRepository
}

// NewRepositories はPostgreSQL実装のリポジトリ一式を作成します
func NewRepositories(db *DB) *Repositories {
	return &Repositories{
		Tx:           db,
		Booking:      NewBookingRepository(db),
		Profile:      NewProfileRepository(db),
		SportHall:    NewSportHallRepository(db),
		TimeSlot:     NewTimeSlotRepository(db),
		Sport:        NewSportRepository(db),
		Notification: NewNotificationRepository(db),
	}
}
