package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BookingStatus は予約のステータスを表します
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusRejected  BookingStatus = "rejected"
)

// Valid は定義済みのステータスかどうかを返します
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusRejected:
		return true
	}
	return false
}

// Occupying はスロットを占有するステータスかどうかを返します
// 取り消された予約(rejected)はスロットを占有しません
func (s BookingStatus) Occupying() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

const DateLayout = "2006-01-02"

type Booking struct {
	ID                  string          `db:"id" json:"id"`
	SportHallID         string          `db:"sport_hall_id" json:"sport_hall_id"`
	SportID             string          `db:"sport_id" json:"sport_id"`
	UserID              string          `db:"user_id" json:"user_id"`
	TimeSlotID          string          `db:"time_slot_id" json:"time_slot_id"`
	BookingDate         time.Time       `db:"booking_date" json:"booking_date"`
	Status              BookingStatus   `db:"status" json:"status"`
	Participants        int             `db:"participants" json:"participants"`
	Purpose             string          `db:"purpose" json:"purpose"`
	SpecialRequirements *string         `db:"special_requirements" json:"special_requirements,omitempty"`
	CanceledAt          *time.Time      `db:"canceled_at" json:"canceled_at,omitempty"`
	CanceledBy          *string         `db:"canceled_by" json:"canceled_by,omitempty"`
	TotalCost           decimal.Decimal `db:"total_cost" json:"total_cost"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at" json:"updated_at"`
}

// SlotKey はスロットを一意に識別する (ホール, 日付, 時間帯) の組です
type SlotKey struct {
	SportHallID string
	BookingDate time.Time
	TimeSlotID  string
}

// Key は予約が占有するスロットを返します
func (b Booking) Key() SlotKey {
	return SlotKey{SportHallID: b.SportHallID, BookingDate: b.BookingDate, TimeSlotID: b.TimeSlotID}
}

// Equal は日付を暦日として比較します
func (k SlotKey) Equal(other SlotKey) bool {
	return k.SportHallID == other.SportHallID &&
		k.TimeSlotID == other.TimeSlotID &&
		SameDate(k.BookingDate, other.BookingDate)
}

// DateOf は時刻を含まない暦日(UTCの0時)に正規化します
// タイムゾーン変換は行わず、tの持つゾーンでの年月日をそのまま使います
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate はYYYY-MM-DD形式の日付を解析します
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
