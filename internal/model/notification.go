package model

import (
	"fmt"
	"strings"
	"time"
)

// EventKind は予約のライフサイクルイベントの種類を表します
type EventKind string

const (
	EventCreation     EventKind = "CREATION"
	EventModification EventKind = "MODIFICATION"
	EventCancellation EventKind = "CANCELLATION"
)

// NotificationType はアプリ内通知の種類を表します
type NotificationType string

const (
	// NotificationTypeBooking は予約関連の通知を表します
	NotificationTypeBooking NotificationType = "booking"
	// NotificationTypeCommon は共通の通知を表します
	NotificationTypeCommon NotificationType = "common"
)

// BookingEvent は予約の状態遷移時に発行されるイベントの構造体
// 確定バッチから通知バッチへタスクトークン経由で受け渡されます
type BookingEvent struct {
	BookingID string    `json:"booking_id"`
	UserID    string    `json:"user_id"`
	Kind      EventKind `json:"kind"`
	Actor     string    `json:"actor"`
	CreatedAt time.Time `json:"created_at"`
}

// BookingSummary は通知用に名前を解決済みの予約の要約です
type BookingSummary struct {
	BookingID      string
	RecipientEmail string
	ResourceName   string
	Location       Location
	Date           time.Time
	StartTime      string
	EndTime        string
	Purpose        string
	Actor          string
	Status         BookingStatus
}

// Text はメール本文用の文字列を返します
func (s BookingSummary) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Booking: %s\n", s.BookingID)
	fmt.Fprintf(&b, "Hall: %s", s.ResourceName)
	if s.Location != "" {
		fmt.Fprintf(&b, " (%s)", s.Location)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Date: %s\n", s.Date.Format(DateLayout))
	fmt.Fprintf(&b, "Time: %s - %s\n", s.StartTime, s.EndTime)
	fmt.Fprintf(&b, "Purpose: %s\n", s.Purpose)
	fmt.Fprintf(&b, "Status: %s\n", s.Status)
	if s.Actor != "" {
		fmt.Fprintf(&b, "Updated by: %s\n", s.Actor)
	}
	return b.String()
}

// NotificationRecord は通知のドメインモデルです
// データベースに永続化される通知レコードと今回は一致しています
type NotificationRecord struct {
	ID        int              `db:"id"`
	UserID    string           `db:"user_id"`
	Title     string           `db:"title"`
	Message   string           `db:"message"`
	IsRead    bool             `db:"is_read"`
	Type      NotificationType `db:"type"`
	CreatedAt time.Time        `db:"created_at"`
	UpdatedAt time.Time        `db:"updated_at"`
}

// Title はイベントの種類に応じた通知タイトルを返します
func (k EventKind) Title() string {
	switch k {
	case EventCreation:
		return "Your booking request was received"
	case EventModification:
		return "Your booking was updated"
	case EventCancellation:
		return "Your booking was canceled"
	default:
		return "You have a new notification"
	}
}

// ToNotificationRecord はイベントを通知レコードに変換します
func (e BookingEvent) ToNotificationRecord(summaries map[string]BookingSummary) (*NotificationRecord, error) {
	if e.UserID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	switch e.Kind {
	case EventCreation, EventModification, EventCancellation:
		summary, ok := summaries[e.BookingID]
		if !ok {
			return nil, fmt.Errorf("booking_id %s not found in summaries", e.BookingID)
		}

		message := fmt.Sprintf("%s\n%s %s-%s\n%s",
			summary.ResourceName,
			summary.Date.Format(DateLayout),
			summary.StartTime,
			summary.EndTime,
			summary.Purpose,
		)

		return &NotificationRecord{
			UserID:    e.UserID,
			Title:     e.Kind.Title(),
			Message:   message,
			IsRead:    false,
			Type:      NotificationTypeBooking,
			CreatedAt: e.CreatedAt,
			UpdatedAt: e.CreatedAt,
		}, nil
	}

	return &NotificationRecord{
		UserID:    e.UserID,
		Title:     e.Kind.Title(),
		Message:   "You have a new notification.",
		IsRead:    false,
		Type:      NotificationTypeCommon,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.CreatedAt,
	}, nil
}

// NewBookingEvent は予約からイベントを作成します
func NewBookingEvent(booking Booking, kind EventKind, actor string) BookingEvent {
	return BookingEvent{
		BookingID: booking.ID,
		UserID:    booking.UserID,
		Kind:      kind,
		Actor:     actor,
		CreatedAt: time.Now(),
	}
}
