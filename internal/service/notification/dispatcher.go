// Package notification は予約の状態遷移に伴う通知を担当します
package notification

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/calendar"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/mail"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/model"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/repository"
)

// Handler は1種類のイベントの通知を送信します
type Handler interface {
	Handle(ctx context.Context, kind model.EventKind, summary model.BookingSummary) error
}

// Dispatcher はイベントの種類に応じたHandlerへ通知を振り分けます
// Handlerの対応表は作成時に固定され、後から追加できません
type Dispatcher struct {
	handlers  map[model.EventKind]Handler
	halls     repository.SportHallRepository
	timeSlots repository.TimeSlotRepository
	profiles  repository.ProfileRepository
}

// NewDispatcher は新しいDispatcherを作成します
func NewDispatcher(repos *repository.Repositories, sender mail.Sender, encoder *calendar.Encoder) *Dispatcher {
	return &Dispatcher{
		handlers: map[model.EventKind]Handler{
			model.EventCreation:     &creationHandler{sender: sender},
			model.EventModification: &modificationHandler{sender: sender, encoder: encoder},
			model.EventCancellation: &cancellationHandler{sender: sender},
		},
		halls:     repos.SportHall,
		timeSlots: repos.TimeSlot,
		profiles:  repos.Profile,
	}
}

// NotifyOnBookingChange は予約の変更を通知します
// 呼び出し元のキャンセルの影響を受けず、失敗はログに記録するだけで返しません
func (d *Dispatcher) NotifyOnBookingChange(ctx context.Context, booking model.Booking, kind model.EventKind, actor string) {
	ctx = context.WithoutCancel(ctx)
	ctx, seg := xray.BeginSubsegment(ctx, "Dispatcher.NotifyOnBookingChange")
	defer seg.Close(nil)

	defer func() {
		if r := recover(); r != nil {
			log.Printf("panic while notifying booking %s (%s): %v\n%s", booking.ID, kind, r, debug.Stack())
		}
	}()

	handler, ok := d.handlers[kind]
	if !ok {
		log.Printf("no notification handler for event kind %q, booking %s", kind, booking.ID)
		return
	}

	summary, err := d.Summarize(ctx, booking, actor)
	if err != nil {
		log.Printf("failed to summarize booking %s for %s notification: %v", booking.ID, kind, err)
		return
	}

	if err := handler.Handle(ctx, kind, summary); err != nil {
		log.Printf("failed to send %s notification for booking %s: %v", kind, booking.ID, err)
		return
	}
	log.Printf("sent %s notification for booking %s to %s", kind, booking.ID, summary.RecipientEmail)
}

// Summarize は通知用にホール名、時間帯、宛先を解決した要約を作成します
func (d *Dispatcher) Summarize(ctx context.Context, booking model.Booking, actor string) (model.BookingSummary, error) {
	hall, err := d.halls.Get(ctx, booking.SportHallID)
	if err != nil {
		return model.BookingSummary{}, fmt.Errorf("failed to get sport hall: %w", err)
	}
	slot, err := d.timeSlots.Get(ctx, booking.TimeSlotID)
	if err != nil {
		return model.BookingSummary{}, fmt.Errorf("failed to get time slot: %w", err)
	}
	owner, err := d.profiles.Get(ctx, booking.UserID)
	if err != nil {
		return model.BookingSummary{}, fmt.Errorf("failed to get owner profile: %w", err)
	}

	return model.BookingSummary{
		BookingID:      booking.ID,
		RecipientEmail: owner.Email,
		ResourceName:   hall.Name,
		Location:       hall.Location,
		Date:           booking.BookingDate,
		StartTime:      slot.StartTime,
		EndTime:        slot.EndTime,
		Purpose:        booking.Purpose,
		Actor:          actor,
		Status:         booking.Status,
	}, nil
}

type creationHandler struct {
	sender mail.Sender
}

func (h *creationHandler) Handle(ctx context.Context, kind model.EventKind, summary model.BookingSummary) error {
	body := "We received your booking request. It is waiting for confirmation.\n\n" + summary.Text()
	return h.sender.Send(ctx, summary.RecipientEmail, kind.Title(), body)
}

// modificationHandler は変更内容にカレンダー招待を添付します
type modificationHandler struct {
	sender  mail.Sender
	encoder *calendar.Encoder
}

func (h *modificationHandler) Handle(ctx context.Context, kind model.EventKind, summary model.BookingSummary) error {
	body := "Your booking has been updated.\n\n" + summary.Text()

	invite := h.encoder.Encode(summary)
	if len(invite) == 0 {
		return h.sender.Send(ctx, summary.RecipientEmail, kind.Title(), body)
	}
	return h.sender.SendWithAttachment(ctx, summary.RecipientEmail, kind.Title(), body, mail.Attachment{
		Filename:    calendar.Filename(summary.BookingID),
		ContentType: calendar.ContentType,
		Data:        invite,
	})
}

type cancellationHandler struct {
	sender mail.Sender
}

func (h *cancellationHandler) Handle(ctx context.Context, kind model.EventKind, summary model.BookingSummary) error {
	body := "Your booking has been canceled.\n\n" + summary.Text()
	return h.sender.Send(ctx, summary.RecipientEmail, kind.Title(), body)
}
