package batch

import (
	"context"
	"sync"

	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/model"
)

// EventCollector は予約の状態遷移を送信せずにイベントとして蓄積します
// 確定バッチではメール送信を通知バッチに任せるために使用します
type EventCollector struct {
	mu     sync.Mutex
	events []model.BookingEvent
}

func NewEventCollector() *EventCollector {
	return &EventCollector{}
}

func (c *EventCollector) NotifyOnBookingChange(ctx context.Context, booking model.Booking, kind model.EventKind, actor string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, model.NewBookingEvent(booking, kind, actor))
}

// Drain は蓄積したイベントを返して空にします
func (c *EventCollector) Drain() []model.BookingEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	events := c.events
	c.events = nil
	if events == nil {
		events = []model.BookingEvent{}
	}
	return events
}
