package notification

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/calendar"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/mail"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/model"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/repository/repositorytest"
)

type sentMail struct {
	to         string
	subject    string
	body       string
	attachment *mail.Attachment
}

// MockSender はテスト用のモック送信者です
type MockSender struct {
	sent  []sentMail
	err   error
	panic bool
}

func (m *MockSender) Send(ctx context.Context, to, subject, body string) error {
	if m.panic {
		panic("sender exploded")
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return m.err
}

func (m *MockSender) SendWithAttachment(ctx context.Context, to, subject, body string, attachment mail.Attachment) error {
	if m.panic {
		panic("sender exploded")
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body, attachment: &attachment})
	return m.err
}

func newTestStore() *repositorytest.Store {
	store := repositorytest.NewStore()
	store.AddProfile(model.Profile{ID: "u1", Email: "u1@example.com", Type: model.ProfileTypeUser})
	store.AddSportHall(model.SportHall{ID: "h1", SportID: "s1", Name: "Hall A", Location: model.LocationIndoor, Capacity: 20})
	store.AddTimeSlot(model.TimeSlot{ID: "t1", StartTime: "08:00:00", EndTime: "09:00:00", DurationMinutes: 60, IsActive: true})
	return store
}

func testBooking() model.Booking {
	return model.Booking{
		ID:          "b1",
		SportHallID: "h1",
		SportID:     "s1",
		UserID:      "u1",
		TimeSlotID:  "t1",
		BookingDate: time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC),
		Status:      model.BookingStatusPending,
		Purpose:     "Practice",
	}
}

func TestDispatcher_NotifyOnBookingChange(t *testing.T) {
	ctx, seg := xray.BeginSegment(context.Background(), "TestDispatcher_NotifyOnBookingChange")
	defer seg.Close(nil)

	tests := []struct {
		name           string
		kind           model.EventKind
		wantSent       int
		wantAttachment bool
		wantSubject    string
	}{
		{
			name:        "作成時は添付なしで送信",
			kind:        model.EventCreation,
			wantSent:    1,
			wantSubject: model.EventCreation.Title(),
		},
		{
			name:           "変更時はカレンダー招待を添付",
			kind:           model.EventModification,
			wantSent:       1,
			wantAttachment: true,
			wantSubject:    model.EventModification.Title(),
		},
		{
			name:        "取消時は添付なしで送信",
			kind:        model.EventCancellation,
			wantSent:    1,
			wantSubject: model.EventCancellation.Title(),
		},
		{
			name:     "未知の種類は何もしない",
			kind:     model.EventKind("UNKNOWN"),
			wantSent: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &MockSender{}
			d := NewDispatcher(newTestStore().Repositories(), sender, calendar.NewEncoder("booking@example.com", time.UTC))

			d.NotifyOnBookingChange(ctx, testBooking(), tt.kind, "u1")

			if len(sender.sent) != tt.wantSent {
				t.Fatalf("sent = %v, want %v", len(sender.sent), tt.wantSent)
			}
			if tt.wantSent == 0 {
				return
			}
			got := sender.sent[0]
			if got.to != "u1@example.com" {
				t.Errorf("to = %v, want u1@example.com", got.to)
			}
			if got.subject != tt.wantSubject {
				t.Errorf("subject = %v, want %v", got.subject, tt.wantSubject)
			}
			if !strings.Contains(got.body, "Hall A") || !strings.Contains(got.body, "08:00:00 - 09:00:00") {
				t.Errorf("body does not contain the summary: %s", got.body)
			}
			if (got.attachment != nil) != tt.wantAttachment {
				t.Fatalf("attachment = %v, want %v", got.attachment != nil, tt.wantAttachment)
			}
			if tt.wantAttachment {
				if got.attachment.Filename != "booking-b1.ics" {
					t.Errorf("Filename = %v", got.attachment.Filename)
				}
				if !strings.Contains(string(got.attachment.Data), "BEGIN:VEVENT") {
					t.Errorf("attachment is not a calendar: %s", got.attachment.Data)
				}
			}
		})
	}
}

func TestDispatcher_NotifyOnBookingChangeAbsorbsFailures(t *testing.T) {
	ctx, seg := xray.BeginSegment(context.Background(), "TestDispatcher_NotifyOnBookingChangeAbsorbsFailures")
	defer seg.Close(nil)

	tests := []struct {
		name    string
		sender  *MockSender
		booking func() model.Booking
	}{
		{
			name:    "送信エラー",
			sender:  &MockSender{err: errors.New("ses down")},
			booking: testBooking,
		},
		{
			name:    "送信中のpanic",
			sender:  &MockSender{panic: true},
			booking: testBooking,
		},
		{
			name:   "ホールが存在しない",
			sender: &MockSender{},
			booking: func() model.Booking {
				b := testBooking()
				b.SportHallID = "missing"
				return b
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDispatcher(newTestStore().Repositories(), tt.sender, calendar.NewEncoder("", time.UTC))
			// パニックや戻り値なしで完了すること
			d.NotifyOnBookingChange(ctx, tt.booking(), model.EventModification, "admin")
		})
	}
}

func TestDispatcher_NotifyOnBookingChangeDetachedContext(t *testing.T) {
	ctx, seg := xray.BeginSegment(context.Background(), "TestDispatcher_NotifyOnBookingChangeDetachedContext")
	defer seg.Close(nil)

	ctx, cancel := context.WithCancel(ctx)
	cancel()

	sender := &ctxSender{}
	d := NewDispatcher(newTestStore().Repositories(), sender, calendar.NewEncoder("", time.UTC))
	d.NotifyOnBookingChange(ctx, testBooking(), model.EventCreation, "u1")

	if sender.ctxErr != nil {
		t.Errorf("sender context error = %v, want nil", sender.ctxErr)
	}
	if !sender.called {
		t.Error("sender was not called")
	}
}

type ctxSender struct {
	called bool
	ctxErr error
}

func (s *ctxSender) Send(ctx context.Context, to, subject, body string) error {
	s.called = true
	s.ctxErr = ctx.Err()
	return nil
}

func (s *ctxSender) SendWithAttachment(ctx context.Context, to, subject, body string, attachment mail.Attachment) error {
	return s.Send(ctx, to, subject, body)
}

func TestDispatcher_Summarize(t *testing.T) {
	ctx, seg := xray.BeginSegment(context.Background(), "TestDispatcher_Summarize")
	defer seg.Close(nil)

	d := NewDispatcher(newTestStore().Repositories(), &MockSender{}, calendar.NewEncoder("", time.UTC))
	summary, err := d.Summarize(ctx, testBooking(), "admin")
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	want := model.BookingSummary{
		BookingID:      "b1",
		RecipientEmail: "u1@example.com",
		ResourceName:   "Hall A",
		Location:       model.LocationIndoor,
		Date:           time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC),
		StartTime:      "08:00:00",
		EndTime:        "09:00:00",
		Purpose:        "Practice",
		Actor:          "admin",
		Status:         model.BookingStatusPending,
	}
	if summary != want {
		t.Errorf("Summarize() = %+v, want %+v", summary, want)
	}
}
