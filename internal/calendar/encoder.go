// Package calendar は予約のカレンダー招待(iCalendar)を生成します
package calendar

import (
	"log"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/model"
)

const ContentType = "text/calendar; charset=utf-8; method=REQUEST"

// Encoder は予約の要約をVCALENDARに変換します
type Encoder struct {
	organizer string
	loc       *time.Location
	now       func() time.Time
}

// NewEncoder は新しいEncoderを作成します
// 時間帯の時刻はlocで解釈します
func NewEncoder(organizer string, loc *time.Location) *Encoder {
	if loc == nil {
		loc = time.UTC
	}
	return &Encoder{
		organizer: organizer,
		loc:       loc,
		now:       time.Now,
	}
}

// Filename は添付ファイル名を返します
func Filename(bookingID string) string {
	return "booking-" + bookingID + ".ics"
}

// Encode は招待のペイロードを返します
// 日付、開始時刻、終了時刻、ホール名のいずれかが欠けている場合は空を返します
func (e *Encoder) Encode(summary model.BookingSummary) []byte {
	if summary.Date.IsZero() || summary.StartTime == "" || summary.EndTime == "" || summary.ResourceName == "" {
		return nil
	}

	slot := model.TimeSlot{ID: summary.BookingID, StartTime: summary.StartTime, EndTime: summary.EndTime}
	start, end, err := slot.On(summary.Date, e.loc)
	if err != nil {
		log.Printf("failed to build calendar invite for booking %s: %v", summary.BookingID, err)
		return nil
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodRequest)
	cal.SetProductId("-//booking-stadium//booking//EN")

	event := cal.AddEvent(e.uid(summary.BookingID))
	event.SetDtStampTime(e.now())
	event.SetStartAt(start)
	event.SetEndAt(end)
	event.SetSummary(summaryTitle(summary))
	event.SetLocation(locationText(summary))
	if summary.Purpose != "" {
		event.SetDescription(summary.Purpose)
	}
	if e.organizer != "" {
		event.SetOrganizer("mailto:" + e.organizer)
	}

	return []byte(cal.Serialize())
}

func (e *Encoder) uid(bookingID string) string {
	domain := "booking.local"
	if i := strings.LastIndex(e.organizer, "@"); i >= 0 && i+1 < len(e.organizer) {
		domain = e.organizer[i+1:]
	}
	return "booking-" + bookingID + "@" + domain
}

func summaryTitle(s model.BookingSummary) string {
	if s.Purpose == "" {
		return "Booking at " + s.ResourceName
	}
	return s.Purpose + " @ " + s.ResourceName
}

func locationText(s model.BookingSummary) string {
	if s.Location == "" {
		return s.ResourceName
	}
	return s.ResourceName + " (" + string(s.Location) + ")"
}
