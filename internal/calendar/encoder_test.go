package calendar

import (
	"strings"
	"testing"
	"time"

	"github.com/xiinthanh/booking-stadium-backend-sub000/internal/model"
)

func testEncoder(t *testing.T) *Encoder {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}
	e := NewEncoder("booking@stadium.example", loc)
	e.now = func() time.Time { return time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC) }
	return e
}

func validSummary() model.BookingSummary {
	return model.BookingSummary{
		BookingID:    "b-1",
		ResourceName: "Hall A",
		Location:     model.LocationIndoor,
		Date:         time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC),
		StartTime:    "08:00:00",
		EndTime:      "09:30:00",
		Purpose:      "Practice",
	}
}

func TestEncoder_Encode(t *testing.T) {
	payload := string(testEncoder(t).Encode(validSummary()))

	wants := []string{
		"BEGIN:VCALENDAR",
		"METHOD:REQUEST",
		"BEGIN:VEVENT",
		"UID:booking-b-1@stadium.example",
		// 08:00 (UTC+7) は 01:00Z
		"DTSTART:20261015T010000Z",
		"DTEND:20261015T023000Z",
		"LOCATION:Hall A (indoor)",
		"SUMMARY:Practice @ Hall A",
		"ORGANIZER:mailto:booking@stadium.example",
		"END:VCALENDAR",
	}
	for _, want := range wants {
		if !strings.Contains(payload, want) {
			t.Errorf("payload does not contain %q:\n%s", want, payload)
		}
	}
}

func TestEncoder_EncodeEmpty(t *testing.T) {
	tests := []struct {
		name   string
		modify func(s *model.BookingSummary)
	}{
		{
			name:   "日付なし",
			modify: func(s *model.BookingSummary) { s.Date = time.Time{} },
		},
		{
			name:   "開始時刻なし",
			modify: func(s *model.BookingSummary) { s.StartTime = "" },
		},
		{
			name:   "終了時刻なし",
			modify: func(s *model.BookingSummary) { s.EndTime = "" },
		},
		{
			name:   "ホール名なし",
			modify: func(s *model.BookingSummary) { s.ResourceName = "" },
		},
		{
			name:   "時刻の形式が不正",
			modify: func(s *model.BookingSummary) { s.StartTime = "8am" },
		},
		{
			name:   "開始が終了より後",
			modify: func(s *model.BookingSummary) { s.StartTime = "10:00:00" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSummary()
			tt.modify(&s)
			if got := testEncoder(t).Encode(s); len(got) != 0 {
				t.Errorf("Encode() = %q, want empty", got)
			}
		})
	}
}

func TestFilename(t *testing.T) {
	if got := Filename("abc"); got != "booking-abc.ics" {
		t.Errorf("Filename() = %v, want booking-abc.ics", got)
	}
}
