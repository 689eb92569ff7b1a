package model

import (
	"fmt"
	"time"
)

// Location はホールの屋内外の区分です
type Location string

const (
	LocationIndoor  Location = "indoor"
	LocationOutdoor Location = "outdoor"
)

func (l Location) Valid() bool {
	return l == LocationIndoor || l == LocationOutdoor
}

type SportHall struct {
	ID       string   `db:"id" json:"id"`
	SportID  string   `db:"sport_id" json:"sport_id"`
	Name     string   `db:"name" json:"name"`
	Location Location `db:"location" json:"location"`
	Capacity int      `db:"capacity" json:"capacity"`
}

const ClockLayout = "15:04:05"

// TimeSlot は1日の中の固定の時間帯です
// StartTime/EndTimeはHH:MM:SS形式で保持します
type TimeSlot struct {
	ID              string `db:"id" json:"id"`
	StartTime       string `db:"start_time" json:"start_time"`
	EndTime         string `db:"end_time" json:"end_time"`
	DurationMinutes int    `db:"duration_minutes" json:"duration_minutes"`
	IsActive        bool   `db:"is_active" json:"is_active"`
}

// On は指定日の時間帯の開始と終了の時刻をlocで組み立てます
func (s TimeSlot) On(date time.Time, loc *time.Location) (time.Time, time.Time, error) {
	start, err := clockOn(date, s.StartTime, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start_time %q: %w", s.StartTime, err)
	}
	end, err := clockOn(date, s.EndTime, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end_time %q: %w", s.EndTime, err)
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("time slot %s starts at or after its end", s.ID)
	}
	return start, end, nil
}

func clockOn(date time.Time, clock string, loc *time.Location) (time.Time, error) {
	c, err := time.Parse(ClockLayout, clock)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, c.Hour(), c.Minute(), c.Second(), 0, loc), nil
}

type Sport struct {
	ID          string `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
	Icon        string `db:"icon" json:"icon"`
	IsActive    bool   `db:"is_active" json:"is_active"`
}
