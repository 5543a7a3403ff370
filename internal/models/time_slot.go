package models

import (
	"fmt"
	"strings"
	"time"
)

// TimeSlot is a fixed weekly interval. Break slots are never bookable.
type TimeSlot struct {
	ID        int64  `db:"slot_id" json:"slotId"`
	DayOfWeek string `db:"day_of_week" json:"dayOfWeek"`
	StartTime Clock  `db:"start_time" json:"startTime"`
	EndTime   Clock  `db:"end_time" json:"endTime"`
	IsLab     bool   `db:"is_lab" json:"isLab"`
	IsBreak   bool   `db:"is_break" json:"isBreak"`
}

var dayNameIndex = map[string]int{
	"MONDAY":    1,
	"TUESDAY":   2,
	"WEDNESDAY": 3,
	"THURSDAY":  4,
	"FRIDAY":    5,
	"SATURDAY":  6,
	"SUNDAY":    7,
}

// DayIndex returns 1 (Monday) through 7 (Sunday), or 0 for an unknown day.
func (s TimeSlot) DayIndex() int {
	return dayNameIndex[strings.ToUpper(strings.TrimSpace(s.DayOfWeek))]
}

// StartMinutes returns the start time as minutes after midnight.
func (s TimeSlot) StartMinutes() (int, error) {
	return ParseClock(string(s.StartTime))
}

// EndMinutes returns the end time as minutes after midnight.
func (s TimeSlot) EndMinutes() (int, error) {
	return ParseClock(string(s.EndTime))
}

var clockLayouts = []string{"15:04:05", "15:04"}

// ParseClock converts "HH:MM" or "HH:MM:SS" into minutes after midnight.
func ParseClock(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Hour()*60 + t.Minute(), nil
		}
	}
	return 0, fmt.Errorf("invalid clock value %q", raw)
}

// Clock is a time of day as "HH:MM:SS" or "HH:MM".
type Clock string

// Scan implements sql.Scanner. lib/pq returns TIME columns as time.Time on
// 0000-01-01; only the wall clock is kept.
func (c *Clock) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*c = ""
	case time.Time:
		*c = Clock(v.Format("15:04:05"))
	case []byte:
		*c = Clock(strings.TrimSpace(string(v)))
	case string:
		*c = Clock(strings.TrimSpace(v))
	default:
		return fmt.Errorf("unsupported clock value of type %T", src)
	}
	return nil
}
