package model

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar day without a time zone.  Rental windows are booked
// and compared at day granularity, so every Date is stored as midnight UTC
// and arithmetic never crosses a DST boundary.
type Date struct {
	t time.Time
}

// NewDate returns the Date for the given year, month and day.  Out-of-range
// values are normalised the same way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t as seen in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Date{t: t}, nil
}

// IsZero reports whether d is the zero Date.  Stores use the zero Date to
// mean "unbounded" on the upper end of a range.
func (d Date) IsZero() bool { return d.t.IsZero() }

// Time returns midnight UTC of d.
func (d Date) Time() time.Time { return d.t }

func (d Date) Weekday() time.Weekday { return d.t.Weekday() }

// AddDays returns d shifted by n calendar days.
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

const secondsPerDay = 24 * 60 * 60

// DaysUntil returns the number of calendar days from d to o; negative when
// o is earlier than d.  Both are midnight UTC, so the Unix difference is an
// exact multiple of a day for any range of years.
func (d Date) DaysUntil(o Date) int {
	return int((o.t.Unix() - d.t.Unix()) / secondsPerDay)
}

func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) After(o Date) bool  { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool  { return d.t.Equal(o.t) }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(dateLayout)
}

func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Date) UnmarshalText(b []byte) error {
	if len(strings.TrimSpace(string(b))) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TimeOfDay is a wall-clock time expressed in minutes after midnight.
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from an hour and minute.
func NewTimeOfDay(hour, minute int) TimeOfDay { return TimeOfDay(hour*60 + minute) }

// ParseTimeOfDay parses an HH:MM string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	return NewTimeOfDay(t.Hour(), t.Minute()), nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute()) }

func (t TimeOfDay) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TimeWindow is the rental period requested by a customer: pickup on
// StartDate at StartTime, return on EndDate at EndTime.
type TimeWindow struct {
	StartDate Date      `json:"start_date"`
	EndDate   Date      `json:"end_date"`
	StartTime TimeOfDay `json:"start_time"`
	EndTime   TimeOfDay `json:"end_time"`
}

// Start returns the pickup instant on a naive UTC timeline.
func (w TimeWindow) Start() time.Time {
	return w.StartDate.Time().Add(time.Duration(w.StartTime) * time.Minute)
}

// End returns the return instant on a naive UTC timeline.
func (w TimeWindow) End() time.Time {
	return w.EndDate.Time().Add(time.Duration(w.EndTime) * time.Minute)
}

// Overlaps reports whether w and o share at least one calendar day.  Times
// of day are deliberately ignored: a return at 16:00 and a pickup at 08:00
// on the same date conflict.
func (w TimeWindow) Overlaps(o TimeWindow) bool {
	return !w.StartDate.After(o.EndDate) && !o.StartDate.After(w.EndDate)
}

// CoversDate reports whether d falls within [StartDate, EndDate].
func (w TimeWindow) CoversDate(d Date) bool {
	return !d.Before(w.StartDate) && !d.After(w.EndDate)
}

func (w TimeWindow) String() string {
	return fmt.Sprintf("%s %s - %s %s", w.StartDate, w.StartTime, w.EndDate, w.EndTime)
}
