package booking

import (
	"time"

	"github.com/Soli-code/RezerwacjeV4-sub000/internal/model"
)

// openingHours is the range of hourly pickup/return slots for a weekday.
// Both bounds are inclusive: a slot exactly at last is valid.
type openingHours struct {
	first, last int
}

var weekHours = map[time.Weekday]openingHours{
	time.Monday:    {8, 16},
	time.Tuesday:   {8, 16},
	time.Wednesday: {8, 16},
	time.Thursday:  {8, 16},
	time.Friday:    {8, 16},
	time.Saturday:  {8, 13},
}

// DefaultMaxRentalDays is the longest rental accepted when Calendar's
// MaxRentalDays is zero.
const DefaultMaxRentalDays = 90

// Calendar holds the shop's opening-hour rules.  It is pure and safe for
// concurrent use.
type Calendar struct {
	// MaxRentalDays caps the billable days of a window; zero selects
	// DefaultMaxRentalDays.
	MaxRentalDays int
}

func (c Calendar) maxDays() int {
	if c.MaxRentalDays > 0 {
		return c.MaxRentalDays
	}
	return DefaultMaxRentalDays
}

// IsValidSlot reports whether a pickup or return may happen at t on d.
// Sundays are closed; slots fall on the full hour.
func (Calendar) IsValidSlot(d model.Date, t model.TimeOfDay) bool {
	h, open := weekHours[d.Weekday()]
	if !open || d.IsZero() {
		return false
	}
	if t.Minute() != 0 {
		return false
	}
	return t.Hour() >= h.first && t.Hour() <= h.last
}

// ValidSlotsFor lists the valid slots on d in ascending order.  The result
// is empty on closed days.
func (Calendar) ValidSlotsFor(d model.Date) []model.TimeOfDay {
	h, open := weekHours[d.Weekday()]
	if !open || d.IsZero() {
		return []model.TimeOfDay{}
	}
	slots := make([]model.TimeOfDay, 0, h.last-h.first+1)
	for hour := h.first; hour <= h.last; hour++ {
		slots = append(slots, model.NewTimeOfDay(hour, 0))
	}
	return slots
}

// ValidateWindow checks both endpoints against the opening hours, that the
// return comes strictly after the pickup, that the rental is not longer
// than the maximum and that the pickup is not in the past.  now is the
// shop's wall clock; a zero now skips the past check.
func (c Calendar) ValidateWindow(w model.TimeWindow, now time.Time) error {
	if w.StartDate.IsZero() || w.EndDate.IsZero() {
		return invalidWindow("start and end dates are required")
	}
	if !now.IsZero() {
		today := model.DateOf(now)
		if w.StartDate.Before(today) {
			return invalidWindow("pickup date %s is in the past", w.StartDate)
		}
		if w.StartDate.Equal(today) && w.StartTime < model.NewTimeOfDay(now.Hour(), now.Minute()) {
			return invalidWindow("pickup %s %s has already passed", w.StartDate, w.StartTime)
		}
	}
	if !c.IsValidSlot(w.StartDate, w.StartTime) {
		return invalidWindow("pickup %s %s (%s) is outside opening hours",
			w.StartDate, w.StartTime, w.StartDate.Weekday())
	}
	if !c.IsValidSlot(w.EndDate, w.EndTime) {
		return invalidWindow("return %s %s (%s) is outside opening hours",
			w.EndDate, w.EndTime, w.EndDate.Weekday())
	}
	if !w.End().After(w.Start()) {
		return invalidWindow("return must be after pickup")
	}
	if days := BillableDays(w); days > c.maxDays() {
		return invalidWindow("rental of %d days exceeds the %d-day maximum", days, c.maxDays())
	}
	return nil
}
