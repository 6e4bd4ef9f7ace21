package booking

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Soli-code/RezerwacjeV4-sub000/internal/model"
)

var (
	monday   = model.NewDate(2024, time.June, 10)
	saturday = model.NewDate(2024, time.June, 8)
	sunday   = model.NewDate(2024, time.June, 9)
)

func at(h int) model.TimeOfDay { return model.NewTimeOfDay(h, 0) }

func TestCalendar_IsValidSlot(t *testing.T) {
	cal := Calendar{}
	tests := []struct {
		name string
		date model.Date
		tod  model.TimeOfDay
		want bool
	}{
		{"weekday opening hour", monday, at(8), true},
		{"weekday closing hour", monday, at(16), true},
		{"weekday after closing", monday, at(17), false},
		{"weekday before opening", monday, at(7), false},
		{"weekday half hour", monday, model.NewTimeOfDay(9, 30), false},
		{"saturday opening hour", saturday, at(8), true},
		{"saturday closing hour", saturday, at(13), true},
		{"saturday after closing", saturday, at(14), false},
		{"sunday morning", sunday, at(8), false},
		{"sunday noon", sunday, at(12), false},
		{"zero date", model.Date{}, at(10), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cal.IsValidSlot(tt.date, tt.tod))
		})
	}
}

func TestCalendar_ValidSlotsFor(t *testing.T) {
	cal := Calendar{}

	weekday := cal.ValidSlotsFor(monday)
	require.Len(t, weekday, 9)
	assert.Equal(t, at(8), weekday[0])
	assert.Equal(t, at(16), weekday[len(weekday)-1])

	sat := cal.ValidSlotsFor(saturday)
	require.Len(t, sat, 6)
	assert.Equal(t, at(13), sat[len(sat)-1])

	assert.Empty(t, cal.ValidSlotsFor(sunday))
}

func TestCalendar_ValidateWindow(t *testing.T) {
	cal := Calendar{}
	today := time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)
	mondayAfternoon := time.Date(2024, time.June, 10, 15, 20, 0, 0, time.UTC)
	tests := []struct {
		name    string
		window  model.TimeWindow
		today   time.Time
		wantErr bool
	}{
		{
			name:   "multi day",
			window: model.TimeWindow{StartDate: monday, StartTime: at(9), EndDate: monday.AddDays(2), EndTime: at(15)},
			today:  today,
		},
		{
			name:   "same day later hour",
			window: model.TimeWindow{StartDate: monday, StartTime: at(8), EndDate: monday, EndTime: at(9)},
			today:  today,
		},
		{
			name:    "same day same hour",
			window:  model.TimeWindow{StartDate: monday, StartTime: at(10), EndDate: monday, EndTime: at(10)},
			today:   today,
			wantErr: true,
		},
		{
			name:    "end before start",
			window:  model.TimeWindow{StartDate: monday.AddDays(1), StartTime: at(10), EndDate: monday, EndTime: at(10)},
			today:   today,
			wantErr: true,
		},
		{
			name:    "sunday return",
			window:  model.TimeWindow{StartDate: saturday, StartTime: at(9), EndDate: sunday, EndTime: at(10)},
			today:   today,
			wantErr: true,
		},
		{
			name:    "saturday pickup after closing",
			window:  model.TimeWindow{StartDate: saturday, StartTime: at(14), EndDate: monday, EndTime: at(10)},
			today:   today,
			wantErr: true,
		},
		{
			name:    "pickup in the past",
			window:  model.TimeWindow{StartDate: monday, StartTime: at(9), EndDate: monday, EndTime: at(12)},
			today:   time.Date(2024, time.June, 11, 8, 0, 0, 0, time.UTC),
			wantErr: true,
		},
		{
			name:    "pickup earlier today",
			window:  model.TimeWindow{StartDate: monday, StartTime: at(8), EndDate: monday.AddDays(1), EndTime: at(9)},
			today:   mondayAfternoon,
			wantErr: true,
		},
		{
			name:    "pickup in the current hour already passed",
			window:  model.TimeWindow{StartDate: monday, StartTime: at(15), EndDate: monday, EndTime: at(16)},
			today:   mondayAfternoon,
			wantErr: true,
		},
		{
			name:   "pickup later today",
			window: model.TimeWindow{StartDate: monday, StartTime: at(16), EndDate: monday.AddDays(1), EndTime: at(9)},
			today:  mondayAfternoon,
		},
		{
			name:   "longest allowed rental",
			window: model.TimeWindow{StartDate: monday, StartTime: at(9), EndDate: monday.AddDays(DefaultMaxRentalDays - 1), EndTime: at(9)},
			today:  today,
		},
		{
			name:    "past the maximum",
			window:  model.TimeWindow{StartDate: monday, StartTime: at(9), EndDate: monday.AddDays(DefaultMaxRentalDays + 1), EndTime: at(9)},
			today:   today,
			wantErr: true,
		},
		{
			name:    "five hundred years",
			window:  model.TimeWindow{StartDate: model.NewDate(2024, time.June, 3), StartTime: at(9), EndDate: model.NewDate(2524, time.June, 3), EndTime: at(9)},
			today:   today,
			wantErr: true,
		},
		{
			name:   "zero now skips past check",
			window: model.TimeWindow{StartDate: monday, StartTime: at(9), EndDate: monday, EndTime: at(12)},
		},
		{
			name:    "missing dates",
			window:  model.TimeWindow{StartTime: at(9), EndTime: at(12)},
			today:   today,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cal.ValidateWindow(tt.window, tt.today)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidWindow))
		})
	}
}

func TestCalendar_ConfiguredMaxRentalDays(t *testing.T) {
	cal := Calendar{MaxRentalDays: 3}
	now := time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)

	ok := model.TimeWindow{StartDate: monday, StartTime: at(9), EndDate: monday.AddDays(2), EndTime: at(9)}
	assert.NoError(t, cal.ValidateWindow(ok, now))

	long := model.TimeWindow{StartDate: monday, StartTime: at(9), EndDate: monday.AddDays(3), EndTime: at(9)}
	err := cal.ValidateWindow(long, now)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidWindow))
	assert.Contains(t, err.Error(), "4 days exceeds the 3-day maximum")
}
