package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nyCalendar(t *testing.T, holidays ...string) *Calendar {
	t.Helper()
	c, err := NewCalendar("America/New_York", "09:30", "16:00", holidays...)
	require.NoError(t, err)
	return c
}

func TestCalendarSessionHours(t *testing.T) {
	c := nyCalendar(t)
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	tests := []struct {
		name string
		at   time.Time
		open bool
	}{
		{"weekday mid-session", time.Date(2026, 3, 2, 12, 0, 0, 0, ny), true}, // Monday
		{"at the open", time.Date(2026, 3, 2, 9, 30, 0, 0, ny), true},
		{"just before the open", time.Date(2026, 3, 2, 9, 29, 59, 0, ny), false},
		{"at the close", time.Date(2026, 3, 2, 16, 0, 0, 0, ny), false},
		{"evening", time.Date(2026, 3, 2, 20, 0, 0, 0, ny), false},
		{"saturday", time.Date(2026, 3, 7, 12, 0, 0, 0, ny), false},
		{"sunday", time.Date(2026, 3, 8, 12, 0, 0, 0, ny), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.open, c.IsOpen(tt.at))
		})
	}
}

func TestCalendarConvertsTimezone(t *testing.T) {
	c := nyCalendar(t)

	// 15:00 UTC on a Monday is 10:00 in New York (EST): open.
	assert.True(t, c.IsOpen(time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)))
	// 02:00 UTC is 21:00 the previous evening in New York: closed.
	assert.False(t, c.IsOpen(time.Date(2026, 3, 3, 2, 0, 0, 0, time.UTC)))
}

func TestCalendarHolidays(t *testing.T) {
	c := nyCalendar(t, "2026-07-03")
	ny, _ := time.LoadLocation("America/New_York")

	assert.False(t, c.IsOpen(time.Date(2026, 7, 3, 12, 0, 0, 0, ny))) // Friday, observed holiday
	assert.True(t, c.IsOpen(time.Date(2026, 7, 2, 12, 0, 0, 0, ny)))
}

func TestCalendarValidation(t *testing.T) {
	_, err := NewCalendar("Nowhere/Invalid", "09:30", "16:00")
	assert.Error(t, err)

	_, err = NewCalendar("UTC", "9am", "16:00")
	assert.Error(t, err)

	_, err = NewCalendar("UTC", "16:00", "09:30")
	assert.Error(t, err)

	_, err = NewCalendar("UTC", "09:30", "16:00", "July 4")
	assert.Error(t, err)
}
