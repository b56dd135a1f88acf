package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weekdayHours() BusinessHours {
	open := DayHours{Open: "09:00", Close: "22:00", IsOpen: true}
	return BusinessHours{
		Monday:    open,
		Tuesday:   open,
		Wednesday: open,
		Thursday:  open,
		Friday:    open,
		Saturday:  DayHours{Open: "10:00", Close: "20:00", IsOpen: true},
		Sunday:    DayHours{IsOpen: false},
	}
}

func TestForWeekday(t *testing.T) {
	h := weekdayHours()

	assert.Equal(t, "09:00", h.ForWeekday(time.Monday).Open)
	assert.Equal(t, "10:00", h.ForWeekday(time.Saturday).Open)
	assert.False(t, h.ForWeekday(time.Sunday).IsOpen)
}

func TestParseClock(t *testing.T) {
	m, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9*60+30, m)

	m, err = ParseClock("00:00")
	require.NoError(t, err)
	assert.Equal(t, 0, m)

	m, err = ParseClock("24:00")
	require.NoError(t, err)
	assert.Equal(t, 24*60, m)

	for _, bad := range []string{"", "25:00", "12:61", "24:30", "noon"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestBusinessHoursValidate(t *testing.T) {
	h := weekdayHours()
	require.NoError(t, h.Validate())

	h.Monday = DayHours{Open: "22:00", Close: "09:00", IsOpen: true}
	assert.Error(t, h.Validate(), "open after close")

	h = weekdayHours()
	h.Friday = DayHours{Open: "oops", Close: "22:00", IsOpen: true}
	assert.Error(t, h.Validate())

	// Closed days are not validated.
	h = weekdayHours()
	h.Sunday = DayHours{Open: "bad", Close: "worse", IsOpen: false}
	assert.NoError(t, h.Validate())
}

func TestMinutesOfDay(t *testing.T) {
	loc, err := time.LoadLocation("America/Denver")
	require.NoError(t, err)

	ts := time.Date(2026, 3, 2, 14, 45, 0, 0, loc)
	assert.Equal(t, 14*60+45, MinutesOfDay(ts))
}
