package models

import (
	"fmt"
	"time"
)

// DayHours is the opening window for a single weekday. Open and Close use
// the "HH:mm" form. IsOpen=false means the facility is closed that day
// regardless of the window.
type DayHours struct {
	Open   string `yaml:"open" json:"open"`
	Close  string `yaml:"close" json:"close"`
	IsOpen bool   `yaml:"is_open" json:"is_open"`
}

// BusinessHours holds one entry per weekday. The fixed fields replace the
// weekday-name string keys the settings used to be stored under, so a typo
// can no longer silently close a day.
type BusinessHours struct {
	Monday    DayHours `yaml:"monday" json:"monday"`
	Tuesday   DayHours `yaml:"tuesday" json:"tuesday"`
	Wednesday DayHours `yaml:"wednesday" json:"wednesday"`
	Thursday  DayHours `yaml:"thursday" json:"thursday"`
	Friday    DayHours `yaml:"friday" json:"friday"`
	Saturday  DayHours `yaml:"saturday" json:"saturday"`
	Sunday    DayHours `yaml:"sunday" json:"sunday"`
}

// ForWeekday returns the entry for the given weekday.
func (h BusinessHours) ForWeekday(d time.Weekday) DayHours {
	switch d {
	case time.Monday:
		return h.Monday
	case time.Tuesday:
		return h.Tuesday
	case time.Wednesday:
		return h.Wednesday
	case time.Thursday:
		return h.Thursday
	case time.Friday:
		return h.Friday
	case time.Saturday:
		return h.Saturday
	default:
		return h.Sunday
	}
}

// Validate checks every open day parses and opens before it closes.
func (h BusinessHours) Validate() error {
	days := map[string]DayHours{
		"monday": h.Monday, "tuesday": h.Tuesday, "wednesday": h.Wednesday,
		"thursday": h.Thursday, "friday": h.Friday, "saturday": h.Saturday,
		"sunday": h.Sunday,
	}
	for name, d := range days {
		if !d.IsOpen {
			continue
		}
		open, err := ParseClock(d.Open)
		if err != nil {
			return fmt.Errorf("business hours %s open: %w", name, err)
		}
		close, err := ParseClock(d.Close)
		if err != nil {
			return fmt.Errorf("business hours %s close: %w", name, err)
		}
		if open >= close {
			return fmt.Errorf("business hours %s: open %q is not before close %q", name, d.Open, d.Close)
		}
	}
	return nil
}

// ParseClock converts "HH:mm" to minutes since midnight.
func ParseClock(s string) (int, error) {
	var hh, mm int
	if _, err := fmt.Sscanf(s, "%d:%d", &hh, &mm); err != nil {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	if hh < 0 || hh > 24 || mm < 0 || mm > 59 || (hh == 24 && mm != 0) {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	return hh*60 + mm, nil
}

// MinutesOfDay returns the minutes since midnight for t in its location.
func MinutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
