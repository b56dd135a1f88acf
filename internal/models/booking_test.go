package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusConfirmed, StatusCheckedIn, true},
		{StatusConfirmed, StatusNoShow, true},
		{StatusConfirmed, StatusCanceled, true},
		{StatusConfirmed, StatusCompleted, false},
		{StatusCheckedIn, StatusCompleted, true},
		{StatusCheckedIn, StatusCanceled, true},
		{StatusCheckedIn, StatusNoShow, false},
		{StatusCheckedIn, StatusConfirmed, false},
		{StatusCompleted, StatusConfirmed, false},
		{StatusCanceled, StatusCheckedIn, false},
		{StatusNoShow, StatusCompleted, false},
		{"bogus", StatusConfirmed, false},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestIsTerminalStatus(t *testing.T) {
	assert.False(t, IsTerminalStatus(StatusConfirmed))
	assert.False(t, IsTerminalStatus(StatusCheckedIn))
	assert.True(t, IsTerminalStatus(StatusCompleted))
	assert.True(t, IsTerminalStatus(StatusCanceled))
	assert.True(t, IsTerminalStatus(StatusNoShow))
	assert.False(t, IsTerminalStatus("bogus"))
}

func TestOverlapsHalfOpen(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	at := func(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

	// 09:00-10:00 vs 10:00-11:00: back to back, no overlap.
	assert.False(t, Overlaps(at(9, 0), at(10, 0), at(10, 0), at(11, 0)))
	assert.False(t, Overlaps(at(10, 0), at(11, 0), at(9, 0), at(10, 0)))

	// 14:00-15:00 vs 14:30-15:30: overlap.
	assert.True(t, Overlaps(at(14, 0), at(15, 0), at(14, 30), at(15, 30)))

	// Containment both ways.
	assert.True(t, Overlaps(at(9, 0), at(12, 0), at(10, 0), at(11, 0)))
	assert.True(t, Overlaps(at(10, 0), at(11, 0), at(9, 0), at(12, 0)))

	// Disjoint.
	assert.False(t, Overlaps(at(9, 0), at(10, 0), at(11, 0), at(12, 0)))
}

func TestBlocking(t *testing.T) {
	b := &Booking{Status: StatusConfirmed}
	assert.True(t, b.Blocking())
	b.Status = StatusCheckedIn
	assert.True(t, b.Blocking())

	for _, s := range []string{StatusCompleted, StatusCanceled, StatusNoShow} {
		b.Status = s
		assert.False(t, b.Blocking(), s)
	}
}

func TestBayStatusAfter(t *testing.T) {
	assert.Equal(t, BayStatusBooked, BayStatusAfter(StatusConfirmed))
	assert.Equal(t, BayStatusInUse, BayStatusAfter(StatusCheckedIn))
	assert.Equal(t, BayStatusAvailable, BayStatusAfter(StatusCompleted))
	assert.Equal(t, BayStatusAvailable, BayStatusAfter(StatusCanceled))
	assert.Equal(t, BayStatusAvailable, BayStatusAfter(StatusNoShow))
}

func TestMemberActiveAt(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	m := &Member{Status: MemberStatusActive}
	assert.True(t, m.ActiveAt(now), "no expiry means active")

	m.MembershipExpiry = now.Add(24 * time.Hour)
	assert.True(t, m.ActiveAt(now))

	m.MembershipExpiry = now.Add(-time.Minute)
	assert.False(t, m.ActiveAt(now), "expired membership")

	m = &Member{Status: MemberStatusInactive, MembershipExpiry: now.Add(24 * time.Hour)}
	assert.False(t, m.ActiveAt(now), "inactive status wins")
}

func TestDayAvailabilityFreeFor(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	at := func(h int) time.Time { return day.Add(time.Duration(h) * time.Hour) }

	d := &DayAvailability{Busy: []TimeRange{{Start: at(14), End: at(15)}}}
	assert.True(t, d.FreeFor(at(15), at(16)))
	assert.True(t, d.FreeFor(at(12), at(14)))
	assert.False(t, d.FreeFor(at(14), at(15)))
	assert.False(t, d.FreeFor(at(13), at(17)))
}
