package models

import "time"

type Booking struct {
	ID            int64     `json:"id"`
	MemberID      int64     `json:"member_id"`
	MemberName    string    `json:"member_name"`
	BayID         int64     `json:"bay_id"`
	BayName       string    `json:"bay_name"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Status        string    `json:"status"` // confirmed, checked-in, no-show, completed, canceled
	PaymentMethod string    `json:"payment_method"`
	PaymentStatus string    `json:"payment_status"`
	PaymentAmount float64   `json:"payment_amount"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Version       int64     `json:"version"`
}

// Blocking reports whether the booking occupies its bay for conflict and
// concurrency purposes. Terminal bookings never block.
func (b *Booking) Blocking() bool {
	return IsBlockingStatus(b.Status)
}

func IsBlockingStatus(status string) bool {
	return status == StatusConfirmed || status == StatusCheckedIn
}

// Overlaps applies the half-open interval predicate: [aStart,aEnd) and
// [bStart,bEnd) overlap iff aStart < bEnd && bStart < aEnd. A booking ending
// exactly when another starts does not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// OverlapsWindow reports whether the booking's window overlaps [start, end).
func (b *Booking) OverlapsWindow(start, end time.Time) bool {
	return Overlaps(b.StartTime, b.EndTime, start, end)
}

var allowedTransitions = map[string]map[string]bool{
	StatusConfirmed: {
		StatusCheckedIn: true,
		StatusNoShow:    true,
		StatusCanceled:  true,
	},
	StatusCheckedIn: {
		StatusCompleted: true,
		StatusCanceled:  true,
	},
	StatusCompleted: {},
	StatusCanceled:  {},
	StatusNoShow:    {},
}

// CanTransition reports whether the lifecycle permits from -> to. The
// lifecycle is forward-only; there is no way back to confirmed.
func CanTransition(from, to string) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// IsTerminalStatus reports whether no further transition is possible.
func IsTerminalStatus(status string) bool {
	next, ok := allowedTransitions[status]
	return ok && len(next) == 0
}

// BayStatusAfter returns the bay status implied by a booking entering the
// given status, before looking at the bay's other blocking bookings.
func BayStatusAfter(bookingStatus string) string {
	switch bookingStatus {
	case StatusConfirmed:
		return BayStatusBooked
	case StatusCheckedIn:
		return BayStatusInUse
	default:
		return BayStatusAvailable
	}
}
