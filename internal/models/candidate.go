package models

import "time"

// BookingCandidate is a caller's proposed booking: member + bay + window plus
// payment details. The engine validates it and produces a Booking.
type BookingCandidate struct {
	MemberID      int64     `json:"member_id"`
	BayID         int64     `json:"bay_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	PaymentMethod string    `json:"payment_method"`
	PaymentStatus string    `json:"payment_status"`
	PaymentAmount float64   `json:"payment_amount"`
	Notes         string    `json:"notes"`
}
