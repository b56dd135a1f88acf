package database

import "errors"

var (
	ErrBookingNotFound   = errors.New("booking not found")
	ErrBayNotFound       = errors.New("bay not found")
	ErrMemberNotFound    = errors.New("member not found")
	ErrBayConflict       = errors.New("bay already has a blocking booking for this window")
	ErrMemberLimit       = errors.New("member concurrent booking limit reached")
	ErrBayMaintenance    = errors.New("bay is under maintenance")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrVersionConflict   = errors.New("booking was modified concurrently")
)
