package service

import (
	"fmt"
	"time"

	"fairway/internal/models"
)

// ValidationKind classifies why a booking candidate was rejected.
type ValidationKind string

const (
	// Hard rejections. These are never overridable: two bookings cannot
	// share a bay window no matter who asks.
	KindConflict         ValidationKind = "conflict"
	KindConcurrencyLimit ValidationKind = "concurrency-limit"
	KindBayMaintenance   ValidationKind = "bay-maintenance"
	KindMemberInactive   ValidationKind = "member-inactive"
	KindBadWindow        ValidationKind = "bad-window"

	// Soft rejections. Staff may re-submit with the override flag set.
	KindClosedDay    ValidationKind = "closed-day"
	KindOutsideHours ValidationKind = "outside-hours"
)

// ValidationError is a rejection the caller can present to a user: which
// rule fired and, for soft rules, that an override is possible.
type ValidationError struct {
	Kind       ValidationKind
	Reason     string
	Limit      int    // set for concurrency-limit
	MemberName string // set for concurrency-limit and member-inactive
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Overridable reports whether the rejection may be bypassed by an explicit
// staff override. Only business-hours rules are soft.
func (e *ValidationError) Overridable() bool {
	return e.Kind == KindClosedDay || e.Kind == KindOutsideHours
}

func conflictError() *ValidationError {
	return &ValidationError{
		Kind:   KindConflict,
		Reason: "the bay already has a booking overlapping this window",
	}
}

func concurrencyError(memberName string, limit int) *ValidationError {
	return &ValidationError{
		Kind:       KindConcurrencyLimit,
		Reason:     fmt.Sprintf("%s already holds %d active bookings", memberName, limit),
		Limit:      limit,
		MemberName: memberName,
	}
}

func maintenanceError(bayName string) *ValidationError {
	return &ValidationError{
		Kind:   KindBayMaintenance,
		Reason: fmt.Sprintf("bay %s is under maintenance", bayName),
	}
}

func inactiveMemberError(memberName string) *ValidationError {
	return &ValidationError{
		Kind:       KindMemberInactive,
		Reason:     fmt.Sprintf("membership for %s is not active", memberName),
		MemberName: memberName,
	}
}

func badWindowError(reason string) *ValidationError {
	return &ValidationError{Kind: KindBadWindow, Reason: reason}
}

// validateWindow checks the candidate window is well-formed: start strictly
// before end and both on the same facility-local calendar day.
func validateWindow(start, end time.Time, loc *time.Location) *ValidationError {
	if !start.Before(end) {
		return badWindowError("booking must start before it ends")
	}
	ls, le := start.In(loc), end.In(loc)
	sameDay := ls.Year() == le.Year() && ls.YearDay() == le.YearDay()
	// Ending exactly at local midnight still counts as the same day.
	if !sameDay {
		midnight := time.Date(ls.Year(), ls.Month(), ls.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
		if !le.Equal(midnight) {
			return badWindowError("booking must not cross midnight")
		}
	}
	return nil
}

// validateHours checks the window against the weekday's opening hours in the
// facility's timezone. Closed day and out-of-hours are the soft rules the
// override flow exists for.
func validateHours(hours models.BusinessHours, start, end time.Time, loc *time.Location) *ValidationError {
	local := start.In(loc)
	day := hours.ForWeekday(local.Weekday())
	if !day.IsOpen {
		return &ValidationError{
			Kind:   KindClosedDay,
			Reason: fmt.Sprintf("the facility is closed on %s", local.Weekday()),
		}
	}

	open, err := models.ParseClock(day.Open)
	if err != nil {
		return &ValidationError{Kind: KindClosedDay, Reason: "opening hours are not configured for this day"}
	}
	closeMin, err := models.ParseClock(day.Close)
	if err != nil {
		return &ValidationError{Kind: KindClosedDay, Reason: "opening hours are not configured for this day"}
	}

	startMin := models.MinutesOfDay(local)
	// Duration-based end so a window running past local close always fails,
	// even when the end instant lands on the next calendar day.
	endMin := startMin + int(end.Sub(start)/time.Minute)

	if startMin < open || endMin > closeMin {
		return &ValidationError{
			Kind: KindOutsideHours,
			Reason: fmt.Sprintf("booking %s-%s falls outside opening hours %s-%s",
				local.Format("15:04"), start.In(loc).Add(end.Sub(start)).Format("15:04"),
				day.Open, day.Close),
		}
	}
	return nil
}
