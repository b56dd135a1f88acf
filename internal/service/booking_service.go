package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fairway/internal/config"
	"fairway/internal/database"
	"fairway/internal/domain"
	"fairway/internal/events"
	"fairway/internal/metrics"
	"fairway/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BookingService is the booking engine: it validates candidates against
// membership, bay state and business hours, then hands them to the store,
// which re-runs the conflict and concurrency checks transactionally.
type BookingService struct {
	repo         domain.Repository
	cache        domain.AvailabilityCache
	eventBus     domain.EventPublisher
	sheetsWorker domain.SyncWorker
	facility     config.FacilityConfig
	loc          *time.Location
	logger       *zerolog.Logger
}

func NewBookingService(repo domain.Repository, cache domain.AvailabilityCache, eventBus domain.EventPublisher, sheetsWorker domain.SyncWorker, facility config.FacilityConfig, logger *zerolog.Logger) *BookingService {
	if facility.DefaultBookingMinutes <= 0 {
		facility.DefaultBookingMinutes = models.DefaultBookingMinutes
	}
	loc, err := time.LoadLocation(facility.Timezone)
	if err != nil {
		logger.Warn().Str("timezone", facility.Timezone).Msg("unknown facility timezone, using UTC")
		loc = time.UTC
	}
	return &BookingService{
		repo:         repo,
		cache:        cache,
		eventBus:     eventBus,
		sheetsWorker: sheetsWorker,
		facility:     facility,
		loc:          loc,
		logger:       logger,
	}
}

// CreateBooking validates a candidate and stores it as a confirmed booking.
// bypassHours skips only the closed-day and outside-hours rules; conflicts,
// the concurrency cap and maintenance can never be bypassed.
func (s *BookingService) CreateBooking(ctx context.Context, cand models.BookingCandidate, actor models.Actor, bypassHours bool) (*models.Booking, error) {
	member, bay, verr := s.validateCandidate(ctx, &cand, bypassHours)
	if verr != nil {
		metrics.IncBookingRejected(string(verr.Kind))
		return nil, verr
	}

	booking := &models.Booking{
		MemberID:      cand.MemberID,
		MemberName:    member.FullName,
		BayID:         cand.BayID,
		BayName:       bay.Name,
		StartTime:     cand.StartTime,
		EndTime:       cand.EndTime,
		PaymentMethod: cand.PaymentMethod,
		PaymentStatus: cand.PaymentStatus,
		PaymentAmount: cand.PaymentAmount,
		Notes:         cand.Notes,
	}
	if booking.PaymentStatus == "" {
		booking.PaymentStatus = models.PaymentStatusUnpaid
	}

	audit := s.newAudit(models.AuditActionCreate, actor, models.ObjectTypeBooking, 0, bay.Name)
	audit.NewValue = models.EncodeDiff(map[string]any{
		"member_id":  booking.MemberID,
		"bay_id":     booking.BayID,
		"start_time": booking.StartTime,
		"end_time":   booking.EndTime,
		"status":     models.StatusConfirmed,
	})

	if err := s.repo.CreateBooking(ctx, booking, s.facility.MaxConcurrentBookings, audit); err != nil {
		return nil, s.mapStoreError(err, member, bay)
	}

	metrics.IncBookingCreated()
	s.publishEvent(events.EventBookingCreated, booking, actor)
	s.enqueueUpsert(ctx, booking)
	s.enqueueAudit(ctx, audit)
	s.invalidateDay(ctx, booking.BayID, booking.StartTime)

	s.logger.Info().Int64("booking_id", booking.ID).Int64("member_id", booking.MemberID).
		Int64("bay_id", booking.BayID).Msg("booking created")
	return booking, nil
}

// UpdateBooking re-validates an edited booking as if it were new and applies
// it with an optimistic version check. Only confirmed and checked-in
// bookings can be edited.
func (s *BookingService) UpdateBooking(ctx context.Context, id, version int64, cand models.BookingCandidate, actor models.Actor, bypassHours bool) (*models.Booking, error) {
	existing, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if version == 0 {
		version = existing.Version
	}

	member, bay, verr := s.validateCandidate(ctx, &cand, bypassHours)
	if verr != nil {
		metrics.IncBookingRejected(string(verr.Kind))
		return nil, verr
	}

	updated := &models.Booking{
		ID:            id,
		MemberID:      cand.MemberID,
		MemberName:    member.FullName,
		BayID:         cand.BayID,
		BayName:       bay.Name,
		StartTime:     cand.StartTime,
		EndTime:       cand.EndTime,
		PaymentMethod: cand.PaymentMethod,
		PaymentStatus: existing.PaymentStatus,
		PaymentAmount: cand.PaymentAmount,
		Notes:         cand.Notes,
	}

	audit := s.newAudit(models.AuditActionUpdate, actor, models.ObjectTypeBooking, id, bay.Name)
	audit.PreviousValue = models.EncodeDiff(map[string]any{
		"bay_id":     existing.BayID,
		"start_time": existing.StartTime,
		"end_time":   existing.EndTime,
	})
	audit.NewValue = models.EncodeDiff(map[string]any{
		"bay_id":     updated.BayID,
		"start_time": updated.StartTime,
		"end_time":   updated.EndTime,
	})

	if err := s.repo.UpdateBooking(ctx, updated, version, s.facility.MaxConcurrentBookings, audit); err != nil {
		return nil, s.mapStoreError(err, member, bay)
	}

	s.publishEvent(events.EventBookingUpdated, updated, actor)
	s.enqueueUpsert(ctx, updated)
	s.enqueueAudit(ctx, audit)
	s.invalidateDay(ctx, existing.BayID, existing.StartTime)
	s.invalidateDay(ctx, updated.BayID, updated.StartTime)
	return updated, nil
}

func (s *BookingService) CancelBooking(ctx context.Context, id, version int64, actor models.Actor) error {
	return s.transition(ctx, id, version, models.StatusCanceled, true, events.EventBookingCanceled, actor)
}

func (s *BookingService) CheckIn(ctx context.Context, id, version int64, actor models.Actor) error {
	return s.transition(ctx, id, version, models.StatusCheckedIn, false, events.EventBookingCheckedIn, actor)
}

func (s *BookingService) MarkNoShow(ctx context.Context, id, version int64, actor models.Actor) error {
	return s.transition(ctx, id, version, models.StatusNoShow, false, events.EventBookingNoShow, actor)
}

func (s *BookingService) CompleteBooking(ctx context.Context, id, version int64, actor models.Actor) error {
	return s.transition(ctx, id, version, models.StatusCompleted, false, events.EventBookingCompleted, actor)
}

func (s *BookingService) transition(ctx context.Context, id, version int64, status string, refund bool, eventType string, actor models.Actor) error {
	existing, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if version == 0 {
		version = existing.Version
	}

	audit := s.newAudit(models.AuditActionUpdate, actor, models.ObjectTypeBooking, id, existing.BayName)
	audit.PreviousValue = models.EncodeDiff(map[string]any{"status": existing.Status})
	audit.NewValue = models.EncodeDiff(map[string]any{"status": status})

	if err := s.repo.TransitionBookingStatus(ctx, id, version, status, refund, audit); err != nil {
		return err
	}

	existing.Status = status
	s.publishEvent(eventType, existing, actor)
	s.enqueueStatus(ctx, id, status)
	s.enqueueAudit(ctx, audit)
	s.invalidateDay(ctx, existing.BayID, existing.StartTime)

	s.logger.Info().Int64("booking_id", id).Str("status", status).Msg("booking transitioned")
	return nil
}

// ExtendBooking pushes a checked-in session's end out by the given number of
// minutes, re-running the conflict check over the extended window.
func (s *BookingService) ExtendBooking(ctx context.Context, id, version int64, minutes int, actor models.Actor) (*models.Booking, error) {
	if minutes <= 0 {
		return nil, badWindowError("extension must be a positive number of minutes")
	}

	existing, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if version == 0 {
		version = existing.Version
	}
	newEnd := existing.EndTime.Add(time.Duration(minutes) * time.Minute)

	audit := s.newAudit(models.AuditActionUpdate, actor, models.ObjectTypeBooking, id, existing.BayName)
	audit.PreviousValue = models.EncodeDiff(map[string]any{"end_time": existing.EndTime})
	audit.NewValue = models.EncodeDiff(map[string]any{"end_time": newEnd})

	if err := s.repo.ExtendBooking(ctx, id, version, newEnd, audit); err != nil {
		if errors.Is(err, database.ErrBayConflict) {
			metrics.IncBookingRejected(string(KindConflict))
			return nil, conflictError()
		}
		return nil, err
	}

	existing.EndTime = newEnd
	existing.Version = version + 1
	s.publishEvent(events.EventBookingExtended, existing, actor)
	s.enqueueUpsert(ctx, existing)
	s.enqueueAudit(ctx, audit)
	s.invalidateDay(ctx, existing.BayID, existing.StartTime)
	return existing, nil
}

// SweepExpiredCheckIns completes every checked-in booking whose end time has
// passed. Each booking is closed independently so one failure cannot stall
// the sweep. Returns how many bookings were completed.
func (s *BookingService) SweepExpiredCheckIns(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.repo.ExpiredCheckIns(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list expired check-ins: %w", err)
	}

	completed := 0
	for _, booking := range expired {
		audit := s.newAudit(models.AuditActionUpdate, models.SystemActor, models.ObjectTypeBooking, booking.ID, booking.BayName)
		audit.PreviousValue = models.EncodeDiff(map[string]any{"status": booking.Status})
		audit.NewValue = models.EncodeDiff(map[string]any{"status": models.StatusCompleted})

		err := s.repo.TransitionBookingStatus(ctx, booking.ID, booking.Version, models.StatusCompleted, false, audit)
		if errors.Is(err, database.ErrVersionConflict) || errors.Is(err, database.ErrInvalidTransition) {
			// Someone beat the sweep to it; the next pass sees fresh state.
			continue
		}
		if err != nil {
			s.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("sweep failed for booking")
			continue
		}

		completed++
		booking.Status = models.StatusCompleted
		s.publishEvent(events.EventBookingCompleted, booking, models.SystemActor)
		s.enqueueStatus(ctx, booking.ID, models.StatusCompleted)
		s.enqueueAudit(ctx, audit)
		s.invalidateDay(ctx, booking.BayID, booking.StartTime)
	}

	if completed > 0 {
		metrics.AddSweepCompleted(completed)
		s.logger.Info().Int("completed", completed).Msg("expiry sweep completed bookings")
	}
	return completed, nil
}

func (s *BookingService) AvailableBays(ctx context.Context, start, end time.Time) ([]*models.Bay, error) {
	return s.repo.AvailableBays(ctx, start, end)
}

// DayAvailability returns the busy windows for one bay on one facility-local
// day, served from the cache when possible. The requested day's calendar date
// names a local day: the window runs from local midnight to the next local
// midnight, and the snapshot is cached under that same date so mutations keyed
// by a booking's local start date invalidate it.
func (s *BookingService) DayAvailability(ctx context.Context, bayID int64, day time.Time) (*models.DayAvailability, error) {
	y, m, d := day.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, s.loc)
	dayEnd := time.Date(y, m, d+1, 0, 0, 0, 0, s.loc)

	date := dayStart.Format("2006-01-02")
	if s.cache != nil {
		if snapshot, err := s.cache.GetDay(ctx, bayID, date); err == nil && snapshot != nil {
			return snapshot, nil
		}
	}

	bay, err := s.repo.GetBayByID(ctx, bayID)
	if err != nil {
		return nil, err
	}
	bookings, err := s.repo.GetBayBookingsForDay(ctx, bayID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	snapshot := &models.DayAvailability{BayID: bayID, BayName: bay.Name, Date: date}
	for _, b := range bookings {
		snapshot.Busy = append(snapshot.Busy, models.TimeRange{Start: b.StartTime, End: b.EndTime})
	}

	if s.cache != nil {
		if err := s.cache.SetDay(ctx, snapshot); err != nil {
			s.logger.Warn().Err(err).Int64("bay_id", bayID).Msg("availability cache write failed")
		}
	}
	return snapshot, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

func (s *BookingService) GetBookingsByRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	return s.repo.GetBookingsByRange(ctx, start, end)
}

func (s *BookingService) GetMemberBookings(ctx context.Context, memberID int64) ([]*models.Booking, error) {
	return s.repo.GetMemberBookings(ctx, memberID)
}

// GetDailyBookings groups bookings in [start, end) by facility-local date.
func (s *BookingService) GetDailyBookings(ctx context.Context, start, end time.Time) (map[string][]*models.Booking, error) {
	bookings, err := s.repo.GetBookingsByRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	daily := make(map[string][]*models.Booking)
	for _, b := range bookings {
		key := s.dateKey(b.StartTime)
		daily[key] = append(daily[key], b)
	}
	return daily, nil
}

// validateCandidate runs the engine-side pre-checks: member active, bay
// known and serviceable, window well-formed and (unless bypassed) inside
// business hours. The store repeats the race-prone checks transactionally.
func (s *BookingService) validateCandidate(ctx context.Context, cand *models.BookingCandidate, bypassHours bool) (*models.Member, *models.Bay, *ValidationError) {
	member, err := s.repo.GetMember(ctx, cand.MemberID)
	if err != nil {
		return nil, nil, &ValidationError{Kind: KindMemberInactive, Reason: "member is not registered"}
	}
	if !member.ActiveAt(time.Now()) {
		return nil, nil, inactiveMemberError(member.FullName)
	}

	bay, err := s.repo.GetBayByID(ctx, cand.BayID)
	if err != nil {
		return nil, nil, badWindowError("unknown bay")
	}
	if bay.InMaintenance() {
		return nil, nil, maintenanceError(bay.Name)
	}

	if cand.EndTime.IsZero() {
		cand.EndTime = cand.StartTime.Add(time.Duration(s.facility.DefaultBookingMinutes) * time.Minute)
	}
	if verr := validateWindow(cand.StartTime, cand.EndTime, s.loc); verr != nil {
		return nil, nil, verr
	}
	if !bypassHours {
		if verr := validateHours(s.facility.BusinessHours, cand.StartTime, cand.EndTime, s.loc); verr != nil {
			return nil, nil, verr
		}
	}
	return member, bay, nil
}

// mapStoreError converts store sentinels from the transactional re-checks
// into caller-facing validation errors.
func (s *BookingService) mapStoreError(err error, member *models.Member, bay *models.Bay) error {
	switch {
	case errors.Is(err, database.ErrBayConflict):
		metrics.IncBookingRejected(string(KindConflict))
		return conflictError()
	case errors.Is(err, database.ErrMemberLimit):
		metrics.IncBookingRejected(string(KindConcurrencyLimit))
		return concurrencyError(member.FullName, s.facility.MaxConcurrentBookings)
	case errors.Is(err, database.ErrBayMaintenance):
		metrics.IncBookingRejected(string(KindBayMaintenance))
		return maintenanceError(bay.Name)
	default:
		return err
	}
}

func (s *BookingService) newAudit(action string, actor models.Actor, objectType string, objectID int64, objectName string) *models.AuditEntry {
	return &models.AuditEntry{
		EntryID:    uuid.NewString(),
		Action:     action,
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		Timestamp:  time.Now(),
		ObjectType: objectType,
		ObjectID:   objectID,
		ObjectName: objectName,
	}
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, actor models.Actor) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:  booking.ID,
		MemberID:   booking.MemberID,
		MemberName: booking.MemberName,
		BayID:      booking.BayID,
		BayName:    booking.BayName,
		Status:     booking.Status,
		StartTime:  booking.StartTime,
		EndTime:    booking.EndTime,
		ActorID:    actor.ID,
		ActorName:  actor.Name,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}

func (s *BookingService) enqueueUpsert(ctx context.Context, booking *models.Booking) {
	if s.sheetsWorker == nil {
		return
	}
	if err := s.sheetsWorker.EnqueueBookingUpsert(ctx, booking); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("sheets enqueue error")
	}
}

func (s *BookingService) enqueueStatus(ctx context.Context, bookingID int64, status string) {
	if s.sheetsWorker == nil {
		return
	}
	if err := s.sheetsWorker.EnqueueStatusUpdate(ctx, bookingID, status); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", bookingID).Msg("sheets enqueue error")
	}
}

func (s *BookingService) enqueueAudit(ctx context.Context, audit *models.AuditEntry) {
	if s.sheetsWorker == nil {
		return
	}
	if err := s.sheetsWorker.EnqueueAuditEntry(ctx, audit); err != nil {
		s.logger.Error().Err(err).Str("entry_id", audit.EntryID).Msg("sheets enqueue error")
	}
}

func (s *BookingService) invalidateDay(ctx context.Context, bayID int64, t time.Time) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateDay(ctx, bayID, s.dateKey(t)); err != nil {
		s.logger.Warn().Err(err).Int64("bay_id", bayID).Msg("availability cache invalidation failed")
	}
}

func (s *BookingService) dateKey(t time.Time) string {
	return t.In(s.loc).Format("2006-01-02")
}
