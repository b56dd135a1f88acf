package service

import (
	"context"
	"testing"
	"time"

	"fairway/internal/config"
	"fairway/internal/database"
	"fairway/internal/events"
	"fairway/internal/models"
	"fairway/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSyncWorker struct {
	mock.Mock
}

func (m *mockSyncWorker) EnqueueBookingUpsert(ctx context.Context, booking *models.Booking) error {
	return m.Called(ctx, booking).Error(0)
}

func (m *mockSyncWorker) EnqueueStatusUpdate(ctx context.Context, bookingID int64, status string) error {
	return m.Called(ctx, bookingID, status).Error(0)
}

func (m *mockSyncWorker) EnqueueAuditEntry(ctx context.Context, entry *models.AuditEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func openDay(open, close string) models.DayHours {
	return models.DayHours{Open: open, Close: close, IsOpen: true}
}

func testFacility(maxConcurrent int) config.FacilityConfig {
	day := openDay("09:00", "21:00")
	return config.FacilityConfig{
		Name:                  "Test Facility",
		Timezone:              "UTC",
		DefaultBookingMinutes: 60,
		MaxConcurrentBookings: maxConcurrent,
		BusinessHours: models.BusinessHours{
			Monday:    day,
			Tuesday:   day,
			Wednesday: day,
			Thursday:  day,
			Friday:    day,
			Saturday:  day,
			// Sunday closed
		},
	}
}

type testEnv struct {
	svc    *BookingService
	db     *database.DB
	worker *mockSyncWorker
	bus    *events.EventBus
	seen   *[]string
}

func newTestEnv(t *testing.T, facility config.FacilityConfig) *testEnv {
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	bus := events.NewEventBus()
	var seen []string
	record := func(event *events.Event) error {
		seen = append(seen, event.Type)
		return nil
	}
	for _, typ := range []string{
		events.EventBookingCreated, events.EventBookingUpdated, events.EventBookingCheckedIn,
		events.EventBookingNoShow, events.EventBookingCompleted, events.EventBookingCanceled,
		events.EventBookingExtended,
	} {
		bus.Subscribe(typ, record)
	}

	worker := &mockSyncWorker{}
	worker.On("EnqueueBookingUpsert", mock.Anything, mock.Anything).Return(nil)
	worker.On("EnqueueStatusUpdate", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	worker.On("EnqueueAuditEntry", mock.Anything, mock.Anything).Return(nil)

	svc := NewBookingService(db, nil, bus, worker, facility, &logger)
	return &testEnv{svc: svc, db: db, worker: worker, bus: bus, seen: &seen}
}

func (e *testEnv) seedBay(t *testing.T, id int64, name string) {
	bay := &models.Bay{ID: id, Name: name, SortOrder: id, IsActive: true}
	require.NoError(t, e.db.UpsertBay(context.Background(), bay))
}

func (e *testEnv) seedMember(t *testing.T, id int64, name string) {
	member := &models.Member{ID: id, FullName: name, Status: models.MemberStatusActive}
	require.NoError(t, e.db.UpsertMember(context.Background(), member))
}

// Monday 2026-03-02.
var (
	monTen  = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	monElev = time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)
	staff   = models.Actor{ID: 5, Name: "front desk"}
)

func candidate(memberID, bayID int64, start, end time.Time) models.BookingCandidate {
	return models.BookingCandidate{
		MemberID:      memberID,
		BayID:         bayID,
		StartTime:     start,
		EndTime:       end,
		PaymentMethod: models.PaymentMethodCard,
		PaymentAmount: 45,
	}
}

func TestCreateBookingHappyPath(t *testing.T) {
	env := newTestEnv(t, testFacility(0))
	env.seedBay(t, 1, "Bay 1")
	env.seedMember(t, 100, "Alice")
	ctx := context.Background()

	booking, err := env.svc.CreateBooking(ctx, candidate(100, 1, monTen, monElev), staff, false)
	require.NoError(t, err)
	require.NotZero(t, booking.ID)
	assert.Equal(t, models.StatusConfirmed, booking.Status)
	assert.Equal(t, "Alice", booking.MemberName)
	assert.Equal(t, "Bay 1", booking.BayName)
	assert.Equal(t, models.PaymentStatusUnpaid, booking.PaymentStatus)

	assert.Contains(t, *env.seen, events.EventBookingCreated)
	env.worker.AssertCalled(t, "EnqueueBookingUpsert", mock.Anything, mock.Anything)

	// Audit entry carries the creating actor
	entries, err := env.db.ListAuditEntries(ctx, models.ObjectTypeBooking, booking.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, staff.ID, entries[0].ActorID)
	assert.Equal(t, models.AuditActionCreate, entries[0].Action)
}

func TestCreateBookingDefaultDuration(t *testing.T) {
	env := newTestEnv(t, testFacility(0))
	env.seedBay(t, 1, "Bay 1")
	env.seedMember(t, 100, "Alice")

	cand := candidate(100, 1, monTen, time.Time{})
	booking, err := env.svc.CreateBooking(context.Background(), cand, staff, false)
	require.NoError(t, err)
	assert.True(t, booking.EndTime.Equal(monTen.Add(60*time.Minute)))
}

func TestCreateBookingOutsideHours(t *testing.T) {
	env := newTestEnv(t, testFacility(0))
	env.seedBay(t, 1, "Bay 1")
	env.seedMember(t, 100, "Alice")
	ctx := context.Background()

	late := time.Date(2026, 3, 2, 20, 30, 0, 0, time.UTC)
	_, err := env.svc.CreateBooking(ctx, candidate(100, 1, late, late.Add(time.Hour)), staff, false)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindOutsideHours, verr.Kind)
	assert.True(t, verr.Overridable())

	// The override flow: same candidate with the bypass flag set
	booking, err := env.svc.CreateBooking(ctx, candidate(100, 1, late, late.Add(time.Hour)), staff, true)
	require.NoError(t, err)
	assert.NotZero(t, booking.ID)
}

func TestCreateBookingClosedDay(t *testing.T) {
	env := newTestEnv(t, testFacility(0))
	env.seedBay(t, 1, "Bay 1")
	env.seedMember(t, 100, "Alice")
	ctx := context.Background()

	sunday := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	_, err := env.svc.CreateBooking(ctx, candidate(100, 1, sunday, sunday.Add(time.Hour)), staff, false)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindClosedDay, verr.Kind)
	assert.True(t, verr.Overridable())

	_, err = env.svc.CreateBooking(ctx, candidate(100, 1, sunday, sunday.Add(time.Hour)), staff, true)
	assert.NoError(t, err)
}

func TestBypassNeverSkipsConflict(t *testing.T) {
	env := newTestEnv(t, testFacility(0))
	env.seedBay(t, 1, "Bay 1")
	env.seedMember(t, 100, "Alice")
	env.seedMember(t, 200, "Bob")
	ctx := context.Background()

	_, err := env.svc.CreateBooking(ctx, candidate(100, 1, monTen, monElev), staff, false)
	require.NoError(t, err)

	// bypass only covers the hours rules, never the conflict check
	_, err = env.svc.CreateBooking(ctx, candidate(200, 1, monTen, monElev), staff, true)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindConflict, verr.Kind)
	assert.False(t, verr.Overridable())
}

func TestCreateBookingConcurrencyLimit(t *testing.T) {
	env := newTestEnv(t, testFacility(1))
	env.seedBay(t, 1, "Bay 1")
	env.seedBay(t, 2, "Bay 2")
	env.seedMember(t, 100, "Alice")
	ctx := context.Background()

	_, err := env.svc.CreateBooking(ctx, candidate(100, 1, monTen, monElev), staff, false)
	require.NoError(t, err)

	// The cap holds even with the hours bypass set
	_, err = env.svc.CreateBooking(ctx, candidate(100, 2, monTen, monElev), staff, true)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindConcurrencyLimit, verr.Kind)
	assert.False(t, verr.Overridable())
	assert.Equal(t, 1, verr.Limit)
	assert.Equal(t, "Alice", verr.MemberName)
}

func TestCreateBookingInactiveMember(t *testing.T) {
	env := newTestEnv(t, testFacility(0))
	env.seedBay(t, 1, "Bay 1")
	ctx := context.Background()

	expired := &models.Member{
		ID:               300,
		FullName:         "Carol",
		Status:           models.MemberStatusActive,
		MembershipExpiry: time.Now().AddDate(0, -1, 0),
	}
	require.NoError(t, env.db.UpsertMember(ctx, expired))

	_, err := env.svc.CreateBooking(ctx, candidate(300, 1, monTen, monElev), staff, false)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindMemberInactive, verr.Kind)
	assert.False(t, verr.Overridable())
}

func TestCreateBookingMaintenanceBay(t *testing.T) {
	env := newTestEnv(t, testFacility(0))
	env.seedBay(t, 1, "Bay 1")
	env.seedMember(t, 100, "Alice")
	ctx := context.Background()

	require.NoError(t, env.db.SetBayMaintenance(ctx, 1, true, nil))

	_, err := env.svc.CreateBooking(ctx, candidate(100, 1, monTen, monElev), staff, true)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindBayMaintenance, verr.Kind)
	assert.False(t, verr.Overridable())
}

func TestCreateBookingBadWindow(t *testing.T) {
	env := newTestEnv(t, testFacility(0))
	env.seedBay(t, 1, "Bay 1")
	env.seedMember(t, 100, "Alice")
	ctx := context.Background()

	// end before start
	_, err := env.svc.CreateBooking(ctx, candidate(100, 1, monElev, monTen), staff, true)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindBadWindow, verr.Kind)

	// crossing midnight
	lateNight := time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC)
	_, err = env.svc.CreateBooking(ctx, candidate(100, 1, lateNight, lateNight.Add(2*time.Hour)), staff, true)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindBadWindow, verr.Kind)
}

func TestHoursCheckUsesFacilityTimezone(t *testing.T) {
	facility := testFacility(0)
	facility.Timezone = "America/New_York"
	env := newTestEnv(t, facility)
	env.seedBay(t, 1, "Bay 1")
	env.seedMember(t, 100, "Alice")
	ctx := context.Background()

	// 13:00 UTC is 08:00 in New York, before the 09:00 open
	earlyUTC := time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC)
	_, err := env.svc.CreateBooking(ctx, candidate(100, 1, earlyUTC, earlyUTC.Add(time.Hour)), staff, false)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindOutsideHours, verr.Kind)

	// 14:00 UTC is 09:00 local, exactly at open
	atOpen := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	_, err = env.svc.CreateBooking(ctx, candidate(100, 1, atOpen, atOpen.Add(time.Hour)), staff, false)
	assert.NoError(t, err)
}

func TestBookingLifecycle(t *testing.T) {
	env := newTestEnv(t, testFacility(0))
	env.seedBay(t, 1, "Bay 1")
	env.seedMember(t, 100, "Alice")
	ctx := context.Background()

	booking, err := env.svc.CreateBooking(ctx, candidate(100, 1, monTen, monElev), staff, false)
	require.NoError(t, err)

	require.NoError(t, env.svc.CheckIn(ctx, booking.ID, booking.Version, staff))
	got, _ := env.svc.GetBooking(ctx, booking.ID)
	assert.Equal(t, models.StatusCheckedIn, got.Status)

	require.NoError(t, env.svc.CompleteBooking(ctx, booking.ID, got.Version, staff))
	got, _ = env.svc.GetBooking(ctx, booking.ID)
	assert.Equal(t, models.StatusCompleted, got.Status)

	assert.Contains(t, *env.seen, events.EventBookingCheckedIn)
	assert.Contains(t, *env.seen, events.EventBookingCompleted)
	env.worker.AssertCalled(t, "EnqueueStatusUpdate", mock.Anything, booking.ID, models.StatusCompleted)
}

func TestCancelRefunds(t *testing.T) {
	env := newTestEnv(t, testFacility(0))
	env.seedBay(t, 1, "Bay 1")
	env.seedMember(t, 100, "Alice")
	ctx := context.Background()

	cand := candidate(100, 1, monTen, monElev)
	cand.PaymentStatus = models.PaymentStatusPaid
	booking, err := env.svc.CreateBooking(ctx, cand, staff, false)
	require.NoError(t, err)

	// version 0 resolves to the current version
	require.NoError(t, env.svc.CancelBooking(ctx, booking.ID, 0, staff))

	got, _ := env.svc.GetBooking(ctx, booking.ID)
	assert.Equal(t, models.StatusCanceled, got.Status)
	assert.Equal(t, models.PaymentStatusRefunded, got.PaymentStatus)
}

func TestMarkNoShowKeepsPayment(t *testing.T) {
	env := newTestEnv(t, testFacility(0))
	env.seedBay(t, 1, "Bay 1")
	env.seedMember(t, 100, "Alice")
	ctx := context.Background()

	cand := candidate(100, 1, monTen, monElev)
	cand.PaymentStatus = models.PaymentStatusPaid
	booking, err := env.svc.CreateBooking(ctx, cand, staff, false)
	require.NoError(t, err)

	require.NoError(t, env.svc.MarkNoShow(ctx, booking.ID, booking.Version, staff))

	got, _ := env.svc.GetBooking(ctx, booking.ID)
	assert.Equal(t, models.StatusNoShow, got.Status)
	assert.Equal(t, models.PaymentStatusPaid, got.PaymentStatus)
}

func TestUpdateBookingMovesBays(t *testing.T) {
	env := newTestEnv(t, testFacility(0))
	env.seedBay(t, 1, "Bay 1")
	env.seedBay(t, 2, "Bay 2")
	env.seedMember(t, 100, "Alice")
	ctx := context.Background()

	booking, err := env.svc.CreateBooking(ctx, candidate(100, 1, monTen, monElev), staff, false)
	require.NoError(t, err)

	moved, err := env.svc.UpdateBooking(ctx, booking.ID, booking.Version,
		candidate(100, 2, monElev, monElev.Add(time.Hour)), staff, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), moved.BayID)
	assert.Equal(t, "Bay 2", moved.BayName)

	bay1, _ := env.db.GetBayByID(ctx, 1)
	assert.Equal(t, models.BayStatusAvailable, bay1.Status)
}

func TestExtendBooking(t *testing.T) {
	env := newTestEnv(t, testFacility(0))
	env.seedBay(t, 1, "Bay 1")
	env.seedMember(t, 100, "Alice")
	env.seedMember(t, 200, "Bob")
	ctx := context.Background()

	booking, err := env.svc.CreateBooking(ctx, candidate(100, 1, monTen, monElev), staff, false)
	require.NoError(t, err)
	_, err = env.svc.CreateBooking(ctx, candidate(200, 1, monElev.Add(30*time.Minute), monElev.Add(90*time.Minute)), staff, false)
	require.NoError(t, err)

	require.NoError(t, env.svc.CheckIn(ctx, booking.ID, booking.Version, staff))

	// 15 minutes fits before the next booking
	extended, err := env.svc.ExtendBooking(ctx, booking.ID, 0, 15, staff)
	require.NoError(t, err)
	assert.True(t, extended.EndTime.Equal(monElev.Add(15*time.Minute)))

	// Another 30 would run into it
	_, err = env.svc.ExtendBooking(ctx, booking.ID, 0, 30, staff)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindConflict, verr.Kind)

	_, err = env.svc.ExtendBooking(ctx, booking.ID, 0, -10, staff)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindBadWindow, verr.Kind)
}

func TestSweepExpiredCheckIns(t *testing.T) {
	env := newTestEnv(t, testFacility(0))
	env.seedBay(t, 1, "Bay 1")
	env.seedBay(t, 2, "Bay 2")
	env.seedMember(t, 100, "Alice")
	env.seedMember(t, 200, "Bob")
	ctx := context.Background()

	ending, err := env.svc.CreateBooking(ctx, candidate(100, 1, monTen, monElev), staff, false)
	require.NoError(t, err)
	running, err := env.svc.CreateBooking(ctx, candidate(200, 2, monTen, monElev.Add(time.Hour)), staff, false)
	require.NoError(t, err)
	require.NoError(t, env.svc.CheckIn(ctx, ending.ID, ending.Version, staff))
	require.NoError(t, env.svc.CheckIn(ctx, running.ID, running.Version, staff))

	completed, err := env.svc.SweepExpiredCheckIns(ctx, monElev)
	require.NoError(t, err)
	assert.Equal(t, 1, completed)

	got, _ := env.svc.GetBooking(ctx, ending.ID)
	assert.Equal(t, models.StatusCompleted, got.Status)
	got, _ = env.svc.GetBooking(ctx, running.ID)
	assert.Equal(t, models.StatusCheckedIn, got.Status)

	// The sweep is idempotent
	completed, err = env.svc.SweepExpiredCheckIns(ctx, monElev)
	require.NoError(t, err)
	assert.Zero(t, completed)

	// The sweep's audit entries are attributed to the system actor
	entries, err := env.db.ListAuditEntries(ctx, models.ObjectTypeBooking, ending.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, models.SystemActor.Name, entries[0].ActorName)
}

func TestDayAvailability(t *testing.T) {
	env := newTestEnv(t, testFacility(0))
	env.seedBay(t, 1, "Bay 1")
	env.seedMember(t, 100, "Alice")
	ctx := context.Background()

	_, err := env.svc.CreateBooking(ctx, candidate(100, 1, monTen, monElev), staff, false)
	require.NoError(t, err)

	snapshot, err := env.svc.DayAvailability(ctx, 1, monTen)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", snapshot.Date)
	require.Len(t, snapshot.Busy, 1)
	assert.False(t, snapshot.FreeFor(monTen, monElev))
	assert.True(t, snapshot.FreeFor(monElev, monElev.Add(time.Hour)))
}

func TestDayAvailabilityFacilityLocalDay(t *testing.T) {
	facility := testFacility(0)
	facility.Timezone = "America/New_York"
	env := newTestEnv(t, facility)
	env.svc.cache = repository.NewMemoryAvailabilityCache(time.Minute)
	env.seedBay(t, 1, "Bay 1")
	env.seedMember(t, 100, "Alice")
	ctx := context.Background()

	// 19:00 UTC on March 2nd is 14:00 local, inside Monday's hours.
	start := time.Date(2026, 3, 2, 19, 0, 0, 0, time.UTC)
	booking, err := env.svc.CreateBooking(ctx, candidate(100, 1, start, start.Add(time.Hour)), staff, false)
	require.NoError(t, err)

	// The requested calendar date names the facility-local day even when the
	// caller hands over a UTC midnight.
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	snapshot, err := env.svc.DayAvailability(ctx, 1, day)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", snapshot.Date)
	require.Len(t, snapshot.Busy, 1)

	// Mutations key the invalidation by the booking's local start date, so
	// the cached snapshot goes stale-free immediately.
	require.NoError(t, env.svc.CancelBooking(ctx, booking.ID, booking.Version, staff))
	snapshot, err = env.svc.DayAvailability(ctx, 1, day)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", snapshot.Date)
	assert.Empty(t, snapshot.Busy)
}

func TestMutationsEnqueueAuditEntries(t *testing.T) {
	env := newTestEnv(t, testFacility(0))
	env.seedBay(t, 1, "Bay 1")
	env.seedMember(t, 100, "Alice")
	ctx := context.Background()

	booking, err := env.svc.CreateBooking(ctx, candidate(100, 1, monTen, monElev), staff, false)
	require.NoError(t, err)
	require.NoError(t, env.svc.CheckIn(ctx, booking.ID, booking.Version, staff))
	_, err = env.svc.ExtendBooking(ctx, booking.ID, 0, 30, staff)
	require.NoError(t, err)

	// Each mutation mirrors its audit entry to the sync queue
	env.worker.AssertNumberOfCalls(t, "EnqueueAuditEntry", 3)
}

func TestSweepEnqueuesSyncTasks(t *testing.T) {
	env := newTestEnv(t, testFacility(0))
	env.seedBay(t, 1, "Bay 1")
	env.seedMember(t, 100, "Alice")
	ctx := context.Background()

	booking, err := env.svc.CreateBooking(ctx, candidate(100, 1, monTen, monElev), staff, false)
	require.NoError(t, err)
	require.NoError(t, env.svc.CheckIn(ctx, booking.ID, booking.Version, staff))

	completed, err := env.svc.SweepExpiredCheckIns(ctx, monElev)
	require.NoError(t, err)
	require.Equal(t, 1, completed)

	env.worker.AssertCalled(t, "EnqueueStatusUpdate", mock.Anything, booking.ID, models.StatusCompleted)
	// Create, check-in and the sweep completion each mirror an audit entry
	env.worker.AssertNumberOfCalls(t, "EnqueueAuditEntry", 3)
}

func TestGetDailyBookings(t *testing.T) {
	env := newTestEnv(t, testFacility(0))
	env.seedBay(t, 1, "Bay 1")
	env.seedMember(t, 100, "Alice")
	ctx := context.Background()

	_, err := env.svc.CreateBooking(ctx, candidate(100, 1, monTen, monElev), staff, false)
	require.NoError(t, err)
	nextDay := monTen.AddDate(0, 0, 1)
	_, err = env.svc.CreateBooking(ctx, candidate(100, 1, nextDay, nextDay.Add(time.Hour)), staff, false)
	require.NoError(t, err)

	daily, err := env.svc.GetDailyBookings(ctx, monTen.AddDate(0, 0, -1), monTen.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, daily, 2)
	assert.Len(t, daily["2026-03-02"], 1)
	assert.Len(t, daily["2026-03-03"], 1)
}
