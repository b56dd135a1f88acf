package domain

import (
	"context"
	"time"

	"fairway/internal/models"
)

type Repository interface {
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	CreateBooking(ctx context.Context, booking *models.Booking, maxConcurrent int, audit *models.AuditEntry) error
	UpdateBooking(ctx context.Context, booking *models.Booking, fromVersion int64, maxConcurrent int, audit *models.AuditEntry) error
	TransitionBookingStatus(ctx context.Context, id, fromVersion int64, status string, refundPayment bool, audit *models.AuditEntry) error
	ExtendBooking(ctx context.Context, id, fromVersion int64, newEnd time.Time, audit *models.AuditEntry) error
	CountConflicts(ctx context.Context, bayID int64, start, end time.Time, excludeID int64) (int, error)
	CountMemberBlocking(ctx context.Context, memberID, excludeID int64) (int, error)
	GetBookingsByRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error)
	GetMemberBookings(ctx context.Context, memberID int64) ([]*models.Booking, error)
	GetBayBookingsForDay(ctx context.Context, bayID int64, dayStart, dayEnd time.Time) ([]*models.Booking, error)
	ExpiredCheckIns(ctx context.Context, now time.Time) ([]*models.Booking, error)

	GetBays(ctx context.Context) ([]*models.Bay, error)
	GetBayByID(ctx context.Context, id int64) (*models.Bay, error)
	GetBayByName(ctx context.Context, name string) (*models.Bay, error)
	UpsertBay(ctx context.Context, bay *models.Bay) error
	SetBayMaintenance(ctx context.Context, bayID int64, on bool, audit *models.AuditEntry) error
	AvailableBays(ctx context.Context, start, end time.Time) ([]*models.Bay, error)

	GetMember(ctx context.Context, id int64) (*models.Member, error)
	GetMembers(ctx context.Context) ([]*models.Member, error)
	UpsertMember(ctx context.Context, member *models.Member) error

	ListAuditEntries(ctx context.Context, objectType string, objectID int64, limit int) ([]*models.AuditEntry, error)
}

// AvailabilityCache is the read-side cache of per-bay day snapshots. A miss
// is a nil snapshot, not an error.
type AvailabilityCache interface {
	GetDay(ctx context.Context, bayID int64, date string) (*models.DayAvailability, error)
	SetDay(ctx context.Context, snapshot *models.DayAvailability) error
	InvalidateDay(ctx context.Context, bayID int64, date string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type SheetsWriter interface {
	UpsertBooking(ctx context.Context, booking *models.Booking) error
	UpdateBookingStatus(ctx context.Context, bookingID int64, status string) error
	AppendAuditEntry(ctx context.Context, entry *models.AuditEntry) error
}

type SyncWorker interface {
	EnqueueBookingUpsert(ctx context.Context, booking *models.Booking) error
	EnqueueStatusUpdate(ctx context.Context, bookingID int64, status string) error
	EnqueueAuditEntry(ctx context.Context, entry *models.AuditEntry) error
}

type BookingService interface {
	CreateBooking(ctx context.Context, cand models.BookingCandidate, actor models.Actor, bypassHours bool) (*models.Booking, error)
	UpdateBooking(ctx context.Context, id, version int64, cand models.BookingCandidate, actor models.Actor, bypassHours bool) (*models.Booking, error)
	CancelBooking(ctx context.Context, id, version int64, actor models.Actor) error
	CheckIn(ctx context.Context, id, version int64, actor models.Actor) error
	MarkNoShow(ctx context.Context, id, version int64, actor models.Actor) error
	CompleteBooking(ctx context.Context, id, version int64, actor models.Actor) error
	ExtendBooking(ctx context.Context, id, version int64, minutes int, actor models.Actor) (*models.Booking, error)
	SweepExpiredCheckIns(ctx context.Context, now time.Time) (int, error)
	AvailableBays(ctx context.Context, start, end time.Time) ([]*models.Bay, error)
	DayAvailability(ctx context.Context, bayID int64, day time.Time) (*models.DayAvailability, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetBookingsByRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error)
	GetMemberBookings(ctx context.Context, memberID int64) ([]*models.Booking, error)
	GetDailyBookings(ctx context.Context, start, end time.Time) (map[string][]*models.Booking, error)
}

type BayService interface {
	GetBays(ctx context.Context) ([]*models.Bay, error)
	GetBayByID(ctx context.Context, id int64) (*models.Bay, error)
	SetMaintenance(ctx context.Context, bayID int64, on bool, actor models.Actor) error
}

type MemberService interface {
	GetMember(ctx context.Context, id int64) (*models.Member, error)
	GetMembers(ctx context.Context) ([]*models.Member, error)
	SaveMember(ctx context.Context, member *models.Member) error
}

type AuditService interface {
	ListEntries(ctx context.Context, objectType string, objectID int64, limit int) ([]*models.AuditEntry, error)
}
