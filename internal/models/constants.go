package models

const (
	StatusConfirmed = "confirmed"
	StatusCheckedIn = "checked-in"
	StatusNoShow    = "no-show"
	StatusCompleted = "completed"
	StatusCanceled  = "canceled"
)

const (
	BayStatusAvailable   = "available"
	BayStatusBooked      = "booked"
	BayStatusInUse       = "in-use"
	BayStatusMaintenance = "maintenance"
)

const (
	PaymentMethodCash          = "cash"
	PaymentMethodCard          = "card"
	PaymentMethodMemberAccount = "member_account"
)

const (
	PaymentStatusPaid     = "paid"
	PaymentStatusUnpaid   = "unpaid"
	PaymentStatusRefunded = "refunded"
)

const (
	MemberStatusActive   = "active"
	MemberStatusInactive = "inactive"
)

const (
	AuditActionCreate = "create"
	AuditActionUpdate = "update"
	AuditActionDelete = "delete"
)

const (
	// DefaultSweepInterval cadence of the expiry sweep when unset in config.
	DefaultSweepInterval = 60 // seconds

	// DefaultBookingMinutes default booking duration when the caller omits
	// an end time.
	DefaultBookingMinutes = 60

	// DefaultAvailabilityCacheTTL lifetime of cached day availability.
	DefaultAvailabilityCacheTTL = 5 * 60 // seconds

	// DefaultAuditPageSize page size for audit log listings.
	DefaultAuditPageSize = 50

	// RateLimitRequests requests allowed per window for a fixed-window check.
	RateLimitRequests = 60

	// RateLimitWindow fixed window length in seconds.
	RateLimitWindow = 60

	// WorkerQueueSize size of the in-memory sheets worker queue.
	WorkerQueueSize = 128
)
