package models

import "time"

// SyncTask represents a queued synchronization job for the Sheets mirror.
type SyncTask struct {
	ID          int64      `json:"id"`
	TaskType    string     `json:"task_type"`
	ObjectID    int64      `json:"object_id"`
	Payload     string     `json:"payload"`
	Status      string     `json:"status"`
	RetryCount  int        `json:"retry_count"`
	LastError   *string    `json:"last_error"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at"`
	NextRetryAt *time.Time `json:"next_retry_at"`
}

// DayAvailability is a cached per-bay snapshot of the busy windows on one
// calendar day, used by the read-side availability endpoints.
type DayAvailability struct {
	BayID   int64       `json:"bay_id"`
	BayName string      `json:"bay_name"`
	Date    string      `json:"date"` // YYYY-MM-DD
	Busy    []TimeRange `json:"busy"`
}

type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// FreeFor reports whether [start, end) avoids every busy window.
func (d *DayAvailability) FreeFor(start, end time.Time) bool {
	for _, r := range d.Busy {
		if Overlaps(start, end, r.Start, r.End) {
			return false
		}
	}
	return true
}
