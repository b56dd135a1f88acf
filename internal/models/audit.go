package models

import (
	"encoding/json"
	"time"
)

// AuditEntry records who changed what, from what, to what. Entries are
// written in the same transaction as the change they describe.
type AuditEntry struct {
	ID            int64     `json:"id"`
	EntryID       string    `json:"entry_id"` // uuid, stable across exports
	Action        string    `json:"action"`   // create, update, delete
	ActorID       int64     `json:"actor_id"`
	ActorName     string    `json:"actor_name"`
	Timestamp     time.Time `json:"timestamp"`
	ObjectType    string    `json:"object_type"`
	ObjectID      int64     `json:"object_id"`
	ObjectName    string    `json:"object_name"`
	PreviousValue string    `json:"previous_value,omitempty"` // JSON, changed fields only
	NewValue      string    `json:"new_value,omitempty"`      // JSON, changed fields only
}

const (
	ObjectTypeBooking = "booking"
	ObjectTypeBay     = "bay"
	ObjectTypeMember  = "member"
)

// Actor identifies who performed an engine operation.
type Actor struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// SystemActor is used by unattended processes such as the expiry sweep.
var SystemActor = Actor{ID: 0, Name: "system"}

// EncodeDiff marshals a map of changed fields for the audit trail. A nil or
// empty map encodes as the empty string so unchanged sides stay unset.
func EncodeDiff(fields map[string]any) string {
	if len(fields) == 0 {
		return ""
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return ""
	}
	return string(raw)
}
