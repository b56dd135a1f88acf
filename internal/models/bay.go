package models

import "time"

type Bay struct {
	ID          int64     `yaml:"id" json:"id"`
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description" json:"description"`
	Status      string    `yaml:"status" json:"status"`
	SortOrder   int64     `yaml:"sort_order" json:"sort_order"`
	IsActive    bool      `yaml:"is_active" json:"is_active"`
	CreatedAt   time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt   time.Time `yaml:"updated_at" json:"updated_at"`
}

// InMaintenance reports whether the bay has been manually taken out of
// service. Maintenance is sticky: it is never cleared by booking activity.
func (b *Bay) InMaintenance() bool {
	return b.Status == BayStatusMaintenance
}

type Member struct {
	ID               int64     `json:"id"`
	FullName         string    `json:"full_name"`
	Phone            string    `json:"phone"`
	Email            string    `json:"email"`
	Status           string    `json:"status"` // active, inactive
	MembershipExpiry time.Time `json:"membership_expiry"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ActiveAt reports whether the member may hold new bookings at the given
// instant. A zero expiry means the membership does not expire.
func (m *Member) ActiveAt(now time.Time) bool {
	if m.Status != MemberStatusActive {
		return false
	}
	if m.MembershipExpiry.IsZero() {
		return true
	}
	return now.Before(m.MembershipExpiry)
}
