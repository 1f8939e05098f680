package models

import "time"

// MembershipStatus is the state of a user's relationship to an organization.
type MembershipStatus string

const (
	MembershipPending  MembershipStatus = "pending"
	MembershipApproved MembershipStatus = "approved"
	MembershipRejected MembershipStatus = "rejected"
	MembershipLeft     MembershipStatus = "left"
)

// ValidMembershipStatus reports whether s is one of the enumerated states.
func ValidMembershipStatus(s MembershipStatus) bool {
	switch s {
	case MembershipPending, MembershipApproved, MembershipRejected, MembershipLeft:
		return true
	}
	return false
}

// Membership links a user profile to an organization profile. At most one row
// exists per (organization, user) pair; the DB constraint enforces it.
type Membership struct {
	ID             int64            `json:"id"`
	OrganizationID int64            `json:"organization_id"`
	UserID         int64            `json:"user_id"`
	Status         MembershipStatus `json:"status"`
	CreatedAt      time.Time        `json:"created_date"`
	ModifiedAt     time.Time        `json:"last_modified_date"`
}
