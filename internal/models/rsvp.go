package models

import "time"

// RSVPStatus is the attendance intent state.
type RSVPStatus string

const (
	RSVPPending  RSVPStatus = "pending"
	RSVPJoined   RSVPStatus = "joined"
	RSVPRejected RSVPStatus = "rejected"
)

// ValidRSVPStatus reports whether s is one of the enumerated states.
func ValidRSVPStatus(s RSVPStatus) bool {
	switch s {
	case RSVPPending, RSVPJoined, RSVPRejected:
		return true
	}
	return false
}

// RSVP records an account's attendance intent for an event. At most one row
// per (event, attendee), enforced by a uniqueness constraint.
type RSVP struct {
	ID         int64      `json:"id"`
	EventID    int64      `json:"event_id"`
	AttendeeID int64      `json:"attendee"` // account id
	Status     RSVPStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_date"`
	ModifiedAt time.Time  `json:"last_modified_date"`
}
