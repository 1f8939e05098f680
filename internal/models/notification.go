package models

import "time"

// NotificationType enumerates the notification kinds fired by state
// transitions elsewhere.
type NotificationType string

const (
	NotifMembershipAccepted NotificationType = "organization_membership_accepted"
	NotifRSVPAccepted       NotificationType = "rsvp_accepted"
	NotifNewPost            NotificationType = "new_post"
	NotifEventUpdate        NotificationType = "event_update"
	NotifMembershipRequest  NotificationType = "new_membership_request"
	NotifRSVPRequest        NotificationType = "new_rsvp_request"
)

// RelatedEntityType identifies what a notification points at.
type RelatedEntityType string

const (
	RelatedOrganization RelatedEntityType = "organization"
	RelatedEvent        RelatedEntityType = "event"
	RelatedPost         RelatedEntityType = "post"
	RelatedRSVP         RelatedEntityType = "rsvp"
	RelatedUser         RelatedEntityType = "user"
)

// Notification is an asynchronous message to a recipient account. Only the
// read flag is mutable after creation.
type Notification struct {
	ID                int64              `json:"id"`
	RecipientID       int64              `json:"recipient_id"` // account id
	Type              NotificationType   `json:"type"`
	Title             string             `json:"title"`
	Message           string             `json:"message"`
	IsRead            bool               `json:"is_read"`
	RelatedEntityID   *int64             `json:"related_entity_id,omitempty"`
	RelatedEntityType *RelatedEntityType `json:"related_entity_type,omitempty"`
	CreatedAt         time.Time          `json:"created_date"`
	ReadAt            *time.Time         `json:"read_date,omitempty"`
}
