package notifications

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/opencircle/backend/internal/models"
	"github.com/opencircle/backend/pkg/queue"
)

// Enqueuer is the queue surface the dispatcher needs. *queue.Queue satisfies it.
type Enqueuer interface {
	EnqueueNotification(ctx context.Context, payload queue.NotificationPayload) error
	EnqueueFanOut(ctx context.Context, payload queue.FanOutPayload) error
}

// Dispatcher fires notifications as post-commit side effects. Every method is
// best-effort: failures are logged and reported as false, never as an error,
// so a notification outage can't roll back the state change it announces.
type Dispatcher struct {
	q      Enqueuer
	logger *zap.Logger
}

// NewDispatcher creates a dispatcher over the job queue.
func NewDispatcher(q Enqueuer, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{q: q, logger: logger}
}

func (d *Dispatcher) direct(ctx context.Context, recipientID int64, typ models.NotificationType, title, message string, entityID int64, entityType models.RelatedEntityType) bool {
	et := string(entityType)
	err := d.q.EnqueueNotification(ctx, queue.NotificationPayload{
		RecipientID:       recipientID,
		Type:              string(typ),
		Title:             title,
		Message:           message,
		RelatedEntityID:   &entityID,
		RelatedEntityType: &et,
	})
	if err != nil {
		d.logger.Warn("notification enqueue failed",
			zap.String("type", string(typ)), zap.Int64("recipient_id", recipientID), zap.Error(err))
		return false
	}
	return true
}

func (d *Dispatcher) fanOut(ctx context.Context, organizationID int64, typ models.NotificationType, title, message string, entityID int64, entityType models.RelatedEntityType) bool {
	et := string(entityType)
	err := d.q.EnqueueFanOut(ctx, queue.FanOutPayload{
		OrganizationID:    organizationID,
		Type:              string(typ),
		Title:             title,
		Message:           message,
		RelatedEntityID:   &entityID,
		RelatedEntityType: &et,
	})
	if err != nil {
		d.logger.Warn("fan-out enqueue failed",
			zap.String("type", string(typ)), zap.Int64("organization_id", organizationID), zap.Error(err))
		return false
	}
	return true
}

// MembershipRequested tells an organization's account that a user asked to join.
func (d *Dispatcher) MembershipRequested(ctx context.Context, orgAccountID int64, userName string, organizationID int64) bool {
	return d.direct(ctx, orgAccountID, models.NotifMembershipRequest,
		"New Membership Request",
		fmt.Sprintf("%s has requested to join your organization", userName),
		organizationID, models.RelatedOrganization)
}

// MembershipAccepted tells a user their membership request was approved.
func (d *Dispatcher) MembershipAccepted(ctx context.Context, userAccountID, organizationID int64, orgName string) bool {
	return d.direct(ctx, userAccountID, models.NotifMembershipAccepted,
		"Membership Accepted",
		fmt.Sprintf("Your request to join %s has been accepted", orgName),
		organizationID, models.RelatedOrganization)
}

// RSVPRequested tells the organizer a user asked to attend an event.
func (d *Dispatcher) RSVPRequested(ctx context.Context, orgAccountID, eventID int64, eventTitle, userName string) bool {
	return d.direct(ctx, orgAccountID, models.NotifRSVPRequest,
		"New RSVP Request",
		fmt.Sprintf("%s wants to attend your event \"%s\"", userName, eventTitle),
		eventID, models.RelatedEvent)
}

// RSVPAccepted tells an attendee their RSVP was accepted.
func (d *Dispatcher) RSVPAccepted(ctx context.Context, attendeeAccountID, eventID int64, eventTitle string) bool {
	return d.direct(ctx, attendeeAccountID, models.NotifRSVPAccepted,
		"RSVP Accepted",
		fmt.Sprintf("Your RSVP for \"%s\" has been accepted", eventTitle),
		eventID, models.RelatedEvent)
}

// NewPost announces an organization's new post to all approved members.
func (d *Dispatcher) NewPost(ctx context.Context, organizationID, postID int64, orgName, preview string) bool {
	return d.fanOut(ctx, organizationID, models.NotifNewPost,
		fmt.Sprintf("New post from %s", orgName),
		preview,
		postID, models.RelatedPost)
}

// NewEvent announces an organization's new event to all approved members.
func (d *Dispatcher) NewEvent(ctx context.Context, organizationID, eventID int64, orgName, eventTitle string) bool {
	return d.fanOut(ctx, organizationID, models.NotifEventUpdate,
		fmt.Sprintf("New event from %s", orgName),
		fmt.Sprintf("%s has scheduled a new event: \"%s\"", orgName, eventTitle),
		eventID, models.RelatedEvent)
}

// Preview truncates post content for a notification message.
func Preview(content string) string {
	const max = 100
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}
	return string(runes[:max]) + "..."
}
