package rsvps

import (
	"context"

	"go.uber.org/zap"

	"github.com/opencircle/backend/internal/models"
	"github.com/opencircle/backend/pkg/apperrors"
	"github.com/opencircle/backend/pkg/database"
)

// Store is the persistence surface the service needs. *Repository satisfies it.
type Store interface {
	Create(ctx context.Context, v *models.RSVP) error
	GetByID(ctx context.Context, id int64) (*models.RSVP, error)
	GetByEventAndAttendee(ctx context.Context, eventID, attendeeID int64) (*models.RSVP, error)
	UpdateStatus(ctx context.Context, id int64, status models.RSVPStatus) error
	Delete(ctx context.Context, id int64) (int64, error)
	ListByEvent(ctx context.Context, eventID int64, status models.RSVPStatus) ([]AttendeeView, error)
	ListByAttendee(ctx context.Context, attendeeID int64, status models.RSVPStatus) ([]EventView, error)
}

// Directory resolves accounts, profiles and events. The accounts and events
// repositories satisfy it between them.
type Directory interface {
	AccountIDByUUID(ctx context.Context, accountUUID string) (int64, error)
	UserProfileByAccountUUID(ctx context.Context, accountUUID string) (*models.UserProfile, error)
	OrgProfileByAccountUUID(ctx context.Context, accountUUID string) (*models.OrgProfile, error)
	OrgProfileByID(ctx context.Context, id int64) (*models.OrgProfile, error)
}

// Events loads event rows. The events repository satisfies it.
type Events interface {
	GetByID(ctx context.Context, id int64) (*models.Event, error)
}

// Notifier fires the RSVP notifications; delivery is best-effort.
type Notifier interface {
	RSVPRequested(ctx context.Context, orgAccountID, eventID int64, eventTitle, userName string) bool
	RSVPAccepted(ctx context.Context, attendeeAccountID, eventID int64, eventTitle string) bool
}

// Service implements the RSVP lifecycle: pending -> joined | rejected, or
// created directly as joined for auto-accept events.
type Service struct {
	store  Store
	dir    Directory
	events Events
	notify Notifier
	logger *zap.Logger
}

// NewService creates an RSVP service.
func NewService(store Store, dir Directory, events Events, notify Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, dir: dir, events: events, notify: notify, logger: logger}
}

func (s *Service) event(ctx context.Context, eventID int64) (*models.Event, error) {
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, apperrors.WithDetail(apperrors.ErrNotFound, "event not found")
		}
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "load event")
	}
	return ev, nil
}

// Create registers the caller's attendance intent. Auto-accept events go
// straight to joined; otherwise the RSVP is pending and the organizer is
// notified. A second RSVP for the same event conflicts regardless of state.
func (s *Service) Create(ctx context.Context, accountUUID string, eventID int64) (*models.RSVP, error) {
	user, err := s.dir.UserProfileByAccountUUID(ctx, accountUUID)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, apperrors.WithDetail(apperrors.ErrForbidden, "caller is not a user account")
		}
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "load user profile")
	}
	ev, err := s.event(ctx, eventID)
	if err != nil {
		return nil, err
	}

	status := models.RSVPPending
	if ev.AutoAccept {
		status = models.RSVPJoined
	}
	v := &models.RSVP{EventID: eventID, AttendeeID: user.AccountID, Status: status}
	if err := s.store.Create(ctx, v); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperrors.WithDetail(apperrors.ErrConflict, "rsvp already exists for this event")
		}
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "create rsvp")
	}

	if status == models.RSVPPending {
		org, err := s.dir.OrgProfileByID(ctx, ev.OrganizationID)
		if err != nil {
			s.logger.Warn("resolve organizer for notification", zap.Error(err))
		} else {
			s.notify.RSVPRequested(ctx, org.AccountID, ev.ID, ev.Title, user.FirstName+" "+user.LastName)
		}
	}
	return v, nil
}

// Decide moves a pending RSVP to joined or rejected. Only the organization
// that owns the event may decide.
func (s *Service) Decide(ctx context.Context, orgAccountUUID string, rsvpID int64, status models.RSVPStatus) (*models.RSVP, error) {
	if status != models.RSVPJoined && status != models.RSVPRejected {
		return nil, apperrors.WithDetail(apperrors.ErrValidationRejected, "status must be joined or rejected")
	}
	org, err := s.dir.OrgProfileByAccountUUID(ctx, orgAccountUUID)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, apperrors.WithDetail(apperrors.ErrForbidden, "caller is not an organization account")
		}
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "load organization profile")
	}
	v, err := s.store.GetByID(ctx, rsvpID)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, apperrors.WithDetail(apperrors.ErrNotFound, "rsvp not found")
		}
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "load rsvp")
	}
	ev, err := s.event(ctx, v.EventID)
	if err != nil {
		return nil, err
	}
	if ev.OrganizationID != org.ID {
		return nil, apperrors.WithDetail(apperrors.ErrForbidden, "event belongs to another organization")
	}
	if v.Status != models.RSVPPending {
		return nil, apperrors.WithDetail(apperrors.ErrInvalidStateTransition, "only pending rsvps can be decided")
	}
	if err := s.store.UpdateStatus(ctx, v.ID, status); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "update rsvp")
	}
	v.Status = status
	if status == models.RSVPJoined {
		s.notify.RSVPAccepted(ctx, v.AttendeeID, ev.ID, ev.Title)
	}
	return v, nil
}

// Delete withdraws an RSVP. The attendee or the event's owning organization
// may delete it; anyone else is forbidden.
func (s *Service) Delete(ctx context.Context, accountUUID string, rsvpID int64) error {
	v, err := s.store.GetByID(ctx, rsvpID)
	if err != nil {
		if database.IsNoRows(err) {
			return apperrors.WithDetail(apperrors.ErrNotFound, "rsvp not found")
		}
		return apperrors.Wrap(apperrors.ErrPersistence, "load rsvp")
	}

	accountID, err := s.dir.AccountIDByUUID(ctx, accountUUID)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrPersistence, "resolve account")
	}
	allowed := accountID == v.AttendeeID
	if !allowed {
		org, err := s.dir.OrgProfileByAccountUUID(ctx, accountUUID)
		if err == nil {
			ev, evErr := s.event(ctx, v.EventID)
			if evErr == nil && ev.OrganizationID == org.ID {
				allowed = true
			}
		} else if !database.IsNoRows(err) {
			return apperrors.Wrap(apperrors.ErrPersistence, "load organization profile")
		}
	}
	if !allowed {
		return apperrors.WithDetail(apperrors.ErrForbidden, "not the attendee or the event organizer")
	}

	if _, err := s.store.Delete(ctx, v.ID); err != nil {
		return apperrors.Wrap(apperrors.ErrPersistence, "delete rsvp")
	}
	return nil
}

// ListForEvent returns an event's RSVPs for its owning organization.
func (s *Service) ListForEvent(ctx context.Context, orgAccountUUID string, eventID int64, status models.RSVPStatus) ([]AttendeeView, error) {
	if status != "" && !models.ValidRSVPStatus(status) {
		return nil, apperrors.WithDetail(apperrors.ErrValidationRejected, "invalid rsvp status")
	}
	org, err := s.dir.OrgProfileByAccountUUID(ctx, orgAccountUUID)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, apperrors.WithDetail(apperrors.ErrForbidden, "caller is not an organization account")
		}
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "load organization profile")
	}
	ev, err := s.event(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.OrganizationID != org.ID {
		return nil, apperrors.WithDetail(apperrors.ErrForbidden, "event belongs to another organization")
	}
	list, err := s.store.ListByEvent(ctx, eventID, status)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "list rsvps")
	}
	return list, nil
}

// ListMine returns the caller's RSVPs joined with their events.
func (s *Service) ListMine(ctx context.Context, accountUUID string, status models.RSVPStatus) ([]EventView, error) {
	if status != "" && !models.ValidRSVPStatus(status) {
		return nil, apperrors.WithDetail(apperrors.ErrValidationRejected, "invalid rsvp status")
	}
	accountID, err := s.dir.AccountIDByUUID(ctx, accountUUID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "resolve account")
	}
	list, err := s.store.ListByAttendee(ctx, accountID, status)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "list rsvps")
	}
	return list, nil
}
