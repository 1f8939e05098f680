package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/opencircle/backend/internal/moderation"
	"github.com/opencircle/backend/internal/models"
	"github.com/opencircle/backend/pkg/apperrors"
	"github.com/opencircle/backend/pkg/database"
)

// Store is the persistence surface the service needs. *Repository satisfies it.
type Store interface {
	Create(ctx context.Context, ev *models.Event, addr *models.Address) error
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	GetView(ctx context.Context, id int64) (*View, error)
	Update(ctx context.Context, ev *models.Event, addr *models.Address) error
	Delete(ctx context.Context, id int64) (int64, error)
	ListUpcoming(ctx context.Context, viewerAccountID int64, limit, offset int) ([]View, error)
	ListByOrganization(ctx context.Context, organizationID int64, past bool, at time.Time) ([]View, error)
}

// Directory resolves accounts and profiles. The accounts repository satisfies it.
type Directory interface {
	AccountIDByUUID(ctx context.Context, accountUUID string) (int64, error)
	OrgProfileByAccountUUID(ctx context.Context, accountUUID string) (*models.OrgProfile, error)
}

// Moderator screens event descriptions. *moderation.Gate satisfies it.
type Moderator interface {
	ModerateDefault(ctx context.Context, text string) moderation.Result
}

// Notifier announces new events to approved members; delivery is best-effort.
type Notifier interface {
	NewEvent(ctx context.Context, organizationID, eventID int64, orgName, eventTitle string) bool
}

// Input is the caller-supplied event content.
type Input struct {
	Title       string
	EventDate   time.Time
	Description *string
	Image       *int64
	AutoAccept  bool
	Address     models.Address
}

// Service implements event hosting: organizations create, update and delete;
// everyone browses.
type Service struct {
	store  Store
	dir    Directory
	mod    Moderator
	notify Notifier
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates an events service.
func NewService(store Store, dir Directory, mod Moderator, notify Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, dir: dir, mod: mod, notify: notify, logger: logger, now: time.Now}
}

func (s *Service) callerOrg(ctx context.Context, accountUUID string) (*models.OrgProfile, error) {
	org, err := s.dir.OrgProfileByAccountUUID(ctx, accountUUID)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, apperrors.WithDetail(apperrors.ErrForbidden, "caller is not an organization account")
		}
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "load organization profile")
	}
	return org, nil
}

// moderateDescription runs the gate over the description and returns the text
// to persist, or a rejection error.
func (s *Service) moderateDescription(ctx context.Context, description *string) (*string, error) {
	if description == nil {
		return nil, nil
	}
	res := s.mod.ModerateDefault(ctx, *description)
	if !res.Approved {
		return nil, apperrors.WithDetail(apperrors.ErrValidationRejected, res.Reason)
	}
	out := res.ModeratedText
	return &out, nil
}

// Create hosts a new event for the caller's organization and announces it to
// approved members.
func (s *Service) Create(ctx context.Context, orgAccountUUID string, in Input) (*models.Event, error) {
	org, err := s.callerOrg(ctx, orgAccountUUID)
	if err != nil {
		return nil, err
	}
	description, err := s.moderateDescription(ctx, in.Description)
	if err != nil {
		return nil, err
	}
	ev := &models.Event{
		OrganizationID: org.ID,
		Title:          in.Title,
		EventDate:      in.EventDate,
		Description:    description,
		Image:          in.Image,
		AutoAccept:     in.AutoAccept,
	}
	addr := in.Address
	if err := s.store.Create(ctx, ev, &addr); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "create event")
	}
	s.notify.NewEvent(ctx, org.ID, ev.ID, org.Name, ev.Title)
	return ev, nil
}

// Update rewrites an event owned by the caller's organization.
func (s *Service) Update(ctx context.Context, orgAccountUUID string, eventID int64, in Input) (*models.Event, error) {
	org, err := s.callerOrg(ctx, orgAccountUUID)
	if err != nil {
		return nil, err
	}
	ev, err := s.store.GetByID(ctx, eventID)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, apperrors.WithDetail(apperrors.ErrNotFound, "event not found")
		}
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "load event")
	}
	if ev.OrganizationID != org.ID {
		return nil, apperrors.WithDetail(apperrors.ErrForbidden, "event belongs to another organization")
	}
	description, err := s.moderateDescription(ctx, in.Description)
	if err != nil {
		return nil, err
	}
	ev.Title = in.Title
	ev.EventDate = in.EventDate
	ev.Description = description
	ev.Image = in.Image
	ev.AutoAccept = in.AutoAccept
	addr := in.Address
	if err := s.store.Update(ctx, ev, &addr); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "update event")
	}
	return ev, nil
}

// Delete removes an event owned by the caller's organization.
func (s *Service) Delete(ctx context.Context, orgAccountUUID string, eventID int64) error {
	org, err := s.callerOrg(ctx, orgAccountUUID)
	if err != nil {
		return err
	}
	ev, err := s.store.GetByID(ctx, eventID)
	if err != nil {
		if database.IsNoRows(err) {
			return apperrors.WithDetail(apperrors.ErrNotFound, "event not found")
		}
		return apperrors.Wrap(apperrors.ErrPersistence, "load event")
	}
	if ev.OrganizationID != org.ID {
		return apperrors.WithDetail(apperrors.ErrForbidden, "event belongs to another organization")
	}
	if _, err := s.store.Delete(ctx, ev.ID); err != nil {
		return apperrors.Wrap(apperrors.ErrPersistence, "delete event")
	}
	return nil
}

// Get returns one event with its address, organizer and image.
func (s *Service) Get(ctx context.Context, eventID int64) (*View, error) {
	v, err := s.store.GetView(ctx, eventID)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, apperrors.WithDetail(apperrors.ErrNotFound, "event not found")
		}
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "load event")
	}
	return v, nil
}

// ListUpcoming returns future events with the viewer's RSVP status attached.
func (s *Service) ListUpcoming(ctx context.Context, viewerAccountUUID string, limit, offset int) ([]View, error) {
	viewerID, err := s.dir.AccountIDByUUID(ctx, viewerAccountUUID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "resolve account")
	}
	list, err := s.store.ListUpcoming(ctx, viewerID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "list events")
	}
	return list, nil
}

// ListMine returns the caller organization's events, upcoming or past.
func (s *Service) ListMine(ctx context.Context, orgAccountUUID string, past bool) ([]View, error) {
	org, err := s.callerOrg(ctx, orgAccountUUID)
	if err != nil {
		return nil, err
	}
	list, err := s.store.ListByOrganization(ctx, org.ID, past, s.now().UTC())
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "list events")
	}
	return list, nil
}
