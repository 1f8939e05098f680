package memberships

import (
	"context"

	"go.uber.org/zap"

	"github.com/opencircle/backend/internal/models"
	"github.com/opencircle/backend/pkg/apperrors"
	"github.com/opencircle/backend/pkg/database"
)

// Store is the persistence surface the service needs. *Repository satisfies it.
type Store interface {
	Create(ctx context.Context, m *models.Membership) error
	GetByID(ctx context.Context, id int64) (*models.Membership, error)
	GetByOrgAndUser(ctx context.Context, organizationID, userID int64) (*models.Membership, error)
	UpdateStatus(ctx context.Context, id int64, status models.MembershipStatus) error
	Delete(ctx context.Context, id int64) (int64, error)
	ListByOrganization(ctx context.Context, organizationID int64, status models.MembershipStatus) ([]MemberView, error)
	ListByUser(ctx context.Context, userID int64, status models.MembershipStatus) ([]OrganizationView, error)
	StatusesForUser(ctx context.Context, userID int64, organizationIDs []int64) (map[int64]models.MembershipStatus, error)
}

// Profiles resolves the caller's profile rows. The accounts repository
// satisfies it.
type Profiles interface {
	UserProfileByAccountUUID(ctx context.Context, accountUUID string) (*models.UserProfile, error)
	UserProfileByID(ctx context.Context, id int64) (*models.UserProfile, error)
	OrgProfileByAccountUUID(ctx context.Context, accountUUID string) (*models.OrgProfile, error)
	OrgProfileByID(ctx context.Context, id int64) (*models.OrgProfile, error)
}

// Notifier fires the membership notifications. The notifications dispatcher
// satisfies it; delivery is best-effort.
type Notifier interface {
	MembershipRequested(ctx context.Context, orgAccountID int64, userName string, organizationID int64) bool
	MembershipAccepted(ctx context.Context, userAccountID, organizationID int64, orgName string) bool
}

// Service implements the membership lifecycle:
// pending -> approved -> left, pending -> rejected -> pending (resubmission).
type Service struct {
	store    Store
	profiles Profiles
	notify   Notifier
	logger   *zap.Logger
}

// NewService creates a membership service.
func NewService(store Store, profiles Profiles, notify Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, profiles: profiles, notify: notify, logger: logger}
}

func (s *Service) userProfile(ctx context.Context, accountUUID string) (*models.UserProfile, error) {
	p, err := s.profiles.UserProfileByAccountUUID(ctx, accountUUID)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, apperrors.WithDetail(apperrors.ErrForbidden, "caller is not a user account")
		}
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "load user profile")
	}
	return p, nil
}

func (s *Service) orgProfile(ctx context.Context, accountUUID string) (*models.OrgProfile, error) {
	p, err := s.profiles.OrgProfileByAccountUUID(ctx, accountUUID)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, apperrors.WithDetail(apperrors.ErrForbidden, "caller is not an organization account")
		}
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "load organization profile")
	}
	return p, nil
}

// Join submits (or resubmits) a membership request from the caller to the
// organization. Rejected and left memberships are reset to pending; pending
// and approved ones conflict.
func (s *Service) Join(ctx context.Context, userAccountUUID string, organizationID int64) (*models.Membership, error) {
	user, err := s.userProfile(ctx, userAccountUUID)
	if err != nil {
		return nil, err
	}
	org, err := s.profiles.OrgProfileByID(ctx, organizationID)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, apperrors.WithDetail(apperrors.ErrNotFound, "organization not found")
		}
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "load organization")
	}

	existing, err := s.store.GetByOrgAndUser(ctx, organizationID, user.ID)
	switch {
	case err == nil:
		switch existing.Status {
		case models.MembershipRejected, models.MembershipLeft:
			if err := s.store.UpdateStatus(ctx, existing.ID, models.MembershipPending); err != nil {
				return nil, apperrors.Wrap(apperrors.ErrPersistence, "resubmit membership")
			}
			existing.Status = models.MembershipPending
			s.notify.MembershipRequested(ctx, org.AccountID, user.FirstName+" "+user.LastName, organizationID)
			return existing, nil
		default:
			return nil, apperrors.WithDetail(apperrors.ErrConflict, "membership request already exists")
		}
	case database.IsNoRows(err):
		// fall through to create
	default:
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "load membership")
	}

	m := &models.Membership{
		OrganizationID: organizationID,
		UserID:         user.ID,
		Status:         models.MembershipPending,
	}
	if err := s.store.Create(ctx, m); err != nil {
		// Concurrent joins race on the unique constraint.
		if database.IsUniqueViolation(err) {
			return nil, apperrors.WithDetail(apperrors.ErrConflict, "membership request already exists")
		}
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "create membership")
	}
	s.notify.MembershipRequested(ctx, org.AccountID, user.FirstName+" "+user.LastName, organizationID)
	return m, nil
}

// Decide approves or rejects a pending membership request. Only the owning
// organization may decide, and only pending requests are decidable.
func (s *Service) Decide(ctx context.Context, orgAccountUUID string, membershipID int64, status models.MembershipStatus) (*models.Membership, error) {
	if status != models.MembershipApproved && status != models.MembershipRejected {
		return nil, apperrors.WithDetail(apperrors.ErrValidationRejected, "status must be approved or rejected")
	}
	org, err := s.orgProfile(ctx, orgAccountUUID)
	if err != nil {
		return nil, err
	}
	m, err := s.store.GetByID(ctx, membershipID)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, apperrors.WithDetail(apperrors.ErrNotFound, "membership request not found")
		}
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "load membership")
	}
	if m.OrganizationID != org.ID {
		return nil, apperrors.WithDetail(apperrors.ErrForbidden, "membership belongs to another organization")
	}
	if m.Status != models.MembershipPending {
		return nil, apperrors.WithDetail(apperrors.ErrInvalidStateTransition, "only pending requests can be decided")
	}
	if err := s.store.UpdateStatus(ctx, m.ID, status); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "update membership")
	}
	m.Status = status
	if status == models.MembershipApproved {
		s.notifyAccepted(ctx, m, org)
	}
	return m, nil
}

func (s *Service) notifyAccepted(ctx context.Context, m *models.Membership, org *models.OrgProfile) {
	userAccountID, err := s.memberAccountID(ctx, m.UserID)
	if err != nil {
		s.logger.Warn("resolve member account for notification", zap.Error(err))
		return
	}
	s.notify.MembershipAccepted(ctx, userAccountID, m.OrganizationID, org.Name)
}

// memberAccountID maps a user profile id to its account id via the
// organization's member listing join.
func (s *Service) memberAccountID(ctx context.Context, userID int64) (int64, error) {
	p, err := s.profiles.UserProfileByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return p.AccountID, nil
}

// Leave soft-leaves an organization: approved -> left. Anything else is an
// invalid transition.
func (s *Service) Leave(ctx context.Context, userAccountUUID string, organizationID int64) error {
	user, err := s.userProfile(ctx, userAccountUUID)
	if err != nil {
		return err
	}
	m, err := s.store.GetByOrgAndUser(ctx, organizationID, user.ID)
	if err != nil {
		if database.IsNoRows(err) {
			return apperrors.WithDetail(apperrors.ErrNotFound, "membership not found")
		}
		return apperrors.Wrap(apperrors.ErrPersistence, "load membership")
	}
	if m.Status != models.MembershipApproved {
		return apperrors.WithDetail(apperrors.ErrInvalidStateTransition, "only approved memberships can be left")
	}
	if err := s.store.UpdateStatus(ctx, m.ID, models.MembershipLeft); err != nil {
		return apperrors.Wrap(apperrors.ErrPersistence, "update membership")
	}
	return nil
}

// Remove hard-deletes the caller's membership row regardless of state.
// Deprecated: Leave is the canonical exit; this erases the history needed for
// rejoin handling.
func (s *Service) Remove(ctx context.Context, userAccountUUID string, organizationID int64) error {
	user, err := s.userProfile(ctx, userAccountUUID)
	if err != nil {
		return err
	}
	m, err := s.store.GetByOrgAndUser(ctx, organizationID, user.ID)
	if err != nil {
		if database.IsNoRows(err) {
			return apperrors.WithDetail(apperrors.ErrNotFound, "membership not found")
		}
		return apperrors.Wrap(apperrors.ErrPersistence, "load membership")
	}
	if _, err := s.store.Delete(ctx, m.ID); err != nil {
		return apperrors.Wrap(apperrors.ErrPersistence, "delete membership")
	}
	return nil
}

// StatusLookup returns the caller's membership status per organization id.
// Organizations the caller never interacted with are absent from the result.
func (s *Service) StatusLookup(ctx context.Context, userAccountUUID string, organizationIDs []int64) (map[int64]models.MembershipStatus, error) {
	user, err := s.userProfile(ctx, userAccountUUID)
	if err != nil {
		return nil, err
	}
	statuses, err := s.store.StatusesForUser(ctx, user.ID, organizationIDs)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "lookup membership statuses")
	}
	return statuses, nil
}

// ListMembers returns the caller organization's members, optionally filtered
// by status.
func (s *Service) ListMembers(ctx context.Context, orgAccountUUID string, status models.MembershipStatus) ([]MemberView, error) {
	if status != "" && !models.ValidMembershipStatus(status) {
		return nil, apperrors.WithDetail(apperrors.ErrValidationRejected, "invalid membership status")
	}
	org, err := s.orgProfile(ctx, orgAccountUUID)
	if err != nil {
		return nil, err
	}
	list, err := s.store.ListByOrganization(ctx, org.ID, status)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "list members")
	}
	return list, nil
}

// ListMine returns the caller user's organizations, optionally filtered by
// status.
func (s *Service) ListMine(ctx context.Context, userAccountUUID string, status models.MembershipStatus) ([]OrganizationView, error) {
	if status != "" && !models.ValidMembershipStatus(status) {
		return nil, apperrors.WithDetail(apperrors.ErrValidationRejected, "invalid membership status")
	}
	user, err := s.userProfile(ctx, userAccountUUID)
	if err != nil {
		return nil, err
	}
	list, err := s.store.ListByUser(ctx, user.ID, status)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "list memberships")
	}
	return list, nil
}
