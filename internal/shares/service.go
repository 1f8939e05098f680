package shares

import (
	"context"

	"go.uber.org/zap"

	"github.com/opencircle/backend/internal/moderation"
	"github.com/opencircle/backend/internal/models"
	"github.com/opencircle/backend/pkg/apperrors"
	"github.com/opencircle/backend/pkg/database"
)

// Store is the persistence surface the service needs. *Repository satisfies it.
type Store interface {
	Create(ctx context.Context, sh *models.Share) error
	GetByID(ctx context.Context, id int64) (*models.Share, error)
	Delete(ctx context.Context, id int64, accountUUID string) (int64, error)
	ListByAccount(ctx context.Context, accountUUID string) ([]models.Share, error)
	CountForContent(ctx context.Context, contentID int64, contentType models.ShareContentType) (int, error)
}

// Targets verifies the shared content exists.
type Targets interface {
	PostExists(ctx context.Context, postID int64) (bool, error)
	EventExists(ctx context.Context, eventID int64) (bool, error)
}

// Moderator screens share comments. *moderation.Gate satisfies it.
type Moderator interface {
	ModerateDefault(ctx context.Context, text string) moderation.Result
}

// Service implements re-sharing posts and events.
type Service struct {
	store   Store
	targets Targets
	mod     Moderator
	logger  *zap.Logger
}

// NewService creates a shares service.
func NewService(store Store, targets Targets, mod Moderator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, targets: targets, mod: mod, logger: logger}
}

// Create shares a post or event on the caller's profile, at most once per
// piece of content.
func (s *Service) Create(ctx context.Context, accountUUID string, contentID int64, contentType models.ShareContentType, comment *string) (*models.Share, error) {
	var exists bool
	var err error
	switch contentType {
	case models.SharePost:
		exists, err = s.targets.PostExists(ctx, contentID)
	case models.ShareEvent:
		exists, err = s.targets.EventExists(ctx, contentID)
	default:
		return nil, apperrors.WithDetail(apperrors.ErrValidationRejected, "content_type must be 1 (post) or 2 (event)")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "check content")
	}
	if !exists {
		return nil, apperrors.WithDetail(apperrors.ErrNotFound, "shared content not found")
	}

	if comment != nil {
		res := s.mod.ModerateDefault(ctx, *comment)
		if !res.Approved {
			return nil, apperrors.WithDetail(apperrors.ErrValidationRejected, res.Reason)
		}
		out := res.ModeratedText
		comment = &out
	}

	sh := &models.Share{
		AccountUUID: accountUUID,
		ContentID:   contentID,
		ContentType: contentType,
		Comment:     comment,
	}
	if err := s.store.Create(ctx, sh); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperrors.WithDetail(apperrors.ErrConflict, "content already shared")
		}
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "create share")
	}
	return sh, nil
}

// Delete removes a share owned by the caller.
func (s *Service) Delete(ctx context.Context, accountUUID string, shareID int64) error {
	n, err := s.store.Delete(ctx, shareID, accountUUID)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrPersistence, "delete share")
	}
	if n == 0 {
		return apperrors.WithDetail(apperrors.ErrNotFound, "share not found")
	}
	return nil
}

// Mine returns the caller's shares.
func (s *Service) Mine(ctx context.Context, accountUUID string) ([]models.Share, error) {
	list, err := s.store.ListByAccount(ctx, accountUUID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "list shares")
	}
	return list, nil
}

// Count returns how many times a piece of content was shared.
func (s *Service) Count(ctx context.Context, contentID int64, contentType models.ShareContentType) (int, error) {
	if contentType != models.SharePost && contentType != models.ShareEvent {
		return 0, apperrors.WithDetail(apperrors.ErrValidationRejected, "content_type must be 1 (post) or 2 (event)")
	}
	count, err := s.store.CountForContent(ctx, contentID, contentType)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrPersistence, "count shares")
	}
	return count, nil
}
