package comments

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
	Create(ctx context.Context, cm *models.Comment) error
	GetByID(ctx context.Context, id int64) (*models.Comment, error)
	Update(ctx context.Context, cm *models.Comment) error
	Delete(ctx context.Context, id int64) (int64, error)
	ListByPost(ctx context.Context, postID int64) ([]View, error)
	ListByEvent(ctx context.Context, eventID int64) ([]View, error)
}

// Directory resolves account ids. The accounts repository satisfies it.
type Directory interface {
	AccountIDByUUID(ctx context.Context, accountUUID string) (int64, error)
}

// Targets verifies the commented-on content exists. The posts and events
// repositories satisfy the two sides.
type Targets interface {
	PostExists(ctx context.Context, postID int64) (bool, error)
	EventExists(ctx context.Context, eventID int64) (bool, error)
}

// Moderator screens comment messages. *moderation.Gate satisfies it.
type Moderator interface {
	ModerateDefault(ctx context.Context, text string) moderation.Result
}

// Service implements commenting on posts and events.
type Service struct {
	store   Store
	dir     Directory
	targets Targets
	mod     Moderator
	logger  *zap.Logger
}

// NewService creates a comments service.
func NewService(store Store, dir Directory, targets Targets, mod Moderator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, dir: dir, targets: targets, mod: mod, logger: logger}
}

func (s *Service) moderate(ctx context.Context, message string) (string, error) {
	res := s.mod.ModerateDefault(ctx, message)
	if !res.Approved {
		return "", apperrors.WithDetail(apperrors.ErrValidationRejected, res.Reason)
	}
	return res.ModeratedText, nil
}

// CreateOnPost comments on a post.
func (s *Service) CreateOnPost(ctx context.Context, accountUUID string, postID int64, message string) (*models.Comment, error) {
	exists, err := s.targets.PostExists(ctx, postID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "check post")
	}
	if !exists {
		return nil, apperrors.WithDetail(apperrors.ErrNotFound, "post not found")
	}
	return s.create(ctx, accountUUID, &postID, nil, message)
}

// CreateOnEvent comments on an event.
func (s *Service) CreateOnEvent(ctx context.Context, accountUUID string, eventID int64, message string) (*models.Comment, error) {
	exists, err := s.targets.EventExists(ctx, eventID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "check event")
	}
	if !exists {
		return nil, apperrors.WithDetail(apperrors.ErrNotFound, "event not found")
	}
	return s.create(ctx, accountUUID, nil, &eventID, message)
}

func (s *Service) create(ctx context.Context, accountUUID string, postID, eventID *int64, message string) (*models.Comment, error) {
	authorID, err := s.dir.AccountIDByUUID(ctx, accountUUID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "resolve account")
	}
	moderated, err := s.moderate(ctx, message)
	if err != nil {
		return nil, err
	}
	cm := &models.Comment{PostID: postID, EventID: eventID, AuthorID: authorID, Message: moderated}
	if err := s.store.Create(ctx, cm); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "create comment")
	}
	return cm, nil
}

// Update rewrites a comment owned by the caller.
func (s *Service) Update(ctx context.Context, accountUUID string, commentID int64, message string) (*models.Comment, error) {
	cm, err := s.owned(ctx, accountUUID, commentID)
	if err != nil {
		return nil, err
	}
	moderated, err := s.moderate(ctx, message)
	if err != nil {
		return nil, err
	}
	cm.Message = moderated
	if err := s.store.Update(ctx, cm); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "update comment")
	}
	return cm, nil
}

// Delete removes a comment owned by the caller.
func (s *Service) Delete(ctx context.Context, accountUUID string, commentID int64) error {
	cm, err := s.owned(ctx, accountUUID, commentID)
	if err != nil {
		return err
	}
	if _, err := s.store.Delete(ctx, cm.ID); err != nil {
		return apperrors.Wrap(apperrors.ErrPersistence, "delete comment")
	}
	return nil
}

func (s *Service) owned(ctx context.Context, accountUUID string, commentID int64) (*models.Comment, error) {
	cm, err := s.store.GetByID(ctx, commentID)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, apperrors.WithDetail(apperrors.ErrNotFound, "comment not found")
		}
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "load comment")
	}
	accountID, err := s.dir.AccountIDByUUID(ctx, accountUUID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "resolve account")
	}
	if cm.AuthorID != accountID {
		return nil, apperrors.WithDetail(apperrors.ErrForbidden, "comment belongs to another account")
	}
	return cm, nil
}

// ListForPost returns a post's comments.
func (s *Service) ListForPost(ctx context.Context, postID int64) ([]View, error) {
	list, err := s.store.ListByPost(ctx, postID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "list comments")
	}
	return list, nil
}

// ListForEvent returns an event's comments.
func (s *Service) ListForEvent(ctx context.Context, eventID int64) ([]View, error) {
	list, err := s.store.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "list comments")
	}
	return list, nil
}
