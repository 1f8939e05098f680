package posts

import (
	"context"

	"go.uber.org/zap"

	"github.com/opencircle/backend/internal/moderation"
	"github.com/opencircle/backend/internal/models"
	"github.com/opencircle/backend/internal/notifications"
	"github.com/opencircle/backend/pkg/apperrors"
	"github.com/opencircle/backend/pkg/database"
)

// Store is the persistence surface the service needs. *Repository satisfies it.
type Store interface {
	Create(ctx context.Context, p *models.Post) error
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	Update(ctx context.Context, p *models.Post) error
	Delete(ctx context.Context, id int64) (int64, error)
	ListFeed(ctx context.Context, limit, offset int) ([]View, error)
	ListByAuthor(ctx context.Context, authorID int64, limit, offset int) ([]View, error)
}

// Directory resolves accounts and profiles. The accounts repository satisfies it.
type Directory interface {
	AccountIDByUUID(ctx context.Context, accountUUID string) (int64, error)
	OrgProfileByAccountUUID(ctx context.Context, accountUUID string) (*models.OrgProfile, error)
}

// Moderator screens post descriptions. *moderation.Gate satisfies it.
type Moderator interface {
	ModerateDefault(ctx context.Context, text string) moderation.Result
}

// Notifier announces organization posts to approved members.
type Notifier interface {
	NewPost(ctx context.Context, organizationID, postID int64, orgName, preview string) bool
}

// Service implements post authoring and the feed.
type Service struct {
	store  Store
	dir    Directory
	mod    Moderator
	notify Notifier
	logger *zap.Logger
}

// NewService creates a posts service.
func NewService(store Store, dir Directory, mod Moderator, notify Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, dir: dir, mod: mod, notify: notify, logger: logger}
}

func (s *Service) moderate(ctx context.Context, description *string) (*string, error) {
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

// Create authors a post. When the author is an organization, approved members
// are notified with a preview.
func (s *Service) Create(ctx context.Context, accountUUID string, description *string, image *int64) (*models.Post, error) {
	authorID, err := s.dir.AccountIDByUUID(ctx, accountUUID)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, apperrors.WithDetail(apperrors.ErrNotFound, "account not found")
		}
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "resolve account")
	}
	moderated, err := s.moderate(ctx, description)
	if err != nil {
		return nil, err
	}
	p := &models.Post{AuthorID: authorID, Description: moderated, Image: image}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "create post")
	}

	if org, err := s.dir.OrgProfileByAccountUUID(ctx, accountUUID); err == nil {
		preview := ""
		if p.Description != nil {
			preview = notifications.Preview(*p.Description)
		}
		s.notify.NewPost(ctx, org.ID, p.ID, org.Name, preview)
	} else if !database.IsNoRows(err) {
		s.logger.Warn("resolve author organization", zap.Error(err))
	}
	return p, nil
}

// Update rewrites a post owned by the caller.
func (s *Service) Update(ctx context.Context, accountUUID string, postID int64, description *string, image *int64) (*models.Post, error) {
	p, err := s.owned(ctx, accountUUID, postID)
	if err != nil {
		return nil, err
	}
	moderated, err := s.moderate(ctx, description)
	if err != nil {
		return nil, err
	}
	p.Description = moderated
	p.Image = image
	if err := s.store.Update(ctx, p); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "update post")
	}
	return p, nil
}

// Delete removes a post owned by the caller.
func (s *Service) Delete(ctx context.Context, accountUUID string, postID int64) error {
	p, err := s.owned(ctx, accountUUID, postID)
	if err != nil {
		return err
	}
	if _, err := s.store.Delete(ctx, p.ID); err != nil {
		return apperrors.Wrap(apperrors.ErrPersistence, "delete post")
	}
	return nil
}

func (s *Service) owned(ctx context.Context, accountUUID string, postID int64) (*models.Post, error) {
	p, err := s.store.GetByID(ctx, postID)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, apperrors.WithDetail(apperrors.ErrNotFound, "post not found")
		}
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "load post")
	}
	accountID, err := s.dir.AccountIDByUUID(ctx, accountUUID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "resolve account")
	}
	if p.AuthorID != accountID {
		return nil, apperrors.WithDetail(apperrors.ErrForbidden, "post belongs to another account")
	}
	return p, nil
}

// Feed returns the newest posts across all authors.
func (s *Service) Feed(ctx context.Context, limit, offset int) ([]View, error) {
	list, err := s.store.ListFeed(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "list posts")
	}
	return list, nil
}

// Mine returns the caller's posts.
func (s *Service) Mine(ctx context.Context, accountUUID string, limit, offset int) ([]View, error) {
	accountID, err := s.dir.AccountIDByUUID(ctx, accountUUID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "resolve account")
	}
	list, err := s.store.ListByAuthor(ctx, accountID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, "list posts")
	}
	return list, nil
}
