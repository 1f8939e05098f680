package shares

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/opencircle/backend/internal/moderation"
	"github.com/opencircle/backend/internal/models"
	"github.com/opencircle/backend/pkg/apperrors"
)

type fakeStore struct {
	nextID int64
	shares map[int64]*models.Share
}

func newFakeShareStore() *fakeStore {
	return &fakeStore{nextID: 1, shares: make(map[int64]*models.Share)}
}

func (f *fakeStore) Create(_ context.Context, sh *models.Share) error {
	for _, existing := range f.shares {
		if existing.AccountUUID == sh.AccountUUID && existing.ContentID == sh.ContentID && existing.ContentType == sh.ContentType {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	sh.ID = f.nextID
	f.nextID++
	cp := *sh
	f.shares[sh.ID] = &cp
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id int64) (*models.Share, error) {
	sh, ok := f.shares[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *sh
	return &cp, nil
}

func (f *fakeStore) Delete(_ context.Context, id int64, accountUUID string) (int64, error) {
	sh, ok := f.shares[id]
	if !ok || sh.AccountUUID != accountUUID {
		return 0, nil
	}
	delete(f.shares, id)
	return 1, nil
}

func (f *fakeStore) ListByAccount(_ context.Context, accountUUID string) ([]models.Share, error) {
	var out []models.Share
	for _, sh := range f.shares {
		if sh.AccountUUID == accountUUID {
			out = append(out, *sh)
		}
	}
	return out, nil
}

func (f *fakeStore) CountForContent(_ context.Context, contentID int64, contentType models.ShareContentType) (int, error) {
	count := 0
	for _, sh := range f.shares {
		if sh.ContentID == contentID && sh.ContentType == contentType {
			count++
		}
	}
	return count, nil
}

type fakeTargets struct {
	posts  map[int64]bool
	events map[int64]bool
}

func (f fakeTargets) PostExists(_ context.Context, id int64) (bool, error)  { return f.posts[id], nil }
func (f fakeTargets) EventExists(_ context.Context, id int64) (bool, error) { return f.events[id], nil }

type passthroughModerator struct{}

func (passthroughModerator) ModerateDefault(_ context.Context, text string) moderation.Result {
	return moderation.Result{Approved: true, ModeratedText: text}
}

type rejectingModerator struct{}

func (rejectingModerator) ModerateDefault(_ context.Context, text string) moderation.Result {
	return moderation.Result{Approved: false, ModeratedText: text, Reason: "content contains inappropriate language: insults (0.88)"}
}

func testTargets() fakeTargets {
	return fakeTargets{posts: map[int64]bool{1: true}, events: map[int64]bool{5: true}}
}

func TestShareExistingPost(t *testing.T) {
	svc := NewService(newFakeShareStore(), testTargets(), passthroughModerator{}, nil)

	sh, err := svc.Create(context.Background(), "useruuid", 1, models.SharePost, nil)
	require.NoError(t, err)
	require.Equal(t, "useruuid", sh.AccountUUID)
	require.Equal(t, models.SharePost, sh.ContentType)
}

func TestShareMissingContent(t *testing.T) {
	svc := NewService(newFakeShareStore(), testTargets(), passthroughModerator{}, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, "useruuid", 99, models.SharePost, nil)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.Create(ctx, "useruuid", 99, models.ShareEvent, nil)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestShareInvalidContentType(t *testing.T) {
	svc := NewService(newFakeShareStore(), testTargets(), passthroughModerator{}, nil)
	_, err := svc.Create(context.Background(), "useruuid", 1, models.ShareContentType(9), nil)
	require.ErrorIs(t, err, apperrors.ErrValidationRejected)
}

func TestShareTwiceConflicts(t *testing.T) {
	svc := NewService(newFakeShareStore(), testTargets(), passthroughModerator{}, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, "useruuid", 1, models.SharePost, nil)
	require.NoError(t, err)

	_, err = svc.Create(ctx, "useruuid", 1, models.SharePost, nil)
	require.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestShareRejectedComment(t *testing.T) {
	store := newFakeShareStore()
	svc := NewService(store, testTargets(), rejectingModerator{}, nil)

	comment := "anything"
	_, err := svc.Create(context.Background(), "useruuid", 1, models.SharePost, &comment)
	require.ErrorIs(t, err, apperrors.ErrValidationRejected)
	require.Empty(t, store.shares)
}

func TestDeleteShareOwnerScoped(t *testing.T) {
	store := newFakeShareStore()
	svc := NewService(store, testTargets(), passthroughModerator{}, nil)
	ctx := context.Background()

	sh, err := svc.Create(ctx, "useruuid", 1, models.SharePost, nil)
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(ctx, "otheruuid", sh.ID), apperrors.ErrNotFound)
	require.NoError(t, svc.Delete(ctx, "useruuid", sh.ID))
}

func TestCountForContent(t *testing.T) {
	store := newFakeShareStore()
	svc := NewService(store, testTargets(), passthroughModerator{}, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, "useruuid", 1, models.SharePost, nil)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "otheruuid", 1, models.SharePost, nil)
	require.NoError(t, err)

	count, err := svc.Count(ctx, 1, models.SharePost)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	_, err = svc.Count(ctx, 1, models.ShareContentType(0))
	require.ErrorIs(t, err, apperrors.ErrValidationRejected)
}
