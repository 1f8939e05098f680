package comments

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/opencircle/backend/internal/moderation"
	"github.com/opencircle/backend/internal/models"
	"github.com/opencircle/backend/pkg/apperrors"
)

type fakeStore struct {
	nextID   int64
	comments map[int64]*models.Comment
}

func newFakeCommentStore() *fakeStore {
	return &fakeStore{nextID: 1, comments: make(map[int64]*models.Comment)}
}

func (f *fakeStore) Create(_ context.Context, cm *models.Comment) error {
	cm.ID = f.nextID
	f.nextID++
	cp := *cm
	f.comments[cm.ID] = &cp
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id int64) (*models.Comment, error) {
	cm, ok := f.comments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *cm
	return &cp, nil
}

func (f *fakeStore) Update(_ context.Context, cm *models.Comment) error {
	if _, ok := f.comments[cm.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *cm
	f.comments[cm.ID] = &cp
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id int64) (int64, error) {
	if _, ok := f.comments[id]; !ok {
		return 0, nil
	}
	delete(f.comments, id)
	return 1, nil
}

func (f *fakeStore) ListByPost(_ context.Context, postID int64) ([]View, error) {
	var out []View
	for _, cm := range f.comments {
		if cm.PostID != nil && *cm.PostID == postID {
			out = append(out, View{Comment: *cm})
		}
	}
	return out, nil
}

func (f *fakeStore) ListByEvent(_ context.Context, eventID int64) ([]View, error) {
	var out []View
	for _, cm := range f.comments {
		if cm.EventID != nil && *cm.EventID == eventID {
			out = append(out, View{Comment: *cm})
		}
	}
	return out, nil
}

type fakeDirectory map[string]int64

func (f fakeDirectory) AccountIDByUUID(_ context.Context, uuid string) (int64, error) {
	id, ok := f[uuid]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	return id, nil
}

type fakeTargets struct {
	posts  map[int64]bool
	events map[int64]bool
}

func (f fakeTargets) PostExists(_ context.Context, id int64) (bool, error)  { return f.posts[id], nil }
func (f fakeTargets) EventExists(_ context.Context, id int64) (bool, error) { return f.events[id], nil }

type censoringModerator struct{}

func (censoringModerator) ModerateDefault(_ context.Context, text string) moderation.Result {
	if text == "dirty" {
		return moderation.Result{Approved: true, ModeratedText: "d****", Reason: "content was automatically censored due to profanity"}
	}
	if text == "toxic" {
		return moderation.Result{Approved: false, ModeratedText: text, Reason: "content contains inappropriate language: toxicity (0.91)"}
	}
	return moderation.Result{Approved: true, ModeratedText: text}
}

func newTestService(store *fakeStore) *Service {
	dir := fakeDirectory{"useruuid": 100, "otheruuid": 201}
	targets := fakeTargets{posts: map[int64]bool{1: true}, events: map[int64]bool{5: true}}
	return NewService(store, dir, targets, censoringModerator{}, nil)
}

func TestCommentOnPost(t *testing.T) {
	store := newFakeCommentStore()
	svc := newTestService(store)

	cm, err := svc.CreateOnPost(context.Background(), "useruuid", 1, "nice one")
	require.NoError(t, err)
	require.Equal(t, int64(100), cm.AuthorID)
	require.NotNil(t, cm.PostID)
	require.Nil(t, cm.EventID)
}

func TestCommentOnMissingTarget(t *testing.T) {
	svc := newTestService(newFakeCommentStore())
	ctx := context.Background()

	_, err := svc.CreateOnPost(ctx, "useruuid", 99, "hello")
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.CreateOnEvent(ctx, "useruuid", 99, "hello")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCommentCensoredTextPersisted(t *testing.T) {
	store := newFakeCommentStore()
	svc := newTestService(store)

	cm, err := svc.CreateOnEvent(context.Background(), "useruuid", 5, "dirty")
	require.NoError(t, err)
	require.Equal(t, "d****", cm.Message, "the censored text is what gets stored")
}

func TestCommentRejected(t *testing.T) {
	store := newFakeCommentStore()
	svc := newTestService(store)

	_, err := svc.CreateOnPost(context.Background(), "useruuid", 1, "toxic")
	require.ErrorIs(t, err, apperrors.ErrValidationRejected)
	require.Empty(t, store.comments)
}

func TestUpdateByStrangerForbidden(t *testing.T) {
	store := newFakeCommentStore()
	svc := newTestService(store)
	ctx := context.Background()

	cm, err := svc.CreateOnPost(ctx, "useruuid", 1, "original")
	require.NoError(t, err)

	_, err = svc.Update(ctx, "otheruuid", cm.ID, "hijacked")
	require.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestDeleteOwnComment(t *testing.T) {
	store := newFakeCommentStore()
	svc := newTestService(store)
	ctx := context.Background()

	cm, err := svc.CreateOnPost(ctx, "useruuid", 1, "bye")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "useruuid", cm.ID))
	require.ErrorIs(t, svc.Delete(ctx, "useruuid", cm.ID), apperrors.ErrNotFound)
}

func TestListForPostFilters(t *testing.T) {
	store := newFakeCommentStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.CreateOnPost(ctx, "useruuid", 1, "on the post")
	require.NoError(t, err)
	_, err = svc.CreateOnEvent(ctx, "useruuid", 5, "on the event")
	require.NoError(t, err)

	postComments, err := svc.ListForPost(ctx, 1)
	require.NoError(t, err)
	require.Len(t, postComments, 1)

	eventComments, err := svc.ListForEvent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, eventComments, 1)
}
