package posts

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/opencircle/backend/internal/moderation"
	"github.com/opencircle/backend/internal/models"
	"github.com/opencircle/backend/pkg/apperrors"
)

type fakeStore struct {
	nextID int64
	posts  map[int64]*models.Post
}

func newFakePostStore() *fakeStore {
	return &fakeStore{nextID: 1, posts: make(map[int64]*models.Post)}
}

func (f *fakeStore) Create(_ context.Context, p *models.Post) error {
	p.ID = f.nextID
	f.nextID++
	cp := *p
	f.posts[p.ID] = &cp
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id int64) (*models.Post, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) Update(_ context.Context, p *models.Post) error {
	if _, ok := f.posts[p.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *p
	f.posts[p.ID] = &cp
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id int64) (int64, error) {
	if _, ok := f.posts[id]; !ok {
		return 0, nil
	}
	delete(f.posts, id)
	return 1, nil
}

func (f *fakeStore) ListFeed(context.Context, int, int) ([]View, error) {
	var out []View
	for _, p := range f.posts {
		out = append(out, View{Post: *p})
	}
	return out, nil
}

func (f *fakeStore) ListByAuthor(_ context.Context, authorID int64, _, _ int) ([]View, error) {
	var out []View
	for _, p := range f.posts {
		if p.AuthorID == authorID {
			out = append(out, View{Post: *p})
		}
	}
	return out, nil
}

type fakeDirectory struct {
	accounts map[string]int64
	orgs     map[string]*models.OrgProfile
}

func (f fakeDirectory) AccountIDByUUID(_ context.Context, uuid string) (int64, error) {
	id, ok := f.accounts[uuid]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	return id, nil
}

func (f fakeDirectory) OrgProfileByAccountUUID(_ context.Context, uuid string) (*models.OrgProfile, error) {
	p, ok := f.orgs[uuid]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return p, nil
}

type passthroughModerator struct{}

func (passthroughModerator) ModerateDefault(_ context.Context, text string) moderation.Result {
	return moderation.Result{Approved: true, ModeratedText: text}
}

type rejectingModerator struct{}

func (rejectingModerator) ModerateDefault(_ context.Context, text string) moderation.Result {
	return moderation.Result{Approved: false, ModeratedText: text, Reason: "content contains inappropriate language: toxicity (0.91)"}
}

type fakeNotifier struct {
	previews []string
}

func (f *fakeNotifier) NewPost(_ context.Context, _, _ int64, _, preview string) bool {
	f.previews = append(f.previews, preview)
	return true
}

func testDirectory() fakeDirectory {
	return fakeDirectory{
		accounts: map[string]int64{"useruuid": 100, "orguuid": 200, "otheruuid": 201},
		orgs: map[string]*models.OrgProfile{
			"orguuid": {ID: 20, AccountID: 200, Name: "Chess Club"},
		},
	}
}

func strptr(s string) *string { return &s }

func TestCreateUserPostSkipsFanOut(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := NewService(newFakePostStore(), testDirectory(), passthroughModerator{}, notifier, nil)

	p, err := svc.Create(context.Background(), "useruuid", strptr("hello everyone"), nil)
	require.NoError(t, err)
	require.Equal(t, int64(100), p.AuthorID)
	require.Empty(t, notifier.previews, "user posts are not announced to members")
}

func TestCreateOrgPostFansOutPreview(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := NewService(newFakePostStore(), testDirectory(), passthroughModerator{}, notifier, nil)

	long := strings.Repeat("a", 150)
	_, err := svc.Create(context.Background(), "orguuid", &long, nil)
	require.NoError(t, err)
	require.Len(t, notifier.previews, 1)
	require.Equal(t, strings.Repeat("a", 100)+"...", notifier.previews[0])
}

func TestCreateRejectedPost(t *testing.T) {
	store := newFakePostStore()
	svc := NewService(store, testDirectory(), rejectingModerator{}, &fakeNotifier{}, nil)

	_, err := svc.Create(context.Background(), "useruuid", strptr("anything"), nil)
	require.ErrorIs(t, err, apperrors.ErrValidationRejected)
	require.Empty(t, store.posts)
}

func TestUpdateByStrangerForbidden(t *testing.T) {
	store := newFakePostStore()
	svc := NewService(store, testDirectory(), passthroughModerator{}, &fakeNotifier{}, nil)
	ctx := context.Background()

	p, err := svc.Create(ctx, "useruuid", strptr("original"), nil)
	require.NoError(t, err)

	_, err = svc.Update(ctx, "otheruuid", p.ID, strptr("hijacked"), nil)
	require.ErrorIs(t, err, apperrors.ErrForbidden)
	require.Equal(t, "original", *store.posts[p.ID].Description)
}

func TestDeleteOwnPost(t *testing.T) {
	store := newFakePostStore()
	svc := NewService(store, testDirectory(), passthroughModerator{}, &fakeNotifier{}, nil)
	ctx := context.Background()

	p, err := svc.Create(ctx, "useruuid", strptr("bye"), nil)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "useruuid", p.ID))
	require.ErrorIs(t, svc.Delete(ctx, "useruuid", p.ID), apperrors.ErrNotFound)
}

func TestMineFiltersByAuthor(t *testing.T) {
	store := newFakePostStore()
	svc := NewService(store, testDirectory(), passthroughModerator{}, &fakeNotifier{}, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, "useruuid", strptr("mine"), nil)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "otheruuid", strptr("theirs"), nil)
	require.NoError(t, err)

	mine, err := svc.Mine(ctx, "useruuid", 20, 0)
	require.NoError(t, err)
	require.Len(t, mine, 1)
}
