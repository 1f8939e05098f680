package events

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/opencircle/backend/internal/moderation"
	"github.com/opencircle/backend/internal/models"
	"github.com/opencircle/backend/pkg/apperrors"
)

type fakeStore struct {
	nextID int64
	events map[int64]*models.Event
}

func newFakeEventStore() *fakeStore {
	return &fakeStore{nextID: 1, events: make(map[int64]*models.Event)}
}

func (f *fakeStore) Create(_ context.Context, ev *models.Event, _ *models.Address) error {
	ev.ID = f.nextID
	f.nextID++
	cp := *ev
	f.events[ev.ID] = &cp
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id int64) (*models.Event, error) {
	ev, ok := f.events[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *ev
	return &cp, nil
}

func (f *fakeStore) GetView(_ context.Context, id int64) (*View, error) {
	ev, ok := f.events[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &View{Event: *ev}, nil
}

func (f *fakeStore) Update(_ context.Context, ev *models.Event, _ *models.Address) error {
	if _, ok := f.events[ev.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *ev
	f.events[ev.ID] = &cp
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id int64) (int64, error) {
	if _, ok := f.events[id]; !ok {
		return 0, nil
	}
	delete(f.events, id)
	return 1, nil
}

func (f *fakeStore) ListUpcoming(context.Context, int64, int, int) ([]View, error) {
	var out []View
	for _, ev := range f.events {
		out = append(out, View{Event: *ev})
	}
	return out, nil
}

func (f *fakeStore) ListByOrganization(_ context.Context, organizationID int64, _ bool, _ time.Time) ([]View, error) {
	var out []View
	for _, ev := range f.events {
		if ev.OrganizationID == organizationID {
			out = append(out, View{Event: *ev})
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

// approveAll approves everything; rejectAll rejects with a fixed reason.
type approveAll struct{}

func (approveAll) ModerateDefault(_ context.Context, text string) moderation.Result {
	return moderation.Result{Approved: true, ModeratedText: text}
}

type rejectAll struct{}

func (rejectAll) ModerateDefault(_ context.Context, text string) moderation.Result {
	return moderation.Result{Approved: false, ModeratedText: text, Reason: "content contains inappropriate language: insults (0.88)"}
}

type fakeNotifier struct {
	announced []int64 // event ids
}

func (f *fakeNotifier) NewEvent(_ context.Context, _, eventID int64, _, _ string) bool {
	f.announced = append(f.announced, eventID)
	return true
}

func testDirectory() fakeDirectory {
	return fakeDirectory{
		accounts: map[string]int64{"useruuid": 100, "orguuid": 200, "otheruuid": 201},
		orgs: map[string]*models.OrgProfile{
			"orguuid":   {ID: 20, AccountID: 200, Name: "Chess Club"},
			"otheruuid": {ID: 21, AccountID: 201, Name: "Book Club"},
		},
	}
}

func sampleInput() Input {
	desc := "weekly blitz night, all levels welcome"
	return Input{
		Title:       "Open Night",
		EventDate:   time.Now().Add(48 * time.Hour),
		Description: &desc,
		AutoAccept:  true,
		Address:     models.Address{City: "Berlin", Country: "Germany"},
	}
}

func TestCreateAnnouncesToMembers(t *testing.T) {
	store := newFakeEventStore()
	notifier := &fakeNotifier{}
	svc := NewService(store, testDirectory(), approveAll{}, notifier, nil)

	ev, err := svc.Create(context.Background(), "orguuid", sampleInput())
	require.NoError(t, err)
	require.Equal(t, int64(20), ev.OrganizationID)
	require.Equal(t, []int64{ev.ID}, notifier.announced)
}

func TestCreateByUserForbidden(t *testing.T) {
	svc := NewService(newFakeEventStore(), testDirectory(), approveAll{}, &fakeNotifier{}, nil)
	_, err := svc.Create(context.Background(), "useruuid", sampleInput())
	require.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestCreateRejectedDescription(t *testing.T) {
	store := newFakeEventStore()
	notifier := &fakeNotifier{}
	svc := NewService(store, testDirectory(), rejectAll{}, notifier, nil)

	_, err := svc.Create(context.Background(), "orguuid", sampleInput())
	require.ErrorIs(t, err, apperrors.ErrValidationRejected)
	require.Contains(t, err.Error(), "insults")
	require.Empty(t, store.events, "a rejected event is never persisted")
	require.Empty(t, notifier.announced)
}

func TestCreateNilDescriptionSkipsModeration(t *testing.T) {
	svc := NewService(newFakeEventStore(), testDirectory(), rejectAll{}, &fakeNotifier{}, nil)
	in := sampleInput()
	in.Description = nil

	ev, err := svc.Create(context.Background(), "orguuid", in)
	require.NoError(t, err)
	require.Nil(t, ev.Description)
}

func TestUpdateWrongOrganization(t *testing.T) {
	store := newFakeEventStore()
	svc := NewService(store, testDirectory(), approveAll{}, &fakeNotifier{}, nil)
	ctx := context.Background()

	ev, err := svc.Create(ctx, "orguuid", sampleInput())
	require.NoError(t, err)

	_, err = svc.Update(ctx, "otheruuid", ev.ID, sampleInput())
	require.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestUpdateUnknownEvent(t *testing.T) {
	svc := NewService(newFakeEventStore(), testDirectory(), approveAll{}, &fakeNotifier{}, nil)
	_, err := svc.Update(context.Background(), "orguuid", 999, sampleInput())
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeleteOwnedEvent(t *testing.T) {
	store := newFakeEventStore()
	svc := NewService(store, testDirectory(), approveAll{}, &fakeNotifier{}, nil)
	ctx := context.Background()

	ev, err := svc.Create(ctx, "orguuid", sampleInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "orguuid", ev.ID))
	require.NotContains(t, store.events, ev.ID)

	require.ErrorIs(t, svc.Delete(ctx, "orguuid", ev.ID), apperrors.ErrNotFound)
}

func TestGetUnknownEvent(t *testing.T) {
	svc := NewService(newFakeEventStore(), testDirectory(), approveAll{}, &fakeNotifier{}, nil)
	_, err := svc.Get(context.Background(), 999)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}
