package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opencircle/backend/internal/models"
	"github.com/opencircle/backend/pkg/queue"
)

type fakeNotifStore struct {
	members  map[int64][]int64 // org id -> recipient account ids
	failFor  map[int64]bool    // recipient ids whose insert errors
	inserted []*models.Notification
}

func newFakeNotifStore() *fakeNotifStore {
	return &fakeNotifStore{
		members: make(map[int64][]int64),
		failFor: make(map[int64]bool),
	}
}

func (f *fakeNotifStore) Create(_ context.Context, n *models.Notification) error {
	if f.failFor[n.RecipientID] {
		return errors.New("insert failed")
	}
	f.inserted = append(f.inserted, n)
	return nil
}

func (f *fakeNotifStore) ListApprovedMemberAccountIDs(_ context.Context, organizationID int64) ([]int64, error) {
	return f.members[organizationID], nil
}

type fakeOTPMailer struct {
	sent []string // "to:code"
	err  error
}

func (f *fakeOTPMailer) SendOTP(to, code string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to+":"+code)
	return nil
}

func jobFor(t *testing.T, typ queue.JobType, payload any) *queue.Job {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &queue.Job{ID: "job-1", Type: typ, Payload: raw}
}

func TestProcessNotificationInsertsRow(t *testing.T) {
	store := newFakeNotifStore()
	p := NewProcessor(store, &fakeOTPMailer{}, nil, nil)

	job := jobFor(t, queue.JobTypeNotification, queue.NotificationPayload{
		RecipientID: 7, Type: "rsvp_accepted", Title: "RSVP accepted", Message: "See you there",
	})
	require.NoError(t, p.Process(context.Background(), job))
	require.Len(t, store.inserted, 1)
	require.EqualValues(t, 7, store.inserted[0].RecipientID)
	require.Equal(t, models.NotificationType("rsvp_accepted"), store.inserted[0].Type)
}

func TestProcessFanOutPartialFailureDoesNotRetry(t *testing.T) {
	store := newFakeNotifStore()
	store.members[20] = []int64{1, 2, 3}
	store.failFor[2] = true
	p := NewProcessor(store, &fakeOTPMailer{}, nil, nil)

	job := jobFor(t, queue.JobTypeFanOut, queue.FanOutPayload{
		OrganizationID: 20, Type: "new_post", Title: "New post", Message: "Chess Club posted",
	})
	require.NoError(t, p.Process(context.Background(), job),
		"a partial fan-out must not fail the job: a retry would re-deliver to recipients that already got theirs")

	var recipients []int64
	for _, n := range store.inserted {
		recipients = append(recipients, n.RecipientID)
	}
	require.Equal(t, []int64{1, 3}, recipients, "the healthy recipients each get exactly one row")
}

func TestProcessFanOutMemberLookupFailureRetries(t *testing.T) {
	store := newFakeNotifStore()
	p := NewProcessor(failingMemberStore{store}, &fakeOTPMailer{}, nil, nil)

	job := jobFor(t, queue.JobTypeFanOut, queue.FanOutPayload{OrganizationID: 20, Type: "new_post"})
	require.Error(t, p.Process(context.Background(), job),
		"nothing was delivered yet, so the job is safe to retry")
	require.Empty(t, store.inserted)
}

type failingMemberStore struct {
	*fakeNotifStore
}

func (failingMemberStore) ListApprovedMemberAccountIDs(context.Context, int64) ([]int64, error) {
	return nil, errors.New("query failed")
}

func TestProcessOTPEmail(t *testing.T) {
	mail := &fakeOTPMailer{}
	p := NewProcessor(newFakeNotifStore(), mail, nil, nil)

	job := jobFor(t, queue.JobTypeOTPEmail, queue.OTPEmailPayload{
		AccountID: 1, Email: "ada@example.com", Code: "123456",
	})
	require.NoError(t, p.Process(context.Background(), job))
	require.Equal(t, []string{"ada@example.com:123456"}, mail.sent)

	mail.err = errors.New("smtp down")
	require.Error(t, p.Process(context.Background(), job), "mail failures go back to the queue")
}

func TestProcessUnknownJobType(t *testing.T) {
	p := NewProcessor(newFakeNotifStore(), &fakeOTPMailer{}, nil, nil)
	require.Error(t, p.Process(context.Background(), &queue.Job{ID: "x", Type: "bogus"}))
}
