package notifications

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opencircle/backend/internal/models"
	"github.com/opencircle/backend/pkg/queue"
)

type fakeEnqueuer struct {
	notifications []queue.NotificationPayload
	fanOuts       []queue.FanOutPayload
	err           error
}

func (f *fakeEnqueuer) EnqueueNotification(_ context.Context, payload queue.NotificationPayload) error {
	if f.err != nil {
		return f.err
	}
	f.notifications = append(f.notifications, payload)
	return nil
}

func (f *fakeEnqueuer) EnqueueFanOut(_ context.Context, payload queue.FanOutPayload) error {
	if f.err != nil {
		return f.err
	}
	f.fanOuts = append(f.fanOuts, payload)
	return nil
}

func TestMembershipRequestedPayload(t *testing.T) {
	q := &fakeEnqueuer{}
	d := NewDispatcher(q, nil)

	ok := d.MembershipRequested(context.Background(), 200, "Ada Lovelace", 20)
	require.True(t, ok)
	require.Len(t, q.notifications, 1)

	p := q.notifications[0]
	require.Equal(t, int64(200), p.RecipientID)
	require.Equal(t, string(models.NotifMembershipRequest), p.Type)
	require.Equal(t, "New Membership Request", p.Title)
	require.Equal(t, "Ada Lovelace has requested to join your organization", p.Message)
	require.Equal(t, int64(20), *p.RelatedEntityID)
	require.Equal(t, string(models.RelatedOrganization), *p.RelatedEntityType)
}

func TestRSVPAcceptedPayload(t *testing.T) {
	q := &fakeEnqueuer{}
	d := NewDispatcher(q, nil)

	ok := d.RSVPAccepted(context.Background(), 100, 7, "Open Night")
	require.True(t, ok)
	require.Len(t, q.notifications, 1)

	p := q.notifications[0]
	require.Equal(t, int64(100), p.RecipientID)
	require.Equal(t, `Your RSVP for "Open Night" has been accepted`, p.Message)
	require.Equal(t, int64(7), *p.RelatedEntityID)
	require.Equal(t, string(models.RelatedEvent), *p.RelatedEntityType)
}

func TestNewEventFansOut(t *testing.T) {
	q := &fakeEnqueuer{}
	d := NewDispatcher(q, nil)

	ok := d.NewEvent(context.Background(), 20, 7, "Chess Club", "Open Night")
	require.True(t, ok)
	require.Empty(t, q.notifications)
	require.Len(t, q.fanOuts, 1)

	p := q.fanOuts[0]
	require.Equal(t, int64(20), p.OrganizationID)
	require.Equal(t, "New event from Chess Club", p.Title)
	require.Equal(t, `Chess Club has scheduled a new event: "Open Night"`, p.Message)
}

func TestEnqueueFailureReturnsFalse(t *testing.T) {
	q := &fakeEnqueuer{err: errors.New("redis down")}
	d := NewDispatcher(q, nil)
	ctx := context.Background()

	require.False(t, d.MembershipRequested(ctx, 200, "Ada", 20))
	require.False(t, d.NewPost(ctx, 20, 3, "Chess Club", "hello"))
}

func TestPreview(t *testing.T) {
	require.Equal(t, "short post", Preview("short post"))

	long := strings.Repeat("a", 150)
	got := Preview(long)
	require.Equal(t, strings.Repeat("a", 100)+"...", got)

	exact := strings.Repeat("b", 100)
	require.Equal(t, exact, Preview(exact))

	// Truncation counts runes, not bytes.
	wide := strings.Repeat("日", 150)
	require.Equal(t, strings.Repeat("日", 100)+"...", Preview(wide))
}
