package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"familytree/internal/apperr"
	"familytree/internal/models"
)

// fakeSender records every email instead of calling SES
type fakeSender struct {
	mu     sync.Mutex
	inputs []*sesv2.SendEmailInput
	err    error
}

func (f *fakeSender) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, params)
	return &sesv2.SendEmailOutput{}, nil
}

func (f *fakeSender) sent() []*sesv2.SendEmailInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*sesv2.SendEmailInput(nil), f.inputs...)
}

func TestNotifySkipsSelfAndMissingRecipient(t *testing.T) {
	env := newTestEnv(t)
	alice := env.member(t, "Alice")

	require.NoError(t, env.notifications.Notify(&models.Notification{
		RecipientID: alice,
		ActorID:     &alice,
		Type:        models.NotificationPostLiked,
		Message:     "You liked your own post",
	}))
	require.NoError(t, env.notifications.Notify(&models.Notification{
		Type:    models.NotificationPostLiked,
		Message: "Nobody",
	}))

	assert.Empty(t, env.notificationsFor(t, alice))
}

func TestNotificationInbox(t *testing.T) {
	env := newTestEnv(t)
	alice := env.member(t, "Alice")
	bob := env.member(t, "Bob")

	for _, msg := range []string{"first", "second", "third"} {
		require.NoError(t, env.notifications.Notify(&models.Notification{
			RecipientID: alice,
			ActorID:     &bob,
			Type:        models.NotificationPostCommented,
			Message:     msg,
		}))
	}

	count, err := env.notifications.UnreadCount(alice)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	list := env.notificationsFor(t, alice)
	require.Len(t, list, 3)
	assert.Equal(t, "third", list[0].Message)

	require.NoError(t, env.notifications.MarkRead(alice, list[0].ID))
	err = env.notifications.MarkRead(bob, list[1].ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound), "members cannot touch other inboxes")

	unread, err := env.notifications.List(alice, true, Page{})
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	marked, err := env.notifications.MarkAllRead(alice)
	require.NoError(t, err)
	assert.Equal(t, int64(2), marked)

	count, err = env.notifications.UnreadCount(alice)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, env.notifications.Delete(alice, list[2].ID))
	err = env.notifications.Delete(alice, list[2].ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	// A cutoff in the future catches every read notification
	purged, err := env.notifications.PurgeRead(-24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), purged)
	assert.Empty(t, env.notificationsFor(t, alice))

	_, err = env.notifications.List(0, false, Page{})
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
}

func TestNotifyMirrorsByEmail(t *testing.T) {
	env := newTestEnv(t)
	user, err := env.auth.Register(context.Background(), "alice@example.com", "password123", "Alice")
	require.NoError(t, err)
	bob := env.member(t, "Bob")
	carol := env.member(t, "Carol")

	sender := &fakeSender{}
	svc := NewNotificationService(env.repos.Notifications, env.repos.Users, newEmailService(sender, "noreply@example.com", "Family Tree", "https://tree.example.com", nil), nil)
	svc.dispatch = func(fn func()) { fn() }

	require.NoError(t, svc.Notify(&models.Notification{
		RecipientID: user.ActorID(),
		ActorID:     &bob,
		Type:        models.NotificationFamilyJoined,
		Message:     "Bob joined the Smiths",
	}))
	// Members without an account only get the in-app notification
	require.NoError(t, svc.Notify(&models.Notification{
		RecipientID: carol,
		ActorID:     &bob,
		Type:        models.NotificationFamilyJoined,
		Message:     "Bob joined the Smiths",
	}))

	sent := sender.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"alice@example.com"}, sent[0].Destination.ToAddresses)
	assert.Contains(t, *sent[0].Content.Simple.Body.Text.Data, "Bob joined the Smiths")
	assert.Len(t, env.notificationsFor(t, carol), 1)
}
