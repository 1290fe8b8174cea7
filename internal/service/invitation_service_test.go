package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"familytree/internal/apperr"
	"familytree/internal/models"
	"familytree/internal/validation"
)

func TestInviteAndAccept(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.member(t, "Admin")
	family := env.family(t, admin, "Smiths")
	guest := env.member(t, "Guest")

	_, err := env.invitations.Invite(ctx, guest, family.ID, "guest@example.com", "")
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	_, err = env.invitations.Invite(ctx, admin, family.ID, "not-an-email", "")
	var verr validation.ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = env.invitations.Invite(ctx, admin, 9999, "guest@example.com", "")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	inv, err := env.invitations.Invite(ctx, admin, family.ID, " Guest@Example.com ", "")
	require.NoError(t, err)
	assert.Equal(t, "guest@example.com", inv.Email)
	assert.Equal(t, models.RoleMember, inv.Role)
	assert.NotEmpty(t, inv.Code)

	membership, err := env.invitations.Accept(guest, inv.Code)
	require.NoError(t, err)
	assert.Equal(t, family.ID, membership.FamilyID)
	assert.True(t, membership.IsActive)
	assert.True(t, membership.ManuallyEdited)
	require.NoError(t, env.families.access.VerifyFamilyAccess(guest, family.ID))

	_, err = env.invitations.Accept(guest, inv.Code)
	assert.True(t, errors.Is(err, apperr.ErrBadRequest), "codes are single use")

	_, err = env.invitations.Accept(guest, "no-such-code")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	notes := env.notificationsFor(t, admin)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationFamilyJoined, notes[0].Type)
}

func TestAcceptReactivatesMembership(t *testing.T) {
	env := newTestEnv(t)
	admin := env.member(t, "Admin")
	family := env.family(t, admin, "Smiths")
	guest := env.member(t, "Guest")
	env.join(t, admin, family.ID, guest)
	require.NoError(t, env.families.RemoveMember(guest, family.ID, guest))

	inv, err := env.invitations.Invite(context.Background(), admin, family.ID, "guest@example.com", models.RoleAdmin)
	require.NoError(t, err)

	membership, err := env.invitations.Accept(guest, inv.Code)
	require.NoError(t, err)
	assert.True(t, membership.IsActive)
	assert.Equal(t, models.RoleAdmin, membership.Role)
}

func TestExpiredInvitations(t *testing.T) {
	env := newTestEnv(t)
	admin := env.member(t, "Admin")
	family := env.family(t, admin, "Smiths")
	guest := env.member(t, "Guest")

	expired, err := env.repos.Invitations.CreateInvitation("late@example.com", family.ID, admin, models.RoleMember, time.Now().Add(-48*time.Hour))
	require.NoError(t, err)
	_, err = env.invitations.Invite(context.Background(), admin, family.ID, "fresh@example.com", "")
	require.NoError(t, err)

	_, err = env.invitations.Accept(guest, expired.Code)
	assert.True(t, errors.Is(err, apperr.ErrBadRequest))

	purged, err := env.invitations.PurgeExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	list, err := env.invitations.ListFamilyInvitations(admin, family.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "fresh@example.com", list[0].Email)
}

func TestRevokeInvitation(t *testing.T) {
	env := newTestEnv(t)
	admin := env.member(t, "Admin")
	family := env.family(t, admin, "Smiths")
	other := env.family(t, admin, "Joneses")

	inv, err := env.invitations.Invite(context.Background(), admin, family.ID, "guest@example.com", "")
	require.NoError(t, err)

	err = env.invitations.Revoke(admin, other.ID, inv.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound), "invitation belongs to another family")

	require.NoError(t, env.invitations.Revoke(admin, family.ID, inv.ID))
	list, err := env.invitations.ListFamilyInvitations(admin, family.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestInviteSendsEmail(t *testing.T) {
	env := newTestEnv(t)
	admin := env.member(t, "Admin")
	family := env.family(t, admin, "Smiths")

	sender := &fakeSender{}
	email := newEmailService(sender, "noreply@example.com", "", "https://tree.example.com", nil)
	svc := NewInvitationService(env.repos, NewTransactor(env.db), env.families.access, email, env.notifications, nil)

	inv, err := svc.Invite(context.Background(), admin, family.ID, "guest@example.com", "")
	require.NoError(t, err)

	sent := sender.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Admin invited you to the Smiths family", *sent[0].Content.Simple.Subject.Data)
	assert.Contains(t, *sent[0].Content.Simple.Body.Text.Data, "/invitations/"+inv.Code)
}
