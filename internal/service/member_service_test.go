package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"familytree/internal/apperr"
	"familytree/internal/models"
	"familytree/internal/validation"
)

func TestCreateMemberEnrollsIntoFamily(t *testing.T) {
	env := newTestEnv(t)
	admin := env.member(t, "Admin")
	family := env.family(t, admin, "Smiths")

	member, err := env.members.CreateMember(admin, MemberInput{
		Name:      "Grace",
		Gender:    models.GenderFemale,
		BirthDate: "1950-04-01",
		DeathDate: "2010-09-12",
		FamilyID:  &family.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.MemberDeceased, member.Status, "a death date implies deceased")
	require.NotNil(t, member.BirthDate)

	m, err := env.repos.Memberships.GetMembership(member.ID, family.ID)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.True(t, m.IsActive)
	assert.True(t, m.ManuallyEdited)

	_, err = env.members.CreateMember(admin, MemberInput{Name: "Bad Dates", BirthDate: "2000-01-01", DeathDate: "1990-01-01"})
	var vErr validation.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "deathDate", vErr.Field)

	_, err = env.members.CreateMember(member.ID, MemberInput{Name: "Sneaky", FamilyID: &family.ID})
	assert.True(t, errors.Is(err, apperr.ErrForbidden), "only admins enroll into a family")
}

func TestMemberAccess(t *testing.T) {
	env := newTestEnv(t)
	admin := env.member(t, "Admin")
	bob := env.member(t, "Bob")
	outsider := env.member(t, "Outsider")
	family := env.family(t, admin, "Smiths")
	env.join(t, admin, family.ID, bob)

	got, err := env.members.GetMember(admin, bob)
	require.NoError(t, err)
	assert.Equal(t, "Bob", got.Name)

	_, err = env.members.GetMember(outsider, bob)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	_, err = env.members.GetMember(admin, 9999)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	updated, err := env.members.UpdateMember(admin, bob, MemberInput{Name: "Robert", Bio: "Fisherman"})
	require.NoError(t, err)
	assert.Equal(t, "Robert", updated.Name)

	_, err = env.members.UpdateMember(bob, admin, MemberInput{Name: "Hacked"})
	assert.True(t, errors.Is(err, apperr.ErrForbidden), "plain members only edit themselves")

	visible, err := env.members.ListMembers(bob)
	require.NoError(t, err)
	assert.Len(t, visible, 2)
}

func TestAddRelationship(t *testing.T) {
	env := newTestEnv(t)
	parent := env.member(t, "Parent")
	child := env.member(t, "Child")
	grandchild := env.member(t, "Grandchild")
	spouse := env.member(t, "Spouse")
	stranger := env.member(t, "Stranger")
	family := env.family(t, parent, "Parents")
	for _, id := range []int64{child, grandchild, spouse} {
		env.join(t, parent, family.ID, id)
	}

	require.NoError(t, env.members.AddRelationship(parent, parent, RelationshipInput{RelatedID: child, Type: models.RelationshipChild}))
	require.NoError(t, env.members.AddRelationship(child, child, RelationshipInput{RelatedID: grandchild, Type: models.RelationshipChild}))
	require.NoError(t, env.members.AddRelationship(parent, parent, RelationshipInput{RelatedID: spouse, Type: models.RelationshipSpouse}))

	got, err := env.members.GetMember(child, child)
	require.NoError(t, err)
	require.Len(t, got.Parents, 1)
	assert.Equal(t, parent, got.Parents[0].ID)
	require.Len(t, got.Children, 1)
	assert.Equal(t, grandchild, got.Children[0].ID)

	spouses, err := env.repos.Members.GetSpouseIDs(spouse)
	require.NoError(t, err)
	assert.Equal(t, []int64{parent}, spouses, "spouse edges go both ways")

	tests := []struct {
		name    string
		actor   int64
		member  int64
		input   RelationshipInput
		wantErr error
	}{
		{"self", parent, parent, RelationshipInput{RelatedID: parent, Type: models.RelationshipSpouse}, apperr.ErrBadRequest},
		{"duplicate parent", child, child, RelationshipInput{RelatedID: parent, Type: models.RelationshipParent}, apperr.ErrBadRequest},
		{"duplicate spouse", spouse, spouse, RelationshipInput{RelatedID: parent, Type: models.RelationshipSpouse}, apperr.ErrBadRequest},
		{"cycle", parent, parent, RelationshipInput{RelatedID: grandchild, Type: models.RelationshipParent}, apperr.ErrBadRequest},
		{"unknown type", parent, parent, RelationshipInput{RelatedID: spouse, Type: "COUSIN"}, apperr.ErrBadRequest},
		{"missing relative", parent, parent, RelationshipInput{RelatedID: 9999, Type: models.RelationshipChild}, apperr.ErrNotFound},
		{"unreachable relative", parent, parent, RelationshipInput{RelatedID: stranger, Type: models.RelationshipChild}, apperr.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.members.AddRelationship(tt.actor, tt.member, tt.input)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}

	notes := env.notificationsFor(t, child)
	require.NotEmpty(t, notes)
	assert.Equal(t, models.NotificationRelationshipAdd, notes[0].Type)
}

func TestAddRelationshipCannotCaptureStranger(t *testing.T) {
	env := newTestEnv(t)
	attacker := env.member(t, "Attacker")
	victim := env.member(t, "Victim")
	own := env.family(t, attacker, "Own")
	_, err := env.families.CreateFamily(attacker, FamilyInput{Name: "Own branch", HeadOfFamilyID: &attacker, ParentFamilyID: &own.ID})
	require.NoError(t, err)

	for _, kind := range []models.RelationshipType{models.RelationshipSpouse, models.RelationshipChild, models.RelationshipParent} {
		err := env.members.AddRelationship(attacker, attacker, RelationshipInput{RelatedID: victim, Type: kind})
		assert.True(t, errors.Is(err, apperr.ErrForbidden), "%s: got %v", kind, err)
	}

	ids, err := env.repos.Memberships.GetActiveFamilyIDs(victim)
	require.NoError(t, err)
	assert.Empty(t, ids, "victim must not be enrolled into the attacker's sub-family")
	spouses, err := env.repos.Members.GetSpouseIDs(victim)
	require.NoError(t, err)
	assert.Empty(t, spouses)

	_, err = env.members.GetMember(attacker, victim)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
}

func TestRelationshipResolvesSubFamilies(t *testing.T) {
	env := newTestEnv(t)
	admin := env.member(t, "Admin")
	head := env.member(t, "Head")
	main := env.family(t, admin, "Main")
	env.join(t, admin, main.ID, head)
	sub, err := env.families.CreateFamily(admin, FamilyInput{Name: "Branch", HeadOfFamilyID: &head, ParentFamilyID: &main.ID})
	require.NoError(t, err)

	kid := env.member(t, "Kid")
	env.join(t, admin, main.ID, kid)
	require.NoError(t, env.members.AddRelationship(head, head, RelationshipInput{RelatedID: kid, Type: models.RelationshipChild}))

	m, err := env.repos.Memberships.GetMembership(kid, sub.ID)
	require.NoError(t, err)
	require.NotNil(t, m, "new child joins the head's sub-family")
	assert.True(t, m.AutoEnrolled)

	require.NoError(t, env.members.RemoveRelationship(head, head, kid))
	err = env.members.RemoveRelationship(head, head, kid)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	m, err = env.repos.Memberships.GetMembership(kid, sub.ID)
	require.NoError(t, err)
	assert.True(t, m.IsActive, "the keep policy leaves stale rows active")
}

func TestGetTree(t *testing.T) {
	env := newTestEnv(t)
	grandma := env.member(t, "Grandma")
	mum := env.member(t, "Mum")
	dad := env.member(t, "Dad")
	me := env.member(t, "Me")
	son := env.member(t, "Son")
	require.NoError(t, env.repos.Members.AddParent(grandma, mum))
	require.NoError(t, env.repos.Members.AddParent(mum, me))
	require.NoError(t, env.repos.Members.AddParent(me, son))
	require.NoError(t, env.repos.Members.AddSpouse(mum, dad))

	tree, err := env.members.GetTree(me, me, 0)
	require.NoError(t, err)
	assert.Equal(t, me, tree.Member.ID)
	require.Len(t, tree.Parents, 1)
	assert.Equal(t, mum, tree.Parents[0].Member.ID)
	require.Len(t, tree.Parents[0].Parents, 1)
	assert.Equal(t, grandma, tree.Parents[0].Parents[0].Member.ID)
	require.Len(t, tree.Children, 1)
	assert.Equal(t, son, tree.Children[0].Member.ID)

	shallow, err := env.members.GetTree(me, me, 1)
	require.NoError(t, err)
	require.Len(t, shallow.Parents, 1)
	assert.Empty(t, shallow.Parents[0].Parents)
}

func TestDeleteMember(t *testing.T) {
	env := newTestEnv(t)
	user, err := env.auth.Register(context.Background(), "owner@example.com", "password123", "Owner")
	require.NoError(t, err)
	owner := user.ActorID()

	family := env.family(t, owner, "Owners")
	ghost, err := env.members.CreateMember(owner, MemberInput{Name: "Ghost", FamilyID: &family.ID})
	require.NoError(t, err)

	err = env.members.DeleteMember(owner, owner)
	assert.True(t, errors.Is(err, apperr.ErrBadRequest), "members linked to accounts stay")

	require.NoError(t, env.members.DeleteMember(owner, ghost.ID))
	gone, err := env.repos.Members.GetMemberByID(ghost.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}
