package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"familytree/internal/apperr"
	"familytree/internal/models"
	"familytree/internal/validation"
)

func rosterRoles(family *models.FamilyWithMembers) map[int64]models.FamilyMembership {
	roles := make(map[int64]models.FamilyMembership)
	for _, m := range family.Members {
		roles[m.MemberID] = m.FamilyMembership
	}
	return roles
}

func TestCreateFamilyMakesCreatorAdmin(t *testing.T) {
	env := newTestEnv(t)
	alice := env.member(t, "Alice")
	outsider := env.member(t, "Oscar")

	family := env.family(t, alice, "Smiths")

	details, err := env.families.GetFamily(alice, family.ID)
	require.NoError(t, err)
	require.Len(t, details.Members, 1)
	assert.Equal(t, models.RoleAdmin, details.Members[0].Role)
	assert.Equal(t, models.MembershipMain, details.Members[0].Type)
	assert.True(t, details.Members[0].ManuallyEdited)

	families, err := env.families.ListFamilies(alice)
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "Smiths", families[0].Name)

	_, err = env.families.GetFamily(outsider, family.ID)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	_, err = env.families.GetFamily(alice, 9999)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = env.families.CreateFamily(alice, FamilyInput{Name: "X"})
	var vErr validation.ValidationError
	assert.True(t, errors.As(err, &vErr))

	_, err = env.families.CreateFamily(0, FamilyInput{Name: "Nobody"})
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
}

func TestCreateMainFamilyWithHead(t *testing.T) {
	env := newTestEnv(t)
	alice := env.member(t, "Alice")
	grandpa := env.member(t, "Grandpa")
	stranger := env.member(t, "Stranger")
	require.NoError(t, env.repos.Members.AddParent(grandpa, alice))

	family, err := env.families.CreateFamily(alice, FamilyInput{Name: "Joneses", HeadOfFamilyID: &grandpa})
	require.NoError(t, err)

	details, err := env.families.GetFamily(alice, family.ID)
	require.NoError(t, err)
	roles := rosterRoles(details)
	assert.Equal(t, models.RoleAdmin, roles[alice].Role)
	assert.Equal(t, models.RoleHead, roles[grandpa].Role)

	_, err = env.families.CreateFamily(alice, FamilyInput{Name: "Captured", HeadOfFamilyID: &stranger})
	assert.True(t, errors.Is(err, apperr.ErrForbidden), "an unreachable member cannot be made head")
	ids, err := env.repos.Memberships.GetActiveFamilyIDs(stranger)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = env.families.UpdateFamily(alice, family.ID, FamilyInput{Name: "Joneses", HeadOfFamilyID: &stranger})
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
}

func TestCreateSubFamilyResolvesLineage(t *testing.T) {
	env := newTestEnv(t)
	admin := env.member(t, "Admin")
	head := env.member(t, "Head")
	child := env.member(t, "Child")
	childSpouse := env.member(t, "Child Spouse")
	stranger := env.member(t, "Stranger")

	require.NoError(t, env.repos.Members.AddParent(head, child))
	require.NoError(t, env.repos.Members.AddSpouse(child, childSpouse))

	parent := env.family(t, admin, "Main")
	env.join(t, admin, parent.ID, head)

	sub, err := env.families.CreateFamily(admin, FamilyInput{Name: "Head's branch", HeadOfFamilyID: &head, ParentFamilyID: &parent.ID})
	require.NoError(t, err)
	assert.True(t, sub.IsSubFamily)

	details, err := env.families.GetFamily(admin, sub.ID)
	require.NoError(t, err)
	roles := rosterRoles(details)
	require.Len(t, roles, 4)

	assert.Equal(t, models.RoleAdmin, roles[admin].Role)
	assert.True(t, roles[admin].ManuallyEdited)
	assert.Equal(t, models.RoleHead, roles[head].Role)
	for _, id := range []int64{head, child, childSpouse} {
		m := roles[id]
		assert.Equal(t, models.MembershipSub, m.Type)
		assert.True(t, m.IsActive)
		assert.True(t, m.AutoEnrolled)
		assert.False(t, m.ManuallyEdited)
	}
	assert.Equal(t, models.RoleMember, roles[childSpouse].Role)

	subs, err := env.families.ListSubFamilies(admin, parent.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, sub.ID, subs[0].ID)

	_, err = env.families.CreateFamily(stranger, FamilyInput{Name: "Rogue", HeadOfFamilyID: &head, ParentFamilyID: &parent.ID})
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	_, err = env.families.CreateFamily(admin, FamilyInput{Name: "Headless", ParentFamilyID: &parent.ID})
	assert.True(t, errors.Is(err, apperr.ErrBadRequest))
}

func TestDeleteFamilyGuardsSubFamilies(t *testing.T) {
	env := newTestEnv(t)
	admin := env.member(t, "Admin")
	head := env.member(t, "Head")
	parent := env.family(t, admin, "Main")
	env.join(t, admin, parent.ID, head)
	sub, err := env.families.CreateFamily(admin, FamilyInput{Name: "Branch", HeadOfFamilyID: &head, ParentFamilyID: &parent.ID})
	require.NoError(t, err)

	err = env.families.DeleteFamily(admin, parent.ID)
	assert.True(t, errors.Is(err, apperr.ErrBadRequest))
	still, err := env.repos.Families.GetFamilyByID(parent.ID)
	require.NoError(t, err)
	assert.NotNil(t, still, "guarded family must not be deleted")

	require.NoError(t, env.families.DeleteFamily(admin, sub.ID))
	require.NoError(t, env.families.DeleteFamily(admin, parent.ID))

	err = env.families.DeleteFamily(admin, parent.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestMembershipLifecycle(t *testing.T) {
	env := newTestEnv(t)
	admin := env.member(t, "Admin")
	bob := env.member(t, "Bob")
	family := env.family(t, admin, "Smiths")

	membership, err := env.families.AddMember(admin, family.ID, MembershipInput{MemberID: bob})
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, membership.Role)
	assert.True(t, membership.ManuallyEdited)

	_, err = env.families.AddMember(admin, family.ID, MembershipInput{MemberID: bob})
	assert.True(t, errors.Is(err, apperr.ErrBadRequest), "already active")

	_, err = env.families.AddMember(bob, family.ID, MembershipInput{MemberID: admin})
	assert.True(t, errors.Is(err, apperr.ErrForbidden), "members cannot add members")

	notes := env.notificationsFor(t, bob)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationFamilyJoined, notes[0].Type)

	viewer := models.RoleViewer
	updated, err := env.families.UpdateMembership(admin, family.ID, MembershipInput{MemberID: bob, Role: &viewer})
	require.NoError(t, err)
	assert.Equal(t, models.RoleViewer, updated.Role)

	_, err = env.families.UpdateMembership(bob, family.ID, MembershipInput{MemberID: admin, Role: &viewer})
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	require.NoError(t, env.families.RemoveMember(bob, family.ID, bob))
	stored, err := env.repos.Memberships.GetMembership(bob, family.ID)
	require.NoError(t, err)
	require.NotNil(t, stored, "removal is a soft delete")
	assert.False(t, stored.IsActive)

	err = env.families.RemoveMember(admin, family.ID, bob)
	assert.True(t, errors.Is(err, apperr.ErrNotFound), "already inactive")

	reactivated, err := env.families.AddMember(admin, family.ID, MembershipInput{MemberID: bob})
	require.NoError(t, err)
	assert.Equal(t, stored.ID, reactivated.ID)
	assert.True(t, reactivated.IsActive)
}

func TestRecalculatePicksUpNewDescendants(t *testing.T) {
	env := newTestEnv(t)
	admin := env.member(t, "Admin")
	head := env.member(t, "Head")
	parent := env.family(t, admin, "Main")
	env.join(t, admin, parent.ID, head)
	sub, err := env.families.CreateFamily(admin, FamilyInput{Name: "Branch", HeadOfFamilyID: &head, ParentFamilyID: &parent.ID})
	require.NoError(t, err)

	baby := env.member(t, "Baby")
	require.NoError(t, env.repos.Members.AddParent(head, baby))

	result, err := env.families.Recalculate(admin, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Unchanged)

	again, err := env.families.Recalculate(admin, sub.ID)
	require.NoError(t, err)
	assert.Zero(t, again.Writes())

	_, err = env.families.Recalculate(baby, sub.ID)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
}

func TestUpdateFamilyHeadChangeResolves(t *testing.T) {
	env := newTestEnv(t)
	admin := env.member(t, "Admin")
	head := env.member(t, "Head")
	newHead := env.member(t, "New Head")
	grandchild := env.member(t, "Grandchild")
	require.NoError(t, env.repos.Members.AddParent(newHead, grandchild))

	parent := env.family(t, admin, "Main")
	env.join(t, admin, parent.ID, head)
	sub, err := env.families.CreateFamily(admin, FamilyInput{Name: "Branch", HeadOfFamilyID: &head, ParentFamilyID: &parent.ID})
	require.NoError(t, err)

	updated, err := env.families.UpdateFamily(admin, sub.ID, FamilyInput{Name: "Renamed", HeadOfFamilyID: &newHead})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	m, err := env.repos.Memberships.GetMembership(grandchild, sub.ID)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.True(t, m.AutoEnrolled)

	_, err = env.families.UpdateFamily(admin, sub.ID, FamilyInput{Name: "Renamed"})
	assert.True(t, errors.Is(err, apperr.ErrBadRequest), "sub-families keep a head")
}
