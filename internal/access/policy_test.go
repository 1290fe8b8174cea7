package access

import (
	"errors"
	"testing"

	"familytree/internal/apperr"
	"familytree/internal/models"
)

type fakeMemberships struct {
	rows  map[[2]int64]*models.FamilyMembership
	calls int
}

func newFakeMemberships() *fakeMemberships {
	return &fakeMemberships{rows: make(map[[2]int64]*models.FamilyMembership)}
}

func (f *fakeMemberships) add(memberID, familyID int64, role models.Role, active bool) {
	f.rows[[2]int64{memberID, familyID}] = &models.FamilyMembership{
		MemberID: memberID, FamilyID: familyID, Role: role, IsActive: active,
	}
}

func (f *fakeMemberships) GetMembership(memberID, familyID int64) (*models.FamilyMembership, error) {
	return f.rows[[2]int64{memberID, familyID}], nil
}

func (f *fakeMemberships) GetActiveFamilyIDs(memberID int64) ([]int64, error) {
	f.calls++
	var ids []int64
	for key, m := range f.rows {
		if key[0] == memberID && m.IsActive {
			ids = append(ids, key[1])
		}
	}
	return ids, nil
}

type fakeRelatives struct {
	parents map[[2]int64]bool
	spouses map[[2]int64]bool
	err     error
}

func (f *fakeRelatives) HasParent(parentID, childID int64) (bool, error) {
	return f.parents[[2]int64{parentID, childID}], f.err
}

func (f *fakeRelatives) HasSpouse(memberID, spouseID int64) (bool, error) {
	return f.spouses[[2]int64{memberID, spouseID}], f.err
}

func TestVerifyFamilyAccess(t *testing.T) {
	memberships := newFakeMemberships()
	memberships.add(1, 10, models.RoleMember, true)
	memberships.add(2, 10, models.RoleMember, false)
	policy := NewPolicy(memberships, nil)

	tests := []struct {
		name    string
		actor   int64
		wantErr error
	}{
		{"active member", 1, nil},
		{"inactive member", 2, apperr.ErrForbidden},
		{"not a member", 3, apperr.ErrForbidden},
		{"no member profile", 0, apperr.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.VerifyFamilyAccess(tt.actor, 10)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("VerifyFamilyAccess() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestVerifyFamilyAdminAccess(t *testing.T) {
	memberships := newFakeMemberships()
	memberships.add(1, 10, models.RoleAdmin, true)
	memberships.add(2, 10, models.RoleHead, true)
	memberships.add(3, 10, models.RoleMember, true)
	memberships.add(4, 10, models.RoleAdmin, false)
	policy := NewPolicy(memberships, nil)

	tests := []struct {
		actor   int64
		allowed bool
	}{
		{1, true},
		{2, true},
		{3, false},
		{4, false},
	}

	for _, tt := range tests {
		err := policy.VerifyFamilyAdminAccess(tt.actor, 10)
		if (err == nil) != tt.allowed {
			t.Errorf("actor %d: VerifyFamilyAdminAccess() error = %v, allowed %v", tt.actor, err, tt.allowed)
		}
		if err != nil && !errors.Is(err, apperr.ErrForbidden) {
			t.Errorf("actor %d: expected Forbidden, got %v", tt.actor, err)
		}
	}
}

func TestVerifyMemberAccessWithoutSharedFamily(t *testing.T) {
	memberships := newFakeMemberships()
	memberships.add(1, 10, models.RoleMember, true)
	memberships.add(2, 20, models.RoleMember, true)
	memberships.add(3, 20, models.RoleMember, true)
	memberships.add(3, 10, models.RoleMember, false)
	policy := NewPolicy(memberships, nil)

	if err := policy.VerifyMemberAccess(1, 2); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("VerifyMemberAccess(1, 2) error = %v, want Forbidden", err)
	}
	if err := policy.VerifyMemberAccess(1, 3); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("inactive shared membership must not grant access, got %v", err)
	}
	if err := policy.VerifyMemberAccess(2, 3); err != nil {
		t.Errorf("VerifyMemberAccess(2, 3) error = %v, want nil", err)
	}
	if err := policy.VerifyMemberAccess(1, 1); err != nil {
		t.Errorf("self access error = %v, want nil", err)
	}
}

func TestVerifyMemberAccessDirectRelatives(t *testing.T) {
	memberships := newFakeMemberships()
	memberships.add(1, 10, models.RoleMember, true)
	memberships.add(2, 20, models.RoleMember, true)
	relatives := &fakeRelatives{
		parents: map[[2]int64]bool{{1, 2}: true, {4, 1}: true},
		spouses: map[[2]int64]bool{{1, 3}: true, {3, 1}: true},
	}
	policy := NewPolicy(memberships, relatives)

	tests := []struct {
		name    string
		actor   int64
		target  int64
		wantErr error
	}{
		{"parent sees child", 1, 2, nil},
		{"child sees parent", 2, 1, nil},
		{"spouse", 1, 3, nil},
		{"parent of actor", 1, 4, nil},
		{"grandparent is not direct", 2, 4, apperr.ErrForbidden},
		{"stranger", 2, 5, apperr.ErrForbidden},
		{"no member profile", 0, 2, apperr.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.VerifyMemberAccess(tt.actor, tt.target)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("VerifyMemberAccess(%d, %d) error = %v, want %v", tt.actor, tt.target, err, tt.wantErr)
			}
		})
	}
}

func TestVerifyMemberAccessRelativeLookupError(t *testing.T) {
	boom := errors.New("db down")
	policy := NewPolicy(newFakeMemberships(), &fakeRelatives{err: boom})

	err := policy.VerifyMemberAccess(1, 2)
	if !errors.Is(err, boom) {
		t.Fatalf("VerifyMemberAccess() error = %v, want wrapped lookup error", err)
	}
	if errors.Is(err, apperr.ErrForbidden) {
		t.Error("lookup failure must not be reported as Forbidden")
	}
}

func TestIsPostVisible(t *testing.T) {
	familyID := int64(30)

	tests := []struct {
		name           string
		post           models.Post
		viewer         int64
		viewerFamilies []int64
		authorFamilies []int64
		want           bool
	}{
		{
			name:   "public post for anonymous viewer",
			post:   models.Post{AuthorID: 1, Visibility: models.VisibilityPublic},
			viewer: 0,
			want:   true,
		},
		{
			name:   "author sees own family post without families",
			post:   models.Post{AuthorID: 1, Visibility: models.VisibilityFamily},
			viewer: 1,
			want:   true,
		},
		{
			name:   "author sees own subfamily post",
			post:   models.Post{AuthorID: 1, Visibility: models.VisibilitySubFamily},
			viewer: 1,
			want:   true,
		},
		{
			name:           "family post with shared family",
			post:           models.Post{AuthorID: 1, Visibility: models.VisibilityFamily},
			viewer:         2,
			viewerFamilies: []int64{10, 20},
			authorFamilies: []int64{20},
			want:           true,
		},
		{
			name:           "family post without shared family",
			post:           models.Post{AuthorID: 1, Visibility: models.VisibilityFamily},
			viewer:         2,
			viewerFamilies: []int64{10},
			authorFamilies: []int64{20},
			want:           false,
		},
		{
			name:           "family post targeted at viewer family",
			post:           models.Post{AuthorID: 1, Visibility: models.VisibilityFamily, FamilyID: &familyID},
			viewer:         2,
			viewerFamilies: []int64{30},
			authorFamilies: []int64{},
			want:           true,
		},
		{
			name:           "subfamily post ignores explicit family id",
			post:           models.Post{AuthorID: 1, Visibility: models.VisibilitySubFamily, FamilyID: &familyID},
			viewer:         2,
			viewerFamilies: []int64{30},
			authorFamilies: []int64{40},
			want:           false,
		},
		{
			name:           "subfamily post with shared family",
			post:           models.Post{AuthorID: 1, Visibility: models.VisibilitySubFamily},
			viewer:         2,
			viewerFamilies: []int64{40},
			authorFamilies: []int64{40},
			want:           true,
		},
		{
			name:           "anonymous viewer cannot see family post",
			post:           models.Post{AuthorID: 1, Visibility: models.VisibilityFamily},
			viewer:         0,
			authorFamilies: []int64{10},
			want:           false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsPostVisible(&tt.post, tt.viewer, tt.viewerFamilies, tt.authorFamilies)
			if got != tt.want {
				t.Errorf("IsPostVisible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPostFilterCachesAuthorFamilies(t *testing.T) {
	memberships := newFakeMemberships()
	memberships.add(1, 10, models.RoleMember, true)
	memberships.add(2, 10, models.RoleMember, true)
	policy := NewPolicy(memberships, nil)

	visible, err := policy.PostFilter(1)
	if err != nil {
		t.Fatalf("PostFilter() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		ok, err := visible(&models.Post{AuthorID: 2, Visibility: models.VisibilityFamily})
		if err != nil || !ok {
			t.Fatalf("visible() = %v, %v; want true", ok, err)
		}
	}
	// one lookup for the viewer, one for the author
	if memberships.calls != 2 {
		t.Errorf("GetActiveFamilyIDs called %d times, want 2", memberships.calls)
	}
}

func TestIntersects(t *testing.T) {
	if Intersects(nil, []int64{1}) {
		t.Error("nil set should not intersect")
	}
	if !Intersects([]int64{1, 2, 3}, []int64{3}) {
		t.Error("expected intersection on 3")
	}
	if Intersects([]int64{1, 2}, []int64{3, 4}) {
		t.Error("disjoint sets should not intersect")
	}
}
