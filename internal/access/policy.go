// Package access holds the capability checks shared by every service:
// family membership, family administration, member-to-member access and
// post visibility.
package access

import (
	"fmt"

	"familytree/internal/apperr"
	"familytree/internal/models"
)

// MembershipSource is the read side of the membership store the policy needs.
type MembershipSource interface {
	GetMembership(memberID, familyID int64) (*models.FamilyMembership, error)
	GetActiveFamilyIDs(memberID int64) ([]int64, error)
}

// RelativeSource answers direct-relative questions from the relationship graph.
type RelativeSource interface {
	HasParent(parentID, childID int64) (bool, error)
	HasSpouse(memberID, spouseID int64) (bool, error)
}

// Checker is the capability interface services depend on.
type Checker interface {
	VerifyFamilyAccess(actorID, familyID int64) error
	VerifyFamilyAdminAccess(actorID, familyID int64) error
	VerifyMemberAccess(actorID, targetID int64) error
	CanViewPost(viewerID int64, post *models.Post) (bool, error)
	PostFilter(viewerID int64) (func(post *models.Post) (bool, error), error)
}

// Policy implements Checker over a MembershipSource and a RelativeSource.
type Policy struct {
	memberships MembershipSource
	relatives   RelativeSource
}

// NewPolicy creates a policy backed by the given sources. A nil relatives
// source limits member access to shared families.
func NewPolicy(memberships MembershipSource, relatives RelativeSource) *Policy {
	return &Policy{memberships: memberships, relatives: relatives}
}

// VerifyFamilyAccess requires an active membership of actorID in familyID
func (p *Policy) VerifyFamilyAccess(actorID, familyID int64) error {
	_, err := p.activeMembership(actorID, familyID)
	return err
}

// VerifyFamilyAdminAccess requires an active ADMIN or HEAD membership
func (p *Policy) VerifyFamilyAdminAccess(actorID, familyID int64) error {
	membership, err := p.activeMembership(actorID, familyID)
	if err != nil {
		return err
	}
	if !membership.Role.IsAdmin() {
		return apperr.Forbidden("family %d requires an admin or head role", familyID)
	}
	return nil
}

// VerifyMemberAccess requires the actor and the target to share at least one
// active family or to be direct relatives (parent, child or spouse). Members
// always have access to themselves.
func (p *Policy) VerifyMemberAccess(actorID, targetID int64) error {
	if actorID == 0 {
		return apperr.Forbidden("no member profile")
	}
	if actorID == targetID {
		return nil
	}

	actorFamilies, err := p.memberships.GetActiveFamilyIDs(actorID)
	if err != nil {
		return fmt.Errorf("failed to load families for member %d: %w", actorID, err)
	}
	targetFamilies, err := p.memberships.GetActiveFamilyIDs(targetID)
	if err != nil {
		return fmt.Errorf("failed to load families for member %d: %w", targetID, err)
	}

	if Intersects(actorFamilies, targetFamilies) {
		return nil
	}

	related, err := p.isDirectRelative(actorID, targetID)
	if err != nil {
		return fmt.Errorf("failed to check relationship between members %d and %d: %w", actorID, targetID, err)
	}
	if !related {
		return apperr.Forbidden("member %d shares no family with member %d", targetID, actorID)
	}
	return nil
}

func (p *Policy) isDirectRelative(a, b int64) (bool, error) {
	if p.relatives == nil {
		return false, nil
	}
	checks := []func() (bool, error){
		func() (bool, error) { return p.relatives.HasParent(a, b) },
		func() (bool, error) { return p.relatives.HasParent(b, a) },
		func() (bool, error) { return p.relatives.HasSpouse(a, b) },
	}
	for _, check := range checks {
		ok, err := check()
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// CanViewPost reports whether viewerID may read post
func (p *Policy) CanViewPost(viewerID int64, post *models.Post) (bool, error) {
	visible, err := p.PostFilter(viewerID)
	if err != nil {
		return false, err
	}
	return visible(post)
}

// PostFilter loads the viewer's families once and returns a predicate that can be
// applied to many posts. Author family sets are cached per author.
func (p *Policy) PostFilter(viewerID int64) (func(post *models.Post) (bool, error), error) {
	var viewerFamilies []int64
	if viewerID != 0 {
		ids, err := p.memberships.GetActiveFamilyIDs(viewerID)
		if err != nil {
			return nil, fmt.Errorf("failed to load families for member %d: %w", viewerID, err)
		}
		viewerFamilies = ids
	}

	authorFamilies := make(map[int64][]int64)
	return func(post *models.Post) (bool, error) {
		if post.Visibility == models.VisibilityPublic || (viewerID != 0 && post.AuthorID == viewerID) {
			return true, nil
		}
		families, ok := authorFamilies[post.AuthorID]
		if !ok {
			ids, err := p.memberships.GetActiveFamilyIDs(post.AuthorID)
			if err != nil {
				return false, fmt.Errorf("failed to load families for member %d: %w", post.AuthorID, err)
			}
			families = ids
			authorFamilies[post.AuthorID] = ids
		}
		return IsPostVisible(post, viewerID, viewerFamilies, families), nil
	}, nil
}

func (p *Policy) activeMembership(actorID, familyID int64) (*models.FamilyMembership, error) {
	if actorID == 0 {
		return nil, apperr.Forbidden("no member profile")
	}
	membership, err := p.memberships.GetMembership(actorID, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify family access: %w", err)
	}
	if membership == nil || !membership.IsActive {
		return nil, apperr.Forbidden("not an active member of family %d", familyID)
	}
	return membership, nil
}

// IsPostVisible is the visibility rule: PUBLIC posts and the author's own posts are
// always visible; FAMILY posts need a shared family or the post's family in the
// viewer's set; SUBFAMILY posts need a shared family.
func IsPostVisible(post *models.Post, viewerID int64, viewerFamilies, authorFamilies []int64) bool {
	if post.Visibility == models.VisibilityPublic {
		return true
	}
	if viewerID != 0 && post.AuthorID == viewerID {
		return true
	}

	switch post.Visibility {
	case models.VisibilityFamily:
		if post.FamilyID != nil && contains(viewerFamilies, *post.FamilyID) {
			return true
		}
		return Intersects(viewerFamilies, authorFamilies)
	case models.VisibilitySubFamily:
		return Intersects(viewerFamilies, authorFamilies)
	default:
		return false
	}
}

// Intersects reports whether a and b share at least one id
func Intersects(a, b []int64) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	set := make(map[int64]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
