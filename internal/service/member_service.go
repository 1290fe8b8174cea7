package service

import (
	"fmt"
	"strings"

	"familytree/internal/access"
	"familytree/internal/apperr"
	"familytree/internal/logger"
	"familytree/internal/models"
	"familytree/internal/repository"
	"familytree/internal/validation"
)

const (
	DefaultTreeDepth = 3
	MaxTreeDepth     = 10
)

// MemberInput carries the editable fields of a member. Dates use YYYY-MM-DD.
type MemberInput struct {
	Name      string              `json:"name"`
	Gender    models.Gender       `json:"gender"`
	Status    models.MemberStatus `json:"status"`
	BirthDate string              `json:"birth_date"`
	DeathDate string              `json:"death_date"`
	Bio       string              `json:"bio"`
	FamilyID  *int64              `json:"family_id,omitempty"`
}

// RelationshipInput links a member to a relative. Type describes the relative:
// PARENT means RelatedID is a parent of the member.
type RelationshipInput struct {
	RelatedID int64                   `json:"related_id"`
	Type      models.RelationshipType `json:"type"`
}

// MemberService handles members of the tree and the edges between them
type MemberService struct {
	repos    *repository.Repositories
	tx       Transactor
	access   access.Checker
	resolver *SubFamilyResolver
	notifier Notifier
	logger   *logger.Logger
}

// NewMemberService creates a new member service
func NewMemberService(repos *repository.Repositories, tx Transactor, checker access.Checker, resolver *SubFamilyResolver, notifier Notifier, log *logger.Logger) *MemberService {
	if log == nil {
		log = logger.Nop()
	}
	return &MemberService{
		repos:    repos,
		tx:       tx,
		access:   checker,
		resolver: resolver,
		notifier: notifier,
		logger:   log,
	}
}

// CreateMember adds a person to the tree, optionally enrolling them into a family the actor administers
func (s *MemberService) CreateMember(actorID int64, input MemberInput) (*models.Member, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	member, err := buildMember(input)
	if err != nil {
		return nil, err
	}

	var family *models.Family
	if input.FamilyID != nil {
		family, err = s.repos.Families.GetFamilyByID(*input.FamilyID)
		if err != nil {
			return nil, err
		}
		if family == nil {
			return nil, apperr.NotFound("family %d", *input.FamilyID)
		}
		if err := s.access.VerifyFamilyAdminAccess(actorID, family.ID); err != nil {
			return nil, err
		}
	}

	var created *models.Member
	err = s.tx.InTx(func(repos *repository.Repositories) error {
		created, err = repos.Members.CreateMember(member)
		if err != nil {
			return err
		}
		if family == nil {
			return nil
		}
		membershipType := models.MembershipMain
		if family.IsSubFamily {
			membershipType = models.MembershipSub
		}
		_, err = repos.Memberships.CreateMembership(&models.FamilyMembership{
			MemberID:       created.ID,
			FamilyID:       family.ID,
			Role:           models.RoleMember,
			Type:           membershipType,
			IsActive:       true,
			ManuallyEdited: true,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create member: %w", err)
	}
	return created, nil
}

// GetMember returns a member with parents, children and spouses
func (s *MemberService) GetMember(actorID, memberID int64) (*models.MemberWithRelations, error) {
	member, err := s.getMember(memberID)
	if err != nil {
		return nil, err
	}
	if err := s.access.VerifyMemberAccess(actorID, memberID); err != nil {
		return nil, err
	}

	result := &models.MemberWithRelations{Member: *member}
	if result.Parents, err = s.repos.Members.GetParents(memberID); err != nil {
		return nil, err
	}
	if result.Children, err = s.repos.Members.GetChildren(memberID); err != nil {
		return nil, err
	}
	if result.Spouses, err = s.repos.Members.GetSpouses(memberID); err != nil {
		return nil, err
	}
	return result, nil
}

// ListMembers lists the actor and everyone who shares an active family with them
func (s *MemberService) ListMembers(actorID int64) ([]models.Member, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	return s.repos.Members.ListVisibleMembers(actorID)
}

// UpdateMember edits a member. Members edit themselves; family admins edit their families' members.
func (s *MemberService) UpdateMember(actorID, memberID int64, input MemberInput) (*models.Member, error) {
	existing, err := s.getMember(memberID)
	if err != nil {
		return nil, err
	}
	if err := s.verifyEditAccess(actorID, memberID); err != nil {
		return nil, err
	}

	member, err := buildMember(input)
	if err != nil {
		return nil, err
	}
	member.ID = existing.ID
	member.CreatedAt = existing.CreatedAt
	if err := s.repos.Members.UpdateMember(member); err != nil {
		return nil, err
	}
	return member, nil
}

// DeleteMember removes a member and their edges. Members linked to a user account cannot be deleted.
func (s *MemberService) DeleteMember(actorID, memberID int64) error {
	if _, err := s.getMember(memberID); err != nil {
		return err
	}
	if err := s.verifyEditAccess(actorID, memberID); err != nil {
		return err
	}

	user, err := s.repos.Users.GetUserByMemberID(memberID)
	if err != nil {
		return err
	}
	if user != nil {
		return apperr.BadRequest("member %d is linked to a user account", memberID)
	}

	// Sub-families headed by this member lose their head; refuse rather than orphan them
	headed, err := s.repos.Families.GetSubFamiliesByHeads([]int64{memberID})
	if err != nil {
		return err
	}
	if len(headed) > 0 {
		return apperr.BadRequest("member %d heads %d sub-families", memberID, len(headed))
	}

	if err := s.repos.Members.DeleteMember(memberID); err != nil {
		return err
	}
	s.logger.Info("member deleted", "member_id", memberID, "actor_id", actorID)
	return nil
}

// AddRelationship records a parent, child or spouse edge and re-resolves the
// sub-families whose lineage may have changed
func (s *MemberService) AddRelationship(actorID, memberID int64, input RelationshipInput) error {
	if memberID == input.RelatedID {
		return apperr.BadRequest("a member cannot be related to themselves")
	}
	if !input.Type.Valid() {
		return apperr.BadRequest("unknown relationship type %q", input.Type)
	}
	member, err := s.getMember(memberID)
	if err != nil {
		return err
	}
	related, err := s.getMember(input.RelatedID)
	if err != nil {
		return err
	}
	if err := s.verifyEditAccess(actorID, memberID); err != nil {
		return err
	}
	if err := s.access.VerifyMemberAccess(actorID, input.RelatedID); err != nil {
		return err
	}

	err = s.tx.InTx(func(repos *repository.Repositories) error {
		switch input.Type {
		case models.RelationshipParent:
			return addParentEdge(repos.Members, input.RelatedID, memberID)
		case models.RelationshipChild:
			return addParentEdge(repos.Members, memberID, input.RelatedID)
		default:
			exists, err := repos.Members.HasSpouse(memberID, input.RelatedID)
			if err != nil {
				return err
			}
			if exists {
				return apperr.BadRequest("members %d and %d are already spouses", memberID, input.RelatedID)
			}
			return repos.Members.AddSpouse(memberID, input.RelatedID)
		}
	})
	if err != nil {
		return err
	}

	s.logger.Info("relationship added", "member_id", memberID, "related_id", input.RelatedID, "type", input.Type)
	s.resolveFor(memberID, input.RelatedID)

	notify(s.notifier, s.logger, &models.Notification{
		RecipientID:   related.ID,
		ActorID:       &actorID,
		Type:          models.NotificationRelationshipAdd,
		Message:       fmt.Sprintf("%s added you as their %s", member.Name, strings.ToLower(string(input.Type))),
		ReferenceType: "member",
		ReferenceID:   &memberID,
	})
	return nil
}

// RemoveRelationship deletes every edge between two members
func (s *MemberService) RemoveRelationship(actorID, memberID, relatedID int64) error {
	if _, err := s.getMember(memberID); err != nil {
		return err
	}
	if err := s.verifyEditAccess(actorID, memberID); err != nil {
		return err
	}

	removed := false
	err := s.tx.InTx(func(repos *repository.Repositories) error {
		for _, remove := range []func() (bool, error){
			func() (bool, error) { return repos.Members.RemoveParent(relatedID, memberID) },
			func() (bool, error) { return repos.Members.RemoveParent(memberID, relatedID) },
			func() (bool, error) { return repos.Members.RemoveSpouse(memberID, relatedID) },
		} {
			ok, err := remove()
			if err != nil {
				return err
			}
			removed = removed || ok
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !removed {
		return apperr.NotFound("no relationship between members %d and %d", memberID, relatedID)
	}

	s.logger.Info("relationship removed", "member_id", memberID, "related_id", relatedID)
	s.resolveFor(memberID, relatedID)
	return nil
}

// GetTree returns a member's ancestors and descendants up to depth generations each way
func (s *MemberService) GetTree(actorID, memberID int64, depth int) (*models.TreeNode, error) {
	member, err := s.getMember(memberID)
	if err != nil {
		return nil, err
	}
	if err := s.access.VerifyMemberAccess(actorID, memberID); err != nil {
		return nil, err
	}
	if depth <= 0 {
		depth = DefaultTreeDepth
	}
	if depth > MaxTreeDepth {
		depth = MaxTreeDepth
	}

	root := &models.TreeNode{Member: *member}
	if root.Spouses, err = s.repos.Members.GetSpouses(memberID); err != nil {
		return nil, err
	}
	if root.Parents, err = s.ancestors(memberID, depth, map[int64]bool{memberID: true}); err != nil {
		return nil, err
	}
	if root.Children, err = s.descendants(memberID, depth, map[int64]bool{memberID: true}); err != nil {
		return nil, err
	}
	return root, nil
}

func (s *MemberService) ancestors(memberID int64, depth int, seen map[int64]bool) ([]*models.TreeNode, error) {
	if depth == 0 {
		return nil, nil
	}
	parents, err := s.repos.Members.GetParents(memberID)
	if err != nil {
		return nil, err
	}
	var nodes []*models.TreeNode
	for _, parent := range parents {
		if seen[parent.ID] {
			continue
		}
		seen[parent.ID] = true
		node := &models.TreeNode{Member: parent}
		if node.Parents, err = s.ancestors(parent.ID, depth-1, seen); err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func (s *MemberService) descendants(memberID int64, depth int, seen map[int64]bool) ([]*models.TreeNode, error) {
	if depth == 0 {
		return nil, nil
	}
	children, err := s.repos.Members.GetChildren(memberID)
	if err != nil {
		return nil, err
	}
	var nodes []*models.TreeNode
	for _, child := range children {
		if seen[child.ID] {
			continue
		}
		seen[child.ID] = true
		node := &models.TreeNode{Member: child}
		if node.Spouses, err = s.repos.Members.GetSpouses(child.ID); err != nil {
			return nil, err
		}
		if node.Children, err = s.descendants(child.ID, depth-1, seen); err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func (s *MemberService) getMember(memberID int64) (*models.Member, error) {
	member, err := s.repos.Members.GetMemberByID(memberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, apperr.NotFound("member %d", memberID)
	}
	return member, nil
}

// verifyEditAccess lets members edit themselves and family admins edit the members of their families
func (s *MemberService) verifyEditAccess(actorID, memberID int64) error {
	if err := requireActor(actorID); err != nil {
		return err
	}
	if actorID == memberID {
		return nil
	}
	familyIDs, err := s.repos.Memberships.GetActiveFamilyIDs(memberID)
	if err != nil {
		return err
	}
	for _, familyID := range familyIDs {
		if s.access.VerifyFamilyAdminAccess(actorID, familyID) == nil {
			return nil
		}
	}
	return apperr.Forbidden("member %d cannot edit member %d", actorID, memberID)
}

func (s *MemberService) resolveFor(memberIDs ...int64) {
	if s.resolver == nil {
		return
	}
	if _, err := s.resolver.ResolveForMembers(memberIDs...); err != nil {
		s.logger.Warn("failed to resolve sub-families", "member_ids", memberIDs, "error", err)
	}
}

// addParentEdge refuses duplicates and edges that would make a member its own ancestor
func addParentEdge(members *repository.MemberRepository, parentID, childID int64) error {
	exists, err := members.HasParent(parentID, childID)
	if err != nil {
		return err
	}
	if exists {
		return apperr.BadRequest("member %d is already a parent of member %d", parentID, childID)
	}
	cycle, err := members.IsAncestor(childID, parentID)
	if err != nil {
		return err
	}
	if cycle {
		return apperr.BadRequest("member %d is an ancestor of member %d", childID, parentID)
	}
	return members.AddParent(parentID, childID)
}

func buildMember(input MemberInput) (*models.Member, error) {
	name := strings.TrimSpace(input.Name)
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}
	bio := strings.TrimSpace(input.Bio)
	if bio != "" {
		if err := validation.ValidateText("bio", bio, validation.MaxBioLength); err != nil {
			return nil, err
		}
	}

	gender := input.Gender
	if gender == "" {
		gender = models.GenderUnknown
	}
	if !gender.Valid() {
		return nil, validation.ValidationError{Field: "gender", Message: "unknown gender"}
	}

	birth, err := validation.ParseDate("birth_date", input.BirthDate)
	if err != nil {
		return nil, err
	}
	death, err := validation.ParseDate("death_date", input.DeathDate)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateLifeDates(birth, death); err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = models.MemberAlive
		if death != nil {
			status = models.MemberDeceased
		}
	}
	if !status.Valid() {
		return nil, validation.ValidationError{Field: "status", Message: "unknown status"}
	}

	return &models.Member{
		Name:      name,
		Gender:    gender,
		Status:    status,
		BirthDate: birth,
		DeathDate: death,
		Bio:       bio,
	}, nil
}
