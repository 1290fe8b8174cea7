package service

import (
	"errors"
	"fmt"
	"strings"

	"familytree/internal/access"
	"familytree/internal/apperr"
	"familytree/internal/logger"
	"familytree/internal/models"
	"familytree/internal/repository"
	"familytree/internal/validation"
)

// FamilyInput carries the editable fields of a family
type FamilyInput struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	HeadOfFamilyID *int64 `json:"head_of_family_id"`
	ParentFamilyID *int64 `json:"parent_family_id"`
}

// MembershipInput carries an admin's edit of a membership. Nil fields are left as they are.
type MembershipInput struct {
	MemberID int64                  `json:"member_id"`
	Role     *models.Role           `json:"role"`
	Type     *models.MembershipType `json:"type"`
	IsActive *bool                  `json:"is_active"`
}

// FamilyService handles families and their memberships
type FamilyService struct {
	repos    *repository.Repositories
	tx       Transactor
	access   access.Checker
	resolver *SubFamilyResolver
	notifier Notifier
	logger   *logger.Logger
}

// NewFamilyService creates a new family service
func NewFamilyService(repos *repository.Repositories, tx Transactor, checker access.Checker, resolver *SubFamilyResolver, notifier Notifier, log *logger.Logger) *FamilyService {
	if log == nil {
		log = logger.Nop()
	}
	return &FamilyService{
		repos:    repos,
		tx:       tx,
		access:   checker,
		resolver: resolver,
		notifier: notifier,
		logger:   log,
	}
}

// CreateFamily creates a family with the actor as its admin. A sub-family
// needs a head and admin rights on its parent, and is resolved once created.
func (s *FamilyService) CreateFamily(actorID int64, input FamilyInput) (*models.Family, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	input.Name = strings.TrimSpace(input.Name)
	if err := validation.ValidateName(input.Name); err != nil {
		return nil, err
	}

	isSub := input.ParentFamilyID != nil
	if isSub {
		parent, err := s.repos.Families.GetFamilyByID(*input.ParentFamilyID)
		if err != nil {
			return nil, fmt.Errorf("failed to get parent family: %w", err)
		}
		if parent == nil {
			return nil, apperr.NotFound("family %d", *input.ParentFamilyID)
		}
		if err := s.access.VerifyFamilyAdminAccess(actorID, parent.ID); err != nil {
			return nil, err
		}
		if input.HeadOfFamilyID == nil {
			return nil, apperr.BadRequest("a sub-family needs a head of family")
		}
	}
	if input.HeadOfFamilyID != nil {
		if err := s.requireHead(actorID, *input.HeadOfFamilyID); err != nil {
			return nil, err
		}
	}

	membershipType := models.MembershipMain
	if isSub {
		membershipType = models.MembershipSub
	}

	var family *models.Family
	err := s.tx.InTx(func(repos *repository.Repositories) error {
		created, err := repos.Families.CreateFamily(&models.Family{
			Name:           input.Name,
			Description:    strings.TrimSpace(input.Description),
			CreatorID:      &actorID,
			HeadOfFamilyID: input.HeadOfFamilyID,
			ParentFamilyID: input.ParentFamilyID,
			IsSubFamily:    isSub,
		})
		if err != nil {
			return err
		}
		family = created

		if _, err := repos.Memberships.CreateMembership(&models.FamilyMembership{
			MemberID:       actorID,
			FamilyID:       created.ID,
			Role:           models.RoleAdmin,
			Type:           membershipType,
			IsActive:       true,
			ManuallyEdited: true,
		}); err != nil {
			return err
		}

		// Sub-family heads are enrolled by the resolver
		if !isSub && input.HeadOfFamilyID != nil && *input.HeadOfFamilyID != actorID {
			if _, err := repos.Memberships.CreateMembership(&models.FamilyMembership{
				MemberID:       *input.HeadOfFamilyID,
				FamilyID:       created.ID,
				Role:           models.RoleHead,
				Type:           models.MembershipMain,
				IsActive:       true,
				ManuallyEdited: true,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create family: %w", err)
	}

	s.logger.Info("family created", "family_id", family.ID, "creator_id", actorID, "sub_family", isSub)
	if isSub {
		s.resolve(family.ID)
	}
	return family, nil
}

// GetFamily returns a family with its roster and sub-families. Admins also see inactive memberships.
func (s *FamilyService) GetFamily(actorID, familyID int64) (*models.FamilyWithMembers, error) {
	family, err := s.getFamily(familyID)
	if err != nil {
		return nil, err
	}
	if err := s.access.VerifyFamilyAccess(actorID, familyID); err != nil {
		return nil, err
	}

	includeInactive := s.access.VerifyFamilyAdminAccess(actorID, familyID) == nil
	members, err := s.repos.Memberships.ListFamilyMemberships(familyID, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("failed to list family members: %w", err)
	}
	subFamilies, err := s.repos.Families.GetSubFamilies(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sub-families: %w", err)
	}

	return &models.FamilyWithMembers{
		Family:      *family,
		Members:     members,
		SubFamilies: subFamilies,
	}, nil
}

// ListFamilies lists the families the actor actively belongs to
func (s *FamilyService) ListFamilies(actorID int64) ([]models.Family, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	families, err := s.repos.Families.GetMemberFamilies(actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list families: %w", err)
	}
	return families, nil
}

// ListSubFamilies lists the direct sub-families of a family the actor belongs to
func (s *FamilyService) ListSubFamilies(actorID, familyID int64) ([]models.Family, error) {
	if _, err := s.getFamily(familyID); err != nil {
		return nil, err
	}
	if err := s.access.VerifyFamilyAccess(actorID, familyID); err != nil {
		return nil, err
	}
	families, err := s.repos.Families.GetSubFamilies(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sub-families: %w", err)
	}
	return families, nil
}

// UpdateFamily edits a family's name, description and head. Changing the head
// of a sub-family re-resolves its roster.
func (s *FamilyService) UpdateFamily(actorID, familyID int64, input FamilyInput) (*models.Family, error) {
	family, err := s.getFamily(familyID)
	if err != nil {
		return nil, err
	}
	if err := s.access.VerifyFamilyAdminAccess(actorID, familyID); err != nil {
		return nil, err
	}

	input.Name = strings.TrimSpace(input.Name)
	if err := validation.ValidateName(input.Name); err != nil {
		return nil, err
	}
	if family.IsSubFamily && input.HeadOfFamilyID == nil {
		return nil, apperr.BadRequest("a sub-family needs a head of family")
	}
	headChanged := !sameID(family.HeadOfFamilyID, input.HeadOfFamilyID)
	if headChanged && input.HeadOfFamilyID != nil {
		if err := s.requireHead(actorID, *input.HeadOfFamilyID); err != nil {
			return nil, err
		}
	}
	family.Name = input.Name
	family.Description = strings.TrimSpace(input.Description)
	family.HeadOfFamilyID = input.HeadOfFamilyID
	if err := s.repos.Families.UpdateFamily(family); err != nil {
		return nil, err
	}

	if family.IsSubFamily && headChanged {
		s.resolve(family.ID)
	}
	return family, nil
}

// DeleteFamily removes a family. Families that still have sub-families are kept.
func (s *FamilyService) DeleteFamily(actorID, familyID int64) error {
	if _, err := s.getFamily(familyID); err != nil {
		return err
	}
	if err := s.access.VerifyFamilyAdminAccess(actorID, familyID); err != nil {
		return err
	}

	count, err := s.repos.Families.CountSubFamilies(familyID)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperr.BadRequest("family %d still has %d sub-families", familyID, count)
	}

	if err := s.repos.Families.DeleteFamily(familyID); err != nil {
		return err
	}
	s.logger.Info("family deleted", "family_id", familyID, "actor_id", actorID)
	return nil
}

// AddMember enrolls a member into a family by hand, reactivating an earlier membership if one exists
func (s *FamilyService) AddMember(actorID, familyID int64, input MembershipInput) (*models.FamilyMembership, error) {
	family, err := s.getFamily(familyID)
	if err != nil {
		return nil, err
	}
	if err := s.access.VerifyFamilyAdminAccess(actorID, familyID); err != nil {
		return nil, err
	}
	if err := s.requireMember(input.MemberID); err != nil {
		return nil, err
	}

	role := models.RoleMember
	if input.Role != nil {
		role = *input.Role
	}
	if !role.Valid() {
		return nil, apperr.BadRequest("unknown role %q", role)
	}
	membershipType := models.MembershipMain
	if family.IsSubFamily {
		membershipType = models.MembershipSub
	}

	existing, err := s.repos.Memberships.GetMembership(input.MemberID, familyID)
	if err != nil {
		return nil, err
	}

	var membership *models.FamilyMembership
	if existing != nil {
		if existing.IsActive {
			return nil, apperr.BadRequest("member %d already belongs to family %d", input.MemberID, familyID)
		}
		existing.Role = role
		existing.IsActive = true
		existing.ManuallyEdited = true
		if err := s.repos.Memberships.UpdateMembership(existing); err != nil {
			return nil, err
		}
		membership = existing
	} else {
		membership, err = s.repos.Memberships.CreateMembership(&models.FamilyMembership{
			MemberID:       input.MemberID,
			FamilyID:       familyID,
			Role:           role,
			Type:           membershipType,
			IsActive:       true,
			ManuallyEdited: true,
		})
		if err != nil {
			return nil, err
		}
	}

	notify(s.notifier, s.logger, &models.Notification{
		RecipientID:   input.MemberID,
		ActorID:       &actorID,
		Type:          models.NotificationFamilyJoined,
		Message:       fmt.Sprintf("You were added to %s", family.Name),
		ReferenceType: "family",
		ReferenceID:   &family.ID,
	})
	return membership, nil
}

// UpdateMembership applies an admin's edit. Edited memberships are no longer
// touched by sub-family resolution.
func (s *FamilyService) UpdateMembership(actorID, familyID int64, input MembershipInput) (*models.FamilyMembership, error) {
	if _, err := s.getFamily(familyID); err != nil {
		return nil, err
	}
	if err := s.access.VerifyFamilyAdminAccess(actorID, familyID); err != nil {
		return nil, err
	}

	membership, err := s.repos.Memberships.GetMembership(input.MemberID, familyID)
	if err != nil {
		return nil, err
	}
	if membership == nil {
		return nil, apperr.NotFound("member %d is not in family %d", input.MemberID, familyID)
	}

	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, apperr.BadRequest("unknown role %q", *input.Role)
		}
		membership.Role = *input.Role
	}
	if input.Type != nil {
		if *input.Type != models.MembershipMain && *input.Type != models.MembershipSub {
			return nil, apperr.BadRequest("unknown membership type %q", *input.Type)
		}
		membership.Type = *input.Type
	}
	if input.IsActive != nil {
		membership.IsActive = *input.IsActive
	}
	membership.ManuallyEdited = true

	if err := s.repos.Memberships.UpdateMembership(membership); err != nil {
		return nil, err
	}

	notify(s.notifier, s.logger, &models.Notification{
		RecipientID:   membership.MemberID,
		ActorID:       &actorID,
		Type:          models.NotificationMembershipChange,
		Message:       "Your family membership was updated",
		ReferenceType: "family",
		ReferenceID:   &familyID,
	})
	return membership, nil
}

// RemoveMember deactivates a membership. Members may remove themselves; removing others needs admin rights.
func (s *FamilyService) RemoveMember(actorID, familyID, memberID int64) error {
	if _, err := s.getFamily(familyID); err != nil {
		return err
	}
	if actorID != memberID {
		if err := s.access.VerifyFamilyAdminAccess(actorID, familyID); err != nil {
			return err
		}
	} else if err := requireActor(actorID); err != nil {
		return err
	}

	membership, err := s.repos.Memberships.GetMembership(memberID, familyID)
	if err != nil {
		return err
	}
	if membership == nil || !membership.IsActive {
		return apperr.NotFound("member %d is not in family %d", memberID, familyID)
	}

	membership.IsActive = false
	membership.ManuallyEdited = true
	if err := s.repos.Memberships.UpdateMembership(membership); err != nil {
		return err
	}

	s.logger.Info("member removed from family", "family_id", familyID, "member_id", memberID, "actor_id", actorID)
	return nil
}

// Recalculate re-resolves a sub-family for an admin of it or of its parent family
func (s *FamilyService) Recalculate(actorID, familyID int64) (*ResolveResult, error) {
	family, err := s.getFamily(familyID)
	if err != nil {
		return nil, err
	}
	if err := s.access.VerifyFamilyAdminAccess(actorID, familyID); err != nil {
		if family.ParentFamilyID == nil || !errors.Is(err, apperr.ErrForbidden) {
			return nil, err
		}
		if err := s.access.VerifyFamilyAdminAccess(actorID, *family.ParentFamilyID); err != nil {
			return nil, err
		}
	}
	return s.resolver.Resolve(familyID)
}

func (s *FamilyService) getFamily(familyID int64) (*models.Family, error) {
	family, err := s.repos.Families.GetFamilyByID(familyID)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, apperr.NotFound("family %d", familyID)
	}
	return family, nil
}

// requireHead checks that the head exists and that the actor can reach them
func (s *FamilyService) requireHead(actorID, headID int64) error {
	if err := s.requireMember(headID); err != nil {
		return err
	}
	return s.access.VerifyMemberAccess(actorID, headID)
}

func (s *FamilyService) requireMember(memberID int64) error {
	member, err := s.repos.Members.GetMemberByID(memberID)
	if err != nil {
		return err
	}
	if member == nil {
		return apperr.NotFound("member %d", memberID)
	}
	return nil
}

// resolve runs after the triggering change has committed; failures are logged
// and picked up again by the nightly sweep
func (s *FamilyService) resolve(familyID int64) {
	if s.resolver == nil {
		return
	}
	if _, err := s.resolver.Resolve(familyID); err != nil {
		s.logger.Warn("failed to resolve sub-family", "family_id", familyID, "error", err)
	}
}

func requireActor(actorID int64) error {
	if actorID == 0 {
		return apperr.Forbidden("a member profile is required")
	}
	return nil
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func notify(n Notifier, log *logger.Logger, notification *models.Notification) {
	if n == nil {
		return
	}
	if err := n.Notify(notification); err != nil {
		log.Warn("failed to send notification", "type", notification.Type, "recipient_id", notification.RecipientID, "error", err)
	}
}
