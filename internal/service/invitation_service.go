package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"familytree/internal/access"
	"familytree/internal/apperr"
	"familytree/internal/logger"
	"familytree/internal/models"
	"familytree/internal/repository"
	"familytree/internal/validation"
)

// DefaultInvitationTTL is how long an invitation stays redeemable
const DefaultInvitationTTL = 7 * 24 * time.Hour

// InvitationService lets family admins invite people by email
type InvitationService struct {
	repos    *repository.Repositories
	tx       Transactor
	access   access.Checker
	email    *EmailService
	notifier Notifier
	logger   *logger.Logger
	ttl      time.Duration
}

// NewInvitationService creates a new invitation service
func NewInvitationService(repos *repository.Repositories, tx Transactor, checker access.Checker, email *EmailService, notifier Notifier, log *logger.Logger) *InvitationService {
	if log == nil {
		log = logger.Nop()
	}
	return &InvitationService{
		repos:    repos,
		tx:       tx,
		access:   checker,
		email:    email,
		notifier: notifier,
		logger:   log,
		ttl:      DefaultInvitationTTL,
	}
}

// Invite creates an invitation into a family the actor administers and emails the join link
func (s *InvitationService) Invite(ctx context.Context, actorID, familyID int64, email string, role models.Role) (*models.Invitation, error) {
	family, err := s.repos.Families.GetFamilyByID(familyID)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, apperr.NotFound("family %d", familyID)
	}
	if err := s.access.VerifyFamilyAdminAccess(actorID, familyID); err != nil {
		return nil, err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if role == "" {
		role = models.RoleMember
	}
	if !role.Valid() {
		return nil, apperr.BadRequest("unknown role %q", role)
	}

	invitation, err := s.repos.Invitations.CreateInvitation(email, familyID, actorID, role, time.Now().Add(s.ttl))
	if err != nil {
		return nil, err
	}
	s.logger.Info("invitation created", "invitation_id", invitation.ID, "family_id", familyID, "invited_by", actorID)

	if s.email.IsEnabled() {
		inviterName := "A relative"
		if inviter, err := s.repos.Members.GetMemberByID(actorID); err == nil && inviter != nil {
			inviterName = inviter.Name
		}
		if err := s.email.SendInvitationEmail(ctx, email, inviterName, family.Name, invitation.Code, invitation.ExpiresAt); err != nil {
			s.logger.Warn("failed to send invitation email", "invitation_id", invitation.ID, "error", err)
		}
	}
	return invitation, nil
}

// Accept redeems an invitation code for the actor, creating or reactivating their membership
func (s *InvitationService) Accept(actorID int64, code string) (*models.FamilyMembership, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	invitation, err := s.repos.Invitations.GetInvitationByCode(strings.TrimSpace(code))
	if err != nil {
		return nil, err
	}
	if invitation == nil {
		return nil, apperr.NotFound("invitation")
	}
	if invitation.IsUsed() {
		return nil, apperr.BadRequest("invitation has already been used")
	}
	if invitation.IsExpired() {
		return nil, apperr.BadRequest("invitation has expired")
	}

	var membership *models.FamilyMembership
	err = s.tx.InTx(func(repos *repository.Repositories) error {
		marked, err := repos.Invitations.MarkInvitationUsed(invitation.ID, actorID)
		if err != nil {
			return err
		}
		if !marked {
			return apperr.BadRequest("invitation has already been used")
		}

		existing, err := repos.Memberships.GetMembership(actorID, invitation.FamilyID)
		if err != nil {
			return err
		}
		if existing != nil {
			if !existing.IsActive {
				existing.IsActive = true
				existing.Role = invitation.Role
				existing.ManuallyEdited = true
				if err := repos.Memberships.UpdateMembership(existing); err != nil {
					return err
				}
			}
			membership = existing
			return nil
		}

		membership, err = repos.Memberships.CreateMembership(&models.FamilyMembership{
			MemberID:       actorID,
			FamilyID:       invitation.FamilyID,
			Role:           invitation.Role,
			Type:           models.MembershipMain,
			IsActive:       true,
			ManuallyEdited: true,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invitation accepted", "invitation_id", invitation.ID, "member_id", actorID)
	notify(s.notifier, s.logger, &models.Notification{
		RecipientID:   invitation.InvitedBy,
		ActorID:       &actorID,
		Type:          models.NotificationFamilyJoined,
		Message:       fmt.Sprintf("%s accepted your invitation", invitation.Email),
		ReferenceType: "family",
		ReferenceID:   &invitation.FamilyID,
	})
	return membership, nil
}

// ListFamilyInvitations lists a family's invitations for its admins
func (s *InvitationService) ListFamilyInvitations(actorID, familyID int64) ([]models.Invitation, error) {
	if err := s.access.VerifyFamilyAdminAccess(actorID, familyID); err != nil {
		return nil, err
	}
	return s.repos.Invitations.ListFamilyInvitations(familyID)
}

// Revoke deletes an invitation of a family the actor administers
func (s *InvitationService) Revoke(actorID, familyID, invitationID int64) error {
	if err := s.access.VerifyFamilyAdminAccess(actorID, familyID); err != nil {
		return err
	}
	invitation, err := s.repos.Invitations.GetInvitationByID(invitationID)
	if err != nil {
		return err
	}
	if invitation == nil || invitation.FamilyID != familyID {
		return apperr.NotFound("invitation %d", invitationID)
	}
	return s.repos.Invitations.DeleteInvitation(invitationID)
}

// PurgeExpired deletes unused invitations that have expired
func (s *InvitationService) PurgeExpired() (int64, error) {
	n, err := s.repos.Invitations.DeleteExpiredInvitations(time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge invitations: %w", err)
	}
	return n, nil
}
