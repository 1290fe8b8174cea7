package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"familytree/internal/database"
	"familytree/internal/models"
)

const invitationColumns = `i.id, i.code, i.email, i.family_id, i.invited_by, i.role, i.created_at, i.expires_at, i.used_at, i.used_by, COALESCE(m.name, '')`

type InvitationRepository struct {
	db database.DBTX
}

func NewInvitationRepository(db database.DBTX) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// GenerateInvitationCode generates a random 32 character invitation code
func (r *InvitationRepository) GenerateInvitationCode() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(id.String(), "-", ""), nil
}

// CreateInvitation creates an invitation into familyID with a fresh code
func (r *InvitationRepository) CreateInvitation(email string, familyID, invitedBy int64, role models.Role, expiresAt time.Time) (*models.Invitation, error) {
	code, err := r.GenerateInvitationCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invitation code: %w", err)
	}

	query := `
		INSERT INTO invitations (code, email, family_id, invited_by, role, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, code, email, familyID, invitedBy, role, expiresAt.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	return &models.Invitation{
		ID:        id,
		Code:      code,
		Email:     email,
		FamilyID:  familyID,
		InvitedBy: invitedBy,
		Role:      role,
		CreatedAt: time.Now(),
		ExpiresAt: expiresAt,
	}, nil
}

// GetInvitationByCode retrieves an invitation by code
func (r *InvitationRepository) GetInvitationByCode(code string) (*models.Invitation, error) {
	return r.getInvitation("WHERE i.code = ?", code)
}

// GetInvitationByID retrieves an invitation by ID
func (r *InvitationRepository) GetInvitationByID(id int64) (*models.Invitation, error) {
	return r.getInvitation("WHERE i.id = ?", id)
}

func (r *InvitationRepository) getInvitation(where string, arg interface{}) (*models.Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM invitations i
		LEFT JOIN members m ON i.invited_by = m.id
		` + where
	inv, err := scanInvitation(r.db.QueryRow(query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return inv, nil
}

// MarkInvitationUsed records that memberID redeemed the invitation. It reports
// false when the invitation was already used.
func (r *InvitationRepository) MarkInvitationUsed(id, memberID int64) (bool, error) {
	query := "UPDATE invitations SET used_at = ?, used_by = ? WHERE id = ? AND used_at IS NULL"
	result, err := r.db.Exec(query, time.Now().UTC(), memberID, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark invitation used: %w", err)
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// ListFamilyInvitations returns a family's invitations, newest first
func (r *InvitationRepository) ListFamilyInvitations(familyID int64) ([]models.Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM invitations i
		LEFT JOIN members m ON i.invited_by = m.id
		WHERE i.family_id = ?
		ORDER BY i.created_at DESC, i.id DESC
	`
	rows, err := r.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query invitations: %w", err)
	}
	defer rows.Close()

	invitations := []models.Invitation{}
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, *inv)
	}
	return invitations, rows.Err()
}

// DeleteInvitation removes an invitation
func (r *InvitationRepository) DeleteInvitation(id int64) error {
	if _, err := r.db.Exec("DELETE FROM invitations WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete invitation: %w", err)
	}
	return nil
}

// DeleteExpiredInvitations removes unused invitations that expired before now
func (r *InvitationRepository) DeleteExpiredInvitations(now time.Time) (int64, error) {
	result, err := r.db.Exec("DELETE FROM invitations WHERE used_at IS NULL AND expires_at < ?", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired invitations: %w", err)
	}
	return result.RowsAffected()
}

func scanInvitation(row rowScanner) (*models.Invitation, error) {
	var inv models.Invitation
	var usedAt sql.NullTime
	var usedBy sql.NullInt64
	err := row.Scan(
		&inv.ID, &inv.Code, &inv.Email, &inv.FamilyID, &inv.InvitedBy, &inv.Role,
		&inv.CreatedAt, &inv.ExpiresAt, &usedAt, &usedBy, &inv.InviterName,
	)
	if err != nil {
		return nil, err
	}
	inv.UsedAt = nullTimePtr(usedAt)
	inv.UsedBy = nullInt64Ptr(usedBy)
	return &inv, nil
}
