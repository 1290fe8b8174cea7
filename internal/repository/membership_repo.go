package repository

import (
	"database/sql"
	"fmt"
	"time"

	"familytree/internal/apperr"
	"familytree/internal/database"
	"familytree/internal/models"
)

const membershipColumns = `fm.id, fm.member_id, fm.family_id, fm.role, fm.type, fm.is_active, fm.auto_enrolled, fm.manually_edited, fm.join_date`

// MembershipRepository handles the rows joining members to families
type MembershipRepository struct {
	db database.DBTX
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db database.DBTX) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// GetMembership returns the membership of memberID in familyID, or nil
func (r *MembershipRepository) GetMembership(memberID, familyID int64) (*models.FamilyMembership, error) {
	query := "SELECT " + membershipColumns + " FROM family_memberships fm WHERE fm.member_id = ? AND fm.family_id = ?"
	membership, err := scanMembership(r.db.QueryRow(query, memberID, familyID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return membership, nil
}

// GetActiveFamilyIDs returns the ids of every family memberID actively belongs to
func (r *MembershipRepository) GetActiveFamilyIDs(memberID int64) ([]int64, error) {
	query := "SELECT family_id FROM family_memberships WHERE member_id = ? AND is_active = ? ORDER BY family_id"
	rows, err := r.db.Query(query, memberID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to query family ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan family id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateMembership inserts a membership row
func (r *MembershipRepository) CreateMembership(m *models.FamilyMembership) (*models.FamilyMembership, error) {
	query := `
		INSERT INTO family_memberships (member_id, family_id, role, type, is_active, auto_enrolled, manually_edited)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, m.MemberID, m.FamilyID, m.Role, m.Type, m.IsActive, m.AutoEnrolled, m.ManuallyEdited)
	if err != nil {
		if r.db.GetDialect().IsUniqueViolation(err) {
			return nil, apperr.BadRequest("member %d already belongs to family %d", m.MemberID, m.FamilyID)
		}
		return nil, fmt.Errorf("failed to create membership: %w", err)
	}

	created := *m
	created.ID = id
	created.JoinDate = time.Now()
	return &created, nil
}

// UpdateMembership writes every mutable field of a membership
func (r *MembershipRepository) UpdateMembership(m *models.FamilyMembership) error {
	query := `
		UPDATE family_memberships
		SET role = ?, type = ?, is_active = ?, auto_enrolled = ?, manually_edited = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := r.db.Exec(query, m.Role, m.Type, m.IsActive, m.AutoEnrolled, m.ManuallyEdited, m.ID); err != nil {
		return fmt.Errorf("failed to update membership: %w", err)
	}
	return nil
}

// SetAutoState updates only the flags owned by automatic reconciliation
func (r *MembershipRepository) SetAutoState(membershipID int64, isActive, autoEnrolled bool) error {
	query := `
		UPDATE family_memberships
		SET is_active = ?, auto_enrolled = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := r.db.Exec(query, isActive, autoEnrolled, membershipID); err != nil {
		return fmt.Errorf("failed to update membership state: %w", err)
	}
	return nil
}

// ListFamilyMemberships lists a family's memberships with member details
func (r *MembershipRepository) ListFamilyMemberships(familyID int64, includeInactive bool) ([]models.MembershipWithMember, error) {
	query := `
		SELECT ` + membershipColumns + `, ` + memberColumns + `
		FROM family_memberships fm
		INNER JOIN members m ON m.id = fm.member_id
		WHERE fm.family_id = ?
	`
	args := []interface{}{familyID}
	if !includeInactive {
		query += " AND fm.is_active = ?"
		args = append(args, true)
	}
	query += " ORDER BY fm.join_date, fm.id"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query family members: %w", err)
	}
	defer rows.Close()

	result := []models.MembershipWithMember{}
	for rows.Next() {
		var item models.MembershipWithMember
		var birth, death sql.NullTime
		if err := rows.Scan(
			&item.ID, &item.MemberID, &item.FamilyID, &item.Role, &item.Type,
			&item.IsActive, &item.AutoEnrolled, &item.ManuallyEdited, &item.JoinDate,
			&item.Member.ID, &item.Member.Name, &item.Member.Gender, &item.Member.Status,
			&birth, &death, &item.Member.Bio, &item.Member.CreatedAt, &item.Member.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan family member: %w", err)
		}
		item.Member.BirthDate = nullTimePtr(birth)
		item.Member.DeathDate = nullTimePtr(death)
		result = append(result, item)
	}
	return result, rows.Err()
}

// ListAutoEnrolled lists the active, automatically enrolled memberships of a family
func (r *MembershipRepository) ListAutoEnrolled(familyID int64) ([]models.FamilyMembership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM family_memberships fm
		WHERE fm.family_id = ? AND fm.auto_enrolled = ? AND fm.is_active = ?
		ORDER BY fm.id
	`
	rows, err := r.db.Query(query, familyID, true, true)
	if err != nil {
		return nil, fmt.Errorf("failed to query memberships: %w", err)
	}
	defer rows.Close()

	var memberships []models.FamilyMembership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, *m)
	}
	return memberships, rows.Err()
}

func scanMembership(row rowScanner) (*models.FamilyMembership, error) {
	m := &models.FamilyMembership{}
	err := row.Scan(
		&m.ID,
		&m.MemberID,
		&m.FamilyID,
		&m.Role,
		&m.Type,
		&m.IsActive,
		&m.AutoEnrolled,
		&m.ManuallyEdited,
		&m.JoinDate,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}
