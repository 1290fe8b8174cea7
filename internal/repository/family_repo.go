package repository

import (
	"database/sql"
	"fmt"
	"time"

	"familytree/internal/database"
	"familytree/internal/models"
)

const familyColumns = `f.id, f.name, COALESCE(f.description, ''), f.creator_id, f.head_of_family_id, f.parent_family_id, f.is_sub_family, f.created_at, f.updated_at`

// FamilyRepository handles database operations for families
type FamilyRepository struct {
	db database.DBTX
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db database.DBTX) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// CreateFamily inserts a family and returns it with its new ID
func (r *FamilyRepository) CreateFamily(family *models.Family) (*models.Family, error) {
	query := `
		INSERT INTO families (name, description, creator_id, head_of_family_id, parent_family_id, is_sub_family)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query,
		family.Name, family.Description, family.CreatorID,
		family.HeadOfFamilyID, family.ParentFamilyID, family.IsSubFamily,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create family: %w", err)
	}

	created := *family
	created.ID = id
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	return &created, nil
}

// GetFamilyByID retrieves a family by ID
func (r *FamilyRepository) GetFamilyByID(familyID int64) (*models.Family, error) {
	query := "SELECT " + familyColumns + " FROM families f WHERE f.id = ?"
	family, err := scanFamily(r.db.QueryRow(query, familyID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	return family, nil
}

// GetMemberFamilies retrieves all families a member actively belongs to
func (r *FamilyRepository) GetMemberFamilies(memberID int64) ([]models.Family, error) {
	query := `
		SELECT ` + familyColumns + `
		FROM families f
		INNER JOIN family_memberships fm ON f.id = fm.family_id
		WHERE fm.member_id = ? AND fm.is_active = ?
		ORDER BY f.created_at DESC, f.id DESC
	`
	return r.queryFamilies(query, memberID, true)
}

// GetSubFamilies lists the direct sub-families of a family
func (r *FamilyRepository) GetSubFamilies(parentFamilyID int64) ([]models.Family, error) {
	query := "SELECT " + familyColumns + " FROM families f WHERE f.parent_family_id = ? ORDER BY f.name, f.id"
	return r.queryFamilies(query, parentFamilyID)
}

// CountSubFamilies counts the direct sub-families of a family
func (r *FamilyRepository) CountSubFamilies(parentFamilyID int64) (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM families WHERE parent_family_id = ?", parentFamilyID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sub-families: %w", err)
	}
	return count, nil
}

// GetSubFamiliesByHeads lists sub-families headed by any of the given members
func (r *FamilyRepository) GetSubFamiliesByHeads(headIDs []int64) ([]models.Family, error) {
	if len(headIDs) == 0 {
		return nil, nil
	}
	placeholders, args := inClause(headIDs)
	query := `
		SELECT ` + familyColumns + `
		FROM families f
		WHERE f.is_sub_family = ? AND f.head_of_family_id IN (` + placeholders + `)
		ORDER BY f.id
	`
	return r.queryFamilies(query, append([]interface{}{true}, args...)...)
}

// GetAllSubFamilies lists every sub-family that has a head
func (r *FamilyRepository) GetAllSubFamilies() ([]models.Family, error) {
	query := `
		SELECT ` + familyColumns + `
		FROM families f
		WHERE f.is_sub_family = ? AND f.head_of_family_id IS NOT NULL
		ORDER BY f.id
	`
	return r.queryFamilies(query, true)
}

// UpdateFamily replaces the editable fields of a family
func (r *FamilyRepository) UpdateFamily(family *models.Family) error {
	query := `
		UPDATE families
		SET name = ?, description = ?, head_of_family_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := r.db.Exec(query, family.Name, family.Description, family.HeadOfFamilyID, family.ID); err != nil {
		return fmt.Errorf("failed to update family: %w", err)
	}
	return nil
}

// DeleteFamily removes a family; its memberships, posts and invitations cascade
func (r *FamilyRepository) DeleteFamily(familyID int64) error {
	if _, err := r.db.Exec("DELETE FROM families WHERE id = ?", familyID); err != nil {
		return fmt.Errorf("failed to delete family: %w", err)
	}
	return nil
}

func (r *FamilyRepository) queryFamilies(query string, args ...interface{}) ([]models.Family, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query families: %w", err)
	}
	defer rows.Close()

	families := []models.Family{}
	for rows.Next() {
		family, err := scanFamily(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan family: %w", err)
		}
		families = append(families, *family)
	}
	return families, rows.Err()
}

func scanFamily(row rowScanner) (*models.Family, error) {
	family := &models.Family{}
	var creatorID, headID, parentID sql.NullInt64
	err := row.Scan(
		&family.ID,
		&family.Name,
		&family.Description,
		&creatorID,
		&headID,
		&parentID,
		&family.IsSubFamily,
		&family.CreatedAt,
		&family.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	family.CreatorID = nullInt64Ptr(creatorID)
	family.HeadOfFamilyID = nullInt64Ptr(headID)
	family.ParentFamilyID = nullInt64Ptr(parentID)
	return family, nil
}
