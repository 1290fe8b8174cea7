package repository

import (
	"database/sql"
	"fmt"
	"time"

	"familytree/internal/database"
	"familytree/internal/models"
)

const memberColumns = `m.id, m.name, m.gender, m.status, m.birth_date, m.death_date, COALESCE(m.bio, ''), m.created_at, m.updated_at`

// MemberRepository handles members and the parent and spouse edges between them
type MemberRepository struct {
	db database.DBTX
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db database.DBTX) *MemberRepository {
	return &MemberRepository{db: db}
}

// CreateMember inserts a member and returns it with its new ID
func (r *MemberRepository) CreateMember(member *models.Member) (*models.Member, error) {
	query := `
		INSERT INTO members (name, gender, status, birth_date, death_date, bio)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, member.Name, member.Gender, member.Status, member.BirthDate, member.DeathDate, member.Bio)
	if err != nil {
		return nil, fmt.Errorf("failed to create member: %w", err)
	}

	created := *member
	created.ID = id
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	return &created, nil
}

// GetMemberByID retrieves a member by ID
func (r *MemberRepository) GetMemberByID(id int64) (*models.Member, error) {
	query := "SELECT " + memberColumns + " FROM members m WHERE m.id = ?"
	member, err := scanMember(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return member, nil
}

// ListVisibleMembers returns the member itself and every active member of the
// families it actively belongs to
func (r *MemberRepository) ListVisibleMembers(memberID int64) ([]models.Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM members m
		WHERE m.id = ? OR m.id IN (
			SELECT fm.member_id
			FROM family_memberships fm
			WHERE fm.is_active = ? AND fm.family_id IN (
				SELECT own.family_id FROM family_memberships own
				WHERE own.member_id = ? AND own.is_active = ?
			)
		)
		ORDER BY m.name, m.id
	`
	return r.queryMembers(query, memberID, true, memberID, true)
}

// UpdateMember replaces the editable fields of a member
func (r *MemberRepository) UpdateMember(member *models.Member) error {
	query := `
		UPDATE members
		SET name = ?, gender = ?, status = ?, birth_date = ?, death_date = ?, bio = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	_, err := r.db.Exec(query, member.Name, member.Gender, member.Status, member.BirthDate, member.DeathDate, member.Bio, member.ID)
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}
	return nil
}

// DeleteMember removes a member; edges and memberships cascade
func (r *MemberRepository) DeleteMember(id int64) error {
	if _, err := r.db.Exec("DELETE FROM members WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	return nil
}

// AddParent records parentID as a parent of childID
func (r *MemberRepository) AddParent(parentID, childID int64) error {
	if _, err := r.db.Exec("INSERT INTO member_parents (parent_id, child_id) VALUES (?, ?)", parentID, childID); err != nil {
		return fmt.Errorf("failed to add parent: %w", err)
	}
	return nil
}

// RemoveParent deletes a parent edge and reports whether one existed
func (r *MemberRepository) RemoveParent(parentID, childID int64) (bool, error) {
	result, err := r.db.Exec("DELETE FROM member_parents WHERE parent_id = ? AND child_id = ?", parentID, childID)
	if err != nil {
		return false, fmt.Errorf("failed to remove parent: %w", err)
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// AddSpouse records a spouse edge in both directions
func (r *MemberRepository) AddSpouse(memberID, spouseID int64) error {
	query := "INSERT INTO member_spouses (member_id, spouse_id) VALUES (?, ?)"
	if _, err := r.db.Exec(query, memberID, spouseID); err != nil {
		return fmt.Errorf("failed to add spouse: %w", err)
	}
	if _, err := r.db.Exec(query, spouseID, memberID); err != nil {
		return fmt.Errorf("failed to add spouse: %w", err)
	}
	return nil
}

// RemoveSpouse deletes both directions of a spouse edge and reports whether one existed
func (r *MemberRepository) RemoveSpouse(memberID, spouseID int64) (bool, error) {
	query := `
		DELETE FROM member_spouses
		WHERE (member_id = ? AND spouse_id = ?) OR (member_id = ? AND spouse_id = ?)
	`
	result, err := r.db.Exec(query, memberID, spouseID, spouseID, memberID)
	if err != nil {
		return false, fmt.Errorf("failed to remove spouse: %w", err)
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// HasParent reports whether parentID is recorded as a parent of childID
func (r *MemberRepository) HasParent(parentID, childID int64) (bool, error) {
	return r.exists("SELECT COUNT(*) FROM member_parents WHERE parent_id = ? AND child_id = ?", parentID, childID)
}

// HasSpouse reports whether the two members are recorded as spouses
func (r *MemberRepository) HasSpouse(memberID, spouseID int64) (bool, error) {
	return r.exists("SELECT COUNT(*) FROM member_spouses WHERE member_id = ? AND spouse_id = ?", memberID, spouseID)
}

// GetParentIDs returns the ids of memberID's parents
func (r *MemberRepository) GetParentIDs(memberID int64) ([]int64, error) {
	return r.queryIDs("SELECT parent_id FROM member_parents WHERE child_id = ? ORDER BY parent_id", memberID)
}

// GetChildIDs returns the ids of memberID's children
func (r *MemberRepository) GetChildIDs(memberID int64) ([]int64, error) {
	return r.queryIDs("SELECT child_id FROM member_parents WHERE parent_id = ? ORDER BY child_id", memberID)
}

// GetSpouseIDs returns the ids of memberID's spouses
func (r *MemberRepository) GetSpouseIDs(memberID int64) ([]int64, error) {
	return r.queryIDs("SELECT spouse_id FROM member_spouses WHERE member_id = ? ORDER BY spouse_id", memberID)
}

// GetParents returns memberID's parents
func (r *MemberRepository) GetParents(memberID int64) ([]models.Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM members m
		INNER JOIN member_parents mp ON mp.parent_id = m.id
		WHERE mp.child_id = ?
		ORDER BY m.name, m.id
	`
	return r.queryMembers(query, memberID)
}

// GetChildren returns memberID's children
func (r *MemberRepository) GetChildren(memberID int64) ([]models.Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM members m
		INNER JOIN member_parents mp ON mp.child_id = m.id
		WHERE mp.parent_id = ?
		ORDER BY m.birth_date, m.name, m.id
	`
	return r.queryMembers(query, memberID)
}

// GetSpouses returns memberID's spouses
func (r *MemberRepository) GetSpouses(memberID int64) ([]models.Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM members m
		INNER JOIN member_spouses ms ON ms.spouse_id = m.id
		WHERE ms.member_id = ?
		ORDER BY m.name, m.id
	`
	return r.queryMembers(query, memberID)
}

// GetAncestorIDs returns every ancestor of memberID, nearest first. Each id is
// reported once even if the parent graph has cycles.
func (r *MemberRepository) GetAncestorIDs(memberID int64) ([]int64, error) {
	visited := map[int64]bool{memberID: true}
	queue := []int64{memberID}
	var ancestors []int64

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		parents, err := r.GetParentIDs(current)
		if err != nil {
			return nil, err
		}
		for _, parentID := range parents {
			if visited[parentID] {
				continue
			}
			visited[parentID] = true
			ancestors = append(ancestors, parentID)
			queue = append(queue, parentID)
		}
	}
	return ancestors, nil
}

// IsAncestor reports whether ancestorID is an ancestor of memberID
func (r *MemberRepository) IsAncestor(ancestorID, memberID int64) (bool, error) {
	ancestors, err := r.GetAncestorIDs(memberID)
	if err != nil {
		return false, err
	}
	for _, id := range ancestors {
		if id == ancestorID {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemberRepository) exists(query string, args ...interface{}) (bool, error) {
	var count int
	if err := r.db.QueryRow(query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check relationship: %w", err)
	}
	return count > 0, nil
}

func (r *MemberRepository) queryIDs(query string, args ...interface{}) ([]int64, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query relationships: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *MemberRepository) queryMembers(query string, args ...interface{}) ([]models.Member, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	members := []models.Member{}
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, *member)
	}
	return members, rows.Err()
}

func scanMember(row rowScanner) (*models.Member, error) {
	member := &models.Member{}
	var birth, death sql.NullTime
	err := row.Scan(
		&member.ID,
		&member.Name,
		&member.Gender,
		&member.Status,
		&birth,
		&death,
		&member.Bio,
		&member.CreatedAt,
		&member.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	member.BirthDate = nullTimePtr(birth)
	member.DeathDate = nullTimePtr(death)
	return member, nil
}
