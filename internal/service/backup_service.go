package service

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"familytree/internal/access"
	"familytree/internal/apperr"
	"familytree/internal/database"
	"familytree/internal/logger"
	"familytree/internal/models"
	"familytree/internal/repository"
)

const backupVersion = "1.0"

// BackupData is a full snapshot of the tree and its social content
type BackupData struct {
	Version      string             `json:"version"`
	ExportedAt   time.Time          `json:"exported_at"`
	Members      []MemberBackup     `json:"members"`
	Users        []UserBackup       `json:"users"`
	Parents      []EdgeBackup       `json:"parents"`
	Spouses      []EdgeBackup       `json:"spouses"`
	Families     []FamilyBackup     `json:"families"`
	Memberships  []MembershipBackup `json:"memberships"`
	Posts        []PostBackup       `json:"posts"`
	PostLikes    []EdgeBackup       `json:"post_likes"`
	Comments     []CommentBackup    `json:"comments"`
	CommentLikes []EdgeBackup       `json:"comment_likes"`
}

// MemberBackup represents a member record for backup
type MemberBackup struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Gender    string     `json:"gender"`
	Status    string     `json:"status"`
	BirthDate *time.Time `json:"birth_date"`
	DeathDate *time.Time `json:"death_date"`
	Bio       string     `json:"bio"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// UserBackup represents a user record for backup
type UserBackup struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"password_hash"`
	Name          string    `json:"name"`
	OAuthProvider string    `json:"oauth_provider"`
	OAuthSubject  string    `json:"oauth_subject"`
	MemberID      *int64    `json:"member_id"`
	IsAdmin       bool      `json:"is_admin"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// EdgeBackup is a pair of ids: parent/child, member/spouse, or object/member for likes
type EdgeBackup struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// FamilyBackup represents a family record for backup
type FamilyBackup struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	CreatorID      *int64    `json:"creator_id"`
	HeadOfFamilyID *int64    `json:"head_of_family_id"`
	ParentFamilyID *int64    `json:"parent_family_id"`
	IsSubFamily    bool      `json:"is_sub_family"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// MembershipBackup represents a family membership for backup
type MembershipBackup struct {
	ID             int64     `json:"id"`
	MemberID       int64     `json:"member_id"`
	FamilyID       int64     `json:"family_id"`
	Role           string    `json:"role"`
	Type           string    `json:"type"`
	IsActive       bool      `json:"is_active"`
	AutoEnrolled   bool      `json:"auto_enrolled"`
	ManuallyEdited bool      `json:"manually_edited"`
	JoinDate       time.Time `json:"join_date"`
}

// PostBackup represents a post for backup
type PostBackup struct {
	ID            int64     `json:"id"`
	AuthorID      int64     `json:"author_id"`
	FamilyID      *int64    `json:"family_id"`
	Content       string    `json:"content"`
	Visibility    string    `json:"visibility"`
	LikesCount    int       `json:"likes_count"`
	CommentsCount int       `json:"comments_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CommentBackup represents a comment for backup
type CommentBackup struct {
	ID              int64     `json:"id"`
	PostID          int64     `json:"post_id"`
	AuthorID        int64     `json:"author_id"`
	ParentCommentID *int64    `json:"parent_comment_id"`
	Content         string    `json:"content"`
	LikesCount      int       `json:"likes_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CSVRowError reports why one roster row was not imported
type CSVRowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// CSVImportResult summarises a roster import
type CSVImportResult struct {
	Imported int           `json:"imported"`
	Errors   []CSVRowError `json:"errors"`
}

// restoreTables lists every restored table in dependency order
var restoreTables = []string{
	"members", "users", "member_parents", "member_spouses", "families",
	"family_memberships", "posts", "post_likes", "comments", "comment_likes",
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db     *database.DB
	repos  *repository.Repositories
	tx     Transactor
	access access.Checker
	logger *logger.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, tx Transactor, checker access.Checker, log *logger.Logger) *BackupService {
	if log == nil {
		log = logger.Nop()
	}
	return &BackupService{
		db:     db,
		repos:  repository.NewRepositories(db),
		tx:     tx,
		access: checker,
		logger: log,
	}
}

// Export writes a JSON snapshot of the database, read inside one transaction
func (s *BackupService) Export(w io.Writer) error {
	backup := &BackupData{Version: backupVersion, ExportedAt: time.Now().UTC()}

	err := s.db.WithTx(func(tx *database.Tx) error {
		steps := []struct {
			name string
			fn   func(database.DBTX, *BackupData) error
		}{
			{"members", exportMembers},
			{"users", exportUsers},
			{"relationships", exportEdges},
			{"families", exportFamilies},
			{"memberships", exportMemberships},
			{"posts", exportPosts},
			{"comments", exportComments},
		}
		for _, step := range steps {
			if err := step.fn(tx, backup); err != nil {
				return fmt.Errorf("failed to export %s: %w", step.name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	s.logger.Info("database exported",
		"members", len(backup.Members),
		"users", len(backup.Users),
		"families", len(backup.Families),
		"memberships", len(backup.Memberships),
		"posts", len(backup.Posts),
		"comments", len(backup.Comments),
	)
	return nil
}

// Import restores a JSON snapshot inside one transaction. With clear set, the
// restored tables are emptied first.
func (s *BackupService) Import(r io.Reader, clear bool) (*BackupData, error) {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return nil, apperr.BadRequest("failed to decode backup: %v", err)
	}
	if backup.Version != backupVersion {
		return nil, apperr.BadRequest("unsupported backup version %q", backup.Version)
	}
	s.logger.Info("importing backup", "version", backup.Version, "exported_at", backup.ExportedAt)

	err := s.db.WithTx(func(tx *database.Tx) error {
		if clear {
			for i := len(restoreTables) - 1; i >= 0; i-- {
				if _, err := tx.Exec("DELETE FROM " + restoreTables[i]); err != nil {
					return fmt.Errorf("failed to clear %s: %w", restoreTables[i], err)
				}
			}
		}
		if err := importMembers(tx, backup.Members); err != nil {
			return fmt.Errorf("failed to import members: %w", err)
		}
		if err := importUsers(tx, backup.Users); err != nil {
			return fmt.Errorf("failed to import users: %w", err)
		}
		if err := importEdges(tx, "member_parents", "parent_id", "child_id", backup.Parents); err != nil {
			return fmt.Errorf("failed to import parents: %w", err)
		}
		if err := importEdges(tx, "member_spouses", "member_id", "spouse_id", backup.Spouses); err != nil {
			return fmt.Errorf("failed to import spouses: %w", err)
		}
		if err := importFamilies(tx, backup.Families); err != nil {
			return fmt.Errorf("failed to import families: %w", err)
		}
		if err := importMemberships(tx, backup.Memberships); err != nil {
			return fmt.Errorf("failed to import memberships: %w", err)
		}
		if err := importPosts(tx, backup.Posts); err != nil {
			return fmt.Errorf("failed to import posts: %w", err)
		}
		if err := importEdges(tx, "post_likes", "post_id", "member_id", backup.PostLikes); err != nil {
			return fmt.Errorf("failed to import post likes: %w", err)
		}
		if err := importComments(tx, backup.Comments); err != nil {
			return fmt.Errorf("failed to import comments: %w", err)
		}
		if err := importEdges(tx, "comment_likes", "comment_id", "member_id", backup.CommentLikes); err != nil {
			return fmt.Errorf("failed to import comment likes: %w", err)
		}
		return resetSequences(tx)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("database import completed", "members", len(backup.Members), "families", len(backup.Families))
	return &backup, nil
}

// Stats counts the rows of every restored table
func (s *BackupService) Stats() (map[string]int, error) {
	stats := make(map[string]int, len(restoreTables))
	for _, table := range restoreTables {
		var n int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		stats[table] = n
	}
	return stats, nil
}

// ExportFamilyCSV writes a family's roster as CSV for anyone in the family
func (s *BackupService) ExportFamilyCSV(actorID, familyID int64, w io.Writer) error {
	family, err := s.repos.Families.GetFamilyByID(familyID)
	if err != nil {
		return err
	}
	if family == nil {
		return apperr.NotFound("family %d", familyID)
	}
	if err := s.access.VerifyFamilyAccess(actorID, familyID); err != nil {
		return err
	}

	roster, err := s.repos.Memberships.ListFamilyMemberships(familyID, true)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := []string{"member_id", "name", "gender", "status", "birth_date", "death_date", "bio", "role", "type", "is_active", "auto_enrolled", "manually_edited"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, m := range roster {
		record := []string{
			strconv.FormatInt(m.Member.ID, 10),
			m.Member.Name,
			string(m.Member.Gender),
			string(m.Member.Status),
			formatDate(m.Member.BirthDate),
			formatDate(m.Member.DeathDate),
			m.Member.Bio,
			string(m.Role),
			string(m.Type),
			strconv.FormatBool(m.IsActive),
			strconv.FormatBool(m.AutoEnrolled),
			strconv.FormatBool(m.ManuallyEdited),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ImportFamilyCSV creates a member with a manual membership for every row of
// a roster CSV. The header must name a "name" column; gender, status,
// birth_date, death_date, bio and role are optional. Bad rows are reported and skipped.
func (s *BackupService) ImportFamilyCSV(actorID, familyID int64, r io.Reader) (*CSVImportResult, error) {
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

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, apperr.BadRequest("failed to read CSV header: %v", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := columns["name"]; !ok {
		return nil, apperr.BadRequest("CSV header has no name column")
	}

	field := func(record []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	membershipType := models.MembershipMain
	if family.IsSubFamily {
		membershipType = models.MembershipSub
	}

	result := &CSVImportResult{Errors: []CSVRowError{}}
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return nil, apperr.BadRequest("failed to read CSV: %v", err)
			}
			result.Errors = append(result.Errors, CSVRowError{Line: line, Message: err.Error()})
			continue
		}

		member, err := buildMember(MemberInput{
			Name:      field(record, "name"),
			Gender:    models.Gender(strings.ToUpper(field(record, "gender"))),
			Status:    models.MemberStatus(strings.ToUpper(field(record, "status"))),
			BirthDate: field(record, "birth_date"),
			DeathDate: field(record, "death_date"),
			Bio:       field(record, "bio"),
		})
		if err != nil {
			result.Errors = append(result.Errors, CSVRowError{Line: line, Message: err.Error()})
			continue
		}
		role := models.RoleMember
		if value := field(record, "role"); value != "" {
			role = models.Role(strings.ToUpper(value))
		}
		if !role.Valid() {
			result.Errors = append(result.Errors, CSVRowError{Line: line, Message: fmt.Sprintf("unknown role %q", role)})
			continue
		}

		err = s.tx.InTx(func(repos *repository.Repositories) error {
			created, err := repos.Members.CreateMember(member)
			if err != nil {
				return err
			}
			_, err = repos.Memberships.CreateMembership(&models.FamilyMembership{
				MemberID:       created.ID,
				FamilyID:       familyID,
				Role:           role,
				Type:           membershipType,
				IsActive:       true,
				ManuallyEdited: true,
			})
			return err
		})
		if err != nil {
			s.logger.Warn("failed to import roster row", "family_id", familyID, "line", line, "error", err)
			result.Errors = append(result.Errors, CSVRowError{Line: line, Message: "failed to save row"})
			continue
		}
		result.Imported++
	}

	s.logger.Info("roster imported", "family_id", familyID, "imported", result.Imported, "errors", len(result.Errors))
	return result, nil
}

func exportMembers(db database.DBTX, backup *BackupData) error {
	rows, err := db.Query("SELECT id, name, gender, status, birth_date, death_date, COALESCE(bio, ''), created_at, updated_at FROM members ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var m MemberBackup
		var birth, death sql.NullTime
		if err := rows.Scan(&m.ID, &m.Name, &m.Gender, &m.Status, &birth, &death, &m.Bio, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return err
		}
		m.BirthDate = timePtr(birth)
		m.DeathDate = timePtr(death)
		backup.Members = append(backup.Members, m)
	}
	return rows.Err()
}

func exportUsers(db database.DBTX, backup *BackupData) error {
	query := "SELECT id, email, password_hash, name, COALESCE(oauth_provider, ''), COALESCE(oauth_subject, ''), member_id, is_admin, created_at, updated_at FROM users ORDER BY id"
	rows, err := db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var u UserBackup
		var memberID sql.NullInt64
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.OAuthProvider, &u.OAuthSubject, &memberID, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return err
		}
		u.MemberID = int64Ptr(memberID)
		backup.Users = append(backup.Users, u)
	}
	return rows.Err()
}

func exportEdges(db database.DBTX, backup *BackupData) error {
	var err error
	if backup.Parents, err = queryEdges(db, "SELECT parent_id, child_id FROM member_parents ORDER BY parent_id, child_id"); err != nil {
		return err
	}
	backup.Spouses, err = queryEdges(db, "SELECT member_id, spouse_id FROM member_spouses ORDER BY member_id, spouse_id")
	return err
}

func exportFamilies(db database.DBTX, backup *BackupData) error {
	query := "SELECT id, name, COALESCE(description, ''), creator_id, head_of_family_id, parent_family_id, is_sub_family, created_at, updated_at FROM families ORDER BY id"
	rows, err := db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var f FamilyBackup
		var creator, head, parent sql.NullInt64
		if err := rows.Scan(&f.ID, &f.Name, &f.Description, &creator, &head, &parent, &f.IsSubFamily, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return err
		}
		f.CreatorID = int64Ptr(creator)
		f.HeadOfFamilyID = int64Ptr(head)
		f.ParentFamilyID = int64Ptr(parent)
		backup.Families = append(backup.Families, f)
	}
	return rows.Err()
}

func exportMemberships(db database.DBTX, backup *BackupData) error {
	query := "SELECT id, member_id, family_id, role, type, is_active, auto_enrolled, manually_edited, join_date FROM family_memberships ORDER BY id"
	rows, err := db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var m MembershipBackup
		if err := rows.Scan(&m.ID, &m.MemberID, &m.FamilyID, &m.Role, &m.Type, &m.IsActive, &m.AutoEnrolled, &m.ManuallyEdited, &m.JoinDate); err != nil {
			return err
		}
		backup.Memberships = append(backup.Memberships, m)
	}
	return rows.Err()
}

func exportPosts(db database.DBTX, backup *BackupData) error {
	query := "SELECT id, author_id, family_id, content, visibility, likes_count, comments_count, created_at, updated_at FROM posts ORDER BY id"
	rows, err := db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var p PostBackup
		var familyID sql.NullInt64
		if err := rows.Scan(&p.ID, &p.AuthorID, &familyID, &p.Content, &p.Visibility, &p.LikesCount, &p.CommentsCount, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return err
		}
		p.FamilyID = int64Ptr(familyID)
		backup.Posts = append(backup.Posts, p)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	backup.PostLikes, err = queryEdges(db, "SELECT post_id, member_id FROM post_likes ORDER BY post_id, member_id")
	return err
}

func exportComments(db database.DBTX, backup *BackupData) error {
	query := "SELECT id, post_id, author_id, parent_comment_id, content, likes_count, created_at, updated_at FROM comments ORDER BY id"
	rows, err := db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c CommentBackup
		var parentID sql.NullInt64
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &parentID, &c.Content, &c.LikesCount, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return err
		}
		c.ParentCommentID = int64Ptr(parentID)
		backup.Comments = append(backup.Comments, c)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	backup.CommentLikes, err = queryEdges(db, "SELECT comment_id, member_id FROM comment_likes ORDER BY comment_id, member_id")
	return err
}

func queryEdges(db database.DBTX, query string) ([]EdgeBackup, error) {
	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []EdgeBackup
	for rows.Next() {
		var e EdgeBackup
		if err := rows.Scan(&e.From, &e.To); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func importMembers(db database.DBTX, members []MemberBackup) error {
	query := "INSERT INTO members (id, name, gender, status, birth_date, death_date, bio, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"
	for _, m := range members {
		if _, err := db.Exec(query, m.ID, m.Name, m.Gender, m.Status, m.BirthDate, m.DeathDate, m.Bio, m.CreatedAt, m.UpdatedAt); err != nil {
			return fmt.Errorf("failed to import member %d: %w", m.ID, err)
		}
	}
	return nil
}

func importUsers(db database.DBTX, users []UserBackup) error {
	query := "INSERT INTO users (id, email, password_hash, name, oauth_provider, oauth_subject, member_id, is_admin, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	for _, u := range users {
		if _, err := db.Exec(query, u.ID, u.Email, u.PasswordHash, u.Name, nullIfEmpty(u.OAuthProvider), nullIfEmpty(u.OAuthSubject), u.MemberID, u.IsAdmin, u.CreatedAt, u.UpdatedAt); err != nil {
			return fmt.Errorf("failed to import user %d: %w", u.ID, err)
		}
	}
	return nil
}

func importEdges(db database.DBTX, table, fromColumn, toColumn string, edges []EdgeBackup) error {
	query := "INSERT INTO " + table + " (" + fromColumn + ", " + toColumn + ") VALUES (?, ?)"
	for _, e := range edges {
		if _, err := db.Exec(query, e.From, e.To); err != nil {
			return fmt.Errorf("failed to import %s %d/%d: %w", table, e.From, e.To, err)
		}
	}
	return nil
}

// importFamilies inserts families first and links parents afterwards, so
// the order of the snapshot does not matter
func importFamilies(db database.DBTX, families []FamilyBackup) error {
	insert := "INSERT INTO families (id, name, description, creator_id, head_of_family_id, is_sub_family, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	for _, f := range families {
		if _, err := db.Exec(insert, f.ID, f.Name, f.Description, f.CreatorID, f.HeadOfFamilyID, f.IsSubFamily, f.CreatedAt, f.UpdatedAt); err != nil {
			return fmt.Errorf("failed to import family %d: %w", f.ID, err)
		}
	}
	for _, f := range families {
		if f.ParentFamilyID == nil {
			continue
		}
		if _, err := db.Exec("UPDATE families SET parent_family_id = ? WHERE id = ?", *f.ParentFamilyID, f.ID); err != nil {
			return fmt.Errorf("failed to link family %d: %w", f.ID, err)
		}
	}
	return nil
}

func importMemberships(db database.DBTX, memberships []MembershipBackup) error {
	query := "INSERT INTO family_memberships (id, member_id, family_id, role, type, is_active, auto_enrolled, manually_edited, join_date) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"
	for _, m := range memberships {
		if _, err := db.Exec(query, m.ID, m.MemberID, m.FamilyID, m.Role, m.Type, m.IsActive, m.AutoEnrolled, m.ManuallyEdited, m.JoinDate); err != nil {
			return fmt.Errorf("failed to import membership %d: %w", m.ID, err)
		}
	}
	return nil
}

func importPosts(db database.DBTX, posts []PostBackup) error {
	query := "INSERT INTO posts (id, author_id, family_id, content, visibility, likes_count, comments_count, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"
	for _, p := range posts {
		if _, err := db.Exec(query, p.ID, p.AuthorID, p.FamilyID, p.Content, p.Visibility, p.LikesCount, p.CommentsCount, p.CreatedAt, p.UpdatedAt); err != nil {
			return fmt.Errorf("failed to import post %d: %w", p.ID, err)
		}
	}
	return nil
}

func importComments(db database.DBTX, comments []CommentBackup) error {
	insert := "INSERT INTO comments (id, post_id, author_id, content, likes_count, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)"
	for _, c := range comments {
		if _, err := db.Exec(insert, c.ID, c.PostID, c.AuthorID, c.Content, c.LikesCount, c.CreatedAt, c.UpdatedAt); err != nil {
			return fmt.Errorf("failed to import comment %d: %w", c.ID, err)
		}
	}
	for _, c := range comments {
		if c.ParentCommentID == nil {
			continue
		}
		if _, err := db.Exec("UPDATE comments SET parent_comment_id = ? WHERE id = ?", *c.ParentCommentID, c.ID); err != nil {
			return fmt.Errorf("failed to link comment %d: %w", c.ID, err)
		}
	}
	return nil
}

// resetSequences moves Postgres id sequences past the restored ids
func resetSequences(db database.DBTX) error {
	if db.GetDialect().MigrationsSubdir() != "postgres" {
		return nil
	}
	for _, table := range []string{"members", "users", "families", "family_memberships", "posts", "comments"} {
		query := fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 0) + 1, false)", table, table)
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to reset sequence for %s: %w", table, err)
		}
	}
	return nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
