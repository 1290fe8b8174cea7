package repository

import (
	"database/sql"
	"fmt"
	"time"

	"familytree/internal/database"
	"familytree/internal/models"
)

const postColumns = `p.id, p.author_id, p.family_id, p.content, p.visibility, p.likes_count, p.comments_count, p.created_at, p.updated_at, m.name`

// PostRepository handles posts and post likes
type PostRepository struct {
	db database.DBTX
}

// NewPostRepository creates a new post repository
func NewPostRepository(db database.DBTX) *PostRepository {
	return &PostRepository{db: db}
}

// CreatePost inserts a post
func (r *PostRepository) CreatePost(post *models.Post) (*models.Post, error) {
	query := "INSERT INTO posts (author_id, family_id, content, visibility) VALUES (?, ?, ?, ?)"
	id, err := r.db.ExecReturningID(query, post.AuthorID, post.FamilyID, post.Content, post.Visibility)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	created := *post
	created.ID = id
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	return &created, nil
}

// GetPostByID retrieves a post with its author name
func (r *PostRepository) GetPostByID(postID int64) (*models.Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts p
		INNER JOIN members m ON m.id = p.author_id
		WHERE p.id = ?
	`
	post, err := scanPost(r.db.QueryRow(query, postID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return post, nil
}

// ListFeed returns the newest posts that can reach viewerID: public posts, the
// viewer's own posts, posts by members sharing one of familyIDs, and FAMILY
// posts targeted at one of familyIDs
func (r *PostRepository) ListFeed(viewerID int64, familyIDs []int64, limit, offset int) ([]models.Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts p
		INNER JOIN members m ON m.id = p.author_id
		WHERE p.visibility = ? OR p.author_id = ?
	`
	args := []interface{}{models.VisibilityPublic, viewerID}

	if len(familyIDs) > 0 {
		placeholders, familyArgs := inClause(familyIDs)
		query += `
			OR (p.visibility = ? AND p.family_id IN (` + placeholders + `))
			OR p.author_id IN (
				SELECT fm.member_id FROM family_memberships fm
				WHERE fm.is_active = ? AND fm.family_id IN (` + placeholders + `)
			)
		`
		args = append(args, models.VisibilityFamily)
		args = append(args, familyArgs...)
		args = append(args, true)
		args = append(args, familyArgs...)
	}

	query += " ORDER BY p.created_at DESC, p.id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	return r.queryPosts(query, args...)
}

// ListPostsByAuthor returns an author's posts, newest first
func (r *PostRepository) ListPostsByAuthor(authorID int64, limit, offset int) ([]models.Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts p
		INNER JOIN members m ON m.id = p.author_id
		WHERE p.author_id = ?
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT ? OFFSET ?
	`
	return r.queryPosts(query, authorID, limit, offset)
}

// ListPostsByFamily returns posts targeted at a family, newest first
func (r *PostRepository) ListPostsByFamily(familyID int64, limit, offset int) ([]models.Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts p
		INNER JOIN members m ON m.id = p.author_id
		WHERE p.family_id = ?
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT ? OFFSET ?
	`
	return r.queryPosts(query, familyID, limit, offset)
}

// UpdatePost replaces a post's content and visibility
func (r *PostRepository) UpdatePost(postID int64, content string, visibility models.Visibility) error {
	query := "UPDATE posts SET content = ?, visibility = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	if _, err := r.db.Exec(query, content, visibility, postID); err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	return nil
}

// DeletePost removes a post; its comments and likes cascade
func (r *PostRepository) DeletePost(postID int64) error {
	if _, err := r.db.Exec("DELETE FROM posts WHERE id = ?", postID); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return nil
}

// HasLiked reports whether memberID has liked postID
func (r *PostRepository) HasLiked(postID, memberID int64) (bool, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM post_likes WHERE post_id = ? AND member_id = ?", postID, memberID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check post like: %w", err)
	}
	return count > 0, nil
}

// LikedPostIDs returns which of postIDs memberID has liked
func (r *PostRepository) LikedPostIDs(memberID int64, postIDs []int64) (map[int64]bool, error) {
	liked := make(map[int64]bool)
	if len(postIDs) == 0 || memberID == 0 {
		return liked, nil
	}
	placeholders, args := inClause(postIDs)
	query := "SELECT post_id FROM post_likes WHERE member_id = ? AND post_id IN (" + placeholders + ")"
	rows, err := r.db.Query(query, append([]interface{}{memberID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query post likes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan post like: %w", err)
		}
		liked[id] = true
	}
	return liked, rows.Err()
}

// AddLike records a like and bumps the post's counter. It reports false when
// the member had already liked the post.
func (r *PostRepository) AddLike(postID, memberID int64) (bool, error) {
	liked, err := r.HasLiked(postID, memberID)
	if err != nil || liked {
		return false, err
	}

	if _, err := r.db.Exec("INSERT INTO post_likes (post_id, member_id) VALUES (?, ?)", postID, memberID); err != nil {
		if r.db.GetDialect().IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to like post: %w", err)
	}
	if _, err := r.db.Exec("UPDATE posts SET likes_count = likes_count + 1 WHERE id = ?", postID); err != nil {
		return false, fmt.Errorf("failed to update like count: %w", err)
	}
	return true, nil
}

// RemoveLike deletes a like and decrements the counter. It reports false when
// there was no like to remove.
func (r *PostRepository) RemoveLike(postID, memberID int64) (bool, error) {
	result, err := r.db.Exec("DELETE FROM post_likes WHERE post_id = ? AND member_id = ?", postID, memberID)
	if err != nil {
		return false, fmt.Errorf("failed to unlike post: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil || n == 0 {
		return false, err
	}
	if _, err := r.db.Exec("UPDATE posts SET likes_count = likes_count - 1 WHERE id = ? AND likes_count > 0", postID); err != nil {
		return false, fmt.Errorf("failed to update like count: %w", err)
	}
	return true, nil
}

// AdjustCommentsCount adds delta to a post's comment counter, never going below zero
func (r *PostRepository) AdjustCommentsCount(postID int64, delta int) error {
	query := `
		UPDATE posts
		SET comments_count = CASE WHEN comments_count + ? < 0 THEN 0 ELSE comments_count + ? END
		WHERE id = ?
	`
	if _, err := r.db.Exec(query, delta, delta, postID); err != nil {
		return fmt.Errorf("failed to update comment count: %w", err)
	}
	return nil
}

func (r *PostRepository) queryPosts(query string, args ...interface{}) ([]models.Post, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}

func scanPost(row rowScanner) (*models.Post, error) {
	post := &models.Post{}
	var familyID sql.NullInt64
	err := row.Scan(
		&post.ID,
		&post.AuthorID,
		&familyID,
		&post.Content,
		&post.Visibility,
		&post.LikesCount,
		&post.CommentsCount,
		&post.CreatedAt,
		&post.UpdatedAt,
		&post.AuthorName,
	)
	if err != nil {
		return nil, err
	}
	post.FamilyID = nullInt64Ptr(familyID)
	return post, nil
}
