package repository

import (
	"database/sql"
	"fmt"
	"time"

	"familytree/internal/database"
	"familytree/internal/models"
)

const commentColumns = `c.id, c.post_id, c.author_id, c.parent_comment_id, c.content, c.likes_count, c.created_at, c.updated_at, m.name`

// CommentRepository handles comments and comment likes
type CommentRepository struct {
	db database.DBTX
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db database.DBTX) *CommentRepository {
	return &CommentRepository{db: db}
}

// CreateComment inserts a comment
func (r *CommentRepository) CreateComment(comment *models.Comment) (*models.Comment, error) {
	query := "INSERT INTO comments (post_id, author_id, parent_comment_id, content) VALUES (?, ?, ?, ?)"
	id, err := r.db.ExecReturningID(query, comment.PostID, comment.AuthorID, comment.ParentCommentID, comment.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	created := *comment
	created.ID = id
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	return &created, nil
}

// GetCommentByID retrieves a comment with its author name
func (r *CommentRepository) GetCommentByID(commentID int64) (*models.Comment, error) {
	query := `
		SELECT ` + commentColumns + `
		FROM comments c
		INNER JOIN members m ON m.id = c.author_id
		WHERE c.id = ?
	`
	comment, err := scanComment(r.db.QueryRow(query, commentID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return comment, nil
}

// ListCommentsByPost returns every comment on a post, oldest first
func (r *CommentRepository) ListCommentsByPost(postID int64) ([]models.Comment, error) {
	query := `
		SELECT ` + commentColumns + `
		FROM comments c
		INNER JOIN members m ON m.id = c.author_id
		WHERE c.post_id = ?
		ORDER BY c.created_at, c.id
	`
	rows, err := r.db.Query(query, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, *comment)
	}
	return comments, rows.Err()
}

// CountThread counts a comment and all of its nested replies
func (r *CommentRepository) CountThread(commentID int64) (int, error) {
	count := 1
	queue := []int64{commentID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		rows, err := r.db.Query("SELECT id FROM comments WHERE parent_comment_id = ?", current)
		if err != nil {
			return 0, fmt.Errorf("failed to query replies: %w", err)
		}
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return 0, fmt.Errorf("failed to scan reply: %w", err)
			}
			queue = append(queue, id)
			count++
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return 0, err
		}
	}
	return count, nil
}

// UpdateComment replaces a comment's content
func (r *CommentRepository) UpdateComment(commentID int64, content string) error {
	query := "UPDATE comments SET content = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	if _, err := r.db.Exec(query, content, commentID); err != nil {
		return fmt.Errorf("failed to update comment: %w", err)
	}
	return nil
}

// DeleteComment removes a comment; replies and likes cascade
func (r *CommentRepository) DeleteComment(commentID int64) error {
	if _, err := r.db.Exec("DELETE FROM comments WHERE id = ?", commentID); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return nil
}

// AddLike records a like on a comment. It reports false when the member had
// already liked it.
func (r *CommentRepository) AddLike(commentID, memberID int64) (bool, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM comment_likes WHERE comment_id = ? AND member_id = ?", commentID, memberID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check comment like: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	if _, err := r.db.Exec("INSERT INTO comment_likes (comment_id, member_id) VALUES (?, ?)", commentID, memberID); err != nil {
		if r.db.GetDialect().IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to like comment: %w", err)
	}
	if _, err := r.db.Exec("UPDATE comments SET likes_count = likes_count + 1 WHERE id = ?", commentID); err != nil {
		return false, fmt.Errorf("failed to update like count: %w", err)
	}
	return true, nil
}

// RemoveLike deletes a like on a comment and reports whether one existed
func (r *CommentRepository) RemoveLike(commentID, memberID int64) (bool, error) {
	result, err := r.db.Exec("DELETE FROM comment_likes WHERE comment_id = ? AND member_id = ?", commentID, memberID)
	if err != nil {
		return false, fmt.Errorf("failed to unlike comment: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil || n == 0 {
		return false, err
	}
	if _, err := r.db.Exec("UPDATE comments SET likes_count = likes_count - 1 WHERE id = ? AND likes_count > 0", commentID); err != nil {
		return false, fmt.Errorf("failed to update like count: %w", err)
	}
	return true, nil
}

func scanComment(row rowScanner) (*models.Comment, error) {
	comment := &models.Comment{}
	var parentID sql.NullInt64
	err := row.Scan(
		&comment.ID,
		&comment.PostID,
		&comment.AuthorID,
		&parentID,
		&comment.Content,
		&comment.LikesCount,
		&comment.CreatedAt,
		&comment.UpdatedAt,
		&comment.AuthorName,
	)
	if err != nil {
		return nil, err
	}
	comment.ParentCommentID = nullInt64Ptr(parentID)
	return comment, nil
}
