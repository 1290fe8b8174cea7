package models

import "time"

// Visibility is the audience a post is shared with
type Visibility string

const (
	VisibilityPublic    Visibility = "PUBLIC"
	VisibilityFamily    Visibility = "FAMILY"
	VisibilitySubFamily Visibility = "SUBFAMILY"
)

// Valid reports whether v is a known visibility scope
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityFamily, VisibilitySubFamily:
		return true
	}
	return false
}

type Post struct {
	ID            int64      `json:"id"`
	AuthorID      int64      `json:"author_id"`
	FamilyID      *int64     `json:"family_id,omitempty"`
	Content       string     `json:"content"`
	Visibility    Visibility `json:"visibility"`
	LikesCount    int        `json:"likes_count"`
	CommentsCount int        `json:"comments_count"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	AuthorName    string     `json:"author_name"` // Populated via JOIN
	LikedByViewer bool       `json:"liked_by_viewer"`
}

type Comment struct {
	ID              int64     `json:"id"`
	PostID          int64     `json:"post_id"`
	AuthorID        int64     `json:"author_id"`
	ParentCommentID *int64    `json:"parent_comment_id,omitempty"`
	Content         string    `json:"content"`
	LikesCount      int       `json:"likes_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	AuthorName      string    `json:"author_name"` // Populated via JOIN
}
