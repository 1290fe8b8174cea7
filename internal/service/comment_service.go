package service

import (
	"fmt"
	"strings"

	"familytree/internal/access"
	"familytree/internal/apperr"
	"familytree/internal/logger"
	"familytree/internal/models"
	"familytree/internal/repository"
	"familytree/internal/validation"
)

// CommentInput carries a comment's content and, for replies, the comment it answers
type CommentInput struct {
	Content         string `json:"content"`
	ParentCommentID *int64 `json:"parent_comment_id,omitempty"`
}

// CommentService handles comments on posts. A comment is visible exactly when its post is.
type CommentService struct {
	repos    *repository.Repositories
	tx       Transactor
	access   access.Checker
	notifier Notifier
	logger   *logger.Logger
}

// NewCommentService creates a new comment service
func NewCommentService(repos *repository.Repositories, tx Transactor, checker access.Checker, notifier Notifier, log *logger.Logger) *CommentService {
	if log == nil {
		log = logger.Nop()
	}
	return &CommentService{
		repos:    repos,
		tx:       tx,
		access:   checker,
		notifier: notifier,
		logger:   log,
	}
}

// CreateComment comments on a visible post, or replies to a comment on the same post
func (s *CommentService) CreateComment(actorID, postID int64, input CommentInput) (*models.Comment, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	post, err := s.visiblePost(actorID, postID)
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(input.Content)
	if err := validation.ValidateText("content", content, validation.MaxCommentLength); err != nil {
		return nil, err
	}

	var parent *models.Comment
	if input.ParentCommentID != nil {
		parent, err = s.repos.Comments.GetCommentByID(*input.ParentCommentID)
		if err != nil {
			return nil, err
		}
		if parent == nil || parent.PostID != postID {
			return nil, apperr.BadRequest("comment %d is not on post %d", *input.ParentCommentID, postID)
		}
	}

	var created *models.Comment
	err = s.tx.InTx(func(repos *repository.Repositories) error {
		comment, err := repos.Comments.CreateComment(&models.Comment{
			PostID:          postID,
			AuthorID:        actorID,
			ParentCommentID: input.ParentCommentID,
			Content:         content,
		})
		if err != nil {
			return err
		}
		if err := repos.Posts.AdjustCommentsCount(postID, 1); err != nil {
			return err
		}
		created, err = repos.Comments.GetCommentByID(comment.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	notify(s.notifier, s.logger, &models.Notification{
		RecipientID:   post.AuthorID,
		ActorID:       &actorID,
		Type:          models.NotificationPostCommented,
		Message:       fmt.Sprintf("%s commented on your post", created.AuthorName),
		ReferenceType: "post",
		ReferenceID:   &post.ID,
	})
	if parent != nil && parent.AuthorID != post.AuthorID {
		notify(s.notifier, s.logger, &models.Notification{
			RecipientID:   parent.AuthorID,
			ActorID:       &actorID,
			Type:          models.NotificationCommentReplied,
			Message:       fmt.Sprintf("%s replied to your comment", created.AuthorName),
			ReferenceType: "comment",
			ReferenceID:   &created.ID,
		})
	}
	return created, nil
}

// ListComments lists the comments on a visible post, oldest first
func (s *CommentService) ListComments(actorID, postID int64) ([]models.Comment, error) {
	if _, err := s.visiblePost(actorID, postID); err != nil {
		return nil, err
	}
	return s.repos.Comments.ListCommentsByPost(postID)
}

// UpdateComment edits a comment; only its author may
func (s *CommentService) UpdateComment(actorID, postID, commentID int64, content string) (*models.Comment, error) {
	comment, err := s.getComment(postID, commentID)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != actorID {
		return nil, apperr.Forbidden("only the author can edit comment %d", commentID)
	}
	content = strings.TrimSpace(content)
	if err := validation.ValidateText("content", content, validation.MaxCommentLength); err != nil {
		return nil, err
	}

	if err := s.repos.Comments.UpdateComment(commentID, content); err != nil {
		return nil, err
	}
	return s.repos.Comments.GetCommentByID(commentID)
}

// DeleteComment removes a comment with its replies. Its author or the post's author may.
func (s *CommentService) DeleteComment(actorID, postID, commentID int64) error {
	comment, err := s.getComment(postID, commentID)
	if err != nil {
		return err
	}
	if comment.AuthorID != actorID {
		post, err := s.repos.Posts.GetPostByID(postID)
		if err != nil {
			return err
		}
		if post == nil || post.AuthorID != actorID {
			return apperr.Forbidden("member %d cannot delete comment %d", actorID, commentID)
		}
	}

	return s.tx.InTx(func(repos *repository.Repositories) error {
		removed, err := repos.Comments.CountThread(commentID)
		if err != nil {
			return err
		}
		if err := repos.Comments.DeleteComment(commentID); err != nil {
			return err
		}
		return repos.Posts.AdjustCommentsCount(postID, -removed)
	})
}

// ToggleLike likes a comment, or removes the actor's like if there already is one
func (s *CommentService) ToggleLike(actorID, postID, commentID int64) (*LikeResult, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	if _, err := s.visiblePost(actorID, postID); err != nil {
		return nil, err
	}
	comment, err := s.getComment(postID, commentID)
	if err != nil {
		return nil, err
	}

	result := &LikeResult{}
	err = s.tx.InTx(func(repos *repository.Repositories) error {
		removed, err := repos.Comments.RemoveLike(commentID, actorID)
		if err != nil {
			return err
		}
		if !removed {
			if _, err := repos.Comments.AddLike(commentID, actorID); err != nil {
				return err
			}
		}
		result.Liked = !removed

		updated, err := repos.Comments.GetCommentByID(commentID)
		if err != nil {
			return err
		}
		if updated != nil {
			result.LikesCount = updated.LikesCount
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to toggle comment like: %w", err)
	}

	if result.Liked {
		notify(s.notifier, s.logger, &models.Notification{
			RecipientID:   comment.AuthorID,
			ActorID:       &actorID,
			Type:          models.NotificationCommentLiked,
			Message:       "Someone liked your comment",
			ReferenceType: "comment",
			ReferenceID:   &comment.ID,
		})
	}
	return result, nil
}

func (s *CommentService) getComment(postID, commentID int64) (*models.Comment, error) {
	comment, err := s.repos.Comments.GetCommentByID(commentID)
	if err != nil {
		return nil, err
	}
	if comment == nil || comment.PostID != postID {
		return nil, apperr.NotFound("comment %d on post %d", commentID, postID)
	}
	return comment, nil
}

func (s *CommentService) visiblePost(actorID, postID int64) (*models.Post, error) {
	post, err := s.repos.Posts.GetPostByID(postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, apperr.NotFound("post %d", postID)
	}
	ok, err := s.access.CanViewPost(actorID, post)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Forbidden("post %d is not visible to member %d", postID, actorID)
	}
	return post, nil
}
