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

// PostInput carries a post's content and audience
type PostInput struct {
	Content    string            `json:"content"`
	Visibility models.Visibility `json:"visibility"`
	FamilyID   *int64            `json:"family_id,omitempty"`
}

// LikeResult reports the state of a like after a toggle
type LikeResult struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likes_count"`
}

// PostService handles posts and their likes
type PostService struct {
	repos    *repository.Repositories
	tx       Transactor
	access   access.Checker
	notifier Notifier
	logger   *logger.Logger
}

// NewPostService creates a new post service
func NewPostService(repos *repository.Repositories, tx Transactor, checker access.Checker, notifier Notifier, log *logger.Logger) *PostService {
	if log == nil {
		log = logger.Nop()
	}
	return &PostService{
		repos:    repos,
		tx:       tx,
		access:   checker,
		notifier: notifier,
		logger:   log,
	}
}

// CreatePost publishes a post. Posts targeted at a family need access to it.
func (s *PostService) CreatePost(actorID int64, input PostInput) (*models.Post, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}
	content := strings.TrimSpace(input.Content)
	if err := validation.ValidateText("content", content, validation.MaxPostLength); err != nil {
		return nil, err
	}
	visibility := input.Visibility
	if visibility == "" {
		visibility = models.VisibilityFamily
	}
	if !visibility.Valid() {
		return nil, apperr.BadRequest("unknown visibility %q", visibility)
	}
	if input.FamilyID != nil {
		if err := s.access.VerifyFamilyAccess(actorID, *input.FamilyID); err != nil {
			return nil, err
		}
	}

	post, err := s.repos.Posts.CreatePost(&models.Post{
		AuthorID:   actorID,
		FamilyID:   input.FamilyID,
		Content:    content,
		Visibility: visibility,
	})
	if err != nil {
		return nil, err
	}
	return s.repos.Posts.GetPostByID(post.ID)
}

// GetPost returns a post the actor can see
func (s *PostService) GetPost(actorID, postID int64) (*models.Post, error) {
	post, err := s.visiblePost(actorID, postID)
	if err != nil {
		return nil, err
	}
	if err := s.markLiked(actorID, []*models.Post{post}); err != nil {
		return nil, err
	}
	return post, nil
}

// ListFeed returns the newest posts visible to the actor
func (s *PostService) ListFeed(actorID int64, page Page) ([]models.Post, error) {
	page = page.Normalize()
	familyIDs, err := s.repos.Memberships.GetActiveFamilyIDs(actorID)
	if err != nil {
		return nil, err
	}
	posts, err := s.repos.Posts.ListFeed(actorID, familyIDs, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list feed: %w", err)
	}
	return s.filterVisible(actorID, posts)
}

// ListFamilyPosts returns the posts targeted at a family the actor belongs to
func (s *PostService) ListFamilyPosts(actorID, familyID int64, page Page) ([]models.Post, error) {
	if err := s.access.VerifyFamilyAccess(actorID, familyID); err != nil {
		return nil, err
	}
	page = page.Normalize()
	posts, err := s.repos.Posts.ListPostsByFamily(familyID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list family posts: %w", err)
	}
	return s.filterVisible(actorID, posts)
}

// ListMemberPosts returns the posts written by a member that the actor may see
func (s *PostService) ListMemberPosts(actorID, memberID int64, page Page) ([]models.Post, error) {
	member, err := s.repos.Members.GetMemberByID(memberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, apperr.NotFound("member %d", memberID)
	}
	page = page.Normalize()
	posts, err := s.repos.Posts.ListPostsByAuthor(memberID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list member posts: %w", err)
	}
	return s.filterVisible(actorID, posts)
}

// UpdatePost edits a post's content and visibility; only its author may
func (s *PostService) UpdatePost(actorID, postID int64, input PostInput) (*models.Post, error) {
	post, err := s.getPost(postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != actorID {
		return nil, apperr.Forbidden("only the author can edit post %d", postID)
	}

	content := strings.TrimSpace(input.Content)
	if err := validation.ValidateText("content", content, validation.MaxPostLength); err != nil {
		return nil, err
	}
	visibility := input.Visibility
	if visibility == "" {
		visibility = post.Visibility
	}
	if !visibility.Valid() {
		return nil, apperr.BadRequest("unknown visibility %q", visibility)
	}

	if err := s.repos.Posts.UpdatePost(postID, content, visibility); err != nil {
		return nil, err
	}
	return s.GetPost(actorID, postID)
}

// DeletePost removes a post. Its author or an admin of its family may.
func (s *PostService) DeletePost(actorID, postID int64) error {
	post, err := s.getPost(postID)
	if err != nil {
		return err
	}
	if post.AuthorID != actorID {
		if post.FamilyID == nil {
			return apperr.Forbidden("only the author can delete post %d", postID)
		}
		if err := s.access.VerifyFamilyAdminAccess(actorID, *post.FamilyID); err != nil {
			return err
		}
	}

	if err := s.repos.Posts.DeletePost(postID); err != nil {
		return err
	}
	s.logger.Info("post deleted", "post_id", postID, "actor_id", actorID)
	return nil
}

// ToggleLike likes a post, or removes the actor's like if there already is one
func (s *PostService) ToggleLike(actorID, postID int64) (*LikeResult, error) {
	post, err := s.visiblePost(actorID, postID)
	if err != nil {
		return nil, err
	}

	result := &LikeResult{}
	err = s.tx.InTx(func(repos *repository.Repositories) error {
		liked, err := repos.Posts.HasLiked(postID, actorID)
		if err != nil {
			return err
		}
		if liked {
			if _, err := repos.Posts.RemoveLike(postID, actorID); err != nil {
				return err
			}
		} else {
			if _, err := repos.Posts.AddLike(postID, actorID); err != nil {
				return err
			}
		}
		result.Liked = !liked

		updated, err := repos.Posts.GetPostByID(postID)
		if err != nil {
			return err
		}
		if updated != nil {
			result.LikesCount = updated.LikesCount
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to toggle like: %w", err)
	}

	if result.Liked {
		notify(s.notifier, s.logger, &models.Notification{
			RecipientID:   post.AuthorID,
			ActorID:       &actorID,
			Type:          models.NotificationPostLiked,
			Message:       "Someone liked your post",
			ReferenceType: "post",
			ReferenceID:   &post.ID,
		})
	}
	return result, nil
}

func (s *PostService) getPost(postID int64) (*models.Post, error) {
	post, err := s.repos.Posts.GetPostByID(postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, apperr.NotFound("post %d", postID)
	}
	return post, nil
}

// visiblePost loads a post and checks the actor may see it
func (s *PostService) visiblePost(actorID, postID int64) (*models.Post, error) {
	post, err := s.getPost(postID)
	if err != nil {
		return nil, err
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

func (s *PostService) filterVisible(actorID int64, posts []models.Post) ([]models.Post, error) {
	visible, err := s.access.PostFilter(actorID)
	if err != nil {
		return nil, err
	}

	result := make([]models.Post, 0, len(posts))
	ptrs := make([]*models.Post, 0, len(posts))
	for i := range posts {
		ok, err := visible(&posts[i])
		if err != nil {
			return nil, err
		}
		if ok {
			result = append(result, posts[i])
		}
	}
	for i := range result {
		ptrs = append(ptrs, &result[i])
	}
	if err := s.markLiked(actorID, ptrs); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostService) markLiked(actorID int64, posts []*models.Post) error {
	ids := make([]int64, len(posts))
	for i, post := range posts {
		ids[i] = post.ID
	}
	liked, err := s.repos.Posts.LikedPostIDs(actorID, ids)
	if err != nil {
		return err
	}
	for _, post := range posts {
		post.LikedByViewer = liked[post.ID]
	}
	return nil
}
