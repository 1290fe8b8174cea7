package handlers

import (
	"net/http"

	"familytree/internal/logger"
	"familytree/internal/service"
)

// PostHandler serves posts, comments and likes
type PostHandler struct {
	posts    *service.PostService
	comments *service.CommentService
	logger   *logger.Logger
}

// NewPostHandler creates a new post handler
func NewPostHandler(posts *service.PostService, comments *service.CommentService, log *logger.Logger) *PostHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &PostHandler{posts: posts, comments: comments, logger: log}
}

func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var input service.PostInput
	if err := decodeJSON(w, r, &input); err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	post, err := h.posts.CreatePost(actorID(r), input)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// ListFeed returns the caller's feed, paged with ?limit= and ?offset=
func (h *PostHandler) ListFeed(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.ListFeed(actorID(r), pageFromQuery(r))
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *PostHandler) ListFamilyPosts(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	posts, err := h.posts.ListFamilyPosts(actorID(r), familyID, pageFromQuery(r))
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *PostHandler) ListMemberPosts(w http.ResponseWriter, r *http.Request) {
	memberID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	posts, err := h.posts.ListMemberPosts(actorID(r), memberID, pageFromQuery(r))
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	post, err := h.posts.GetPost(actorID(r), postID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	var input service.PostInput
	if err := decodeJSON(w, r, &input); err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	post, err := h.posts.UpdatePost(actorID(r), postID, input)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	if err := h.posts.DeletePost(actorID(r), postID); err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PostHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	result, err := h.posts.ToggleLike(actorID(r), postID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *PostHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	var input service.CommentInput
	if err := decodeJSON(w, r, &input); err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	comment, err := h.comments.CreateComment(actorID(r), postID, input)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (h *PostHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	comments, err := h.comments.ListComments(actorID(r), postID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (h *PostHandler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	postID, commentID, err := commentPath(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	var input service.CommentInput
	if err := decodeJSON(w, r, &input); err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	comment, err := h.comments.UpdateComment(actorID(r), postID, commentID, input.Content)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (h *PostHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	postID, commentID, err := commentPath(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	if err := h.comments.DeleteComment(actorID(r), postID, commentID); err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PostHandler) ToggleCommentLike(w http.ResponseWriter, r *http.Request) {
	postID, commentID, err := commentPath(r)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	result, err := h.comments.ToggleLike(actorID(r), postID, commentID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func commentPath(r *http.Request) (int64, int64, error) {
	postID, err := pathID(r, "id")
	if err != nil {
		return 0, 0, err
	}
	commentID, err := pathID(r, "commentId")
	if err != nil {
		return 0, 0, err
	}
	return postID, commentID, nil
}
