package handlers

import (
	"net/http"
	"strconv"

	"familytree/internal/logger"
	"familytree/internal/service"
)

// MemberHandler serves members, their relationships and trees
type MemberHandler struct {
	members *service.MemberService
	logger  *logger.Logger
}

// NewMemberHandler creates a new member handler
func NewMemberHandler(members *service.MemberService, log *logger.Logger) *MemberHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &MemberHandler{members: members, logger: log}
}

func (h *MemberHandler) CreateMember(w http.ResponseWriter, r *http.Request) {
	var input service.MemberInput
	if err := decodeJSON(w, r, &input); err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	member, err := h.members.CreateMember(actorID(r), input)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

func (h *MemberHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.members.ListMembers(actorID(r))
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *MemberHandler) GetMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	member, err := h.members.GetMember(actorID(r), memberID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (h *MemberHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	var input service.MemberInput
	if err := decodeJSON(w, r, &input); err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	member, err := h.members.UpdateMember(actorID(r), memberID, input)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (h *MemberHandler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	if err := h.members.DeleteMember(actorID(r), memberID); err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MemberHandler) AddRelationship(w http.ResponseWriter, r *http.Request) {
	memberID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	var input service.RelationshipInput
	if err := decodeJSON(w, r, &input); err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	if err := h.members.AddRelationship(actorID(r), memberID, input); err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	member, err := h.members.GetMember(actorID(r), memberID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

func (h *MemberHandler) RemoveRelationship(w http.ResponseWriter, r *http.Request) {
	memberID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	relatedID, err := pathID(r, "relatedId")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	if err := h.members.RemoveRelationship(actorID(r), memberID, relatedID); err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetTree returns ancestors and descendants up to ?depth= generations
func (h *MemberHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	memberID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	depth := service.DefaultTreeDepth
	if value := r.URL.Query().Get("depth"); value != "" {
		if depth, err = strconv.Atoi(value); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "bad_request", "depth must be a number")
			return
		}
	}
	tree, err := h.members.GetTree(actorID(r), memberID, depth)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}
