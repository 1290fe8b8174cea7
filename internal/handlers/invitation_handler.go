package handlers

import (
	"net/http"

	"familytree/internal/logger"
	"familytree/internal/models"
	"familytree/internal/service"
)

// InvitationHandler serves family invitations
type InvitationHandler struct {
	invitations *service.InvitationService
	logger      *logger.Logger
}

// NewInvitationHandler creates a new invitation handler
func NewInvitationHandler(invitations *service.InvitationService, log *logger.Logger) *InvitationHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &InvitationHandler{invitations: invitations, logger: log}
}

func (h *InvitationHandler) Invite(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	var req struct {
		Email string      `json:"email"`
		Role  models.Role `json:"role"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	invitation, err := h.invitations.Invite(r.Context(), actorID(r), familyID, req.Email, req.Role)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, invitation)
}

func (h *InvitationHandler) ListInvitations(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	invitations, err := h.invitations.ListFamilyInvitations(actorID(r), familyID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, invitations)
}

func (h *InvitationHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	invitationID, err := pathID(r, "invitationId")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	if err := h.invitations.Revoke(actorID(r), familyID, invitationID); err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *InvitationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	membership, err := h.invitations.Accept(actorID(r), r.PathValue("code"))
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, membership)
}
