package handlers

import (
	"fmt"
	"net/http"

	"familytree/internal/logger"
	"familytree/internal/service"
)

// FamilyHandler serves families, their rosters and roster CSV transfer
type FamilyHandler struct {
	families      *service.FamilyService
	backup        *service.BackupService
	uploadMaxSize int64
	logger        *logger.Logger
}

// NewFamilyHandler creates a new family handler
func NewFamilyHandler(families *service.FamilyService, backup *service.BackupService, uploadMaxSize int64, log *logger.Logger) *FamilyHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &FamilyHandler{families: families, backup: backup, uploadMaxSize: uploadMaxSize, logger: log}
}

func (h *FamilyHandler) CreateFamily(w http.ResponseWriter, r *http.Request) {
	var input service.FamilyInput
	if err := decodeJSON(w, r, &input); err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	family, err := h.families.CreateFamily(actorID(r), input)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, family)
}

func (h *FamilyHandler) ListFamilies(w http.ResponseWriter, r *http.Request) {
	families, err := h.families.ListFamilies(actorID(r))
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, families)
}

func (h *FamilyHandler) GetFamily(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	family, err := h.families.GetFamily(actorID(r), familyID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, family)
}

func (h *FamilyHandler) UpdateFamily(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	var input service.FamilyInput
	if err := decodeJSON(w, r, &input); err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	family, err := h.families.UpdateFamily(actorID(r), familyID, input)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, family)
}

func (h *FamilyHandler) DeleteFamily(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	if err := h.families.DeleteFamily(actorID(r), familyID); err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FamilyHandler) ListSubFamilies(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	families, err := h.families.ListSubFamilies(actorID(r), familyID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, families)
}

// Recalculate re-runs sub-family resolution and reports what changed
func (h *FamilyHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	result, err := h.families.Recalculate(actorID(r), familyID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *FamilyHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	var input service.MembershipInput
	if err := decodeJSON(w, r, &input); err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	membership, err := h.families.AddMember(actorID(r), familyID, input)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, membership)
}

func (h *FamilyHandler) UpdateMembership(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	memberID, err := pathID(r, "memberId")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	var input service.MembershipInput
	if err := decodeJSON(w, r, &input); err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	input.MemberID = memberID
	membership, err := h.families.UpdateMembership(actorID(r), familyID, input)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, membership)
}

func (h *FamilyHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	memberID, err := pathID(r, "memberId")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	if err := h.families.RemoveMember(actorID(r), familyID, memberID); err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportRoster downloads the family roster as CSV
func (h *FamilyHandler) ExportRoster(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	// Access is checked before anything is written
	if _, err := h.families.GetFamily(actorID(r), familyID); err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=family-%d.csv", familyID))
	if err := h.backup.ExportFamilyCSV(actorID(r), familyID, w); err != nil {
		h.logger.Error("failed to export roster", "family_id", familyID, "error", err)
	}
}

// ImportRoster adds members from an uploaded roster CSV
func (h *FamilyHandler) ImportRoster(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	body := http.MaxBytesReader(w, r.Body, h.uploadMaxSize)
	defer body.Close()

	result, err := h.backup.ImportFamilyCSV(actorID(r), familyID, body)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
