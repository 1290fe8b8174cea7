package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"familytree/internal/logger"
	"familytree/internal/models"
	"familytree/internal/repository"
	"familytree/internal/service"
)

// AdminHandler handles site-administrator routes
type AdminHandler struct {
	backupService *service.BackupService
	resolver      *service.SubFamilyResolver
	users         *repository.UserRepository
	uploadMaxSize int64
	logger        *logger.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(backupService *service.BackupService, resolver *service.SubFamilyResolver, users *repository.UserRepository, uploadMaxSize int64, log *logger.Logger) *AdminHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AdminHandler{
		backupService: backupService,
		resolver:      resolver,
		users:         users,
		uploadMaxSize: uploadMaxSize,
		logger:        log,
	}
}

// ExportDatabase streams a JSON backup as a download
func (h *AdminHandler) ExportDatabase(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("familytree_backup_%s.json", timestamp)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	if err := h.backupService.Export(w); err != nil {
		// Headers may already be sent; the client sees a truncated file
		h.logger.Error("failed to export database", "error", err)
		return
	}
	h.logger.Info("database exported", "admin", user.Email)
}

// ImportDatabase restores a JSON backup sent as the request body or as the
// backup_file field of a multipart form. ?clear=true empties the tables first.
func (h *AdminHandler) ImportDatabase(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	clearData := r.URL.Query().Get("clear") == "true"

	var src io.Reader = http.MaxBytesReader(w, r.Body, h.uploadMaxSize)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(h.uploadMaxSize); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "bad_request", "failed to parse form")
			return
		}
		file, _, err := r.FormFile("backup_file")
		if err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "bad_request", "backup_file is required")
			return
		}
		defer file.Close()
		src = file
		clearData = clearData || r.FormValue("clear_data") == "true"
	}

	backup, err := h.backupService.Import(src, clearData)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	h.logger.Info("database imported", "admin", user.Email, "clear_data", clearData)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"version":     backup.Version,
		"exported_at": backup.ExportedAt,
		"members":     len(backup.Members),
		"families":    len(backup.Families),
		"posts":       len(backup.Posts),
	})
}

// Stats reports row counts per table
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.backupService.Stats()
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ResolveAll reconciles every sub-family now instead of waiting for the nightly sweep
func (h *AdminHandler) ResolveAll(w http.ResponseWriter, r *http.Request) {
	results, err := h.resolver.ResolveAll()
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// ListUsers lists every account
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.GetAllUsers()
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// DeleteUser removes an account. The member it was linked to stays in the tree.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	admin := GetUserFromContext(r.Context())
	if admin.ID == userID {
		writeErrorMessage(w, http.StatusBadRequest, "bad_request", "administrators cannot delete their own account")
		return
	}
	if err := h.users.DeleteUser(userID); err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	h.logger.Info("user deleted", "user_id", userID, "admin", admin.Email)
	w.WriteHeader(http.StatusNoContent)
}
