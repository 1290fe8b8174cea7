package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"familytree/internal/apperr"
	"familytree/internal/logger"
	"familytree/internal/security"
	"familytree/internal/service"
	"familytree/internal/validation"
)

const maxJSONBody = 1 << 20

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func writeErrorMessage(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Message: message, Code: code}})
}

// respondWithError maps err to a status and JSON body. Server-side failures are
// logged and answered with a generic message.
func respondWithError(w http.ResponseWriter, log *logger.Logger, err error) {
	var verr validation.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: errorDetail{Message: verr.Message, Code: "validation", Field: verr.Field}})
	case errors.Is(err, service.ErrEmailTaken):
		writeErrorMessage(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrSessionExpired),
		errors.Is(err, security.ErrInvalidToken):
		writeErrorMessage(w, http.StatusUnauthorized, "unauthorized", err.Error())
	default:
		status := apperr.Status(err)
		if status == http.StatusInternalServerError {
			log.Error("request failed", "error", err)
			writeErrorMessage(w, status, apperr.Code(err), ErrInternalServerError)
			return
		}
		writeErrorMessage(w, status, apperr.Code(err), err.Error())
	}
}

// decodeJSON reads a JSON request body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.BadRequest("request body is required")
		}
		return apperr.BadRequest("invalid JSON body: %v", err)
	}
	return nil
}

// pathID parses a numeric path value
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.BadRequest("invalid %s", name)
	}
	return id, nil
}

// pageFromQuery reads limit and offset query parameters
func pageFromQuery(r *http.Request) service.Page {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	return service.Page{Limit: limit, Offset: offset}.Normalize()
}
