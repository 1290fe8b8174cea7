package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"familytree/internal/apperr"
	"familytree/internal/logger"
	"familytree/internal/security"
	"familytree/internal/service"
	"familytree/internal/validation"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorDetail {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestRespondWithErrorMapsKinds(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", validation.ValidationError{Field: "email", Message: "email is required"}, http.StatusBadRequest, "validation"},
		{"wrapped validation", fmt.Errorf("register: %w", validation.ValidationError{Field: "name", Message: "bad"}), http.StatusBadRequest, "validation"},
		{"email taken", service.ErrEmailTaken, http.StatusConflict, "conflict"},
		{"bad credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, "unauthorized"},
		{"expired session", service.ErrSessionExpired, http.StatusUnauthorized, "unauthorized"},
		{"bad token", security.ErrInvalidToken, http.StatusUnauthorized, "unauthorized"},
		{"not found", apperr.NotFound("family %d", 7), http.StatusNotFound, "not_found"},
		{"forbidden", apperr.Forbidden("nope"), http.StatusForbidden, "forbidden"},
		{"bad request", apperr.BadRequest("invalid id"), http.StatusBadRequest, "bad_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondWithError(rec, logger.Nop(), tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestRespondWithErrorReportsValidationField(t *testing.T) {
	rec := httptest.NewRecorder()
	respondWithError(rec, logger.Nop(), validation.ValidationError{Field: "password", Message: "password is required"})

	detail := decodeError(t, rec)
	assert.Equal(t, "password", detail.Field)
	assert.Equal(t, "password is required", detail.Message)
}

func TestRespondWithErrorHidesInternalErrors(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	rec := httptest.NewRecorder()

	respondWithError(rec, logger.NewFromCore(core), errors.New("connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	detail := decodeError(t, rec)
	assert.Equal(t, ErrInternalServerError, detail.Message)
	assert.NotContains(t, rec.Body.String(), "connection refused")

	entries := logs.FilterMessage("request failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "connection refused", entries[0].ContextMap()["error"])
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Smith"}`))
	require.NoError(t, decodeJSON(httptest.NewRecorder(), r, &dst))
	assert.Equal(t, "Smith", dst.Name)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Smith","extra":1}`))
	assert.ErrorIs(t, decodeJSON(httptest.NewRecorder(), r, &dst), apperr.ErrBadRequest)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	err := decodeJSON(httptest.NewRecorder(), r, &dst)
	assert.ErrorIs(t, err, apperr.ErrBadRequest)
	assert.Contains(t, err.Error(), "request body is required")

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"`+strings.Repeat("a", maxJSONBody)+`"}`))
	assert.ErrorIs(t, decodeJSON(httptest.NewRecorder(), r, &dst), apperr.ErrBadRequest)
}

func TestPathIDAndPaging(t *testing.T) {
	mux := http.NewServeMux()
	var gotID int64
	var gotErr error
	var gotPage service.Page
	mux.HandleFunc("GET /things/{id}", func(w http.ResponseWriter, r *http.Request) {
		gotID, gotErr = pathID(r, "id")
		gotPage = pageFromQuery(r)
	})

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/things/42?limit=5&offset=10", nil))
	require.NoError(t, gotErr)
	assert.Equal(t, int64(42), gotID)
	assert.Equal(t, 5, gotPage.Limit)
	assert.Equal(t, 10, gotPage.Offset)

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/things/abc", nil))
	assert.ErrorIs(t, gotErr, apperr.ErrBadRequest)

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/things/0", nil))
	assert.ErrorIs(t, gotErr, apperr.ErrBadRequest)
}
