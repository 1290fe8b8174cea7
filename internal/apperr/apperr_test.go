package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
		code string
	}{
		{"not found", NotFound("family %d", 3), http.StatusNotFound, "not_found"},
		{"forbidden wrapped", fmt.Errorf("update: %w", Forbidden("no access")), http.StatusForbidden, "forbidden"},
		{"bad request", BadRequest("self relationship"), http.StatusBadRequest, "bad_request"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Status(tt.err); got != tt.want {
				t.Errorf("Status() = %d, want %d", got, tt.want)
			}
			if got := Code(tt.err); got != tt.code {
				t.Errorf("Code() = %q, want %q", got, tt.code)
			}
		})
	}
}

func TestMessageKeepsDetail(t *testing.T) {
	err := NotFound("member %d", 12)
	if err.Error() != "not found: member 12" {
		t.Errorf("Error() = %q", err.Error())
	}
}
