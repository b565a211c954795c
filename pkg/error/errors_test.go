package error

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/girrex/suivi/internal/domain"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"validation", fmt.Errorf("validation failed: %w", domain.ErrEmptyTitle), http.StatusBadRequest, "BAD_REQUEST", "title is required"},
		{"authorization", domain.Forbidden("deletion is reserved to a national role"), http.StatusForbidden, "FORBIDDEN", "deletion is reserved to a national role"},
		{"not found", fmt.Errorf("failed to get action: %w", domain.ErrActionNotFound), http.StatusNotFound, "NOT_FOUND", "action not found"},
		{"conflict", domain.ErrAlreadyAcknowledged, http.StatusConflict, "CONFLICT", "action already acknowledged by this agent"},
		{"app error", ErrTooManyRequests, http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "Too many requests"},
		{"unknown", errors.New("pq: connection refused"), http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, tt.message, got.Message)
		})
	}
}
