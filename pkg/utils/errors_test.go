package utils

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeFor(t *testing.T) {
	tests := []struct {
		err    error
		code   string
		status int
	}{
		{fmt.Errorf("row 3: %w", ErrInvalidRecord), ErrCodeInvalidRecord, http.StatusBadRequest},
		{fmt.Errorf("num_simulations: %w", ErrConfiguration), ErrCodeConfiguration, http.StatusBadRequest},
		{fmt.Errorf("bad csv: %w", ErrInvalidInput), ErrCodeValidation, http.StatusBadRequest},
		{fmt.Errorf("sim x: %w", ErrNotFound), ErrCodeNotFound, http.StatusNotFound},
		{ErrRateLimited, ErrCodeRateLimited, http.StatusTooManyRequests},
		{fmt.Errorf("boom"), ErrCodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.code, CodeFor(tt.err))
			assert.Equal(t, tt.status, StatusFor(tt.code))
		})
	}
}

func TestAppErrorMessage(t *testing.T) {
	assert.Equal(t, "NOT_FOUND: missing", NewAppError(ErrCodeNotFound, "missing").Error())
	assert.Equal(t, "VALIDATION_ERROR: bad - line 4", NewAppError(ErrCodeValidation, "bad", "line 4").Error())
}
