package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/scry-bulkgen/internal/domain"
	"github.com/phrazzld/scry-bulkgen/internal/service"
	"github.com/phrazzld/scry-bulkgen/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"job not found", service.ErrJobNotFound, http.StatusNotFound},
		{"store job not found", fmt.Errorf("get: %w", store.ErrJobNotFound), http.StatusNotFound},
		{"invalid transition", fmt.Errorf("%w: cannot pause", service.ErrInvalidTransition), http.StatusConflict},
		{"not stale", fmt.Errorf("%w: 2m ago", service.ErrNotStale), http.StatusConflict},
		{"invalid request", fmt.Errorf("%w: %w", service.ErrInvalidRequest, store.ErrInvalidEntity), http.StatusBadRequest},
		{"invalid id", domain.NewValidationError("id", "has invalid format", domain.ErrInvalidID), http.StatusBadRequest},
		{"unknown", errors.New("connection refused"), http.StatusInternalServerError},
		{"service error", &service.JobServiceError{Operation: "pause_job", Err: errors.New("boom")}, http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MapErrorToStatusCode(tc.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "An unexpected error occurred"},
		{"not found", service.ErrJobNotFound, "Job not found"},
		{"transition", service.ErrInvalidTransition, "Job state does not allow this operation"},
		{"not stale", service.ErrNotStale, "Job is still making progress; use force to recover it anyway"},
		{"invalid id", domain.NewValidationError("id", "has invalid format", domain.ErrInvalidID), "Invalid job ID"},
		{"invalid request", service.ErrInvalidRequest, "Invalid job request"},
		{"internal details hidden", errors.New("pq: relation generation_jobs does not exist"), "An unexpected error occurred"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, GetSafeErrorMessage(tc.err))
		})
	}
}

func TestSanitizeValidationError(t *testing.T) {
	v := validator.New()

	tests := []struct {
		name string
		req  StartJobRequest
		want string
	}{
		{
			name: "missing units",
			req:  StartJobRequest{ItemsPerUnit: 3},
			want: "Invalid units: required field",
		},
		{
			name: "empty units",
			req:  StartJobRequest{Units: []string{}, ItemsPerUnit: 3},
			want: "Invalid units: too few values",
		},
		{
			name: "blank unit",
			req:  StartJobRequest{Units: []string{"go", ""}, ItemsPerUnit: 3},
			want: "Invalid units[1]: required field",
		},
		{
			name: "zero items",
			req:  StartJobRequest{Units: []string{"go"}},
			want: "Invalid items_per_unit: required field",
		},
		{
			name: "negative items",
			req:  StartJobRequest{Units: []string{"go"}, ItemsPerUnit: -1},
			want: "Invalid items_per_unit: must be positive",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Struct(tc.req)
			require.Error(t, err)
			assert.Equal(t, tc.want, SanitizeValidationError(err))
			assert.Equal(t, http.StatusBadRequest, MapErrorToStatusCode(err))
		})
	}

	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("other")))
}
