package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/mkoval/scholarcsv/internal/jobs"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrArtifactNotReady indicates the job exists but has no artifact yet
type ErrArtifactNotReady struct {
	State jobs.State
}

func (e *ErrArtifactNotReady) Error() string {
	return fmt.Sprintf("artifact not available for job in state %q", e.State)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var validation *ErrValidation
	var notReady *ErrArtifactNotReady
	switch {
	case errors.Is(err, jobs.ErrJobNotFound):
		return http.StatusNotFound
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notReady):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
