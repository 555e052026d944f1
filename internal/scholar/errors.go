package scholar

import (
	"errors"
	"fmt"
)

// ErrAuthorNotFound indicates the source could not resolve the author
// identifier to a profile.
var ErrAuthorNotFound = errors.New("author profile not found")

// Error represents a failure talking to the data source.
type Error struct {
	URL       string
	Message   string
	Cause     error
	Retryable bool
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("scholar error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("scholar error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
