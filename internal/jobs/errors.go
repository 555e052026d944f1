package jobs

import (
	"errors"
	"fmt"
)

// ErrJobNotFound indicates the registry has no job with the given ID,
// either because it never existed or because it was evicted.
var ErrJobNotFound = errors.New("job not found")

// ErrEmptyResult indicates an author resolved but produced zero usable
// publications. Surfaced as a job failure, never a crash.
var ErrEmptyResult = errors.New("no publications found")

// SourceUnavailableError indicates the data source could not resolve an
// author at all. Fatal to that author's row; a multi-author batch
// continues with the remaining authors.
type SourceUnavailableError struct {
	Author string
	Cause  error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("could not resolve author %s: %v", e.Author, e.Cause)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Cause
}

// errCancelled propagates a cancellation checkpoint hit out of the
// per-author loop. Internal only; never shown to users as an error.
var errCancelled = errors.New("job cancelled")
