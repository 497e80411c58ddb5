package locator

import (
	"errors"
	"fmt"
	"time"

	"github.com/KCumlee/Job-assignments/internal/browser"
)

// ErrNotFound is matched (via errors.Is) by every *NotFoundError.
var ErrNotFound = errors.New("element not found")

// NotFoundError reports that no element matched Query within Timeout.
type NotFoundError struct {
	Query    browser.Query
	Timeout  time.Duration
	Attempts int
	// Cause is set when the wait was cut short by the caller's context.
	Cause error
	// Last is the last transient condition seen while polling. Message only; not unwrapped.
	Last error
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("element %s not found after %s (%d attempts)", e.Query, e.Timeout, e.Attempts)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	} else if e.Last != nil {
		msg += ": last: " + e.Last.Error()
	}
	return msg
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func (e *NotFoundError) Unwrap() error {
	return e.Cause
}
