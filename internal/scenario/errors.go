package scenario

import (
	"errors"
	"fmt"
)

// ErrAssertion is matched by every *AssertionError.
var ErrAssertion = errors.New("assertion failed")

// AssertionError reports that the site did not show what a checkpoint expected. It is
// never retried: the page settled and the state is wrong.
type AssertionError struct {
	Checkpoint string
	Message    string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("checkpoint %s: %s", e.Checkpoint, e.Message)
}

func (e *AssertionError) Is(target error) bool {
	return target == ErrAssertion
}

func assertionf(checkpoint, format string, args ...any) error {
	return &AssertionError{Checkpoint: checkpoint, Message: fmt.Sprintf(format, args...)}
}
