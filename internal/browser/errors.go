package browser

import (
	"errors"
)

var (
	// ErrNoSuchElement is returned by drivers whose lookups fail instead of returning
	// an empty result. It is transient: the node may simply not be rendered yet.
	ErrNoSuchElement = errors.New("no such element")
	// ErrStaleElement means the handle's node was removed or replaced since it was found.
	// It is transient: a fresh lookup will usually find the replacement.
	ErrStaleElement = errors.New("stale element reference")
	// ErrSessionClosed is returned by any operation on a closed session.
	ErrSessionClosed = errors.New("browser session closed")
)

// IsTransient reports whether err describes a page that is still settling rather than
// a genuine failure. Only these conditions are worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrNoSuchElement) || errors.Is(err, ErrStaleElement)
}
