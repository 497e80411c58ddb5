// internal/browser/driver.go
package browser

import (
	"context"
)

// Driver is the capability surface the harness needs from a live browser session.
// Everything above the locator talks to the page through this interface only, so the
// concrete automation engine (chromedp in production, an in-memory document in tests)
// stays swappable.
//
// A Driver is single-threaded: it models one active document view and must not be
// shared between concurrent workflows.
type Driver interface {
	// Navigate loads url in the current tab and waits for the load event.
	Navigate(ctx context.Context, url string) error
	// Reload re-requests the current document.
	Reload(ctx context.Context) error
	// CurrentURL returns the address of the current document.
	CurrentURL(ctx context.Context) (string, error)
	// Title returns the current document title.
	Title(ctx context.Context) (string, error)

	// FindElements returns every node matching q at this instant. Zero matches is not
	// an error; callers that need to wait for presence go through the locator.
	FindElements(ctx context.Context, q Query) ([]Element, error)

	// Screenshot captures the visible viewport and writes it as a PNG file at path.
	Screenshot(ctx context.Context, path string) error
	// SetWindowSize resizes the browser window.
	SetWindowSize(ctx context.Context, width, height int) error
	// Maximize maximizes the browser window.
	Maximize(ctx context.Context) error

	// Close releases the session. It is safe to call more than once.
	Close(ctx context.Context) error
}

// Element is a handle to a node that matched a Query at some point in time. Handles
// go stale when the page replaces the node; every method then fails with ErrStaleElement.
type Element interface {
	// Text returns the rendered text of the node.
	Text(ctx context.Context) (string, error)
	// Attribute returns the named attribute and whether it is present.
	Attribute(ctx context.Context, name string) (string, bool, error)
	// Displayed reports whether the node is rendered and visible.
	Displayed(ctx context.Context) (bool, error)
	// SendKeys focuses the node and types text into it.
	SendKeys(ctx context.Context, text string) error
	// Clear empties a text input.
	Clear(ctx context.Context) error
	// Click scrolls the node into view and clicks its center.
	Click(ctx context.Context) error
	// Hover moves the pointer over the node's center.
	Hover(ctx context.Context) error
	// SelectByValue picks the <option> whose value attribute equals value on a <select> node.
	SelectByValue(ctx context.Context, value string) error
}
