// Package locator resolves element queries against a live page that may still be
// rendering. It polls with a bounded timeout and absorbs the two conditions that mean
// "the page is still settling": no match yet, and a match whose node was replaced
// before it could be read. Every other failure is returned immediately.
package locator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/KCumlee/Job-assignments/internal/browser"
)

const (
	// DefaultTimeout bounds a single Locate or Exists call.
	DefaultTimeout = 10 * time.Second
	// DefaultPollInterval is the pause between lookups.
	DefaultPollInterval = 500 * time.Millisecond
)

// Locator polls a browser.Driver for elements.
type Locator struct {
	driver   browser.Driver
	logger   *zap.Logger
	timeout  time.Duration
	interval time.Duration
}

// Option configures a Locator.
type Option func(*Locator)

// WithTimeout sets the default wait applied to every call.
func WithTimeout(d time.Duration) Option {
	return func(l *Locator) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithPollInterval sets the pause between lookups.
func WithPollInterval(d time.Duration) Option {
	return func(l *Locator) {
		if d > 0 {
			l.interval = d
		}
	}
}

// New returns a Locator bound to driver.
func New(driver browser.Driver, logger *zap.Logger, opts ...Option) *Locator {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Locator{
		driver:   driver,
		logger:   logger.Named("locator"),
		timeout:  DefaultTimeout,
		interval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CallOption adjusts a single call.
type CallOption func(*callOptions)

type callOptions struct {
	timeout time.Duration
}

// Timeout overrides the wait for one call, for flows known to load slowly or, in the
// other direction, for probes where absence is the expected answer.
func Timeout(d time.Duration) CallOption {
	return func(o *callOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// Locate waits for an element matching q and returns the first match. When nothing
// matches within the timeout it fails with a *NotFoundError.
func (l *Locator) Locate(ctx context.Context, q browser.Query, opts ...CallOption) (browser.Element, error) {
	elems, err := l.poll(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	return elems[0], nil
}

// LocateAll is Locate returning every match.
func (l *Locator) LocateAll(ctx context.Context, q browser.Query, opts ...CallOption) ([]browser.Element, error) {
	return l.poll(ctx, q, opts)
}

// Exists runs the same wait as Locate but reports a timeout as false. Cancellation of
// ctx and non-transient failures are still returned as errors.
func (l *Locator) Exists(ctx context.Context, q browser.Query, opts ...CallOption) (bool, error) {
	_, err := l.poll(ctx, q, opts)
	if err == nil {
		return true, nil
	}
	var nf *NotFoundError
	if errors.As(err, &nf) && nf.Cause == nil {
		return false, nil
	}
	return false, err
}

// Stale waits for el to leave the document, which is how a click that re-renders part
// of the page is observed to have taken effect. It reports false when el is still
// attached after the timeout. Errors other than staleness end the wait early.
func (l *Locator) Stale(ctx context.Context, el browser.Element, opts ...CallOption) (bool, error) {
	co := callOptions{timeout: l.timeout}
	for _, opt := range opts {
		opt(&co)
	}

	waitCtx, cancel := context.WithTimeout(ctx, co.timeout)
	defer cancel()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		_, err := el.Displayed(waitCtx)
		switch {
		case errors.Is(err, browser.ErrStaleElement):
			return true, nil
		case err != nil && waitCtx.Err() == nil:
			return false, fmt.Errorf("waiting for element to detach: %w", err)
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			return false, nil
		case <-ticker.C:
		}
	}
}

func (l *Locator) poll(ctx context.Context, q browser.Query, opts []CallOption) ([]browser.Element, error) {
	co := callOptions{timeout: l.timeout}
	for _, opt := range opts {
		opt(&co)
	}
	if !q.By.Valid() {
		return nil, fmt.Errorf("locator: unsupported selection strategy %q for selector %q", q.By, q.Selector)
	}

	waitCtx, cancel := context.WithTimeout(ctx, co.timeout)
	defer cancel()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	var last error
	attempts := 0
	for {
		attempts++
		elems, err := l.probe(waitCtx, q)
		switch {
		case err == nil:
			if attempts > 1 {
				l.logger.Debug("Element located after retries.", zap.Stringer("query", q), zap.Int("attempts", attempts))
			}
			return elems, nil
		case browser.IsTransient(err):
			last = err
			l.logger.Debug("Element not ready, retrying.", zap.Stringer("query", q), zap.Int("attempt", attempts), zap.Error(err))
		case waitCtx.Err() != nil:
			// The lookup itself was cut off by the wait window or the caller.
		default:
			return nil, fmt.Errorf("locating %s: %w", q, err)
		}

		select {
		case <-waitCtx.Done():
			nf := &NotFoundError{Query: q, Timeout: co.timeout, Attempts: attempts, Last: last}
			if ctx.Err() != nil {
				nf.Cause = ctx.Err()
			}
			return nil, nf
		case <-ticker.C:
		}
	}
}

// probe does one lookup. A match only counts once its first handle answers a read,
// since a node found mid re-render can already be detached.
func (l *Locator) probe(ctx context.Context, q browser.Query) ([]browser.Element, error) {
	elems, err := l.driver.FindElements(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(elems) == 0 {
		return nil, browser.ErrNoSuchElement
	}
	if _, err := elems[0].Displayed(ctx); err != nil {
		return nil, err
	}
	return elems, nil
}
