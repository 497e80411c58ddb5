// internal/pages/results.go
package pages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/KCumlee/Job-assignments/internal/browser"
	"github.com/KCumlee/Job-assignments/internal/config"
	"github.com/KCumlee/Job-assignments/internal/locator"
)

const (
	defaultProbeTimeout = 2 * time.Second
	defaultMaxProbe     = 50
)

// ErrProbeLimit is returned when the breadcrumb list is longer than the probe cap, which
// means the end-of-list check is not working against the current markup.
var ErrProbeLimit = errors.New("breadcrumb probe limit exceeded")

// Breadcrumbs is one read of the active filter labels, in page order. It is a snapshot:
// any refinement makes it out of date.
type Breadcrumbs []string

// Contains reports whether label is one of the breadcrumbs.
func (b Breadcrumbs) Contains(label string) bool {
	for _, l := range b {
		if l == label {
			return true
		}
	}
	return false
}

// Missing returns the labels that are not present, in the order given.
func (b Breadcrumbs) Missing(labels ...string) []string {
	var missing []string
	for _, l := range labels {
		if !b.Contains(l) {
			missing = append(missing, l)
		}
	}
	return missing
}

// ResultsPage is the search results page: the active filter breadcrumbs, the refinement
// sidebar and the listing rows.
type ResultsPage struct {
	base
	sel config.ResultsSelectors

	probeTimeout time.Duration
	maxProbe     int
	refresh      bool
}

var _ Page = (*ResultsPage)(nil)

// ResultsOption configures a ResultsPage.
type ResultsOption func(*ResultsPage)

// WithProbe sets the wait used to detect the end of the breadcrumb list and the maximum
// number of breadcrumbs read before giving up.
func WithProbe(timeout time.Duration, limit int) ResultsOption {
	return func(p *ResultsPage) {
		if timeout > 0 {
			p.probeTimeout = timeout
		}
		if limit > 0 {
			p.maxProbe = limit
		}
	}
}

// WithRefreshAfterRefine reloads the page after each refinement, for markup that does not
// re-render the breadcrumbs on its own.
func WithRefreshAfterRefine(refresh bool) ResultsOption {
	return func(p *ResultsPage) {
		p.refresh = refresh
	}
}

// NewResultsPage binds the results page to env's session.
func NewResultsPage(env Env, opts ...ResultsOption) *ResultsPage {
	p := &ResultsPage{
		base:         newBase(env, env.Site.ResultsURL, "results"),
		sel:          env.Site.Results,
		probeTimeout: defaultProbeTimeout,
		maxProbe:     defaultMaxProbe,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ActiveFilterLabels reads the breadcrumb labels fresh from the page. Positions are probed
// from 1 until one is absent; an empty list is a valid answer. The first position gets
// the full locator timeout since it also covers the page still rendering. Later positions
// use the shorter probe timeout.
func (p *ResultsPage) ActiveFilterLabels(ctx context.Context) (Breadcrumbs, error) {
	labels := Breadcrumbs{}
	for index := 1; ; index++ {
		q := p.sel.Breadcrumb.Format(index)
		var opts []locator.CallOption
		if index > 1 {
			opts = append(opts, locator.Timeout(p.probeTimeout))
		}
		ok, err := p.locator.Exists(ctx, q, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to probe breadcrumb %d: %w", index, err)
		}
		if !ok {
			break
		}
		if index > p.maxProbe {
			return nil, fmt.Errorf("%w: more than %d labels", ErrProbeLimit, p.maxProbe)
		}
		label, err := p.text(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("failed to read breadcrumb %d: %w", index, err)
		}
		labels = append(labels, strings.TrimSpace(label))
	}
	p.logger.Debug("Read active filter labels.", zap.Strings("labels", labels))
	return labels, nil
}

// RefineToNewCars switches the stock type refinement to new cars. "New" replaces "Used"
// in the breadcrumbs.
func (p *ResultsPage) RefineToNewCars(ctx context.Context) error {
	if err := p.refine(ctx, p.sel.NewCars); err != nil {
		return fmt.Errorf("failed to refine to new cars: %w", err)
	}
	return nil
}

// RefineToTrim selects the trim whose refinement entry contains label.
func (p *ResultsPage) RefineToTrim(ctx context.Context, label string) error {
	q := p.sel.Trim.Format(browser.XPathLiteral(label))
	if err := p.refine(ctx, q); err != nil {
		return fmt.Errorf("failed to refine to trim %q: %w", label, err)
	}
	return nil
}

// refine clicks q and waits for the breadcrumb list to be rebuilt, so the next read of
// ActiveFilterLabels sees the refined set. The first breadcrumb node is held across the
// click and the refinement counts as settled once that node has been replaced.
func (p *ResultsPage) refine(ctx context.Context, q browser.Query) error {
	first := p.sel.Breadcrumb.Format(1)

	marker, err := p.locator.Locate(ctx, first, locator.Timeout(p.probeTimeout))
	if err != nil && !isAbsent(err) {
		return err
	}

	if err := p.click(ctx, q); err != nil {
		return err
	}

	if marker != nil {
		replaced, err := p.locator.Stale(ctx, marker, locator.Timeout(p.probeTimeout))
		if err != nil {
			return err
		}
		if !replaced {
			p.logger.Debug("Breadcrumbs did not re-render after refinement.", zap.Stringer("query", q))
		}
	}

	if p.refresh {
		if err := p.driver.Reload(ctx); err != nil {
			return err
		}
	}

	// Wait for the rebuilt list. A refinement can legitimately leave it empty.
	if _, err := p.locator.Exists(ctx, first, locator.Timeout(p.probeTimeout)); err != nil {
		return err
	}
	return nil
}

// SelectListing clicks the listing at position index. The session moves on to the
// vehicle detail page. An index past the last listing fails with locator.ErrNotFound.
func (p *ResultsPage) SelectListing(ctx context.Context, index int) error {
	q := p.sel.Listing.Format(index)
	if err := p.click(ctx, q); err != nil {
		return fmt.Errorf("failed to select listing %d: %w", index, err)
	}
	p.logger.Info("Listing selected.", zap.Int("index", index))
	return nil
}

// ListingCount returns the number of listing rows on the page, waiting up to the locator
// timeout for the first row to render.
func (p *ResultsPage) ListingCount(ctx context.Context) (int, error) {
	elems, err := p.locator.LocateAll(ctx, p.sel.Listings)
	if isAbsent(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count listings: %w", err)
	}
	return len(elems), nil
}

// isAbsent reports whether err is a locator timeout that was not caused by the caller.
func isAbsent(err error) bool {
	var nf *locator.NotFoundError
	return errors.As(err, &nf) && nf.Cause == nil
}
