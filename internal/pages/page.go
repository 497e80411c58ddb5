// internal/pages/page.go
// Package pages holds the page objects for the cars.com search flow. Each page binds a
// canonical address to one browser session and reaches its controls only through the
// locator, using the selectors from the site catalog.
package pages

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/KCumlee/Job-assignments/internal/browser"
	"github.com/KCumlee/Job-assignments/internal/config"
	"github.com/KCumlee/Job-assignments/internal/locator"
)

// staleRetries bounds how often an interaction is retried when the node it located is
// replaced before the interaction lands.
const staleRetries = 3

// Page is implemented by every page object.
type Page interface {
	// CanonicalAddress is the URL that identifies the page.
	CanonicalAddress() string
	// NavigateHome loads the canonical address. It does nothing when the session is
	// already there.
	NavigateHome(ctx context.Context) error
}

// Env is what every page is constructed with. All pages of one workflow share the same
// Driver and Locator.
type Env struct {
	Driver  browser.Driver
	Locator *locator.Locator
	Site    config.SiteConfig
	Logger  *zap.Logger
}

// base carries the session plumbing shared by the concrete pages.
type base struct {
	address string
	driver  browser.Driver
	locator *locator.Locator
	logger  *zap.Logger
}

func newBase(env Env, address, name string) base {
	logger := env.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := env.Locator
	if loc == nil {
		loc = locator.New(env.Driver, logger)
	}
	return base{
		address: address,
		driver:  env.Driver,
		locator: loc,
		logger:  logger.Named("pages." + name),
	}
}

func (b *base) CanonicalAddress() string {
	return b.address
}

func (b *base) NavigateHome(ctx context.Context) error {
	current, err := b.driver.CurrentURL(ctx)
	if err != nil {
		return fmt.Errorf("failed to read current address: %w", err)
	}
	if current == b.address {
		b.logger.Debug("Already at canonical address, skipping navigation.", zap.String("url", b.address))
		return nil
	}
	if err := b.driver.Navigate(ctx, b.address); err != nil {
		return err
	}
	return nil
}

// withElement locates q and runs fn on the match. When the node is replaced between the
// lookup and fn, the lookup is repeated.
func (b *base) withElement(ctx context.Context, q browser.Query, fn func(browser.Element) error, opts ...locator.CallOption) error {
	var err error
	for attempt := 1; attempt <= staleRetries; attempt++ {
		var el browser.Element
		el, err = b.locator.Locate(ctx, q, opts...)
		if err != nil {
			return err
		}
		err = fn(el)
		if !errors.Is(err, browser.ErrStaleElement) {
			return err
		}
		b.logger.Debug("Element replaced during interaction, locating again.",
			zap.Stringer("query", q), zap.Int("attempt", attempt))
	}
	return err
}

func (b *base) click(ctx context.Context, q browser.Query) error {
	return b.withElement(ctx, q, func(el browser.Element) error {
		return el.Click(ctx)
	})
}

func (b *base) text(ctx context.Context, q browser.Query, opts ...locator.CallOption) (string, error) {
	var text string
	err := b.withElement(ctx, q, func(el browser.Element) error {
		var err error
		text, err = el.Text(ctx)
		return err
	}, opts...)
	return text, err
}

// typeInto replaces the content of the input matched by q with text.
func (b *base) typeInto(ctx context.Context, q browser.Query, text string) error {
	return b.withElement(ctx, q, func(el browser.Element) error {
		if err := el.Clear(ctx); err != nil {
			return err
		}
		return el.SendKeys(ctx, text)
	})
}
