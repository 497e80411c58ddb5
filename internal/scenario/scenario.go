// internal/scenario/scenario.go
// Package scenario drives the end-to-end search workflow: search, refine, open a listing
// and fill the lead form, asserting the page state at each checkpoint. It owns all state
// that spans steps; the pages below it are stateless views of the current document.
package scenario

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/KCumlee/Job-assignments/internal/browser"
	"github.com/KCumlee/Job-assignments/internal/config"
	"github.com/KCumlee/Job-assignments/internal/locator"
	"github.com/KCumlee/Job-assignments/internal/pages"
)

// Checkpoints, in run order.
const (
	CheckpointWindow            = "window"
	CheckpointSearch            = "search"
	CheckpointSearchLabels      = "search_labels"
	CheckpointNewCars           = "new_cars"
	CheckpointTrim              = "trim"
	CheckpointListing           = "listing"
	CheckpointDetail            = "detail"
	CheckpointContactInfo       = "contact_info"
	CheckpointPaymentCalculator = "payment_calculator"
	CheckpointScreenshot        = "screenshot"
)

// Result is what a completed run observed.
type Result struct {
	SearchLabels   pages.Breadcrumbs
	NewCarLabels   pages.Breadcrumbs
	TrimLabels     pages.Breadcrumbs
	DetailTitle    string
	ScreenshotPath string
	Checkpoints    []string
	Duration       time.Duration
}

// Scenario runs the workflow against one browser session. The session is owned by the
// caller and must not be shared with another running scenario.
type Scenario struct {
	driver  browser.Driver
	cfg     config.Interface
	logger  *zap.Logger
	env     pages.Env
	results *pages.ResultsPage
	detail  *pages.DetailPage
}

// New prepares a scenario over driver using the configured locator timings, site catalog
// and expectations.
func New(driver browser.Driver, cfg config.Interface, logger *zap.Logger) *Scenario {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("scenario")

	lc := cfg.Locator()
	loc := locator.New(driver, logger, locator.WithTimeout(lc.Timeout), locator.WithPollInterval(lc.PollInterval))
	env := pages.Env{Driver: driver, Locator: loc, Site: cfg.Site(), Logger: logger}

	return &Scenario{
		driver: driver,
		cfg:    cfg,
		logger: logger,
		env:    env,
		results: pages.NewResultsPage(env,
			pages.WithProbe(lc.ProbeTimeout, lc.MaxProbe),
			pages.WithRefreshAfterRefine(cfg.Scenario().RefreshAfterRefine),
		),
		detail: pages.NewDetailPage(env),
	}
}

type step struct {
	checkpoint string
	run        func(ctx context.Context, res *Result) error
}

// Run executes every checkpoint in order and stops at the first failure. Nothing already
// done on the site is undone.
func (s *Scenario) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{}

	steps := []step{
		{CheckpointWindow, s.sizeWindow},
		{CheckpointSearch, s.search},
		{CheckpointSearchLabels, s.checkSearchLabels},
		{CheckpointNewCars, s.refineNewCars},
		{CheckpointTrim, s.refineTrim},
		{CheckpointListing, s.selectListing},
		{CheckpointDetail, s.checkDetail},
		{CheckpointContactInfo, s.inputContactInfo},
		{CheckpointPaymentCalculator, s.hoverPaymentCalculator},
		{CheckpointScreenshot, s.screenshot},
	}
	for _, st := range steps {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("scenario interrupted before %s: %w", st.checkpoint, err)
		}
		s.logger.Debug("Running checkpoint.", zap.String("checkpoint", st.checkpoint))
		if err := st.run(ctx, res); err != nil {
			res.Duration = time.Since(start)
			s.logger.Error("Checkpoint failed.", zap.String("checkpoint", st.checkpoint), zap.Error(err))
			return res, fmt.Errorf("%s: %w", st.checkpoint, err)
		}
		res.Checkpoints = append(res.Checkpoints, st.checkpoint)
		s.logger.Info("Checkpoint passed.", zap.String("checkpoint", st.checkpoint))
	}
	res.Duration = time.Since(start)
	return res, nil
}

func (s *Scenario) sizeWindow(ctx context.Context, _ *Result) error {
	bc := s.cfg.Browser()
	switch {
	case bc.Maximize:
		return s.driver.Maximize(ctx)
	case bc.WindowWidth > 0 && bc.WindowHeight > 0:
		return s.driver.SetWindowSize(ctx, bc.WindowWidth, bc.WindowHeight)
	}
	return nil
}

func (s *Scenario) search(ctx context.Context, _ *Result) error {
	page := pages.NewSearchPage(s.env)
	if err := page.NavigateHome(ctx); err != nil {
		return err
	}
	filters := page.Filters()
	for _, f := range s.cfg.Scenario().Filters {
		if err := filters.Apply(ctx, f.Name, f.Value); err != nil {
			return err
		}
	}
	return filters.Submit(ctx)
}

func (s *Scenario) checkSearchLabels(ctx context.Context, res *Result) error {
	labels, err := s.results.ActiveFilterLabels(ctx)
	if err != nil {
		return err
	}
	res.SearchLabels = labels
	if missing := labels.Missing(s.cfg.Scenario().ExpectedLabels...); len(missing) > 0 {
		return assertionf(CheckpointSearchLabels, "labels %q missing from %q", missing, labels)
	}
	return nil
}

func (s *Scenario) refineNewCars(ctx context.Context, res *Result) error {
	sc := s.cfg.Scenario()
	if err := s.results.RefineToNewCars(ctx); err != nil {
		return err
	}
	labels, err := s.results.ActiveFilterLabels(ctx)
	if err != nil {
		return err
	}
	res.NewCarLabels = labels
	if !labels.Contains(sc.NewLabel) {
		return assertionf(CheckpointNewCars, "label %q missing from %q", sc.NewLabel, labels)
	}
	if labels.Contains(sc.UsedLabel) {
		return assertionf(CheckpointNewCars, "label %q still present in %q", sc.UsedLabel, labels)
	}
	return nil
}

func (s *Scenario) refineTrim(ctx context.Context, res *Result) error {
	trim := s.cfg.Scenario().TrimLabel
	if err := s.results.RefineToTrim(ctx, trim); err != nil {
		return err
	}
	labels, err := s.results.ActiveFilterLabels(ctx)
	if err != nil {
		return err
	}
	res.TrimLabels = labels
	if !labels.Contains(trim) {
		return assertionf(CheckpointTrim, "label %q missing from %q", trim, labels)
	}
	return nil
}

func (s *Scenario) selectListing(ctx context.Context, _ *Result) error {
	index := s.cfg.Scenario().ListingIndex
	count, err := s.results.ListingCount(ctx)
	if err != nil {
		return err
	}
	if index >= count {
		return fmt.Errorf("listing %d requested but the page shows %d listings: %w", index, count, locator.ErrNotFound)
	}
	return s.results.SelectListing(ctx, index)
}

// checkDetail waits for the lead form before reading the title, so the title is the
// detail page's and not the results page's.
func (s *Scenario) checkDetail(ctx context.Context, res *Result) error {
	button, err := s.detail.CheckAvailabilityButton(ctx)
	if err != nil {
		return err
	}
	title, err := s.detail.Title(ctx)
	if err != nil {
		return err
	}
	res.DetailTitle = title

	var missing []string
	for _, fragment := range s.cfg.Scenario().TitleFragments {
		if !strings.Contains(title, fragment) {
			missing = append(missing, fragment)
		}
	}
	if len(missing) > 0 {
		return assertionf(CheckpointDetail, "title %q does not contain %q", title, missing)
	}

	shown, err := button.Displayed(ctx)
	if err != nil {
		return fmt.Errorf("failed to read check availability button visibility: %w", err)
	}
	if !shown {
		return assertionf(CheckpointDetail, "check availability button is not displayed")
	}
	return nil
}

func (s *Scenario) inputContactInfo(ctx context.Context, _ *Result) error {
	c := s.cfg.Scenario().Contact
	return s.detail.InputContactInfo(ctx, pages.ContactInfo{
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
	})
}

func (s *Scenario) hoverPaymentCalculator(ctx context.Context, _ *Result) error {
	return s.detail.HoverPaymentCalculator(ctx)
}

func (s *Scenario) screenshot(ctx context.Context, res *Result) error {
	path := s.cfg.Scenario().ScreenshotPath
	if path == "" {
		s.logger.Debug("No screenshot path configured, skipping.")
		return nil
	}
	if err := s.driver.Screenshot(ctx, path); err != nil {
		return err
	}
	res.ScreenshotPath = path
	return nil
}
