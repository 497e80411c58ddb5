// internal/browser/session/session.go
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/KCumlee/Job-assignments/internal/browser"
	"github.com/KCumlee/Job-assignments/internal/config"
)

const shutdownTimeout = 10 * time.Second

// Session is a browser.Driver backed by one Chrome tab driven through chromedp.
type Session struct {
	id          string
	ctx         context.Context // tab context; carries the CDP target
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	logger      *zap.Logger
	cfg         config.BrowserConfig
	limiter     *rate.Limiter

	// runActionsFunc executes CDP actions. Tests replace it to capture actions.
	runActionsFunc func(ctx context.Context, actions ...chromedp.Action) error

	mu       sync.Mutex
	isClosed bool
}

var _ browser.Driver = (*Session)(nil)

// New launches Chrome according to cfg and opens a tab. The browser lives until Close
// or until parentCtx is canceled.
func New(parentCtx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(parentCtx, execAllocatorOptions(cfg)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(logger.Named("chromedp").Sugar().Debugf))

	s := newSession(tabCtx, tabCancel, allocCancel, cfg, logger)

	// The first Run starts the browser and attaches to the tab.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	s.logger.Info("Browser session started.", zap.Bool("headless", cfg.Headless), zap.String("exec_path", cfg.ExecPath))
	return s, nil
}

func newSession(ctx context.Context, cancel, allocCancel context.CancelFunc, cfg config.BrowserConfig, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()
	s := &Session{
		id:          id,
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		logger:      logger.Named("session").With(zap.String("session_id", id)),
		cfg:         cfg,
	}
	if cfg.ActionRate > 0 {
		burst := cfg.ActionBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.ActionRate), burst)
	}
	s.runActionsFunc = s.run
	return s
}

// execAllocatorOptions builds the Chrome flags for cfg.
func execAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.Flag("headless", cfg.Headless))
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}
	for _, arg := range cfg.Args {
		key, value, found := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if found {
			opts = append(opts, chromedp.Flag(key, value))
		} else {
			opts = append(opts, chromedp.Flag(key, true))
		}
	}
	return opts
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// Close shuts down the tab and then the browser process. It is safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return nil
	}
	s.isClosed = true
	s.mu.Unlock()

	s.logger.Debug("Closing browser session.")

	// chromedp.Cancel blocks until Chrome exits, so it is bounded by ctx.
	done := make(chan error, 1)
	go func() { done <- chromedp.Cancel(s.ctx) }()

	var err error
	select {
	case err = <-done:
		// A context without a browser attached has nothing to shut down.
		if errors.Is(err, context.Canceled) || errors.Is(err, chromedp.ErrInvalidContext) {
			err = nil
		}
	case <-ctx.Done():
		err = fmt.Errorf("browser shutdown interrupted: %w", ctx.Err())
	case <-time.After(shutdownTimeout):
		s.logger.Warn("Browser shutdown timed out; forcing.", zap.Duration("timeout", shutdownTimeout))
	}

	if s.cancel != nil {
		s.cancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
	return err
}

func (s *Session) closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isClosed
}

// runActions paces and executes actions under both the session lifetime and ctx, and
// maps CDP node errors to browser.ErrStaleElement.
func (s *Session) runActions(ctx context.Context, actions ...chromedp.Action) error {
	if s.closed() {
		return browser.ErrSessionClosed
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("action pacing: %w", err)
		}
	}
	return classifyError(s.runActionsFunc(ctx, actions...))
}

func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// staleMarkers are substrings of CDP errors raised for nodes that left the document.
var staleMarkers = []string{
	"No node with given id",
	"Could not find node with given id",
	"Node is detached",
	"Node does not have a layout object",
	"Cannot find context with specified id",
}

func classifyError(err error) error {
	if err == nil || errors.Is(err, browser.ErrStaleElement) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, chromedp.ErrInvalidContext) {
		return fmt.Errorf("%w: %v", browser.ErrSessionClosed, err)
	}
	msg := err.Error()
	for _, marker := range staleMarkers {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %v", browser.ErrStaleElement, err)
		}
	}
	return err
}

// -- Navigation --

func (s *Session) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	s.logger.Info("Navigating.", zap.String("url", url))
	if err := s.runActions(navCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (s *Session) Reload(ctx context.Context) error {
	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	s.logger.Debug("Reloading page.")
	if err := s.runActions(navCtx, chromedp.Reload()); err != nil {
		return fmt.Errorf("failed to reload page: %w", err)
	}
	return nil
}

func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := s.runActions(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return url, nil
}

func (s *Session) Title(ctx context.Context) (string, error) {
	var title string
	if err := s.runActions(ctx, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("failed to read title: %w", err)
	}
	return title, nil
}

// -- Element lookup --

// searchExpression turns q into a DOM.performSearch expression, which accepts both
// XPath and CSS. IDs become XPath so arbitrary characters need no CSS escaping.
func searchExpression(q browser.Query) (string, error) {
	switch q.By {
	case browser.ByXPath, browser.ByCSS:
		return q.Selector, nil
	case browser.ByID:
		return "//*[@id=" + browser.XPathLiteral(q.Selector) + "]", nil
	default:
		return "", fmt.Errorf("unsupported selection strategy %q", q.By)
	}
}

func (s *Session) FindElements(ctx context.Context, q browser.Query) ([]browser.Element, error) {
	expr, err := searchExpression(q)
	if err != nil {
		return nil, err
	}

	var nodes []*cdp.Node
	if err := s.runActions(ctx, chromedp.Nodes(expr, &nodes, chromedp.BySearch, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}

	elems := make([]browser.Element, 0, len(nodes))
	for _, n := range nodes {
		elems = append(elems, &element{s: s, node: n})
	}
	return elems, nil
}

// -- Page level --

// Screenshot captures the viewport as PNG. A leading ~ in path is expanded.
func (s *Session) Screenshot(ctx context.Context, path string) error {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return fmt.Errorf("invalid screenshot path %q: %w", path, err)
	}

	var buf []byte
	if err := s.runActions(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}
	if dir := filepath.Dir(expanded); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create screenshot directory: %w", err)
		}
	}
	if err := os.WriteFile(expanded, buf, 0o644); err != nil {
		return fmt.Errorf("failed to write screenshot: %w", err)
	}
	s.logger.Info("Screenshot saved.", zap.String("path", expanded))
	return nil
}

// SetWindowSize restores the window to the normal state and resizes it. CDP rejects
// bounds combined with a maximized state, hence two calls.
func (s *Session) SetWindowSize(ctx context.Context, width, height int) error {
	return s.setWindowBounds(ctx,
		&cdpbrowser.Bounds{WindowState: cdpbrowser.WindowStateNormal},
		&cdpbrowser.Bounds{Width: int64(width), Height: int64(height)},
	)
}

func (s *Session) Maximize(ctx context.Context) error {
	return s.setWindowBounds(ctx, &cdpbrowser.Bounds{WindowState: cdpbrowser.WindowStateMaximized})
}

func (s *Session) setWindowBounds(ctx context.Context, steps ...*cdpbrowser.Bounds) error {
	err := s.runActions(ctx, chromedp.ActionFunc(func(c context.Context) error {
		windowID, _, err := cdpbrowser.GetWindowForTarget().Do(c)
		if err != nil {
			return err
		}
		for _, b := range steps {
			if err := cdpbrowser.SetWindowBounds(windowID, b).Do(c); err != nil {
				return err
			}
		}
		return nil
	}))
	if err != nil {
		return fmt.Errorf("failed to set window bounds: %w", err)
	}
	return nil
}
