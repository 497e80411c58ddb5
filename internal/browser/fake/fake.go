// Package fake provides an in-memory browser.Driver. Tests script the document by
// mapping queries to nodes and can replace nodes mid-interaction to exercise stale
// handle handling.
package fake

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/KCumlee/Job-assignments/internal/browser"
)

// Node is a scripted DOM node.
type Node struct {
	Text    string
	Attrs   map[string]string
	Hidden  bool
	Options []string // accepted values when the node is a <select>

	// OnClick runs after a click is recorded. It receives the driver so it can
	// re-render the document (navigate, replace breadcrumbs, ...).
	OnClick func(d *Driver)

	// Mutated by interactions.
	Value   string
	Typed   string
	Clicks  int
	Hovered bool

	detached bool
}

// Detached reports whether the node has been removed from the document.
func (n *Node) Detached() bool { return n.detached }

// FindHook runs before a lookup of its query. call counts lookups of that query from 1.
// Returning an error makes the lookup fail with it.
type FindHook func(d *Driver, call int) error

// Driver implements browser.Driver over a scripted document.
type Driver struct {
	mu sync.Mutex

	url    string
	title  string
	routes map[string]func(d *Driver)
	nodes  map[browser.Query][]*Node
	hooks  map[browser.Query]FindHook
	calls  map[browser.Query]int
	closed bool

	Navigations []string
	Reloads     int
	Screenshots []string
	WindowSize  [2]int
	Maximized   bool

	// ScreenshotErr, when set, is returned by Screenshot instead of writing a file.
	ScreenshotErr error
}

var _ browser.Driver = (*Driver)(nil)

// New returns an empty document at about:blank.
func New() *Driver {
	return &Driver{
		url:    "about:blank",
		routes: make(map[string]func(d *Driver)),
		nodes:  make(map[browser.Query][]*Node),
		hooks:  make(map[browser.Query]FindHook),
		calls:  make(map[browser.Query]int),
	}
}

// Route registers a loader run when url is navigated to or reloaded. The document is
// cleared before the loader runs.
func (d *Driver) Route(url string, load func(d *Driver)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.routes[url] = load
}

// Set replaces the nodes matching q. Previously matching nodes become stale.
func (d *Driver) Set(q browser.Query, nodes ...*Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setLocked(q, nodes)
}

func (d *Driver) setLocked(q browser.Query, nodes []*Node) {
	for _, old := range d.nodes[q] {
		old.detached = true
	}
	if len(nodes) == 0 {
		delete(d.nodes, q)
		return
	}
	d.nodes[q] = nodes
}

// Remove detaches every node matching q.
func (d *Driver) Remove(q browser.Query) {
	d.Set(q)
}

// Nodes returns the nodes currently matching q.
func (d *Driver) Nodes(q browser.Query) []*Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Node(nil), d.nodes[q]...)
}

// OnFind installs a hook run before every lookup of q.
func (d *Driver) OnFind(q browser.Query, hook FindHook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hooks[q] = hook
}

// Calls returns how many times q has been looked up.
func (d *Driver) Calls(q browser.Query) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[q]
}

// SetTitle sets the document title.
func (d *Driver) SetTitle(title string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.title = title
}

// Load clears the document and runs the loader registered for url, without recording a
// navigation. Loaders use it to simulate client-side routing after a click.
func (d *Driver) Load(url string) {
	d.mu.Lock()
	load := d.loadLocked(url)
	d.mu.Unlock()
	if load != nil {
		load(d)
	}
}

func (d *Driver) loadLocked(url string) func(d *Driver) {
	for q := range d.nodes {
		d.setLocked(q, nil)
	}
	d.url = url
	d.title = ""
	return d.routes[url]
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return browser.ErrSessionClosed
	}
	d.Navigations = append(d.Navigations, url)
	load := d.loadLocked(url)
	d.mu.Unlock()

	if load != nil {
		load(d)
	}
	return nil
}

func (d *Driver) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return browser.ErrSessionClosed
	}
	d.Reloads++
	// A reload keeps the client-side state that the loader derives from the driver,
	// so loaders re-render from whatever they captured.
	load := d.loadLocked(d.url)
	d.mu.Unlock()

	if load != nil {
		load(d)
	}
	return nil
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return "", browser.ErrSessionClosed
	}
	return d.url, nil
}

func (d *Driver) Title(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return "", browser.ErrSessionClosed
	}
	return d.title, nil
}

func (d *Driver) FindElements(ctx context.Context, q browser.Query) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, browser.ErrSessionClosed
	}
	d.calls[q]++
	call := d.calls[q]
	hook := d.hooks[q]
	d.mu.Unlock()

	if hook != nil {
		if err := hook(d, call); err != nil {
			return nil, err
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	nodes := d.nodes[q]
	elems := make([]browser.Element, 0, len(nodes))
	for _, n := range nodes {
		elems = append(elems, &element{d: d, n: n})
	}
	return elems, nil
}

func (d *Driver) Screenshot(ctx context.Context, path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return browser.ErrSessionClosed
	}
	if d.ScreenshotErr != nil {
		return d.ScreenshotErr
	}
	// A minimal PNG signature is enough for callers that only check the file exists.
	if err := os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write screenshot: %w", err)
	}
	d.Screenshots = append(d.Screenshots, path)
	return nil
}

func (d *Driver) SetWindowSize(ctx context.Context, width, height int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.WindowSize = [2]int{width, height}
	d.Maximized = false
	return nil
}

func (d *Driver) Maximize(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Maximized = true
	return nil
}

func (d *Driver) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (d *Driver) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

type element struct {
	d *Driver
	n *Node
}

// live checks the handle under the driver lock and returns the unlock func.
func (e *element) live() (func(), error) {
	e.d.mu.Lock()
	if e.d.closed {
		e.d.mu.Unlock()
		return nil, browser.ErrSessionClosed
	}
	if e.n.detached {
		e.d.mu.Unlock()
		return nil, browser.ErrStaleElement
	}
	return e.d.mu.Unlock, nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	unlock, err := e.live()
	if err != nil {
		return "", err
	}
	defer unlock()
	return e.n.Text, nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	unlock, err := e.live()
	if err != nil {
		return "", false, err
	}
	defer unlock()
	v, ok := e.n.Attrs[name]
	return v, ok, nil
}

func (e *element) Displayed(ctx context.Context) (bool, error) {
	unlock, err := e.live()
	if err != nil {
		return false, err
	}
	defer unlock()
	return !e.n.Hidden, nil
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	unlock, err := e.live()
	if err != nil {
		return err
	}
	defer unlock()
	e.n.Typed += text
	return nil
}

func (e *element) Clear(ctx context.Context) error {
	unlock, err := e.live()
	if err != nil {
		return err
	}
	defer unlock()
	e.n.Typed = ""
	return nil
}

func (e *element) Click(ctx context.Context) error {
	unlock, err := e.live()
	if err != nil {
		return err
	}
	e.n.Clicks++
	onClick := e.n.OnClick
	unlock()

	if onClick != nil {
		onClick(e.d)
	}
	return nil
}

func (e *element) Hover(ctx context.Context) error {
	unlock, err := e.live()
	if err != nil {
		return err
	}
	defer unlock()
	e.n.Hovered = true
	return nil
}

func (e *element) SelectByValue(ctx context.Context, value string) error {
	unlock, err := e.live()
	if err != nil {
		return err
	}
	defer unlock()
	for _, opt := range e.n.Options {
		if opt == value {
			e.n.Value = value
			return nil
		}
	}
	return fmt.Errorf("no option with value %q", value)
}
