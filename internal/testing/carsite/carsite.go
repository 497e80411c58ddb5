// internal/testing/carsite/carsite.go
// Package carsite simulates the cars.com search flow on top of the fake driver: the
// quick search form, a results page whose breadcrumbs follow the submitted filters and
// refinements, and a vehicle detail page with the lead form. Page and scenario tests run
// against it instead of the live site.
package carsite

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/KCumlee/Job-assignments/internal/browser"
	"github.com/KCumlee/Job-assignments/internal/browser/fake"
	"github.com/KCumlee/Job-assignments/internal/config"
)

// Trims offered by the results page refinement list.
var Trims = []string{"EX-L", "Elite", "Sport", "TrailSport", "Touring 8-Passenger", "Black Edition"}

// Site is a scripted copy of the target site bound to one fake driver.
type Site struct {
	Driver *fake.Driver
	cfg    config.SiteConfig

	// Listings is the number of listing rows the results page renders.
	Listings int
	// DetailTitle is the document title of the detail page.
	DetailTitle string
	// RenderLag is how many lookups of the first breadcrumb return nothing after the
	// results page loads, simulating client-side rendering.
	RenderLag int
	// StaleRefinements makes refinement clicks update the search without re-rendering the
	// breadcrumbs. Only a reload shows the refined set.
	StaleRefinements bool

	form   map[string]*fake.Node
	labels []string
	shown  int

	// Selected is the listing position clicked last, or -1.
	Selected int
}

// Option configures a Site.
type Option func(*Site)

func WithListings(n int) Option {
	return func(s *Site) { s.Listings = n }
}

func WithRenderLag(lookups int) Option {
	return func(s *Site) { s.RenderLag = lookups }
}

func WithStaleRefinements() Option {
	return func(s *Site) { s.StaleRefinements = true }
}

func WithDetailTitle(title string) Option {
	return func(s *Site) { s.DetailTitle = title }
}

// New routes the site's home, results and detail addresses on a new fake driver.
func New(cfg config.SiteConfig, opts ...Option) *Site {
	s := &Site{
		Driver:      fake.New(),
		cfg:         cfg,
		Listings:    5,
		DetailTitle: "New 2025 Honda Pilot Touring 8-Passenger For Sale in Arlington Heights, IL | Cars.com",
		form:        make(map[string]*fake.Node),
		Selected:    -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Driver.Route(cfg.HomeURL, s.loadHome)
	s.Driver.Route(cfg.ResultsURL, s.loadResults)
	s.Driver.Route(cfg.DetailURL, s.loadDetail)
	return s
}

// Form returns the search form node for the named filter as last rendered.
func (s *Site) Form(name string) *fake.Node {
	return s.form[name]
}

// Labels returns the breadcrumbs the site would show for the current search.
func (s *Site) Labels() []string {
	return append([]string(nil), s.labels...)
}

// Node returns the first node currently matching q, or nil.
func (s *Site) Node(q browser.Query) *fake.Node {
	nodes := s.Driver.Nodes(q)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

func (s *Site) loadHome(d *fake.Driver) {
	d.SetTitle("New & Used Cars for Sale | Cars.com")
	for name, spec := range s.cfg.Filters {
		n := &fake.Node{Attrs: map[string]string{}}
		if spec.Kind == config.FilterSelect {
			for _, code := range spec.Values {
				n.Options = append(n.Options, code)
			}
			sort.Strings(n.Options)
		}
		s.form[name] = n
		d.Set(spec.Query, n)
	}
	d.Set(s.cfg.Submit, &fake.Node{
		Attrs:   map[string]string{"type": "submit", "value": "Search"},
		OnClick: s.submit,
	})
}

// submit derives the breadcrumbs from the form and routes to the results page the way
// the site does after a quick search.
func (s *Site) submit(d *fake.Driver) {
	s.labels = s.labels[:0]
	if v := s.formValue(config.FilterSelect, "max_price"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.labels = append(s.labels, "Maximum Price: $"+groupThousands(n))
		}
	}
	for _, name := range []string{"make", "model", "stock_type"} {
		if v := s.formValue(config.FilterSelect, name); v != "" {
			s.labels = append(s.labels, displayName(v))
		}
	}
	d.Load(s.cfg.ResultsURL)
}

// formValue maps the code selected in a form control back to its catalog value.
func (s *Site) formValue(kind config.FilterKind, name string) string {
	n, spec := s.form[name], s.cfg.Filters[name]
	if n == nil || spec.Kind != kind {
		return ""
	}
	for value, code := range spec.Values {
		if code == n.Value {
			return value
		}
	}
	return ""
}

func (s *Site) loadResults(d *fake.Driver) {
	d.SetTitle("Used Honda Pilot for Sale | Cars.com")
	s.shown = 0

	first := s.cfg.Results.Breadcrumb.Format(1)
	pending := s.RenderLag
	if pending > 0 {
		d.OnFind(first, func(d *fake.Driver, call int) error {
			if pending > 0 {
				pending--
				if pending == 0 {
					s.renderBreadcrumbs(d)
				}
			}
			return nil
		})
	} else {
		s.renderBreadcrumbs(d)
	}

	d.Set(s.cfg.Results.NewCars, &fake.Node{Text: "New", OnClick: func(d *fake.Driver) {
		s.replaceLabel("Used", "New")
		s.refined(d)
	}})
	for _, trim := range Trims {
		trim := trim
		q := s.cfg.Results.Trim.Format(browser.XPathLiteral(trim))
		d.Set(q, &fake.Node{Text: trim, OnClick: func(d *fake.Driver) {
			if !contains(s.labels, trim) {
				s.labels = append(s.labels, trim)
			}
			s.refined(d)
		}})
	}

	rows := make([]*fake.Node, 0, s.Listings)
	for i := 0; i < s.Listings; i++ {
		i := i
		n := &fake.Node{
			Attrs: map[string]string{"data-position": strconv.Itoa(i)},
			OnClick: func(d *fake.Driver) {
				s.Selected = i
				d.Load(s.cfg.DetailURL)
			},
		}
		rows = append(rows, n)
		d.Set(s.cfg.Results.Listing.Format(i), n)
	}
	if len(rows) > 0 {
		d.Set(s.cfg.Results.Listings, rows...)
	}
}

func (s *Site) refined(d *fake.Driver) {
	if s.StaleRefinements {
		return
	}
	s.renderBreadcrumbs(d)
}

// renderBreadcrumbs replaces every breadcrumb node, as the site's client-side renderer does.
func (s *Site) renderBreadcrumbs(d *fake.Driver) {
	for i, label := range s.labels {
		d.Set(s.cfg.Results.Breadcrumb.Format(i+1), &fake.Node{Text: label})
	}
	for i := len(s.labels); i < s.shown; i++ {
		d.Remove(s.cfg.Results.Breadcrumb.Format(i + 1))
	}
	s.shown = len(s.labels)
}

func (s *Site) replaceLabel(from, to string) {
	for i, l := range s.labels {
		if l == from {
			s.labels[i] = to
			return
		}
	}
	s.labels = append(s.labels, to)
}

func (s *Site) loadDetail(d *fake.Driver) {
	d.SetTitle(s.DetailTitle)
	sel := s.cfg.Detail
	d.Set(sel.CheckAvailability, &fake.Node{Text: "Check availability"})
	d.Set(sel.FirstName, &fake.Node{Attrs: map[string]string{"name": "first_name"}})
	d.Set(sel.LastName, &fake.Node{Attrs: map[string]string{"name": "last_name"}})
	d.Set(sel.Email, &fake.Node{Attrs: map[string]string{"name": "email"}})
	d.Set(sel.PaymentCalculator, &fake.Node{Text: "Payment calculator"})
}

// displayName renders a catalog value the way the site labels it ("cr-v" -> "CR-V").
func displayName(value string) string {
	parts := strings.Split(value, "-")
	for i, p := range parts {
		if len(p) <= 2 {
			parts[i] = strings.ToUpper(p)
		} else {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, "-")
}

func groupThousands(n int) string {
	s := strconv.Itoa(n)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// String summarizes the simulated search state for test failure messages.
func (s *Site) String() string {
	return fmt.Sprintf("carsite{labels=%q selected=%d}", s.labels, s.Selected)
}
