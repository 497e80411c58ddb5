// internal/pages/search.go
package pages

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/KCumlee/Job-assignments/internal/browser"
	"github.com/KCumlee/Job-assignments/internal/config"
)

// Filter names in the site catalog.
const (
	FilterStockType = "stock_type"
	FilterMake      = "make"
	FilterModel     = "model"
	FilterMaxPrice  = "max_price"
	FilterDistance  = "distance"
	FilterZip       = "zip"
)

var (
	ErrUnknownFilter      = errors.New("unknown filter")
	ErrUnknownFilterValue = errors.New("unknown filter value")
	// ErrAlreadySubmitted is returned by filter operations after Submit, when the search
	// form is no longer on the page.
	ErrAlreadySubmitted = errors.New("search already submitted")
)

// SearchPage is the site's entry page with the quick search form.
type SearchPage struct {
	base
	filters *FilterController
}

var _ Page = (*SearchPage)(nil)

// NewSearchPage binds the search entry page to env's session.
func NewSearchPage(env Env) *SearchPage {
	p := &SearchPage{base: newBase(env, env.Site.HomeURL, "search")}
	p.filters = &FilterController{
		page:    &p.base,
		site:    env.Site,
		logger:  p.logger.Named("filters"),
		applied: make(map[string]string),
	}
	return p
}

// Filters returns the page's filter controller. Every call returns the same controller.
func (p *SearchPage) Filters() *FilterController {
	return p.filters
}

// FilterController stages values into the search form controls and submits the search.
// Filters can be applied in any order and reapplied; Submit must come last.
type FilterController struct {
	page   *base
	site   config.SiteConfig
	logger *zap.Logger

	applied   map[string]string
	submitted bool
}

// Apply sets the control for the named filter. Select filters take the human-meaningful
// value ("used", "honda", "50000") and translate it through the catalog's value table;
// input filters take free text. Unknown names and values fail before the page is touched.
func (f *FilterController) Apply(ctx context.Context, name, value string) error {
	if f.submitted {
		return fmt.Errorf("cannot apply %s=%q: %w", name, value, ErrAlreadySubmitted)
	}
	spec, ok := f.site.Filter(name)
	if !ok {
		return fmt.Errorf("%w: %q (known: %v)", ErrUnknownFilter, name, f.names())
	}

	var err error
	switch spec.Kind {
	case config.FilterSelect:
		code, ok := spec.Code(value)
		if !ok {
			return fmt.Errorf("%w: %q for filter %s", ErrUnknownFilterValue, value, name)
		}
		err = f.page.withElement(ctx, spec.Query, func(el browser.Element) error {
			return el.SelectByValue(ctx, code)
		})
		if err == nil {
			f.logger.Debug("Filter selected.", zap.String("filter", name), zap.String("value", value), zap.String("code", code))
		}
	case config.FilterInput:
		err = f.page.typeInto(ctx, spec.Query, value)
		if err == nil {
			f.logger.Debug("Filter entered.", zap.String("filter", name), zap.String("value", value))
		}
	default:
		return fmt.Errorf("filter %s has unsupported kind %q", name, spec.Kind)
	}
	if err != nil {
		return fmt.Errorf("failed to apply filter %s=%q: %w", name, value, err)
	}
	f.applied[strings.ToLower(strings.TrimSpace(name))] = value
	return nil
}

func (f *FilterController) names() []string {
	names := make([]string, 0, len(f.site.Filters))
	for name := range f.site.Filters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StockType selects new, used or certified stock, e.g. "used".
func (f *FilterController) StockType(ctx context.Context, value string) error {
	return f.Apply(ctx, FilterStockType, value)
}

// Make selects the manufacturer by name, e.g. "honda".
func (f *FilterController) Make(ctx context.Context, value string) error {
	return f.Apply(ctx, FilterMake, value)
}

// Model selects the model by name, e.g. "pilot".
func (f *FilterController) Model(ctx context.Context, value string) error {
	return f.Apply(ctx, FilterModel, value)
}

// MaxPrice selects the price ceiling in whole dollars, e.g. "50000".
func (f *FilterController) MaxPrice(ctx context.Context, value string) error {
	return f.Apply(ctx, FilterMaxPrice, value)
}

// Distance sets the search radius in miles.
func (f *FilterController) Distance(ctx context.Context, value string) error {
	return f.Apply(ctx, FilterDistance, value)
}

// Zip sets the postal code the radius is measured from.
func (f *FilterController) Zip(ctx context.Context, zip string) error {
	return f.Apply(ctx, FilterZip, zip)
}

// Applied returns the filters staged so far, keyed by catalog name.
func (f *FilterController) Applied() map[string]string {
	out := make(map[string]string, len(f.applied))
	for k, v := range f.applied {
		out[k] = v
	}
	return out
}

// Submit runs the search. The session moves on to the results page; the controller
// rejects further operations.
func (f *FilterController) Submit(ctx context.Context) error {
	if f.submitted {
		return ErrAlreadySubmitted
	}
	if err := f.page.click(ctx, f.site.Submit); err != nil {
		return fmt.Errorf("failed to submit search: %w", err)
	}
	f.submitted = true
	f.logger.Info("Search submitted.", zap.Any("filters", f.applied))
	return nil
}
