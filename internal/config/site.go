// File: internal/config/site.go
// Site catalog: page addresses, element queries and the per-filter value tables.
// The defaults ship embedded as site.yaml and can be overridden leaf by leaf from
// the user's config file or the environment.
package config

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KCumlee/Job-assignments/internal/browser"
)

//go:embed site.yaml
var siteYAML []byte

// FilterKind says how a filter control accepts its value.
type FilterKind string

const (
	// FilterSelect picks an <option> by code looked up in the filter's value table.
	FilterSelect FilterKind = "select"
	// FilterInput types free text.
	FilterInput FilterKind = "input"
)

// FilterSpec describes one search form control.
type FilterSpec struct {
	Kind  FilterKind    `mapstructure:"kind" yaml:"kind"`
	Query browser.Query `mapstructure:"query" yaml:"query"`
	// Values maps the human-meaningful value to the code the control accepts.
	Values map[string]string `mapstructure:"values" yaml:"values,omitempty"`
}

// Code resolves a human-meaningful value to the control's code. Lookup ignores case.
func (f FilterSpec) Code(value string) (string, bool) {
	code, ok := f.Values[strings.ToLower(strings.TrimSpace(value))]
	return code, ok
}

// ResultsSelectors are the search results page queries. Breadcrumb and Listing are
// templates taking an integer position; Trim takes an XPath string literal.
type ResultsSelectors struct {
	Breadcrumb browser.Query `mapstructure:"breadcrumb" yaml:"breadcrumb"`
	NewCars    browser.Query `mapstructure:"new_cars" yaml:"new_cars"`
	Trim       browser.Query `mapstructure:"trim" yaml:"trim"`
	Listing    browser.Query `mapstructure:"listing" yaml:"listing"`
	// Listings matches every rendered listing row.
	Listings browser.Query `mapstructure:"listings" yaml:"listings"`
}

// DetailSelectors are the vehicle detail page queries.
type DetailSelectors struct {
	CheckAvailability browser.Query `mapstructure:"check_availability" yaml:"check_availability"`
	FirstName         browser.Query `mapstructure:"first_name" yaml:"first_name"`
	LastName          browser.Query `mapstructure:"last_name" yaml:"last_name"`
	Email             browser.Query `mapstructure:"email" yaml:"email"`
	PaymentCalculator browser.Query `mapstructure:"payment_calculator" yaml:"payment_calculator"`
}

// SiteConfig is the catalog of everything page objects know about the target site.
type SiteConfig struct {
	HomeURL string `mapstructure:"home_url" yaml:"home_url"`
	// ResultsURL and DetailURL are the canonical addresses of a saved search and of one
	// listing. The workflow reaches both pages by clicking; the addresses let those pages
	// be opened directly.
	ResultsURL string                `mapstructure:"results_url" yaml:"results_url"`
	DetailURL  string                `mapstructure:"detail_url" yaml:"detail_url"`
	Filters    map[string]FilterSpec `mapstructure:"filters" yaml:"filters"`
	Submit     browser.Query         `mapstructure:"submit" yaml:"submit"`
	Results    ResultsSelectors      `mapstructure:"results" yaml:"results"`
	Detail     DetailSelectors       `mapstructure:"detail" yaml:"detail"`
}

// Filter looks up a filter by name, ignoring case.
func (s SiteConfig) Filter(name string) (FilterSpec, bool) {
	f, ok := s.Filters[strings.ToLower(strings.TrimSpace(name))]
	return f, ok
}

// Validate checks that every query the pages depend on is present and well formed.
func (s *SiteConfig) Validate() error {
	if s.HomeURL == "" {
		return fmt.Errorf("home_url is required")
	}
	if s.ResultsURL == "" || s.DetailURL == "" {
		return fmt.Errorf("results_url and detail_url are required")
	}
	if len(s.Filters) == 0 {
		return fmt.Errorf("at least one filter is required")
	}
	for name, f := range s.Filters {
		if err := checkQuery("filters."+name+".query", f.Query); err != nil {
			return err
		}
		switch f.Kind {
		case FilterSelect:
			if len(f.Values) == 0 {
				return fmt.Errorf("filters.%s: select filter needs a value table", name)
			}
		case FilterInput:
		default:
			return fmt.Errorf("filters.%s: unknown kind %q", name, f.Kind)
		}
	}

	queries := map[string]browser.Query{
		"submit":                    s.Submit,
		"results.breadcrumb":        s.Results.Breadcrumb,
		"results.new_cars":          s.Results.NewCars,
		"results.trim":              s.Results.Trim,
		"results.listing":           s.Results.Listing,
		"results.listings":          s.Results.Listings,
		"detail.check_availability": s.Detail.CheckAvailability,
		"detail.first_name":         s.Detail.FirstName,
		"detail.last_name":          s.Detail.LastName,
		"detail.email":              s.Detail.Email,
		"detail.payment_calculator": s.Detail.PaymentCalculator,
	}
	for key, q := range queries {
		if err := checkQuery(key, q); err != nil {
			return err
		}
	}
	return nil
}

func checkQuery(key string, q browser.Query) error {
	if q.Selector == "" {
		return fmt.Errorf("%s: selector is required", key)
	}
	if !q.By.Valid() {
		return fmt.Errorf("%s: unsupported selection strategy %q", key, q.By)
	}
	return nil
}

// setSiteDefaults installs the embedded catalog as viper defaults. Defaults are set per
// top-level key so a config file can override any single selector or code.
func setSiteDefaults(v *viper.Viper) {
	var raw map[string]any
	if err := yaml.Unmarshal(siteYAML, &raw); err != nil {
		// The catalog is compiled in; failing here is a build defect.
		panic(fmt.Sprintf("failed to parse embedded site catalog: %v", err))
	}
	for key, value := range raw {
		v.SetDefault(key, value)
	}
}

// MarshalSite renders the resolved site catalog as YAML.
func MarshalSite(s SiteConfig) ([]byte, error) {
	out, err := yaml.Marshal(map[string]SiteConfig{"site": s})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal site catalog: %w", err)
	}
	return out, nil
}
