// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/KCumlee/Job-assignments/internal/browser"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, 10*time.Second, cfg.Locator().Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Locator().PollInterval)
	assert.Equal(t, 2*time.Second, cfg.Locator().ProbeTimeout)
	assert.Equal(t, 50, cfg.Locator().MaxProbe)
	assert.Equal(t, 60*time.Second, cfg.Browser().NavigationTimeout)
	assert.Equal(t, "https://www.cars.com/", cfg.Site().HomeURL)
	assert.Contains(t, cfg.Site().ResultsURL, "searchresults.action")
	assert.Contains(t, cfg.Site().DetailURL, "/vehicledetail/detail/")

	require.Len(t, cfg.Scenario().Filters, 6)
	assert.Equal(t, FilterStep{Name: "stock_type", Value: "used"}, cfg.Scenario().Filters[0])
	assert.Equal(t, FilterStep{Name: "zip", Value: "60008"}, cfg.Scenario().Filters[5])
	assert.ElementsMatch(t, []string{"Maximum Price: $50,000", "Honda", "Pilot", "Used"}, cfg.Scenario().ExpectedLabels)
	assert.Equal(t, "Touring 8-Passenger", cfg.Scenario().TrimLabel)
	assert.Equal(t, "carowner@yahoo.com", cfg.Scenario().Contact.Email)

	require.NoError(t, cfg.Validate(), "defaults must be valid on their own")
}

func TestEmbeddedSiteCatalog(t *testing.T) {
	site := NewDefaultConfig().Site()

	t.Run("filter value tables", func(t *testing.T) {
		tests := []struct {
			filter, value, code string
		}{
			{"stock_type", "used", "28881"},
			{"stock_type", "New", "28880"},
			{"make", "Honda", "20017"},
			{"model", "PILOT", "21729"},
			{"max_price", "50000", "50000"},
			{"distance", "100", "100"},
		}
		for _, tt := range tests {
			t.Run(tt.filter+"="+tt.value, func(t *testing.T) {
				f, ok := site.Filter(tt.filter)
				require.True(t, ok)
				assert.Equal(t, FilterSelect, f.Kind)
				code, ok := f.Code(tt.value)
				require.True(t, ok)
				assert.Equal(t, tt.code, code)
			})
		}
	})

	t.Run("zip is free text", func(t *testing.T) {
		f, ok := site.Filter("ZIP")
		require.True(t, ok)
		assert.Equal(t, FilterInput, f.Kind)
		assert.Empty(t, f.Values)
	})

	t.Run("unknown values are not guessed", func(t *testing.T) {
		f, _ := site.Filter("make")
		_, ok := f.Code("delorean")
		assert.False(t, ok)
		_, ok = site.Filter("color")
		assert.False(t, ok)
	})

	t.Run("templates are parameterizable", func(t *testing.T) {
		q := site.Results.Breadcrumb.Format(3)
		assert.Equal(t, browser.ByXPath, q.By)
		assert.Contains(t, q.Selector, "li[3]/label")
		assert.Contains(t, site.Results.Listing.Format(2).Selector, "@data-position='2'")
	})
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	t.Run("Locator Validation", func(t *testing.T) {
		valid := LocatorConfig{Timeout: time.Second, PollInterval: 100 * time.Millisecond, ProbeTimeout: time.Second, MaxProbe: 5}
		assert.NoError(t, valid.Validate())

		tests := []struct {
			name   string
			mutate func(*LocatorConfig)
			msg    string
		}{
			{"zero timeout", func(l *LocatorConfig) { l.Timeout = 0 }, "timeout must be a positive duration"},
			{"interval not shorter than timeout", func(l *LocatorConfig) { l.PollInterval = l.Timeout }, "poll_interval must be positive and shorter than timeout"},
			{"negative probe timeout", func(l *LocatorConfig) { l.ProbeTimeout = -time.Second }, "probe_timeout must be a positive duration"},
			{"zero probe cap", func(l *LocatorConfig) { l.MaxProbe = 0 }, "max_probe must be a positive integer"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				l := valid
				tt.mutate(&l)
				err := l.Validate()
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.msg)
			})
		}
	})

	t.Run("Browser Validation", func(t *testing.T) {
		b := NewDefaultConfig().Browser()
		assert.NoError(t, b.Validate())

		b.ActionRate = -1
		err := b.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "action_rate must not be negative")
	})

	t.Run("Site Validation", func(t *testing.T) {
		cfg := NewDefaultConfig()

		missing := *cfg
		missing.SiteCfg.Results.Breadcrumb = browser.Query{}
		err := missing.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "results.breadcrumb: selector is required")

		noDetail := NewDefaultConfig()
		noDetail.SiteCfg.DetailURL = ""
		err = noDetail.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "results_url and detail_url are required")

		badStrategy := NewDefaultConfig()
		badStrategy.SiteCfg.Submit.By = "link-text"
		err = badStrategy.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported selection strategy")

		emptyTable := NewDefaultConfig()
		emptyTable.SiteCfg.Filters = map[string]FilterSpec{
			"make": {Kind: FilterSelect, Query: browser.XPath("//select")},
		}
		emptyTable.ScenarioCfg.Filters = nil
		err = emptyTable.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "select filter needs a value table")
	})

	t.Run("Scenario references unknown filter", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.ScenarioCfg.Filters = append(cfg.ScenarioCfg.Filters, FilterStep{Name: "color", Value: "red"})
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown filter "color"`)
	})
}

// -- Factory Function Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Config file overrides single catalog leaves", func(t *testing.T) {
		yamlBytes := []byte(`
locator:
  timeout: 3s
site:
  filters:
    make:
      values:
        honda: "99999"
`)
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlBytes)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.Equal(t, 3*time.Second, cfg.Locator().Timeout)
		makeFilter, ok := cfg.Site().Filter("make")
		require.True(t, ok)
		code, _ := makeFilter.Code("honda")
		assert.Equal(t, "99999", code)
		// Siblings of the overridden leaf keep their defaults.
		code, _ = makeFilter.Code("toyota")
		assert.Equal(t, "20088", code)
		assert.NotEmpty(t, makeFilter.Query.Selector)
	})

	t.Run("Validation Failure", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("locator.max_probe", 0)

		cfg, err := NewConfigFromViper(v)
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid configuration")
		assert.Contains(t, err.Error(), "max_probe must be a positive integer")
	})

	t.Run("Environment Variable Binding", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		t.Setenv("HARNESS_LOCATOR_TIMEOUT", "15s")
		t.Setenv("HARNESS_BROWSER_HEADLESS", "true")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, 15*time.Second, cfg.Locator().Timeout)
		assert.True(t, cfg.Browser().Headless)
	})
}

func TestSetters(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.SetBrowserHeadless(true)
	cfg.SetBrowserExecPath("/opt/chrome/chrome")
	cfg.SetLocatorTimeout(4 * time.Second)
	cfg.SetScenarioScreenshotPath("/tmp/shot.png")

	assert.True(t, cfg.Browser().Headless)
	assert.Equal(t, "/opt/chrome/chrome", cfg.Browser().ExecPath)
	assert.Equal(t, 4*time.Second, cfg.Locator().Timeout)
	assert.Equal(t, "/tmp/shot.png", cfg.Scenario().ScreenshotPath)
}

func TestMarshalSite(t *testing.T) {
	site := NewDefaultConfig().Site()
	out, err := MarshalSite(site)
	require.NoError(t, err)

	var decoded map[string]SiteConfig
	require.NoError(t, yaml.Unmarshal(out, &decoded))
	assert.Equal(t, site.HomeURL, decoded["site"].HomeURL)
	assert.Equal(t, site.Submit, decoded["site"].Submit)
}
