// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Locator() LocatorConfig
	Scenario() ScenarioConfig
	Site() SiteConfig

	// Browser Setters
	SetBrowserHeadless(bool)
	SetBrowserExecPath(string)

	// Locator Setters
	SetLocatorTimeout(d time.Duration)

	// Scenario Setters
	SetScenarioScreenshotPath(string)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	BrowserCfg  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	LocatorCfg  LocatorConfig  `mapstructure:"locator" yaml:"locator"`
	ScenarioCfg ScenarioConfig `mapstructure:"scenario" yaml:"scenario"`
	SiteCfg     SiteConfig     `mapstructure:"site" yaml:"site"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig     { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig   { return c.BrowserCfg }
func (c *Config) Locator() LocatorConfig   { return c.LocatorCfg }
func (c *Config) Scenario() ScenarioConfig { return c.ScenarioCfg }
func (c *Config) Site() SiteConfig         { return c.SiteCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetBrowserHeadless(b bool)         { c.BrowserCfg.Headless = b }
func (c *Config) SetBrowserExecPath(p string)       { c.BrowserCfg.ExecPath = p }
func (c *Config) SetLocatorTimeout(d time.Duration) { c.LocatorCfg.Timeout = d }
func (c *Config) SetScenarioScreenshotPath(p string) {
	c.ScenarioCfg.ScreenshotPath = p
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the Chrome instance driven by the session.
type BrowserConfig struct {
	Headless bool `mapstructure:"headless" yaml:"headless"`
	// ExecPath overrides Chrome discovery. Empty means let chromedp find it.
	ExecPath     string   `mapstructure:"exec_path" yaml:"exec_path"`
	Args         []string `mapstructure:"args" yaml:"args"`
	WindowWidth  int      `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight int      `mapstructure:"window_height" yaml:"window_height"`
	Maximize     bool     `mapstructure:"maximize" yaml:"maximize"`
	// NavigationTimeout bounds a single Navigate or Reload.
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	// ActionRate caps browser actions per second. Zero disables pacing.
	ActionRate  float64 `mapstructure:"action_rate" yaml:"action_rate"`
	ActionBurst int     `mapstructure:"action_burst" yaml:"action_burst"`
}

// LocatorConfig tunes element polling.
type LocatorConfig struct {
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	// ProbeTimeout is the shorter wait used when absence is the expected answer,
	// such as finding the end of the breadcrumb list.
	ProbeTimeout time.Duration `mapstructure:"probe_timeout" yaml:"probe_timeout"`
	MaxProbe     int           `mapstructure:"max_probe" yaml:"max_probe"`
}

// FilterStep is one filter applied on the search page.
type FilterStep struct {
	Name  string `mapstructure:"name" yaml:"name"`
	Value string `mapstructure:"value" yaml:"value"`
}

// ContactConfig is the lead form input.
type ContactConfig struct {
	FirstName string `mapstructure:"first_name" yaml:"first_name"`
	LastName  string `mapstructure:"last_name" yaml:"last_name"`
	Email     string `mapstructure:"email" yaml:"email"`
}

// ScenarioConfig describes the end-to-end search run and its expectations.
type ScenarioConfig struct {
	Filters            []FilterStep  `mapstructure:"filters" yaml:"filters"`
	ExpectedLabels     []string      `mapstructure:"expected_labels" yaml:"expected_labels"`
	NewLabel           string        `mapstructure:"new_label" yaml:"new_label"`
	UsedLabel          string        `mapstructure:"used_label" yaml:"used_label"`
	TrimLabel          string        `mapstructure:"trim_label" yaml:"trim_label"`
	ListingIndex       int           `mapstructure:"listing_index" yaml:"listing_index"`
	TitleFragments     []string      `mapstructure:"title_fragments" yaml:"title_fragments"`
	Contact            ContactConfig `mapstructure:"contact" yaml:"contact"`
	ScreenshotPath     string        `mapstructure:"screenshot_path" yaml:"screenshot_path"`
	RefreshAfterRefine bool          `mapstructure:"refresh_after_refine" yaml:"refresh_after_refine"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "harness")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)
	v.SetDefault("browser.maximize", true)
	v.SetDefault("browser.navigation_timeout", "60s")
	v.SetDefault("browser.action_rate", 5.0)
	v.SetDefault("browser.action_burst", 3)

	// -- Locator --
	v.SetDefault("locator.timeout", "10s")
	v.SetDefault("locator.poll_interval", "500ms")
	v.SetDefault("locator.probe_timeout", "2s")
	v.SetDefault("locator.max_probe", 50)

	// -- Scenario --
	v.SetDefault("scenario.filters", []map[string]any{
		{"name": "stock_type", "value": "used"},
		{"name": "make", "value": "honda"},
		{"name": "model", "value": "pilot"},
		{"name": "max_price", "value": "50000"},
		{"name": "distance", "value": "100"},
		{"name": "zip", "value": "60008"},
	})
	v.SetDefault("scenario.expected_labels", []string{"Maximum Price: $50,000", "Honda", "Pilot", "Used"})
	v.SetDefault("scenario.new_label", "New")
	v.SetDefault("scenario.used_label", "Used")
	v.SetDefault("scenario.trim_label", "Touring 8-Passenger")
	v.SetDefault("scenario.listing_index", 2)
	v.SetDefault("scenario.title_fragments", []string{"Honda Pilot", "8-Passenger", "For Sale"})
	v.SetDefault("scenario.contact.first_name", "Car")
	v.SetDefault("scenario.contact.last_name", "Owner")
	v.SetDefault("scenario.contact.email", "carowner@yahoo.com")
	v.SetDefault("scenario.screenshot_path", "payment_calculator.png")
	v.SetDefault("scenario.refresh_after_refine", false)

	// -- Site --
	setSiteDefaults(v)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	v.SetEnvPrefix("HARNESS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.BrowserCfg.Validate(); err != nil {
		return fmt.Errorf("browser configuration invalid: %w", err)
	}
	if err := c.LocatorCfg.Validate(); err != nil {
		return fmt.Errorf("locator configuration invalid: %w", err)
	}
	if err := c.SiteCfg.Validate(); err != nil {
		return fmt.Errorf("site configuration invalid: %w", err)
	}
	for i, step := range c.ScenarioCfg.Filters {
		if _, ok := c.SiteCfg.Filter(step.Name); !ok {
			return fmt.Errorf("scenario.filters[%d]: unknown filter %q", i, step.Name)
		}
	}
	if c.ScenarioCfg.ListingIndex < 0 {
		return fmt.Errorf("scenario.listing_index must not be negative")
	}
	return nil
}

// Validate checks the BrowserConfig settings.
func (b *BrowserConfig) Validate() error {
	if b.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation_timeout must be a positive duration")
	}
	if b.ActionRate < 0 {
		return fmt.Errorf("action_rate must not be negative")
	}
	if b.WindowWidth < 0 || b.WindowHeight < 0 {
		return fmt.Errorf("window_width and window_height must not be negative")
	}
	return nil
}

// Validate checks the LocatorConfig settings.
func (l *LocatorConfig) Validate() error {
	if l.Timeout <= 0 {
		return fmt.Errorf("timeout must be a positive duration")
	}
	if l.PollInterval <= 0 || l.PollInterval >= l.Timeout {
		return fmt.Errorf("poll_interval must be positive and shorter than timeout")
	}
	if l.ProbeTimeout <= 0 {
		return fmt.Errorf("probe_timeout must be a positive duration")
	}
	if l.MaxProbe <= 0 {
		return fmt.Errorf("max_probe must be a positive integer")
	}
	return nil
}
