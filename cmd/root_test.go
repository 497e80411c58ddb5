// File: cmd/root_test.go
package cmd

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KCumlee/Job-assignments/internal/config"
)

// executeWithProbe runs the root command with an extra subcommand that captures the
// loaded configuration.
func executeWithProbe(t *testing.T, args ...string) (config.Interface, error) {
	t.Helper()
	captureLogs(t)

	var got config.Interface
	root := NewRootCommand()
	root.AddCommand(&cobra.Command{
		Use: "probe",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFrom(cmd)
			got = cfg
			return err
		},
	})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"probe"}, args...))
	return got, root.ExecuteContext(context.Background())
}

func TestRootCmd_VersionFlag(t *testing.T) {
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--version"})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Equal(t, Version+"\n", out.String())
}

func TestVersionCmd(t *testing.T) {
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version", "--config", "/does/not/exist.yaml"})

	require.NoError(t, root.ExecuteContext(context.Background()), "version must not load config")
	assert.Equal(t, "harness "+Version+"\n", out.String())
}

func TestRootCmd_Config(t *testing.T) {
	t.Run("defaults without a config file", func(t *testing.T) {
		t.Chdir(t.TempDir())
		cfg, err := executeWithProbe(t)
		require.NoError(t, err)
		assert.Equal(t, 10*time.Second, cfg.Locator().Timeout)
		assert.Equal(t, "Touring 8-Passenger", cfg.Scenario().TrimLabel)
		assert.Equal(t, "https://www.cars.com/", cfg.Site().HomeURL)
	})

	t.Run("file and environment override defaults", func(t *testing.T) {
		path := createTempConfig(t, `
locator:
  timeout: 3s
scenario:
  trim_label: EX-L
browser:
  headless: true
`)
		t.Setenv("HARNESS_SCENARIO_LISTING_INDEX", "4")

		cfg, err := executeWithProbe(t, "--config", path)
		require.NoError(t, err)
		assert.Equal(t, 3*time.Second, cfg.Locator().Timeout)
		assert.Equal(t, 500*time.Millisecond, cfg.Locator().PollInterval, "untouched keys keep defaults")
		assert.Equal(t, "EX-L", cfg.Scenario().TrimLabel)
		assert.True(t, cfg.Browser().Headless)
		assert.Equal(t, 4, cfg.Scenario().ListingIndex)
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		path := createTempConfig(t, `
locator:
  timeout: 1s
  poll_interval: 2s
`)
		_, err := executeWithProbe(t, "--config", path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "locator configuration invalid")
	})

	t.Run("explicit file must exist", func(t *testing.T) {
		_, err := executeWithProbe(t, "--config", "/does/not/exist.yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error reading config file")
	})
}

func TestConfigFromWithoutPreRun(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	_, err := configFrom(cmd)
	assert.EqualError(t, err, "configuration not loaded")
}

func TestCatalogCmd(t *testing.T) {
	t.Chdir(t.TempDir())
	captureLogs(t)

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"catalog"})
	require.NoError(t, root.ExecuteContext(context.Background()))

	got := out.String()
	assert.Contains(t, got, "site:")
	assert.Contains(t, got, "results_url:")
	assert.Contains(t, got, "srp-listing-rows-container")
	assert.Contains(t, got, "stock_type:")
}
