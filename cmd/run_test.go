// File: cmd/run_test.go
package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/KCumlee/Job-assignments/internal/browser"
	"github.com/KCumlee/Job-assignments/internal/config"
	"github.com/KCumlee/Job-assignments/internal/scenario"
	"github.com/KCumlee/Job-assignments/internal/testing/carsite"
)

func TestApplyRunFlagOverrides(t *testing.T) {
	t.Run("changed flags win", func(t *testing.T) {
		cfg := config.NewDefaultConfig()
		runCmd := newRunCmd(nil)
		require.NoError(t, runCmd.ParseFlags([]string{
			"--headless",
			"--exec-path", "/opt/chrome/chrome",
			"--locator-timeout", "30s",
			"-o", "/tmp/calc.png",
		}))

		require.NoError(t, applyRunFlagOverrides(runCmd, cfg))
		assert.True(t, cfg.Browser().Headless)
		assert.Equal(t, "/opt/chrome/chrome", cfg.Browser().ExecPath)
		assert.Equal(t, 30*time.Second, cfg.Locator().Timeout)
		assert.Equal(t, "/tmp/calc.png", cfg.Scenario().ScreenshotPath)
	})

	t.Run("unset flags leave config alone", func(t *testing.T) {
		cfg := config.NewDefaultConfig()
		cfg.SetBrowserHeadless(true)
		runCmd := newRunCmd(nil)
		require.NoError(t, runCmd.ParseFlags(nil))

		require.NoError(t, applyRunFlagOverrides(runCmd, cfg))
		assert.True(t, cfg.Browser().Headless)
		assert.Equal(t, 10*time.Second, cfg.Locator().Timeout)
		assert.Equal(t, "payment_calculator.png", cfg.Scenario().ScreenshotPath)
	})

	t.Run("timeout shorter than the poll interval", func(t *testing.T) {
		cfg := config.NewDefaultConfig()
		runCmd := newRunCmd(nil)
		require.NoError(t, runCmd.ParseFlags([]string{"--locator-timeout", "100ms"}))

		err := applyRunFlagOverrides(runCmd, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid --locator-timeout")
	})
}

func TestRunScenario(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()

	t.Run("pass", func(t *testing.T) {
		cfg := newTestConfig(t)
		site := carsite.New(cfg.Site())
		var out bytes.Buffer

		require.NoError(t, runScenario(ctx, cfg, zaptest.NewLogger(t), siteFactory(site), &out))
		assert.Contains(t, out.String(), "PASS run ")
		assert.Contains(t, out.String(), "10 checkpoints")
		assert.Contains(t, out.String(), "Screenshot: "+cfg.Scenario().ScreenshotPath)
		assert.FileExists(t, cfg.Scenario().ScreenshotPath)
		assert.True(t, site.Driver.Closed())
	})

	t.Run("failed checkpoint still closes the session", func(t *testing.T) {
		cfg := newTestConfig(t)
		site := carsite.New(cfg.Site(), carsite.WithDetailTitle("Used 2019 Acura MDX | Cars.com"))
		var out bytes.Buffer

		err := runScenario(ctx, cfg, zaptest.NewLogger(t), siteFactory(site), &out)
		require.ErrorIs(t, err, scenario.ErrAssertion)
		assert.Contains(t, err.Error(), "search workflow failed")
		assert.Contains(t, out.String(), "FAIL run ")
		assert.Contains(t, out.String(), "after 6 checkpoints")
		assert.True(t, site.Driver.Closed())
	})

	t.Run("canceled run is returned unwrapped", func(t *testing.T) {
		cfg := newTestConfig(t)
		site := carsite.New(cfg.Site())
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		var out bytes.Buffer

		err := runScenario(cctx, cfg, zaptest.NewLogger(t), siteFactory(site), &out)
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotContains(t, err.Error(), "search workflow failed")
		assert.Empty(t, out.String())
		assert.True(t, site.Driver.Closed(), "close runs on a detached context")
	})

	t.Run("browser fails to start", func(t *testing.T) {
		cfg := newTestConfig(t)
		boom := errors.New("chrome not found")
		factory := func(context.Context, config.BrowserConfig, *zap.Logger) (browser.Driver, error) {
			return nil, boom
		}
		var out bytes.Buffer

		err := runScenario(ctx, cfg, zaptest.NewLogger(t), factory, &out)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "failed to start browser session")
		assert.Empty(t, out.String())
	})
}

func TestRunCmd(t *testing.T) {
	logs := captureLogs(t)
	cfg := newTestConfig(t)
	site := carsite.New(cfg.Site())

	var gotBrowser config.BrowserConfig
	factory := func(ctx context.Context, bc config.BrowserConfig, logger *zap.Logger) (browser.Driver, error) {
		gotBrowser = bc
		return site.Driver, nil
	}

	runCmd := newRunCmd(factory)
	var out bytes.Buffer
	runCmd.SetOut(&out)
	runCmd.SetArgs([]string{"--headless"})
	runCmd.SetContext(context.WithValue(context.Background(), configKey, config.Interface(cfg)))

	require.NoError(t, runCmd.Execute())
	assert.True(t, gotBrowser.Headless, "flag override reaches the browser factory")
	assert.Contains(t, out.String(), "PASS run ")
	assert.Contains(t, logs.String(), "Search workflow passed.")
	assert.Contains(t, logs.String(), "run_id")
}
