// File: cmd/helpers_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/KCumlee/Job-assignments/internal/browser"
	"github.com/KCumlee/Job-assignments/internal/config"
	"github.com/KCumlee/Job-assignments/internal/observability"
	"github.com/KCumlee/Job-assignments/internal/testing/carsite"
)

// createTempConfig writes content to a config file in a fresh temp dir and returns its path.
func createTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// syncBuffer is a goroutine-safe log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// captureLogs routes the global logger into a buffer for the rest of the test.
func captureLogs(t *testing.T) *syncBuffer {
	t.Helper()
	buf := &syncBuffer{}
	observability.ResetForTest()
	observability.Initialize(config.LoggerConfig{Level: "debug", Format: "console"}, zapcore.AddSync(buf))
	t.Cleanup(observability.ResetForTest)
	return buf
}

// newTestConfig is the default configuration with locator waits short enough for the
// in-memory site.
func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.LocatorCfg = config.LocatorConfig{
		Timeout:      200 * time.Millisecond,
		PollInterval: 5 * time.Millisecond,
		ProbeTimeout: 30 * time.Millisecond,
		MaxProbe:     10,
	}
	cfg.SetScenarioScreenshotPath(filepath.Join(t.TempDir(), "payment_calculator.png"))
	return cfg
}

// siteFactory serves every run from the same fake site.
func siteFactory(site *carsite.Site) driverFactory {
	return func(context.Context, config.BrowserConfig, *zap.Logger) (browser.Driver, error) {
		return site.Driver, nil
	}
}
