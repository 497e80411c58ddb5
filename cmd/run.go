package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KCumlee/Job-assignments/internal/browser"
	"github.com/KCumlee/Job-assignments/internal/browser/session"
	"github.com/KCumlee/Job-assignments/internal/config"
	"github.com/KCumlee/Job-assignments/internal/observability"
	"github.com/KCumlee/Job-assignments/internal/scenario"
)

// closeTimeout bounds browser shutdown after the workflow, including after Ctrl-C.
const closeTimeout = 15 * time.Second

// driverFactory opens the browser session a run drives.
type driverFactory func(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (browser.Driver, error)

func newSessionDriver(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (browser.Driver, error) {
	s, err := session.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// newRunCmd creates the `run` command.
func newRunCmd(factory driverFactory) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Runs the car search workflow against the live site",
		Long: `Launches Chrome, searches for the configured vehicle, refines the results,
opens a listing, fills in the lead form and saves a screenshot of the payment
calculator. The command fails at the first checkpoint whose page state does not
match the configured expectations.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			if err := applyRunFlagOverrides(cmd, cfg); err != nil {
				return err
			}
			return runScenario(cmd.Context(), cfg, observability.GetLogger(), factory, cmd.OutOrStdout())
		},
	}

	runCmd.Flags().Bool("headless", false, "Run Chrome without a window. (Overrides config/env)")
	runCmd.Flags().String("exec-path", "", "Path to the Chrome binary. (Overrides config/env)")
	runCmd.Flags().Duration("locator-timeout", 0, "How long to wait for each element. (Overrides config/env)")
	runCmd.Flags().StringP("screenshot", "o", "", "Where to save the payment calculator screenshot. (Overrides config/env)")
	return runCmd
}

// applyRunFlagOverrides copies explicitly set flags onto cfg.
func applyRunFlagOverrides(cmd *cobra.Command, cfg config.Interface) error {
	flags := cmd.Flags()
	if flags.Changed("headless") {
		headless, _ := flags.GetBool("headless")
		cfg.SetBrowserHeadless(headless)
	}
	if flags.Changed("exec-path") {
		path, _ := flags.GetString("exec-path")
		cfg.SetBrowserExecPath(path)
	}
	if flags.Changed("screenshot") {
		path, _ := flags.GetString("screenshot")
		cfg.SetScenarioScreenshotPath(path)
	}
	if flags.Changed("locator-timeout") {
		timeout, _ := flags.GetDuration("locator-timeout")
		cfg.SetLocatorTimeout(timeout)
		lc := cfg.Locator()
		if err := lc.Validate(); err != nil {
			return fmt.Errorf("invalid --locator-timeout: %w", err)
		}
	}
	return nil
}

// runScenario owns the browser session for one run. The session is closed on every exit
// path, with a fresh deadline when ctx has already been canceled.
func runScenario(ctx context.Context, cfg config.Interface, logger *zap.Logger, factory driverFactory, out io.Writer) error {
	logger, runID := observability.WithRunID(logger)
	logger.Info("Starting search workflow.",
		zap.String("site", cfg.Site().HomeURL),
		zap.Bool("headless", cfg.Browser().Headless),
		zap.Duration("locator_timeout", cfg.Locator().Timeout),
	)

	driver, err := factory(ctx, cfg.Browser(), logger)
	if err != nil {
		return fmt.Errorf("failed to start browser session: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(session.Detach(ctx), closeTimeout)
		defer cancel()
		if err := driver.Close(closeCtx); err != nil {
			logger.Warn("Failed to close browser session.", zap.Error(err))
		}
	}()

	res, err := scenario.New(driver, cfg, logger).Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		fmt.Fprintf(out, "FAIL run %s after %d checkpoints\n", runID, len(res.Checkpoints))
		return fmt.Errorf("search workflow failed: %w", err)
	}

	logger.Info("Search workflow passed.",
		zap.Duration("duration", res.Duration),
		zap.Strings("trim_labels", res.TrimLabels),
		zap.String("screenshot", res.ScreenshotPath),
	)
	fmt.Fprintf(out, "PASS run %s: %d checkpoints in %s\n", runID, len(res.Checkpoints), res.Duration.Round(time.Millisecond))
	if res.ScreenshotPath != "" {
		fmt.Fprintf(out, "Screenshot: %s\n", res.ScreenshotPath)
	}
	return nil
}
