package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KCumlee/Job-assignments/internal/config"
)

// newCatalogCmd creates the `catalog` command, which prints the site catalog after
// defaults, the config file and the environment have been merged.
func newCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Prints the resolved selectors and filter codes as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			out, err := config.MarshalSite(cfg.Site())
			if err != nil {
				return err
			}
			if _, err := cmd.OutOrStdout().Write(out); err != nil {
				return fmt.Errorf("failed to write catalog: %w", err)
			}
			return nil
		},
	}
}
