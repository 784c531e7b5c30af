package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/modelfusion/internal/probe"
)

func newProbeCommand(c *cli) *cobra.Command {
	var cfg probe.Config

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Trigger a pass on a running server and verify what it serves",
		Args:  cobra.NoArgs,
		Example: `  modelfusion probe --url http://localhost:9080
  modelfusion probe --categories coding,math --limit 25 --skip-trigger`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.Logger = c.log.Named("probe")
			stats, err := probe.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"pass %s: %d models, %d categories, %d entries, %d lookups verified, %d warnings in %s\n",
				stats.PassID, stats.Models, stats.CategoriesChecked, stats.EntriesChecked,
				stats.ModelsChecked, len(stats.Warnings), stats.Duration.Round(time.Millisecond))
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "base URL of the server")
	f.StringSliceVar(&cfg.Categories, "categories", nil, "categories to verify (default all)")
	f.IntVar(&cfg.Limit, "limit", probe.DefaultLimit, "ranking page size")
	f.IntVar(&cfg.Workers, "workers", 4, "concurrent ranking requests")
	f.DurationVar(&cfg.Timeout, "timeout", probe.DefaultTimeout, "per-request timeout")
	f.DurationVar(&cfg.Wait, "wait", probe.DefaultWait, "how long to wait for the triggered pass")
	f.BoolVar(&cfg.SkipTrigger, "skip-trigger", false, "verify the published pass without triggering")
	return cmd
}
