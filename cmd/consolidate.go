package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/modelfusion/internal/adapters/mq/queue"
	service "github.com/okian/modelfusion/internal/app"
	"github.com/okian/modelfusion/pkg/logger"
)

func newConsolidateCommand(c *cli) *cobra.Command {
	var snapshot string

	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Run one consolidation pass, write the snapshot and print the status",
		Args:  cobra.NoArgs,
		Example: `  modelfusion consolidate
  modelfusion consolidate --snapshot /tmp/enhanced_models.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if snapshot != "" {
				c.cfg.SnapshotPath = snapshot
			}

			svc := buildService(ctx, c.cfg, c.log,
				service.WithSchedule(""),
				service.WithWarmStart(false),
				service.WithConsolidateOnStart(false),
			)
			if err := svc.Start(ctx); err != nil {
				return err
			}
			defer func() {
				if err := svc.Stop(context.WithoutCancel(ctx)); err != nil {
					c.log.Warn(ctx, "service stop failed", logger.Error(err))
				}
			}()

			if err := svc.RunPass(ctx, queue.Trigger{Reason: queue.ReasonCommand, RequestedAt: time.Now()}); err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(svc.GetStatus(ctx))
		},
	}
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "snapshot file to write (overrides snapshot_path)")
	return cmd
}
