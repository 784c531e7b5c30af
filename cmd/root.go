package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/okian/modelfusion/internal/config"
	"github.com/okian/modelfusion/pkg/logger"
)

type rootFlags struct {
	configFile string
	logLevel   string
	logFormat  string
}

// cli carries what PersistentPreRunE prepared for the subcommands.
type cli struct {
	flags rootFlags
	cfg   *config.Config
	log   logger.Logger
}

func newRootCommand() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "modelfusion",
		Short: "Consolidated per-category scores for language models",
		Long: `modelfusion merges a static model catalog, scraped benchmark snapshots
and a live analytics feed into one scored record per model, and serves
per-category rankings over HTTP.`,
		PersistentPreRunE: c.setup,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	root.PersistentFlags().StringVar(&c.flags.configFile, "config", "", "YAML config file (overrides $"+config.EnvConfigFile+")")
	root.PersistentFlags().StringVar(&c.flags.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	root.PersistentFlags().StringVar(&c.flags.logFormat, "log-format", "", "log format: text or json (overrides config)")

	root.AddCommand(
		newServeCommand(c),
		newConsolidateCommand(c),
		newProbeCommand(c),
	)
	return root
}

// setup loads configuration and initializes the global logger. Logs go to
// stderr so command output on stdout stays machine readable.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if c.flags.configFile != "" {
		if err := os.Setenv(config.EnvConfigFile, c.flags.configFile); err != nil {
			return eris.Wrap(err, "set config path")
		}
	}

	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return err
	}
	if c.flags.logLevel != "" {
		cfg.LogLevel = c.flags.logLevel
	}
	if c.flags.logFormat != "" {
		cfg.LogFormat = c.flags.logFormat
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithWriter(cmd.ErrOrStderr())); err != nil {
		return eris.Wrap(err, "init logging")
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(cmd.Context(), "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	c.cfg = cfg
	c.log = log
	return nil
}
