package cli

import (
	"fmt"
	"log/slog"

	"github.com/me/schedlab/internal/config"
	"github.com/me/schedlab/internal/logging"
	"github.com/spf13/cobra"
)

var (
	flagConfig    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	cfg    config.Config
	logger *slog.Logger
)

// NewRootCmd creates the root cobra command for the schedlab CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "schedlab",
		Short: "schedlab — heterogeneous task scheduler benchmark",
		Long: "schedlab generates synthetic task batches, runs them through " +
			"interchangeable scheduling policies, and reports per-policy statistics.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if flagConfig != "" {
				cfg, err = config.Load(flagConfig)
				if err != nil {
					return err
				}
			} else {
				cfg = config.DefaultConfig()
				if err := cfg.Normalize(); err != nil {
					return err
				}
			}

			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = flagLogLevel
			}
			if cmd.Flags().Changed("log-format") {
				cfg.LogFormat = flagLogFormat
			}
			if flagDebug {
				cfg.LogLevel = "debug"
			}
			logger = logging.NewLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to YAML config file")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "auto", "Log format (text, json, auto)")

	root.AddCommand(
		newRunCmd(),
		newCompareCmd(),
	)

	return root
}

// overrideBatchFlags copies batch-shape flags into cfg when they were set
// explicitly, so flags win over the config file.
func overrideBatchFlags(cmd *cobra.Command, tasks, workers, costMin, costMax *int, seed *int64) error {
	if cmd.Flags().Changed("tasks") {
		cfg.Tasks = *tasks
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = *workers
	}
	if cmd.Flags().Changed("cost-min") {
		cfg.CostMin = *costMin
	}
	if cmd.Flags().Changed("cost-max") {
		cfg.CostMax = *costMax
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = *seed
	}
	if err := cfg.Normalize(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
