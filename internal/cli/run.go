package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/me/schedlab/internal/config"
	"github.com/me/schedlab/internal/recorder"
	"github.com/me/schedlab/internal/report"
	"github.com/me/schedlab/internal/server"
	"github.com/me/schedlab/internal/workload"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var (
		tasks      int
		workers    int
		costMin    int
		costMax    int
		seed       int64
		statusAddr string
		buckets    int
	)

	cmd := &cobra.Command{
		Use:   "run <policy>",
		Short: "Run one scheduling policy over a generated batch",
		Long: `Generates a task batch and runs it through the named policy
(naive, grouped, priority, partitioned, or adaptive), then prints the run
report to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := overrideBatchFlags(cmd, &tasks, &workers, &costMin, &costMax, &seed); err != nil {
				return err
			}
			if cmd.Flags().Changed("status-addr") {
				cfg.StatusAddr = statusAddr
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			batch, err := generateBatch()
			if err != nil {
				return err
			}

			rec := recorder.NewRecorder(logger)
			rec.Reset()

			reg, adaptive, err := buildRegistry(rec)
			if err != nil {
				return err
			}

			name := strings.ToLower(args[0])
			pol, err := reg.Get(name)
			if err != nil {
				return fmt.Errorf("%w (known policies: %s)", err, strings.Join(reg.Names(), ", "))
			}

			runID := newRunID()
			logger.Info("run starting",
				"run_id", runID,
				"policy", name,
				"tasks", len(batch),
				"workers", cfg.Workers,
			)

			if cfg.StatusAddr != "" {
				src := server.Source{
					RunID:     runID,
					Policy:    name,
					Total:     len(batch),
					StartedAt: time.Now(),
					Recorder:  rec,
				}
				if name == adaptive.Name() {
					src.Adaptive = adaptive
				}
				api := server.New(src, logger)
				api.Start(cfg.StatusAddr)
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					api.Shutdown(shutdownCtx)
				}()
			}

			sum, runErr := pol.Run(ctx, batch, workload.NewSynthetic())

			logger.Info("run finished",
				"run_id", runID,
				"completed", sum.Completed,
				"failed", sum.Failed,
				"elapsed", sum.Elapsed.String(),
			)

			if err := report.Write(cmd.OutOrStdout(), sum, rec, buckets); err != nil {
				return err
			}
			return runErr
		},
	}

	def := config.DefaultConfig()
	cmd.Flags().IntVar(&tasks, "tasks", def.Tasks, "Number of tasks to generate")
	cmd.Flags().IntVar(&workers, "workers", def.Workers, "Worker pool width")
	cmd.Flags().IntVar(&costMin, "cost-min", def.CostMin, "Minimum task cost hint")
	cmd.Flags().IntVar(&costMax, "cost-max", def.CostMax, "Maximum task cost hint")
	cmd.Flags().Int64Var(&seed, "seed", def.Seed, "Generator seed (0 = time-based)")
	cmd.Flags().StringVar(&statusAddr, "status-addr", "", "Serve the live status API on this address during the run")
	cmd.Flags().IntVar(&buckets, "buckets", 10, "Throughput buckets in the report")

	return cmd
}
