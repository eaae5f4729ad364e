package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/me/schedlab/internal/config"
	"github.com/me/schedlab/internal/recorder"
	"github.com/me/schedlab/internal/report"
	"github.com/me/schedlab/internal/workload"
	"github.com/me/schedlab/pkg/model"
	"github.com/spf13/cobra"
)

func newCompareCmd() *cobra.Command {
	var (
		tasks   int
		workers int
		costMin int
		costMax int
		seed    int64
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Run every policy once over the same batch and compare",
		Long: `Generates one task batch and runs it through every registered
policy in turn, resetting the recorder between runs. Ceilings are only ever
adjusted by the adaptive controller during the adaptive policy's own run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := overrideBatchFlags(cmd, &tasks, &workers, &costMin, &costMax, &seed); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			batch, err := generateBatch()
			if err != nil {
				return err
			}

			rec := recorder.NewRecorder(logger)
			reg, _, err := buildRegistry(rec)
			if err != nil {
				return err
			}

			exec := workload.NewSynthetic()
			runID := newRunID()
			logger.Info("comparison starting", "run_id", runID, "tasks", len(batch), "workers", cfg.Workers)

			var sums []model.Summary
			for _, name := range reg.Names() {
				if err := ctx.Err(); err != nil {
					return err
				}

				pol, err := reg.Get(name)
				if err != nil {
					return err
				}

				rec.Reset()
				sum, err := pol.Run(ctx, batch, exec)
				if err != nil {
					return err
				}
				logger.Info("policy finished",
					"run_id", runID,
					"policy", name,
					"completed", sum.Completed,
					"failed", sum.Failed,
					"elapsed", sum.Elapsed.String(),
				)
				sums = append(sums, sum)
			}

			return report.WriteComparison(cmd.OutOrStdout(), sums)
		},
	}

	def := config.DefaultConfig()
	cmd.Flags().IntVar(&tasks, "tasks", def.Tasks, "Number of tasks to generate")
	cmd.Flags().IntVar(&workers, "workers", def.Workers, "Worker pool width")
	cmd.Flags().IntVar(&costMin, "cost-min", def.CostMin, "Minimum task cost hint")
	cmd.Flags().IntVar(&costMax, "cost-max", def.CostMax, "Maximum task cost hint")
	cmd.Flags().Int64Var(&seed, "seed", def.Seed, "Generator seed (0 = time-based)")

	return cmd
}
