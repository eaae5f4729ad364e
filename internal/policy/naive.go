package policy

import (
	"context"
	"log/slog"
	"time"

	"github.com/me/schedlab/internal/recorder"
	"github.com/me/schedlab/internal/workload"
	"github.com/me/schedlab/pkg/model"
)

// Naive submits every task immediately in generated order. Concurrency is
// bounded only by the worker-pool width; there is no grouping and no
// admission control.
type Naive struct {
	workers int
	rec     *recorder.Recorder
	logger  *slog.Logger
}

// NewNaive creates the naive policy.
func NewNaive(workers int, rec *recorder.Recorder, logger *slog.Logger) *Naive {
	return &Naive{
		workers: workers,
		rec:     rec,
		logger:  logger.With("policy", "naive"),
	}
}

func (p *Naive) Name() string { return "naive" }

func (p *Naive) Run(ctx context.Context, tasks []model.TaskDescriptor, exec workload.Executor) (model.Summary, error) {
	start := time.Now()
	sum := model.Summary{Policy: p.Name(), Total: len(tasks)}
	if len(tasks) == 0 {
		return sum, nil
	}

	barrier := NewBarrier(p.workers, exec, p.rec, p.logger)
	sum.Completed, sum.Failed = barrier.WaitForGroup(ctx, tasks)
	sum.Elapsed = time.Since(start)
	return sum, ctx.Err()
}
