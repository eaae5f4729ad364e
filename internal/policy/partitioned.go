package policy

import (
	"context"
	"log/slog"
	"time"

	"github.com/me/schedlab/internal/recorder"
	"github.com/me/schedlab/internal/workload"
	"github.com/me/schedlab/pkg/model"
)

// Partitioned splits the worker budget into per-type sub-budgets and runs
// each type's tasks sequentially under its own budget. The per-type worker
// count substitutes for an admission governor: a type can never occupy more
// workers than its share grants, and every share floor-clamps to one worker.
type Partitioned struct {
	workers int
	shares  map[model.TaskType]float64
	rec     *recorder.Recorder
	logger  *slog.Logger
}

// NewPartitioned creates the resource-partitioned policy. shares maps task
// type to its fraction of the worker budget; missing types get a single
// worker via the floor clamp.
func NewPartitioned(workers int, shares map[model.TaskType]float64, rec *recorder.Recorder, logger *slog.Logger) *Partitioned {
	if workers < 1 {
		workers = 1
	}
	return &Partitioned{
		workers: workers,
		shares:  shares,
		rec:     rec,
		logger:  logger.With("policy", "partitioned"),
	}
}

func (p *Partitioned) Name() string { return "partitioned" }

// Budget returns the worker budget for one task type.
func (p *Partitioned) Budget(typ model.TaskType) int {
	budget := int(p.shares[typ] * float64(p.workers))
	if budget < 1 {
		budget = 1
	}
	return budget
}

func (p *Partitioned) Run(ctx context.Context, tasks []model.TaskDescriptor, exec workload.Executor) (model.Summary, error) {
	start := time.Now()
	sum := model.Summary{Policy: p.Name(), Total: len(tasks)}
	if len(tasks) == 0 {
		return sum, nil
	}

	groups := partitionByType(tasks)

	for _, typ := range model.AllTaskTypes() {
		group := groups[typ]
		if len(group) == 0 {
			continue
		}
		budget := p.Budget(typ)
		p.logger.Debug("running partition", "type", typ, "tasks", len(group), "budget", budget)

		barrier := NewBarrier(budget, exec, p.rec, p.logger)
		completed, failed := barrier.WaitForGroup(ctx, group)
		sum.Completed += completed
		sum.Failed += failed
	}

	sum.Elapsed = time.Since(start)
	return sum, ctx.Err()
}
