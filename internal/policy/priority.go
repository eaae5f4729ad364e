package policy

import (
	"context"
	"log/slog"
	"time"

	"github.com/me/schedlab/internal/recorder"
	"github.com/me/schedlab/internal/workload"
	"github.com/me/schedlab/pkg/model"
)

// Priority submits tasks tier by tier, higher tiers first, draining each
// tier completely before the next one starts. The tier order is derived
// from task type and is configurable; the conventional default is
// compute > memory > mixed > io.
type Priority struct {
	workers int
	tiers   []model.TaskType
	rec     *recorder.Recorder
	logger  *slog.Logger
}

// NewPriority creates the priority-tiered policy. tiers lists task types
// from highest to lowest priority; types absent from tiers are never run,
// so callers should pass a complete order (config.PriorityTypes does).
func NewPriority(workers int, tiers []model.TaskType, rec *recorder.Recorder, logger *slog.Logger) *Priority {
	return &Priority{
		workers: workers,
		tiers:   tiers,
		rec:     rec,
		logger:  logger.With("policy", "priority"),
	}
}

func (p *Priority) Name() string { return "priority" }

func (p *Priority) Run(ctx context.Context, tasks []model.TaskDescriptor, exec workload.Executor) (model.Summary, error) {
	start := time.Now()
	sum := model.Summary{Policy: p.Name(), Total: len(tasks)}
	if len(tasks) == 0 {
		return sum, nil
	}

	groups := partitionByType(tasks)
	barrier := NewBarrier(p.workers, exec, p.rec, p.logger)

	for rank, typ := range p.tiers {
		tier := groups[typ]
		if len(tier) == 0 {
			continue
		}
		p.logger.Debug("running priority tier", "rank", rank, "type", typ, "tasks", len(tier))
		completed, failed := barrier.WaitForGroup(ctx, tier)
		sum.Completed += completed
		sum.Failed += failed
	}

	sum.Elapsed = time.Since(start)
	return sum, ctx.Err()
}
