package policy

import (
	"context"
	"log/slog"
	"time"

	"github.com/me/schedlab/internal/recorder"
	"github.com/me/schedlab/internal/workload"
	"github.com/me/schedlab/pkg/model"
)

// Grouped partitions the batch by task type and runs one type at a time:
// the next type's tasks are not submitted until every task of the current
// type has completed (a full barrier, not just submission).
type Grouped struct {
	workers int
	rec     *recorder.Recorder
	logger  *slog.Logger
}

// NewGrouped creates the type-grouped policy.
func NewGrouped(workers int, rec *recorder.Recorder, logger *slog.Logger) *Grouped {
	return &Grouped{
		workers: workers,
		rec:     rec,
		logger:  logger.With("policy", "grouped"),
	}
}

func (p *Grouped) Name() string { return "grouped" }

func (p *Grouped) Run(ctx context.Context, tasks []model.TaskDescriptor, exec workload.Executor) (model.Summary, error) {
	start := time.Now()
	sum := model.Summary{Policy: p.Name(), Total: len(tasks)}
	if len(tasks) == 0 {
		return sum, nil
	}

	groups := partitionByType(tasks)
	barrier := NewBarrier(p.workers, exec, p.rec, p.logger)

	for _, typ := range model.AllTaskTypes() {
		group := groups[typ]
		if len(group) == 0 {
			continue
		}
		p.logger.Debug("running type group", "type", typ, "tasks", len(group))
		completed, failed := barrier.WaitForGroup(ctx, group)
		sum.Completed += completed
		sum.Failed += failed
	}

	sum.Elapsed = time.Since(start)
	return sum, ctx.Err()
}
