package policy

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/me/schedlab/internal/recorder"
	"github.com/me/schedlab/internal/workload"
	"github.com/me/schedlab/pkg/model"
)

// Barrier runs groups of tasks on a bounded set of workers and blocks until
// the whole group has finished. It is the group-wait primitive shared by the
// naive, grouped, priority, and partitioned policies: no caller proceeds
// past WaitForGroup while any task of the group is still running.
type Barrier struct {
	workers int
	exec    workload.Executor
	rec     *recorder.Recorder
	logger  *slog.Logger
}

// NewBarrier creates a Barrier dispatching to at most workers concurrent
// executions. workers is clamped to at least 1.
func NewBarrier(workers int, exec workload.Executor, rec *recorder.Recorder, logger *slog.Logger) *Barrier {
	if workers < 1 {
		workers = 1
	}
	return &Barrier{
		workers: workers,
		exec:    exec,
		rec:     rec,
		logger:  logger,
	}
}

// WaitForGroup submits every task in the group and blocks until all of them
// have finished, returning the success and failure tallies. An empty group
// returns immediately. Cancelling ctx stops submission of the group's
// remaining tasks; tasks already handed to a worker still run to completion
// so the ledger is left without dangling open records.
func (b *Barrier) WaitForGroup(ctx context.Context, tasks []model.TaskDescriptor) (completed, failed int) {
	if len(tasks) == 0 {
		return 0, 0
	}

	var okCount, errCount atomic.Int64

	queue := make(chan model.TaskDescriptor)
	var wg sync.WaitGroup
	for w := 0; w < b.workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for task := range queue {
				if runTask(ctx, b.exec, b.rec, b.logger, workerID, task) {
					okCount.Add(1)
				} else {
					errCount.Add(1)
				}
			}
		}(w)
	}

feed:
	for _, task := range tasks {
		select {
		case queue <- task:
		case <-ctx.Done():
			break feed
		}
	}
	close(queue)
	wg.Wait()

	return int(okCount.Load()), int(errCount.Load())
}
