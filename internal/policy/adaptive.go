package policy

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/me/schedlab/internal/control"
	"github.com/me/schedlab/internal/governor"
	"github.com/me/schedlab/internal/recorder"
	"github.com/me/schedlab/internal/workload"
	"github.com/me/schedlab/pkg/model"
)

// Adaptive makes a single pass over the batch, gating every submission
// through a governor whose ceiling is tuned at runtime by a feedback
// controller watching the recorder. Each Run gets a fresh governor and
// controller; the controller is stopped cooperatively once the batch has
// drained, never killed mid-tick.
type Adaptive struct {
	workers int
	ctrlCfg control.Config
	rec     *recorder.Recorder
	logger  *slog.Logger

	mu   sync.Mutex
	gov  *governor.Governor
	ctrl *control.Controller
}

// NewAdaptive creates the adaptive policy. ctrlCfg's Floor and Increment
// default to the worker count when unset.
func NewAdaptive(workers int, ctrlCfg control.Config, rec *recorder.Recorder, logger *slog.Logger) *Adaptive {
	if workers < 1 {
		workers = 1
	}
	if ctrlCfg.Floor < 1 {
		ctrlCfg.Floor = workers
	}
	if ctrlCfg.Increment < 1 {
		ctrlCfg.Increment = workers
	}
	return &Adaptive{
		workers: workers,
		ctrlCfg: ctrlCfg,
		rec:     rec,
		logger:  logger.With("policy", "adaptive"),
	}
}

func (p *Adaptive) Name() string { return "adaptive" }

func (p *Adaptive) Run(ctx context.Context, tasks []model.TaskDescriptor, exec workload.Executor) (model.Summary, error) {
	start := time.Now()
	sum := model.Summary{Policy: p.Name(), Total: len(tasks)}
	if len(tasks) == 0 {
		return sum, nil
	}

	gov := governor.NewGovernor(p.workers)
	ctrl := control.NewController(gov, p.rec, p.ctrlCfg, p.logger)

	p.mu.Lock()
	p.gov = gov
	p.ctrl = ctrl
	p.mu.Unlock()

	go ctrl.Start(ctx)
	defer ctrl.Stop()

	var okCount, errCount atomic.Int64
	var wg sync.WaitGroup

	slot := 0
	for _, task := range tasks {
		if err := gov.Admit(ctx); err != nil {
			break
		}
		workerID := slot % p.workers
		slot++

		wg.Add(1)
		go func(workerID int, task model.TaskDescriptor) {
			defer wg.Done()
			defer gov.Release()
			if runTask(ctx, exec, p.rec, p.logger, workerID, task) {
				okCount.Add(1)
			} else {
				errCount.Add(1)
			}
		}(workerID, task)
	}
	wg.Wait()

	sum.Completed = int(okCount.Load())
	sum.Failed = int(errCount.Load())
	sum.Elapsed = time.Since(start)
	return sum, ctx.Err()
}

// Occupancy reports the current run's governor occupancy. ok is false when
// no adaptive run has started yet.
func (p *Adaptive) Occupancy() (admitted, ceiling int, ok bool) {
	p.mu.Lock()
	gov := p.gov
	p.mu.Unlock()
	if gov == nil {
		return 0, 0, false
	}
	admitted, ceiling = gov.Occupancy()
	return admitted, ceiling, true
}

// History returns the controller's per-tick diagnostics for the current or
// most recent run.
func (p *Adaptive) History() []control.TickSample {
	p.mu.Lock()
	ctrl := p.ctrl
	p.mu.Unlock()
	if ctrl == nil {
		return nil
	}
	return ctrl.History()
}
