package workload

import (
	"context"
	"time"

	"github.com/me/schedlab/pkg/model"
)

// Executor performs the actual work for a task descriptor. Implementations
// may run for an arbitrary bounded duration and fail with an error; the
// scheduler does not care what they do internally.
type Executor interface {
	Execute(ctx context.Context, task model.TaskDescriptor) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, task model.TaskDescriptor) error

func (f ExecutorFunc) Execute(ctx context.Context, task model.TaskDescriptor) error {
	return f(ctx, task)
}

// Synthetic is the built-in executor: a busy-compute loop, a memory-touch
// loop, a sleep standing in for I/O, or a slice of each for mixed tasks,
// all scaled by the task's cost hint.
type Synthetic struct {
	// UnitDuration is the sleep per cost unit for IO work. Defaults to 1ms.
	UnitDuration time.Duration
}

// NewSynthetic returns a Synthetic with default scaling.
func NewSynthetic() *Synthetic {
	return &Synthetic{UnitDuration: time.Millisecond}
}

func (s *Synthetic) Execute(ctx context.Context, task model.TaskDescriptor) error {
	switch task.Type {
	case model.TaskTypeCompute:
		return s.compute(ctx, task.CostHint)
	case model.TaskTypeMemory:
		return s.memory(ctx, task.CostHint)
	case model.TaskTypeIO:
		return s.sleep(ctx, task.CostHint)
	default:
		third := task.CostHint/3 + 1
		if err := s.compute(ctx, third); err != nil {
			return err
		}
		if err := s.memory(ctx, third); err != nil {
			return err
		}
		return s.sleep(ctx, third)
	}
}

// compute burns CPU proportionally to cost. The accumulator is written to a
// package sink so the loop cannot be optimized away.
func (s *Synthetic) compute(ctx context.Context, cost int) error {
	acc := uint64(1)
	for i := 0; i < cost; i++ {
		for j := 0; j < 20000; j++ {
			acc = acc*6364136223846793005 + 1442695040888963407
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	sink = acc
	return nil
}

// memory touches cost kilobytes with a cache-unfriendly stride.
func (s *Synthetic) memory(ctx context.Context, cost int) error {
	buf := make([]byte, cost*1024)
	for stride := 0; stride < 4; stride++ {
		for i := stride * 64; i < len(buf); i += 256 {
			buf[i]++
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	sink = uint64(buf[0])
	return nil
}

// sleep stands in for I/O latency, one UnitDuration per cost unit.
func (s *Synthetic) sleep(ctx context.Context, cost int) error {
	unit := s.UnitDuration
	if unit <= 0 {
		unit = time.Millisecond
	}
	timer := time.NewTimer(time.Duration(cost) * unit)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var sink uint64
