package policy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/me/schedlab/internal/recorder"
	"github.com/me/schedlab/internal/workload"
	"github.com/me/schedlab/pkg/model"
)

// Policy decides in what order and grouping a batch of task descriptors is
// submitted to workers. All policies share the same contract: Run blocks
// until every submitted task has finished and returns a summary. Task-level
// executor failures are recovered and tallied, never propagated; the only
// error Run returns is the context's, when the run was cancelled mid-batch.
type Policy interface {
	Name() string
	Run(ctx context.Context, tasks []model.TaskDescriptor, exec workload.Executor) (model.Summary, error)
}

// Registry maps policy names to their implementations. Registration happens
// at startup before concurrent access, so no mutex is needed.
type Registry struct {
	policies map[string]Policy
	order    []string
	logger   *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		policies: make(map[string]Policy),
		logger:   logger.With("component", "policy-registry"),
	}
}

// Register adds a Policy to the registry, keyed by its Name().
func (r *Registry) Register(p Policy) {
	name := p.Name()
	if _, dup := r.policies[name]; !dup {
		r.order = append(r.order, name)
	}
	r.policies[name] = p
	r.logger.Debug("policy registered", "policy", name)
}

// Get returns the Policy with the given name or an error if none is registered.
func (r *Registry) Get(name string) (Policy, error) {
	p, ok := r.policies[name]
	if !ok {
		return nil, fmt.Errorf("no policy registered with name %q", name)
	}
	return p, nil
}

// Names returns registered policy names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// runTask executes one task on behalf of a worker, bracketing the executor
// call with recorder entries. The record is closed and the failure logged
// even when the executor errors, so statistics stay consistent. Returns
// true on success.
func runTask(ctx context.Context, exec workload.Executor, rec *recorder.Recorder, logger *slog.Logger, workerID int, task model.TaskDescriptor) bool {
	rec.RecordStart(task.ID, workerID, task.Type)
	err := exec.Execute(ctx, task)
	rec.RecordEnd(task.ID, workerID, err != nil)
	if err != nil {
		execErr := &model.ExecutionError{TaskID: task.ID, Type: task.Type, Err: err}
		logger.Warn("task failed",
			"task_id", task.ID,
			"type", task.Type,
			"error", execErr,
		)
		return false
	}
	return true
}

// partitionByType splits tasks into per-type groups, preserving batch order
// within each group.
func partitionByType(tasks []model.TaskDescriptor) map[model.TaskType][]model.TaskDescriptor {
	groups := make(map[model.TaskType][]model.TaskDescriptor)
	for _, task := range tasks {
		groups[task.Type] = append(groups[task.Type], task)
	}
	return groups
}
