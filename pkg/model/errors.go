package model

import "fmt"

// GenerationError reports generation parameters that yield no viable tasks
// even after clamping. It aborts a run before any scheduling starts.
type GenerationError struct {
	Reason string
}

func (e *GenerationError) Error() string {
	return "task generation: " + e.Reason
}

// ExecutionError wraps a failure raised by a work executor for a single task.
// Policies recover these locally; they never abort the batch.
type ExecutionError struct {
	TaskID int
	Type   TaskType
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute task %d (%s): %v", e.TaskID, e.Type, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
