package model

import "fmt"

// TaskType classifies a task's dominant resource profile.
type TaskType string

const (
	TaskTypeCompute TaskType = "compute"
	TaskTypeMemory  TaskType = "memory"
	TaskTypeIO      TaskType = "io"
	TaskTypeMixed   TaskType = "mixed"
)

// AllTaskTypes returns every task type in declaration order.
func AllTaskTypes() []TaskType {
	return []TaskType{TaskTypeCompute, TaskTypeMemory, TaskTypeIO, TaskTypeMixed}
}

// ParseTaskType converts a string to a TaskType.
func ParseTaskType(s string) (TaskType, error) {
	switch TaskType(s) {
	case TaskTypeCompute, TaskTypeMemory, TaskTypeIO, TaskTypeMixed:
		return TaskType(s), nil
	}
	return "", fmt.Errorf("unknown task type %q", s)
}

// TaskDescriptor describes one schedulable unit of work. Descriptors are
// immutable once generated and are shared read-only across policies and
// workers, so they carry no synchronization.
type TaskDescriptor struct {
	ID       int      `json:"id"`
	Type     TaskType `json:"type"`
	CostHint int      `json:"cost_hint"`
}
