package workload

import (
	"context"
	"testing"
	"time"

	"github.com/me/schedlab/pkg/model"
)

func TestSynthetic_RunsEveryType(t *testing.T) {
	exec := NewSynthetic()
	exec.UnitDuration = 100 * time.Microsecond

	for _, typ := range model.AllTaskTypes() {
		task := model.TaskDescriptor{ID: 1, Type: typ, CostHint: 3}
		if err := exec.Execute(context.Background(), task); err != nil {
			t.Errorf("Execute(%s): %v", typ, err)
		}
	}
}

func TestSynthetic_SleepHonorsContext(t *testing.T) {
	exec := NewSynthetic()
	exec.UnitDuration = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := exec.Execute(ctx, model.TaskDescriptor{ID: 1, Type: model.TaskTypeIO, CostHint: 10})
	if err == nil {
		t.Fatal("Execute should return the context error")
	}
	if time.Since(start) > time.Second {
		t.Errorf("cancelled sleep took %v", time.Since(start))
	}
}

func TestExecutorFunc(t *testing.T) {
	called := false
	var exec Executor = ExecutorFunc(func(ctx context.Context, task model.TaskDescriptor) error {
		called = true
		return nil
	})

	if err := exec.Execute(context.Background(), model.TaskDescriptor{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !called {
		t.Error("wrapped function not called")
	}
}
