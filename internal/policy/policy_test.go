package policy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/me/schedlab/internal/recorder"
	"github.com/me/schedlab/internal/workload"
	"github.com/me/schedlab/pkg/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRecorder(t *testing.T) *recorder.Recorder {
	t.Helper()
	rec := recorder.NewRecorder(testLogger())
	rec.Reset()
	return rec
}

// makeTasks builds n tasks of the given type with sequential IDs from base.
func makeTasks(base, n int, typ model.TaskType) []model.TaskDescriptor {
	tasks := make([]model.TaskDescriptor, n)
	for i := range tasks {
		tasks[i] = model.TaskDescriptor{ID: base + i, Type: typ, CostHint: 1}
	}
	return tasks
}

// delayExec returns an executor sleeping for d on every task.
func delayExec(d time.Duration) workload.Executor {
	return workload.ExecutorFunc(func(ctx context.Context, task model.TaskDescriptor) error {
		time.Sleep(d)
		return nil
	})
}

// eventExec records "start <type>" / "end <type>" events in order.
type eventExec struct {
	mu     sync.Mutex
	events []string
	delay  time.Duration
}

func (e *eventExec) Execute(ctx context.Context, task model.TaskDescriptor) error {
	e.mu.Lock()
	e.events = append(e.events, "start "+string(task.Type))
	e.mu.Unlock()

	time.Sleep(e.delay)

	e.mu.Lock()
	e.events = append(e.events, "end "+string(task.Type))
	e.mu.Unlock()
	return nil
}

// assertNoOverlap fails if any task of a later type started before every
// task of an earlier type ended, given the expected per-type counts in
// tier order.
func assertNoOverlap(t *testing.T, events []string, order []model.TaskType, counts map[model.TaskType]int) {
	t.Helper()
	ended := make(map[model.TaskType]int)
	tierOf := make(map[model.TaskType]int)
	for i, typ := range order {
		tierOf[typ] = i
	}

	for _, ev := range events {
		var typ model.TaskType
		if len(ev) > 6 && ev[:6] == "start " {
			typ = model.TaskType(ev[6:])
			for earlier, tier := range tierOf {
				if tier < tierOf[typ] && ended[earlier] != counts[earlier] {
					t.Fatalf("task of %s started before %s drained (%d/%d ended)",
						typ, earlier, ended[earlier], counts[earlier])
				}
			}
		} else {
			typ = model.TaskType(ev[4:])
			ended[typ]++
		}
	}
}

func TestRegistry(t *testing.T) {
	rec := testRecorder(t)
	reg := NewRegistry(testLogger())
	reg.Register(NewNaive(2, rec, testLogger()))
	reg.Register(NewGrouped(2, rec, testLogger()))

	if _, err := reg.Get("naive"); err != nil {
		t.Errorf("Get(naive): %v", err)
	}
	if _, err := reg.Get("bogus"); err == nil {
		t.Error("Get(bogus) should fail")
	}

	names := reg.Names()
	if len(names) != 2 || names[0] != "naive" || names[1] != "grouped" {
		t.Errorf("Names = %v, want [naive grouped]", names)
	}
}

func TestPolicies_EmptyBatch(t *testing.T) {
	rec := testRecorder(t)
	exec := delayExec(0)
	policies := []Policy{
		NewNaive(4, rec, testLogger()),
		NewGrouped(4, rec, testLogger()),
		NewPriority(4, model.AllTaskTypes(), rec, testLogger()),
		NewPartitioned(4, nil, rec, testLogger()),
		NewAdaptive(4, controlConfig(), rec, testLogger()),
	}

	for _, p := range policies {
		done := make(chan model.Summary, 1)
		go func() {
			sum, err := p.Run(context.Background(), nil, exec)
			if err != nil {
				t.Errorf("%s: Run: %v", p.Name(), err)
			}
			done <- sum
		}()

		select {
		case sum := <-done:
			if sum.Completed != 0 || sum.Failed != 0 || sum.Total != 0 {
				t.Errorf("%s: summary = %+v, want zeros", p.Name(), sum)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("%s: empty batch blocked", p.Name())
		}
	}
}

func TestNaive_CompletesAllTasks(t *testing.T) {
	rec := testRecorder(t)
	tasks := makeTasks(0, 20, model.TaskTypeCompute)

	sum, err := NewNaive(4, rec, testLogger()).Run(context.Background(), tasks, delayExec(time.Millisecond))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Completed != 20 || sum.Failed != 0 {
		t.Errorf("summary = %+v, want 20 completed", sum)
	}
	if rec.CompletedCount() != 20 {
		t.Errorf("recorder closed %d records, want 20 (task dropped)", rec.CompletedCount())
	}
}

func TestNaive_BoundedByWorkerPool(t *testing.T) {
	rec := testRecorder(t)
	tasks := makeTasks(0, 16, model.TaskTypeMixed)

	var current, maxSeen int32
	exec := workload.ExecutorFunc(func(ctx context.Context, task model.TaskDescriptor) error {
		c := atomic.AddInt32(&current, 1)
		for {
			old := atomic.LoadInt32(&maxSeen)
			if c <= old || atomic.CompareAndSwapInt32(&maxSeen, old, c) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&current, -1)
		return nil
	})

	if _, err := NewNaive(3, rec, testLogger()).Run(context.Background(), tasks, exec); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if maxSeen > 3 {
		t.Errorf("max concurrency %d exceeded pool width 3", maxSeen)
	}
}

func TestGrouped_FailingIOExecutor(t *testing.T) {
	rec := testRecorder(t)
	tasks := append(makeTasks(0, 5, model.TaskTypeIO), makeTasks(5, 5, model.TaskTypeCompute)...)

	exec := workload.ExecutorFunc(func(ctx context.Context, task model.TaskDescriptor) error {
		if task.Type == model.TaskTypeIO {
			return errors.New("io refused")
		}
		return nil
	})

	sum, err := NewGrouped(4, rec, testLogger()).Run(context.Background(), tasks, exec)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Completed != 5 || sum.Failed != 5 {
		t.Errorf("summary = %+v, want completed 5, failed 5", sum)
	}
	if rec.CompletedCount() != 10 {
		t.Errorf("recorder closed %d records, want 10", rec.CompletedCount())
	}
	if rec.FailedCount() != 5 {
		t.Errorf("recorder failed %d records, want 5", rec.FailedCount())
	}
}

func TestGrouped_FullBarrierBetweenTypes(t *testing.T) {
	rec := testRecorder(t)
	tasks := append(makeTasks(0, 6, model.TaskTypeCompute), makeTasks(6, 6, model.TaskTypeIO)...)

	exec := &eventExec{delay: 2 * time.Millisecond}
	if _, err := NewGrouped(3, rec, testLogger()).Run(context.Background(), tasks, exec); err != nil {
		t.Fatalf("Run: %v", err)
	}

	assertNoOverlap(t, exec.events,
		[]model.TaskType{model.TaskTypeCompute, model.TaskTypeIO},
		map[model.TaskType]int{model.TaskTypeCompute: 6, model.TaskTypeIO: 6})
}

func TestGrouped_SkipsEmptyTypes(t *testing.T) {
	rec := testRecorder(t)
	tasks := makeTasks(0, 4, model.TaskTypeMemory)

	done := make(chan struct{})
	go func() {
		defer close(done)
		sum, err := NewGrouped(2, rec, testLogger()).Run(context.Background(), tasks, delayExec(0))
		if err != nil {
			t.Errorf("Run: %v", err)
		}
		if sum.Completed != 4 {
			t.Errorf("completed = %d, want 4", sum.Completed)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("empty type groups must be skipped without waiting")
	}
}

func TestPriority_DrainsTiersInOrder(t *testing.T) {
	rec := testRecorder(t)
	// Deliberately reversed order: io outranks compute.
	tiers := []model.TaskType{model.TaskTypeIO, model.TaskTypeCompute, model.TaskTypeMemory, model.TaskTypeMixed}
	tasks := append(makeTasks(0, 5, model.TaskTypeCompute), makeTasks(5, 5, model.TaskTypeIO)...)

	exec := &eventExec{delay: 2 * time.Millisecond}
	sum, err := NewPriority(3, tiers, rec, testLogger()).Run(context.Background(), tasks, exec)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Completed != 10 {
		t.Errorf("completed = %d, want 10", sum.Completed)
	}

	assertNoOverlap(t, exec.events,
		[]model.TaskType{model.TaskTypeIO, model.TaskTypeCompute},
		map[model.TaskType]int{model.TaskTypeIO: 5, model.TaskTypeCompute: 5})
}

func TestPartitioned_Budgets(t *testing.T) {
	rec := testRecorder(t)
	shares := map[model.TaskType]float64{
		model.TaskTypeCompute: 0.5,
		model.TaskTypeMemory:  0.3,
		model.TaskTypeIO:      0.1,
		model.TaskTypeMixed:   0.1,
	}
	p := NewPartitioned(10, shares, rec, testLogger())

	if got := p.Budget(model.TaskTypeCompute); got != 5 {
		t.Errorf("compute budget = %d, want 5", got)
	}
	if got := p.Budget(model.TaskTypeMemory); got != 3 {
		t.Errorf("memory budget = %d, want 3", got)
	}
	// 0.1 * 10 = 1; floor clamp keeps it at 1.
	if got := p.Budget(model.TaskTypeIO); got != 1 {
		t.Errorf("io budget = %d, want 1", got)
	}

	// A type with no share still gets one worker.
	small := NewPartitioned(4, map[model.TaskType]float64{model.TaskTypeCompute: 1}, rec, testLogger())
	if got := small.Budget(model.TaskTypeIO); got != 1 {
		t.Errorf("unshared io budget = %d, want 1 (floor clamp)", got)
	}
}

func TestPartitioned_RespectsPerTypeBudget(t *testing.T) {
	rec := testRecorder(t)
	shares := map[model.TaskType]float64{model.TaskTypeCompute: 0.5}
	tasks := makeTasks(0, 12, model.TaskTypeCompute)

	var current, maxSeen int32
	exec := workload.ExecutorFunc(func(ctx context.Context, task model.TaskDescriptor) error {
		c := atomic.AddInt32(&current, 1)
		for {
			old := atomic.LoadInt32(&maxSeen)
			if c <= old || atomic.CompareAndSwapInt32(&maxSeen, old, c) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&current, -1)
		return nil
	})

	sum, err := NewPartitioned(4, shares, rec, testLogger()).Run(context.Background(), tasks, exec)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Completed != 12 {
		t.Errorf("completed = %d, want 12", sum.Completed)
	}
	if maxSeen > 2 {
		t.Errorf("compute partition ran %d concurrent tasks, budget is 2", maxSeen)
	}
}

func TestBarrier_CountsFailures(t *testing.T) {
	rec := testRecorder(t)
	tasks := makeTasks(0, 6, model.TaskTypeMixed)

	exec := workload.ExecutorFunc(func(ctx context.Context, task model.TaskDescriptor) error {
		if task.ID%2 == 0 {
			return errors.New("even ids fail")
		}
		return nil
	})

	barrier := NewBarrier(2, exec, rec, testLogger())
	completed, failed := barrier.WaitForGroup(context.Background(), tasks)
	if completed != 3 || failed != 3 {
		t.Errorf("(completed, failed) = (%d, %d), want (3, 3)", completed, failed)
	}
	if rec.CompletedCount() != 6 {
		t.Errorf("recorder closed %d records, want 6", rec.CompletedCount())
	}
}

func TestBarrier_CancelledContextStopsSubmission(t *testing.T) {
	rec := testRecorder(t)
	tasks := makeTasks(0, 100, model.TaskTypeCompute)

	ctx, cancel := context.WithCancel(context.Background())
	var started atomic.Int32
	exec := workload.ExecutorFunc(func(ctx context.Context, task model.TaskDescriptor) error {
		if started.Add(1) == 3 {
			cancel()
		}
		time.Sleep(time.Millisecond)
		return nil
	})

	barrier := NewBarrier(2, exec, rec, testLogger())
	completed, failed := barrier.WaitForGroup(ctx, tasks)

	if completed+failed >= 100 {
		t.Errorf("all %d tasks ran despite cancellation", completed+failed)
	}
	// Every task that started was also closed in the ledger.
	if rec.CompletedCount() != int(started.Load()) {
		t.Errorf("closed %d records, started %d", rec.CompletedCount(), started.Load())
	}
}
