package control

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/me/schedlab/internal/governor"
	"github.com/me/schedlab/internal/recorder"
	"github.com/me/schedlab/pkg/model"
)

func testController(t *testing.T, ceiling int, cfg Config) (*Controller, *governor.Governor, *recorder.Recorder) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gov := governor.NewGovernor(ceiling)
	rec := recorder.NewRecorder(logger)
	rec.Reset()
	return NewController(gov, rec, cfg, logger), gov, rec
}

// closeRecords marks n tasks as completed so ticks observe progress.
func closeRecords(rec *recorder.Recorder, from, n int) {
	for i := from; i < from+n; i++ {
		rec.RecordStart(i, 0, model.TaskTypeCompute)
		rec.RecordEnd(i, 0, false)
	}
}

func TestTick_RaisesCeilingNearSaturation(t *testing.T) {
	cfg := Config{Interval: 100 * time.Millisecond, HighWater: 0.8, LowWater: 0.4, Increment: 4, Floor: 4}
	ctrl, gov, rec := testController(t, 4, cfg)

	// Saturate: 4 of 4 admitted, with completions flowing.
	for i := 0; i < 4; i++ {
		if err := gov.Admit(context.Background()); err != nil {
			t.Fatalf("Admit: %v", err)
		}
	}
	closeRecords(rec, 0, 8)

	now := time.Now()
	ctrl.Tick(now)

	if _, ceiling := gov.Occupancy(); ceiling != 8 {
		t.Errorf("ceiling = %d, want 8 after raise", ceiling)
	}
}

func TestTick_DoesNotRaiseOnThroughputRegression(t *testing.T) {
	cfg := Config{Interval: 100 * time.Millisecond, HighWater: 0.8, LowWater: 0.4, Increment: 4, Floor: 4}
	ctrl, gov, rec := testController(t, 4, cfg)

	for i := 0; i < 4; i++ {
		if err := gov.Admit(context.Background()); err != nil {
			t.Fatalf("Admit: %v", err)
		}
	}

	// First tick: strong throughput, ceiling rises to 8.
	closeRecords(rec, 0, 10)
	now := time.Now()
	ctrl.Tick(now)

	// Keep occupancy above high water for the new ceiling.
	for i := 0; i < 4; i++ {
		if err := gov.Admit(context.Background()); err != nil {
			t.Fatalf("Admit: %v", err)
		}
	}

	// Second tick: only 1 completion in the same window — regression.
	closeRecords(rec, 10, 1)
	ctrl.Tick(now.Add(cfg.Interval))

	if _, ceiling := gov.Occupancy(); ceiling != 8 {
		t.Errorf("ceiling = %d, want 8 (no raise on regression)", ceiling)
	}
}

func TestTick_LowersCeilingWhenSlack(t *testing.T) {
	cfg := Config{Interval: 100 * time.Millisecond, HighWater: 0.8, LowWater: 0.4, Increment: 4, Floor: 4}
	ctrl, gov, _ := testController(t, 4, cfg)

	gov.SetCeiling(12)

	// Nothing admitted: 0 <= 0.4 * 12.
	ctrl.Tick(time.Now())
	if _, ceiling := gov.Occupancy(); ceiling != 8 {
		t.Errorf("ceiling = %d, want 8 after one lowering step", ceiling)
	}

	ctrl.Tick(time.Now().Add(cfg.Interval))
	ctrl.Tick(time.Now().Add(2 * cfg.Interval))

	if _, ceiling := gov.Occupancy(); ceiling != 4 {
		t.Errorf("ceiling = %d, want floor 4 (never below)", ceiling)
	}
}

func TestTick_RecordsHistory(t *testing.T) {
	cfg := Config{Interval: 50 * time.Millisecond, HighWater: 0.8, LowWater: 0.4, Increment: 2, Floor: 2}
	ctrl, _, rec := testController(t, 2, cfg)

	now := time.Now()
	closeRecords(rec, 0, 3)
	ctrl.Tick(now)
	ctrl.Tick(now.Add(cfg.Interval))

	history := ctrl.History()
	if len(history) != 2 {
		t.Fatalf("history has %d samples, want 2", len(history))
	}
	if history[0].Throughput <= 0 {
		t.Errorf("first tick throughput = %v, want > 0", history[0].Throughput)
	}
	if history[1].Throughput != 0 {
		t.Errorf("second tick throughput = %v, want 0", history[1].Throughput)
	}
}

func TestController_StartStop(t *testing.T) {
	cfg := Config{Interval: 5 * time.Millisecond, HighWater: 0.8, LowWater: 0.4, Increment: 2, Floor: 2}
	ctrl, _, rec := testController(t, 2, cfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- ctrl.Start(context.Background())
	}()

	closeRecords(rec, 0, 5)
	time.Sleep(25 * time.Millisecond)

	ctrl.Stop()
	ctrl.Stop() // idempotent

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start returned %v, want nil on Stop", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}

	if len(ctrl.History()) == 0 {
		t.Error("no ticks recorded while running")
	}
}

func TestNewController_DefaultsInvalidConfig(t *testing.T) {
	ctrl, _, _ := testController(t, 2, Config{Floor: -1, HighWater: 5, LowWater: 9})
	if ctrl.cfg.Floor != 1 {
		t.Errorf("Floor = %d, want 1", ctrl.cfg.Floor)
	}
	if ctrl.cfg.HighWater != 0.8 {
		t.Errorf("HighWater = %v, want 0.8", ctrl.cfg.HighWater)
	}
	if ctrl.cfg.LowWater >= ctrl.cfg.HighWater {
		t.Errorf("LowWater %v not below HighWater %v", ctrl.cfg.LowWater, ctrl.cfg.HighWater)
	}
	if ctrl.cfg.Increment != 1 {
		t.Errorf("Increment = %d, want 1 (floor width)", ctrl.cfg.Increment)
	}
}
