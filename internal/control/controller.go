package control

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/me/schedlab/internal/governor"
	"github.com/me/schedlab/internal/recorder"
)

// Config holds the controller's tuning knobs.
type Config struct {
	// Interval between ticks.
	Interval time.Duration

	// HighWater: occupancy fraction at which the ceiling may rise.
	HighWater float64

	// LowWater: occupancy fraction at which the ceiling may drop.
	LowWater float64

	// Increment is the ceiling step per adjustment.
	Increment int

	// Floor is the minimum ceiling, normally the worker-pool width.
	Floor int
}

// DefaultConfig returns sensible defaults for a pool of the given width.
func DefaultConfig(workers int) Config {
	if workers < 1 {
		workers = 1
	}
	return Config{
		Interval:  500 * time.Millisecond,
		HighWater: 0.8,
		LowWater:  0.4,
		Increment: workers,
		Floor:     workers,
	}
}

// TickSample is one diagnostic observation from the feedback loop.
type TickSample struct {
	Offset     time.Duration `json:"offset"`
	Throughput float64       `json:"throughput"`
	Admitted   int           `json:"admitted"`
	Ceiling    int           `json:"ceiling"`
}

// Controller is the feedback loop that tunes the governor's ceiling while a
// run is in flight. Each tick it reads the recorder's completed count and
// the governor's occupancy, computes instantaneous throughput, and raises
// the ceiling near saturation (when throughput has not regressed) or lowers
// it toward the floor when occupancy is slack.
//
// Shutdown is cooperative: Stop closes a flag channel the loop checks every
// tick, so the governor and recorder are never left mid-mutation.
type Controller struct {
	gov    *governor.Governor
	rec    *recorder.Recorder
	cfg    Config
	logger *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}

	mu             sync.Mutex
	started        time.Time
	lastTick       time.Time
	lastCompleted  int
	lastThroughput float64
	history        []TickSample
}

// NewController creates a Controller. Zero or negative config fields fall
// back to DefaultConfig values for the configured floor.
func NewController(gov *governor.Governor, rec *recorder.Recorder, cfg Config, logger *slog.Logger) *Controller {
	def := DefaultConfig(cfg.Floor)
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.HighWater <= 0 || cfg.HighWater > 1 {
		cfg.HighWater = def.HighWater
	}
	if cfg.LowWater <= 0 || cfg.LowWater >= cfg.HighWater {
		cfg.LowWater = cfg.HighWater / 2
	}
	if cfg.Floor < 1 {
		cfg.Floor = 1
	}
	if cfg.Increment < 1 {
		cfg.Increment = cfg.Floor
	}

	return &Controller{
		gov:    gov,
		rec:    rec,
		cfg:    cfg,
		logger: logger.With("component", "adaptive-controller"),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins the monitoring loop. Blocks until ctx is cancelled or Stop
// is called.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	c.started = time.Now()
	c.lastTick = c.started
	c.mu.Unlock()

	c.logger.Debug("controller started",
		"interval", c.cfg.Interval,
		"floor", c.cfg.Floor,
		"increment", c.cfg.Increment,
	)

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			close(c.doneCh)
			return ctx.Err()
		case <-c.stopCh:
			close(c.doneCh)
			return nil
		case now := <-ticker.C:
			c.Tick(now)
		}
	}
}

// Stop signals the loop to exit and waits for it. Safe to call more than
// once; must not be called unless Start has been (or will be) invoked.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	<-c.doneCh
}

// Tick runs one control iteration against the supplied clock reading.
// Exported so tests can drive the loop without timers.
func (c *Controller) Tick(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	completed := c.rec.CompletedCount()
	admitted, ceiling := c.gov.Occupancy()

	if c.lastTick.IsZero() {
		c.started = now
		c.lastTick = now.Add(-c.cfg.Interval)
	}
	elapsed := now.Sub(c.lastTick)
	if elapsed <= 0 {
		elapsed = c.cfg.Interval
	}
	throughput := float64(completed-c.lastCompleted) / elapsed.Seconds()

	switch {
	case float64(admitted) >= c.cfg.HighWater*float64(ceiling) && throughput >= c.lastThroughput:
		c.gov.SetCeiling(ceiling + c.cfg.Increment)
		c.logger.Debug("ceiling raised",
			"ceiling", ceiling+c.cfg.Increment,
			"admitted", admitted,
			"throughput", throughput,
		)
	case float64(admitted) <= c.cfg.LowWater*float64(ceiling) && ceiling > c.cfg.Floor:
		lowered := ceiling - c.cfg.Increment
		if lowered < c.cfg.Floor {
			lowered = c.cfg.Floor
		}
		c.gov.SetCeiling(lowered)
		c.logger.Debug("ceiling lowered",
			"ceiling", lowered,
			"admitted", admitted,
			"throughput", throughput,
		)
	}

	c.history = append(c.history, TickSample{
		Offset:     now.Sub(c.started),
		Throughput: throughput,
		Admitted:   admitted,
		Ceiling:    ceiling,
	})
	c.lastTick = now
	c.lastCompleted = completed
	c.lastThroughput = throughput
}

// History returns a copy of the per-tick diagnostics collected so far.
func (c *Controller) History() []TickSample {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]TickSample, len(c.history))
	copy(out, c.history)
	return out
}
