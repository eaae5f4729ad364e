package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/me/schedlab/pkg/model"
	"gopkg.in/yaml.v3"
)

// Cost hints are clamped to this range to avoid runaway synthetic workloads.
const (
	MinCostHint = 1
	MaxCostHint = 10000
)

// Ratios holds the relative weight of each task type in a generated batch.
// Weights need not sum to 1; only their proportions matter.
type Ratios struct {
	Compute float64 `yaml:"compute"`
	Memory  float64 `yaml:"memory"`
	IO      float64 `yaml:"io"`
	Mixed   float64 `yaml:"mixed"`
}

// Weight returns the ratio for the given task type.
func (r Ratios) Weight(t model.TaskType) float64 {
	switch t {
	case model.TaskTypeCompute:
		return r.Compute
	case model.TaskTypeMemory:
		return r.Memory
	case model.TaskTypeIO:
		return r.IO
	default:
		return r.Mixed
	}
}

// AdaptiveConfig holds the adaptive controller's tuning knobs.
type AdaptiveConfig struct {
	// Interval between controller ticks, as a time.ParseDuration string.
	Interval string `yaml:"interval"`

	// HighWater is the occupancy fraction above which the ceiling may rise.
	HighWater float64 `yaml:"high_water"`

	// LowWater is the occupancy fraction below which the ceiling may drop.
	LowWater float64 `yaml:"low_water"`

	// Increment is the ceiling step size. 0 means one worker-pool width.
	Increment int `yaml:"increment"`
}

// IntervalDuration parses Interval, falling back to 500ms.
func (a AdaptiveConfig) IntervalDuration() time.Duration {
	d, err := time.ParseDuration(a.Interval)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// Config holds all schedlab settings. Values not present in a config file
// keep their defaults; Normalize clamps out-of-range values rather than
// rejecting them.
type Config struct {
	Tasks   int   `yaml:"tasks"`
	Workers int   `yaml:"workers"`
	CostMin int   `yaml:"cost_min"`
	CostMax int   `yaml:"cost_max"`
	Seed    int64 `yaml:"seed"` // 0 = time-based

	Ratios Ratios `yaml:"ratios"`

	// PriorityOrder lists task types from highest to lowest tier for the
	// priority policy. Types omitted here are appended in declaration order.
	PriorityOrder []string `yaml:"priority_order"`

	// PartitionShares maps task type to its fraction of the worker budget
	// for the partitioned policy. Each type's budget is floor-clamped to 1.
	PartitionShares map[string]float64 `yaml:"partition_shares"`

	Adaptive AdaptiveConfig `yaml:"adaptive"`

	// StatusAddr, when non-empty, serves the live status API during a run.
	StatusAddr string `yaml:"status_addr"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// DefaultConfig returns sensible defaults. The priority order and partition
// shares are illustrative defaults, not tuned values; override them in a
// config file when benchmarking.
func DefaultConfig() Config {
	return Config{
		Tasks:   40,
		Workers: runtime.NumCPU(),
		CostMin: 5,
		CostMax: 50,
		Ratios:  Ratios{Compute: 1, Memory: 1, IO: 1, Mixed: 1},
		PriorityOrder: []string{
			string(model.TaskTypeCompute),
			string(model.TaskTypeMemory),
			string(model.TaskTypeMixed),
			string(model.TaskTypeIO),
		},
		PartitionShares: map[string]float64{
			string(model.TaskTypeCompute): 0.5,
			string(model.TaskTypeMemory):  0.3,
			string(model.TaskTypeIO):      0.1,
			string(model.TaskTypeMixed):   0.1,
		},
		Adaptive: AdaptiveConfig{
			Interval:  "500ms",
			HighWater: 0.8,
			LowWater:  0.4,
		},
		LogLevel:  "info",
		LogFormat: "auto",
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Normalize(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func clampCost(n int) int {
	if n < MinCostHint {
		return MinCostHint
	}
	if n > MaxCostHint {
		return MaxCostHint
	}
	return n
}

// Normalize clamps out-of-range values and validates fields that cannot be
// clamped to something usable.
func (c *Config) Normalize() error {
	if c.Tasks < 1 {
		c.Tasks = 1
	}
	if c.Workers < 1 {
		c.Workers = runtime.NumCPU()
	}
	c.CostMin = clampCost(c.CostMin)
	c.CostMax = clampCost(c.CostMax)
	if c.CostMax < c.CostMin {
		c.CostMin, c.CostMax = c.CostMax, c.CostMin
	}

	if c.Ratios.Compute < 0 {
		c.Ratios.Compute = 0
	}
	if c.Ratios.Memory < 0 {
		c.Ratios.Memory = 0
	}
	if c.Ratios.IO < 0 {
		c.Ratios.IO = 0
	}
	if c.Ratios.Mixed < 0 {
		c.Ratios.Mixed = 0
	}

	if _, err := c.PriorityTypes(); err != nil {
		return err
	}
	if _, err := c.Shares(); err != nil {
		return err
	}

	if c.Adaptive.HighWater <= 0 || c.Adaptive.HighWater > 1 {
		c.Adaptive.HighWater = 0.8
	}
	if c.Adaptive.LowWater <= 0 || c.Adaptive.LowWater >= c.Adaptive.HighWater {
		c.Adaptive.LowWater = c.Adaptive.HighWater / 2
	}
	if c.Adaptive.Increment < 0 {
		c.Adaptive.Increment = 0
	}

	return nil
}

// PriorityTypes returns the priority policy's tier order as task types.
// Types missing from the configured order are appended in declaration order
// so every generated task lands in some tier.
func (c Config) PriorityTypes() ([]model.TaskType, error) {
	seen := make(map[model.TaskType]bool, len(c.PriorityOrder))
	order := make([]model.TaskType, 0, 4)
	for _, s := range c.PriorityOrder {
		t, err := model.ParseTaskType(s)
		if err != nil {
			return nil, fmt.Errorf("priority_order: %w", err)
		}
		if seen[t] {
			return nil, fmt.Errorf("priority_order: duplicate type %q", t)
		}
		seen[t] = true
		order = append(order, t)
	}
	for _, t := range model.AllTaskTypes() {
		if !seen[t] {
			order = append(order, t)
		}
	}
	return order, nil
}

// Shares returns the partitioned policy's per-type worker-budget fractions.
// Negative shares are clamped to 0; unlisted types get 0 (their budget still
// floor-clamps to one worker at run time).
func (c Config) Shares() (map[model.TaskType]float64, error) {
	shares := make(map[model.TaskType]float64, len(c.PartitionShares))
	for s, frac := range c.PartitionShares {
		t, err := model.ParseTaskType(s)
		if err != nil {
			return nil, fmt.Errorf("partition_shares: %w", err)
		}
		if frac < 0 {
			frac = 0
		}
		shares[t] = frac
	}
	return shares, nil
}
