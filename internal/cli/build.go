package cli

import (
	"github.com/google/uuid"
	"github.com/me/schedlab/internal/control"
	"github.com/me/schedlab/internal/generate"
	"github.com/me/schedlab/internal/policy"
	"github.com/me/schedlab/internal/recorder"
	"github.com/me/schedlab/pkg/model"
)

// newRunID generates a unique run identifier.
func newRunID() string {
	return "run_" + uuid.New().String()[:8]
}

// generateBatch produces the task batch described by the active config.
func generateBatch() ([]model.TaskDescriptor, error) {
	gen := generate.NewGenerator(cfg.Seed)
	return gen.Generate(cfg.Tasks, generate.CostRange{Min: cfg.CostMin, Max: cfg.CostMax}, cfg.Ratios)
}

// buildRegistry wires every policy against the shared recorder. The adaptive
// policy is also returned directly so the status API can observe its
// governor and controller.
func buildRegistry(rec *recorder.Recorder) (*policy.Registry, *policy.Adaptive, error) {
	tiers, err := cfg.PriorityTypes()
	if err != nil {
		return nil, nil, err
	}
	shares, err := cfg.Shares()
	if err != nil {
		return nil, nil, err
	}

	ctrlCfg := control.Config{
		Interval:  cfg.Adaptive.IntervalDuration(),
		HighWater: cfg.Adaptive.HighWater,
		LowWater:  cfg.Adaptive.LowWater,
		Increment: cfg.Adaptive.Increment,
		Floor:     cfg.Workers,
	}
	adaptive := policy.NewAdaptive(cfg.Workers, ctrlCfg, rec, logger)

	reg := policy.NewRegistry(logger)
	reg.Register(policy.NewNaive(cfg.Workers, rec, logger))
	reg.Register(policy.NewGrouped(cfg.Workers, rec, logger))
	reg.Register(policy.NewPriority(cfg.Workers, tiers, rec, logger))
	reg.Register(policy.NewPartitioned(cfg.Workers, shares, rec, logger))
	reg.Register(adaptive)

	return reg, adaptive, nil
}
