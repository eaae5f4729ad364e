package generate

import (
	"math/rand"
	"time"

	"github.com/me/schedlab/internal/config"
	"github.com/me/schedlab/pkg/model"
)

// CostRange bounds the cost hints assigned to generated tasks.
type CostRange struct {
	Min int
	Max int
}

func clampCost(n int) int {
	if n < config.MinCostHint {
		return config.MinCostHint
	}
	if n > config.MaxCostHint {
		return config.MaxCostHint
	}
	return n
}

// Generator produces batches of task descriptors. It owns its own RNG so
// runs are reproducible when seeded.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a Generator. seed 0 selects a time-based seed.
func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Generate produces count task descriptors split across types in proportion
// to ratios. Counts and cost bounds are clamped rather than rejected; the
// only fatal input is a ratio set whose weights are all zero.
//
// The split guarantees at least one task of each type when count >= 4, and
// assigns leftover tasks to the heaviest-weighted type. IDs are dense from 0
// and the returned order is shuffled so submission order does not correlate
// with type.
func (g *Generator) Generate(count int, costs CostRange, ratios config.Ratios) ([]model.TaskDescriptor, error) {
	if count < 1 {
		count = 1
	}
	costs.Min = clampCost(costs.Min)
	costs.Max = clampCost(costs.Max)
	if costs.Max < costs.Min {
		costs.Min, costs.Max = costs.Max, costs.Min
	}

	types := model.AllTaskTypes()

	var total float64
	for _, t := range types {
		total += ratios.Weight(t)
	}
	if total <= 0 {
		return nil, &model.GenerationError{Reason: "all type ratios are zero"}
	}

	// Proportional floor split; leftovers go to the heaviest type.
	counts := make(map[model.TaskType]int, len(types))
	assigned := 0
	overflow := types[0]
	for _, t := range types {
		counts[t] = int(float64(count) * ratios.Weight(t) / total)
		assigned += counts[t]
		if ratios.Weight(t) > ratios.Weight(overflow) {
			overflow = t
		}
	}
	counts[overflow] += count - assigned

	// Every type gets representation once the batch is big enough, stolen
	// from whichever type currently holds the most tasks.
	if count >= len(types) {
		for _, t := range types {
			if counts[t] > 0 {
				continue
			}
			richest := overflow
			for _, r := range types {
				if counts[r] > counts[richest] {
					richest = r
				}
			}
			if counts[richest] <= 1 {
				continue
			}
			counts[richest]--
			counts[t] = 1
		}
	}

	tasks := make([]model.TaskDescriptor, 0, count)
	id := 0
	for _, t := range types {
		for i := 0; i < counts[t]; i++ {
			tasks = append(tasks, model.TaskDescriptor{
				ID:       id,
				Type:     t,
				CostHint: costs.Min + g.rng.Intn(costs.Max-costs.Min+1),
			})
			id++
		}
	}

	g.rng.Shuffle(len(tasks), func(i, j int) {
		tasks[i], tasks[j] = tasks[j], tasks[i]
	})

	return tasks, nil
}
