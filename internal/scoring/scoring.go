// Package scoring reduces a completed workout to a single number.
package scoring

import (
	"fmt"
	"strings"

	"github.com/claude/nextrep/internal/models"
)

// Strategy scores a workout. Implementations must be pure.
type Strategy interface {
	Score(w models.Workout) float64
}

// StrategyFunc adapts an ordinary function to a Strategy.
type StrategyFunc func(w models.Workout) float64

// Score calls f(w).
func (f StrategyFunc) Score(w models.Workout) float64 {
	return f(w)
}

// feelingFactor weights sets scored by the Feeling strategy.
const feelingFactor = 1.2

// Volume sums weight × reps over every set. Sets with a missing input
// contribute 0.
var Volume Strategy = StrategyFunc(func(w models.Workout) float64 {
	var total float64
	for _, ex := range w.Exercises {
		for _, s := range ex.Sets {
			total += s.Volume()
		}
	}
	return total
})

// Feeling sums weight × reps × 1.2 over sets where both weight and reps are
// positive.
var Feeling Strategy = StrategyFunc(func(w models.Workout) float64 {
	var total float64
	for _, ex := range w.Exercises {
		for _, s := range ex.Sets {
			weight, reps := s.Weight(), s.Reps()
			if weight > 0 && reps > 0 {
				total += weight * float64(reps) * feelingFactor
			}
		}
	}
	return total
})

var strategies = map[string]Strategy{
	"volume":  Volume,
	"feeling": Feeling,
}

// ByName resolves a configured strategy name ("volume" or "feeling").
func ByName(name string) (Strategy, error) {
	s, ok := strategies[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown scoring strategy %q", name)
	}
	return s, nil
}

// Names lists the strategies ByName accepts.
func Names() []string {
	return []string{"volume", "feeling"}
}
