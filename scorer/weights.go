package scorer

import (
	"fmt"
	"math"
)

// weightSumTolerance bounds the acceptable floating-point drift when
// checking that weights sum to 1.
const weightSumTolerance = 1e-9

// Weights are the configuration-supplied composite weights.
//
// The three weights must be non-negative and sum to 1. Invalid weights are
// rejected when the scorer is constructed, never at scoring time.
type Weights struct {
	// Geometry weights the tracking-geometry sub-score.
	Geometry float64 `yaml:"geometry" json:"geometry"`

	// Schedulability weights the schedule-feasibility sub-score.
	Schedulability float64 `yaml:"schedulability" json:"schedulability"`

	// Robustness weights the single-member-loss robustness sub-score.
	Robustness float64 `yaml:"robustness" json:"robustness"`
}

// DefaultWeights returns the production default weighting.
func DefaultWeights() Weights {
	return Weights{
		Geometry:       0.4,
		Schedulability: 0.3,
		Robustness:     0.3,
	}
}

// Validate checks that all weights are non-negative and sum to 1.
//
// Returns:
//   - error: Description of the violated constraint, nil if valid
func (w Weights) Validate() error {
	if w.Geometry < 0 || w.Schedulability < 0 || w.Robustness < 0 {
		return fmt.Errorf("weights must be non-negative, got %+v", w)
	}

	sum := w.Geometry + w.Schedulability + w.Robustness
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("weights must sum to 1.0, got %v", sum)
	}

	return nil
}
