package scorer

import (
	"fmt"
	"math"
	"sort"

	"github.com/dinglinghu/must-ps/types"
)

// Candidate is one unit's contribution to a candidate group: its identity,
// resolved position, and resource state at scoring time.
type Candidate struct {
	// ID is the unit identifier.
	ID string

	// Position is the unit's resolved position.
	Position types.Position

	// Capacity is the unit's declared tracking capacity.
	Capacity int

	// Load is the unit's utilization in [0, 1], interpreted as the fraction
	// of the requested window the unit is already busy.
	Load float64
}

// Scorer computes OptimizationMetrics for candidate groups.
//
// A Scorer is immutable after construction and safe for concurrent use.
type Scorer struct {
	weights Weights
}

// New creates a scorer with the given composite weights.
//
// Parameters:
//   - w: Composite weights; must be non-negative and sum to 1
//
// Returns:
//   - *Scorer: Initialized scorer
//   - error: Weight validation error (configuration is rejected here, at
//     load time, never at scoring time)
func New(w Weights) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scorer weights: %w", err)
	}

	return &Scorer{weights: w}, nil
}

// Score computes the optimization metrics for a candidate group tracking the
// given target.
//
// Score is pure: the same group and target always yield bit-identical
// metrics regardless of input ordering (the group is sorted internally).
//
// Parameters:
//   - group: Candidate units forming the tracking group (at least one)
//   - target: The target under consideration
//
// Returns:
//   - types.OptimizationMetrics: Sub-scores and weighted composite, all in [0, 1]
func (s *Scorer) Score(group []Candidate, target types.TargetDescriptor) types.OptimizationMetrics {
	if len(group) == 0 {
		return types.OptimizationMetrics{}
	}

	sorted := make([]Candidate, len(group))
	copy(sorted, group)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	geometry := geometryScore(target.Position, sorted)
	sched := schedulabilityScore(sorted)
	robust := s.robustnessScore(target.Position, sorted, geometry, sched)

	composite := s.weights.Geometry*geometry +
		s.weights.Schedulability*sched +
		s.weights.Robustness*robust

	return types.OptimizationMetrics{
		Geometry:       geometry,
		Schedulability: sched,
		Robustness:     robust,
		Composite:      composite,
	}
}

// geometryScore maps the group's best pairwise dilution into (0, 1]:
// lower dilution is better, so score = 1/(1+gdop).
func geometryScore(target types.Position, group []Candidate) float64 {
	d := groupDilution(target, group)
	if math.IsInf(d, 1) {
		return 0
	}

	return 1 / (1 + d)
}

// schedulabilityScore estimates the fraction of the requested window the
// group can jointly cover. Each unit's load is treated as the fraction of
// the window it is already busy; the jointly uncovered fraction is the
// product of the loads.
func schedulabilityScore(group []Candidate) float64 {
	uncovered := 1.0
	for _, c := range group {
		load := math.Max(0, math.Min(1, c.Load))
		uncovered *= load
	}

	return 1 - uncovered
}

// robustnessScore measures worst-case quality degradation when any single
// member is removed. Quality is the unweighted mean of geometry and
// schedulability; a single-unit group has zero robustness by definition.
func (s *Scorer) robustnessScore(target types.Position, group []Candidate, geometry, sched float64) float64 {
	if len(group) < 2 {
		return 0
	}

	full := (geometry + sched) / 2
	if full <= 0 {
		return 0
	}

	worst := full
	reduced := make([]Candidate, 0, len(group)-1)
	for drop := range group {
		reduced = reduced[:0]
		for i, c := range group {
			if i != drop {
				reduced = append(reduced, c)
			}
		}

		q := (geometryScore(target, reduced) + schedulabilityScore(reduced)) / 2
		if q < worst {
			worst = q
		}
	}

	degradation := (full - worst) / full

	return math.Max(0, math.Min(1, 1-degradation))
}
