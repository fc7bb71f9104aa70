package types

// OptimizationMetrics holds the three sub-scores and the weighted composite
// for a candidate (group-of-units, target) pairing.
//
// All scores are in [0, 1] with higher values better. Metrics are never
// mutated after computation.
type OptimizationMetrics struct {
	// Geometry is the tracking-geometry quality score derived from a
	// dilution-of-precision style value (lower dilution maps to a higher
	// score).
	Geometry float64 `json:"geometry"`

	// Schedulability is the fraction of the requested time window the
	// candidate group can jointly cover without resource conflict.
	Schedulability float64 `json:"schedulability"`

	// Robustness measures insensitivity of the assignment's quality to the
	// loss of any single member unit (worst-case degradation).
	Robustness float64 `json:"robustness"`

	// Composite is the weighted sum of the three sub-scores using
	// configuration-supplied weights.
	Composite float64 `json:"composite"`
}
