// Package scorer ranks candidate (group-of-units, target) pairings.
//
// The scorer combines three sub-scores into a weighted composite:
//
//   - Geometry: tracking-geometry quality derived from a pairwise
//     dilution-of-precision value (lower dilution is better)
//   - Schedulability: the fraction of the requested time window the group
//     can jointly cover without resource conflict
//   - Robustness: insensitivity of the pairing's quality to the loss of any
//     single member, computed by re-scoring the group with each member
//     removed and taking the worst-case degradation
//
// Score is a pure function: identical inputs always produce bit-identical
// OptimizationMetrics. There is no hidden state, no clock, and no
// randomness, which enables deterministic tie-breaking in the consensus
// protocol and straightforward testing.
package scorer
