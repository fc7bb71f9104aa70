// Package types defines the core data model and interfaces shared across the
// must-ps planning system.
//
// This package has no dependencies on other must-ps packages, which allows
// internal packages to depend on it without importing the root mustps package.
// The root package re-exports the commonly used definitions via type aliases.
//
// The data model follows strict ownership rules:
//   - Target: mutated only by the distributor (initial claim) and the
//     consensus protocol (finalization)
//   - UnitSnapshot: read-only view of a fleet unit at a point in time
//   - Proposal, NegotiationRound, OptimizationMetrics: immutable once produced
//   - Negotiation: owned by the protocol instance that created it
package types
