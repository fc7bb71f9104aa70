package types

import "time"

// ResultStatus classifies how a target's cycle entry was produced.
type ResultStatus int

const (
	// ResultConverged indicates an assignment reached by consensus.
	ResultConverged ResultStatus = iota

	// ResultTimedOut indicates a best-effort assignment from the last
	// completed round after the round limit or deadline.
	ResultTimedOut

	// ResultFailed indicates the negotiation failed outright.
	ResultFailed

	// ResultFallback indicates the distributor's initial nearest-unit
	// assignment was substituted after a failed negotiation.
	ResultFallback
)

// String returns the string representation of the result status.
func (s ResultStatus) String() string {
	switch s {
	case ResultConverged:
		return "Converged"
	case ResultTimedOut:
		return "TimedOut"
	case ResultFailed:
		return "Failed"
	case ResultFallback:
		return "Fallback"
	default:
		return "Unknown"
	}
}

// TargetResult is one target's entry in a cycle result.
type TargetResult struct {
	// TargetID identifies the target.
	TargetID string `json:"targetId"`

	// Assignment is the final tracking group (possibly a single fallback
	// unit). Empty only if the target could not be assigned at all.
	Assignment []Assignment `json:"assignment,omitempty"`

	// Status classifies how the assignment was produced.
	Status ResultStatus `json:"status"`

	// Degraded marks entries produced without full consensus (TimedOut,
	// Failed, Fallback).
	Degraded bool `json:"degraded"`

	// Rounds is the number of negotiation rounds that completed.
	Rounds int `json:"rounds"`

	// Metrics are the optimization metrics of the final assignment.
	Metrics OptimizationMetrics `json:"metrics"`
}

// CycleResult is the output of one planning cycle, consumed by reporting and
// visualization collaborators.
type CycleResult struct {
	// Seq is the monotonically increasing cycle sequence number.
	Seq uint64 `json:"seq"`

	// ID uniquely identifies the cycle (derived from Seq and start time).
	ID string `json:"id"`

	// StartedAt and EndedAt bound the cycle.
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`

	// Results holds one entry per target that concluded this cycle, in
	// negotiation order. Append-only while the cycle is open.
	Results []TargetResult `json:"results"`

	// Carried lists targets still queued when the cycle deadline elapsed.
	// They roll into the next cycle preserving arrival order; a target is
	// never silently dropped.
	Carried []TargetDescriptor `json:"carried,omitempty"`
}
