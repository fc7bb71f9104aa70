package types

import (
	"sync"
	"time"
)

// ThreatLevel classifies the urgency of a detected target.
type ThreatLevel int

const (
	// ThreatLow is a low-urgency target.
	ThreatLow ThreatLevel = iota

	// ThreatMedium is a medium-urgency target.
	ThreatMedium

	// ThreatHigh is a high-urgency target.
	ThreatHigh

	// ThreatCritical is the highest urgency classification.
	ThreatCritical
)

// String returns the string representation of the threat level.
func (t ThreatLevel) String() string {
	switch t {
	case ThreatLow:
		return "Low"
	case ThreatMedium:
		return "Medium"
	case ThreatHigh:
		return "High"
	case ThreatCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// TargetState represents the assignment state of a target within a cycle.
type TargetState int

const (
	// TargetUnassigned indicates the target has no assignment yet.
	TargetUnassigned TargetState = iota

	// TargetNegotiating indicates a negotiation is in progress for the target.
	TargetNegotiating

	// TargetAssigned indicates the target has a final assignment for the
	// remainder of the current cycle.
	TargetAssigned
)

// String returns the string representation of the target state.
func (s TargetState) String() string {
	switch s {
	case TargetUnassigned:
		return "Unassigned"
	case TargetNegotiating:
		return "Negotiating"
	case TargetAssigned:
		return "Assigned"
	default:
		return "Unknown"
	}
}

// TargetDescriptor describes a detected target as submitted by the ingestion
// path. Descriptors are immutable value types.
type TargetDescriptor struct {
	// ID uniquely identifies the target.
	ID string `json:"id" yaml:"id"`

	// DetectedAt is the detection timestamp.
	DetectedAt time.Time `json:"detectedAt" yaml:"detectedAt"`

	// ThreatLevel classifies the target's urgency. Carried as data for
	// decision evaluators; it does not influence queue ordering.
	ThreatLevel ThreatLevel `json:"threatLevel" yaml:"threatLevel"`

	// Position is the target's reference position at detection time.
	Position Position `json:"position" yaml:"position"`

	// Trajectory is an opaque trajectory blob passed through to decision
	// evaluators. The core never interprets it.
	Trajectory []byte `json:"trajectory,omitempty" yaml:"trajectory,omitempty"`
}

// Target is a detected target tracked through a planning cycle.
//
// State is mutated only by the distributor (Unassigned → Negotiating) and by
// the cycle manager when a negotiation concludes (→ Assigned, or back to
// Unassigned on failure). Once Assigned, the target is immutable for the
// remainder of the cycle.
type Target struct {
	TargetDescriptor

	mu    sync.Mutex
	state TargetState
}

// NewTarget creates a target in the Unassigned state from a descriptor.
//
// Parameters:
//   - desc: Immutable target descriptor
//
// Returns:
//   - *Target: Target ready for distribution
func NewTarget(desc TargetDescriptor) *Target {
	return &Target{TargetDescriptor: desc}
}

// State returns the target's current assignment state.
func (t *Target) State() TargetState {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.state
}

// SetState transitions the target to a new assignment state.
//
// Transitions out of TargetAssigned are rejected: a target is immutable once
// assigned for the remainder of the cycle.
//
// Returns:
//   - bool: true if the transition was applied
func (t *Target) SetState(next TargetState) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == TargetAssigned {
		return false
	}
	t.state = next

	return true
}
