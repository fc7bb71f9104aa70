package types

import "time"

// NegotiationStatus represents the lifecycle state of a negotiation.
type NegotiationStatus int

const (
	// NegotiationActive indicates the negotiation is running rounds.
	// At most one negotiation is Active across the whole system at a time.
	NegotiationActive NegotiationStatus = iota

	// NegotiationConverged indicates the group agreed on an assignment.
	NegotiationConverged

	// NegotiationTimedOut indicates the round limit or deadline was reached;
	// the final assignment is the best candidate from the last completed
	// round (best effort, not a cycle failure).
	NegotiationTimedOut

	// NegotiationFailed indicates every member failed or abstained in a
	// round; the cycle manager falls back to the distributor's initial
	// assignment.
	NegotiationFailed
)

// String returns the string representation of the status.
func (s NegotiationStatus) String() string {
	switch s {
	case NegotiationActive:
		return "Active"
	case NegotiationConverged:
		return "Converged"
	case NegotiationTimedOut:
		return "TimedOut"
	case NegotiationFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Terminal reports whether the status is a terminal state.
func (s NegotiationStatus) Terminal() bool {
	return s == NegotiationConverged || s == NegotiationTimedOut || s == NegotiationFailed
}

// Role identifies a unit's role within a final assignment.
type Role int

const (
	// RoleLeader is the unit responsible for coordinating the tracking group.
	RoleLeader Role = iota

	// RoleMember is a supporting unit in the tracking group.
	RoleMember
)

// String returns the string representation of the role.
func (r Role) String() string {
	switch r {
	case RoleLeader:
		return "Leader"
	case RoleMember:
		return "Member"
	default:
		return "Unknown"
	}
}

// Assignment binds one unit, with a role, into a target's tracking group.
type Assignment struct {
	UnitID string `json:"unitId"`
	Role   Role   `json:"role"`
}

// Negotiation is the aggregate record of one bounded multi-round negotiation
// for a single target. It is created by the consensus protocol, passed by
// handle into each round's fan-out, and immutable once concluded.
type Negotiation struct {
	// ID uniquely identifies the negotiation instance.
	ID string `json:"id"`

	// TargetID is the target under negotiation.
	TargetID string `json:"targetId"`

	// Leader is the coordinating unit selected by the distributor.
	Leader string `json:"leader"`

	// Members is the fixed set of recruited member unit IDs. Membership
	// never changes mid-negotiation.
	Members []string `json:"members"`

	// Rounds is the ordered sequence of completed rounds.
	Rounds []NegotiationRound `json:"rounds"`

	// Status is the negotiation's lifecycle state.
	Status NegotiationStatus `json:"status"`

	// Final is the concluded assignment (unit IDs with roles). Empty until
	// the negotiation reaches a terminal status other than Failed.
	Final []Assignment `json:"final,omitempty"`

	// Metrics are the optimization metrics of the final assignment.
	Metrics OptimizationMetrics `json:"metrics"`

	// StartedAt and EndedAt bound the negotiation's duration.
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`
}
