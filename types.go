package mustps

import "github.com/dinglinghu/must-ps/types"

// Re-export types from the types subpackage.
//
// This file provides a stable public API for the library's core types and
// interfaces. It uses type aliases to re-export definitions from the `types`
// subpackage, which contains the actual implementations.
//
// This pattern solves the "import cycle" problem by allowing subpackages to
// depend on `types` without depending on the root `mustps` package, while
// still providing a convenient `mustps.State`, `mustps.Logger`, etc. for
// users.
type (
	State               = types.State
	ThreatLevel         = types.ThreatLevel
	TargetState         = types.TargetState
	TargetDescriptor    = types.TargetDescriptor
	Target              = types.Target
	Position            = types.Position
	UnitSpec            = types.UnitSpec
	UnitSnapshot        = types.UnitSnapshot
	Proposal            = types.Proposal
	ProposalContext     = types.ProposalContext
	NegotiationRound    = types.NegotiationRound
	Negotiation         = types.Negotiation
	NegotiationStatus   = types.NegotiationStatus
	Role                = types.Role
	Assignment          = types.Assignment
	OptimizationMetrics = types.OptimizationMetrics
	ResultStatus        = types.ResultStatus
	TargetResult        = types.TargetResult
	CycleResult         = types.CycleResult
)

// Re-export interfaces from the types subpackage for convenience.
type (
	PositionOracle    = types.PositionOracle
	DecisionEvaluator = types.DecisionEvaluator
	MetricsCollector  = types.MetricsCollector
	Logger            = types.Logger
	Hooks             = types.Hooks
)

// Re-export State constants from the types subpackage.
const (
	StateIdle         = types.StateIdle
	StateCollecting   = types.StateCollecting
	StateDistributing = types.StateDistributing
	StateNegotiating  = types.StateNegotiating
	StateCompleting   = types.StateCompleting
	StateShutdown     = types.StateShutdown
)

// Re-export threat level constants.
const (
	ThreatLow      = types.ThreatLow
	ThreatMedium   = types.ThreatMedium
	ThreatHigh     = types.ThreatHigh
	ThreatCritical = types.ThreatCritical
)

// Re-export negotiation status constants.
const (
	NegotiationActive    = types.NegotiationActive
	NegotiationConverged = types.NegotiationConverged
	NegotiationTimedOut  = types.NegotiationTimedOut
	NegotiationFailed    = types.NegotiationFailed
)

// Re-export result status constants.
const (
	ResultConverged = types.ResultConverged
	ResultTimedOut  = types.ResultTimedOut
	ResultFailed    = types.ResultFailed
	ResultFallback  = types.ResultFallback
)

// Re-export role constants.
const (
	RoleLeader = types.RoleLeader
	RoleMember = types.RoleMember
)
