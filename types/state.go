package types

// State represents the planning manager lifecycle state.
//
// States follow a defined progression during a planning cycle:
//
//	StateIdle → StateCollecting → StateDistributing → StateNegotiating → StateCompleting → StateIdle
//
// StateShutdown is terminal.
type State int

const (
	// StateIdle indicates no cycle is in progress.
	StateIdle State = iota

	// StateCollecting indicates the manager is draining detected targets
	// from the ingestion queue.
	StateCollecting

	// StateDistributing indicates the distributor is selecting leaders and
	// member candidates for the drained targets.
	StateDistributing

	// StateNegotiating indicates a consensus negotiation is active.
	StateNegotiating

	// StateCompleting indicates the cycle result is being finalized.
	StateCompleting

	// StateShutdown indicates graceful shutdown is in progress.
	StateShutdown
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateCollecting:
		return "Collecting"
	case StateDistributing:
		return "Distributing"
	case StateNegotiating:
		return "Negotiating"
	case StateCompleting:
		return "Completing"
	case StateShutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}
