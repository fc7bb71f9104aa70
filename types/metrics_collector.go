package types

// MetricsCollector receives operational metrics from the planning system.
//
// Implementations must be safe for concurrent use. The library defaults to a
// no-op collector; a Prometheus-backed implementation is provided in
// internal/metrics and can be injected via the WithMetrics option.
type MetricsCollector interface {
	// RecordStateTransition records a manager state transition.
	RecordStateTransition(from, to State)

	// RecordCycleDuration records a completed cycle's duration in seconds
	// along with the number of results it produced.
	RecordCycleDuration(seconds float64, results int)

	// RecordNegotiation records a concluded negotiation with its terminal
	// status and the number of rounds it ran.
	RecordNegotiation(status NegotiationStatus, rounds int, seconds float64)

	// RecordMemberAbstain counts a synthetic abstain substitution for a
	// member timeout or error.
	RecordMemberAbstain(unitID string)

	// RecordOracleFailure counts a position oracle failure that excluded a
	// unit from candidate selection.
	RecordOracleFailure(unitID string)

	// SetReservedSlots records the current number of reserved fleet slots.
	SetReservedSlots(count int)

	// SetQueueDepth records the current target queue depth.
	SetQueueDepth(depth int)
}
