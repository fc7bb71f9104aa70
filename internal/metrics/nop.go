// Package metrics provides MetricsCollector implementations: a no-op default
// and a Prometheus-backed collector.
package metrics

import "github.com/dinglinghu/must-ps/types"

// NopMetrics implements a no-op metrics collector.
//
// All metrics are discarded. Useful for testing or when external metrics
// collection is not wanted.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// RecordStateTransition discards the state transition metric.
func (n *NopMetrics) RecordStateTransition(_ /* from */, _ /* to */ types.State) {}

// RecordCycleDuration discards the cycle duration metric.
func (n *NopMetrics) RecordCycleDuration(_ /* seconds */ float64, _ /* results */ int) {}

// RecordNegotiation discards the negotiation metric.
func (n *NopMetrics) RecordNegotiation(_ types.NegotiationStatus, _ /* rounds */ int, _ /* seconds */ float64) {
}

// RecordMemberAbstain discards the abstain counter.
func (n *NopMetrics) RecordMemberAbstain(_ /* unitID */ string) {}

// RecordOracleFailure discards the oracle failure counter.
func (n *NopMetrics) RecordOracleFailure(_ /* unitID */ string) {}

// SetReservedSlots discards the reserved slots gauge.
func (n *NopMetrics) SetReservedSlots(_ /* count */ int) {}

// SetQueueDepth discards the queue depth gauge.
func (n *NopMetrics) SetQueueDepth(_ /* depth */ int) {}
