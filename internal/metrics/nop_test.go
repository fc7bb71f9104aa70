package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/dinglinghu/must-ps/types"
)

func TestNopMetrics_DoesNotPanic(t *testing.T) {
	m := NewNop()

	require.NotPanics(t, func() {
		m.RecordStateTransition(types.StateIdle, types.StateCollecting)
		m.RecordCycleDuration(1.5, 3)
		m.RecordNegotiation(types.NegotiationConverged, 2, 0.3)
		m.RecordMemberAbstain("sat-1")
		m.RecordOracleFailure("sat-2")
		m.SetReservedSlots(1)
		m.SetQueueDepth(0)
	})
}

func TestPrometheusCollector_RecordsWithoutPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheus(reg, "mustps_test")

	m.RecordStateTransition(types.StateIdle, types.StateCollecting)
	m.RecordCycleDuration(0.25, 1)
	m.RecordNegotiation(types.NegotiationTimedOut, 3, 1.1)
	m.RecordMemberAbstain("sat-1")
	m.RecordOracleFailure("sat-2")
	m.SetReservedSlots(2)
	m.SetQueueDepth(5)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	require.True(t, names["mustps_test_cycle_duration_seconds"])
	require.True(t, names["mustps_test_negotiation_concluded_total"])
	require.True(t, names["mustps_test_fleet_reserved_slots"])
}

func TestPrometheusCollector_SharedRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()

	a := NewPrometheus(reg, "shared")
	b := NewPrometheus(reg, "shared")

	require.NotPanics(t, func() {
		a.SetQueueDepth(1)
		b.SetQueueDepth(2)
	})
}
