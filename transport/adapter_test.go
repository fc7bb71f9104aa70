package transport

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	"github.com/dinglinghu/must-ps/internal/logging"
	mustpstest "github.com/dinglinghu/must-ps/testing"
	"github.com/dinglinghu/must-ps/types"
)

// captureSink records submitted target descriptors.
type captureSink struct {
	mu    sync.Mutex
	descs []types.TargetDescriptor
}

func (s *captureSink) SubmitDetectedTargets(descs ...types.TargetDescriptor) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.descs = append(s.descs, descs...)

	return len(descs), nil
}

func (s *captureSink) received() []types.TargetDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]types.TargetDescriptor(nil), s.descs...)
}

func startAdapter(t *testing.T, nc *nats.Conn, sink TargetSink) *Adapter {
	t.Helper()

	adapter, err := New(nc, Config{}, sink, logging.NewNop())
	require.NoError(t, err)
	require.NoError(t, adapter.Start(context.Background()))
	t.Cleanup(func() {
		_ = adapter.Stop()
	})

	return adapter
}

func TestNew_Validation(t *testing.T) {
	_, nc := mustpstest.StartEmbeddedNATS(t)

	_, err := New(nil, Config{}, &captureSink{}, logging.NewNop())
	require.ErrorIs(t, err, ErrConnRequired)

	_, err = New(nc, Config{}, nil, logging.NewNop())
	require.ErrorIs(t, err, ErrSinkRequired)
}

func TestAdapter_StartStop(t *testing.T) {
	_, nc := mustpstest.StartEmbeddedNATS(t)

	adapter, err := New(nc, Config{}, &captureSink{}, logging.NewNop())
	require.NoError(t, err)

	require.ErrorIs(t, adapter.Stop(), ErrNotStarted)
	require.NoError(t, adapter.Start(context.Background()))
	require.ErrorIs(t, adapter.Start(context.Background()), ErrAlreadyStarted)
	require.NoError(t, adapter.Stop())
	require.ErrorIs(t, adapter.Stop(), ErrNotStarted)
}

func TestAdapter_IngestsDetections(t *testing.T) {
	_, nc := mustpstest.StartEmbeddedNATS(t)
	sink := &captureSink{}
	adapter := startAdapter(t, nc, sink)

	desc := types.TargetDescriptor{
		ID:          "tgt-1",
		DetectedAt:  time.Now().UTC(),
		ThreatLevel: types.ThreatCritical,
		Position:    types.Position{Lat: 30, Lon: 100},
	}
	payload, err := json.Marshal(desc)
	require.NoError(t, err)

	require.NoError(t, nc.Publish(adapter.cfg.TargetSubject, payload))

	require.Eventually(t, func() bool {
		return len(sink.received()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	got := sink.received()[0]
	require.Equal(t, "tgt-1", got.ID)
	require.Equal(t, types.ThreatCritical, got.ThreatLevel)
}

func TestAdapter_MalformedDetectionDropped(t *testing.T) {
	_, nc := mustpstest.StartEmbeddedNATS(t)
	sink := &captureSink{}
	adapter := startAdapter(t, nc, sink)

	require.NoError(t, nc.Publish(adapter.cfg.TargetSubject, []byte("not json")))

	valid, err := json.Marshal(types.TargetDescriptor{ID: "tgt-ok"})
	require.NoError(t, err)
	require.NoError(t, nc.Publish(adapter.cfg.TargetSubject, valid))

	require.Eventually(t, func() bool {
		return len(sink.received()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, "tgt-ok", sink.received()[0].ID)
}

func TestAdapter_PublishCycleResult(t *testing.T) {
	_, nc := mustpstest.StartEmbeddedNATS(t)
	adapter := startAdapter(t, nc, &captureSink{})

	sub, err := nc.SubscribeSync(adapter.cfg.ResultSubject)
	require.NoError(t, err)

	result := &types.CycleResult{
		Seq:       7,
		ID:        "cycle-7-1700000000",
		StartedAt: time.Now().UTC(),
		EndedAt:   time.Now().UTC(),
		Results: []types.TargetResult{
			{
				TargetID: "tgt-1",
				Assignment: []types.Assignment{
					{UnitID: "sat-1", Role: types.RoleLeader},
					{UnitID: "sat-2", Role: types.RoleMember},
				},
				Status: types.ResultConverged,
			},
			{
				TargetID: "tgt-2",
				Assignment: []types.Assignment{
					{UnitID: "sat-1", Role: types.RoleLeader},
				},
				Status:   types.ResultFallback,
				Degraded: true,
			},
		},
	}

	require.NoError(t, adapter.PublishCycleResult(context.Background(), result))

	msg, err := sub.NextMsg(5 * time.Second)
	require.NoError(t, err)

	var decoded types.CycleResult
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	require.Equal(t, uint64(7), decoded.Seq)
	require.Len(t, decoded.Results, 2)

	// The bulletin groups assignments per unit: sat-1 leads both targets.
	entry, err := adapter.kv.Get(context.Background(), "sat-1")
	require.NoError(t, err)

	var bulletin UnitBulletin
	require.NoError(t, json.Unmarshal(entry.Value(), &bulletin))
	require.Equal(t, "sat-1", bulletin.UnitID)
	require.Equal(t, uint64(7), bulletin.CycleSeq)
	require.Len(t, bulletin.Assignments, 2)

	entry, err = adapter.kv.Get(context.Background(), "sat-2")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(entry.Value(), &bulletin))
	require.Len(t, bulletin.Assignments, 1)
	require.Equal(t, "tgt-1", bulletin.Assignments[0].TargetID)
}

func TestAdapter_PublishBeforeStart(t *testing.T) {
	_, nc := mustpstest.StartEmbeddedNATS(t)

	adapter, err := New(nc, Config{}, &captureSink{}, logging.NewNop())
	require.NoError(t, err)

	err = adapter.PublishCycleResult(context.Background(), &types.CycleResult{})
	require.ErrorIs(t, err, ErrNotStarted)
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	SetDefaults(&cfg)

	require.Equal(t, "mustps.targets.detected", cfg.TargetSubject)
	require.Equal(t, "mustps.cycles.completed", cfg.ResultSubject)
	require.Equal(t, "mustps-assignment", cfg.AssignmentBucket)
	require.Equal(t, 10*time.Second, cfg.OperationTimeout)
	require.Zero(t, cfg.AssignmentTTL, "no expiration by default")
}
