package distributor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dinglinghu/must-ps/fleet"
	"github.com/dinglinghu/must-ps/internal/logging"
	"github.com/dinglinghu/must-ps/internal/metrics"
	"github.com/dinglinghu/must-ps/scorer"
	mustpstest "github.com/dinglinghu/must-ps/testing"
	"github.com/dinglinghu/must-ps/types"
)

var refPoint = types.Position{Lat: 30, Lon: 100, Alt: 0}

// newFixture builds a registry of n units with the given capacity and an
// oracle placing unit i at distances[i] km from the reference point.
func newFixture(t *testing.T, capacity int, distances []float64) (*fleet.Registry, *mustpstest.StaticOracle, *Distributor) {
	t.Helper()

	specs := make([]types.UnitSpec, 0, len(distances))
	oracle := mustpstest.NewStaticOracle()
	for i, km := range distances {
		id := fmt.Sprintf("sat-%d", i+1)
		specs = append(specs, types.UnitSpec{ID: id, Capacity: capacity})
		mustpstest.PlaceAtDistance(oracle, id, refPoint, km)
	}

	reg, err := fleet.NewRegistry(specs)
	require.NoError(t, err)

	sc, err := scorer.New(scorer.DefaultWeights())
	require.NoError(t, err)

	d := New(reg, oracle, sc, 2, logging.NewNop(), metrics.NewNop())

	return reg, oracle, d
}

func newTarget(id string) *types.Target {
	return types.NewTarget(types.TargetDescriptor{
		ID:         id,
		DetectedAt: time.Now(),
		Position:   refPoint,
	})
}

func TestDistribute_NearestLeaderAndKMembers(t *testing.T) {
	_, _, d := newFixture(t, 2, []float64{10, 25, 40})
	target := newTarget("tgt-1")

	plan, err := d.Distribute(context.Background(), target, time.Now())
	require.NoError(t, err)

	require.Equal(t, "sat-1", plan.Leader, "leader must be the unit at 10km")
	require.Equal(t, []string{"sat-2", "sat-3"}, plan.Members, "members are the next K=2 nearest")
	require.Equal(t, types.TargetNegotiating, target.State())
	require.Greater(t, plan.Initial.Composite, 0.0)
}

func TestDistribute_DeterministicTieBreak(t *testing.T) {
	// All units equidistant: the lowest ID must win.
	_, _, d := newFixture(t, 1, []float64{15, 15, 15})
	target := newTarget("tgt-1")

	plan, err := d.Distribute(context.Background(), target, time.Now())
	require.NoError(t, err)
	require.Equal(t, "sat-1", plan.Leader)
	require.Equal(t, []string{"sat-2", "sat-3"}, plan.Members)
}

func TestDistribute_ReservesLeaderSlot(t *testing.T) {
	reg, _, d := newFixture(t, 1, []float64{10, 25})

	plan, err := d.Distribute(context.Background(), newTarget("tgt-1"), time.Now())
	require.NoError(t, err)
	require.Equal(t, "sat-1", plan.Leader)

	snap, err := reg.SnapshotUnit("sat-1")
	require.NoError(t, err)
	require.Equal(t, 1, snap.Reserved)
	require.Equal(t, 0, snap.Spare())

	// A concurrent distribution cannot double-claim the leader: with
	// sat-1 fully reserved the next target goes to sat-2.
	plan2, err := d.Distribute(context.Background(), newTarget("tgt-2"), time.Now())
	require.NoError(t, err)
	require.Equal(t, "sat-2", plan2.Leader)
}

func TestDistribute_Release(t *testing.T) {
	reg, _, d := newFixture(t, 1, []float64{10})
	target := newTarget("tgt-1")

	plan, err := d.Distribute(context.Background(), target, time.Now())
	require.NoError(t, err)

	d.Release(plan, target)

	require.Equal(t, types.TargetUnassigned, target.State())
	snap, err := reg.SnapshotUnit("sat-1")
	require.NoError(t, err)
	require.Equal(t, 0, snap.Reserved)
}

func TestDistribute_NoUnitsAvailable(t *testing.T) {
	reg, _, d := newFixture(t, 1, []float64{10, 25})

	// Saturate the fleet.
	require.NoError(t, reg.Commit("sat-1", "other-1", types.RoleLeader))
	require.NoError(t, reg.Commit("sat-2", "other-2", types.RoleLeader))

	target := newTarget("tgt-1")
	_, err := d.Distribute(context.Background(), target, time.Now())
	require.ErrorIs(t, err, ErrNoUnitsAvailable)
	require.Equal(t, types.TargetUnassigned, target.State(), "target must remain unassigned, never lost")
}

func TestDistribute_OracleFailureExcludesUnit(t *testing.T) {
	_, oracle, d := newFixture(t, 2, []float64{10, 25, 40})
	oracle.FailUnit("sat-1")

	plan, err := d.Distribute(context.Background(), newTarget("tgt-1"), time.Now())
	require.NoError(t, err)
	require.Equal(t, "sat-2", plan.Leader, "failed unit is excluded for this cycle")
	require.NotContains(t, plan.Members, "sat-1")
}

func TestDistribute_WholeFleetUnavailable(t *testing.T) {
	_, oracle, d := newFixture(t, 2, []float64{10, 25})
	oracle.FailUnit("sat-1")
	oracle.FailUnit("sat-2")

	_, err := d.Distribute(context.Background(), newTarget("tgt-1"), time.Now())
	require.ErrorIs(t, err, ErrFleetUnavailable)
}

func TestDistribute_MemberCountBounded(t *testing.T) {
	_, _, d := newFixture(t, 2, []float64{10, 20, 30, 40, 50, 60})

	plan, err := d.Distribute(context.Background(), newTarget("tgt-1"), time.Now())
	require.NoError(t, err)
	require.Len(t, plan.Members, 2, "member candidates bounded by K")
}

func TestDistributor_CacheReset(t *testing.T) {
	_, _, d := newFixture(t, 2, []float64{10, 25})

	_, err := d.Distribute(context.Background(), newTarget("tgt-1"), time.Now())
	require.NoError(t, err)

	require.NotPanics(t, func() { d.ResetCache() })
}
