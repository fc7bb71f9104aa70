package fleet

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dinglinghu/must-ps/types"
)

func newTestRegistry(t *testing.T, capacity int, n int) *Registry {
	t.Helper()

	specs := make([]types.UnitSpec, 0, n)
	for i := 0; i < n; i++ {
		specs = append(specs, types.UnitSpec{ID: fmt.Sprintf("sat-%02d", i), Capacity: capacity})
	}

	reg, err := NewRegistry(specs)
	require.NoError(t, err)

	return reg
}

func TestNewRegistry_Validation(t *testing.T) {
	t.Run("duplicate IDs", func(t *testing.T) {
		_, err := NewRegistry([]types.UnitSpec{
			{ID: "sat-1", Capacity: 1},
			{ID: "sat-1", Capacity: 1},
		})
		require.Error(t, err)
		require.Contains(t, err.Error(), "duplicate")
	})

	t.Run("zero capacity", func(t *testing.T) {
		_, err := NewRegistry([]types.UnitSpec{{ID: "sat-1", Capacity: 0}})
		require.Error(t, err)
	})

	t.Run("empty ID", func(t *testing.T) {
		_, err := NewRegistry([]types.UnitSpec{{ID: "", Capacity: 1}})
		require.Error(t, err)
	})
}

func TestRegistry_ReserveCommitRelease(t *testing.T) {
	reg := newTestRegistry(t, 2, 1)

	require.NoError(t, reg.Reserve("sat-00", "tgt-1"))

	// Idempotent re-reserve.
	require.NoError(t, reg.Reserve("sat-00", "tgt-1"))

	snap, err := reg.SnapshotUnit("sat-00")
	require.NoError(t, err)
	require.Equal(t, 1, snap.Reserved)
	require.Equal(t, 1, snap.Spare())

	require.NoError(t, reg.Commit("sat-00", "tgt-1", types.RoleLeader))

	snap, err = reg.SnapshotUnit("sat-00")
	require.NoError(t, err)
	require.Equal(t, 0, snap.Reserved)
	require.Equal(t, 1, snap.Assigned)

	// Releasing a consumed reservation fails.
	require.ErrorIs(t, reg.Release("sat-00", "tgt-1"), ErrNotReserved)

	reg.Unassign("sat-00", "tgt-1")
	snap, err = reg.SnapshotUnit("sat-00")
	require.NoError(t, err)
	require.Equal(t, 0, snap.Assigned)
}

func TestRegistry_CapacityNeverExceeded(t *testing.T) {
	reg := newTestRegistry(t, 3, 1)

	// Saturate the unit with a mix of reservations and commits.
	require.NoError(t, reg.Reserve("sat-00", "tgt-1"))
	require.NoError(t, reg.Commit("sat-00", "tgt-2", types.RoleMember))
	require.NoError(t, reg.Reserve("sat-00", "tgt-3"))

	require.ErrorIs(t, reg.Reserve("sat-00", "tgt-4"), ErrNoSpareCapacity)
	require.ErrorIs(t, reg.Commit("sat-00", "tgt-5", types.RoleMember), ErrNoSpareCapacity)
}

func TestRegistry_ConcurrentReservations(t *testing.T) {
	const capacity = 4
	reg := newTestRegistry(t, capacity, 1)

	var wg sync.WaitGroup
	successes := make(chan string, 64)

	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			targetID := fmt.Sprintf("tgt-%d", i)
			if err := reg.Reserve("sat-00", targetID); err == nil {
				successes <- targetID
			}
		}(i)
	}
	wg.Wait()
	close(successes)

	var won []string
	for id := range successes {
		won = append(won, id)
	}

	// Exactly capacity reservations may succeed, never more.
	require.Len(t, won, capacity)

	snap, err := reg.SnapshotUnit("sat-00")
	require.NoError(t, err)
	require.Equal(t, capacity, snap.Reserved)
	require.Equal(t, 0, snap.Spare())
}

func TestRegistry_SnapshotDeterministicOrder(t *testing.T) {
	reg := newTestRegistry(t, 1, 5)

	first := reg.Snapshot()
	second := reg.Snapshot()

	require.Len(t, first, 5)
	for i := range first {
		require.Equal(t, first[i].ID, second[i].ID)
	}
	for i := 1; i < len(first); i++ {
		require.Less(t, first[i-1].ID, first[i].ID)
	}
}

func TestRegistry_Evaluators(t *testing.T) {
	reg := newTestRegistry(t, 1, 2)

	require.Nil(t, reg.Evaluator("sat-00"))
	require.ErrorIs(t, reg.SetEvaluator("sat-99", nil), ErrUnknownUnit)

	ev := evaluatorFunc(func(_ context.Context, pc types.ProposalContext) (types.Proposal, error) {
		return types.Proposal{UnitID: "sat-00", Round: pc.Round}, nil
	})
	require.NoError(t, reg.SetEvaluator("sat-00", ev))
	require.NotNil(t, reg.Evaluator("sat-00"))
}

type evaluatorFunc func(ctx context.Context, pc types.ProposalContext) (types.Proposal, error)

func (f evaluatorFunc) Propose(ctx context.Context, pc types.ProposalContext) (types.Proposal, error) {
	return f(ctx, pc)
}
