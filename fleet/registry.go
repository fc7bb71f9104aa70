package fleet

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/dinglinghu/must-ps/types"
)

// Sentinel errors returned by the Registry.
var (
	// ErrUnknownUnit is returned when an operation references a unit ID that
	// was not registered at fleet initialization.
	ErrUnknownUnit = errors.New("unknown unit")

	// ErrNoSpareCapacity is returned when a reservation would exceed a
	// unit's declared capacity.
	ErrNoSpareCapacity = errors.New("no spare capacity")

	// ErrNotReserved is returned when committing or releasing a reservation
	// that does not exist.
	ErrNotReserved = errors.New("unit has no reservation for target")
)

// unitRecord holds one unit's mutable resource state.
//
// The per-record mutex serializes reserve/commit/release for that unit only.
type unitRecord struct {
	spec types.UnitSpec

	mu        sync.Mutex
	assigned  map[string]types.Role // targetID -> role
	reserved  map[string]struct{}   // targetID -> reservation
	evaluator types.DecisionEvaluator
}

// Registry is the arena of unit records indexed by ID.
type Registry struct {
	units *xsync.Map[string, *unitRecord]
	ids   []string // registration order, fixed after construction
}

// NewRegistry creates a registry populated with the given unit specs.
//
// Parameters:
//   - specs: Unit declarations; IDs must be unique and capacities >= 1
//
// Returns:
//   - *Registry: Initialized registry
//   - error: Validation error for duplicate IDs or non-positive capacity
func NewRegistry(specs []types.UnitSpec) (*Registry, error) {
	r := &Registry{units: xsync.NewMap[string, *unitRecord]()}

	for _, spec := range specs {
		if spec.ID == "" {
			return nil, errors.New("unit ID must not be empty")
		}
		if spec.Capacity < 1 {
			return nil, fmt.Errorf("unit %s: capacity must be >= 1, got %d", spec.ID, spec.Capacity)
		}

		rec := &unitRecord{
			spec:     spec,
			assigned: make(map[string]types.Role),
			reserved: make(map[string]struct{}),
		}
		if _, loaded := r.units.LoadOrStore(spec.ID, rec); loaded {
			return nil, fmt.Errorf("duplicate unit ID %q", spec.ID)
		}
		r.ids = append(r.ids, spec.ID)
	}

	return r, nil
}

// SetEvaluator binds a decision evaluator to a unit.
//
// Evaluators are supplied by the external factory that builds the fleet; a
// unit without an evaluator abstains from every negotiation round.
//
// Returns:
//   - error: ErrUnknownUnit if the ID is not registered
func (r *Registry) SetEvaluator(unitID string, ev types.DecisionEvaluator) error {
	rec, ok := r.units.Load(unitID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUnit, unitID)
	}

	rec.mu.Lock()
	rec.evaluator = ev
	rec.mu.Unlock()

	return nil
}

// Evaluator returns the decision evaluator bound to a unit, or nil.
func (r *Registry) Evaluator(unitID string) types.DecisionEvaluator {
	rec, ok := r.units.Load(unitID)
	if !ok {
		return nil
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	return rec.evaluator
}

// Size returns the number of registered units.
func (r *Registry) Size() int {
	return len(r.ids)
}

// Snapshot returns read-only snapshots of every unit, sorted by unit ID for
// deterministic iteration.
func (r *Registry) Snapshot() []types.UnitSnapshot {
	snaps := make([]types.UnitSnapshot, 0, len(r.ids))
	r.units.Range(func(_ string, rec *unitRecord) bool {
		snaps = append(snaps, rec.snapshot())
		return true
	})

	sort.Slice(snaps, func(i, j int) bool { return snaps[i].ID < snaps[j].ID })

	return snaps
}

// SnapshotUnit returns a single unit's snapshot.
//
// Returns:
//   - types.UnitSnapshot: The unit's current state
//   - error: ErrUnknownUnit if the ID is not registered
func (r *Registry) SnapshotUnit(unitID string) (types.UnitSnapshot, error) {
	rec, ok := r.units.Load(unitID)
	if !ok {
		return types.UnitSnapshot{}, fmt.Errorf("%w: %s", ErrUnknownUnit, unitID)
	}

	return rec.snapshot(), nil
}

// Reserve holds one tracking slot on a unit for a target.
//
// The reservation blocks concurrent distributions from double-claiming the
// slot. Reserving the same (unit, target) pair twice is idempotent.
//
// Returns:
//   - error: ErrUnknownUnit or ErrNoSpareCapacity
func (r *Registry) Reserve(unitID, targetID string) error {
	rec, ok := r.units.Load(unitID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUnit, unitID)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if _, held := rec.reserved[targetID]; held {
		return nil
	}
	if len(rec.assigned)+len(rec.reserved) >= rec.spec.Capacity {
		return fmt.Errorf("%w: unit %s at %d/%d", ErrNoSpareCapacity,
			unitID, len(rec.assigned)+len(rec.reserved), rec.spec.Capacity)
	}
	rec.reserved[targetID] = struct{}{}

	return nil
}

// Commit converts a unit's reservation (or a fresh slot) into a committed
// assignment with the given role.
//
// A prior reservation is consumed when present; otherwise a free slot is
// taken directly, which covers members recruited without reservation.
//
// Returns:
//   - error: ErrUnknownUnit or ErrNoSpareCapacity
func (r *Registry) Commit(unitID, targetID string, role types.Role) error {
	rec, ok := r.units.Load(unitID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUnit, unitID)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if _, held := rec.reserved[targetID]; held {
		delete(rec.reserved, targetID)
	} else if len(rec.assigned)+len(rec.reserved) >= rec.spec.Capacity {
		return fmt.Errorf("%w: unit %s at %d/%d", ErrNoSpareCapacity,
			unitID, len(rec.assigned)+len(rec.reserved), rec.spec.Capacity)
	}
	rec.assigned[targetID] = role

	return nil
}

// Release returns a unit's reservation for a target without committing it.
//
// Returns:
//   - error: ErrUnknownUnit or ErrNotReserved
func (r *Registry) Release(unitID, targetID string) error {
	rec, ok := r.units.Load(unitID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUnit, unitID)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if _, held := rec.reserved[targetID]; !held {
		return fmt.Errorf("%w: unit %s, target %s", ErrNotReserved, unitID, targetID)
	}
	delete(rec.reserved, targetID)

	return nil
}

// Unassign removes a committed assignment, freeing the slot for the next
// cycle. Unknown (unit, target) pairs are ignored.
func (r *Registry) Unassign(unitID, targetID string) {
	rec, ok := r.units.Load(unitID)
	if !ok {
		return
	}

	rec.mu.Lock()
	delete(rec.assigned, targetID)
	rec.mu.Unlock()
}

// ReservedSlots returns the total number of outstanding reservations across
// the fleet.
func (r *Registry) ReservedSlots() int {
	total := 0
	r.units.Range(func(_ string, rec *unitRecord) bool {
		rec.mu.Lock()
		total += len(rec.reserved)
		rec.mu.Unlock()
		return true
	})

	return total
}

func (rec *unitRecord) snapshot() types.UnitSnapshot {
	rec.mu.Lock()
	defer rec.mu.Unlock()

	return types.UnitSnapshot{
		ID:       rec.spec.ID,
		Capacity: rec.spec.Capacity,
		Assigned: len(rec.assigned),
		Reserved: len(rec.reserved),
	}
}
