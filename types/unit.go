package types

// UnitSpec declares a tracking unit at fleet initialization time.
//
// The fleet is populated once by an external factory collaborator; the core
// never creates or destroys units mid-cycle.
type UnitSpec struct {
	// ID uniquely identifies the unit (e.g., "sat-07").
	ID string `json:"id" yaml:"id"`

	// Capacity is the maximum number of targets the unit can track
	// concurrently. Must be >= 1.
	Capacity int `json:"capacity" yaml:"capacity"`
}

// UnitSnapshot is a point-in-time, read-only view of a unit's resource state.
//
// Snapshots are taken by the fleet registry and consumed by the distributor
// and scorer. Mutating a snapshot has no effect on the underlying unit.
type UnitSnapshot struct {
	// ID is the unit identifier.
	ID string `json:"id"`

	// Capacity is the declared tracking capacity.
	Capacity int `json:"capacity"`

	// Assigned is the number of committed target assignments.
	Assigned int `json:"assigned"`

	// Reserved is the number of slots held by in-flight negotiations.
	Reserved int `json:"reserved"`

	// Position is the unit's resolved position, when known. Zero value when
	// the snapshot was taken without an oracle lookup.
	Position Position `json:"position"`
}

// Spare returns the number of free tracking slots, accounting for both
// committed assignments and outstanding reservations.
func (u UnitSnapshot) Spare() int {
	spare := u.Capacity - u.Assigned - u.Reserved
	if spare < 0 {
		return 0
	}

	return spare
}

// Load returns the unit's utilization as a fraction in [0, 1].
func (u UnitSnapshot) Load() float64 {
	if u.Capacity <= 0 {
		return 1.0
	}
	load := float64(u.Assigned+u.Reserved) / float64(u.Capacity)
	if load > 1.0 {
		return 1.0
	}

	return load
}
