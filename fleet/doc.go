// Package fleet maintains the arena of tracking units and their resource
// state.
//
// The registry is populated once at fleet initialization by an external
// factory collaborator; the planning core never creates or destroys units
// mid-cycle. Slot accounting follows a reserve/commit/release protocol:
//
//   - Reserve: the distributor holds a slot when it claims a unit for a
//     negotiation, so a concurrent distribution cannot double-claim it
//   - Commit: the cycle manager converts reservations into assignments when
//     a negotiation concludes with a tracking group
//   - Release: reservations are returned when a negotiation ends Failed or
//     TimedOut without using the unit
//
// No global lock is required: exactly one negotiation touches any given
// unit's reservation at a time, because units recruited into the active
// negotiation are excluded from recruitment into any other.
package fleet
