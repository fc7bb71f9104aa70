// Package distributor seeds each newly detected target with an initial
// responsible unit and a candidate member set.
//
// The leader is the unit with the minimum oracle distance to the target
// among units with spare capacity; members are the next K nearest units.
// Ties are broken by lowest unit ID so distribution is deterministic.
//
// Distribution has two side effects: the target is marked Negotiating, and
// one slot on the leader is reserved so a concurrent distribution cannot
// double-claim it. The reservation is released if the negotiation concludes
// Failed or TimedOut without using the leader.
package distributor
