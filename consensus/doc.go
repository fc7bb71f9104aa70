// Package consensus runs one bounded multi-round negotiation among a leader
// and its recruited members for a single target.
//
// The protocol is a state machine:
//
//	Created → Round(n) → {Round(n+1) | Converged | TimedOut | Failed}
//
// On entering a round the leader fans a proposal request out to every
// participant concurrently; each participant's DecisionEvaluator call runs
// independently under a per-member timeout, and the round gathers all
// results before scoring. A member that times out or errors contributes a
// synthetic abstain proposal so the round always makes progress.
//
// Convergence is declared when the normalized score spread between the
// top-ranked and second-ranked candidate groupings exceeds the configured
// threshold, or when all active members endorse the same final group.
// Exhausting the round limit yields TimedOut with the best candidate from
// the last completed round; a round in which every member abstained yields
// Failed, and the cycle manager substitutes the distributor's initial
// assignment.
//
// If full parallel fan-out cannot be scheduled (the evaluation semaphore is
// exhausted), the round degrades to sequential member evaluation with
// identical round semantics, which is transparent to the cycle manager.
package consensus
