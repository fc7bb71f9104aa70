package types

import (
	"context"
	"time"
)

// Proposal is a single participant's structured response in one negotiation
// round. Proposals are immutable once produced and owned by the round that
// collected them.
type Proposal struct {
	// UnitID is the proposing unit.
	UnitID string `json:"unitId"`

	// Round is the round number the proposal belongs to (1-based).
	Round int `json:"round"`

	// Willingness is the unit's self-assessed capability/availability score
	// in [0, 1]. Ignored when Abstain is set.
	Willingness float64 `json:"willingness"`

	// Preferred lists the unit IDs this participant endorses as the final
	// tracking group, in preference order. Used for the unanimous-top-choice
	// convergence check.
	Preferred []string `json:"preferred,omitempty"`

	// Abstain marks a synthetic proposal substituted for a member that timed
	// out or errored. Abstaining members do not influence convergence.
	Abstain bool `json:"abstain"`

	// Rationale is free-text reasoning from the evaluator. The core never
	// parses it or bases control decisions on it.
	Rationale string `json:"rationale,omitempty"`

	// At is the time the proposal was produced (or substituted).
	At time.Time `json:"at"`
}

// NegotiationRound records one synchronized fan-out/gather exchange.
//
// Proposals are kept in arrival order, which is not necessarily participant
// order. Rounds are immutable once appended to a negotiation.
type NegotiationRound struct {
	// Number is the 1-based round number. Rounds within a negotiation are
	// strictly ordered with no gaps or repeats.
	Number int `json:"number"`

	// Proposals holds the gathered proposals in arrival order.
	Proposals []Proposal `json:"proposals"`

	// Agreement is the normalized score spread between the top-ranked and
	// second-ranked candidate groupings, in [0, 1].
	Agreement float64 `json:"agreement"`

	// StartedAt and EndedAt bound the round's wall-clock duration.
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`
}

// Active returns the non-abstaining proposals of the round, in arrival order.
func (r NegotiationRound) Active() []Proposal {
	active := make([]Proposal, 0, len(r.Proposals))
	for _, p := range r.Proposals {
		if !p.Abstain {
			active = append(active, p)
		}
	}

	return active
}

// ProposalContext is the shared context a leader fans out to every member in
// a round. It carries the target description, the recruited group, all prior
// rounds' proposals, and the distributor's initial metrics reference.
type ProposalContext struct {
	// Target describes the target under negotiation.
	Target TargetDescriptor `json:"target"`

	// Round is the current round number (1-based).
	Round int `json:"round"`

	// Leader is the negotiation leader's unit ID.
	Leader string `json:"leader"`

	// Members lists the recruited member unit IDs (fixed for the lifetime of
	// the negotiation).
	Members []string `json:"members"`

	// History contains all completed prior rounds.
	History []NegotiationRound `json:"history,omitempty"`

	// Reference is the distributor's initial metrics snapshot for the
	// (leader+candidates, target) pairing.
	Reference OptimizationMetrics `json:"reference"`
}

// DecisionEvaluator produces a proposal for a unit given a round context.
//
// Evaluators are external, opaque capabilities (a rule engine, an optimizer,
// or a language-model call). Every invocation is bounded by a per-call
// timeout on ctx; an error or timeout is absorbed by the protocol as a
// synthetic abstain proposal and never propagated as fatal.
type DecisionEvaluator interface {
	// Propose returns the unit's structured proposal for the given context.
	Propose(ctx context.Context, pc ProposalContext) (Proposal, error)
}
