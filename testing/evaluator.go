package testing

import (
	"context"
	"errors"
	"time"

	"github.com/dinglinghu/must-ps/types"
)

// EvaluatorFunc adapts a function to the DecisionEvaluator interface.
type EvaluatorFunc func(ctx context.Context, pc types.ProposalContext) (types.Proposal, error)

// Propose calls the wrapped function.
func (f EvaluatorFunc) Propose(ctx context.Context, pc types.ProposalContext) (types.Proposal, error) {
	return f(ctx, pc)
}

// WillingEvaluator returns an evaluator that always proposes the given
// willingness and endorses the given preferred group.
func WillingEvaluator(unitID string, willingness float64, preferred ...string) types.DecisionEvaluator {
	return EvaluatorFunc(func(_ context.Context, pc types.ProposalContext) (types.Proposal, error) {
		return types.Proposal{
			UnitID:      unitID,
			Round:       pc.Round,
			Willingness: willingness,
			Preferred:   preferred,
			Rationale:   "scripted willingness",
			At:          time.Now(),
		}, nil
	})
}

// ErroringEvaluator returns an evaluator that always fails. The protocol
// substitutes an abstain proposal for it.
func ErroringEvaluator() types.DecisionEvaluator {
	return EvaluatorFunc(func(_ context.Context, _ types.ProposalContext) (types.Proposal, error) {
		return types.Proposal{}, errors.New("evaluator failure injected")
	})
}

// StallingEvaluator returns an evaluator that blocks until its context is
// cancelled, simulating a member that exceeds its per-call timeout.
func StallingEvaluator() types.DecisionEvaluator {
	return EvaluatorFunc(func(ctx context.Context, _ types.ProposalContext) (types.Proposal, error) {
		<-ctx.Done()
		return types.Proposal{}, ctx.Err()
	})
}

// SequenceEvaluator returns an evaluator that replays one scripted proposal
// per round, falling back to the last entry when rounds outnumber the
// script.
func SequenceEvaluator(unitID string, script []types.Proposal) types.DecisionEvaluator {
	return EvaluatorFunc(func(_ context.Context, pc types.ProposalContext) (types.Proposal, error) {
		if len(script) == 0 {
			return types.Proposal{UnitID: unitID, Round: pc.Round, Abstain: true, At: time.Now()}, nil
		}
		idx := pc.Round - 1
		if idx >= len(script) {
			idx = len(script) - 1
		}
		p := script[idx]
		p.UnitID = unitID
		p.Round = pc.Round
		p.At = time.Now()

		return p, nil
	})
}
