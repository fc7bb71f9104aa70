package consensus

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/dinglinghu/must-ps/distributor"
	"github.com/dinglinghu/must-ps/scorer"
	"github.com/dinglinghu/must-ps/types"
)

// Config controls a negotiation's round and convergence behavior.
type Config struct {
	// MaxRounds is the maximum number of rounds before the protocol gives
	// up and transitions to TimedOut. Must be >= 1.
	MaxRounds int

	// MemberTimeout bounds each member's DecisionEvaluator call per round.
	MemberTimeout time.Duration

	// ConvergenceThreshold is the normalized top-versus-second score spread
	// above which the round converges, in (0, 1].
	ConvergenceThreshold float64

	// MaxConcurrent caps the number of evaluator calls in flight during
	// fan-out. When the full parallel width cannot be acquired the round
	// degrades to sequential evaluation. 0 means one slot per participant
	// (always fully parallel).
	MaxConcurrent int
}

// Protocol executes one negotiation. A Protocol is single-use: create one
// per target, call Run once, and read the returned negotiation record.
type Protocol struct {
	cfg        Config
	target     *types.Target
	plan       *distributor.Plan
	evaluators map[string]types.DecisionEvaluator
	scorer     *scorer.Scorer
	logger     types.Logger
	metrics    types.MetricsCollector
	sem        *semaphore.Weighted
}

// New creates a protocol instance for one target.
//
// Parameters:
//   - cfg: Round and convergence configuration
//   - target: Target under negotiation (already claimed by the distributor)
//   - plan: Distributor output: leader, members, and initial metrics
//   - evaluators: DecisionEvaluator per participant unit ID; a missing
//     evaluator abstains in every round
//   - sc: Scorer for ranking candidate groupings
//   - logger: Structured logger
//   - collector: Metrics collector
//
// Returns:
//   - *Protocol: Single-use protocol instance
func New(
	cfg Config,
	target *types.Target,
	plan *distributor.Plan,
	evaluators map[string]types.DecisionEvaluator,
	sc *scorer.Scorer,
	logger types.Logger,
	collector types.MetricsCollector,
) *Protocol {
	width := cfg.MaxConcurrent
	if width <= 0 {
		width = 1 + len(plan.Members)
	}

	return &Protocol{
		cfg:        cfg,
		target:     target,
		plan:       plan,
		evaluators: evaluators,
		scorer:     sc,
		logger:     logger,
		metrics:    collector,
		sem:        semaphore.NewWeighted(int64(width)),
	}
}

// Run executes the negotiation until a terminal status is reached.
//
// Run never returns an error: every failure mode is absorbed into the
// negotiation's terminal status (Converged, TimedOut, or Failed) so the
// cycle always progresses. Cancelling ctx forces an immediate TimedOut.
//
// Parameters:
//   - ctx: Whole-negotiation deadline enforced by the cycle manager
//
// Returns:
//   - *types.Negotiation: Concluded negotiation record
func (p *Protocol) Run(ctx context.Context) *types.Negotiation {
	neg := &types.Negotiation{
		ID:        "neg-" + uuid.NewString()[:8],
		TargetID:  p.target.ID,
		Leader:    p.plan.Leader,
		Members:   append([]string(nil), p.plan.Members...),
		Status:    types.NegotiationActive,
		StartedAt: time.Now(),
	}

	p.logger.Info("negotiation started",
		"negotiation_id", neg.ID,
		"target_id", neg.TargetID,
		"leader", neg.Leader,
		"members", neg.Members,
	)

	var lastRanking []candidateGroup

	for round := 1; round <= p.cfg.MaxRounds; round++ {
		if ctx.Err() != nil {
			p.concludeTimedOut(neg, lastRanking)
			return neg
		}

		rec := p.runRound(ctx, neg, round)
		ranking := p.rankCandidates(rec)
		rec.Agreement = agreementSpread(ranking)
		neg.Rounds = append(neg.Rounds, rec)

		active := rec.Active()
		if len(active) == 0 {
			p.conclude(neg, types.NegotiationFailed, nil, types.OptimizationMetrics{})
			return neg
		}

		lastRanking = ranking

		if rec.Agreement > p.cfg.ConvergenceThreshold || unanimousPreference(active) {
			top := ranking[0]
			p.conclude(neg, types.NegotiationConverged, p.assignments(top), top.metrics)

			return neg
		}

		p.logger.Debug("round completed without convergence",
			"negotiation_id", neg.ID,
			"round", round,
			"agreement", rec.Agreement,
			"active_proposals", len(active),
		)
	}

	p.concludeTimedOut(neg, lastRanking)

	return neg
}

// runRound performs one fan-out/gather exchange.
func (p *Protocol) runRound(ctx context.Context, neg *types.Negotiation, round int) types.NegotiationRound {
	rec := types.NegotiationRound{Number: round, StartedAt: time.Now()}

	pc := types.ProposalContext{
		Target:    p.target.TargetDescriptor,
		Round:     round,
		Leader:    neg.Leader,
		Members:   neg.Members,
		History:   neg.Rounds,
		Reference: p.plan.Initial,
	}

	participants := p.plan.Participants()
	width := int64(len(participants))

	// Full parallel fan-out when the evaluation semaphore has room for the
	// whole group; otherwise degrade to sequential evaluation with the same
	// per-member timeout and abstain semantics.
	if p.sem.TryAcquire(width) {
		results := make(chan types.Proposal, len(participants))
		for _, unitID := range participants {
			go func(id string) {
				defer p.sem.Release(1)
				results <- p.evaluate(ctx, id, round, pc)
			}(unitID)
		}
		for range participants {
			rec.Proposals = append(rec.Proposals, <-results)
		}
	} else {
		p.logger.Warn("parallel fan-out unavailable, running round sequentially",
			"negotiation_id", neg.ID,
			"round", round,
		)
		for _, unitID := range participants {
			if err := p.sem.Acquire(ctx, 1); err != nil {
				rec.Proposals = append(rec.Proposals, p.abstain(unitID, round))
				continue
			}
			rec.Proposals = append(rec.Proposals, p.evaluate(ctx, unitID, round, pc))
			p.sem.Release(1)
		}
	}

	rec.EndedAt = time.Now()

	return rec
}

// evaluate invokes one participant's evaluator under the per-member timeout.
// Errors and timeouts are absorbed into a synthetic abstain proposal;
// cancelling one member never cancels its siblings.
func (p *Protocol) evaluate(ctx context.Context, unitID string, round int, pc types.ProposalContext) types.Proposal {
	ev := p.evaluators[unitID]
	if ev == nil {
		return p.abstain(unitID, round)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.MemberTimeout)
	defer cancel()

	prop, err := ev.Propose(callCtx, pc)
	if err != nil {
		p.metrics.RecordMemberAbstain(unitID)
		p.logger.Warn("member evaluation failed, substituting abstain",
			"target_id", p.target.ID,
			"unit_id", unitID,
			"round", round,
			"error", err,
		)

		return p.abstain(unitID, round)
	}

	// Normalize identity fields so a sloppy evaluator cannot corrupt the
	// round record.
	prop.UnitID = unitID
	prop.Round = round
	if prop.At.IsZero() {
		prop.At = time.Now()
	}

	return prop
}

func (p *Protocol) abstain(unitID string, round int) types.Proposal {
	return types.Proposal{
		UnitID:  unitID,
		Round:   round,
		Abstain: true,
		At:      time.Now(),
	}
}

// assignments converts a candidate group into role-tagged assignments. The
// plan's leader keeps the leader role when it is part of the group;
// otherwise the first unit takes it.
func (p *Protocol) assignments(group candidateGroup) []types.Assignment {
	leader := group.ids[0]
	for _, id := range group.ids {
		if id == p.plan.Leader {
			leader = id
			break
		}
	}

	out := make([]types.Assignment, 0, len(group.ids))
	for _, id := range group.ids {
		role := types.RoleMember
		if id == leader {
			role = types.RoleLeader
		}
		out = append(out, types.Assignment{UnitID: id, Role: role})
	}

	return out
}

// concludeTimedOut finalizes with the best candidate from the last completed
// round. When no round produced a candidate the final assignment is empty
// and the cycle manager substitutes the distributor's fallback.
func (p *Protocol) concludeTimedOut(neg *types.Negotiation, lastRanking []candidateGroup) {
	if len(lastRanking) == 0 {
		p.conclude(neg, types.NegotiationTimedOut, nil, types.OptimizationMetrics{})
		return
	}

	top := lastRanking[0]
	p.conclude(neg, types.NegotiationTimedOut, p.assignments(top), top.metrics)
}

func (p *Protocol) conclude(
	neg *types.Negotiation,
	status types.NegotiationStatus,
	final []types.Assignment,
	metrics types.OptimizationMetrics,
) {
	neg.Status = status
	neg.Final = final
	neg.Metrics = metrics
	neg.EndedAt = time.Now()

	seconds := neg.EndedAt.Sub(neg.StartedAt).Seconds()
	p.metrics.RecordNegotiation(status, len(neg.Rounds), seconds)

	p.logger.Info("negotiation concluded",
		"negotiation_id", neg.ID,
		"target_id", neg.TargetID,
		"status", status.String(),
		"rounds", len(neg.Rounds),
		"final", final,
	)
}
