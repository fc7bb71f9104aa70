package distributor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/dinglinghu/must-ps/fleet"
	"github.com/dinglinghu/must-ps/scorer"
	"github.com/dinglinghu/must-ps/types"
)

// Sentinel errors returned by Distribute.
var (
	// ErrNoUnitsAvailable is returned when no unit has spare capacity. The
	// target stays Unassigned and is carried to the next cycle.
	ErrNoUnitsAvailable = errors.New("no units available for distribution")

	// ErrFleetUnavailable is returned when units with spare capacity exist
	// but the oracle could not resolve a position for any of them. This is
	// surfaced to the operator as a cycle-level failure.
	ErrFleetUnavailable = errors.New("no position data available for the fleet")
)

// Plan is the distributor's output for one target: the initial leader, the
// recruited member candidates, and the starting metrics reference.
type Plan struct {
	// TargetID is the target the plan covers.
	TargetID string

	// Leader is the nearest unit with spare capacity; its slot is reserved.
	Leader string

	// Members are the next K nearest candidate units, excluding the leader.
	Members []string

	// Units holds the leader and members with resolved positions and loads,
	// ordered leader first, for scoring during negotiation.
	Units []scorer.Candidate

	// Initial is the metrics snapshot for the (leader+candidates, target)
	// pairing, used as the negotiation's starting reference and as the
	// fallback assignment's metrics if negotiation fails.
	Initial types.OptimizationMetrics
}

// Candidate returns the scorer candidate for the given unit ID, or false if
// the unit is not part of the plan.
func (p *Plan) Candidate(unitID string) (scorer.Candidate, bool) {
	for _, c := range p.Units {
		if c.ID == unitID {
			return c, true
		}
	}

	return scorer.Candidate{}, false
}

// Participants returns the leader followed by all members.
func (p *Plan) Participants() []string {
	out := make([]string, 0, 1+len(p.Members))
	out = append(out, p.Leader)
	out = append(out, p.Members...)

	return out
}

// Distributor selects initial leaders and member candidates for targets.
type Distributor struct {
	registry *fleet.Registry
	oracle   types.PositionOracle
	scorer   *scorer.Scorer
	members  int
	logger   types.Logger
	metrics  types.MetricsCollector

	// Distance cache, keyed by an xxh3 hash of (target, unit, timestamp).
	// Reset at every cycle boundary.
	cacheMu sync.Mutex
	cache   map[uint64]float64
}

// New creates a distributor.
//
// Parameters:
//   - registry: Fleet unit arena
//   - oracle: Position oracle for unit positions and distances
//   - sc: Scorer for the initial metrics reference
//   - memberCount: Number of member candidates to recruit (K)
//   - logger: Structured logger
//   - metrics: Metrics collector
//
// Returns:
//   - *Distributor: Initialized distributor
func New(
	registry *fleet.Registry,
	oracle types.PositionOracle,
	sc *scorer.Scorer,
	memberCount int,
	logger types.Logger,
	metrics types.MetricsCollector,
) *Distributor {
	return &Distributor{
		registry: registry,
		oracle:   oracle,
		scorer:   sc,
		members:  memberCount,
		logger:   logger,
		metrics:  metrics,
		cache:    make(map[uint64]float64),
	}
}

// rankedUnit pairs a candidate with its distance to the target.
type rankedUnit struct {
	candidate scorer.Candidate
	distance  float64
}

// Distribute selects a leader and member candidates for the target and
// reserves the leader's slot.
//
// Units whose position the oracle cannot resolve are excluded from candidate
// selection for this call only (i.e., for the current cycle).
//
// Parameters:
//   - ctx: Context for oracle lookups
//   - target: Target to distribute; marked Negotiating on success
//   - at: Reference time for position lookups
//
// Returns:
//   - *Plan: Leader, member candidates, and initial metrics
//   - error: ErrNoUnitsAvailable, ErrFleetUnavailable, or an oracle error
func (d *Distributor) Distribute(ctx context.Context, target *types.Target, at time.Time) (*Plan, error) {
	snaps := d.registry.Snapshot()

	eligible := 0
	ranked := make([]rankedUnit, 0, len(snaps))
	for _, snap := range snaps {
		if snap.Spare() == 0 {
			continue
		}
		eligible++

		pos, err := d.oracle.Position(ctx, snap.ID, at)
		if err != nil {
			d.metrics.RecordOracleFailure(snap.ID)
			d.logger.Warn("excluding unit from candidate selection: position unavailable",
				"unit_id", snap.ID,
				"target_id", target.ID,
				"error", err,
			)

			continue
		}

		ranked = append(ranked, rankedUnit{
			candidate: scorer.Candidate{
				ID:       snap.ID,
				Position: pos,
				Capacity: snap.Capacity,
				Load:     snap.Load(),
			},
			distance: d.distance(target.ID, snap.ID, at, pos, target.Position),
		})
	}

	if len(ranked) == 0 {
		if eligible > 0 {
			return nil, ErrFleetUnavailable
		}

		return nil, ErrNoUnitsAvailable
	}

	// Nearest first; ties broken by lowest unit ID for determinism.
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].distance != ranked[j].distance {
			return ranked[i].distance < ranked[j].distance
		}

		return ranked[i].candidate.ID < ranked[j].candidate.ID
	})

	// Reserve the nearest unit that still has a free slot; a concurrent
	// distribution may have claimed the front-runner between snapshot and
	// reservation.
	leaderIdx := -1
	for i, ru := range ranked {
		if err := d.registry.Reserve(ru.candidate.ID, target.ID); err == nil {
			leaderIdx = i
			break
		}
	}
	if leaderIdx < 0 {
		return nil, ErrNoUnitsAvailable
	}

	leader := ranked[leaderIdx].candidate
	plan := &Plan{
		TargetID: target.ID,
		Leader:   leader.ID,
		Units:    []scorer.Candidate{leader},
	}

	for i, ru := range ranked {
		if i == leaderIdx || len(plan.Members) >= d.members {
			continue
		}
		plan.Members = append(plan.Members, ru.candidate.ID)
		plan.Units = append(plan.Units, ru.candidate)
	}

	plan.Initial = d.scorer.Score(plan.Units, target.TargetDescriptor)

	target.SetState(types.TargetNegotiating)

	d.logger.Info("target distributed",
		"target_id", target.ID,
		"leader", plan.Leader,
		"members", plan.Members,
		"initial_composite", plan.Initial.Composite,
	)

	return plan, nil
}

// Release returns the leader reservation held by the plan and moves the
// target back to Unassigned. Called when the negotiation concludes
// Failed or TimedOut without committing the leader.
func (d *Distributor) Release(plan *Plan, target *types.Target) {
	if err := d.registry.Release(plan.Leader, plan.TargetID); err != nil {
		d.logger.Warn("failed to release leader reservation",
			"target_id", plan.TargetID,
			"leader", plan.Leader,
			"error", err,
		)
	}
	target.SetState(types.TargetUnassigned)
}

// ResetCache discards all cached distances. Called at cycle boundaries so
// stale positions never leak across cycles.
func (d *Distributor) ResetCache() {
	d.cacheMu.Lock()
	d.cache = make(map[uint64]float64)
	d.cacheMu.Unlock()
}

// distance returns the oracle distance between a unit and the target,
// memoized per (target, unit, timestamp).
func (d *Distributor) distance(targetID, unitID string, at time.Time, unitPos, targetPos types.Position) float64 {
	key := xxh3.HashString(targetID + "\x00" + unitID + "\x00" + strconv.FormatInt(at.UnixNano(), 10))

	d.cacheMu.Lock()
	if dist, ok := d.cache[key]; ok {
		d.cacheMu.Unlock()
		return dist
	}
	d.cacheMu.Unlock()

	dist := d.oracle.Distance(unitPos, targetPos)

	d.cacheMu.Lock()
	d.cache[key] = dist
	d.cacheMu.Unlock()

	return dist
}

// String implements fmt.Stringer for logging.
func (p *Plan) String() string {
	return fmt.Sprintf("plan{target=%s leader=%s members=%v}", p.TargetID, p.Leader, p.Members)
}
