package mustps

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/dinglinghu/must-ps/consensus"
	"github.com/dinglinghu/must-ps/distributor"
	"github.com/dinglinghu/must-ps/fleet"
	"github.com/dinglinghu/must-ps/internal/hooks"
	"github.com/dinglinghu/must-ps/internal/logging"
	"github.com/dinglinghu/must-ps/internal/metrics"
	"github.com/dinglinghu/must-ps/scorer"
	"github.com/dinglinghu/must-ps/types"
)

// idleWait is how long the cycle loop sleeps after an empty cycle when
// CycleInterval is zero, so back-to-back mode does not spin on an empty
// queue.
const idleWait = 50 * time.Millisecond

// Manager runs the rolling planning cycle that assigns detected targets to
// tracking units.
//
// Manager is the main entry point of the library. It handles:
//   - Target ingestion and carry-over across cycles
//   - Leader selection and member recruitment via the distributor
//   - Consensus negotiation per target (one active at a time)
//   - Committing final assignments to the fleet registry
//   - Cycle result bookkeeping for reporting collaborators
//
// Thread Safety:
//   - All public methods are safe for concurrent use
//   - State transitions are atomic and linearizable
//   - Cycle results are copy-on-write
//
// Lifecycle:
//   - Create with NewManager()
//   - Call Start() to begin the cycle loop
//   - Feed targets with SubmitDetectedTargets()
//   - Call Stop() for graceful shutdown
type Manager struct {
	cfg      Config
	registry *fleet.Registry
	oracle   PositionOracle

	// Optional dependencies
	hooks   *Hooks
	metrics MetricsCollector
	logger  Logger

	// Internal components
	distributor *distributor.Distributor
	scorer      *scorer.Scorer

	// negotiationGate enforces the single-active-negotiation invariant.
	negotiationGate *semaphore.Weighted

	// State management
	state    atomic.Int32 // State
	cycleSeq atomic.Uint64
	current  atomic.Pointer[types.CycleResult]
	previous atomic.Pointer[types.CycleResult]

	// Target ingestion queue (FIFO). pending tracks IDs that are queued or
	// in flight so duplicate submissions are ignored.
	queueMu sync.Mutex
	queue   []*types.Target
	pending map[string]struct{}

	// cycleMu serializes cycle execution between the loop and RunCycle.
	cycleMu sync.Mutex

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
}

// NewManager creates a new Manager instance with the provided configuration.
//
// Returns a concrete *Manager struct following the "accept interfaces, return
// structs" principle. Consumers can define their own interfaces for testing
// if needed.
//
// Parameters:
//   - cfg: Runtime configuration with parsed durations
//   - registry: Fleet registry holding unit specs, slots, and evaluators
//   - oracle: Position oracle for unit positions and distances
//   - opts: Optional configuration (hooks, metrics, logger)
//
// Returns:
//   - *Manager: Initialized manager instance
//   - error: Validation error if configuration is invalid
//
// Example:
//
//	cfg := mustps.DefaultConfig()
//	registry, _ := fleet.NewRegistry(specs)
//	mgr, err := mustps.NewManager(&cfg, registry, oracle)
func NewManager(cfg *Config, registry *fleet.Registry, oracle PositionOracle, opts ...Option) (*Manager, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	if oracle == nil {
		return nil, ErrOracleRequired
	}

	// Fill in missing configuration values with defaults
	SetDefaults(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Apply options
	options := &managerOptions{}
	for _, opt := range opts {
		opt(options)
	}

	// Provide safe defaults for optional dependencies to avoid nil checks everywhere
	metricsCollector := options.metrics
	if metricsCollector == nil {
		metricsCollector = metrics.NewNop()
	}

	loggerInstance := options.logger
	if loggerInstance == nil {
		loggerInstance = logging.NewNop()
	}

	// Validate with warnings after logger is available
	cfg.ValidateWithWarnings(loggerInstance)

	hooksInstance := options.hooks
	if hooksInstance == nil {
		nopHooks := hooks.NewNop()
		hooksInstance = &nopHooks
	}

	sc, err := scorer.New(cfg.Weights)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	m := &Manager{
		cfg:             *cfg,
		registry:        registry,
		oracle:          oracle,
		hooks:           hooksInstance,
		metrics:         metricsCollector,
		logger:          loggerInstance,
		scorer:          sc,
		negotiationGate: semaphore.NewWeighted(1),
		pending:         make(map[string]struct{}),
	}
	m.distributor = distributor.New(registry, oracle, sc, cfg.MemberCount, loggerInstance, metricsCollector)

	m.state.Store(int32(StateIdle))

	return m, nil
}

// Start begins the planning cycle loop in the background.
//
// Cycles run every CycleInterval, or back to back when the interval is zero,
// until MaxCycles is reached or Stop is called. Start itself returns
// immediately.
//
// Parameters:
//   - ctx: Context governing startup only; the loop runs on the manager's
//     own context until Stop
//
// Returns:
//   - error: ErrAlreadyStarted if the manager is already running
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.ctx != nil {
		m.mu.Unlock()

		return ErrAlreadyStarted
	}
	if err := ctx.Err(); err != nil {
		m.mu.Unlock()

		return err
	}

	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.mu.Unlock()

	m.logger.Info("planning manager started",
		"cycle_interval", m.cfg.CycleInterval,
		"cycle_timeout", m.cfg.CycleTimeout,
		"member_count", m.cfg.MemberCount,
		"max_rounds", m.cfg.MaxRounds,
		"fleet_size", m.registry.Size(),
	)

	m.wg.Add(1)
	go m.runLoop()

	return nil
}

// Stop gracefully shuts down the manager.
//
// Safe to call multiple times; subsequent calls return ErrNotStarted.
//
// Parameters:
//   - ctx: Context for shutdown timeout
//
// Returns:
//   - error: Shutdown error or timeout
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()

	if m.ctx == nil {
		m.mu.Unlock()

		return ErrNotStarted
	}

	currentState := m.State()
	if currentState == StateShutdown {
		m.mu.Unlock()

		return ErrNotStarted
	}

	m.transitionState(currentState, StateShutdown)

	// Cancel the manager context to stop the cycle loop and any running
	// negotiation.
	m.cancel()

	// Keep m.ctx (even though cancelled) instead of setting it to nil so
	// background goroutines can still use it in their select statements.
	m.mu.Unlock()

	if m.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.ShutdownTimeout)
		defer cancel()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("planning manager stopped gracefully")
		return nil
	case <-ctx.Done():
		m.logger.Error("shutdown timeout exceeded, cycle loop may still be running")
		return ctx.Err()
	}
}

// SubmitDetectedTargets enqueues detected targets for the next planning
// cycle.
//
// Duplicate target IDs (already queued, or still in flight from a previous
// submission) are skipped silently. Submission order is preserved.
//
// Parameters:
//   - descs: Detected target descriptors
//
// Returns:
//   - int: Number of targets accepted into the queue
//   - error: ErrNotStarted, or ErrQueueFull when capacity is exhausted
//     (targets before the overflow are still accepted)
func (m *Manager) SubmitDetectedTargets(descs ...types.TargetDescriptor) (int, error) {
	m.mu.RLock()
	started := m.ctx != nil
	m.mu.RUnlock()
	if !started || m.State() == StateShutdown {
		return 0, ErrNotStarted
	}

	m.queueMu.Lock()
	defer m.queueMu.Unlock()

	accepted := 0
	for _, desc := range descs {
		if desc.ID == "" {
			continue
		}
		if _, dup := m.pending[desc.ID]; dup {
			continue
		}
		if len(m.queue) >= m.cfg.QueueCapacity {
			m.metrics.SetQueueDepth(len(m.queue))
			return accepted, fmt.Errorf("%w: capacity %d", ErrQueueFull, m.cfg.QueueCapacity)
		}

		m.queue = append(m.queue, types.NewTarget(desc))
		m.pending[desc.ID] = struct{}{}
		accepted++
	}

	m.metrics.SetQueueDepth(len(m.queue))

	return accepted, nil
}

// RunCycle executes one planning cycle immediately.
//
// Useful for tests and for operator-triggered replanning. The cycle runs
// under the same serialization as the background loop, so cycles never
// overlap.
//
// Parameters:
//   - ctx: Context bounding the cycle (CycleTimeout is applied on top)
//
// Returns:
//   - error: ErrNotStarted, ErrCycleInProgress, or a cycle-level failure
//     such as the whole fleet being unavailable
func (m *Manager) RunCycle(ctx context.Context) error {
	m.mu.RLock()
	started := m.ctx != nil
	m.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}

	if !m.cycleMu.TryLock() {
		return ErrCycleInProgress
	}
	defer m.cycleMu.Unlock()

	_, err := m.runCycle(ctx)

	return err
}

// State returns the manager's current lifecycle state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// CurrentCycle returns the most recently completed cycle result.
//
// Returns:
//   - *CycleResult: Last completed cycle (nil before the first cycle closes)
func (m *Manager) CurrentCycle() *CycleResult {
	return m.current.Load()
}

// PreviousCycle returns the cycle result before the current one.
func (m *Manager) PreviousCycle() *CycleResult {
	return m.previous.Load()
}

// QueueDepth returns the number of targets waiting for the next cycle.
func (m *Manager) QueueDepth() int {
	m.queueMu.Lock()
	defer m.queueMu.Unlock()

	return len(m.queue)
}

// runLoop drives planning cycles until shutdown or MaxCycles.
func (m *Manager) runLoop() {
	defer m.wg.Done()

	completed := 0
	for {
		if m.ctx.Err() != nil {
			return
		}
		if m.cfg.MaxCycles > 0 && completed >= m.cfg.MaxCycles {
			m.logger.Info("cycle limit reached, loop stopping", "max_cycles", m.cfg.MaxCycles)
			return
		}

		start := time.Now()

		m.cycleMu.Lock()
		result, err := m.runCycle(m.ctx)
		m.cycleMu.Unlock()

		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.logger.Error("planning cycle failed", "error", err)
		}
		if result != nil {
			completed++
		}

		if !m.waitForNextCycle(start, result != nil) {
			return
		}
	}
}

// waitForNextCycle sleeps out the remainder of the cycle interval. Returns
// false when the manager is shutting down.
func (m *Manager) waitForNextCycle(cycleStart time.Time, ranCycle bool) bool {
	wait := time.Duration(0)
	if m.cfg.CycleInterval > 0 {
		wait = m.cfg.CycleInterval - time.Since(cycleStart)
	} else if !ranCycle {
		wait = idleWait
	}

	if wait <= 0 {
		return m.ctx.Err() == nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-m.ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// runCycle executes one planning cycle: collect, distribute, negotiate,
// complete. Returns nil (and no error) when the queue was empty.
//
// Callers must hold cycleMu.
func (m *Manager) runCycle(ctx context.Context) (*types.CycleResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.transitionState(m.State(), StateCollecting)
	targets := m.drainQueue()
	if len(targets) == 0 {
		m.transitionState(m.State(), StateIdle)
		return nil, nil
	}

	seq := m.cycleSeq.Add(1)
	start := time.Now()
	result := &types.CycleResult{
		Seq:       seq,
		ID:        fmt.Sprintf("cycle-%d-%d", seq, start.Unix()),
		StartedAt: start,
	}

	m.logger.Info("planning cycle started",
		"cycle_id", result.ID,
		"seq", seq,
		"targets", len(targets),
	)

	cycleCtx, cancel := context.WithTimeout(ctx, m.cfg.CycleTimeout)
	defer cancel()

	// Phase 1: distribution. Stale distances must never leak across cycles.
	m.transitionState(m.State(), StateDistributing)
	m.distributor.ResetCache()

	var (
		planned  []*types.Target
		plans    []*distributor.Plan
		carried  []*types.Target
		cycleErr error
	)

	for i, target := range targets {
		if cycleCtx.Err() != nil {
			carried = append(carried, targets[i:]...)
			break
		}

		plan, err := m.distributor.Distribute(cycleCtx, target, start)
		switch {
		case err == nil:
			planned = append(planned, target)
			plans = append(plans, plan)
		case errors.Is(err, distributor.ErrNoUnitsAvailable):
			m.logger.Warn("no spare capacity, carrying target to next cycle", "target_id", target.ID)
			carried = append(carried, target)
		case errors.Is(err, distributor.ErrFleetUnavailable):
			// Oracle lost the whole fleet: no distribution can succeed this
			// cycle. Carry everything not yet planned and surface the error.
			m.logger.Error("fleet position data unavailable, aborting distribution", "cycle_id", result.ID)
			carried = append(carried, targets[i:]...)
			cycleErr = err
		default:
			m.logger.Error("distribution failed", "target_id", target.ID, "error", err)
			carried = append(carried, target)
		}

		if cycleErr != nil {
			break
		}
	}

	// Phase 2: negotiation, one target at a time.
	if len(plans) > 0 {
		m.transitionState(m.State(), StateNegotiating)
	}
	for i, plan := range plans {
		target := planned[i]
		if cycleCtx.Err() != nil {
			m.distributor.Release(plan, target)
			carried = append(carried, target)
			continue
		}

		res, assigned := m.negotiate(cycleCtx, target, plan)
		result.Results = append(result.Results, res)
		if !assigned {
			carried = append(carried, target)
		}
	}

	// Phase 3: completion.
	m.transitionState(m.State(), StateCompleting)

	result.EndedAt = time.Now()
	for _, target := range carried {
		result.Carried = append(result.Carried, target.TargetDescriptor)
	}

	m.finishCycle(result, carried)
	m.transitionState(m.State(), StateIdle)

	return result, cycleErr
}

// negotiate runs one target's consensus negotiation and commits the outcome.
//
// Returns the target's cycle entry and whether the target ended up assigned;
// an unassigned target is carried to the next cycle.
func (m *Manager) negotiate(ctx context.Context, target *types.Target, plan *distributor.Plan) (types.TargetResult, bool) {
	if err := m.negotiationGate.Acquire(ctx, 1); err != nil {
		m.distributor.Release(plan, target)
		return types.TargetResult{
			TargetID: target.ID,
			Status:   types.ResultFailed,
			Degraded: true,
		}, false
	}
	defer m.negotiationGate.Release(1)

	negCtx, cancel := context.WithTimeout(ctx, m.cfg.NegotiationTimeout)
	defer cancel()

	evaluators := make(map[string]types.DecisionEvaluator, 1+len(plan.Members))
	for _, unitID := range plan.Participants() {
		evaluators[unitID] = m.registry.Evaluator(unitID)
	}

	proto := consensus.New(consensus.Config{
		MaxRounds:            m.cfg.MaxRounds,
		MemberTimeout:        m.cfg.MemberTimeout,
		ConvergenceThreshold: m.cfg.ConvergenceThreshold,
		MaxConcurrent:        m.cfg.MaxConcurrentEvaluations,
	}, target, plan, evaluators, m.scorer, m.logger, m.metrics)

	neg := proto.Run(negCtx)

	if m.hooks.OnNegotiationConcluded != nil {
		go func() {
			if err := m.hooks.OnNegotiationConcluded(m.ctx, neg); err != nil {
				m.logger.Error("negotiation hook error", "negotiation_id", neg.ID, "error", err)
			}
		}()
	}

	switch neg.Status {
	case types.NegotiationConverged:
		return m.commitOutcome(target, plan, neg.Final, neg.Metrics, types.ResultConverged, len(neg.Rounds))
	case types.NegotiationTimedOut:
		if len(neg.Final) > 0 {
			return m.commitOutcome(target, plan, neg.Final, neg.Metrics, types.ResultTimedOut, len(neg.Rounds))
		}
		// Deadline hit before any round completed: fall back to the
		// distributor's nearest-unit claim.
		return m.commitFallback(target, plan, len(neg.Rounds))
	default: // NegotiationFailed
		return m.commitFallback(target, plan, len(neg.Rounds))
	}
}

// commitOutcome converts a negotiation's final assignment into committed
// fleet slots.
//
// The leader's reserved slot is consumed when the leader is part of the final
// group and released otherwise. Members whose capacity filled up mid-cycle
// are dropped from the group with a warning; if nothing commits the target
// falls back to the leader claim.
func (m *Manager) commitOutcome(
	target *types.Target,
	plan *distributor.Plan,
	assignments []types.Assignment,
	optMetrics types.OptimizationMetrics,
	status types.ResultStatus,
	rounds int,
) (types.TargetResult, bool) {
	committed := make([]types.Assignment, 0, len(assignments))
	leaderUsed := false
	for _, a := range assignments {
		if err := m.registry.Commit(a.UnitID, target.ID, a.Role); err != nil {
			m.logger.Warn("dropping unit from final assignment",
				"target_id", target.ID,
				"unit_id", a.UnitID,
				"error", err,
			)

			continue
		}
		committed = append(committed, a)
		if a.UnitID == plan.Leader {
			leaderUsed = true
		}
	}

	if !leaderUsed {
		// The group excluded the initial leader; its reservation is no
		// longer needed.
		if err := m.registry.Release(plan.Leader, target.ID); err != nil {
			m.logger.Warn("failed to release unused leader reservation",
				"target_id", target.ID,
				"leader", plan.Leader,
				"error", err,
			)
		}
	}

	if len(committed) == 0 {
		m.logger.Warn("no unit from final assignment could commit, falling back",
			"target_id", target.ID,
		)

		return m.commitFallback(target, plan, rounds)
	}

	target.SetState(types.TargetAssigned)
	m.metrics.SetReservedSlots(m.registry.ReservedSlots())

	m.logger.Info("target assigned",
		"target_id", target.ID,
		"status", status.String(),
		"assignment", committed,
		"composite", optMetrics.Composite,
	)

	return types.TargetResult{
		TargetID:   target.ID,
		Assignment: committed,
		Status:     status,
		Degraded:   status != types.ResultConverged,
		Rounds:     rounds,
		Metrics:    optMetrics,
	}, true
}

// commitFallback claims the distributor's reserved leader slot as a
// single-unit assignment after a failed or empty negotiation.
func (m *Manager) commitFallback(target *types.Target, plan *distributor.Plan, rounds int) (types.TargetResult, bool) {
	if err := m.registry.Commit(plan.Leader, target.ID, types.RoleLeader); err != nil {
		m.logger.Error("fallback assignment failed, carrying target",
			"target_id", target.ID,
			"leader", plan.Leader,
			"error", err,
		)
		m.distributor.Release(plan, target)

		return types.TargetResult{
			TargetID: target.ID,
			Status:   types.ResultFailed,
			Degraded: true,
			Rounds:   rounds,
		}, false
	}

	target.SetState(types.TargetAssigned)
	m.metrics.SetReservedSlots(m.registry.ReservedSlots())

	m.logger.Info("fallback assignment committed",
		"target_id", target.ID,
		"leader", plan.Leader,
	)

	return types.TargetResult{
		TargetID:   target.ID,
		Assignment: []types.Assignment{{UnitID: plan.Leader, Role: types.RoleLeader}},
		Status:     types.ResultFallback,
		Degraded:   true,
		Rounds:     rounds,
		Metrics:    plan.Initial,
	}, true
}

// drainQueue removes all queued targets for this cycle. Their IDs stay in
// the pending set until the cycle completes so duplicate submissions are
// still rejected while negotiations run.
func (m *Manager) drainQueue() []*types.Target {
	m.queueMu.Lock()
	defer m.queueMu.Unlock()

	targets := m.queue
	m.queue = nil
	m.metrics.SetQueueDepth(0)

	return targets
}

// finishCycle publishes the cycle result, requeues carried targets ahead of
// new arrivals, and clears completed targets from the pending set.
func (m *Manager) finishCycle(result *types.CycleResult, carried []*types.Target) {
	m.queueMu.Lock()
	for _, res := range result.Results {
		delete(m.pending, res.TargetID)
	}
	if len(carried) > 0 {
		requeued := make([]*types.Target, 0, len(carried)+len(m.queue))
		requeued = append(requeued, carried...)
		m.queue = append(requeued, m.queue...)
		for _, target := range carried {
			m.pending[target.ID] = struct{}{}
		}
	}
	m.metrics.SetQueueDepth(len(m.queue))
	m.queueMu.Unlock()

	if prev := m.current.Load(); prev != nil {
		m.previous.Store(prev)
	}
	m.current.Store(result)

	duration := result.EndedAt.Sub(result.StartedAt).Seconds()
	m.metrics.RecordCycleDuration(duration, len(result.Results))

	if m.hooks.OnCycleCompleted != nil {
		go func() {
			if err := m.hooks.OnCycleCompleted(m.ctx, result); err != nil {
				m.logger.Error("cycle completion hook error", "cycle_id", result.ID, "error", err)
			}
		}()
	}

	m.logger.Info("planning cycle completed",
		"cycle_id", result.ID,
		"results", len(result.Results),
		"carried", len(result.Carried),
		"duration", result.EndedAt.Sub(result.StartedAt),
	)
}

// transitionState transitions to a new state and triggers hooks.
func (m *Manager) transitionState(from, to State) {
	if !m.isValidTransition(from, to) {
		m.logger.Error("invalid state transition attempted",
			"from", from.String(),
			"to", to.String(),
		)

		return
	}

	m.state.Store(int32(to))

	m.logger.Debug("state transition",
		"from", from.String(),
		"to", to.String(),
	)

	if m.hooks.OnStateChanged != nil {
		// Run the hook in the background so it cannot block the cycle.
		go func() {
			if err := m.hooks.OnStateChanged(m.ctx, from, to); err != nil {
				m.logger.Error("state change hook error", "from", from, "to", to, "error", err)
			}
		}()
	}

	m.metrics.RecordStateTransition(from, to)
}

// isValidTransition validates that a state transition is allowed.
func (m *Manager) isValidTransition(from, to State) bool {
	validTransitions := map[State][]State{
		StateIdle:         {StateCollecting, StateShutdown},
		StateCollecting:   {StateDistributing, StateIdle, StateShutdown},
		StateDistributing: {StateNegotiating, StateCompleting, StateShutdown},
		StateNegotiating:  {StateCompleting, StateShutdown},
		StateCompleting:   {StateIdle, StateShutdown},
		StateShutdown:     {}, // Terminal state
	}

	allowedStates, exists := validTransitions[from]
	if !exists {
		return false
	}

	for _, allowed := range allowedStates {
		if allowed == to {
			return true
		}
	}

	return false
}
