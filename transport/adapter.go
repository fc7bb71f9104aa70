package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/dinglinghu/must-ps/internal/kvutil"
	"github.com/dinglinghu/must-ps/types"
)

// Sentinel errors returned by the Adapter.
var (
	// ErrConnRequired is returned when the NATS connection is nil.
	ErrConnRequired = errors.New("NATS connection is required")

	// ErrSinkRequired is returned when the target sink is nil.
	ErrSinkRequired = errors.New("target sink is required")

	// ErrAlreadyStarted is returned when Start is called on a running adapter.
	ErrAlreadyStarted = errors.New("adapter already started")

	// ErrNotStarted is returned when Stop or PublishCycleResult is called on
	// an adapter that has not been started.
	ErrNotStarted = errors.New("adapter not started")
)

// TargetSink accepts detected targets for the next planning cycle.
// *mustps.Manager satisfies this interface.
type TargetSink interface {
	SubmitDetectedTargets(descs ...types.TargetDescriptor) (int, error)
}

// BulletinAssignment is one target a unit tracks, as exposed in the
// assignment bulletin.
type BulletinAssignment struct {
	TargetID string     `json:"targetId"`
	Role     types.Role `json:"role"`
}

// UnitBulletin is the per-unit KV bulletin entry: the unit's assignments
// from the most recent cycle that assigned it.
type UnitBulletin struct {
	UnitID      string               `json:"unitId"`
	CycleSeq    uint64               `json:"cycleSeq"`
	CycleID     string               `json:"cycleId"`
	Assignments []BulletinAssignment `json:"assignments"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

// Adapter bridges a planning manager to NATS.
type Adapter struct {
	cfg    Config
	conn   *nats.Conn
	sink   TargetSink
	logger types.Logger

	kv  jetstream.KeyValue
	sub *nats.Subscription

	mu      sync.Mutex
	started bool
}

// New creates a transport adapter.
//
// Parameters:
//   - conn: NATS connection
//   - cfg: Subjects and bucket configuration (defaults applied)
//   - sink: Receiver for ingested target descriptors
//   - logger: Structured logger
//
// Returns:
//   - *Adapter: Initialized adapter (call Start to begin ingestion)
//   - error: ErrConnRequired or ErrSinkRequired
func New(conn *nats.Conn, cfg Config, sink TargetSink, logger types.Logger) (*Adapter, error) {
	if conn == nil {
		return nil, ErrConnRequired
	}
	if sink == nil {
		return nil, ErrSinkRequired
	}

	SetDefaults(&cfg)

	return &Adapter{
		cfg:    cfg,
		conn:   conn,
		sink:   sink,
		logger: logger,
	}, nil
}

// Start opens the assignment bulletin bucket and subscribes to the target
// subject.
//
// Parameters:
//   - ctx: Context bounding bucket creation
//
// Returns:
//   - error: ErrAlreadyStarted, or a JetStream/subscription error
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return ErrAlreadyStarted
	}

	js, err := jetstream.New(a.conn)
	if err != nil {
		return fmt.Errorf("failed to create jetstream context: %w", err)
	}

	kvCtx, cancel := context.WithTimeout(ctx, a.cfg.OperationTimeout)
	defer cancel()

	kv, err := kvutil.EnsureBucket(kvCtx, js, jetstream.KeyValueConfig{
		Bucket:      a.cfg.AssignmentBucket,
		Description: "per-unit tracking assignment bulletin",
		TTL:         a.cfg.AssignmentTTL,
	}, 3)
	if err != nil {
		return fmt.Errorf("failed to ensure assignment bucket: %w", err)
	}
	a.kv = kv

	sub, err := a.conn.Subscribe(a.cfg.TargetSubject, a.handleDetection)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", a.cfg.TargetSubject, err)
	}
	a.sub = sub
	a.started = true

	a.logger.Info("transport adapter started",
		"target_subject", a.cfg.TargetSubject,
		"result_subject", a.cfg.ResultSubject,
		"assignment_bucket", a.cfg.AssignmentBucket,
	)

	return nil
}

// Stop unsubscribes from the target subject.
//
// The NATS connection is owned by the caller and is not closed.
//
// Returns:
//   - error: ErrNotStarted, or an unsubscribe error
func (a *Adapter) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		return ErrNotStarted
	}
	a.started = false

	if err := a.sub.Unsubscribe(); err != nil {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}

	a.logger.Info("transport adapter stopped")

	return nil
}

// handleDetection decodes one detection message and submits it to the sink.
// Malformed payloads are logged and dropped.
func (a *Adapter) handleDetection(msg *nats.Msg) {
	var desc types.TargetDescriptor
	if err := json.Unmarshal(msg.Data, &desc); err != nil {
		a.logger.Warn("dropping malformed detection message",
			"subject", msg.Subject,
			"error", err,
		)

		return
	}

	accepted, err := a.sink.SubmitDetectedTargets(desc)
	if err != nil {
		a.logger.Warn("target submission rejected",
			"target_id", desc.ID,
			"error", err,
		)

		return
	}

	a.logger.Debug("detection ingested", "target_id", desc.ID, "accepted", accepted)
}

// PublishCycleResult publishes a completed cycle result and updates the
// per-unit assignment bulletin.
//
// Bulletin entries are written only for units assigned this cycle; a unit's
// entry always reflects the most recent cycle that assigned it. KV write
// failures are logged per unit but do not fail the publication.
//
// Parameters:
//   - ctx: Context bounding KV writes
//   - result: Completed cycle result
//
// Returns:
//   - error: ErrNotStarted, or a publish/encode error
func (a *Adapter) PublishCycleResult(ctx context.Context, result *types.CycleResult) error {
	a.mu.Lock()
	started := a.started
	kv := a.kv
	a.mu.Unlock()
	if !started {
		return ErrNotStarted
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode cycle result: %w", err)
	}

	if err := a.conn.Publish(a.cfg.ResultSubject, data); err != nil {
		return fmt.Errorf("failed to publish cycle result: %w", err)
	}

	// Group the cycle's assignments by unit for the bulletin.
	byUnit := make(map[string][]BulletinAssignment)
	for _, res := range result.Results {
		for _, assignment := range res.Assignment {
			byUnit[assignment.UnitID] = append(byUnit[assignment.UnitID], BulletinAssignment{
				TargetID: res.TargetID,
				Role:     assignment.Role,
			})
		}
	}

	kvCtx, cancel := context.WithTimeout(ctx, a.cfg.OperationTimeout)
	defer cancel()

	for unitID, assignments := range byUnit {
		entry := UnitBulletin{
			UnitID:      unitID,
			CycleSeq:    result.Seq,
			CycleID:     result.ID,
			Assignments: assignments,
			UpdatedAt:   time.Now(),
		}

		payload, err := json.Marshal(entry)
		if err != nil {
			a.logger.Warn("failed to encode bulletin entry", "unit_id", unitID, "error", err)
			continue
		}
		if _, err := kv.Put(kvCtx, unitID, payload); err != nil {
			a.logger.Warn("failed to write bulletin entry", "unit_id", unitID, "error", err)
		}
	}

	a.logger.Debug("cycle result published",
		"cycle_id", result.ID,
		"results", len(result.Results),
		"bulletin_units", len(byUnit),
	)

	return nil
}

// CycleHook returns a callback suitable for Hooks.OnCycleCompleted that
// publishes each completed cycle through this adapter.
//
// Example:
//
//	hooks := &mustps.Hooks{OnCycleCompleted: adapter.CycleHook()}
//	mgr, _ := mustps.NewManager(&cfg, registry, oracle, mustps.WithHooks(hooks))
func (a *Adapter) CycleHook() func(ctx context.Context, result *types.CycleResult) error {
	return func(ctx context.Context, result *types.CycleResult) error {
		return a.PublishCycleResult(ctx, result)
	}
}
