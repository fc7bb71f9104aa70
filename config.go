package mustps

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dinglinghu/must-ps/scorer"
)

// Config is the configuration for the Manager.
//
// All duration fields accept standard Go duration strings like "30s", "5m"
// when loaded from YAML.
type Config struct {
	// CycleInterval is the time between planning cycle starts. A cycle that
	// finishes early waits out the remainder of the interval; a cycle still
	// running when the interval elapses delays the next one (cycles never
	// overlap). Set to 0 to run cycles back to back.
	CycleInterval time.Duration `yaml:"cycleInterval"`

	// CycleTimeout bounds one whole planning cycle. Targets still queued when
	// the deadline elapses are carried to the next cycle.
	// Recommended: well below CycleInterval.
	CycleTimeout time.Duration `yaml:"cycleTimeout"`

	// MaxCycles stops the cycle loop after this many cycles. 0 means run
	// until Stop is called. Useful for bounded simulation runs.
	MaxCycles int `yaml:"maxCycles"`

	// QueueCapacity is the maximum number of targets the ingestion queue
	// holds, including carried-over targets. Submissions beyond the capacity
	// are rejected with ErrQueueFull.
	QueueCapacity int `yaml:"queueCapacity"`

	// MemberCount is the number of member candidates (K) the distributor
	// recruits per target, in addition to the leader.
	MemberCount int `yaml:"memberCount"`

	// MaxRounds is the negotiation round limit before a best-effort TimedOut
	// conclusion. Must be >= 1.
	MaxRounds int `yaml:"maxRounds"`

	// MemberTimeout bounds each member's decision evaluation per round. A
	// member that exceeds it contributes a synthetic abstain proposal.
	MemberTimeout time.Duration `yaml:"memberTimeout"`

	// NegotiationTimeout bounds one whole negotiation across all rounds.
	NegotiationTimeout time.Duration `yaml:"negotiationTimeout"`

	// ConvergenceThreshold is the normalized top-versus-second candidate
	// score spread above which a round converges, in (0, 1].
	ConvergenceThreshold float64 `yaml:"convergenceThreshold"`

	// MaxConcurrentEvaluations caps evaluator calls in flight during a
	// round's fan-out. 0 means one slot per participant (fully parallel).
	// When the full parallel width cannot be acquired the round degrades to
	// sequential evaluation.
	MaxConcurrentEvaluations int `yaml:"maxConcurrentEvaluations"`

	// Weights are the composite weights for the optimization scorer. Must be
	// non-negative and sum to 1.
	Weights scorer.Weights `yaml:"weights"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// DefaultConfig returns a Config with sensible defaults.
//
// Returns:
//   - Config: Configuration with default values
func DefaultConfig() Config {
	return Config{
		CycleInterval:        60 * time.Second,
		CycleTimeout:         30 * time.Second,
		MaxCycles:            0,
		QueueCapacity:        1024,
		MemberCount:          4,
		MaxRounds:            3,
		MemberTimeout:        5 * time.Second,
		NegotiationTimeout:   20 * time.Second,
		ConvergenceThreshold: 0.15,
		Weights:              scorer.DefaultWeights(),
		ShutdownTimeout:      10 * time.Second,
	}
}

// SetDefaults fills in missing configuration values with production defaults.
//
// A zero CycleInterval is preserved: it is the documented way to run cycles
// back to back.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.CycleTimeout == 0 {
		cfg.CycleTimeout = defaults.CycleTimeout
	}
	if cfg.QueueCapacity == 0 {
		cfg.QueueCapacity = defaults.QueueCapacity
	}
	if cfg.MemberCount == 0 {
		cfg.MemberCount = defaults.MemberCount
	}
	if cfg.MaxRounds == 0 {
		cfg.MaxRounds = defaults.MaxRounds
	}
	if cfg.MemberTimeout == 0 {
		cfg.MemberTimeout = defaults.MemberTimeout
	}
	if cfg.NegotiationTimeout == 0 {
		cfg.NegotiationTimeout = defaults.NegotiationTimeout
	}
	if cfg.ConvergenceThreshold == 0 {
		cfg.ConvergenceThreshold = defaults.ConvergenceThreshold
	}
	if cfg.Weights == (scorer.Weights{}) {
		cfg.Weights = defaults.Weights
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}
}

// Validate checks configuration constraints and returns an error for invalid
// values.
//
// Hard Validation Rules:
//   - MaxRounds >= 1
//   - MemberCount >= 1
//   - MemberTimeout > 0
//   - NegotiationTimeout >= MemberTimeout (one round must be able to finish)
//   - CycleTimeout >= NegotiationTimeout (one negotiation must fit a cycle)
//   - ConvergenceThreshold in (0, 1]
//   - QueueCapacity >= 1
//   - Weights non-negative, summing to 1
//
// Returns:
//   - error: Validation error with clear explanation, nil if valid
func (cfg *Config) Validate() error {
	if cfg.MaxRounds < 1 {
		return fmt.Errorf("MaxRounds must be >= 1, got %d", cfg.MaxRounds)
	}

	if cfg.MemberCount < 1 {
		return fmt.Errorf("MemberCount must be >= 1, got %d", cfg.MemberCount)
	}

	if cfg.MemberTimeout <= 0 {
		return fmt.Errorf("MemberTimeout must be > 0, got %v", cfg.MemberTimeout)
	}

	if cfg.NegotiationTimeout < cfg.MemberTimeout {
		return fmt.Errorf(
			"NegotiationTimeout (%v) must be >= MemberTimeout (%v) so at least one round can finish",
			cfg.NegotiationTimeout, cfg.MemberTimeout,
		)
	}

	if cfg.CycleTimeout < cfg.NegotiationTimeout {
		return fmt.Errorf(
			"CycleTimeout (%v) must be >= NegotiationTimeout (%v) so at least one negotiation fits a cycle",
			cfg.CycleTimeout, cfg.NegotiationTimeout,
		)
	}

	if cfg.ConvergenceThreshold <= 0 || cfg.ConvergenceThreshold > 1 {
		return fmt.Errorf("ConvergenceThreshold must be in (0, 1], got %v", cfg.ConvergenceThreshold)
	}

	if cfg.QueueCapacity < 1 {
		return fmt.Errorf("QueueCapacity must be >= 1, got %d", cfg.QueueCapacity)
	}

	if cfg.MaxCycles < 0 {
		return fmt.Errorf("MaxCycles must be >= 0, got %d", cfg.MaxCycles)
	}

	if err := cfg.Weights.Validate(); err != nil {
		return fmt.Errorf("invalid scorer weights: %w", err)
	}

	return nil
}

// ValidateWithWarnings checks configuration and logs warnings for
// non-recommended values.
//
// This is called after Validate() in NewManager() to provide operator
// guidance.
//
// Parameters:
//   - logger: Logger instance for warning output
func (cfg *Config) ValidateWithWarnings(logger Logger) {
	if cfg.CycleInterval > 0 && cfg.CycleTimeout > cfg.CycleInterval {
		logger.Warn(
			"CycleTimeout exceeds CycleInterval, cycles will routinely delay their successors",
			"cycleTimeout", cfg.CycleTimeout,
			"cycleInterval", cfg.CycleInterval,
		)
	}

	if cfg.MemberTimeout < 100*time.Millisecond {
		logger.Warn(
			"MemberTimeout is very short, evaluators may be forced to abstain",
			"memberTimeout", cfg.MemberTimeout,
			"recommended", "100ms or higher",
		)
	}

	if time.Duration(cfg.MaxRounds)*cfg.MemberTimeout > cfg.NegotiationTimeout {
		logger.Warn(
			"NegotiationTimeout cannot cover MaxRounds of worst-case member stalls",
			"maxRounds", cfg.MaxRounds,
			"memberTimeout", cfg.MemberTimeout,
			"negotiationTimeout", cfg.NegotiationTimeout,
		)
	}
}

// LoadConfig reads a YAML configuration file and applies defaults.
//
// Parameters:
//   - path: YAML file path
//
// Returns:
//   - Config: Parsed configuration with defaults applied
//   - error: File or parse error; validation is left to NewManager
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	SetDefaults(&cfg)

	return cfg, nil
}

// TestConfig returns a configuration optimized for fast test execution.
//
// Test timings are 10-100x faster than production defaults to enable rapid
// iteration without sacrificing test coverage. Use DefaultConfig() for
// production deployments.
//
// Returns:
//   - Config: Configuration with fast timings for tests
//
// Example:
//
//	cfg := mustps.TestConfig()
//	cfg.MemberCount = 2
//	mgr, err := mustps.NewManager(&cfg, registry, oracle)
func TestConfig() Config {
	cfg := DefaultConfig()

	cfg.CycleInterval = 0 // run cycles back to back
	cfg.CycleTimeout = 2 * time.Second
	cfg.MemberTimeout = 100 * time.Millisecond
	cfg.NegotiationTimeout = 1 * time.Second
	cfg.ShutdownTimeout = 2 * time.Second

	return cfg
}
