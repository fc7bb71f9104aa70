package transport

import "time"

// Config is the configuration for the NATS transport adapter.
type Config struct {
	// TargetSubject is the subject detections are consumed from. Each
	// message carries one JSON-encoded TargetDescriptor.
	TargetSubject string `yaml:"targetSubject"`

	// ResultSubject is the subject completed cycle results are published to.
	ResultSubject string `yaml:"resultSubject"`

	// AssignmentBucket is the JetStream KV bucket name for the per-unit
	// assignment bulletin.
	AssignmentBucket string `yaml:"assignmentBucket"`

	// AssignmentTTL is how long bulletin entries remain in KV (0 = no
	// expiration). Entries are overwritten each cycle a unit is assigned.
	AssignmentTTL time.Duration `yaml:"assignmentTtl"`

	// OperationTimeout bounds KV operations during Start and publication.
	OperationTimeout time.Duration `yaml:"operationTimeout"`
}

// DefaultConfig returns a Config with sensible defaults.
//
// Returns:
//   - Config: Configuration with default values
func DefaultConfig() Config {
	return Config{
		TargetSubject:    "mustps.targets.detected",
		ResultSubject:    "mustps.cycles.completed",
		AssignmentBucket: "mustps-assignment",
		AssignmentTTL:    0,
		OperationTimeout: 10 * time.Second,
	}
}

// SetDefaults fills in missing configuration values with defaults.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.TargetSubject == "" {
		cfg.TargetSubject = defaults.TargetSubject
	}
	if cfg.ResultSubject == "" {
		cfg.ResultSubject = defaults.ResultSubject
	}
	if cfg.AssignmentBucket == "" {
		cfg.AssignmentBucket = defaults.AssignmentBucket
	}
	if cfg.OperationTimeout == 0 {
		cfg.OperationTimeout = defaults.OperationTimeout
	}
	// An AssignmentTTL of 0 is valid (no expiration), so no default applies.
}
