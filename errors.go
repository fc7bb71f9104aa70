package mustps

import "errors"

// Sentinel errors returned by the Manager.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrRegistryRequired is returned when the fleet registry is nil.
	ErrRegistryRequired = errors.New("fleet registry is required")

	// ErrOracleRequired is returned when the position oracle is nil.
	ErrOracleRequired = errors.New("position oracle is required")

	// ErrAlreadyStarted is returned when Start is called on a running manager.
	ErrAlreadyStarted = errors.New("manager already started")

	// ErrNotStarted is returned when Stop or SubmitDetectedTargets is called
	// on a manager that has not been started.
	ErrNotStarted = errors.New("manager not started")

	// ErrCycleInProgress is returned when RunCycle is called while another
	// cycle is already executing.
	ErrCycleInProgress = errors.New("planning cycle already in progress")

	// ErrQueueFull is returned when the ingestion queue cannot accept more
	// targets.
	ErrQueueFull = errors.New("target queue full")
)
