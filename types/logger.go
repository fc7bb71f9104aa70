package types

// Logger is the logging interface used throughout the library.
//
// It follows the structured key/value convention of log/slog and
// zap.SugaredLogger, so either can back it with a thin adapter. The library
// defaults to a no-op logger when none is provided.
type Logger interface {
	// Debug logs a debug-level message with optional key-value pairs.
	Debug(msg string, keysAndValues ...any)

	// Info logs an info-level message with optional key-value pairs.
	Info(msg string, keysAndValues ...any)

	// Warn logs a warning-level message with optional key-value pairs.
	Warn(msg string, keysAndValues ...any)

	// Error logs an error-level message with optional key-value pairs.
	Error(msg string, keysAndValues ...any)
}
