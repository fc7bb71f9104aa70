package mustps

// Option configures a Manager with optional dependencies.
type Option func(*managerOptions)

// managerOptions holds optional Manager configuration.
type managerOptions struct {
	hooks   *Hooks
	metrics MetricsCollector
	logger  Logger
}

// WithHooks sets lifecycle event hooks.
//
// Parameters:
//   - hooks: Hooks structure with callback functions
//
// Returns:
//   - Option: Functional option for NewManager
//
// Example:
//
//	hooks := &mustps.Hooks{
//	    OnCycleCompleted: func(ctx context.Context, result *mustps.CycleResult) error {
//	        return publishResult(result)
//	    },
//	}
//	mgr, _ := mustps.NewManager(&cfg, registry, oracle, mustps.WithHooks(hooks))
func WithHooks(hooks *Hooks) Option {
	return func(o *managerOptions) {
		o.hooks = hooks
	}
}

// WithMetrics sets a metrics collector.
//
// Parameters:
//   - metrics: MetricsCollector implementation
//
// Returns:
//   - Option: Functional option for NewManager
//
// Example:
//
//	collector := metrics.NewPrometheus(prometheus.DefaultRegisterer, "mustps")
//	mgr, _ := mustps.NewManager(&cfg, registry, oracle, mustps.WithMetrics(collector))
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *managerOptions) {
		o.metrics = metrics
	}
}

// WithLogger sets a logger.
//
// Parameters:
//   - logger: Logger implementation (compatible with slog-backed loggers)
//
// Returns:
//   - Option: Functional option for NewManager
//
// Example:
//
//	logger := logging.NewSlogDefault()
//	mgr, _ := mustps.NewManager(&cfg, registry, oracle, mustps.WithLogger(logger))
func WithLogger(logger Logger) Option {
	return func(o *managerOptions) {
		o.logger = logger
	}
}
