package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dinglinghu/must-ps/types"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	stateTransitions  *prometheus.CounterVec
	cycleDuration     prometheus.Histogram
	cycleResults      prometheus.Histogram
	negotiations      *prometheus.CounterVec
	negotiationRounds prometheus.Histogram
	negotiationTime   *prometheus.HistogramVec
	memberAbstains    *prometheus.CounterVec
	oracleFailures    *prometheus.CounterVec
	reservedSlots     prometheus.Gauge
	queueDepth        prometheus.Gauge
}

// Compile-time assertion that PrometheusCollector implements MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer (uses prometheus.DefaultRegisterer if nil)
//   - namespace: Metrics namespace (defaults to "mustps" if empty)
//
// Returns:
//   - *PrometheusCollector: A MetricsCollector implementation using Prometheus
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "mustps"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.stateTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "manager",
			Name:      "state_transitions_total",
			Help:      "Total manager state transitions by from/to state.",
		}, []string{"from", "to"})

		p.cycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "cycle",
			Name:      "duration_seconds",
			Help:      "Planning cycle durations in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		})
		p.cycleResults = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "cycle",
			Name:      "results_per_cycle",
			Help:      "Number of target results produced per cycle.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		})

		p.negotiations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "negotiation",
			Name:      "concluded_total",
			Help:      "Total concluded negotiations by terminal status.",
		}, []string{"status"})
		p.negotiationRounds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "negotiation",
			Name:      "rounds",
			Help:      "Rounds completed per negotiation.",
			Buckets:   []float64{1, 2, 3, 4, 5, 8, 10},
		})
		p.negotiationTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "negotiation",
			Name:      "duration_seconds",
			Help:      "Negotiation durations in seconds by terminal status.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60},
		}, []string{"status"})

		p.memberAbstains = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "negotiation",
			Name:      "member_abstains_total",
			Help:      "Synthetic abstain proposals substituted for member timeouts or errors.",
		}, []string{"unit"})
		p.oracleFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "distributor",
			Name:      "oracle_failures_total",
			Help:      "Position oracle failures that excluded a unit from candidate selection.",
		}, []string{"unit"})

		p.reservedSlots = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "fleet",
			Name:      "reserved_slots",
			Help:      "Current number of reserved fleet tracking slots.",
		})
		p.queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "manager",
			Name:      "queue_depth",
			Help:      "Current target queue depth.",
		})

		collectors := []prometheus.Collector{
			p.stateTransitions, p.cycleDuration, p.cycleResults,
			p.negotiations, p.negotiationRounds, p.negotiationTime,
			p.memberAbstains, p.oracleFailures, p.reservedSlots, p.queueDepth,
		}
		for _, c := range collectors {
			// AlreadyRegisteredError is tolerated so multiple managers can
			// share a registerer in tests.
			if err := p.reg.Register(c); err != nil {
				if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
					panic(err)
				}
			}
		}
	})
}

// RecordStateTransition records a manager state transition.
func (p *PrometheusCollector) RecordStateTransition(from, to types.State) {
	p.ensureRegistered()
	p.stateTransitions.WithLabelValues(from.String(), to.String()).Inc()
}

// RecordCycleDuration records a completed cycle's duration and result count.
func (p *PrometheusCollector) RecordCycleDuration(seconds float64, results int) {
	p.ensureRegistered()
	p.cycleDuration.Observe(seconds)
	p.cycleResults.Observe(float64(results))
}

// RecordNegotiation records a concluded negotiation.
func (p *PrometheusCollector) RecordNegotiation(status types.NegotiationStatus, rounds int, seconds float64) {
	p.ensureRegistered()
	p.negotiations.WithLabelValues(status.String()).Inc()
	p.negotiationRounds.Observe(float64(rounds))
	p.negotiationTime.WithLabelValues(status.String()).Observe(seconds)
}

// RecordMemberAbstain counts an abstain substitution for the given unit.
func (p *PrometheusCollector) RecordMemberAbstain(unitID string) {
	p.ensureRegistered()
	p.memberAbstains.WithLabelValues(unitID).Inc()
}

// RecordOracleFailure counts an oracle failure for the given unit.
func (p *PrometheusCollector) RecordOracleFailure(unitID string) {
	p.ensureRegistered()
	p.oracleFailures.WithLabelValues(unitID).Inc()
}

// SetReservedSlots records the current number of reserved fleet slots.
func (p *PrometheusCollector) SetReservedSlots(count int) {
	p.ensureRegistered()
	p.reservedSlots.Set(float64(count))
}

// SetQueueDepth records the current target queue depth.
func (p *PrometheusCollector) SetQueueDepth(depth int) {
	p.ensureRegistered()
	p.queueDepth.Set(float64(depth))
}
