// Package mustps implements a rolling planning cycle that assigns detected
// threat targets to a fleet of autonomous tracking units through distributed
// consensus negotiation.
//
// The Manager is the main entry point. It runs planning cycles on a fixed
// interval (or back to back), and each cycle:
//
//  1. Collects detected targets from the ingestion queue, including targets
//     carried over from the previous cycle.
//  2. Distributes each target to the nearest unit with spare capacity, which
//     becomes the negotiation leader, and recruits the next K nearest units
//     as member candidates.
//  3. Runs one bounded multi-round consensus negotiation per target. At most
//     one negotiation is active at a time; within a round, member proposals
//     are gathered in parallel.
//  4. Commits the agreed tracking group to the fleet registry, substituting
//     the best-effort or fallback assignment when the negotiation times out
//     or fails, and closes the cycle with a CycleResult.
//
// A target is never silently dropped: when no unit has spare capacity the
// target is carried to the next cycle in arrival order.
//
// Basic usage:
//
//	registry, err := fleet.NewRegistry(specs)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cfg := mustps.DefaultConfig()
//	mgr, err := mustps.NewManager(&cfg, registry, oracle)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := mgr.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer mgr.Stop(context.Background())
//
//	mgr.SubmitDetectedTargets(detected...)
//
// Observability is injected through options: WithLogger for structured
// logging, WithMetrics for a MetricsCollector (a Prometheus-backed collector
// ships with the library), and WithHooks for lifecycle callbacks. The
// transport subpackage adds optional NATS ingestion and result publication
// around an in-process Manager.
package mustps
