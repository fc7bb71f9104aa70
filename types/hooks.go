package types

import "context"

// Hooks contains optional lifecycle callbacks.
//
// All hooks are invoked asynchronously so they cannot block cycle progress.
// A nil callback is skipped. Hook errors are logged, never propagated.
type Hooks struct {
	// OnStateChanged is called after a manager state transition.
	OnStateChanged func(ctx context.Context, from, to State) error

	// OnNegotiationConcluded is called when a negotiation reaches a terminal
	// status, before its result is appended to the cycle.
	OnNegotiationConcluded func(ctx context.Context, n *Negotiation) error

	// OnCycleCompleted is called after a cycle closes with its full result.
	OnCycleCompleted func(ctx context.Context, result *CycleResult) error
}
