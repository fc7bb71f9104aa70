// Package hooks provides the default no-op lifecycle hooks.
package hooks

import (
	"context"

	"github.com/dinglinghu/must-ps/types"
)

// NewNop creates a Hooks value whose callbacks all succeed without effect.
//
// This is the default used when no custom hooks are provided, eliminating
// nil checks at every invocation site.
//
// Returns:
//   - types.Hooks: Hooks with no-op implementations
func NewNop() types.Hooks {
	return types.Hooks{
		OnStateChanged: func(_ context.Context, _, _ types.State) error {
			return nil
		},
		OnNegotiationConcluded: func(_ context.Context, _ *types.Negotiation) error {
			return nil
		},
		OnCycleCompleted: func(_ context.Context, _ *types.CycleResult) error {
			return nil
		},
	}
}
