// Package testing provides test utilities for the must-ps library.
//
// It follows Go's convention of providing testing utilities in a dedicated
// package (similar to net/http/httptest).
//
// Key utilities:
//   - StaticOracle: deterministic PositionOracle backed by a fixed table
//   - Scripted/Erroring/Stalling evaluators: DecisionEvaluator doubles
//   - StartEmbeddedNATS: in-process NATS server with JetStream for
//     transport tests
//   - NewTestLogger: logger writing to testing.T
//
// Example usage:
//
//	import (
//	    "testing"
//	    mustpstest "github.com/dinglinghu/must-ps/testing"
//	)
//
//	func TestMyComponent(t *testing.T) {
//	    oracle := mustpstest.NewStaticOracle()
//	    oracle.SetPosition("sat-1", types.Position{Lat: 10, Lon: 20, Alt: 550})
//	    // ...
//	}
package testing
