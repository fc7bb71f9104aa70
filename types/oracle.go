package types

import (
	"context"
	"errors"
	"time"
)

// Position is a geodetic position: latitude and longitude in degrees,
// altitude in kilometers.
type Position struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
	Alt float64 `json:"alt" yaml:"alt"`
}

// ErrOracleUnavailable is returned by a PositionOracle when it cannot resolve
// a position. The distributor excludes the affected unit from candidate
// selection for the current cycle only; the error is never fatal.
var ErrOracleUnavailable = errors.New("position oracle unavailable")

// PositionOracle resolves unit positions and distances.
//
// The oracle is an external collaborator (orbital propagation, STK interface,
// or a static table in tests). Implementations must be safe for concurrent
// use.
type PositionOracle interface {
	// Position returns the position of the given unit at the given time.
	//
	// Returns:
	//   - Position: Resolved geodetic position
	//   - error: ErrOracleUnavailable (possibly wrapped) if the position
	//     cannot be resolved
	Position(ctx context.Context, unitID string, at time.Time) (Position, error)

	// Distance returns the distance between two positions in kilometers.
	Distance(a, b Position) float64
}
