package testing

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/dinglinghu/must-ps/types"
)

// earthRadiusKm is the spherical Earth radius used for haversine distances.
const earthRadiusKm = 6371.0

// StaticOracle is a deterministic PositionOracle backed by a fixed position
// table. Units can be marked as failing to exercise oracle-unavailable
// paths. Safe for concurrent use.
type StaticOracle struct {
	mu        sync.RWMutex
	positions map[string]types.Position
	failing   map[string]bool
}

var _ types.PositionOracle = (*StaticOracle)(nil)

// NewStaticOracle creates an empty static oracle.
func NewStaticOracle() *StaticOracle {
	return &StaticOracle{
		positions: make(map[string]types.Position),
		failing:   make(map[string]bool),
	}
}

// SetPosition fixes a unit's position for all lookups.
func (o *StaticOracle) SetPosition(unitID string, pos types.Position) {
	o.mu.Lock()
	o.positions[unitID] = pos
	o.mu.Unlock()
}

// FailUnit makes every Position lookup for the unit return
// types.ErrOracleUnavailable until RestoreUnit is called.
func (o *StaticOracle) FailUnit(unitID string) {
	o.mu.Lock()
	o.failing[unitID] = true
	o.mu.Unlock()
}

// RestoreUnit clears a failure injected with FailUnit.
func (o *StaticOracle) RestoreUnit(unitID string) {
	o.mu.Lock()
	delete(o.failing, unitID)
	o.mu.Unlock()
}

// Position returns the unit's fixed position.
func (o *StaticOracle) Position(_ context.Context, unitID string, _ time.Time) (types.Position, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.failing[unitID] {
		return types.Position{}, fmt.Errorf("%w: unit %s", types.ErrOracleUnavailable, unitID)
	}
	pos, ok := o.positions[unitID]
	if !ok {
		return types.Position{}, fmt.Errorf("%w: unit %s has no position", types.ErrOracleUnavailable, unitID)
	}

	return pos, nil
}

// Distance returns the haversine great-circle distance in kilometers,
// adjusted for the altitude difference.
func (o *StaticOracle) Distance(a, b types.Position) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	surface := 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
	dAlt := a.Alt - b.Alt

	return math.Sqrt(surface*surface + dAlt*dAlt)
}

// PlaceAtDistance positions the unit due east of ref so its haversine
// distance from ref is approximately km. Tests that need exact distance
// rankings (e.g., 10/25/40 km scenarios) use this instead of hand-computing
// coordinates.
func PlaceAtDistance(o *StaticOracle, unitID string, ref types.Position, km float64) {
	// One degree of longitude at latitude φ spans ~111.32*cos(φ) km.
	degPerKm := 1.0 / (111.32 * math.Cos(ref.Lat*math.Pi/180))
	o.SetPosition(unitID, types.Position{
		Lat: ref.Lat,
		Lon: ref.Lon + km*degPerKm,
		Alt: ref.Alt,
	})
}
