package scorer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dinglinghu/must-ps/types"
)

func testTarget() types.TargetDescriptor {
	return types.TargetDescriptor{
		ID:       "tgt-1",
		Position: types.Position{Lat: 10, Lon: 20, Alt: 100},
	}
}

func testGroup() []Candidate {
	return []Candidate{
		{ID: "sat-1", Position: types.Position{Lat: 12, Lon: 18, Alt: 550}, Capacity: 3, Load: 0.2},
		{ID: "sat-2", Position: types.Position{Lat: 8, Lon: 23, Alt: 560}, Capacity: 3, Load: 0.4},
		{ID: "sat-3", Position: types.Position{Lat: 14, Lon: 24, Alt: 540}, Capacity: 2, Load: 0.5},
	}
}

func TestWeights_Validate(t *testing.T) {
	tests := []struct {
		name    string
		weights Weights
		wantErr bool
	}{
		{"defaults", DefaultWeights(), false},
		{"exact sum", Weights{Geometry: 0.5, Schedulability: 0.25, Robustness: 0.25}, false},
		{"sum below one", Weights{Geometry: 0.3, Schedulability: 0.3, Robustness: 0.3}, true},
		{"sum above one", Weights{Geometry: 0.5, Schedulability: 0.5, Robustness: 0.5}, true},
		{"negative weight", Weights{Geometry: -0.2, Schedulability: 0.6, Robustness: 0.6}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.weights.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNew_RejectsInvalidWeights(t *testing.T) {
	_, err := New(Weights{Geometry: 1, Schedulability: 1, Robustness: 1})
	require.Error(t, err)
}

func TestScore_Idempotent(t *testing.T) {
	s, err := New(DefaultWeights())
	require.NoError(t, err)

	target := testTarget()
	group := testGroup()

	first := s.Score(group, target)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, s.Score(group, target), "scoring must be bit-identical across runs")
	}
}

func TestScore_OrderIndependent(t *testing.T) {
	s, err := New(DefaultWeights())
	require.NoError(t, err)

	target := testTarget()
	group := testGroup()
	reversed := []Candidate{group[2], group[1], group[0]}

	require.Equal(t, s.Score(group, target), s.Score(reversed, target))
}

func TestScore_RangesAndComposite(t *testing.T) {
	w := DefaultWeights()
	s, err := New(w)
	require.NoError(t, err)

	m := s.Score(testGroup(), testTarget())

	for name, v := range map[string]float64{
		"geometry":       m.Geometry,
		"schedulability": m.Schedulability,
		"robustness":     m.Robustness,
		"composite":      m.Composite,
	} {
		require.GreaterOrEqual(t, v, 0.0, name)
		require.LessOrEqual(t, v, 1.0, name)
	}

	expected := w.Geometry*m.Geometry + w.Schedulability*m.Schedulability + w.Robustness*m.Robustness
	require.InDelta(t, expected, m.Composite, 1e-12)
}

func TestScore_SingleUnitPenalty(t *testing.T) {
	s, err := New(DefaultWeights())
	require.NoError(t, err)

	target := testTarget()
	pair := testGroup()[:2]
	single := testGroup()[:1]

	pairMetrics := s.Score(pair, target)
	singleMetrics := s.Score(single, target)

	// A lone unit cannot triangulate and has no redundancy.
	require.Less(t, singleMetrics.Geometry, pairMetrics.Geometry)
	require.Zero(t, singleMetrics.Robustness)
}

func TestScore_SchedulabilityCoverage(t *testing.T) {
	s, err := New(DefaultWeights())
	require.NoError(t, err)

	target := testTarget()

	idle := []Candidate{
		{ID: "sat-1", Position: types.Position{Lat: 12, Lon: 18, Alt: 550}, Capacity: 3, Load: 0},
		{ID: "sat-2", Position: types.Position{Lat: 8, Lon: 23, Alt: 560}, Capacity: 3, Load: 0},
	}
	busy := []Candidate{
		{ID: "sat-1", Position: types.Position{Lat: 12, Lon: 18, Alt: 550}, Capacity: 3, Load: 1},
		{ID: "sat-2", Position: types.Position{Lat: 8, Lon: 23, Alt: 560}, Capacity: 3, Load: 1},
	}

	require.InDelta(t, 1.0, s.Score(idle, target).Schedulability, 1e-12)
	require.InDelta(t, 0.0, s.Score(busy, target).Schedulability, 1e-12)
}

func TestScore_EmptyGroup(t *testing.T) {
	s, err := New(DefaultWeights())
	require.NoError(t, err)

	require.Equal(t, types.OptimizationMetrics{}, s.Score(nil, testTarget()))
}

func TestGroupDilution_DegenerateGeometry(t *testing.T) {
	target := types.Position{Lat: 0, Lon: 0, Alt: 0}

	// Two units stacked on the same line of sight: collinear, no
	// triangulation possible.
	collinear := []Candidate{
		{ID: "sat-1", Position: types.Position{Lat: 0, Lon: 0, Alt: 500}},
		{ID: "sat-2", Position: types.Position{Lat: 0, Lon: 0, Alt: 800}},
	}

	require.Zero(t, geometryScore(target, collinear))
}
