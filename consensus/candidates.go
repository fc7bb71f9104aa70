package consensus

import (
	"sort"
	"strings"

	"github.com/dinglinghu/must-ps/scorer"
	"github.com/dinglinghu/must-ps/types"
)

// candidateGroup is one scored sub-group of participants.
type candidateGroup struct {
	ids     []string // sorted unit IDs
	key     string   // canonical join of ids, for deterministic ordering
	metrics types.OptimizationMetrics
	score   float64 // composite weighted by the group's mean willingness
}

// rankCandidates enumerates candidate sub-groups from the round's active
// proposals and ranks them by willingness-weighted composite score.
//
// Candidates are every pair of active participants (mirroring pairwise
// tracking geometry) plus each active singleton as a baseline. Ordering is
// fully deterministic: ties are broken by the canonical group key.
func (p *Protocol) rankCandidates(rec types.NegotiationRound) []candidateGroup {
	active := rec.Active()
	if len(active) == 0 {
		return nil
	}

	willingness := make(map[string]float64, len(active))
	ids := make([]string, 0, len(active))
	for _, prop := range active {
		willingness[prop.UnitID] = prop.Willingness
		ids = append(ids, prop.UnitID)
	}
	sort.Strings(ids)

	var groups []candidateGroup
	for i := 0; i < len(ids); i++ {
		groups = append(groups, p.buildGroup([]string{ids[i]}, willingness))
		for j := i + 1; j < len(ids); j++ {
			groups = append(groups, p.buildGroup([]string{ids[i], ids[j]}, willingness))
		}
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].score != groups[j].score {
			return groups[i].score > groups[j].score
		}

		return groups[i].key < groups[j].key
	})

	return groups
}

func (p *Protocol) buildGroup(ids []string, willingness map[string]float64) candidateGroup {
	candidates := make([]scorer.Candidate, 0, len(ids))
	sum := 0.0
	for _, id := range ids {
		sum += willingness[id]
		if c, ok := p.plan.Candidate(id); ok {
			candidates = append(candidates, c)
		} else {
			candidates = append(candidates, scorer.Candidate{ID: id})
		}
	}

	metrics := p.scorer.Score(candidates, p.target.TargetDescriptor)
	mean := sum / float64(len(ids))

	return candidateGroup{
		ids:     ids,
		key:     strings.Join(ids, "+"),
		metrics: metrics,
		score:   metrics.Composite * mean,
	}
}

// agreementSpread returns the normalized spread between the top-ranked and
// second-ranked candidate groups: (top-second)/top in [0, 1]. With fewer
// than two candidates there is no measurable separation and the spread is 0;
// a lone active participant can still converge via unanimous preference.
func agreementSpread(ranking []candidateGroup) float64 {
	if len(ranking) < 2 {
		return 0
	}
	top := ranking[0].score
	if top <= 0 {
		return 0
	}

	return (top - ranking[1].score) / top
}

// unanimousPreference reports whether every active proposal endorses the
// same non-empty final group. Preference order does not matter; the sets
// must coincide.
func unanimousPreference(active []types.Proposal) bool {
	if len(active) == 0 {
		return false
	}

	first := canonicalSet(active[0].Preferred)
	if first == "" {
		return false
	}
	for _, prop := range active[1:] {
		if canonicalSet(prop.Preferred) != first {
			return false
		}
	}

	return true
}

func canonicalSet(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	return strings.Join(sorted, "+")
}
