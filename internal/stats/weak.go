package stats

import (
	"github.com/verte-zerg/signtutor/internal/model"
)

// WeakestTargets returns up to top labels with the lowest accuracy among
// targets attempted at least minAttempts times.
func WeakestTargets(aggs []model.TargetAggregate, top, minAttempts int) []string {
	candidates := make([]model.TargetAggregate, 0, len(aggs))
	for _, agg := range aggs {
		if agg.Attempts >= minAttempts && agg.Attempts > 0 {
			candidates = append(candidates, agg)
		}
	}
	sortWeakest(candidates)
	if top <= 0 || top > len(candidates) {
		top = len(candidates)
	}
	out := make([]string, 0, top)
	for i := 0; i < top; i++ {
		out = append(out, candidates[i].Label)
	}
	return out
}

// SortedWeakest returns a copy of aggs ordered by ascending accuracy.
func SortedWeakest(aggs []model.TargetAggregate) []model.TargetAggregate {
	out := make([]model.TargetAggregate, len(aggs))
	copy(out, aggs)
	sortWeakest(out)
	return out
}
