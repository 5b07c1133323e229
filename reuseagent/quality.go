package reuseagent

import (
	"context"

	"github.com/fastbot/reuse-core/reusemodel"
)

// qualitySource tags which branch of the quality-value computation
// produced a result, used again by the reward's g(w) categorization.
type qualitySource int

const (
	sourceNovel qualitySource = iota
	sourceLocal
	sourceExternal
)

// quality computes q for an action: local-store probability of
// reaching unvisited widgets, else the same ratio off a cross-platform
// match, else pure novelty.
func (a *Agent) quality(ctx context.Context, action reusemodel.Action, state reusemodel.State, visited map[uint64]bool) (float64, qualitySource) {
	if entry := a.store.LookupEntry(action.Hash); entry != nil {
		total := entry.TotalCount()
		if total == 0 {
			return 1.0, sourceNovel
		}
		unvisited := a.store.UnvisitedCount(action.Hash, visited)
		return float64(unvisited) / float64(total), sourceLocal
	}

	target := action.TargetAttributes()
	match := a.registry.FindSimilarAction(ctx, action.Hash, target)
	if match.Matched {
		var total, unvisited int64
		for widgetHash, wc := range match.WidgetCounts {
			total += int64(wc.Count)
			if !a.registry.IsWidgetAlreadyVisited(ctx, match.PlatformTag, widgetHash, state.Widgets, visited) {
				unvisited += int64(wc.Count)
			}
		}
		if total == 0 {
			return 1.0, sourceNovel
		}
		return float64(unvisited) / float64(total), sourceExternal
	}

	return 1.0, sourceNovel
}
