package reuseagent

import (
	"context"
	"math"

	"github.com/fastbot/reuse-core/reusemodel"
)

// computeReward combines the last action's own widget-probability
// term with a state term over the widgets landed on in newState.
func (a *Agent) computeReward(ctx context.Context, last reusemodel.Action, newState reusemodel.State, visited map[uint64]bool) float64 {
	p, _ := a.quality(ctx, last, a.lastState, visited)

	lastTerm := p / math.Sqrt(float64(last.VisitedCount+1))

	var stateSum float64
	for _, w := range newState.Widgets {
		stateSum += a.widgetRewardTerm(ctx, w, newState, visited)
	}
	stateTerm := stateSum / math.Sqrt(float64(newState.VisitedCount+1))

	return lastTerm + stateTerm
}

// widgetRewardTerm sums, over every action targeting w, a category
// score (0.5 when a local-store action has already been visited this
// run, 0.7 when a cross-platform match covers it, 1.0 when the action
// is unknown to both) plus that action's own quality value. A widget
// with no targeting action contributes 0.
func (a *Agent) widgetRewardTerm(ctx context.Context, w reusemodel.Widget, state reusemodel.State, visited map[uint64]bool) float64 {
	var sum float64

	for _, act := range state.Actions {
		if act.Target == nil || act.Target.Hash != w.Hash {
			continue
		}

		var category float64
		switch {
		case a.store.Has(act.Hash):
			if act.VisitedCount >= 1 {
				category = 0.5
			}
		case a.registry.FindSimilarAction(ctx, act.Hash, act.TargetAttributes()).Matched:
			category = 0.7
		default:
			category = 1.0
		}

		q, _ := a.quality(ctx, act, state, visited)
		sum += category + q
	}

	return sum
}
