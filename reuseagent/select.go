package reuseagent

import (
	"context"
	"math"

	"github.com/fastbot/reuse-core/reusemodel"
)

const gumbelEps = 1e-9

// SelectAction runs the priority cascade and records the chosen action
// as the agent's last selection, consumed by the next Observe call. It
// always returns a concrete action — the null handler is the only
// bottom.
func (a *Agent) SelectAction(ctx context.Context, state reusemodel.State) reusemodel.Action {
	visited := a.cloneVisited()

	action := a.selectNewAction(ctx, state, visited)

	a.mu.Lock()
	a.lastAction = action
	a.lastState = state
	a.hasLast = true
	a.mu.Unlock()

	return action
}

func (a *Agent) selectNewAction(ctx context.Context, state reusemodel.State, visited map[uint64]bool) reusemodel.Action {
	if act, ok := a.unknownAction(ctx, state, visited); ok {
		return act
	}
	if act, ok := a.bestExplorationBonus(ctx, state, visited); ok {
		return act
	}
	if act, ok := a.unvisitedNonModelAction(state); ok {
		return act
	}
	if act, ok := a.qValueArgmax(state); ok {
		return act
	}
	if act, ok := a.epsilonGreedy(state); ok {
		return act
	}
	return a.nullHandler(state)
}

// unknownAction implements cascade step 1: an action whose verb is
// model-act, absent from the local store, with no cross-platform
// match and never visited. Draw by priority-weighted sampling.
func (a *Agent) unknownAction(ctx context.Context, state reusemodel.State, visited map[uint64]bool) (reusemodel.Action, bool) {
	var candidates []reusemodel.Action
	for _, act := range state.TargetActions() {
		if !act.Verb.IsModelAct() || act.VisitedCount != 0 {
			continue
		}
		if a.store.Has(act.Hash) {
			continue
		}
		if a.registry.FindSimilarAction(ctx, act.Hash, act.TargetAttributes()).Matched {
			continue
		}
		candidates = append(candidates, act)
	}
	if len(candidates) == 0 {
		return reusemodel.Action{}, false
	}
	return a.priorityWeightedPick(candidates), true
}

// bestExplorationBonus implements cascade step 2: quality values
// perturbed by Gumbel noise, argmax over never-visited candidates with
// a non-negligible raw q.
func (a *Agent) bestExplorationBonus(ctx context.Context, state reusemodel.State, visited map[uint64]bool) (reusemodel.Action, bool) {
	seenTargets := make(map[uint64]bool)

	var best reusemodel.Action
	var bestScore float64
	found := false

	for _, act := range state.TargetActions() {
		if act.VisitedCount != 0 {
			continue
		}

		if act.Target != nil {
			if seenTargets[act.Target.Hash] {
				continue
			}
			seenTargets[act.Target.Hash] = true
		}

		q, _ := a.quality(ctx, act, state, visited)
		if q <= 1e-4 {
			continue
		}

		score := 10*q - math.Log(-math.Log(a.uniformOpen()))
		if !found || score > bestScore {
			best, bestScore, found = act, score, true
		}
	}

	return best, found
}

// unvisitedNonModelAction implements cascade step 3: a never-visited
// navigation-only action, drawn uniformly.
func (a *Agent) unvisitedNonModelAction(state reusemodel.State) (reusemodel.Action, bool) {
	var candidates []reusemodel.Action
	for _, act := range state.Actions {
		if act.Verb.IsModelAct() || act.VisitedCount != 0 {
			continue
		}
		candidates = append(candidates, act)
	}
	if len(candidates) == 0 {
		return reusemodel.Action{}, false
	}
	return candidates[a.rng.IntN(len(candidates))], true
}

// qValueArgmax implements cascade step 4: Gumbel-perturbed Q-value
// argmax over every action in the state.
func (a *Agent) qValueArgmax(state reusemodel.State) (reusemodel.Action, bool) {
	if len(state.Actions) == 0 {
		return reusemodel.Action{}, false
	}

	var best reusemodel.Action
	var bestScore float64
	found := false

	for _, act := range state.Actions {
		q := a.qValueOf(act.Hash, act.QValue)
		score := 10*(q/0.1) - math.Log(-math.Log(a.uniformOpen()))
		if !found || score > bestScore {
			best, bestScore, found = act, score, true
		}
	}
	return best, found
}

// epsilonGreedy implements cascade step 5.
func (a *Agent) epsilonGreedy(state reusemodel.State) (reusemodel.Action, bool) {
	if len(state.Actions) == 0 {
		return reusemodel.Action{}, false
	}

	if a.eGreedy() {
		best := state.Actions[0]
		bestQ := a.qValueOf(best.Hash, best.QValue)
		for _, act := range state.Actions[1:] {
			q := a.qValueOf(act.Hash, act.QValue)
			if q > bestQ {
				best, bestQ = act, q
			}
		}
		return best, true
	}

	return state.Actions[a.rng.IntN(len(state.Actions))], true
}

// eGreedy returns false with probability epsilon, in which case the
// caller should fall back to a uniform random pick.
func (a *Agent) eGreedy() bool {
	return a.rng.Float64() >= a.cfg.Epsilon
}

// nullHandler implements cascade step 6: a deterministic fallback,
// preferring an explicit BACK action when present.
func (a *Agent) nullHandler(state reusemodel.State) reusemodel.Action {
	for _, act := range state.Actions {
		if act.Verb == reusemodel.VerbBack {
			return act
		}
	}
	if len(state.Actions) > 0 {
		return state.Actions[0]
	}
	return reusemodel.Action{Verb: reusemodel.VerbBack}
}

func (a *Agent) priorityWeightedPick(candidates []reusemodel.Action) reusemodel.Action {
	var total float64
	for _, c := range candidates {
		p := c.Priority
		if p <= 0 {
			p = 1
		}
		total += p
	}
	if total <= 0 {
		return candidates[a.rng.IntN(len(candidates))]
	}

	target := a.rng.Float64() * total
	var acc float64
	for _, c := range candidates {
		p := c.Priority
		if p <= 0 {
			p = 1
		}
		acc += p
		if target <= acc {
			return c
		}
	}
	return candidates[len(candidates)-1]
}

// uniformOpen draws u in (eps, 1), the open interval the Gumbel
// perturbation requires to keep log(-log(u)) finite.
func (a *Agent) uniformOpen() float64 {
	u := a.rng.Float64()
	if u < gumbelEps {
		u = gumbelEps
	}
	if u >= 1 {
		u = 1 - gumbelEps
	}
	return u
}
