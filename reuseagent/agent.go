// Package reuseagent implements ReuseAgent: the orchestrator that
// picks actions via the priority cascade, then updates
// rewards, the local reuse store and Q-values via an n-step
// SARSA-like rule.
package reuseagent

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/fastbot/reuse-core/external"
	"github.com/fastbot/reuse-core/reusemodel"
	"github.com/fastbot/reuse-core/reusestore"
	"github.com/fastbot/reuse-core/similarity"
)

// Agent is a single package's reuse-driven action selector. It is safe
// for concurrent use by the host's selection thread and the
// background PersistenceTask; a single mutex guards the
// visited-widget set and the SARSA buffers, never the store or
// registry (each owns its own locking).
type Agent struct {
	store    *reusestore.Store
	registry *external.Registry
	engine   *similarity.Engine
	graph    reusemodel.Graph
	cfg      Config
	rng      *rand.Rand
	log      *slog.Logger

	mu              sync.Mutex
	visited         map[uint64]bool
	previousActions *boundedQueue[actionRecord]
	rewardCache     *boundedQueue[float64]
	qValues         map[uint64]float64
	lastAction      reusemodel.Action
	lastState       reusemodel.State
	hasLast         bool
}

// NewAgent builds an Agent over an already-loaded store and registry.
// seed1/seed2 construct the agent's single long-lived PRNG
// (math/rand/v2's rand.PCG) — never reseeded per call, resolving spec
// §9's Open Question about the source's defective per-call reseeding.
func NewAgent(store *reusestore.Store, registry *external.Registry, engine *similarity.Engine, graph reusemodel.Graph, cfg Config, seed1, seed2 uint64, log *slog.Logger) *Agent {
	if log == nil {
		log = slog.Default()
	}
	cfg = cfg.withDefaults()

	return &Agent{
		store:           store,
		registry:        registry,
		engine:          engine,
		graph:           graph,
		cfg:             cfg,
		rng:             rand.New(rand.NewPCG(seed1, seed2)),
		log:             log,
		visited:         make(map[uint64]bool),
		previousActions: newBoundedQueue[actionRecord](cfg.BufferLen),
		rewardCache:     newBoundedQueue[float64](cfg.BufferLen),
		qValues:         make(map[uint64]float64),
	}
}

func (a *Agent) cloneVisited() map[uint64]bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cloneVisitedLocked()
}

// qValueOf returns the agent's own running Q estimate for actionHash,
// falling back to fallback (the host-supplied Action.QValue) the
// first time an action is seen — the agent is the sole writer of
// Q-values from that point on.
func (a *Agent) qValueOf(actionHash uint64, fallback float64) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if q, ok := a.qValues[actionHash]; ok {
		return q
	}
	return fallback
}

// Observe computes the reward for the last selected action, runs the
// n-step SARSA update, records the observation into the local store,
// and extends the visited-widget set. A no-op if SelectAction was
// never called.
func (a *Agent) Observe(ctx context.Context, newState reusemodel.State) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.hasLast {
		return
	}

	visited := a.cloneVisitedLocked()

	reward := a.computeReward(ctx, a.lastAction, newState, visited)
	a.rewardCache.Push(reward)

	alpha := a.cfg.Alpha(a.graph.TotalDistri())
	if oldest, ok := a.previousActions.Oldest(); ok {
		g := a.nStepReturn()
		q := a.qValues[oldest.action.Hash]
		a.qValues[oldest.action.Hash] = q + alpha*(g-q)
	}

	attrs := reusemodel.ActionSimilarityAttributes{
		ActionType:   a.lastAction.Verb.ActionTypeCode(),
		ActivityName: a.lastAction.Activity,
		TargetWidget: a.lastAction.TargetAttributes(),
	}
	a.previousActions.Push(actionRecord{action: a.lastAction, attrs: attrs})

	a.store.Record(a.lastAction.Hash, attrs, newState.Widgets)

	for _, w := range newState.Widgets {
		a.visited[w.Hash] = true
	}

	a.hasLast = false
}

func (a *Agent) cloneVisitedLocked() map[uint64]bool {
	out := make(map[uint64]bool, len(a.visited))
	for k, v := range a.visited {
		out[k] = v
	}
	return out
}

// nStepReturn accumulates rewardCache oldest-to-newest: G = r + γ·G,
// so the newest reward carries the least discount.
func (a *Agent) nStepReturn() float64 {
	var g float64
	for _, r := range a.rewardCache.Items() {
		g = r + a.cfg.Gamma*g
	}
	return g
}
