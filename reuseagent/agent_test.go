package reuseagent

import (
	"context"
	"testing"

	"github.com/fastbot/reuse-core/external"
	"github.com/fastbot/reuse-core/reusemodel"
	"github.com/fastbot/reuse-core/reusestore"
	"github.com/fastbot/reuse-core/similarity"
)

type stubGraph struct {
	total int64
}

func (g *stubGraph) VisitedActivities() map[string]bool { return nil }
func (g *stubGraph) TotalDistri() int64                 { return g.total }

func newTestAgent(t *testing.T) *Agent {
	t.Helper()
	store := reusestore.New(nil)
	engine := similarity.NewEngine(nil, nil, nil, nil)
	registry, err := external.NewRegistry(engine, 0.5, nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	return NewAgent(store, registry, engine, &stubGraph{}, DefaultConfig(), 1, 2, nil)
}

func TestNStepReturnWeightsNewestLeastDiscounted(t *testing.T) {
	a := newTestAgent(t)
	a.cfg.Gamma = 0.9

	for _, r := range []float64{0.1, 0.2, 0.3, 0.4, 0.5} {
		a.rewardCache.Push(r)
	}

	got := a.nStepReturn()
	want := 1.31441 // r4 + γ(r3 + γ(r2 + γ(r1 + γ·r0))), chronological oldest-to-newest fold
	if got < want-1e-5 || got > want+1e-5 {
		t.Errorf("nStepReturn() = %f, want %f", got, want)
	}
}

func TestQValueOfFallsBackToHostSuppliedEstimate(t *testing.T) {
	a := newTestAgent(t)
	if got := a.qValueOf(123, 0.42); got != 0.42 {
		t.Errorf("qValueOf(unseen) = %f, want host fallback 0.42", got)
	}
}

func TestSelectActionThenObserveRecordsObservation(t *testing.T) {
	a := newTestAgent(t)

	widget := reusemodel.Widget{Hash: 1, Text: "submit"}
	action := reusemodel.Action{Hash: 10, Verb: reusemodel.VerbClick, Target: &widget, QValue: 0.0}
	state := reusemodel.State{
		Activity: "Main",
		Actions:  []reusemodel.Action{action},
	}

	selected := a.SelectAction(context.Background(), state)
	if selected.Hash == 0 {
		t.Fatal("SelectAction returned the zero action")
	}

	next := reusemodel.State{
		Activity: "Detail",
		Widgets:  []reusemodel.Widget{{Hash: 2, Text: "detail"}},
		Actions:  []reusemodel.Action{},
	}
	a.Observe(context.Background(), next)

	if !a.store.Has(selected.Hash) {
		t.Error("Observe() did not record the selected action into the store")
	}
	if !a.visited[2] {
		t.Error("Observe() did not mark the new state's widgets visited")
	}
}

func TestObserveIsNoOpWithoutPriorSelectAction(t *testing.T) {
	a := newTestAgent(t)
	a.Observe(context.Background(), reusemodel.State{Widgets: []reusemodel.Widget{{Hash: 1}}})

	if a.visited[1] {
		t.Error("Observe() without a prior SelectAction should be a no-op")
	}
}
