package external

import (
	"context"
	"testing"

	"github.com/fastbot/reuse-core/reusemodel"
	"github.com/fastbot/reuse-core/reusestore"
	"github.com/fastbot/reuse-core/similarity"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	engine := similarity.NewEngine(nil, nil, nil, nil)
	reg, err := NewRegistry(engine, 0.5, nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	t.Cleanup(reg.Close)
	return reg
}

func TestFindSimilarActionNoModelsLoaded(t *testing.T) {
	reg := newTestRegistry(t)
	got := reg.FindSimilarAction(context.Background(), 1, reusemodel.WidgetAttributes{Text: "submit"})
	if got.Matched {
		t.Error("FindSimilarAction() matched with no loaded models")
	}
}

func TestFindSimilarActionExactMatch(t *testing.T) {
	reg := newTestRegistry(t)

	entry := reusemodel.NewReuseEntry()
	entry.Widgets[5] = &reusemodel.WidgetCount{WidgetHash: 5, Count: 4}
	snap := &reusestore.Snapshot{
		Entries: map[uint64]*reusemodel.ReuseEntry{42: entry},
		Attrs: map[uint64]reusemodel.ActionSimilarityAttributes{
			42: {ActionType: 2, TargetWidget: reusemodel.WidgetAttributes{Text: "submit order"}},
		},
	}
	reg.models = append(reg.models, newPlatformModel("tablet", "/fake/path", snap))

	got := reg.FindSimilarAction(context.Background(), 1, reusemodel.WidgetAttributes{Text: "submit order"})
	if !got.Matched {
		t.Fatal("FindSimilarAction() did not match an identical target")
	}
	if got.PlatformTag != "tablet" || got.ExternalActionHash != 42 {
		t.Errorf("match = %+v, want platform=tablet, hash=42", got)
	}
	if wc, ok := got.WidgetCounts[5]; !ok || wc.Count != 4 {
		t.Errorf("WidgetCounts[5] = %+v, ok=%v, want Count=4", wc, ok)
	}
}

func TestFindSimilarActionSkipsEmptyAttrs(t *testing.T) {
	reg := newTestRegistry(t)
	snap := &reusestore.Snapshot{
		Entries: map[uint64]*reusemodel.ReuseEntry{1: reusemodel.NewReuseEntry()},
		Attrs:   map[uint64]reusemodel.ActionSimilarityAttributes{1: {}},
	}
	reg.models = append(reg.models, newPlatformModel("tv", "/fake", snap))

	got := reg.FindSimilarAction(context.Background(), 9, reusemodel.WidgetAttributes{Text: "anything"})
	if got.Matched {
		t.Error("FindSimilarAction() matched against an empty TargetWidget record")
	}
}

func TestIsWidgetAlreadyVisitedIndexHit(t *testing.T) {
	reg := newTestRegistry(t)
	reg.recordWidgetMatch("phone", 100, 7)

	visited := map[uint64]bool{7: true}
	got := reg.IsWidgetAlreadyVisited(context.Background(), "phone", 100, nil, visited)
	if !got {
		t.Error("IsWidgetAlreadyVisited() = false, want true on index hit")
	}
}

func TestIsWidgetAlreadyVisitedNoIndexNoModel(t *testing.T) {
	reg := newTestRegistry(t)
	got := reg.IsWidgetAlreadyVisited(context.Background(), "phone", 999, nil, map[uint64]bool{})
	if got {
		t.Error("IsWidgetAlreadyVisited() = true with no index entry and no loaded model")
	}
}

func TestSynthesizeMissingAttrsFillsFromLocal(t *testing.T) {
	reg := newTestRegistry(t)
	snap := &reusestore.Snapshot{
		Entries: map[uint64]*reusemodel.ReuseEntry{7: reusemodel.NewReuseEntry()},
		Attrs:   map[uint64]reusemodel.ActionSimilarityAttributes{},
	}
	reg.models = append(reg.models, newPlatformModel("watch", "/fake", snap))

	local := map[uint64]reusemodel.ActionSimilarityAttributes{
		7: {ActionType: 3, TargetWidget: reusemodel.WidgetAttributes{Text: "synced"}},
	}
	reg.SynthesizeMissingAttrs(local)

	got, ok := snap.Attrs[7]
	if !ok || got.TargetWidget.Text != "synced" {
		t.Errorf("SynthesizeMissingAttrs did not fill action 7: %+v, ok=%v", got, ok)
	}
}
