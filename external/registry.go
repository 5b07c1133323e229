// Package external implements the ExternalModelRegistry: immutable
// sibling-platform reuse stores loaded from disk, a match cache, and a
// widget-similarity index used to avoid recomputing embeddings for
// widgets already proven similar.
package external

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/fastbot/reuse-core/reusemodel"
	"github.com/fastbot/reuse-core/reusestore"
	"github.com/fastbot/reuse-core/similarity"
)

// platforms enumerates every sibling-platform tag the registry scans
// for.
var platforms = []string{"phone", "tablet", "tv", "car", "watch"}

const widgetMatchThreshold = 0.5

// PlatformModel is one sibling platform's immutable, loaded ReuseStore
// plus a by-widget_hash reverse index used for isWidgetAlreadyVisited.
type PlatformModel struct {
	Platform   string
	SourcePath string
	Snapshot   *reusestore.Snapshot

	// widgetIndex maps widget_hash -> that widget's recorded similarity
	// attributes, built once at load time for reverse lookup.
	widgetIndex map[uint64]reusemodel.WidgetAttributes
}

func newPlatformModel(platform, path string, snap *reusestore.Snapshot) *PlatformModel {
	pm := &PlatformModel{
		Platform:    platform,
		SourcePath:  path,
		Snapshot:    snap,
		widgetIndex: make(map[uint64]reusemodel.WidgetAttributes),
	}
	for _, entry := range snap.Entries {
		for hash, wc := range entry.Widgets {
			if !wc.Similarity.Empty() {
				pm.widgetIndex[hash] = wc.Similarity
			}
		}
	}
	return pm
}

// Registry holds every loaded sibling-platform model plus the match
// cache and widget-similarity index. The model set is
// mutated only during autoLoad; once loaded, models are read-only for
// the rest of the session.
type Registry struct {
	models []*PlatformModel

	engine    *similarity.Engine
	threshold float64

	matchCache *ristretto.Cache

	indexMu sync.Mutex
	index   map[string]map[uint64]map[uint64]bool // platform -> external widget -> set<local widget>

	log *slog.Logger
}

// NewRegistry builds an empty registry backed by a ristretto match
// cache. The widget-similarity index is a hand-rolled mutex-guarded
// map rather than a ristretto cache: correctness here requires every
// inserted pair to be retrievable, which an admission/eviction policy
// would violate.
func NewRegistry(engine *similarity.Engine, threshold float64, log *slog.Logger) (*Registry, error) {
	if log == nil {
		log = slog.Default()
	}
	if threshold <= 0 {
		threshold = widgetMatchThreshold
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e6,
		MaxCost:     1e7,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("external: build match cache: %w", err)
	}

	return &Registry{
		engine:     engine,
		threshold:  threshold,
		matchCache: cache,
		index:      make(map[string]map[uint64]map[uint64]bool),
		log:        log,
	}, nil
}

// AutoLoad scans baseDir for fastbot_<packageName>.<platform>.fbm
// files, excluding currentPlatform, and loads each found file as an
// immutable PlatformModel. A missing or malformed file is logged and
// skipped; cross-platform loading continues regardless.
func (r *Registry) AutoLoad(baseDir, packageName, currentPlatform string) {
	for _, p := range platforms {
		if p == currentPlatform {
			continue
		}

		path := filepath.Join(baseDir, fmt.Sprintf("fastbot_%s.%s.fbm", packageName, p))
		if _, err := os.Stat(path); err != nil {
			continue
		}

		snap, err := reusestore.LoadFile(path)
		if err != nil {
			r.log.Warn("external: failed to load sibling-platform model", "platform", p, "path", path, "err", err)
			continue
		}

		r.models = append(r.models, newPlatformModel(p, path, snap))
		r.log.Info("external: loaded sibling-platform model", "platform", p, "actions", len(snap.Entries))
	}
}

// SynthesizeMissingAttrs fills in any ActionSimilarityAttributes
// absent from a loaded external model, using the local attrs for an
// action_hash the two models happen to share. This synthesis is
// in-memory only — it is never written back to the external file.
func (r *Registry) SynthesizeMissingAttrs(localAttrs map[uint64]reusemodel.ActionSimilarityAttributes) {
	for _, pm := range r.models {
		for hash := range pm.Snapshot.Entries {
			if _, ok := pm.Snapshot.Attrs[hash]; ok {
				continue
			}
			if attrs, ok := localAttrs[hash]; ok {
				pm.Snapshot.Attrs[hash] = attrs
			}
		}
	}
}

// FindSimilarAction runs a cache lookup, then an early-exit linear
// scan across every loaded platform's ActionAttributes.
func (r *Registry) FindSimilarAction(ctx context.Context, localActionHash uint64, localTarget reusemodel.WidgetAttributes) reusemodel.MatchResult {
	if cached, found := r.matchCache.Get(localActionHash); found {
		if mr, ok := cached.(reusemodel.MatchResult); ok && mr.Matched && mr.Similarity >= r.threshold {
			return mr
		}
	}

	for _, pm := range r.models {
		for hash, attrs := range pm.Snapshot.Attrs {
			if attrs.TargetWidget.Empty() {
				continue
			}

			sim := r.engine.Similarity(ctx, localTarget, attrs.TargetWidget)
			if sim >= r.threshold {
				entry := pm.Snapshot.Entries[hash]
				result := reusemodel.MatchResult{
					Matched:             true,
					PlatformTag:         pm.Platform,
					ExternalActionHash:  hash,
					Similarity:          sim,
					WidgetCounts:        widgetCountsOf(entry),
				}
				r.matchCache.SetWithTTL(localActionHash, result, 1, 30*time.Minute)
				return result
			}
		}
	}

	return reusemodel.MatchResult{Matched: false}
}

func widgetCountsOf(entry *reusemodel.ReuseEntry) map[uint64]*reusemodel.WidgetCount {
	if entry == nil {
		return nil
	}
	out := make(map[uint64]*reusemodel.WidgetCount, len(entry.Widgets))
	for h, wc := range entry.Widgets {
		cp := *wc
		out[h] = &cp
	}
	return out
}

// IsWidgetAlreadyVisited reports whether externalWidgetHash has
// already been reached this run on platform: an index hit against the
// current visited-widget set short-circuits;
// otherwise every visited local widget is compared against the
// external widget's attributes and, on a hit ≥ 0.5, the pair is
// memoized in the index.
func (r *Registry) IsWidgetAlreadyVisited(ctx context.Context, platform string, externalWidgetHash uint64, currentWidgets []reusemodel.Widget, visited map[uint64]bool) bool {
	r.indexMu.Lock()
	locals := r.index[platform][externalWidgetHash]
	for localHash := range locals {
		if visited[localHash] {
			r.indexMu.Unlock()
			return true
		}
	}
	r.indexMu.Unlock()

	attrs := r.externalWidgetAttrs(platform, externalWidgetHash)
	if attrs.Empty() {
		return false
	}

	for _, w := range currentWidgets {
		if !visited[w.Hash] {
			continue
		}
		sim := r.engine.Similarity(ctx, w.Attributes(), attrs)
		if sim >= widgetMatchThreshold {
			r.recordWidgetMatch(platform, externalWidgetHash, w.Hash)
			return true
		}
	}
	return false
}

func (r *Registry) externalWidgetAttrs(platform string, widgetHash uint64) reusemodel.WidgetAttributes {
	for _, pm := range r.models {
		if pm.Platform != platform {
			continue
		}
		if a, ok := pm.widgetIndex[widgetHash]; ok {
			return a
		}
	}
	return reusemodel.WidgetAttributes{}
}

func (r *Registry) recordWidgetMatch(platform string, externalHash, localHash uint64) {
	r.indexMu.Lock()
	defer r.indexMu.Unlock()

	byExternal, ok := r.index[platform]
	if !ok {
		byExternal = make(map[uint64]map[uint64]bool)
		r.index[platform] = byExternal
	}
	locals, ok := byExternal[externalHash]
	if !ok {
		locals = make(map[uint64]bool)
		byExternal[externalHash] = locals
	}
	locals[localHash] = true
}

// EntryFor returns the ReuseEntry recorded under actionHash on
// platform, or nil if absent.
func (r *Registry) EntryFor(platform string, actionHash uint64) *reusemodel.ReuseEntry {
	for _, pm := range r.models {
		if pm.Platform != platform {
			continue
		}
		return pm.Snapshot.Entries[actionHash]
	}
	return nil
}

// Close releases the match cache's background resources.
func (r *Registry) Close() {
	r.matchCache.Close()
}
