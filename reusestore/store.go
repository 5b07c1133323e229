// Package reusestore implements the dual-keyed reuse model: an
// action_hash -> ReuseEntry map plus an action_hash -> ActionAttributes
// map, with a binary persistence codec.
package reusestore

import (
	"log/slog"
	"sync"

	"github.com/fastbot/reuse-core/reusemodel"
)

// Store is the in-memory reuse model for one platform. A single mutex
// guards the whole map; no lock is ever held
// across an embedding call or file I/O.
type Store struct {
	mu         sync.Mutex
	entries    map[uint64]*reusemodel.ReuseEntry
	attrs      map[uint64]reusemodel.ActionSimilarityAttributes
	log        *slog.Logger
}

// New returns an empty Store.
func New(log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		entries: make(map[uint64]*reusemodel.ReuseEntry),
		attrs:   make(map[uint64]reusemodel.ActionSimilarityAttributes),
		log:     log,
	}
}

// Record increments counts for each widget in widgets under
// actionHash, creating the entry if needed, and writes/overwrites the
// action's attributes. Atomic: a reader never sees counts and
// attributes disagree.
func (s *Store) Record(actionHash uint64, attrs reusemodel.ActionSimilarityAttributes, widgets []reusemodel.Widget) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[actionHash]
	if !ok {
		entry = reusemodel.NewReuseEntry()
		s.entries[actionHash] = entry
	}

	for _, w := range widgets {
		wc, ok := entry.Widgets[w.Hash]
		if !ok {
			wc = &reusemodel.WidgetCount{WidgetHash: w.Hash, Similarity: w.Attributes()}
			entry.Widgets[w.Hash] = wc
		}
		wc.Count++
	}

	s.attrs[actionHash] = attrs
}

// LookupEntry returns the ReuseEntry for actionHash, or nil if absent.
func (s *Store) LookupEntry(actionHash uint64) *reusemodel.ReuseEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[actionHash]
	if !ok {
		return nil
	}
	return cloneEntry(e)
}

// LookupAttrs returns the ActionSimilarityAttributes for actionHash and
// whether they exist.
func (s *Store) LookupAttrs(actionHash uint64) (reusemodel.ActionSimilarityAttributes, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.attrs[actionHash]
	return a, ok
}

// Has reports whether actionHash has any recorded entry.
func (s *Store) Has(actionHash uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[actionHash]
	return ok
}

// TotalCount returns the sum of widget counts for actionHash.
func (s *Store) TotalCount(actionHash uint64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[actionHash]
	if !ok {
		return 0
	}
	return e.TotalCount()
}

// UnvisitedCount returns the sum of widget counts for actionHash whose
// widget_hash is absent from visited.
func (s *Store) UnvisitedCount(actionHash uint64, visited map[uint64]bool) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[actionHash]
	if !ok {
		return 0
	}

	var total int64
	for hash, wc := range e.Widgets {
		if !visited[hash] {
			total += int64(wc.Count)
		}
	}
	return total
}

// ActionHashes returns every recorded action_hash, for iteration by
// callers such as the agent when it collects local attributes at load
// time.
func (s *Store) ActionHashes() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]uint64, 0, len(s.entries))
	for h := range s.entries {
		out = append(out, h)
	}
	return out
}

// Snapshot takes a consistent point-in-time copy of the whole store
// under the mutex, then releases it — used by save() and by the
// background PersistenceTask so I/O never runs with the lock held.
func (s *Store) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &Snapshot{
		Entries: make(map[uint64]*reusemodel.ReuseEntry, len(s.entries)),
		Attrs:   make(map[uint64]reusemodel.ActionSimilarityAttributes, len(s.attrs)),
	}
	for h, e := range s.entries {
		snap.Entries[h] = cloneEntry(e)
	}
	for h, a := range s.attrs {
		snap.Attrs[h] = a
	}
	return snap
}

// Snapshot is an immutable point-in-time copy of a Store's contents.
type Snapshot struct {
	Entries map[uint64]*reusemodel.ReuseEntry
	Attrs   map[uint64]reusemodel.ActionSimilarityAttributes
}

// LoadSnapshot replaces the store's contents with snap. Used when
// loading from disk.
func (s *Store) LoadSnapshot(snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = snap.Entries
	s.attrs = snap.Attrs
}

func cloneEntry(e *reusemodel.ReuseEntry) *reusemodel.ReuseEntry {
	clone := reusemodel.NewReuseEntry()
	for h, wc := range e.Widgets {
		cp := *wc
		clone.Widgets[h] = &cp
	}
	return clone
}
