package reuseagent

import (
	"fmt"
	"path/filepath"

	"github.com/fastbot/reuse-core/reusemodel"
	"github.com/fastbot/reuse-core/reusestore"
)

// LoadReuseModel loads the local store from
// <baseDir>/fastbot_<packageName>.fbm, then scans baseDir for
// sibling-platform models. A missing or malformed
// local file is logged and the store starts empty; this never aborts
// the session.
func (a *Agent) LoadReuseModel(baseDir, packageName, currentPlatform string) {
	path := filepath.Join(baseDir, fmt.Sprintf("fastbot_%s.fbm", packageName))

	snap, err := reusestore.LoadFile(path)
	if err != nil {
		a.log.Warn("reuseagent: local model absent or malformed, starting empty", "path", path, "err", err)
	} else {
		a.store.LoadSnapshot(snap)
		a.log.Info("reuseagent: loaded local model", "path", path, "actions", len(snap.Entries))
	}

	a.registry.AutoLoad(baseDir, packageName, currentPlatform)
	a.registry.SynthesizeMissingAttrs(localAttrsOf(a.store))
}

// SaveReuseModel writes the local store to path. An empty path is not
// replaced by a default location; it is handed to the codec as is.
// I/O failures are logged and the in-memory store is retained for the
// next attempt.
func (a *Agent) SaveReuseModel(path string) error {
	if err := reusestore.SaveFile(path, a.store.Snapshot()); err != nil {
		a.log.Warn("reuseagent: save failed, retaining in-memory store", "path", path, "err", err)
		return err
	}
	return nil
}

// ForceSave saves the local store to defaultPath, exactly as
// SaveReuseModel does; the agent keeps no path of its own.
func (a *Agent) ForceSave(defaultPath string) error {
	return a.SaveReuseModel(defaultPath)
}

func localAttrsOf(store *reusestore.Store) map[uint64]reusemodel.ActionSimilarityAttributes {
	out := make(map[uint64]reusemodel.ActionSimilarityAttributes)
	for _, hash := range store.ActionHashes() {
		if attrs, ok := store.LookupAttrs(hash); ok {
			out[hash] = attrs
		}
	}
	return out
}

// Shutdown performs a final synchronous save, then releases the
// registry's cache resources.
func (a *Agent) Shutdown(defaultPath string) {
	if err := a.SaveReuseModel(defaultPath); err != nil {
		a.log.Warn("reuseagent: final save on shutdown failed", "err", err)
	}
	a.registry.Close()
}
