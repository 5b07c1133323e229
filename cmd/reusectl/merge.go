package main

import (
	"github.com/fastbot/reuse-core/reusemodel"
	"github.com/fastbot/reuse-core/reusestore"
)

// mergeInto adds src's counts and attributes into dst in place: widget
// counts sum, attribute rows from src win on conflict (src is assumed
// the more recently captured model).
func mergeInto(dst, src *reusestore.Snapshot) {
	for hash, entry := range src.Entries {
		dstEntry, ok := dst.Entries[hash]
		if !ok {
			dst.Entries[hash] = cloneEntry(entry)
			continue
		}
		for wh, wc := range entry.Widgets {
			if existing, ok := dstEntry.Widgets[wh]; ok {
				existing.Count += wc.Count
			} else {
				cp := *wc
				dstEntry.Widgets[wh] = &cp
			}
		}
	}

	for hash, attrs := range src.Attrs {
		dst.Attrs[hash] = attrs
	}
}

func cloneEntry(e *reusemodel.ReuseEntry) *reusemodel.ReuseEntry {
	clone := reusemodel.NewReuseEntry()
	for h, wc := range e.Widgets {
		cp := *wc
		clone.Widgets[h] = &cp
	}
	return clone
}
