package normalizer

import "github.com/dshills/marksearch-mcp/pkg/types"

// MergeHistory folds history entries into bookmarks and tabs that share a
// normalized URL and returns the history entries that matched nothing.
//
// Field precedence, target record vs. history entry:
//
//	Field                Winner
//	Title, URL, Tags     target (never taken from history)
//	VisitCount           target if non-zero, else history
//	LastVisitSecondsAgo  target if set, else history
//
// A history entry may enrich both a bookmark and a tab with the same URL.
func MergeHistory(history, bookmarks, tabs []*types.Record) []*types.Record {
	targets := make(map[string][]*types.Record, len(bookmarks)+len(tabs))
	for _, r := range bookmarks {
		targets[r.NormalizedURL] = append(targets[r.NormalizedURL], r)
	}
	for _, r := range tabs {
		targets[r.NormalizedURL] = append(targets[r.NormalizedURL], r)
	}

	remaining := make([]*types.Record, 0, len(history))
	for _, h := range history {
		matched := targets[h.NormalizedURL]
		if len(matched) == 0 {
			remaining = append(remaining, h)
			continue
		}
		for _, target := range matched {
			mergeUsage(target, h)
		}
	}
	return remaining
}

func mergeUsage(target, h *types.Record) {
	if target.VisitCount == 0 {
		target.VisitCount = h.VisitCount
	}
	if target.LastVisitSecondsAgo == nil && h.LastVisitSecondsAgo != nil {
		v := *h.LastVisitSecondsAgo
		target.LastVisitSecondsAgo = &v
	}
}
