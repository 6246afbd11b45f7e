// Package types provides shared type definitions for marksearch.
//
// # Records
//
// Record is the normalized shape every searchable item takes, regardless of
// whether it came from the bookmark tree, the open tab list or browsing
// history:
//
//	rec := &types.Record{
//	    Kind:          types.KindBookmark,
//	    Title:         "Try pandoc!",
//	    URL:           "https://pandoc.org/try/",
//	    NormalizedURL: "https://pandoc.org/try",
//	    DisplayURL:    "pandoc.org/try",
//	    Tags:          []string{"md"},
//	}
//
// Kind is a closed enum. Switches over it list every constant so new kinds
// surface as review diffs instead of silent fallthrough.
//
// # Candidates and Results
//
// Search engines emit SearchCandidate values carrying a 0..1 match quality
// and the set of fields that matched. The scoring package turns candidates
// into RankedResult values whose Breakdown explains the final score:
//
//	score = base*quality + matchBonus + usageBonus + customBonus
//
// # Raw Payloads
//
// BookmarkNode, RawTab and RawHistoryItem mirror what the platform data
// provider returns. They are converted to records by the normalizer package.
package types
