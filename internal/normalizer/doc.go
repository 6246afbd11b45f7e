// Package normalizer converts the platform's bookmark tree, tab list and
// history list into one record shape.
//
// # Bookmark Titles
//
// Bookmark titles double as a tiny markup language:
//
//	"Example +5 #alpha #beta"
//
// Everything before the first '#' is the display title, each '#' segment is
// a tag, and a "+N" token before the tags is a custom score bonus.
// FormatTitle writes the same markup back, so edits round-trip.
//
// # URLs
//
// Records without a usable URL are dropped silently. Every indexed record
// carries the original URL, a normalized form (trailing slash removed) used
// for merging and duplicate detection, and a display form (no scheme, no
// "www.", lowercase) used for matching.
//
// # History Merge
//
// History entries whose URL matches a bookmark or tab are removed from the
// history array and their visit count and recency copied onto the match.
// See MergeHistory for the precedence table.
package normalizer
