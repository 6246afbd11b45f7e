// Package fuzzy implements the approximate search strategy.
//
// Each query term is matched as a case-insensitive subsequence of every
// field using github.com/sahilm/fuzzy. A match is accepted when it is
// compact enough for the configured tolerance: the term length divided by
// the width of the matched region must reach 1 - tolerance. Terms of four or
// more runes that fail subsequence matching are retried against individual
// words with Levenshtein distance, so "pandox" still finds "pandoc".
//
// Matched byte spans are kept per field and can be rendered with Highlight:
//
//	fuzzy.Highlight("Try pandoc!", []types.Span{{Start: 4, End: 10}})
//	// "Try <mark>pandoc</mark>!"
//
// Field matches for one record combine with the same diminishing returns as
// the precise engine.
package fuzzy
