// Package scoring turns search candidates into ranked results.
//
// The score of a candidate is assembled in five steps:
//
//  1. Base score by record kind (direct URL > bookmark > tab > history > search engine).
//  2. Base score multiplied by match quality.
//  3. Match bonuses: starts-with or includes (title before url, weighted by
//     field), an equals bonus, exact phrase bonuses, and exact #tag / ~folder
//     bonuses.
//  4. Usage bonuses: visit count, recency within the history window, and an
//     open-tab bonus for bookmarks.
//  5. The bookmark's custom "+N" bonus.
//
// Each result carries a types.Breakdown of these parts. Score is a pure
// function; sorting is stable so equal scores keep engine order.
package scoring
