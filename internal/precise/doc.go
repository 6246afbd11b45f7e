// Package precise implements the forward-prefix token index used by the
// precise search strategy.
//
// Every word of a record's title, display URL and, for bookmarks, tags and
// folder names is indexed under each of its prefixes. A query is split on
// whitespace; each term matches a field when every word of the term is a
// word prefix in that field.
//
//	x := precise.Build(records, precise.OptionsFromConfig(cfg))
//	cands := x.Search("pandoc try", types.IndexedKinds)
//
// Match quality counts the best matched field weight fully and a fifth of
// every other matched field weight, scaled by the share of terms that
// matched and capped at 1.
package precise
