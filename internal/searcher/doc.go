// Package searcher implements the search orchestrator: it parses the query
// mode, dispatches to one engine, appends fallback entries and ranks the
// result.
//
// # Basic Usage
//
//	s := searcher.NewSearcher(cat, cfg, searcher.Options{Logger: logger})
//
//	resp, err := s.Search(ctx, searcher.SearchRequest{
//	    Query:    "b pandoc",
//	    UseCache: true,
//	})
//
//	for _, r := range resp.Results {
//	    fmt.Printf("%6.1f %s %s\n", r.Score, r.Record.Title, r.Record.URL)
//	}
//
// # Query Modes
//
// The mode is chosen by prefix, checked in this order:
//
//	"h "  tabs and history
//	"b "  bookmarks
//	"t "  tabs
//	"s "  search engine entries only
//	"#"   tag search
//	"~"   folder search
//
// Anything else searches all kinds. The prefix is stripped from the term.
//
// # Empty Terms
//
// An empty term never reaches an engine. All mode shows bookmarks under the
// active tab's URL and history for exactly that URL; "b ", "t " and "h "
// list their kinds; "#" and "~" list every tagged or foldered bookmark in
// name order.
//
// # Fallback Entries
//
// All mode and "s " mode append one entry per configured search engine. A
// term that looks like a URL also gets a direct navigation entry, which
// carries the highest base score.
//
// # Ranking
//
// Candidates go through the scoring package, results below the minimum
// score are dropped and the rest capped to the maximum count. Tag and
// folder modes are not capped.
//
// # Caching
//
// Responses are cached in an LRU keyed by term, strategy and mode. Each
// entry remembers the catalog generation it was computed from; an entry
// from an older generation is discarded on lookup, so edits, deletes and
// refreshes are never served stale. Empty terms are not cached.
//
// # Interactive Use
//
// Debouncer collapses keystroke bursts into one search after a quiet period
// and ignores navigation keys. Session gives each search a token; a search
// only publishes its results if no newer search started meanwhile.
//
//	session := searcher.NewSession(s, render)
//	deb := searcher.NewDebouncer(cfg.DebounceDelay(), func(q string) {
//	    session.Run(ctx, searcher.SearchRequest{Query: q, UseCache: true})
//	})
//	deb.Key("p", "p")
//	deb.Key("a", "pa")
package searcher
