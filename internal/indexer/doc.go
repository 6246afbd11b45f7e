// Package indexer loads browser data into the catalog and writes bookmark
// edits back to where it came from.
//
// # Basic Usage
//
//	idx := indexer.New(snapshot, cat, cfg, indexer.Options{
//	    OnChange: srch.InvalidateCache,
//	    Logger:   logger,
//	})
//
//	stats, err := idx.Refresh(ctx)
//	fmt.Printf("Loaded %d bookmarks from %s\n", stats.Bookmarks, stats.Source)
//
// # Refresh Pipeline
//
//  1. Fetch: bookmark tree, tabs and history are read concurrently, each
//     with exponential backoff retry
//  2. Fallback: if any read fails, the whole dataset comes from the
//     fallback provider and one warning is logged
//  3. Normalize: raw payloads become records; history merges into
//     bookmarks and tabs sharing a URL
//  4. Replace: the catalog swaps in the new records and bumps its
//     generation, which invalidates derived indices and cached results
//
// Only one refresh runs at a time; an overlapping call returns
// types.ErrRefreshInProgress immediately.
//
// # Editing
//
// EditBookmark returns the raw title form ("Title +5 #tag") for display.
// UpdateBookmark and DeleteBookmark write to the provider first and only
// touch the catalog once the provider accepted the change:
//
//	title := "Go docs +10 #go #reference"
//	rec, err := idx.UpdateBookmark(ctx, "42", indexer.BookmarkEdit{Title: &title})
//
// Edits go to the provider the current records were loaded from, so edits
// made while serving the fallback dataset stay in memory.
package indexer
