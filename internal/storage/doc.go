// Package storage provides the platform data sources the indexer reads
// bookmarks, tabs and history from.
//
// Two implementations of Provider exist:
//   - SQLiteStorage: a snapshot of browser data imported from a JSON export
//   - FallbackProvider: a small built-in dataset served when the snapshot
//     cannot be read
//
// # Database Schema
//
// Tables:
//   - bookmark_nodes: the bookmark tree (folders have a NULL url)
//   - tabs: open tabs in window order
//   - history: browsing history with visit counts
//   - imports: one row per ImportDataset call
//
// Removing a folder cascades to its subtree. History visit times are stored
// as epoch milliseconds so age filtering is an integer comparison with
// either driver.
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.marksearch/snapshot.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	ds, err := storage.ReadDatasetFile("export.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	imp, err := db.ImportDataset(ctx, ds, "export.json")
//
//	tree, err := db.GetBookmarkTree(ctx)
//	history, err := db.GetHistory(ctx, 14, 1024)
//
// # Export Format
//
//	{
//	  "bookmarks": {"id": "0", "children": [
//	    {"id": "1", "title": "Dev", "children": [
//	      {"id": "2", "title": "Go docs #go", "url": "https://go.dev/doc/"}
//	    ]}
//	  ]},
//	  "tabs": [{"id": "10", "title": "Go", "url": "https://go.dev/", "active": true}],
//	  "history": [{"id": "20", "title": "Go", "url": "https://go.dev/",
//	               "visitCount": 3, "lastVisitTime": "2024-05-01T10:00:00Z"}]
//	}
//
// # Build Tags
//
// Pure Go build (default):
//
//   - Uses modernc.org/sqlite driver
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build ./...
//
// CGO build (sqlite_cgo tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Requires C compiler
//
//     CGO_ENABLED=1 go build -tags sqlite_cgo ./...
//
// # Migrations
//
// Schema versions are semantic versions applied in order by
// ApplyMigrations; RollbackMigration undoes the latest one.
package storage
