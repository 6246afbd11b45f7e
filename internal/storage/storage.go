package storage

import (
	"context"
	"time"

	"github.com/dshills/marksearch-mcp/pkg/types"
)

// Provider is the platform data source the indexer reads from and writes
// bookmark edits back to
type Provider interface {
	// Read operations
	GetBookmarkTree(ctx context.Context) (*types.BookmarkNode, error)
	GetTabs(ctx context.Context) ([]types.RawTab, error)
	GetHistory(ctx context.Context, maxAgeDays, maxItems int) ([]types.RawHistoryItem, error)

	// Bookmark edits
	UpdateBookmark(ctx context.Context, id string, changes BookmarkChanges) error
	RemoveBookmark(ctx context.Context, id string) error
}

// Snapshot is a Provider backed by a stored copy of the browser data
type Snapshot interface {
	Provider

	// Import operations
	ImportDataset(ctx context.Context, ds types.Dataset, source string) (*Import, error)
	LastImport(ctx context.Context) (*Import, error)

	// Status operations
	GetStatus(ctx context.Context) (*SnapshotStatus, error)

	// Database operations
	Close() error
}

// BookmarkChanges holds the fields of an update. Nil fields are left as is.
type BookmarkChanges struct {
	Title *string
	URL   *string
}

// Import records one dataset import
type Import struct {
	ID         int64
	Source     string
	Bookmarks  int
	Folders    int
	Tabs       int
	History    int
	ImportedAt time.Time
}

// SnapshotStatus contains row counts and database health
type SnapshotStatus struct {
	SchemaVersion string
	BuildMode     string
	Bookmarks     int
	Folders       int
	Tabs          int
	History       int
	SizeBytes     int64
	LastImport    *Import
}

var (
	_ Snapshot = (*SQLiteStorage)(nil)
	_ Provider = (*FallbackProvider)(nil)
)
