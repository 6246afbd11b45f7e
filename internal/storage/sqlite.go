package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/marksearch-mcp/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
)

// SQLiteStorage implements Snapshot using SQLite
type SQLiteStorage struct {
	db  *sql.DB
	now func() time.Time
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys so removing a folder removes its subtree
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db, now: time.Now}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Bookmark operations

type nodeRow struct {
	node     *types.BookmarkNode
	parentID sql.NullString
}

// GetBookmarkTree rebuilds the stored bookmark tree. Several top-level nodes
// are wrapped in an untitled root. ErrNotFound means nothing was imported.
func (s *SQLiteStorage) GetBookmarkTree(ctx context.Context) (*types.BookmarkNode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, parent_id, title, url
		FROM bookmark_nodes
		ORDER BY position, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookmarks: %w", err)
	}
	defer rows.Close()

	var ordered []nodeRow
	byID := make(map[string]*types.BookmarkNode)
	for rows.Next() {
		var r nodeRow
		var url sql.NullString
		n := &types.BookmarkNode{}
		if err := rows.Scan(&n.ID, &r.parentID, &n.Title, &url); err != nil {
			return nil, err
		}
		if url.Valid && url.String != "" {
			n.URL = url.String
		} else {
			n.Children = []*types.BookmarkNode{}
		}
		r.node = n
		ordered = append(ordered, r)
		byID[n.ID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ordered) == 0 {
		return nil, fmt.Errorf("%w: no bookmarks imported", ErrNotFound)
	}

	var roots []*types.BookmarkNode
	for _, r := range ordered {
		parent, ok := byID[r.parentID.String]
		if !r.parentID.Valid || !ok {
			roots = append(roots, r.node)
			continue
		}
		parent.Children = append(parent.Children, r.node)
	}

	if len(roots) == 1 && roots[0].URL == "" {
		return roots[0], nil
	}
	return &types.BookmarkNode{ID: "", Children: roots}, nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

// UpdateBookmark changes the title and/or URL of a bookmark node
func (s *SQLiteStorage) UpdateBookmark(ctx context.Context, id string, changes BookmarkChanges) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE bookmark_nodes
		SET title = COALESCE(?, title),
		    url = COALESCE(?, url),
		    updated_at = ?
		WHERE id = ?
	`, nullString(changes.Title), nullString(changes.URL), s.now(), id)
	if err != nil {
		return fmt.Errorf("failed to update bookmark %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: bookmark %s", ErrNotFound, id)
	}
	return nil
}

// RemoveBookmark deletes a bookmark node and, for folders, its subtree
func (s *SQLiteStorage) RemoveBookmark(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM bookmark_nodes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to remove bookmark %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: bookmark %s", ErrNotFound, id)
	}
	return nil
}

// Tab operations

// GetTabs returns the stored tabs in window order
func (s *SQLiteStorage) GetTabs(ctx context.Context) ([]types.RawTab, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, window_id, title, url, active
		FROM tabs
		ORDER BY position, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tabs: %w", err)
	}
	defer rows.Close()

	tabs := []types.RawTab{}
	for rows.Next() {
		var t types.RawTab
		var windowID sql.NullString
		if err := rows.Scan(&t.ID, &windowID, &t.Title, &t.URL, &t.Active); err != nil {
			return nil, err
		}
		t.WindowID = windowID.String
		tabs = append(tabs, t)
	}
	return tabs, rows.Err()
}

// History operations

// GetHistory returns history entries visited within maxAgeDays, most recent
// first, at most maxItems of them. Zero disables either limit.
func (s *SQLiteStorage) GetHistory(ctx context.Context, maxAgeDays, maxItems int) ([]types.RawHistoryItem, error) {
	var query strings.Builder
	var args []any
	query.WriteString("SELECT id, title, url, visit_count, last_visit_ms FROM history")
	if maxAgeDays > 0 {
		cutoff := s.now().Add(-time.Duration(maxAgeDays) * 24 * time.Hour)
		query.WriteString(" WHERE last_visit_ms >= ?")
		args = append(args, cutoff.UnixMilli())
	}
	query.WriteString(" ORDER BY last_visit_ms DESC, id")
	if maxItems > 0 {
		query.WriteString(" LIMIT ?")
		args = append(args, maxItems)
	}

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	items := []types.RawHistoryItem{}
	for rows.Next() {
		var h types.RawHistoryItem
		var lastVisit sql.NullInt64
		if err := rows.Scan(&h.ID, &h.Title, &h.URL, &h.VisitCount, &lastVisit); err != nil {
			return nil, err
		}
		if lastVisit.Valid {
			h.LastVisitTime = time.UnixMilli(lastVisit.Int64)
		}
		items = append(items, h)
	}
	return items, rows.Err()
}

// Import operations

// ImportDataset replaces the stored snapshot with ds in one transaction
func (s *SQLiteStorage) ImportDataset(ctx context.Context, ds types.Dataset, source string) (*Import, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"bookmark_nodes", "tabs", "history"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return nil, fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	imp := &Import{Source: source, ImportedAt: s.now()}
	if ds.Bookmarks != nil {
		if err := s.insertNode(ctx, tx, ds.Bookmarks, sql.NullString{}, 0, imp); err != nil {
			return nil, err
		}
	}

	for i, t := range ds.Tabs {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tabs (id, window_id, position, title, url, active)
			VALUES (?, ?, ?, ?, ?, ?)
		`, t.ID, t.WindowID, i, t.Title, t.URL, t.Active)
		if err != nil {
			return nil, fmt.Errorf("failed to insert tab %s: %w", t.ID, err)
		}
		imp.Tabs++
	}

	for _, h := range ds.History {
		if h.ID == "" {
			h.ID = uuid.NewString()
		}
		var lastVisit sql.NullInt64
		if !h.LastVisitTime.IsZero() {
			lastVisit = sql.NullInt64{Int64: h.LastVisitTime.UnixMilli(), Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO history (id, title, url, visit_count, last_visit_ms)
			VALUES (?, ?, ?, ?, ?)
		`, h.ID, h.Title, h.URL, h.VisitCount, lastVisit)
		if err != nil {
			return nil, fmt.Errorf("failed to insert history entry %s: %w", h.ID, err)
		}
		imp.History++
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO imports (source, bookmarks, folders, tabs, history, imported_at_ms)
		VALUES (?, ?, ?, ?, ?, ?)
	`, imp.Source, imp.Bookmarks, imp.Folders, imp.Tabs, imp.History, imp.ImportedAt.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to record import: %w", err)
	}
	if imp.ID, err = result.LastInsertId(); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}
	return imp, nil
}

// insertNode stores node and its subtree depth-first
func (s *SQLiteStorage) insertNode(ctx context.Context, q querier, node *types.BookmarkNode, parentID sql.NullString, position int, imp *Import) error {
	id := node.ID
	if id == "" {
		id = uuid.NewString()
	}
	var url sql.NullString
	if node.URL != "" {
		url = sql.NullString{String: node.URL, Valid: true}
	}

	now := s.now()
	_, err := q.ExecContext(ctx, `
		INSERT INTO bookmark_nodes (id, parent_id, position, title, url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, parentID, position, node.Title, url, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert bookmark node %s: %w", id, err)
	}

	if url.Valid {
		imp.Bookmarks++
		return nil
	}
	if parentID.Valid {
		imp.Folders++
	}
	for i, child := range node.Children {
		if child == nil {
			continue
		}
		if err := s.insertNode(ctx, q, child, sql.NullString{String: id, Valid: true}, i, imp); err != nil {
			return err
		}
	}
	return nil
}

// LastImport returns the most recent import
func (s *SQLiteStorage) LastImport(ctx context.Context) (*Import, error) {
	var imp Import
	var importedAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, source, bookmarks, folders, tabs, history, imported_at_ms
		FROM imports
		ORDER BY id DESC
		LIMIT 1
	`).Scan(&imp.ID, &imp.Source, &imp.Bookmarks, &imp.Folders, &imp.Tabs, &imp.History, &importedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	imp.ImportedAt = time.UnixMilli(importedAt)
	return &imp, nil
}

// Status operations

// GetStatus reports row counts, database size and the last import
func (s *SQLiteStorage) GetStatus(ctx context.Context) (*SnapshotStatus, error) {
	version, err := SchemaVersion(ctx, s.db)
	if err != nil {
		return nil, err
	}
	status := &SnapshotStatus{SchemaVersion: version, BuildMode: BuildMode}

	counts := []struct {
		query string
		dst   *int
	}{
		{"SELECT COUNT(*) FROM bookmark_nodes WHERE url IS NOT NULL", &status.Bookmarks},
		{"SELECT COUNT(*) FROM bookmark_nodes WHERE url IS NULL AND parent_id IS NOT NULL", &status.Folders},
		{"SELECT COUNT(*) FROM tabs", &status.Tabs},
		{"SELECT COUNT(*) FROM history", &status.History},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return nil, err
		}
	}

	// Calculate database size
	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.SizeBytes = pageCount * pageSize
	}

	imp, err := s.LastImport(ctx)
	switch {
	case err == nil:
		status.LastImport = imp
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	return status, nil
}
