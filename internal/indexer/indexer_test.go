package indexer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/marksearch-mcp/internal/catalog"
	"github.com/dshills/marksearch-mcp/internal/config"
	"github.com/dshills/marksearch-mcp/internal/storage"
	"github.com/dshills/marksearch-mcp/pkg/types"
)

var fastRetry = &RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}

func setupSnapshot(t *testing.T, ds *types.Dataset) *storage.SQLiteStorage {
	t.Helper()
	snap, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = snap.Close() })

	if ds != nil {
		_, err = snap.ImportDataset(context.Background(), *ds, "test")
		require.NoError(t, err)
	}
	return snap
}

func snapshotDataset() *types.Dataset {
	ds := storage.FallbackDataset(time.Now())
	return &ds
}

func setupIndexer(t *testing.T, p storage.Provider, logger *slog.Logger) (*Indexer, *catalog.Catalog, *atomic.Int32) {
	t.Helper()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cfg := config.Default()
	cat := catalog.New(cfg, nil, logger)

	var changes atomic.Int32
	idx := New(p, cat, cfg, Options{
		Retry:    fastRetry,
		OnChange: func() { changes.Add(1) },
		Logger:   logger,
	})
	return idx, cat, &changes
}

// flakyProvider fails the first failTabs tab reads
type flakyProvider struct {
	storage.Provider
	failTabs  int32
	tabCalls  atomic.Int32
	treeCalls atomic.Int32
	treeErr   error
	updateErr error
}

func (p *flakyProvider) GetBookmarkTree(ctx context.Context) (*types.BookmarkNode, error) {
	p.treeCalls.Add(1)
	if p.treeErr != nil {
		return nil, p.treeErr
	}
	return p.Provider.GetBookmarkTree(ctx)
}

func (p *flakyProvider) GetTabs(ctx context.Context) ([]types.RawTab, error) {
	if p.tabCalls.Add(1) <= p.failTabs {
		return nil, errors.New("tabs temporarily unavailable")
	}
	return p.Provider.GetTabs(ctx)
}

func (p *flakyProvider) UpdateBookmark(ctx context.Context, id string, changes storage.BookmarkChanges) error {
	if p.updateErr != nil {
		return p.updateErr
	}
	return p.Provider.UpdateBookmark(ctx, id, changes)
}

func TestRefreshFromSnapshot(t *testing.T) {
	idx, cat, changes := setupIndexer(t, setupSnapshot(t, snapshotDataset()), nil)

	stats, err := idx.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceProvider, stats.Source)
	assert.Equal(t, 6, stats.Bookmarks)
	assert.Equal(t, 2, stats.Tabs)
	assert.Equal(t, 2, stats.History, "pkg.go.dev history merges into the bookmark and tab")
	assert.Equal(t, uint64(1), stats.Generation)
	assert.Equal(t, int32(1), changes.Load())

	s := cat.Stats()
	assert.True(t, s.Loaded)
	assert.Equal(t, SourceProvider, s.Source)
	assert.Equal(t, 6, s.Counts[types.KindBookmark])

	rec, err := cat.Bookmark("11")
	require.NoError(t, err)
	assert.Equal(t, 42, rec.VisitCount)
	assert.True(t, rec.OpenTab)
	assert.Equal(t, []string{"Bookmarks Bar"}, rec.FolderPath)
}

func TestRefreshFallsBackWithOneWarning(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	empty := &flakyProvider{Provider: setupSnapshot(t, nil)}
	idx, cat, _ := setupIndexer(t, empty, logger)

	stats, err := idx.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, stats.Source)
	assert.Equal(t, 6, stats.Bookmarks)
	assert.Equal(t, SourceFallback, cat.Stats().Source)

	assert.Equal(t, int32(1), empty.treeCalls.Load(), "an empty snapshot is not retried")
	assert.Equal(t, 1, strings.Count(logs.String(), "level=WARN"))
}

func TestRefreshRetriesTransientErrors(t *testing.T) {
	flaky := &flakyProvider{Provider: setupSnapshot(t, snapshotDataset()), failTabs: 2}
	idx, _, _ := setupIndexer(t, flaky, nil)

	stats, err := idx.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceProvider, stats.Source)
	assert.Equal(t, int32(3), flaky.tabCalls.Load())
}

func TestRefreshGivesUpAfterRetries(t *testing.T) {
	flaky := &flakyProvider{Provider: setupSnapshot(t, snapshotDataset()), treeErr: errors.New("locked")}
	idx, _, _ := setupIndexer(t, flaky, nil)

	stats, err := idx.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, stats.Source)
	assert.Equal(t, int32(fastRetry.MaxRetries), flaky.treeCalls.Load())
}

func TestRefreshInProgress(t *testing.T) {
	idx, _, _ := setupIndexer(t, setupSnapshot(t, snapshotDataset()), nil)

	require.True(t, idx.lock.TryAcquire())
	_, err := idx.Refresh(context.Background())
	assert.ErrorIs(t, err, types.ErrRefreshInProgress)

	idx.lock.Release()
	_, err = idx.Refresh(context.Background())
	assert.NoError(t, err)
}

func TestRefreshCanceled(t *testing.T) {
	idx, cat, _ := setupIndexer(t, setupSnapshot(t, snapshotDataset()), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := idx.Refresh(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, cat.Stats().Loaded)
}

func TestEditBookmark(t *testing.T) {
	idx, _, _ := setupIndexer(t, setupSnapshot(t, snapshotDataset()), nil)
	_, err := idx.Refresh(context.Background())
	require.NoError(t, err)

	view, err := idx.EditBookmark("21")
	require.NoError(t, err)
	assert.Equal(t, "regex101 +10 #regex", view.Title)
	assert.Equal(t, "https://regex101.com/", view.URL)
	assert.Equal(t, 10, view.CustomBonus)
	assert.Equal(t, []string{"Tools"}, view.FolderPath)

	_, err = idx.EditBookmark("nope")
	assert.ErrorIs(t, err, types.ErrBookmarkNotFound)
}

func TestUpdateBookmark(t *testing.T) {
	snap := setupSnapshot(t, snapshotDataset())
	idx, cat, changes := setupIndexer(t, snap, nil)
	ctx := context.Background()
	_, err := idx.Refresh(ctx)
	require.NoError(t, err)

	title := "Pandoc +5 #md #tools"
	rec, err := idx.UpdateBookmark(ctx, "20", BookmarkEdit{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Pandoc", rec.Title)
	assert.Equal(t, 5, rec.CustomBonus)
	assert.Equal(t, []string{"md", "tools"}, rec.Tags)
	assert.Equal(t, int32(2), changes.Load())

	// Written through with tags and bonus in the title
	tree, err := snap.GetBookmarkTree(ctx)
	require.NoError(t, err)
	assert.Equal(t, title, tree.Children[1].Children[0].Title)

	// Tags alone replace the parsed tags and keep title and bonus
	rec, err = idx.UpdateBookmark(ctx, "20", BookmarkEdit{Tags: []string{"#convert", "docs"}})
	require.NoError(t, err)
	assert.Equal(t, "Pandoc", rec.Title)
	assert.Equal(t, 5, rec.CustomBonus)
	assert.Equal(t, []string{"convert", "docs"}, rec.Tags)

	url := "https://pandoc.org/MANUAL.html"
	rec, err = idx.UpdateBookmark(ctx, "20", BookmarkEdit{URL: &url})
	require.NoError(t, err)
	assert.Equal(t, url, rec.URL)
	assert.Equal(t, "pandoc.org/manual.html", rec.DisplayURL)

	got, err := cat.Bookmark("20")
	require.NoError(t, err)
	assert.Equal(t, rec.SearchStringLower, got.SearchStringLower)
}

func TestUpdateBookmarkRejected(t *testing.T) {
	ctx := context.Background()
	readOnly := &flakyProvider{
		Provider:  setupSnapshot(t, snapshotDataset()),
		updateErr: errors.New("read-only profile"),
	}
	idx, cat, _ := setupIndexer(t, readOnly, nil)

	title := "Changed"
	_, err := idx.UpdateBookmark(ctx, "20", BookmarkEdit{Title: &title})
	assert.ErrorIs(t, err, types.ErrNotLoaded)

	_, err = idx.Refresh(ctx)
	require.NoError(t, err)
	generation := cat.Generation()

	_, err = idx.UpdateBookmark(ctx, "20", BookmarkEdit{Title: &title})
	assert.ErrorContains(t, err, "read-only profile")

	bad := "not a url"
	_, err = idx.UpdateBookmark(ctx, "20", BookmarkEdit{URL: &bad})
	assert.ErrorIs(t, err, types.ErrInvalidURL)

	_, err = idx.UpdateBookmark(ctx, "missing", BookmarkEdit{Title: &title})
	assert.ErrorIs(t, err, types.ErrBookmarkNotFound)

	assert.Equal(t, generation, cat.Generation(), "catalog untouched")
	rec, err := cat.Bookmark("20")
	require.NoError(t, err)
	assert.Equal(t, "Pandoc - document converter", rec.Title)
}

func TestDeleteBookmark(t *testing.T) {
	snap := setupSnapshot(t, snapshotDataset())
	idx, cat, _ := setupIndexer(t, snap, nil)
	ctx := context.Background()
	_, err := idx.Refresh(ctx)
	require.NoError(t, err)

	removed, err := idx.DeleteBookmark(ctx, "12")
	require.NoError(t, err)
	assert.Equal(t, "MDN Web Docs", removed.Title)

	_, err = cat.Bookmark("12")
	assert.ErrorIs(t, err, types.ErrBookmarkNotFound)
	status, err := snap.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, status.Bookmarks)

	_, err = idx.DeleteBookmark(ctx, "12")
	assert.ErrorIs(t, err, types.ErrBookmarkNotFound)
}

func TestEditsOnFallbackStayInMemory(t *testing.T) {
	idx, cat, _ := setupIndexer(t, setupSnapshot(t, nil), nil)
	ctx := context.Background()
	_, err := idx.Refresh(ctx)
	require.NoError(t, err)

	_, err = idx.DeleteBookmark(ctx, "20")
	require.NoError(t, err)
	assert.Equal(t, 5, cat.Stats().Counts[types.KindBookmark])
}

func TestMapProviderError(t *testing.T) {
	err := mapProviderError("7", storage.ErrNotFound)
	assert.ErrorIs(t, err, types.ErrBookmarkNotFound)

	err = mapProviderError("7", errors.New("boom"))
	assert.NotErrorIs(t, err, types.ErrBookmarkNotFound)
	assert.ErrorContains(t, err, "boom")
}
