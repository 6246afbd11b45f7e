package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/marksearch-mcp/internal/catalog"
	"github.com/dshills/marksearch-mcp/internal/config"
	"github.com/dshills/marksearch-mcp/internal/normalizer"
	"github.com/dshills/marksearch-mcp/internal/storage"
	"github.com/dshills/marksearch-mcp/pkg/types"
)

// Dataset sources recorded in the catalog
const (
	SourceProvider = "provider"
	SourceFallback = "fallback"
)

// Indexer coordinates the acquisition pipeline: fetch -> normalize -> replace.
// It also writes bookmark edits through to the provider the current records
// came from.
type Indexer struct {
	provider   storage.Provider
	fallback   storage.Provider
	catalog    *catalog.Catalog
	normalizer *normalizer.Normalizer
	cfg        *config.Config
	retry      RetryConfig
	onChange   func()
	logger     *slog.Logger

	lock IndexLock

	// active is the provider the loaded records came from
	mu     sync.Mutex
	active storage.Provider
}

// Options are the optional collaborators of an Indexer
type Options struct {
	Fallback storage.Provider // Defaults to storage.NewFallbackProvider()
	Retry    *RetryConfig     // Defaults to DefaultRetryConfig()
	OnChange func()           // Called after every catalog mutation
	Logger   *slog.Logger
}

// Statistics contains statistics about a refresh
type Statistics struct {
	Bookmarks  int
	Tabs       int
	History    int
	Source     string
	Generation uint64
	Duration   time.Duration
}

// New creates a new Indexer reading from provider into cat
func New(provider storage.Provider, cat *catalog.Catalog, cfg *config.Config, opts Options) *Indexer {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Fallback == nil {
		opts.Fallback = storage.NewFallbackProvider()
	}
	retry := DefaultRetryConfig()
	if opts.Retry != nil {
		retry = *opts.Retry
	}

	return &Indexer{
		provider:   provider,
		fallback:   opts.Fallback,
		catalog:    cat,
		normalizer: normalizer.New(normalizer.OptionsFromConfig(cfg), opts.Logger),
		cfg:        cfg,
		retry:      retry,
		onChange:   opts.OnChange,
		logger:     opts.Logger,
	}
}

// Refresh reloads all three payloads and replaces the catalog contents. When
// the provider cannot be read the fallback dataset is loaded instead, with
// one warning. A refresh that overlaps another returns ErrRefreshInProgress.
func (idx *Indexer) Refresh(ctx context.Context) (*Statistics, error) {
	if !idx.lock.TryAcquire() {
		return nil, types.ErrRefreshInProgress
	}
	defer idx.lock.Release()

	startTime := time.Now()
	source, provider := SourceProvider, idx.provider

	ds, err := idx.fetch(ctx, provider)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		idx.logger.Warn("provider unavailable, loading fallback dataset", "error", err)

		source, provider = SourceFallback, idx.fallback
		ds, err = idx.fetch(ctx, provider)
		if err != nil {
			return nil, fmt.Errorf("failed to load fallback dataset: %w", err)
		}
	}

	res := idx.normalizer.Normalize(ds)
	idx.catalog.Replace(res, source)

	idx.mu.Lock()
	idx.active = provider
	idx.mu.Unlock()
	idx.changed()

	stats := &Statistics{
		Bookmarks:  len(res.Bookmarks),
		Tabs:       len(res.Tabs),
		History:    len(res.History),
		Source:     source,
		Generation: idx.catalog.Generation(),
		Duration:   time.Since(startTime),
	}
	idx.logger.Info("records loaded",
		"source", source,
		"bookmarks", stats.Bookmarks,
		"tabs", stats.Tabs,
		"history", stats.History,
		"duration", stats.Duration)
	return stats, nil
}

// fetch reads the three payloads concurrently, each with retry
func (idx *Indexer) fetch(ctx context.Context, p storage.Provider) (types.Dataset, error) {
	var ds types.Dataset

	// Use errgroup for concurrent fetches with error propagation
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		tree, err := retryWithBackoff(gctx, idx.retry, func() (*types.BookmarkNode, error) {
			return p.GetBookmarkTree(gctx)
		})
		if err != nil {
			return fmt.Errorf("bookmarks: %w", err)
		}
		ds.Bookmarks = tree
		return nil
	})

	g.Go(func() error {
		tabs, err := retryWithBackoff(gctx, idx.retry, func() ([]types.RawTab, error) {
			return p.GetTabs(gctx)
		})
		if err != nil {
			return fmt.Errorf("tabs: %w", err)
		}
		ds.Tabs = tabs
		return nil
	})

	g.Go(func() error {
		history, err := retryWithBackoff(gctx, idx.retry, func() ([]types.RawHistoryItem, error) {
			return p.GetHistory(gctx, idx.cfg.HistoryDaysAgo, idx.cfg.HistoryMaxItems)
		})
		if err != nil {
			return fmt.Errorf("history: %w", err)
		}
		ds.History = history
		return nil
	})

	if err := g.Wait(); err != nil {
		return types.Dataset{}, err
	}
	return ds, nil
}

func (idx *Indexer) changed() {
	if idx.onChange != nil {
		idx.onChange()
	}
}

// writer returns the provider edits go to
func (idx *Indexer) writer() (storage.Provider, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.active == nil {
		return nil, types.ErrNotLoaded
	}
	return idx.active, nil
}

// EditView is a bookmark prepared for editing. Title is the raw form with
// the custom bonus and tags written back in.
type EditView struct {
	ID          string
	Title       string
	URL         string
	Tags        []string
	CustomBonus int
	FolderPath  []string
}

// EditBookmark returns the editable form of a bookmark
func (idx *Indexer) EditBookmark(id string) (*EditView, error) {
	rec, err := idx.catalog.Bookmark(id)
	if err != nil {
		return nil, err
	}
	return &EditView{
		ID:          rec.SourceID,
		Title:       normalizer.FormatTitle(rec.Title, rec.CustomBonus, rec.Tags),
		URL:         rec.URL,
		Tags:        rec.Tags,
		CustomBonus: rec.CustomBonus,
		FolderPath:  rec.FolderPath,
	}, nil
}

// BookmarkEdit holds the changes of an update. Nil fields are left as is.
// Title is parsed like a stored title, so it may carry "+N" and "#tags";
// a non-nil Tags replaces whatever tags the title carries.
type BookmarkEdit struct {
	Title *string
	URL   *string
	Tags  []string
}

// UpdateBookmark writes an edit through to the provider and then to the
// catalog. The catalog is untouched when the provider rejects the edit.
func (idx *Indexer) UpdateBookmark(ctx context.Context, id string, edit BookmarkEdit) (*types.Record, error) {
	p, err := idx.writer()
	if err != nil {
		return nil, err
	}
	current, err := idx.catalog.Bookmark(id)
	if err != nil {
		return nil, err
	}

	parsed := normalizer.ParsedTitle{
		Title:       current.Title,
		Tags:        current.Tags,
		CustomBonus: current.CustomBonus,
	}
	if edit.Title != nil {
		parsed = normalizer.ParseTitle(*edit.Title)
	}
	if edit.Tags != nil {
		parsed.Tags = normalizer.ParseTitle("#" + strings.Join(edit.Tags, "#")).Tags
	}
	raw := normalizer.FormatTitle(parsed.Title, parsed.CustomBonus, parsed.Tags)

	var normalized, display string
	if edit.URL != nil {
		var ok bool
		normalized, display, ok = normalizer.NormalizeURL(*edit.URL)
		if !ok {
			return nil, fmt.Errorf("%w: %q", types.ErrInvalidURL, *edit.URL)
		}
	}

	if err := p.UpdateBookmark(ctx, id, storage.BookmarkChanges{Title: &raw, URL: edit.URL}); err != nil {
		return nil, mapProviderError(id, err)
	}

	updated, err := idx.catalog.UpdateBookmark(id, func(rec *types.Record) {
		rec.Title = parsed.Title
		rec.Tags = parsed.Tags
		rec.CustomBonus = parsed.CustomBonus
		if edit.URL != nil {
			rec.URL = *edit.URL
			rec.NormalizedURL = normalized
			rec.DisplayURL = display
		}
	})
	if err != nil {
		return nil, err
	}
	idx.changed()

	idx.logger.Debug("bookmark updated", "id", id, "title", raw)
	return updated, nil
}

// DeleteBookmark removes a bookmark from the provider and the catalog
func (idx *Indexer) DeleteBookmark(ctx context.Context, id string) (*types.Record, error) {
	p, err := idx.writer()
	if err != nil {
		return nil, err
	}
	if _, err := idx.catalog.Bookmark(id); err != nil {
		return nil, err
	}

	if err := p.RemoveBookmark(ctx, id); err != nil {
		return nil, mapProviderError(id, err)
	}

	removed, err := idx.catalog.DeleteBookmark(id)
	if err != nil {
		return nil, err
	}
	idx.changed()

	idx.logger.Debug("bookmark deleted", "id", id)
	return removed, nil
}

// mapProviderError turns a provider miss into the catalog's not-found error
func mapProviderError(id string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", types.ErrBookmarkNotFound, id)
	}
	return fmt.Errorf("provider rejected edit of %s: %w", id, err)
}
