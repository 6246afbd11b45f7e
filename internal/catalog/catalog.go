package catalog

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dshills/marksearch-mcp/internal/config"
	"github.com/dshills/marksearch-mcp/internal/fuzzy"
	"github.com/dshills/marksearch-mcp/internal/metrics"
	"github.com/dshills/marksearch-mcp/internal/normalizer"
	"github.com/dshills/marksearch-mcp/internal/precise"
	"github.com/dshills/marksearch-mcp/internal/taxonomy"
	"github.com/dshills/marksearch-mcp/pkg/types"
)

// Catalog owns the record arrays and every index derived from them. All
// mutations take the write lock and bump the generation; derived indices
// remember the generation they were built for and are rebuilt on mismatch.
type Catalog struct {
	mu         sync.RWMutex
	records    map[types.Kind][]*types.Record
	generation uint64
	loaded     bool
	loadedAt   time.Time
	source     string

	preciseOpts precise.Options
	fuzzyOpts   fuzzy.Options
	detectDupes bool

	// memoMu serializes lazy builds between concurrent readers
	memoMu   sync.Mutex
	precise  memo[*precise.Index]
	fuzzy    memo[*fuzzy.Index]
	taxonomy memo[*taxonomy.Index]

	metrics *metrics.Metrics
	logger  *slog.Logger
}

// memo is a derived value stamped with the generation it was built for
type memo[T any] struct {
	gen   uint64
	valid bool
	val   T
	err   error
}

func (m *memo[T]) get(gen uint64, build func() (T, error)) (T, bool, error) {
	if m.valid && m.gen == gen {
		return m.val, false, m.err
	}
	m.val, m.err = build()
	m.gen = gen
	m.valid = true
	return m.val, true, m.err
}

// Stats summarizes the catalog contents
type Stats struct {
	Counts     map[types.Kind]int
	Generation uint64
	Loaded     bool
	LoadedAt   time.Time
	Source     string // Where the last dataset came from
	Dupes      int
}

// New creates an empty catalog. Engine options are taken from cfg.
func New(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		records:     make(map[types.Kind][]*types.Record),
		preciseOpts: precise.OptionsFromConfig(cfg),
		fuzzyOpts:   fuzzy.OptionsFromConfig(cfg),
		detectDupes: cfg.DetectDuplicates,
		metrics:     m,
		logger:      logger,
	}
}

// Replace swaps in a freshly normalized record set
func (c *Catalog) Replace(res *normalizer.Result, source string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records = map[types.Kind][]*types.Record{
		types.KindBookmark: res.Bookmarks,
		types.KindTab:      res.Tabs,
		types.KindHistory:  res.History,
	}
	c.generation++
	c.loaded = true
	c.loadedAt = time.Now()
	c.source = source

	for _, k := range types.IndexedKinds {
		c.metrics.SetRecords(k.String(), len(c.records[k]))
	}
	c.logger.Debug("catalog replaced",
		"generation", c.generation,
		"bookmarks", len(res.Bookmarks),
		"tabs", len(res.Tabs),
		"history", len(res.History),
		"source", source)
}

// Generation returns the current generation
func (c *Catalog) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// Stats returns record counts and load metadata
func (c *Catalog) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{
		Counts:     make(map[types.Kind]int, len(types.IndexedKinds)),
		Generation: c.generation,
		Loaded:     c.loaded,
		LoadedAt:   c.loadedAt,
		Source:     c.source,
	}
	for _, k := range types.IndexedKinds {
		s.Counts[k] = len(c.records[k])
		for _, r := range c.records[k] {
			if r.Dupe {
				s.Dupes++
			}
		}
	}
	return s
}

// Bookmark returns a copy of the bookmark with the given source ID
func (c *Catalog) Bookmark(id string) (*types.Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i := c.findBookmark(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", types.ErrBookmarkNotFound, id)
	}
	return c.records[types.KindBookmark][i].Clone(), nil
}

// UpdateBookmark applies fn to a copy of the bookmark and swaps it in.
// Records handed out earlier are never modified. When the normalized URL
// changes, usage signals are merged again for the new URL and duplicate
// flags are recomputed.
func (c *Catalog) UpdateBookmark(id string, fn func(rec *types.Record)) (*types.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.findBookmark(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", types.ErrBookmarkNotFound, id)
	}

	bookmarks := slices.Clone(c.records[types.KindBookmark])
	oldURL := bookmarks[i].NormalizedURL
	rec := bookmarks[i].Clone()
	fn(rec)
	rec.Index = i
	rec.OpenTab = c.openInTab(rec.NormalizedURL)
	rec.BuildSearchString()
	bookmarks[i] = rec

	if rec.NormalizedURL != oldURL {
		c.remergeUsage(rec, bookmarks)
		c.flagDuplicates(bookmarks)
		rec = bookmarks[i]
	}

	c.records[types.KindBookmark] = bookmarks
	c.generation++
	c.logger.Debug("bookmark updated", "id", id, "generation", c.generation)
	return rec.Clone(), nil
}

// DeleteBookmark removes a bookmark and reindexes the ones after it
func (c *Catalog) DeleteBookmark(id string) (*types.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.findBookmark(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", types.ErrBookmarkNotFound, id)
	}

	old := c.records[types.KindBookmark]
	removed := old[i]
	bookmarks := make([]*types.Record, 0, len(old)-1)
	bookmarks = append(bookmarks, old[:i]...)
	for _, rec := range old[i+1:] {
		bookmarks = append(bookmarks, rec.Clone())
	}
	normalizer.Reindex(bookmarks)

	c.records[types.KindBookmark] = bookmarks
	c.generation++
	c.metrics.SetRecords(types.KindBookmark.String(), len(bookmarks))
	c.logger.Debug("bookmark deleted", "id", id, "generation", c.generation)
	return removed, nil
}

func (c *Catalog) findBookmark(id string) int {
	for i, rec := range c.records[types.KindBookmark] {
		if rec.SourceID == id {
			return i
		}
	}
	return -1
}

// remergeUsage drops the usage signals of rec's previous URL and takes them
// from records sharing the new one. History entries that now match rec leave
// the history array, as they would on a fresh load.
func (c *Catalog) remergeUsage(rec *types.Record, bookmarks []*types.Record) {
	rec.VisitCount = 0
	rec.LastVisitSecondsAgo = nil

	var sources []*types.Record
	for _, b := range bookmarks {
		if b != rec && b.NormalizedURL == rec.NormalizedURL {
			sources = append(sources, b)
		}
	}
	for _, t := range c.records[types.KindTab] {
		if t.NormalizedURL == rec.NormalizedURL {
			sources = append(sources, t)
		}
	}

	history := c.records[types.KindHistory]
	remaining := make([]*types.Record, 0, len(history))
	for _, h := range history {
		if h.NormalizedURL == rec.NormalizedURL {
			sources = append(sources, h)
			continue
		}
		remaining = append(remaining, h)
	}
	normalizer.MergeHistory(sources, []*types.Record{rec}, nil)

	if len(remaining) == len(history) {
		return
	}
	for j, h := range remaining {
		if h.Index != j {
			h = h.Clone()
			h.Index = j
			remaining[j] = h
		}
	}
	c.records[types.KindHistory] = remaining
	c.metrics.SetRecords(types.KindHistory.String(), len(remaining))
}

// flagDuplicates recomputes duplicate flags over the bookmark array, cloning
// every record whose flag changes
func (c *Catalog) flagDuplicates(bookmarks []*types.Record) {
	counts := make(map[string]int, len(bookmarks))
	for _, b := range bookmarks {
		counts[b.NormalizedURL]++
	}
	for j, b := range bookmarks {
		want := c.detectDupes && counts[b.NormalizedURL] > 1
		if b.Dupe != want {
			b = b.Clone()
			b.Dupe = want
			bookmarks[j] = b
		}
	}
}

func (c *Catalog) openInTab(url string) bool {
	for _, t := range c.records[types.KindTab] {
		if t.NormalizedURL == url {
			return true
		}
	}
	return false
}

// Read runs fn against a consistent view. No mutation can happen until fn
// returns; fn must not call mutating methods.
func (c *Catalog) Read(fn func(s *Snapshot) error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return fn(&Snapshot{c: c})
}

// Snapshot is a read-locked view of the catalog
type Snapshot struct {
	c *Catalog
}

// Generation returns the generation the view belongs to
func (s *Snapshot) Generation() uint64 {
	return s.c.generation
}

// Loaded reports whether any dataset has been loaded
func (s *Snapshot) Loaded() bool {
	return s.c.loaded
}

// Records returns the record array for a kind. Callers must not modify it.
func (s *Snapshot) Records(k types.Kind) []*types.Record {
	return s.c.records[k]
}

// ActiveTab returns the active tab, if any
func (s *Snapshot) ActiveTab() *types.Record {
	for _, t := range s.c.records[types.KindTab] {
		if t.Active {
			return t
		}
	}
	return nil
}

// Precise returns the token index for the current generation
func (s *Snapshot) Precise() *precise.Index {
	c := s.c
	c.memoMu.Lock()
	defer c.memoMu.Unlock()

	x, built, _ := c.precise.get(c.generation, func() (*precise.Index, error) {
		start := time.Now()
		x := precise.Build(c.records, c.preciseOpts)
		c.logger.Debug("precise index built", "generation", c.generation, "duration", time.Since(start))
		return x, nil
	})
	if built {
		c.metrics.IndexRebuilt("precise")
	}
	return x
}

// Fuzzy returns the approximate-match index for the current generation. It
// is only built on first use.
func (s *Snapshot) Fuzzy() (*fuzzy.Index, error) {
	c := s.c
	c.memoMu.Lock()
	defer c.memoMu.Unlock()

	x, built, err := c.fuzzy.get(c.generation, func() (*fuzzy.Index, error) {
		start := time.Now()
		x, err := fuzzy.Build(c.records, c.fuzzyOpts)
		if err != nil {
			return nil, err
		}
		c.logger.Debug("fuzzy index built", "generation", c.generation, "duration", time.Since(start))
		return x, nil
	})
	if built && err == nil {
		c.metrics.IndexRebuilt("fuzzy")
	}
	return x, err
}

// Taxonomy returns the tag and folder index for the current generation
func (s *Snapshot) Taxonomy() *taxonomy.Index {
	c := s.c
	c.memoMu.Lock()
	defer c.memoMu.Unlock()

	x, built, _ := c.taxonomy.get(c.generation, func() (*taxonomy.Index, error) {
		return taxonomy.Build(c.records[types.KindBookmark]), nil
	})
	if built {
		c.metrics.IndexRebuilt("taxonomy")
	}
	return x
}
