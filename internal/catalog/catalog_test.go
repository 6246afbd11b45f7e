package catalog

import (
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/marksearch-mcp/internal/config"
	"github.com/dshills/marksearch-mcp/internal/metrics"
	"github.com/dshills/marksearch-mcp/internal/normalizer"
	"github.com/dshills/marksearch-mcp/pkg/types"
)

func rec(kind types.Kind, id, title, display string, tags ...string) *types.Record {
	r := &types.Record{
		Kind:          kind,
		SourceID:      id,
		Title:         title,
		URL:           "https://" + display,
		NormalizedURL: "https://" + display,
		DisplayURL:    display,
		Tags:          tags,
	}
	r.BuildSearchString()
	return r
}

func fixture() *normalizer.Result {
	res := &normalizer.Result{
		Bookmarks: []*types.Record{
			rec(types.KindBookmark, "b1", "Pandoc", "pandoc.org", "md"),
			rec(types.KindBookmark, "b2", "Go", "go.dev", "lang"),
			rec(types.KindBookmark, "b3", "Rust", "rust-lang.org", "lang"),
		},
		Tabs: []*types.Record{
			rec(types.KindTab, "t1", "Go docs", "go.dev/doc"),
		},
	}
	res.Tabs[0].Active = true
	normalizer.Reindex(res.Bookmarks)
	normalizer.Reindex(res.Tabs)
	return res
}

func newCatalog(t *testing.T) (*Catalog, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	c := New(config.Default(), metrics.MustNewMetrics(reg), nil)
	c.Replace(fixture(), "test")
	return c, reg
}

func rebuilds(t *testing.T, reg *prometheus.Registry, index string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "marksearch_catalog_index_rebuilds_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == "index" && lp.GetValue() == index {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestReplaceBumpsGeneration(t *testing.T) {
	c := New(config.Default(), nil, nil)
	assert.Equal(t, uint64(0), c.Generation())
	assert.False(t, c.Stats().Loaded)

	c.Replace(fixture(), "test")
	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Generation)
	assert.True(t, stats.Loaded)
	assert.Equal(t, "test", stats.Source)
	assert.Equal(t, 3, stats.Counts[types.KindBookmark])
	assert.Equal(t, 1, stats.Counts[types.KindTab])
	assert.Equal(t, 0, stats.Counts[types.KindHistory])
}

func TestDerivedIndicesMemoizedPerGeneration(t *testing.T) {
	c, reg := newCatalog(t)

	var first, second any
	require.NoError(t, c.Read(func(s *Snapshot) error {
		first = s.Precise()
		second = s.Precise()
		s.Taxonomy()
		return nil
	}))
	assert.Same(t, first, second)

	_, err := c.DeleteBookmark("b3")
	require.NoError(t, err)

	require.NoError(t, c.Read(func(s *Snapshot) error {
		second = s.Precise()
		return nil
	}))
	assert.NotSame(t, first, second)

	assert.Equal(t, 2.0, rebuilds(t, reg, "precise"))
	assert.Equal(t, 1.0, rebuilds(t, reg, "taxonomy"))
	assert.Zero(t, rebuilds(t, reg, "fuzzy"), "fuzzy index is built lazily")
}

func TestUpdateBookmarkInvalidatesIndices(t *testing.T) {
	c, _ := newCatalog(t)

	var before []types.SearchCandidate
	require.NoError(t, c.Read(func(s *Snapshot) error {
		before = s.Precise().Search("pandoc", types.IndexedKinds)
		return nil
	}))
	require.Len(t, before, 1)
	original := before[0].Record

	updated, err := c.UpdateBookmark("b1", func(r *types.Record) {
		r.Title = "Haskell converter"
		r.Tags = []string{"tools"}
	})
	require.NoError(t, err)
	assert.Equal(t, "haskell converter pandoc.org #tools", updated.SearchStringLower)

	require.NoError(t, c.Read(func(s *Snapshot) error {
		assert.Len(t, s.Precise().Search("haskell", types.IndexedKinds), 1)
		assert.Empty(t, s.Taxonomy().SearchTags("md", s.Records(types.KindBookmark)))
		assert.Len(t, s.Taxonomy().SearchTags("tools", s.Records(types.KindBookmark)), 1)
		return nil
	}))

	assert.Equal(t, "Pandoc", original.Title, "records handed out earlier are untouched")
}

func TestUpdateBookmarkRecomputesOpenTab(t *testing.T) {
	c, _ := newCatalog(t)

	updated, err := c.UpdateBookmark("b2", func(r *types.Record) {
		r.NormalizedURL = "https://go.dev/doc"
		r.DisplayURL = "go.dev/doc"
	})
	require.NoError(t, err)
	assert.True(t, updated.OpenTab)
}

func TestUpdateBookmarkURLRemergesUsage(t *testing.T) {
	res := fixture()
	lastVisit := int64(60)
	res.Bookmarks[0].VisitCount = 3
	res.Bookmarks[0].LastVisitSecondsAgo = &lastVisit

	rustVisit := int64(120)
	res.History = []*types.Record{
		rec(types.KindHistory, "h1", "Rust home", "rust-lang.org/learn"),
		rec(types.KindHistory, "h2", "Crates", "crates.io"),
	}
	res.History[0].VisitCount = 7
	res.History[0].LastVisitSecondsAgo = &rustVisit
	normalizer.Reindex(res.History)

	cfg := config.Default()
	cfg.DetectDuplicates = true
	c := New(cfg, nil, nil)
	c.Replace(res, "test")

	moved, err := c.UpdateBookmark("b1", func(r *types.Record) {
		r.NormalizedURL = "https://rust-lang.org/learn"
		r.DisplayURL = "rust-lang.org/learn"
	})
	require.NoError(t, err)
	assert.Equal(t, 7, moved.VisitCount)
	require.NotNil(t, moved.LastVisitSecondsAgo)
	assert.Equal(t, int64(120), *moved.LastVisitSecondsAgo)
	assert.False(t, moved.Dupe)

	require.NoError(t, c.Read(func(s *Snapshot) error {
		history := s.Records(types.KindHistory)
		require.Len(t, history, 1)
		assert.Equal(t, "h2", history[0].SourceID)
		assert.Equal(t, 0, history[0].Index)
		return nil
	}))

	away, err := c.UpdateBookmark("b2", func(r *types.Record) {
		r.NormalizedURL = "https://example.com"
		r.DisplayURL = "example.com"
	})
	require.NoError(t, err)
	assert.Zero(t, away.VisitCount)
	assert.False(t, away.Visited())

	dup, err := c.UpdateBookmark("b3", func(r *types.Record) {
		r.NormalizedURL = "https://rust-lang.org/learn"
		r.DisplayURL = "rust-lang.org/learn"
	})
	require.NoError(t, err)
	assert.True(t, dup.Dupe)
	assert.Equal(t, 7, dup.VisitCount, "usage taken from the bookmark already at the URL")

	first, err := c.Bookmark("b1")
	require.NoError(t, err)
	assert.True(t, first.Dupe)
	assert.False(t, moved.Dupe, "records handed out earlier are untouched")
}

func TestDeleteBookmarkReindexes(t *testing.T) {
	c, _ := newCatalog(t)

	removed, err := c.DeleteBookmark("b1")
	require.NoError(t, err)
	assert.Equal(t, "Pandoc", removed.Title)

	require.NoError(t, c.Read(func(s *Snapshot) error {
		bms := s.Records(types.KindBookmark)
		require.Len(t, bms, 2)
		for i, r := range bms {
			assert.Equal(t, i, r.Index)
		}
		assert.Empty(t, s.Precise().Search("pandoc", types.IndexedKinds))
		assert.Len(t, s.Taxonomy().SearchTags("lang", bms), 2)
		return nil
	}))
}

func TestBookmarkNotFound(t *testing.T) {
	c, _ := newCatalog(t)

	_, err := c.Bookmark("nope")
	assert.ErrorIs(t, err, types.ErrBookmarkNotFound)

	_, err = c.UpdateBookmark("nope", func(*types.Record) {})
	assert.ErrorIs(t, err, types.ErrBookmarkNotFound)

	_, err = c.DeleteBookmark("nope")
	assert.ErrorIs(t, err, types.ErrBookmarkNotFound)

	got, err := c.Bookmark("b2")
	require.NoError(t, err)
	got.Title = "changed"
	again, _ := c.Bookmark("b2")
	assert.Equal(t, "Go", again.Title, "Bookmark returns a copy")
}

func TestFuzzyUnavailable(t *testing.T) {
	cfg := config.Default()
	cfg.SearchFuzzyTolerance = 2
	c := New(cfg, nil, nil)
	c.Replace(fixture(), "test")

	err := c.Read(func(s *Snapshot) error {
		_, err := s.Fuzzy()
		return err
	})
	assert.True(t, errors.Is(err, types.ErrFuzzyUnavailable))

	cfg.SearchFuzzyTolerance = 0.5
	c = New(cfg, nil, nil)
	c.Replace(fixture(), "test")
	require.NoError(t, c.Read(func(s *Snapshot) error {
		x, err := s.Fuzzy()
		if err != nil {
			return err
		}
		assert.NotEmpty(t, x.Search("pandoc", types.IndexedKinds))
		return nil
	}))
}

func TestActiveTab(t *testing.T) {
	c, _ := newCatalog(t)
	require.NoError(t, c.Read(func(s *Snapshot) error {
		tab := s.ActiveTab()
		require.NotNil(t, tab)
		assert.Equal(t, "t1", tab.SourceID)
		return nil
	}))
}

func TestConcurrentReadsAndWrites(t *testing.T) {
	c, _ := newCatalog(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = c.Read(func(s *Snapshot) error {
					s.Precise().Search("go", types.IndexedKinds)
					s.Taxonomy().Tags()
					return nil
				})
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 50; j++ {
			_, _ = c.UpdateBookmark("b2", func(r *types.Record) { r.VisitCount++ })
		}
	}()
	wg.Wait()

	got, err := c.Bookmark("b2")
	require.NoError(t, err)
	assert.Equal(t, 50, got.VisitCount)
}
