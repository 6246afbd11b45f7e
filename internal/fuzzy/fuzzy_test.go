package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/marksearch-mcp/pkg/types"
)

var testWeights = types.FieldWeights{Title: 1, URL: 0.6, Tag: 0.7, Folder: 0.5}

func record(kind types.Kind, idx int, title, display string) *types.Record {
	r := &types.Record{
		Kind:          kind,
		Index:         idx,
		Title:         title,
		URL:           "https://" + display,
		NormalizedURL: "https://" + display,
		DisplayURL:    display,
	}
	r.BuildSearchString()
	return r
}

func build(t *testing.T, tolerance, ratio float64, recs ...*types.Record) *Index {
	t.Helper()
	x, err := Build(map[types.Kind][]*types.Record{types.KindBookmark: recs}, Options{
		Tolerance:      tolerance,
		MinMatchLength: 1,
		MinMatchRatio:  ratio,
		Weights:        testWeights,
	})
	require.NoError(t, err)
	return x
}

func TestBuildRejectsInvalidTolerance(t *testing.T) {
	for _, tol := range []float64{-0.1, 1.5} {
		_, err := Build(nil, Options{Tolerance: tol})
		assert.ErrorIs(t, err, types.ErrFuzzyUnavailable)
	}
}

func TestSearchContiguousMatchWithSpans(t *testing.T) {
	x := build(t, 0.6, 1, record(types.KindBookmark, 0, "Try pandoc!", "pandoc.org/try"))

	cands := x.Search("pandoc", []types.Kind{types.KindBookmark})
	require.Len(t, cands, 1)

	c := cands[0]
	assert.Equal(t, 1.0, c.MatchQuality)
	assert.Equal(t, []types.Field{types.FieldTitle, types.FieldURL}, c.Fields())
	assert.Equal(t, []types.Span{{Start: 4, End: 10}}, c.Spans[types.FieldTitle])
	assert.Equal(t, []types.Span{{Start: 0, End: 6}}, c.Spans[types.FieldURL])

	hl := Highlights(c)
	assert.Equal(t, "Try <mark>pandoc</mark>!", hl[types.FieldTitle])
	assert.Equal(t, "<mark>pandoc</mark>.org/try", hl[types.FieldURL])
}

func TestSearchToleranceControlsScatter(t *testing.T) {
	rec := record(types.KindBookmark, 0, "pandoc", "example.com/a")

	strict := build(t, 0, 1, rec)
	assert.Empty(t, strict.Search("pdc", []types.Kind{types.KindBookmark}))

	loose := build(t, 0.6, 1, rec)
	cands := loose.Search("pdc", []types.Kind{types.KindBookmark})
	require.Len(t, cands, 1)
	assert.InDelta(t, 0.5, cands[0].MatchQuality, 1e-9)
	assert.Equal(t, []types.Span{{Start: 0, End: 1}, {Start: 3, End: 4}, {Start: 5, End: 6}}, cands[0].Spans[types.FieldTitle])
}

func TestSearchPrefersLaterContiguousOccurrence(t *testing.T) {
	x := build(t, 0.6, 1,
		record(types.KindBookmark, 0, "Dashboard docs", "example.com/a"),
		record(types.KindBookmark, 1, "Go blog", "example.com/b"),
		record(types.KindBookmark, 2, "Pandoc manual", "example.com/c"),
	)

	cands := x.Search("doc", []types.Kind{types.KindBookmark})
	require.Len(t, cands, 2)
	assert.Equal(t, "Dashboard docs", cands[0].Record.Title)
	assert.Equal(t, 1.0, cands[0].MatchQuality)
	assert.Equal(t, []types.Span{{Start: 10, End: 13}}, cands[0].Spans[types.FieldTitle])
	assert.Equal(t, "Pandoc manual", cands[1].Record.Title)
	assert.Equal(t, 1.0, cands[1].MatchQuality)
	assert.Equal(t, []types.Span{{Start: 3, End: 6}}, cands[1].Spans[types.FieldTitle])

	cands = x.Search("docs", []types.Kind{types.KindBookmark})
	require.Len(t, cands, 1)
	assert.Equal(t, 1.0, cands[0].MatchQuality, "exact hit outranks the typo path")
	assert.Equal(t, "Dashboard <mark>docs</mark>", Highlights(cands[0])[types.FieldTitle])
}

func TestTightestWindow(t *testing.T) {
	assert.Equal(t, []int{7, 8, 9}, tightestWindow("Pxdxxc pdc", "pdc"))
	assert.Equal(t, []int{8, 10, 11}, tightestWindow("p__d__c p_dc", "PDC"))
	assert.Equal(t, []int{0, 3, 6}, tightestWindow("p__d__c", "pdc"))
	assert.Nil(t, tightestWindow("abc", "x"))
	assert.Nil(t, tightestWindow("abc", ""))
}

func TestSearchTypoTolerance(t *testing.T) {
	x := build(t, 0.6, 1, record(types.KindBookmark, 0, "Pandoc guide", "example.com/a"))

	cands := x.Search("pandox", []types.Kind{types.KindBookmark})
	require.Len(t, cands, 1)
	assert.InDelta(t, (1-1.0/6)*typoPenalty, cands[0].MatchQuality, 1e-9)
	assert.Equal(t, []types.Span{{Start: 0, End: 6}}, cands[0].Spans[types.FieldTitle])

	// Short terms never get edit distance
	assert.Empty(t, x.Search("pxn", []types.Kind{types.KindBookmark}))

	strict := build(t, 0, 1, record(types.KindBookmark, 0, "Pandoc guide", "example.com/a"))
	assert.Empty(t, strict.Search("pandox", []types.Kind{types.KindBookmark}))
}

func TestSearchMatchRatio(t *testing.T) {
	rec := record(types.KindBookmark, 0, "pandoc", "example.com/a")

	assert.Empty(t, build(t, 0.6, 1, rec).Search("pandoc qqqq", []types.Kind{types.KindBookmark}))

	cands := build(t, 0.6, 0.5, rec).Search("pandoc qqqq", []types.Kind{types.KindBookmark})
	require.Len(t, cands, 1)
	assert.InDelta(t, 0.5, cands[0].MatchQuality, 1e-9)
}

func TestSearchEmptyTerm(t *testing.T) {
	x := build(t, 0.6, 1, record(types.KindBookmark, 0, "pandoc", "example.com/a"))
	assert.Empty(t, x.Search("   ", []types.Kind{types.KindBookmark}))
	assert.Empty(t, x.Search("pandoc", []types.Kind{types.KindTab}))
}

func TestDistance(t *testing.T) {
	assert.Equal(t, 3, Distance("kitten", "sitting"))
	assert.Equal(t, 3, Distance("", "abc"))
	assert.Equal(t, 0, Distance("same", "same"))
	assert.Equal(t, 1, Distance("über", "uber"))
}

func TestMaxEdits(t *testing.T) {
	assert.Equal(t, 0, MaxEdits(3, 0.6))
	assert.Equal(t, 1, MaxEdits(6, 0.6))
	assert.Equal(t, 2, MaxEdits(10, 0.6))
	assert.Equal(t, 0, MaxEdits(10, 0))
}

func TestMergeSpans(t *testing.T) {
	got := MergeSpans([]types.Span{{Start: 5, End: 7}, {Start: 0, End: 2}, {Start: 1, End: 3}, {Start: 7, End: 8}})
	assert.Equal(t, []types.Span{{Start: 0, End: 3}, {Start: 5, End: 8}}, got)
	assert.Nil(t, MergeSpans(nil))
}

func TestHighlight(t *testing.T) {
	assert.Equal(t, "<mark>ab</mark>c<mark>d</mark>", Highlight("abcd", []types.Span{{Start: 0, End: 2}, {Start: 3, End: 9}}))
	assert.Equal(t, "plain", Highlight("plain", nil))
}
