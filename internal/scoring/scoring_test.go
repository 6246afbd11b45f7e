package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/marksearch-mcp/internal/config"
	"github.com/dshills/marksearch-mcp/pkg/types"
)

func defaultParams() Params {
	return ParamsFromConfig(config.Default())
}

func bookmark(title, display string) *types.Record {
	return &types.Record{
		Kind:          types.KindBookmark,
		Title:         title,
		URL:           "https://" + display,
		NormalizedURL: "https://" + display,
		DisplayURL:    display,
	}
}

func candidate(rec *types.Record, quality float64) types.SearchCandidate {
	return types.SearchCandidate{
		Record:        rec,
		MatchQuality:  quality,
		MatchedFields: map[types.Field]bool{types.FieldTitle: true},
	}
}

func scoreOne(t *testing.T, rec *types.Record, quality float64, q Query) types.RankedResult {
	t.Helper()
	results := Score([]types.SearchCandidate{candidate(rec, quality)}, q, defaultParams())
	require.Len(t, results, 1)
	return results[0]
}

func TestScoreMatchBonuses(t *testing.T) {
	tests := []struct {
		name  string
		rec   *types.Record
		term  string
		score float64
	}{
		{"no bonus", bookmark("Docs", "example.com"), "zzz", 100},
		{"title starts with", bookmark("Pandoc", "example.com"), "pan", 110},
		{"title equals", bookmark("Pandoc", "example.com"), "pandoc", 125},
		{"url starts with", bookmark("Docs", "pandoc.org"), "pandoc", 106},
		{"title includes", bookmark("Try pandoc", "example.com"), "pandoc", 105},
		{"url includes", bookmark("Docs", "example.com/pandoc"), "pandoc", 103},
		{"starts with beats includes", bookmark("pandoc pandoc", "pandoc.org"), "pandoc", 110},
		{"phrase in title and url", bookmark("Try pandoc online", "example.com/pandoc-online"), "pandoc online", 118},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := scoreOne(t, tt.rec, 1, Query{Term: tt.term, Raw: tt.term})
			assert.InDelta(t, tt.score, r.Score, 1e-9)
			assert.InDelta(t, r.Breakdown.Total(), r.Score, 1e-9)
		})
	}
}

func TestScoreTaxonomyBonuses(t *testing.T) {
	rec := bookmark("Spec", "example.com")
	rec.Tags = []string{"JSON", "api"}
	rec.FolderPath = []string{"Dev", "Formats"}

	r := scoreOne(t, rec, 1, Query{Term: "json", Raw: "#json"})
	assert.InDelta(t, 110, r.Score, 1e-9)

	r = scoreOne(t, rec, 1, Query{Term: "json #api", Raw: "#json #api"})
	assert.InDelta(t, 120, r.Score, 1e-9)

	r = scoreOne(t, rec, 1, Query{Term: "dev", Raw: "~dev"})
	assert.InDelta(t, 105, r.Score, 1e-9)

	// Prefix is not an exact tag match
	r = scoreOne(t, rec, 1, Query{Term: "js", Raw: "#js"})
	assert.InDelta(t, 100, r.Score, 1e-9)
}

func TestScoreUsageSignals(t *testing.T) {
	params := defaultParams()
	window := int64(params.Bonuses.RecentWindow)

	rec := bookmark("Docs", "example.com")
	rec.VisitCount = 100
	r := scoreOne(t, rec, 1, Query{})
	assert.InDelta(t, 20, r.Breakdown.UsageBonus, 1e-9, "visited bonus is capped")

	rec = bookmark("Docs", "example.com")
	rec.VisitCount = 4
	r = scoreOne(t, rec, 1, Query{})
	assert.InDelta(t, 2, r.Breakdown.UsageBonus, 1e-9)

	for _, tc := range []struct {
		ago  int64
		want float64
	}{
		{0, 20},
		{window / 2, 10},
		{window, 0},
		{window * 2, 0},
	} {
		rec = bookmark("Docs", "example.com")
		ago := tc.ago
		rec.LastVisitSecondsAgo = &ago
		r = scoreOne(t, rec, 1, Query{})
		assert.InDelta(t, tc.want, r.Breakdown.UsageBonus, 1e-9, "seconds ago %d", tc.ago)
	}

	rec = bookmark("Docs", "example.com")
	rec.OpenTab = true
	r = scoreOne(t, rec, 1, Query{})
	assert.InDelta(t, 10, r.Breakdown.UsageBonus, 1e-9)

	tab := bookmark("Docs", "example.com")
	tab.Kind = types.KindTab
	tab.OpenTab = true
	r = scoreOne(t, tab, 1, Query{})
	assert.InDelta(t, 70, r.Score, 1e-9, "open tab bonus is for bookmarks only")
}

func TestScoreCustomBonus(t *testing.T) {
	rec := bookmark("Docs", "example.com")
	rec.CustomBonus = 5

	r := scoreOne(t, rec, 1, Query{})
	assert.InDelta(t, 105, r.Score, 1e-9)

	params := defaultParams()
	params.Bonuses.CustomBonus = false
	results := Score([]types.SearchCandidate{candidate(rec, 1)}, Query{}, params)
	assert.InDelta(t, 100, results[0].Score, 1e-9)
}

func TestScoreBaseByKind(t *testing.T) {
	engine := &types.Record{Kind: types.KindSearchEngine, Title: "Google: pandoc", URL: "https://www.google.com/search?q=pandoc"}
	direct := &types.Record{Kind: types.KindDirectURL, Title: "pandoc.org", URL: "https://pandoc.org"}
	bm := bookmark("pandoc", "pandoc.org")

	results := Score([]types.SearchCandidate{
		candidate(engine, 1),
		candidate(bm, 1),
		candidate(direct, 1),
	}, Query{Term: "pandoc", Raw: "pandoc"}, defaultParams())

	require.Len(t, results, 3)
	assert.Equal(t, types.KindDirectURL, results[0].Record.Kind)
	assert.Equal(t, types.KindBookmark, results[1].Record.Kind)
	assert.Equal(t, types.KindSearchEngine, results[2].Record.Kind)
	assert.InDelta(t, 30, results[2].Score, 1e-9, "fallback entries get no match bonus")
}

func TestScoreMonotonicInMatchQuality(t *testing.T) {
	weightSets := []types.FieldWeights{
		{Title: 1, URL: 0.6, Tag: 0.7, Folder: 0.5},
		{Title: 0.1, URL: 1, Tag: 0, Folder: 2},
		{},
	}
	rec := bookmark("Try pandoc", "pandoc.org")
	rec.VisitCount = 3

	for _, w := range weightSets {
		params := defaultParams()
		params.Weights = w
		prev := -1.0
		for q := 0.0; q <= 1.0001; q += 0.05 {
			results := Score([]types.SearchCandidate{candidate(rec, q)}, Query{Term: "pandoc", Raw: "pandoc"}, params)
			require.Len(t, results, 1)
			assert.GreaterOrEqual(t, results[0].Score, prev)
			prev = results[0].Score
		}
	}
}

func TestScoreIdempotentAndStable(t *testing.T) {
	a := bookmark("alpha", "a.example.com")
	b := bookmark("beta", "b.example.com")
	c := bookmark("gamma", "c.example.com")
	cands := []types.SearchCandidate{candidate(a, 0.5), candidate(b, 0.9), candidate(c, 0.5)}

	first := Score(cands, Query{Term: "zzz"}, defaultParams())
	second := Score(cands, Query{Term: "zzz"}, defaultParams())
	assert.Equal(t, first, second)

	require.Len(t, first, 3)
	assert.Equal(t, "beta", first[0].Record.Title)
	// Tie keeps input order
	assert.Equal(t, "alpha", first[1].Record.Title)
	assert.Equal(t, "gamma", first[2].Record.Title)

	assert.Equal(t, "alpha", cands[0].Record.Title, "input untouched")
}

func TestScoreClampsQuality(t *testing.T) {
	r := scoreOne(t, bookmark("Docs", "example.com"), 1.5, Query{})
	assert.Equal(t, 1.0, r.Breakdown.MatchQuality)
	assert.NoError(t, r.Validate())
}

func TestMarkerTerms(t *testing.T) {
	assert.Equal(t, []string{"md"}, markerTerms("pandoc #md ~dev", '#'))
	assert.Equal(t, []string{"dev"}, markerTerms("pandoc #md ~dev", '~'))
	assert.Equal(t, []string{"go lang", "tools"}, markerTerms("#Go Lang #tools", '#'))
	assert.Nil(t, markerTerms("c# tutorial", '~'))
	assert.Empty(t, markerTerms("c# tutorial", '#'))
}
