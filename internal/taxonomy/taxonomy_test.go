package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/marksearch-mcp/pkg/types"
)

func bm(idx int, title string, tags []string, folders ...string) *types.Record {
	return &types.Record{
		Kind:          types.KindBookmark,
		Index:         idx,
		Title:         title,
		NormalizedURL: "https://example.com/" + title,
		Tags:          tags,
		FolderPath:    folders,
	}
}

func fixture() []*types.Record {
	return []*types.Record{
		bm(0, "spec", []string{"json"}, "Dev", "Formats"),
		bm(1, "jsonapi", []string{"jsonapi"}, "Dev"),
		bm(2, "both", []string{"JSON", "jsonapi"}, "Reading"),
		bm(3, "untagged", nil),
		bm(4, "yaml", []string{"yaml"}, "Dev", "Formats"),
	}
}

func qualities(cands []types.SearchCandidate) map[string]float64 {
	out := make(map[string]float64, len(cands))
	for _, c := range cands {
		out[c.Record.Title] = c.MatchQuality
	}
	return out
}

func TestSearchTagsExactAndPrefix(t *testing.T) {
	records := fixture()
	x := Build(records)

	cands := x.SearchTags("json", records)
	got := qualities(cands)

	assert.Equal(t, map[string]float64{
		"spec":    ExactMatchQuality,
		"jsonapi": PrefixMatchQuality,
		"both":    ExactMatchQuality, // best key wins, never summed
	}, got)

	for _, c := range cands {
		assert.True(t, c.MatchedFields[types.FieldTag])
	}
}

func TestSearchTagsExactNeverBelowPrefix(t *testing.T) {
	records := fixture()
	x := Build(records)

	for _, term := range []string{"json", "jsonapi", "j", "yaml"} {
		for _, c := range x.SearchTags(term, records) {
			for _, tag := range c.Record.TagsLower() {
				if tag == term {
					assert.Equal(t, ExactMatchQuality, c.MatchQuality, "term %q record %q", term, c.Record.Title)
				}
			}
			assert.GreaterOrEqual(t, c.MatchQuality, PrefixMatchQuality)
		}
	}
}

func TestSearchTagsMultipleTermsRequireAll(t *testing.T) {
	records := fixture()
	x := Build(records)

	got := qualities(x.SearchTags("json #jsonapi", records))
	assert.Equal(t, map[string]float64{
		"both":    ExactMatchQuality,
		"jsonapi": PrefixMatchQuality, // "json" only prefixes jsonapi, weakest term decides
	}, got)
}

func TestSearchTagsCaseInsensitiveAndNoMatch(t *testing.T) {
	records := fixture()
	x := Build(records)

	assert.Len(t, x.SearchTags("JSON", records), 3)
	assert.Empty(t, x.SearchTags("toml", records))
	assert.Empty(t, x.SearchTags("  ", records))
}

func TestSearchFolders(t *testing.T) {
	records := fixture()
	x := Build(records)

	got := qualities(x.SearchFolders("dev", records))
	assert.Equal(t, map[string]float64{"spec": 1, "jsonapi": 1, "yaml": 1}, got)

	got = qualities(x.SearchFolders("form", records))
	assert.Equal(t, map[string]float64{"spec": PrefixMatchQuality, "yaml": PrefixMatchQuality}, got)

	got = qualities(x.SearchFolders("dev ~formats", records))
	assert.Equal(t, map[string]float64{"spec": 1, "yaml": 1}, got)
}

func TestEntriesSortedByName(t *testing.T) {
	x := Build(fixture())

	assert.Equal(t, []Entry{
		{Name: "json", Count: 2},
		{Name: "jsonapi", Count: 2},
		{Name: "yaml", Count: 1},
	}, x.Tags())

	assert.Equal(t, []Entry{
		{Name: "Dev", Count: 3},
		{Name: "Formats", Count: 2},
		{Name: "Reading", Count: 1},
	}, x.Folders())
	assert.Equal(t, 5, x.Size())
}

func TestAllTaggedOrderedByName(t *testing.T) {
	records := fixture()
	x := Build(records)

	cands := x.AllTagged(records)
	require.Len(t, cands, 4)

	titles := make([]string, len(cands))
	for i, c := range cands {
		titles[i] = c.Record.Title
		assert.Equal(t, ExactMatchQuality, c.MatchQuality)
	}
	// json: spec, both; jsonapi: jsonapi; yaml: yaml
	assert.Equal(t, []string{"spec", "both", "jsonapi", "yaml"}, titles)
}

func TestAllFoldered(t *testing.T) {
	records := fixture()
	x := Build(records)

	cands := x.AllFoldered(records)
	require.Len(t, cands, 4)
	assert.Equal(t, "spec", cands[0].Record.Title)
	assert.Equal(t, "both", cands[3].Record.Title)
}
