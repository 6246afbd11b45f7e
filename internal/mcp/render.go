package mcp

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dshills/marksearch-mcp/internal/config"
	"github.com/dshills/marksearch-mcp/internal/searcher"
	"github.com/dshills/marksearch-mcp/pkg/types"
)

// ResultView is the rendered form of one ranked result
type ResultView struct {
	Kind       string            `json:"kind"`
	ID         string            `json:"id,omitempty"`
	Title      string            `json:"title"`
	URL        string            `json:"url"`
	Tags       []string          `json:"tags,omitempty"`
	Folder     string            `json:"folder,omitempty"`
	OpenTab    bool              `json:"open_tab,omitempty"`
	Active     bool              `json:"active,omitempty"`
	Duplicate  bool              `json:"duplicate,omitempty"`
	Matched    []string          `json:"matched_fields,omitempty"`
	Highlights map[string]string `json:"highlights,omitempty"`
	VisitCount *int              `json:"visit_count,omitempty"`
	LastVisit  string            `json:"last_visit,omitempty"`
	Score      *float64          `json:"score,omitempty"`
	Breakdown  *types.Breakdown  `json:"breakdown,omitempty"`
}

// SearchView is the rendered form of a search response
type SearchView struct {
	Query      string       `json:"query"`
	Mode       string       `json:"mode"`
	Strategy   string       `json:"strategy"`
	Count      int          `json:"count"`
	Matched    int          `json:"matched"`
	CacheHit   bool         `json:"cache_hit"`
	DurationMS float64      `json:"duration_ms"`
	Results    []ResultView `json:"results"`
}

// RenderResult converts one ranked result, honouring the display toggles
func RenderResult(r types.RankedResult, cfg *config.Config, now time.Time) ResultView {
	rec := r.Record
	v := ResultView{
		Kind:      rec.Kind.String(),
		ID:        rec.SourceID,
		Title:     rec.Title,
		URL:       rec.URL,
		Tags:      rec.Tags,
		Folder:    strings.Join(rec.FolderPath, " / "),
		OpenTab:   rec.OpenTab,
		Active:    rec.Active,
		Duplicate: rec.Dupe,
	}
	for _, f := range r.Fields {
		v.Matched = append(v.Matched, f.String())
	}
	if len(r.Highlights) > 0 {
		v.Highlights = make(map[string]string, len(r.Highlights))
		for f, h := range r.Highlights {
			v.Highlights[f.String()] = h
		}
	}

	if cfg.DisplayVisitCounter && rec.VisitCount > 0 {
		count := rec.VisitCount
		v.VisitCount = &count
	}
	if cfg.DisplayLastVisit && rec.Visited() {
		v.LastVisit = humanize.Time(now.Add(-time.Duration(*rec.LastVisitSecondsAgo) * time.Second))
	}
	if cfg.DisplayScore {
		score := r.Score
		breakdown := r.Breakdown
		v.Score = &score
		v.Breakdown = &breakdown
	}
	return v
}

// RenderSearch converts a search response. limit truncates the results
// when positive.
func RenderSearch(resp *searcher.SearchResponse, cfg *config.Config, limit int, now time.Time) SearchView {
	results := resp.Results
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	view := SearchView{
		Query:      resp.Query.Raw,
		Mode:       resp.Query.Mode.String(),
		Strategy:   resp.Strategy,
		Count:      len(results),
		Matched:    resp.Matched,
		CacheHit:   resp.CacheHit,
		DurationMS: float64(resp.Duration.Microseconds()) / 1000,
		Results:    make([]ResultView, 0, len(results)),
	}
	for _, r := range results {
		view.Results = append(view.Results, RenderResult(r, cfg, now))
	}
	return view
}
