package searcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/marksearch-mcp/internal/catalog"
	"github.com/dshills/marksearch-mcp/internal/config"
	"github.com/dshills/marksearch-mcp/internal/fuzzy"
	"github.com/dshills/marksearch-mcp/internal/metrics"
	"github.com/dshills/marksearch-mcp/internal/report"
	"github.com/dshills/marksearch-mcp/internal/scoring"
	"github.com/dshills/marksearch-mcp/pkg/types"
)

// DirectURLQuality is the match quality of the direct navigation entry
const DirectURLQuality = 1.0

// hostLike matches "example.com", "localhost:8080/x" and similar terms
var hostLike = regexp.MustCompile(`^(localhost|[\p{L}\d-]+(\.[\p{L}\d-]+)*\.\p{L}{2,})(:\d+)?(/\S*)?$`)

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Query    string
	Strategy string // Empty uses the configured strategy
	UseCache bool
}

// SearchResponse contains ranked results and metadata
type SearchResponse struct {
	Query      Query
	Strategy   string
	Results    []types.RankedResult
	Matched    int // Results above the minimum score before the cap
	Duration   time.Duration
	CacheHit   bool
	Generation uint64
}

// cacheEntry is a response stamped with the catalog generation it was
// computed from
type cacheEntry struct {
	generation uint64
	response   *SearchResponse
}

// Options are the optional collaborators of a Searcher
type Options struct {
	Boundary *report.Boundary
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// Searcher parses queries, dispatches them to the matching engine and ranks
// the results.
type Searcher struct {
	catalog  *catalog.Catalog
	cfg      *config.Config
	params   scoring.Params
	cache    *lru.Cache[[32]byte, *cacheEntry]
	cacheMu  sync.RWMutex
	boundary *report.Boundary
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewSearcher creates a Searcher over cat. cfg is read-only for the
// lifetime of the searcher.
func NewSearcher(cat *catalog.Catalog, cfg *config.Config, opts Options) *Searcher {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Boundary == nil {
		opts.Boundary = report.New(opts.Logger)
	}

	s := &Searcher{
		catalog:  cat,
		cfg:      cfg,
		params:   scoring.ParamsFromConfig(cfg),
		boundary: opts.Boundary,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}
	if cfg.SearchCacheSize > 0 {
		cache, err := lru.New[[32]byte, *cacheEntry](cfg.SearchCacheSize)
		if err != nil {
			// Only fails for non-positive sizes
			panic(fmt.Sprintf("failed to create LRU cache: %v", err))
		}
		s.cache = cache
	}
	return s
}

// Boundary returns the error-reporting boundary
func (s *Searcher) Boundary() *report.Boundary {
	return s.boundary
}

// Search runs one query. An unsupported strategy or an unavailable fuzzy
// engine is returned and reported to the boundary.
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	strategy := req.Strategy
	if strategy == "" {
		strategy = s.cfg.SearchStrategy
	}
	if err := config.ValidateStrategy(strategy); err != nil {
		s.boundary.Report(err)
		return nil, err
	}

	q := ParseQuery(req.Query)
	useCache := req.UseCache && s.cache != nil && q.Term != ""

	if useCache {
		if cached := s.checkCache(q, strategy); cached != nil {
			cached.Query = q
			cached.CacheHit = true
			cached.Duration = time.Since(start)
			s.metrics.CacheHit()
			s.metrics.ObserveSearch(strategy, q.Mode.String(), cached.Duration, len(cached.Results))
			return cached, nil
		}
		s.metrics.CacheMiss()
	}

	var response *SearchResponse
	err := s.catalog.Read(func(snap *catalog.Snapshot) error {
		cands, err := s.candidates(snap, q, strategy)
		if err != nil {
			return err
		}
		response = s.rank(q, strategy, cands)
		response.Generation = snap.Generation()
		return nil
	})
	if err != nil {
		s.boundary.Report(err)
		return nil, err
	}

	response.Duration = time.Since(start)
	if useCache {
		s.storeInCache(q, strategy, response)
	}

	s.metrics.ObserveSearch(strategy, q.Mode.String(), response.Duration, len(response.Results))
	s.logger.Debug("search",
		"query", req.Query,
		"mode", q.Mode.String(),
		"strategy", strategy,
		"results", len(response.Results),
		"duration", response.Duration)
	return response, nil
}

// candidates dispatches to exactly one engine, or to the default results
// when the term is empty
func (s *Searcher) candidates(snap *catalog.Snapshot, q Query, strategy string) ([]types.SearchCandidate, error) {
	if q.Term == "" {
		return defaultCandidates(snap, q.Mode), nil
	}

	var cands []types.SearchCandidate
	switch {
	case q.Mode == ModeTags:
		cands = snap.Taxonomy().SearchTags(q.Term, snap.Records(types.KindBookmark))
	case q.Mode == ModeFolders:
		cands = snap.Taxonomy().SearchFolders(q.Term, snap.Records(types.KindBookmark))
	case q.Mode == ModeSearchEngines:
	case strategy == config.StrategyFuzzy:
		x, err := snap.Fuzzy()
		if err != nil {
			return nil, err
		}
		cands = x.Search(q.Term, q.Mode.Kinds())
	default:
		cands = snap.Precise().Search(q.Term, q.Mode.Kinds())
	}

	if q.Mode.Fallback() {
		cands = append(cands, s.fallbackCandidates(q.Term)...)
	}
	return cands, nil
}

// defaultCandidates are shown for an empty term. In all mode they are the
// bookmarks under the active tab's URL and history entries for exactly that
// URL.
func defaultCandidates(snap *catalog.Snapshot, mode Mode) []types.SearchCandidate {
	var recs []*types.Record
	switch mode {
	case ModeAll:
		active := snap.ActiveTab()
		if active == nil {
			return nil
		}
		for _, b := range snap.Records(types.KindBookmark) {
			if strings.HasPrefix(b.NormalizedURL, active.NormalizedURL) {
				recs = append(recs, b)
			}
		}
		for _, h := range snap.Records(types.KindHistory) {
			if h.NormalizedURL == active.NormalizedURL {
				recs = append(recs, h)
			}
		}
	case ModeTags:
		return snap.Taxonomy().AllTagged(snap.Records(types.KindBookmark))
	case ModeFolders:
		return snap.Taxonomy().AllFoldered(snap.Records(types.KindBookmark))
	case ModeHistory, ModeBookmarks, ModeTabs:
		for _, k := range mode.Kinds() {
			recs = append(recs, snap.Records(k)...)
		}
	case ModeSearchEngines:
		return nil
	}

	out := make([]types.SearchCandidate, len(recs))
	for i, r := range recs {
		out[i] = types.SearchCandidate{Record: r, MatchQuality: 1}
	}
	return out
}

// fallbackCandidates builds one entry per configured search engine and a
// direct navigation entry when the term looks like a URL
func (s *Searcher) fallbackCandidates(term string) []types.SearchCandidate {
	var out []types.SearchCandidate
	if u, ok := DirectURL(term); ok {
		out = append(out, types.SearchCandidate{
			Record: &types.Record{
				Kind:          types.KindDirectURL,
				SourceID:      u,
				Title:         term,
				URL:           u,
				NormalizedURL: strings.TrimSuffix(u, "/"),
				DisplayURL:    strings.ToLower(term),
			},
			MatchQuality: DirectURLQuality,
		})
	}

	escaped := url.QueryEscape(term)
	for i, e := range s.cfg.SearchEngines {
		u := e.URLPrefix + escaped
		out = append(out, types.SearchCandidate{
			Record: &types.Record{
				Kind:          types.KindSearchEngine,
				SourceID:      e.Name,
				Index:         i,
				Title:         e.Name + ": " + term,
				URL:           u,
				NormalizedURL: u,
				DisplayURL:    strings.ToLower(e.Name),
			},
			MatchQuality: 1,
		})
	}
	return out
}

// DirectURL returns a navigable URL for terms that look like one
func DirectURL(term string) (string, bool) {
	term = strings.TrimSpace(term)
	if term == "" || strings.ContainsAny(term, " \t") {
		return "", false
	}
	if u, err := url.Parse(term); err == nil && u.Scheme != "" && u.Host != "" {
		return term, true
	}
	if hostLike.MatchString(term) {
		return "https://" + term, true
	}
	return "", false
}

// rank scores candidates, filters by minimum score and caps the count.
// Taxonomy modes are exempt from the cap; with an empty term they keep the
// name order of the taxonomy listing.
func (s *Searcher) rank(q Query, strategy string, cands []types.SearchCandidate) *SearchResponse {
	results := scoring.Score(cands, scoring.Query{Term: q.Term, Raw: q.Raw}, s.params)

	if q.Mode.Taxonomy() && q.Term == "" {
		order := make(map[*types.Record]int, len(cands))
		for i, c := range cands {
			order[c.Record] = i
		}
		sort.SliceStable(results, func(i, j int) bool {
			return order[results[i].Record] < order[results[j].Record]
		})
	}

	if strategy == config.StrategyFuzzy {
		byRecord := make(map[*types.Record]types.SearchCandidate, len(cands))
		for _, c := range cands {
			byRecord[c.Record] = c
		}
		for i := range results {
			results[i].Highlights = fuzzy.Highlights(byRecord[results[i].Record])
		}
	}

	kept := results[:0]
	for _, r := range results {
		if r.Score >= s.cfg.SearchMinScore {
			kept = append(kept, r)
		}
	}
	matched := len(kept)
	if !q.Mode.Taxonomy() && len(kept) > s.cfg.SearchMaxResults {
		kept = kept[:s.cfg.SearchMaxResults]
	}

	return &SearchResponse{
		Query:    q,
		Strategy: strategy,
		Results:  kept,
		Matched:  matched,
	}
}

// checkCache returns a copy of a cached response if it was computed from
// the current generation
func (s *Searcher) checkCache(q Query, strategy string) *SearchResponse {
	key := computeQueryHash(q, strategy)

	s.cacheMu.RLock()
	entry, ok := s.cache.Get(key)
	s.cacheMu.RUnlock()
	if !ok {
		return nil
	}
	if entry.generation != s.catalog.Generation() {
		s.cacheMu.Lock()
		s.cache.Remove(key)
		s.cacheMu.Unlock()
		return nil
	}
	return copySearchResponse(entry.response)
}

func (s *Searcher) storeInCache(q Query, strategy string, response *SearchResponse) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cache.Add(computeQueryHash(q, strategy), &cacheEntry{
		generation: response.Generation,
		response:   copySearchResponse(response),
	})
}

// InvalidateCache drops every cached response
func (s *Searcher) InvalidateCache() {
	if s.cache == nil {
		return
	}
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

// CacheLen returns the number of cached responses
func (s *Searcher) CacheLen() int {
	if s.cache == nil {
		return 0
	}
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cache.Len()
}

// copySearchResponse copies the result slice. Records are never mutated in
// place by the catalog, so sharing them is safe.
func copySearchResponse(src *SearchResponse) *SearchResponse {
	dst := *src
	dst.Results = make([]types.RankedResult, len(src.Results))
	copy(dst.Results, src.Results)
	return &dst
}

// computeQueryHash keys the cache by term, strategy and mode
func computeQueryHash(q Query, strategy string) [32]byte {
	var data strings.Builder
	data.WriteString(q.Term)
	data.WriteString("|")
	data.WriteString(strategy)
	data.WriteString("|")
	data.WriteString(q.Mode.String())
	return sha256.Sum256([]byte(data.String()))
}
