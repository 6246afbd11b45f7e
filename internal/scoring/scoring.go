package scoring

import (
	"math"
	"sort"
	"strings"

	"github.com/dshills/marksearch-mcp/internal/config"
	"github.com/dshills/marksearch-mcp/pkg/types"
)

// Bonuses are the additive score constants
type Bonuses struct {
	StartsWith   float64
	Includes     float64
	Equals       float64
	PhraseTitle  float64
	PhraseURL    float64
	TagMatch     float64
	FolderMatch  float64
	VisitedEach  float64
	VisitedMax   float64
	RecentMax    float64
	OpenTab      float64
	CustomBonus  bool
	RecentWindow float64 // Seconds after which the recency bonus reaches zero
}

// Params is everything the scoring formula reads
type Params struct {
	Base    map[types.Kind]float64
	Weights types.FieldWeights
	Bonuses Bonuses
}

// ParamsFromConfig extracts scoring parameters from the config
func ParamsFromConfig(cfg *config.Config) Params {
	base := make(map[types.Kind]float64, 5)
	for _, k := range []types.Kind{types.KindBookmark, types.KindTab, types.KindHistory, types.KindSearchEngine, types.KindDirectURL} {
		base[k] = cfg.BaseScore(k)
	}
	return Params{
		Base:    base,
		Weights: cfg.FieldWeights(),
		Bonuses: Bonuses{
			StartsWith:   cfg.ScoreExactStartsWithBonus,
			Includes:     cfg.ScoreExactIncludesBonus,
			Equals:       cfg.ScoreExactEqualsBonus,
			PhraseTitle:  cfg.ScoreExactPhraseTitleBonus,
			PhraseURL:    cfg.ScoreExactPhraseURLBonus,
			TagMatch:     cfg.ScoreExactTagMatchBonus,
			FolderMatch:  cfg.ScoreExactFolderMatchBonus,
			VisitedEach:  cfg.ScoreVisitedBonusPerVisit,
			VisitedMax:   cfg.ScoreVisitedBonusMax,
			RecentMax:    cfg.ScoreRecentBonusMax,
			OpenTab:      cfg.ScoreBookmarkOpenTabBonus,
			CustomBonus:  cfg.ScoreCustomBonus,
			RecentWindow: cfg.HistoryWindow().Seconds(),
		},
	}
}

// Query is the text the match bonuses compare against
type Query struct {
	Term string // Search term with the mode prefix stripped
	Raw  string // Full query, inspected for #tag and ~folder tokens
}

// Score ranks candidates by the five-step formula and returns them sorted
// descending. Ties keep input order. Candidates are not modified.
func Score(candidates []types.SearchCandidate, q Query, p Params) []types.RankedResult {
	term := strings.ToLower(strings.TrimSpace(q.Term))
	tagTerms := markerTerms(q.Raw, '#')
	folderTerms := markerTerms(q.Raw, '~')

	results := make([]types.RankedResult, 0, len(candidates))
	for _, c := range candidates {
		if c.Record == nil {
			continue
		}
		rec := c.Record
		quality := math.Max(0, math.Min(1, c.MatchQuality))

		b := types.Breakdown{
			Base:         p.Base[rec.Kind],
			MatchQuality: quality,
		}
		if rec.Kind.Indexed() {
			b.MatchBonus = matchBonus(rec, term, p)
			b.MatchBonus += taxonomyBonus(rec.TagsLower(), tagTerms, p.Bonuses.TagMatch)
			b.MatchBonus += taxonomyBonus(rec.FoldersLower(), folderTerms, p.Bonuses.FolderMatch)
			b.UsageBonus = usageBonus(rec, p.Bonuses)
			if p.Bonuses.CustomBonus {
				b.CustomBonus = float64(rec.CustomBonus)
			}
		}

		results = append(results, types.RankedResult{
			Record:    rec,
			Score:     b.Total(),
			Breakdown: b,
			Fields:    c.Fields(),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// matchBonus applies the strongest of starts-with and includes, title
// before url, plus the equals and exact phrase bonuses.
func matchBonus(rec *types.Record, term string, p Params) float64 {
	if term == "" {
		return 0
	}
	title := strings.ToLower(rec.Title)
	url := rec.DisplayURL
	bs := p.Bonuses

	var bonus float64
	switch {
	case strings.HasPrefix(title, term):
		bonus = bs.StartsWith * p.Weights.Title
	case strings.HasPrefix(url, term):
		bonus = bs.StartsWith * p.Weights.URL
	case strings.Contains(title, term):
		bonus = bs.Includes * p.Weights.Title
	case strings.Contains(url, term):
		bonus = bs.Includes * p.Weights.URL
	}
	if title == term {
		bonus += bs.Equals
	}

	if strings.Contains(term, " ") {
		if strings.Contains(title, term) {
			bonus += bs.PhraseTitle
		}
		if strings.Contains(url, strings.ReplaceAll(term, " ", "-")) {
			bonus += bs.PhraseURL
		}
	}
	return bonus
}

// taxonomyBonus adds the bonus once per query term equal to one of keys
func taxonomyBonus(keys, terms []string, bonus float64) float64 {
	if len(keys) == 0 || len(terms) == 0 || bonus == 0 {
		return 0
	}
	var total float64
	for _, t := range terms {
		for _, k := range keys {
			if t == k || strings.HasPrefix(t, k+" ") {
				total += bonus
				break
			}
		}
	}
	return total
}

func usageBonus(rec *types.Record, bs Bonuses) float64 {
	var bonus float64
	if rec.VisitCount > 0 {
		bonus += math.Min(bs.VisitedMax, float64(rec.VisitCount)*bs.VisitedEach)
	}
	if rec.LastVisitSecondsAgo != nil && bs.RecentWindow > 0 {
		age := math.Max(0, float64(*rec.LastVisitSecondsAgo))
		bonus += math.Max(0, bs.RecentMax*(1-age/bs.RecentWindow))
	}
	if rec.Kind == types.KindBookmark && rec.OpenTab {
		bonus += bs.OpenTab
	}
	return bonus
}

// markerTerms returns the lowercase text following each marker in the raw
// query, up to the next marker of either kind.
func markerTerms(raw string, marker byte) []string {
	if strings.IndexByte(raw, marker) < 0 {
		return nil
	}
	var terms []string
	for i := 0; i < len(raw); i++ {
		if raw[i] != marker || (i > 0 && raw[i-1] != ' ') {
			continue
		}
		end := strings.IndexAny(raw[i+1:], "#~")
		seg := raw[i+1:]
		if end >= 0 {
			seg = raw[i+1 : i+1+end]
		}
		if seg = strings.ToLower(strings.TrimSpace(seg)); seg != "" {
			terms = append(terms, seg)
		}
	}
	return terms
}
