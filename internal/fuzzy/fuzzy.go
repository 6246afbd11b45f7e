package fuzzy

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	subseq "github.com/sahilm/fuzzy"

	"github.com/dshills/marksearch-mcp/internal/config"
	"github.com/dshills/marksearch-mcp/pkg/types"
)

const additionalFieldFactor = 0.2

// Options tune approximate matching
type Options struct {
	Tolerance      float64 // 0 requires contiguous matches, 1 accepts any subsequence
	MinMatchLength int
	MinMatchRatio  float64
	Weights        types.FieldWeights
}

// OptionsFromConfig extracts engine options from the config
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Tolerance:      cfg.SearchFuzzyTolerance,
		MinMatchLength: cfg.SearchMinMatchLength,
		MinMatchRatio:  cfg.SearchMinMatchRatio,
		Weights:        cfg.FieldWeights(),
	}
}

// fieldSource exposes one field of every record to the matcher
type fieldSource []string

func (s fieldSource) String(i int) string { return s[i] }
func (s fieldSource) Len() int            { return len(s) }

type kindIndex struct {
	records []*types.Record
	fields  map[types.Field]fieldSource
}

// Index holds per-field match sources for every record kind
type Index struct {
	opts  Options
	kinds map[types.Kind]*kindIndex
}

// Build prepares per-field sources in display casing so spans map directly
// onto rendered text. An out-of-range tolerance leaves the engine unusable.
func Build(records map[types.Kind][]*types.Record, opts Options) (*Index, error) {
	if math.IsNaN(opts.Tolerance) || opts.Tolerance < 0 || opts.Tolerance > 1 {
		return nil, fmt.Errorf("%w: tolerance %v outside [0, 1]", types.ErrFuzzyUnavailable, opts.Tolerance)
	}
	if opts.MinMatchRatio <= 0 {
		opts.MinMatchRatio = 1
	}

	x := &Index{opts: opts, kinds: make(map[types.Kind]*kindIndex, len(records))}
	for kind, recs := range records {
		ki := &kindIndex{records: recs, fields: make(map[types.Field]fieldSource)}
		for _, f := range types.FieldsFor(kind) {
			src := make(fieldSource, len(recs))
			for i, rec := range recs {
				src[i] = rec.RawFieldText(f)
			}
			ki.fields[f] = src
		}
		x.kinds[kind] = ki
	}
	return x, nil
}

// fieldMatch is the best match of one field across all query terms
type fieldMatch struct {
	quality float64
	spans   []types.Span
}

type accumulator struct {
	record *types.Record
	terms  []bool
	fields map[types.Field]*fieldMatch
}

// Search runs approximate matching for each whitespace-separated term in
// every field of the given kinds. Per record each field keeps its best
// quality and the union of matched spans.
func (x *Index) Search(term string, kinds []types.Kind) []types.SearchCandidate {
	terms := x.queryTerms(term)
	if len(terms) == 0 {
		return nil
	}

	accs := make(map[*types.Record]*accumulator)
	for _, kind := range kinds {
		ki, ok := x.kinds[kind]
		if !ok {
			continue
		}
		for ti, t := range terms {
			for _, f := range types.FieldsFor(kind) {
				for idx, m := range x.matchField(ki.fields[f], t) {
					rec := ki.records[idx]
					acc, ok := accs[rec]
					if !ok {
						acc = &accumulator{
							record: rec,
							terms:  make([]bool, len(terms)),
							fields: make(map[types.Field]*fieldMatch),
						}
						accs[rec] = acc
					}
					acc.terms[ti] = true
					fm, ok := acc.fields[f]
					if !ok {
						fm = &fieldMatch{}
						acc.fields[f] = fm
					}
					fm.quality = math.Max(fm.quality, m.quality)
					fm.spans = append(fm.spans, m.spans...)
				}
			}
		}
	}

	return x.collect(accs, len(terms))
}

// matchField returns per-record matches of one term against one field.
// Subsequence matches come from the fuzzy matcher and are narrowed to the
// tightest window holding the term; records it misses are retried with
// word-level edit distance.
func (x *Index) matchField(src fieldSource, term string) map[int]fieldMatch {
	out := make(map[int]fieldMatch)
	minCompactness := 1 - x.opts.Tolerance
	termLen := len(term)

	for _, m := range subseq.FindFrom(term, src) {
		indexes := tightestWindow(m.Str, term)
		if indexes == nil {
			indexes = m.MatchedIndexes
		}
		spans := runSpans(m.Str, indexes)
		if len(spans) == 0 {
			continue
		}
		width := spans[len(spans)-1].End - spans[0].Start
		compactness := math.Min(1, float64(termLen)/float64(width))
		if compactness+1e-9 < minCompactness {
			continue
		}
		out[m.Index] = fieldMatch{quality: compactness, spans: spans}
	}

	if MaxEdits(utf8.RuneCountInString(term), x.opts.Tolerance) == 0 {
		return out
	}
	for i := 0; i < src.Len(); i++ {
		if _, ok := out[i]; ok {
			continue
		}
		if q, span, ok := typoMatch(term, src.String(i), x.opts.Tolerance); ok {
			out[i] = fieldMatch{quality: q, spans: []types.Span{span}}
		}
	}
	return out
}

func (x *Index) collect(accs map[*types.Record]*accumulator, termCount int) []types.SearchCandidate {
	list := make([]*accumulator, 0, len(accs))
	for _, acc := range accs {
		list = append(list, acc)
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i].record, list[j].record
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Index < b.Index
	})

	out := make([]types.SearchCandidate, 0, len(list))
	for _, acc := range list {
		hits := 0
		for _, ok := range acc.terms {
			if ok {
				hits++
			}
		}
		ratio := float64(hits) / float64(termCount)
		if ratio+1e-9 < x.opts.MinMatchRatio {
			continue
		}

		matched := make(map[types.Field]bool, len(acc.fields))
		spans := make(map[types.Field][]types.Span, len(acc.fields))
		scores := make([]float64, 0, len(acc.fields))
		for f, fm := range acc.fields {
			matched[f] = true
			spans[f] = MergeSpans(fm.spans)
			scores = append(scores, x.opts.Weights.Weight(f)*fm.quality)
		}

		out = append(out, types.SearchCandidate{
			Record:        acc.record,
			MatchQuality:  accumulate(scores, ratio),
			MatchedFields: matched,
			Spans:         spans,
		})
	}
	return out
}

// accumulate applies diminishing returns: the best field score counts fully,
// every other field adds a fifth.
func accumulate(scores []float64, ratio float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))
	q := scores[0]
	for _, s := range scores[1:] {
		q += s * additionalFieldFactor
	}
	return math.Min(1, q*ratio)
}

func (x *Index) queryTerms(term string) []string {
	var terms []string
	for _, t := range strings.Fields(term) {
		if utf8.RuneCountInString(t) < x.opts.MinMatchLength {
			continue
		}
		terms = append(terms, t)
	}
	return terms
}

// tightestWindow returns the byte offsets of the narrowest case-insensitive
// occurrence of term as a subsequence of s, or nil when there is none. A
// contiguous occurrence is always the narrowest.
func tightestWindow(s, term string) []int {
	pattern := []rune(strings.ToLower(term))
	if len(pattern) == 0 {
		return nil
	}

	var best []int
	bestWidth := -1
	for start, r := range s {
		if unicode.ToLower(r) != pattern[0] {
			continue
		}
		end := subsequenceEnd(s, start, pattern)
		if end < 0 {
			break
		}
		// Scanning back from the end finds the latest start for that end
		idx := make([]int, len(pattern))
		_, size := utf8.DecodeRuneInString(s[end:])
		j := end + size
		for p := len(pattern) - 1; p >= 0 && j > 0; {
			r, size := utf8.DecodeLastRuneInString(s[:j])
			j -= size
			if unicode.ToLower(r) == pattern[p] {
				idx[p] = j
				p--
			}
		}
		width := end + size - idx[0]
		if bestWidth < 0 || width < bestWidth {
			best, bestWidth = idx, width
		}
		if bestWidth == len(term) {
			break
		}
	}
	return best
}

// subsequenceEnd returns the offset of the rune completing pattern when
// matched greedily from start, or -1
func subsequenceEnd(s string, start int, pattern []rune) int {
	p := 0
	for i, r := range s[start:] {
		if unicode.ToLower(r) != pattern[p] {
			continue
		}
		p++
		if p == len(pattern) {
			return start + i
		}
	}
	return -1
}

// runSpans converts the matcher's per-rune byte indexes into contiguous
// spans over s.
func runSpans(s string, indexes []int) []types.Span {
	var spans []types.Span
	for _, i := range indexes {
		if i < 0 || i >= len(s) {
			continue
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		if n := len(spans); n > 0 && spans[n-1].End == i {
			spans[n-1].End = i + size
			continue
		}
		spans = append(spans, types.Span{Start: i, End: i + size})
	}
	return spans
}

// MergeSpans sorts spans and joins overlapping or touching ones
func MergeSpans(spans []types.Span) []types.Span {
	if len(spans) == 0 {
		return nil
	}
	sorted := append([]types.Span(nil), spans...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	out := []types.Span{sorted[0]}
	for _, s := range sorted[1:] {
		last := &out[len(out)-1]
		if s.Start <= last.End {
			last.End = max(last.End, s.End)
			continue
		}
		out = append(out, s)
	}
	return out
}
