package precise

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dshills/marksearch-mcp/internal/config"
	"github.com/dshills/marksearch-mcp/pkg/types"
)

// additionalFieldFactor scales every matched field after the best one
const additionalFieldFactor = 0.2

// Options tune tokenization and matching
type Options struct {
	MinTokenLength int     // Shortest indexed prefix
	MinMatchLength int     // Query terms shorter than this are discarded
	MinMatchRatio  float64 // Fraction of query terms a record must match
	Weights        types.FieldWeights
}

// OptionsFromConfig extracts engine options from the config
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MinTokenLength: cfg.SearchMinTokenLength,
		MinMatchLength: cfg.SearchMinMatchLength,
		MinMatchRatio:  cfg.SearchMinMatchRatio,
		Weights:        cfg.FieldWeights(),
	}
}

// postings maps a token to ascending record indices
type postings map[string][]int

func (p postings) add(token string, idx int) {
	list := p[token]
	if n := len(list); n > 0 && list[n-1] == idx {
		return
	}
	p[token] = append(list, idx)
}

// kindIndex holds one posting list per field for one record kind
type kindIndex struct {
	records []*types.Record
	fields  map[types.Field]postings
}

// Index is the token index over every record kind
type Index struct {
	opts  Options
	kinds map[types.Kind]*kindIndex
}

// Build tokenizes the title, url, and for bookmarks tag and folder fields of
// every record.
func Build(records map[types.Kind][]*types.Record, opts Options) *Index {
	if opts.MinMatchRatio <= 0 {
		opts.MinMatchRatio = 1
	}
	x := &Index{
		opts:  opts,
		kinds: make(map[types.Kind]*kindIndex, len(records)),
	}
	for kind, recs := range records {
		ki := &kindIndex{
			records: recs,
			fields:  make(map[types.Field]postings),
		}
		for _, f := range types.FieldsFor(kind) {
			ki.fields[f] = make(postings)
		}
		for i, rec := range recs {
			for _, f := range types.FieldsFor(kind) {
				for _, tok := range ForwardTokens(rec.FieldText(f), opts.MinTokenLength) {
					ki.fields[f].add(tok, i)
				}
			}
		}
		x.kinds[kind] = ki
	}
	return x
}

// Tokens returns the number of distinct tokens indexed for a kind and field
func (x *Index) Tokens(kind types.Kind, f types.Field) int {
	ki, ok := x.kinds[kind]
	if !ok {
		return 0
	}
	return len(ki.fields[f])
}

// accumulator collects per-record match state across query terms
type accumulator struct {
	record  *types.Record
	terms   []bool
	matched map[types.Field]bool
}

// Search looks up each whitespace-separated term in every field index of
// the given kinds. Terms shorter than MinMatchLength are discarded; if none
// remain the result is empty.
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
				for _, idx := range ki.lookup(f, t, x.opts.MinTokenLength) {
					rec := ki.records[idx]
					acc, ok := accs[rec]
					if !ok {
						acc = &accumulator{
							record:  rec,
							terms:   make([]bool, len(terms)),
							matched: make(map[types.Field]bool),
						}
						accs[rec] = acc
					}
					acc.terms[ti] = true
					acc.matched[f] = true
				}
			}
		}
	}

	return x.collect(accs, len(terms))
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
		// Tolerate float noise so 2/3 passes a configured 0.6667
		if ratio+1e-9 < x.opts.MinMatchRatio {
			continue
		}
		out = append(out, types.SearchCandidate{
			Record:        acc.record,
			MatchQuality:  Quality(acc.matched, x.opts.Weights, ratio),
			MatchedFields: acc.matched,
		})
	}
	return out
}

// Quality combines matched field weights with diminishing returns: the best
// field counts fully, every other matched field adds a fifth of its weight.
// The sum is scaled by the fraction of matched terms and capped at 1, so
// with a title weight of 1 a full title hit saturates and further fields
// only count when some terms went unmatched.
func Quality(matched map[types.Field]bool, weights types.FieldWeights, ratio float64) float64 {
	var ws []float64
	for _, f := range types.AllFields {
		if matched[f] {
			ws = append(ws, weights.Weight(f))
		}
	}
	if len(ws) == 0 {
		return 0
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(ws)))

	q := ws[0]
	for _, w := range ws[1:] {
		q += w * additionalFieldFactor
	}
	return math.Min(1, q*ratio)
}

func (x *Index) queryTerms(term string) []string {
	var terms []string
	for _, t := range strings.Fields(strings.ToLower(term)) {
		if utf8.RuneCountInString(t) < x.opts.MinMatchLength {
			continue
		}
		terms = append(terms, t)
	}
	return terms
}

// lookup returns the records whose field contains every word of the term as
// a word prefix. Terms without any word characters fall back to a substring
// scan of the field text.
func (ki *kindIndex) lookup(f types.Field, term string, minTokenLength int) []int {
	words := Words(term)
	if len(words) == 0 {
		return ki.scan(f, term)
	}

	var result []int
	for i, w := range words {
		if utf8.RuneCountInString(w) < minTokenLength {
			// Never indexed; only reachable through the substring scan
			return ki.scan(f, term)
		}
		list := ki.fields[f][w]
		if i == 0 {
			result = list
		} else {
			result = intersect(result, list)
		}
		if len(result) == 0 {
			return nil
		}
	}
	return result
}

func (ki *kindIndex) scan(f types.Field, term string) []int {
	var out []int
	for i, rec := range ki.records {
		if !strings.Contains(rec.SearchStringLower, term) {
			continue
		}
		if strings.Contains(rec.FieldText(f), term) {
			out = append(out, i)
		}
	}
	return out
}

// intersect merges two ascending lists
func intersect(a, b []int) []int {
	var out []int
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return out
}
