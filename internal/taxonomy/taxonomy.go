package taxonomy

import (
	"sort"
	"strings"

	"github.com/dshills/marksearch-mcp/pkg/types"
)

// Match qualities. A record matching several keys keeps the best one.
const (
	ExactMatchQuality  = 1.0
	PrefixMatchQuality = 0.8
)

// Entry is a taxonomy key with the number of bookmarks carrying it
type Entry struct {
	Name  string
	Count int
}

// keySet maps a lowercase key to the bookmark indices carrying it
type keySet struct {
	postings map[string][]int
	names    map[string]string // Lowercase key to first-seen display casing
}

func newKeySet() *keySet {
	return &keySet{
		postings: make(map[string][]int),
		names:    make(map[string]string),
	}
}

func (k *keySet) add(name string, idx int) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return
	}
	list := k.postings[key]
	if n := len(list); n > 0 && list[n-1] == idx {
		return
	}
	k.postings[key] = append(list, idx)
	if _, ok := k.names[key]; !ok {
		k.names[key] = strings.TrimSpace(name)
	}
}

func (k *keySet) sortedKeys() []string {
	keys := make([]string, 0, len(k.postings))
	for key := range k.postings {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (k *keySet) entries() []Entry {
	keys := k.sortedKeys()
	out := make([]Entry, len(keys))
	for i, key := range keys {
		out[i] = Entry{Name: k.names[key], Count: len(k.postings[key])}
	}
	return out
}

// Index maps tags and folder names to bookmark indices
type Index struct {
	tags    *keySet
	folders *keySet
	size    int
}

// Build derives the tag and folder maps from the bookmark array. Indices
// refer to positions in that array.
func Build(bookmarks []*types.Record) *Index {
	x := &Index{
		tags:    newKeySet(),
		folders: newKeySet(),
		size:    len(bookmarks),
	}
	for i, rec := range bookmarks {
		for _, tag := range rec.Tags {
			x.tags.add(tag, i)
		}
		for _, f := range rec.FolderPath {
			x.folders.add(f, i)
		}
	}
	return x
}

// Size returns the number of bookmarks the index was built over
func (x *Index) Size() int {
	return x.size
}

// Tags lists every tag with its bookmark count, sorted by name
func (x *Index) Tags() []Entry {
	return x.tags.entries()
}

// Folders lists every folder name with its bookmark count, sorted by name
func (x *Index) Folders() []Entry {
	return x.folders.entries()
}

// SearchTags matches "#"-separated tag terms against the tag keys
func (x *Index) SearchTags(term string, bookmarks []*types.Record) []types.SearchCandidate {
	return search(x.tags, splitTerms(term, "#"), bookmarks, types.FieldTag)
}

// SearchFolders matches "~"-separated folder terms against folder names
func (x *Index) SearchFolders(term string, bookmarks []*types.Record) []types.SearchCandidate {
	return search(x.folders, splitTerms(term, "~"), bookmarks, types.FieldFolder)
}

// AllTagged returns every tagged bookmark ordered by its first tag name
func (x *Index) AllTagged(bookmarks []*types.Record) []types.SearchCandidate {
	return listAll(x.tags, bookmarks, types.FieldTag)
}

// AllFoldered returns every bookmark inside a named folder ordered by folder name
func (x *Index) AllFoldered(bookmarks []*types.Record) []types.SearchCandidate {
	return listAll(x.folders, bookmarks, types.FieldFolder)
}

// search requires every term to match some key. Per term a record keeps its
// best key quality; across terms the weakest term decides.
func search(keys *keySet, terms []string, bookmarks []*types.Record, field types.Field) []types.SearchCandidate {
	if len(terms) == 0 {
		return nil
	}

	var combined map[int]float64
	for _, term := range terms {
		best := make(map[int]float64)
		for key, postings := range keys.postings {
			q := keyQuality(key, term)
			if q == 0 {
				continue
			}
			for _, idx := range postings {
				if q > best[idx] {
					best[idx] = q
				}
			}
		}

		if combined == nil {
			combined = best
			continue
		}
		for idx, q := range combined {
			tq, ok := best[idx]
			if !ok {
				delete(combined, idx)
				continue
			}
			if tq < q {
				combined[idx] = tq
			}
		}
	}

	indices := make([]int, 0, len(combined))
	for idx := range combined {
		if idx < len(bookmarks) {
			indices = append(indices, idx)
		}
	}
	sort.Ints(indices)

	out := make([]types.SearchCandidate, 0, len(indices))
	for _, idx := range indices {
		out = append(out, types.SearchCandidate{
			Record:        bookmarks[idx],
			MatchQuality:  combined[idx],
			MatchedFields: map[types.Field]bool{field: true},
		})
	}
	return out
}

func keyQuality(key, term string) float64 {
	switch {
	case key == term:
		return ExactMatchQuality
	case strings.HasPrefix(key, term):
		return PrefixMatchQuality
	default:
		return 0
	}
}

func listAll(keys *keySet, bookmarks []*types.Record, field types.Field) []types.SearchCandidate {
	seen := make(map[int]bool)
	var out []types.SearchCandidate
	for _, key := range keys.sortedKeys() {
		for _, idx := range keys.postings[key] {
			if seen[idx] || idx >= len(bookmarks) {
				continue
			}
			seen[idx] = true
			out = append(out, types.SearchCandidate{
				Record:        bookmarks[idx],
				MatchQuality:  ExactMatchQuality,
				MatchedFields: map[types.Field]bool{field: true},
			})
		}
	}
	return out
}

// splitTerms splits on the taxonomy marker and lowercases each term
func splitTerms(term, marker string) []string {
	var terms []string
	for _, part := range strings.Split(term, marker) {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			terms = append(terms, part)
		}
	}
	return terms
}
