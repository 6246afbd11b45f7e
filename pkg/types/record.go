package types

import (
	"errors"
	"strings"
)

// Kind identifies the source a Record was built from
type Kind int

const (
	KindBookmark Kind = iota
	KindTab
	KindHistory
	KindSearchEngine
	KindDirectURL
)

// String returns the lowercase name used in logs and rendered output
func (k Kind) String() string {
	switch k {
	case KindBookmark:
		return "bookmark"
	case KindTab:
		return "tab"
	case KindHistory:
		return "history"
	case KindSearchEngine:
		return "search"
	case KindDirectURL:
		return "direct"
	default:
		return "unknown"
	}
}

// Indexed reports whether records of this kind live in the catalog and
// are covered by the search indices.
func (k Kind) Indexed() bool {
	switch k {
	case KindBookmark, KindTab, KindHistory:
		return true
	case KindSearchEngine, KindDirectURL:
		return false
	default:
		return false
	}
}

// IndexedKinds lists the kinds held by the catalog, in base-score order
var IndexedKinds = []Kind{KindBookmark, KindTab, KindHistory}

// Field is a searchable record field
type Field int

const (
	FieldTitle Field = iota
	FieldURL
	FieldTag
	FieldFolder
)

// AllFields lists every searchable field
var AllFields = []Field{FieldTitle, FieldURL, FieldTag, FieldFolder}

func (f Field) String() string {
	switch f {
	case FieldTitle:
		return "title"
	case FieldURL:
		return "url"
	case FieldTag:
		return "tag"
	case FieldFolder:
		return "folder"
	default:
		return "unknown"
	}
}

// FieldsFor returns the fields indexed for a record kind. Tags and folders
// only exist on bookmarks.
func FieldsFor(k Kind) []Field {
	if k == KindBookmark {
		return AllFields
	}
	return []Field{FieldTitle, FieldURL}
}

// FieldWeights maps each field to its weight in match quality
type FieldWeights struct {
	Title  float64
	URL    float64
	Tag    float64
	Folder float64
}

// Weight returns the weight of a single field
func (w FieldWeights) Weight(f Field) float64 {
	switch f {
	case FieldTitle:
		return w.Title
	case FieldURL:
		return w.URL
	case FieldTag:
		return w.Tag
	case FieldFolder:
		return w.Folder
	default:
		return 0
	}
}

// Record is the unit of search. Bookmarks, tabs and history entries are all
// normalized into this shape.
type Record struct {
	// Identification
	Kind     Kind
	SourceID string
	Index    int // Dense position within the kind's record array

	// Content
	Title         string
	URL           string
	NormalizedURL string // URL without trailing slash, used for merging and duplicates
	DisplayURL    string // Lowercase URL without scheme, www. and trailing slash
	Tags          []string
	FolderPath    []string

	// Usage signals merged in from history
	VisitCount          int
	LastVisitSecondsAgo *int64

	// Bookmark extras
	CustomBonus int
	OpenTab     bool // Bookmark is currently open in a tab
	Active      bool // Tab is the active browsing context

	SearchStringLower string
	Dupe              bool
}

// Visited reports whether the record carries a last-visit signal
func (r *Record) Visited() bool {
	return r.LastVisitSecondsAgo != nil
}

// TagsLower returns the tags lowercased for matching
func (r *Record) TagsLower() []string {
	out := make([]string, len(r.Tags))
	for i, t := range r.Tags {
		out[i] = strings.ToLower(t)
	}
	return out
}

// FoldersLower returns the folder path lowercased for matching
func (r *Record) FoldersLower() []string {
	out := make([]string, len(r.FolderPath))
	for i, f := range r.FolderPath {
		out[i] = strings.ToLower(f)
	}
	return out
}

// FieldText returns the lowercased text of a field. Tags and folders are
// joined by a single space.
func (r *Record) FieldText(f Field) string {
	switch f {
	case FieldTitle:
		return strings.ToLower(r.Title)
	case FieldURL:
		return r.DisplayURL
	case FieldTag:
		return strings.Join(r.TagsLower(), " ")
	case FieldFolder:
		return strings.Join(r.FoldersLower(), " ")
	default:
		return ""
	}
}

// RawFieldText returns a field in its display casing
func (r *Record) RawFieldText(f Field) string {
	switch f {
	case FieldTitle:
		return r.Title
	case FieldURL:
		return r.DisplayURL
	case FieldTag:
		return strings.Join(r.Tags, " ")
	case FieldFolder:
		return strings.Join(r.FolderPath, " ")
	default:
		return ""
	}
}

// BuildSearchString recomputes SearchStringLower from the record's fields
func (r *Record) BuildSearchString() {
	var b strings.Builder
	b.WriteString(strings.ToLower(r.Title))
	b.WriteString(" ")
	b.WriteString(r.DisplayURL)
	for _, t := range r.TagsLower() {
		b.WriteString(" #")
		b.WriteString(t)
	}
	for _, f := range r.FoldersLower() {
		b.WriteString(" ~")
		b.WriteString(f)
	}
	r.SearchStringLower = b.String()
}

// Clone returns a deep copy of the record
func (r *Record) Clone() *Record {
	c := *r
	c.Tags = append([]string(nil), r.Tags...)
	c.FolderPath = append([]string(nil), r.FolderPath...)
	if r.LastVisitSecondsAgo != nil {
		v := *r.LastVisitSecondsAgo
		c.LastVisitSecondsAgo = &v
	}
	return &c
}

// Validate checks the invariants of an indexed record
func (r *Record) Validate() error {
	if !r.Kind.Indexed() {
		return errors.New("record kind is not indexable")
	}
	if r.NormalizedURL == "" {
		return errors.New("normalized URL is required")
	}
	if r.Kind != KindBookmark && (len(r.Tags) > 0 || len(r.FolderPath) > 0) {
		return errors.New("only bookmarks carry tags and folders")
	}
	if r.Index < 0 {
		return errors.New("index must be non-negative")
	}
	return nil
}

// Span is a half-open byte range [Start, End) of a matched substring
type Span struct {
	Start int
	End   int
}

// SearchCandidate is a match produced by one of the search engines
type SearchCandidate struct {
	Record        *Record
	MatchQuality  float64 // 0..1
	MatchedFields map[Field]bool
	Spans         map[Field][]Span // Fuzzy engine only
}

// Fields returns the matched fields in stable order
func (c *SearchCandidate) Fields() []Field {
	var out []Field
	for _, f := range AllFields {
		if c.MatchedFields[f] {
			out = append(out, f)
		}
	}
	return out
}
