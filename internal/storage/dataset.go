package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dshills/marksearch-mcp/pkg/types"
)

// ReadDataset decodes a browser export: an object with "bookmarks",
// "tabs" and "history" keys
func ReadDataset(r io.Reader) (types.Dataset, error) {
	var ds types.Dataset
	dec := json.NewDecoder(r)
	if err := dec.Decode(&ds); err != nil {
		return types.Dataset{}, fmt.Errorf("failed to decode dataset: %w", err)
	}
	return ds, nil
}

// ReadDatasetFile decodes the browser export at path
func ReadDatasetFile(path string) (types.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.Dataset{}, err
	}
	defer f.Close()
	return ReadDataset(f)
}

// WriteDataset encodes ds in the format ReadDataset accepts
func WriteDataset(w io.Writer, ds types.Dataset) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ds)
}

// FallbackDataset is served when the platform provider cannot be read. It
// exercises every kind and both taxonomy markers.
func FallbackDataset(now time.Time) types.Dataset {
	return types.Dataset{
		Bookmarks: &types.BookmarkNode{ID: "0", Children: []*types.BookmarkNode{
			{ID: "1", Title: "Bookmarks Bar", Children: []*types.BookmarkNode{
				{ID: "10", Title: "Go Documentation #go #docs", URL: "https://go.dev/doc/"},
				{ID: "11", Title: "Go Packages #go", URL: "https://pkg.go.dev/"},
				{ID: "12", Title: "MDN Web Docs #docs #web", URL: "https://developer.mozilla.org/"},
			}},
			{ID: "2", Title: "Tools", Children: []*types.BookmarkNode{
				{ID: "20", Title: "Pandoc - document converter #md", URL: "https://pandoc.org/"},
				{ID: "21", Title: "regex101 +10 #regex", URL: "https://regex101.com/"},
				{ID: "22", Title: "SQLite Documentation #docs #db", URL: "https://www.sqlite.org/docs.html"},
			}},
		}},
		Tabs: []types.RawTab{
			{ID: "100", WindowID: "1", Title: "Go Packages", URL: "https://pkg.go.dev/", Active: true},
			{ID: "101", WindowID: "1", Title: "GitHub", URL: "https://github.com/"},
		},
		History: []types.RawHistoryItem{
			{ID: "200", Title: "Go Packages", URL: "https://pkg.go.dev/", VisitCount: 42, LastVisitTime: now.Add(-10 * time.Minute)},
			{ID: "201", Title: "Hacker News", URL: "https://news.ycombinator.com/", VisitCount: 17, LastVisitTime: now.Add(-3 * time.Hour)},
			{ID: "202", Title: "Wikipedia", URL: "https://en.wikipedia.org/", VisitCount: 5, LastVisitTime: now.Add(-48 * time.Hour)},
		},
	}
}

// FallbackProvider serves FallbackDataset and accepts edits in memory only
type FallbackProvider struct {
	mu sync.Mutex
	ds types.Dataset
}

// NewFallbackProvider creates a provider over FallbackDataset(time.Now())
func NewFallbackProvider() *FallbackProvider {
	return &FallbackProvider{ds: FallbackDataset(time.Now())}
}

// GetBookmarkTree returns the built-in tree
func (p *FallbackProvider) GetBookmarkTree(ctx context.Context) (*types.BookmarkNode, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneNode(p.ds.Bookmarks), nil
}

// GetTabs returns the built-in tabs
func (p *FallbackProvider) GetTabs(ctx context.Context) ([]types.RawTab, error) {
	return p.ds.Tabs, nil
}

// GetHistory returns the built-in history. The limits are ignored.
func (p *FallbackProvider) GetHistory(ctx context.Context, maxAgeDays, maxItems int) ([]types.RawHistoryItem, error) {
	return p.ds.History, nil
}

// UpdateBookmark applies changes to the in-memory tree
func (p *FallbackProvider) UpdateBookmark(ctx context.Context, id string, changes BookmarkChanges) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	node, _ := findNode(p.ds.Bookmarks, nil, id)
	if node == nil {
		return fmt.Errorf("%w: bookmark %s", ErrNotFound, id)
	}
	if changes.Title != nil {
		node.Title = *changes.Title
	}
	if changes.URL != nil {
		node.URL = *changes.URL
	}
	return nil
}

// RemoveBookmark removes a node from the in-memory tree
func (p *FallbackProvider) RemoveBookmark(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	node, parent := findNode(p.ds.Bookmarks, nil, id)
	if node == nil || parent == nil {
		return fmt.Errorf("%w: bookmark %s", ErrNotFound, id)
	}
	for i, c := range parent.Children {
		if c == node {
			parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
			break
		}
	}
	return nil
}

func findNode(node, parent *types.BookmarkNode, id string) (*types.BookmarkNode, *types.BookmarkNode) {
	if node == nil {
		return nil, nil
	}
	if node.ID == id {
		return node, parent
	}
	for _, c := range node.Children {
		if n, p := findNode(c, node, id); n != nil {
			return n, p
		}
	}
	return nil, nil
}

func cloneNode(n *types.BookmarkNode) *types.BookmarkNode {
	if n == nil {
		return nil
	}
	cp := *n
	if n.Children != nil {
		cp.Children = make([]*types.BookmarkNode, len(n.Children))
		for i, c := range n.Children {
			cp.Children[i] = cloneNode(c)
		}
	}
	return &cp
}
