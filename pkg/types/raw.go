package types

import "time"

// BookmarkNode is one node of the platform's bookmark tree. Folders have
// children and no URL.
type BookmarkNode struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	URL      string          `json:"url,omitempty"`
	Children []*BookmarkNode `json:"children,omitempty"`
}

// IsFolder reports whether the node is a folder
func (n *BookmarkNode) IsFolder() bool {
	return n.URL == "" && n.Children != nil
}

// RawTab is an open browser tab as reported by the platform
type RawTab struct {
	ID       string `json:"id"`
	WindowID string `json:"windowId,omitempty"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Active   bool   `json:"active"`
}

// RawHistoryItem is a browsing history entry as reported by the platform
type RawHistoryItem struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	URL           string    `json:"url"`
	VisitCount    int       `json:"visitCount"`
	LastVisitTime time.Time `json:"lastVisitTime"`
}

// Dataset bundles the three platform payloads
type Dataset struct {
	Bookmarks *BookmarkNode    `json:"bookmarks"`
	Tabs      []RawTab         `json:"tabs"`
	History   []RawHistoryItem `json:"history"`
}
