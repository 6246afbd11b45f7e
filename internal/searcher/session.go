package searcher

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
)

// Session tracks the latest pending search of one interactive user. Starting
// a search replaces the token; a finished search only publishes its results
// if it still holds the current token, so stale results never overwrite
// newer ones.
type Session struct {
	searcher *Searcher
	latest   atomic.Pointer[string]
	publish  func(*SearchResponse)
}

// NewSession creates a session that hands current results to publish
func NewSession(s *Searcher, publish func(*SearchResponse)) *Session {
	return &Session{searcher: s, publish: publish}
}

// Begin starts a new search and returns its token
func (ss *Session) Begin() string {
	token := uuid.NewString()
	ss.latest.Store(&token)
	return token
}

// Current reports whether token belongs to the most recent search
func (ss *Session) Current(token string) bool {
	p := ss.latest.Load()
	return p != nil && *p == token
}

// Run searches and publishes the response if no newer search started in the
// meantime. It reports whether the response was published.
func (ss *Session) Run(ctx context.Context, req SearchRequest) (*SearchResponse, bool, error) {
	token := ss.Begin()
	resp, err := ss.searcher.Search(ctx, req)
	if err != nil {
		return nil, false, err
	}
	return resp, ss.finish(token, resp), nil
}

func (ss *Session) finish(token string, resp *SearchResponse) bool {
	if !ss.Current(token) {
		return false
	}
	if ss.publish != nil {
		ss.publish(resp)
	}
	return true
}
