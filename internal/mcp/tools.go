package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cast"

	"github.com/dshills/marksearch-mcp/internal/catalog"
	"github.com/dshills/marksearch-mcp/internal/indexer"
	"github.com/dshills/marksearch-mcp/internal/report"
	"github.com/dshills/marksearch-mcp/internal/searcher"
	"github.com/dshills/marksearch-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeBookmarkNotFound   = -32001 // No bookmark with the given ID
	ErrorCodeIndexingInProgress = -32002 // Another refresh is already running
	ErrorCodeNotLoaded          = -32003 // Records have not been loaded yet
	ErrorCodeFuzzyUnavailable   = -32004 // Fuzzy engine cannot serve with the configured tolerance
)

// maxLimit bounds the limit argument of search_bookmarks
const maxLimit = 100

// handleSearchBookmarks handles the search_bookmarks tool invocation
func (s *Server) handleSearchBookmarks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	query := getStringDefault(args, "query", "")
	strategy := getStringDefault(args, "strategy", "")

	limit := getIntDefault(args, "limit", 0)
	if _, set := args["limit"]; set && (limit < 1 || limit > maxLimit) {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": args["limit"],
		})
	}

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, toMCPError("failed to load records", err)
	}

	resp, err := s.searcher.Search(ctx, searcher.SearchRequest{
		Query:    query,
		Strategy: strategy,
		UseCache: true,
	})
	if err != nil {
		return nil, toMCPError("search failed", err)
	}

	view := RenderSearch(resp, s.cfg, limit, time.Now())
	return mcp.NewToolResultText(formatJSON(view)), nil
}

// handleRefreshIndex handles the refresh_index tool invocation
func (s *Server) handleRefreshIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.indexer.Refresh(ctx)
	if err != nil {
		return nil, toMCPError("refresh failed", err)
	}

	response := map[string]interface{}{
		"refreshed":   true,
		"source":      stats.Source,
		"bookmarks":   stats.Bookmarks,
		"tabs":        stats.Tabs,
		"history":     stats.History,
		"generation":  stats.Generation,
		"duration_ms": stats.Duration.Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats := s.catalog.Stats()

	catalogStatus := map[string]interface{}{
		"loaded":     stats.Loaded,
		"generation": stats.Generation,
		"bookmarks":  stats.Counts[types.KindBookmark],
		"tabs":       stats.Counts[types.KindTab],
		"history":    stats.Counts[types.KindHistory],
		"duplicates": stats.Dupes,
		"cached":     s.searcher.CacheLen(),
	}
	if stats.Loaded {
		catalogStatus["source"] = stats.Source
		catalogStatus["loaded_at"] = stats.LoadedAt.Format(time.RFC3339)
		catalogStatus["loaded_ago"] = humanize.Time(stats.LoadedAt)
		catalogStatus["tokens"] = s.tokenCounts()
	}

	snap, err := s.storage.GetStatus(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get snapshot status", map[string]interface{}{
			"error": err.Error(),
		})
	}
	snapshot := map[string]interface{}{
		"schema_version": snap.SchemaVersion,
		"build_mode":     snap.BuildMode,
		"bookmarks":      snap.Bookmarks,
		"folders":        snap.Folders,
		"tabs":           snap.Tabs,
		"history":        snap.History,
		"size":           humanize.Bytes(uint64(snap.SizeBytes)),
	}
	if snap.LastImport != nil {
		snapshot["last_import"] = map[string]interface{}{
			"source":      snap.LastImport.Source,
			"imported_at": snap.LastImport.ImportedAt.Format(time.RFC3339),
			"age":         humanize.Time(snap.LastImport.ImportedAt),
		}
	}

	response := map[string]interface{}{
		"catalog":  catalogStatus,
		"snapshot": snapshot,
		"strategy": s.cfg.SearchStrategy,
		"errors":   renderErrors(s.searcher.Boundary()),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// tokenCounts reports the distinct precise-index tokens per record kind
func (s *Server) tokenCounts() map[string]int {
	out := make(map[string]int, len(types.IndexedKinds))
	_ = s.catalog.Read(func(snap *catalog.Snapshot) error {
		x := snap.Precise()
		for _, k := range types.IndexedKinds {
			n := 0
			for _, f := range types.FieldsFor(k) {
				n += x.Tokens(k, f)
			}
			out[k.String()] = n
		}
		return nil
	})
	return out
}

// handleEditBookmark handles the edit_bookmark tool invocation
func (s *Server) handleEditBookmark(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	id, err := requiredID(args)
	if err != nil {
		return nil, err
	}

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, toMCPError("failed to load records", err)
	}
	view, err := s.indexer.EditBookmark(id)
	if err != nil {
		return nil, toMCPError("edit failed", err)
	}

	response := map[string]interface{}{
		"id":           view.ID,
		"title":        view.Title,
		"url":          view.URL,
		"tags":         view.Tags,
		"custom_bonus": view.CustomBonus,
		"folder_path":  view.FolderPath,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleUpdateBookmark handles the update_bookmark tool invocation
func (s *Server) handleUpdateBookmark(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	id, err := requiredID(args)
	if err != nil {
		return nil, err
	}

	var edit indexer.BookmarkEdit
	if title, ok := args["title"].(string); ok {
		edit.Title = &title
	}
	if url, ok := args["url"].(string); ok {
		edit.URL = &url
	}
	if raw, ok := args["tags"]; ok {
		tags, err := cast.ToStringSliceE(raw)
		if err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "tags must be a list of strings", map[string]interface{}{
				"param":  "tags",
				"reason": err.Error(),
			})
		}
		edit.Tags = tags
	}
	if edit.Title == nil && edit.URL == nil && edit.Tags == nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "nothing to update", map[string]interface{}{
			"reason": "one of title, url or tags is required",
		})
	}

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, toMCPError("failed to load records", err)
	}
	rec, err := s.indexer.UpdateBookmark(ctx, id, edit)
	if err != nil {
		return nil, toMCPError("update failed", err)
	}

	response := map[string]interface{}{
		"updated":  true,
		"bookmark": RenderResult(types.RankedResult{Record: rec}, s.cfg, time.Now()),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleDeleteBookmark handles the delete_bookmark tool invocation
func (s *Server) handleDeleteBookmark(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	id, err := requiredID(args)
	if err != nil {
		return nil, err
	}

	if err := s.ensureLoaded(ctx); err != nil {
		return nil, toMCPError("failed to load records", err)
	}
	rec, err := s.indexer.DeleteBookmark(ctx, id)
	if err != nil {
		return nil, toMCPError("delete failed", err)
	}

	response := map[string]interface{}{
		"deleted": true,
		"id":      rec.SourceID,
		"title":   rec.Title,
		"url":     rec.URL,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleDismissErrors handles the dismiss_errors tool invocation
func (s *Server) handleDismissErrors(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n := s.searcher.Boundary().Dismiss()
	response := map[string]interface{}{
		"dismissed": n,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// arguments returns the call arguments; a call without arguments yields an
// empty map
func arguments(request mcp.CallToolRequest) (map[string]interface{}, error) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, nil
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	return args, nil
}

func requiredID(args map[string]interface{}) (string, error) {
	id := getStringDefault(args, "id", "")
	if id == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "id parameter is required", map[string]interface{}{
			"param":  "id",
			"reason": "missing or empty",
		})
	}
	return id, nil
}

// renderErrors lists the errors waiting on the boundary
func renderErrors(b *report.Boundary) []map[string]interface{} {
	entries := b.Errors()
	out := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]interface{}{
			"id":      e.ID,
			"message": e.Message,
			"age":     humanize.Time(e.Time),
		})
	}
	return out
}

// toMCPError maps domain errors onto MCP error codes
func toMCPError(message string, err error) error {
	data := map[string]interface{}{"error": err.Error()}
	switch {
	case errors.Is(err, types.ErrUnsupportedStrategy):
		data["allowed"] = []string{"precise", "fuzzy"}
		return newMCPError(ErrorCodeInvalidParams, message, data)
	case errors.Is(err, types.ErrInvalidURL):
		data["param"] = "url"
		return newMCPError(ErrorCodeInvalidParams, message, data)
	case errors.Is(err, types.ErrFuzzyUnavailable):
		return newMCPError(ErrorCodeFuzzyUnavailable, message, data)
	case errors.Is(err, types.ErrBookmarkNotFound):
		return newMCPError(ErrorCodeBookmarkNotFound, message, data)
	case errors.Is(err, types.ErrRefreshInProgress):
		return newMCPError(ErrorCodeIndexingInProgress, message, data)
	case errors.Is(err, types.ErrNotLoaded):
		return newMCPError(ErrorCodeNotLoaded, message, data)
	default:
		return newMCPError(ErrorCodeInternalError, message, data)
	}
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a value as indented JSON
func formatJSON(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	val, ok := args[key]
	if !ok {
		return defaultValue
	}
	n, err := cast.ToIntE(val)
	if err != nil {
		return defaultValue
	}
	return n
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
