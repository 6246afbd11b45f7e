package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// idProperty is the bookmark id argument shared by the edit tools
func idProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Bookmark id as returned in search results",
	}
}

// searchBookmarksTool returns the tool definition for search_bookmarks
func searchBookmarksTool() mcp.Tool {
	return mcp.Tool{
		Name: "search_bookmarks",
		Description: "Search browser bookmarks, open tabs and history. Prefix the query to restrict it: " +
			"'b ' bookmarks, 't ' tabs, 'h ' history, 's ' search engines, '#' tags, '~' folders. " +
			"An empty query lists default results.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query with optional mode prefix, e.g. 'b golang', '#docs', '~Tools'",
				},
				"strategy": map[string]interface{}{
					"type":        "string",
					"description": "Matching strategy: precise (substring) or fuzzy (subsequence with typo tolerance). Defaults to the configured strategy.",
					"enum":        []string{"precise", "fuzzy"},
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100). Defaults to the configured maximum.",
					"minimum":     1,
					"maximum":     maxLimit,
				},
			},
			Required: []string{"query"},
		},
	}
}

// refreshIndexTool returns the tool definition for refresh_index
func refreshIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "refresh_index",
		Description: "Reload bookmarks, tabs and history from the browser snapshot",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report loaded record counts, snapshot statistics and pending errors",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// editBookmarkTool returns the tool definition for edit_bookmark
func editBookmarkTool() mcp.Tool {
	return mcp.Tool{
		Name:        "edit_bookmark",
		Description: "Show a bookmark in editable form, with its custom bonus and tags written into the title ('Title +5 #tag')",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": idProperty(),
			},
			Required: []string{"id"},
		},
	}
}

// updateBookmarkTool returns the tool definition for update_bookmark
func updateBookmarkTool() mcp.Tool {
	return mcp.Tool{
		Name:        "update_bookmark",
		Description: "Change the title, url or tags of a bookmark and save it to the browser snapshot",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": idProperty(),
				"title": map[string]interface{}{
					"type":        "string",
					"description": "New title. May carry a custom bonus ('+10') and tags ('#go #docs').",
				},
				"url": map[string]interface{}{
					"type":        "string",
					"description": "New absolute URL",
				},
				"tags": map[string]interface{}{
					"type":        "array",
					"description": "Replaces the bookmark's tags",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
			},
			Required: []string{"id"},
		},
	}
}

// deleteBookmarkTool returns the tool definition for delete_bookmark
func deleteBookmarkTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_bookmark",
		Description: "Remove a bookmark from the browser snapshot and the search index",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": idProperty(),
			},
			Required: []string{"id"},
		},
	}
}

// dismissErrorsTool returns the tool definition for dismiss_errors
func dismissErrorsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "dismiss_errors",
		Description: "Clear the errors reported by earlier searches",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
