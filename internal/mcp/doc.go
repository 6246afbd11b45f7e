// Package mcp implements the Model Context Protocol (MCP) server for marksearch.
//
// The server exposes browser bookmarks, open tabs and history to MCP clients
// through seven tools:
//   - search_bookmarks: Search records with an optional mode prefix
//   - refresh_index: Reload records from the browser snapshot
//   - get_status: Record counts, snapshot statistics and pending errors
//   - edit_bookmark: A bookmark in its editable "Title +5 #tag" form
//   - update_bookmark: Change title, url or tags of a bookmark
//   - delete_bookmark: Remove a bookmark
//   - dismiss_errors: Clear errors reported by earlier searches
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Stdout carries the protocol only; logs go to stderr.
//
// # Basic Usage
//
// The MCP server is typically started via the serve command:
//
//	marksearch serve
//
// Records are loaded once before serving. Tools that need records refresh
// lazily if that first load failed.
//
// # Tool: search_bookmarks
//
//	Request:
//	{
//	  "name": "search_bookmarks",
//	  "arguments": {"query": "b pandoc", "strategy": "fuzzy", "limit": 5}
//	}
//
//	Response:
//	{
//	  "query": "b pandoc",
//	  "mode": "bookmarks",
//	  "strategy": "fuzzy",
//	  "count": 1,
//	  "matched": 1,
//	  "results": [
//	    {
//	      "kind": "bookmark",
//	      "id": "20",
//	      "title": "Pandoc - document converter",
//	      "url": "https://pandoc.org/",
//	      "tags": ["md"],
//	      "folder": "Tools",
//	      "highlights": {"title": "<mark>Pandoc</mark> - document converter"},
//	      "last_visit": "3 days ago"
//	    }
//	  ]
//	}
//
// visit_count, last_visit and score are included according to the
// display_visit_counter, display_last_visit and display_score settings.
//
// # Error Codes
//
//	-32602  Invalid parameters (bad limit, unsupported strategy, invalid url)
//	-32603  Internal error
//	-32001  Bookmark not found
//	-32002  Refresh already in progress
//	-32003  Records not loaded
//	-32004  Fuzzy search unavailable
package mcp
