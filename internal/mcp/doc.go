// Package mcp implements the Model Context Protocol (MCP) server for docsearch.
//
// The server exposes the indexing and retrieval pipeline to AI assistants
// as six tools:
//   - index_document: split, embed and store a single document
//   - index_directory: index every supported file below a directory
//   - search_docs: retrieve assembled context for a query in one library version
//   - list_libraries: list indexed libraries and their versions
//   - remove_docs: delete a library version and everything indexed under it
//   - get_status: report index statistics and health
//
// # Protocol Overview
//
// MCP is JSON-RPC 2.0 over stdio. Serve reads requests from stdin and
// writes responses to stdout; logs go to stderr so they never corrupt the
// protocol stream.
//
//	docsearch serve
//
// # Tool: search_docs
//
//	Request:
//	{
//	  "library": "react",
//	  "version": "18.2.0",
//	  "query": "cleanup effects on unmount",
//	  "limit": 5
//	}
//
//	Response:
//	{
//	  "results": [
//	    {
//	      "url": "reference/useEffect.md",
//	      "content": "# useEffect\n\n## Cleanup\n\n...",
//	      "score": 0.0325,
//	      "mime_type": "text/markdown"
//	    }
//	  ],
//	  "total": 1
//	}
//
// Each result is a window of neighbouring chunks from one document. Markdown
// windows are joined with blank lines; source code and JSON are concatenated
// exactly as stored.
//
// # Concurrency
//
// Indexing and removal take a server-wide lock. A second mutating call
// while one is running fails with ErrorCodeIndexingInProgress instead of
// queueing. Searches never take the lock.
//
// # Errors
//
// Handlers return *MCPError values carrying one of the ErrorCode constants:
//
//	-32602  invalid parameters
//	-32603  internal error
//	-32001  directory not found
//	-32002  indexing already in progress
//	-32003  library version not indexed
//	-32004  empty query
//	-32005  document cannot be split under the maximum chunk size
package mcp
