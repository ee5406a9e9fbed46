package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var libraryProperty = map[string]interface{}{
	"type":        "string",
	"description": "Library name, case-insensitive (e.g. react)",
}

var versionProperty = map[string]interface{}{
	"type":        "string",
	"description": "Library version (e.g. 18.2.0). Omit for an unversioned library",
	"default":     "",
}

// indexDocumentTool returns the tool definition for index_document
func indexDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_document",
		Description: "Split, embed and store one document under a library version",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"library": libraryProperty,
				"version": versionProperty,
				"url": map[string]interface{}{
					"type":        "string",
					"description": "Document URL or path; identifies the document within the version",
				},
				"content": map[string]interface{}{
					"type":        "string",
					"description": "Full document text",
				},
				"content_type": map[string]interface{}{
					"type":        "string",
					"description": "MIME type (text/markdown, application/json, text/x-typescript, ...). Guessed from the url extension when omitted",
				},
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "Re-index even when the content is unchanged",
					"default":     false,
				},
			},
			Required: []string{"library", "url", "content"},
		},
	}
}

// indexDirectoryTool returns the tool definition for index_directory
func indexDirectoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_directory",
		Description: "Index every supported documentation and source file below a local directory",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the directory",
				},
				"library": libraryProperty,
				"version": versionProperty,
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "Re-index files whose content is unchanged",
					"default":     false,
				},
				"include_hidden": map[string]interface{}{
					"type":        "boolean",
					"description": "Descend into dot directories",
					"default":     false,
				},
			},
			Required: []string{"path", "library"},
		},
	}
}

// searchDocsTool returns the tool definition for search_docs
func searchDocsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_docs",
		Description: "Search the documentation of one library version and return readable excerpts with surrounding context",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"library": libraryProperty,
				"version": versionProperty,
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     defaultSearchLimit,
					"minimum":     1,
					"maximum":     maxSearchLimit,
				},
			},
			Required: []string{"library", "query"},
		},
	}
}

// listLibrariesTool returns the tool definition for list_libraries
func listLibrariesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_libraries",
		Description: "List indexed libraries with their versions and document counts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// removeDocsTool returns the tool definition for remove_docs
func removeDocsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "remove_docs",
		Description: "Delete an indexed library version with all its documents",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"library": libraryProperty,
				"version": versionProperty,
			},
			Required: []string{"library"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report index statistics and health",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
