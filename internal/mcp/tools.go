package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog/log"

	"github.com/dshills/docsearch-mcp/internal/chunker"
	"github.com/dshills/docsearch-mcp/internal/indexer"
	"github.com/dshills/docsearch-mcp/internal/storage"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodePathNotFound       = -32001 // Directory to index does not exist
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeNotIndexed         = -32003 // Library version not indexed
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
	ErrorCodeDocumentRejected   = -32005 // Document could not be split under the size limit
)

const (
	defaultSearchLimit = 5
	maxSearchLimit     = 100
	maxReportedErrors  = 5
)

// handleIndexDocument handles the index_document tool invocation
func (s *Server) handleIndexDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	library, err := requireString(args, "library")
	if err != nil {
		return nil, err
	}
	url, err := requireString(args, "url")
	if err != nil {
		return nil, err
	}
	content, ok := args["content"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "content parameter is required", map[string]interface{}{
			"param":  "content",
			"reason": "missing",
		})
	}

	contentType := getStringDefault(args, "content_type", "")
	if contentType == "" {
		contentType, _ = indexer.ContentTypeForPath(url)
	}

	if !s.indexLock.TryAcquire() {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "another indexing operation is in progress", nil)
	}
	defer s.indexLock.Release()

	res, err := s.indexer.IndexDocument(ctx, indexer.Document{
		Library:     library,
		Version:     getStringDefault(args, "version", ""),
		URL:         url,
		ContentType: contentType,
		Content:     content,
	}, getBoolDefault(args, "force", false))
	if err != nil {
		return nil, indexingError(err)
	}
	if !res.Skipped {
		s.searcher.InvalidateCache()
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"url":          res.URL,
		"content_type": contentType,
		"skipped":      res.Skipped,
		"chunks":       res.Chunks,
		"embeddings":   res.Embeddings,
	})), nil
}

// handleIndexDirectory handles the index_directory tool invocation
func (s *Server) handleIndexDirectory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requireString(args, "path")
	if err != nil {
		return nil, err
	}
	library, err := requireString(args, "library")
	if err != nil {
		return nil, err
	}
	if err := validatePath(path); err != nil {
		code := ErrorCodeInvalidParams
		if errors.Is(err, ErrPathNotFound) {
			code = ErrorCodePathNotFound
		}
		return nil, newMCPError(code, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	if !s.indexLock.TryAcquire() {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "another indexing operation is in progress", nil)
	}
	defer s.indexLock.Release()

	version := getStringDefault(args, "version", "")
	stats, err := s.indexer.IndexDirectory(ctx, path, library, version, indexer.DirectoryOptions{
		Options:       indexer.Options{Force: getBoolDefault(args, "force", false)},
		IncludeHidden: getBoolDefault(args, "include_hidden", false),
		MaxFileSize:   s.maxFileSize,
	})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if stats.DocumentsIndexed > 0 {
		s.searcher.InvalidateCache()
	}

	response := map[string]interface{}{
		"run_id":             stats.RunID,
		"library":            library,
		"version":            version,
		"documents_indexed":  stats.DocumentsIndexed,
		"documents_skipped":  stats.DocumentsSkipped,
		"documents_failed":   stats.DocumentsFailed,
		"chunks_created":     stats.ChunksCreated,
		"embeddings_created": stats.EmbeddingsCreated,
		"duration_ms":        stats.Duration.Milliseconds(),
	}
	if n := len(stats.ErrorMessages); n > 0 {
		response["errors"] = stats.ErrorMessages[:min(n, maxReportedErrors)]
		response["error_count"] = n
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchDocs handles the search_docs tool invocation
func (s *Server) handleSearchDocs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	library, err := requireString(args, "library")
	if err != nil {
		return nil, err
	}
	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", defaultSearchLimit)
	if limit < 1 || limit > maxSearchLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 1 and %d", maxSearchLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	version := getStringDefault(args, "version", "")
	if _, err := s.storage.GetVersion(ctx, library, version); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newMCPError(ErrorCodeNotIndexed, "library version not indexed", map[string]interface{}{
				"library": library,
				"version": version,
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "failed to look up library", map[string]interface{}{
			"error": err.Error(),
		})
	}

	start := time.Now()
	results, err := s.retriever.Search(ctx, library, version, query, limit)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	items := make([]map[string]interface{}, len(results))
	for i, r := range results {
		items[i] = map[string]interface{}{
			"url":       r.URL,
			"content":   r.Content,
			"score":     r.Score,
			"mime_type": r.MimeType,
		}
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"library":     library,
		"version":     version,
		"query":       query,
		"results":     items,
		"total":       len(items),
		"duration_ms": time.Since(start).Milliseconds(),
	})), nil
}

// handleListLibraries handles the list_libraries tool invocation
func (s *Server) handleListLibraries(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	libraries, err := s.storage.ListLibraries(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list libraries", map[string]interface{}{
			"error": err.Error(),
		})
	}

	items := make([]map[string]interface{}, len(libraries))
	for i, lib := range libraries {
		versions := make([]map[string]interface{}, len(lib.Versions))
		for j, v := range lib.Versions {
			versions[j] = map[string]interface{}{
				"version":         v.Name,
				"documents":       v.Documents,
				"chunks":          v.Chunks,
				"last_indexed_at": formatTime(v.LastIndexedAt),
			}
		}
		items[i] = map[string]interface{}{
			"name":     lib.Name,
			"versions": versions,
		}
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"libraries": items,
	})), nil
}

// handleRemoveDocs handles the remove_docs tool invocation
func (s *Server) handleRemoveDocs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	library, err := requireString(args, "library")
	if err != nil {
		return nil, err
	}
	version := getStringDefault(args, "version", "")

	if !s.indexLock.TryAcquire() {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "another indexing operation is in progress", nil)
	}
	defer s.indexLock.Release()

	if err := s.storage.DeleteVersion(ctx, library, version); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newMCPError(ErrorCodeNotIndexed, "library version not indexed", map[string]interface{}{
				"library": library,
				"version": version,
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "failed to remove documents", map[string]interface{}{
			"error": err.Error(),
		})
	}
	s.searcher.InvalidateCache()

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"removed": true,
		"library": library,
		"version": version,
	})), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.storage.GetStatus(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"statistics": map[string]interface{}{
			"libraries":     status.Libraries,
			"versions":      status.Versions,
			"documents":     status.Documents,
			"chunks":        status.Chunks,
			"embeddings":    status.Embeddings,
			"index_size_mb": fmt.Sprintf("%.2f", status.IndexSizeMB),
		},
		"last_indexed_at":  formatTime(status.LastIndexedAt),
		"schema_version":   status.SchemaVersion,
		"build_mode":       status.BuildMode,
		"vector_extension": status.VectorExtension,
		"cached_queries":   s.searcher.CacheLen(),
		"health": map[string]interface{}{
			"database_accessible":  status.Health.DatabaseAccessible,
			"embeddings_available": status.Health.EmbeddingsAvailable,
			"fts_indexes_built":    status.Health.FTSIndexesBuilt,
		},
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// indexingError maps an indexing failure to an MCP error
func indexingError(err error) error {
	switch {
	case errors.Is(err, indexer.ErrMissingLibrary), errors.Is(err, indexer.ErrMissingURL):
		return newMCPError(ErrorCodeInvalidParams, err.Error(), nil)
	case chunker.IsFatal(err):
		return newMCPError(ErrorCodeDocumentRejected, "document cannot be split under the maximum chunk size", map[string]interface{}{
			"error": err.Error(),
		})
	default:
		log.Warn().Err(err).Msg("index_document failed")
		return newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
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

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{Code: code, Message: message, Data: data}
}

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)

// validatePath checks that path is an absolute, readable directory
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()
	return nil
}

// requireString extracts a non-empty string parameter
func requireString(args map[string]interface{}, key string) (string, error) {
	val, ok := args[key].(string)
	if !ok || strings.TrimSpace(val) == "" {
		return "", newMCPError(ErrorCodeInvalidParams, key+" parameter is required", map[string]interface{}{
			"param":  key,
			"reason": "missing or empty",
		})
	}
	return val, nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	switch val := args[key].(type) {
	case float64:
		return int(val)
	case int:
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
