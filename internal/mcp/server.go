package mcp

import (
	"context"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/dshills/docsearch-mcp/internal/config"
	"github.com/dshills/docsearch-mcp/internal/embedder"
	"github.com/dshills/docsearch-mcp/internal/indexer"
	"github.com/dshills/docsearch-mcp/internal/retriever"
	"github.com/dshills/docsearch-mcp/internal/searcher"
	"github.com/dshills/docsearch-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "docsearch-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server exposes indexing and retrieval as MCP tools
type Server struct {
	mcp       *server.MCPServer
	storage   storage.Storage
	indexer   *indexer.Indexer
	searcher  *searcher.Searcher
	retriever *retriever.Service

	maxFileSize int64
	indexLock   indexer.IndexLock
}

// NewServer wires the pipeline over store. emb may be nil, which limits
// search to keyword mode. The indexer and searcher share emb so embeddings
// cached while indexing serve later queries.
func NewServer(store storage.Storage, emb embedder.Embedder, cfg config.Config) (*Server, error) {
	idx, err := indexer.New(store, emb, cfg.IndexerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create indexer: %w", err)
	}

	srch := searcher.NewSearcher(store, emb, cfg.SearcherOptions())

	ret, err := retriever.NewService(srch, cfg.RetrieverConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create retriever: %w", err)
	}

	s := &Server{
		mcp:         server.NewMCPServer(ServerName, ServerVersion, server.WithToolCapabilities(false)),
		storage:     store,
		indexer:     idx,
		searcher:    srch,
		retriever:   ret,
		maxFileSize: cfg.Indexing.MaxFileSize,
	}
	s.registerTools()
	return s, nil
}

// Serve speaks MCP over the given streams until ctx is cancelled or the
// input is closed
func (s *Server) Serve(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	log.Info().Str("server", ServerName).Str("version", ServerVersion).Msg("MCP server ready, listening on stdio")
	return server.NewStdioServer(s.mcp).Listen(ctx, stdin, stdout)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexDocumentTool(), s.handleIndexDocument)
	s.mcp.AddTool(indexDirectoryTool(), s.handleIndexDirectory)
	s.mcp.AddTool(searchDocsTool(), s.handleSearchDocs)
	s.mcp.AddTool(listLibrariesTool(), s.handleListLibraries)
	s.mcp.AddTool(removeDocsTool(), s.handleRemoveDocs)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
