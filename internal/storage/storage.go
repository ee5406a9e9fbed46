package storage

import (
	"context"
	"time"
)

// Writer groups the mutations an indexing run performs, either directly on the
// store or inside a transaction
type Writer interface {
	// Library operations
	GetOrCreateVersion(ctx context.Context, library, version string) (*Version, error)

	// Document operations
	UpsertDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, versionID int64, url string) (*Document, error)
	DeleteDocument(ctx context.Context, documentID int64) error

	// Chunk operations
	ReplaceDocumentChunks(ctx context.Context, documentID int64, chunks []*Chunk) error

	// Embedding operations
	UpsertEmbedding(ctx context.Context, embedding *Embedding) error
}

// Storage defines the interface for persisting and querying indexed documents
type Storage interface {
	Writer

	// Library operations
	GetVersion(ctx context.Context, library, version string) (*Version, error)
	ListLibraries(ctx context.Context) ([]*LibrarySummary, error)
	DeleteVersion(ctx context.Context, library, version string) error

	// Document operations
	ListDocuments(ctx context.Context, versionID int64) ([]*Document, error)

	// Chunk operations
	GetChunk(ctx context.Context, chunkID int64) (*Chunk, error)
	ListChunksByDocument(ctx context.Context, documentID int64) ([]*Chunk, error)

	// Embedding operations
	GetEmbedding(ctx context.Context, chunkID int64) (*Embedding, error)

	// Search operations
	SearchVector(ctx context.Context, scope Scope, vector []float32, limit int) ([]VectorResult, error)
	SearchText(ctx context.Context, scope Scope, query string, limit int) ([]TextResult, error)

	// Hierarchy operations
	FindParentChunk(ctx context.Context, library, version string, chunkID int64) (*Chunk, error)
	FindPrecedingSiblingChunks(ctx context.Context, library, version string, chunkID int64, limit int) ([]*Chunk, error)
	FindSubsequentSiblingChunks(ctx context.Context, library, version string, chunkID int64, limit int) ([]*Chunk, error)
	FindChildChunks(ctx context.Context, library, version string, chunkID int64, limit int) ([]*Chunk, error)
	FindChunksByIDs(ctx context.Context, library, version string, ids []int64) ([]*Chunk, error)

	// Status operations
	GetStatus(ctx context.Context) (*Status, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Writer
	Commit() error
	Rollback() error
}

// Version is one indexed version of a library. The empty name denotes an
// unversioned library.
type Version struct {
	ID            int64
	LibraryID     int64
	Library       string
	Name          string
	LastIndexedAt time.Time
	CreatedAt     time.Time
}

// LibrarySummary lists a library with its indexed versions
type LibrarySummary struct {
	Name     string
	Versions []VersionSummary
}

// VersionSummary describes the contents of one version
type VersionSummary struct {
	Name          string
	Documents     int
	Chunks        int
	LastIndexedAt time.Time
}

// Document is a source document (page, file) belonging to a version
type Document struct {
	ID          int64
	VersionID   int64
	URL         string
	ContentType string
	ContentHash [32]byte
	SizeBytes   int64
	IndexedAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Chunk is a persisted chunk. Library, Version, URL and ContentType are filled
// from the owning document on reads; Score is only set by searches.
type Chunk struct {
	ID          int64
	DocumentID  int64
	Library     string
	Version     string
	URL         string
	ContentType string

	Content     string
	ContentHash [32]byte
	TokenCount  int
	Types       []string
	Path        []string
	Level       int
	SortOrder   int

	Score float64
}

// ParentPath returns the path of the chunk's enclosing section
func (c *Chunk) ParentPath() []string {
	if len(c.Path) == 0 {
		return []string{}
	}
	return c.Path[:len(c.Path)-1]
}

// Embedding represents a vector embedding for a chunk
type Embedding struct {
	ID        int64
	ChunkID   int64
	Vector    []byte // Serialized float32 array
	Dimension int
	Provider  string
	Model     string
	CreatedAt time.Time
}

// Scope restricts a search to one library version
type Scope struct {
	Library string
	Version string
}

// VectorResult represents a result from vector similarity search
type VectorResult struct {
	ChunkID         int64
	SimilarityScore float64
}

// TextResult represents a result from full-text search
type TextResult struct {
	ChunkID   int64
	BM25Score float64
}

// Status contains statistics about the whole index
type Status struct {
	Libraries       int
	Versions        int
	Documents       int
	Chunks          int
	Embeddings      int
	IndexSizeMB     float64
	LastIndexedAt   time.Time
	Health          HealthStatus
	SchemaVersion   string
	BuildMode       string
	VectorExtension bool
}

// HealthStatus represents the health of the index
type HealthStatus struct {
	DatabaseAccessible  bool
	EmbeddingsAvailable bool
	FTSIndexesBuilt     bool
}
