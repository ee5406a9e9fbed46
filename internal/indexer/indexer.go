package indexer

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/docsearch-mcp/internal/chunker"
	"github.com/dshills/docsearch-mcp/internal/embedder"
	"github.com/dshills/docsearch-mcp/internal/storage"
	"github.com/dshills/docsearch-mcp/pkg/types"
)

var (
	ErrMissingLibrary = errors.New("library name is required")
	ErrMissingURL     = errors.New("document url is required")
)

// Indexer runs the pipeline split -> embed -> store for documents of one
// library version
type Indexer struct {
	storage  storage.Storage
	embedder embedder.Embedder
	splitter chunker.Options

	workers   int
	batchSize int
}

// Config contains configuration for the indexer
type Config struct {
	Workers            int // concurrent documents (default: runtime.NumCPU())
	EmbeddingBatchSize int // texts per embedding request (default: embedder.DefaultBatchSize)
	Splitter           chunker.Options
}

// Document is one document to index
type Document struct {
	Library     string
	Version     string
	URL         string
	ContentType string
	Content     string
}

// Options control a multi-document run
type Options struct {
	// Force re-indexes documents whose content hash is unchanged
	Force bool
	// AbortOnError stops the run at the first failed document
	AbortOnError bool
}

// DocumentResult describes the outcome for one document
type DocumentResult struct {
	URL        string
	Chunks     int
	Embeddings int
	Skipped    bool
}

// Statistics summarises one indexing run
type Statistics struct {
	RunID             string
	DocumentsIndexed  int
	DocumentsSkipped  int
	DocumentsFailed   int
	ChunksCreated     int
	EmbeddingsCreated int
	Duration          time.Duration
	ErrorMessages     []string
}

// New creates an Indexer. emb may be nil, in which case chunks are stored
// without vectors and only keyword search finds them.
func New(store storage.Storage, emb embedder.Embedder, cfg Config) (*Indexer, error) {
	if cfg.Splitter.MaxChunkSize == 0 {
		cfg.Splitter = chunker.DefaultOptions()
	}
	if err := cfg.Splitter.Validate(); err != nil {
		return nil, fmt.Errorf("invalid splitter options: %w", err)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.EmbeddingBatchSize <= 0 {
		cfg.EmbeddingBatchSize = embedder.DefaultBatchSize
	}
	if cfg.EmbeddingBatchSize > embedder.MaxBatchSize {
		cfg.EmbeddingBatchSize = embedder.MaxBatchSize
	}

	return &Indexer{
		storage:   store,
		embedder:  emb,
		splitter:  cfg.Splitter,
		workers:   cfg.Workers,
		batchSize: cfg.EmbeddingBatchSize,
	}, nil
}

// IndexDocument indexes a single document. An unchanged document is skipped
// unless force is set. The document's previous chunks and embeddings are
// replaced atomically.
func (idx *Indexer) IndexDocument(ctx context.Context, doc Document, force bool) (*DocumentResult, error) {
	if strings.TrimSpace(doc.Library) == "" {
		return nil, ErrMissingLibrary
	}
	if strings.TrimSpace(doc.URL) == "" {
		return nil, ErrMissingURL
	}

	hash := sha256.Sum256([]byte(doc.Content))
	result := &DocumentResult{URL: doc.URL}

	if !force {
		unchanged, err := idx.unchanged(ctx, doc, hash)
		if err != nil {
			return nil, err
		}
		if unchanged {
			result.Skipped = true
			return result, nil
		}
	}

	splitter := chunker.ForContentType(doc.ContentType, idx.splitter)
	pieces, err := splitter.SplitText(doc.Content, doc.ContentType)
	if err != nil {
		return nil, fmt.Errorf("split %s: %w", doc.URL, err)
	}

	chunks := make([]*storage.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = toStorageChunk(piece)
	}

	vectors, err := idx.embed(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", doc.URL, err)
	}

	if err := idx.store(ctx, doc, hash, chunks, vectors); err != nil {
		return nil, fmt.Errorf("store %s: %w", doc.URL, err)
	}

	result.Chunks = len(chunks)
	for _, v := range vectors {
		if v != nil {
			result.Embeddings++
		}
	}
	return result, nil
}

// unchanged reports whether doc is already stored with the same content hash
func (idx *Indexer) unchanged(ctx context.Context, doc Document, hash [32]byte) (bool, error) {
	version, err := idx.storage.GetVersion(ctx, doc.Library, doc.Version)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	existing, err := idx.storage.GetDocument(ctx, version.ID, doc.URL)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return existing.ContentHash == hash, nil
}

// embed generates one vector per chunk in batches. Without an embedder it
// returns nil.
func (idx *Indexer) embed(ctx context.Context, chunks []*storage.Chunk) ([]*embedder.Embedding, error) {
	if idx.embedder == nil || len(chunks) == 0 {
		return nil, nil
	}

	vectors := make([]*embedder.Embedding, len(chunks))
	for start := 0; start < len(chunks); start += idx.batchSize {
		end := min(start+idx.batchSize, len(chunks))

		texts := make([]string, 0, end-start)
		positions := make([]int, 0, end-start)
		for i := start; i < end; i++ {
			// whitespace-only chunks carry no meaning worth a vector
			if strings.TrimSpace(chunks[i].Content) == "" {
				continue
			}
			texts = append(texts, chunks[i].Content)
			positions = append(positions, i)
		}
		if len(texts) == 0 {
			continue
		}

		resp, err := idx.embedder.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: texts})
		if err != nil {
			return nil, err
		}
		if len(resp.Embeddings) != len(texts) {
			return nil, fmt.Errorf("%w: expected %d embeddings, got %d", embedder.ErrProviderFailed, len(texts), len(resp.Embeddings))
		}
		for j, pos := range positions {
			vectors[pos] = resp.Embeddings[j]
		}
	}
	return vectors, nil
}

// store writes the document, its chunks and their embeddings in one transaction
func (idx *Indexer) store(ctx context.Context, doc Document, hash [32]byte, chunks []*storage.Chunk, vectors []*embedder.Embedding) error {
	tx, err := idx.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	version, err := tx.GetOrCreateVersion(ctx, doc.Library, doc.Version)
	if err != nil {
		return err
	}

	record := &storage.Document{
		VersionID:   version.ID,
		URL:         doc.URL,
		ContentType: doc.ContentType,
		ContentHash: hash,
		SizeBytes:   int64(len(doc.Content)),
	}
	if err := tx.UpsertDocument(ctx, record); err != nil {
		return err
	}

	if err := tx.ReplaceDocumentChunks(ctx, record.ID, chunks); err != nil {
		return err
	}

	for i, vec := range vectors {
		if vec == nil {
			continue
		}
		if err := tx.UpsertEmbedding(ctx, &storage.Embedding{
			ChunkID:   chunks[i].ID,
			Vector:    storage.SerializeVector(vec.Vector),
			Dimension: len(vec.Vector),
			Provider:  vec.Provider,
			Model:     vec.Model,
		}); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// IndexDocuments indexes docs concurrently. Failed documents are recorded in
// the statistics; the run only fails when opts.AbortOnError is set or ctx is
// cancelled.
func (idx *Indexer) IndexDocuments(ctx context.Context, docs []Document, opts Options) (*Statistics, error) {
	return idx.run(ctx, len(docs), opts, func(ctx context.Context, i int) (string, *DocumentResult, error) {
		res, err := idx.IndexDocument(ctx, docs[i], opts.Force)
		return docs[i].URL, res, err
	})
}

// task indexes the i-th document of a run and returns its name for reporting
type task func(ctx context.Context, i int) (string, *DocumentResult, error)

// run executes n tasks on a bounded worker pool and collects statistics
func (idx *Indexer) run(ctx context.Context, n int, opts Options, fn task) (*Statistics, error) {
	start := time.Now()
	stats := &Statistics{RunID: uuid.NewString(), ErrorMessages: make([]string, 0)}

	var (
		indexed, skipped, failed int32
		chunks, embeddings       int32
		mu                       sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.workers)

	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			name, res, err := fn(gctx, i)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				atomic.AddInt32(&failed, 1)
				mu.Lock()
				stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", name, err))
				mu.Unlock()

				log.Warn().Err(err).Str("run_id", stats.RunID).Str("url", name).Msg("document indexing failed")
				if opts.AbortOnError {
					return fmt.Errorf("%s: %w", name, err)
				}
				return nil
			}
			if res == nil {
				return nil
			}

			if res.Skipped {
				atomic.AddInt32(&skipped, 1)
				return nil
			}
			atomic.AddInt32(&indexed, 1)
			atomic.AddInt32(&chunks, int32(res.Chunks))
			atomic.AddInt32(&embeddings, int32(res.Embeddings))
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	stats.DocumentsIndexed = int(indexed)
	stats.DocumentsSkipped = int(skipped)
	stats.DocumentsFailed = int(failed)
	stats.ChunksCreated = int(chunks)
	stats.EmbeddingsCreated = int(embeddings)
	stats.Duration = time.Since(start)

	log.Info().
		Str("run_id", stats.RunID).
		Int("indexed", stats.DocumentsIndexed).
		Int("skipped", stats.DocumentsSkipped).
		Int("failed", stats.DocumentsFailed).
		Int("chunks", stats.ChunksCreated).
		Dur("duration", stats.Duration).
		Msg("indexing run finished")

	return stats, err
}

func toStorageChunk(c *types.Chunk) *storage.Chunk {
	chunkTypes := make([]string, len(c.Types))
	for i, t := range c.Types {
		chunkTypes[i] = string(t)
	}
	return &storage.Chunk{
		Content:    c.Content,
		TokenCount: estimateTokens(c.Content),
		Types:      chunkTypes,
		Path:       c.Section.Path,
	}
}

// estimateTokens approximates the token count as one token per four bytes,
// never less than the number of words
func estimateTokens(content string) int {
	return max(len(content)/4, len(strings.Fields(content)))
}
