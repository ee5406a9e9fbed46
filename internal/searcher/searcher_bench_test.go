package searcher

import (
	"context"
	"fmt"
	"testing"

	"github.com/dshills/docsearch-mcp/internal/storage"
)

// BenchmarkRRF benchmarks Reciprocal Rank Fusion algorithm
func BenchmarkRRF(b *testing.B) {
	vectorResults := make([]storage.VectorResult, 40)
	for i := range vectorResults {
		vectorResults[i] = storage.VectorResult{ChunkID: int64(i + 1), SimilarityScore: float64(40-i) / 40.0}
	}
	textResults := make([]storage.TextResult, 40)
	for i := range textResults {
		textResults[i] = storage.TextResult{ChunkID: int64(i + 20), BM25Score: float64(40-i) / 40.0}
	}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = applyRRF(vectorResults, textResults, 60)
	}
}

// BenchmarkQueryHashing benchmarks query hash computation
func BenchmarkQueryHashing(b *testing.B) {
	req := SearchRequest{Library: "react", Version: "18.2.0", Query: "useEffect cleanup", Limit: 10, Mode: SearchModeHybrid}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = computeQueryHash(req)
	}
}

// BenchmarkKeywordSearch benchmarks an uncached keyword search over a small corpus
func BenchmarkKeywordSearch(b *testing.B) {
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		b.Fatal(err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	version, err := store.GetOrCreateVersion(ctx, "bench", "")
	if err != nil {
		b.Fatal(err)
	}
	doc := &storage.Document{VersionID: version.ID, URL: "bench.md"}
	if err := store.UpsertDocument(ctx, doc); err != nil {
		b.Fatal(err)
	}
	chunks := make([]*storage.Chunk, 500)
	for i := range chunks {
		chunks[i] = &storage.Chunk{
			Content: fmt.Sprintf("section %d explains routing, rendering and state number %d", i, i%17),
			Path:    []string{fmt.Sprintf("Section %d", i)},
		}
	}
	if err := store.ReplaceDocumentChunks(ctx, doc.ID, chunks); err != nil {
		b.Fatal(err)
	}

	s := NewSearcher(store, nil, Options{Mode: SearchModeKeyword})
	req := SearchRequest{Library: "bench", Query: "routing state", Limit: 20}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := s.Search(ctx, req); err != nil {
			b.Fatal(err)
		}
	}
}
