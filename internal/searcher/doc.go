// Package searcher implements hybrid documentation search combining vector
// similarity and keyword matching within one library version.
//
// The searcher provides three search modes:
//   - Hybrid: vector + BM25 keyword search merged with Reciprocal Rank Fusion
//   - Vector: pure semantic search using embeddings
//   - Keyword: BM25 full-text search only, no embedder needed
//
// A searcher built without an embedder runs hybrid requests as keyword
// searches and rejects vector requests with ErrNoEmbedder.
//
// # Basic Usage
//
//	s := searcher.NewSearcher(store, emb, searcher.Options{})
//
//	resp, err := s.Search(ctx, searcher.SearchRequest{
//	    Library: "react",
//	    Version: "18.2.0",
//	    Query:   "cleanup effects on unmount",
//	    Limit:   10,
//	})
//
//	for _, chunk := range resp.Chunks {
//	    fmt.Printf("%s %v (score: %.3f)\n", chunk.URL, chunk.Path, chunk.Score)
//	}
//
// # Reciprocal Rank Fusion
//
// Hybrid mode fetches twice the requested limit from each half and scores
// every chunk as
//
//	RRF(d) = Σ 1/(k + rank(d))
//
// with k = 60 by default. Either half may fail; the request only fails
// when both do.
//
// # Caching
//
// Ranked results are cached in an LRU keyed by library, version, query,
// limit and mode, with a TTL (one hour by default). Cached chunks are deep
// copied on the way in and out. InvalidateCache purges everything and is
// called after indexing.
//
// # Retrieval Support
//
// FindByContent plus the hierarchy lookups (FindParentChunk, sibling and
// child queries, FindChunksByIDs) make *Searcher the store the retriever
// package consumes.
package searcher
