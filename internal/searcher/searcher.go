package searcher

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"github.com/dshills/docsearch-mcp/internal/embedder"
	"github.com/dshills/docsearch-mcp/internal/storage"
)

// SearchMode defines how search is performed
type SearchMode string

const (
	SearchModeHybrid  SearchMode = "hybrid"  // Vector + BM25 with RRF
	SearchModeVector  SearchMode = "vector"  // Vector similarity only
	SearchModeKeyword SearchMode = "keyword" // BM25 text search only
)

const (
	defaultLimit       = 10
	maxLimit           = 500
	defaultRRFConstant = 60
)

// Cache defaults applied when Options leaves them zero
const (
	DefaultCacheSize = 1000
	DefaultCacheTTL  = time.Hour
)

// ErrNoEmbedder is returned when vector search is requested without an embedder
var ErrNoEmbedder = errors.New("vector search requires an embedder")

// ParseMode maps a user supplied mode name to a SearchMode
func ParseMode(mode string) (SearchMode, error) {
	switch SearchMode(strings.ToLower(strings.TrimSpace(mode))) {
	case "", SearchModeHybrid:
		return SearchModeHybrid, nil
	case SearchModeVector:
		return SearchModeVector, nil
	case SearchModeKeyword:
		return SearchModeKeyword, nil
	default:
		return "", fmt.Errorf("unsupported search mode: %s", mode)
	}
}

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Library     string
	Version     string
	Query       string
	Limit       int
	Mode        SearchMode
	UseCache    bool // Whether to use query cache
	CacheTTL    time.Duration
	RRFConstant float64 // k value for Reciprocal Rank Fusion (default 60)
}

// SearchResponse contains ranked chunks and search metadata. Every chunk has
// its Score set; Chunks are ordered best first.
type SearchResponse struct {
	Chunks        []*storage.Chunk
	TotalResults  int
	SearchMode    SearchMode
	Duration      time.Duration
	CacheHit      bool
	VectorResults int
	TextResults   int
}

// Options tune a Searcher. Zero values select the defaults.
type Options struct {
	Mode        SearchMode
	CacheSize   int
	CacheTTL    time.Duration
	RRFConstant float64
}

// cacheEntry represents a cached search response with expiration time
type cacheEntry struct {
	response  *SearchResponse
	expiresAt time.Time
}

// Searcher coordinates search operations across vector and text search. It
// also forwards the hierarchy queries to storage, so it is everything the
// retriever needs from the index.
type Searcher struct {
	storage  storage.Storage
	embedder embedder.Embedder
	opts     Options
	cache    *lru.Cache[[32]byte, *cacheEntry]
	cacheMu  sync.RWMutex
}

// NewSearcher creates a new Searcher. A nil embedder restricts the searcher to
// keyword search.
func NewSearcher(store storage.Storage, emb embedder.Embedder, opts Options) *Searcher {
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.RRFConstant <= 0 {
		opts.RRFConstant = defaultRRFConstant
	}
	if opts.Mode == "" {
		opts.Mode = SearchModeHybrid
	}

	cache, err := lru.New[[32]byte, *cacheEntry](opts.CacheSize)
	if err != nil {
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	return &Searcher{
		storage:  store,
		embedder: emb,
		opts:     opts,
		cache:    cache,
	}
}

// FindByContent returns up to limit chunks of one library version ranked by
// relevance to query, using the searcher's configured mode
func (s *Searcher) FindByContent(ctx context.Context, library, version, query string, limit int) ([]*storage.Chunk, error) {
	resp, err := s.Search(ctx, SearchRequest{
		Library:  library,
		Version:  version,
		Query:    query,
		Limit:    limit,
		Mode:     s.opts.Mode,
		UseCache: true,
	})
	if err != nil {
		return nil, err
	}
	return resp.Chunks, nil
}

// Search performs a search based on the request parameters
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	startTime := time.Now()

	if err := s.validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	if req.UseCache {
		if cached, ok := s.checkCache(req); ok {
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			return cached, nil
		}
	}

	var response *SearchResponse
	var err error

	switch req.Mode {
	case SearchModeHybrid:
		response, err = s.hybridSearch(ctx, req)
	case SearchModeVector:
		response, err = s.vectorSearch(ctx, req)
	case SearchModeKeyword:
		response, err = s.keywordSearch(ctx, req)
	default:
		return nil, fmt.Errorf("unsupported search mode: %s", req.Mode)
	}

	if err != nil {
		return nil, err
	}

	response.Duration = time.Since(startTime)
	response.SearchMode = req.Mode

	log.Debug().
		Str("library", req.Library).
		Str("version", req.Version).
		Str("mode", string(req.Mode)).
		Int("results", response.TotalResults).
		Dur("duration", response.Duration).
		Msg("search completed")

	if req.UseCache && len(response.Chunks) > 0 {
		s.storeInCache(req, response)
	}

	return response, nil
}

// searchResult holds results from concurrent search operations
type searchResult struct {
	vectorResults []storage.VectorResult
	textResults   []storage.TextResult
	err           error
}

func scopeOf(req SearchRequest) storage.Scope {
	return storage.Scope{Library: req.Library, Version: req.Version}
}

// queryVector embeds the query text
func (s *Searcher) queryVector(ctx context.Context, query string) ([]float32, error) {
	embedding, err := s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: query})
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}
	return embedding.Vector, nil
}

// runVectorSearch executes vector search in a goroutine
func (s *Searcher) runVectorSearch(ctx context.Context, req SearchRequest, resultChan chan<- searchResult) {
	var res searchResult
	vector, err := s.queryVector(ctx, req.Query)
	if err != nil {
		res.err = err
	} else {
		res.vectorResults, res.err = s.storage.SearchVector(ctx, scopeOf(req), vector, req.Limit*2)
	}
	select {
	case resultChan <- res:
	case <-ctx.Done():
	}
}

// runTextSearch executes text search in a goroutine
func (s *Searcher) runTextSearch(ctx context.Context, req SearchRequest, resultChan chan<- searchResult) {
	var res searchResult
	res.textResults, res.err = s.storage.SearchText(ctx, scopeOf(req), req.Query, req.Limit*2)
	select {
	case resultChan <- res:
	case <-ctx.Done():
	}
}

// hybridSearch combines vector and BM25 search using Reciprocal Rank Fusion
func (s *Searcher) hybridSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	vectorChan := make(chan searchResult, 1)
	textChan := make(chan searchResult, 1)

	go s.runVectorSearch(ctx, req, vectorChan)
	go s.runTextSearch(ctx, req, textChan)

	var vectorRes, textRes searchResult
	var vectorDone, textDone bool
	for !vectorDone || !textDone {
		select {
		case vectorRes = <-vectorChan:
			vectorDone = true
		case textRes = <-textChan:
			textDone = true
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	// A query without keyword terms still ranks by vector alone
	if errors.Is(textRes.err, storage.ErrEmptyQuery) {
		textRes.err = nil
	}
	if vectorRes.err != nil && textRes.err != nil {
		return nil, fmt.Errorf("both searches failed: vector=%w, text=%v", vectorRes.err, textRes.err)
	}
	if vectorRes.err != nil {
		log.Warn().Err(vectorRes.err).Msg("vector search failed, using keyword results only")
	}
	if textRes.err != nil {
		log.Warn().Err(textRes.err).Msg("keyword search failed, using vector results only")
	}

	rrf := applyRRF(vectorRes.vectorResults, textRes.textResults, req.RRFConstant)
	chunks, err := s.fetchResults(ctx, req, rrf)
	if err != nil {
		return nil, err
	}

	return &SearchResponse{
		Chunks:        chunks,
		TotalResults:  len(chunks),
		VectorResults: len(vectorRes.vectorResults),
		TextResults:   len(textRes.textResults),
	}, nil
}

// vectorSearch performs only vector similarity search
func (s *Searcher) vectorSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	vector, err := s.queryVector(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	vectorResults, err := s.storage.SearchVector(ctx, scopeOf(req), vector, req.Limit)
	if err != nil {
		return nil, err
	}

	ranked := make([]rankedResult, len(vectorResults))
	for i, vr := range vectorResults {
		ranked[i] = rankedResult{chunkID: vr.ChunkID, score: vr.SimilarityScore, rank: i + 1}
	}

	chunks, err := s.fetchResults(ctx, req, ranked)
	if err != nil {
		return nil, err
	}

	return &SearchResponse{
		Chunks:        chunks,
		TotalResults:  len(chunks),
		VectorResults: len(vectorResults),
	}, nil
}

// keywordSearch performs only BM25 text search
func (s *Searcher) keywordSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	textResults, err := s.storage.SearchText(ctx, scopeOf(req), req.Query, req.Limit)
	if errors.Is(err, storage.ErrEmptyQuery) {
		return &SearchResponse{Chunks: []*storage.Chunk{}}, nil
	}
	if err != nil {
		return nil, err
	}

	ranked := make([]rankedResult, len(textResults))
	for i, tr := range textResults {
		ranked[i] = rankedResult{chunkID: tr.ChunkID, score: tr.BM25Score, rank: i + 1}
	}

	chunks, err := s.fetchResults(ctx, req, ranked)
	if err != nil {
		return nil, err
	}

	return &SearchResponse{
		Chunks:       chunks,
		TotalResults: len(chunks),
		TextResults:  len(textResults),
	}, nil
}

// rankedResult represents a chunk with its relevance score and rank
type rankedResult struct {
	chunkID int64
	score   float64
	rank    int
}

// applyRRF applies Reciprocal Rank Fusion to combine vector and text results
// RRF formula: RRF(d) = Σ 1/(k + rank(d))
func applyRRF(vectorResults []storage.VectorResult, textResults []storage.TextResult, k float64) []rankedResult {
	if k == 0 {
		k = defaultRRFConstant
	}

	scores := make(map[int64]float64)
	for rank, vr := range vectorResults {
		scores[vr.ChunkID] += 1.0 / (k + float64(rank+1))
	}
	for rank, tr := range textResults {
		scores[tr.ChunkID] += 1.0 / (k + float64(rank+1))
	}

	results := make([]rankedResult, 0, len(scores))
	for chunkID, score := range scores {
		results = append(results, rankedResult{chunkID: chunkID, score: score})
	}

	sortRankedResults(results)

	for i := range results {
		results[i].rank = i + 1
	}

	return results
}

// fetchResults loads the top ranked chunks in one query and restores the
// ranking order. Chunks deleted since ranking are skipped.
func (s *Searcher) fetchResults(ctx context.Context, req SearchRequest, ranked []rankedResult) ([]*storage.Chunk, error) {
	limit := req.Limit
	if limit > len(ranked) {
		limit = len(ranked)
	}
	ranked = ranked[:limit]

	ids := make([]int64, len(ranked))
	for i, rr := range ranked {
		ids[i] = rr.chunkID
	}

	found, err := s.storage.FindChunksByIDs(ctx, req.Library, req.Version, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load ranked chunks: %w", err)
	}
	byID := make(map[int64]*storage.Chunk, len(found))
	for _, chunk := range found {
		byID[chunk.ID] = chunk
	}

	chunks := make([]*storage.Chunk, 0, len(ranked))
	for _, rr := range ranked {
		chunk, ok := byID[rr.chunkID]
		if !ok {
			continue
		}
		chunk.Score = rr.score
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// validateRequest fills defaults and rejects requests that cannot run
func (s *Searcher) validateRequest(req *SearchRequest) error {
	if strings.TrimSpace(req.Query) == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if strings.TrimSpace(req.Library) == "" {
		return storage.ErrEmptyLibrary
	}

	if req.Limit <= 0 {
		req.Limit = defaultLimit
	}
	if req.Limit > maxLimit {
		req.Limit = maxLimit
	}

	if req.Mode == "" {
		req.Mode = s.opts.Mode
	}
	if s.embedder == nil {
		switch req.Mode {
		case SearchModeVector:
			return ErrNoEmbedder
		case SearchModeHybrid:
			req.Mode = SearchModeKeyword
		}
	}

	if req.RRFConstant == 0 {
		req.RRFConstant = s.opts.RRFConstant
	}
	if req.CacheTTL == 0 {
		req.CacheTTL = s.opts.CacheTTL
	}

	return nil
}

// checkCache looks up cached search results
func (s *Searcher) checkCache(req SearchRequest) (*SearchResponse, bool) {
	hash := computeQueryHash(req)
	now := time.Now()

	s.cacheMu.RLock()
	entry, found := s.cache.Get(hash)
	if !found {
		s.cacheMu.RUnlock()
		return nil, false
	}

	if now.After(entry.expiresAt) {
		s.cacheMu.RUnlock()

		s.cacheMu.Lock()
		s.cache.Remove(hash)
		s.cacheMu.Unlock()
		return nil, false
	}

	response := copySearchResponse(entry.response)
	s.cacheMu.RUnlock()

	return response, true
}

// storeInCache saves search results to cache
func (s *Searcher) storeInCache(req SearchRequest, response *SearchResponse) {
	entry := &cacheEntry{
		response:  copySearchResponse(response),
		expiresAt: time.Now().Add(req.CacheTTL),
	}

	s.cacheMu.Lock()
	s.cache.Add(computeQueryHash(req), entry)
	s.cacheMu.Unlock()
}

// copySearchResponse creates a deep copy of a SearchResponse
func copySearchResponse(src *SearchResponse) *SearchResponse {
	if src == nil {
		return nil
	}

	dst := *src
	dst.Chunks = make([]*storage.Chunk, len(src.Chunks))
	for i, chunk := range src.Chunks {
		c := *chunk
		c.Types = append([]string(nil), chunk.Types...)
		c.Path = append([]string(nil), chunk.Path...)
		dst.Chunks[i] = &c
	}
	return &dst
}

// computeQueryHash computes a unique hash for a search request
func computeQueryHash(req SearchRequest) [32]byte {
	var data strings.Builder
	data.WriteString(strings.ToLower(strings.TrimSpace(req.Library)))
	data.WriteString("|")
	data.WriteString(strings.TrimSpace(req.Version))
	data.WriteString("|")
	data.WriteString(req.Query)
	data.WriteString("|")
	data.WriteString(string(req.Mode))
	data.WriteString("|")
	data.WriteString(strconv.Itoa(req.Limit))

	return sha256.Sum256([]byte(data.String()))
}

// sortRankedResults sorts results by score in descending order
func sortRankedResults(results []rankedResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].chunkID < results[j].chunkID
	})
}

// InvalidateCache drops every cached query. Called after a library is
// re-indexed; the LRU cannot filter by library so the whole cache goes.
func (s *Searcher) InvalidateCache() {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

// CacheLen reports the number of cached queries
func (s *Searcher) CacheLen() int {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cache.Len()
}

// Hierarchy queries are served straight from storage

func (s *Searcher) FindParentChunk(ctx context.Context, library, version string, chunkID int64) (*storage.Chunk, error) {
	return s.storage.FindParentChunk(ctx, library, version, chunkID)
}

func (s *Searcher) FindPrecedingSiblingChunks(ctx context.Context, library, version string, chunkID int64, limit int) ([]*storage.Chunk, error) {
	return s.storage.FindPrecedingSiblingChunks(ctx, library, version, chunkID, limit)
}

func (s *Searcher) FindSubsequentSiblingChunks(ctx context.Context, library, version string, chunkID int64, limit int) ([]*storage.Chunk, error) {
	return s.storage.FindSubsequentSiblingChunks(ctx, library, version, chunkID, limit)
}

func (s *Searcher) FindChildChunks(ctx context.Context, library, version string, chunkID int64, limit int) ([]*storage.Chunk, error) {
	return s.storage.FindChildChunks(ctx, library, version, chunkID, limit)
}

func (s *Searcher) FindChunksByIDs(ctx context.Context, library, version string, ids []int64) ([]*storage.Chunk, error) {
	return s.storage.FindChunksByIDs(ctx, library, version, ids)
}
