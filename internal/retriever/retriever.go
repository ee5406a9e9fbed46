package retriever

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/docsearch-mcp/internal/storage"
	"github.com/dshills/docsearch-mcp/pkg/types"
)

// Store is the read side of the index the retriever walks. Lookups that find
// nothing return storage.ErrNotFound or an empty slice.
type Store interface {
	FindByContent(ctx context.Context, library, version, query string, limit int) ([]*storage.Chunk, error)
	FindParentChunk(ctx context.Context, library, version string, chunkID int64) (*storage.Chunk, error)
	FindPrecedingSiblingChunks(ctx context.Context, library, version string, chunkID int64, limit int) ([]*storage.Chunk, error)
	FindSubsequentSiblingChunks(ctx context.Context, library, version string, chunkID int64, limit int) ([]*storage.Chunk, error)
	FindChildChunks(ctx context.Context, library, version string, chunkID int64, limit int) ([]*storage.Chunk, error)
	FindChunksByIDs(ctx context.Context, library, version string, ids []int64) ([]*storage.Chunk, error)
}

// Config controls how far each hit is expanded and how expanded chunks are
// grouped into results
type Config struct {
	// OverfetchFactor multiplies the requested limit for the initial search
	OverfetchFactor int
	// MaxParentChainDepth bounds the walk up the hierarchy from a hit
	MaxParentChainDepth int
	// ChildLimit caps the direct children pulled in per hit
	ChildLimit int
	// PrecedingSiblingsLimit caps the siblings pulled in before a hit
	PrecedingSiblingsLimit int
	// SubsequentSiblingsLimit caps the siblings pulled in after a hit
	SubsequentSiblingsLimit int
	// MaxChunkDistance is the largest sort_order gap inside one result
	MaxChunkDistance int
	// Concurrency bounds the number of hits expanded at once
	Concurrency int
}

// DefaultConfig returns the expansion settings used when none are configured
func DefaultConfig() Config {
	return Config{
		OverfetchFactor:         2,
		MaxParentChainDepth:     10,
		ChildLimit:              3,
		PrecedingSiblingsLimit:  1,
		SubsequentSiblingsLimit: 2,
		MaxChunkDistance:        3,
		Concurrency:             8,
	}
}

// Validate rejects settings the service cannot run with
func (c Config) Validate() error {
	if c.OverfetchFactor < 1 {
		return fmt.Errorf("overfetch factor must be at least 1, got %d", c.OverfetchFactor)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	limits := map[string]int{
		"max parent chain depth":    c.MaxParentChainDepth,
		"child limit":               c.ChildLimit,
		"preceding siblings limit":  c.PrecedingSiblingsLimit,
		"subsequent siblings limit": c.SubsequentSiblingsLimit,
		"max chunk distance":        c.MaxChunkDistance,
	}
	for name, v := range limits {
		if v < 0 {
			return fmt.Errorf("%s must not be negative, got %d", name, v)
		}
	}
	return nil
}

// Service turns ranked chunk hits into readable context windows
type Service struct {
	store Store
	cfg   Config
}

// NewService creates a retriever over store
func NewService(store Store, cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retriever config: %w", err)
	}
	return &Service{store: store, cfg: cfg}, nil
}

// hitInfo remembers how the initial search ranked a chunk
type hitInfo struct {
	score float64
	rank  int
}

// Search runs query against one library version and returns up to limit
// assembled results, best first
func (s *Service) Search(ctx context.Context, library, version, query string, limit int) ([]types.SearchResult, error) {
	if limit <= 0 {
		return []types.SearchResult{}, nil
	}

	hits, err := s.store.FindByContent(ctx, library, version, query, limit*s.cfg.OverfetchFactor)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return []types.SearchResult{}, nil
	}

	ranking := make(map[int64]hitInfo, len(hits))
	for rank, hit := range hits {
		if prev, ok := ranking[hit.ID]; ok {
			if hit.Score > prev.score {
				prev.score = hit.Score
			}
			ranking[hit.ID] = prev
			continue
		}
		ranking[hit.ID] = hitInfo{score: hit.Score, rank: rank}
	}

	ids, err := s.expandHits(ctx, library, version, hits)
	if err != nil {
		return nil, err
	}

	chunks, err := s.store.FindChunksByIDs(ctx, library, version, ids)
	if err != nil {
		return nil, err
	}

	results := s.assemble(clusterChunks(chunks, s.cfg.MaxChunkDistance), ranking)
	if len(results) > limit {
		results = results[:limit]
	}

	log.Debug().
		Str("library", library).
		Str("version", version).
		Int("hits", len(hits)).
		Int("expanded", len(ids)).
		Int("results", len(results)).
		Msg("retrieval completed")

	return results, nil
}

// expandHits collects the ids of every hit and its neighbourhood. Hits are
// expanded concurrently; the union is returned sorted.
func (s *Service) expandHits(ctx context.Context, library, version string, hits []*storage.Chunk) ([]int64, error) {
	expansions := make([][]int64, len(hits))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, hit := range hits {
		g.Go(func() error {
			ids, err := s.expandHit(gctx, library, version, hit)
			if err != nil {
				return err
			}
			expansions[i] = ids
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{})
	var ids []int64
	for _, expansion := range expansions {
		for _, id := range expansion {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// expandHit gathers a hit with its parent chain, nearby siblings and
// children. Missing relatives only shrink the context.
func (s *Service) expandHit(ctx context.Context, library, version string, hit *storage.Chunk) ([]int64, error) {
	ids := []int64{hit.ID}

	visited := map[int64]bool{hit.ID: true}
	current := hit.ID
	for depth := 0; depth < s.cfg.MaxParentChainDepth; depth++ {
		parent, err := s.store.FindParentChunk(ctx, library, version, current)
		if errors.Is(err, storage.ErrNotFound) || (err == nil && parent == nil) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parent of chunk %d: %w", current, err)
		}
		if visited[parent.ID] {
			break
		}
		visited[parent.ID] = true
		ids = append(ids, parent.ID)
		current = parent.ID
	}

	relatives := []struct {
		limit int
		find  func(context.Context, string, string, int64, int) ([]*storage.Chunk, error)
	}{
		{s.cfg.PrecedingSiblingsLimit, s.store.FindPrecedingSiblingChunks},
		{s.cfg.SubsequentSiblingsLimit, s.store.FindSubsequentSiblingChunks},
		{s.cfg.ChildLimit, s.store.FindChildChunks},
	}
	for _, rel := range relatives {
		if rel.limit == 0 {
			continue
		}
		found, err := rel.find(ctx, library, version, hit.ID, rel.limit)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("relatives of chunk %d: %w", hit.ID, err)
		}
		for _, c := range found {
			ids = append(ids, c.ID)
		}
	}

	return ids, nil
}

// clusterChunks groups chunks by URL, in order of first appearance, and
// splits each URL's run wherever consecutive sort orders are more than
// maxDistance apart. Input must already be in sort_order.
func clusterChunks(chunks []*storage.Chunk, maxDistance int) [][]*storage.Chunk {
	var urls []string
	byURL := make(map[string][]*storage.Chunk)
	for _, c := range chunks {
		if _, ok := byURL[c.URL]; !ok {
			urls = append(urls, c.URL)
		}
		byURL[c.URL] = append(byURL[c.URL], c)
	}

	var clusters [][]*storage.Chunk
	for _, url := range urls {
		group := byURL[url]
		start := 0
		for i := 1; i < len(group); i++ {
			if group[i].SortOrder-group[i-1].SortOrder > maxDistance {
				clusters = append(clusters, group[start:i])
				start = i
			}
		}
		clusters = append(clusters, group[start:])
	}
	return clusters
}

// rankedResult pairs an assembled result with the best store rank among its hits
type rankedResult struct {
	result types.SearchResult
	rank   int
}

// assemble renders each cluster that contains at least one initial hit and
// orders the results by score, then by store rank
func (s *Service) assemble(clusters [][]*storage.Chunk, ranking map[int64]hitInfo) []types.SearchResult {
	ranked := make([]rankedResult, 0, len(clusters))
	for _, cluster := range clusters {
		score, rank, ok := clusterScore(cluster, ranking)
		if !ok {
			continue
		}
		mimeType := cluster[0].ContentType
		ranked = append(ranked, rankedResult{
			result: types.SearchResult{
				URL:      cluster[0].URL,
				Content:  StrategyFor(mimeType).Assemble(cluster),
				Score:    score,
				MimeType: mimeType,
			},
			rank: rank,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].result.Score != ranked[j].result.Score {
			return ranked[i].result.Score > ranked[j].result.Score
		}
		return ranked[i].rank < ranked[j].rank
	})

	results := make([]types.SearchResult, len(ranked))
	for i, r := range ranked {
		results[i] = r.result
	}
	return results
}

// clusterScore is the best score of the initial hits inside cluster.
// Expansion-only clusters report ok == false.
func clusterScore(cluster []*storage.Chunk, ranking map[int64]hitInfo) (score float64, rank int, ok bool) {
	for _, c := range cluster {
		info, isHit := ranking[c.ID]
		if !isHit {
			continue
		}
		if !ok || info.score > score {
			score = info.score
		}
		if !ok || info.rank < rank {
			rank = info.rank
		}
		ok = true
	}
	return score, rank, ok
}
