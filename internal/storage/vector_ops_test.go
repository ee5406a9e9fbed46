package storage

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeVector_RoundTrip(t *testing.T) {
	vector := []float32{0, 1.5, -2.25, float32(math.Pi)}

	blob := SerializeVector(vector)
	assert.Len(t, blob, len(vector)*4)
	assert.Equal(t, vector, DeserializeVector(blob))
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "dimension mismatch", a: []float32{1, 0}, b: []float32{1}, want: 0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 1}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-6)
		})
	}
}

func TestSanitizeFTSQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{name: "single term", query: "hooks", want: `"hooks"`},
		{name: "terms are OR-ed", query: "use state", want: `"use" OR "state"`},
		{name: "operators lose their meaning", query: "foo AND NOT bar", want: `"foo" OR "AND" OR "NOT" OR "bar"`},
		{name: "punctuation is dropped", query: `"quoted" (group) col:term*`, want: `"quoted" OR "group" OR "col" OR "term"`},
		{name: "unicode letters survive", query: "größe", want: `"größe"`},
		{name: "nothing searchable", query: "  ?! ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeFTSQuery(tt.query))
		})
	}
}

func TestSearchText(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	v, err := storage.GetOrCreateVersion(ctx, "lib", "1.0")
	require.NoError(t, err)
	doc := &Document{VersionID: v.ID, URL: "guide.md"}
	require.NoError(t, storage.UpsertDocument(ctx, doc))
	chunks := []*Chunk{
		{Content: "Install the package with npm", Path: []string{"Install"}},
		{Content: "Configure the router before rendering", Path: []string{"Router"}},
		{Content: "The router matches nested routes", Path: []string{"Router", "Nested"}},
	}
	require.NoError(t, storage.ReplaceDocumentChunks(ctx, doc.ID, chunks))
	seedDocument(t, storage, "other", "1.0", "router.md", [][]string{{"router"}})

	results, err := storage.SearchText(ctx, Scope{Library: "lib", Version: "1.0"}, "router", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Contains(t, []int64{chunks[1].ID, chunks[2].ID}, r.ChunkID)
		assert.Greater(t, r.BM25Score, 0.0)
		assert.LessOrEqual(t, r.BM25Score, 1.0)
	}

	// Replaced chunks leave the full-text index too
	require.NoError(t, storage.ReplaceDocumentChunks(ctx, doc.ID, []*Chunk{{Content: "nothing here"}}))
	results, err = storage.SearchText(ctx, Scope{Library: "lib", Version: "1.0"}, "router", 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	_, err = storage.SearchText(ctx, Scope{Library: "lib", Version: "1.0"}, "!!", 10)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearchVector(t *testing.T) {
	if VectorExtensionAvailable {
		t.Skip("ranking is delegated to sqlite-vec in this build")
	}
	storage := setupTestDB(t)
	ctx := context.Background()

	_, chunks := seedDocument(t, storage, "lib", "", "a.md", [][]string{{"a"}, {"b"}, {"c"}, {"d"}})
	vectors := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
		{1, 0}, // different model, skipped
	}
	for i, vec := range vectors {
		require.NoError(t, storage.UpsertEmbedding(ctx, &Embedding{
			ChunkID: chunks[i].ID, Vector: SerializeVector(vec), Dimension: len(vec),
			Provider: "local", Model: "m",
		}))
	}

	results, err := storage.SearchVector(ctx, Scope{Library: "lib"}, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, chunks[0].ID, results[0].ChunkID)
	assert.InDelta(t, 1.0, results[0].SimilarityScore, 1e-6)
	assert.Equal(t, chunks[1].ID, results[1].ChunkID)

	results, err = storage.SearchVector(ctx, Scope{Library: "elsewhere"}, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchVectorEdgeCases(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	testCases := []struct {
		name        string
		queryVector []float32
		limit       int
	}{
		{name: "empty query vector", queryVector: []float32{}, limit: 10},
		{name: "zero limit", queryVector: make([]float32, 8), limit: 0},
		{name: "negative limit", queryVector: make([]float32, 8), limit: -1},
		{name: "unknown library", queryVector: make([]float32, 8), limit: 10},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			results, err := storage.SearchVector(ctx, Scope{Library: "nothing"}, tc.queryVector, tc.limit)
			assert.NoError(t, err)
			assert.NotNil(t, results)
			assert.Empty(t, results)
		})
	}
}
