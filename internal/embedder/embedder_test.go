package embedder

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeHash(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{text: "", want: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{text: "hello world", want: "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ComputeHash(tt.text), "hash of %q", tt.text)
	}
	assert.NotEqual(t, ComputeHash("a"), ComputeHash("b"))
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(EmbeddingRequest{Text: "useEffect"}))
	assert.ErrorIs(t, ValidateRequest(EmbeddingRequest{}), ErrEmptyText)
}

func TestValidateBatchRequest(t *testing.T) {
	tests := []struct {
		name    string
		texts   []string
		wantErr bool
	}{
		{name: "valid", texts: []string{"a", "b"}},
		{name: "empty batch", texts: nil, wantErr: true},
		{name: "empty text inside batch", texts: []string{"a", ""}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBatchRequest(BatchEmbeddingRequest{Texts: tt.texts})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCache(t *testing.T) {
	t.Run("get returns an independent copy", func(t *testing.T) {
		cache := NewCache(10)
		original := &Embedding{Vector: []float32{1, 2, 3}, Dimension: 3, Hash: "h"}
		cache.Set("h", original)
		original.Vector[0] = 99

		got, ok := cache.Get("h")
		require.True(t, ok)
		assert.Equal(t, []float32{1, 2, 3}, got.Vector)

		got.Vector[1] = 42
		again, _ := cache.Get("h")
		assert.Equal(t, float32(2), again.Vector[1])
	})

	t.Run("evicts least recently used", func(t *testing.T) {
		cache := NewCache(2)
		cache.Set("a", &Embedding{})
		cache.Set("b", &Embedding{})
		_, _ = cache.Get("a")
		cache.Set("c", &Embedding{})

		_, okA := cache.Get("a")
		_, okB := cache.Get("b")
		assert.True(t, okA)
		assert.False(t, okB)
		assert.Equal(t, 2, cache.Size())
	})

	t.Run("clear and default size", func(t *testing.T) {
		cache := NewCache(0)
		cache.Set("a", &Embedding{})
		cache.Clear()
		assert.Equal(t, 0, cache.Size())
	})

	t.Run("concurrent access", func(t *testing.T) {
		cache := NewCache(100)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(worker int) {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					key := fmt.Sprintf("k%d", (worker*50+j)%120)
					cache.Set(key, &Embedding{Vector: []float32{float32(j)}})
					_, _ = cache.Get(key)
				}
			}(i)
		}
		wg.Wait()
		assert.LessOrEqual(t, cache.Size(), 100)
		assert.Positive(t, cache.Size())
	})
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestLocalProvider(t *testing.T) {
	provider, err := NewLocalProvider(NewCache(10))
	require.NoError(t, err)
	defer provider.Close()
	ctx := context.Background()

	t.Run("metadata", func(t *testing.T) {
		assert.Equal(t, ProviderLocal, provider.Provider())
		assert.Equal(t, LocalDimension, provider.Dimension())
		assert.Equal(t, DefaultLocalModel, provider.Model())
	})

	t.Run("deterministic unit vectors", func(t *testing.T) {
		a, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "router navigation hooks"})
		require.NoError(t, err)
		b, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "router navigation hooks"})
		require.NoError(t, err)

		assert.Equal(t, a.Vector, b.Vector)
		assert.Len(t, a.Vector, LocalDimension)
		assert.InDelta(t, 1.0, cosine(a.Vector, a.Vector), 1e-6)
		assert.Equal(t, ComputeHash("router navigation hooks"), a.Hash)
	})

	t.Run("shared vocabulary is closer", func(t *testing.T) {
		query, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "router navigation"})
		require.NoError(t, err)
		related, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "The router handles navigation between pages"})
		require.NoError(t, err)
		unrelated, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "database connection pooling settings"})
		require.NoError(t, err)

		assert.Greater(t, cosine(query.Vector, related.Vector), cosine(query.Vector, unrelated.Vector))
	})

	t.Run("batch keeps order", func(t *testing.T) {
		resp, err := provider.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"one", "two", "three"}})
		require.NoError(t, err)
		require.Len(t, resp.Embeddings, 3)
		for i, text := range []string{"one", "two", "three"} {
			assert.Equal(t, ComputeHash(text), resp.Embeddings[i].Hash)
		}
	})

	t.Run("rejects empty text", func(t *testing.T) {
		_, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{})
		assert.ErrorIs(t, err, ErrEmptyText)
	})

	t.Run("honours cancellation", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := provider.GenerateEmbedding(cancelled, EmbeddingRequest{Text: "never cached text"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNormalizeVector(t *testing.T) {
	got := NormalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, got[0], 1e-6)
	assert.InDelta(t, 0.8, got[1], 1e-6)

	zero := []float32{0, 0, 0}
	assert.Equal(t, zero, NormalizeVector(zero))
}
