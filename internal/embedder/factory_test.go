package embedder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvProvider, EnvModel, EnvOpenAIAPIKey, EnvOpenAIBase} {
		t.Setenv(key, "")
	}
}

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		name      string
		provider  string
		openaiKey string
		want      string
	}{
		{name: "explicit openai", provider: "openai", want: ProviderOpenAI},
		{name: "explicit local", provider: "LOCAL", want: ProviderLocal},
		{name: "explicit local wins over key", provider: "local", openaiKey: "sk-test", want: ProviderLocal},
		{name: "openai key present", openaiKey: "sk-test", want: ProviderOpenAI},
		{name: "nothing set falls back to local", want: ProviderLocal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(EnvProvider, tt.provider)
			t.Setenv(EnvOpenAIAPIKey, tt.openaiKey)

			assert.Equal(t, tt.want, DetectProvider())
		})
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Run("local without keys", func(t *testing.T) {
		clearEnv(t)

		emb, err := NewFromEnv()
		require.NoError(t, err)
		defer emb.Close()

		assert.Equal(t, ProviderLocal, emb.Provider())
		assert.Equal(t, LocalDimension, emb.Dimension())
	})

	t.Run("openai with key and model", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvOpenAIAPIKey, "sk-test")
		t.Setenv(EnvModel, "text-embedding-3-large")

		emb, err := NewFromEnv()
		require.NoError(t, err)
		defer emb.Close()

		assert.Equal(t, ProviderOpenAI, emb.Provider())
		assert.Equal(t, "text-embedding-3-large", emb.Model())
	})

	t.Run("openai requested without key", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvProvider, "openai")

		_, err := NewFromEnv()
		assert.ErrorIs(t, err, ErrNoProviderEnabled)
	})

	t.Run("unknown provider", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvProvider, "jina")

		_, err := NewFromEnv()
		assert.ErrorIs(t, err, ErrUnsupportedModel)
	})
}

func TestNew(t *testing.T) {
	tests := []struct {
		name         string
		cfg          Config
		wantProvider string
		wantDim      int
		wantErr      error
	}{
		{
			name:         "local",
			cfg:          Config{Provider: "local", CacheSize: 10},
			wantProvider: ProviderLocal,
			wantDim:      LocalDimension,
		},
		{
			name:         "openai defaults",
			cfg:          Config{Provider: "openai", APIKey: "sk-test"},
			wantProvider: ProviderOpenAI,
			wantDim:      OpenAIDimension,
		},
		{
			name:         "openai reduced dimension",
			cfg:          Config{Provider: " OpenAI ", APIKey: "sk-test", Dimension: 512},
			wantProvider: ProviderOpenAI,
			wantDim:      512,
		},
		{
			name:    "openai without key",
			cfg:     Config{Provider: "openai"},
			wantErr: ErrNoProviderEnabled,
		},
		{
			name:    "empty provider",
			cfg:     Config{},
			wantErr: ErrUnsupportedModel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emb, err := New(tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			defer emb.Close()

			assert.Equal(t, tt.wantProvider, emb.Provider())
			assert.Equal(t, tt.wantDim, emb.Dimension())
		})
	}
}
