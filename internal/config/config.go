package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/dshills/docsearch-mcp/internal/chunker"
	"github.com/dshills/docsearch-mcp/internal/embedder"
	"github.com/dshills/docsearch-mcp/internal/indexer"
	"github.com/dshills/docsearch-mcp/internal/retriever"
	"github.com/dshills/docsearch-mcp/internal/searcher"
)

const envPrefix = "DOCSEARCH"

// DefaultDatabase is used when no database path is configured
const DefaultDatabase = "~/.docsearch/docsearch.db"

// Config is the full runtime configuration
type Config struct {
	Database  string          `yaml:"database" envconfig:"DB_PATH"`
	LogLevel  string          `yaml:"logLevel" split_words:"true"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Splitter  SplitterConfig  `yaml:"splitter"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Indexing  IndexingConfig  `yaml:"indexing"`
}

type EmbeddingConfig struct {
	// Provider is openai, local or none
	Provider  string `yaml:"provider"`
	APIKey    string `yaml:"apiKey" split_words:"true"`
	BaseURL   string `yaml:"baseURL" envconfig:"BASE_URL"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
	CacheSize int    `yaml:"cacheSize" split_words:"true"`
}

type SearchConfig struct {
	Mode      string        `yaml:"mode"`
	CacheSize int           `yaml:"cacheSize" split_words:"true"`
	CacheTTL  time.Duration `yaml:"cacheTTL" envconfig:"CACHE_TTL"`
}

type SplitterConfig struct {
	MinChunkSize       int  `yaml:"minChunkSize" split_words:"true"`
	PreferredChunkSize int  `yaml:"preferredChunkSize" split_words:"true"`
	MaxChunkSize       int  `yaml:"maxChunkSize" split_words:"true"`
	MinLinesPerChunk   int  `yaml:"minLinesPerChunk" split_words:"true"`
	JSONMaxDepth       int  `yaml:"jsonMaxDepth" envconfig:"JSON_MAX_DEPTH"`
	JSONMaxChunks      int  `yaml:"jsonMaxChunks" envconfig:"JSON_MAX_CHUNKS"`
	PreserveFormatting bool `yaml:"preserveFormatting" split_words:"true"`
}

type RetrievalConfig struct {
	OverfetchFactor         int `yaml:"overfetchFactor" split_words:"true"`
	MaxParentChainDepth     int `yaml:"maxParentChainDepth" split_words:"true"`
	ChildLimit              int `yaml:"childLimit" split_words:"true"`
	PrecedingSiblingsLimit  int `yaml:"precedingSiblingsLimit" split_words:"true"`
	SubsequentSiblingsLimit int `yaml:"subsequentSiblingsLimit" split_words:"true"`
	MaxChunkDistance        int `yaml:"maxChunkDistance" split_words:"true"`
	Concurrency             int `yaml:"concurrency"`
}

type IndexingConfig struct {
	Workers            int   `yaml:"workers"`
	EmbeddingBatchSize int   `yaml:"embeddingBatchSize" split_words:"true"`
	MaxFileSize        int64 `yaml:"maxFileSize" split_words:"true"`
}

// Default returns the configuration used when nothing else is set
func Default() Config {
	split := chunker.DefaultOptions()
	ret := retriever.DefaultConfig()
	return Config{
		Database: DefaultDatabase,
		LogLevel: "info",
		Embedding: EmbeddingConfig{
			Provider:  "",
			CacheSize: embedder.DefaultCacheSize,
		},
		Search: SearchConfig{
			Mode:      string(searcher.SearchModeHybrid),
			CacheSize: searcher.DefaultCacheSize,
			CacheTTL:  searcher.DefaultCacheTTL,
		},
		Splitter: SplitterConfig{
			MinChunkSize:       split.MinChunkSize,
			PreferredChunkSize: split.PreferredChunkSize,
			MaxChunkSize:       split.MaxChunkSize,
			MinLinesPerChunk:   split.MinLinesPerChunk,
			JSONMaxDepth:       split.MaxDepth,
			JSONMaxChunks:      split.MaxChunks,
			PreserveFormatting: split.PreserveFormatting,
		},
		Retrieval: RetrievalConfig{
			OverfetchFactor:         ret.OverfetchFactor,
			MaxParentChainDepth:     ret.MaxParentChainDepth,
			ChildLimit:              ret.ChildLimit,
			PrecedingSiblingsLimit:  ret.PrecedingSiblingsLimit,
			SubsequentSiblingsLimit: ret.SubsequentSiblingsLimit,
			MaxChunkDistance:        ret.MaxChunkDistance,
			Concurrency:             ret.Concurrency,
		},
		Indexing: IndexingConfig{
			EmbeddingBatchSize: embedder.DefaultBatchSize,
			MaxFileSize:        indexer.DefaultMaxFileSize,
		},
	}
}

// Load builds the configuration with precedence
// defaults < YAML file < .env and environment < changed flags.
// configPath may be empty, in which case DOCSEARCH_CONFIG and a few well
// known locations are tried. fs may be nil; when given it must have been
// set up with BindFlags and already parsed.
func Load(configPath string, fs *pflag.FlagSet) (Config, error) {
	cfg := Default()

	// .env never overrides variables that are already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	if configPath == "" && fs != nil {
		configPath, _ = fs.GetString("config")
	}
	path, err := discoverConfig(configPath)
	if err != nil {
		return Config{}, err
	}
	if path != "" {
		if err := loadYAML(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("load yaml %s: %w", path, err)
		}
	}

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("env override: %w", err)
	}
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv(embedder.EnvOpenAIAPIKey)
	}

	if fs != nil {
		applyChangedFlags(fs, &cfg)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects inconsistent settings
func (c Config) Validate() error {
	if strings.TrimSpace(c.Database) == "" {
		return fmt.Errorf("database path is required (DOCSEARCH_DB_PATH, file or --db)")
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	if _, err := searcher.ParseMode(c.Search.Mode); err != nil {
		return err
	}
	switch strings.ToLower(c.Embedding.Provider) {
	case "", "none", embedder.ProviderLocal, embedder.ProviderOpenAI:
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	if err := c.SplitterOptions().Validate(); err != nil {
		return fmt.Errorf("splitter: %w", err)
	}
	if c.Splitter.MinChunkSize > c.Splitter.PreferredChunkSize || c.Splitter.PreferredChunkSize > c.Splitter.MaxChunkSize {
		return fmt.Errorf("splitter: sizes must satisfy min <= preferred <= max")
	}
	if err := c.RetrieverConfig().Validate(); err != nil {
		return fmt.Errorf("retrieval: %w", err)
	}
	if c.Indexing.Workers < 0 {
		return fmt.Errorf("indexing workers must not be negative, got %d", c.Indexing.Workers)
	}
	return nil
}

// DatabasePath returns the database path with a leading ~ expanded
func (c Config) DatabasePath() (string, error) {
	p := c.Database
	if p == ":memory:" {
		return p, nil
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return p, nil
}

// EmbeddingEnabled reports whether an embedder should be created
func (c Config) EmbeddingEnabled() bool {
	return !strings.EqualFold(c.Embedding.Provider, "none")
}

// EmbedderConfig converts the embedding section. An empty provider is
// resolved from the environment the same way embedder.NewFromEnv does.
func (c Config) EmbedderConfig() embedder.Config {
	provider := c.Embedding.Provider
	if provider == "" {
		provider = embedder.ProviderLocal
		if c.Embedding.APIKey != "" {
			provider = embedder.ProviderOpenAI
		}
	}
	return embedder.Config{
		Provider:  provider,
		APIKey:    c.Embedding.APIKey,
		BaseURL:   c.Embedding.BaseURL,
		Model:     c.Embedding.Model,
		Dimension: c.Embedding.Dimension,
		CacheSize: c.Embedding.CacheSize,
	}
}

func (c Config) SearcherOptions() searcher.Options {
	mode, _ := searcher.ParseMode(c.Search.Mode)
	return searcher.Options{
		Mode:      mode,
		CacheSize: c.Search.CacheSize,
		CacheTTL:  c.Search.CacheTTL,
	}
}

func (c Config) SplitterOptions() chunker.Options {
	opts := chunker.DefaultOptions()
	opts.MinChunkSize = c.Splitter.MinChunkSize
	opts.PreferredChunkSize = c.Splitter.PreferredChunkSize
	opts.MaxChunkSize = c.Splitter.MaxChunkSize
	opts.MinLinesPerChunk = c.Splitter.MinLinesPerChunk
	opts.MaxDepth = c.Splitter.JSONMaxDepth
	opts.MaxChunks = c.Splitter.JSONMaxChunks
	opts.PreserveFormatting = c.Splitter.PreserveFormatting
	return opts
}

func (c Config) RetrieverConfig() retriever.Config {
	return retriever.Config{
		OverfetchFactor:         c.Retrieval.OverfetchFactor,
		MaxParentChainDepth:     c.Retrieval.MaxParentChainDepth,
		ChildLimit:              c.Retrieval.ChildLimit,
		PrecedingSiblingsLimit:  c.Retrieval.PrecedingSiblingsLimit,
		SubsequentSiblingsLimit: c.Retrieval.SubsequentSiblingsLimit,
		MaxChunkDistance:        c.Retrieval.MaxChunkDistance,
		Concurrency:             c.Retrieval.Concurrency,
	}
}

func (c Config) IndexerConfig() indexer.Config {
	return indexer.Config{
		Workers:            c.Indexing.Workers,
		EmbeddingBatchSize: c.Indexing.EmbeddingBatchSize,
		Splitter:           c.SplitterOptions(),
	}
}

// BindFlags registers the command line overrides on fs
func BindFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("config", "", "Path to config file")
	fs.String("db", d.Database, "SQLite database path")
	fs.String("log-level", d.LogLevel, "Log level (debug|info|warn|error)")
	fs.String("embedding-provider", d.Embedding.Provider, "Embedding provider (openai|local|none)")
	fs.String("embedding-model", d.Embedding.Model, "Embedding model")
	fs.String("search-mode", d.Search.Mode, "Search mode (hybrid|vector|keyword)")
	fs.Int("max-chunk-size", d.Splitter.MaxChunkSize, "Maximum chunk size in bytes")
	fs.Int("workers", d.Indexing.Workers, "Concurrent documents while indexing (0 = CPU count)")
}

func applyChangedFlags(fs *pflag.FlagSet, c *Config) {
	setStr := func(name string, dst *string) {
		if f := fs.Lookup(name); f != nil && f.Changed {
			*dst, _ = fs.GetString(name)
		}
	}
	setInt := func(name string, dst *int) {
		if f := fs.Lookup(name); f != nil && f.Changed {
			*dst, _ = fs.GetInt(name)
		}
	}

	setStr("db", &c.Database)
	setStr("log-level", &c.LogLevel)
	setStr("embedding-provider", &c.Embedding.Provider)
	setStr("embedding-model", &c.Embedding.Model)
	setStr("search-mode", &c.Search.Mode)
	setInt("max-chunk-size", &c.Splitter.MaxChunkSize)
	setInt("workers", &c.Indexing.Workers)
}

// discoverConfig resolves the config file to read, or "" when there is none
func discoverConfig(explicit string) (string, error) {
	if explicit == "" {
		explicit = os.Getenv(envPrefix + "_CONFIG")
	}
	if explicit != "" {
		if !fileExists(explicit) {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	candidates := []string{"./docsearch.yaml", "./config/docsearch.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".docsearch", "config.yaml"))
	}
	for _, cand := range candidates {
		if fileExists(cand) {
			return cand, nil
		}
	}
	return "", nil
}

func loadYAML(path string, into any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, into)
}

func fileExists(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}
