package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dshills/docsearch-mcp/internal/config"
	"github.com/dshills/docsearch-mcp/internal/embedder"
	"github.com/dshills/docsearch-mcp/internal/storage"
)

// app holds what every command needs once configuration is loaded
type app struct {
	cfg   config.Config
	store *storage.SQLiteStorage
	emb   embedder.Embedder
}

// setup loads configuration from the command's flags, configures logging
// and opens storage. Callers must call close.
func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load("", cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// stdout is reserved for MCP traffic and command output
	level, _ := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	store, err := openStorage(cfg)
	if err != nil {
		return nil, err
	}

	emb, err := newEmbedder(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &app{cfg: cfg, store: store, emb: emb}, nil
}

func (a *app) close() {
	if a.emb != nil {
		_ = a.emb.Close()
	}
	if err := a.store.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close storage")
	}
}

// openStorage opens the configured database, creating its directory
func openStorage(cfg config.Config) (*storage.SQLiteStorage, error) {
	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return nil, err
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	log.Debug().Str("path", dbPath).Str("driver", storage.DriverName).Msg("storage opened")
	return store, nil
}

// newEmbedder returns nil when embeddings are disabled
func newEmbedder(cfg config.Config) (embedder.Embedder, error) {
	if !cfg.EmbeddingEnabled() {
		log.Info().Msg("embeddings disabled, search runs in keyword mode")
		return nil, nil
	}

	ecfg := cfg.EmbedderConfig()
	emb, err := embedder.New(ecfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	log.Info().Str("provider", ecfg.Provider).Int("dimension", emb.Dimension()).Msg("embedder ready")
	return emb, nil
}
