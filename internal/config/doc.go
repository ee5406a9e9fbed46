// Package config loads docsearch settings.
//
// Values are layered, later layers winning:
//
//  1. built-in defaults (Default)
//  2. a YAML file: --config, DOCSEARCH_CONFIG, ./docsearch.yaml,
//     ./config/docsearch.yaml or ~/.docsearch/config.yaml
//  3. the environment, after loading a .env file if present. Keys use the
//     DOCSEARCH prefix, e.g. DOCSEARCH_DB_PATH or
//     DOCSEARCH_SPLITTER_MAX_CHUNK_SIZE. OPENAI_API_KEY is used when no
//     embedding API key is configured.
//  4. command line flags registered with BindFlags that were actually set
//
// The accessor methods convert each section into the options type of the
// package it configures.
package config
