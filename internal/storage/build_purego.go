//go:build purego || !sqlite_vec
// +build purego !sqlite_vec

package storage

// Default build. modernc.org/sqlite needs no C toolchain; cosine
// similarity for vector search is computed in Go over stored blobs.
//
//   CGO_ENABLED=0 go build ./...

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// VectorExtensionAvailable indicates if vector extension is available
	VectorExtensionAvailable = false

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
