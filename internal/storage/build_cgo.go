//go:build sqlite_vec
// +build sqlite_vec

package storage

// Built with CGO and the sqlite_vec tag. Vector ranking goes through the
// sqlite-vec extension loaded into github.com/mattn/go-sqlite3.
//
//   CGO_ENABLED=1 go build -tags "sqlite_vec,fts5" ./...

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3"

	// VectorExtensionAvailable indicates if vector extension is available
	VectorExtensionAvailable = true

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)
