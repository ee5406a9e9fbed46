// Package storage provides SQLite-based persistence for indexed documentation.
//
// The storage layer manages:
//   - Libraries and their versions (the empty version is the unversioned default)
//   - Documents with content hashes for incremental re-indexing
//   - Chunks with their hierarchical path, level and sort order
//   - Vector embeddings
//   - Full-text search indexes
//
// # Database Schema
//
// Tables:
//   - libraries: library names, stored lower-cased
//   - versions: one row per (library, version)
//   - documents: URL, content type and SHA-256 hash per version
//   - chunks: chunk content, JSON-encoded path and parent path, level, sort_order
//   - embeddings: vector embeddings for chunks
//   - chunks_fts: FTS5 index over chunk content and path
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.docsearch/index.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	version, _ := tx.GetOrCreateVersion(ctx, "react", "18.2.0")
//	doc := &storage.Document{VersionID: version.ID, URL: url, ContentHash: hash}
//	_ = tx.UpsertDocument(ctx, doc)
//	_ = tx.ReplaceDocumentChunks(ctx, doc.ID, chunks)
//
//	if err := tx.Commit(); err != nil {
//	    return err
//	}
//
// # Hierarchy Queries
//
// Chunks within a document form a tree through their paths. The hierarchy
// queries all work inside the reference chunk's document:
//
//   - FindParentChunk: the closest preceding chunk whose path is the
//     reference path minus its last element
//   - FindPrecedingSiblingChunks / FindSubsequentSiblingChunks: chunks at the
//     same level under the same parent path, nearest first, returned in
//     document order
//   - FindChildChunks: chunks one level deeper whose parent path is the
//     reference path, following the reference
//   - FindChunksByIDs: a batch fetch ordered by sort_order
//
// Every query is scoped by library and version; a chunk outside the scope
// yields ErrNotFound.
//
// # Build Tags
//
// CGO Build (sqlite_vec tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Vector ranking runs in SQL through sqlite-vec
//
//     CGO_ENABLED=1 go build -tags "sqlite_vec,fts5"
//
// Pure Go Build (default, or purego tag):
//
//   - Uses modernc.org/sqlite driver
//
//   - Cosine similarity is computed in Go
//
//     CGO_ENABLED=0 go build -tags "purego"
package storage
