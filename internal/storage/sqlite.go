package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrEmptyLibrary is returned when a library name is blank
	ErrEmptyLibrary = errors.New("library name is required")
	// ErrEmptyQuery is returned when a text query has no searchable terms
	ErrEmptyQuery = errors.New("empty search query")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// A single connection keeps one writer and lets ":memory:" databases
	// survive across calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage opens (or creates) the index database at dbPath and
// brings its schema up to date
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// normalizeLibrary folds library names so lookups are case-insensitive
func normalizeLibrary(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func normalizeVersion(name string) string {
	return strings.TrimSpace(name)
}

// encodeStrings stores a string list as a JSON array. The encoding is
// deterministic so path columns can be compared for equality in SQL.
func encodeStrings(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func decodeStrings(raw string) ([]string, error) {
	values := []string{}
	if raw == "" {
		return values, nil
	}
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("failed to decode string list: %w", err)
	}
	return values, nil
}

// Library operations

// getOrCreateVersionWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getOrCreateVersionWithQuerier(ctx context.Context, q querier, library, version string) (*Version, error) {
	library = normalizeLibrary(library)
	version = normalizeVersion(version)
	if library == "" {
		return nil, ErrEmptyLibrary
	}

	now := time.Now()
	var libraryID int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO libraries (name, created_at) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET name = excluded.name
		RETURNING id
	`, library, now).Scan(&libraryID)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert library: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO versions (library_id, name, created_at) VALUES (?, ?, ?)
		ON CONFLICT(library_id, name) DO NOTHING
	`, libraryID, version, now)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert version: %w", err)
	}

	return s.getVersionWithQuerier(ctx, q, library, version)
}

func (s *SQLiteStorage) GetOrCreateVersion(ctx context.Context, library, version string) (*Version, error) {
	return s.getOrCreateVersionWithQuerier(ctx, s.querier(), library, version)
}

// getVersionWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getVersionWithQuerier(ctx context.Context, q querier, library, version string) (*Version, error) {
	query := `
		SELECT v.id, v.library_id, l.name, v.name, v.last_indexed_at, v.created_at
		FROM versions v
		JOIN libraries l ON v.library_id = l.id
		WHERE l.name = ? AND v.name = ?
	`
	var v Version
	var lastIndexedAt sql.NullTime
	err := q.QueryRowContext(ctx, query, normalizeLibrary(library), normalizeVersion(version)).Scan(
		&v.ID, &v.LibraryID, &v.Library, &v.Name, &lastIndexedAt, &v.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastIndexedAt.Valid {
		v.LastIndexedAt = lastIndexedAt.Time
	}
	return &v, nil
}

func (s *SQLiteStorage) GetVersion(ctx context.Context, library, version string) (*Version, error) {
	return s.getVersionWithQuerier(ctx, s.querier(), library, version)
}

// ListLibraries returns every library with per-version document and chunk counts
func (s *SQLiteStorage) ListLibraries(ctx context.Context) ([]*LibrarySummary, error) {
	query := `
		SELECT l.name, v.name, v.last_indexed_at,
		       (SELECT COUNT(*) FROM documents d WHERE d.version_id = v.id),
		       (SELECT COUNT(*) FROM chunks c
		          JOIN documents d ON c.document_id = d.id
		         WHERE d.version_id = v.id)
		FROM versions v
		JOIN libraries l ON v.library_id = l.id
		ORDER BY l.name, v.name
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list libraries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var libraries []*LibrarySummary
	for rows.Next() {
		var name string
		var vs VersionSummary
		var lastIndexedAt sql.NullTime
		if err := rows.Scan(&name, &vs.Name, &lastIndexedAt, &vs.Documents, &vs.Chunks); err != nil {
			return nil, err
		}
		if lastIndexedAt.Valid {
			vs.LastIndexedAt = lastIndexedAt.Time
		}
		if len(libraries) == 0 || libraries[len(libraries)-1].Name != name {
			libraries = append(libraries, &LibrarySummary{Name: name})
		}
		current := libraries[len(libraries)-1]
		current.Versions = append(current.Versions, vs)
	}
	return libraries, rows.Err()
}

// DeleteVersion removes a version with all of its documents, chunks and
// embeddings. The library row goes too once its last version is gone.
func (s *SQLiteStorage) DeleteVersion(ctx context.Context, library, version string) error {
	v, err := s.GetVersion(ctx, library, version)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM versions WHERE id = ?`, v.ID); err != nil {
		return fmt.Errorf("failed to delete version: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		DELETE FROM libraries
		WHERE id = ? AND NOT EXISTS (SELECT 1 FROM versions WHERE library_id = ?)
	`, v.LibraryID, v.LibraryID)
	if err != nil {
		return fmt.Errorf("failed to delete library: %w", err)
	}
	return tx.Commit()
}

// Document operations

// upsertDocumentWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) upsertDocumentWithQuerier(ctx context.Context, q querier, doc *Document) error {
	if strings.TrimSpace(doc.URL) == "" {
		return errors.New("document url is required")
	}
	query := `
		INSERT INTO documents (version_id, url, content_type, content_hash, size_bytes, indexed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(version_id, url) DO UPDATE SET
			content_type = excluded.content_type,
			content_hash = excluded.content_hash,
			size_bytes = excluded.size_bytes,
			indexed_at = excluded.indexed_at,
			updated_at = excluded.updated_at
		RETURNING id
	`
	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		doc.VersionID, doc.URL, doc.ContentType, doc.ContentHash[:],
		doc.SizeBytes, now, now, now).Scan(&doc.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	_, err = q.ExecContext(ctx, `UPDATE versions SET last_indexed_at = ? WHERE id = ?`, now, doc.VersionID)
	if err != nil {
		return fmt.Errorf("failed to touch version: %w", err)
	}

	doc.IndexedAt = now
	doc.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertDocument(ctx context.Context, doc *Document) error {
	return s.upsertDocumentWithQuerier(ctx, s.querier(), doc)
}

const documentColumns = `
	SELECT id, version_id, url, content_type, content_hash, size_bytes,
	       indexed_at, created_at, updated_at
	FROM documents
`

func scanDocument(row rowScanner) (*Document, error) {
	var doc Document
	var hash []byte
	var indexedAt sql.NullTime
	err := row.Scan(
		&doc.ID, &doc.VersionID, &doc.URL, &doc.ContentType, &hash,
		&doc.SizeBytes, &indexedAt, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	copy(doc.ContentHash[:], hash)
	if indexedAt.Valid {
		doc.IndexedAt = indexedAt.Time
	}
	return &doc, nil
}

// getDocumentWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getDocumentWithQuerier(ctx context.Context, q querier, versionID int64, url string) (*Document, error) {
	row := q.QueryRowContext(ctx, documentColumns+` WHERE version_id = ? AND url = ?`, versionID, url)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return doc, err
}

func (s *SQLiteStorage) GetDocument(ctx context.Context, versionID int64, url string) (*Document, error) {
	return s.getDocumentWithQuerier(ctx, s.querier(), versionID, url)
}

// deleteDocumentWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) deleteDocumentWithQuerier(ctx context.Context, q querier, documentID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, documentID)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) DeleteDocument(ctx context.Context, documentID int64) error {
	return s.deleteDocumentWithQuerier(ctx, s.querier(), documentID)
}

// ListDocuments returns the documents of a version ordered by URL
func (s *SQLiteStorage) ListDocuments(ctx context.Context, versionID int64) ([]*Document, error) {
	rows, err := s.db.QueryContext(ctx, documentColumns+` WHERE version_id = ? ORDER BY url`, versionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Chunk operations

// replaceDocumentChunksWithQuerier is the internal implementation that uses a
// querier. Chunks are stored in slice order; SortOrder is assigned from the
// slice index.
func (s *SQLiteStorage) replaceDocumentChunksWithQuerier(ctx context.Context, q querier, documentID int64, chunks []*Chunk) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}

	query := `
		INSERT INTO chunks (document_id, content, content_hash, token_count, chunk_types,
		                    path, parent_path, level, sort_order, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	now := time.Now()
	for i, chunk := range chunks {
		chunk.DocumentID = documentID
		chunk.SortOrder = i
		chunk.Level = len(chunk.Path)
		if chunk.ContentHash == ([32]byte{}) {
			chunk.ContentHash = sha256.Sum256([]byte(chunk.Content))
		}

		err := q.QueryRowContext(ctx, query,
			documentID, chunk.Content, chunk.ContentHash[:], chunk.TokenCount,
			encodeStrings(chunk.Types), encodeStrings(chunk.Path),
			encodeStrings(chunk.ParentPath()), chunk.Level, chunk.SortOrder, now,
		).Scan(&chunk.ID)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
	}
	return nil
}

// ReplaceDocumentChunks swaps a document's chunks atomically
func (s *SQLiteStorage) ReplaceDocumentChunks(ctx context.Context, documentID int64, chunks []*Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.replaceDocumentChunksWithQuerier(ctx, tx, documentID, chunks); err != nil {
		return err
	}
	return tx.Commit()
}

// chunkColumns selects a chunk together with the identity of its document
const chunkColumns = `
	SELECT c.id, c.document_id, l.name, v.name, d.url, d.content_type,
	       c.content, c.content_hash, c.token_count, c.chunk_types, c.path,
	       c.level, c.sort_order
	FROM chunks c
	JOIN documents d ON c.document_id = d.id
	JOIN versions v ON d.version_id = v.id
	JOIN libraries l ON v.library_id = l.id
`

func scanChunk(row rowScanner) (*Chunk, error) {
	var chunk Chunk
	var hash []byte
	var types, path string
	err := row.Scan(
		&chunk.ID, &chunk.DocumentID, &chunk.Library, &chunk.Version,
		&chunk.URL, &chunk.ContentType, &chunk.Content, &hash,
		&chunk.TokenCount, &types, &path, &chunk.Level, &chunk.SortOrder,
	)
	if err != nil {
		return nil, err
	}
	copy(chunk.ContentHash[:], hash)
	if chunk.Types, err = decodeStrings(types); err != nil {
		return nil, err
	}
	if chunk.Path, err = decodeStrings(path); err != nil {
		return nil, err
	}
	return &chunk, nil
}

func collectChunks(rows *sql.Rows) ([]*Chunk, error) {
	chunks := make([]*Chunk, 0)
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func (s *SQLiteStorage) GetChunk(ctx context.Context, chunkID int64) (*Chunk, error) {
	chunk, err := scanChunk(s.db.QueryRowContext(ctx, chunkColumns+` WHERE c.id = ?`, chunkID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return chunk, err
}

// ListChunksByDocument returns a document's chunks in document order
func (s *SQLiteStorage) ListChunksByDocument(ctx context.Context, documentID int64) ([]*Chunk, error) {
	rows, err := s.db.QueryContext(ctx, chunkColumns+` WHERE c.document_id = ? ORDER BY c.sort_order`, documentID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return collectChunks(rows)
}

// Embedding operations

// upsertEmbeddingWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) upsertEmbeddingWithQuerier(ctx context.Context, q querier, embedding *Embedding) error {
	query := `
		INSERT INTO embeddings (chunk_id, vector, dimension, provider, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			provider = excluded.provider,
			model = excluded.model
		RETURNING id
	`
	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		embedding.ChunkID, embedding.Vector, embedding.Dimension,
		embedding.Provider, embedding.Model, now).Scan(&embedding.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}
	embedding.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertEmbedding(ctx context.Context, embedding *Embedding) error {
	return s.upsertEmbeddingWithQuerier(ctx, s.querier(), embedding)
}

func (s *SQLiteStorage) GetEmbedding(ctx context.Context, chunkID int64) (*Embedding, error) {
	query := `
		SELECT id, chunk_id, vector, dimension, provider, model, created_at
		FROM embeddings
		WHERE chunk_id = ?
	`
	var embedding Embedding
	err := s.db.QueryRowContext(ctx, query, chunkID).Scan(
		&embedding.ID, &embedding.ChunkID, &embedding.Vector,
		&embedding.Dimension, &embedding.Provider, &embedding.Model,
		&embedding.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &embedding, nil
}

// Search operations

func (s *SQLiteStorage) SearchVector(ctx context.Context, scope Scope, queryVector []float32, limit int) ([]VectorResult, error) {
	return searchVector(ctx, s.db, scope, queryVector, limit)
}

func (s *SQLiteStorage) SearchText(ctx context.Context, scope Scope, query string, limit int) ([]TextResult, error) {
	return searchText(ctx, s.db, scope, query, limit)
}

// Hierarchy operations

// scopedChunk loads the reference chunk for a hierarchy query, refusing
// chunks that live outside the requested library version
func (s *SQLiteStorage) scopedChunk(ctx context.Context, library, version string, chunkID int64) (*Chunk, error) {
	row := s.db.QueryRowContext(ctx, chunkColumns+` WHERE c.id = ? AND l.name = ? AND v.name = ?`,
		chunkID, normalizeLibrary(library), normalizeVersion(version))
	chunk, err := scanChunk(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return chunk, err
}

// FindParentChunk returns the closest preceding chunk of the same document
// whose path is the reference chunk's path minus its last element
func (s *SQLiteStorage) FindParentChunk(ctx context.Context, library, version string, chunkID int64) (*Chunk, error) {
	ref, err := s.scopedChunk(ctx, library, version, chunkID)
	if err != nil {
		return nil, err
	}
	if len(ref.Path) == 0 {
		return nil, ErrNotFound
	}

	query := chunkColumns + `
		WHERE c.document_id = ? AND c.path = ? AND c.sort_order < ?
		ORDER BY c.sort_order DESC
		LIMIT 1
	`
	parent, err := scanChunk(s.db.QueryRowContext(ctx, query,
		ref.DocumentID, encodeStrings(ref.ParentPath()), ref.SortOrder))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return parent, err
}

// FindPrecedingSiblingChunks returns up to limit siblings right before the
// reference chunk, in document order
func (s *SQLiteStorage) FindPrecedingSiblingChunks(ctx context.Context, library, version string, chunkID int64, limit int) ([]*Chunk, error) {
	ref, err := s.scopedChunk(ctx, library, version, chunkID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []*Chunk{}, nil
	}

	query := chunkColumns + `
		WHERE c.document_id = ? AND c.level = ? AND c.parent_path = ? AND c.sort_order < ?
		ORDER BY c.sort_order DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query,
		ref.DocumentID, ref.Level, encodeStrings(ref.ParentPath()), ref.SortOrder, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query preceding siblings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	chunks, err := collectChunks(rows)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(chunks)-1; i < j; i, j = i+1, j-1 {
		chunks[i], chunks[j] = chunks[j], chunks[i]
	}
	return chunks, nil
}

// FindSubsequentSiblingChunks returns up to limit siblings right after the
// reference chunk, in document order
func (s *SQLiteStorage) FindSubsequentSiblingChunks(ctx context.Context, library, version string, chunkID int64, limit int) ([]*Chunk, error) {
	ref, err := s.scopedChunk(ctx, library, version, chunkID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []*Chunk{}, nil
	}

	query := chunkColumns + `
		WHERE c.document_id = ? AND c.level = ? AND c.parent_path = ? AND c.sort_order > ?
		ORDER BY c.sort_order
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query,
		ref.DocumentID, ref.Level, encodeStrings(ref.ParentPath()), ref.SortOrder, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query subsequent siblings: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectChunks(rows)
}

// FindChildChunks returns up to limit direct children of the reference chunk
// that follow it in the document
func (s *SQLiteStorage) FindChildChunks(ctx context.Context, library, version string, chunkID int64, limit int) ([]*Chunk, error) {
	ref, err := s.scopedChunk(ctx, library, version, chunkID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []*Chunk{}, nil
	}

	query := chunkColumns + `
		WHERE c.document_id = ? AND c.level = ? AND c.parent_path = ? AND c.sort_order > ?
		ORDER BY c.sort_order
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query,
		ref.DocumentID, ref.Level+1, encodeStrings(ref.Path), ref.SortOrder, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query child chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectChunks(rows)
}

// FindChunksByIDs fetches the given chunks of one library version ordered by
// sort_order. IDs outside the version are silently skipped.
func (s *SQLiteStorage) FindChunksByIDs(ctx context.Context, library, version string, ids []int64) ([]*Chunk, error) {
	if len(ids) == 0 {
		return []*Chunk{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, 0, len(ids)+2)
	args = append(args, normalizeLibrary(library), normalizeVersion(version))
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}

	query := chunkColumns + `
		WHERE l.name = ? AND v.name = ? AND c.id IN (` + strings.Join(placeholders, ",") + `)
		ORDER BY c.sort_order, c.id
	`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectChunks(rows)
}

// Status operations

func (s *SQLiteStorage) GetStatus(ctx context.Context) (*Status, error) {
	status := &Status{
		BuildMode:       BuildMode,
		VectorExtension: VectorExtensionAvailable,
	}

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM libraries", &status.Libraries},
		{"SELECT COUNT(*) FROM versions", &status.Versions},
		{"SELECT COUNT(*) FROM documents", &status.Documents},
		{"SELECT COUNT(*) FROM chunks", &status.Chunks},
		{"SELECT COUNT(*) FROM embeddings", &status.Embeddings},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, err
		}
	}

	var lastIndexedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT last_indexed_at FROM versions
		WHERE last_indexed_at IS NOT NULL
		ORDER BY last_indexed_at DESC
		LIMIT 1
	`).Scan(&lastIndexedAt)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if lastIndexedAt.Valid {
		status.LastIndexedAt = lastIndexedAt.Time
	}

	schema, err := schemaVersion(ctx, s.db)
	if err != nil {
		return nil, err
	}
	status.SchemaVersion = schema.String()

	var pageCount, pageSize int
	err = s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	if err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.IndexSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	status.Health = HealthStatus{
		DatabaseAccessible:  true,
		EmbeddingsAvailable: status.Embeddings > 0,
		FTSIndexesBuilt:     true, // created by the migrations
	}

	return status, nil
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteTx) GetOrCreateVersion(ctx context.Context, library, version string) (*Version, error) {
	return t.storage.getOrCreateVersionWithQuerier(ctx, t.tx, library, version)
}

func (t *sqliteTx) UpsertDocument(ctx context.Context, doc *Document) error {
	return t.storage.upsertDocumentWithQuerier(ctx, t.tx, doc)
}

func (t *sqliteTx) GetDocument(ctx context.Context, versionID int64, url string) (*Document, error) {
	return t.storage.getDocumentWithQuerier(ctx, t.tx, versionID, url)
}

func (t *sqliteTx) DeleteDocument(ctx context.Context, documentID int64) error {
	return t.storage.deleteDocumentWithQuerier(ctx, t.tx, documentID)
}

func (t *sqliteTx) ReplaceDocumentChunks(ctx context.Context, documentID int64, chunks []*Chunk) error {
	return t.storage.replaceDocumentChunksWithQuerier(ctx, t.tx, documentID, chunks)
}

func (t *sqliteTx) UpsertEmbedding(ctx context.Context, embedding *Embedding) error {
	return t.storage.upsertEmbeddingWithQuerier(ctx, t.tx, embedding)
}
