package storage

import (
	"context"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	// Use in-memory database for testing
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NotNil(t, storage)
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

// seedDocument creates library/version/document rows and stores chunks with
// the given paths, returning the document and its chunks in order
func seedDocument(t *testing.T, s *SQLiteStorage, library, version, url string, paths [][]string) (*Document, []*Chunk) {
	t.Helper()
	ctx := context.Background()

	v, err := s.GetOrCreateVersion(ctx, library, version)
	require.NoError(t, err)

	doc := &Document{
		VersionID:   v.ID,
		URL:         url,
		ContentType: "text/markdown",
		ContentHash: sha256.Sum256([]byte(url)),
	}
	require.NoError(t, s.UpsertDocument(ctx, doc))

	chunks := make([]*Chunk, len(paths))
	for i, path := range paths {
		chunks[i] = &Chunk{
			Content: url + " chunk " + string(rune('a'+i)),
			Types:   []string{"text"},
			Path:    path,
		}
	}
	require.NoError(t, s.ReplaceDocumentChunks(ctx, doc.ID, chunks))
	return doc, chunks
}

func TestNewSQLiteStorage(t *testing.T) {
	storage := setupTestDB(t)
	assert.NotNil(t, storage.db)
}

func TestClose(t *testing.T) {
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	assert.NoError(t, storage.Close())
}

func TestGetOrCreateVersion(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	v, err := storage.GetOrCreateVersion(ctx, "  React ", "18.2.0")
	require.NoError(t, err)
	assert.Greater(t, v.ID, int64(0))
	assert.Equal(t, "react", v.Library)
	assert.Equal(t, "18.2.0", v.Name)

	again, err := storage.GetOrCreateVersion(ctx, "react", "18.2.0")
	require.NoError(t, err)
	assert.Equal(t, v.ID, again.ID)
	assert.Equal(t, v.LibraryID, again.LibraryID)

	unversioned, err := storage.GetOrCreateVersion(ctx, "react", "")
	require.NoError(t, err)
	assert.NotEqual(t, v.ID, unversioned.ID)
	assert.Equal(t, v.LibraryID, unversioned.LibraryID)

	_, err = storage.GetOrCreateVersion(ctx, "   ", "1.0")
	assert.ErrorIs(t, err, ErrEmptyLibrary)
}

func TestGetVersion_NotFound(t *testing.T) {
	storage := setupTestDB(t)

	_, err := storage.GetVersion(context.Background(), "missing", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertDocument(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	v, err := storage.GetOrCreateVersion(ctx, "lib", "1.0")
	require.NoError(t, err)

	doc := &Document{
		VersionID:   v.ID,
		URL:         "https://example.com/guide",
		ContentType: "text/markdown",
		ContentHash: sha256.Sum256([]byte("first")),
		SizeBytes:   5,
	}
	require.NoError(t, storage.UpsertDocument(ctx, doc))
	firstID := doc.ID
	assert.Greater(t, firstID, int64(0))

	updated := &Document{
		VersionID:   v.ID,
		URL:         "https://example.com/guide",
		ContentType: "text/html",
		ContentHash: sha256.Sum256([]byte("second")),
		SizeBytes:   6,
	}
	require.NoError(t, storage.UpsertDocument(ctx, updated))
	assert.Equal(t, firstID, updated.ID, "upsert keeps the row id")

	stored, err := storage.GetDocument(ctx, v.ID, "https://example.com/guide")
	require.NoError(t, err)
	assert.Equal(t, "text/html", stored.ContentType)
	assert.Equal(t, sha256.Sum256([]byte("second")), stored.ContentHash)
	assert.Equal(t, int64(6), stored.SizeBytes)

	version, err := storage.GetVersion(ctx, "lib", "1.0")
	require.NoError(t, err)
	assert.False(t, version.LastIndexedAt.IsZero())

	err = storage.UpsertDocument(ctx, &Document{VersionID: v.ID})
	assert.Error(t, err)
}

func TestGetDocument_NotFound(t *testing.T) {
	storage := setupTestDB(t)

	_, err := storage.GetDocument(context.Background(), 1, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListDocuments(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	docB, _ := seedDocument(t, storage, "lib", "", "b.md", [][]string{{"b"}})
	docA, _ := seedDocument(t, storage, "lib", "", "a.md", [][]string{{"a"}})
	seedDocument(t, storage, "other", "", "c.md", [][]string{{"c"}})

	docs, err := storage.ListDocuments(ctx, docA.VersionID)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, docA.ID, docs[0].ID)
	assert.Equal(t, docB.ID, docs[1].ID)
}

func TestReplaceDocumentChunks(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	doc, chunks := seedDocument(t, storage, "lib", "1.0", "guide.md", [][]string{
		{},
		{"Intro"},
		{"Intro", "Install"},
	})

	for i, chunk := range chunks {
		assert.Greater(t, chunk.ID, int64(0))
		assert.Equal(t, i, chunk.SortOrder)
		assert.Equal(t, len(chunk.Path), chunk.Level)
		assert.Equal(t, sha256.Sum256([]byte(chunk.Content)), chunk.ContentHash)
	}

	stored, err := storage.ListChunksByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, []string{}, stored[0].Path)
	assert.Equal(t, []string{"Intro", "Install"}, stored[2].Path)
	assert.Equal(t, 2, stored[2].Level)
	assert.Equal(t, []string{"text"}, stored[2].Types)
	assert.Equal(t, "lib", stored[2].Library)
	assert.Equal(t, "1.0", stored[2].Version)
	assert.Equal(t, "guide.md", stored[2].URL)
	assert.Equal(t, "text/markdown", stored[2].ContentType)

	// Replacing drops the previous generation entirely
	replacement := []*Chunk{{Content: "only", Path: []string{"Only"}}}
	require.NoError(t, storage.ReplaceDocumentChunks(ctx, doc.ID, replacement))

	stored, err = storage.ListChunksByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "only", stored[0].Content)
	assert.Equal(t, 0, stored[0].SortOrder)

	_, err = storage.GetChunk(ctx, chunks[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertEmbedding(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	_, chunks := seedDocument(t, storage, "lib", "", "a.md", [][]string{{"a"}})

	embedding := &Embedding{
		ChunkID:   chunks[0].ID,
		Vector:    SerializeVector([]float32{1, 0, 0}),
		Dimension: 3,
		Provider:  "local",
		Model:     "hash-v1",
	}
	require.NoError(t, storage.UpsertEmbedding(ctx, embedding))
	assert.Greater(t, embedding.ID, int64(0))

	embedding.Vector = SerializeVector([]float32{0, 1, 0})
	require.NoError(t, storage.UpsertEmbedding(ctx, embedding))

	stored, err := storage.GetEmbedding(ctx, chunks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 0}, DeserializeVector(stored.Vector))
	assert.Equal(t, "local", stored.Provider)

	_, err = storage.GetEmbedding(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteDocument_Cascades(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	doc, chunks := seedDocument(t, storage, "lib", "", "a.md", [][]string{{"a"}, {"b"}})
	require.NoError(t, storage.UpsertEmbedding(ctx, &Embedding{
		ChunkID: chunks[0].ID, Vector: SerializeVector([]float32{1}), Dimension: 1,
		Provider: "local", Model: "m",
	}))

	require.NoError(t, storage.DeleteDocument(ctx, doc.ID))

	_, err := storage.GetChunk(ctx, chunks[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = storage.GetEmbedding(ctx, chunks[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListLibraries(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	seedDocument(t, storage, "vue", "3.0", "a.md", [][]string{{"a"}, {"b"}})
	seedDocument(t, storage, "react", "18", "a.md", [][]string{{"a"}})
	seedDocument(t, storage, "react", "17", "a.md", [][]string{{"a"}})
	seedDocument(t, storage, "react", "17", "b.md", [][]string{{"a"}, {"b"}, {"c"}})

	libraries, err := storage.ListLibraries(ctx)
	require.NoError(t, err)
	require.Len(t, libraries, 2)

	assert.Equal(t, "react", libraries[0].Name)
	require.Len(t, libraries[0].Versions, 2)
	assert.Equal(t, "17", libraries[0].Versions[0].Name)
	assert.Equal(t, 2, libraries[0].Versions[0].Documents)
	assert.Equal(t, 4, libraries[0].Versions[0].Chunks)
	assert.Equal(t, "18", libraries[0].Versions[1].Name)

	assert.Equal(t, "vue", libraries[1].Name)
	assert.Equal(t, 2, libraries[1].Versions[0].Chunks)
}

func TestDeleteVersion(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	_, chunks := seedDocument(t, storage, "react", "17", "a.md", [][]string{{"a"}})
	seedDocument(t, storage, "react", "18", "a.md", [][]string{{"a"}})

	require.NoError(t, storage.DeleteVersion(ctx, "react", "17"))

	_, err := storage.GetChunk(ctx, chunks[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)

	libraries, err := storage.ListLibraries(ctx)
	require.NoError(t, err)
	require.Len(t, libraries, 1)
	require.Len(t, libraries[0].Versions, 1)
	assert.Equal(t, "18", libraries[0].Versions[0].Name)

	require.NoError(t, storage.DeleteVersion(ctx, "react", "18"))
	libraries, err = storage.ListLibraries(ctx)
	require.NoError(t, err)
	assert.Empty(t, libraries)

	assert.ErrorIs(t, storage.DeleteVersion(ctx, "react", "18"), ErrNotFound)
}

func TestBeginTx_CommitRollback(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	// Rolled back work disappears
	tx, err := storage.BeginTx(ctx)
	require.NoError(t, err)
	_, err = tx.GetOrCreateVersion(ctx, "ghost", "")
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	_, err = storage.GetVersion(ctx, "ghost", "")
	assert.ErrorIs(t, err, ErrNotFound)

	// Committed work stays
	tx, err = storage.BeginTx(ctx)
	require.NoError(t, err)
	v, err := tx.GetOrCreateVersion(ctx, "real", "1")
	require.NoError(t, err)
	doc := &Document{VersionID: v.ID, URL: "a.md", ContentHash: sha256.Sum256([]byte("a"))}
	require.NoError(t, tx.UpsertDocument(ctx, doc))
	require.NoError(t, tx.ReplaceDocumentChunks(ctx, doc.ID, []*Chunk{{Content: "x", Path: []string{"x"}}}))
	require.NoError(t, tx.Commit())

	stored, err := storage.GetDocument(ctx, v.ID, "a.md")
	require.NoError(t, err)
	chunks, err := storage.ListChunksByDocument(ctx, stored.ID)
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}

func TestGetStatus(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	status, err := storage.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, status.Chunks)
	assert.Equal(t, CurrentSchemaVersion, status.SchemaVersion)
	assert.Equal(t, BuildMode, status.BuildMode)
	assert.True(t, status.LastIndexedAt.IsZero())

	_, chunks := seedDocument(t, storage, "lib", "1", "a.md", [][]string{{"a"}, {"b"}})
	require.NoError(t, storage.UpsertEmbedding(ctx, &Embedding{
		ChunkID: chunks[0].ID, Vector: SerializeVector([]float32{1}), Dimension: 1,
		Provider: "local", Model: "m",
	}))

	status, err = storage.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Libraries)
	assert.Equal(t, 1, status.Versions)
	assert.Equal(t, 1, status.Documents)
	assert.Equal(t, 2, status.Chunks)
	assert.Equal(t, 1, status.Embeddings)
	assert.False(t, status.LastIndexedAt.IsZero())
	assert.True(t, status.Health.DatabaseAccessible)
	assert.True(t, status.Health.EmbeddingsAvailable)
}
