package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedClassFile stores the chunk layout a class with three methods produces
func seedClassFile(t *testing.T, s *SQLiteStorage) []*Chunk {
	t.Helper()
	_, chunks := seedDocument(t, s, "lib", "1.0", "user.ts", [][]string{
		{"typescript-file"},
		{"typescript-file", "UserService"},
		{"typescript-file", "UserService", "getUser"},
		{"typescript-file", "UserService", "saveUser"},
		{"typescript-file", "UserService", "deleteUser"},
		{"typescript-file", "UserService"},
		{"typescript-file", "helper"},
	})
	return chunks
}

func chunkIDs(chunks []*Chunk) []int64 {
	ids := make([]int64, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	return ids
}

func TestFindParentChunk(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	chunks := seedClassFile(t, storage)

	tests := []struct {
		name    string
		ref     int
		want    int
		wantErr error
	}{
		{name: "method resolves to the class opener", ref: 3, want: 1},
		{name: "closer resolves to the file root", ref: 5, want: 0},
		{name: "class resolves to the file root", ref: 1, want: 0},
		{name: "sibling function also resolves to the root", ref: 6, want: 0},
		{name: "root has no stored parent", ref: 0, wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parent, err := storage.FindParentChunk(ctx, "lib", "1.0", chunks[tt.ref].ID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, chunks[tt.want].ID, parent.ID)
		})
	}
}

func TestFindSiblingChunks(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	chunks := seedClassFile(t, storage)

	preceding, err := storage.FindPrecedingSiblingChunks(ctx, "lib", "1.0", chunks[4].ID, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{chunks[3].ID}, chunkIDs(preceding))

	preceding, err = storage.FindPrecedingSiblingChunks(ctx, "lib", "1.0", chunks[4].ID, 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{chunks[2].ID, chunks[3].ID}, chunkIDs(preceding), "document order")

	subsequent, err := storage.FindSubsequentSiblingChunks(ctx, "lib", "1.0", chunks[2].ID, 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{chunks[3].ID, chunks[4].ID}, chunkIDs(subsequent))

	subsequent, err = storage.FindSubsequentSiblingChunks(ctx, "lib", "1.0", chunks[1].ID, 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{chunks[5].ID, chunks[6].ID}, chunkIDs(subsequent))

	none, err := storage.FindPrecedingSiblingChunks(ctx, "lib", "1.0", chunks[2].ID, 5)
	require.NoError(t, err)
	assert.Empty(t, none)

	none, err = storage.FindSubsequentSiblingChunks(ctx, "lib", "1.0", chunks[2].ID, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFindChildChunks(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	chunks := seedClassFile(t, storage)

	children, err := storage.FindChildChunks(ctx, "lib", "1.0", chunks[1].ID, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{chunks[2].ID, chunks[3].ID, chunks[4].ID}, chunkIDs(children))

	children, err = storage.FindChildChunks(ctx, "lib", "1.0", chunks[1].ID, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{chunks[2].ID, chunks[3].ID}, chunkIDs(children))

	// The closer shares the class path but nothing follows it
	children, err = storage.FindChildChunks(ctx, "lib", "1.0", chunks[5].ID, 10)
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestHierarchyQueries_RespectScope(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	chunks := seedClassFile(t, storage)

	_, err := storage.FindParentChunk(ctx, "other", "1.0", chunks[3].ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = storage.FindChildChunks(ctx, "lib", "2.0", chunks[1].ID, 10)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = storage.FindPrecedingSiblingChunks(ctx, "lib", "1.0", 424242, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	// Library names are matched case-insensitively
	parent, err := storage.FindParentChunk(ctx, "LIB", "1.0", chunks[3].ID)
	require.NoError(t, err)
	assert.Equal(t, chunks[1].ID, parent.ID)
}

func TestFindChunksByIDs(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()
	chunks := seedClassFile(t, storage)
	_, foreign := seedDocument(t, storage, "other", "", "x.md", [][]string{{"x"}})

	found, err := storage.FindChunksByIDs(ctx, "lib", "1.0", []int64{
		chunks[4].ID, chunks[0].ID, foreign[0].ID, chunks[2].ID,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{chunks[0].ID, chunks[2].ID, chunks[4].ID}, chunkIDs(found))
	assert.Equal(t, 0, found[0].SortOrder)
	assert.Equal(t, "user.ts", found[0].URL)

	empty, err := storage.FindChunksByIDs(ctx, "lib", "1.0", nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
