package storage

import (
	"cmp"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"
)

// scopeJoin restricts chunk queries to one library version
const scopeJoin = `
	INNER JOIN documents d ON c.document_id = d.id
	INNER JOIN versions v ON d.version_id = v.id
	INNER JOIN libraries l ON v.library_id = l.id
	WHERE l.name = ? AND v.name = ?
`

// searchVector performs vector similarity search using cosine similarity
func searchVector(ctx context.Context, q querier, scope Scope, queryVector []float32, limit int) ([]VectorResult, error) {
	if limit <= 0 || len(queryVector) == 0 {
		return []VectorResult{}, nil
	}
	if VectorExtensionAvailable {
		return searchVectorOptimized(ctx, q, scope, queryVector, limit)
	}
	return searchVectorFallback(ctx, q, scope, queryVector, limit)
}

// searchVectorOptimized lets sqlite-vec rank candidates inside the database
func searchVectorOptimized(ctx context.Context, q querier, scope Scope, queryVector []float32, limit int) ([]VectorResult, error) {
	// vec_distance_cosine returns a distance, lower is better
	query := `
		SELECT
			c.id AS chunk_id,
			1.0 - vec_distance_cosine(e.vector, ?) AS similarity
		FROM chunks c
		INNER JOIN embeddings e ON c.id = e.chunk_id
	` + scopeJoin + `
		AND e.dimension = ?
		ORDER BY similarity DESC
		LIMIT ?
	`
	rows, err := q.QueryContext(ctx, query,
		SerializeVector(queryVector), normalizeLibrary(scope.Library), normalizeVersion(scope.Version),
		len(queryVector), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]VectorResult, 0, limit)
	for rows.Next() {
		var result VectorResult
		if err := rows.Scan(&result.ChunkID, &result.SimilarityScore); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// searchVectorFallback computes cosine similarity in Go for builds without
// the vector extension
func searchVectorFallback(ctx context.Context, q querier, scope Scope, queryVector []float32, limit int) ([]VectorResult, error) {
	query := `
		SELECT c.id AS chunk_id, e.vector
		FROM chunks c
		INNER JOIN embeddings e ON c.id = e.chunk_id
	` + scopeJoin
	rows, err := q.QueryContext(ctx, query, normalizeLibrary(scope.Library), normalizeVersion(scope.Version))
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return rankByCosine(rows, queryVector, limit)
}

// searchText performs BM25 full-text search using FTS5
func searchText(ctx context.Context, q querier, scope Scope, query string, limit int) ([]TextResult, error) {
	sanitized := sanitizeFTSQuery(query)
	if sanitized == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		return []TextResult{}, nil
	}

	sqlQuery := `
		SELECT
			c.id AS chunk_id,
			bm25(chunks_fts) AS score
		FROM chunks_fts
		INNER JOIN chunks c ON chunks_fts.rowid = c.id
	` + scopeJoin + `
		AND chunks_fts MATCH ?
		ORDER BY score
		LIMIT ?
	`
	rows, err := q.QueryContext(ctx, sqlQuery,
		normalizeLibrary(scope.Library), normalizeVersion(scope.Version), sanitized, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute FTS search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectTextResults(rows)
}

// rankByCosine scores every (chunk_id, vector) row against the query and
// keeps the best limit. Vectors of another dimension come from a different
// model and are ignored. Equal scores fall back to chunk id.
func rankByCosine(rows *sql.Rows, queryVector []float32, limit int) ([]VectorResult, error) {
	var results []VectorResult
	for rows.Next() {
		var id int64
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, err
		}
		vector := DeserializeVector(blob)
		if len(vector) != len(queryVector) {
			continue
		}
		results = append(results, VectorResult{ChunkID: id, SimilarityScore: CosineSimilarity(queryVector, vector)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b VectorResult) int {
		if c := cmp.Compare(b.SimilarityScore, a.SimilarityScore); c != 0 {
			return c
		}
		return cmp.Compare(a.ChunkID, b.ChunkID)
	})
	if len(results) > limit {
		results = results[:limit]
	}
	if results == nil {
		results = []VectorResult{}
	}
	return results, nil
}

// collectTextResults maps BM25 scores (negative, lower is better) into (0, 1]
func collectTextResults(rows *sql.Rows) ([]TextResult, error) {
	results := make([]TextResult, 0)

	for rows.Next() {
		var result TextResult
		if err := rows.Scan(&result.ChunkID, &result.BM25Score); err != nil {
			return nil, err
		}
		result.BM25Score = 1.0 / (1.0 + math.Abs(result.BM25Score)/50.0)
		results = append(results, result)
	}

	return results, rows.Err()
}

// ftsTermPattern matches the runs of letters, digits and underscores that
// become FTS5 terms
var ftsTermPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// sanitizeFTSQuery turns free text into an FTS5 expression that cannot carry
// operators or column filters: every term is quoted and the terms are OR-ed.
func sanitizeFTSQuery(query string) string {
	terms := ftsTermPattern.FindAllString(query, -1)
	if len(terms) == 0 {
		return ""
	}
	quoted := make([]string, len(terms))
	for i, term := range terms {
		quoted[i] = `"` + term + `"`
	}
	return strings.Join(quoted, " OR ")
}

// SerializeVector encodes a vector as little-endian float32s, the format
// of the embeddings.vector column
func SerializeVector(vector []float32) []byte {
	blob := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[4*i:], math.Float32bits(v))
	}
	return blob
}

// DeserializeVector decodes a blob written by SerializeVector. A trailing
// partial value is dropped.
func DeserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return vector
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0
// when the lengths differ or either vector is zero
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / math.Sqrt(na*nb)
}
