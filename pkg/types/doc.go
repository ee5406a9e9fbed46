// Package types provides shared type definitions for the docsearch MCP server.
//
// # Chunks
//
// Chunk is the value every splitter produces. Its Section carries the
// hierarchical path from the document root and a level that always equals
// the path length:
//
//	chunk := types.NewChunk("  \"name\": \"docsearch\",\n", []string{"root", "name"}, types.ChunkCode)
//	// chunk.Section.Level == 2
//
// Chunks of one document are emitted in document order. Joining them back
// in that order reproduces the document, which lets retrieval reassemble
// readable context windows from stored fragments.
//
// # Search Results
//
// SearchResult is one assembled context window: the concatenated content of
// a cluster of neighbouring chunks from a single URL, scored by the best
// matching chunk inside it.
package types
