// Package embedder turns chunk and query text into vectors for semantic
// search.
//
// Two providers implement Embedder:
//   - OpenAIProvider calls the OpenAI embeddings endpoint through go-openai,
//     or any compatible server when a base URL is configured
//   - LocalProvider hashes terms into a fixed 384-dimension vector; it needs
//     no network and is deterministic, so tests and offline installs use it
//
// # Provider Selection
//
// NewFromEnv picks a provider from the environment:
//
//  1. DOCSEARCH_EMBEDDING_PROVIDER, when set
//  2. openai, when OPENAI_API_KEY is set
//  3. local otherwise
//
// New does the same from an explicit Config, which is what the config
// package produces.
//
// # Batching and Caching
//
// GenerateBatch accepts up to MaxBatchSize texts. Embeddings are cached by
// the sha256 of their text in an LRU; cached texts are left out of the API
// request. Cached vectors are copied on the way in and out.
//
// # Errors
//
// Remote calls are retried with exponential backoff on network errors, rate
// limits and 5xx responses. Other failures are returned at once, wrapped in
// ErrProviderFailed:
//
//	resp, err := emb.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: texts})
//	if errors.Is(err, embedder.ErrProviderFailed) {
//	    // index without vectors or try again later
//	}
package embedder
