// Package indexer feeds documents into the search index.
//
// IndexDocument runs the pipeline for one document:
//
//  1. hash the content and skip the document when the stored hash matches,
//     unless forced
//  2. split it with the chunker selected by its content type
//  3. embed the chunks in batches when an embedder is configured
//  4. in one transaction, create the library version, upsert the document,
//     replace its chunks and store the embeddings
//
// A failed document leaves its previous chunks untouched.
//
// IndexDocuments and IndexDirectory run the pipeline on a bounded errgroup
// worker pool. Per-document failures, including a chunk that cannot be
// split below the maximum size, are counted in Statistics and logged; the
// run continues unless Options.AbortOnError is set.
//
// IndexDirectory walks a tree with godirwalk, skipping hidden directories,
// node_modules and vendor, and picks each file's content type from its
// extension (see ContentTypeForPath).
//
//	idx, err := indexer.New(store, emb, indexer.Config{})
//	stats, err := idx.IndexDirectory(ctx, "./docs", "react", "18.2.0", indexer.DirectoryOptions{})
//	fmt.Printf("run %s: %d indexed, %d failed\n", stats.RunID, stats.DocumentsIndexed, stats.DocumentsFailed)
package indexer
