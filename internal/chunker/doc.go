// Package chunker divides documents into ordered, size-bounded chunks for
// embedding and search.
//
// Every splitter implements DocumentSplitter. Chunks carry a hierarchical
// section path (level always equals the path length) and are emitted in
// document order, so concatenating them restores the document.
//
// # Basic Usage
//
//	s := chunker.ForContentType("application/json", chunker.DefaultOptions())
//	chunks, err := s.SplitText(content, "application/json")
//	if err != nil {
//	    var sizeErr *chunker.MinimumChunkSizeError
//	    if errors.As(err, &sizeErr) {
//	        // one line is longer than MaxChunkSize; skip the document
//	    }
//	}
//
// # Splitters
//
//   - TextSplitter: accumulates lines, paths [<language>-file, section-N]
//   - JSONSplitter: building-block chunks that rejoin (with newlines) into valid JSON
//   - SourceCodeSplitter: TypeScript/JavaScript declarations, methods and bodies
//   - MarkdownSplitter: heading-scoped blocks parsed with goldmark
//   - GreedySplitter: wraps any of the above and merges chunks toward
//     PreferredChunkSize without exceeding MaxChunkSize
//
// ForContentType selects the base splitter once per document and always
// wraps it in a GreedySplitter.
//
// # Fallbacks
//
// Structural splitters degrade to TextSplitter instead of failing: invalid
// JSON produces a single ["invalid-json"] chunk, too many JSON chunks or a
// brace mismatch in source code re-split the raw content as text. The only
// error returned for well-formed input is MinimumChunkSizeError.
package chunker
