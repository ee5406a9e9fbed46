// Package retriever turns raw search hits into readable context.
//
// A search returns isolated chunks: a method body without its class, a
// paragraph without its heading. Service.Search over-fetches hits from the
// searcher, then expands every hit concurrently with its parent chain, a few
// siblings on each side and its first children. The union is fetched in
// document order and split into clusters per URL wherever the sort order
// jumps by more than Config.MaxChunkDistance.
//
// Each cluster holding at least one original hit becomes one
// types.SearchResult scored with its best hit. Markdown and HTML documents
// are joined with blank lines; code and JSON chunks are concatenated as is
// because they carry their own line breaks.
//
//	svc, err := retriever.NewService(searcher, retriever.DefaultConfig())
//	results, err := svc.Search(ctx, "react", "18.2.0", "cleanup effects", 5)
package retriever
