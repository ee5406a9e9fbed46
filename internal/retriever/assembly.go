package retriever

import (
	"strings"

	"github.com/dshills/docsearch-mcp/internal/chunker"
	"github.com/dshills/docsearch-mcp/internal/storage"
)

// AssemblyStrategy joins the chunks of one cluster into result text. Chunks
// arrive in document order.
type AssemblyStrategy interface {
	Name() string
	Assemble(chunks []*storage.Chunk) string
}

// MarkdownAssembly separates chunks with a blank line. Used for markdown,
// HTML-derived documents and documents of unknown type.
type MarkdownAssembly struct{}

func (MarkdownAssembly) Name() string { return "markdown" }

func (MarkdownAssembly) Assemble(chunks []*storage.Chunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Content
	}
	return strings.Join(parts, "\n\n")
}

// HierarchicalAssembly concatenates chunks as stored. Structural splitters
// emit chunks that already carry their own line breaks, so any separator
// would corrupt code and JSON.
type HierarchicalAssembly struct{}

func (HierarchicalAssembly) Name() string { return "hierarchical" }

func (HierarchicalAssembly) Assemble(chunks []*storage.Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Content)
	}
	return b.String()
}

// StrategyFor picks the assembly strategy for a document's MIME type
func StrategyFor(mimeType string) AssemblyStrategy {
	if strings.TrimSpace(mimeType) == "" || chunker.IsMarkdownContentType(mimeType) {
		return MarkdownAssembly{}
	}
	return HierarchicalAssembly{}
}
