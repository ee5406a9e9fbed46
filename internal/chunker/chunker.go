package chunker

import (
	"fmt"
	"mime"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dshills/docsearch-mcp/pkg/types"
)

const (
	// DefaultMinChunkSize is the size below which merged chunks keep absorbing neighbours
	DefaultMinChunkSize = 500

	// DefaultPreferredChunkSize is the size at which merging stops
	DefaultPreferredChunkSize = 1500

	// DefaultMaxChunkSize is the hard upper bound on chunk content length
	DefaultMaxChunkSize = 5000

	// DefaultMinLinesPerChunk is the line count after which a half-full text chunk is cut
	DefaultMinLinesPerChunk = 5

	// DefaultJSONMaxDepth bounds structural recursion into nested JSON
	DefaultJSONMaxDepth = 5

	// DefaultJSONMaxChunks is the chunk count above which JSON falls back to text splitting
	DefaultJSONMaxChunks = 1000
)

// DocumentSplitter turns a whole document into ordered hierarchical chunks.
// Implementations are stateless and safe for concurrent use.
type DocumentSplitter interface {
	SplitText(content, contentType string) ([]*types.Chunk, error)
}

// Options configures every splitter in the package
type Options struct {
	MinChunkSize       int
	PreferredChunkSize int
	MaxChunkSize       int
	MinLinesPerChunk   int

	// JSON
	MaxDepth           int
	MaxChunks          int
	PreserveFormatting bool

	// Source code: content types handled structurally
	SupportedLanguages []string
}

// DefaultOptions returns the default splitter configuration
func DefaultOptions() Options {
	return Options{
		MinChunkSize:       DefaultMinChunkSize,
		PreferredChunkSize: DefaultPreferredChunkSize,
		MaxChunkSize:       DefaultMaxChunkSize,
		MinLinesPerChunk:   DefaultMinLinesPerChunk,
		MaxDepth:           DefaultJSONMaxDepth,
		MaxChunks:          DefaultJSONMaxChunks,
		PreserveFormatting: true,
		SupportedLanguages: DefaultSupportedLanguages(),
	}
}

// Validate checks that the size bounds are consistent
func (o Options) Validate() error {
	if o.MaxChunkSize <= 0 {
		return fmt.Errorf("max chunk size must be positive, got %d", o.MaxChunkSize)
	}
	if o.MinChunkSize < 0 || o.MinChunkSize > o.PreferredChunkSize {
		return fmt.Errorf("min chunk size %d must be between 0 and preferred size %d", o.MinChunkSize, o.PreferredChunkSize)
	}
	if o.PreferredChunkSize > o.MaxChunkSize {
		return fmt.Errorf("preferred chunk size %d exceeds max chunk size %d", o.PreferredChunkSize, o.MaxChunkSize)
	}
	if o.MaxDepth < 1 {
		return fmt.Errorf("json max depth must be at least 1, got %d", o.MaxDepth)
	}
	if o.MaxChunks < 1 {
		return fmt.Errorf("json max chunks must be at least 1, got %d", o.MaxChunks)
	}
	return nil
}

// withDefaults fills zero values so a partially populated Options still works
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MinChunkSize == 0 {
		o.MinChunkSize = d.MinChunkSize
	}
	if o.PreferredChunkSize == 0 {
		o.PreferredChunkSize = d.PreferredChunkSize
	}
	if o.MaxChunkSize == 0 {
		o.MaxChunkSize = d.MaxChunkSize
	}
	if o.MinLinesPerChunk == 0 {
		o.MinLinesPerChunk = d.MinLinesPerChunk
	}
	if o.MaxDepth == 0 {
		o.MaxDepth = d.MaxDepth
	}
	if o.MaxChunks == 0 {
		o.MaxChunks = d.MaxChunks
	}
	if o.SupportedLanguages == nil {
		o.SupportedLanguages = d.SupportedLanguages
	}
	return o
}

// Kind is the closed set of base splitters selected per document
type Kind int

const (
	KindText Kind = iota
	KindJSON
	KindSourceCode
	KindMarkdown
)

// String returns the kind name used in logs
func (k Kind) String() string {
	switch k {
	case KindJSON:
		return "json"
	case KindSourceCode:
		return "source"
	case KindMarkdown:
		return "markdown"
	default:
		return "text"
	}
}

// KindForContentType picks the base splitter for a MIME type
func KindForContentType(contentType string, opts Options) Kind {
	mt := normalizeMediaType(contentType)
	switch {
	case IsMarkdownContentType(mt):
		return KindMarkdown
	case mt == "application/json" || mt == "text/json" || strings.HasSuffix(mt, "+json"):
		return KindJSON
	}
	for _, supported := range opts.SupportedLanguages {
		if mt == normalizeMediaType(supported) {
			return KindSourceCode
		}
	}
	return KindText
}

// New builds the base splitter for a kind, without size optimisation
func New(kind Kind, opts Options) DocumentSplitter {
	opts = opts.withDefaults()
	switch kind {
	case KindJSON:
		return NewJSONSplitter(opts)
	case KindSourceCode:
		return NewSourceCodeSplitter(opts)
	case KindMarkdown:
		return NewMarkdownSplitter(opts)
	default:
		return NewTextSplitter(opts)
	}
}

// ForContentType returns the size-optimised splitter for a document's content type
func ForContentType(contentType string, opts Options) DocumentSplitter {
	opts = opts.withDefaults()
	kind := KindForContentType(contentType, opts)
	log.Debug().Str("content_type", contentType).Stringer("splitter", kind).Msg("splitter selected")
	return NewGreedySplitter(New(kind, opts), opts)
}

// IsMarkdownContentType reports whether chunks of this type are rich text blocks
// that are joined with blank lines
func IsMarkdownContentType(contentType string) bool {
	switch normalizeMediaType(contentType) {
	case "text/markdown", "text/x-markdown", "text/html", "application/xhtml+xml":
		return true
	}
	return false
}

// normalizeMediaType strips parameters and lower-cases a MIME type
func normalizeMediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// splitLines splits content into lines that keep their terminators, so joining
// the result reproduces the input exactly
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.SplitAfter(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
