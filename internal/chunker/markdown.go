package chunker

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/dshills/docsearch-mcp/pkg/types"
)

// MarkdownSplitter splits markdown into top-level blocks. Headings build the
// section path, fenced code becomes code chunks and everything else is text.
// Chunk contents are trimmed, so blocks are rejoined with blank lines.
type MarkdownSplitter struct {
	md goldmark.Markdown
}

// NewMarkdownSplitter creates a goldmark-backed markdown splitter
func NewMarkdownSplitter(_ Options) *MarkdownSplitter {
	return &MarkdownSplitter{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

type headingEntry struct {
	level int
	title string
}

type markdownBlock struct {
	node  ast.Node
	start int
}

// SplitText splits markdown content into heading, text and code chunks
func (s *MarkdownSplitter) SplitText(content, _ string) ([]*types.Chunk, error) {
	src := []byte(content)
	doc := s.md.Parser().Parse(text.NewReader(src))
	blocks := topLevelBlocks(doc, src)

	chunks := make([]*types.Chunk, 0, len(blocks))
	var stack []headingEntry
	for i, b := range blocks {
		end := len(src)
		if i+1 < len(blocks) {
			end = blocks[i+1].start
		}
		body := strings.TrimSpace(string(src[b.start:end]))
		if body == "" {
			continue
		}

		switch n := b.node.(type) {
		case *ast.Heading:
			for len(stack) > 0 && stack[len(stack)-1].level >= n.Level {
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, headingEntry{level: n.Level, title: headingTitle(n, src)})
			chunks = append(chunks, types.NewChunk(body, headingPath(stack), types.ChunkHeading))
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			chunks = append(chunks, types.NewChunk(body, headingPath(stack), types.ChunkCode))
		default:
			chunks = append(chunks, types.NewChunk(body, headingPath(stack), types.ChunkText))
		}
	}
	return chunks, nil
}

// topLevelBlocks returns the document's top-level blocks with the offset of the
// source line each one starts on. Blocks without source lines (thematic breaks,
// empty fences) are absorbed by the preceding block.
func topLevelBlocks(doc ast.Node, src []byte) []markdownBlock {
	blocks := make([]markdownBlock, 0)
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		anchor, ok := firstSegmentStart(n)
		if !ok {
			continue
		}
		start := lineStartOf(src, anchor)
		if fenced, isFenced := n.(*ast.FencedCodeBlock); isFenced && fenced.Info == nil && start > 0 {
			// The opening fence sits on the line above the first content line
			start = lineStartOf(src, start-1)
		}
		if len(blocks) == 0 {
			start = 0
		} else if start <= blocks[len(blocks)-1].start {
			continue
		}
		blocks = append(blocks, markdownBlock{node: n, start: start})
	}
	return blocks
}

// firstSegmentStart finds the first source offset covered by a block or its
// block descendants
func firstSegmentStart(n ast.Node) (int, bool) {
	if n.Type() != ast.TypeBlock {
		return 0, false
	}
	if fenced, ok := n.(*ast.FencedCodeBlock); ok && fenced.Info != nil {
		return fenced.Info.Segment.Start, true
	}
	if lines := n.Lines(); lines != nil && lines.Len() > 0 {
		return lines.At(0).Start, true
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if start, ok := firstSegmentStart(c); ok {
			return start, true
		}
	}
	return 0, false
}

func lineStartOf(src []byte, offset int) int {
	if offset > len(src) {
		offset = len(src)
	}
	return bytes.LastIndexByte(src[:offset], '\n') + 1
}

func headingTitle(h *ast.Heading, src []byte) string {
	var b strings.Builder
	lines := h.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
	title := strings.TrimSpace(b.String())
	if title == "" {
		return "untitled"
	}
	return title
}

func headingPath(stack []headingEntry) []string {
	path := make([]string, len(stack))
	for i, h := range stack {
		path[i] = h.title
	}
	return path
}
