package chunker

import (
	"strings"

	"github.com/dshills/docsearch-mcp/pkg/types"
)

// GreedySplitter wraps a base splitter and reshapes its output to the size
// bounds. Oversized chunks are split on line boundaries; small neighbours are
// merged forward while they stay inside the same part of the hierarchy.
// Content order is never changed.
type GreedySplitter struct {
	base          DocumentSplitter
	minSize       int
	preferredSize int
	maxSize       int
}

// NewGreedySplitter wraps base with size optimisation
func NewGreedySplitter(base DocumentSplitter, opts Options) *GreedySplitter {
	opts = opts.withDefaults()
	return &GreedySplitter{
		base:          base,
		minSize:       opts.MinChunkSize,
		preferredSize: opts.PreferredChunkSize,
		maxSize:       opts.MaxChunkSize,
	}
}

// SplitText runs the base splitter and merges its chunks
func (g *GreedySplitter) SplitText(content, contentType string) ([]*types.Chunk, error) {
	chunks, err := g.base.SplitText(content, contentType)
	if err != nil {
		return nil, err
	}

	// The raw fallback for unparseable JSON is passed through unbounded
	if len(chunks) == 1 && len(chunks[0].Section.Path) == 1 && chunks[0].Section.Path[0] == invalidJSONLabel {
		return chunks, nil
	}

	bounded, err := g.enforceMax(chunks)
	if err != nil {
		return nil, err
	}
	return g.merge(bounded, IsMarkdownContentType(contentType)), nil
}

// enforceMax line-splits any chunk over the maximum, keeping its path and types
func (g *GreedySplitter) enforceMax(chunks []*types.Chunk) ([]*types.Chunk, error) {
	out := make([]*types.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Content) <= g.maxSize {
			out = append(out, c)
			continue
		}

		var buf strings.Builder
		for _, line := range splitLines(c.Content) {
			if len(line) > g.maxSize {
				return nil, &MinimumChunkSizeError{Size: len(line), Max: g.maxSize}
			}
			if buf.Len()+len(line) > g.maxSize {
				out = append(out, types.NewChunk(buf.String(), c.Section.Path, c.Types...))
				buf.Reset()
			}
			buf.WriteString(line)
		}
		if buf.Len() > 0 {
			out = append(out, types.NewChunk(buf.String(), c.Section.Path, c.Types...))
		}
	}
	return out, nil
}

// merge folds chunks forward. A group always absorbs its neighbour while it is
// under the minimum size, stops growing at the preferred size, and in between
// only absorbs neighbours that stay within the group's parent section.
// Undersized groups left stranded mid-document go back into their predecessor.
func (g *GreedySplitter) merge(chunks []*types.Chunk, markdown bool) []*types.Chunk {
	out := make([]*types.Chunk, 0, len(chunks))
	var current *types.Chunk

	for _, next := range chunks {
		if current == nil {
			current = cloneChunk(next)
			continue
		}

		sep := separator(current.Content, markdown)
		if len(current.Content)+len(sep)+len(next.Content) <= g.maxSize && g.shouldMerge(current, next) {
			appendChunk(current, next, sep)
			continue
		}

		g.emit(&out, current, markdown)
		current = cloneChunk(next)
	}

	if current != nil {
		out = append(out, current)
	}
	return out
}

// emit closes a group. A group still under the minimum that could not grow
// forward is folded into the previous output chunk when the result fits.
// Only the final group of a document may stay below the minimum.
func (g *GreedySplitter) emit(out *[]*types.Chunk, group *types.Chunk, markdown bool) {
	if len(group.Content) < g.minSize && len(*out) > 0 {
		prev := (*out)[len(*out)-1]
		sep := separator(prev.Content, markdown)
		if len(prev.Content)+len(sep)+len(group.Content) <= g.maxSize {
			appendChunk(prev, group, sep)
			return
		}
	}
	*out = append(*out, group)
}

func (g *GreedySplitter) shouldMerge(current, next *types.Chunk) bool {
	if len(current.Content) < g.minSize {
		return true
	}
	if len(current.Content) >= g.preferredSize {
		return false
	}
	return staysLocal(current, next)
}

// staysLocal reports whether next belongs under the parent of current without
// moving back up the hierarchy
func staysLocal(current, next *types.Chunk) bool {
	if next.Section.Level < current.Section.Level {
		return false
	}
	return next.Section.HasPrefix(current.Section.ParentPath())
}

// separator returns the text inserted between merged contents. Markdown blocks
// are trimmed and need a blank line; everything else only needs a line break
// when the previous piece does not already end with one.
func separator(previous string, markdown bool) string {
	if markdown {
		return "\n\n"
	}
	if previous == "" || strings.HasSuffix(previous, "\n") {
		return ""
	}
	return "\n"
}

func appendChunk(dst, src *types.Chunk, sep string) {
	dst.Content += sep + src.Content
	dst.AddTypes(src.Types...)
}

func cloneChunk(c *types.Chunk) *types.Chunk {
	clone := types.NewChunk(c.Content, c.Section.Path)
	clone.Types = append([]types.ChunkType(nil), c.Types...)
	return clone
}
