package chunker

import (
	"fmt"
	"strings"

	"github.com/dshills/docsearch-mcp/pkg/types"
)

// TextSplitter accumulates lines into chunks. It is the fallback for every
// other splitter and handles content types with no structural splitter.
type TextSplitter struct {
	maxChunkSize     int
	minLinesPerChunk int
}

// NewTextSplitter creates a line-accumulating splitter
func NewTextSplitter(opts Options) *TextSplitter {
	opts = opts.withDefaults()
	return &TextSplitter{
		maxChunkSize:     opts.MaxChunkSize,
		minLinesPerChunk: opts.MinLinesPerChunk,
	}
}

// SplitText splits content into sections labelled [<language>-file, section-N]
func (s *TextSplitter) SplitText(content, contentType string) ([]*types.Chunk, error) {
	segments, err := s.splitSegments(content)
	if err != nil {
		return nil, err
	}

	root := rootLabel(detectLanguage(content, contentType))
	chunks := make([]*types.Chunk, 0, len(segments))
	for i, seg := range segments {
		chunks = append(chunks, types.NewChunk(seg, []string{root, fmt.Sprintf("section-%d", i+1)}, types.ChunkText))
	}
	return chunks, nil
}

// splitSegments applies the cut policy and returns raw chunk contents.
// Joining the segments reproduces content exactly.
func (s *TextSplitter) splitSegments(content string) ([]string, error) {
	lines := splitLines(content)
	if len(lines) == 0 {
		return nil, nil
	}

	segments := make([]string, 0)
	var buf []string
	size := 0

	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		if size > s.maxChunkSize {
			return &MinimumChunkSizeError{Size: size, Max: s.maxChunkSize}
		}
		segments = append(segments, strings.Join(buf, ""))
		buf = buf[:0]
		size = 0
		return nil
	}

	for i, line := range lines {
		// Defer the line to the next chunk rather than overflow this one
		if len(buf) > 0 && size+len(line) > s.maxChunkSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}

		buf = append(buf, line)
		size += len(line)

		if s.shouldCut(i == len(lines)-1, len(buf), size) {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}

	return segments, nil
}

// shouldCut decides whether the buffered lines form a complete chunk
func (s *TextSplitter) shouldCut(lastLine bool, lineCount, size int) bool {
	if lastLine {
		return true
	}
	if lineCount >= s.minLinesPerChunk && size*2 >= s.maxChunkSize {
		return true
	}
	return size*10 >= s.maxChunkSize*8
}
