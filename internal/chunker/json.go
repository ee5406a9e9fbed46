package chunker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/rs/zerolog/log"

	"github.com/dshills/docsearch-mcp/pkg/types"
)

// invalidJSONLabel is the path of the single raw chunk emitted for unparseable input
const invalidJSONLabel = "invalid-json"

// JSONSplitter emits building-block chunks that are individually incomplete
// but join with newlines into valid JSON. Keys keep their document order.
type JSONSplitter struct {
	maxDepth           int
	maxChunks          int
	preserveFormatting bool
	text               *TextSplitter
}

// NewJSONSplitter creates a structural JSON splitter
func NewJSONSplitter(opts Options) *JSONSplitter {
	opts = opts.withDefaults()
	return &JSONSplitter{
		maxDepth:           opts.MaxDepth,
		maxChunks:          opts.MaxChunks,
		preserveFormatting: opts.PreserveFormatting,
		text:               NewTextSplitter(opts),
	}
}

// SplitText splits a JSON document. Invalid JSON yields a single raw chunk at
// ["invalid-json"], which is not size bounded.
func (s *JSONSplitter) SplitText(content, contentType string) ([]*types.Chunk, error) {
	data := []byte(content)
	if !json.Valid(data) {
		log.Info().Str("reason", "invalid json").Int("size", len(content)).Msg("json splitter emitting raw chunk")
		return []*types.Chunk{types.NewChunk(content, []string{invalidJSONLabel}, types.ChunkText)}, nil
	}

	raw, dataType, _, err := jsonparser.Get(data)
	if err != nil {
		log.Info().Err(err).Str("reason", "traversal failed").Msg("json splitter falling back to text")
		return s.text.SplitText(content, contentType)
	}

	b := &jsonBuilder{splitter: s}
	if err := b.value(raw, dataType, []string{"root"}, 0, true); err != nil {
		log.Info().Err(err).Str("reason", "traversal failed").Msg("json splitter falling back to text")
		return s.text.SplitText(content, contentType)
	}

	if len(b.chunks) > s.maxChunks {
		log.Info().
			Str("reason", "too many chunks").
			Int("chunks", len(b.chunks)).
			Int("max_chunks", s.maxChunks).
			Msg("json splitter falling back to text")
		return s.text.SplitText(content, contentType)
	}

	return b.chunks, nil
}

// jsonBuilder accumulates chunks for one document
type jsonBuilder struct {
	splitter *JSONSplitter
	chunks   []*types.Chunk
}

type jsonEntry struct {
	key      []byte // unescaped
	value    []byte
	dataType jsonparser.ValueType
}

func (b *jsonBuilder) emit(content string, path []string) {
	b.chunks = append(b.chunks, types.NewChunk(content, path, types.ChunkCode))
}

func (b *jsonBuilder) indent(level int) string {
	if !b.splitter.preserveFormatting {
		return ""
	}
	return strings.Repeat("  ", level)
}

// value dispatches on the JSON type. Containers below maxDepth are flattened
// into a single chunk instead of recursing further.
func (b *jsonBuilder) value(raw []byte, dataType jsonparser.ValueType, path []string, indentLevel int, last bool) error {
	switch dataType {
	case jsonparser.Object, jsonparser.Array:
		if len(path) > b.splitter.maxDepth {
			return b.flattened(raw, path, indentLevel, last)
		}
		if dataType == jsonparser.Object {
			return b.object(raw, path, indentLevel, last)
		}
		return b.array(raw, path, indentLevel, last)
	default:
		b.emit(b.indent(indentLevel)+renderPrimitive(raw, dataType)+trailingComma(last), path)
		return nil
	}
}

func (b *jsonBuilder) object(raw []byte, path []string, indentLevel int, last bool) error {
	entries := make([]jsonEntry, 0)
	err := jsonparser.ObjectEach(raw, func(key, value []byte, dataType jsonparser.ValueType, _ int) error {
		entries = append(entries, jsonEntry{key: append([]byte(nil), key...), value: value, dataType: dataType})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk object at %s: %w", strings.Join(path, "."), err)
	}

	ind := b.indent(indentLevel)
	b.emit(ind+"{", path)
	for i, e := range entries {
		if err := b.property(e, appendPath(path, string(e.key)), indentLevel+1, i == len(entries)-1); err != nil {
			return err
		}
	}
	b.emit(ind+"}"+trailingComma(last), path)
	return nil
}

// property emits "key": value as one chunk for primitives, or a "key": opener
// followed by the recursively split value
func (b *jsonBuilder) property(e jsonEntry, path []string, indentLevel int, last bool) error {
	ind := b.indent(indentLevel)
	key := quoteKey(e.key) + ": "
	if e.dataType == jsonparser.Object || e.dataType == jsonparser.Array {
		b.emit(ind+key, path)
		return b.value(e.value, e.dataType, path, indentLevel, last)
	}
	b.emit(ind+key+renderPrimitive(e.value, e.dataType)+trailingComma(last), path)
	return nil
}

func (b *jsonBuilder) array(raw []byte, path []string, indentLevel int, last bool) error {
	entries := make([]jsonEntry, 0)
	var walkErr error
	_, err := jsonparser.ArrayEach(raw, func(value []byte, dataType jsonparser.ValueType, _ int, err error) {
		if err != nil && walkErr == nil {
			walkErr = err
			return
		}
		entries = append(entries, jsonEntry{value: value, dataType: dataType})
	})
	if err == nil {
		err = walkErr
	}
	if err != nil {
		return fmt.Errorf("failed to walk array at %s: %w", strings.Join(path, "."), err)
	}

	ind := b.indent(indentLevel)
	b.emit(ind+"[", path)
	for i, e := range entries {
		childPath := appendPath(path, fmt.Sprintf("[%d]", i))
		if err := b.value(e.value, e.dataType, childPath, indentLevel+1, i == len(entries)-1); err != nil {
			return err
		}
	}
	b.emit(ind+"]"+trailingComma(last), path)
	return nil
}

// flattened serialises a whole subtree into one chunk
func (b *jsonBuilder) flattened(raw []byte, path []string, indentLevel int, last bool) error {
	var buf bytes.Buffer
	ind := b.indent(indentLevel)
	var err error
	if b.splitter.preserveFormatting {
		err = json.Indent(&buf, raw, ind, "  ")
	} else {
		err = json.Compact(&buf, raw)
	}
	if err != nil {
		return fmt.Errorf("failed to serialize subtree at %s: %w", strings.Join(path, "."), err)
	}
	b.emit(ind+buf.String()+trailingComma(last), path)
	return nil
}

// renderPrimitive restores the JSON text of a scalar. jsonparser strips the
// quotes from strings but leaves escapes intact.
func renderPrimitive(raw []byte, dataType jsonparser.ValueType) string {
	if dataType == jsonparser.String {
		return `"` + string(raw) + `"`
	}
	return string(raw)
}

// quoteKey re-encodes an object key. jsonparser hands keys over unescaped.
func quoteKey(key []byte) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(string(key)); err != nil {
		return `"` + string(key) + `"`
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func trailingComma(last bool) string {
	if last {
		return ""
	}
	return ","
}

func appendPath(path []string, label string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, label)
}
