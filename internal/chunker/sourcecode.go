package chunker

import (
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dshills/docsearch-mcp/pkg/types"
)

// maxHeaderLines bounds how far below a declaration line its opening brace may be
const maxHeaderLines = 10

type boundaryKind int

const (
	boundaryClass boundaryKind = iota
	boundaryNamespace
	boundaryInterface
	boundaryTypeAlias
	boundaryFunction
	boundaryMethod
)

func (k boundaryKind) String() string {
	switch k {
	case boundaryClass:
		return "class"
	case boundaryNamespace:
		return "namespace"
	case boundaryInterface:
		return "interface"
	case boundaryTypeAlias:
		return "type"
	case boundaryMethod:
		return "method"
	default:
		return "function"
	}
}

// boundary is a declaration with a brace-delimited body
type boundary struct {
	kind     boundaryKind
	name     string
	exported bool
	async    bool
	abstract bool

	startLine int // declaration line
	openLine  int // line holding the opening brace
	closeLine int // line holding the matching closing brace
	bodyDepth int // brace depth inside the body
}

type boundaryPattern struct {
	kind boundaryKind
	re   *regexp.Regexp
}

const identifier = `([A-Za-z_$][\w$]*)`

var declarationPatterns = []boundaryPattern{
	{boundaryClass, regexp.MustCompile(`^\s*((?:export\s+)?(?:default\s+)?(?:declare\s+)?(?:abstract\s+)?)class\s+` + identifier)},
	{boundaryNamespace, regexp.MustCompile(`^\s*((?:export\s+)?(?:declare\s+)?)(?:namespace|module)\s+([A-Za-z_$][\w$.]*)\s*\{`)},
	{boundaryInterface, regexp.MustCompile(`^\s*((?:export\s+)?(?:default\s+)?(?:declare\s+)?)interface\s+` + identifier)},
	{boundaryTypeAlias, regexp.MustCompile(`^\s*((?:export\s+)?(?:declare\s+)?)type\s+` + identifier + `\s*(?:<[^=]*>)?\s*=`)},
	{boundaryFunction, regexp.MustCompile(`^\s*((?:export\s+)?(?:default\s+)?(?:declare\s+)?(?:async\s+)?)function\s*\*?\s*` + identifier)},
	{boundaryFunction, regexp.MustCompile(`^\s*((?:export\s+)?)(?:const|let|var)\s+` + identifier + `\s*(?::[^=]+)?=\s*(?:async\s+)?(?:function\b|\([^)]*\)\s*(?::[^=]+)?=>|[A-Za-z_$][\w$]*\s*=>)`)},
}

var methodPatterns = []boundaryPattern{
	{boundaryMethod, regexp.MustCompile(`^\s*((?:@[\w.]+(?:\([^)]*\))?\s+)*(?:(?:public|private|protected|static|readonly|abstract|override|async|declare|get|set)\s+)*)\*?\s*(#?[A-Za-z_$][\w$]*)\s*(?:<[^>]*>)?\s*\(`)},
}

// nonMethodNames are statement keywords the method pattern would otherwise accept
var nonMethodNames = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true,
	"with": true, "return": true, "function": true, "new": true, "typeof": true,
	"await": true, "yield": true, "super": true, "this": true, "do": true,
}

// SourceCodeSplitter splits block-structured source (TypeScript and JavaScript)
// at top-level declarations. Detection is heuristic: declarations are found by
// line patterns and bodies by brace matching, not by a grammar.
type SourceCodeSplitter struct {
	maxChunkSize int
	supported    map[string]bool
	text         *TextSplitter
}

// NewSourceCodeSplitter creates a source code splitter
func NewSourceCodeSplitter(opts Options) *SourceCodeSplitter {
	opts = opts.withDefaults()
	supported := make(map[string]bool, len(opts.SupportedLanguages))
	for _, ct := range opts.SupportedLanguages {
		supported[normalizeMediaType(ct)] = true
	}
	return &SourceCodeSplitter{
		maxChunkSize: opts.MaxChunkSize,
		supported:    supported,
		text:         NewTextSplitter(opts),
	}
}

// SplitText splits source code into opener, member, body and closer chunks.
// Unsupported content types and scanning failures fall back to text splitting.
func (s *SourceCodeSplitter) SplitText(content, contentType string) ([]*types.Chunk, error) {
	if content == "" || !s.supported[normalizeMediaType(contentType)] {
		return s.text.SplitText(content, contentType)
	}

	chunks, err := s.splitStructured(content, rootLabel(detectLanguage(content, contentType)))
	if err != nil {
		if IsFatal(err) {
			return nil, err
		}
		log.Info().Err(err).Str("content_type", contentType).Str("reason", "boundary detection failed").
			Msg("source splitter falling back to text")
		return s.text.SplitText(content, contentType)
	}
	return chunks, nil
}

// sourceFile holds the line layout and token index of one document
type sourceFile struct {
	lines      []string
	lineStarts []int
	size       int
	index      *codeIndex
}

func newSourceFile(content string) (*sourceFile, error) {
	ix, err := indexCode(content)
	if err != nil {
		return nil, err
	}
	lines := splitLines(content)
	starts := make([]int, len(lines))
	off := 0
	for i, l := range lines {
		starts[i] = off
		off += len(l)
	}
	return &sourceFile{lines: lines, lineStarts: starts, size: len(content), index: ix}, nil
}

// lineOf returns the index of the line containing offset
func (f *sourceFile) lineOf(offset int) int {
	return sort.Search(len(f.lineStarts), func(i int) bool { return f.lineStarts[i] > offset }) - 1
}

// lineStart returns the offset of line i, or the document size past the end
func (f *sourceFile) lineStart(i int) int {
	if i >= len(f.lineStarts) {
		return f.size
	}
	return f.lineStarts[i]
}

func (f *sourceFile) join(from, to int) string {
	if from >= to {
		return ""
	}
	return strings.Join(f.lines[from:to], "")
}

// findBoundaries scans lines [from, to) at the given brace depth for
// declarations. A boundary starts at the doc comment or decorator lines
// directly above its declaration line.
func (f *sourceFile) findBoundaries(from, to, depth int, patterns []boundaryPattern) []boundary {
	found := make([]boundary, 0)
	floor := from
	for i := from; i < to; {
		off := f.lineStarts[i]
		if f.index.inNonCode(off) || f.index.depthAt(off) != depth {
			i++
			continue
		}

		b, ok := matchDeclaration(f.lines[i], patterns)
		if !ok {
			i++
			continue
		}

		open, ok := f.index.findBodyOpen(off, f.lineStart(min(i+maxHeaderLines, to)))
		if !ok {
			i++
			continue
		}
		closeOff, ok := f.index.matches[open]
		if !ok {
			i++
			continue
		}

		b.startLine = i
		for b.startLine > floor && isLeadingDecoration(f.lines[b.startLine-1]) {
			b.startLine--
		}
		b.openLine = f.lineOf(open)
		b.closeLine = f.lineOf(closeOff)
		b.bodyDepth = f.index.depthAt(open + 1)
		if b.closeLine >= to {
			i++
			continue
		}
		found = append(found, b)
		i = b.closeLine + 1
		floor = i
	}
	return found
}

// matchDeclaration tries each pattern against a line
func matchDeclaration(line string, patterns []boundaryPattern) (boundary, bool) {
	for _, p := range patterns {
		m := p.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := m[2]
		if p.kind == boundaryMethod && nonMethodNames[name] {
			continue
		}
		modifiers := m[1]
		return boundary{
			kind:     p.kind,
			name:     name,
			exported: strings.Contains(modifiers, "export"),
			async:    strings.Contains(modifiers, "async") || strings.Contains(line, "= async"),
			abstract: strings.Contains(modifiers, "abstract"),
		}, true
	}
	return boundary{}, false
}

// splitStructured emits loose sections and declaration spans in document order
func (s *SourceCodeSplitter) splitStructured(content, root string) ([]*types.Chunk, error) {
	f, err := newSourceFile(content)
	if err != nil {
		return nil, err
	}

	rootPath := []string{root}
	chunks := make([]*types.Chunk, 0)
	cursor := 0
	for _, b := range f.findBoundaries(0, len(f.lines), 0, declarationPatterns) {
		log.Debug().
			Stringer("kind", b.kind).
			Str("name", b.name).
			Bool("exported", b.exported).
			Bool("async", b.async).
			Bool("abstract", b.abstract).
			Int("line", b.startLine+1).
			Msg("source declaration")

		loose, err := s.looseChunks(f.join(cursor, b.startLine), rootPath)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, loose...)

		declared, err := s.declarationChunks(f, b, rootPath)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, declared...)
		cursor = b.closeLine + 1
	}

	trailing, err := s.looseChunks(f.join(cursor, len(f.lines)), rootPath)
	if err != nil {
		return nil, err
	}
	return append(chunks, trailing...), nil
}

// looseChunks text-splits file-level content and pins every piece to the root path
func (s *SourceCodeSplitter) looseChunks(content string, rootPath []string) ([]*types.Chunk, error) {
	chunks, err := s.text.SplitText(content, "")
	if err != nil {
		return nil, err
	}
	for _, c := range chunks {
		c.SetPath(rootPath)
	}
	return chunks, nil
}

// bounded emits content as one chunk, or as line-split pieces sharing the same
// path when it exceeds the maximum size
func (s *SourceCodeSplitter) bounded(content string, path []string, chunkTypes ...types.ChunkType) ([]*types.Chunk, error) {
	if content == "" {
		return nil, nil
	}
	if len(content) <= s.maxChunkSize {
		return []*types.Chunk{types.NewChunk(content, path, chunkTypes...)}, nil
	}
	segments, err := s.text.splitSegments(content)
	if err != nil {
		return nil, err
	}
	chunks := make([]*types.Chunk, 0, len(segments))
	for _, seg := range segments {
		chunks = append(chunks, types.NewChunk(seg, path, chunkTypes...))
	}
	return chunks, nil
}

// declarationChunks emits opener, body and closer chunks for one declaration
func (s *SourceCodeSplitter) declarationChunks(f *sourceFile, b boundary, parent []string) ([]*types.Chunk, error) {
	path := appendPath(parent, b.name)

	if b.openLine == b.closeLine {
		return s.bounded(f.join(b.startLine, b.closeLine+1), path, types.ChunkCode, types.ChunkStructural)
	}

	if b.kind == boundaryClass || b.kind == boundaryNamespace {
		return s.containerChunks(f, b, path)
	}

	chunks, err := s.bounded(f.join(b.startLine, b.openLine+1), path, types.ChunkCode, types.ChunkStructural)
	if err != nil {
		return nil, err
	}
	body, err := s.bounded(f.join(b.openLine+1, b.closeLine), appendPath(path, "content"), types.ChunkCode)
	if err != nil {
		return nil, err
	}
	closer, err := s.bounded(f.lines[b.closeLine], path, types.ChunkCode, types.ChunkStructural)
	if err != nil {
		return nil, err
	}
	chunks = append(chunks, body...)
	return append(chunks, closer...), nil
}

// containerChunks splits a class or namespace body into one chunk per member.
// Body lines outside any member become "properties" chunks. Every piece is
// emitted where it appears in the source.
func (s *SourceCodeSplitter) containerChunks(f *sourceFile, b boundary, path []string) ([]*types.Chunk, error) {
	bodyStart, bodyEnd := b.openLine+1, b.closeLine

	patterns := methodPatterns
	if b.kind == boundaryNamespace {
		patterns = declarationPatterns
	}
	members := f.findBoundaries(bodyStart, bodyEnd, b.bodyDepth, patterns)

	// owner per body line: -2 opener, -1 properties, k member k
	const (
		ownerOpener     = -2
		ownerProperties = -1
	)
	owner := make([]int, bodyEnd-bodyStart)
	claimed := make([]bool, bodyEnd-bodyStart)
	for i := range owner {
		owner[i] = ownerProperties
	}
	for k, m := range members {
		for l := m.startLine; l <= m.closeLine; l++ {
			owner[l-bodyStart] = k
			claimed[l-bodyStart] = true
		}
	}

	// Blank lines follow whatever precedes them
	prev := ownerOpener
	for i := range owner {
		if !claimed[i] && strings.TrimSpace(f.lines[bodyStart+i]) == "" {
			owner[i] = prev
		}
		prev = owner[i]
	}

	var opener strings.Builder
	opener.WriteString(f.join(b.startLine, bodyStart))
	first := 0
	for first < len(owner) && owner[first] == ownerOpener {
		opener.WriteString(f.lines[bodyStart+first])
		first++
	}
	chunks, err := s.bounded(opener.String(), path, types.ChunkCode, types.ChunkStructural)
	if err != nil {
		return nil, err
	}

	for start := first; start < len(owner); {
		end := start + 1
		for end < len(owner) && owner[end] == owner[start] {
			end++
		}

		runPath := appendPath(path, "properties")
		if o := owner[start]; o >= 0 {
			runPath = appendPath(path, members[o].name)
		}
		run, err := s.bounded(f.join(bodyStart+start, bodyStart+end), runPath, types.ChunkCode)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, run...)
		start = end
	}

	closer, err := s.bounded(f.lines[b.closeLine], path, types.ChunkCode, types.ChunkStructural)
	if err != nil {
		return nil, err
	}
	return append(chunks, closer...), nil
}

// isLeadingDecoration matches doc comment and decorator lines that belong to
// the declaration below them
func isLeadingDecoration(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasPrefix(t, "//") || strings.HasPrefix(t, "/*") ||
		strings.HasPrefix(t, "*") || strings.HasPrefix(t, "@")
}
