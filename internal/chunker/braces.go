package chunker

import (
	"errors"
	"fmt"
	"sort"
)

var (
	errUnterminatedComment  = errors.New("unterminated block comment")
	errUnterminatedTemplate = errors.New("unterminated template literal")
	errUnbalancedBraces     = errors.New("unbalanced braces")
)

// codeToken is a structural character found outside strings and comments
type codeToken struct {
	char   byte // one of { } ( ) ;
	offset int
	depth  int // brace depth after this token
}

// codeIndex records where the structural tokens of a C-like source file are.
// String literals, template literals, line comments and block comments are
// skipped, so braces inside them never count.
type codeIndex struct {
	tokens  []codeToken
	matches map[int]int // open brace offset -> matching close brace offset
	noncode [][2]int    // [start, end) spans of comments and literals
}

// frame tracks what an open brace belongs to while scanning
type frame struct {
	offset   int
	template bool // opened by ${ inside a template literal
}

// indexCode scans src once and builds the token index
func indexCode(src string) (*codeIndex, error) {
	ix := &codeIndex{matches: make(map[int]int)}
	var stack []frame
	depth := 0

	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			end := indexByteFrom(src, i, '\n')
			ix.noncode = append(ix.noncode, [2]int{i, end})
			i = end
			continue
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := indexStringFrom(src, i+2, "*/")
			if end < 0 {
				return nil, errUnterminatedComment
			}
			ix.noncode = append(ix.noncode, [2]int{i, end + 2})
			i = end + 2
			continue
		case c == '\'' || c == '"':
			end := skipQuoted(src, i)
			ix.noncode = append(ix.noncode, [2]int{i, end})
			i = end
			continue
		case c == '`':
			end, resume := skipTemplate(src, i+1)
			if end < 0 {
				return nil, errUnterminatedTemplate
			}
			ix.noncode = append(ix.noncode, [2]int{i, end})
			if resume {
				// Template paused at ${, the expression is code until its closing brace
				stack = append(stack, frame{offset: end - 1, template: true})
			}
			i = end
			continue
		case c == '{':
			stack = append(stack, frame{offset: i})
			depth++
			ix.tokens = append(ix.tokens, codeToken{char: c, offset: i, depth: depth})
		case c == '}':
			if len(stack) == 0 {
				return nil, fmt.Errorf("%w: unexpected } at offset %d", errUnbalancedBraces, i)
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if top.template {
				end, resume := skipTemplate(src, i+1)
				if end < 0 {
					return nil, errUnterminatedTemplate
				}
				ix.noncode = append(ix.noncode, [2]int{i, end})
				if resume {
					stack = append(stack, frame{offset: end - 1, template: true})
				}
				i = end
				continue
			}
			depth--
			ix.matches[top.offset] = i
			ix.tokens = append(ix.tokens, codeToken{char: c, offset: i, depth: depth})
		case c == '(' || c == ')' || c == ';':
			ix.tokens = append(ix.tokens, codeToken{char: c, offset: i, depth: depth})
		}
		i++
	}

	if len(stack) > 0 {
		return nil, fmt.Errorf("%w: %d unclosed", errUnbalancedBraces, len(stack))
	}
	return ix, nil
}

// skipQuoted returns the offset just past a '...' or "..." literal starting at
// start. A bare newline ends the literal so a stray quote cannot swallow the file.
func skipQuoted(src string, start int) int {
	quote := src[start]
	for i := start + 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case quote:
			return i + 1
		case '\n':
			return i
		}
	}
	return len(src)
}

// skipTemplate scans template literal text from start. It returns the offset
// just past the closing backtick, or just past "${" with resume set.
func skipTemplate(src string, start int) (end int, resume bool) {
	for i := start; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case '`':
			return i + 1, false
		case '$':
			if i+1 < len(src) && src[i+1] == '{' {
				return i + 2, true
			}
		}
	}
	return -1, false
}

func indexByteFrom(src string, from int, b byte) int {
	for i := from; i < len(src); i++ {
		if src[i] == b {
			return i
		}
	}
	return len(src)
}

func indexStringFrom(src string, from int, needle string) int {
	for i := from; i+len(needle) <= len(src); i++ {
		if src[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

// inNonCode reports whether offset falls inside a comment or literal
func (ix *codeIndex) inNonCode(offset int) bool {
	i := sort.Search(len(ix.noncode), func(i int) bool { return ix.noncode[i][1] > offset })
	return i < len(ix.noncode) && ix.noncode[i][0] <= offset
}

// depthAt returns the brace depth in effect at offset
func (ix *codeIndex) depthAt(offset int) int {
	i := sort.Search(len(ix.tokens), func(i int) bool { return ix.tokens[i].offset >= offset })
	if i == 0 {
		return 0
	}
	return ix.tokens[i-1].depth
}

// findBodyOpen locates the brace opening a declaration body, searching from
// from up to limit. Braces inside parentheses (default values, destructured
// parameters) are skipped. A semicolon or closing brace at the top level means
// the declaration has no body.
func (ix *codeIndex) findBodyOpen(from, limit int) (int, bool) {
	i := sort.Search(len(ix.tokens), func(i int) bool { return ix.tokens[i].offset >= from })
	parens := 0
	for ; i < len(ix.tokens) && ix.tokens[i].offset < limit; i++ {
		tok := ix.tokens[i]
		switch tok.char {
		case '(':
			parens++
		case ')':
			if parens > 0 {
				parens--
			}
		case ';':
			if parens == 0 {
				return 0, false
			}
		case '}':
			if parens == 0 {
				return 0, false
			}
		case '{':
			if parens == 0 {
				return tok.offset, true
			}
		}
	}
	return 0, false
}
