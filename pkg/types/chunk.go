package types

import (
	"crypto/sha256"
	"errors"
	"fmt"
)

// ChunkType classifies chunk content for rendering and filtering
type ChunkType string

const (
	ChunkText       ChunkType = "text"
	ChunkCode       ChunkType = "code"
	ChunkHeading    ChunkType = "heading"
	ChunkStructural ChunkType = "structural"
)

// Section locates a chunk in the structural hierarchy of its document.
// Level always equals len(Path).
type Section struct {
	Level int
	Path  []string
}

// Chunk is a size-bounded piece of a document produced by a splitter.
// Concatenating a document's chunks in order reproduces the document
// (or a syntactically valid transform of it).
type Chunk struct {
	Types   []ChunkType
	Content string
	Section Section
}

// NewChunk builds a chunk whose level is derived from the path
func NewChunk(content string, path []string, chunkTypes ...ChunkType) *Chunk {
	p := make([]string, len(path))
	copy(p, path)
	return &Chunk{
		Types:   chunkTypes,
		Content: content,
		Section: Section{Level: len(p), Path: p},
	}
}

// SetPath replaces the chunk path and keeps the level in sync
func (c *Chunk) SetPath(path []string) {
	p := make([]string, len(path))
	copy(p, path)
	c.Section.Path = p
	c.Section.Level = len(p)
}

// HasType reports whether the chunk carries the given type tag
func (c *Chunk) HasType(t ChunkType) bool {
	for _, ct := range c.Types {
		if ct == t {
			return true
		}
	}
	return false
}

// AddTypes merges tags into the chunk, keeping first-seen order
func (c *Chunk) AddTypes(tags ...ChunkType) {
	for _, t := range tags {
		if !c.HasType(t) {
			c.Types = append(c.Types, t)
		}
	}
}

// ComputeTokenCount estimates the number of tokens in the chunk
// Uses a simple heuristic: characters / 4
func (c *Chunk) ComputeTokenCount() int {
	return len(c.Content) / 4
}

// ComputeContentHash computes the SHA-256 hash of the chunk content
func (c *Chunk) ComputeContentHash() [32]byte {
	return sha256.Sum256([]byte(c.Content))
}

// ValidateChunkType checks that every type tag is known
func (c *Chunk) ValidateChunkType() error {
	for _, t := range c.Types {
		switch t {
		case ChunkText, ChunkCode, ChunkHeading, ChunkStructural:
		default:
			return fmt.Errorf("invalid chunk type %q", t)
		}
	}
	return nil
}

// Validate performs comprehensive validation of the chunk
func (c *Chunk) Validate() error {
	if c.Section.Level != len(c.Section.Path) {
		return ErrLevelMismatch
	}

	if len(c.Types) == 0 {
		return errors.New("chunk must carry at least one type")
	}

	return c.ValidateChunkType()
}

// ParentPath returns the path of the enclosing section, or nil at the root
func (s Section) ParentPath() []string {
	if len(s.Path) == 0 {
		return nil
	}
	return s.Path[:len(s.Path)-1]
}

// HasPrefix reports whether prefix is a leading subsequence of the path
func (s Section) HasPrefix(prefix []string) bool {
	if len(prefix) > len(s.Path) {
		return false
	}
	for i := range prefix {
		if s.Path[i] != prefix[i] {
			return false
		}
	}
	return true
}
