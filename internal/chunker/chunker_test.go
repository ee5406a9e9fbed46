package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindForContentType(t *testing.T) {
	opts := DefaultOptions()
	tests := []struct {
		contentType string
		want        Kind
	}{
		{"text/markdown", KindMarkdown},
		{"text/markdown; charset=utf-8", KindMarkdown},
		{"text/html", KindMarkdown},
		{"application/json", KindJSON},
		{"application/ld+json", KindJSON},
		{"text/x-typescript", KindSourceCode},
		{"application/javascript", KindSourceCode},
		{"text/x-python", KindText},
		{"text/plain", KindText},
		{"", KindText},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.want, KindForContentType(tt.contentType, opts))
		})
	}
}

func TestNew_SelectsSplitter(t *testing.T) {
	opts := DefaultOptions()
	assert.IsType(t, &TextSplitter{}, New(KindText, opts))
	assert.IsType(t, &JSONSplitter{}, New(KindJSON, opts))
	assert.IsType(t, &SourceCodeSplitter{}, New(KindSourceCode, opts))
	assert.IsType(t, &MarkdownSplitter{}, New(KindMarkdown, opts))
	assert.IsType(t, &GreedySplitter{}, ForContentType("text/plain", opts))
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(o *Options)
		wantErr bool
	}{
		{"defaults", func(o *Options) {}, false},
		{"zero max", func(o *Options) { o.MaxChunkSize = 0 }, true},
		{"min above preferred", func(o *Options) { o.MinChunkSize = 2000 }, true},
		{"preferred above max", func(o *Options) { o.PreferredChunkSize = 6000 }, true},
		{"zero depth", func(o *Options) { o.MaxDepth = 0 }, true},
		{"zero max chunks", func(o *Options) { o.MaxChunks = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.modify(&opts)
			err := opts.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, splitLines(""))
	assert.Equal(t, []string{"a\n", "b"}, splitLines("a\nb"))
	assert.Equal(t, []string{"a\n", "b\n"}, splitLines("a\nb\n"))
	assert.Equal(t, []string{"\n", "\n"}, splitLines("\n\n"))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "text", KindText.String())
	assert.Equal(t, "json", KindJSON.String())
	assert.Equal(t, "source", KindSourceCode.String())
	assert.Equal(t, "markdown", KindMarkdown.String())
}
