package chunker

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONSplitter_SimpleObject(t *testing.T) {
	chunks, err := NewJSONSplitter(DefaultOptions()).SplitText(`{"a":"b"}`, "application/json")
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, "{", chunks[0].Content)
	assert.Equal(t, `  "a": "b"`, chunks[1].Content)
	assert.Equal(t, "}", chunks[2].Content)

	assert.Equal(t, []string{"root"}, chunks[0].Section.Path)
	assert.Equal(t, []string{"root", "a"}, chunks[1].Section.Path)
	assert.Equal(t, []string{"root"}, chunks[2].Section.Path)
	assertLevels(t, chunks)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(joinContents(chunks, "\n")), &got))
	assert.Equal(t, map[string]interface{}{"a": "b"}, got)
}

func TestJSONSplitter_BuildingBlocks(t *testing.T) {
	chunks, err := NewJSONSplitter(DefaultOptions()).SplitText(`{"a":1,"b":[1,2],"c":{"d":true}}`, "application/json")
	require.NoError(t, err)

	want := []struct {
		content string
		path    []string
	}{
		{"{", []string{"root"}},
		{`  "a": 1,`, []string{"root", "a"}},
		{`  "b": `, []string{"root", "b"}},
		{"  [", []string{"root", "b"}},
		{"    1,", []string{"root", "b", "[0]"}},
		{"    2", []string{"root", "b", "[1]"}},
		{"  ],", []string{"root", "b"}},
		{`  "c": `, []string{"root", "c"}},
		{"  {", []string{"root", "c"}},
		{`    "d": true`, []string{"root", "c", "d"}},
		{"  }", []string{"root", "c"}},
		{"}", []string{"root"}},
	}

	require.Len(t, chunks, len(want))
	for i, w := range want {
		assert.Equal(t, w.content, chunks[i].Content, "chunk %d", i)
		assert.Equal(t, w.path, chunks[i].Section.Path, "chunk %d", i)
	}
	assertLevels(t, chunks)
}

func TestJSONSplitter_RoundTrip(t *testing.T) {
	docs := []string{
		`{}`,
		`[]`,
		`"just a string"`,
		`42`,
		`[1, "two", null, true, {"x": []}]`,
		`{"name": "docsearch", "nested": {"list": [1, 2, {"deep": {"deeper": {"deepest": [1]}}}], "empty": {}}, "esc": "line\nbreak \"quoted\"", "n": -1.5e3}`,
		`{"a\"b": "x\ny", "unicode": "é"}`,
	}

	for _, doc := range docs {
		t.Run(doc, func(t *testing.T) {
			for _, format := range []bool{true, false} {
				opts := DefaultOptions()
				opts.PreserveFormatting = format
				opts.MaxDepth = 3

				chunks, err := NewJSONSplitter(opts).SplitText(doc, "application/json")
				require.NoError(t, err)
				assertLevels(t, chunks)

				joined := joinContents(chunks, "\n")
				require.True(t, json.Valid([]byte(joined)), "joined output must be valid JSON:\n%s", joined)

				var want, got interface{}
				require.NoError(t, json.Unmarshal([]byte(doc), &want))
				require.NoError(t, json.Unmarshal([]byte(joined), &got))
				assert.Equal(t, want, got)
			}
		})
	}
}

func TestJSONSplitter_TrailingCommas(t *testing.T) {
	chunks, err := NewJSONSplitter(DefaultOptions()).SplitText(`{"a":1,"b":2,"c":[3,4,5]}`, "application/json")
	require.NoError(t, err)

	byPath := make(map[string]string)
	for _, c := range chunks {
		byPath[strings.Join(c.Section.Path, "/")] = c.Content
	}
	assert.True(t, strings.HasSuffix(byPath["root/a"], ","))
	assert.True(t, strings.HasSuffix(byPath["root/b"], ","))
	assert.True(t, strings.HasSuffix(byPath["root/c/[0]"], ","))
	assert.True(t, strings.HasSuffix(byPath["root/c/[1]"], ","))
	assert.False(t, strings.HasSuffix(byPath["root/c/[2]"], ","))
	assert.False(t, strings.HasSuffix(chunks[len(chunks)-2].Content, ","), "closing bracket of last property has no comma")
}

func TestJSONSplitter_InvalidJSON(t *testing.T) {
	chunks, err := NewJSONSplitter(DefaultOptions()).SplitText(`{"a":`, "application/json")
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, `{"a":`, chunks[0].Content)
	assert.Equal(t, []string{"invalid-json"}, chunks[0].Section.Path)
	assert.Equal(t, 1, chunks[0].Section.Level)
}

func TestJSONSplitter_MaxDepth(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxDepth = 2

	chunks, err := NewJSONSplitter(opts).SplitText(`{"a":{"b":{"c":1}}}`, "application/json")
	require.NoError(t, err)
	require.Len(t, chunks, 7)

	flat := chunks[4]
	assert.Equal(t, []string{"root", "a", "b"}, flat.Section.Path)
	assert.Contains(t, flat.Content, `"c": 1`)
	assert.Equal(t, "    {\n      \"c\": 1\n    }", flat.Content)
	assert.True(t, json.Valid([]byte(joinContents(chunks, "\n"))))
}

func TestJSONSplitter_MaxChunksFallsBackToText(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxChunks = 3

	content := `{"a":1,"b":2,"c":3}`
	chunks, err := NewJSONSplitter(opts).SplitText(content, "application/json")
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, content, chunks[0].Content)
	assert.Equal(t, []string{"json-file", "section-1"}, chunks[0].Section.Path)
}

func TestJSONSplitter_NoFormatting(t *testing.T) {
	opts := DefaultOptions()
	opts.PreserveFormatting = false

	chunks, err := NewJSONSplitter(opts).SplitText(`{"a":[1]}`, "application/json")
	require.NoError(t, err)

	got := make([]string, len(chunks))
	for i, c := range chunks {
		got[i] = c.Content
	}
	assert.Equal(t, []string{"{", `"a": `, "[", "1", "]", "}"}, got)
}

func TestJSONSplitter_EscapedKeys(t *testing.T) {
	chunks, err := NewJSONSplitter(DefaultOptions()).SplitText(`{"a\"b":"x\ny"}`, "application/json")
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, `  "a\"b": "x\ny"`, chunks[1].Content)
	assert.Equal(t, []string{"root", `a"b`}, chunks[1].Section.Path)
}

func TestJSONSplitter_KeysKeepHTMLCharacters(t *testing.T) {
	content := `{"k<&>":1}`
	chunks, err := NewJSONSplitter(DefaultOptions()).SplitText(content, "application/json")
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, `  "k<&>": 1`, chunks[1].Content)
	assert.Equal(t, []string{"root", "k<&>"}, chunks[1].Section.Path)
	assert.NotContains(t, chunks[1].Content, `\u003c`)
}

func TestJSONSplitter_WideDocument(t *testing.T) {
	var b strings.Builder
	b.WriteString("[")
	for i := 0; i < 50; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"id":%d,"tags":["x","y"]}`, i)
	}
	b.WriteString("]")

	chunks, err := NewJSONSplitter(DefaultOptions()).SplitText(b.String(), "application/json")
	require.NoError(t, err)
	assert.Greater(t, len(chunks), 50)
	assert.True(t, json.Valid([]byte(joinContents(chunks, "\n"))))
}
