package chunker

import (
	"regexp"
	"strings"
)

// languageByContentType maps MIME types to language labels used in chunk paths
var languageByContentType = map[string]string{
	"text/x-typescript":        "typescript",
	"text/typescript":          "typescript",
	"application/typescript":   "typescript",
	"application/x-typescript": "typescript",
	"text/tsx":                 "typescript",
	"text/javascript":          "javascript",
	"text/x-javascript":        "javascript",
	"application/javascript":   "javascript",
	"application/x-javascript": "javascript",
	"text/jsx":                 "javascript",
	"text/x-python":            "python",
	"application/x-python":     "python",
	"text/x-go":                "go",
	"text/x-rust":              "rust",
	"text/x-java":              "java",
	"text/x-java-source":       "java",
	"text/x-c":                 "c",
	"text/x-csrc":              "c",
	"text/x-c++":               "cpp",
	"text/x-c++src":            "cpp",
	"text/x-csharp":            "csharp",
	"text/x-ruby":              "ruby",
	"text/x-php":               "php",
	"application/x-sh":         "shell",
	"text/x-shellscript":       "shell",
	"text/x-sh":                "shell",
	"text/css":                 "css",
	"text/html":                "html",
	"text/markdown":            "markdown",
	"text/x-markdown":          "markdown",
	"application/json":         "json",
	"text/json":                "json",
	"application/xml":          "xml",
	"text/xml":                 "xml",
	"application/yaml":         "yaml",
	"application/x-yaml":       "yaml",
	"text/yaml":                "yaml",
	"text/x-yaml":              "yaml",
	"application/toml":         "toml",
	"text/x-sql":               "sql",
	"application/sql":          "sql",
}

// DefaultSupportedLanguages returns the content types split structurally by
// the source code splitter
func DefaultSupportedLanguages() []string {
	return []string{
		"text/x-typescript",
		"text/typescript",
		"application/typescript",
		"application/x-typescript",
		"text/tsx",
		"text/javascript",
		"text/x-javascript",
		"application/javascript",
		"application/x-javascript",
		"text/jsx",
	}
}

var shebangLanguages = []struct {
	needle   string
	language string
}{
	{"python", "python"},
	{"node", "javascript"},
	{"deno", "typescript"},
	{"ruby", "ruby"},
	{"perl", "perl"},
	{"bash", "shell"},
	{"zsh", "shell"},
	{"/sh", "shell"},
	{"env sh", "shell"},
}

var (
	tsPattern     = regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:interface|type|enum)\s+[A-Za-z_$][\w$]*|:\s*(?:string|number|boolean|void)\b`)
	esPattern     = regexp.MustCompile(`(?m)^\s*(?:import\s.+\sfrom\s|import\s+['"]|export\s+(?:default|const|function|class|\{))|\brequire\(['"]`)
	goPattern     = regexp.MustCompile(`(?m)^package\s+\w+\s*$`)
	pyPattern     = regexp.MustCompile(`(?m)^\s*(?:def\s+\w+\s*\(.*\)\s*(?:->\s*[^:]+)?:|from\s+[\w.]+\s+import\s)`)
	rustPattern   = regexp.MustCompile(`(?m)^\s*(?:pub\s+)?(?:fn\s+\w+|impl\b|use\s+\w+::)`)
	javaPattern   = regexp.MustCompile(`(?m)^\s*public\s+(?:final\s+)?(?:class|interface|enum)\s+\w+`)
	cPattern      = regexp.MustCompile(`(?m)^#include\s*[<"]`)
	shellPattern  = regexp.MustCompile(`(?m)^\s*(?:echo|export\s+\w+=|set\s+-[eux]+)`)
	funcGoPattern = regexp.MustCompile(`(?m)^func\s`)
)

// detectLanguage resolves the language label from the content type, falling back
// to sniffing the content. The label only influences chunk paths.
func detectLanguage(content, contentType string) string {
	if lang, ok := languageByContentType[normalizeMediaType(contentType)]; ok {
		return lang
	}

	if strings.HasPrefix(content, "#!") {
		first, _, _ := strings.Cut(content, "\n")
		for _, s := range shebangLanguages {
			if strings.Contains(first, s.needle) {
				return s.language
			}
		}
	}

	switch {
	case goPattern.MatchString(content) && funcGoPattern.MatchString(content):
		return "go"
	case esPattern.MatchString(content):
		if tsPattern.MatchString(content) {
			return "typescript"
		}
		return "javascript"
	case pyPattern.MatchString(content):
		return "python"
	case rustPattern.MatchString(content):
		return "rust"
	case javaPattern.MatchString(content):
		return "java"
	case cPattern.MatchString(content):
		return "c"
	case shellPattern.MatchString(content):
		return "shell"
	}
	return "text"
}

// rootLabel returns the top-level path element for a document of this language
func rootLabel(language string) string {
	return language + "-file"
}
