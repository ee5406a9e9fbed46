package indexer

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"
)

// DefaultMaxFileSize is the largest file IndexDirectory reads
const DefaultMaxFileSize = 5 << 20

// skippedDirs are never descended into
var skippedDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
}

// contentTypeByExt maps file extensions to the content types the splitters
// understand. Files with other extensions are not indexed.
var contentTypeByExt = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".mdx":      "text/markdown",
	".html":     "text/html",
	".htm":      "text/html",
	".json":     "application/json",
	".txt":      "text/plain",
	".rst":      "text/x-rst",
	".adoc":     "text/plain",
	".ts":       "text/x-typescript",
	".mts":      "text/x-typescript",
	".cts":      "text/x-typescript",
	".tsx":      "text/tsx",
	".js":       "text/javascript",
	".mjs":      "text/javascript",
	".cjs":      "text/javascript",
	".jsx":      "text/jsx",
	".py":       "text/x-python",
	".go":       "text/x-go",
	".rs":       "text/x-rust",
	".java":     "text/x-java",
	".c":        "text/x-c",
	".h":        "text/x-c",
	".cpp":      "text/x-c++",
	".hpp":      "text/x-c++",
	".cs":       "text/x-csharp",
	".rb":       "text/x-ruby",
	".php":      "text/x-php",
	".sh":       "text/x-shellscript",
	".css":      "text/css",
	".xml":      "application/xml",
	".yaml":     "application/yaml",
	".yml":      "application/yaml",
	".toml":     "application/toml",
	".sql":      "text/x-sql",
}

// ContentTypeForPath returns the content type for a file name and whether
// the file should be indexed at all
func ContentTypeForPath(name string) (string, bool) {
	ct, ok := contentTypeByExt[strings.ToLower(filepath.Ext(name))]
	return ct, ok
}

// DirectoryOptions control IndexDirectory
type DirectoryOptions struct {
	Options
	// IncludeHidden descends into dot directories
	IncludeHidden bool
	// MaxFileSize skips larger files (default: DefaultMaxFileSize)
	MaxFileSize int64
}

// IndexDirectory indexes every supported file below root into one library
// version. Document URLs are the slash-separated paths relative to root.
func (idx *Indexer) IndexDirectory(ctx context.Context, root, library, version string, opts DirectoryOptions) (*Statistics, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}

	files, err := discoverFiles(root, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}

	return idx.run(ctx, len(files), opts.Options, func(ctx context.Context, i int) (string, *DocumentResult, error) {
		f := files[i]
		if f.size > opts.MaxFileSize {
			return f.url, &DocumentResult{URL: f.url, Skipped: true}, nil
		}
		content, err := os.ReadFile(f.path)
		if err != nil {
			return f.url, nil, err
		}
		res, err := idx.IndexDocument(ctx, Document{
			Library:     library,
			Version:     version,
			URL:         f.url,
			ContentType: f.contentType,
			Content:     string(content),
		}, opts.Force)
		return f.url, res, err
	})
}

type discoveredFile struct {
	path        string
	url         string
	contentType string
	size        int64
}

// discoverFiles walks root in lexical order and returns the indexable files
func discoverFiles(root string, opts DirectoryOptions) ([]discoveredFile, error) {
	var files []discoveredFile
	root = filepath.Clean(root)

	err := godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			name := de.Name()
			isDir, err := de.IsDirOrSymlinkToDir()
			if err != nil {
				return err
			}
			if isDir {
				if osPathname == root {
					return nil
				}
				if skippedDirs[name] || (!opts.IncludeHidden && strings.HasPrefix(name, ".")) {
					return godirwalk.SkipThis
				}
				return nil
			}
			if !de.IsRegular() && !de.IsSymlink() {
				return nil
			}

			contentType, ok := ContentTypeForPath(name)
			if !ok {
				return nil
			}
			info, err := os.Stat(osPathname)
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(root, osPathname)
			if err != nil {
				return err
			}
			files = append(files, discoveredFile{
				path:        osPathname,
				url:         path.Clean(filepath.ToSlash(rel)),
				contentType: contentType,
				size:        info.Size(),
			})
			return nil
		},
		ErrorCallback: func(_ string, _ error) godirwalk.ErrorAction {
			return godirwalk.SkipNode
		},
	})
	return files, err
}
