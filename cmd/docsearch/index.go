package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dshills/docsearch-mcp/internal/indexer"
)

func indexCmd() *cobra.Command {
	var (
		library       string
		docVersion    string
		force         bool
		includeHidden bool
		contentType   string
	)

	cmd := &cobra.Command{
		Use:   "index <path>",
		Short: "Index a documentation directory or a single file",
		Long: `Indexes every supported file below a directory, or a single file, into
the given library version. Unchanged documents are skipped unless --force
is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			idx, err := indexer.New(a.store, a.emb, a.cfg.IndexerConfig())
			if err != nil {
				return err
			}

			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			info, err := os.Stat(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !info.IsDir() {
				content, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				ct := contentType
				if ct == "" {
					ct, _ = indexer.ContentTypeForPath(path)
				}
				res, err := idx.IndexDocument(cmd.Context(), indexer.Document{
					Library:     library,
					Version:     docVersion,
					URL:         filepath.ToSlash(filepath.Base(path)),
					ContentType: ct,
					Content:     string(content),
				}, force)
				if err != nil {
					return err
				}
				if res.Skipped {
					fmt.Fprintf(out, "%s unchanged, skipped\n", res.URL)
					return nil
				}
				fmt.Fprintf(out, "%s: %d chunks, %d embeddings\n", res.URL, res.Chunks, res.Embeddings)
				return nil
			}

			stats, err := idx.IndexDirectory(cmd.Context(), path, library, docVersion, indexer.DirectoryOptions{
				Options:       indexer.Options{Force: force},
				IncludeHidden: includeHidden,
				MaxFileSize:   a.cfg.Indexing.MaxFileSize,
			})
			if stats != nil {
				fmt.Fprintf(out, "indexed %d, skipped %d, failed %d documents (%d chunks, %d embeddings) in %s\n",
					stats.DocumentsIndexed, stats.DocumentsSkipped, stats.DocumentsFailed,
					stats.ChunksCreated, stats.EmbeddingsCreated, stats.Duration.Round(1e6))
				for _, msg := range stats.ErrorMessages {
					fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", msg)
				}
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&library, "library", "l", "", "Library name (required)")
	cmd.Flags().StringVarP(&docVersion, "version", "v", "", "Library version (empty for unversioned)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Re-index unchanged documents")
	cmd.Flags().BoolVar(&includeHidden, "include-hidden", false, "Descend into hidden directories")
	cmd.Flags().StringVar(&contentType, "content-type", "", "Content type for a single file (default: by extension)")
	_ = cmd.MarkFlagRequired("library")

	return cmd
}
