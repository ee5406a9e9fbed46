package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/docsearch-mcp/internal/retriever"
	"github.com/dshills/docsearch-mcp/internal/searcher"
)

func searchCmd() *cobra.Command {
	var (
		library    string
		docVersion string
		limit      int
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Retrieve documentation context for a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			srch := searcher.NewSearcher(a.store, a.emb, a.cfg.SearcherOptions())
			ret, err := retriever.NewService(srch, a.cfg.RetrieverConfig())
			if err != nil {
				return err
			}

			results, err := ret.Search(cmd.Context(), library, docVersion, args[0], limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			if len(results) == 0 {
				fmt.Fprintln(out, "No results found.")
				return nil
			}
			for i, r := range results {
				fmt.Fprintf(out, "--- %d. %s (%s, score %.4f)\n%s\n\n", i+1, r.URL, r.MimeType, r.Score, r.Content)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&library, "library", "l", "", "Library name (required)")
	cmd.Flags().StringVarP(&docVersion, "version", "v", "", "Library version")
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Maximum number of results")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("library")

	return cmd
}
