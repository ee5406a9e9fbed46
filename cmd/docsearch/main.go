package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/docsearch-mcp/internal/config"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "docsearch",
		Short: "Documentation search MCP server",
		Long: `docsearch indexes library documentation and source files into a local
SQLite database and serves hierarchical context retrieval over MCP.

Environment variables:
  DOCSEARCH_DB_PATH                SQLite database path
  DOCSEARCH_CONFIG                 Path to a YAML config file
  DOCSEARCH_EMBEDDING_PROVIDER     openai, local or none
  OPENAI_API_KEY                   API key for the openai provider`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	config.BindFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(indexCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
