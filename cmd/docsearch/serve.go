package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dshills/docsearch-mcp/internal/mcp"
	"github.com/dshills/docsearch-mcp/internal/storage"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			log.Info().
				Str("version", version).
				Str("build_mode", storage.BuildMode).
				Str("driver", storage.DriverName).
				Bool("vector_extension", storage.VectorExtensionAvailable).
				Msg("docsearch MCP server starting")

			server, err := mcp.NewServer(a.store, a.emb, a.cfg)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			errChan := make(chan error, 1)
			go func() {
				errChan <- server.Serve(ctx, os.Stdin, os.Stdout)
			}()

			select {
			case sig := <-sigChan:
				log.Info().Str("signal", sig.String()).Msg("shutting down")
				cancel()
				<-errChan
			case err := <-errChan:
				if err != nil && ctx.Err() == nil {
					return err
				}
			}

			log.Info().Msg("server stopped")
			return nil
		},
	}
}
