package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ersonp/onto-core/internal/application/httpapi"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: "Serves the knowledge base operations as an HTTP/JSON API. Callers identify " +
			"themselves with the " + httpapi.ActorHeader + " header.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(d *Deps) error {
				return runServe(cmd.Context(), d, addr)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")

	return cmd
}

func runServe(ctx context.Context, d *Deps, addr string) error {
	if addr == "" {
		addr = d.Config.Server.Addr
	}

	opts := httpapi.Options{Logger: d.Logger}
	if d.Metrics != nil {
		opts.Metrics = d.Metrics.Handler()
	}
	router := httpapi.NewRouter(httpapi.Handlers{
		KnowledgeBases: d.KnowledgeBases,
		MergeRequests:  d.MergeRequests,
		History:        d.History,
		Imports:        d.Imports,
		Search:         d.Search,
	}, opts)

	server := httpapi.NewServer(addr, router, d.Logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving api: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	d.Logger.Info("shutting down api")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down api: %w", err)
	}
	return <-errCh
}
