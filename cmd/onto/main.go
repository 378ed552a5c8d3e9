// Package main provides the entry point for the onto CLI application.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version     = "0.1.0-dev"
	globalKB    string
	globalActor string
	globalJSON  bool
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	rootCmd := newRootCmd()
	return rootCmd.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "onto",
		Short:         "A versioned ontology knowledge base with reviewed merge requests",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&globalKB, "kb", "k", "", "Knowledge base to operate on (id or name)")
	rootCmd.PersistentFlags().StringVarP(&globalActor, "actor", "a", "", "Acting user (defaults to $ONTO_ACTOR)")
	rootCmd.PersistentFlags().BoolVar(&globalJSON, "json", false, "Print results as JSON")

	rootCmd.AddCommand(
		newInitCmd(),
		newKBCmd(),
		newMRCmd(),
		newApplyCmd(),
		newHistoryCmd(),
		newCompareCmd(),
		newRevertCmd(),
		newSnapshotCmd(),
		newSearchCmd(),
		newReindexCmd(),
		newServeCmd(),
	)

	return rootCmd
}
