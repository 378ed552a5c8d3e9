package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ersonp/onto-core/internal/application/handlers"
)

func newApplyCmd() *cobra.Command {
	var (
		format string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "apply FILE",
		Short: "Commit a batch of changes from a file as one version",
		Long: "Reads a change batch from a JSON or CSV file and commits it directly to the " +
			"current knowledge base, bypassing review. Every change in the file lands in one " +
			"version or none does.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, args[0], handlers.ImportOptions{Format: format, DryRun: dryRun})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "auto", "File format: json, csv or auto")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse and validate without committing")

	return cmd
}

func runApply(cmd *cobra.Command, filePath string, opts handlers.ImportOptions) error {
	return withDeps(func(d *Deps) error {
		kb, err := d.KB()
		if err != nil {
			return err
		}
		actor, err := d.Actor()
		if err != nil {
			return err
		}

		result, err := d.Imports.Handle(cmd.Context(), kb, actor, filePath, opts)
		if err != nil {
			return err
		}

		return output(result, func(w io.Writer) {
			switch {
			case result.DryRun:
				fmt.Fprintf(w, "Dry run: %s\n", formatStats(result.Stats))
				printChanges(w, result.Changes)
			case result.Committed:
				fmt.Fprintf(w, "Committed version %d (%s)\n", result.Version, formatStats(result.Stats))
			default:
				fmt.Fprintf(w, "Nothing to commit; version stays %d\n", result.Version)
			}
		})
	})
}
