package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Work with knowledge base snapshots",
	}

	cmd.AddCommand(newSnapshotExportCmd())

	return cmd
}

func newSnapshotExportCmd() *cobra.Command {
	var (
		id         string
		outputPath string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a snapshot as JSON",
		Long: "Writes a stored snapshot, or a fresh capture of the current knowledge base when " +
			"--id is not given, as JSON to stdout or to --output.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(d *Deps) error {
				var kb string
				if id == "" {
					ref, err := d.KB()
					if err != nil {
						return err
					}
					kb = ref
				}

				var w io.Writer = os.Stdout
				if outputPath != "" {
					f, err := os.Create(outputPath)
					if err != nil {
						return fmt.Errorf("creating output file: %w", err)
					}
					defer f.Close()
					w = f
				}

				snap, err := d.History.HandleExportSnapshot(cmd.Context(), kb, id, w)
				if err != nil {
					return err
				}
				if outputPath != "" {
					fmt.Printf("Exported snapshot %s (version %d, %d entities) to %s\n",
						snap.ID, snap.CapturedAtVersion, len(snap.Entities), outputPath)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Snapshot id (default: capture the current state)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write to this file instead of stdout")

	return cmd
}
