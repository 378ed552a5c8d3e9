package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search TEXT...",
		Short: "Search concepts of the current knowledge base by meaning",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return withDeps(func(d *Deps) error {
				kb, err := d.KB()
				if err != nil {
					return err
				}
				result, err := d.Search.Handle(cmd.Context(), kb, query, limit)
				if err != nil {
					return err
				}
				return output(result, func(w io.Writer) {
					if len(result.Hits) == 0 {
						fmt.Fprintln(w, "No matching concepts.")
						return
					}
					tw := newTable(w)
					fmt.Fprintln(tw, "SCORE\tCONCEPT\tNAME\tCATEGORY")
					for _, h := range result.Hits {
						fmt.Fprintf(tw, "%.3f\t%d\t%s\t%s\n", h.Score, h.ConceptID, h.Name, h.Category)
					}
					tw.Flush()
				})
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", DefaultSearchLimit, "Maximum number of results")

	return cmd
}

func newReindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the concept search index of the current knowledge base",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(d *Deps) error {
				kb, err := d.KB()
				if err != nil {
					return err
				}
				n, err := d.Search.HandleReindex(cmd.Context(), kb)
				if err != nil {
					return err
				}
				fmt.Printf("Indexed %d concept(s)\n", n)
				return nil
			})
		},
	}
}
