package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ersonp/onto-core/internal/domain/errs"
)

func newHistoryCmd() *cobra.Command {
	var skip, take int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the activity log of the current knowledge base, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(d *Deps) error {
				kb, err := d.KB()
				if err != nil {
					return err
				}
				result, err := d.History.HandleHistory(cmd.Context(), kb, skip, take)
				if err != nil {
					return err
				}
				return output(result, func(w io.Writer) {
					if len(result.Entries) == 0 {
						fmt.Fprintln(w, "No history.")
						return
					}
					tw := newTable(w)
					fmt.Fprintln(tw, "VERSION\tTIME\tACTOR\tMR\tCHANGE")
					for _, e := range result.Entries {
						fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
							e.VersionNumber, formatTime(e.Timestamp), e.ActorID, e.MergeRequestID, formatChange(e.Change()))
					}
					tw.Flush()
				})
			})
		},
	}

	cmd.Flags().IntVar(&skip, "skip", 0, "Number of entries to skip")
	cmd.Flags().IntVar(&take, "take", DefaultHistoryTake, "Maximum number of entries to show")

	return cmd
}

func newCompareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare FROM TO",
		Short: "Show the changes between two versions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseVersion(args[0])
			if err != nil {
				return err
			}
			to, err := parseVersion(args[1])
			if err != nil {
				return err
			}
			return withDeps(func(d *Deps) error {
				kb, err := d.KB()
				if err != nil {
					return err
				}
				result, err := d.History.HandleCompare(cmd.Context(), kb, from, to)
				if err != nil {
					return err
				}
				return output(result, func(w io.Writer) {
					fmt.Fprintf(w, "Version %d -> %d (%s):\n", result.From, result.To, formatStats(result.Stats))
					printChanges(w, result.Changes)
				})
			})
		},
	}
}

func newRevertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revert VERSION",
		Short: "Restore the knowledge base to an earlier version as a new version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseVersion(args[0])
			if err != nil {
				return err
			}
			return withDeps(func(d *Deps) error {
				kb, err := d.KB()
				if err != nil {
					return err
				}
				actor, err := d.Actor()
				if err != nil {
					return err
				}
				result, err := d.History.HandleRevert(cmd.Context(), kb, target, actor)
				if err != nil {
					return err
				}
				return output(result, func(w io.Writer) {
					if !result.Committed {
						fmt.Fprintf(w, "Already matches version %d; nothing to revert\n", target)
						return
					}
					fmt.Fprintf(w, "Reverted to version %d as version %d\n", target, result.Version)
					printChanges(w, result.Changes)
				})
			})
		},
	}
}

func parseVersion(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 {
		return 0, errs.Validation("invalid version %q", s)
	}
	return v, nil
}
