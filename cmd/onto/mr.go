package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ersonp/onto-core/internal/domain/entities"
	"github.com/ersonp/onto-core/internal/domain/errs"
)

func newMRCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "mr",
		Aliases: []string{"merge-request"},
		Short:   "Manage merge requests",
	}

	cmd.AddCommand(
		newMRCreateCmd(),
		newMRListCmd(),
		newMRShowCmd(),
		newMREditCmd(),
		newMRDeleteEntityCmd(),
		newMRDiscardCmd(),
		newMRRecomputeCmd(),
		newMRConflictsCmd(),
		newMRMergeCmd(),
	)

	for _, a := range []struct {
		use   string
		short string
	}{
		{"submit", "Submit a merge request for review"},
		{"approve", "Approve a submitted merge request"},
		{"reject", "Reject a submitted merge request"},
		{"request-changes", "Send a submitted merge request back to its author"},
		{"reopen", "Return a merge request with requested changes to draft"},
		{"close", "Close a merge request without merging"},
		{"rebase", "Move a merge request onto the current version"},
		{"comment", "Comment on a merge request"},
	} {
		cmd.AddCommand(newMRActionCmd(a.use, a.short))
	}

	return cmd
}

func newMRCreateCmd() *cobra.Command {
	var title, description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a draft merge request on the current knowledge base",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(d *Deps) error {
				kb, err := d.KB()
				if err != nil {
					return err
				}
				actor, err := d.Actor()
				if err != nil {
					return err
				}
				mr, err := d.MergeRequests.HandleCreate(cmd.Context(), kb, actor, title, description)
				if err != nil {
					return err
				}
				return output(mr, func(w io.Writer) {
					fmt.Fprintf(w, "Created merge request %s at version %d\n", mr.ID, mr.BaseVersion)
				})
			})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Merge request title (required)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Merge request description")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func newMRListCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List merge requests of the current knowledge base",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(d *Deps) error {
				kb, err := d.KB()
				if err != nil {
					return err
				}
				list, err := d.MergeRequests.HandleList(cmd.Context(), kb, status)
				if err != nil {
					return err
				}
				return output(list, func(w io.Writer) {
					if len(list) == 0 {
						fmt.Fprintln(w, "No merge requests.")
						return
					}
					tw := newTable(w)
					fmt.Fprintln(tw, "ID\tSTATUS\tBASE\tAUTHOR\tTITLE")
					for _, mr := range list {
						fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", mr.ID, mr.Status, mr.BaseVersion, mr.AuthorID, mr.Title)
					}
					tw.Flush()
				})
			})
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "Only list merge requests with this status")

	return cmd
}

func newMRShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a merge request with its changes and comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(d *Deps) error {
				detail, err := d.MergeRequests.HandleShow(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return output(detail, func(w io.Writer) { printMergeRequest(w, detail.MergeRequest, detail.Stats) })
			})
		},
	}
}

func printMergeRequest(w io.Writer, mr *entities.MergeRequest, stats entities.ChangeStats) {
	fmt.Fprintf(w, "%s  %s\n", mr.ID, mr.Title)
	fmt.Fprintf(w, "Status:   %s\n", mr.Status)
	fmt.Fprintf(w, "Author:   %s\n", mr.AuthorID)
	if mr.ReviewerID != "" {
		fmt.Fprintf(w, "Reviewer: %s\n", mr.ReviewerID)
	}
	fmt.Fprintf(w, "Base:     version %d\n", mr.BaseVersion)
	if mr.Status == entities.StatusMerged {
		fmt.Fprintf(w, "Merged:   version %d\n", mr.MergedVersion)
	}
	if mr.Description != "" {
		fmt.Fprintf(w, "\n%s\n", mr.Description)
	}

	fmt.Fprintf(w, "\nChanges (%s):\n", formatStats(stats))
	printChanges(w, mr.Changes)

	if len(mr.Comments) > 0 {
		fmt.Fprintln(w, "\nComments:")
		for _, c := range mr.Comments {
			label := c.AuthorID
			if c.Action != "" {
				label = fmt.Sprintf("%s (%s)", c.AuthorID, c.Action)
			}
			fmt.Fprintf(w, "  [%s] %s: %s\n", formatTime(c.CreatedAt), label, c.Body)
		}
	}
}

func newMREditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit ID TYPE/ENTITY_ID FIELD=VALUE...",
		Short: "Stage field values for an entity (entity id 0 creates a new one)",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(d *Deps) error {
				actor, err := d.Actor()
				if err != nil {
					return err
				}
				edit, err := d.MergeRequests.HandleEdit(cmd.Context(), args[0], actor, args[1], args[2:])
				if err != nil {
					return err
				}
				return output(edit, func(w io.Writer) {
					fmt.Fprintf(w, "Staged %s %s\n", edit.Key, formatValues(edit.Patch))
				})
			})
		},
	}
}

func newMRDeleteEntityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-entity ID TYPE/ENTITY_ID",
		Short: "Stage the deletion of an entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(d *Deps) error {
				actor, err := d.Actor()
				if err != nil {
					return err
				}
				if err := d.MergeRequests.HandleDeleteEntity(cmd.Context(), args[0], actor, args[1]); err != nil {
					return err
				}
				fmt.Printf("Staged deletion of %s\n", args[1])
				return nil
			})
		},
	}
}

func newMRDiscardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discard ID TYPE/ENTITY_ID",
		Short: "Drop the staged edit of an entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(d *Deps) error {
				actor, err := d.Actor()
				if err != nil {
					return err
				}
				if err := d.MergeRequests.HandleDiscard(cmd.Context(), args[0], actor, args[1]); err != nil {
					return err
				}
				fmt.Printf("Discarded staged edit of %s\n", args[1])
				return nil
			})
		},
	}
}

func newMRRecomputeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recompute ID",
		Short: "Rebuild the change list from the staged edits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(d *Deps) error {
				changes, err := d.MergeRequests.HandleRecompute(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return output(changes, func(w io.Writer) {
					fmt.Fprintf(w, "Changes (%s):\n", formatStats(entities.CountChanges(changes)))
					printChanges(w, changes)
				})
			})
		},
	}
}

func newMRActionCmd(use, short string) *cobra.Command {
	var comment string

	cmd := &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(d *Deps) error {
				actor, err := d.Actor()
				if err != nil {
					return err
				}
				result, err := d.MergeRequests.HandleAction(cmd.Context(), args[0], actor, use, comment)
				if err != nil {
					return err
				}
				return output(result, func(w io.Writer) {
					if result.Comment != nil {
						fmt.Fprintf(w, "Commented on %s\n", args[0])
						return
					}
					mr := result.MergeRequest
					fmt.Fprintf(w, "Merge request %s is now %s (base version %d)\n", mr.ID, mr.Status, mr.BaseVersion)
				})
			})
		},
	}

	cmd.Flags().StringVarP(&comment, "comment", "m", "", "Comment recorded with the action")
	if use == "comment" {
		_ = cmd.MarkFlagRequired("comment")
	}

	return cmd
}

func newMRConflictsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "conflicts ID",
		Short: "Check a merge request against the live knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(d *Deps) error {
				report, err := d.MergeRequests.HandleConflicts(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return output(report, func(w io.Writer) { printConflicts(w, *report) })
			})
		},
	}
}

func printConflicts(w io.Writer, report entities.ConflictReport) {
	if !report.HasConflicts() {
		fmt.Fprintf(w, "No conflicts at version %d.\n", report.CheckedAtVersion)
		return
	}
	fmt.Fprintf(w, "%d conflict(s) at version %d:\n", len(report.Conflicts), report.CheckedAtVersion)
	for _, c := range report.Conflicts {
		fmt.Fprintf(w, "  %s\n", c)
	}
}

func newMRMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge ID",
		Short: "Merge an approved merge request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(d *Deps) error {
				actor, err := d.Actor()
				if err != nil {
					return err
				}
				result, err := d.MergeRequests.HandleMerge(cmd.Context(), args[0], actor)
				if err != nil {
					var conflict *errs.ConflictError
					if errors.As(err, &conflict) && !globalJSON {
						printConflicts(os.Stderr, conflict.Report)
						return errors.New("merge refused; rebase the merge request and resolve the conflicts")
					}
					return err
				}
				return output(result, func(w io.Writer) {
					if !result.Committed {
						fmt.Fprintf(w, "Merged %s with no changes; version stays %d\n", args[0], result.Version)
						return
					}
					fmt.Fprintf(w, "Merged %s as version %d (%s)\n", args[0], result.Version, formatStats(entities.CountChanges(result.Changes)))
				})
			})
		},
	}
}
