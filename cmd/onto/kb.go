package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newKBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Manage knowledge bases",
		RunE:  runKBList,
	}

	cmd.AddCommand(
		newKBCreateCmd(),
		newKBListCmd(),
		newKBShowCmd(),
		newKBEntitiesCmd(),
		newKBUseCmd(),
	)

	return cmd
}

func newKBCreateCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a new knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKBCreate(cmd, args[0], description)
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Knowledge base description")

	return cmd
}

func runKBCreate(cmd *cobra.Command, name, description string) error {
	return withDeps(func(d *Deps) error {
		kb, err := d.KnowledgeBases.HandleCreate(cmd.Context(), name, description)
		if err != nil {
			return err
		}

		// The first knowledge base becomes the current one.
		if _, err := d.KB(); err != nil {
			if err := d.UseKB(kb.Name); err != nil {
				return fmt.Errorf("saving workspace: %w", err)
			}
		}

		return output(kb, func(w io.Writer) {
			fmt.Fprintf(w, "Created knowledge base %q (%s)\n", kb.Name, kb.ID)
		})
	})
}

func newKBListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all knowledge bases",
		RunE:  runKBList,
	}
}

func runKBList(cmd *cobra.Command, args []string) error {
	return withDeps(func(d *Deps) error {
		list, err := d.KnowledgeBases.HandleList(cmd.Context())
		if err != nil {
			return err
		}

		current, _ := d.KB()
		return output(list, func(w io.Writer) {
			if len(list) == 0 {
				fmt.Fprintln(w, "No knowledge bases.")
				fmt.Fprintln(w, "Use 'onto kb create NAME' to create one.")
				return
			}

			tw := newTable(w)
			fmt.Fprintln(tw, "\tNAME\tVERSION\tID\tDESCRIPTION")
			for _, kb := range list {
				marker := ""
				if kb.Name == current || kb.ID == current {
					marker = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", marker, kb.Name, kb.Version, kb.ID, kb.Description)
			}
			tw.Flush()
		})
	})
}

func newKBShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [NAME]",
		Short: "Show a knowledge base",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(d *Deps) error {
				ref, err := kbArg(d, args)
				if err != nil {
					return err
				}
				kb, err := d.KnowledgeBases.HandleShow(cmd.Context(), ref)
				if err != nil {
					return err
				}
				return output(kb, func(w io.Writer) {
					fmt.Fprintf(w, "Name:        %s\n", kb.Name)
					fmt.Fprintf(w, "ID:          %s\n", kb.ID)
					fmt.Fprintf(w, "Version:     %d\n", kb.Version)
					if kb.Description != "" {
						fmt.Fprintf(w, "Description: %s\n", kb.Description)
					}
					fmt.Fprintf(w, "Created:     %s\n", formatTime(kb.CreatedAt))
					fmt.Fprintf(w, "Updated:     %s\n", formatTime(kb.UpdatedAt))
				})
			})
		},
	}
}

func newKBEntitiesCmd() *cobra.Command {
	var typ string

	cmd := &cobra.Command{
		Use:   "entities",
		Short: "List the live entities of a knowledge base",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(d *Deps) error {
				ref, err := d.KB()
				if err != nil {
					return err
				}
				result, err := d.KnowledgeBases.HandleEntities(cmd.Context(), ref, typ)
				if err != nil {
					return err
				}
				return output(result, func(w io.Writer) {
					if len(result.Entities) == 0 {
						fmt.Fprintln(w, "No entities.")
						return
					}
					tw := newTable(w)
					fmt.Fprintln(tw, "ENTITY\tFIELDS")
					for _, e := range result.Entities {
						fmt.Fprintf(tw, "%s\t%s\n", e.Key, formatValues(e.Fields.Values()))
					}
					tw.Flush()
				})
			})
		},
	}

	cmd.Flags().StringVarP(&typ, "type", "t", "", "Only list entities of this type")

	return cmd
}

func newKBUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use NAME",
		Short: "Set the current knowledge base for this workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(d *Deps) error {
				kb, err := d.KnowledgeBases.HandleShow(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := d.UseKB(kb.Name); err != nil {
					return fmt.Errorf("saving workspace: %w", err)
				}
				fmt.Printf("Now using knowledge base %q\n", kb.Name)
				return nil
			})
		},
	}
}

// kbArg returns the knowledge base named by the first argument, falling back
// to the --kb flag and the workspace.
func kbArg(d *Deps, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return d.KB()
}
