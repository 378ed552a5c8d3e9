package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ersonp/onto-core/internal/application/handlers"
	"github.com/ersonp/onto-core/internal/domain/ports"
	"github.com/ersonp/onto-core/internal/infrastructure/config"
	"github.com/ersonp/onto-core/internal/infrastructure/vectordb/qdrant"
)

func newInitCmd() *cobra.Command {
	var withIndex bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new onto project",
		Long: "Creates a .onto directory with default configuration. With --index the Qdrant " +
			"collection for concept search is created as well. --actor is saved as the " +
			"workspace's default acting user.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, globalActor, withIndex)
		},
	}

	cmd.Flags().BoolVar(&withIndex, "index", false, "Create the Qdrant collection for concept search")

	return cmd
}

func runInit(cmd *cobra.Command, actor string, withIndex bool) error {
	ctx := cmd.Context()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	var vectorDB ports.VectorDB
	if withIndex {
		repo, err := qdrant.NewRepository(config.Default().Index)
		if err != nil {
			return fmt.Errorf("connecting to qdrant: %w", err)
		}
		defer repo.Close()
		vectorDB = repo
	}

	result, err := handlers.NewInitHandler(vectorDB).Handle(ctx, cwd)
	if err != nil {
		return err
	}

	fmt.Printf("Created %s\n", result.ConfigPath)
	fmt.Printf("Database: %s\n", result.DatabasePath)

	if result.CollectionName != "" {
		fmt.Printf("Created Qdrant collection: %s\n", result.CollectionName)
	}

	if actor = strings.TrimSpace(actor); actor != "" {
		ws := &config.Workspace{Actor: actor}
		if err := ws.Save(cwd); err != nil {
			return err
		}
		fmt.Printf("Acting as %s\n", actor)
	}

	fmt.Println("Onto initialized successfully!")
	return nil
}
