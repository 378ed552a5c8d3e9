package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ersonp/onto-core/internal/application/handlers"
	"github.com/ersonp/onto-core/internal/domain/ports"
	"github.com/ersonp/onto-core/internal/domain/services"
	"github.com/ersonp/onto-core/internal/infrastructure/config"
	embedder "github.com/ersonp/onto-core/internal/infrastructure/embedder/openai"
	"github.com/ersonp/onto-core/internal/infrastructure/kblock"
	"github.com/ersonp/onto-core/internal/infrastructure/logging"
	"github.com/ersonp/onto-core/internal/infrastructure/metrics"
	"github.com/ersonp/onto-core/internal/infrastructure/notify"
	"github.com/ersonp/onto-core/internal/infrastructure/relationaldb/sqlite"
	"github.com/ersonp/onto-core/internal/infrastructure/vectordb/qdrant"
)

// Deps holds high-level dependencies for commands.
// Only handlers are exposed - services and repositories are internal.
type Deps struct {
	Config         *config.Config
	Logger         *slog.Logger
	KnowledgeBases *handlers.KnowledgeBaseHandler
	MergeRequests  *handlers.MergeRequestHandler
	History        *handlers.HistoryHandler
	Imports        *handlers.ImportHandler
	Search         *handlers.SearchHandler
	// Metrics is nil unless metrics are enabled in config.
	Metrics *metrics.Prometheus

	basePath  string
	workspace *config.Workspace
}

// withDeps loads config and builds dependencies, then calls the provided function.
// It handles cleanup automatically.
func withDeps(fn func(*Deps) error) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	workspace, err := config.LoadWorkspace(cwd)
	if err != nil {
		return fmt.Errorf("loading workspace: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}

	store, err := sqlite.NewRepository(cfg.Database)
	if err != nil {
		return fmt.Errorf("creating sqlite repository: %w", err)
	}
	defer store.Close()

	// Ensure schema exists
	if err := store.EnsureSchema(context.Background()); err != nil {
		return fmt.Errorf("ensuring sqlite schema: %w", err)
	}

	var (
		recorder ports.Recorder = metrics.Noop{}
		prom     *metrics.Prometheus
	)
	if cfg.Metrics.Enabled {
		prom = metrics.NewPrometheus()
		recorder = prom
	}

	sink := notify.Multi{notify.NewLog(logger)}
	if cfg.Notifications.WebhookURL != "" {
		webhook := notify.NewWebhook(cfg.Notifications.WebhookURL, cfg.Notifications.Timeout, logger)
		defer webhook.Wait()
		sink = append(sink, webhook)
	}

	var (
		invalidators []ports.CacheInvalidator
		index        *services.ConceptIndex
	)
	if cfg.Index.Enabled {
		repo, err := qdrant.NewRepository(cfg.Index)
		if err != nil {
			return fmt.Errorf("creating qdrant repository: %w", err)
		}
		defer repo.Close()

		emb, err := embedder.NewEmbedder(cfg.Embedder)
		if err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}

		index = services.NewConceptIndex(store, emb, repo, logger)
		invalidators = append(invalidators, index)
	}

	applier := services.NewChangeApplier(store, kblock.New(cfg.Lock.Timeout), services.ApplierOptions{
		Invalidators: invalidators,
		Sink:         sink,
		Recorder:     recorder,
		Logger:       logger,
	})
	kbService := services.NewKnowledgeBaseService(store, applier, logger)
	mrService := services.NewMergeRequestService(store, applier, sink, recorder, logger)
	historyService := services.NewHistoryService(store, applier, logger)

	deps := &Deps{
		Config:         cfg,
		Logger:         logger,
		KnowledgeBases: handlers.NewKnowledgeBaseHandler(kbService),
		MergeRequests:  handlers.NewMergeRequestHandler(kbService, mrService),
		History:        handlers.NewHistoryHandler(kbService, historyService, services.NewSnapshotStore(store)),
		Imports:        handlers.NewImportHandler(kbService),
		Search:         handlers.NewSearchHandler(kbService, index),
		Metrics:        prom,
		basePath:       cwd,
		workspace:      workspace,
	}

	return fn(deps)
}

// KB returns the knowledge base commands operate on: the --kb flag, or the
// workspace's current knowledge base.
func (d *Deps) KB() (string, error) {
	return resolveKB(globalKB, d.workspace)
}

// Actor returns the acting user: the --actor flag, $ONTO_ACTOR, or the
// workspace actor, in that order.
func (d *Deps) Actor() (string, error) {
	return resolveActor(globalActor, os.Getenv(actorEnv), d.workspace)
}

// UseKB makes ref the workspace's current knowledge base.
func (d *Deps) UseKB(ref string) error {
	d.workspace.CurrentKB = ref
	return d.workspace.Save(d.basePath)
}

func resolveKB(flag string, ws *config.Workspace) (string, error) {
	if kb := strings.TrimSpace(flag); kb != "" {
		return kb, nil
	}
	if ws != nil && ws.CurrentKB != "" {
		return ws.CurrentKB, nil
	}
	return "", errors.New("knowledge base is required (use --kb or 'onto kb use NAME')")
}

func resolveActor(flag, env string, ws *config.Workspace) (string, error) {
	if a := strings.TrimSpace(flag); a != "" {
		return a, nil
	}
	if a := strings.TrimSpace(env); a != "" {
		return a, nil
	}
	if ws != nil && ws.Actor != "" {
		return ws.Actor, nil
	}
	return "", fmt.Errorf("actor is required (use --actor, $%s or 'onto init --actor NAME')", actorEnv)
}
