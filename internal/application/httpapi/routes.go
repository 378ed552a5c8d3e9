package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ersonp/onto-core/internal/application/handlers"
	"github.com/ersonp/onto-core/internal/domain/entities"
	"github.com/ersonp/onto-core/internal/domain/errs"
	"github.com/ersonp/onto-core/internal/domain/ports"
)

type api struct {
	h        Handlers
	identity ports.ActorIdentity
	logger   *slog.Logger
}

// RegisterRoutes mounts the knowledge base and merge request endpoints
// under /api on the given router.
func RegisterRoutes(r chi.Router, h Handlers, identity ports.ActorIdentity, logger *slog.Logger) {
	if identity == nil {
		identity = HeaderIdentity{}
	}
	a := &api{h: h, identity: identity, logger: logger}

	r.Route("/api/knowledge-bases", func(r chi.Router) {
		r.Post("/", a.createKnowledgeBase)
		r.Get("/", a.listKnowledgeBases)
		r.Route("/{kb}", func(r chi.Router) {
			r.Get("/", a.getKnowledgeBase)
			r.Get("/entities", a.listEntities)
			r.Post("/changes", a.applyChanges)
			r.Get("/history", a.history)
			r.Get("/compare", a.compare)
			r.Post("/revert", a.revert)
			r.Get("/snapshot", a.snapshot)
			r.Get("/search", a.search)
			r.Post("/reindex", a.reindex)
			r.Post("/merge-requests", a.createMergeRequest)
			r.Get("/merge-requests", a.listMergeRequests)
		})
	})

	r.Route("/api/merge-requests/{id}", func(r chi.Router) {
		r.Get("/", a.getMergeRequest)
		r.Put("/edits", a.stageEdit)
		r.Delete("/edits/{type}/{entityID}", a.discardEdit)
		r.Post("/recompute", a.recompute)
		r.Get("/conflicts", a.conflicts)
		r.Post("/merge", a.merge)
		r.Post("/{action}", a.action)
	})
}

// actor resolves the caller or writes the error response.
func (a *api) actor(w http.ResponseWriter, r *http.Request) (string, bool) {
	actor, err := a.identity.ActorID(r.Context())
	if err != nil {
		writeError(w, r, a.logger, err)
		return "", false
	}
	return actor, true
}

func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, a.logger, err)
}

func queryInt(r *http.Request, name string) (int64, bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, false, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, errs.Validation("query parameter %s: invalid integer %q", name, v)
	}
	return n, true, nil
}

type createKnowledgeBaseRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (a *api) createKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	var req createKnowledgeBaseRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	kb, err := a.h.KnowledgeBases.HandleCreate(r.Context(), req.Name, req.Description)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, r, a.logger, http.StatusCreated, kb)
}

func (a *api) listKnowledgeBases(w http.ResponseWriter, r *http.Request) {
	list, err := a.h.KnowledgeBases.HandleList(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, r, a.logger, http.StatusOK, list)
}

func (a *api) getKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	kb, err := a.h.KnowledgeBases.HandleShow(r.Context(), chi.URLParam(r, "kb"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, r, a.logger, http.StatusOK, kb)
}

func (a *api) listEntities(w http.ResponseWriter, r *http.Request) {
	result, err := a.h.KnowledgeBases.HandleEntities(r.Context(), chi.URLParam(r, "kb"), r.URL.Query().Get("type"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, r, a.logger, http.StatusOK, result.Entities)
}

func (a *api) applyChanges(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.actor(w, r)
	if !ok {
		return
	}
	opts := handlers.ImportOptions{
		Format: "json",
		DryRun: r.URL.Query().Get("dry_run") == "true",
	}
	result, err := a.h.Imports.HandleReader(r.Context(), chi.URLParam(r, "kb"), actor, r.Body, opts)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	status := http.StatusCreated
	if !result.Committed {
		status = http.StatusOK
	}
	writeJSON(w, r, a.logger, status, result)
}

func (a *api) history(w http.ResponseWriter, r *http.Request) {
	skip, _, err := queryInt(r, "skip")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	take, _, err := queryInt(r, "take")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	result, err := a.h.History.HandleHistory(r.Context(), chi.URLParam(r, "kb"), int(skip), int(take))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, r, a.logger, http.StatusOK, result)
}

func (a *api) compare(w http.ResponseWriter, r *http.Request) {
	from, okFrom, err := queryInt(r, "from")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	to, okTo, err := queryInt(r, "to")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if !okFrom || !okTo {
		a.fail(w, r, errs.Validation("query parameters from and to are required"))
		return
	}
	result, err := a.h.History.HandleCompare(r.Context(), chi.URLParam(r, "kb"), from, to)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, r, a.logger, http.StatusOK, result)
}

type revertRequest struct {
	TargetVersion *int64 `json:"target_version"`
}

func (a *api) revert(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.actor(w, r)
	if !ok {
		return
	}
	var req revertRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if req.TargetVersion == nil {
		a.fail(w, r, errs.Validation("target_version is required"))
		return
	}
	result, err := a.h.History.HandleRevert(r.Context(), chi.URLParam(r, "kb"), *req.TargetVersion, actor)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, r, a.logger, http.StatusOK, result)
}

func (a *api) snapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := a.h.History.HandleExportSnapshot(r.Context(), chi.URLParam(r, "kb"), r.URL.Query().Get("id"), w); err != nil {
		a.fail(w, r, err)
	}
}

func (a *api) search(w http.ResponseWriter, r *http.Request) {
	if a.h.Search == nil {
		a.fail(w, r, handlers.ErrIndexDisabled)
		return
	}
	limit, _, err := queryInt(r, "limit")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	result, err := a.h.Search.Handle(r.Context(), chi.URLParam(r, "kb"), r.URL.Query().Get("q"), int(limit))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, r, a.logger, http.StatusOK, result)
}

func (a *api) reindex(w http.ResponseWriter, r *http.Request) {
	if a.h.Search == nil {
		a.fail(w, r, handlers.ErrIndexDisabled)
		return
	}
	n, err := a.h.Search.HandleReindex(r.Context(), chi.URLParam(r, "kb"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, r, a.logger, http.StatusOK, map[string]int{"indexed": n})
}

type createMergeRequestRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (a *api) createMergeRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.actor(w, r)
	if !ok {
		return
	}
	var req createMergeRequestRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	mr, err := a.h.MergeRequests.HandleCreate(r.Context(), chi.URLParam(r, "kb"), actor, req.Title, req.Description)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, r, a.logger, http.StatusCreated, mr)
}

func (a *api) listMergeRequests(w http.ResponseWriter, r *http.Request) {
	list, err := a.h.MergeRequests.HandleList(r.Context(), chi.URLParam(r, "kb"), r.URL.Query().Get("status"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, r, a.logger, http.StatusOK, list)
}

func (a *api) getMergeRequest(w http.ResponseWriter, r *http.Request) {
	detail, err := a.h.MergeRequests.HandleShow(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, r, a.logger, http.StatusOK, detail)
}

type stageEditRequest struct {
	EntityType string               `json:"entity_type"`
	EntityID   int64                `json:"entity_id"`
	Fields     entities.FieldValues `json:"fields"`
	Deleted    bool                 `json:"deleted"`
}

func (a *api) stageEdit(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.actor(w, r)
	if !ok {
		return
	}
	var req stageEditRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	t, err := entities.ParseEntityType(req.EntityType)
	if err != nil {
		a.fail(w, r, errs.Validation("%w", err))
		return
	}
	key := entities.EntityKey{Type: t, ID: req.EntityID}
	id := chi.URLParam(r, "id")

	if req.Deleted {
		if err := a.h.MergeRequests.HandleDeleteEntity(r.Context(), id, actor, key.String()); err != nil {
			a.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	edit, err := a.h.MergeRequests.HandleEditValues(r.Context(), id, actor, key, req.Fields)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, r, a.logger, http.StatusOK, edit)
}

func (a *api) discardEdit(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.actor(w, r)
	if !ok {
		return
	}
	key := chi.URLParam(r, "type") + "/" + chi.URLParam(r, "entityID")
	if err := a.h.MergeRequests.HandleDiscard(r.Context(), chi.URLParam(r, "id"), actor, key); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) recompute(w http.ResponseWriter, r *http.Request) {
	changes, err := a.h.MergeRequests.HandleRecompute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, r, a.logger, http.StatusOK, changes)
}

func (a *api) conflicts(w http.ResponseWriter, r *http.Request) {
	report, err := a.h.MergeRequests.HandleConflicts(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, r, a.logger, http.StatusOK, report)
}

func (a *api) merge(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.actor(w, r)
	if !ok {
		return
	}
	result, err := a.h.MergeRequests.HandleMerge(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, r, a.logger, http.StatusOK, result)
}

type actionRequest struct {
	Comment string `json:"comment"`
	Body    string `json:"body"`
}

func (a *api) action(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.actor(w, r)
	if !ok {
		return
	}
	var req actionRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	comment := req.Comment
	if comment == "" {
		comment = req.Body
	}

	result, err := a.h.MergeRequests.HandleAction(r.Context(), chi.URLParam(r, "id"), actor, chi.URLParam(r, "action"), comment)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if result.Comment != nil {
		writeJSON(w, r, a.logger, http.StatusCreated, result.Comment)
		return
	}
	writeJSON(w, r, a.logger, http.StatusOK, result.MergeRequest)
}
