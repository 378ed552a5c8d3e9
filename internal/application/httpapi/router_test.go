package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/onto-core/internal/application/handlers"
	"github.com/ersonp/onto-core/internal/domain/entities"
	"github.com/ersonp/onto-core/internal/domain/errs"
	"github.com/ersonp/onto-core/internal/domain/mocks"
	"github.com/ersonp/onto-core/internal/domain/services"
	"github.com/ersonp/onto-core/internal/infrastructure/config"
	"github.com/ersonp/onto-core/internal/infrastructure/kblock"
	"github.com/ersonp/onto-core/internal/infrastructure/metrics"
	"github.com/ersonp/onto-core/internal/infrastructure/relationaldb/sqlite"
)

func setupRouter(t *testing.T) chi.Router {
	t.Helper()
	return setupRouterWith(t, Options{})
}

func setupRouterWith(t *testing.T, opts Options) chi.Router {
	t.Helper()

	store, err := sqlite.NewRepository(config.SQLiteConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.EnsureSchema(context.Background()))

	rec := metrics.NewPrometheus()
	applier := services.NewChangeApplier(store, kblock.New(time.Second), services.ApplierOptions{Recorder: rec})
	kbs := services.NewKnowledgeBaseService(store, applier, nil)
	mrs := services.NewMergeRequestService(store, applier, nil, rec, nil)
	history := services.NewHistoryService(store, applier, nil)

	return NewRouter(Handlers{
		KnowledgeBases: handlers.NewKnowledgeBaseHandler(kbs),
		MergeRequests:  handlers.NewMergeRequestHandler(kbs, mrs),
		History:        handlers.NewHistoryHandler(kbs, history, services.NewSnapshotStore(store)),
		Imports:        handlers.NewImportHandler(kbs),
	}, Options{Identity: opts.Identity, Metrics: rec.Handler()})
}

// call performs a request and returns the recorder. body is encoded as JSON
// unless it is nil.
func call(t *testing.T, r http.Handler, method, path, actor string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set(ActorHeader, actor)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// seedRouter creates knowledge base "Biology" holding concept 1 "Cell" with
// definition "A" and returns its id.
func seedRouter(t *testing.T, r http.Handler) string {
	t.Helper()

	rec := call(t, r, http.MethodPost, "/api/knowledge-bases", "", map[string]string{"name": "Biology"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	kb := decode[entities.KnowledgeBase](t, rec)

	rec = call(t, r, http.MethodPost, "/api/knowledge-bases/"+kb.ID+"/changes", "seeder", []entities.Change{{
		EntityType: entities.EntityConcept,
		Kind:       entities.ChangeCreate,
		After:      entities.FieldValues{"name": "Cell", "definition": "A"},
	}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return kb.ID
}

// approvedMergeRequest opens a merge request by alice that sets the
// definition of concept 1, and has bob approve it.
func approvedMergeRequest(t *testing.T, r http.Handler, kbID, definition string) string {
	t.Helper()

	rec := call(t, r, http.MethodPost, "/api/knowledge-bases/"+kbID+"/merge-requests", "alice",
		map[string]string{"title": "Define " + definition})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	mr := decode[entities.MergeRequest](t, rec)

	rec = call(t, r, http.MethodPut, "/api/merge-requests/"+mr.ID+"/edits", "alice", map[string]any{
		"entity_type": "concept",
		"entity_id":   1,
		"fields":      map[string]any{"definition": definition},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = call(t, r, http.MethodPost, "/api/merge-requests/"+mr.ID+"/submit", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = call(t, r, http.MethodPost, "/api/merge-requests/"+mr.ID+"/approve", "bob", map[string]string{"comment": "ok"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return mr.ID
}

func TestRouter_Healthz(t *testing.T) {
	r := setupRouter(t)

	rec := call(t, r, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouter_KnowledgeBases(t *testing.T) {
	r := setupRouter(t)
	kbID := seedRouter(t, r)

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
	}{
		{"get by id", http.MethodGet, "/api/knowledge-bases/" + kbID, nil, http.StatusOK},
		{"get by name", http.MethodGet, "/api/knowledge-bases/biology", nil, http.StatusOK},
		{"unknown", http.MethodGet, "/api/knowledge-bases/physics", nil, http.StatusNotFound},
		{"list", http.MethodGet, "/api/knowledge-bases", nil, http.StatusOK},
		{"entities", http.MethodGet, "/api/knowledge-bases/Biology/entities?type=concept", nil, http.StatusOK},
		{"entities bad type", http.MethodGet, "/api/knowledge-bases/Biology/entities?type=widget", nil, http.StatusBadRequest},
		{"duplicate name", http.MethodPost, "/api/knowledge-bases", map[string]string{"name": "BIOLOGY"}, http.StatusBadRequest},
		{"blank name", http.MethodPost, "/api/knowledge-bases", map[string]string{"name": " "}, http.StatusBadRequest},
		{"unknown body field", http.MethodPost, "/api/knowledge-bases", map[string]string{"title": "x"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(t, r, tt.method, tt.path, "", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}

	t.Run("entities body", func(t *testing.T) {
		rec := call(t, r, http.MethodGet, "/api/knowledge-bases/Biology/entities", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		list := decode[[]entities.Entity](t, rec)
		require.Len(t, list, 1)
		assert.Equal(t, entities.ConceptFields{Name: "Cell", Definition: "A"}, list[0].Fields)
	})
}

func TestRouter_ApplyChanges(t *testing.T) {
	r := setupRouter(t)
	kbID := seedRouter(t, r)
	path := "/api/knowledge-bases/" + kbID + "/changes"
	change := []entities.Change{{EntityType: entities.EntityConcept, Kind: entities.ChangeCreate, After: entities.FieldValues{"name": "Organ"}}}

	rec := call(t, r, http.MethodPost, path, "", change)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "actor header is required")

	rec = call(t, r, http.MethodPost, path+"?dry_run=true", "carol", change)
	require.Equal(t, http.StatusOK, rec.Code)
	dry := decode[handlers.ImportResult](t, rec)
	assert.True(t, dry.DryRun)
	assert.Equal(t, int64(1), dry.Version)

	rec = call(t, r, http.MethodPost, path, "carol", map[string]any{"changes": change})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[handlers.ImportResult](t, rec)
	assert.Equal(t, int64(2), res.Version)
	assert.Equal(t, int64(2), res.Changes[0].EntityID)

	rec = call(t, r, http.MethodPost, path, "carol", []entities.Change{{EntityType: entities.EntityConcept, EntityID: 9, Kind: entities.ChangeDelete}})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRouter_MergeRequestFlow(t *testing.T) {
	r := setupRouter(t)
	kbID := seedRouter(t, r)

	rec := call(t, r, http.MethodPost, "/api/knowledge-bases/"+kbID+"/merge-requests", "", map[string]string{"title": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "actor header is required")

	rec = call(t, r, http.MethodPost, "/api/knowledge-bases/"+kbID+"/merge-requests", "alice", map[string]string{"title": "Define cell"})
	require.Equal(t, http.StatusCreated, rec.Code)
	mr := decode[entities.MergeRequest](t, rec)
	base := "/api/merge-requests/" + mr.ID

	rec = call(t, r, http.MethodPut, base+"/edits", "alice", map[string]any{
		"entity_type": "concept", "entity_id": 0, "fields": map[string]any{"name": "Organ"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	edit := decode[entities.DraftEdit](t, rec)
	assert.Equal(t, int64(2), edit.Key.ID)

	rec = call(t, r, http.MethodPut, base+"/edits", "alice", map[string]any{
		"entity_type": "concept", "entity_id": 1, "fields": map[string]any{"definition": "B"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = call(t, r, http.MethodDelete, base+"/edits/concept/2", "alice", nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = call(t, r, http.MethodPut, base+"/edits", "bob", map[string]any{
		"entity_type": "concept", "entity_id": 1, "fields": map[string]any{"definition": "C"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "only the author edits")

	rec = call(t, r, http.MethodPost, base+"/recompute", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]entities.Change](t, rec), 1)

	rec = call(t, r, http.MethodGet, base, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[handlers.MergeRequestDetail](t, rec)
	assert.Equal(t, entities.ChangeStats{Updates: 1}, detail.Stats)

	rec = call(t, r, http.MethodPost, base+"/approve", "bob", nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "draft cannot be approved")

	rec = call(t, r, http.MethodPost, base+"/submit", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = call(t, r, http.MethodPost, base+"/approve", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "self approval")

	rec = call(t, r, http.MethodPost, base+"/comment", "bob", map[string]string{"body": "nice"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "nice", decode[entities.Comment](t, rec).Body)

	rec = call(t, r, http.MethodPost, base+"/dance", "bob", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, r, http.MethodPost, base+"/approve", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, entities.StatusApproved, decode[entities.MergeRequest](t, rec).Status)

	rec = call(t, r, http.MethodGet, base+"/conflicts", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[entities.ConflictReport](t, rec).Conflicts)

	rec = call(t, r, http.MethodPost, base+"/merge", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	commit := decode[services.CommitResult](t, rec)
	assert.Equal(t, int64(2), commit.Version)
	assert.True(t, commit.Committed)

	rec = call(t, r, http.MethodGet, "/api/knowledge-bases/"+kbID+"/merge-requests?status=merged", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]entities.MergeRequest](t, rec), 1)

	rec = call(t, r, http.MethodGet, "/api/merge-requests/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_MergeConflict(t *testing.T) {
	r := setupRouter(t)
	kbID := seedRouter(t, r)

	first := approvedMergeRequest(t, r, kbID, "B")
	second := approvedMergeRequest(t, r, kbID, "C")

	rec := call(t, r, http.MethodPost, "/api/merge-requests/"+first+"/merge", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = call(t, r, http.MethodPost, "/api/merge-requests/"+second+"/merge", "bob", nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	var body struct {
		Error  string                  `json:"error"`
		Report entities.ConflictReport `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Error, "merge conflict")
	require.Len(t, body.Report.Conflicts, 1)
	assert.Equal(t, "definition", body.Report.Conflicts[0].Field)
	assert.Equal(t, "A", body.Report.Conflicts[0].Expected)
	assert.Equal(t, "B", body.Report.Conflicts[0].Actual)
	assert.Equal(t, int64(2), body.Report.CheckedAtVersion)

	rec = call(t, r, http.MethodGet, "/api/merge-requests/"+second, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, entities.StatusApproved, decode[handlers.MergeRequestDetail](t, rec).MergeRequest.Status)

	rec = call(t, r, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "onto_conflicts_total 1")
}

func TestRouter_History(t *testing.T) {
	r := setupRouter(t)
	kbID := seedRouter(t, r)
	mrID := approvedMergeRequest(t, r, kbID, "B")
	rec := call(t, r, http.MethodPost, "/api/merge-requests/"+mrID+"/merge", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	kbPath := "/api/knowledge-bases/" + kbID

	rec = call(t, r, http.MethodGet, kbPath+"/history?take=10", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[handlers.HistoryResult](t, rec)
	require.Len(t, history.Entries, 2)
	assert.Equal(t, mrID, history.Entries[0].MergeRequestID)

	rec = call(t, r, http.MethodGet, kbPath+"/compare?from=1&to=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	compare := decode[handlers.CompareResult](t, rec)
	require.Len(t, compare.Changes, 1)
	assert.Equal(t, entities.FieldValues{"definition": "B"}, compare.Changes[0].After)

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"compare missing to", kbPath + "/compare?from=1", http.StatusBadRequest},
		{"compare bad number", kbPath + "/compare?from=x&to=2", http.StatusBadRequest},
		{"compare future", kbPath + "/compare?from=1&to=9", http.StatusNotFound},
		{"history bad take", kbPath + "/history?take=-1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(t, r, http.MethodGet, tt.path, "", nil)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}

	rec = call(t, r, http.MethodPost, kbPath+"/revert", "carol", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "target_version is required")

	rec = call(t, r, http.MethodPost, kbPath+"/revert", "carol", map[string]any{"target_version": 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	reverted := decode[services.CommitResult](t, rec)
	assert.Equal(t, int64(3), reverted.Version)

	rec = call(t, r, http.MethodGet, kbPath+"/snapshot", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[entities.Snapshot](t, rec)
	assert.Equal(t, int64(3), snap.CapturedAtVersion)
	assert.Equal(t, entities.ConceptFields{Name: "Cell", Definition: "A"}, snap.Entities[entities.EntityKey{Type: entities.EntityConcept, ID: 1}])
}

func TestRouter_SearchDisabled(t *testing.T) {
	r := setupRouter(t)
	kbID := seedRouter(t, r)

	rec := call(t, r, http.MethodGet, "/api/knowledge-bases/"+kbID+"/search?q=cell", "", nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", errs.Validation("bad"), http.StatusBadRequest},
		{"not found", errs.NotFound("merge request", "x"), http.StatusNotFound},
		{"transition", &errs.TransitionError{Status: entities.StatusMerged, Action: entities.ActionClose}, http.StatusConflict},
		{"self review", &errs.TransitionError{Action: entities.ActionApprove, Validation: true}, http.StatusBadRequest},
		{"conflict", &errs.ConflictError{}, http.StatusConflict},
		{"timeout", fmt.Errorf("locking: %w", errs.ErrConcurrencyTimeout), http.StatusServiceUnavailable},
		{"apply failure", errs.ApplyFailure(errors.New("disk full")), http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestWriteJSON_LogsEncodeFailure(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/knowledge-bases", nil)
	rec := httptest.NewRecorder()
	writeJSON(rec, req, logger, http.StatusOK, map[string]any{"score": math.Inf(1)})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, logs.String(), "writing response")
	assert.Contains(t, logs.String(), "path=/api/knowledge-bases")
}

func TestHeaderIdentity(t *testing.T) {
	_, err := HeaderIdentity{}.ActorID(context.Background())
	assert.ErrorIs(t, err, errs.ErrValidation)

	var got string
	h := withActor(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, err = HeaderIdentity{}.ActorID(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ActorHeader, " alice ")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NoError(t, err)
	assert.Equal(t, "alice", got)
}

func TestRouter_CustomIdentity(t *testing.T) {
	r := setupRouterWith(t, Options{Identity: mocks.Identity{Actor: "svc-importer"}})

	rec := call(t, r, http.MethodPost, "/api/knowledge-bases", "", map[string]string{"name": "Biology"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	kb := decode[entities.KnowledgeBase](t, rec)

	rec = call(t, r, http.MethodPost, "/api/knowledge-bases/"+kb.ID+"/merge-requests", "", map[string]string{"title": "Seed"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	mr := decode[entities.MergeRequest](t, rec)
	assert.Equal(t, "svc-importer", mr.AuthorID)

	denied := setupRouterWith(t, Options{Identity: mocks.Identity{Err: errs.Validation("missing token")}})
	rec = call(t, denied, http.MethodPost, "/api/knowledge-bases", "", map[string]string{"name": "Chemistry"})
	require.Equal(t, http.StatusCreated, rec.Code)
	kb = decode[entities.KnowledgeBase](t, rec)

	rec = call(t, denied, http.MethodPost, "/api/knowledge-bases/"+kb.ID+"/merge-requests", "alice", map[string]string{"title": "Seed"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
