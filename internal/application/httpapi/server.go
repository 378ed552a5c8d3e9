// Package httpapi exposes the knowledge base operations over HTTP/JSON.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ersonp/onto-core/internal/application/handlers"
	"github.com/ersonp/onto-core/internal/domain/ports"
	"github.com/ersonp/onto-core/internal/infrastructure/logging"
)

// Handlers groups the use case handlers served by the API. Search may be nil.
type Handlers struct {
	KnowledgeBases *handlers.KnowledgeBaseHandler
	MergeRequests  *handlers.MergeRequestHandler
	History        *handlers.HistoryHandler
	Imports        *handlers.ImportHandler
	Search         *handlers.SearchHandler
}

// Options holds the optional parts of the router.
type Options struct {
	Logger *slog.Logger
	// Identity resolves the caller. Defaults to HeaderIdentity.
	Identity ports.ActorIdentity
	// Metrics, when set, is served at /metrics.
	Metrics http.Handler
}

// NewRouter builds the chi router with middleware, health check and every
// API route.
func NewRouter(h Handlers, opts Options) chi.Router {
	logger := logging.OrDiscard(opts.Logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(withActor)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, logger, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}

	RegisterRoutes(r, h, opts.Identity, logger)
	return r
}

// Server wraps an http.Server around the router.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a server listening on addr.
func NewServer(addr string, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logging.OrDiscard(logger),
	}
}

// Start listens until Shutdown is called. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("onto api listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.InfoContext(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
