package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dgallion1/treeindex/internal/config"
	"github.com/dgallion1/treeindex/internal/doctree"
	"github.com/dgallion1/treeindex/internal/graphsync"
	"github.com/dgallion1/treeindex/internal/llm"
	"github.com/dgallion1/treeindex/internal/navigator"
	"github.com/dgallion1/treeindex/internal/pipeline"
	"github.com/dgallion1/treeindex/internal/store"
)

// JobQueue accepts build jobs and reports their state.
type JobQueue interface {
	Submit(job *pipeline.Job) error
	GetJob(id string) *pipeline.Job
	QueueDepth() int
}

// RecordStore reads and deletes persisted tree indexes.
type RecordStore interface {
	ListTreeIndexes(ctx context.Context) ([]*doctree.Record, error)
	GetTreeIndex(ctx context.Context, documentID string) (*doctree.Record, error)
	GetTreeIndexes(ctx context.Context, ids []string) ([]*doctree.Record, error)
	DeleteTreeIndex(ctx context.Context, documentID string) error
}

// Searcher selects relevant sections across tree indexes.
type Searcher interface {
	Search(ctx context.Context, query string, records []*doctree.Record, opts navigator.Options) []navigator.Result
}

// GraphCounter is implemented by graphs that can report what they hold for a
// document.
type GraphCounter interface {
	Counts(ctx context.Context, documentID string) (store.GraphCounts, error)
}

// StatsSource exposes the inference latency window.
type StatsSource interface {
	Stats() *llm.LLMStats
	Provider() string
	Model() string
}

// Deps are the collaborators behind the HTTP API. Graph and LLM may be nil.
type Deps struct {
	Jobs      JobQueue
	Records   RecordStore
	Navigator Searcher
	Graph     graphsync.Graph
	LLM       StatsSource
}

// Server is the HTTP API server for treeindex.
type Server struct {
	router chi.Router
	deps   Deps
	mapper *graphsync.Mapper
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		deps:   deps,
		mapper: graphsync.NewMapper(log),
		log:    log,
		cfg:    cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))
	r.Use(Metrics)

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/ingest", s.handleIngest)
		r.Get("/api/ingest/{jobID}/status", s.handleIngestStatus)
		r.Post("/api/ingest/batch", s.handleBatchIngest)
		r.Get("/api/stats/llm", s.handleLLMStats)

		r.Get("/api/documents", s.handleListDocuments)
		r.Get("/api/documents/{docID}/tree", s.handleGetTree)
		r.Delete("/api/documents/{docID}", s.handleDeleteDocument)
		r.Post("/api/documents/{docID}/graph-sync", s.handleGraphSync)

		r.Post("/api/search", s.handleSearch)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
