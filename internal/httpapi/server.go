// Package httpapi exposes the ingestion and chat JSON API described by
// the external interface table, routing with stdlib's method+pattern
// ServeMux.
package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/corpusline/ragserver/internal/llm"
	"github.com/corpusline/ragserver/internal/rag/index"
	"github.com/corpusline/ragserver/internal/rag/memory"
	"github.com/corpusline/ragserver/internal/rag/obs"
	"github.com/corpusline/ragserver/internal/rag/router"
)

// Server exposes the RAG HTTP API.
type Server struct {
	idx     *index.Index
	router  *router.Router
	history *memory.Store
	gateway *llm.Gateway
	mux     *http.ServeMux

	log     obs.Logger
	metrics obs.Metrics

	chunkSize    int
	chunkOverlap int

	modelMu     sync.Mutex
	activeModel string
}

// Config bundles the dependencies a Server needs.
type Config struct {
	Index        *index.Index
	Router       *router.Router
	History      *memory.Store
	Gateway      *llm.Gateway
	Logger       obs.Logger
	Metrics      obs.Metrics
	ChunkSize    int
	ChunkOverlap int
	DefaultModel string
}

// NewServer wires the API routes onto an http.ServeMux.
func NewServer(cfg Config) *Server {
	s := &Server{
		idx:          cfg.Index,
		router:       cfg.Router,
		history:      cfg.History,
		gateway:      cfg.Gateway,
		mux:          http.NewServeMux(),
		log:          cfg.Logger,
		metrics:      cfg.Metrics,
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		activeModel:  cfg.DefaultModel,
	}
	if s.log == nil {
		s.log = obs.NoopLogger{}
	}
	if s.metrics == nil {
		s.metrics = obs.NoopMetrics{}
	}
	s.registerRoutes()
	return s
}

// ServeHTTP satisfies http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/models", s.handleListModels)
	s.mux.HandleFunc("POST /api/models/set", s.handleSetModel)
	s.mux.HandleFunc("POST /api/documents/upload", s.handleUploadDocuments)
	s.mux.HandleFunc("POST /api/documents/url", s.handleIngestURL)
	s.mux.HandleFunc("GET /api/documents", s.handleListDocuments)
	s.mux.HandleFunc("DELETE /api/documents/{id}", s.handleDeleteDocument)
	s.mux.HandleFunc("POST /api/documents/clear", s.handleClearDocuments)
	s.mux.HandleFunc("POST /api/chat", s.handleChat)
	s.mux.HandleFunc("POST /api/search", s.handleSearch)
	s.mux.HandleFunc("GET /api/stats", s.handleStats)
}

const urlFetchTimeout = 30 * time.Second
