package httpapi

import (
	"net/http"
	"time"

	"github.com/jlkeet/pacific-hansard-rag/internal/rag/service"
)

// Server exposes the Hansard RAG gateway's HTTP API: health, search, ask,
// document lookup, and index statistics.
type Server struct {
	service   *service.Service
	version   string
	startedAt time.Time
	mux       *http.ServeMux
	auth      *OIDCAuth
	handler   http.Handler
}

// NewServer creates the HTTP API server wired to a RAG service.
func NewServer(svc *service.Service, version string) *Server {
	s := &Server{service: svc, version: version, startedAt: time.Now(), mux: http.NewServeMux()}
	s.registerRoutes()
	s.handler = s.mux
	return s
}

// WithAuth enables bearer-token verification against an OIDC provider for
// every route except /health. Returns the same *Server for chaining at
// construction time.
func (s *Server) WithAuth(a *OIDCAuth) *Server {
	s.auth = a
	s.handler = a.Middleware(s.mux)
	return s
}

// ServeHTTP satisfies http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /search", s.handleSearchGet)
	s.mux.HandleFunc("POST /search", s.handleSearchPost)
	s.mux.HandleFunc("POST /ask", s.handleAsk)
	s.mux.HandleFunc("GET /document/{docID}", s.handleGetDocument)
	s.mux.HandleFunc("GET /stats", s.handleStats)
}
