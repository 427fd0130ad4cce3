// Package api - Thin report API layer.
// The API is ONLY responsible for: parameter ingestion, engine orchestration,
// output serialization. The API NEVER performs report logic.
package api

import (
	"net/http"
	"time"

	"cost-reports/core/engine"
	"cost-reports/core/types"
)

// Server is the report API server
type Server struct {
	handler *Handler
	mux     *http.ServeMux
	version string
}

// NewServer creates a new API server over a query engine
func NewServer(eng *engine.Engine, version string) *Server {
	s := &Server{
		handler: NewHandler(eng),
		mux:     http.NewServeMux(),
		version: version,
	}
	s.registerRoutes()
	return s
}

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	// Report endpoints
	s.mux.HandleFunc("GET /api/v1/reports/{report}", s.handler.HandleReport)
	s.mux.HandleFunc("GET /api/v1/tag-keys", s.handler.HandleTagKeys)

	// Supporting endpoints
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /version", s.handleVersion)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status":  "healthy",
		"version": s.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}

// handleVersion handles GET /version
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"version":     s.version,
		"api_version": "v1",
		"reports":     types.ReportTypes(),
	}, http.StatusOK)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the server on the given address
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
