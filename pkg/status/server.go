package status

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JamesRaphaelJRC/guildme/pkg/metrics"
)

// PushState reports whether the realtime channel is up.
type PushState interface {
	Connected() bool
}

// Storage is the minimal probe into the local database.
type Storage interface {
	AuthToken() (string, error)
}

// Server exposes the client's local diagnostics endpoints: liveness,
// readiness and Prometheus metrics.
type Server struct {
	push    PushState
	storage Storage
	version string
	router  chi.Router
	srv     *http.Server
}

// NewServer creates the diagnostics server.
func NewServer(push PushState, storage Storage, version string) *Server {
	s := &Server{
		push:    push,
		storage: storage,
		version: version,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readyHandler)
	r.Handle("/metrics", metrics.Handler())
	s.router = r

	return s
}

// Start serves on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s.srv.ListenAndServe()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// Handler returns the router for embedding in tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// HealthResponse is the liveness check body.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
}

// ReadyResponse is the readiness check body.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Message   string            `json:"message,omitempty"`
}

// healthHandler reports liveness: 200 whenever the process runs.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   s.version,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// readyHandler reports readiness: the push channel must be connected and
// the local database readable.
func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	ready := true
	var message string

	if s.push != nil && s.push.Connected() {
		checks["push"] = "connected"
	} else {
		checks["push"] = "disconnected"
		ready = false
		message = "Push channel not connected"
	}

	if s.storage != nil {
		if _, err := s.storage.AuthToken(); err != nil {
			checks["storage"] = fmt.Sprintf("error: %v", err)
			ready = false
			if message == "" {
				message = "Local database not accessible"
			}
		} else {
			checks["storage"] = "ok"
		}
	} else {
		checks["storage"] = "not initialized"
		ready = false
	}

	status := "ready"
	statusCode := http.StatusOK
	if !ready {
		status = "not ready"
		statusCode = http.StatusServiceUnavailable
	}

	response := ReadyResponse{
		Status:    status,
		Timestamp: time.Now(),
		Checks:    checks,
		Message:   message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}
