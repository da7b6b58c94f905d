// Package server assembles the HTTP handlers into one listener with request
// logging, Prometheus metrics, a health endpoint and graceful shutdown.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/c360studio/specgen/config"
	"github.com/c360studio/specgen/metric"
	"github.com/c360studio/specgen/model"
)

// ShutdownTimeout bounds how long in-flight requests may run after the
// context passed to Run is cancelled.
const ShutdownTimeout = 15 * time.Second

// Registrar mounts a group of endpoints on a mux.
type Registrar interface {
	RegisterHTTPHandlers(prefix string, mux *http.ServeMux)
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the server needs.
type Deps struct {
	Store    Pinger
	Registry *model.Registry
	Metrics  *metric.Metrics
	Logger   *slog.Logger

	// Handlers are mounted at the root in order.
	Handlers []Registrar
}

// Server is the HTTP front of the service.
type Server struct {
	cfg     config.Config
	deps    Deps
	logger  *slog.Logger
	handler http.Handler
}

// New builds the mux and wraps it in the middleware chain.
func New(cfg *config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{cfg: *cfg, deps: deps, logger: logger}

	mux := http.NewServeMux()
	for _, h := range deps.Handlers {
		h.RegisterHTTPHandlers("/", mux)
	}
	mux.HandleFunc("/healthz", s.handleHealth)
	if !cfg.Metrics.Disabled {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		mux.Handle(path, deps.Metrics.Handler())
	}

	s.handler = s.instrument(mux)
	return s
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Server.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully. It closes ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// ------------------------------------------------------------------
// GET /healthz
// ------------------------------------------------------------------

type healthResponse struct {
	Status    string                          `json:"status"`
	Database  string                          `json:"database"`
	Endpoints map[string]model.EndpointHealth `json:"endpoints,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	resp := healthResponse{Status: "ok", Database: "ok"}
	code := http.StatusOK

	if s.deps.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Store.Ping(ctx); err != nil {
			s.logger.Warn("Health check database ping failed", "error", err)
			resp.Status = "unavailable"
			resp.Database = err.Error()
			code = http.StatusServiceUnavailable
		}
	}
	if s.deps.Registry != nil {
		resp.Endpoints = s.deps.Registry.HealthSnapshot()
		if code == http.StatusOK && allCircuitsOpen(resp.Endpoints) {
			resp.Status = "degraded"
		}
	}

	writeJSON(w, code, resp)
}

func allCircuitsOpen(endpoints map[string]model.EndpointHealth) bool {
	if len(endpoints) == 0 {
		return false
	}
	for _, h := range endpoints {
		if !h.CircuitOpen {
			return false
		}
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
