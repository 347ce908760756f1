package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cuemby/clanrelay/pkg/log"
	"github.com/cuemby/clanrelay/pkg/metrics"
	"github.com/cuemby/clanrelay/pkg/storage"
	"github.com/rs/zerolog"
)

// HealthServer provides HTTP health check and metrics endpoints
type HealthServer struct {
	store   storage.Store
	version string
	mux     *http.ServeMux
	logger  zerolog.Logger

	mu     sync.Mutex
	server *http.Server
}

// NewHealthServer creates a new health check HTTP server. A nil store is
// reported as not ready.
func NewHealthServer(store storage.Store, version string) *HealthServer {
	mux := http.NewServeMux()
	hs := &HealthServer{
		store:   store,
		version: version,
		mux:     mux,
		logger:  log.WithComponent("api"),
	}

	// Register endpoints
	mux.HandleFunc("/health", hs.healthHandler)
	mux.HandleFunc("/ready", hs.readyHandler)
	mux.HandleFunc("/live", metrics.LivenessHandler())
	mux.Handle("/metrics", metrics.Handler())

	return hs
}

// Start listens on addr and serves until Stop. It returns once the listener
// is bound; serve errors are logged.
func (hs *HealthServer) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	server := &http.Server{
		Handler:      hs.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	hs.mu.Lock()
	hs.server = server
	hs.mu.Unlock()

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			hs.logger.Error().Err(err).Msg("Health server stopped")
		}
	}()

	hs.logger.Info().Str("addr", ln.Addr().String()).Msg("Health server listening")
	return nil
}

// Stop gracefully shuts the server down
func (hs *HealthServer) Stop(ctx context.Context) error {
	hs.mu.Lock()
	server := hs.server
	hs.server = nil
	hs.mu.Unlock()

	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Version    string            `json:"version,omitempty"`
	Uptime     string            `json:"uptime,omitempty"`
	Components map[string]string `json:"components,omitempty"`
}

// ReadyResponse represents the readiness check response
type ReadyResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Message   string            `json:"message,omitempty"`
}

// healthHandler implements the /health endpoint.
// It returns 503 when any registered component reports unhealthy.
func (hs *HealthServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := metrics.GetHealth()
	statusCode := http.StatusOK
	if health.Status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, HealthResponse{
		Status:     health.Status,
		Timestamp:  health.Timestamp,
		Version:    hs.version,
		Uptime:     health.Uptime,
		Components: health.Components,
	})
}

// readyHandler implements the /ready endpoint.
// The store is probed on every request; other critical components are
// taken from the health registry.
func (hs *HealthServer) readyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if hs.store == nil {
		metrics.UpdateComponent("storage", false, "not initialized")
	} else if _, err := hs.store.Stats(); err != nil {
		metrics.UpdateComponent("storage", false, err.Error())
	} else {
		metrics.UpdateComponent("storage", true, "")
	}

	readiness := metrics.GetReadiness()
	status := "ready"
	statusCode := http.StatusOK
	if readiness.Status != "ready" {
		status = "not ready"
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, ReadyResponse{
		Status:    status,
		Timestamp: readiness.Timestamp,
		Checks:    readiness.Components,
		Message:   readiness.Message,
	})
}

// GetHandler returns the HTTP handler for embedding in other servers
func (hs *HealthServer) GetHandler() http.Handler {
	return hs.mux
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
