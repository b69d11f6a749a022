package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server exposes /metrics and a liveness probe.
type Server struct {
	server *http.Server
	logger *zap.Logger

	mu     sync.RWMutex
	checks map[string]func() bool
}

// NewServer creates a metrics server listening on addr.
func NewServer(addr string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		logger: logger,
		checks: make(map[string]func() bool),
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.health)

	s.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// AddCheck reports fn under name in /healthz. A failing check marks the
// process degraded but still answers 200, since indexing continues over
// the polling fallback.
func (s *Server) AddCheck(name string, fn func() bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = fn
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	results := make(map[string]bool, len(s.checks))
	status := "ok"
	for name, fn := range s.checks {
		results[name] = fn()
		if !results[name] {
			status = "degraded"
		}
	}
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{"status": status, "checks": results})
}

// Run serves until ctx is cancelled, then shuts the listener down.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("metrics server listening", zap.String("addr", s.server.Addr))
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// Handler returns the server's mux.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
