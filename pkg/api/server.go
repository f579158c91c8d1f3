package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/psaab/microcli/pkg/cli"
	"github.com/psaab/microcli/pkg/console"
	"github.com/psaab/microcli/pkg/logging"
)

// Config configures the API server. The function fields are the
// daemon's capabilities the handlers call into; nil fields disable the
// corresponding endpoint with a 503.
type Config struct {
	Addr  string
	Token string // static bearer token, empty disables auth

	Commands *cli.Set
	Audit    *logging.AuditLog

	ConsoleStats func() console.Stats
	Sessions     func() []console.SessionInfo
	Kick         func(id string) bool
	Execute      func(line string) (string, error)

	Version   string
	StartTime time.Time
}

// Server is the HTTP admin API server.
type Server struct {
	cfg        Config
	httpServer *http.Server
}

// NewServer builds the server and its route table.
func NewServer(cfg Config) *Server {
	if cfg.StartTime.IsZero() {
		cfg.StartTime = time.Now()
	}
	s := &Server{cfg: cfg}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	// Prometheus metrics with isolated registry.
	registry := prometheus.NewRegistry()
	registry.MustRegister(newCollector(s))
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("GET /api/v1/status", s.statusHandler)
	mux.HandleFunc("GET /api/v1/commands", s.commandsHandler)
	mux.HandleFunc("GET /api/v1/complete", s.completeHandler)
	mux.HandleFunc("POST /api/v1/execute", s.executeHandler)
	mux.HandleFunc("GET /api/v1/audit", s.auditHandler)
	mux.HandleFunc("GET /api/v1/sessions", s.sessionsHandler)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", s.kickSessionHandler)

	var handler http.Handler = mux
	if cfg.Token != "" {
		handler = authMiddleware(cfg.Token, mux)
	}

	s.httpServer = &http.Server{
		Addr:    cfg.Addr,
		Handler: handler,
	}
	return s
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run starts the server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP API server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
