package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/quandify2mqtt/quandify2mqtt/internal/log"
	"github.com/quandify2mqtt/quandify2mqtt/internal/poller"
)

// Server exposes health, metrics, status and dashboards over HTTP.
type Server struct {
	listenAddr     string
	poller         *poller.Poller
	registry       *prometheus.Registry
	organizationID string
	dashboards     map[string][]byte

	httpServer *http.Server
}

func New(listenAddr string, p *poller.Poller, registry *prometheus.Registry, organizationID string) *Server {
	return &Server{
		listenAddr:     listenAddr,
		poller:         p,
		registry:       registry,
		organizationID: organizationID,
		dashboards:     Dashboards(),
	}
}

func (s *Server) setupHandler() http.Handler {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /api/status", s.handleStatus)
	apiMux.HandleFunc("POST /api/refresh", s.handleRefresh)
	apiMux.Handle("GET /dashboards/", DashboardsHandler(s.dashboards))
	gzipped := gziphandler.GzipHandler(apiMux)

	mux := http.NewServeMux()
	mux.Handle("/api/", gzipped)
	mux.Handle("/dashboards/", gzipped)
	// promhttp negotiates its own compression, so /metrics stays unwrapped
	mux.Handle("GET /metrics", MetricsHandler(s.registry))
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	return s.logMiddleware(mux)
}

// logMiddleware attaches the request method and path to the context logger.
func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = log.With(ctx, log.Ctx(ctx).With("method", r.Method, "path", r.URL.Path))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.setupHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting http server", "addr", s.listenAddr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Ctx(ctx).InfoContext(ctx, "shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}
