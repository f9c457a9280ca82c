package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the registry on its own port, kept apart from the API
// listener so scrapes never queue behind video streams.
type Server struct {
	srv *http.Server
	log *slog.Logger
}

// NewServer creates a metrics server answering /metrics on the given port.
func NewServer(port int, reg *prometheus.Registry) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return &Server{
		srv: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
		log: slog.With("component", "metrics-server"),
	}
}

// Start serves until Shutdown. A closed-server exit is not an error.
func (s *Server) Start() error {
	s.log.Info("metrics listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.log.Error("metrics server failed", "error", err)
		return err
	}
	return nil
}

// Shutdown stops the metrics server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
