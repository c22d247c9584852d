package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"execdoc/internal/core/ports"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ObservabilityServer exposes metrics and health next to the stdio
// transport, which has no HTTP surface of its own.
type ObservabilityServer struct {
	addr        string
	interpreter ports.Interpreter
	server      *http.Server
}

func NewObservabilityServer(addr string, interpreter ports.Interpreter) *ObservabilityServer {
	return &ObservabilityServer{addr: addr, interpreter: interpreter}
}

func (s *ObservabilityServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := s.interpreter.Health(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if status.Status != "up" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(status); err != nil {
			slog.Error("health encode failed", "error", err)
		}
	})
	return mux
}

func (s *ObservabilityServer) Start() {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("observability server starting", "addr", s.addr)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("observability server failed", "error", err)
		}
	}()
}

func (s *ObservabilityServer) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
