package transport

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"execdoc/internal/core/config"
	"execdoc/internal/core/ports"
	"execdoc/internal/shared/util"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const limiterIdleTTL = 10 * time.Minute

// HTTP serves JSON-RPC on POST /rpc plus manifest, health and metrics
// endpoints.
type HTTP struct {
	address    string
	service    ports.Interpreter
	dispatcher *Dispatcher
	cfg        config.RateLimit
	logger     *slog.Logger
	limiters   *util.LimiterRegistry
	server     *http.Server
}

func NewHTTP(address string, service ports.Interpreter, cfg config.RateLimit, logger *slog.Logger) *HTTP {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTP{
		address:    address,
		service:    service,
		dispatcher: NewDispatcher(service, logger),
		cfg:        cfg,
		logger:     logger,
	}
}

// Handler builds the router. Per-client limiters live until ctx is done.
func (h *HTTP) Handler(ctx context.Context) http.Handler {
	if h.limiters == nil {
		h.limiters = util.NewLimiterRegistry(ctx, h.cfg, limiterIdleTTL)
	}
	r := chi.NewRouter()
	r.Post("/rpc", h.handleRPC)
	r.Get("/manifest", h.handleManifest)
	r.Get("/health", h.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Start listens until ctx is cancelled, then shuts down gracefully.
func (h *HTTP) Start(ctx context.Context) error {
	h.server = &http.Server{
		Addr:              h.address,
		Handler:           h.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		h.logger.Info("http server listening", "address", h.address)
		if err := h.server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}

func (h *HTTP) handleRPC(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, DefaultMaxMessageSize))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		h.logger.Warn("rpc: read body failed", "error", err)
		return
	}

	if limiter := h.limiters.For(clientKey(r)); !limiter.Allow() {
		w.Header().Set("Retry-After", strconv.Itoa(int(limiter.RetryAfter().Seconds())))
		writeJSON(w, http.StatusTooManyRequests, errorResponse(requestID(payload), CodeRateLimited, "Rate limit exceeded"))
		return
	}

	out := h.dispatcher.Handle(r.Context(), payload)
	if out == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(out); err != nil {
		h.logger.Error("rpc: write response failed", "error", err)
	}
}

func (h *HTTP) handleManifest(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Manifest())
}

func (h *HTTP) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := h.service.Health(r.Context())
	code := http.StatusOK
	if status.Status != "up" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
