package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Checker reports whether a dependency is usable.
type Checker interface {
	HealthCheck(ctx context.Context, timeout time.Duration) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, timeout time.Duration) error

func (f CheckerFunc) HealthCheck(ctx context.Context, timeout time.Duration) error {
	return f(ctx, timeout)
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// NewRouter serves /metrics and /healthz. A nil checker always reports ok.
func NewRouter(checker Checker, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		resp := healthResponse{Status: "ok"}
		code := http.StatusOK
		if checker != nil {
			if err := checker.HealthCheck(req.Context(), 2*time.Second); err != nil {
				resp = healthResponse{Status: "unavailable", Error: err.Error()}
				code = http.StatusServiceUnavailable
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	})
	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("http.request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"request_id", middleware.GetReqID(r.Context()),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
