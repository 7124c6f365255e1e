package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthFunc reports whether the bot is able to serve. A nil error
// means healthy.
type HealthFunc func(ctx context.Context) error

type healthResponse struct {
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Routes returns the operational handler: GET /metrics serves g, and
// GET /healthz reports health. Requests are logged and panics recovered.
func Routes(g prometheus.Gatherer, health HealthFunc, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "healthy", Timestamp: time.Now().UTC()}
		status := http.StatusOK

		if health != nil {
			if err := health(r.Context()); err != nil {
				resp.Status = "unhealthy"
				resp.Error = err.Error()
				status = http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Error("encoding health response", "error", err)
		}
	})

	return logRequests(log, recoverPanics(log, mux))
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		log.Debug("request started", "method", r.Method, "path", r.URL.Path, "remoteaddr", r.RemoteAddr)

		next.ServeHTTP(rec, r)

		log.Debug("request completed", "method", r.Method, "path", r.URL.Path, "remoteaddr", r.RemoteAddr, "statusCode", rec.status, "since", time.Since(start).String())
	})
}

func recoverPanics(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				err := fmt.Errorf("PANIC [%v] TRACE[%s]", rec, string(debug.Stack()))
				log.Error("handler panicked", "path", r.URL.Path, "error", err)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
