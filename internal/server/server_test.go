package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNew_Defaults(t *testing.T) {
	srv := New(http.NewServeMux())

	if srv.srv.Addr != ":9090" {
		t.Errorf("addr = %q, want %q", srv.srv.Addr, ":9090")
	}
	if srv.srv.ReadTimeout != 5*time.Second {
		t.Errorf("read timeout = %v, want %v", srv.srv.ReadTimeout, 5*time.Second)
	}
	if srv.srv.WriteTimeout != 10*time.Second {
		t.Errorf("write timeout = %v, want %v", srv.srv.WriteTimeout, 10*time.Second)
	}
	if srv.srv.IdleTimeout != 120*time.Second {
		t.Errorf("idle timeout = %v, want %v", srv.srv.IdleTimeout, 120*time.Second)
	}
	if srv.shutdownTimeout != 10*time.Second {
		t.Errorf("shutdown timeout = %v, want %v", srv.shutdownTimeout, 10*time.Second)
	}
	if srv.logger == nil {
		t.Error("logger is nil, want slog.Default()")
	}
}

func TestNew_WithOptions(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	fn := func(ctx context.Context) error { return nil }

	srv := New(http.NewServeMux(),
		WithHost(":9191"),
		WithShutdownTimeout(4*time.Second),
		WithLogger(logger),
		WithShutdownFunc(fn),
	)

	if srv.srv.Addr != ":9191" {
		t.Errorf("addr = %q, want %q", srv.srv.Addr, ":9191")
	}
	if srv.shutdownTimeout != 4*time.Second {
		t.Errorf("shutdown timeout = %v, want %v", srv.shutdownTimeout, 4*time.Second)
	}
	if srv.logger != logger {
		t.Error("logger not set correctly")
	}
	if len(srv.shutdownFuncs) != 1 {
		t.Errorf("shutdown funcs = %d, want 1", len(srv.shutdownFuncs))
	}
}

func TestServe_GracefulShutdown(t *testing.T) {
	var order []int

	mux := http.NewServeMux()
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := New(mux,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithShutdownFunc(func(ctx context.Context) error {
			order = append(order, 1)
			return nil
		}),
		WithShutdownFunc(func(ctx context.Context) error {
			order = append(order, 2)
			return errors.New("logged, not returned")
		}),
	)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ctx, ln)
	}()

	waitForServer(t, fmt.Sprintf("http://%s/", ln.Addr()), 2*time.Second)

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Serve() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return within 5s")
	}

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("shutdown funcs order = %v, want [1 2]", order)
	}
}

func TestRun_ServerError(t *testing.T) {
	// Occupy a port so the server can't bind.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	srv := New(http.NewServeMux(), WithHost(ln.Addr().String()))

	if err := srv.Run(t.Context()); err == nil {
		t.Fatal("Run() = nil, want error for occupied port")
	}
}

func TestShutdown_Timeout(t *testing.T) {
	var cancelled atomic.Bool

	srv := New(http.NewServeMux(),
		WithShutdownFunc(func(ctx context.Context) error {
			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
				cancelled.Store(true)
				return ctx.Err()
			}
			return nil
		}),
	)

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	srv.Shutdown(ctx)

	if !cancelled.Load() {
		t.Error("shutdown func context was not cancelled")
	}
}

func TestRoutes(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	errDown := errors.New("gate closed")

	testCases := []struct {
		name       string
		path       string
		health     HealthFunc
		expStatus  int
		expContain string
	}{
		{name: "Metrics", path: "/metrics", expStatus: http.StatusOK, expContain: "test_total 1"},
		{name: "Healthy", path: "/healthz", health: func(context.Context) error { return nil }, expStatus: http.StatusOK, expContain: `"status":"healthy"`},
		{name: "No health func", path: "/healthz", expStatus: http.StatusOK, expContain: `"status":"healthy"`},
		{name: "Unhealthy", path: "/healthz", health: func(context.Context) error { return errDown }, expStatus: http.StatusServiceUnavailable, expContain: `"error":"gate closed"`},
		{name: "Unknown", path: "/nope", expStatus: http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := Routes(reg, tc.health, slog.New(slog.NewTextHandler(io.Discard, nil)))

			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))

			if w.Code != tc.expStatus {
				t.Errorf("status = %d, want %d", w.Code, tc.expStatus)
			}
			if tc.expContain != "" && !strings.Contains(w.Body.String(), tc.expContain) {
				t.Errorf("body %q does not contain %q", w.Body.String(), tc.expContain)
			}
		})
	}
}

func TestRoutes_HealthJSON(t *testing.T) {
	h := Routes(prometheus.NewRegistry(), nil, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var resp healthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != "healthy" || resp.Timestamp.IsZero() {
		t.Errorf("unexpected response %+v", resp)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want application/json", ct)
	}
}

func TestRecoverPanics(t *testing.T) {
	h := recoverPanics(slog.New(slog.NewTextHandler(io.Discard, nil)), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("server at %s not ready within %v", url, timeout)
}
