//go:build integration

package e2e_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/adamwoolhether/tgthrottle"
	"github.com/adamwoolhether/tgthrottle/botapi"
	"github.com/adamwoolhether/tgthrottle/gate"
	"github.com/adamwoolhether/tgthrottle/internal/server"
	"github.com/adamwoolhether/tgthrottle/metrics"
)

const token = "42:e2e-secret"

// -------------------------------------------------------------------------
// Fake Bot API
// -------------------------------------------------------------------------

type hit struct {
	method string
	at     time.Time
}

type botServer struct {
	mu   sync.Mutex
	hits []hit

	// pollHold delays getUpdates responses to mimic a long poll.
	pollHold time.Duration
}

func (b *botServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method, ok := strings.CutPrefix(r.URL.Path, "/bot"+token+"/")
	if !ok {
		http.NotFound(w, r)
		return
	}

	b.mu.Lock()
	b.hits = append(b.hits, hit{method: method, at: time.Now()})
	b.mu.Unlock()

	var result any = true
	status := http.StatusOK
	envelope := map[string]any{"ok": true}

	switch method {
	case "getMe":
		result = map[string]any{"id": 42, "is_bot": true, "first_name": "E2E", "username": "e2e_bot"}
	case "sendMessage":
		var body struct {
			ChatID int64  `json:"chat_id"`
			Text   string `json:"text"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		result = map[string]any{"message_id": 1, "date": 0, "chat": map[string]any{"id": body.ChatID, "type": "private"}, "text": body.Text}
	case "getChat":
		status = http.StatusBadRequest
		envelope = map[string]any{"ok": false, "error_code": 400, "description": "Bad Request: chat not found"}
	case "getUpdates":
		select {
		case <-time.After(b.pollHold):
		case <-r.Context().Done():
			return
		}
		result = []any{}
	}

	if envelope["ok"] == true {
		envelope["result"] = result
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope)
}

func (b *botServer) gated() []hit {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []hit
	for _, h := range b.hits {
		if h.method != "getUpdates" {
			out = append(out, h)
		}
	}
	return out
}

// -------------------------------------------------------------------------
// Helpers
// -------------------------------------------------------------------------

type stack struct {
	bot    *botServer
	client *tgthrottle.Client
	reg    *prometheus.Registry
}

func newStack(t *testing.T, delay time.Duration) *stack {
	t.Helper()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	bot := &botServer{pollHold: 300 * time.Millisecond}
	srv := httptest.NewServer(bot)
	t.Cleanup(srv.Close)

	api, err := botapi.Build(token,
		botapi.WithBaseURL(srv.URL),
		botapi.WithThrottle(100, 10),
		botapi.WithLogger(log),
	)
	if err != nil {
		t.Fatal(err)
	}

	reg := prometheus.NewRegistry()
	client, err := tgthrottle.New(api, delay,
		gate.WithName("e2e"),
		gate.WithLogger(log),
		gate.WithMetrics(metrics.New(reg)),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { client.Close() })

	return &stack{bot: bot, client: client, reg: reg}
}

// -------------------------------------------------------------------------
// Tests
// -------------------------------------------------------------------------

func TestE2E_ConcurrentCallsAreSpaced(t *testing.T) {
	delay := 100 * time.Millisecond
	s := newStack(t, delay)

	var wg sync.WaitGroup
	for i := range 5 {
		wg.Go(func() {
			_, err := s.client.SendMessage(t.Context(), botapi.SendMessageParams{ChatID: botapi.ChatIDFromInt(int64(i + 1)), Text: "hello"})
			if err != nil {
				t.Errorf("sendMessage %d: %v", i, err)
			}
		})
	}
	wg.Wait()

	hits := s.bot.gated()
	if len(hits) != 5 {
		t.Fatalf("server saw %d calls, want 5", len(hits))
	}
	for i := 1; i < len(hits); i++ {
		if gap := hits[i].at.Sub(hits[i-1].at); gap < delay {
			t.Errorf("calls %d and %d arrived %v apart, want at least %v", i-1, i, gap, delay)
		}
	}
}

func TestE2E_LongPollRunsBesideGatedCalls(t *testing.T) {
	s := newStack(t, 200*time.Millisecond)

	pollDone := make(chan time.Duration, 1)
	go func() {
		start := time.Now()
		if _, err := s.client.GetUpdates(t.Context(), botapi.GetUpdatesParams{Timeout: 1}); err != nil {
			t.Errorf("getUpdates: %v", err)
		}
		pollDone <- time.Since(start)
	}()

	start := time.Now()
	for range 2 {
		if _, err := s.client.GetMe(t.Context()); err != nil {
			t.Fatalf("getMe: %v", err)
		}
	}
	gatedElapsed := time.Since(start)

	// The poll is held for 300ms server side; the gated calls must not
	// have queued behind it.
	if gatedElapsed > 290*time.Millisecond+200*time.Millisecond {
		t.Errorf("gated calls took %v, they waited on the poll", gatedElapsed)
	}
	if elapsed := <-pollDone; elapsed > time.Second {
		t.Errorf("poll took %v, it waited on the gate", elapsed)
	}
}

func TestE2E_APIErrorPassesThroughGate(t *testing.T) {
	s := newStack(t, 50*time.Millisecond)

	_, err := s.client.GetChat(t.Context(), "-100")

	var apiErr *botapi.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("exp *botapi.APIError, got %T: %v", err, err)
	}
	if apiErr.Code != http.StatusBadRequest || apiErr.Description != "Bad Request: chat not found" {
		t.Errorf("unexpected api error %+v", apiErr)
	}
}

func TestE2E_MetricsEndpoint(t *testing.T) {
	s := newStack(t, 0)

	for range 3 {
		if _, err := s.client.GetMe(t.Context()); err != nil {
			t.Fatal(err)
		}
	}
	s.client.GetChat(t.Context(), "-100")

	ops := httptest.NewServer(server.Routes(s.reg, func(context.Context) error { return nil }, nil))
	t.Cleanup(ops.Close)

	resp, err := http.Get(ops.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		`tgthrottle_gate_calls_total{gate="e2e",operation="getMe",outcome="success"} 3`,
		`tgthrottle_gate_calls_total{gate="e2e",operation="getChat",outcome="error"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestE2E_CloseRejectsEverything(t *testing.T) {
	s := newStack(t, 10*time.Millisecond)
	s.client.Close()

	if _, err := s.client.GetMe(t.Context()); !errors.Is(err, gate.ErrClosed) {
		t.Errorf("getMe: exp gate.ErrClosed, got %v", err)
	}
	if _, err := s.client.GetUpdates(t.Context(), botapi.GetUpdatesParams{}); !errors.Is(err, gate.ErrClosed) {
		t.Errorf("getUpdates: exp gate.ErrClosed, got %v", err)
	}
	if hits := s.bot.gated(); len(hits) != 0 {
		t.Errorf("exp no calls to reach the server, got %d", len(hits))
	}
}
