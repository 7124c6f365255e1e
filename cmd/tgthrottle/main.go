package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"

	"github.com/adamwoolhether/tgthrottle"
	"github.com/adamwoolhether/tgthrottle/botapi"
	"github.com/adamwoolhether/tgthrottle/gate"
	"github.com/adamwoolhether/tgthrottle/internal/config"
	"github.com/adamwoolhether/tgthrottle/internal/server"
	"github.com/adamwoolhether/tgthrottle/metrics"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("tgthrottle failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err = newLogger(cfg, os.Stdout)
	if err != nil {
		return fmt.Errorf("configuring logger: %w", err)
	}
	slog.SetDefault(logger)

	// Never log the token.
	logger.Info("configuration loaded",
		"api_url", cfg.APIURL,
		"throttle_delay", cfg.ThrottleDelay.String(),
		"transport_rps", cfg.TransportRPS,
		"transport_burst", cfg.TransportBurst,
		"poll_timeout", cfg.PollTimeout.String(),
		"metrics_addr", cfg.MetricsAddr,
		"shutdown_timeout", cfg.ShutdownTimeout.String(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	apiOpts := []botapi.Option{
		botapi.WithBaseURL(cfg.APIURL),
		botapi.WithTimeout(cfg.HTTPTimeout()),
		botapi.WithUserAgent("tgthrottle"),
		botapi.WithLogger(logger),
	}
	if cfg.TransportRPS > 0 {
		apiOpts = append(apiOpts, botapi.WithThrottle(cfg.TransportRPS, cfg.TransportBurst))
	}

	api, err := botapi.Build(cfg.BotToken, apiOpts...)
	if err != nil {
		return fmt.Errorf("building bot api client: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	client, err := tgthrottle.New(api, cfg.ThrottleDelay,
		gate.WithName("bot"),
		gate.WithLogger(logger),
		gate.WithTracer(otel.Tracer("github.com/adamwoolhether/tgthrottle")),
		gate.WithMetrics(metrics.New(reg)),
	)
	if err != nil {
		return fmt.Errorf("creating throttled client: %w", err)
	}
	defer client.Close()

	me, err := client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("fetching bot identity: %w", err)
	}
	logger.Info("bot identity", "id", me.ID, "username", me.Username, "name", me.FirstName)

	p := &poller{client: client, logger: logger, timeout: cfg.PollTimeout}

	var wg sync.WaitGroup
	if cfg.MetricsAddr != "" {
		srv := newMetricsServer(cfg, reg, p, client, logger)

		wg.Go(func() {
			if err := srv.Run(ctx); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		})
	}

	p.run(ctx)

	client.Close()
	wg.Wait()

	logger.Info("shutdown complete")

	return nil
}

// newLogger returns a text logger at the configured level.
func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// newMetricsServer serves metrics and health. Shutting it down closes
// the client first, so callers still queued at the gate are rejected
// instead of holding up the drain.
func newMetricsServer(cfg *config.Config, reg *prometheus.Registry, p *poller, client *tgthrottle.Client, logger *slog.Logger) *server.Server {
	return server.New(server.Routes(reg, p.health, logger),
		server.WithHost(cfg.MetricsAddr),
		server.WithLogger(logger),
		server.WithShutdownTimeout(cfg.ShutdownTimeout),
		server.WithShutdownFunc(func(context.Context) error {
			logger.Info("closing throttled client", "offset", p.nextOffset())
			return client.Close()
		}),
	)
}

// poller long-polls getUpdates and logs what arrives.
type poller struct {
	client  *tgthrottle.Client
	logger  *slog.Logger
	timeout time.Duration

	mu      sync.Mutex
	lastErr error
	offset  int64
}

func (p *poller) run(ctx context.Context) {
	params := botapi.GetUpdatesParams{
		Timeout:        int(p.timeout / time.Second),
		AllowedUpdates: []botapi.UpdateType{botapi.UpdateMessage, botapi.UpdateCallbackQuery, botapi.UpdateMyChatMember},
	}

	for ctx.Err() == nil {
		params.Offset = p.nextOffset()

		updates, err := p.client.GetUpdates(ctx, params)
		p.setErr(err)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, gate.ErrClosed) {
				return
			}

			wait := time.Second
			var apiErr *botapi.APIError
			if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
				wait = apiErr.RetryAfter
			}

			p.logger.Warn("polling updates", "error", err, "retry_in", wait.String())
			sleep(ctx, wait)
			continue
		}

		for _, u := range updates {
			p.handle(u)
		}
	}
}

func (p *poller) handle(u botapi.Update) {
	p.mu.Lock()
	if u.UpdateID >= p.offset {
		p.offset = u.UpdateID + 1
	}
	p.mu.Unlock()

	switch {
	case u.Message != nil:
		p.logger.Info("message received", "update_id", u.UpdateID, "chat_id", u.Message.Chat.ID, "message_id", u.Message.MessageID)
	case u.CallbackQuery != nil:
		p.logger.Info("callback query received", "update_id", u.UpdateID, "from", u.CallbackQuery.From.ID)
	case u.MyChatMember != nil:
		p.logger.Info("membership changed", "update_id", u.UpdateID, "chat_id", u.MyChatMember.Chat.ID, "status", u.MyChatMember.NewChatMember.Status)
	default:
		p.logger.Debug("update ignored", "update_id", u.UpdateID)
	}
}

func (p *poller) nextOffset() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.offset
}

func (p *poller) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastErr = err
}

// health fails when the last poll failed.
func (p *poller) health(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.lastErr != nil {
		return fmt.Errorf("last poll: %w", p.lastErr)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
