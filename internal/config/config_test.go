package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    *Config
		wantErr bool
	}{
		{
			name: "defaults",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "123:abc",
			},
			want: &Config{
				BotToken:        "123:abc",
				APIURL:          "https://api.telegram.org",
				ThrottleDelay:   time.Second,
				PollTimeout:     30 * time.Second,
				ShutdownTimeout: 10 * time.Second,
				LogLevel:        "info",
			},
		},
		{
			name: "all set",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "123:abc",
				"TELEGRAM_API_URL":   "http://localhost:8081",
				"THROTTLE_DELAY":     "250ms",
				"TRANSPORT_RPS":      "30",
				"TRANSPORT_BURST":    "5",
				"POLL_TIMEOUT":       "50s",
				"METRICS_ADDR":       ":9090",
				"SHUTDOWN_TIMEOUT":   "3s",
				"LOG_LEVEL":          "debug",
			},
			want: &Config{
				BotToken:        "123:abc",
				APIURL:          "http://localhost:8081",
				ThrottleDelay:   250 * time.Millisecond,
				TransportRPS:    30,
				TransportBurst:  5,
				PollTimeout:     50 * time.Second,
				MetricsAddr:     ":9090",
				ShutdownTimeout: 3 * time.Second,
				LogLevel:        "debug",
			},
		},
		{
			name:    "missing token",
			env:     map[string]string{},
			wantErr: true,
		},
		{
			name: "unparsable delay",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "123:abc",
				"THROTTLE_DELAY":     "soon",
			},
			wantErr: true,
		},
		{
			name: "unparsable rps",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "123:abc",
				"TRANSPORT_RPS":      "many",
			},
			wantErr: true,
		},
		{
			name: "negative delay",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "123:abc",
				"THROTTLE_DELAY":     "-1s",
			},
			wantErr: true,
		},
		{
			name: "rps without burst",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "123:abc",
				"TRANSPORT_RPS":      "30",
			},
			wantErr: true,
		},
		{
			name: "relative api url",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "123:abc",
				"TELEGRAM_API_URL":   "api.telegram.org",
			},
			wantErr: true,
		},
		{
			name: "short poll timeout",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "123:abc",
				"POLL_TIMEOUT":       "500ms",
			},
			wantErr: true,
		},
		{
			name: "zero shutdown timeout",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "123:abc",
				"SHUTDOWN_TIMEOUT":   "0s",
			},
			wantErr: true,
		},
		{
			name: "bad log level",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "123:abc",
				"LOG_LEVEL":          "verbose",
			},
			wantErr: true,
		},
	}

	keys := []string{
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_API_URL", "THROTTLE_DELAY", "TRANSPORT_RPS",
		"TRANSPORT_BURST", "POLL_TIMEOUT", "METRICS_ADDR", "SHUTDOWN_TIMEOUT", "LOG_LEVEL",
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range keys {
				t.Setenv(k, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			if diff := cmp.Diff(tt.want, cfg); diff != "" {
				t.Errorf("unexpected config (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "info", want: slog.LevelInfo},
		{in: "WARN", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.in}

			got, err := cfg.Level()
			if err != nil {
				t.Fatalf("Level() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Level() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHTTPTimeout(t *testing.T) {
	cfg := &Config{PollTimeout: 30 * time.Second}

	if got := cfg.HTTPTimeout(); got <= cfg.PollTimeout {
		t.Errorf("HTTPTimeout() = %v, want more than the poll timeout %v", got, cfg.PollTimeout)
	}
}
