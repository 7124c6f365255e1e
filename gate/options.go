package gate

import (
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/tgthrottle/metrics"
)

// Option is a functional option for configuring a [Gate] via [New].
type Option func(*options) error

type options struct {
	name     string
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  *metrics.Gate
	observer Observer
}

// WithName labels the gate in logs, spans and metrics.
func WithName(name string) Option {
	return func(opts *options) error {
		if name == "" {
			return errors.New("name must not be empty")
		}
		opts.name = name
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Gate].
func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		opts.logger = logger
		return nil
	}
}

// WithTracer starts a span around every unit of work.
func WithTracer(tracer trace.Tracer) Option {
	return func(opts *options) error {
		if tracer == nil {
			return errors.New("tracer must not be nil")
		}
		opts.tracer = tracer
		return nil
	}
}

// WithMetrics reports wait times and call outcomes to m.
func WithMetrics(m *metrics.Gate) Option {
	return func(opts *options) error {
		opts.metrics = m
		return nil
	}
}

// WithObserver registers a hook invoked around every unit of work.
func WithObserver(o Observer) Option {
	return func(opts *options) error {
		if o == nil {
			return errors.New("observer must not be nil")
		}
		opts.observer = o
		return nil
	}
}
