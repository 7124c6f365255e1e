package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/adamwoolhether/tgthrottle/metrics"
)

var errWorkPanicked = errors.New("work panicked")

// Gate admits one unit of work at a time and holds the slot for a
// fixed delay after each unit completes.
type Gate struct {
	slot     chan struct{}
	closed   chan struct{}
	once     sync.Once
	delay    time.Duration
	name     string
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  *metrics.Gate
	observer Observer
}

// New returns a Gate spacing consecutive calls by delay. A zero delay
// only serializes. The default slog logger and a no-op tracer are used
// unless overridden via options.
func New(delay time.Duration, optFns ...Option) (*Gate, error) {
	if delay < 0 {
		return nil, fmt.Errorf("delay[%s] %w", delay, ErrNegativeDelay)
	}

	opts := options{name: "default"}
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying gate option: %w", err)
		}
	}
	if opts.logger == nil {
		opts.logger = slog.Default()
	}
	if opts.tracer == nil {
		opts.tracer = noop.NewTracerProvider().Tracer("no-op tracer")
	}

	g := &Gate{
		slot:     make(chan struct{}, 1),
		closed:   make(chan struct{}),
		delay:    delay,
		name:     opts.name,
		logger:   opts.logger,
		tracer:   opts.tracer,
		metrics:  opts.metrics,
		observer: opts.observer,
	}

	return g, nil
}

// Delay returns the configured spacing between calls.
func (g *Gate) Delay() time.Duration { return g.delay }

// Name returns the label given via WithName.
func (g *Gate) Name() string { return g.name }

// Close tears the gate down. It is safe to call more than once and
// while work is in flight: running work finishes normally, waiting
// and future callers get ErrClosed.
func (g *Gate) Close() error {
	g.once.Do(func() {
		close(g.closed)
		g.logger.Debug("gate closed", "gate", g.name)
	})

	return nil
}

// Closed reports whether Close has been called.
func (g *Gate) Closed() bool { return g.isClosed() }

// Exec runs work under the gate, for work that has no result.
func (g *Gate) Exec(ctx context.Context, work func(ctx context.Context) error) error {
	_, err := Do(ctx, g, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, work(ctx)
	})

	return err
}

// Do blocks until g admits the caller, runs work exactly once, holds
// the slot for the gate's delay and returns work's outcome unchanged.
//
// If ctx ends before admission, work is never run and ctx.Err() is
// returned. If work itself reports cancellation of ctx, the delay is
// skipped. A closed gate returns ErrClosed without waiting.
func Do[T any](ctx context.Context, g *Gate, work func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	op := Operation(ctx)

	waited, err := g.acquire(ctx, op)
	if err != nil {
		return zero, err
	}

	// Past admission this is the only release. A panic from work or from
	// any hook below leaves returned false.
	var returned, skipDelay bool
	defer func() {
		switch {
		case !returned:
			time.AfterFunc(g.delay, g.release)
		case skipDelay:
			g.release()
		default:
			g.cooldown(ctx)
		}
	}()

	workCtx, c := g.begin(ctx, op, waited)

	ended := false
	defer func() {
		if !ended {
			ended = true
			c.end(errWorkPanicked)
		}
	}()

	v, err := work(workCtx)
	ended = true
	c.end(err)

	skipDelay = ctx.Err() != nil && isCancellation(err)
	returned = true

	return v, err
}

// acquire waits for the slot, returning how long the caller waited.
func (g *Gate) acquire(ctx context.Context, op string) (time.Duration, error) {
	if g.isClosed() {
		g.metrics.RecordCall(g.name, op, outcomeRejected)
		return 0, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		g.metrics.RecordCall(g.name, op, outcomeCancelled)
		return 0, err
	}

	start := time.Now()
	waitDone := g.metrics.WaitStarted(g.name)
	defer waitDone()

	select {
	case g.slot <- struct{}{}:
	case <-ctx.Done():
		g.logger.Warn("gate wait abandoned", "gate", g.name, "op", op, "waited", time.Since(start).String(), "error", ctx.Err())
		g.metrics.RecordCall(g.name, op, outcomeCancelled)
		return 0, ctx.Err()
	case <-g.closed:
		g.metrics.RecordCall(g.name, op, outcomeRejected)
		return 0, ErrClosed
	}

	// select picks randomly among ready cases, so the slot can win
	// against closure or cancellation.
	if g.isClosed() {
		g.release()
		g.metrics.RecordCall(g.name, op, outcomeRejected)
		return 0, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		g.release()
		g.metrics.RecordCall(g.name, op, outcomeCancelled)
		return 0, err
	}

	waited := time.Since(start)
	g.metrics.ObserveWait(g.name, waited)

	return waited, nil
}

// cooldown holds the slot for the delay, then releases it. A caller
// leaving early does not shorten the hold.
func (g *Gate) cooldown(ctx context.Context) {
	if g.delay <= 0 {
		g.release()
		return
	}

	deadline := time.Now().Add(g.delay)
	timer := time.NewTimer(g.delay)

	select {
	case <-timer.C:
		g.release()
	case <-ctx.Done():
		timer.Stop()
		time.AfterFunc(time.Until(deadline), g.release)
	}
}

func (g *Gate) release() {
	<-g.slot
}

func (g *Gate) isClosed() bool {
	select {
	case <-g.closed:
		return true
	default:
		return false
	}
}

// call tracks one admitted unit of work for logs, spans and metrics.
type call struct {
	g    *Gate
	info CallInfo
	span trace.Span
}

func (g *Gate) begin(ctx context.Context, op string, waited time.Duration) (context.Context, *call) {
	ctx, span := g.tracer.Start(ctx, "gate.work")
	span.SetAttributes(
		attribute.String("gate", g.name),
		attribute.String("operation", op),
		attribute.Int64("waited_ms", waited.Milliseconds()),
	)

	id := span.SpanContext().TraceID().String()
	if !span.SpanContext().TraceID().IsValid() {
		id = uuid.New().String()
	}

	c := &call{
		g: g,
		info: CallInfo{
			ID:        id,
			Gate:      g.name,
			Operation: op,
			Waited:    waited,
			Started:   time.Now(),
		},
		span: span,
	}

	g.logger.Debug("work started", "gate", g.name, "op", op, "call_id", id, "waited", waited.String())
	if g.observer != nil {
		g.observer.Started(c.info)
	}

	return ctx, c
}

func (c *call) end(err error) {
	elapsed := time.Since(c.info.Started)

	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeError
		if isCancellation(err) {
			outcome = outcomeCancelled
		}
		c.span.RecordError(err)
		c.span.SetStatus(codes.Error, err.Error())
	}
	c.span.End()

	c.g.metrics.ObserveWork(c.g.name, c.info.Operation, elapsed)
	c.g.metrics.RecordCall(c.g.name, c.info.Operation, outcome)

	c.g.logger.Debug("work finished", "gate", c.g.name, "op", c.info.Operation, "call_id", c.info.ID, "elapsed", elapsed.String(), "error", err)
	if c.g.observer != nil {
		c.g.observer.Finished(c.info, elapsed, err)
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
