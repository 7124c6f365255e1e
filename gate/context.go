package gate

import "context"

type ctxKey int

const (
	operation ctxKey = iota + 1
)

// WithOperation names the work about to be run through a gate. The name
// shows up in logs, spans, metrics and [CallInfo].
func WithOperation(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, operation, name)
}

// Operation returns the operation name stored in ctx, or "unknown".
func Operation(ctx context.Context) string {
	v, ok := ctx.Value(operation).(string)
	if !ok || v == "" {
		return "unknown"
	}

	return v
}
