// Package gate provides a single-flight admission gate that spaces
// consecutive units of work by a fixed delay.
//
// # Usage
//
// Build a [Gate] with the minimum spacing between calls and route every
// outbound call through [Do] (or [Gate.Exec] for work without a result):
//
//	g, err := gate.New(time.Second, gate.WithLogger(slog.Default()))
//	if err != nil { ... }
//	defer g.Close()
//
//	user, err := gate.Do(ctx, g, func(ctx context.Context) (*User, error) {
//		return api.GetMe(ctx)
//	})
//
// At most one unit of work runs at a time. Once work returns, the gate
// keeps the slot for the configured delay before admitting the next
// caller, so throughput through a single gate is bounded by 1/delay.
// The delay is charged on failures too.
//
// # Cancellation
//
// A caller whose context ends while waiting for the slot leaves without
// running its work and without affecting the schedule. A caller whose
// context ends during the trailing delay receives its work's outcome
// immediately, while the slot stays held until the delay runs out.
//
// # Teardown
//
// [Gate.Close] is idempotent. Work already running is allowed to finish
// and its caller receives the real outcome; callers still waiting for
// the slot, and all later callers, receive [ErrClosed].
package gate
