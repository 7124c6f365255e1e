// Package throttle provides an [http.RoundTripper] that caps the rate of
// outbound Bot API requests using a token-bucket algorithm from
// [golang.org/x/time/rate].
//
// It complements the per-client [github.com/adamwoolhether/tgthrottle/gate]
// by limiting every request leaving a transport, including the long-poll
// getUpdates calls the gate deliberately lets through.
//
// # Usage
//
// Wrap an existing transport with [NewRoundTripper]:
//
//	rt, err := throttle.NewRoundTripper(
//		30, // requests per second
//		1,  // burst capacity
//		func() *slog.Logger { return slog.Default() },
//		http.DefaultTransport,
//	)
//	httpClient := &http.Client{Transport: rt}
//
// When the rate is exceeded, requests block until a token becomes
// available or the request context is cancelled.
package throttle
