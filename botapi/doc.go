// Package botapi is a minimal Telegram Bot API client. Every remote
// method is exposed as one context-aware call returning a typed result.
//
// # Quick start
//
//	c, err := botapi.Build(token, botapi.WithTimeout(90*time.Second))
//	if err != nil {
//		return err
//	}
//
//	me, err := c.GetMe(ctx)
//
// # Errors
//
// A reply with "ok": false becomes an [*APIError] wrapping [ErrAPI].
// Token rejections, blocked chats and flood control additionally match
// [ErrUnauthorized], [ErrForbidden] and [ErrTooManyRequests]:
//
//	var apiErr *botapi.APIError
//	if errors.As(err, &apiErr) && errors.Is(err, botapi.ErrTooManyRequests) {
//		time.Sleep(apiErr.RetryAfter)
//	}
//
// Replies that are not Bot API envelopes, for example an HTML page from a
// proxy, become an [*UnexpectedStatusError].
//
// Request parameters are validated before sending; failures are returned
// as [validate.FieldErrors] keyed by JSON field name.
//
// # Pacing
//
// The client does not space calls apart. [WithThrottle] installs a
// token-bucket RoundTripper; per-call spacing lives in the gate package.
package botapi
