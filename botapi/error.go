package botapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// maxErrBodySize caps the amount of response body read when
// building an error for an unexpected status code. This prevents
// unbounded memory usage when a large response arrives with a
// wrong status.
const maxErrBodySize = 4 << 10 // 4KB

var (
	// ErrUnexpectedStatusCode is the sentinel error wrapped by [UnexpectedStatusError].
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	// ErrAPI is wrapped by every [APIError].
	ErrAPI = errors.New("bot api error")
	// ErrUnauthorized is joined with [ErrAPI] when Telegram rejects the
	// bot token (401).
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is joined with [ErrAPI] when the bot may not act in a
	// chat, e.g. it was blocked or kicked (403).
	ErrForbidden = errors.New("forbidden")
	// ErrTooManyRequests is joined with [ErrAPI] on flood control (429).
	ErrTooManyRequests = errors.New("too many requests")
	// ErrInvalidToken is returned by [Build] for a malformed bot token.
	ErrInvalidToken = errors.New("invalid bot token")
)

// UnexpectedStatusError is returned when the server responds with
// something other than a Bot API envelope.
type UnexpectedStatusError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("%v: %d, body: %s", e.Err, e.StatusCode, e.Body)
}

func (e *UnexpectedStatusError) Unwrap() error {
	return e.Err
}

// APIError is a Bot API response with "ok": false.
type APIError struct {
	Method          string
	Code            int
	Description     string
	RetryAfter      time.Duration
	MigrateToChatID int64
	Err             error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %v: %d %s", e.Method, ErrAPI, e.Code, e.Description)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func newAPIError(method string, r *response) *APIError {
	e := &APIError{
		Method:      method,
		Code:        r.ErrorCode,
		Description: r.Description,
		Err:         ErrAPI,
	}

	if r.Parameters != nil {
		e.RetryAfter = time.Duration(r.Parameters.RetryAfter) * time.Second
		e.MigrateToChatID = r.Parameters.MigrateToChatID
	}

	switch r.ErrorCode {
	case http.StatusUnauthorized:
		e.Err = errors.Join(ErrAPI, ErrUnauthorized)
	case http.StatusForbidden:
		e.Err = errors.Join(ErrAPI, ErrForbidden)
	case http.StatusTooManyRequests:
		e.Err = errors.Join(ErrAPI, ErrTooManyRequests)
	}

	return e
}
