package botapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/adamwoolhether/tgthrottle/botapi/download"
	"github.com/adamwoolhether/tgthrottle/botapi/throttle"
	"github.com/adamwoolhether/tgthrottle/internal/validate"
)

const (
	// DefaultBaseURL is the public Bot API server.
	DefaultBaseURL = "https://api.telegram.org"

	defaultTimeout = 60 * time.Second
)

// Client talks to the Bot API over HTTP. It is safe for concurrent use
// and applies no pacing of its own beyond the optional WithThrottle.
type Client struct {
	c       *http.Client
	logger  *slog.Logger
	token   string
	baseURL *url.URL
	botID   atomic.Int64
}

// response is the envelope wrapping every Bot API reply.
type response struct {
	OK          bool                `json:"ok"`
	Result      json.RawMessage     `json:"result,omitempty"`
	Description string              `json:"description,omitempty"`
	ErrorCode   int                 `json:"error_code,omitempty"`
	Parameters  *ResponseParameters `json:"parameters,omitempty"`
}

// Build returns a Client for the bot identified by token. Requests time
// out after 60s unless overridden via WithTimeout or WithClient.
func Build(token string, optFns ...Option) (*Client, error) {
	id, err := parseToken(token)
	if err != nil {
		return nil, err
	}

	base, _ := url.Parse(DefaultBaseURL)
	client := &Client{
		c:       &http.Client{Timeout: defaultTimeout},
		logger:  slog.Default(),
		token:   token,
		baseURL: base,
	}
	client.botID.Store(id)

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	// The caller's client is copied so the settings below never leak
	// into it, http.DefaultClient included.
	if opts.client != nil {
		hc := *opts.client
		client.c = &hc
	}

	if opts.logger != nil {
		client.logger = opts.logger
	}

	if opts.baseURL != nil {
		client.baseURL = opts.baseURL
	}

	if opts.timeout != nil {
		client.c.Timeout = *opts.timeout
	}

	if opts.noFollowRedirects {
		client.c.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	var transport http.RoundTripper
	switch {
	case opts.rt != nil:
		transport = opts.rt
	case opts.client != nil && opts.client.Transport != nil:
		transport = opts.client.Transport
	default:
		transport = newTransport()
	}
	if opts.userAgent != "" {
		transport = userAgent{value: opts.userAgent, base: transport}
	}
	if opts.throttle != nil {
		rt, err := throttle.NewRoundTripper(opts.throttle.RPS, opts.throttle.Burst, func() *slog.Logger { return client.logger }, transport)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		transport = rt
	}
	client.c.Transport = transport

	return client, nil
}

// newTransport is the default transport. Idle connections are kept
// for reuse since a bot talks to a single host.
func newTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: 5 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConns:        5,
		IdleConnTimeout:     90 * time.Second,
	}
}

// BotID returns the bot's user ID, taken from the token and refreshed
// by every successful GetMe.
func (c *Client) BotID() int64 {
	return c.botID.Load()
}

// TestAPI reports whether the token is accepted by the server.
func (c *Client) TestAPI(ctx context.Context) (bool, error) {
	if _, err := c.GetMe(ctx); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// DownloadFile streams the file at filePath, as returned by GetFile, into w.
func (c *Client) DownloadFile(ctx context.Context, filePath string, w io.Writer, opts ...download.Option) error {
	if filePath == "" {
		return errors.New("downloadFile: file path must not be empty")
	}

	u := c.baseURL.JoinPath("file", "bot"+c.token, filePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("downloadFile: instantiating request: %w", c.redact(err))
	}

	resp, err := c.c.Do(req)
	if err != nil {
		return fmt.Errorf("downloadFile: exec http do: %w", c.redact(err))
	}
	defer c.drain(resp)

	if resp.StatusCode != http.StatusOK {
		return c.unexpectedStatus(resp)
	}

	if err := download.Handle(ctx, resp.Body, resp.ContentLength, w, c.logger, opts...); err != nil {
		return fmt.Errorf("downloadFile: %w", err)
	}

	return nil
}

// call validates params, invokes method and decodes its result into T.
func call[T any](ctx context.Context, c *Client, method string, params any) (T, error) {
	var zero T

	if params != nil {
		if err := validate.Check(params); err != nil {
			return zero, fmt.Errorf("%s: validating params: %w", method, err)
		}
	}

	req, err := c.request(ctx, method, params)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", method, err)
	}

	var result T
	if err := c.exec(req, method, &result); err != nil {
		return zero, err
	}

	return result, nil
}

// request builds the POST for method with params as its JSON body.
func (c *Client) request(ctx context.Context, method string, params any) (*http.Request, error) {
	var payload bytes.Buffer
	if params != nil {
		if err := json.NewEncoder(&payload).Encode(params); err != nil {
			return nil, fmt.Errorf("encoding request payload: %w", err)
		}
	}

	u := c.baseURL.JoinPath("bot"+c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), &payload)
	if err != nil {
		return nil, fmt.Errorf("instantiating request: %w", c.redact(err))
	}
	req.Header.Set("Content-Type", "application/json")

	return req, nil
}

// exec runs the request and decodes the envelope's result into dest.
func (c *Client) exec(req *http.Request, method string, dest any) error {
	start := time.Now()

	resp, err := c.c.Do(req)
	if err != nil {
		return fmt.Errorf("%s: exec http do: %w", method, c.redact(err))
	}
	defer c.drain(resp)

	// Bot API failures still carry a JSON envelope; anything else
	// came from a proxy or a broken server.
	if resp.StatusCode != http.StatusOK && !strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		return c.unexpectedStatus(resp)
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return fmt.Errorf("%s: decoding response: %w", method, err)
	}

	c.logger.Debug("bot api call", "method", method, "status", resp.StatusCode, "ok", r.OK, "elapsed", time.Since(start).String())

	if !r.OK {
		return newAPIError(method, &r)
	}

	if dest != nil && len(r.Result) > 0 {
		if err := json.Unmarshal(r.Result, dest); err != nil {
			return fmt.Errorf("%s: decoding result: %w", method, err)
		}
	}

	return nil
}

func (c *Client) unexpectedStatus(resp *http.Response) error {
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrBodySize))
	if err != nil {
		b = []byte("unable to read body")
	}

	return &UnexpectedStatusError{
		StatusCode: resp.StatusCode,
		Body:       string(b),
		Err:        ErrUnexpectedStatusCode,
	}
}

func (c *Client) drain(resp *http.Response) {
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		c.logger.Error("failed to discard unused body", "error", err)
	}
	if err := resp.Body.Close(); err != nil {
		c.logger.Error("failed to close response body", "error", err)
	}
}

// redact strips the bot token from URLs embedded in transport errors.
func (c *Client) redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		uerr.URL = strings.ReplaceAll(uerr.URL, c.token, "<token>")
	}

	return err
}

func parseToken(token string) (int64, error) {
	idPart, secret, ok := strings.Cut(token, ":")
	if !ok || secret == "" {
		return 0, fmt.Errorf("%w: expected <bot id>:<secret>", ErrInvalidToken)
	}

	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bot id %q is not a positive integer", ErrInvalidToken, idPart)
	}

	return id, nil
}
