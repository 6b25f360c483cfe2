// Package replayclient talks to a replay server's REST surface.
package replayclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/park285/cheese-replay/pkg/replaydto"
	"github.com/valyala/fasthttp"
)

// HeaderProvider injects per-request headers.
type HeaderProvider func() map[string]string

// APIError is a non-2xx reply decoded from the server's error body.
type APIError struct {
	Status int
	replaydto.DomainError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("replay api error: status=%d code=%s: %s", e.Status, e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == replaydto.CodeNotFound
}

type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

// WithRetry sets the attempt count for idempotent reads.
func WithRetry(n int) Option {
	return func(c *Client) { c.retryMax = n }
}

// WithDial replaces the transport dialer, e.g. with an in-memory listener.
func WithDial(dial func(addr string) (net.Conn, error)) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) CreateSession(ctx context.Context, req replaydto.CreateSessionRequest) (*replaydto.SessionState, error) {
	var resp replaydto.SessionResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/sessions", req, &resp); err != nil {
		return nil, err
	}
	return resp.State, nil
}

func (c *Client) Session(ctx context.Context, id string) (*replaydto.SessionState, error) {
	var resp replaydto.SessionResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, sessionPath(id), nil, &resp); err != nil {
		return nil, err
	}
	return resp.State, nil
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.doJSON(ctx, fasthttp.MethodDelete, sessionPath(id), nil, nil)
}

func (c *Client) Load(ctx context.Context, id string, req replaydto.LoadRequest) (*replaydto.SessionState, error) {
	return c.command(ctx, id, "load", req)
}

func (c *Client) Forward(ctx context.Context, id string) (*replaydto.SessionState, error) {
	return c.command(ctx, id, "forward", nil)
}

func (c *Client) Back(ctx context.Context, id string) (*replaydto.SessionState, error) {
	return c.command(ctx, id, "back", nil)
}

func (c *Client) Reset(ctx context.Context, id string) (*replaydto.SessionState, error) {
	return c.command(ctx, id, "reset", nil)
}

func (c *Client) End(ctx context.Context, id string) (*replaydto.SessionState, error) {
	return c.command(ctx, id, "end", nil)
}

func (c *Client) Dismiss(ctx context.Context, id string) (*replaydto.SessionState, error) {
	return c.command(ctx, id, "dismiss", nil)
}

func (c *Client) Seek(ctx context.Context, id string, ply int) (*replaydto.SessionState, error) {
	return c.command(ctx, id, "seek?ply="+strconv.Itoa(ply), nil)
}

func (c *Client) BoardPNG(ctx context.Context, id string) ([]byte, error) {
	var png []byte
	err := c.do(ctx, fasthttp.MethodGet, sessionPath(id)+"/board.png", nil, func(body []byte) error {
		png = append([]byte(nil), body...)
		return nil
	})
	return png, err
}

func (c *Client) Records(ctx context.Context, limit int) ([]replaydto.RecordSummary, error) {
	path := "/records"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp replaydto.RecordsResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

func (c *Client) SaveRecord(ctx context.Context, req replaydto.SaveRecordRequest) (string, error) {
	var resp replaydto.SaveRecordResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/records", req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func sessionPath(id string) string {
	return "/sessions/" + url.PathEscape(id)
}

func (c *Client) command(ctx context.Context, id, cmd string, in any) (*replaydto.SessionState, error) {
	var resp replaydto.SessionResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, sessionPath(id)+"/"+cmd, in, &resp); err != nil {
		return nil, err
	}
	return resp.State, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	return c.do(ctx, method, path, in, func(body []byte) error {
		if out == nil || len(body) == 0 {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
}

// do sends one request. GETs are retried on transport errors and retryable statuses.
func (c *Client) do(ctx context.Context, method, path string, in any, onBody func([]byte) error) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	retry := method == fasthttp.MethodGet
	attempts := 1
	if retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
		} else if status := resp.StatusCode(); status < 200 || status >= 300 {
			lastErr = decodeAPIError(status, resp.Body())
			if !shouldRetryStatus(status) {
				return lastErr
			}
		} else {
			return onBody(resp.Body())
		}

		if attempt == attempts {
			break
		}
		if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
			return lastErr
		}
	}
	return lastErr
}

func decodeAPIError(status int, body []byte) error {
	apiErr := &APIError{Status: status}
	var wire replaydto.ErrorResponse
	if err := json.Unmarshal(body, &wire); err == nil && wire.Error.Code != "" {
		apiErr.DomainError = wire.Error
		return apiErr
	}
	apiErr.Code = replaydto.CodeInternal
	apiErr.Message = truncate(string(body), 512)
	return apiErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	attempt = min(max(attempt, 1), 6)
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case fasthttp.StatusInternalServerError, fasthttp.StatusBadGateway,
		fasthttp.StatusServiceUnavailable, fasthttp.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
