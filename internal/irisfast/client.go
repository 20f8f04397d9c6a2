// Package irisfast talks to an Iris chat bridge: replies go out over HTTP or
// WebSocket and chat events come in over WebSocket.
package irisfast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// HeaderProvider supplies per-request headers such as X-User-Id.
type HeaderProvider func() map[string]string

// StatusError is a non-2xx reply from Iris.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("iris api error: status=%d body=%s", e.Status, e.Body)
}

func (e *StatusError) retryable() bool {
	switch e.Status {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	timeout  time.Duration
	attempts int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

// WithRetry sets the total number of attempts for a reply.
func WithRetry(attempts int) Option {
	return func(c *Client) { c.attempts = attempts }
}

// WithDial replaces the TCP dialer; tests use an in-memory listener.
func WithDial(dial fasthttp.DialFunc) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &fasthttp.Client{
			Name:            "fenpix",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			MaxConnsPerHost: 16,
		},
		timeout:  10 * time.Second,
		attempts: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.attempts < 1 {
		c.attempts = 1
	}
	return c
}

func (c *Client) SendText(ctx context.Context, room, message string) error {
	return c.reply(ctx, ReplyRequest{Type: "text", Room: room, Data: message})
}

func (c *Client) SendImage(ctx context.Context, room, imageBase64 string) error {
	return c.reply(ctx, ReplyRequest{Type: "image", Room: room, Data: imageBase64})
}

func (c *Client) reply(ctx context.Context, body ReplyRequest) error {
	if c == nil || c.baseURL == "" {
		return errors.New("iris base url not configured")
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(c.baseURL + "/reply")
	req.Header.SetContentType("application/json")
	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}
	req.SetBody(payload)

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, backoff(attempt-1)); err != nil {
				return lastErr
			}
		}
		lastErr = c.http.DoDeadline(req, resp, c.deadline(ctx))
		if lastErr != nil {
			lastErr = fmt.Errorf("reply %s: %w", body.Type, lastErr)
			continue
		}
		status := resp.StatusCode()
		if status >= 200 && status < 300 {
			return nil
		}
		serr := &StatusError{Status: status, Body: truncate(string(resp.Body()), 512)}
		if !serr.retryable() {
			return serr
		}
		lastErr = serr
	}
	return lastErr
}

func (c *Client) deadline(ctx context.Context) time.Time {
	dl := time.Now().Add(c.timeout)
	if ctxDL, ok := ctx.Deadline(); ok && ctxDL.Before(dl) {
		return ctxDL
	}
	return dl
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// backoff: 100ms부터 두 배씩, 최대 3.2s.
func backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
