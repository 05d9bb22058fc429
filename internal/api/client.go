package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"expensepool/internal/core"
	"expensepool/internal/log"
)

const headerRequestID = "X-Request-ID"

// TokenSource yields the bearer token for the next request, or "" when
// signed out.
type TokenSource interface {
	Token() string
}

// Client talks JSON to the expense-pool backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     *log.StructuredLogger
	newID      func() string
}

type Option func(*Client)

// WithHTTPClient replaces the default client, e.g. with an httptest one.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRequestIDs overrides request id generation.
func WithRequestIDs(fn func() string) Option {
	return func(c *Client) { c.newID = fn }
}

func NewClient(baseURL string, timeout time.Duration, tokens TokenSource, logger *log.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = log.Discard()
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		logger:     log.NewStructuredLogger(logger.WithComponent(log.ComponentAPI)),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do sends body as JSON and decodes the response into out. out must embed or
// be compatible with the response envelope; the envelope is always decoded.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := c.newID()
	req.Header.Set(headerRequestID, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.LogAPICall(ctx, requestID, method, path, 0, time.Since(start).Milliseconds())
		return &core.RemoteError{Kind: core.KindRemote, Err: fmt.Errorf("%s %s: %w", method, path, err)}
	}
	defer resp.Body.Close()
	c.logger.LogAPICall(ctx, requestID, method, path, resp.StatusCode, time.Since(start).Milliseconds())

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &core.RemoteError{Kind: core.KindRemote, Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return &core.RemoteError{Kind: core.KindRemote, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		kind := core.KindRemote
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			kind = core.KindAuth
		}
		msg := env.failureMessage()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &core.RemoteError{Kind: kind, Status: resp.StatusCode, Message: msg}
	}
	if !env.ok() {
		return &core.RemoteError{Kind: core.KindRemote, Status: resp.StatusCode, Message: env.failureMessage()}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return &core.RemoteError{Kind: core.KindRemote, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

// Message is the server's success message, when the endpoint sends one.
type Message struct {
	Message string `json:"message"`
}

// IsAuth reports whether err is a rejected-credentials response.
func IsAuth(err error) bool {
	return errors.Is(err, core.ErrUnauthorized)
}
