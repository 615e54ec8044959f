package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	loginpage "github.com/MamBoota/LoginPage"
)

// DefaultClientTimeout bounds a single request attempt
const DefaultClientTimeout = 10 * time.Second

// ClientOption customizes a Client
type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRetries retries transport failures up to n times, waiting delay
// between attempts. Responses from the server are never retried.
func WithRetries(n int, delay time.Duration) ClientOption {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
		c.retryDelay = delay
	}
}

// WithClientPrefix sets the route prefix the server was mounted under
func WithClientPrefix(prefix string) ClientOption {
	return func(c *Client) {
		c.prefix = prefix
	}
}

// WithClientLogger overrides the client logger
func WithClientLogger(logger loginpage.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client implements loginpage.API against the routes served by Server
type Client struct {
	baseURL    string
	prefix     string
	http       *http.Client
	retries    int
	retryDelay time.Duration
	logger     loginpage.Logger
}

var _ loginpage.API = (*Client)(nil)

// NewClient returns a client for the server at baseURL
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		prefix:  DefaultPrefix,
		http:    &http.Client{Timeout: DefaultClientTimeout},
		logger:  loginpage.DefaultLogger(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// Login implements loginpage.API
func (c *Client) Login(ctx context.Context, email, password string) (loginpage.Session, error) {
	var session loginpage.Session
	err := c.do(ctx, http.MethodPost, RouteLogin, LoginRequest{Email: email, Password: password}, &session)
	if err != nil {
		return loginpage.Session{}, err
	}
	return session, nil
}

// VerifyTwoFactor implements loginpage.API
func (c *Client) VerifyTwoFactor(ctx context.Context, code string) error {
	return c.do(ctx, http.MethodPost, RouteVerify, VerifyRequest{Code: code}, nil)
}

// RequestNewCode implements loginpage.API
func (c *Client) RequestNewCode(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, RouteResend, nil, nil)
}

// Health checks that the server answers
func (c *Client) Health(ctx context.Context) error {
	var out HealthResponse
	return c.do(ctx, http.MethodGet, RouteHealth, nil, &out)
}

func (c *Client) do(ctx context.Context, method, route string, payload, out any) error {
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", route, err)
		}
		body = encoded
	}

	url := c.baseURL + c.prefix + route

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			c.logger.Debug("retrying %s %s (attempt %d): %v", method, route, attempt+1, lastErr)
			if err := wait(ctx, c.retryDelay); err != nil {
				return err
			}
		}

		res, err := c.send(ctx, method, url, body)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			lastErr = err
			continue
		}

		return decode(res, out)
	}

	return loginpage.NewNetworkError(lastErr)
}

func (c *Client) send(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.http.Do(req)
}

func decode(res *http.Response, out any) error {
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if res.StatusCode >= http.StatusBadRequest {
		failure := ErrorResponse{}
		if err := json.Unmarshal(raw, &failure); err != nil || failure.Error == "" {
			failure.Error = http.StatusText(res.StatusCode)
		}
		richErr := loginpage.NewAPIErrorWithStatus(failure.Error, res.StatusCode)
		if len(failure.Fields) > 0 {
			richErr.WithMetadata(map[string]any{"fields": failure.Fields})
		}
		return richErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsUnauthorized reports whether err is a rejection by the server
func IsUnauthorized(err error) bool {
	return loginpage.StatusCode(err) == http.StatusUnauthorized
}
