// Package transport provides the HTTP plumbing shared by the catalog read
// and write clients: TLS settings, bearer authentication with a single
// re-authentication on 401, and JSON response decoding.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"time"

	"github.com/agentstation/cmdbsync/internal/auth"
	"github.com/agentstation/cmdbsync/pkg/constants"
	"github.com/agentstation/cmdbsync/pkg/errors"
	"github.com/agentstation/cmdbsync/pkg/logging"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// Client provides HTTP client functionality with optional authentication.
type Client struct {
	http   *http.Client
	auth   Authenticator
	tokens auth.TokenProvider
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithInsecureSkipVerify disables TLS certificate verification.
func WithInsecureSkipVerify(insecure bool) Option {
	return func(c *Client) {
		if !insecure {
			return
		}
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via --cmdb-allow-insecure
		c.http.Transport = tr
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTokenProvider makes every request carry a bearer token from tp.
func WithTokenProvider(tp auth.TokenProvider) Option {
	return func(c *Client) {
		c.tokens = tp
		c.auth = &BearerAuth{}
	}
}

// New creates a new transport client.
func New(opts ...Option) *Client {
	c := &Client{
		http: &http.Client{Timeout: DefaultHTTPTimeout},
		auth: &NoAuth{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HTTPClient returns the underlying HTTP client so the token exchange can
// share its TLS settings.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Do performs an HTTP request with authentication applied. When the server
// answers 401 the token is refreshed once and the request replayed once.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	req.Header.Set("Accept", "application/json")
	if req.Method == http.MethodPost || req.Method == http.MethodPut || req.Method == http.MethodDelete {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.tokens == nil {
		return c.send(ctx, req)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	c.auth.Apply(req, token)

	resp, err := c.send(ctx, req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	// The token was rejected, most likely because it expired mid-run.
	_ = resp.Body.Close()
	logging.FromContext(ctx).Warn().
		Str("method", req.Method).
		Str("url", req.URL.Redacted()).
		Msg("Bearer token rejected, re-authenticating once")

	retry, err := replay(ctx, req)
	if err != nil {
		return nil, err
	}
	token, err = c.tokens.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	c.auth.Apply(retry, token)
	return c.send(ctx, retry)
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WrapAPI(url, 0, err)
	}
	return c.Do(ctx, req)
}

// PostJSON serialises body and POSTs it.
func (c *Client) PostJSON(ctx context.Context, url string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, errors.WrapParse("json", "request body", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, errors.WrapAPI(url, 0, err)
	}
	return c.Do(ctx, req)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return nil, errors.WrapAPI(url, 0, err)
	}
	return c.Do(ctx, req)
}

func (c *Client) send(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.WrapAPI(req.URL.Redacted(), 0, errors.ErrCanceled)
		}
		return nil, errors.WrapAPI(req.URL.Redacted(), 0, err)
	}
	logging.FromContext(ctx).Debug().
		Str("method", req.Method).
		Str("url", req.URL.Redacted()).
		Int("status", resp.StatusCode).
		Msg("Catalog request")
	return resp, nil
}

// replay clones req with a fresh body so it can be sent again.
func replay(ctx context.Context, req *http.Request) (*http.Request, error) {
	retry := req.Clone(ctx)
	if req.Body == nil || req.GetBody == nil {
		return retry, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, errors.WrapAPI(req.URL.Redacted(), 0, err)
	}
	retry.Body = body
	return retry, nil
}
