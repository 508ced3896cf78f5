package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/cmdbsync/pkg/errors"
)

// countingTokens issues tok-0 first and tok-1, tok-2... on each refresh.
type countingTokens struct {
	refreshes  int32
	refreshErr error
}

func (c *countingTokens) Token(context.Context) (string, error) {
	return "tok-" + string(rune('0'+atomic.LoadInt32(&c.refreshes))), nil
}

func (c *countingTokens) Refresh(ctx context.Context) (string, error) {
	if c.refreshErr != nil {
		return "", c.refreshErr
	}
	atomic.AddInt32(&c.refreshes, 1)
	return c.Token(ctx)
}

func TestBearerAuth(t *testing.T) {
	req := &http.Request{Header: make(http.Header)}
	(&BearerAuth{}).Apply(req, "abc")
	assert.Equal(t, "Bearer abc", req.Header.Get("Authorization"))

	req = &http.Request{Header: make(http.Header)}
	(&NoAuth{}).Apply(req, "abc")
	assert.Empty(t, req.Header)
}

func TestClientUnauthenticated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"rows":[]}`))
	}))
	defer server.Close()

	c := New(WithHTTPClient(server.Client()))
	resp, err := c.Get(context.Background(), server.URL)
	require.NoError(t, err)

	var out struct {
		Rows []any `json:"rows"`
	}
	require.NoError(t, DecodeResponse(resp, &out))
	assert.Empty(t, out.Rows)
}

func TestClientReauthenticatesOnce(t *testing.T) {
	t.Run("replays body with a refreshed token", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := atomic.AddInt32(&calls, 1)
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"type":"image"}`, string(body))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			if n == 1 {
				assert.Equal(t, "Bearer tok-0", r.Header.Get("Authorization"))
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"x","rev":"1-a"}`))
		}))
		defer server.Close()

		tokens := &countingTokens{}
		c := New(WithHTTPClient(server.Client()), WithTokenProvider(tokens))
		resp, err := c.PostJSON(context.Background(), server.URL, map[string]string{"type": "image"})
		require.NoError(t, err)
		require.NoError(t, DecodeResponse(resp, nil, http.StatusCreated))
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
		assert.Equal(t, int32(1), atomic.LoadInt32(&tokens.refreshes))
	})

	t.Run("second 401 is returned to the caller", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		c := New(WithHTTPClient(server.Client()), WithTokenProvider(&countingTokens{}))
		resp, err := c.Delete(context.Background(), server.URL+"/abc?rev=1-a")
		require.NoError(t, err)

		err = DecodeResponse(resp, nil)
		assert.True(t, errors.IsUnauthorized(err))
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})

	t.Run("refresh failure surfaces", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		refreshErr := errors.NewAuthenticationError("token", "refresh", "denied", nil)
		c := New(WithHTTPClient(server.Client()), WithTokenProvider(&countingTokens{refreshErr: refreshErr}))
		_, err := c.Delete(context.Background(), server.URL)
		assert.True(t, errors.IsAuthentication(err))
	})
}

func TestDecodeResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/conflict":
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"conflict","reason":"Document update conflict."}`))
		case "/empty":
			w.WriteHeader(http.StatusBadGateway)
		default:
			_, _ = w.Write([]byte(`{"rows": [`))
		}
	}))
	defer server.Close()

	c := New(WithHTTPClient(server.Client()))

	t.Run("conflict", func(t *testing.T) {
		resp, err := c.Get(context.Background(), server.URL+"/conflict")
		require.NoError(t, err)
		err = DecodeResponse(resp, nil)

		var apiErr *errors.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
		assert.Contains(t, apiErr.Message, "Document update conflict")
		assert.True(t, errors.IsStaleRevision(err))
	})

	t.Run("empty error body uses status text", func(t *testing.T) {
		resp, err := c.Get(context.Background(), server.URL+"/empty")
		require.NoError(t, err)
		err = DecodeResponse(resp, nil)
		assert.Contains(t, err.Error(), "Bad Gateway")
	})

	t.Run("malformed json", func(t *testing.T) {
		resp, err := c.Get(context.Background(), server.URL+"/broken")
		require.NoError(t, err)
		var out map[string]any
		err = DecodeResponse(resp, &out)
		var parseErr *errors.ParseError
		assert.ErrorAs(t, err, &parseErr)
	})
}

func TestClientTransportErrors(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c := New(WithInsecureSkipVerify(true), WithTimeout(0))
	_, err := c.Get(context.Background(), url)
	var apiErr *errors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Zero(t, apiErr.StatusCode)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Get(ctx, url)
	assert.ErrorIs(t, err, errors.ErrCanceled)
}
