package cmdb

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/cmdbsync/internal/auth"
	"github.com/agentstation/cmdbsync/internal/transport"
	"github.com/agentstation/cmdbsync/pkg/catalogs"
	"github.com/agentstation/cmdbsync/pkg/errors"
)

func newReadServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Empty(t, r.Header.Get("Authorization"), "read API calls are unauthenticated")
		body, ok := routes[r.URL.RequestURI()]
		if !ok {
			http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestResolveService(t *testing.T) {
	server := newReadServer(t, map[string]string{
		"/cmdb/service/filters/sitename/CYFRONET-CLOUD": `{"rows":[{"id":"svc-1"}]}`,
		"/cmdb/service/filters/sitename/EMPTY":          `{"rows":[]}`,
		"/cmdb/service/filters/sitename/TWICE":          `{"rows":[{"id":"a"},{"id":"b"}]}`,
	})
	client := NewReadClient(server.URL+"/cmdb/", nil)
	ctx := context.Background()

	svc, err := client.ResolveService(ctx, "CYFRONET-CLOUD")
	require.NoError(t, err)
	assert.Equal(t, catalogs.Service{ID: "svc-1", SiteName: "CYFRONET-CLOUD"}, svc)

	for _, site := range []string{"EMPTY", "TWICE"} {
		_, err := client.ResolveService(ctx, site)
		require.Error(t, err, site)
		assert.ErrorIs(t, err, errors.ErrServiceResolution)
		assert.True(t, errors.IsFatal(err))
	}

	_, err = client.ResolveService(ctx, "MISSING")
	var queryErr *errors.QueryError
	require.ErrorAs(t, err, &queryErr)
	assert.Equal(t, "resolve service", queryErr.Operation)
	assert.True(t, errors.IsNotFound(err))
}

func TestListServiceImages(t *testing.T) {
	server := newReadServer(t, map[string]string{
		"/service/id/svc-1/has_many/images?include_docs=true": `{"rows":[
			{"id":"c1","doc":{"_id":"c1","_rev":"1-a","type":"image","data":{"image_id":"A","image_name":"Alpha","service":"svc-1"}}},
			{"id":"c2","doc":{"_id":"c2","_rev":"2-b","type":"image","data":{"image_name":"no id"}}},
			{"id":"c3"}
		]}`,
		"/service/id/svc-2/has_many/images?include_docs=true": `{"rows":[]}`,
	})
	client := NewReadClient(server.URL, nil)

	images, err := client.ListServiceImages(context.Background(), "svc-1")
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, catalogs.Handle{CatalogID: "c1", Revision: "1-a", ServiceID: "svc-1"}, images[0].Handle)
	assert.Equal(t, "A", images[0].LogicalID())
	assert.Equal(t, "Alpha", images[0].Record.Name())

	images, err = client.ListServiceImages(context.Background(), "svc-2")
	require.NoError(t, err)
	assert.Empty(t, images)
}

func TestScanImagesByLogicalID(t *testing.T) {
	server := newReadServer(t, map[string]string{
		"/image/filters/service/svc-1": `{"rows":[
			{"id":"c1","value":{"image_id":"A"}},
			{"id":"c2","value":{"image_id":"B"}},
			{"id":"c3","value":{"image_id":"A"}},
			{"id":"c4"}
		]}`,
	})
	client := NewReadClient(server.URL, nil)

	handles, err := client.ScanImagesByLogicalID(context.Background(), "svc-1", "A")
	require.NoError(t, err)
	assert.Equal(t, []catalogs.Handle{
		{CatalogID: "c1", ServiceID: "svc-1"},
		{CatalogID: "c3", ServiceID: "svc-1"},
	}, handles)

	handles, err = client.ScanImagesByLogicalID(context.Background(), "svc-1", "Z")
	require.NoError(t, err)
	assert.Empty(t, handles)

	_, err = client.ScanImagesByLogicalID(context.Background(), "svc-9", "A")
	assert.Error(t, err)
}

func TestFetchRevision(t *testing.T) {
	server := newReadServer(t, map[string]string{
		"/image/id/c1": `{"_id":"c1","_rev":"3-c","type":"image","data":{"image_id":"A"}}`,
		"/image/id/c2": `{"_id":"c2"}`,
	})
	client := NewReadClient(server.URL, nil)

	rev, err := client.FetchRevision(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "3-c", rev)

	_, err = client.FetchRevision(context.Background(), "c2")
	assert.Error(t, err)

	_, err = client.FetchRevision(context.Background(), "gone")
	assert.True(t, errors.IsNotFound(err))
}

// fakeStore is a minimal document store speaking the write API.
type fakeStore struct {
	t        *testing.T
	token    string
	created  []map[string]any
	deleted  []string
	status   int
	requests atomic.Int32
}

func (s *fakeStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)
	if r.Header.Get("Authorization") != "Bearer "+s.token {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	if s.status != 0 {
		http.Error(w, `{"error":"conflict","reason":"Document update conflict."}`, s.status)
		return
	}

	switch r.Method {
	case http.MethodPost:
		var body map[string]any
		require.NoError(s.t, json.NewDecoder(r.Body).Decode(&body))
		s.created = append(s.created, body)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"ok":true,"id":"new-1","rev":"1-x"}`)
	case http.MethodDelete:
		s.deleted = append(s.deleted, r.URL.Path+"?"+r.URL.RawQuery)
		_, _ = io.WriteString(w, `{"ok":true}`)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// staticToken hands out a fixed bearer token.
type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

func (s staticToken) Refresh(ctx context.Context) (string, error) { return s.Token(ctx) }

func newWriteClient(t *testing.T, store *fakeStore, tokens auth.TokenProvider) *WriteClient {
	t.Helper()
	server := httptest.NewServer(store)
	t.Cleanup(server.Close)
	return NewWriteClient(server.URL+"/db", transport.New(transport.WithTokenProvider(tokens)))
}

func TestWriteClientCreate(t *testing.T) {
	store := &fakeStore{t: t, token: "secret"}
	client := newWriteClient(t, store, staticToken("secret"))

	var record catalogs.Record
	require.NoError(t, json.Unmarshal([]byte(`{"image_name":"Alpha","image_id":"A","service":"stale"}`), &record))

	handle, err := client.Create(context.Background(), record, "svc-1")
	require.NoError(t, err)
	assert.Equal(t, catalogs.Handle{CatalogID: "new-1", Revision: "1-x", ServiceID: "svc-1"}, handle)

	require.Len(t, store.created, 1)
	assert.Equal(t, "image", store.created[0]["type"])
	assert.Equal(t, map[string]any{"image_name": "Alpha", "image_id": "A", "service": "svc-1"}, store.created[0]["data"])
	assert.Equal(t, "stale", record.String("service"), "record passed in is not modified")
}

func TestWriteClientDelete(t *testing.T) {
	store := &fakeStore{t: t, token: "secret"}
	client := newWriteClient(t, store, staticToken("secret"))

	err := client.Delete(context.Background(), catalogs.Handle{CatalogID: "c1", Revision: "2-b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/db/c1?rev=2-b"}, store.deleted)
}

func TestWriteClientConflict(t *testing.T) {
	store := &fakeStore{t: t, token: "secret", status: http.StatusConflict}
	client := newWriteClient(t, store, staticToken("secret"))

	err := client.Delete(context.Background(), catalogs.Handle{CatalogID: "c1", Revision: "1-old"})
	var writeErr *errors.WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, "c1", writeErr.CatalogID)
	assert.True(t, errors.IsStaleRevision(err))
	assert.False(t, errors.IsFatal(err))
}

// rotatingTokens hands out an expired token first and a valid one on refresh.
type rotatingTokens struct {
	refreshes int
	fail      bool
}

func (r *rotatingTokens) Token(context.Context) (string, error) {
	if r.refreshes > 0 {
		return "fresh", nil
	}
	return "expired", nil
}

func (r *rotatingTokens) Refresh(context.Context) (string, error) {
	r.refreshes++
	if r.fail {
		return "", errors.NewAuthenticationError("token", "refresh", "invalid_grant", nil)
	}
	return "fresh", nil
}

func TestWriteClientReauthenticatesOnce(t *testing.T) {
	store := &fakeStore{t: t, token: "fresh"}
	tokens := &rotatingTokens{}
	client := newWriteClient(t, store, tokens)

	var record catalogs.Record
	require.NoError(t, json.Unmarshal([]byte(`{"image_id":"A"}`), &record))

	_, err := client.Create(context.Background(), record, "svc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, tokens.refreshes)
	assert.Equal(t, int32(2), store.requests.Load())
	require.Len(t, store.created, 1, "the replayed request carries the body")
}

func TestWriteClientAuthenticationFailure(t *testing.T) {
	store := &fakeStore{t: t, token: "never"}
	tokens := &rotatingTokens{fail: true}
	client := newWriteClient(t, store, tokens)

	err := client.Delete(context.Background(), catalogs.Handle{CatalogID: "c1", Revision: "1"})
	require.Error(t, err)
	assert.True(t, errors.IsAuthentication(err))
	assert.True(t, errors.IsFatal(err))
	assert.Equal(t, int32(1), store.requests.Load())
}

func TestWriteClientRejectedAfterRefresh(t *testing.T) {
	store := &fakeStore{t: t, token: "never"}
	client := newWriteClient(t, store, &rotatingTokens{})

	err := client.Delete(context.Background(), catalogs.Handle{CatalogID: "c1", Revision: "1"})
	require.Error(t, err)
	assert.True(t, errors.IsUnauthorized(err))
	assert.Equal(t, int32(2), store.requests.Load(), "only one retry")
}
