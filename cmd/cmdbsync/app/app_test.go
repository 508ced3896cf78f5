package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/cmdbsync/internal/cmdbtest"
	"github.com/agentstation/cmdbsync/pkg/errors"
)

const site = "CYFRONET-CLOUD"

// isolate keeps the user's config file and log output out of the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LOG_OUTPUT", "discard")
	t.Setenv("LOG_LEVEL", "")
}

func newApp(t *testing.T, opts ...Option) *App {
	t.Helper()
	isolate(t)
	a, err := New("1.0.0", "abc123", "2025-01-01", "test", opts...)
	require.NoError(t, err)
	return a
}

func run(t *testing.T, a *App, stdin string, args ...string) (string, error) {
	t.Helper()
	root, err := a.createRootCommand()
	require.NoError(t, err)

	var out bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return out.String(), err
}

func catalogArgs(server *cmdbtest.Server, extra ...string) []string {
	args := []string{
		"--sitename", site,
		"--cmdb-read-endpoint", server.ReadEndpoint(),
		"--cmdb-write-endpoint", server.WriteEndpoint(),
		"--oidc-token-endpoint", server.TokenEndpoint(),
		"--oidc-client-id", cmdbtest.ClientID,
		"--oidc-client-secret", cmdbtest.ClientSecret,
		"--oidc-username", cmdbtest.Username,
		"--oidc-password", cmdbtest.Password,
	}
	return append(args, extra...)
}

func TestApp_New(t *testing.T) {
	a := newApp(t)

	assert.Equal(t, "1.0.0", a.Version())
	assert.Equal(t, "abc123", a.Commit())
	assert.Equal(t, "2025-01-01", a.Date())
	assert.Equal(t, "test", a.BuiltBy())
	assert.NotNil(t, a.Logger())
	require.NotNil(t, a.Config())
	assert.Nil(t, a.Metrics(), "metrics are disabled without a metrics file")
}

func TestApp_Sync(t *testing.T) {
	server := cmdbtest.New(t)
	server.AddService(site, "svc-1")
	stale := server.Put("svc-1", map[string]any{"image_id": "b", "service": "svc-1"})
	a := newApp(t)

	out, err := run(t, a, `[{"image_id":"a","image_name":"A"},{"image_id":"b","image_name":"B"}]`,
		append([]string{"sync"}, catalogArgs(server, "-o", "json")...)...)
	require.NoError(t, err)

	var report struct {
		SiteName  string `json:"sitename"`
		ServiceID string `json:"service_id"`
		Outcomes  []struct {
			Action    string `json:"action"`
			Status    string `json:"status"`
			LogicalID string `json:"image_id"`
		} `json:"outcomes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, site, report.SiteName)
	assert.Equal(t, "svc-1", report.ServiceID)
	assert.NotEmpty(t, report.Outcomes)
	for _, o := range report.Outcomes {
		assert.Equal(t, "success", o.Status, "%s %s", o.Action, o.LogicalID)
	}

	assert.Len(t, server.Images("svc-1", "a"), 1)
	images := server.Images("svc-1", "b")
	require.Len(t, images, 1)
	assert.NotEqual(t, stale, images[0].ID, "superseded revision is pruned")
	assert.Equal(t, "B", images[0].Data["image_name"])
}

func TestApp_SyncFromFile(t *testing.T) {
	server := cmdbtest.New(t)
	server.AddService(site, "svc-1")
	path := filepath.Join(t.TempDir(), "images.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- image_id: a\n  image_name: A\n"), 0o600))
	metricsPath := filepath.Join(t.TempDir(), "cmdbsync.prom")
	a := newApp(t)

	out, err := run(t, a, "", append([]string{"sync"},
		catalogArgs(server, "--input", path, "--metrics-file", metricsPath, "-o", "table")...)...)
	require.NoError(t, err)

	assert.Contains(t, out, "Synced "+site+": 1 added")
	assert.Len(t, server.Images("svc-1", "a"), 1)

	metrics, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `cmdbsync_operations_total{action="add",status="success"} 1`)
}

func TestApp_SyncMissingCredentials(t *testing.T) {
	server := cmdbtest.New(t)
	server.AddService(site, "svc-1")
	a := newApp(t)

	_, err := run(t, a, `[{"image_id":"a"}]`,
		"sync", "--sitename", site, "--cmdb-read-endpoint", server.ReadEndpoint())
	require.Error(t, err)

	var cfgErr *errors.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Message, "oidc-password is required")
	assert.Equal(t, 0, server.Calls("resolve"), "no network call before configuration is valid")
	assert.Equal(t, 0, server.Calls("token"))
}

func TestApp_SyncMissingSite(t *testing.T) {
	a := newApp(t)

	_, err := run(t, a, `[]`, "sync", "--dry-run")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
	assert.Contains(t, err.Error(), "sitename")
}

func TestApp_SyncMalformedInput(t *testing.T) {
	server := cmdbtest.New(t)
	server.AddService(site, "svc-1")
	a := newApp(t)

	_, err := run(t, a, `[{"image_name":"no id"}]`, append([]string{"sync"}, catalogArgs(server)...)...)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
	assert.Equal(t, 0, server.Calls("resolve"))
}

func TestApp_DryRunNeedsNoCredentials(t *testing.T) {
	server := cmdbtest.New(t)
	server.AddService(site, "svc-1")
	server.Put("svc-1", map[string]any{"image_id": "gone", "service": "svc-1"})
	a := newApp(t)

	out, err := run(t, a, `[{"image_id":"a"}]`,
		"sync", "--dry-run", "--delete-non-local-images", "-o", "table",
		"--sitename", site, "--cmdb-read-endpoint", server.ReadEndpoint())
	require.NoError(t, err)

	assert.Contains(t, out, "Dry run for "+site+": 1 to add, 0 to update, 1 to delete")
	assert.Equal(t, 0, server.Calls("create"))
	assert.Equal(t, 0, server.Calls("delete"))
	assert.Equal(t, 0, server.Calls("token"))
}

func TestApp_Images(t *testing.T) {
	server := cmdbtest.New(t)
	server.AddService(site, "svc-1")
	server.Put("svc-1", map[string]any{"image_id": "a", "image_name": "Ubuntu", "service": "svc-1"})
	a := newApp(t)

	out, err := run(t, a, "", "images", "--sitename", site, "--cmdb-read-endpoint", server.ReadEndpoint(), "-o", "yaml")
	require.NoError(t, err)

	assert.Contains(t, out, "id: svc-1")
	assert.Contains(t, out, "image_name: Ubuntu")
}

func TestApp_EnvironmentConfig(t *testing.T) {
	server := cmdbtest.New(t)
	server.AddService(site, "svc-1")
	isolate(t)
	t.Setenv("CMDBSYNC_SITENAME", site)
	t.Setenv("CMDBSYNC_CMDB_READ_ENDPOINT", server.ReadEndpoint())

	a, err := New("1.0.0", "abc123", "2025-01-01", "test")
	require.NoError(t, err)

	out, err := run(t, a, "", "images", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"svc-1"`)
	assert.Equal(t, 1, server.Calls("resolve"))
}

func TestApp_WithConfig(t *testing.T) {
	server := cmdbtest.New(t)
	server.AddService(site, "svc-1")
	config := &Config{
		SiteName:      site,
		ReadEndpoint:  server.ReadEndpoint(),
		WriteEndpoint: server.WriteEndpoint(),
		TokenEndpoint: server.TokenEndpoint(),
		ClientID:      cmdbtest.ClientID,
		ClientSecret:  cmdbtest.ClientSecret,
		Username:      cmdbtest.Username,
		Password:      cmdbtest.Password,
		LogOutput:     "discard",
	}
	a := newApp(t, WithConfig(config))

	reader, err := a.Reader()
	require.NoError(t, err)
	again, err := a.Reader()
	require.NoError(t, err)
	assert.Same(t, reader, again, "reader is created once")

	service, err := reader.ResolveService(context.Background(), site)
	require.NoError(t, err)
	assert.Equal(t, "svc-1", service.ID)

	writer, err := a.Writer()
	require.NoError(t, err)
	assert.NotNil(t, writer)
	assert.Equal(t, 0, server.Calls("token"), "token is acquired on first write")

	require.NoError(t, a.Shutdown(context.Background()))
}

func TestApp_InvalidOutputFormat(t *testing.T) {
	a := newApp(t)

	_, err := run(t, a, "", "version", "-o", "xml")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestApp_Version(t *testing.T) {
	a := newApp(t)

	out, err := run(t, a, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "cmdbsync version 1.0.0")
	assert.Contains(t, out, "commit: abc123")
}
