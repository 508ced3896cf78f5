package inventory

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/cmdbsync/pkg/catalogs"
	"github.com/agentstation/cmdbsync/pkg/errors"
	"github.com/agentstation/cmdbsync/pkg/logging"
)

func TestLoadLocal(t *testing.T) {
	input := `[
		{"image_id":"A","image_name":"Alpha","os":{"distribution":"ubuntu"}},
		{"image_name":"Beta","image_id":"B"},
		{"image_id":"A","image_name":"Alpha v2"}
	]`

	local, err := LoadLocal(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, local.IDs())
	assert.Equal(t, "Alpha v2", local["A"].Name(), "later duplicate wins")
	assert.Equal(t, []string{"image_name", "image_id"}, local["B"].Keys())
}

func TestLoadLocalEmptyArray(t *testing.T) {
	local, err := LoadLocal(strings.NewReader(`[]`))
	require.NoError(t, err)
	assert.Empty(t, local)
}

func TestLoadLocalMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
		index int
	}{
		{"empty", "", -1},
		{"object", `{"image_id":"A"}`, -1},
		{"garbage", `not json`, -1},
		{"null", `null`, -1},
		{"null with whitespace", " null\n", -1},
		{"string", `"images"`, -1},
		{"element not object", `[{"image_id":"A"}, 3]`, 1},
		{"missing image_id", `[{"image_name":"x"}]`, 0},
		{"empty image_id", `[{"image_id":""}]`, 0},
		{"non-string image_id", `[{"image_id":7}]`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadLocal(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrInvalidInput)
			assert.True(t, errors.IsFatal(err))

			var parseErr *errors.ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, tt.index, parseErr.Index)
		})
	}
}

func TestLoadLocalFile(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "images.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[{"image_id":"A"}]`), 0o600))

	yamlPath := filepath.Join(dir, "images.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
- image_name: Alpha
  image_id: A
  version: "22.04"
- image_id: B
  tags: [base, lts]
`), 0o600))

	local, err := LoadLocalFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, local.IDs())

	local, err = LoadLocalFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, local.IDs())
	assert.Equal(t, []string{"image_name", "image_id", "version"}, local["A"].Keys())
	assert.Equal(t, "22.04", local["A"].String("version"))

	out, err := json.Marshal(local["B"])
	require.NoError(t, err)
	assert.JSONEq(t, `{"image_id":"B","tags":["base","lts"]}`, string(out))

	_, err = LoadLocalFile(filepath.Join(dir, "missing.json"))
	var ioErr *errors.IOError
	assert.ErrorAs(t, err, &ioErr)

	badYAML := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(badYAML, []byte("- image_name: x\n"), 0o600))
	_, err = LoadLocalFile(badYAML)
	var parseErr *errors.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "yaml", parseErr.Format)
	assert.Equal(t, badYAML, parseErr.File)

	// A null document must not read as an empty inventory, or a destructive
	// sync would delete the whole catalog.
	for name, content := range map[string]string{
		"null.yaml": "~\n",
		"blank.yml": "null\n",
		"null.json": "null",
	} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		local, err := LoadLocalFile(path)
		assert.Nil(t, local, name)
		assert.ErrorIs(t, err, errors.ErrInvalidInput, name)
		assert.True(t, errors.IsFatal(err), name)
	}
}

type listerFunc func(ctx context.Context, serviceID string) ([]catalogs.Image, error)

func (f listerFunc) ListServiceImages(ctx context.Context, serviceID string) ([]catalogs.Image, error) {
	return f(ctx, serviceID)
}

func image(t *testing.T, catalogID, logicalID string) catalogs.Image {
	t.Helper()
	raw, err := json.Marshal(map[string]string{"image_id": logicalID})
	require.NoError(t, err)
	var record catalogs.Record
	require.NoError(t, json.Unmarshal(raw, &record))
	return catalogs.Image{Handle: catalogs.Handle{CatalogID: catalogID, Revision: "1-" + catalogID}, Record: record}
}

func TestLoadRemote(t *testing.T) {
	tl := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), tl.Logger)

	lister := listerFunc(func(_ context.Context, serviceID string) ([]catalogs.Image, error) {
		assert.Equal(t, "svc-1", serviceID)
		return []catalogs.Image{
			image(t, "c1", "A"),
			image(t, "c2", "B"),
			image(t, "c3", "A"),
		}, nil
	})

	remote, err := LoadRemote(ctx, lister, "svc-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, remote.IDs())
	assert.Equal(t, "c3", remote["A"].Handle.CatalogID, "last listed wins")
	assert.Equal(t, "1-c3", remote["A"].Handle.Revision)
	assert.Len(t, remote.Images(), 2)
	tl.AssertContains(t, "share one image_id")
}

func TestLoadRemoteEmptyAndFailure(t *testing.T) {
	empty := listerFunc(func(context.Context, string) ([]catalogs.Image, error) { return nil, nil })
	remote, err := LoadRemote(context.Background(), empty, "svc-1")
	require.NoError(t, err)
	assert.Empty(t, remote)

	queryErr := errors.NewQueryError("list images", "svc-1", errors.NewAPIError("read", 500, "boom"))
	failing := listerFunc(func(context.Context, string) ([]catalogs.Image, error) { return nil, queryErr })
	_, err = LoadRemote(context.Background(), failing, "svc-1")
	assert.ErrorIs(t, err, errors.ErrCatalogUnavailable)
}
