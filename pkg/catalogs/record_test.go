package catalogs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/cmdbsync/pkg/errors"
)

func TestRecordUnmarshalKeepsOrder(t *testing.T) {
	input := `{"image_name":"Ubuntu","image_id":"ubuntu-22.04","version":"22.04","sizes":[1,2],"extra":{"b":1,"a":2}}`

	var r Record
	require.NoError(t, json.Unmarshal([]byte(input), &r))

	assert.Equal(t, "ubuntu-22.04", r.LogicalID())
	assert.Equal(t, "Ubuntu", r.Name())
	assert.Equal(t, []string{"image_name", "image_id", "version", "sizes", "extra"}, r.Keys())
	assert.Equal(t, 5, r.Len())

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, input, string(out))
}

func TestRecordValidation(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing image_id", `{"image_name":"x"}`},
		{"empty image_id", `{"image_id":""}`},
		{"numeric image_id", `{"image_id":42}`},
		{"not an object", `["image_id"]`},
		{"truncated", `{"image_id":"a"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Record
			err := json.Unmarshal([]byte(tt.input), &r)
			require.Error(t, err)
		})
	}

	t.Run("typed error", func(t *testing.T) {
		_, err := NewRecord([]Field{{Key: "image_name", Value: json.RawMessage(`"x"`)}})
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})
}

func TestRecordWith(t *testing.T) {
	r, err := NewRecord([]Field{
		{Key: "image_id", Value: json.RawMessage(`"a"`)},
		{Key: "service", Value: json.RawMessage(`"old"`)},
	})
	require.NoError(t, err)

	updated, err := r.With("service", "svc-1")
	require.NoError(t, err)
	appended, err := updated.With("architecture", "x86_64")
	require.NoError(t, err)

	assert.Equal(t, "old", r.String("service"), "original must not change")
	assert.Equal(t, "svc-1", updated.String("service"))
	assert.Equal(t, []string{"image_id", "service", "architecture"}, appended.Keys())
	assert.Equal(t, "a", appended.Name(), "name falls back to logical id")

	_, err = r.With("bad", func() {})
	assert.Error(t, err)
}

func TestRecordAccessors(t *testing.T) {
	r, err := NewRecord([]Field{
		{Key: "image_id", Value: json.RawMessage(`"a"`)},
		{Key: "image_id", Value: json.RawMessage(`"b"`)},
		{Key: "count", Value: json.RawMessage(`3`)},
		{Key: "nothing"},
	})
	require.NoError(t, err)

	assert.Equal(t, "b", r.LogicalID(), "repeated keys keep the last value")
	assert.Equal(t, "", r.String("count"))
	assert.Equal(t, "", r.String("absent"))

	raw, ok := r.Get("count")
	assert.True(t, ok)
	assert.JSONEq(t, `3`, string(raw))

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"image_id":"b","count":3,"nothing":null}`, string(out))

	fields := r.Fields()
	fields[0].Key = "mutated"
	assert.Equal(t, "image_id", r.Keys()[0])
}

func TestHandle(t *testing.T) {
	assert.True(t, Handle{}.IsZero())
	assert.False(t, Handle{CatalogID: "x"}.IsZero())

	img := Image{Handle: Handle{CatalogID: "x"}, Record: mustRecord(t, "a")}
	assert.Equal(t, "a", img.LogicalID())
}

func mustRecord(t *testing.T, id string) Record {
	t.Helper()
	raw, _ := json.Marshal(id)
	r, err := NewRecord([]Field{{Key: "image_id", Value: raw}})
	require.NoError(t, err)
	return r
}
