// Package inventory loads the two record sets the reconciler compares: the
// local inventory supplied by the caller and the remote inventory currently
// stored in the catalog for one service.
package inventory

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/cmdbsync/pkg/catalogs"
	"github.com/agentstation/cmdbsync/pkg/errors"
	"github.com/agentstation/cmdbsync/pkg/logging"
)

// Local maps logical ids to the records supplied by the caller.
type Local map[string]catalogs.Record

// IDs returns the logical ids in sorted order.
func (l Local) IDs() []string {
	ids := make([]string, 0, len(l))
	for id := range l {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LoadLocal parses a JSON array of image objects. Every element must be an
// object carrying a non-empty string image_id; anything else is reported as
// a *errors.ParseError. When an id repeats, the later element wins.
func LoadLocal(r io.Reader) (Local, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WrapIO("read", "local inventory", err)
	}
	return decodeLocal(data, "json", "")
}

// LoadLocalFile reads the local inventory from path. Files ending in .yaml
// or .yml are decoded as YAML; anything else as JSON.
func LoadLocalFile(path string) (Local, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user supplied inventory path
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		converted, err := yaml.YAMLToJSON(data)
		if err != nil {
			return nil, errors.WrapParse("yaml", path, err)
		}
		return decodeLocal(converted, "yaml", path)
	default:
		return decodeLocal(data, "json", path)
	}
}

func decodeLocal(data []byte, format, file string) (Local, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.NewParseError(format, file, "empty input, expected an array of images", nil)
	}
	// null decodes into a nil slice without error; it must not read as an
	// empty inventory.
	if trimmed[0] != '[' {
		return nil, errors.NewParseError(format, file, "expected an array of images", nil)
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, errors.NewParseError(format, file, "expected an array of images: "+err.Error(), err)
	}

	local := make(Local, len(elements))
	for i, raw := range elements {
		fields, err := catalogs.DecodeObject(raw)
		if err != nil {
			return nil, elementError(format, file, i, err)
		}
		record, err := catalogs.NewRecord(fields)
		if err != nil {
			return nil, elementError(format, file, i, err)
		}

		if _, dup := local[record.LogicalID()]; dup {
			logging.Debug().
				Str("image_id", record.LogicalID()).
				Int("index", i).
				Msg("Duplicate image_id in local inventory, keeping the later entry")
		}
		local[record.LogicalID()] = record
	}
	return local, nil
}

func elementError(format, file string, index int, err error) error {
	parseErr := errors.NewParseError(format, file, err.Error(), err)
	var inner *errors.ParseError
	if errors.As(err, &inner) {
		parseErr.Message = inner.Message
	}
	parseErr.Index = index
	return parseErr
}
