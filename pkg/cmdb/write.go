package cmdb

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/agentstation/cmdbsync/internal/transport"
	"github.com/agentstation/cmdbsync/pkg/catalogs"
	"github.com/agentstation/cmdbsync/pkg/constants"
	"github.com/agentstation/cmdbsync/pkg/errors"
	"github.com/agentstation/cmdbsync/pkg/logging"
)

// createRequest is the body of a write API create.
type createRequest struct {
	Type string          `json:"type"`
	Data catalogs.Record `json:"data"`
}

// createResponse is the body returned for a successful create.
type createResponse struct {
	OK  bool   `json:"ok"`
	ID  string `json:"id"`
	Rev string `json:"rev"`
}

// WriteClient creates and deletes image documents through the write API.
// The transport must carry a token provider; the token is acquired on the
// first call and reused for the rest of the run.
type WriteClient struct {
	transport *transport.Client
	baseURL   string
}

// NewWriteClient creates a write client for the database at baseURL.
func NewWriteClient(baseURL string, t *transport.Client) *WriteClient {
	return &WriteClient{
		transport: t,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

// Create stores record as a new image document linked to serviceID and
// returns the handle assigned by the store.
func (c *WriteClient) Create(ctx context.Context, record catalogs.Record, serviceID string) (catalogs.Handle, error) {
	data, err := record.With(constants.ServiceField, serviceID)
	if err != nil {
		return catalogs.Handle{}, errors.NewWriteError("create", record.LogicalID(), "", err)
	}

	body := createRequest{Type: constants.ImageDocumentType, Data: data}
	resp, err := c.transport.PostJSON(ctx, c.baseURL, body)
	if err != nil {
		return catalogs.Handle{}, c.writeError("create", record.LogicalID(), "", err)
	}

	var out createResponse
	if err := transport.DecodeResponse(resp, &out, http.StatusCreated, http.StatusAccepted); err != nil {
		return catalogs.Handle{}, c.writeError("create", record.LogicalID(), "", err)
	}
	if out.ID == "" || out.Rev == "" {
		return catalogs.Handle{}, errors.NewWriteError("create", record.LogicalID(), "",
			errors.NewAPIError(c.baseURL, resp.StatusCode, "response without id or rev"))
	}

	handle := catalogs.Handle{CatalogID: out.ID, Revision: out.Rev, ServiceID: serviceID}
	logging.FromContext(ctx).Info().
		Str("image_name", record.Name()).
		Str("catalog_id", handle.CatalogID).
		Str("revision", handle.Revision).
		Msg("Imported image")
	return handle, nil
}

// Delete removes the document revision identified by handle. The store
// rejects stale revisions with a conflict, reported as a *errors.WriteError
// matching errors.ErrStaleRevision.
func (c *WriteClient) Delete(ctx context.Context, handle catalogs.Handle) error {
	endpoint := c.baseURL + "/" + url.PathEscape(handle.CatalogID) + "?" + url.Values{"rev": {handle.Revision}}.Encode()

	resp, err := c.transport.Delete(ctx, endpoint)
	if err != nil {
		return c.writeError("delete", "", handle.CatalogID, err)
	}
	if err := transport.DecodeResponse(resp, nil, http.StatusOK, http.StatusAccepted); err != nil {
		return c.writeError("delete", "", handle.CatalogID, err)
	}

	logging.FromContext(ctx).Info().
		Str("catalog_id", handle.CatalogID).
		Str("revision", handle.Revision).
		Msg("Deleted image revision")
	return nil
}

// writeError keeps authentication failures intact so callers can abort the
// run; everything else becomes a per-record *errors.WriteError.
func (c *WriteClient) writeError(operation, logicalID, catalogID string, err error) error {
	if errors.IsAuthentication(err) {
		return err
	}
	return errors.NewWriteError(operation, logicalID, catalogID, err)
}
