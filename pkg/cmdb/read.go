// Package cmdb implements clients for the two catalog surfaces: the
// read-optimised query API and the document-store write API with
// revision-based optimistic concurrency.
package cmdb

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/agentstation/cmdbsync/internal/transport"
	"github.com/agentstation/cmdbsync/pkg/catalogs"
	"github.com/agentstation/cmdbsync/pkg/constants"
	"github.com/agentstation/cmdbsync/pkg/errors"
	"github.com/agentstation/cmdbsync/pkg/logging"
)

// rowsResponse is the envelope of every read API collection.
type rowsResponse struct {
	Rows []row `json:"rows"`
}

type row struct {
	ID    string          `json:"id"`
	Value json.RawMessage `json:"value,omitempty"`
	Doc   *document       `json:"doc,omitempty"`
}

// document is a stored write API document.
type document struct {
	ID   string          `json:"_id"`
	Rev  string          `json:"_rev"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ReadClient queries the catalog read API. All calls are unauthenticated
// and side-effect free.
type ReadClient struct {
	transport *transport.Client
	baseURL   string
}

// NewReadClient creates a read client for the API rooted at baseURL.
func NewReadClient(baseURL string, t *transport.Client) *ReadClient {
	if t == nil {
		t = transport.New()
	}
	return &ReadClient{
		transport: t,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

// ResolveService returns the single service registered for siteName.
// Zero or several matches yield a *errors.ServiceResolutionError.
func (c *ReadClient) ResolveService(ctx context.Context, siteName string) (catalogs.Service, error) {
	var out rowsResponse
	if err := c.get(ctx, &out, "service", "filters", "sitename", siteName); err != nil {
		return catalogs.Service{}, errors.WrapQuery("resolve service", siteName, err)
	}

	if len(out.Rows) != 1 {
		return catalogs.Service{}, errors.NewServiceResolutionError(siteName, len(out.Rows))
	}

	svc := catalogs.Service{ID: out.Rows[0].ID, SiteName: siteName}
	logging.FromContext(ctx).Info().
		Str("site", siteName).
		Str("service_id", svc.ID).
		Msg("Resolved service")
	return svc, nil
}

// ListServiceImages returns every image document linked to the service,
// with payloads. An empty slice means the service has no images.
func (c *ReadClient) ListServiceImages(ctx context.Context, serviceID string) ([]catalogs.Image, error) {
	var out rowsResponse
	err := c.getQuery(ctx, &out, url.Values{"include_docs": {"true"}}, "service", "id", serviceID, "has_many", "images")
	if err != nil {
		return nil, errors.WrapQuery("list images", serviceID, err)
	}

	images := make([]catalogs.Image, 0, len(out.Rows))
	for _, r := range out.Rows {
		if r.Doc == nil {
			logging.FromContext(ctx).Warn().Str("catalog_id", r.ID).Msg("Image row without document, skipping")
			continue
		}
		record, err := decodeRecord(r.Doc.Data)
		if err != nil {
			logging.FromContext(ctx).Warn().Err(err).Str("catalog_id", r.ID).Msg("Image document without usable payload, skipping")
			continue
		}
		images = append(images, catalogs.Image{
			Handle: catalogs.Handle{
				CatalogID: r.ID,
				Revision:  r.Doc.Rev,
				ServiceID: serviceID,
			},
			Record: record,
		})
	}
	return images, nil
}

// ScanImagesByLogicalID lists every image of the service and keeps those
// whose embedded image_id equals logicalID. The read API cannot filter on
// image_id, so each call transfers and scans the whole service collection:
// O(n) in the number of images of the service. The returned handles carry
// no revision; use FetchRevision before mutating them.
func (c *ReadClient) ScanImagesByLogicalID(ctx context.Context, serviceID, logicalID string) ([]catalogs.Handle, error) {
	var out rowsResponse
	if err := c.get(ctx, &out, "image", "filters", "service", serviceID); err != nil {
		return nil, errors.WrapQuery("scan images", serviceID, err)
	}

	var handles []catalogs.Handle
	for _, r := range out.Rows {
		var value struct {
			ImageID string `json:"image_id"`
		}
		if len(r.Value) == 0 || json.Unmarshal(r.Value, &value) != nil {
			continue
		}
		if value.ImageID == logicalID {
			handles = append(handles, catalogs.Handle{CatalogID: r.ID, ServiceID: serviceID})
		}
	}

	logging.FromContext(ctx).Debug().
		Int("scanned", len(out.Rows)).
		Int("matched", len(handles)).
		Msg("Scanned service images")
	return handles, nil
}

// FetchRevision returns the current revision of the document catalogID.
func (c *ReadClient) FetchRevision(ctx context.Context, catalogID string) (string, error) {
	var doc document
	if err := c.get(ctx, &doc, "image", "id", catalogID); err != nil {
		return "", errors.WrapQuery("fetch image", catalogID, err)
	}
	if doc.Rev == "" {
		return "", errors.WrapQuery("fetch image", catalogID, errors.NewAPIError(c.baseURL, 0, "document has no _rev"))
	}
	return doc.Rev, nil
}

func (c *ReadClient) get(ctx context.Context, target any, segments ...string) error {
	return c.getQuery(ctx, target, nil, segments...)
}

func (c *ReadClient) getQuery(ctx context.Context, target any, query url.Values, segments ...string) error {
	endpoint := c.endpoint(query, segments...)
	resp, err := c.transport.Get(ctx, endpoint)
	if err != nil {
		return err
	}
	return transport.DecodeResponse(resp, target)
}

// endpoint joins escaped path segments onto the base URL.
func (c *ReadClient) endpoint(query url.Values, segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u := c.baseURL + "/" + strings.Join(escaped, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// decodeRecord turns a stored payload back into a record.
func decodeRecord(data json.RawMessage) (catalogs.Record, error) {
	if len(data) == 0 {
		return catalogs.Record{}, errors.NewParseError("json", "", "missing data", nil)
	}
	var r catalogs.Record
	if err := json.Unmarshal(data, &r); err != nil {
		return catalogs.Record{}, err
	}
	if r.String(constants.ImageIDField) == "" {
		return catalogs.Record{}, errors.NewParseError("json", "", constants.ImageIDField+" is required", nil)
	}
	return r, nil
}
