package inventory

import (
	"context"
	"sort"

	"github.com/agentstation/cmdbsync/pkg/catalogs"
	"github.com/agentstation/cmdbsync/pkg/logging"
)

// Remote maps logical ids to the image currently stored for them.
type Remote map[string]catalogs.Image

// IDs returns the logical ids in sorted order.
func (r Remote) IDs() []string {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Images returns the stored images ordered by logical id.
func (r Remote) Images() []catalogs.Image {
	out := make([]catalogs.Image, 0, len(r))
	for _, id := range r.IDs() {
		out = append(out, r[id])
	}
	return out
}

// Lister lists the images linked to a service.
type Lister interface {
	ListServiceImages(ctx context.Context, serviceID string) ([]catalogs.Image, error)
}

// LoadRemote builds the remote inventory of serviceID keyed by the image_id
// embedded in each stored payload. When several stored images share an id,
// the last one listed wins and the collision is logged.
func LoadRemote(ctx context.Context, lister Lister, serviceID string) (Remote, error) {
	images, err := lister.ListServiceImages(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	logger := logging.FromContext(ctx)
	remote := make(Remote, len(images))
	for _, img := range images {
		id := img.LogicalID()
		if prev, dup := remote[id]; dup {
			logger.Warn().
				Str("image_id", id).
				Str("catalog_id", img.Handle.CatalogID).
				Str("previous_catalog_id", prev.Handle.CatalogID).
				Msg("Several catalog images share one image_id, keeping the last")
		}
		remote[id] = img
	}

	logger.Debug().
		Str("service_id", serviceID).
		Int("images", len(remote)).
		Msg("Loaded remote inventory")
	return remote, nil
}
