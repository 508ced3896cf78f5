package catalogs

// Handle identifies one stored revision of a record in the catalog.
// Every update creates a new catalog id, so one logical record may map to
// several handles until superseded ones are pruned.
type Handle struct {
	CatalogID string `json:"catalog_id" yaml:"catalog_id"` // Assigned by the write API on create
	Revision  string `json:"revision" yaml:"revision"`     // Required to delete this document
	ServiceID string `json:"service_id,omitempty" yaml:"service_id,omitempty"`
}

// IsZero reports whether h identifies nothing.
func (h Handle) IsZero() bool {
	return h.CatalogID == ""
}

// Image is a record as stored in the catalog, with the handle of the
// revision it was read from.
type Image struct {
	Handle Handle `json:"handle" yaml:"handle"`
	Record Record `json:"record" yaml:"record"`
}

// LogicalID returns the logical id embedded in the stored payload.
func (i Image) LogicalID() string {
	return i.Record.LogicalID()
}

// Service is the remote tenant/site scope all images belong to.
type Service struct {
	ID       string `json:"id" yaml:"id"`
	SiteName string `json:"sitename" yaml:"sitename"`
}
