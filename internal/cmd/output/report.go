package output

import (
	"fmt"
	"io"

	"github.com/agentstation/cmdbsync/internal/cmd/table"
	"github.com/agentstation/cmdbsync/pkg/catalogs"
	"github.com/agentstation/cmdbsync/pkg/reconciler"
)

// FormatResult writes a sync result. Tables show the run metadata, every
// outcome and the summary line; structured formats emit the whole result.
func FormatResult(w io.Writer, result *reconciler.Result, format Format) error {
	formatter := NewFormatter(format)
	if !format.IsTable() {
		return formatter.Format(w, result)
	}

	if err := formatter.Format(w, table.ResultToTableData(result)); err != nil {
		return err
	}
	if len(result.Outcomes) > 0 {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		if err := formatter.Format(w, table.OutcomesToTableData(result.Outcomes, format == FormatWide)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "\n%s\n", result.Summary())
	return err
}

// ImageListing is the structured form of the images command output.
type ImageListing struct {
	Service catalogs.Service `json:"service" yaml:"service"`
	Images  []catalogs.Image `json:"images" yaml:"images"`
}

// FormatImages writes the images stored for a service.
func FormatImages(w io.Writer, service catalogs.Service, images []catalogs.Image, format Format) error {
	formatter := NewFormatter(format)
	if !format.IsTable() {
		if images == nil {
			images = []catalogs.Image{}
		}
		return formatter.Format(w, ImageListing{Service: service, Images: images})
	}

	if err := formatter.Format(w, table.ImagesToTableData(images, format == FormatWide)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d images for %s (service %s)\n", len(images), service.SiteName, service.ID)
	return err
}
