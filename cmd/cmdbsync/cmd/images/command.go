// Package images implements the images command, which lists the images the
// catalog stores for the configured site.
package images

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/cmdbsync/internal/cmd/application"
	"github.com/agentstation/cmdbsync/internal/cmd/output"
	pkgsync "github.com/agentstation/cmdbsync/pkg/sync"
)

// NewCommand creates the images command using app context.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "images",
		GroupID: "core",
		Short:   "List the catalog images of the site",
		Args:    cobra.NoArgs,
		Long: `Images resolves the service of the configured site and lists the images
stored for it, keyed by image_id. It only uses the read API and needs no
credentials.`,
		Example: `  cmdbsync images --sitename CYFRONET-CLOUD
  cmdbsync images --sitename CYFRONET-CLOUD -o yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reader, err := app.Reader()
			if err != nil {
				return err
			}

			settings := app.Settings()
			service, remote, err := pkgsync.Inspect(cmd.Context(), reader, settings.SiteName)
			if err != nil {
				return err
			}

			format := output.DetectFormat(app.OutputFormat())
			return output.FormatImages(cmd.OutOrStdout(), service, remote.Images(), format)
		},
	}
}
