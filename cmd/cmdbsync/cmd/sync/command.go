// Package sync implements the sync command, which makes the catalog mirror
// the local image inventory.
package sync

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/cmdbsync/internal/cmd/application"
)

// NewCommand creates the sync command using app context.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "sync",
		GroupID: "core",
		Short:   "Synchronize the site's catalog images with the local inventory",
		Args:    cobra.NoArgs,
		Long: `Sync reads the local image inventory, a JSON array of image descriptions
each carrying an image_id, and makes the catalog of the configured site
mirror it:

• Images missing from the catalog are created
• Images present on both sides are re-submitted as a new revision and the
  revisions they supersede are pruned
• Catalog images missing locally are deleted only with --delete-non-local-images

The inventory is read from standard input unless --input is given. Files
ending in .yaml or .yml are read as YAML.`,
		Example: `  cloud-info-provider | cmdbsync sync --sitename CYFRONET-CLOUD
  cmdbsync sync --sitename CYFRONET-CLOUD --input images.json
  cmdbsync sync --sitename CYFRONET-CLOUD --input images.yaml --dry-run
  cmdbsync sync --sitename CYFRONET-CLOUD --delete-non-local-images -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Execute(cmd.Context(), app, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
