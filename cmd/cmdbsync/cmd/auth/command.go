// Package auth implements the auth commands, which check the OIDC settings
// used by the catalog write API.
package auth

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/cmdbsync/internal/cmd/application"
)

// NewCommand creates the auth command using app context.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "auth",
		GroupID: "management",
		Short:   "Check the credentials used for catalog writes",
		Long: `Check the OpenID Connect settings used to authenticate against the
catalog write API. The read API is public and needs no credentials.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(NewStatusCommand(app))
	cmd.AddCommand(NewVerifyCommand(app))

	return cmd
}
