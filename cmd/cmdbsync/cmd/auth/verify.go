package auth

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/cmdbsync/internal/cmd/application"
	"github.com/agentstation/cmdbsync/internal/cmd/emoji"
)

// NewVerifyCommand creates the auth verify subcommand using app context.
func NewVerifyCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Acquire a token to test the OIDC credentials",
		Long: `Perform the OIDC password grant the write client would perform and
report whether a token was issued. The token itself is never printed and
no catalog call is made.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tokens, err := app.TokenProvider()
			if err != nil {
				return err
			}

			endpoint := app.Credentials().TokenEndpoint
			if _, err := tokens.Token(cmd.Context()); err != nil {
				app.Logger().Debug().Err(err).Str("token_endpoint", endpoint).Msg("Token exchange failed")
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s Token issued by %s\n", emoji.Success, endpoint)
			return err
		},
	}
}
