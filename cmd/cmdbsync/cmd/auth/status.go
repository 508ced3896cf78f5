package auth

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/cmdbsync/internal/auth"
	"github.com/agentstation/cmdbsync/internal/cmd/application"
	"github.com/agentstation/cmdbsync/internal/cmd/output"
	"github.com/agentstation/cmdbsync/internal/cmd/table"
	"github.com/agentstation/cmdbsync/pkg/errors"
)

// credentialStatus is the structured form of one checked setting.
type credentialStatus struct {
	Setting string `json:"setting" yaml:"setting"`
	State   string `json:"state" yaml:"state"`
	Detail  string `json:"detail" yaml:"detail"`
}

// NewStatusCommand creates the auth status subcommand using app context.
func NewStatusCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which OIDC settings are configured",
		Long: `Display which OIDC settings are set and usable. Secrets are never
printed. No network calls are made; use 'cmdbsync auth verify' to test
the credentials against the token endpoint.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, app)
		},
	}
}

func runStatus(cmd *cobra.Command, app application.Application) error {
	statuses := auth.Check(app.Credentials())
	format := output.DetectFormat(app.OutputFormat())
	w := cmd.OutOrStdout()

	var err error
	if format.IsTable() {
		err = output.NewFormatter(format).Format(w, table.CredentialsToTableData(statuses))
	} else {
		rows := make([]credentialStatus, len(statuses))
		for i, s := range statuses {
			rows[i] = credentialStatus{Setting: s.Setting, State: s.State.String(), Detail: s.Summary}
		}
		err = output.NewFormatter(format).Format(w, rows)
	}
	if err != nil {
		return err
	}

	problems := auth.Problems(statuses)
	if len(problems) == 0 {
		if format.IsTable() {
			_, err = fmt.Fprintln(w, "\nCredentials are configured for catalog writes.")
		}
		return err
	}

	settings := make([]string, len(problems))
	for i, p := range problems {
		settings[i] = p.Setting
	}
	return errors.NewConfigError("auth", "not usable for writes: "+strings.Join(settings, ", "), nil)
}
