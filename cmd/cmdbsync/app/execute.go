package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/cmdbsync/internal/cmd/globals"
	"github.com/agentstation/cmdbsync/internal/cmd/output"
	"github.com/agentstation/cmdbsync/pkg/constants"
	"github.com/agentstation/cmdbsync/pkg/errors"
)

// Execute runs the cmdbsync CLI application with the given arguments.
// This is the main entry point called from main.go.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd, err := a.createRootCommand()
	if err != nil {
		return err
	}

	rootCmd.SetArgs(args)

	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() (*cobra.Command, error) {
	rootCmd := &cobra.Command{
		Use:     "cmdbsync",
		Short:   "Image catalog synchronizer",
		Version: a.version,
		Long: `Cmdbsync keeps the image catalog of a cloud site in a configuration
management database in step with the site's local image inventory.

The catalog is read through its public read API and modified through its
document-store write API, authenticated with an OpenID Connect password
grant. Every setting can also be given as a CMDBSYNC_* environment
variable, in a .env file or in $HOME/.cmdbsync.yaml.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "Core Commands:",
	})

	rootCmd.AddGroup(&cobra.Group{
		ID:    "management",
		Title: "Management Commands:",
	})

	flags := rootCmd.PersistentFlags()
	flags.String(keyConfig, "", "config file (default is $HOME/"+constants.ConfigFileName+".yaml)")

	// Catalog
	flags.String(keyReadEndpoint, constants.DefaultReadEndpoint, "base URL of the catalog read API")
	flags.String(keyWriteEndpoint, constants.DefaultWriteEndpoint, "base URL of the catalog write API")
	flags.Bool(keyAllowInsecure, false, "skip TLS certificate verification")

	// OIDC
	flags.String(keyClientID, "", "OIDC client id")
	flags.String(keyClientSecret, "", "OIDC client secret")
	flags.String(keyTokenEndpoint, "", "OIDC token endpoint URL")
	flags.String(keyUsername, "", "OIDC username")
	flags.String(keyPassword, "", "OIDC password")

	// Run
	flags.String(keySiteName, "", "site whose service owns the images")
	flags.Bool(keyDeleteNonLocal, false, "delete catalog images missing from the local inventory")
	flags.Bool(keyDryRun, false, "report the planned changes without writing")
	flags.StringP(keyInput, "i", "", "local inventory file, JSON or YAML (default stdin)")
	flags.String(keyMetricsFile, "", "write Prometheus metrics to this textfile after a sync")
	flags.Duration(keyTimeout, constants.SyncTimeout, "upper bound for a whole run, 0 disables it")

	globals.AddFlags(rootCmd)

	if err := BindFlags(a.viper, flags); err != nil {
		return nil, err
	}

	rootCmd.SetVersionTemplate("cmdbsync {{.Version}}\n")

	a.registerCommands(rootCmd)

	return rootCmd, nil
}

// setupCommand is called before any command runs. Flags are parsed by now,
// so the configuration and the logger are rebuilt with them applied.
func (a *App) setupCommand(_ *cobra.Command, _ []string) error {
	if !a.fixedConfig {
		config, err := LoadConfig(a.viper)
		if err != nil {
			return err
		}
		a.config = config
	}

	if _, err := output.ParseFormat(a.config.Format); err != nil {
		return errors.NewConfigError("output", err.Error(), err)
	}

	logger := NewLogger(a.config)
	a.logger = &logger

	if a.config.ConfigFile != "" {
		a.logger.Debug().Str("path", a.config.ConfigFile).Msg("Using config file")
	}
	return nil
}

// ExitOnError is a helper that prints an error and exits with status 1.
// This is meant to be used in main.go for top-level error handling.
func ExitOnError(err error) {
	if err != nil {
		//nolint:errcheck // Ignoring write error since we're exiting anyway
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}
