package app

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/cmdbsync/cmd/cmdbsync/cmd/auth"
	"github.com/agentstation/cmdbsync/cmd/cmdbsync/cmd/images"
	"github.com/agentstation/cmdbsync/cmd/cmdbsync/cmd/sync"
	"github.com/agentstation/cmdbsync/cmd/cmdbsync/cmd/version"
)

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(sync.NewCommand(a))
	rootCmd.AddCommand(images.NewCommand(a))

	// Management commands
	rootCmd.AddCommand(auth.NewCommand(a))

	// Utility commands
	rootCmd.AddCommand(version.NewCommand(a))
}
