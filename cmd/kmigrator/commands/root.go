// Package commands implements CLI commands.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/satishbabariya/kmigrator/internal/debug"
	"github.com/satishbabariya/kmigrator/internal/utils/container"
	"github.com/satishbabariya/kmigrator/internal/version"
)

// NewRootCommand creates the kmigrator command tree.
func NewRootCommand(c *container.Container) *cobra.Command {
	var debugFlag bool

	cmd := &cobra.Command{
		Use:   "kmigrator",
		Short: "Versioned SQL migrations for Keystone applications",
		Long: `kmigrator captures the schema declared by a Keystone application and writes
reversible SQL migration files for Knex, using Django as the diff engine.`,
		Version:       version.Get().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debugFlag {
				c.Config().Debug = true
				debug.Init(true)
			}
		},
	}

	cmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Print debug logs and subprocess output")

	cmd.AddCommand(NewMakeMigrationsCommand(c))
	for _, rc := range NewRuntimeCommands(c) {
		cmd.AddCommand(rc)
	}
	cmd.AddCommand(NewShowCommand(c))
	cmd.AddCommand(NewDoctorCommand(c))
	cmd.AddCommand(NewWatchCommand(c))
	cmd.AddCommand(NewInitCommand(c))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// entryPath returns the positional entry path or the configured one.
func entryPath(c *container.Container, args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return c.Config().EntryPath
}
