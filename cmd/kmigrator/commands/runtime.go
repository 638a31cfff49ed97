package commands

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/kmigrator/internal/core/migration/domain"
	"github.com/satishbabariya/kmigrator/internal/ui"
	"github.com/satishbabariya/kmigrator/internal/utils/container"
)

// NewRuntimeCommands creates the commands that replay migration files.
func NewRuntimeCommands(c *container.Container) []*cobra.Command {
	return []*cobra.Command{
		newRuntimeCommand(c, "migrate", domain.RuntimeLatest, "Apply all pending migrations"),
		newRuntimeCommand(c, "up", domain.RuntimeUp, "Apply the next migration"),
		newDownCommand(c),
		newRuntimeCommand(c, "currentVersion", domain.RuntimeCurrentVersion, "Print the current migration version"),
		newRuntimeCommand(c, "list", domain.RuntimeList, "List completed and pending migrations"),
		newRuntimeCommand(c, "unlock", domain.RuntimeUnlock, "Release a stuck migration lock"),
	}
}

func newRuntimeCommand(c *container.Container, use string, rc domain.RuntimeCommand, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [entry-path]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuntime(cmd, c, rc, entryPath(c, args))
		},
	}
}

func newDownCommand(c *container.Container) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "down [entry-path]",
		Short: "Revert the last migration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				confirmed := false
				prompt := &survey.Confirm{
					Message: "Revert the last applied migration?",
					Default: false,
				}
				if err := survey.AskOne(prompt, &confirmed); err != nil {
					return fmt.Errorf("confirmation failed (use --yes to skip it): %w", err)
				}
				if !confirmed {
					ui.PrintInfo("Aborted")
					return nil
				}
			}
			return runRuntime(cmd, c, domain.RuntimeDown, entryPath(c, args))
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func runRuntime(cmd *cobra.Command, c *container.Container, rc domain.RuntimeCommand, entry string) error {
	if _, err := c.RuntimeService().Run(cmd.Context(), rc, entry); err != nil {
		return err
	}
	ui.PrintSuccess("%s finished", rc)
	return nil
}
