package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/kmigrator/internal/config"
	"github.com/satishbabariya/kmigrator/internal/ui"
	"github.com/satishbabariya/kmigrator/internal/utils/container"
)

// NewInitCommand creates the init command.
func NewInitCommand(c *container.Container) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a .kmigrator.yaml with the default settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			existing := filepath.Join(dir, config.FileName+".yaml")
			if ok, _ := afero.Exists(c.Fs(), existing); ok && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", existing)
			}
			path, err := config.SaveConfig(config.Default(), dir)
			if err != nil {
				return err
			}
			ui.PrintSuccess("Created %s", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}
