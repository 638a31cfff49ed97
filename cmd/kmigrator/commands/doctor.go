package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/kmigrator/internal/ui"
	"github.com/satishbabariya/kmigrator/internal/utils/container"
)

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand(c *container.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor [entry-path]",
		Short: "Check node, python, Django and the database connection",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ui.PrintHeader("kmigrator", "Environment check")
			stop := ui.Spinner("Running checks")
			checks, err := c.DoctorService().Diagnose(cmd.Context(), entryPath(c, args))
			stop(err)
			if err != nil {
				return err
			}
			cfgFile := c.Config().File
			if cfgFile == "" {
				cfgFile = "defaults"
			}
			ui.Check(true, "config", cfgFile)

			failed := 0
			for _, check := range checks {
				ui.Check(check.OK, check.Name, check.Detail)
				if !check.OK {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d checks failed", failed, len(checks))
			}
			ui.PrintSuccess("Ready")
			return nil
		},
	}
}
