package commands

import (
	"errors"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/kmigrator/internal/core/migration/domain"
	"github.com/satishbabariya/kmigrator/internal/core/migration/synth"
	"github.com/satishbabariya/kmigrator/internal/kerrors"
	"github.com/satishbabariya/kmigrator/internal/service"
	"github.com/satishbabariya/kmigrator/internal/ui"
	"github.com/satishbabariya/kmigrator/internal/utils/container"
)

// NewMakeMigrationsCommand creates the makemigrations command.
func NewMakeMigrationsCommand(c *container.Container) *cobra.Command {
	var merge, check, empty bool

	cmd := &cobra.Command{
		Use:   "makemigrations [entry-path]",
		Short: "Create migration files for schema changes",
		Long: `Capture the application schema, compare it with the migration archive and
write one migration file per detected change.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := domain.ModeNormal
			switch {
			case merge:
				mode = domain.ModeMerge
			case check:
				mode = domain.ModeCheck
			case empty:
				mode = domain.ModeEmpty
			}
			return runMakeMigrations(cmd, c, entryPath(c, args), mode)
		},
	}

	cmd.Flags().BoolVar(&merge, "merge", false, "Merge divergent migration branches")
	cmd.Flags().BoolVar(&check, "check", false, "Exit with an error if changes are pending; write nothing")
	cmd.Flags().BoolVar(&empty, "empty", false, "Create an empty migration")
	cmd.MarkFlagsMutuallyExclusive("merge", "check", "empty")

	return cmd
}

func runMakeMigrations(cmd *cobra.Command, c *container.Container, entry string, mode domain.Mode) error {
	svc := c.MigrationService().WithProgress(ui.PrintStep)

	report, err := svc.MakeMigrations(cmd.Context(), service.MakeMigrationsInput{
		EntryPath: entry,
		Mode:      mode,
	})
	if mode == domain.ModeCheck {
		if errors.Is(err, kerrors.ErrPendingChanges) {
			ui.PrintWarning("Changes detected")
			return err
		}
		if err == nil {
			ui.PrintSuccess("No changes detected")
		}
		return err
	}
	if err != nil {
		return err
	}

	printReport(report)
	return nil
}

func printReport(report *synth.Report) {
	if len(report.Files) == 0 {
		ui.PrintInfo("No changes detected")
		return
	}
	if report.ForcedEmpty {
		ui.PrintInfo("Views changed without model changes: created an empty migration")
	}
	names := make([]string, 0, len(report.Files))
	for _, path := range report.Files {
		names = append(names, filepath.Base(path))
	}
	ui.PrintSuccess("Created %d migration(s)", len(names))
	ui.PrintList(names)
	for _, u := range report.Units {
		if logPath, ok := report.FailureLogs[u.Name]; ok {
			ui.PrintWarning("%s has no backward migration (logfile = %s)", u.Name, logPath)
		}
	}
	if report.ViewsNoteOnly {
		ui.PrintWarning("No reversible migration could hold the backward views SQL; it is kept as a comment in %s", report.Units[0].Name)
	}
}
