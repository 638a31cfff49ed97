package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/kmigrator/internal/core/migration/domain"
	"github.com/satishbabariya/kmigrator/internal/service"
	"github.com/satishbabariya/kmigrator/internal/ui"
	"github.com/satishbabariya/kmigrator/internal/utils/container"
)

// NewShowCommand creates the show command.
func NewShowCommand(c *container.Container) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "show [migration-file]",
		Short: "Show a migration file, or list the archive",
		Long: `Without arguments, list the migration files of the archive. With a file name,
decode its headers and print its SQL.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := c.MigrationService()
			if len(args) == 0 {
				return runShowList(cmd, svc)
			}
			file, err := svc.ShowMigration(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if raw {
				fmt.Fprint(ui.Out, migrationMarkdown(file))
				return nil
			}
			if err := ui.PrintMarkdown(migrationMarkdown(file)); err != nil {
				return err
			}
			return printViews(file)
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print markdown without rendering it")
	return cmd
}

func runShowList(cmd *cobra.Command, svc *service.MigrationService) error {
	names, err := svc.ListMigrations(cmd.Context())
	if err != nil {
		return err
	}
	if len(names) == 0 {
		ui.PrintInfo("No migrations yet")
		return nil
	}
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		created, unit, _ := strings.Cut(strings.TrimSuffix(name, domain.FileExt), "-")
		rows = append(rows, []string{created, unit})
	}
	return ui.PrintTable([]string{"Created", "Migration"}, rows)
}

func migrationMarkdown(file *service.MigrationFile) string {
	u := file.Unit
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", u.Name)
	fmt.Fprintf(&b, "- File: `%s`\n", file.Path)
	if !u.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "- Created: %s\n", u.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	reversible := "yes"
	if u.Irreversible {
		reversible = "no"
	}
	fmt.Fprintf(&b, "- Reversible: %s\n", reversible)
	if u.Irreversible && u.BackwardNote != "" {
		b.WriteString("- Backward views SQL is not applied by down; run it by hand\n")
	}
	fmt.Fprintf(&b, "- Views: %d\n\n", len(file.Views.Lists))

	b.WriteString(ui.SQLMarkdown("Forward", u.ForwardSQL))
	if u.Irreversible {
		b.WriteString(ui.SQLMarkdown("Backward (not applied, kept as a note)", u.BackwardNote))
	} else {
		b.WriteString(ui.SQLMarkdown("Backward", u.BackwardSQL))
	}
	return b.String()
}

func printViews(file *service.MigrationFile) error {
	if len(file.Views.Lists) == 0 {
		return nil
	}
	keys := make([]string, 0, len(file.Views.Lists))
	for k := range file.Views.Lists {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		l := file.Views.Lists[k]
		rows = append(rows, []string{k, strings.Join(l.Fields, ", "), strings.Join(l.SensitiveFields, ", ")})
	}
	ui.PrintSection("Views")
	return ui.PrintTable([]string{"List", "Fields", "Sensitive"}, rows)
}
