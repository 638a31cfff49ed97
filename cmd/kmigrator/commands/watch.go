package commands

import (
	"errors"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/kmigrator/internal/core/migration/domain"
	"github.com/satishbabariya/kmigrator/internal/kerrors"
	"github.com/satishbabariya/kmigrator/internal/service"
	"github.com/satishbabariya/kmigrator/internal/ui"
	"github.com/satishbabariya/kmigrator/internal/utils/container"
	"github.com/satishbabariya/kmigrator/internal/watch"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand(c *container.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [entry-path]",
		Short: "Report pending schema changes whenever the application changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			entry := entryPath(c, args)
			cfg := c.Config()

			check := func() error {
				_, err := c.MigrationService().MakeMigrations(ctx, service.MakeMigrationsInput{
					EntryPath: entry,
					Mode:      domain.ModeCheck,
				})
				switch {
				case errors.Is(err, kerrors.ErrPendingChanges):
					ui.PrintWarning("Changes detected: run kmigrator makemigrations")
				case err != nil:
					ui.PrintError("%v", err)
				default:
					ui.PrintSuccess("No changes detected")
				}
				return nil
			}

			w, err := watch.NewWatcher(filepath.Dir(entry), check, watch.WithIgnore(cfg.CacheDir, cfg.MigrationsDir))
			if err != nil {
				return err
			}
			if err := w.Start(); err != nil {
				w.Stop()
				return err
			}
			ui.PrintInfo("Watching %s (press Ctrl+C to stop)", filepath.Dir(entry))

			<-ctx.Done()
			return w.Stop()
		},
	}
}
