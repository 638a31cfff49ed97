// Package service implements application services (use cases).
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/satishbabariya/kmigrator/internal/adapters/database"
	"github.com/satishbabariya/kmigrator/internal/core/migration/domain"
	"github.com/satishbabariya/kmigrator/internal/core/migration/history"
	"github.com/satishbabariya/kmigrator/internal/core/migration/synth"
	schemadomain "github.com/satishbabariya/kmigrator/internal/core/schema/domain"
	"github.com/satishbabariya/kmigrator/internal/core/schema/translator"
	"github.com/satishbabariya/kmigrator/internal/core/views"
	"github.com/satishbabariya/kmigrator/internal/debug"
	"github.com/satishbabariya/kmigrator/internal/kerrors"
)

// ProgressFunc is told about each pipeline step as it starts.
type ProgressFunc func(step, total int, message string)

// MigrationService orchestrates migration synthesis.
type MigrationService struct {
	fs            afero.Fs
	migrationsDir string
	capture       domain.Capture
	oracle        domain.Oracle
	driver        *synth.Driver
	opts          translator.Options
	progress      ProgressFunc
}

// NewMigrationService creates a new migration service.
func NewMigrationService(
	fs afero.Fs,
	migrationsDir string,
	capture domain.Capture,
	oracle domain.Oracle,
	driver *synth.Driver,
	opts translator.Options,
) *MigrationService {
	return &MigrationService{
		fs:            fs,
		migrationsDir: migrationsDir,
		capture:       capture,
		oracle:        oracle,
		driver:        driver,
		opts:          opts,
		progress:      func(int, int, string) {},
	}
}

// WithProgress registers a step listener.
func (s *MigrationService) WithProgress(fn ProgressFunc) *MigrationService {
	if fn != nil {
		s.progress = fn
	}
	return s
}

// MakeMigrationsInput represents input for a synthesis run.
type MakeMigrationsInput struct {
	EntryPath string
	Mode      domain.Mode
}

const makeMigrationsSteps = 5

// MakeMigrations captures the application schema and writes a migration
// file for every change the oracle detects. In check mode nothing is
// written and kerrors.ErrPendingChanges is returned when a change exists.
func (s *MigrationService) MakeMigrations(ctx context.Context, input MakeMigrationsInput) (*synth.Report, error) {
	log := debug.With("service", "migration", "mode", input.Mode.String())

	// 1. Capture
	s.progress(1, makeMigrationsSteps, "Capturing schema from "+input.EntryPath)
	snap, err := s.capture.Capture(ctx, input.EntryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to capture schema: %w", err)
	}

	// 2. Translate
	s.progress(2, makeMigrationsSteps, "Translating schema")
	schema, err := schemadomain.ParseTableSchema(snap.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to parse captured schema: %w", err)
	}
	models, err := translator.RenderModels(schema, s.opts)
	if err != nil {
		return nil, err
	}
	current, err := parseViews(snap.Views)
	if err != nil {
		return nil, err
	}
	conn, err := database.ParseConnection(snap.Connection)
	if err != nil {
		return nil, err
	}
	log.Debug("schema translated", "tables", len(schema.Tables), "lists", len(current.Lists), "client", conn.Client)

	// 3. Prepare the oracle
	s.progress(3, makeMigrationsSteps, "Preparing diff oracle")
	if err := s.oracle.Prepare(ctx, models, conn); err != nil {
		return nil, fmt.Errorf("failed to prepare oracle: %w", err)
	}

	// 4. Reconcile history
	s.progress(4, makeMigrationsSteps, "Restoring history from "+s.migrationsDir)
	recon, err := history.NewReconciler(s.fs, s.migrationsDir, s.oracle.History()).Reconcile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to restore history: %w", err)
	}

	// 5. Synthesize
	s.progress(5, makeMigrationsSteps, "Detecting changes")
	report, err := s.driver.Run(ctx, input.Mode, recon, current)
	if err != nil {
		return nil, err
	}
	if input.Mode == domain.ModeCheck && report.Pending {
		return report, kerrors.ErrPendingChanges
	}
	return report, nil
}

func parseViews(data []byte) (views.State, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return views.EmptyState(), nil
	}
	state, err := views.ParseState(data)
	if err != nil {
		return views.State{}, fmt.Errorf("failed to parse captured views: %w", err)
	}
	return state, nil
}

// MigrationFile is a decoded migration file.
type MigrationFile struct {
	Path  string
	Unit  *domain.Unit
	Views views.State
}

// ListMigrations returns the migration files of the archive in name order.
func (s *MigrationService) ListMigrations(ctx context.Context) ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.migrationsDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != domain.FileExt {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, ctx.Err()
}

// ShowMigration decodes one migration file. A bare file name is looked up
// in the migrations directory.
func (s *MigrationService) ShowMigration(ctx context.Context, path string) (*MigrationFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !strings.ContainsRune(path, filepath.Separator) {
		if ok, _ := afero.Exists(s.fs, path); !ok {
			path = filepath.Join(s.migrationsDir, path)
		}
	}
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration: %w", err)
	}
	unit, err := history.Parse(filepath.Base(path), string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	state, err := parseViews(unit.Views)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &MigrationFile{Path: path, Unit: unit, Views: state}, nil
}
