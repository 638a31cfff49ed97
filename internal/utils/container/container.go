// Package container provides dependency injection.
package container

import (
	"fmt"

	"github.com/spf13/afero"

	"github.com/satishbabariya/kmigrator/internal/adapters/capture"
	"github.com/satishbabariya/kmigrator/internal/adapters/oracle"
	"github.com/satishbabariya/kmigrator/internal/adapters/process"
	"github.com/satishbabariya/kmigrator/internal/adapters/runtime"
	"github.com/satishbabariya/kmigrator/internal/config"
	"github.com/satishbabariya/kmigrator/internal/core/migration/synth"
	"github.com/satishbabariya/kmigrator/internal/core/schema/translator"
	"github.com/satishbabariya/kmigrator/internal/core/views"
	"github.com/satishbabariya/kmigrator/internal/debug"
	"github.com/satishbabariya/kmigrator/internal/service"
	"github.com/satishbabariya/kmigrator/internal/ui"
)

// Container holds all application dependencies.
type Container struct {
	// Configuration
	config *config.Config
	fs     afero.Fs

	// Adapters
	runner  *process.Runner
	capture *capture.Keystone
	oracle  *oracle.Django
	runtime *runtime.Knex

	// Services
	migrationService *service.MigrationService
	runtimeService   *service.RuntimeService
	doctorService    *service.DoctorService
}

// NewContainer creates a new dependency injection container. Directory
// settings of cfg are made absolute.
func NewContainer(cfg *config.Config, fs afero.Fs) (*Container, error) {
	if err := cfg.Resolve(); err != nil {
		return nil, fmt.Errorf("failed to resolve directories: %w", err)
	}

	c := &Container{
		config: cfg,
		fs:     fs,
	}

	// Initialize adapters
	c.runner = process.NewRunner(fs, cfg.CacheDir)
	c.capture = capture.NewKeystone(fs, c.runner, cfg.NodeBin, cfg.CacheDir, cfg.MigrationsDir)
	c.oracle = oracle.NewDjango(fs, c.runner, cfg.PythonBin, cfg.CacheDir, cfg.AppLabel).WithOutput(debug.Writer())
	c.runtime = runtime.NewKnex(fs, c.runner, cfg.NodeBin, cfg.CacheDir, cfg.MigrationsDir).WithOutput(ui.Out)

	// Initialize migration domain components
	differ := views.NewDiffer(cfg.ViewsSchema, cfg.SourceSchema)
	driver := synth.NewDriver(fs, cfg.MigrationsDir, cfg.CacheDir, c.oracle, differ)

	// Initialize services
	c.migrationService = service.NewMigrationService(
		fs,
		cfg.MigrationsDir,
		c.capture,
		c.oracle,
		driver,
		translator.Options{DisableChoices: cfg.DisableModelChoices, SourceSchema: cfg.SourceSchema},
	)
	c.runtimeService = service.NewRuntimeService(c.runtime)
	c.doctorService = service.NewDoctorService(c.runner, c.capture, cfg.NodeBin, cfg.PythonBin)

	return c, nil
}

// Config returns the resolved configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Fs returns the filesystem every component uses.
func (c *Container) Fs() afero.Fs {
	return c.fs
}

// MigrationService returns the migration service.
func (c *Container) MigrationService() *service.MigrationService {
	return c.migrationService
}

// RuntimeService returns the runtime service.
func (c *Container) RuntimeService() *service.RuntimeService {
	return c.runtimeService
}

// DoctorService returns the doctor service.
func (c *Container) DoctorService() *service.DoctorService {
	return c.doctorService
}
