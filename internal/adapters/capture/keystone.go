// Package capture extracts the declared schema of a Keystone application by
// running recording scripts under node.
package capture

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/satishbabariya/kmigrator/internal/adapters/process"
	"github.com/satishbabariya/kmigrator/internal/core/migration/domain"
	"github.com/satishbabariya/kmigrator/internal/debug"
	"github.com/satishbabariya/kmigrator/internal/kerrors"
)

//go:embed scripts/schema.js
var schemaScript []byte

//go:embed scripts/views.js
var viewsScript []byte

// Exit codes of the schema script that point at the application setup.
const (
	exitNoConnection  = 3
	exitNoKnexAdapter = 4
)

// File names inside the cache directory.
const (
	SchemaScriptFile = "get.knex.schema.js"
	ViewsScriptFile  = "get.keystone.views.js"
	SchemaFile       = "knex.schema.json"
	ViewsFile        = "knex.views.json"
	ConnectionFile   = "knex.connection.json"
)

// Keystone captures schema, views and connection from a Keystone entry file.
type Keystone struct {
	fs            afero.Fs
	runner        *process.Runner
	nodeBin       string
	cacheDir      string
	migrationsDir string
}

var _ domain.Capture = (*Keystone)(nil)

// NewKeystone creates a capture adapter. cacheDir and migrationsDir should
// be absolute: node resolves them from its own working directory.
func NewKeystone(fs afero.Fs, runner *process.Runner, nodeBin, cacheDir, migrationsDir string) *Keystone {
	return &Keystone{
		fs:            fs,
		runner:        runner,
		nodeBin:       nodeBin,
		cacheDir:      cacheDir,
		migrationsDir: migrationsDir,
	}
}

func (k *Keystone) path(name string) string {
	return filepath.Join(k.cacheDir, name)
}

// Capture runs both capture scripts and returns their output.
func (k *Keystone) Capture(ctx context.Context, entryPath string) (*domain.Snapshot, error) {
	if err := k.install(); err != nil {
		return nil, err
	}
	env := []string{
		"KMIGRATOR_ENTRY_PATH=" + entryPath,
		"KMIGRATOR_SCHEMA_PATH=" + k.path(SchemaFile),
		"KMIGRATOR_VIEWS_PATH=" + k.path(ViewsFile),
		"KMIGRATOR_CONNECTION_PATH=" + k.path(ConnectionFile),
		"KMIGRATOR_MIGRATIONS_DIR=" + k.migrationsDir,
	}

	debug.Debug("capturing schema", "entry", entryPath)
	if _, err := k.runner.Run(ctx, process.Command{
		Tool: "get.knex.schema",
		Name: k.nodeBin,
		Args: []string{k.path(SchemaScriptFile)},
		Env:  env,
	}); err != nil {
		return nil, classify(err, "can't get knex schema")
	}

	debug.Debug("capturing views", "entry", entryPath)
	if _, err := k.runner.Run(ctx, process.Command{
		Tool: "get.keystone.views",
		Name: k.nodeBin,
		Args: []string{k.path(ViewsScriptFile)},
		Env:  env,
	}); err != nil {
		return nil, classify(err, "can't get keystone views")
	}

	snap := &domain.Snapshot{}
	for _, f := range []struct {
		name string
		dst  *[]byte
	}{
		{SchemaFile, &snap.Schema},
		{ViewsFile, &snap.Views},
		{ConnectionFile, &snap.Connection},
	} {
		data, err := afero.ReadFile(k.fs, k.path(f.name))
		if err != nil {
			return nil, fmt.Errorf("failed to read captured %s: %w", f.name, err)
		}
		*f.dst = data
	}
	return snap, nil
}

// install writes the scripts and removes outputs of a previous run.
func (k *Keystone) install() error {
	if err := k.fs.MkdirAll(k.cacheDir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	for name, data := range map[string][]byte{SchemaScriptFile: schemaScript, ViewsScriptFile: viewsScript} {
		if err := afero.WriteFile(k.fs, k.path(name), data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	for _, name := range []string{SchemaFile, ViewsFile, ConnectionFile} {
		if err := k.fs.Remove(k.path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove stale %s: %w", name, err)
		}
	}
	return nil
}

func classify(err error, what string) error {
	var sub *kerrors.SubprocessError
	if errors.As(err, &sub) {
		switch sub.ExitCode {
		case exitNoConnection:
			return kerrors.NewConfigurationError("no knex connection settings, check DATABASE_URL (logfile = "+sub.LogPath+")", err)
		case exitNoKnexAdapter:
			return kerrors.NewConfigurationError("no knex adapter, check DATABASE_URL or the keystone database adapter (logfile = "+sub.LogPath+")", err)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}
