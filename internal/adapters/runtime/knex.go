// Package runtime replays migration files through Knex inside the
// application's own process.
package runtime

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/satishbabariya/kmigrator/internal/adapters/process"
	"github.com/satishbabariya/kmigrator/internal/core/migration/domain"
	"github.com/satishbabariya/kmigrator/internal/kerrors"
)

//go:embed scripts/knex.run.js
var runScript []byte

// ScriptFile is the runner script name inside the cache directory.
const ScriptFile = "knex.run.js"

const exitNoKnexAdapter = 4

// Knex runs knex.migrate commands.
type Knex struct {
	fs            afero.Fs
	runner        *process.Runner
	nodeBin       string
	cacheDir      string
	migrationsDir string
	output        io.Writer
}

var _ domain.Runtime = (*Knex)(nil)

// NewKnex creates the execution runtime.
func NewKnex(fs afero.Fs, runner *process.Runner, nodeBin, cacheDir, migrationsDir string) *Knex {
	return &Knex{
		fs:            fs,
		runner:        runner,
		nodeBin:       nodeBin,
		cacheDir:      cacheDir,
		migrationsDir: migrationsDir,
	}
}

// WithOutput streams command output to w.
func (k *Knex) WithOutput(w io.Writer) *Knex {
	k.output = w
	return k
}

// Run executes one knex.migrate command.
func (k *Knex) Run(ctx context.Context, cmd domain.RuntimeCommand, entryPath string) ([]byte, error) {
	script := filepath.Join(k.cacheDir, ScriptFile)
	if err := k.fs.MkdirAll(k.cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := afero.WriteFile(k.fs, script, runScript, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", script, err)
	}

	res, err := k.runner.Run(ctx, process.Command{
		Tool: "knex.run." + string(cmd),
		Name: k.nodeBin,
		Args: []string{script},
		Env: []string{
			"KMIGRATOR_ENTRY_PATH=" + entryPath,
			"KMIGRATOR_MIGRATIONS_DIR=" + k.migrationsDir,
			"KMIGRATOR_KNEX_COMMAND=" + string(cmd),
		},
		Stream: k.output,
	})
	if err != nil {
		var sub *kerrors.SubprocessError
		if errors.As(err, &sub) && sub.ExitCode == exitNoKnexAdapter {
			return sub.Output, kerrors.NewConfigurationError("no knex adapter, check DATABASE_URL or the keystone database adapter", err)
		}
		return nil, fmt.Errorf("can't run knex command knex.migrate.%s: %w", cmd, err)
	}
	return res.Output, nil
}
