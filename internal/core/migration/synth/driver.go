// Package synth drives the oracle to produce new migration units, merges the
// views diff into them and writes the migration files.
package synth

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/satishbabariya/kmigrator/internal/core/migration/domain"
	"github.com/satishbabariya/kmigrator/internal/core/migration/history"
	"github.com/satishbabariya/kmigrator/internal/core/migration/hotfix"
	"github.com/satishbabariya/kmigrator/internal/core/views"
	"github.com/satishbabariya/kmigrator/internal/debug"
	"github.com/satishbabariya/kmigrator/internal/kerrors"
)

// Driver runs one synthesis pass.
type Driver struct {
	fs         afero.Fs
	archiveDir string
	logDir     string
	oracle     domain.Oracle
	differ     *views.Differ
	now        func() time.Time
}

// Report describes what a run produced.
type Report struct {
	// Pending is set in check mode when model or views changes exist.
	Pending bool
	// ForcedEmpty is set when an empty unit was created to host a views change.
	ForcedEmpty bool
	Units       []*domain.Unit
	Files       []string
	// FailureLogs maps irreversible unit names to their failure log.
	FailureLogs map[string]string
	// ViewsNoteOnly is set when no unit could host the backward views SQL.
	ViewsNoteOnly bool
}

// NewDriver creates a driver writing migrations to archiveDir and failure
// logs to logDir.
func NewDriver(fs afero.Fs, archiveDir, logDir string, oracle domain.Oracle, differ *views.Differ) *Driver {
	return &Driver{
		fs:         fs,
		archiveDir: archiveDir,
		logDir:     logDir,
		oracle:     oracle,
		differ:     differ,
		now:        time.Now,
	}
}

// WithClock replaces the clock used for file names.
func (d *Driver) WithClock(now func() time.Time) *Driver {
	d.now = now
	return d
}

// Run detects new definitions against the reconciled history and writes one
// migration file per definition.
func (d *Driver) Run(ctx context.Context, mode domain.Mode, recon *history.Result, current views.State) (*Report, error) {
	log := debug.With("stage", "synth", "mode", mode.String())
	report := &Report{FailureLogs: map[string]string{}}

	fwdViews := d.differ.Forward(recon.Baseline, current)
	bwdViews := d.differ.Backward(recon.Baseline, current)
	viewsChanged := fwdViews != "" || bwdViews != ""
	log.Debug("views diff", "changed", viewsChanged)

	if mode == domain.ModeCheck {
		err := d.oracle.Detect(ctx, domain.ModeCheck)
		switch {
		case errors.Is(err, kerrors.ErrPendingChanges):
			report.Pending = true
		case err != nil:
			return nil, err
		}
		report.Pending = report.Pending || viewsChanged
		return report, nil
	}

	if err := d.oracle.Detect(ctx, mode); err != nil {
		return nil, err
	}
	names, err := d.newDefinitions(ctx, recon)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 && viewsChanged {
		log.Debug("views changed without model changes, forcing an empty definition")
		if err := d.oracle.Detect(ctx, domain.ModeEmpty); err != nil {
			return nil, err
		}
		if names, err = d.newDefinitions(ctx, recon); err != nil {
			return nil, err
		}
		report.ForcedEmpty = true
	}
	if len(names) == 0 {
		return report, nil
	}

	viewsPayload, err := current.Encode()
	if err != nil {
		return nil, err
	}
	createdAt := d.now()
	for _, name := range names {
		u, err := d.render(ctx, name)
		if err != nil {
			return nil, err
		}
		u.CreatedAt = createdAt
		u.Views = viewsPayload
		if u.Irreversible {
			path, err := d.writeFailureLog(u.Name, u.BackwardSQL)
			if err != nil {
				return nil, err
			}
			u.BackwardSQL = ""
			report.FailureLogs[u.Name] = path
			log.Warn("no backward migration", "name", u.Name, "logfile", path)
		}
		report.Units = append(report.Units, u)
	}

	report.ViewsNoteOnly = attachViews(report.Units, fwdViews, bwdViews)

	if err := d.fs.MkdirAll(d.archiveDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}
	for _, u := range report.Units {
		text, err := history.Render(u)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(d.archiveDir, u.FileName())
		if err := afero.WriteFile(d.fs, path, []byte(text), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		report.Files = append(report.Files, path)
		log.Debug("migration written", "file", path)
	}
	return report, nil
}

// newDefinitions lists stored names the archive does not already hold.
func (d *Driver) newDefinitions(ctx context.Context, recon *history.Result) ([]string, error) {
	stored, err := d.oracle.History().List(ctx)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, name := range stored {
		if !recon.Recovered[name] {
			names = append(names, name)
		}
	}
	return names, nil
}

// render hotfixes one definition and renders both directions. For an
// irreversible unit BackwardSQL temporarily holds the failure detail.
func (d *Driver) render(ctx context.Context, name string) (*domain.Unit, error) {
	store := d.oracle.History()
	def, err := store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if fixed := hotfix.Apply(string(def)); fixed != string(def) {
		debug.Debug("definition reordered", "name", name)
		def = []byte(fixed)
		if err := store.Put(ctx, name, def); err != nil {
			return nil, err
		}
	}

	u := &domain.Unit{Name: name, Definition: def}
	if u.ForwardSQL, err = d.oracle.RenderForward(ctx, name); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", name, err)
	}
	backward, err := d.oracle.RenderBackward(ctx, name)
	if err != nil {
		u.Irreversible = true
		u.BackwardSQL = failureDetail(err)
		return u, nil
	}
	u.BackwardSQL = backward
	return u, nil
}

func failureDetail(err error) string {
	var sub *kerrors.SubprocessError
	if errors.As(err, &sub) && len(sub.Output) > 0 {
		return string(sub.Output)
	}
	return err.Error()
}

func (d *Driver) writeFailureLog(name, detail string) (string, error) {
	if err := d.fs.MkdirAll(d.logDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}
	path := filepath.Join(d.logDir, fmt.Sprintf("makemigrations.%d.%s.log", d.now().UnixNano(), name))
	if err := afero.WriteFile(d.fs, path, []byte(detail), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
