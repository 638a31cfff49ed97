// Package oracle implements the diff oracle on top of Django's migration
// autodetector, driven through manage.py in the cache directory.
package oracle

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"text/template"

	"github.com/spf13/afero"

	"github.com/satishbabariya/kmigrator/internal/adapters/database"
	"github.com/satishbabariya/kmigrator/internal/adapters/process"
	"github.com/satishbabariya/kmigrator/internal/core/migration/domain"
	"github.com/satishbabariya/kmigrator/internal/core/migration/history"
	"github.com/satishbabariya/kmigrator/internal/kerrors"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{"py": pyString}).
	ParseFS(templateFS, "templates/*.tmpl"))

// DefaultAppLabel is the application holding the rendered models.
const DefaultAppLabel = "_django_schema"

const secretKey = "kmigrator-schema-oracle-not-a-secret"

// exitChanges is the makemigrations --check status for pending changes.
const exitChanges = 1

// changesMarker is printed by makemigrations for every app with changes.
const changesMarker = "Migrations for"

// Django drives manage.py makemigrations and sqlmigrate.
type Django struct {
	fs        afero.Fs
	runner    *process.Runner
	pythonBin string
	cacheDir  string
	appLabel  string
	store     *history.FileStore
	output    io.Writer
}

var _ domain.Oracle = (*Django)(nil)

// NewDjango creates the oracle. Its files live under cacheDir.
func NewDjango(fs afero.Fs, runner *process.Runner, pythonBin, cacheDir, appLabel string) *Django {
	if appLabel == "" {
		appLabel = DefaultAppLabel
	}
	d := &Django{
		fs:        fs,
		runner:    runner,
		pythonBin: pythonBin,
		cacheDir:  cacheDir,
		appLabel:  appLabel,
	}
	d.store = history.NewFileStore(fs, filepath.Join(d.AppDir(), "migrations"), history.WithMarkers("__init__.py"))
	return d
}

// WithOutput streams makemigrations output to w.
func (d *Django) WithOutput(w io.Writer) *Django {
	d.output = w
	return d
}

// AppDir returns the directory of the models application.
func (d *Django) AppDir() string {
	return filepath.Join(d.cacheDir, d.appLabel)
}

func (d *Django) managePy() string {
	return filepath.Join(d.cacheDir, "manage.py")
}

// Prepare writes manage.py, settings and the rendered models.
func (d *Django) Prepare(ctx context.Context, models string, conn *domain.Connection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	engine, err := database.EngineFor(conn.Client)
	if err != nil {
		return err
	}
	name := conn.Database
	if engine.Oracle == "sqlite3" {
		name = conn.Filename
	}
	port := ""
	if conn.Port != 0 {
		port = strconv.Itoa(conn.Port)
	}

	settings, err := render("settings.py.tmpl", map[string]string{
		"SecretKey": secretKey,
		"AppLabel":  d.appLabel,
		"Engine":    "django.db.backends." + engine.Oracle,
		"Name":      name,
		"User":      conn.User,
		"Password":  conn.Password,
		"Host":      conn.Host,
		"Port":      port,
	})
	if err != nil {
		return err
	}
	manage, err := render("manage.py.tmpl", map[string]string{
		"SettingsModule": d.appLabel + ".settings",
	})
	if err != nil {
		return err
	}

	if err := d.fs.MkdirAll(d.AppDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", d.AppDir(), err)
	}
	files := []struct {
		path string
		data []byte
	}{
		{filepath.Join(d.AppDir(), "__init__.py"), nil},
		{filepath.Join(d.AppDir(), "settings.py"), settings},
		{filepath.Join(d.AppDir(), "models.py"), []byte(models)},
		{d.managePy(), manage},
	}
	for _, f := range files {
		if err := afero.WriteFile(d.fs, f.path, f.data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.path, err)
		}
	}
	return nil
}

// History returns the migrations package of the models application.
func (d *Django) History() domain.HistoryStore {
	return d.store
}

// Detect runs makemigrations in the given mode.
func (d *Django) Detect(ctx context.Context, mode domain.Mode) error {
	args := []string{d.managePy(), "makemigrations", d.appLabel}
	switch mode {
	case domain.ModeMerge:
		args = append(args, "--merge", "--noinput")
	case domain.ModeCheck:
		args = append(args, "--check", "--dry-run", "--noinput")
	case domain.ModeEmpty:
		args = append(args, "--empty")
	}

	_, err := d.runner.Run(ctx, process.Command{
		Tool:   "makemigrations",
		Name:   d.pythonBin,
		Args:   args,
		Env:    pythonEnv,
		Stream: d.output,
	})
	var sub *kerrors.SubprocessError
	if mode == domain.ModeCheck && errors.As(err, &sub) && sub.ExitCode == exitChanges &&
		bytes.Contains(sub.Output, []byte(changesMarker)) {
		return kerrors.ErrPendingChanges
	}
	if err != nil {
		return fmt.Errorf("can't create migration: %w", err)
	}
	return nil
}

// RenderForward runs sqlmigrate for a definition.
func (d *Django) RenderForward(ctx context.Context, name string) (string, error) {
	return d.sqlmigrate(ctx, name, false)
}

// RenderBackward runs sqlmigrate --backwards for a definition.
func (d *Django) RenderBackward(ctx context.Context, name string) (string, error) {
	return d.sqlmigrate(ctx, name, true)
}

func (d *Django) sqlmigrate(ctx context.Context, name string, backwards bool) (string, error) {
	args := []string{d.managePy(), "sqlmigrate", d.appLabel, name}
	if backwards {
		args = append(args, "--backwards")
	}
	res, err := d.runner.Run(ctx, process.Command{
		Tool: "sqlmigrate",
		Name: d.pythonBin,
		Args: args,
		Env:  pythonEnv,
	})
	if err != nil {
		return "", err
	}
	return string(res.Stdout), nil
}

var pythonEnv = []string{"PYTHONIOENCODING=utf-8", "PYTHONDONTWRITEBYTECODE=1"}

func render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// pyString renders s as a Python string literal.
func pyString(s string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", err
	}
	return string(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}
