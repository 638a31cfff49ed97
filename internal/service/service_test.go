package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/kmigrator/internal/adapters/process"
	"github.com/satishbabariya/kmigrator/internal/core/migration/domain"
	"github.com/satishbabariya/kmigrator/internal/core/migration/history"
	"github.com/satishbabariya/kmigrator/internal/core/migration/synth"
	"github.com/satishbabariya/kmigrator/internal/core/schema/translator"
	"github.com/satishbabariya/kmigrator/internal/core/views"
	"github.com/satishbabariya/kmigrator/internal/kerrors"
)

const (
	migrationsDir = "/app/migrations"
	cacheDir      = "/app/.kmigrator"
)

const capturedSchema = `{
	"User": {
		"id": [["increments"], ["notNullable"]],
		"name": [["text"]]
	}
}`

const capturedConnection = `{"client": "pg", "connection": {"database": "app", "host": "localhost", "port": 5432}}`

type fakeCapture struct {
	snap  *domain.Snapshot
	err   error
	calls int
}

func (c *fakeCapture) Capture(context.Context, string) (*domain.Snapshot, error) {
	c.calls++
	return c.snap, c.err
}

func newSnapshot(viewsJSON string) *domain.Snapshot {
	return &domain.Snapshot{
		Schema:     []byte(capturedSchema),
		Views:      []byte(viewsJSON),
		Connection: []byte(capturedConnection),
	}
}

// stubOracle emits one definition per name in pending.
type stubOracle struct {
	store   *history.FileStore
	pending []string
	models  string
	conn    *domain.Connection
}

func (o *stubOracle) Prepare(_ context.Context, models string, conn *domain.Connection) error {
	o.models = models
	o.conn = conn
	return nil
}

func (o *stubOracle) History() domain.HistoryStore { return o.store }

func (o *stubOracle) Detect(ctx context.Context, mode domain.Mode) error {
	if mode == domain.ModeCheck {
		if len(o.pending) > 0 {
			return kerrors.ErrPendingChanges
		}
		return nil
	}
	for _, name := range o.pending {
		if err := o.store.Put(ctx, name, []byte("operations = []\n")); err != nil {
			return err
		}
	}
	return nil
}

func (o *stubOracle) RenderForward(_ context.Context, name string) (string, error) {
	return "CREATE TABLE \"User\" (\"id\" serial);\n", nil
}

func (o *stubOracle) RenderBackward(_ context.Context, name string) (string, error) {
	return "DROP TABLE \"User\";\n", nil
}

func newMigrationService(fs afero.Fs, capture domain.Capture, oracle domain.Oracle) *MigrationService {
	clock := func() time.Time { return time.Date(2020, 12, 12, 10, 0, 0, 0, time.Local) }
	driver := synth.NewDriver(fs, migrationsDir, cacheDir, oracle, views.NewDiffer("", "")).WithClock(clock)
	return NewMigrationService(fs, migrationsDir, capture, oracle, driver, translator.Options{DisableChoices: true})
}

func TestMakeMigrations(t *testing.T) {
	fs := afero.NewMemMapFs()
	capture := &fakeCapture{snap: newSnapshot(`{"dv": 1, "lists": {"User": {"fields": ["id", "name"], "sensitiveFields": []}}}`)}
	oracle := &stubOracle{store: history.NewMemoryStore(), pending: []string{"0001_initial"}}

	var steps []int
	svc := newMigrationService(fs, capture, oracle).WithProgress(func(step, total int, _ string) {
		assert.Equal(t, makeMigrationsSteps, total)
		steps = append(steps, step)
	})

	report, err := svc.MakeMigrations(context.Background(), MakeMigrationsInput{EntryPath: "./index.js", Mode: domain.ModeNormal})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, steps)
	require.Len(t, report.Files, 1)
	assert.Equal(t, filepath.Join(migrationsDir, "20201212100000-0001_initial.js"), report.Files[0])
	assert.Contains(t, oracle.models, "class user(models.Model):")
	assert.Equal(t, "pg", oracle.conn.Client)

	data, err := afero.ReadFile(fs, report.Files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `CREATE OR REPLACE VIEW "analytics"."User" AS SELECT "id", "name" FROM "public"."User";`)

	// The archive now holds the definition, so a second run is a no-op.
	report, err = svc.MakeMigrations(context.Background(), MakeMigrationsInput{EntryPath: "./index.js"})
	require.NoError(t, err)
	assert.Empty(t, report.Files)
}

func TestMakeMigrationsCheck(t *testing.T) {
	fs := afero.NewMemMapFs()
	oracle := &stubOracle{store: history.NewMemoryStore(), pending: []string{"0001_initial"}}
	svc := newMigrationService(fs, &fakeCapture{snap: newSnapshot("")}, oracle)

	report, err := svc.MakeMigrations(context.Background(), MakeMigrationsInput{Mode: domain.ModeCheck})
	assert.ErrorIs(t, err, kerrors.ErrPendingChanges)
	require.NotNil(t, report)
	assert.True(t, report.Pending)

	exists, err := afero.DirExists(fs, migrationsDir)
	require.NoError(t, err)
	assert.False(t, exists)

	oracle.pending = nil
	_, err = svc.MakeMigrations(context.Background(), MakeMigrationsInput{Mode: domain.ModeCheck})
	assert.NoError(t, err)
}

func TestMakeMigrationsErrors(t *testing.T) {
	oracle := &stubOracle{store: history.NewMemoryStore()}

	t.Run("capture", func(t *testing.T) {
		capture := &fakeCapture{err: kerrors.NewConfigurationError("no knex adapter", nil)}
		_, err := newMigrationService(afero.NewMemMapFs(), capture, oracle).MakeMigrations(context.Background(), MakeMigrationsInput{})
		assert.ErrorIs(t, err, kerrors.ErrConfiguration)
	})

	t.Run("translation", func(t *testing.T) {
		snap := newSnapshot("")
		snap.Schema = []byte(`{"User": {"tags": [["unknownThing", 1]]}}`)
		_, err := newMigrationService(afero.NewMemMapFs(), &fakeCapture{snap: snap}, oracle).MakeMigrations(context.Background(), MakeMigrationsInput{})
		assert.ErrorIs(t, err, kerrors.ErrTranslation)
	})

	t.Run("connection", func(t *testing.T) {
		snap := newSnapshot("")
		snap.Connection = []byte(`{"client": "pg"}`)
		_, err := newMigrationService(afero.NewMemMapFs(), &fakeCapture{snap: snap}, oracle).MakeMigrations(context.Background(), MakeMigrationsInput{})
		assert.ErrorIs(t, err, kerrors.ErrConfiguration)
	})
}

func TestShowAndListMigrations(t *testing.T) {
	fs := afero.NewMemMapFs()
	oracle := &stubOracle{store: history.NewMemoryStore(), pending: []string{"0001_initial"}}
	svc := newMigrationService(fs, &fakeCapture{snap: newSnapshot("")}, oracle)
	_, err := svc.MakeMigrations(context.Background(), MakeMigrationsInput{})
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, filepath.Join(migrationsDir, "README.md"), []byte("notes"), 0o644))

	names, err := svc.ListMigrations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"20201212100000-0001_initial.js"}, names)

	file, err := svc.ShowMigration(context.Background(), names[0])
	require.NoError(t, err)
	assert.Equal(t, "0001_initial", file.Unit.Name)
	assert.False(t, file.Unit.Irreversible)
	assert.Contains(t, file.Unit.ForwardSQL, "CREATE TABLE")
	assert.Empty(t, file.Views.Lists)

	_, err = svc.ShowMigration(context.Background(), "missing.js")
	assert.Error(t, err)
}

type fakeRuntime struct {
	cmd domain.RuntimeCommand
	err error
}

func (r *fakeRuntime) Run(_ context.Context, cmd domain.RuntimeCommand, _ string) ([]byte, error) {
	r.cmd = cmd
	return []byte("ok"), r.err
}

func TestRuntimeService(t *testing.T) {
	rt := &fakeRuntime{}
	out, err := NewRuntimeService(rt).Run(context.Background(), domain.RuntimeUp, "./index.js")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(out))
	assert.Equal(t, domain.RuntimeUp, rt.cmd)

	rt.err = &kerrors.SubprocessError{Command: []string{"node"}, ExitCode: 1}
	_, err = NewRuntimeService(rt).Run(context.Background(), domain.RuntimeDown, "./index.js")
	assert.ErrorIs(t, err, kerrors.ErrSubprocess)
	assert.Contains(t, err.Error(), "down failed")
}

type fakeRunner struct {
	outputs map[string]string
}

func (r *fakeRunner) Run(_ context.Context, cmd process.Command) (*process.Result, error) {
	key := cmd.Name + " " + cmd.Args[0]
	out, ok := r.outputs[key]
	if !ok {
		return nil, kerrors.NewConfigurationError(cmd.Name+" is not installed", nil)
	}
	return &process.Result{Output: []byte(out), Stdout: []byte(out)}, nil
}

func TestDoctor(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{
		"node --version":    "v18.17.1\n",
		"python3 --version": "Python 3.10.4\n",
		"python3 -c":        "2.2.28\n",
	}}
	doctor := NewDoctorService(runner, &fakeCapture{snap: newSnapshot("")}, "node", "python3")
	var pinged *domain.Connection
	doctor.ping = func(_ context.Context, conn *domain.Connection, _ time.Duration) error {
		pinged = conn
		return nil
	}

	checks, err := doctor.Diagnose(context.Background(), "./index.js")
	require.NoError(t, err)
	require.Len(t, checks, 4)

	byName := map[string]Check{}
	for _, c := range checks {
		byName[c.Name] = c
	}
	assert.True(t, byName["node"].OK)
	assert.Equal(t, "3.10.4", byName["python"].Detail)
	assert.False(t, byName["django"].OK)
	assert.Contains(t, byName["django"].Detail, "2.2.28")
	assert.True(t, byName["database"].OK)
	assert.Equal(t, "app", pinged.Database)
}

func TestDoctorDatabaseFailure(t *testing.T) {
	doctor := NewDoctorService(&fakeRunner{}, &fakeCapture{snap: newSnapshot("")}, "node", "python3")
	doctor.ping = func(context.Context, *domain.Connection, time.Duration) error {
		return errors.New("connection refused")
	}

	checks, err := doctor.Diagnose(context.Background(), "./index.js")
	require.NoError(t, err)
	for _, c := range checks {
		assert.False(t, c.OK, c.Name)
	}
	assert.Equal(t, "connection refused", checks[3].Detail)
}

func TestListMigrationsWithoutArchive(t *testing.T) {
	svc := newMigrationService(afero.NewMemMapFs(), &fakeCapture{}, &stubOracle{store: history.NewMemoryStore()})
	names, err := svc.ListMigrations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}
