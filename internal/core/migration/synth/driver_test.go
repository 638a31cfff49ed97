package synth

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/kmigrator/internal/core/migration/domain"
	"github.com/satishbabariya/kmigrator/internal/core/migration/history"
	"github.com/satishbabariya/kmigrator/internal/core/views"
	"github.com/satishbabariya/kmigrator/internal/kerrors"
)

const (
	archiveDir = "/app/migrations"
	cacheDir   = "/app/.kmigrator"
)

// fakeOracle emits the queued definitions on Detect.
type fakeOracle struct {
	store        *history.FileStore
	pending      map[domain.Mode][]string
	definitions  map[string]string
	irreversible map[string]bool
	detected     []domain.Mode
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{
		store:        history.NewMemoryStore(),
		pending:      map[domain.Mode][]string{},
		definitions:  map[string]string{},
		irreversible: map[string]bool{},
	}
}

func (o *fakeOracle) Prepare(context.Context, string, *domain.Connection) error { return nil }

func (o *fakeOracle) History() domain.HistoryStore { return o.store }

func (o *fakeOracle) Detect(ctx context.Context, mode domain.Mode) error {
	o.detected = append(o.detected, mode)
	if mode == domain.ModeCheck {
		if len(o.pending[domain.ModeNormal]) > 0 {
			return kerrors.ErrPendingChanges
		}
		return nil
	}
	for _, name := range o.pending[mode] {
		def, ok := o.definitions[name]
		if !ok {
			def = "operations = []\n"
		}
		if err := o.store.Put(ctx, name, []byte(def)); err != nil {
			return err
		}
	}
	return nil
}

func (o *fakeOracle) RenderForward(_ context.Context, name string) (string, error) {
	return "-- forward " + name + "\n", nil
}

func (o *fakeOracle) RenderBackward(_ context.Context, name string) (string, error) {
	if o.irreversible[name] {
		return "", &kerrors.SubprocessError{
			Command:  []string{"sqlmigrate", name, "--backwards"},
			ExitCode: 1,
			Output:   []byte("ValueError: irreversible " + name),
		}
	}
	return "-- backward " + name + "\n", nil
}

var clock = func() time.Time { return time.Date(2021, 6, 1, 12, 0, 0, 0, time.Local) }

func newDriver(fs afero.Fs, oracle *fakeOracle) *Driver {
	return NewDriver(fs, archiveDir, cacheDir, oracle, views.NewDiffer("", "")).WithClock(clock)
}

func emptyRecon() *history.Result {
	return &history.Result{Recovered: map[string]bool{}, Baseline: views.EmptyState()}
}

func viewsState(keys ...string) views.State {
	s := views.EmptyState()
	for _, k := range keys {
		s.Lists[k] = views.List{Fields: []string{"id", "name"}}
	}
	return s
}

func readUnit(t *testing.T, fs afero.Fs, path string) *domain.Unit {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	u, err := history.Parse(filepath.Base(path), string(data))
	require.NoError(t, err)
	return u
}

func TestRunWritesNewUnits(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	oracle := newFakeOracle()
	oracle.pending[domain.ModeNormal] = []string{"0001_initial", "0002_auto"}

	recon := emptyRecon()
	report, err := newDriver(fs, oracle).Run(ctx, domain.ModeNormal, recon, views.EmptyState())
	require.NoError(t, err)

	require.Len(t, report.Files, 2)
	assert.Equal(t, filepath.Join(archiveDir, "20210601120000-0001_initial.js"), report.Files[0])
	assert.Equal(t, filepath.Join(archiveDir, "20210601120000-0002_auto.js"), report.Files[1])

	u := readUnit(t, fs, report.Files[0])
	assert.Equal(t, "0001_initial", u.Name)
	assert.Equal(t, "-- forward 0001_initial\n", u.ForwardSQL)
	assert.Equal(t, "-- backward 0001_initial\n", u.BackwardSQL)
	state, err := views.ParseState(u.Views)
	require.NoError(t, err)
	assert.True(t, state.Equal(views.EmptyState()))
}

func TestRunSkipsRecoveredDefinitions(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	oracle := newFakeOracle()
	oracle.pending[domain.ModeNormal] = []string{"0001_initial", "0002_auto"}

	recon := emptyRecon()
	recon.Recovered["0001_initial"] = true
	report, err := newDriver(fs, oracle).Run(ctx, domain.ModeNormal, recon, views.EmptyState())
	require.NoError(t, err)
	require.Len(t, report.Units, 1)
	assert.Equal(t, "0002_auto", report.Units[0].Name)
}

func TestRunMergesViewsIntoExactlyOneUnit(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	oracle := newFakeOracle()
	oracle.pending[domain.ModeNormal] = []string{"0001_initial", "0002_auto"}

	differ := views.NewDiffer("", "")
	current := viewsState("User")
	fwd := differ.Forward(views.EmptyState(), current)
	bwd := differ.Backward(views.EmptyState(), current)

	report, err := newDriver(fs, oracle).Run(ctx, domain.ModeNormal, emptyRecon(), current)
	require.NoError(t, err)
	require.Len(t, report.Files, 2)

	fwdCount, bwdCount := 0, 0
	for _, path := range report.Files {
		u := readUnit(t, fs, path)
		fwdCount += strings.Count(u.ForwardSQL, fwd)
		bwdCount += strings.Count(u.BackwardSQL, bwd)
	}
	assert.Equal(t, 1, fwdCount)
	assert.Equal(t, 1, bwdCount)
	assert.False(t, report.ViewsNoteOnly)
}

func TestRunBackwardViewsSkipIrreversibleUnits(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	oracle := newFakeOracle()
	oracle.pending[domain.ModeNormal] = []string{"0001_initial", "0002_auto"}
	oracle.irreversible["0001_initial"] = true

	report, err := newDriver(fs, oracle).Run(ctx, domain.ModeNormal, emptyRecon(), viewsState("User"))
	require.NoError(t, err)

	first := readUnit(t, fs, report.Files[0])
	second := readUnit(t, fs, report.Files[1])
	assert.True(t, first.Irreversible)
	assert.Contains(t, first.ForwardSQL, `CREATE SCHEMA IF NOT EXISTS "analytics";`)
	assert.Contains(t, second.BackwardSQL, `DROP SCHEMA IF EXISTS "analytics";`)
	assert.NotContains(t, second.ForwardSQL, "CREATE SCHEMA")

	logPath := report.FailureLogs["0001_initial"]
	require.NotEmpty(t, logPath)
	detail, err := afero.ReadFile(fs, logPath)
	require.NoError(t, err)
	assert.Equal(t, "ValueError: irreversible 0001_initial", string(detail))
}

func TestRunAllIrreversibleKeepsBackwardViewsAsNote(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	oracle := newFakeOracle()
	oracle.pending[domain.ModeNormal] = []string{"0001_initial"}
	oracle.irreversible["0001_initial"] = true

	report, err := newDriver(fs, oracle).Run(ctx, domain.ModeNormal, emptyRecon(), viewsState("User"))
	require.NoError(t, err)
	assert.True(t, report.ViewsNoteOnly)

	data, err := afero.ReadFile(fs, report.Files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `    // DROP SCHEMA IF EXISTS "analytics";`)
	assert.Contains(t, string(data), "throw new Error('no auto backward migration')")
}

func TestRunForcesEmptyUnitForViewsOnlyChange(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	oracle := newFakeOracle()
	oracle.pending[domain.ModeEmpty] = []string{"0003_auto"}

	recon := emptyRecon()
	recon.Baseline = viewsState("User")
	report, err := newDriver(fs, oracle).Run(ctx, domain.ModeNormal, recon, viewsState("User", "Ticket"))
	require.NoError(t, err)

	assert.True(t, report.ForcedEmpty)
	assert.Equal(t, []domain.Mode{domain.ModeNormal, domain.ModeEmpty}, oracle.detected)
	require.Len(t, report.Units, 1)
	u := readUnit(t, fs, report.Files[0])
	assert.Contains(t, u.ForwardSQL, `CREATE OR REPLACE VIEW "analytics"."Ticket"`)
	assert.NotContains(t, u.ForwardSQL, "CREATE SCHEMA")
	assert.Contains(t, u.BackwardSQL, `DROP VIEW IF EXISTS "analytics"."Ticket";`)
}

func TestRunNothingPending(t *testing.T) {
	fs := afero.NewMemMapFs()
	oracle := newFakeOracle()

	report, err := newDriver(fs, oracle).Run(context.Background(), domain.ModeNormal, emptyRecon(), views.EmptyState())
	require.NoError(t, err)
	assert.Empty(t, report.Files)
	assert.Equal(t, []domain.Mode{domain.ModeNormal}, oracle.detected)

	exists, err := afero.DirExists(fs, archiveDir)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRunCheckMode(t *testing.T) {
	tests := []struct {
		name    string
		pending []string
		current views.State
		want    bool
	}{
		{name: "clean", current: views.EmptyState(), want: false},
		{name: "model changes", pending: []string{"0001_initial"}, current: views.EmptyState(), want: true},
		{name: "views changes", current: viewsState("User"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			oracle := newFakeOracle()
			oracle.pending[domain.ModeNormal] = tt.pending

			report, err := newDriver(fs, oracle).Run(context.Background(), domain.ModeCheck, emptyRecon(), tt.current)
			require.NoError(t, err)
			assert.Equal(t, tt.want, report.Pending)
			assert.Empty(t, report.Files)

			names, err := oracle.store.List(context.Background())
			require.NoError(t, err)
			assert.Empty(t, names)
		})
	}
}

func TestRunAppliesHotfixBeforeRendering(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	oracle := newFakeOracle()
	oracle.pending[domain.ModeNormal] = []string{"0002_auto"}
	oracle.definitions["0002_auto"] = "    operations = [\n" +
		"        migrations.DeleteModel(\n            name='a',\n        ),\n" +
		"        migrations.RemoveField(\n            model_name='a',\n            name='f',\n        ),\n" +
		"    ]\n"

	report, err := newDriver(fs, oracle).Run(ctx, domain.ModeNormal, emptyRecon(), views.EmptyState())
	require.NoError(t, err)

	stored, err := oracle.store.Get(ctx, "0002_auto")
	require.NoError(t, err)
	assert.Contains(t, string(stored), "#            model_name='a',")
	assert.Equal(t, stored, readUnit(t, fs, report.Files[0]).Definition)
}

func TestRunPropagatesOracleFailure(t *testing.T) {
	oracle := &failingOracle{fakeOracle: newFakeOracle()}
	d := NewDriver(afero.NewMemMapFs(), archiveDir, cacheDir, oracle, views.NewDiffer("", ""))
	_, err := d.Run(context.Background(), domain.ModeMerge, emptyRecon(), views.EmptyState())
	assert.ErrorIs(t, err, kerrors.ErrSubprocess)
}

type failingOracle struct {
	*fakeOracle
}

func (o *failingOracle) Detect(_ context.Context, mode domain.Mode) error {
	return &kerrors.SubprocessError{Command: []string{"makemigrations", "--" + mode.String()}, ExitCode: 2, Cause: errors.New("exit status 2")}
}

func TestAttachViews(t *testing.T) {
	units := func(irreversible ...bool) []*domain.Unit {
		out := make([]*domain.Unit, len(irreversible))
		for i, irr := range irreversible {
			out[i] = &domain.Unit{Name: fmt.Sprintf("%04d_x", i+1), Irreversible: irr}
		}
		return out
	}

	t.Run("no views diff", func(t *testing.T) {
		us := units(false, false)
		assert.False(t, attachViews(us, "", ""))
		for _, u := range us {
			assert.Empty(t, u.ForwardSQL)
			assert.Empty(t, u.BackwardSQL)
		}
	})

	t.Run("earliest eligible units", func(t *testing.T) {
		us := units(true, false, false)
		assert.False(t, attachViews(us, "F", "B"))
		assert.Equal(t, "\nF", us[0].ForwardSQL)
		assert.Empty(t, us[0].BackwardSQL)
		assert.Equal(t, "\nB", us[1].BackwardSQL)
		assert.Empty(t, us[2].ForwardSQL)
		assert.Empty(t, us[2].BackwardSQL)
	})

	t.Run("only irreversible units", func(t *testing.T) {
		us := units(true, true)
		assert.True(t, attachViews(us, "F", "B"))
		assert.Equal(t, "B", us[0].BackwardNote)
		assert.Empty(t, us[1].BackwardNote)
	})
}
