package commands

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/kmigrator/internal/config"
	"github.com/satishbabariya/kmigrator/internal/core/migration/domain"
	"github.com/satishbabariya/kmigrator/internal/core/migration/history"
	"github.com/satishbabariya/kmigrator/internal/ui"
	"github.com/satishbabariya/kmigrator/internal/utils/container"
)

func setup(t *testing.T) (*container.Container, afero.Fs, *bytes.Buffer) {
	t.Helper()
	fs := afero.NewMemMapFs()
	prevFs, prevOut, prevErr := config.AppFs, ui.Out, ui.Err
	var out bytes.Buffer
	config.AppFs, ui.Out, ui.Err = fs, &out, &out
	t.Cleanup(func() { config.AppFs, ui.Out, ui.Err = prevFs, prevOut, prevErr })

	c, err := container.NewContainer(config.Default(), fs)
	require.NoError(t, err)
	return c, fs, &out
}

func execute(c *container.Container, args ...string) error {
	root := NewRootCommand(c)
	root.SetArgs(args)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	return root.Execute()
}

func TestCommandTree(t *testing.T) {
	c, _, _ := setup(t)
	root := NewRootCommand(c)

	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	for _, want := range []string{"makemigrations", "migrate", "up", "down", "currentVersion", "list", "unlock", "show", "doctor", "watch", "init", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestMakeMigrationsModesAreExclusive(t *testing.T) {
	c, _, _ := setup(t)
	err := execute(c, "makemigrations", "--merge", "--check")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the others can be")
}

func TestEntryPath(t *testing.T) {
	c, _, _ := setup(t)
	assert.Equal(t, "./index.js", entryPath(c, nil))
	assert.Equal(t, "./app.js", entryPath(c, []string{"./app.js"}))
}

func TestShow(t *testing.T) {
	c, fs, out := setup(t)
	u := &domain.Unit{
		Name:        "0001_initial",
		CreatedAt:   time.Date(2020, 12, 12, 10, 0, 0, 0, time.Local),
		Definition:  []byte("operations = []\n"),
		ForwardSQL:  "CREATE TABLE \"User\" (\"id\" serial);",
		BackwardSQL: "DROP TABLE \"User\";",
		Views:       []byte(`{"dv":1,"lists":{"User":{"fields":["id","email"],"sensitiveFields":["email"]}}}`),
	}
	text, err := history.Render(u)
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, filepath.Join(c.Config().MigrationsDir, u.FileName()), []byte(text), 0o644))

	require.NoError(t, execute(c, "show"))
	assert.Contains(t, out.String(), "0001_initial")
	assert.Contains(t, out.String(), "20201212100000")

	out.Reset()
	require.NoError(t, execute(c, "show", "--raw", u.FileName()))
	assert.Contains(t, out.String(), "# 0001_initial")
	assert.Contains(t, out.String(), "- Reversible: yes")
	assert.Contains(t, out.String(), "- Views: 1")
	assert.Contains(t, out.String(), "```sql\nDROP TABLE \"User\";\n```")
}

func TestShowIrreversibleNote(t *testing.T) {
	c, fs, out := setup(t)
	u := &domain.Unit{
		Name:         "0002_auto",
		CreatedAt:    time.Date(2020, 12, 13, 10, 0, 0, 0, time.Local),
		Definition:   []byte("operations = []\n"),
		ForwardSQL:   "ALTER TABLE \"User\" DROP COLUMN \"email\";",
		Views:        []byte(`{"dv":1,"lists":{}}`),
		Irreversible: true,
		BackwardNote: "DROP VIEW \"analytics\".\"User\";",
	}
	text, err := history.Render(u)
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, filepath.Join(c.Config().MigrationsDir, u.FileName()), []byte(text), 0o644))

	require.NoError(t, execute(c, "show", "--raw", u.FileName()))
	assert.Contains(t, out.String(), "- Reversible: no")
	assert.Contains(t, out.String(), "- Backward views SQL is not applied by down; run it by hand")
	assert.Contains(t, out.String(), "DROP VIEW \"analytics\".\"User\";")
}

func TestInit(t *testing.T) {
	c, fs, _ := setup(t)
	require.NoError(t, execute(c, "init", "/project"))

	data, err := afero.ReadFile(fs, "/project/.kmigrator.yaml")
	require.NoError(t, err)
	assert.Contains(t, string(data), "migrations_dir: migrations")

	err = execute(c, "init", "/project")
	assert.ErrorContains(t, err, "already exists")
	assert.NoError(t, execute(c, "init", "/project", "--force"))
}

func TestVersion(t *testing.T) {
	c, _, out := setup(t)
	require.NoError(t, execute(c, "version", "--short"))
	assert.Contains(t, out.String(), "kmigrator version")
}
