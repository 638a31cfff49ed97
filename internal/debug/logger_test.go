package debug

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitWriter(t *testing.T) {
	var buf bytes.Buffer
	t.Cleanup(func() { InitWriter(false, &bytes.Buffer{}) })

	InitWriter(false, &buf)
	Debug("hidden", "step", 1)
	assert.False(t, Enabled())
	assert.Empty(t, buf.String())

	InitWriter(true, &buf)
	With("stage", "reconcile").Debug("restored", "count", 2)
	assert.True(t, Enabled())
	assert.Contains(t, buf.String(), "stage=reconcile")
	assert.Contains(t, buf.String(), "count=2")
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	t.Cleanup(func() { InitWriter(false, &bytes.Buffer{}) })

	w := Writer()
	InitWriter(false, &buf)
	n, err := w.Write([]byte("makemigrations output\n"))
	assert.NoError(t, err)
	assert.Equal(t, 22, n)
	assert.Empty(t, buf.String())

	InitWriter(true, &buf)
	_, err = w.Write([]byte("Migrations for '_django_schema':\n"))
	assert.NoError(t, err)
	assert.Equal(t, "Migrations for '_django_schema':\n", buf.String())
}
