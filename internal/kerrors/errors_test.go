package kerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategories(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"configuration", NewConfigurationError("no connection", cause), ErrConfiguration},
		{"translation", &TranslationError{Tag: "ArrayOf"}, ErrTranslation},
		{"subprocess", &SubprocessError{Command: []string{"python3"}, ExitCode: 1}, ErrSubprocess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("stage: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.target)
			assert.NotErrorIs(t, wrapped, ErrPendingChanges)
		})
	}
}

func TestConfigurationErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := NewConfigurationError("database unreachable", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "configuration: database unreachable: dial tcp: refused", err.Error())
	assert.Equal(t, "configuration: missing", NewConfigurationError("missing", nil).Error())
}

func TestTranslationErrorMessage(t *testing.T) {
	err := &TranslationError{Tag: "unknownThing", Args: []any{"x", 1}}
	assert.Equal(t, `translation: no processor: unknownThing(ctx, *["x", 1])`, err.Error())

	located := err.WithLocation("User", "name")
	assert.Equal(t, `translation of User.name: no processor: unknownThing(ctx, *["x", 1])`, located.Error())
	assert.Empty(t, err.Table)
}

func TestSubprocessErrorMessage(t *testing.T) {
	err := &SubprocessError{
		Command:  []string{"python3", "manage.py", "makemigrations"},
		ExitCode: 2,
		LogPath:  "/cache/python3.1.log",
	}
	assert.Equal(t, `command "python3 manage.py makemigrations" exited with code 2 (logfile = /cache/python3.1.log)`, err.Error())

	var se *SubprocessError
	assert.True(t, errors.As(fmt.Errorf("wrap: %w", err), &se))
	assert.Equal(t, 2, se.ExitCode)
}
