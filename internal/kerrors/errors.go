// Package kerrors defines the error taxonomy shared by every kmigrator stage.
package kerrors

import (
	"errors"
	"fmt"
	"strings"
)

// Error categories. Typed errors below match them through errors.Is.
var (
	// ErrConfiguration is returned when the capture connection or local setup is unusable.
	ErrConfiguration = errors.New("configuration error")

	// ErrTranslation is returned when a column or meta descriptor cannot be translated.
	ErrTranslation = errors.New("translation error")

	// ErrSubprocess is returned when an external command exits non-zero.
	ErrSubprocess = errors.New("subprocess error")

	// ErrPendingChanges is returned by check mode when the oracle reports changes.
	ErrPendingChanges = errors.New("pending model changes")
)

// ConfigurationError describes an unusable environment.
type ConfigurationError struct {
	Reason string
	Cause  error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("configuration: %s: %v", e.Reason, e.Cause)
	}
	return "configuration: " + e.Reason
}

// Unwrap returns the underlying error.
func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// NewConfigurationError creates a new ConfigurationError.
func NewConfigurationError(reason string, cause error) *ConfigurationError {
	return &ConfigurationError{Reason: reason, Cause: cause}
}

// TranslationError names the descriptor operation that could not be translated.
type TranslationError struct {
	Table  string
	Column string
	Tag    string
	Args   []any
	Reason string
}

// Error implements the error interface.
func (e *TranslationError) Error() string {
	var b strings.Builder
	b.WriteString("translation")
	if e.Table != "" {
		b.WriteString(" of ")
		b.WriteString(e.Table)
		if e.Column != "" {
			b.WriteString(".")
			b.WriteString(e.Column)
		}
	}
	b.WriteString(": ")
	reason := e.Reason
	if reason == "" {
		reason = "no processor"
	}
	b.WriteString(reason)
	if e.Tag != "" {
		fmt.Fprintf(&b, ": %s(ctx, *%s)", e.Tag, formatArgs(e.Args))
	}
	return b.String()
}

// Is reports whether target is ErrTranslation.
func (e *TranslationError) Is(target error) bool {
	return target == ErrTranslation
}

// WithLocation returns a copy of the error bound to a table column.
func (e *TranslationError) WithLocation(table, column string) *TranslationError {
	c := *e
	c.Table = table
	c.Column = column
	return &c
}

func formatArgs(args []any) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, fmt.Sprintf("%#v", a))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// SubprocessError is returned when an external command fails.
type SubprocessError struct {
	Command  []string
	ExitCode int
	LogPath  string
	Output   []byte
	Cause    error
}

// Error implements the error interface.
func (e *SubprocessError) Error() string {
	msg := fmt.Sprintf("command %q exited with code %d", strings.Join(e.Command, " "), e.ExitCode)
	if e.LogPath != "" {
		msg += " (logfile = " + e.LogPath + ")"
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *SubprocessError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrSubprocess.
func (e *SubprocessError) Is(target error) bool {
	return target == ErrSubprocess
}
