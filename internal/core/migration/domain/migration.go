// Package domain contains the migration entities and the interfaces of the
// collaborators the synthesis pipeline drives.
package domain

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// FileTimeLayout is the timestamp prefix of migration file names.
const FileTimeLayout = "20060102150405"

// FileExt is the extension of migration files.
const FileExt = ".js"

// ErrDefinitionNotFound is returned by a HistoryStore for unknown names.
var ErrDefinitionNotFound = errors.New("native definition not found")

// Unit is one persisted migration: a native definition of the oracle and
// the SQL rendered from it.
type Unit struct {
	// Name is assigned by the oracle, e.g. "0003_auto_20200101_1200".
	Name      string
	CreatedAt time.Time
	// Definition is the oracle's native definition, embedded as base64.
	Definition  []byte
	ForwardSQL  string
	BackwardSQL string
	// Irreversible marks a unit whose backward action always fails.
	Irreversible bool
	// BackwardNote is SQL kept as a comment inside an irreversible stub.
	BackwardNote string
	// Views is the encoded views state at write time.
	Views []byte
}

// FileName returns "<timestamp>-<name>.js".
func (u *Unit) FileName() string {
	return u.CreatedAt.Format(FileTimeLayout) + "-" + u.Name + FileExt
}

// Sequence returns the leading sequence number of a definition name.
func Sequence(name string) (int, bool) {
	head, _, _ := strings.Cut(name, "_")
	n, err := strconv.Atoi(head)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Mode selects how the oracle detects changes.
type Mode int

const (
	// ModeNormal emits every pending change.
	ModeNormal Mode = iota
	// ModeMerge folds divergent history branches into one definition.
	ModeMerge
	// ModeCheck only reports whether anything is pending.
	ModeCheck
	// ModeEmpty forces one empty definition.
	ModeEmpty
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeMerge:
		return "merge"
	case ModeCheck:
		return "check"
	case ModeEmpty:
		return "empty"
	}
	return "normal"
}

// Connection describes the database the captured application talks to.
type Connection struct {
	Client   string
	Database string
	User     string
	Password string
	Host     string
	Port     int
	// Filename is set for file based engines.
	Filename string
}
