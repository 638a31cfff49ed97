// Package views models the derived analytics views and computes the SQL
// needed to move the database from one views state to another.
package views

import (
	"encoding/json"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// FormatVersion is the current ViewsState format version.
const FormatVersion = 1

// State records which views should exist and which columns are redacted.
type State struct {
	Version int             `json:"dv"`
	Lists   map[string]List `json:"lists"`
}

// List describes one view: its sorted fields and the redacted subset.
type List struct {
	Fields          []string `json:"fields"`
	SensitiveFields []string `json:"sensitiveFields"`
}

// EmptyState is the baseline used when no migration carries a views tag.
func EmptyState() State {
	return State{Version: FormatVersion, Lists: map[string]List{}}
}

// ParseState decodes a ViewsState document.
func ParseState(data []byte) (State, error) {
	s := EmptyState()
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("failed to decode views state: %w", err)
	}
	if s.Lists == nil {
		s.Lists = map[string]List{}
	}
	return s, nil
}

// Encode serializes the state. Keys are emitted in sorted order.
func (s State) Encode() ([]byte, error) {
	if s.Lists == nil {
		s.Lists = map[string]List{}
	}
	return json.Marshal(s)
}

// Equal reports structural equality. Nil and empty collections compare equal.
func (s State) Equal(other State) bool {
	return s.Version == other.Version && cmp.Equal(s.Lists, other.Lists, cmpopts.EquateEmpty())
}

// Diff returns a human readable description of the difference, or "" when equal.
func (s State) Diff(other State) string {
	return cmp.Diff(stateFields(s), stateFields(other), cmpopts.EquateEmpty())
}

// stateFields drops the methods of State so cmp does not call back into Equal.
type stateFields State

func (l List) equal(other List) bool {
	return cmp.Equal(l, other, cmpopts.EquateEmpty())
}

func (l List) isSensitive(field string) bool {
	for _, f := range l.SensitiveFields {
		if f == field {
			return true
		}
	}
	return false
}
