package views

import (
	"fmt"
	"sort"
	"strings"
)

// Default schema names.
const (
	DefaultViewsSchema  = "analytics"
	DefaultSourceSchema = "public"
)

// Differ renders the SQL moving the database between two views states.
type Differ struct {
	ViewsSchema  string
	SourceSchema string
}

// NewDiffer creates a differ. Empty names fall back to the defaults.
func NewDiffer(viewsSchema, sourceSchema string) *Differ {
	if viewsSchema == "" {
		viewsSchema = DefaultViewsSchema
	}
	if sourceSchema == "" {
		sourceSchema = DefaultSourceSchema
	}
	return &Differ{ViewsSchema: viewsSchema, SourceSchema: sourceSchema}
}

// Forward returns the SQL applying the change from old to new, or "" when
// the states are equal.
func (d *Differ) Forward(old, new State) string {
	return d.diff(old, new)
}

// Backward returns the SQL reverting the change from old to new.
func (d *Differ) Backward(old, new State) string {
	return d.diff(new, old)
}

func (d *Differ) diff(from, to State) string {
	if from.Equal(to) {
		return ""
	}

	var b sqlBuilder
	if len(to.Lists) > 0 && len(from.Lists) == 0 {
		b.comment(fmt.Sprintf("Create %s schema", d.ViewsSchema))
		b.line(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %q;", d.ViewsSchema))
	}

	for _, key := range sortedKeys(to.Lists) {
		list := to.Lists[key]
		if prev, ok := from.Lists[key]; ok && prev.equal(list) {
			continue
		}
		b.comment(fmt.Sprintf("Create view for %q table", key))
		b.line(d.createView(key, list))
	}

	for _, key := range sortedKeys(from.Lists) {
		if _, ok := to.Lists[key]; ok {
			continue
		}
		b.comment(fmt.Sprintf("Remove view for %q table", key))
		b.line(fmt.Sprintf("DROP VIEW IF EXISTS %q.%q;", d.ViewsSchema, key))
	}

	if len(to.Lists) == 0 && len(from.Lists) > 0 {
		b.comment(fmt.Sprintf("Drop %s schema", d.ViewsSchema))
		b.line(fmt.Sprintf("DROP SCHEMA IF EXISTS %q;", d.ViewsSchema))
	}
	return b.String()
}

// createView selects every field, replacing redacted ones with NULL.
func (d *Differ) createView(key string, list List) string {
	columns := make([]string, len(list.Fields))
	for i, f := range list.Fields {
		if list.isSensitive(f) {
			columns[i] = fmt.Sprintf("NULL as %q", f)
		} else {
			columns[i] = fmt.Sprintf("%q", f)
		}
	}
	return fmt.Sprintf("CREATE OR REPLACE VIEW %q.%q AS SELECT %s FROM %q.%q;",
		d.ViewsSchema, key, strings.Join(columns, ", "), d.SourceSchema, key)
}

type sqlBuilder struct {
	strings.Builder
}

func (b *sqlBuilder) line(s string) {
	b.WriteString(s)
	b.WriteByte('\n')
}

func (b *sqlBuilder) comment(s string) {
	b.line("--")
	b.line("-- " + s)
	b.line("--")
}

func sortedKeys(m map[string]List) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
