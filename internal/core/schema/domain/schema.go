// Package domain contains the captured application schema: tables, columns
// and the ordered operation descriptors that shape each column.
package domain

// MetaColumn is the reserved column key carrying table-level operations.
const MetaColumn = "__meta"

// TableSchema maps table names to their columns, in capture order.
type TableSchema struct {
	Tables []Table
}

// Table is one captured table.
type Table struct {
	Name    string
	Columns []Column
}

// Column pairs a column key with its descriptor.
type Column struct {
	Name       string
	Descriptor ColumnDescriptor
}

// ColumnDescriptor is an ordered, non-empty sequence of operations.
// Later operations override earlier ones on conflicting attributes.
type ColumnDescriptor []Operation

// Fields returns the table's columns without the meta column.
func (t Table) Fields() []Column {
	fields := make([]Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name == MetaColumn {
			continue
		}
		fields = append(fields, c)
	}
	return fields
}

// Meta returns the table-level descriptor, or nil when the table has none.
func (t Table) Meta() ColumnDescriptor {
	for _, c := range t.Columns {
		if c.Name == MetaColumn {
			return c.Descriptor
		}
	}
	return nil
}

// Table looks up a table by name.
func (s *TableSchema) Table(name string) (Table, bool) {
	for _, t := range s.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// Has reports whether d contains a bare, argument-free operation with the given tag.
func (d ColumnDescriptor) Has(tag string) bool {
	for _, op := range d {
		if op.Tag() == tag && len(op.Args()) == 0 {
			return true
		}
	}
	return false
}
