package domain

import (
	"fmt"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/satishbabariya/kmigrator/internal/kerrors"
)

// ParseTableSchema decodes a captured schema document. JSON is valid YAML
// flow syntax, so the yaml.v3 node tree is used to keep key order stable.
func ParseTableSchema(data []byte) (*TableSchema, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to decode schema: %w", err)
	}
	schema := &TableSchema{}
	if root.Kind == 0 {
		return schema, nil
	}
	doc := &root
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return schema, nil
		}
		doc = doc.Content[0]
	}
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("failed to decode schema: expected an object of tables")
	}

	var errs *multierror.Error
	for i := 0; i+1 < len(doc.Content); i += 2 {
		tableName := doc.Content[i].Value
		columnsNode := doc.Content[i+1]
		if columnsNode.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("failed to decode table %s: expected an object of columns", tableName)
		}
		table := Table{Name: tableName}
		for j := 0; j+1 < len(columnsNode.Content); j += 2 {
			columnName := columnsNode.Content[j].Value
			raw, err := nodeValue(columnsNode.Content[j+1])
			if err != nil {
				return nil, fmt.Errorf("failed to decode %s.%s: %w", tableName, columnName, err)
			}
			desc, err := ParseDescriptor(raw)
			if err != nil {
				errs = multierror.Append(errs, locate(err, tableName, columnName))
				continue
			}
			table.Columns = append(table.Columns, Column{Name: columnName, Descriptor: desc})
		}
		schema.Tables = append(schema.Tables, table)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return schema, nil
}

// ParseDescriptor converts a decoded list of [tag, args...] lists into a descriptor.
func ParseDescriptor(raw any) (ColumnDescriptor, error) {
	list, ok := raw.([]any)
	if !ok || len(list) == 0 {
		return nil, &kerrors.TranslationError{Reason: "descriptor must be a non-empty list of operations"}
	}
	desc := make(ColumnDescriptor, 0, len(list))
	for i, item := range list {
		step, ok := item.([]any)
		if !ok || len(step) == 0 {
			return nil, &kerrors.TranslationError{Reason: fmt.Sprintf("operation %d is not a [tag, args...] list", i)}
		}
		tag, ok := step[0].(string)
		if !ok {
			return nil, &kerrors.TranslationError{Reason: fmt.Sprintf("operation %d has a non-string tag", i)}
		}
		op, err := ParseOperation(tag, step[1:])
		if err != nil {
			return nil, err
		}
		desc = append(desc, op)
	}
	return desc, nil
}

// ParseValue decodes an arbitrary JSON document into the same value model
// used for descriptor arguments.
func ParseValue(data []byte) (any, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		return nodeValue(root.Content[0])
	}
	return nodeValue(&root)
}

func locate(err error, table, column string) error {
	if te, ok := err.(*kerrors.TranslationError); ok {
		return te.WithLocation(table, column)
	}
	return fmt.Errorf("%s.%s: %w", table, column, err)
}

func nodeValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return nodeValue(n.Alias)
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := nodeValue(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		m := NewOrderedMap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := nodeValue(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.Set(n.Content[i].Value, v)
		}
		return m, nil
	case yaml.ScalarNode:
		return scalarValue(n)
	}
	return nil, fmt.Errorf("unsupported node kind %d at line %d", n.Kind, n.Line)
}

func scalarValue(n *yaml.Node) (any, error) {
	switch n.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		return strconv.ParseBool(n.Value)
	case "!!int":
		if v, err := strconv.ParseInt(n.Value, 10, 64); err == nil {
			return v, nil
		}
		return strconv.ParseFloat(n.Value, 64)
	case "!!float":
		return strconv.ParseFloat(n.Value, 64)
	}
	return n.Value, nil
}
