package translator

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/kmigrator/internal/core/schema/domain"
	"github.com/satishbabariya/kmigrator/internal/kerrors"
)

var indexKinds = map[string]bool{
	"Index":       true,
	"BTreeIndex":  true,
	"BrinIndex":   true,
	"BloomIndex":  true,
	"GinIndex":    true,
	"GistIndex":   true,
	"HashIndex":   true,
	"SpGistIndex": true,
}

// TranslateMeta renders the constraints and indexes blocks of a table's
// meta descriptor. A nil descriptor renders as empty text.
func TranslateMeta(desc domain.ColumnDescriptor) (string, error) {
	if len(desc) == 0 {
		return "", nil
	}

	var constraints, indexes []*domain.OrderedMap
	for _, op := range desc {
		switch o := op.(type) {
		case domain.ExtraOptions:
			for _, k := range o.Options.Keys() {
				v, _ := o.Options.Get(k)
				switch k {
				case domain.TagConstraints, domain.TagIndexes:
					items, err := domain.AsObjectList(v)
					if err != nil {
						return "", &kerrors.TranslationError{Tag: op.Tag(), Args: op.Args(), Reason: k + ": " + err.Error()}
					}
					if k == domain.TagConstraints {
						constraints = items
					} else {
						indexes = items
					}
				}
			}
		case domain.Constraints:
			constraints = o.Items
		case domain.Indexes:
			indexes = o.Items
		default:
			return "", &kerrors.TranslationError{Tag: op.Tag(), Args: op.Args(), Reason: "no meta processor"}
		}
	}

	var code []string
	if len(constraints) > 0 {
		code = append(code, "\n        constraints = [")
		for _, c := range constraints {
			line, err := constraintCode(c)
			if err != nil {
				return "", err
			}
			code = append(code, "            "+line)
		}
		code = append(code, "        ]")
	}
	if len(indexes) > 0 {
		code = append(code, "\n        indexes = [")
		for _, idx := range indexes {
			line, err := indexCode(idx)
			if err != nil {
				return "", err
			}
			code = append(code, "            "+line)
		}
		code = append(code, "        ]")
	}
	return strings.Join(code, "\n"), nil
}

func constraintCode(c *domain.OrderedMap) (string, error) {
	kind := stringField(c, "type")
	name := stringField(c, "name")
	if name == "" {
		return "", metaError("constraint", kind, "name is required")
	}
	switch strings.TrimPrefix(kind, "models.") {
	case "CheckConstraint", "check":
		check := stringField(c, "check")
		if check == "" {
			return "", metaError("constraint", kind, "check expression is required")
		}
		return fmt.Sprintf("models.CheckConstraint(check=%s, name=%q),", check, name), nil
	case "UniqueConstraint", "unique":
		fields, _ := c.Get("fields")
		condition := stringField(c, "condition")
		if condition == "" {
			condition = "None"
		}
		return fmt.Sprintf("models.UniqueConstraint(fields=%s, condition=%s, name=%q),", pyRepr(fields), condition, name), nil
	}
	return "", metaError("constraint", kind, "unknown constraint type")
}

func indexCode(idx *domain.OrderedMap) (string, error) {
	kind := stringField(idx, "type")
	if kind == "" {
		return "", metaError("index", kind, "no type")
	}
	if !indexKinds[strings.TrimPrefix(kind, "models.")] {
		return "", metaError("index", kind, "unknown index type")
	}
	var parts []string
	if exprs, ok := idx.Get("expressions"); ok {
		parts = append(parts, "*"+pyRepr(exprs))
	}
	for _, option := range []string{"fields", "opclasses", "name"} {
		if v, ok := idx.Get(option); ok {
			parts = append(parts, option+"="+pyRepr(v))
		}
	}
	return fmt.Sprintf("%s(%s),", kind, strings.Join(parts, ", ")), nil
}

func stringField(m *domain.OrderedMap, key string) string {
	v, ok := m.Get(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func metaError(what, kind, reason string) error {
	return &kerrors.TranslationError{Reason: fmt.Sprintf("%s %q: %s", what, kind, reason)}
}
