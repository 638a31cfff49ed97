package translator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/satishbabariya/kmigrator/internal/core/schema/domain"
)

// Value is a rendered attribute value.
type Value interface {
	Render() string
}

// Raw is emitted verbatim as a code token.
type Raw string

// Render implements Value.
func (r Raw) Render() string { return string(r) }

// Literal is emitted as a literal: strings and lists are JSON encoded,
// booleans and null use the target language tokens, numbers stay bare.
type Literal struct{ V any }

// Render implements Value.
func (l Literal) Render() string { return renderLiteral(l.V) }

// Bool returns a boolean literal.
func Bool(b bool) Value { return Literal{b} }

// Quoted returns a string literal.
func Quoted(s string) Value { return Literal{s} }

func isBool(v Value, want bool) bool {
	l, ok := v.(Literal)
	if !ok {
		return false
	}
	b, ok := l.V.(bool)
	return ok && b == want
}

func renderLiteral(v any) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case bool:
		if t {
			return "True"
		}
		return "False"
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return jsonLiteral(v)
}

func jsonLiteral(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(toJSON(v)); err != nil {
		return fmt.Sprintf("%q", fmt.Sprint(v))
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// toJSON converts ordered maps into a shape encoding/json understands.
func toJSON(v any) any {
	switch t := v.(type) {
	case *domain.OrderedMap:
		return orderedJSON{t}
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = toJSON(item)
		}
		return out
	}
	return v
}

type orderedJSON struct{ m *domain.OrderedMap }

func (o orderedJSON) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.m.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		v, _ := o.m.Get(k)
		val, err := json.Marshal(toJSON(v))
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// extraOption converts a free-form option into a Value. Strings are code
// tokens (e.g. "models.CASCADE"); everything else is a literal.
func extraOption(v any) Value {
	if s, ok := v.(string); ok {
		return Raw(s)
	}
	return Literal{v}
}

// pyRepr renders strings and lists of strings the way Python's repr does.
func pyRepr(v any) string {
	switch t := v.(type) {
	case string:
		r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`)
		return "'" + r.Replace(t) + "'"
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = pyRepr(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *domain.OrderedMap:
		keys := t.Keys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			item, _ := t.Get(k)
			parts[i] = pyRepr(k) + ": " + pyRepr(item)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return renderLiteral(v)
}
