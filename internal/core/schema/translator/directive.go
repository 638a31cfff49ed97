package translator

import "strings"

// Attribute keys of a field directive.
const (
	attrIndex         = "db_index"
	attrUnique        = "unique"
	attrNull          = "null"
	attrBlank         = "blank"
	attrColumn        = "db_column"
	attrMaxLength     = "max_length"
	attrMaxDigits     = "max_digits"
	attrDecimalPlaces = "decimal_places"
	attrOnDelete      = "on_delete"
	attrRelatedName   = "related_name"
	attrToField       = "to_field"
	attrTo            = "to"
	attrChoices       = "choices"
	attrDefault       = "default"
	attrPrimaryKey    = "primary_key"
)

// Field classes.
const (
	ClassAuto        = "models.AutoField"
	ClassUUID        = "models.UUIDField"
	ClassText        = "models.TextField"
	ClassChar        = "models.CharField"
	ClassBinary      = "models.BinaryField"
	ClassDecimal     = "models.DecimalField"
	ClassBoolean     = "models.BooleanField"
	ClassJSON        = "JSONField"
	ClassDate        = "models.DateField"
	ClassDateTime    = "models.DateTimeField"
	ClassTime        = "models.TimeField"
	ClassInteger     = "models.IntegerField"
	ClassBigInteger  = "models.BigIntegerField"
	ClassPositiveInt = "models.PositiveIntegerField"
	ClassForeignKey  = "models.ForeignKey"
)

type attribute struct {
	key   string
	value Value
}

// FieldDirective is an immutable field description. Every with/without call
// returns a new directive; attributes keep the position of their first set.
type FieldDirective struct {
	class string
	attrs []attribute
}

func newDirective(class string) FieldDirective {
	return FieldDirective{class: class}
}

// Class returns the field class.
func (d FieldDirective) Class() string { return d.class }

// Get returns an attribute value.
func (d FieldDirective) Get(key string) (Value, bool) {
	for _, a := range d.attrs {
		if a.key == key {
			return a.value, true
		}
	}
	return nil, false
}

func (d FieldDirective) withClass(class string) FieldDirective {
	return FieldDirective{class: class, attrs: d.attrs}
}

func (d FieldDirective) with(key string, v Value) FieldDirective {
	attrs := make([]attribute, len(d.attrs), len(d.attrs)+1)
	copy(attrs, d.attrs)
	for i := range attrs {
		if attrs[i].key == key {
			attrs[i].value = v
			return FieldDirective{class: d.class, attrs: attrs}
		}
	}
	return FieldDirective{class: d.class, attrs: append(attrs, attribute{key, v})}
}

func (d FieldDirective) without(keys ...string) FieldDirective {
	attrs := make([]attribute, 0, len(d.attrs))
next:
	for _, a := range d.attrs {
		for _, k := range keys {
			if a.key == k {
				continue next
			}
		}
		attrs = append(attrs, a)
	}
	return FieldDirective{class: d.class, attrs: attrs}
}

// String renders the directive as class(attr=value, ...).
func (d FieldDirective) String() string {
	parts := make([]string, len(d.attrs))
	for i, a := range d.attrs {
		parts[i] = a.key + "=" + a.value.Render()
	}
	return d.class + "(" + strings.Join(parts, ", ") + ")"
}
