// Package translator turns captured column and table descriptors into the
// model-definition text consumed by the diff oracle.
package translator

import (
	"strconv"
	"strings"

	"github.com/satishbabariya/kmigrator/internal/core/schema/domain"
	"github.com/satishbabariya/kmigrator/internal/kerrors"
)

const (
	autoPrimaryKey = "models.AutoField(primary_key=True)"
	uuidPrimaryKey = "models.UUIDField(primary_key=True)"

	enumMaxLength = 50
)

// Options controls translation.
type Options struct {
	// DisableChoices omits the enumerated-choice constraint of enum fields.
	DisableChoices bool
	// SourceSchema is the schema prefix stripped from captured table names.
	SourceSchema string
}

// TranslateField renders the field directive for one column descriptor.
// It is pure: the result depends only on its arguments.
func TranslateField(desc domain.ColumnDescriptor, fieldName string, opts Options) (string, error) {
	if len(desc) == 0 {
		return "", &kerrors.TranslationError{Reason: "empty descriptor"}
	}
	if len(desc) == 2 && desc.Has(domain.TagIncrements) && desc.Has(domain.TagNotNullable) {
		return autoPrimaryKey, nil
	}
	if desc.Has(domain.TagUUID) && desc.Has(domain.TagPrimary) {
		return uuidPrimaryKey, nil
	}

	d, err := Fold(desc, fieldName, opts)
	if err != nil {
		return "", err
	}
	return normalize(d, fieldName).String(), nil
}

// Fold applies every operation left to right over the default directive.
func Fold(desc domain.ColumnDescriptor, fieldName string, opts Options) (FieldDirective, error) {
	d := newDirective(ClassJSON).
		with(attrIndex, Bool(false)).
		with(attrUnique, Bool(false)).
		with(attrNull, Bool(true)).
		with(attrBlank, Bool(true))
	if fieldName != "" {
		d = d.with(attrColumn, Quoted(fieldName))
	}
	for _, op := range desc {
		next, err := apply(d, op, opts)
		if err != nil {
			return FieldDirective{}, err
		}
		d = next
	}
	return d, nil
}

func apply(d FieldDirective, op domain.Operation, opts Options) (FieldDirective, error) {
	switch o := op.(type) {
	case domain.Increments:
		return d.withClass(ClassAuto).
			with(attrNull, Bool(false)).
			with(attrBlank, Bool(false)).
			with(attrPrimaryKey, Bool(true)), nil
	case domain.NotNullable:
		return d.with(attrNull, Bool(false)).with(attrBlank, Bool(false)), nil
	case domain.Nullable:
		return d.with(attrNull, Bool(true)).with(attrBlank, Bool(true)), nil
	case domain.Primary:
		return d.with(attrPrimaryKey, Bool(true)), nil
	case domain.UUID:
		return d.withClass(ClassUUID), nil
	case domain.Text:
		return d.withClass(ClassText), nil
	case domain.String:
		return d.withClass(ClassChar).with(attrMaxLength, Literal{o.MaxLength}), nil
	case domain.Binary:
		return d.withClass(ClassBinary).with(attrMaxLength, Literal{o.MaxLength}), nil
	case domain.Decimal:
		return d.withClass(ClassDecimal).
			with(attrMaxDigits, Literal{o.Precision}).
			with(attrDecimalPlaces, Literal{o.Scale}), nil
	case domain.Boolean:
		return d.withClass(ClassBoolean), nil
	case domain.JSON:
		return d.withClass(ClassJSON), nil
	case domain.Date:
		return d.withClass(ClassDate), nil
	case domain.DateTime:
		return d.withClass(ClassDateTime), nil
	case domain.Time:
		return d.withClass(ClassTime), nil
	case domain.Integer:
		return d.withClass(ClassInteger), nil
	case domain.BigInteger:
		return d.withClass(ClassBigInteger), nil
	case domain.Unsigned:
		return d.withClass(ClassPositiveInt), nil
	case domain.Unique:
		return d.with(attrUnique, Bool(true)), nil
	case domain.Index:
		return d.with(attrIndex, Bool(true)), nil
	case domain.Foreign:
		return d.withClass(ClassForeignKey).
			with(attrOnDelete, Raw("models.DO_NOTHING")).
			with(attrRelatedName, Quoted("+")), nil
	case domain.References:
		return d.withClass(ClassForeignKey).with(attrToField, Quoted(o.Column)), nil
	case domain.InTable:
		return d.withClass(ClassForeignKey).with(attrTo, Quoted(ClassName(o.Table, opts.SourceSchema))), nil
	case domain.OnDelete:
		return d.withClass(ClassForeignKey).with(attrOnDelete, Raw("models."+onDeleteAction(o.Action))), nil
	case domain.Enum:
		return applyEnum(d, o, opts), nil
	case domain.DefaultTo:
		return d.with(attrDefault, Literal{o.Value}), nil
	case domain.ExtraOptions:
		for _, k := range o.Options.Keys() {
			v, _ := o.Options.Get(k)
			d = d.with(k, extraOption(v))
		}
		return d, nil
	case domain.Constraints, domain.Indexes:
		return d, &kerrors.TranslationError{Tag: op.Tag(), Args: op.Args(), Reason: "table-level operation on a field"}
	}
	return d, &kerrors.TranslationError{Tag: op.Tag(), Args: op.Args()}
}

func applyEnum(d FieldDirective, o domain.Enum, opts Options) FieldDirective {
	numeric := true
	for _, v := range o.Values {
		if _, ok := v.(int64); !ok {
			numeric = false
			break
		}
	}
	choices := make([]any, len(o.Values))
	if numeric {
		for i, v := range o.Values {
			choices[i] = []any{v, strconv.FormatInt(v.(int64), 10)}
		}
		d = d.withClass(ClassInteger)
	} else {
		for i, v := range o.Values {
			choices[i] = []any{v, v}
		}
		d = d.withClass(ClassChar).with(attrMaxLength, Literal{int64(enumMaxLength)})
	}
	if opts.DisableChoices {
		return d.without(attrChoices)
	}
	return d.with(attrChoices, Literal{choices})
}

// onDeleteAction maps a referential action to the model deletion handler.
func onDeleteAction(action string) string {
	a := strings.ToUpper(strings.Join(strings.Fields(action), "_"))
	switch a {
	case "NO_ACTION":
		return "DO_NOTHING"
	}
	return a
}

func normalize(d FieldDirective, fieldName string) FieldDirective {
	isFK := d.Class() == ClassForeignKey

	idx, _ := d.Get(attrIndex)
	if !((isBool(idx, true) && !isFK) || (isBool(idx, false) && isFK)) {
		d = d.without(attrIndex)
	}
	if v, ok := d.Get(attrUnique); ok && isBool(v, false) {
		d = d.without(attrUnique)
	}
	null, _ := d.Get(attrNull)
	blank, _ := d.Get(attrBlank)
	if isBool(null, false) && isBool(blank, false) {
		d = d.without(attrNull, attrBlank)
	}
	if v, ok := d.Get(attrToField); ok && v.Render() == Quoted("id").Render() {
		d = d.without(attrToField)
	}
	if _, ok := d.Get(attrColumn); ok && fieldName == FieldName(fieldName) && !isFK {
		d = d.without(attrColumn)
	}
	return d
}
