package domain

import (
	"fmt"
	"math"

	"github.com/satishbabariya/kmigrator/internal/kerrors"
)

// Operation tags as emitted by the schema capture.
const (
	TagIncrements   = "increments"
	TagNotNullable  = "notNullable"
	TagNullable     = "nullable"
	TagPrimary      = "primary"
	TagUUID         = "uuid"
	TagText         = "text"
	TagString       = "string"
	TagBinary       = "binary"
	TagFloat        = "float"
	TagDecimal      = "decimal"
	TagBoolean      = "boolean"
	TagJSON         = "json"
	TagDate         = "date"
	TagDateTime     = "datetime"
	TagTime         = "time"
	TagTimestamp    = "timestamp"
	TagInteger      = "integer"
	TagBigInteger   = "bigInteger"
	TagUnsigned     = "unsigned"
	TagUnique       = "unique"
	TagIndex        = "index"
	TagForeign      = "foreign"
	TagReferences   = "references"
	TagInTable      = "inTable"
	TagOnDelete     = "onDelete"
	TagEnum         = "enum"
	TagDefaultTo    = "defaultTo"
	TagExtraOptions = "kmigrator"
	TagConstraints  = "constraints"
	TagIndexes      = "indexes"
)

// Operation is one (tag, args) step of a column descriptor. The set of
// implementations is closed; consumers switch over the concrete types.
type Operation interface {
	Tag() string
	Args() []any
	isOperation()
}

type base struct {
	tag  string
	args []any
}

func (b base) Tag() string { return b.tag }
func (b base) Args() []any { return b.args }
func (base) isOperation()  {}

type (
	// Increments declares an auto-increment integer column.
	Increments struct{ base }
	// NotNullable forbids NULL and blank values.
	NotNullable struct{ base }
	// Nullable allows NULL and blank values.
	Nullable struct{ base }
	// Primary marks the column as the primary key.
	Primary struct{ base }
	// UUID declares a UUID column.
	UUID struct{ base }
	// Text declares an unbounded text column.
	Text struct{ base }
	// String declares a bounded text column.
	String struct {
		base
		MaxLength int64
	}
	// Binary declares a binary column.
	Binary struct {
		base
		MaxLength int64
	}
	// Decimal declares a fixed-precision numeric column. Both float and
	// decimal captures produce it.
	Decimal struct {
		base
		Precision int64
		Scale     int64
	}
	// Boolean declares a boolean column.
	Boolean struct{ base }
	// JSON declares a structured JSON column.
	JSON struct{ base }
	// Date declares a date column.
	Date struct{ base }
	// DateTime declares a date-time column. Both datetime and timestamp captures produce it.
	DateTime struct {
		base
		UseTZ bool
	}
	// Time declares a time-of-day column.
	Time struct{ base }
	// Integer declares an integer column.
	Integer struct{ base }
	// BigInteger declares a 64-bit integer column.
	BigInteger struct{ base }
	// Unsigned declares a non-negative integer column.
	Unsigned struct{ base }
	// Unique adds a uniqueness constraint.
	Unique struct{ base }
	// Index requests an index on the column.
	Index struct{ base }
	// Foreign turns the column into a foreign key.
	Foreign struct{ base }
	// References sets the referenced column of a foreign key.
	References struct {
		base
		Column string
	}
	// InTable sets the referenced table of a foreign key.
	InTable struct {
		base
		Table string
	}
	// OnDelete sets the foreign key delete action.
	OnDelete struct {
		base
		Action string
	}
	// Enum restricts the column to a list of values.
	Enum struct {
		base
		Values []any
	}
	// DefaultTo sets the column default.
	DefaultTo struct {
		base
		Value any
	}
	// ExtraOptions merges arbitrary attributes into the directive.
	ExtraOptions struct {
		base
		Options *OrderedMap
	}
	// Constraints carries table-level constraint definitions.
	Constraints struct {
		base
		Items []*OrderedMap
	}
	// Indexes carries table-level index definitions.
	Indexes struct {
		base
		Items []*OrderedMap
	}
)

// ParseOperation builds the typed operation for a raw (tag, args) pair.
func ParseOperation(tag string, args []any) (Operation, error) {
	b := base{tag: tag, args: args}
	bad := func(reason string) error {
		return &kerrors.TranslationError{Tag: tag, Args: args, Reason: reason}
	}
	switch tag {
	case TagIncrements:
		return Increments{b}, nil
	case TagNotNullable:
		return NotNullable{b}, nil
	case TagNullable:
		return Nullable{b}, nil
	case TagPrimary:
		return Primary{b}, nil
	case TagUUID:
		return UUID{b}, nil
	case TagText:
		return Text{b}, nil
	case TagString, TagBinary:
		n := int64(255)
		if len(args) > 0 && args[0] != nil {
			v, ok := asInt(args[0])
			if !ok {
				return nil, bad("length must be an integer")
			}
			n = v
		}
		if tag == TagBinary {
			return Binary{b, n}, nil
		}
		return String{b, n}, nil
	case TagFloat, TagDecimal:
		p, s := int64(8), int64(2)
		if len(args) > 0 && args[0] != nil {
			v, ok := asInt(args[0])
			if !ok {
				return nil, bad("precision must be an integer")
			}
			p = v
		}
		if len(args) > 1 && args[1] != nil {
			v, ok := asInt(args[1])
			if !ok {
				return nil, bad("scale must be an integer")
			}
			s = v
		}
		return Decimal{b, p, s}, nil
	case TagBoolean:
		return Boolean{b}, nil
	case TagJSON:
		return JSON{b}, nil
	case TagDate:
		return Date{b}, nil
	case TagDateTime:
		return DateTime{base: b}, nil
	case TagTimestamp:
		useTZ := false
		if len(args) > 0 {
			useTZ, _ = args[0].(bool)
		}
		return DateTime{b, useTZ}, nil
	case TagTime:
		return Time{b}, nil
	case TagInteger:
		return Integer{b}, nil
	case TagBigInteger:
		return BigInteger{b}, nil
	case TagUnsigned:
		return Unsigned{b}, nil
	case TagUnique:
		return Unique{b}, nil
	case TagIndex:
		return Index{b}, nil
	case TagForeign:
		return Foreign{b}, nil
	case TagReferences, TagInTable, TagOnDelete:
		if len(args) != 1 {
			return nil, bad("expected exactly one argument")
		}
		s, ok := args[0].(string)
		if !ok {
			return nil, bad("argument must be a string")
		}
		switch tag {
		case TagReferences:
			return References{b, s}, nil
		case TagInTable:
			return InTable{b, s}, nil
		}
		return OnDelete{b, s}, nil
	case TagEnum:
		if len(args) != 1 {
			return nil, bad("expected a value list")
		}
		values, ok := args[0].([]any)
		if !ok {
			return nil, bad("enum values must be a list")
		}
		if len(values) == 0 {
			return nil, bad("empty enum value list")
		}
		return Enum{b, values}, nil
	case TagDefaultTo:
		if len(args) != 1 {
			return nil, bad("expected exactly one argument")
		}
		return DefaultTo{b, args[0]}, nil
	case TagExtraOptions:
		if len(args) != 1 {
			return nil, bad("expected an options object")
		}
		opts, ok := args[0].(*OrderedMap)
		if !ok {
			return nil, bad("options must be an object")
		}
		return ExtraOptions{b, opts}, nil
	case TagConstraints, TagIndexes:
		if len(args) != 1 {
			return nil, bad("expected a definition list")
		}
		items, err := asObjectList(args[0])
		if err != nil {
			return nil, bad(err.Error())
		}
		if tag == TagConstraints {
			return Constraints{b, items}, nil
		}
		return Indexes{b, items}, nil
	}
	return nil, &kerrors.TranslationError{Tag: tag, Args: args}
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		if n == math.Trunc(n) {
			return int64(n), true
		}
	}
	return 0, false
}

// AsObjectList converts a decoded list value into a list of objects.
func AsObjectList(v any) ([]*OrderedMap, error) {
	return asObjectList(v)
}

func asObjectList(v any) ([]*OrderedMap, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
	items := make([]*OrderedMap, 0, len(list))
	for i, item := range list {
		m, ok := item.(*OrderedMap)
		if !ok {
			return nil, fmt.Errorf("item %d: expected an object, got %T", i, item)
		}
		items = append(items, m)
	}
	return items, nil
}
