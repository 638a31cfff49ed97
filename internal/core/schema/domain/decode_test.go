package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/kmigrator/internal/kerrors"
)

func TestParseTableSchemaKeepsOrder(t *testing.T) {
	schema, err := ParseTableSchema([]byte(`{
		"Zebra": {"z": [["text"]], "a": [["integer"]]},
		"Apple": {
			"id": [["increments"], ["notNullable"]],
			"__meta": [["indexes", [{"type": "Index", "fields": ["id"], "name": "apple_id"}]]]
		}
	}`))
	require.NoError(t, err)
	require.Len(t, schema.Tables, 2)

	assert.Equal(t, "Zebra", schema.Tables[0].Name)
	assert.Equal(t, "z", schema.Tables[0].Columns[0].Name)
	assert.Equal(t, "a", schema.Tables[0].Columns[1].Name)

	apple, ok := schema.Table("Apple")
	require.True(t, ok)
	assert.Len(t, apple.Fields(), 1)
	require.Len(t, apple.Meta(), 1)
	idx, ok := apple.Meta()[0].(Indexes)
	require.True(t, ok)
	name, _ := idx.Items[0].Get("name")
	assert.Equal(t, "apple_id", name)
	assert.True(t, apple.Fields()[0].Descriptor.Has(TagIncrements))

	_, ok = schema.Table("Missing")
	assert.False(t, ok)
}

func TestParseTableSchemaEmpty(t *testing.T) {
	for _, src := range []string{"", "{}"} {
		schema, err := ParseTableSchema([]byte(src))
		require.NoError(t, err)
		assert.Empty(t, schema.Tables)
	}
}

func TestParseTableSchemaAggregatesErrors(t *testing.T) {
	_, err := ParseTableSchema([]byte(`{
		"User": {
			"a": [["mystery"]],
			"b": [["string", "long"]],
			"c": [["text"]]
		}
	}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, kerrors.ErrTranslation)
	assert.Contains(t, err.Error(), "User.a")
	assert.Contains(t, err.Error(), "User.b")
	assert.NotContains(t, err.Error(), "User.c")
}

func TestParseOperation(t *testing.T) {
	tests := []struct {
		name string
		tag  string
		args []any
		want Operation
	}{
		{"string default length", TagString, nil, String{base{TagString, nil}, 255}},
		{"string length", TagString, []any{int64(10)}, String{base{TagString, []any{int64(10)}}, 10}},
		{"float defaults", TagFloat, nil, Decimal{base{TagFloat, nil}, 8, 2}},
		{"timestamp tz", TagTimestamp, []any{true}, DateTime{base{TagTimestamp, []any{true}}, true}},
		{"references", TagReferences, []any{"id"}, References{base{TagReferences, []any{"id"}}, "id"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOperation(tt.tag, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOperationErrors(t *testing.T) {
	tests := []struct {
		tag  string
		args []any
	}{
		{"unknownThing", []any{1}},
		{TagEnum, []any{[]any{}}},
		{TagEnum, []any{"a"}},
		{TagReferences, nil},
		{TagDecimal, []any{1.5}},
		{TagExtraOptions, []any{"x"}},
		{TagConstraints, []any{[]any{"x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			_, err := ParseOperation(tt.tag, tt.args)
			assert.ErrorIs(t, err, kerrors.ErrTranslation)
		})
	}
}

func TestOrderedMap(t *testing.T) {
	m := NewOrderedMap()
	m.Set("b", 1)
	m.Set("a", 2)
	m.Set("b", 3)
	assert.Equal(t, []string{"b", "a"}, m.Keys())
	v, _ := m.Get("b")
	assert.Equal(t, 3, v)
	assert.Equal(t, 2, m.Len())

	var nilMap *OrderedMap
	assert.Zero(t, nilMap.Len())
	assert.Nil(t, nilMap.Keys())
}
