package translator

import "strings"

const defaultSourceSchema = "public"

var pythonKeywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true, "class": true,
	"continue": true, "def": true, "del": true, "elif": true, "else": true,
	"except": true, "finally": true, "for": true, "from": true, "global": true,
	"if": true, "import": true, "in": true, "is": true, "lambda": true,
	"nonlocal": true, "not": true, "or": true, "pass": true, "raise": true,
	"return": true, "try": true, "while": true, "with": true, "yield": true,
}

func schemaPrefix(sourceSchema string) string {
	if sourceSchema == "" {
		sourceSchema = defaultSourceSchema
	}
	return sourceSchema + "."
}

// ClassName maps a captured table name to its model class name. An empty
// sourceSchema means "public".
//
//	ClassName("public._ContentType_Test_body", "") == "contenttype_test_body"
func ClassName(table, sourceSchema string) string {
	return strings.ToLower(strings.Trim(strings.ReplaceAll(table, schemaPrefix(sourceSchema), ""), "_"))
}

// TableName maps a captured table name to the physical table name.
func TableName(table, sourceSchema string) string {
	return strings.TrimPrefix(table, schemaPrefix(sourceSchema))
}

// FieldName maps a column key to a valid model attribute name.
//
//	FieldName("for") == "for_field"
//	FieldName("_ContentType_Test_body") == "ContentType_Test_body"
func FieldName(column string) string {
	name := strings.Trim(column, "_")
	if pythonKeywords[name] {
		return name + "_field"
	}
	return name
}
