package tsql

import (
	"reflect"
	"strings"
	"unicode"
)

var (
	// DefaultColumnNamer is default column naming function used when
	// calling Define. Default is ToUnderscore, which converts field name
	// to its snake_case form.
	DefaultColumnNamer func(string) string = ToUnderscore

	// DefaultTableNamer is default table naming function used when calling
	// Define. Default is ToPluralUnderscore, which converts struct name to
	// its plural snake_case form.
	DefaultTableNamer func(string) string = ToPluralUnderscore
)

const (
	tableNameField = "__TABLE_NAME__"
)

// ToTableName returns table name of a struct. If struct has "TableName()
// string" receiver method, its return value is used. If name is empty and
// struct has a __TABLE_NAME__ field, its tag value is used. If it is still
// empty, struct's name is used. If name is still empty, "error_no_table_name"
// is returned.
func ToTableName(object interface{}) (name string) {
	if o, ok := object.(interface{ TableName() string }); ok {
		name = o.TableName()
		if name != "" {
			return
		}
	}
	rt := reflect.TypeOf(object)
	if rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt.Kind() == reflect.Struct {
		if f, ok := rt.FieldByName(tableNameField); ok {
			name = string(f.Tag)
			if name != "" {
				return
			}
		}
		name = rt.Name()
		if DefaultTableNamer != nil {
			name = DefaultTableNamer(name)
		}
	}
	if name == "" { // anonymous struct has no name
		return "error_no_table_name"
	}
	return
}

// Convert a word to its plural form. Add "es" for "s" or "o" ending,
// "y" ending will be replaced with "ies", for other endings, add "s".
// For example, "product" will be converted to "products".
func ToPlural(in string) string {
	if in == "" {
		return ""
	}
	if strings.HasSuffix(in, "y") {
		return in[:len(in)-1] + "ies"
	}
	if strings.HasSuffix(in, "s") || strings.HasSuffix(in, "o") {
		return in + "es"
	}
	return in + "s"
}

// Convert a "CamelCase" word to its plural "snake_case" (underscore) form.
// For example, "PostComment" will be converted to "post_comments".
func ToPluralUnderscore(in string) string {
	return ToPlural(ToUnderscore(in))
}

// Convert "CamelCase" word to its "snake_case" (underscore) form. For example,
// "FullName" will be converted to "full_name".
func ToUnderscore(str string) string { // from govalidator
	var output []rune
	var segment []rune
	for _, r := range str {
		// not treat number as separate segment
		if !unicode.IsLower(r) && string(r) != "_" && !unicode.IsNumber(r) {
			output = addSegment(output, segment)
			segment = nil
		}
		segment = append(segment, unicode.ToLower(r))
	}
	output = addSegment(output, segment)
	return string(output)
}

func addSegment(inrune, segment []rune) []rune { // from govalidator
	if len(segment) == 0 {
		return inrune
	}
	if len(inrune) != 0 {
		inrune = append(inrune, '_')
	}
	inrune = append(inrune, segment...)
	return inrune
}

// ToColumnName converts a struct field name to a column name using
// DefaultColumnNamer. The field name is used as is if DefaultColumnNamer is
// nil.
func ToColumnName(in string) string {
	if DefaultColumnNamer == nil {
		return in
	}
	return DefaultColumnNamer(in)
}

// FieldDataType generates a database data type based on a struct field's
// type. The output only uses type names both PostgreSQL and SQLite accept.
// This is the default data type used by Schema(), use the "dataType" tag to
// customize it.
//
//	| Go Type                                        | Data Type        |
//	|------------------------------------------------|------------------|
//	| int8 / int16 / int32 / uint8 / uint16 / uint32 | integer          |
//	| int64 / uint64 / int / uint                    | bigint           |
//	| time.Time                                      | timestamp        |
//	| float32 / float64                              | double precision |
//	| decimal.Decimal                                | numeric(10, 2)   |
//	| bool                                           | boolean          |
//	| []byte / json.RawMessage                       | bytea            |
//	| other                                          | text             |
func FieldDataType(fieldType string, primaryKey bool) (dataType string) {
	var null bool
	if strings.HasPrefix(fieldType, "*") {
		fieldType = strings.TrimPrefix(fieldType, "*")
		null = true
	}
	switch fieldType {
	case "int8", "int16", "int32", "uint8", "uint16", "uint32":
		dataType = "integer"
	case "int64", "uint64", "int", "uint":
		dataType = "bigint"
	case "time.Time":
		dataType = "timestamp"
	case "float32", "float64":
		dataType = "double precision"
	case "decimal.Decimal":
		dataType = "numeric(10, 2)"
	case "bool":
		dataType = "boolean"
	case "[]uint8", "json.RawMessage":
		dataType = "bytea"
	default:
		dataType = "text"
	}
	if primaryKey {
		return dataType + " PRIMARY KEY"
	}
	if !null {
		dataType += " NOT NULL"
	}
	return
}
