package gen

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/dave/jennifer/jen"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// goType is a Go type of a struct field, for example time.Time is
// goType{Path: "time", Name: "Time"}.
type goType struct {
	Path    string
	Name    string
	Slice   bool
	Pointer bool
}

var (
	typeParams = regexp.MustCompile(`\s*\(.*?\)`)
	spaces     = regexp.MustCompile(`\s+`)
)

var (
	int8Type    = goType{Name: "int8"}
	int16Type   = goType{Name: "int16"}
	int32Type   = goType{Name: "int32"}
	int64Type   = goType{Name: "int64"}
	float32Type = goType{Name: "float32"}
	float64Type = goType{Name: "float64"}
	stringType  = goType{Name: "string"}
	boolType    = goType{Name: "bool"}
	bytesType   = goType{Name: "byte", Slice: true}
	timeType    = namedType(reflect.TypeOf(time.Time{}))
	jsonType    = namedType(reflect.TypeOf(json.RawMessage{}))
	decimalType = namedType(reflect.TypeOf(decimal.Decimal{}))
	uuidType    = namedType(reflect.TypeOf(uuid.UUID{}))
)

func namedType(rt reflect.Type) goType {
	return goType{Path: rt.PkgPath(), Name: rt.Name()}
}

var sqlTypes = map[string]goType{
	"tinyint":  int8Type,
	"smallint": int16Type,
	"int2":     int16Type,

	"integer":   int32Type,
	"int":       int32Type,
	"int4":      int32Type,
	"mediumint": int32Type,
	"serial":    int32Type,

	"bigint":    int64Type,
	"int8":      int64Type,
	"bigserial": int64Type,

	"real":             float32Type,
	"float4":           float32Type,
	"float":            float32Type,
	"double":           float64Type,
	"double precision": float64Type,
	"float8":           float64Type,

	"numeric": decimalType,
	"decimal": decimalType,

	"text":              stringType,
	"tinytext":          stringType,
	"mediumtext":        stringType,
	"longtext":          stringType,
	"varchar":           stringType,
	"character varying": stringType,
	"char":              stringType,
	"character":         stringType,
	"nvarchar":          stringType,
	"nchar":             stringType,
	"citext":            stringType,
	"clob":              stringType,

	"boolean": boolType,
	"bool":    boolType,

	"date":                        timeType,
	"time":                        timeType,
	"timetz":                      timeType,
	"time without time zone":      timeType,
	"time with time zone":         timeType,
	"datetime":                    timeType,
	"timestamp":                   timeType,
	"timestamptz":                 timeType,
	"timestamp without time zone": timeType,
	"timestamp with time zone":    timeType,

	"json":  jsonType,
	"jsonb": jsonType,

	"blob":       bytesType,
	"tinyblob":   bytesType,
	"mediumblob": bytesType,
	"longblob":   bytesType,
	"bytea":      bytesType,
	"binary":     bytesType,
	"varbinary":  bytesType,

	"uuid": uuidType,
}

// typeOf returns the Go type of a SQL data type, types of nullable columns
// are pointers except for slices.
func typeOf(sqlType string, nullable bool) (goType, error) {
	key := strings.ToLower(strings.TrimSpace(sqlType))
	key = typeParams.ReplaceAllString(key, "")
	key = spaces.ReplaceAllString(key, " ")
	key = strings.TrimSuffix(key, " unsigned")
	t, ok := sqlTypes[key]
	if !ok {
		return goType{}, fmt.Errorf("%w: %q", ErrUnknownType, sqlType)
	}
	t.Pointer = nullable && !t.Slice && t != jsonType
	return t, nil
}

// parseType parses a Go type written as in source code, packages are named
// by their import paths, for example "*github.com/google/uuid.UUID".
func parseType(s string) (goType, error) {
	var t goType
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "*") {
		t.Pointer = true
		s = s[1:]
	}
	if strings.HasPrefix(s, "[]") {
		t.Slice = true
		s = s[2:]
	}
	if i := strings.LastIndex(s, "."); i != -1 {
		t.Path, s = s[:i], s[i+1:]
	}
	if s == "" || (t.Pointer && t.Slice) {
		return goType{}, fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	t.Name = s
	return t, nil
}

// base returns the type without pointer.
func (t goType) base() goType {
	t.Pointer = false
	return t
}

func (t goType) String() string {
	s := t.Name
	if t.Path != "" {
		s = t.Path + "." + s
	}
	if t.Slice {
		s = "[]" + s
	}
	if t.Pointer {
		s = "*" + s
	}
	return s
}

func (t goType) code() *jen.Statement {
	s := &jen.Statement{}
	if t.Pointer {
		s.Op("*")
	}
	if t.Slice {
		s = s.Index()
	}
	if t.Path != "" {
		return s.Qual(t.Path, t.Name)
	}
	return s.Id(t.Name)
}
