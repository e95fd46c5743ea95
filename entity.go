package tsql

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"
	"unsafe"
)

type (
	// Entity is a database table described by the struct M. Table name is
	// inferred from the name of the struct, the tag of __TABLE_NAME__ field
	// or its TableName() receiver. Column names are inferred from struct
	// field names or their "column" tags. The primary key is the column
	// tagged with the "pk" option, for example `column:"uid,pk"`, or the
	// "id" column.
	Entity[M any] struct {
		*table
	}

	table struct {
		name       string
		structType reflect.Type
		fields     []Field
		paths      [][]int
		byColumn   map[string]int
		primaryKey int

		mu        sync.RWMutex
		relations []*relation
	}

	// Table is implemented by every *Entity.
	Table interface {
		TableName() string
		ColumnNames() []string
		PrimaryKey() ColumnName
		info() *table
	}

	Field struct {
		Name       string       // struct field name
		ColumnName string       // column name in database
		JsonName   string       // key name in json input and output
		DataType   string       // data type in database
		PrimaryKey bool         // true for the primary key column
		Exported   bool         // false if field name is lower case (unexported)
		Type       reflect.Type // Go type of the struct field
	}
)

var (
	ErrNotStruct           = errors.New("entity must be a struct")
	ErrDuplicateColumn     = errors.New("duplicate column name")
	ErrMissingPrimaryKey   = errors.New("missing primary key")
	ErrMultiplePrimaryKeys = errors.New("more than one primary key")
	ErrUnsupportedType     = errors.New("type cannot be encoded or decoded by database drivers")
	ErrNoColumn            = errors.New("no such column")
	ErrColumnType          = errors.New("column type does not match struct field type")
)

var (
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
	valuerType  = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
	timeType    = reflect.TypeOf(time.Time{})
)

// Define creates an Entity from struct M. Errors are returned for duplicate
// column names, a missing primary key and field types database drivers
// cannot handle.
func Define[M any]() (*Entity[M], error) {
	var zero M
	rt := reflect.TypeOf(zero)
	if rt == nil || rt.Kind() != reflect.Struct {
		return nil, ErrNotStruct
	}
	t := &table{
		name:       ToTableName(zero),
		structType: rt,
		byColumn:   map[string]int{},
		primaryKey: -1,
	}
	if err := t.parseStruct(rt, nil); err != nil {
		return nil, fmt.Errorf("table %s: %w", t.name, err)
	}
	if t.primaryKey == -1 {
		if i, ok := t.byColumn["id"]; ok {
			t.primaryKey = i
			t.fields[i].PrimaryKey = true
		} else {
			return nil, fmt.Errorf("table %s: %w", t.name, ErrMissingPrimaryKey)
		}
	}
	for i := range t.fields {
		if t.fields[i].DataType == "" {
			t.fields[i].DataType = FieldDataType(t.fields[i].Type.String(), t.fields[i].PrimaryKey)
		}
	}
	return &Entity[M]{t}, nil
}

// MustDefine is like Define but panics if definition fails.
func MustDefine[M any]() *Entity[M] {
	e, err := Define[M]()
	if err != nil {
		panic(err)
	}
	return e
}

func (t *table) parseStruct(rt reflect.Type, path []int) error {
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		fieldPath := append(append([]int{}, path...), i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct && f.Tag.Get("column") == "" {
			if err := t.parseStruct(f.Type, fieldPath); err != nil {
				return err
			}
			continue
		}

		columnName := f.Tag.Get("column")
		if columnName == "-" {
			continue
		}
		var options []string
		if idx := strings.Index(columnName, ","); idx != -1 {
			options = strings.Split(columnName[idx+1:], ",")
			columnName = columnName[:idx]
		}
		if columnName == "" {
			if f.PkgPath != "" {
				continue // ignore unexported field if no column specified
			}
			columnName = ToColumnName(f.Name)
		}
		if _, ok := t.byColumn[columnName]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateColumn, columnName)
		}
		if !Encodable(f.Type) {
			return fmt.Errorf("%w: %s (%s)", ErrUnsupportedType, columnName, f.Type)
		}

		jsonName := f.Tag.Get("json")
		if jsonName == "-" {
			jsonName = ""
		} else {
			if idx := strings.Index(jsonName, ","); idx != -1 {
				jsonName = jsonName[:idx]
			}
			if jsonName == "" {
				jsonName = f.Name
			}
		}

		field := Field{
			Name:       f.Name,
			ColumnName: columnName,
			JsonName:   jsonName,
			DataType:   f.Tag.Get("dataType"),
			Exported:   f.PkgPath == "",
			Type:       f.Type,
		}
		for _, o := range options {
			if strings.TrimSpace(o) != "pk" {
				continue
			}
			if t.primaryKey != -1 {
				return fmt.Errorf("%w: %s, %s", ErrMultiplePrimaryKeys,
					t.fields[t.primaryKey].ColumnName, columnName)
			}
			field.PrimaryKey = true
			t.primaryKey = len(t.fields)
		}
		t.byColumn[columnName] = len(t.fields)
		t.fields = append(t.fields, field)
		t.paths = append(t.paths, fieldPath)
	}
	return nil
}

// Encodable reports whether values of the type can be passed to and read
// from database drivers: booleans, numbers, strings, byte slices,
// time.Time, types implementing both sql.Scanner and driver.Valuer, and
// pointers to any of them.
func Encodable(rt reflect.Type) bool {
	if rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt == timeType {
		return true
	}
	if reflect.PointerTo(rt).Implements(scannerType) &&
		(rt.Implements(valuerType) || reflect.PointerTo(rt).Implements(valuerType)) {
		return true
	}
	switch rt.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Slice:
		return rt.Elem().Kind() == reflect.Uint8
	}
	return false
}

func (t *table) info() *table {
	return t
}

func (t *table) String() string {
	return `entity (table: "` + t.name + `") has ` +
		strconv.Itoa(len(t.fields)) + " columns"
}

// Table name of the Entity (see ToTableName()).
func (t *table) TableName() string {
	return t.name
}

// Type name of the struct of the Entity.
func (t *table) TypeName() string {
	return t.structType.Name()
}

// Column names in declaration order.
func (t *table) ColumnNames() []string {
	out := make([]string, len(t.fields))
	for i, f := range t.fields {
		out[i] = f.ColumnName
	}
	return out
}

// PrimaryKey returns the qualified name of the primary key column.
func (t *table) PrimaryKey() ColumnName {
	return t.column(t.primaryKey)
}

// Fields returns a copy of all fields in declaration order.
func (t *table) Fields() []Field {
	return append([]Field{}, t.fields...)
}

// Get field by column name, nil will be returned if no such field.
func (t *table) FieldByColumn(name string) *Field {
	if i, ok := t.byColumn[name]; ok {
		f := t.fields[i]
		return &f
	}
	return nil
}

// Get field by struct field name, nil will be returned if no such field.
func (t *table) FieldByName(name string) *Field {
	for _, f := range t.fields {
		if f.Name == name {
			return &f
		}
	}
	return nil
}

func (t *table) column(i int) ColumnName {
	return ColumnName{Table: t.name, Column: t.fields[i].ColumnName}
}

// Generate CREATE TABLE SQL statement from an Entity. Data types come from
// the "dataType" tag or FieldDataType(). Foreign keys of relations declared
// with this entity as the owning side are added as REFERENCES clauses.
//
//	CREATE TABLE entity (
//		id text PRIMARY KEY,
//		name text NOT NULL,
//		other_entity_id text REFERENCES other_entity (id)
//	);
func (t *table) Schema() string {
	refs := map[string]string{}
	for _, r := range t.ownedRelations() {
		refs[r.fk.Column] = " REFERENCES " + r.target.name + " (" + r.target.fields[r.target.primaryKey].ColumnName + ")"
	}
	sql := make([]string, 0, len(t.fields))
	for _, f := range t.fields {
		sql = append(sql, "\t"+f.ColumnName+" "+f.DataType+refs[f.ColumnName])
	}
	return "CREATE TABLE " + t.name + " (\n" + strings.Join(sql, ",\n") + "\n);\n"
}

// Generate DROP TABLE ("DROP TABLE IF EXISTS <table_name>;") SQL statement
// from an Entity.
func (t *table) DropSchema() string {
	return "DROP TABLE IF EXISTS " + t.name + ";\n"
}

// returns address of the field in a struct value
func (t *table) fieldAddr(structValue reflect.Value, i int) interface{} {
	value := structValue.FieldByIndex(t.paths[i])
	if value.CanInterface() {
		return value.Addr().Interface()
	}
	return reflect.NewAt(value.Type(), unsafe.Pointer(value.UnsafeAddr())).Interface()
}

// returns value of the field in a struct value
func (t *table) fieldValue(structValue reflect.Value, i int) interface{} {
	return reflect.ValueOf(t.fieldAddr(structValue, i)).Elem().Interface()
}
