package tsql

import (
	"errors"
	"reflect"

	"github.com/gopsql/db"
)

var (
	// ErrDecode matches every *DecodeError with errors.Is.
	ErrDecode        = errors.New("decode failed")
	ErrMissingColumn = errors.New("column missing in result")
)

// DecodeError is returned when a row cannot be parsed into a record.
type DecodeError struct {
	Table  string
	Column string // empty if unknown
	Err    error
}

func (e *DecodeError) Error() string {
	msg := "tsql: decode " + e.Table
	if e.Column != "" {
		msg += "." + e.Column
	}
	return msg + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// ParseRow parses the current row of a db.Rows (or a db.Row whose column
// names are known) into a record. Values are matched to struct fields by
// column name, so the order of columns does not matter. Columns not
// belonging to the entity are discarded.
func (e *Entity[M]) ParseRow(columns []string, row db.Scannable) (M, error) {
	var m M
	err := e.parseRow(reflect.ValueOf(&m).Elem(), columns, row)
	return m, err
}

func (t *table) parseRow(rv reflect.Value, columns []string, scannable db.Scannable) error {
	dests := make([]interface{}, len(columns))
	found := make([]bool, len(t.fields))
	for i, column := range columns {
		if j, ok := t.byColumn[column]; ok && !found[j] {
			dests[i] = t.fieldAddr(rv, j)
			found[j] = true
			continue
		}
		dests[i] = new(interface{})
	}
	for j, ok := range found {
		if !ok {
			return &DecodeError{Table: t.name, Column: t.fields[j].ColumnName, Err: ErrMissingColumn}
		}
	}
	if err := scannable.Scan(dests...); err != nil {
		return &DecodeError{Table: t.name, Err: err}
	}
	return nil
}
