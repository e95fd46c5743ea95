package tsql

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// State of a field of an active record.
type State int

const (
	// StateNotSet: excluded from any write.
	StateNotSet State = iota
	// StateUnchanged: holds the loaded value, no write needed.
	StateUnchanged
	// StateSet: holds a new value waiting to be written.
	StateSet
)

func (s State) String() string {
	switch s {
	case StateNotSet:
		return "NotSet"
	case StateUnchanged:
		return "Unchanged"
	case StateSet:
		return "Set"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type (
	// Value is one field of an active record.
	Value[T any] struct {
		state State
		value T
	}

	// Active is a change-tracking view of a record of the Entity of M. Every
	// column has a State, only fields in StateSet are written by Update().
	Active[M any] struct {
		entity *Entity[M]
		states []State
		values []interface{}
		loaded []interface{} // values given to ToActive
	}
)

// Set returns a Value holding a new value.
func Set[T any](value T) Value[T] {
	return Value[T]{StateSet, value}
}

// Unchanged returns a Value holding a loaded value.
func Unchanged[T any](value T) Value[T] {
	return Value[T]{StateUnchanged, value}
}

// NotSet returns a Value holding nothing.
func NotSet[T any]() Value[T] {
	return Value[T]{}
}

func (v Value[T]) State() State {
	return v.state
}

// Get returns the value, false is returned if it is not set.
func (v Value[T]) Get() (T, bool) {
	return v.value, v.state != StateNotSet
}

// IsSet reports whether the value is waiting to be written.
func (v Value[T]) IsSet() bool {
	return v.state == StateSet
}

// Set changes the value and marks it Set.
func (v *Value[T]) Set(value T) {
	v.state, v.value = StateSet, value
}

// Clear removes the value and marks it NotSet.
func (v *Value[T]) Clear() {
	var zero T
	v.state, v.value = StateNotSet, zero
}

func (v Value[T]) String() string {
	if v.state == StateNotSet {
		return v.state.String()
	}
	return fmt.Sprintf("%s(%v)", v.state, v.value)
}

// ToActive converts a record to its active form, every field is Unchanged
// holding its value in the record.
func (e *Entity[M]) ToActive(m M) *Active[M] {
	a := e.NewActive()
	rv := reflect.ValueOf(&m).Elem()
	a.loaded = make([]interface{}, len(e.fields))
	for i := range e.fields {
		a.states[i] = StateUnchanged
		a.values[i] = e.fieldValue(rv, i)
		a.loaded[i] = a.values[i]
	}
	return a
}

// NewActive returns an active record with every field NotSet.
func (e *Entity[M]) NewActive() *Active[M] {
	return &Active[M]{
		entity: e,
		states: make([]State, len(e.fields)),
		values: make([]interface{}, len(e.fields)),
	}
}

// SetField changes the value of column c and marks it Set.
func SetField[M any, T any](a *Active[M], c Column[M, T], value T) *Active[M] {
	a.states[c.index] = StateSet
	a.values[c.index] = value
	return a
}

// ClearField marks column c NotSet.
func ClearField[M any, T any](a *Active[M], c Column[M, T]) *Active[M] {
	a.states[c.index] = StateNotSet
	a.values[c.index] = nil
	return a
}

// GetField returns column c of the active record.
func GetField[M any, T any](a *Active[M], c Column[M, T]) Value[T] {
	if a.states[c.index] == StateNotSet {
		return NotSet[T]()
	}
	return Value[T]{a.states[c.index], a.values[c.index].(T)}
}

// primaryKeyValue returns the primary key of the row in the database: the
// loaded value for records of ToActive, even if the primary key is Set
// since, or the current value otherwise. False is returned if there is no
// value.
func (a *Active[M]) primaryKeyValue() (interface{}, bool) {
	pk := a.entity.primaryKey
	if a.loaded != nil {
		return a.loaded[pk], true
	}
	return a.values[pk], a.states[pk] != StateNotSet
}

// Entity of the active record.
func (a *Active[M]) Entity() *Entity[M] {
	return a.entity
}

// State returns the state of a column, StateNotSet for unknown columns.
func (a *Active[M]) State(column string) State {
	if i, ok := a.entity.byColumn[column]; ok {
		return a.states[i]
	}
	return StateNotSet
}

// Changes returns fields in StateSet and their values.
func (a *Active[M]) Changes() Changes {
	out := Changes{}
	for i, state := range a.states {
		if state == StateSet {
			out[a.entity.fields[i]] = a.values[i]
		}
	}
	return out
}

// Record builds a record from fields in StateSet or StateUnchanged. Fields
// NotSet are zero values.
func (a *Active[M]) Record() M {
	var m M
	rv := reflect.ValueOf(&m).Elem()
	for i, state := range a.states {
		if state == StateNotSet {
			continue
		}
		reflect.ValueOf(a.entity.fieldAddr(rv, i)).Elem().Set(reflect.ValueOf(a.values[i]))
	}
	return m
}

// Apply sets Changes to the active record, marking their fields Set. Values
// are converted to field types through JSON if types are different, values
// that can not be converted are skipped.
func (a *Active[M]) Apply(changes Changes) *Active[M] {
	for field, value := range changes {
		i, ok := a.entity.byColumn[field.ColumnName]
		if !ok {
			continue
		}
		v, ok := convertTo(value, a.entity.fields[i].Type)
		if !ok {
			continue
		}
		a.states[i] = StateSet
		a.values[i] = v
	}
	return a
}

func (a *Active[M]) String() string {
	out := map[string]string{}
	for i, f := range a.entity.fields {
		if a.states[i] == StateNotSet {
			out[f.ColumnName] = a.states[i].String()
			continue
		}
		out[f.ColumnName] = fmt.Sprintf("%s(%v)", a.states[i], a.values[i])
	}
	j, _ := json.MarshalIndent(out, "", "  ")
	return string(j)
}

func convertTo(value interface{}, rt reflect.Type) (interface{}, bool) {
	if value == nil {
		if rt.Kind() == reflect.Ptr || rt.Kind() == reflect.Slice {
			return reflect.Zero(rt).Interface(), true
		}
		return nil, false
	}
	if reflect.TypeOf(value) == rt {
		return value, true
	}
	j, err := json.Marshal(value)
	if err != nil {
		return nil, false
	}
	x := reflect.New(rt)
	if err := json.Unmarshal(j, x.Interface()); err != nil {
		return nil, false
	}
	return x.Elem().Interface(), true
}
