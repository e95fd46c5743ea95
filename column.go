package tsql

import (
	"fmt"
	"reflect"
)

type (
	// Column is a typed accessor of one column of the Entity of M. T is the
	// Go type of the struct field the column is read into.
	//
	//	var (
	//		Users     = tsql.MustDefine[User]()
	//		UserName  = tsql.MustColumn[User, string](Users, "name")
	//		UserAge   = tsql.MustColumn[User, *int](Users, "age")
	//	)
	//	Users.Find().Filter(UserName.Like("A%").And(UserAge.IsNotNull()))
	Column[M any, T any] struct {
		entity *Entity[M]
		index  int
	}
)

// NewColumn creates a column accessor. ErrNoColumn is returned if the entity
// has no such column and ErrColumnType is returned if T is not the type of
// the struct field.
func NewColumn[M any, T any](e *Entity[M], name string) (Column[M, T], error) {
	i, ok := e.byColumn[name]
	if !ok {
		return Column[M, T]{}, fmt.Errorf("table %s: %w: %s", e.name, ErrNoColumn, name)
	}
	want := reflect.TypeOf((*T)(nil)).Elem()
	if got := e.fields[i].Type; got != want {
		return Column[M, T]{}, fmt.Errorf("table %s: %w: %s is %s, not %s",
			e.name, ErrColumnType, name, got, want)
	}
	return Column[M, T]{entity: e, index: i}, nil
}

// MustColumn is like NewColumn but panics if the column is invalid.
func MustColumn[M any, T any](e *Entity[M], name string) Column[M, T] {
	c, err := NewColumn[M, T](e, name)
	if err != nil {
		panic(err)
	}
	return c
}

// Entity the column belongs to.
func (c Column[M, T]) Entity() *Entity[M] {
	return c.entity
}

// Name of the column in database.
func (c Column[M, T]) Name() string {
	return c.entity.fields[c.index].ColumnName
}

// FullName returns the column name qualified by its table name.
func (c Column[M, T]) FullName() ColumnName {
	return c.entity.column(c.index)
}

// Field returns the struct field of the column.
func (c Column[M, T]) Field() Field {
	return c.entity.fields[c.index]
}

func (c Column[M, T]) PushTo(s *Statement) {
	c.FullName().PushTo(s)
}

// Get returns the value of the column in record m.
func (c Column[M, T]) Get(m M) T {
	rv := reflect.ValueOf(&m).Elem()
	return *c.entity.fieldAddr(rv, c.index).(*T)
}

// Set changes the value of the column in record m.
func (c Column[M, T]) Set(m *M, value T) {
	rv := reflect.ValueOf(m).Elem()
	*c.entity.fieldAddr(rv, c.index).(*T) = value
}

func (c Column[M, T]) binary(op Operator, right Expr) Condition[M] {
	return Condition[M]{c.entity.table, BinaryExpr{c, op, right}}
}

// Eq renders "column = value".
func (c Column[M, T]) Eq(value T) Condition[M] {
	return c.binary(OpEquals, Var{value})
}

// NotEq renders "column != value".
func (c Column[M, T]) NotEq(value T) Condition[M] {
	return c.binary(OpNotEquals, Var{value})
}

// Gt renders "column > value".
func (c Column[M, T]) Gt(value T) Condition[M] {
	return c.binary(OpGt, Var{value})
}

// Lt renders "column < value".
func (c Column[M, T]) Lt(value T) Condition[M] {
	return c.binary(OpLt, Var{value})
}

// Geq renders "column >= value".
func (c Column[M, T]) Geq(value T) Condition[M] {
	return c.binary(OpGeq, Var{value})
}

// Leq renders "column <= value".
func (c Column[M, T]) Leq(value T) Condition[M] {
	return c.binary(OpLeq, Var{value})
}

// Like renders "column LIKE pattern". The pattern is a bind value.
func (c Column[M, T]) Like(pattern string) Condition[M] {
	return c.binary(OpLike, Var{pattern})
}

// ILike renders "column ILIKE pattern". The pattern is a bind value.
func (c Column[M, T]) ILike(pattern string) Condition[M] {
	return c.binary(OpILike, Var{pattern})
}

// IsNull renders "column IS NULL".
func (c Column[M, T]) IsNull() Condition[M] {
	return Condition[M]{c.entity.table, SingletonExpr{c, OpIsNull}}
}

// IsNotNull renders "column IS NOT NULL".
func (c Column[M, T]) IsNotNull() Condition[M] {
	return Condition[M]{c.entity.table, SingletonExpr{c, OpIsNotNull}}
}

// In renders "column IN (v1, v2, ...)", one bind value per element in input
// order. With no values, it renders the always false "1 = 0".
func (c Column[M, T]) In(values ...T) Condition[M] {
	if len(values) == 0 {
		return Condition[M]{c.entity.table, Raw("1 = 0")}
	}
	return c.binary(OpIn, newList(values))
}

// NotIn renders "column NOT IN (v1, v2, ...)". With no values, it renders
// the always true "1 = 1".
func (c Column[M, T]) NotIn(values ...T) Condition[M] {
	if len(values) == 0 {
		return Condition[M]{c.entity.table, Raw("1 = 1")}
	}
	return c.binary(OpNotIn, newList(values))
}

// Between renders "column BETWEEN from AND to", from is bound first.
func (c Column[M, T]) Between(from, to T) Condition[M] {
	return c.binary(OpBetween, BinaryExpr{Var{from}, OpAnd, Var{to}})
}

// NotBetween renders "column NOT BETWEEN from AND to".
func (c Column[M, T]) NotBetween(from, to T) Condition[M] {
	return c.binary(OpNotBetween, BinaryExpr{Var{from}, OpAnd, Var{to}})
}

// EqColumn renders "column = other" where other is usually the column of
// another entity. No value is bound.
func (c Column[M, T]) EqColumn(other ColumnName) Condition[M] {
	return c.binary(OpEquals, other)
}

func newList[T any](values []T) List {
	list := make(List, len(values))
	for i, v := range values {
		list[i] = Var{v}
	}
	return list
}
