package tsql

import (
	"context"
	"errors"

	"github.com/gopsql/db"
	"github.com/gopsql/logger"
)

var ErrNoPrimaryKey = errors.New("primary key is not set")

type (
	// UpdateSQL can be created with Active.Update().
	UpdateSQL[M any] struct {
		active      *Active[M]
		conditions  []Expr
		logger      logger.Logger
		placeholder Placeholder
		err         error
	}
)

// Update builds an UPDATE statement of the record identified by its primary
// key, setting only fields in StateSet. Fields Unchanged or NotSet are not
// written. The statement is empty if no field is Set.
//
//	a := users.ToActive(user)
//	tsql.SetField(a, userName, "Bob")
//	a.Update().MustExecute(conn)
//	// UPDATE users SET name = $1 WHERE ("users"."id" = $2)
func (a *Active[M]) Update() *UpdateSQL[M] {
	return &UpdateSQL[M]{
		active: a,
		logger: DefaultLogger,
	}
}

// Set the logger for the statement.
func (s *UpdateSQL[M]) SetLogger(logger logger.Logger) *UpdateSQL[M] {
	s.logger = logger
	return s
}

// Placeholder sets placeholder style of the statement. Default is Dollar.
func (s *UpdateSQL[M]) Placeholder(p Placeholder) *UpdateSQL[M] {
	s.placeholder = p
	return s
}

// Filter adds a condition besides the primary key equality, for example an
// optimistic lock column. A zero condition makes Build return
// ErrEmptyCondition.
func (s *UpdateSQL[M]) Filter(condition Condition[M]) *UpdateSQL[M] {
	if condition.expr == nil {
		s.err = ErrEmptyCondition
		return s
	}
	s.conditions = append(s.conditions, condition.expr)
	return s
}

func (s *UpdateSQL[M]) String() string {
	sql, _, _ := s.Build()
	return sql
}

// StringValues returns the statement and its bind values.
func (s *UpdateSQL[M]) StringValues() (string, []interface{}) {
	sql, args, _ := s.Build()
	return sql, args
}

// Build returns the statement, its bind values, and ErrNoPrimaryKey if the
// primary key of the active record is NotSet. Records of ToActive are
// matched by the primary key they were loaded with, so the primary key
// itself can be updated.
func (s *UpdateSQL[M]) Build() (string, []interface{}, error) {
	if s.err != nil {
		return "", nil, s.err
	}
	p := s.placeholder
	if p == nil {
		p = Dollar
	}
	e := s.active.entity
	key, ok := s.active.primaryKeyValue()
	if !ok {
		return "", nil, ErrNoPrimaryKey
	}
	st := NewStatement(p)
	n := 0
	for i, state := range s.active.states {
		if state != StateSet {
			continue
		}
		if n == 0 {
			st.Push("UPDATE " + e.name + " SET ")
		} else {
			st.Push(", ")
		}
		st.Push(e.fields[i].ColumnName + " = ").PushBind(s.active.values[i])
		n++
	}
	if n == 0 {
		return "", nil, nil
	}
	conditions := append([]Expr{BinaryExpr{e.PrimaryKey(), OpEquals, Var{key}}}, s.conditions...)
	st.Push(" WHERE ").PushExpr(AndAll(conditions...))
	return st.String(), st.Args(), nil
}

// MustExecute is like Execute but panics if execute operation fails.
func (s *UpdateSQL[M]) MustExecute(conn Execer) int64 {
	n, err := s.Execute(conn)
	if err != nil {
		panic(err)
	}
	return n
}

// Execute runs the statement and returns number of rows affected. Nothing
// is executed if no field is Set.
func (s *UpdateSQL[M]) Execute(conn Execer) (int64, error) {
	sql, args, err := s.Build()
	if err != nil {
		return 0, err
	}
	return execute(conn, s.logger, sql, args)
}

// ExecuteCtxTx is like Execute but executes the statement in a transaction.
func (s *UpdateSQL[M]) ExecuteCtxTx(ctx context.Context, tx db.Tx) (int64, error) {
	return s.Execute(WithTx(ctx, tx))
}
