package tsql

import (
	"context"

	"github.com/gopsql/db"
	"github.com/gopsql/logger"
)

type (
	// DeleteSQL can be created with Entity.Delete().
	DeleteSQL[M any] struct {
		entity      *Entity[M]
		conditions  []Expr
		logger      logger.Logger
		placeholder Placeholder
		err         error
	}
)

// Delete builds a DELETE statement. Conditions are added with Filter.
//
//	users.Delete().Filter(userName.Eq("Alice")).MustExecute(conn)
//	// DELETE FROM users WHERE ("users"."name" = $1)
func (e *Entity[M]) Delete() *DeleteSQL[M] {
	return &DeleteSQL[M]{
		entity: e,
		logger: DefaultLogger,
	}
}

// Set the logger for the statement.
func (s *DeleteSQL[M]) SetLogger(logger logger.Logger) *DeleteSQL[M] {
	s.logger = logger
	return s
}

// Placeholder sets placeholder style of the statement. Default is Dollar.
func (s *DeleteSQL[M]) Placeholder(p Placeholder) *DeleteSQL[M] {
	s.placeholder = p
	return s
}

// Filter adds a condition to the statement. A zero condition makes Execute
// return ErrEmptyCondition instead of deleting every row.
func (s *DeleteSQL[M]) Filter(condition Condition[M]) *DeleteSQL[M] {
	if condition.expr == nil {
		s.err = ErrEmptyCondition
		return s
	}
	s.conditions = append(s.conditions, condition.expr)
	return s
}

func (s *DeleteSQL[M]) String() string {
	sql, _ := s.StringValues()
	return sql
}

// StringValues returns the statement and its bind values.
func (s *DeleteSQL[M]) StringValues() (string, []interface{}) {
	p := s.placeholder
	if p == nil {
		p = Dollar
	}
	st := NewStatement(p).Push("DELETE FROM " + s.entity.name)
	if where := AndAll(s.conditions...); where != nil {
		st.Push(" WHERE ").PushExpr(where)
	}
	return st.String(), st.Args()
}

// MustExecute is like Execute but panics if execute operation fails.
func (s *DeleteSQL[M]) MustExecute(conn Execer) int64 {
	n, err := s.Execute(conn)
	if err != nil {
		panic(err)
	}
	return n
}

// Execute runs the statement and returns number of rows affected.
func (s *DeleteSQL[M]) Execute(conn Execer) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	sql, args := s.StringValues()
	return execute(conn, s.logger, sql, args)
}

// ExecuteCtxTx is like Execute but executes the statement in a transaction.
func (s *DeleteSQL[M]) ExecuteCtxTx(ctx context.Context, tx db.Tx) (int64, error) {
	return s.Execute(WithTx(ctx, tx))
}
