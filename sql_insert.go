package tsql

import (
	"context"
	"reflect"
	"strings"

	"github.com/gopsql/db"
	"github.com/gopsql/logger"
)

type (
	// InsertSQL can be created with Active.Insert().
	InsertSQL[M any] struct {
		active          *Active[M]
		logger          logger.Logger
		placeholder     Placeholder
		returning       []string
		conflictTargets []string
		conflictActions []string
		updateAll       bool
	}
)

// Insert builds an INSERT statement with fields in StateSet or
// StateUnchanged. Fields NotSet are left to database defaults.
//
//	a := users.NewActive()
//	tsql.SetField(a, userName, "Alice")
//	a.Insert().MustExecute(conn)
//	// INSERT INTO users (name) VALUES ($1)
func (a *Active[M]) Insert() *InsertSQL[M] {
	return &InsertSQL[M]{
		active: a,
		logger: DefaultLogger,
	}
}

// Set the logger for the statement.
func (s *InsertSQL[M]) SetLogger(logger logger.Logger) *InsertSQL[M] {
	s.logger = logger
	return s
}

// Placeholder sets placeholder style of the statement. Default is Dollar.
func (s *InsertSQL[M]) Placeholder(p Placeholder) *InsertSQL[M] {
	s.placeholder = p
	return s
}

// Adds RETURNING clause to INSERT statement.
func (s *InsertSQL[M]) Returning(columns ...string) *InsertSQL[M] {
	s.returning = append([]string{}, columns...)
	return s
}

// Adds ON CONFLICT clause to INSERT statement. Use DoNothing or DoUpdateAll
// to specify the action.
//
//	a.Insert().OnConflict("email").DoNothing()
//	// INSERT INTO users (email) VALUES ($1) ON CONFLICT (email) DO NOTHING
func (s *InsertSQL[M]) OnConflict(targets ...string) *InsertSQL[M] {
	s.conflictTargets = append([]string{}, targets...)
	return s
}

// Used with OnConflict(), adds DO NOTHING action.
func (s *InsertSQL[M]) DoNothing() *InsertSQL[M] {
	s.conflictActions = []string{}
	s.updateAll = false
	return s
}

// Used with OnConflict(), updates all inserted columns except the conflict
// targets with the excluded values.
//
//	// ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name
func (s *InsertSQL[M]) DoUpdateAll() *InsertSQL[M] {
	s.updateAll = true
	return s
}

func (s *InsertSQL[M]) String() string {
	sql, _ := s.StringValues()
	return sql
}

// StringValues returns the statement and its bind values. Empty string is
// returned if no field is set.
func (s *InsertSQL[M]) StringValues() (string, []interface{}) {
	st := s.render(s.returning)
	return st.String(), st.Args()
}

func (s *InsertSQL[M]) render(returning []string) *Statement {
	p := s.placeholder
	if p == nil {
		p = Dollar
	}
	st := NewStatement(p)
	e := s.active.entity
	var columns []string
	for i, state := range s.active.states {
		if state != StateNotSet {
			columns = append(columns, e.fields[i].ColumnName)
		}
	}
	if len(columns) == 0 {
		return st
	}
	st.Push("INSERT INTO " + e.name + " (" + strings.Join(columns, ", ") + ") VALUES (")
	n := 0
	for i, state := range s.active.states {
		if state == StateNotSet {
			continue
		}
		if n > 0 {
			st.Push(", ")
		}
		st.PushBind(s.active.values[i])
		n++
	}
	st.Push(")")
	if s.conflictTargets != nil {
		st.Push(" ON CONFLICT (" + strings.Join(s.conflictTargets, ", ") + ")")
		var actions []string
		if s.updateAll {
		outer:
			for _, column := range columns {
				for _, target := range s.conflictTargets {
					if column == target {
						continue outer
					}
				}
				actions = append(actions, column+" = EXCLUDED."+column)
			}
		}
		if len(actions) > 0 {
			st.Push(" DO UPDATE SET " + strings.Join(actions, ", "))
		} else {
			st.Push(" DO NOTHING")
		}
	}
	if len(returning) > 0 {
		st.Push(" RETURNING " + strings.Join(returning, ", "))
	}
	return st
}

// MustExecute is like Execute but panics if execute operation fails.
func (s *InsertSQL[M]) MustExecute(conn Execer) int64 {
	n, err := s.Execute(conn)
	if err != nil {
		panic(err)
	}
	return n
}

// Execute runs the statement and returns number of rows affected. Nothing
// is executed if no field is set.
func (s *InsertSQL[M]) Execute(conn Execer) (int64, error) {
	sql, args := s.StringValues()
	return execute(conn, s.logger, sql, args)
}

// ExecuteCtxTx is like Execute but executes the statement in a transaction.
func (s *InsertSQL[M]) ExecuteCtxTx(ctx context.Context, tx db.Tx) (int64, error) {
	return s.Execute(WithTx(ctx, tx))
}

// One runs the statement with RETURNING all columns and returns the inserted
// record, including values filled by database defaults. ErrNoRows is
// returned if nothing is inserted.
func (s *InsertSQL[M]) One(conn Querier) (M, error) {
	var m M
	st := s.render(s.active.entity.ColumnNames())
	if st.String() == "" {
		return m, ErrNoRows
	}
	found := false
	err := queryRows(conn, s.logger, st.String(), st.Args(), func(columns []string, rows db.Rows) error {
		found = true
		return s.active.entity.parseRow(reflect.ValueOf(&m).Elem(), columns, rows)
	}, true)
	if err == nil && !found {
		err = ErrNoRows
	}
	return m, err
}
