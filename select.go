package tsql

import (
	"context"
	"fmt"
	"reflect"

	"github.com/gopsql/db"
	"github.com/gopsql/logger"
)

type (
	// Select is a SELECT statement of all columns of the Entity of M. It can
	// be created with Entity.Find(). Rendering and executing a Select does
	// not change it, so it can be rendered and executed any number of times.
	// Use Clone() to branch a Select.
	Select[M any] struct {
		entity      *Entity[M]
		conditions  []Expr
		tables      []string
		logger      logger.Logger
		placeholder Placeholder
		err         error
	}
)

// Find creates a SELECT statement with all columns of the Entity.
//
//	var rows []Entity
//	rows, err := entities.Find().Filter(entityName.Eq("Gustav")).All(conn)
func (e *Entity[M]) Find() *Select[M] {
	return &Select[M]{
		entity: e,
		logger: DefaultLogger,
	}
}

// Clone returns a copy of the statement.
func (s *Select[M]) Clone() *Select[M] {
	n := *s
	n.conditions = append([]Expr{}, s.conditions...)
	n.tables = append([]string{}, s.tables...)
	return &n
}

// Set the logger for the statement. Use logger.StandardLogger if you want to
// use Go's built-in standard logging package. Default is DefaultLogger.
func (s *Select[M]) SetLogger(logger logger.Logger) *Select[M] {
	s.logger = logger
	return s
}

// Placeholder sets placeholder style used when executing the statement.
// Default is Dollar ($1, $2, ...). Connections implementing
// db.ConvertParameters convert it further.
func (s *Select[M]) Placeholder(p Placeholder) *Select[M] {
	s.placeholder = p
	return s
}

// Filter adds a condition to the statement. Conditions are joined with AND,
// each of them in brackets.
func (s *Select[M]) Filter(condition Condition[M]) *Select[M] {
	if condition.expr == nil {
		return s.setErr(ErrEmptyCondition)
	}
	s.conditions = append(s.conditions, condition.expr)
	return s
}

// WhereRelation adds condition of another entity which has a foreign key
// referencing this entity. Besides the condition, the equality of the
// foreign key and the primary key of this entity is added, and the table of
// the other entity is added to FROM.
//
//	// SELECT ... FROM entity, other_entity
//	// WHERE ("other_entity"."amount_killed" > $1 AND "other_entity"."entity_id" = "entity"."id")
//	entities.Find().WhereRelation(otherEntityAmountKilled.Gt(5))
//
// ErrNoRelation is returned when executing if no such relation is declared.
func (s *Select[M]) WhereRelation(condition TableCondition) *Select[M] {
	other := condition.conditionTable()
	if other == nil {
		return s.setErr(ErrEmptyCondition)
	}
	r := s.entity.findRelation(other, s.entity.table)
	if r == nil {
		return s.setErr(fmt.Errorf("%w: %s references %s", ErrNoRelation, other.name, s.entity.name))
	}
	return s.addRelation(condition, other, BinaryExpr{r.fk, OpEquals, s.entity.PrimaryKey()})
}

// WhereInverseRelation adds condition of another entity which this entity
// references with a foreign key. Besides the condition, the equality of the
// foreign key of this entity and the primary key of the other entity is
// added, and the table of the other entity is added to FROM.
//
// ErrNoRelation is returned when executing if no such relation is declared.
func (s *Select[M]) WhereInverseRelation(condition TableCondition) *Select[M] {
	other := condition.conditionTable()
	if other == nil {
		return s.setErr(ErrEmptyCondition)
	}
	r := s.entity.findRelation(s.entity.table, other)
	if r == nil {
		return s.setErr(fmt.Errorf("%w: %s references %s", ErrNoRelation, s.entity.name, other.name))
	}
	return s.addRelation(condition, other, BinaryExpr{r.fk, OpEquals, other.PrimaryKey()})
}

func (s *Select[M]) addRelation(condition Expr, other *table, equality Expr) *Select[M] {
	if b, ok := condition.(interface{ Expr() Expr }); ok {
		condition = b.Expr()
	}
	if hasOr(condition) {
		condition = Brackets{condition}
	}
	s.conditions = append(s.conditions, BinaryExpr{condition, OpAnd, equality})
	s.tables = append(s.tables, other.name)
	return s
}

func (s *Select[M]) setErr(err error) *Select[M] {
	if s.err == nil {
		s.err = err
	}
	return s
}

// Err returns the first error occurred when building the statement.
func (s *Select[M]) Err() error {
	return s.err
}

// Query renders the statement with "?" placeholders. It can be called any
// number of times.
func (s *Select[M]) Query() string {
	return s.render(Question, "").String()
}

func (s *Select[M]) String() string {
	return s.Query()
}

// StringValues renders the statement with the execution placeholder style
// and returns it with its bind values.
func (s *Select[M]) StringValues() (string, []interface{}) {
	st := s.render(s.placeholder, "")
	return st.String(), st.Args()
}

// Build is like StringValues but also returns the error occurred when
// building the statement.
func (s *Select[M]) Build() (string, []interface{}, error) {
	sql, args := s.StringValues()
	return sql, args, s.err
}

func (s *Select[M]) render(p Placeholder, selectList string) *Statement {
	if p == nil {
		p = Dollar
	}
	st := NewStatement(p)
	st.Push("SELECT ")
	if selectList != "" {
		st.Push(selectList)
	} else {
		for i := range s.entity.fields {
			if i > 0 {
				st.Push(", ")
			}
			st.PushExpr(s.entity.column(i))
		}
	}
	st.Push(" FROM " + s.entity.name)
	seen := map[string]bool{s.entity.name: true}
	for _, t := range s.tables {
		if seen[t] {
			continue
		}
		seen[t] = true
		st.Push(", " + t)
	}
	if where := AndAll(s.conditions...); where != nil {
		st.Push(" WHERE ")
		st.PushExpr(where)
	}
	return st
}

// MustOne is like One but panics if query operation fails.
func (s *Select[M]) MustOne(conn Querier) M {
	m, err := s.One(conn)
	if err != nil {
		panic(err)
	}
	return m
}

// One executes the statement and returns the first record. ErrNoRows is
// returned if no record matches.
func (s *Select[M]) One(conn Querier) (M, error) {
	var zero M
	out, err := s.query(conn, true)
	if err != nil {
		return zero, err
	}
	if len(out) == 0 {
		return zero, ErrNoRows
	}
	return out[0], nil
}

// OneCtxTx is like One but executes the statement in a transaction.
func (s *Select[M]) OneCtxTx(ctx context.Context, tx db.Tx) (M, error) {
	return s.One(WithTx(ctx, tx))
}

// MustAll is like All but panics if query operation fails.
func (s *Select[M]) MustAll(conn Querier) []M {
	out, err := s.All(conn)
	if err != nil {
		panic(err)
	}
	return out
}

// All executes the statement and returns all records. An empty slice is
// returned if no record matches. Any record failed to decode aborts the
// call with a *DecodeError.
func (s *Select[M]) All(conn Querier) ([]M, error) {
	return s.query(conn, false)
}

// AllCtxTx is like All but executes the statement in a transaction.
func (s *Select[M]) AllCtxTx(ctx context.Context, tx db.Tx) ([]M, error) {
	return s.All(WithTx(ctx, tx))
}

// MustCount is like Count but panics if count operation fails.
func (s *Select[M]) MustCount(conn Querier) int {
	count, err := s.Count(conn)
	if err != nil {
		panic(err)
	}
	return count
}

// Count returns number of records matching the statement.
func (s *Select[M]) Count(conn Querier) (count int, err error) {
	err = s.queryRows(conn, s.render(s.placeholder, "COUNT(*)"), func(columns []string, rows db.Rows) error {
		return rows.Scan(&count)
	}, true)
	return
}

// MustExists is like Exists but panics if existence check operation fails.
func (s *Select[M]) MustExists(conn Querier) bool {
	exists, err := s.Exists(conn)
	if err != nil {
		panic(err)
	}
	return exists
}

// Exists reports whether any record matches the statement.
func (s *Select[M]) Exists(conn Querier) (exists bool, err error) {
	err = s.queryRows(conn, s.render(s.placeholder, "1"), func([]string, db.Rows) error {
		exists = true
		return nil
	}, true)
	return
}

func (s *Select[M]) query(conn Querier, first bool) ([]M, error) {
	out := []M{}
	err := s.queryRows(conn, s.render(s.placeholder, ""), func(columns []string, rows db.Rows) error {
		var m M
		if err := s.entity.parseRow(reflect.ValueOf(&m).Elem(), columns, rows); err != nil {
			return err
		}
		out = append(out, m)
		return nil
	}, first)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Select[M]) queryRows(conn Querier, st *Statement, scan func([]string, db.Rows) error, first bool) error {
	if s.err != nil {
		return s.err
	}
	return queryRows(conn, s.logger, st.String(), st.Args(), scan, first)
}
