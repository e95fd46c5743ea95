package tsql

type (
	// Condition is a condition expression on the Entity of M. Conditions of
	// the same entity can be combined with And and Or.
	Condition[M any] struct {
		table *table
		expr  Expr
	}

	// TableCondition is a condition of any entity. It is accepted by
	// relation filters of Select, where the entity of the condition is the
	// other side of the relation.
	TableCondition interface {
		Expr
		conditionTable() *table
	}
)

// Where wraps an arbitrary expression into a condition of entity e.
//
//	users.Find().Filter(tsql.Where(users, tsql.Raw("age > 18")))
func Where[M any](e *Entity[M], expr Expr) Condition[M] {
	return Condition[M]{e.table, expr}
}

func (c Condition[M]) PushTo(s *Statement) {
	if c.expr != nil {
		c.expr.PushTo(s)
	}
}

func (c Condition[M]) conditionTable() *table {
	return c.table
}

// Expr returns the underlying expression.
func (c Condition[M]) Expr() Expr {
	return c.expr
}

// And renders "c AND other" without adding brackets. A zero condition on
// either side is dropped.
func (c Condition[M]) And(other Condition[M]) Condition[M] {
	return c.join(OpAnd, other)
}

// Or renders "c OR other" without adding brackets. A zero condition on
// either side is dropped.
func (c Condition[M]) Or(other Condition[M]) Condition[M] {
	return c.join(OpOr, other)
}

func (c Condition[M]) join(op Operator, other Condition[M]) Condition[M] {
	switch {
	case c.expr == nil:
		return other
	case other.expr == nil:
		return c
	}
	return Condition[M]{c.table, BinaryExpr{c.expr, op, other.expr}}
}

// Brackets wraps the condition into brackets "(c)".
func (c Condition[M]) Brackets() Condition[M] {
	if c.expr == nil {
		return c
	}
	return Condition[M]{c.table, Brackets{c.expr}}
}

// String renders the condition with "?" placeholders.
func (c Condition[M]) String() string {
	sql, _ := Render(c)
	return sql
}
