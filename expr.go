package tsql

import (
	"strconv"
	"strings"
)

type (
	// Expr is a node of a condition expression. Every node renders itself
	// into a Statement, appending SQL text and bind values in the order the
	// nodes are visited (left to right, depth first). Nodes never change
	// after they are built, so the same node can be rendered any number of
	// times.
	Expr interface {
		PushTo(*Statement)
	}

	// Operator of a binary or singleton expression.
	Operator string

	// Placeholder returns the placeholder text for the n-th (1-based) bind
	// value of a statement.
	Placeholder func(n int) string

	// Statement accumulates SQL text and bind values while rendering.
	Statement struct {
		sql         strings.Builder
		args        []interface{}
		placeholder Placeholder
	}

	// BinaryExpr renders "Left Op Right".
	BinaryExpr struct {
		Left     Expr
		Operator Operator
		Right    Expr
	}

	// SingletonExpr renders "Inner Op", for example "name IS NULL".
	SingletonExpr struct {
		Inner    Expr
		Operator Operator
	}

	// Brackets renders "(Inner)".
	Brackets struct {
		Inner Expr
	}

	// Var is a bound variable. Its value is passed to the driver untouched.
	Var struct {
		Value interface{}
	}

	// List renders a parenthesized, comma-separated list, for example the
	// right side of IN.
	List []Expr

	// Raw is a literal SQL fragment.
	Raw string

	// ColumnName is a column optionally qualified by a table name or alias.
	ColumnName struct {
		Table  string
		Column string
	}
)

const (
	OpEquals     Operator = "="
	OpNotEquals  Operator = "!="
	OpLike       Operator = "LIKE"
	OpILike      Operator = "ILIKE"
	OpIsNull     Operator = "IS NULL"
	OpIsNotNull  Operator = "IS NOT NULL"
	OpAnd        Operator = "AND"
	OpOr         Operator = "OR"
	OpIn         Operator = "IN"
	OpNotIn      Operator = "NOT IN"
	OpBetween    Operator = "BETWEEN"
	OpNotBetween Operator = "NOT BETWEEN"
	OpGt         Operator = ">"
	OpLt         Operator = "<"
	OpGeq        Operator = ">="
	OpLeq        Operator = "<="
)

var (
	// Question renders every placeholder as "?".
	Question Placeholder = func(int) string { return "?" }

	// Dollar renders numbered placeholders: $1, $2 and so on.
	Dollar Placeholder = func(n int) string { return "$" + strconv.Itoa(n) }
)

// NewStatement creates an empty statement using the placeholder style. Nil
// means Question.
func NewStatement(placeholder Placeholder) *Statement {
	if placeholder == nil {
		placeholder = Question
	}
	return &Statement{placeholder: placeholder}
}

// Push appends literal SQL text.
func (s *Statement) Push(sql string) *Statement {
	s.sql.WriteString(sql)
	return s
}

// PushBind appends a placeholder and records value as its bind value.
func (s *Statement) PushBind(value interface{}) *Statement {
	s.args = append(s.args, value)
	s.sql.WriteString(s.placeholder(len(s.args)))
	return s
}

// PushExpr renders expr into the statement.
func (s *Statement) PushExpr(expr Expr) *Statement {
	expr.PushTo(s)
	return s
}

// String returns the SQL text rendered so far.
func (s *Statement) String() string {
	return s.sql.String()
}

// Args returns bind values in placeholder order.
func (s *Statement) Args() []interface{} {
	return s.args
}

func (e BinaryExpr) PushTo(s *Statement) {
	e.Left.PushTo(s)
	s.Push(" " + string(e.Operator) + " ")
	e.Right.PushTo(s)
}

func (e SingletonExpr) PushTo(s *Statement) {
	e.Inner.PushTo(s)
	s.Push(" " + string(e.Operator))
}

func (e Brackets) PushTo(s *Statement) {
	s.Push("(")
	e.Inner.PushTo(s)
	s.Push(")")
}

func (v Var) PushTo(s *Statement) {
	s.PushBind(v.Value)
}

func (l List) PushTo(s *Statement) {
	s.Push("(")
	for i, e := range l {
		if i > 0 {
			s.Push(", ")
		}
		e.PushTo(s)
	}
	s.Push(")")
}

func (r Raw) PushTo(s *Statement) {
	s.Push(string(r))
}

func (c ColumnName) PushTo(s *Statement) {
	s.Push(c.String())
}

func (c ColumnName) String() string {
	if c.Table == "" {
		return quoteIdent(c.Column)
	}
	return quoteIdent(c.Table) + "." + quoteIdent(c.Column)
}

// Render renders expr into a new statement with "?" placeholders.
func Render(expr Expr) (string, []interface{}) {
	s := NewStatement(Question).PushExpr(expr)
	return s.String(), s.Args()
}

// AndAll folds exprs left to right into a binary AND tree, wrapping each
// one in brackets. Nil exprs are skipped, nil is returned if none is left.
func AndAll(exprs ...Expr) Expr {
	var out Expr
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if out == nil {
			out = Brackets{e}
			continue
		}
		out = BinaryExpr{out, OpAnd, Brackets{e}}
	}
	return out
}

// hasOr reports whether expr has an OR outside of brackets.
func hasOr(expr Expr) bool {
	switch e := expr.(type) {
	case BinaryExpr:
		return e.Operator == OpOr || hasOr(e.Left) || hasOr(e.Right)
	case interface{ Expr() Expr }:
		return hasOr(e.Expr())
	}
	return false
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
