package tsql

import (
	"context"
	"errors"
	"regexp"
	"strconv"

	"github.com/gopsql/db"
	"github.com/gopsql/logger"
)

var (
	ErrNoConnection = errors.New("no connection")
	ErrNoRows       = errors.New("no rows in result set")
	ErrNoRelation   = errors.New("no relation declared")

	// ErrEmptyCondition is returned by statements filtered with a zero
	// Condition.
	ErrEmptyCondition = errors.New("empty condition")
)

// DefaultLogger is the logger of statements created by Find(), Delete(),
// Insert() and Update(). By default, no logger is used, so the SQL
// statements are not printed.
var DefaultLogger logger.Logger

type (
	// Querier runs a query returning rows. db.DB implements it, use WithTx()
	// for a db.Tx.
	Querier interface {
		Query(query string, args ...interface{}) (db.Rows, error)
	}

	// Execer runs a statement without returning rows. db.DB implements it,
	// use WithTx() for a db.Tx.
	Execer interface {
		Exec(query string, args ...interface{}) (db.Result, error)
	}

	// Conn is both Querier and Execer.
	Conn interface {
		Querier
		Execer
	}

	txConn struct {
		ctx context.Context
		tx  db.Tx
	}

	placeholderDB struct {
		db.DB
		placeholder Placeholder
	}

	placeholderTx struct {
		db.Tx
		placeholder Placeholder
	}
)

var numberedPlaceholder = regexp.MustCompile(`\$[0-9]+`)

// WithPlaceholder wraps a connection of a database not accepting numbered
// placeholders, for example SQLite or MySQL with Question. Statements are
// converted to the placeholder style before they are sent.
//
//	c, _ := sql.Open("sqlite", ":memory:")
//	conn := tsql.WithPlaceholder(standard.NewDB("sqlite", c), tsql.Question)
func WithPlaceholder(conn db.DB, p Placeholder) db.DB {
	return placeholderDB{conn, p}
}

func (c placeholderDB) ConvertParameters(query string, args []interface{}) (string, []interface{}) {
	return replacePlaceholders(query, c.placeholder), args
}

func (c placeholderDB) BeginTx(ctx context.Context, isolationLevel string, readOnly bool) (db.Tx, error) {
	tx, err := c.DB.BeginTx(ctx, isolationLevel, readOnly)
	if err != nil {
		return nil, err
	}
	return placeholderTx{tx, c.placeholder}, nil
}

func (t placeholderTx) ConvertParameters(query string, args []interface{}) (string, []interface{}) {
	return replacePlaceholders(query, t.placeholder), args
}

func replacePlaceholders(query string, p Placeholder) string {
	return numberedPlaceholder.ReplaceAllStringFunc(query, func(s string) string {
		n, _ := strconv.Atoi(s[1:])
		return p(n)
	})
}

// WithTx returns a Conn running statements in the transaction with the
// context.
//
//	tx, _ := conn.BeginTx(ctx, "", false)
//	defer tx.Rollback(ctx)
//	rows, err := users.Find().All(tsql.WithTx(ctx, tx))
func WithTx(ctx context.Context, tx db.Tx) Conn {
	return txConn{ctx, tx}
}

func (c txConn) Query(query string, args ...interface{}) (db.Rows, error) {
	return c.tx.QueryContext(c.ctx, query, args...)
}

func (c txConn) Exec(query string, args ...interface{}) (db.Result, error) {
	return c.tx.ExecContext(c.ctx, query, args...)
}

func (c txConn) ConvertParameters(query string, args []interface{}) (string, []interface{}) {
	if cp, ok := c.tx.(db.ConvertParameters); ok {
		return cp.ConvertParameters(query, args)
	}
	return query, args
}

func convertParameters(conn interface{}, query string, args []interface{}) (string, []interface{}) {
	if c, ok := conn.(db.ConvertParameters); ok {
		return c.ConvertParameters(query, args)
	}
	return query, args
}

// queryRows executes the query and calls scan for every row, or only for
// the first row if first is true.
func queryRows(conn Querier, l logger.Logger, sqlQuery string, args []interface{},
	scan func([]string, db.Rows) error, first bool) error {
	if conn == nil {
		return ErrNoConnection
	}
	sqlQuery, args = convertParameters(conn, sqlQuery, args)
	logSQL(l, sqlQuery, args)
	rows, err := conn.Query(sqlQuery, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	columns, err := rows.Columns()
	if err != nil {
		return err
	}
	for rows.Next() {
		if err := scan(columns, rows); err != nil {
			return err
		}
		if first {
			break
		}
	}
	return rows.Err()
}

// execute runs the statement and returns number of rows affected.
func execute(conn Execer, l logger.Logger, sqlQuery string, args []interface{}) (int64, error) {
	if sqlQuery == "" {
		return 0, nil
	}
	if conn == nil {
		return 0, ErrNoConnection
	}
	sqlQuery, args = convertParameters(conn, sqlQuery, args)
	logSQL(l, sqlQuery, args)
	result, err := conn.Exec(sqlQuery, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func logSQL(l logger.Logger, sql string, args []interface{}) {
	if l == nil {
		return
	}
	if len(args) == 0 {
		l.Debug(sql)
		return
	}
	l.Debug(sql, args)
}
