package schema

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/gopsql/db"
	"github.com/gopsql/gopg"
	"github.com/gopsql/pgx"
	"github.com/gopsql/pq"
	"github.com/gopsql/standard"
	"github.com/gopsql/tsql"
	_ "modernc.org/sqlite"
)

var (
	ErrConnect       = errors.New("cannot connect to database")
	ErrUnknownDriver = errors.New("unknown postgres driver, use pgx, pq or gopg")
)

// Postgres drivers accepted by Open.
const (
	DriverPgx  = "pgx"
	DriverPq   = "pq"
	DriverGopg = "gopg"
)

// Open connects to the database of the url. Postgres connections use the
// driver (pgx if empty), SQLite and MySQL connections use database/sql and
// accept statements with numbered placeholders.
//
//	conn, dialect, err := schema.Open("sqlite://app.db", "")
func Open(databaseURL, driver string) (db.DB, Dialect, error) {
	dialect, err := ParseURL(databaseURL)
	if err != nil {
		return nil, 0, err
	}
	var conn db.DB
	switch dialect {
	case Postgres:
		conn, err = openPostgres(databaseURL, driver)
	case SQLite:
		conn, err = openStandard("sqlite", sqliteDSN(databaseURL))
	case MySQL:
		var dsn string
		if dsn, err = mysqlDSN(databaseURL); err == nil {
			conn, err = openStandard("mysql", dsn)
		}
	}
	if err != nil {
		return nil, 0, err
	}
	if err := ping(conn); err != nil {
		conn.Close()
		return nil, 0, fmt.Errorf("%w: %v", ErrConnect, err)
	}
	return conn, dialect, nil
}

func openPostgres(databaseURL, driver string) (conn db.DB, err error) {
	switch driver {
	case "", DriverPgx:
		conn, err = pgx.Open(databaseURL)
	case DriverPq:
		conn, err = pq.Open(databaseURL)
	case DriverGopg:
		conn, err = gopg.Open(databaseURL)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}
	return
}

func openStandard(driverName, dsn string) (db.DB, error) {
	c, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}
	if driverName == "sqlite" {
		c.SetMaxOpenConns(1)
	}
	return tsql.WithPlaceholder(standard.NewDB(driverName, c), tsql.Question), nil
}

func ping(conn db.DB) error {
	rows, err := conn.Query("SELECT 1")
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
	}
	return rows.Err()
}
