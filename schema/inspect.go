package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/gopsql/db"
	"github.com/gopsql/tsql"
	"golang.org/x/sync/errgroup"
)

// Workers is the number of tables inspected at the same time.
var Workers = 4

// Inspect reads every table of the database. Tables are inspected
// concurrently and kept in the order the database lists them. If any table
// fails, the whole schema fails with the name of the table. Queries run with
// ctx when conn has QueryContext, as db.DB does.
func Inspect(ctx context.Context, conn tsql.Querier, dialect Dialect) (*Schema, error) {
	var in inspector
	switch dialect {
	case SQLite:
		in = sqliteInspector{conn}
	case Postgres, MySQL:
		in = infoSchemaInspector{conn, dialect}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBackend, dialect)
	}

	names, err := in.tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	tables := make([]Table, len(names))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(Workers)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			t, err := in.table(ctx, name)
			if err != nil {
				return fmt.Errorf("table %s: %w", name, err)
			}
			tables[i] = *t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s := &Schema{Tables: tables}
	s.resolveForeignKeys()
	return s, nil
}

// resolveForeignKeys fills the column of foreign keys referencing the
// primary key of a table without naming it.
func (s *Schema) resolveForeignKeys() {
	for i := range s.Tables {
		for j := range s.Tables[i].Columns {
			fk := s.Tables[i].Columns[j].ForeignKey
			if fk == nil || fk.Column != "" {
				continue
			}
			if t := s.FindTable(fk.Table); t != nil && t.PrimaryKey != nil {
				fk.Column = *t.PrimaryKey
			}
		}
	}
}

type inspector interface {
	tables(ctx context.Context) ([]string, error)
	table(ctx context.Context, name string) (*Table, error)
}

// contextQuerier is implemented by db.DB.
type contextQuerier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (db.Rows, error)
}

// query reads all rows of a statement written with numbered placeholders.
// The statement is cancelled with ctx if conn has QueryContext, otherwise
// ctx is only checked before it is sent.
func query(ctx context.Context, conn tsql.Querier, sql string, args []interface{}, scan func(db.Rows) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c, ok := conn.(db.ConvertParameters); ok {
		sql, args = c.ConvertParameters(sql, args)
	}
	var rows db.Rows
	var err error
	if c, ok := conn.(contextQuerier); ok {
		rows, err = c.QueryContext(ctx, sql, args...)
	} else {
		rows, err = conn.Query(sql, args...)
	}
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func setPrimaryKey(t *Table) {
	var pks []string
	for i := range t.Columns {
		if t.Columns[i].PrimaryKey {
			pks = append(pks, t.Columns[i].Name)
		}
	}
	// composite keys are not used as a primary key of an entity
	if len(pks) == 1 {
		t.PrimaryKey = &pks[0]
		return
	}
	for i := range t.Columns {
		if t.Columns[i].PrimaryKey {
			t.Columns[i].Unique = false
		}
	}
}

type sqliteInspector struct {
	conn tsql.Querier
}

func (in sqliteInspector) tables(ctx context.Context) (names []string, err error) {
	err = query(ctx, in.conn, "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY rowid", nil,
		func(rows db.Rows) error {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			names = append(names, name)
			return nil
		})
	return
}

func (in sqliteInspector) table(ctx context.Context, name string) (*Table, error) {
	t := &Table{Name: name}
	err := query(ctx, in.conn, "PRAGMA table_info("+quote(name)+")", nil, func(rows db.Rows) error {
		var cid, notNull, pk int
		var columnName, columnType string
		var defaultValue interface{}
		if err := rows.Scan(&cid, &columnName, &columnType, &notNull, &defaultValue, &pk); err != nil {
			return err
		}
		t.Columns = append(t.Columns, Column{
			Name:       columnName,
			Type:       strings.ToLower(columnType),
			Nullable:   notNull == 0 && pk == 0,
			PrimaryKey: pk > 0,
			Unique:     pk > 0,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = query(ctx, in.conn, "PRAGMA foreign_key_list("+quote(name)+")", nil, func(rows db.Rows) error {
		var id, seq int
		var table, from string
		var to, onUpdate, onDelete, match interface{}
		if err := rows.Scan(&id, &seq, &table, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return err
		}
		if c := t.FindColumn(from); c != nil {
			c.ForeignKey = &ForeignKey{Table: table}
			if s, ok := to.(string); ok && s != "" {
				c.ForeignKey.Column = s
			} else if b, ok := to.([]byte); ok && len(b) > 0 {
				c.ForeignKey.Column = string(b)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var uniqueIndexes []string
	err = query(ctx, in.conn, "PRAGMA index_list("+quote(name)+")", nil, func(rows db.Rows) error {
		var seq, unique, partial int
		var indexName, origin string
		if err := rows.Scan(&seq, &indexName, &unique, &origin, &partial); err != nil {
			return err
		}
		if unique == 1 && partial == 0 {
			uniqueIndexes = append(uniqueIndexes, indexName)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, index := range uniqueIndexes {
		var columns []string
		err = query(ctx, in.conn, "PRAGMA index_info("+quote(index)+")", nil, func(rows db.Rows) error {
			var seqno, cid int
			var columnName interface{}
			if err := rows.Scan(&seqno, &cid, &columnName); err != nil {
				return err
			}
			columns = append(columns, fmt.Sprint(columnName))
			return nil
		})
		if err != nil {
			return nil, err
		}
		if len(columns) != 1 {
			continue
		}
		if c := t.FindColumn(columns[0]); c != nil {
			c.Unique = true
		}
	}
	setPrimaryKey(t)
	return t, nil
}

// infoSchemaInspector reads information_schema of Postgres and MySQL.
type infoSchemaInspector struct {
	conn    tsql.Querier
	dialect Dialect
}

func (in infoSchemaInspector) currentSchema() string {
	if in.dialect == MySQL {
		return "DATABASE()"
	}
	return "current_schema()"
}

func (in infoSchemaInspector) tables(ctx context.Context) (names []string, err error) {
	err = query(ctx, in.conn, "SELECT table_name FROM information_schema.tables "+
		"WHERE table_schema = "+in.currentSchema()+" AND table_type = 'BASE TABLE' "+
		"ORDER BY table_name", nil,
		func(rows db.Rows) error {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			names = append(names, name)
			return nil
		})
	return
}

func (in infoSchemaInspector) table(ctx context.Context, name string) (*Table, error) {
	t := &Table{Name: name}
	err := query(ctx, in.conn, "SELECT column_name, data_type, is_nullable FROM information_schema.columns "+
		"WHERE table_schema = "+in.currentSchema()+" AND table_name = $1 "+
		"ORDER BY ordinal_position", []interface{}{name},
		func(rows db.Rows) error {
			var columnName, dataType, nullable string
			if err := rows.Scan(&columnName, &dataType, &nullable); err != nil {
				return err
			}
			t.Columns = append(t.Columns, Column{
				Name:     columnName,
				Type:     strings.ToLower(dataType),
				Nullable: strings.EqualFold(nullable, "YES"),
			})
			return nil
		})
	if err != nil {
		return nil, err
	}

	type constraint struct {
		kind    string
		columns []string
		ref     *ForeignKey
	}
	var order []string
	constraints := map[string]*constraint{}
	err = query(ctx, in.conn, in.constraintsQuery(), []interface{}{name}, func(rows db.Rows) error {
		var constraintName, constraintType, columnName string
		var refTable, refColumn *string
		if err := rows.Scan(&constraintName, &constraintType, &columnName, &refTable, &refColumn); err != nil {
			return err
		}
		c, ok := constraints[constraintName]
		if !ok {
			c = &constraint{kind: constraintType}
			constraints[constraintName] = c
			order = append(order, constraintName)
		}
		c.columns = append(c.columns, columnName)
		if refTable != nil && refColumn != nil {
			c.ref = &ForeignKey{Table: *refTable, Column: *refColumn}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, constraintName := range order {
		c := constraints[constraintName]
		if len(c.columns) != 1 {
			continue
		}
		column := t.FindColumn(c.columns[0])
		if column == nil {
			continue
		}
		switch c.kind {
		case "PRIMARY KEY":
			column.PrimaryKey = true
			column.Unique = true
			column.Nullable = false
		case "UNIQUE":
			column.Unique = true
		case "FOREIGN KEY":
			column.ForeignKey = c.ref
		}
	}
	setPrimaryKey(t)
	return t, nil
}

func (in infoSchemaInspector) constraintsQuery() string {
	if in.dialect == MySQL {
		return "SELECT tc.constraint_name, tc.constraint_type, kcu.column_name, " +
			"kcu.referenced_table_name, kcu.referenced_column_name " +
			"FROM information_schema.table_constraints tc " +
			"JOIN information_schema.key_column_usage kcu ON kcu.constraint_name = tc.constraint_name " +
			"AND kcu.table_schema = tc.table_schema AND kcu.table_name = tc.table_name " +
			"WHERE tc.table_schema = DATABASE() AND tc.table_name = $1 " +
			"ORDER BY tc.constraint_name, kcu.ordinal_position"
	}
	return "SELECT tc.constraint_name, tc.constraint_type, kcu.column_name, " +
		"ccu.table_name, ccu.column_name " +
		"FROM information_schema.table_constraints tc " +
		"JOIN information_schema.key_column_usage kcu ON kcu.constraint_name = tc.constraint_name " +
		"AND kcu.table_schema = tc.table_schema AND kcu.table_name = tc.table_name " +
		"LEFT JOIN information_schema.constraint_column_usage ccu ON tc.constraint_type = 'FOREIGN KEY' " +
		"AND ccu.constraint_name = tc.constraint_name AND ccu.constraint_schema = tc.constraint_schema " +
		"WHERE tc.table_schema = current_schema() AND tc.table_name = $1 " +
		"ORDER BY tc.constraint_name, kcu.ordinal_position"
}
