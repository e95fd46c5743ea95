package tsql

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gopsql/db"
	"github.com/gopsql/standard"
	"github.com/shopspring/decimal"
)

// countingDB records every query sent to a SQLite connection.
type countingDB struct {
	db.DB
	queries []string
}

func (c *countingDB) Query(query string, args ...interface{}) (db.Rows, error) {
	c.queries = append(c.queries, query)
	return c.DB.Query(query, args...)
}

func (c *countingDB) ConvertParameters(query string, args []interface{}) (string, []interface{}) {
	return replacePlaceholders(query, Question), args
}

func entityIds(records []entity) (out []string) {
	for _, r := range records {
		out = append(out, r.Id)
	}
	sort.Strings(out)
	return
}

func TestSelectExecute(t *testing.T) {
	t.Parallel()
	conn := newSQLite(t)

	all := entities.Find().MustAll(conn)
	if got := entityIds(all); !reflect.DeepEqual(got, []string{"e1", "e2", "e3", "e4", "e5"}) {
		t.Errorf("All() = %v", got)
	}
	if all[3].OtherEntityId != nil || all[0].OtherEntityId == nil || *all[0].OtherEntityId != "o1" {
		t.Errorf("nullable column not parsed: %+v, %+v", all[0], all[3])
	}

	found := entities.Find().Filter(entityName.Between("August", "Gustav")).MustAll(conn)
	if got := entityIds(found); !reflect.DeepEqual(got, []string{"e1", "e2", "e3"}) {
		t.Errorf("Between All() = %v", got)
	}

	s := entities.Find().
		Filter(entityName.Between("August", "Gustav")).
		WhereInverseRelation(otherEntityAmountKilled.Gt(5))
	for i := 0; i < 2; i++ { // statements can be executed again
		found = s.MustAll(conn)
		if got := entityIds(found); !reflect.DeepEqual(got, []string{"e2", "e3"}) {
			t.Errorf("run %d: WhereInverseRelation All() = %v", i, got)
		}
	}
	if n := s.MustCount(conn); n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}

	others := otherEntities.Find().WhereRelation(entityName.Eq("Gustav")).MustAll(conn)
	if len(others) != 1 || others[0].Id != "o3" || others[0].AmountKilled != 12 {
		t.Errorf("WhereRelation All() = %+v", others)
	}

	none, err := entities.Find().Filter(entityName.Eq("nobody")).All(conn)
	if err != nil || none == nil || len(none) != 0 {
		t.Errorf("All() with no match = %v, %v, want empty slice", none, err)
	}
	if exists := entities.Find().Filter(entityName.Eq("nobody")).MustExists(conn); exists {
		t.Error("Exists() = true, want false")
	}
	if exists := entities.Find().Filter(entityName.Eq("Zelda")).MustExists(conn); !exists {
		t.Error("Exists() = false, want true")
	}

	one, err := entities.Find().Filter(entityId.Eq("e4")).One(conn)
	if err != nil || one.Name != "Zelda" {
		t.Errorf("One() = %+v, %v", one, err)
	}
	if _, err := entities.Find().Filter(entityId.Eq("e9")).One(conn); !errors.Is(err, ErrNoRows) {
		t.Errorf("One() error = %v, want ErrNoRows", err)
	}

	cheap := items.Find().Filter(itemPrice.Lt(decimal.NewFromInt(10))).MustAll(conn)
	if len(cheap) != 2 || !cheap[1].Price.Equal(decimal.RequireFromString("3.25")) {
		t.Errorf("decimal column: %+v", cheap)
	}
}

func TestLoadRelated(t *testing.T) {
	t.Parallel()
	conn := &countingDB{DB: newSQLite(t)}

	records := entities.Find().MustAll(conn)
	conn.queries = nil
	others, err := entityOtherEntity.LoadRelated(conn, records)
	if err != nil {
		t.Fatal(err)
	}
	if len(conn.queries) != 1 {
		t.Fatalf("LoadRelated() ran %d queries, want 1", len(conn.queries))
	}
	if len(others) != len(records) {
		t.Fatalf("len = %d, want %d", len(others), len(records))
	}
	for i, want := range []string{"o1", "o2", "o3", "", ""} {
		if want == "" {
			if others[i] != nil {
				t.Errorf("others[%d] = %+v, want nil", i, others[i])
			}
			continue
		}
		if others[i] == nil || others[i].Id != want {
			t.Errorf("others[%d] = %+v, want %s", i, others[i], want)
		}
	}

	conn.queries = nil
	others, err = entityOtherEntity.LoadRelated(conn, []entity{records[1], records[0], records[1]})
	if err != nil {
		t.Fatal(err)
	}
	if len(conn.queries) != 1 || !strings.Contains(conn.queries[0], `IN (?, ?)`) {
		t.Errorf("queries = %v, want one query with two distinct keys", conn.queries)
	}
	if others[0].Id != "o2" || others[1].Id != "o1" || others[2].Id != "o2" {
		t.Errorf("LoadRelated() not aligned: %+v %+v %+v", others[0], others[1], others[2])
	}

	conn.queries = nil
	others, err = entityOtherEntity.LoadRelated(conn, []entity{records[3]})
	if err != nil || len(others) != 1 || others[0] != nil || len(conn.queries) != 0 {
		t.Errorf("LoadRelated() without keys = %v, %v, %d queries", others, err, len(conn.queries))
	}
}

func TestLoadInverse(t *testing.T) {
	t.Parallel()
	conn := &countingDB{DB: newSQLite(t)}

	targets := append(otherEntities.Find().MustAll(conn), otherEntity{Id: "o9"})

	conn.queries = nil
	owners, err := entityOtherEntity.LoadInverseOne(conn, targets)
	if err != nil {
		t.Fatal(err)
	}
	if len(conn.queries) != 1 {
		t.Errorf("LoadInverseOne() ran %d queries, want 1", len(conn.queries))
	}
	for i, want := range []string{"e1", "e2", "e3", "e5"} {
		if owners[i] == nil || owners[i].Id != want {
			t.Errorf("owners[%d] = %+v, want %s", i, owners[i], want)
		}
	}

	conn.queries = nil
	lists, err := itemOwner.LoadInverseMany(conn, targets)
	if err != nil {
		t.Fatal(err)
	}
	if len(conn.queries) != 1 {
		t.Errorf("LoadInverseMany() ran %d queries, want 1", len(conn.queries))
	}
	titles := func(list []item) (out []string) {
		for _, i := range list {
			out = append(out, i.Title)
		}
		return
	}
	if got := titles(lists[0]); !reflect.DeepEqual(got, []string{"sword", "bow"}) {
		t.Errorf("lists[0] = %v", got)
	}
	if got := titles(lists[1]); !reflect.DeepEqual(got, []string{"shield"}) {
		t.Errorf("lists[1] = %v", got)
	}
	if lists[2] == nil || len(lists[2]) != 0 || lists[3] == nil || len(lists[3]) != 0 {
		t.Errorf("lists without match should be empty: %v %v", lists[2], lists[3])
	}

	if _, err := itemOwner.LoadInverseOne(conn, targets); !errors.Is(err, ErrCardinality) {
		t.Errorf("LoadInverseOne() on ManyToOne error = %v, want ErrCardinality", err)
	}
	if _, err := entityOtherEntity.LoadInverseMany(conn, targets); !errors.Is(err, ErrCardinality) {
		t.Errorf("LoadInverseMany() on OneToOne error = %v, want ErrCardinality", err)
	}
}

func TestFindRelated(t *testing.T) {
	t.Parallel()
	conn := newSQLite(t)

	e1 := entity{Id: "e1", OtherEntityId: strPtr("o1")}
	other, err := entityOtherEntity.FindRelated(e1).One(conn)
	if err != nil || other.Id != "o1" {
		t.Errorf("FindRelated() = %+v, %v", other, err)
	}
	want := `SELECT "other_entity"."id", "other_entity"."amount_killed" FROM other_entity WHERE ("other_entity"."id" = ?)`
	if got := entityOtherEntity.FindRelated(e1).Query(); got != want {
		t.Errorf("FindRelated() = %q, want %q", got, want)
	}
	if _, err := entityOtherEntity.FindRelated(entity{Id: "e4"}).One(conn); !errors.Is(err, ErrNoRows) {
		t.Errorf("FindRelated() with NULL key error = %v, want ErrNoRows", err)
	}

	list, err := itemOwner.FindInverse(otherEntity{Id: "o1"}).All(conn)
	if err != nil || len(list) != 2 {
		t.Errorf("FindInverse() = %+v, %v", list, err)
	}
}

func TestPersistence(t *testing.T) {
	t.Parallel()
	conn := newSQLite(t)

	e1 := entities.Find().Filter(entityId.Eq("e1")).MustOne(conn)
	a := entities.ToActive(e1)
	SetField(a, entityName, "Augusta")
	if n := a.Update().MustExecute(conn); n != 1 {
		t.Errorf("Update() affected %d rows, want 1", n)
	}
	if got := entities.Find().Filter(entityId.Eq("e1")).MustOne(conn); got.Name != "Augusta" || *got.OtherEntityId != "o1" {
		t.Errorf("updated record = %+v", got)
	}

	o := otherEntities.ToActive(otherEntities.Find().Filter(otherEntityId.Eq("o3")).MustOne(conn))
	SetField(o, otherEntityId, "o7")
	if n := o.Update().MustExecute(conn); n != 1 {
		t.Errorf("Update() of primary key affected %d rows, want 1", n)
	}
	if ids := otherEntities.Find().Filter(otherEntityId.In("o3", "o7")).MustAll(conn); len(ids) != 1 || ids[0].Id != "o7" || ids[0].AmountKilled != 12 {
		t.Errorf("records after primary key update = %+v", ids)
	}

	n := entities.NewActive()
	SetField(n, entityId, "e6")
	SetField(n, entityName, "Ingrid")
	inserted, err := n.Insert().One(conn)
	if err != nil || inserted.Id != "e6" || inserted.OtherEntityId != nil {
		t.Errorf("Insert().One() = %+v, %v", inserted, err)
	}
	if affected := n.Insert().OnConflict("id").DoNothing().MustExecute(conn); affected != 0 {
		t.Errorf("Insert() on conflict affected %d rows, want 0", affected)
	}

	if affected := entities.Delete().Filter(entityName.In("Ingrid", "Zelda")).MustExecute(conn); affected != 2 {
		t.Errorf("Delete() affected %d rows, want 2", affected)
	}
	if count := entities.Find().MustCount(conn); count != 4 {
		t.Errorf("Count() = %d, want 4", count)
	}
}

func newMock(t *testing.T) (db.DB, sqlmock.Sqlmock) {
	t.Helper()
	c, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return standard.NewDB("postgres", c), mock
}

func TestParseRowByName(t *testing.T) {
	t.Parallel()
	conn, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM entity`)).
		WillReturnRows(sqlmock.NewRows([]string{"other_entity_id", "extra", "name", "id"}).
			AddRow("o1", 42, "August", "e1").
			AddRow(nil, 43, "Zelda", "e4"))

	records, err := entities.Find().All(conn)
	if err != nil {
		t.Fatal(err)
	}
	want := []entity{
		{Id: "e1", Name: "August", OtherEntityId: strPtr("o1")},
		{Id: "e4", Name: "Zelda"},
	}
	if !reflect.DeepEqual(records, want) {
		t.Errorf("All() = %+v, want %+v", records, want)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestParseRowErrors(t *testing.T) {
	t.Parallel()
	conn, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM entity`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("e1", "August"))
	_, err := entities.Find().All(conn)
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) || decodeErr.Column != "other_entity_id" || !errors.Is(err, ErrMissingColumn) {
		t.Errorf("missing column error = %v", err)
	}

	mock.ExpectQuery(regexp.QuoteMeta(`FROM other_entity`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "amount_killed"}).
			AddRow("o1", 3).
			AddRow("o2", "many"))
	_, err = otherEntities.Find().All(conn)
	if !errors.Is(err, ErrDecode) {
		t.Errorf("scan error = %v, want ErrDecode", err)
	}

	boom := errors.New("boom")
	mock.ExpectQuery(regexp.QuoteMeta(`FROM other_entity`)).WillReturnError(boom)
	if _, err = otherEntities.Find().One(conn); !errors.Is(err, boom) {
		t.Errorf("driver error = %v, want boom", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestLoadRelatedOneQuery(t *testing.T) {
	t.Parallel()
	conn, mock := newMock(t)

	owners := []entity{
		{Id: "e1", OtherEntityId: strPtr("o1")},
		{Id: "e2", OtherEntityId: strPtr("o2")},
		{Id: "e3", OtherEntityId: strPtr("o1")},
		{Id: "e4"},
	}
	mock.ExpectQuery(regexp.QuoteMeta(`FROM other_entity WHERE ("other_entity"."id" IN ($1, $2))`)).
		WithArgs("o1", "o2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "amount_killed"}).
			AddRow("o2", 7).
			AddRow("o1", 3))

	others, err := entityOtherEntity.LoadRelated(conn, owners)
	if err != nil {
		t.Fatal(err)
	}
	if others[0].Id != "o1" || others[1].Id != "o2" || *others[2] != *others[0] || others[3] != nil {
		t.Errorf("LoadRelated() = %+v", others)
	}
	others[0].AmountKilled = 99
	if others[2].AmountKilled != 3 {
		t.Errorf("owners of the same key share a record: %+v", others[2])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSelectCtxTx(t *testing.T) {
	t.Parallel()
	conn, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM other_entity WHERE ("other_entity"."amount_killed" > $1)`)).
		WithArgs(int32(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "amount_killed"}).AddRow("o2", 7))
	mock.ExpectCommit()

	tx, err := conn.BeginTx(ctx, "", false)
	if err != nil {
		t.Fatal(err)
	}
	other, err := otherEntities.Find().Filter(otherEntityAmountKilled.Gt(5)).OneCtxTx(ctx, tx)
	if err != nil || other.Id != "o2" {
		t.Errorf("OneCtxTx() = %+v, %v", other, err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
