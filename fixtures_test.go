package tsql

import (
	"database/sql"
	"testing"

	"github.com/gopsql/db"
	"github.com/gopsql/standard"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// Test structs shared by tests of the package
type (
	entity struct {
		Id            string  `column:"id,pk"`
		Name          string  `column:"name" json:"name"`
		OtherEntityId *string `column:"other_entity_id" json:"other_entity_id"`
	}

	otherEntity struct {
		Id           string `column:"id,pk"`
		AmountKilled int32  `column:"amount_killed"`
	}

	item struct {
		Id      int64           `column:"id,pk"`
		OwnerId string          `column:"owner_id"`
		Title   string          `column:"title"`
		Price   decimal.Decimal `column:"price"`
	}
)

func (entity) TableName() string      { return "entity" }
func (otherEntity) TableName() string { return "other_entity" }

var (
	entities            = MustDefine[entity]()
	entityId            = MustColumn[entity, string](entities, "id")
	entityName          = MustColumn[entity, string](entities, "name")
	entityOtherEntityId = MustColumn[entity, *string](entities, "other_entity_id")

	otherEntities           = MustDefine[otherEntity]()
	otherEntityId           = MustColumn[otherEntity, string](otherEntities, "id")
	otherEntityAmountKilled = MustColumn[otherEntity, int32](otherEntities, "amount_killed")

	items       = MustDefine[item]()
	itemId      = MustColumn[item, int64](items, "id")
	itemOwnerId = MustColumn[item, string](items, "owner_id")
	itemTitle   = MustColumn[item, string](items, "title")
	itemPrice   = MustColumn[item, decimal.Decimal](items, "price")

	entityOtherEntity = MustRelate(entityOtherEntityId, otherEntities, OneToOne)
	itemOwner         = MustRelate(itemOwnerId, otherEntities, ManyToOne)
)

func strPtr(s string) *string {
	return &s
}

// newSQLite returns a connection to a new in-memory database with tables of
// the test entities and some rows.
func newSQLite(t *testing.T) db.DB {
	t.Helper()
	c, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	c.SetMaxOpenConns(1)
	t.Cleanup(func() { c.Close() })
	conn := WithPlaceholder(standard.NewDB("sqlite", c), Question)
	for _, stmt := range []string{
		otherEntities.Schema(),
		entities.Schema(),
		items.Schema(),
		`INSERT INTO other_entity (id, amount_killed) VALUES ('o1', 3), ('o2', 7), ('o3', 12)`,
		`INSERT INTO entity (id, name, other_entity_id) VALUES
			('e1', 'August', 'o1'), ('e2', 'Bertha', 'o2'), ('e3', 'Gustav', 'o3'),
			('e4', 'Zelda', NULL), ('e5', 'Harald', 'o9')`,
		`INSERT INTO items (id, owner_id, title, price) VALUES
			(1, 'o1', 'sword', '12.50'), (2, 'o2', 'shield', '7'), (3, 'o1', 'bow', '3.25')`,
	} {
		if _, err := conn.Exec(stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
	return conn
}
