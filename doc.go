// Package tsql provides typed query construction and relation loading for
// relational databases.
//
// # Overview
//
// Package tsql maps Go structs to tables and lets you express filters,
// foreign key lookups and row hydration with typed columns instead of raw
// SQL text. Statements are rendered to SQL with bind values in the exact
// order the driver expects and are executed through a connection you own,
// usually a db.DB from github.com/gopsql/pgx, github.com/gopsql/pq,
// github.com/gopsql/gopg or github.com/gopsql/standard.
//
// Key features include:
//   - Entities and typed columns validated when they are declared
//   - Composable conditions rendering to SQL and bind values
//   - Relation filters expressed as pseudo-joins
//   - Batched relation loading with one query per relation
//   - Change tracking with active records
//
// # Entities and Columns
//
// An entity is defined from a struct. Columns are typed accessors of its
// fields:
//
//	type Entity struct {
//		Id            string  `column:"id,pk"`
//		Name          string  `column:"name"`
//		OtherEntityId *string `column:"other_entity_id"`
//	}
//
//	func (Entity) TableName() string { return "entity" }
//
//	var (
//		Entities            = tsql.MustDefine[Entity]()
//		EntityName          = tsql.MustColumn[Entity, string](Entities, "name")
//		EntityOtherEntityId = tsql.MustColumn[Entity, *string](Entities, "other_entity_id")
//	)
//
// Define fails for duplicate column names, a missing primary key and field
// types drivers cannot handle. MustColumn panics if the type parameter is not
// the type of the struct field.
//
// # Conditions
//
// Columns create conditions with Eq, NotEq, Gt, Lt, Geq, Leq, Like, ILike,
// IsNull, IsNotNull, In, NotIn, Between and NotBetween. Conditions of the same
// entity are combined with And and Or, which never add brackets; use
// Brackets to group them:
//
//	EntityName.Eq("a").Or(EntityName.Eq("b")).Brackets().And(EntityOtherEntityId.IsNull())
//	// ("entity"."name" = ? OR "entity"."name" = ?) AND "entity"."other_entity_id" IS NULL
//
// # Finding Records
//
// Every condition passed to Filter is put in brackets and conditions are
// joined with AND:
//
//	rows, err := Entities.Find().
//		Filter(EntityName.Between("August", "Gustav")).
//		All(conn)
//	// SELECT "entity"."id", "entity"."name", "entity"."other_entity_id" FROM entity
//	// WHERE ("entity"."name" BETWEEN $1 AND $2)
//
// One returns ErrNoRows if nothing matches, All returns an empty slice.
// Use OneCtxTx, AllCtxTx or WithTx to run in a transaction.
//
// # Relations
//
// A relation is declared once on the entity having the foreign key, and is
// visible from both entities:
//
//	var EntityOtherEntity = tsql.MustRelate(EntityOtherEntityId, OtherEntities, tsql.OneToOne)
//
// Relations let you filter by conditions of related entities:
//
//	Entities.Find().WhereInverseRelation(OtherEntityAmountKilled.Gt(5))
//	// SELECT ... FROM entity, other_entity
//	// WHERE ("other_entity"."amount_killed" > $1 AND "entity"."other_entity_id" = "other_entity"."id")
//
// and load related records of many records with one query:
//
//	others, err := EntityOtherEntity.LoadRelated(conn, entities)
//
// # Active Records
//
// An active record tracks which fields are changed:
//
//	a := Entities.ToActive(entity) // every field is Unchanged
//	tsql.SetField(a, EntityName, "Gustav")
//	a.Update().MustExecute(conn)
//	// UPDATE entity SET name = $1 WHERE ("entity"."id" = $2)
//
// # Logging
//
// Statements are logged at debug level to DefaultLogger or the logger set
// with SetLogger. By default, no logger is used.
package tsql
