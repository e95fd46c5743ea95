package tsql

import (
	"errors"
	"fmt"
	"reflect"
)

// Cardinality of a relation, seen from one of its entities.
type Cardinality int

const (
	// OneToOne: at most one record on each side.
	OneToOne Cardinality = iota + 1
	// ManyToOne: many owning records reference one record.
	ManyToOne
	// OneToMany: the inverse of ManyToOne, it can not be declared.
	OneToMany
)

var (
	ErrCardinality       = errors.New("invalid cardinality")
	ErrRelationType      = errors.New("foreign key type does not match primary key type")
	ErrDuplicateRelation = errors.New("relation already declared")
)

func (c Cardinality) String() string {
	switch c {
	case OneToOne:
		return "OneToOne"
	case ManyToOne:
		return "ManyToOne"
	case OneToMany:
		return "OneToMany"
	}
	return fmt.Sprintf("Cardinality(%d)", int(c))
}

// Inverse returns the cardinality seen from the other entity.
func (c Cardinality) Inverse() Cardinality {
	switch c {
	case ManyToOne:
		return OneToMany
	case OneToMany:
		return ManyToOne
	}
	return c
}

type (
	relation struct {
		owner       *table
		fk          ColumnName
		fkIndex     int
		target      *table
		cardinality Cardinality
	}

	// Relation is a foreign key of the entity of O (the owning side)
	// referencing the primary key of the entity of T. It is declared once
	// with Relate() and is visible from both entities.
	Relation[O any, T any] struct {
		*relation
		owner  *Entity[O]
		target *Entity[T]
	}

	// RelationInfo describes a relation seen from one of its entities.
	RelationInfo struct {
		Table       string      // table of the other entity
		ForeignKey  ColumnName  // foreign key column of the owning entity
		References  ColumnName  // primary key column of the referenced entity
		Cardinality Cardinality // cardinality seen from this entity
		Owning      bool        // true if this entity has the foreign key
	}
)

// Relate declares that column fk of entity O references the primary key of
// entity T. The cardinality must be OneToOne or ManyToOne, the inverse
// relation seen from T is derived from it. Type of fk (or the type it points
// to) must be the type of the primary key of T. A pair of entities can only
// have one relation.
//
//	var EntityOtherEntity = tsql.MustRelate(EntityOtherEntityId, OtherEntities, tsql.OneToOne)
func Relate[O any, T any, K any](fk Column[O, K], target *Entity[T], cardinality Cardinality) (*Relation[O, T], error) {
	owner := fk.entity
	if cardinality != OneToOne && cardinality != ManyToOne {
		return nil, fmt.Errorf("%w: %s can not be declared on %s", ErrCardinality, cardinality, owner.name)
	}
	fkType, pkType := baseType(owner.fields[fk.index].Type), baseType(target.fields[target.primaryKey].Type)
	if fkType != pkType {
		return nil, fmt.Errorf("%w: %s is %s, %s is %s", ErrRelationType,
			fk.FullName(), fkType, target.PrimaryKey(), pkType)
	}
	r := &relation{
		owner:       owner.table,
		fk:          fk.FullName(),
		fkIndex:     fk.index,
		target:      target.table,
		cardinality: cardinality,
	}
	if !owner.addOwnedRelation(r) {
		return nil, fmt.Errorf("%w: %s references %s", ErrDuplicateRelation, owner.name, target.name)
	}
	if target.table != owner.table {
		target.addRelation(r)
	}
	return &Relation[O, T]{r, owner, target}, nil
}

// MustRelate is like Relate but panics if the relation is invalid.
func MustRelate[O any, T any, K any](fk Column[O, K], target *Entity[T], cardinality Cardinality) *Relation[O, T] {
	r, err := Relate(fk, target, cardinality)
	if err != nil {
		panic(err)
	}
	return r
}

func baseType(rt reflect.Type) reflect.Type {
	if rt.Kind() == reflect.Ptr {
		return rt.Elem()
	}
	return rt
}

// Owner returns the entity having the foreign key.
func (r *Relation[O, T]) Owner() *Entity[O] {
	return r.owner
}

// Target returns the referenced entity.
func (r *Relation[O, T]) Target() *Entity[T] {
	return r.target
}

// Cardinality seen from the owning entity.
func (r *Relation[O, T]) Cardinality() Cardinality {
	return r.cardinality
}

// ForeignKey returns the foreign key column.
func (r *Relation[O, T]) ForeignKey() ColumnName {
	return r.fk
}

func (t *table) addRelation(r *relation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.relations = append(t.relations, r)
}

// addOwnedRelation registers r on its owning table unless the table already
// has a relation to the same target.
func (t *table) addOwnedRelation(r *relation) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, existing := range t.relations {
		if existing.owner == r.owner && existing.target == r.target {
			return false
		}
	}
	t.relations = append(t.relations, r)
	return true
}

func (t *table) findRelation(owner, target *table) *relation {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, r := range t.relations {
		if r.owner == owner && r.target == target {
			return r
		}
	}
	return nil
}

func (t *table) ownedRelations() (out []*relation) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, r := range t.relations {
		if r.owner == t {
			out = append(out, r)
		}
	}
	return
}

// Relations returns all relations of the entity, declared on it or on the
// entities referencing it.
func (t *table) Relations() []RelationInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]RelationInfo, 0, len(t.relations))
	for _, r := range t.relations {
		info := RelationInfo{
			ForeignKey: r.fk,
			References: r.target.PrimaryKey(),
		}
		if r.owner == t {
			info.Table = r.target.name
			info.Cardinality = r.cardinality
			info.Owning = true
		} else {
			info.Table = r.owner.name
			info.Cardinality = r.cardinality.Inverse()
		}
		out = append(out, info)
	}
	return out
}
