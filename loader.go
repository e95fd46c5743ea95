package tsql

import (
	"database/sql/driver"
	"fmt"
	"reflect"
)

// LoadRelated loads the records referenced by the owners with one query,
// no matter how many owners there are. The output is aligned with owners:
// out[i] is the record referenced by owners[i], or nil if its foreign key
// is NULL or nothing matches. Owners referencing the same record get
// copies of it, not the same pointer.
//
//	others, err := EntityOtherEntity.LoadRelated(conn, entities)
func (r *Relation[O, T]) LoadRelated(conn Querier, owners []O) ([]*T, error) {
	out := make([]*T, len(owners))
	keys, args := collectKeys(r.owner.table, r.fkIndex, owners)
	if len(args) == 0 {
		return out, nil
	}
	records, err := r.target.Find().
		Filter(Where(r.target, BinaryExpr{r.target.PrimaryKey(), OpIn, args})).
		All(conn)
	if err != nil {
		return nil, err
	}
	byKey := indexRecords(r.target.table, r.target.primaryKey, records)
	for i, key := range keys {
		if key == nil {
			continue
		}
		if matched := byKey[key]; len(matched) > 0 {
			record := records[matched[0]]
			out[i] = &record
		}
	}
	return out, nil
}

// LoadInverseOne loads the record owning the foreign key of every target of
// a OneToOne relation with one query. out[i] is the record referencing
// targets[i], or nil if there is none. Every target gets its own copy.
// ErrCardinality is returned for a ManyToOne relation, use LoadInverseMany
// instead.
func (r *Relation[O, T]) LoadInverseOne(conn Querier, targets []T) ([]*O, error) {
	if r.cardinality != OneToOne {
		return nil, fmt.Errorf("%w: %s to %s is %s", ErrCardinality, r.owner.name, r.target.name, r.cardinality)
	}
	out := make([]*O, len(targets))
	keys, byKey, records, err := r.loadOwners(conn, targets)
	if err != nil {
		return nil, err
	}
	for i, key := range keys {
		if key == nil {
			continue
		}
		if matched := byKey[key]; len(matched) > 0 {
			record := records[matched[0]]
			out[i] = &record
		}
	}
	return out, nil
}

// LoadInverseMany loads the records referencing every target of a
// ManyToOne relation (OneToMany seen from the targets) with one query.
// out[i] holds all records referencing targets[i] in the order the database
// returns them, it is empty if there is none. ErrCardinality is returned for
// a OneToOne relation, use LoadInverseOne instead.
func (r *Relation[O, T]) LoadInverseMany(conn Querier, targets []T) ([][]O, error) {
	if r.cardinality != ManyToOne {
		return nil, fmt.Errorf("%w: %s to %s is %s", ErrCardinality, r.owner.name, r.target.name, r.cardinality)
	}
	out := make([][]O, len(targets))
	keys, byKey, records, err := r.loadOwners(conn, targets)
	if err != nil {
		return nil, err
	}
	for i, key := range keys {
		out[i] = []O{}
		if key == nil {
			continue
		}
		for _, j := range byKey[key] {
			out[i] = append(out[i], records[j])
		}
	}
	return out, nil
}

func (r *Relation[O, T]) loadOwners(conn Querier, targets []T) ([]interface{}, map[interface{}][]int, []O, error) {
	keys, args := collectKeys(r.target.table, r.target.primaryKey, targets)
	if len(args) == 0 {
		return keys, nil, nil, nil
	}
	records, err := r.owner.Find().
		Filter(Where(r.owner, BinaryExpr{r.fk, OpIn, args})).
		All(conn)
	if err != nil {
		return nil, nil, nil, err
	}
	return keys, indexRecords(r.owner.table, r.fkIndex, records), records, nil
}

// FindRelated returns a statement finding the record referenced by owner.
// Nothing matches if the foreign key of owner is NULL.
func (r *Relation[O, T]) FindRelated(owner O) *Select[T] {
	value, ok := r.owner.fieldValueOf(owner, r.fkIndex)
	if !ok {
		return r.target.Find().Filter(Where(r.target, Raw("1 = 0")))
	}
	return r.target.Find().Filter(Where(r.target, BinaryExpr{r.target.PrimaryKey(), OpEquals, Var{value}}))
}

// FindInverse returns a statement finding the records referencing target.
func (r *Relation[O, T]) FindInverse(target T) *Select[O] {
	value, ok := r.target.fieldValueOf(target, r.target.primaryKey)
	if !ok {
		return r.owner.Find().Filter(Where(r.owner, Raw("1 = 0")))
	}
	return r.owner.Find().Filter(Where(r.owner, BinaryExpr{r.fk, OpEquals, Var{value}}))
}

// fieldValueOf returns the value of field i of record with pointers
// dereferenced. False is returned for nil.
func (t *table) fieldValueOf(record interface{}, i int) (interface{}, bool) {
	rv := reflect.New(reflect.TypeOf(record)).Elem()
	rv.Set(reflect.ValueOf(record))
	v := reflect.ValueOf(t.fieldValue(rv, i))
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	return v.Interface(), true
}

// collectKeys returns the normalized key of field i of every record (nil if
// the field is NULL) and the distinct values of the keys as bind values.
func collectKeys[R any](t *table, i int, records []R) ([]interface{}, List) {
	keys := make([]interface{}, len(records))
	seen := map[interface{}]bool{}
	var args List
	for j := range records {
		value, ok := t.fieldValueOf(records[j], i)
		if !ok {
			continue
		}
		key, ok := normalizeKey(value)
		if !ok {
			continue
		}
		keys[j] = key
		if seen[key] {
			continue
		}
		seen[key] = true
		args = append(args, Var{value})
	}
	return keys, args
}

// indexRecords groups positions of records by the normalized key of field i.
func indexRecords[R any](t *table, i int, records []R) map[interface{}][]int {
	out := map[interface{}][]int{}
	for j := range records {
		value, ok := t.fieldValueOf(records[j], i)
		if !ok {
			continue
		}
		if key, ok := normalizeKey(value); ok {
			out[key] = append(out[key], j)
		}
	}
	return out
}

// normalizeKey converts a key value to a comparable map key, so that keys
// of the same value read from different columns are equal.
func normalizeKey(value interface{}) (interface{}, bool) {
	if valuer, ok := value.(driver.Valuer); ok {
		v, err := valuer.Value()
		if err != nil || v == nil {
			return nil, false
		}
		value = v
	}
	switch v := value.(type) {
	case []byte:
		return string(v), true
	case nil:
		return nil, false
	}
	if !reflect.TypeOf(value).Comparable() {
		return fmt.Sprint(value), true
	}
	return value, true
}
