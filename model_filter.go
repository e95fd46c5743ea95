package tsql

import (
	"encoding/json"
	"io"
	"reflect"
)

type (
	// Permitted wraps an Entity with a whitelist of permitted fields for
	// mass assignment protection. Create instances using Permit or
	// PermitAllExcept, then use Filter to safely extract allowed fields from
	// user input.
	Permitted[M any] struct {
		entity *Entity[M]
		idx    []int
	}
)

// Permit creates a Permitted that only allows the specified struct fields in
// Filter operations. If no field names are provided, no fields are
// permitted.
func (e *Entity[M]) Permit(fieldNames ...string) *Permitted[M] {
	idx := []int{}
	for i, field := range e.fields {
		for _, fieldName := range fieldNames {
			if fieldName != field.Name {
				continue
			}
			idx = append(idx, i)
			break
		}
	}
	return &Permitted[M]{e, idx}
}

// PermitAllExcept creates a Permitted that allows all fields except the
// specified ones in Filter operations. If no field names are provided, all
// fields are permitted.
func (e *Entity[M]) PermitAllExcept(fieldNames ...string) *Permitted[M] {
	idx := []int{}
	for i, field := range e.fields {
		found := false
		for _, fieldName := range fieldNames {
			if fieldName == field.Name {
				found = true
				break
			}
		}
		if !found {
			idx = append(idx, i)
		}
	}
	return &Permitted[M]{e, idx}
}

// PermittedFields returns the list of field names that are permitted for
// mass assignment.
func (p Permitted[M]) PermittedFields() (out []string) {
	for _, i := range p.idx {
		out = append(out, p.entity.fields[i].Name)
	}
	return
}

// Filter extracts only permitted fields from input data. Accepts multiple
// input types: RawChanges, JSON strings, []byte, io.Reader, or the record
// M. Map/JSON keys must match the field's JSON tag name. Later inputs
// override earlier ones.
//
//	changes := users.Permit("Name").Filter(
//		map[string]interface{}{"name": "Alice"},
//		`{"name": "Bob"}`,
//	) // name will be "Bob"
func (p Permitted[M]) Filter(inputs ...interface{}) (out Changes) {
	out = Changes{}
	for _, input := range inputs {
		switch in := input.(type) {
		case RawChanges:
			p.filterPermits(in, out)
		case map[string]interface{}:
			p.filterPermits(in, out)
		case string:
			var c RawChanges
			if json.Unmarshal([]byte(in), &c) == nil {
				p.filterPermits(c, out)
			}
		case []byte:
			var c RawChanges
			if json.Unmarshal(in, &c) == nil {
				p.filterPermits(c, out)
			}
		case io.Reader:
			var c RawChanges
			if json.NewDecoder(in).Decode(&c) == nil {
				p.filterPermits(c, out)
			}
		case M:
			rv := reflect.ValueOf(&in).Elem()
			for _, i := range p.idx {
				out[p.entity.fields[i]] = p.entity.fieldValue(rv, i)
			}
		}
	}
	return
}

// Active is like Filter but returns an active record whose filtered fields
// are Set and all other fields are NotSet.
//
//	a := users.Permit("Name").Active(requestBody)
//	_, err := a.Insert().Execute(conn)
func (p Permitted[M]) Active(inputs ...interface{}) *Active[M] {
	return p.entity.NewActive().Apply(p.Filter(inputs...))
}

func (p Permitted[M]) filterPermits(in RawChanges, out Changes) {
	for _, i := range p.idx {
		field := p.entity.fields[i]
		if _, ok := in[field.JsonName]; !ok {
			continue
		}
		v, err := json.Marshal(in[field.JsonName])
		if err != nil {
			continue
		}
		x := reflect.New(field.Type)
		if err := json.Unmarshal(v, x.Interface()); err != nil {
			continue
		}
		out[field] = x.Elem().Interface()
	}
}
