package tsql

import (
	"encoding/json"
)

type (
	// RawChanges is a map of string keys to values, used as input to Filter
	// and Changes methods. Keys should match either JSON tag names (for
	// Changes) or struct field names (for FieldChanges).
	RawChanges map[string]interface{}

	// Changes maps Field definitions to their values. It is the output of
	// Filter and Active.Changes() and the input to Active.Apply().
	Changes map[Field]interface{}
)

func (c Changes) MarshalJSON() ([]byte, error) {
	data := map[string]interface{}{}
	for field, value := range c {
		data[field.JsonName] = value
	}
	return json.Marshal(data)
}

func (c Changes) String() string {
	j, _ := json.MarshalIndent(c, "", "  ")
	return string(j)
}

// Changes converts RawChanges to Changes using JSON tag names as keys.
// Use FieldChanges if your keys are struct field names instead.
//
//	changes := users.Changes(map[string]interface{}{
//		"name": "Alice",  // matches `json:"name"` tag
//	})
func (t *table) Changes(in RawChanges) (out Changes) {
	out = Changes{}
	for _, field := range t.fields {
		if _, ok := in[field.JsonName]; !ok {
			continue
		}
		out[field] = in[field.JsonName]
	}
	return
}

// FieldChanges converts RawChanges to Changes using struct field names as keys.
// Use Changes if your keys are JSON tag names instead.
func (t *table) FieldChanges(in RawChanges) (out Changes) {
	out = Changes{}
	for _, field := range t.fields {
		if _, ok := in[field.Name]; !ok {
			continue
		}
		out[field] = in[field.Name]
	}
	return
}
