// Package schema describes database tables as a Schema, reads it from a live
// database and stores it as a JSON or YAML file for code generation.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the schema of the current project is stored.
const DefaultPath = "tsql/schema.json"

var (
	ErrNoTable  = errors.New("no such table")
	ErrNoColumn = errors.New("no such column")
)

type (
	Schema struct {
		Tables []Table `json:"tables" yaml:"tables"`
	}

	Table struct {
		Name       string   `json:"name" yaml:"name"`
		Columns    []Column `json:"columns" yaml:"columns"`
		PrimaryKey *string  `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	}

	Column struct {
		Name       string      `json:"name" yaml:"name"`
		Type       string      `json:"type" yaml:"type"`
		Nullable   bool        `json:"nullable" yaml:"nullable"`
		Unique     bool        `json:"unique" yaml:"unique"`
		PrimaryKey bool        `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
		ForeignKey *ForeignKey `json:"foreign_key,omitempty" yaml:"foreign_key,omitempty"`
	}

	// ForeignKey is the column referenced by a column.
	ForeignKey struct {
		Table  string `json:"table" yaml:"table"`
		Column string `json:"column" yaml:"column"`
	}
)

// FindTable returns the table with the name, nil if there is none.
func (s *Schema) FindTable(name string) *Table {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// FindColumn returns the column with the name, nil if there is none.
func (t *Table) FindColumn(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// Column returns the referenced column of the schema.
func (s *Schema) Column(fk ForeignKey) (*Table, *Column, error) {
	t := s.FindTable(fk.Table)
	if t == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoTable, fk.Table)
	}
	c := t.FindColumn(fk.Column)
	if c == nil {
		return nil, nil, fmt.Errorf("%w: %s.%s", ErrNoColumn, fk.Table, fk.Column)
	}
	return t, c, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load reads a schema file. Files ending with .yaml or .yml are read as
// YAML, others as JSON.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Schema
	if isYAML(path) {
		err = yaml.Unmarshal(data, &s)
	} else {
		err = json.Unmarshal(data, &s)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &s, nil
}

// Write stores the schema to path, creating its directory if needed.
func (s *Schema) Write(path string) error {
	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(s)
	} else {
		data, err = json.MarshalIndent(s, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
