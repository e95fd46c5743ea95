// Package gen generates entity declarations of package tsql from a schema.
//
// For a table "entity" with columns "id", "name" and "other_entity_id"
// referencing "other_entity", Generate writes:
//
//	type Entity struct {
//		Id            string  `column:"id,pk" json:"id"`
//		Name          string  `column:"name" json:"name"`
//		OtherEntityId *string `column:"other_entity_id" json:"other_entity_id"`
//	}
//
//	func (Entity) TableName() string { return "entity" }
//
//	var (
//		EntityTable         = tsql.MustDefine[Entity]()
//		EntityId            = tsql.MustColumn[Entity, string](EntityTable, "id")
//		...
//		EntityOtherEntity   = tsql.MustRelate(EntityOtherEntityId, OtherEntityTable, tsql.ManyToOne)
//	)
//
// together with EntityActive, a struct of tsql.Value fields.
package gen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/dave/jennifer/jen"
	"github.com/go-openapi/inflect"
	"github.com/gopsql/tsql/schema"
	"golang.org/x/sync/errgroup"
)

const tsqlPath = "github.com/gopsql/tsql"

var (
	ErrUnknownType       = errors.New("unknown sql type")
	ErrInvalidType       = errors.New("invalid go type")
	ErrDuplicateColumn   = errors.New("duplicate column name")
	ErrDuplicateField    = errors.New("duplicate field name")
	ErrMissingPrimaryKey = errors.New("missing primary key")
	ErrUnknownColumn     = errors.New("no such column")
	ErrUnknownTable      = errors.New("no such table")
	ErrForeignKey        = errors.New("invalid foreign key")
	ErrForeignKeyType    = errors.New("foreign key type does not match referenced column type")
	ErrDuplicateFile     = errors.New("duplicate file name")
)

type (
	// Options of the generated code of one table.
	Options struct {
		Package string                  // package name, default is "models"
		Fields  map[string]FieldOptions // by column name
	}

	// FieldOptions changes the struct field of a column.
	FieldOptions struct {
		Rename string            `mapstructure:"rename" yaml:"rename"` // field name
		Type   string            `mapstructure:"type" yaml:"type"`     // Go type, packages are import paths
		Tags   map[string]string `mapstructure:"tags" yaml:"tags"`     // extra struct tags
	}

	field struct {
		name   string
		column schema.Column
		typ    goType
		tags   map[string]string
	}

	model struct {
		table    *schema.Table
		name     string
		fields   []field
		pk       int
		relation []relation
	}

	relation struct {
		name        string
		field       field
		target      string
		cardinality string
	}
)

// DefaultPackage is the package name of generated code if none is given.
const DefaultPackage = "models"

// StructName returns the struct name of a table, "other_entities" is
// OtherEntity.
func StructName(table string) string {
	return inflect.Camelize(inflect.Singularize(table))
}

// FieldName returns the struct field name of a column.
func FieldName(column string) string {
	return inflect.Camelize(column)
}

// FileName returns the name of the generated file of a table.
func FileName(table string) string {
	return inflect.Underscore(StructName(table)) + ".go"
}

// Generate returns Go source declaring the record struct, entity, columns,
// active struct and relations of a table. The whole schema is needed to
// check foreign keys.
func Generate(s *schema.Schema, table string, opts Options) ([]byte, error) {
	t := s.FindTable(table)
	if t == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	m, err := newModel(s, t, opts)
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", table, err)
	}
	pkg := opts.Package
	if pkg == "" {
		pkg = DefaultPackage
	}
	f := jen.NewFile(pkg)
	f.HeaderComment("Code generated by tsql. DO NOT EDIT.")
	m.render(f)
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, fmt.Errorf("table %s: %w", table, err)
	}
	return buf.Bytes(), nil
}

// GenerateAll generates code of every table of the schema concurrently and
// returns sources by file name. Options are looked up by table name, pkg is
// the package of tables without Options.Package.
func GenerateAll(ctx context.Context, s *schema.Schema, pkg string, options map[string]Options) (map[string][]byte, error) {
	for name := range options {
		if s.FindTable(name) == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTable, name)
		}
	}
	out := map[string][]byte{}
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, t := range s.Tables {
		t := t
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			opts := options[t.Name]
			if opts.Package == "" {
				opts.Package = pkg
			}
			src, err := Generate(s, t.Name, opts)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			name := FileName(t.Name)
			if _, ok := out[name]; ok {
				return fmt.Errorf("%w: two tables generate %s", ErrDuplicateFile, name)
			}
			out[name] = src
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func newModel(s *schema.Schema, t *schema.Table, opts Options) (*model, error) {
	if t.PrimaryKey == nil {
		return nil, ErrMissingPrimaryKey
	}
	for column := range opts.Fields {
		if t.FindColumn(column) == nil {
			return nil, fmt.Errorf("%w: %s has options", ErrUnknownColumn, column)
		}
	}

	m := &model{table: t, name: StructName(t.Name), pk: -1}
	columns := map[string]bool{}
	fields := map[string]bool{
		"TableName": true,
		"ToActive":  true,
	}
	for _, c := range t.Columns {
		if columns[c.Name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, c.Name)
		}
		columns[c.Name] = true

		o := opts.Fields[c.Name]
		f := field{name: FieldName(c.Name), column: c}
		if o.Rename != "" {
			f.name = o.Rename
		}
		if fields[f.name] {
			return nil, fmt.Errorf("%w: %s of column %s", ErrDuplicateField, f.name, c.Name)
		}
		fields[f.name] = true

		var err error
		if o.Type != "" {
			f.typ, err = parseType(o.Type)
		} else {
			f.typ, err = typeOf(c.Type, c.Nullable && c.Name != *t.PrimaryKey)
		}
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.Name, err)
		}

		f.tags = map[string]string{"column": c.Name, "json": c.Name}
		if c.Name == *t.PrimaryKey {
			f.tags["column"] += ",pk"
			m.pk = len(m.fields)
		}
		for k, v := range o.Tags {
			f.tags[k] = v
		}
		m.fields = append(m.fields, f)
	}
	if m.pk == -1 {
		return nil, fmt.Errorf("%w: %s is not a column", ErrMissingPrimaryKey, *t.PrimaryKey)
	}

	targets := map[string]string{}
	for _, f := range m.fields {
		fk := f.column.ForeignKey
		if fk == nil {
			continue
		}
		target, column, err := s.Column(*fk)
		if err != nil {
			return nil, fmt.Errorf("%w: column %s: %w", ErrForeignKey, f.column.Name, err)
		}
		if other, ok := targets[target.Name]; ok {
			return nil, fmt.Errorf("%w: columns %s and %s both reference %s",
				ErrForeignKey, other, f.column.Name, target.Name)
		}
		targets[target.Name] = f.column.Name
		if target.PrimaryKey == nil || *target.PrimaryKey != column.Name {
			return nil, fmt.Errorf("%w: column %s references %s.%s which is not a primary key",
				ErrForeignKey, f.column.Name, fk.Table, fk.Column)
		}
		targetOpts := Options{}
		if target.Name == t.Name {
			targetOpts = opts
		}
		targetType, err := columnType(column, targetOpts)
		if err != nil {
			return nil, fmt.Errorf("%w: column %s: %w", ErrForeignKey, f.column.Name, err)
		}
		if f.typ.base() != targetType.base() {
			return nil, fmt.Errorf("%w: %s is %s, %s.%s is %s", ErrForeignKeyType,
				f.column.Name, f.typ, fk.Table, fk.Column, targetType)
		}
		cardinality := "ManyToOne"
		if f.column.Unique {
			cardinality = "OneToOne"
		}
		name := FieldName(strings.TrimSuffix(f.column.Name, "_id"))
		if fields[name] {
			name += "Relation"
		}
		m.relation = append(m.relation, relation{
			name:        m.name + name,
			field:       f,
			target:      StructName(target.Name),
			cardinality: cardinality,
		})
	}
	return m, nil
}

// columnType returns the type of a referenced column. Options of other
// tables are not known, so a referenced column always has its default type.
func columnType(c *schema.Column, opts Options) (goType, error) {
	if o, ok := opts.Fields[c.Name]; ok && o.Type != "" {
		return parseType(o.Type)
	}
	return typeOf(c.Type, false)
}

func (m *model) render(f *jen.File) {
	table := m.name + "Table"

	var fields []jen.Code
	for _, x := range m.fields {
		fields = append(fields, jen.Id(x.name).Add(x.typ.code()).Tag(x.tags))
	}
	f.Commentf("%s is a record of table %s.", m.name, m.table.Name)
	f.Type().Id(m.name).Struct(fields...)

	f.Func().Params(jen.Id(m.name)).Id("TableName").Params().String().Block(
		jen.Return(jen.Lit(m.table.Name)),
	)

	defs := []jen.Code{
		jen.Id(table).Op("=").Qual(tsqlPath, "MustDefine").Types(jen.Id(m.name)).Call(),
	}
	for _, x := range m.fields {
		defs = append(defs, jen.Id(m.name+x.name).Op("=").
			Qual(tsqlPath, "MustColumn").Types(jen.Id(m.name), x.typ.code()).
			Call(jen.Id(table), jen.Lit(x.column.Name)))
	}
	for _, r := range m.relation {
		defs = append(defs, jen.Id(r.name).Op("=").Qual(tsqlPath, "MustRelate").Call(
			jen.Id(m.name+r.field.name),
			jen.Id(r.target+"Table"),
			jen.Qual(tsqlPath, r.cardinality),
		))
	}
	f.Var().Defs(defs...)

	active := m.name + "Active"
	var activeFields []jen.Code
	toActive := jen.Dict{}
	var apply []jen.Code
	for _, x := range m.fields {
		activeFields = append(activeFields, jen.Id(x.name).Qual(tsqlPath, "Value").Types(x.typ.code()))
		toActive[jen.Id(x.name)] = jen.Qual(tsqlPath, "Unchanged").Call(jen.Id("r").Dot(x.name))
		apply = append(apply, jen.If(jen.Id("x").Dot(x.name).Dot("IsSet").Call()).Block(
			jen.List(jen.Id("v"), jen.Id("_")).Op(":=").Id("x").Dot(x.name).Dot("Get").Call(),
			jen.Qual(tsqlPath, "SetField").Call(jen.Id("a"), jen.Id(m.name+x.name), jen.Id("v")),
		))
	}
	apply = append(apply, jen.Return(jen.Id("a")))

	f.Commentf("%s holds the state of every field of a %s.", active, m.name)
	f.Type().Id(active).Struct(activeFields...)

	f.Commentf("ToActive returns every field of the record as Unchanged.")
	f.Func().Params(jen.Id("r").Id(m.name)).Id("ToActive").Params().Id(active).Block(
		jen.Return(jen.Id(active).Values(toActive)),
	)

	f.Commentf("Apply sets the fields in StateSet to a.")
	activeType := jen.Op("*").Qual(tsqlPath, "Active").Types(jen.Id(m.name))
	f.Func().Params(jen.Id("x").Id(active)).Id("Apply").
		Params(jen.Id("a").Add(activeType)).Add(activeType.Clone()).
		Block(apply...)
}
