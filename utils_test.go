package tsql_test

import (
	"testing"

	"github.com/gopsql/tsql"
)

type (
	user        struct{}
	product     struct{}
	OtherEntity struct{}
)

func (_ product) TableName() string {
	return "different_products"
}

func TestToTableName(t *testing.T) {
	cases := [][]interface{}{
		{struct{}{}, "error_no_table_name"},
		{user{}, "users"},
		{product{}, "different_products"},
		{OtherEntity{}, "other_entities"},
		{
			struct {
				__TABLE_NAME__ string `custom_name`
			}{}, "custom_name",
		},
	}
	for i, c := range cases {
		got := tsql.ToTableName(c[0])
		expected, ok := c[1].(string)
		if !ok {
			t.Errorf("case %d type conversion failed", i)
		}
		if got == expected {
			t.Logf("case %d passed", i)
		} else {
			t.Errorf("case %d failed, got %s", i, got)
		}
	}
}

func TestToUnderscore(t *testing.T) {
	cases := [][]string{
		{"column", "column"},
		{"Column", "column"},
		{"ColumnName", "column_name"},
		{"AmountKilled2", "amount_killed2"},
	}
	for i, c := range cases {
		got := tsql.ToUnderscore(c[0])
		expected := c[1]
		if got == expected {
			t.Logf("case %d passed", i)
		} else {
			t.Errorf("case %d failed, got %s", i, got)
		}
	}
}

func TestToPlural(t *testing.T) {
	cases := [][]string{
		{"", ""},
		{"product", "products"},
		{"category", "categories"},
		{"status", "statuses"},
		{"hero", "heroes"},
	}
	for i, c := range cases {
		if got := tsql.ToPlural(c[0]); got != c[1] {
			t.Errorf("case %d failed, got %s", i, got)
		}
	}
}

func TestFieldDataType(t *testing.T) {
	t.Parallel()
	tests := []struct {
		fieldType  string
		primaryKey bool
		want       string
	}{
		{"int", true, "bigint PRIMARY KEY"},
		{"string", true, "text PRIMARY KEY"},
		{"int32", false, "integer NOT NULL"},
		{"*int32", false, "integer"},
		{"time.Time", false, "timestamp NOT NULL"},
		{"*decimal.Decimal", false, "numeric(10, 2)"},
		{"float64", false, "double precision NOT NULL"},
		{"bool", false, "boolean NOT NULL"},
		{"[]uint8", false, "bytea NOT NULL"},
		{"uuid.UUID", false, "text NOT NULL"},
	}
	for _, tt := range tests {
		if got := tsql.FieldDataType(tt.fieldType, tt.primaryKey); got != tt.want {
			t.Errorf("FieldDataType(%q, %v) = %q, want %q", tt.fieldType, tt.primaryKey, got, tt.want)
		}
	}
}
