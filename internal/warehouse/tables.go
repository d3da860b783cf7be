package warehouse

import (
	"fmt"
	"strings"

	"repdata/internal/rollup"
)

// Column is one destination column. Every column is NOT NULL.
type Column struct {
	Name string
	Type ColumnType
}

// TableSpec describes a destination table without its identity column.
type TableSpec struct {
	Name    string
	Columns []Column
}

// ColumnNames returns the insertable column names in order.
func (t TableSpec) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

var dimensionColumns = []Column{
	{Name: "date_type", Type: ColumnString},
	{Name: "date_value", Type: ColumnTimestamp},
	{Name: rollup.DimProduct, Type: ColumnString},
	{Name: rollup.DimChannel, Type: ColumnString},
}

// RepDataSpec is the repdata table: dimensions followed by one column per
// measure.
func RepDataSpec(name string) TableSpec {
	cols := append([]Column{}, dimensionColumns...)
	for _, m := range rollup.MeasureColumns {
		cols = append(cols, Column{Name: m.Name, Type: ColumnInteger})
	}
	return TableSpec{Name: name, Columns: cols}
}

// AttemptDetailsSpec is the melted attempt_details table.
func AttemptDetailsSpec(name string) TableSpec {
	cols := append([]Column{}, dimensionColumns...)
	cols = append(cols,
		Column{Name: "series_name", Type: ColumnString},
		Column{Name: "series_value", Type: ColumnInteger},
	)
	return TableSpec{Name: name, Columns: cols}
}

// CreateTableSQL renders CREATE TABLE IF NOT EXISTS for spec.
func (d Dialect) CreateTableSQL(spec TableSpec) string {
	defs := []string{d.IdentityColumn}
	for _, c := range spec.Columns {
		defs = append(defs, fmt.Sprintf("%s %s NOT NULL", c.Name, d.Types[c.Type]))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", spec.Name, strings.Join(defs, ",\n  "))
}

// InsertSQL renders a multi-row INSERT for n rows in the dialect's bind style.
func (d Dialect) InsertSQL(spec TableSpec, n int) string {
	row := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(spec.Columns)), ", ") + ")"
	rows := make([]string, n)
	for i := range rows {
		rows[i] = row
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		spec.Name, strings.Join(spec.ColumnNames(), ", "), strings.Join(rows, ", "))
	return d.Rebind(query)
}

// RepDataValues flattens rows in RepDataSpec column order.
func RepDataValues(rows []rollup.RepDataRow) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, r := range rows {
		vals := []interface{}{string(r.DateType), r.DateValue, r.Product, r.Channel}
		for _, m := range rollup.MeasureColumns {
			vals = append(vals, m.Value(r.Measures))
		}
		out[i] = vals
	}
	return out
}

// AttemptDetailValues flattens rows in AttemptDetailsSpec column order.
func AttemptDetailValues(rows []rollup.AttemptDetailRow) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, r := range rows {
		out[i] = []interface{}{string(r.DateType), r.DateValue, r.Product, r.Channel, r.SeriesName, r.SeriesValue}
	}
	return out
}
