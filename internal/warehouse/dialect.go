package warehouse

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	apperrors "repdata/pkg/errors"
)

// ColumnType is a portable destination column type.
type ColumnType int

const (
	ColumnString ColumnType = iota
	ColumnInteger
	ColumnTimestamp
)

// Dialect captures the SQL differences between supported warehouses.
type Dialect struct {
	Name       string
	DriverName string
	BindType   int

	// IdentityColumn is the DDL for the surrogate id column.
	IdentityColumn string
	Types          map[ColumnType]string

	// SupportsTruncate is false where TRUNCATE is unavailable.
	SupportsTruncate bool
	// ReadOnlyTx is true when the driver accepts sql.TxOptions{ReadOnly: true}.
	ReadOnlyTx bool
	// MaxParams bounds the bind parameters of one statement, 0 for no limit.
	MaxParams int
	// MaxValuesRows bounds the rows of one VALUES list, 0 for no limit.
	MaxValuesRows int
}

var dialects = map[string]Dialect{
	"snowflake": {
		Name:           "snowflake",
		DriverName:     "snowflake",
		BindType:       sqlx.QUESTION,
		IdentityColumn: "id INTEGER AUTOINCREMENT PRIMARY KEY",
		Types: map[ColumnType]string{
			ColumnString:    "VARCHAR",
			ColumnInteger:   "NUMBER(38,0)",
			ColumnTimestamp: "TIMESTAMP_NTZ",
		},
		SupportsTruncate: true,
		MaxValuesRows:    16384,
	},
	"postgres": {
		Name:           "postgres",
		DriverName:     "pgx",
		BindType:       sqlx.DOLLAR,
		IdentityColumn: "id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY",
		Types: map[ColumnType]string{
			ColumnString:    "TEXT",
			ColumnInteger:   "BIGINT",
			ColumnTimestamp: "TIMESTAMP",
		},
		SupportsTruncate: true,
		ReadOnlyTx:       true,
		MaxParams:        65535,
	},
	"sqlite": {
		Name:           "sqlite",
		DriverName:     "sqlite",
		BindType:       sqlx.QUESTION,
		IdentityColumn: "id INTEGER PRIMARY KEY AUTOINCREMENT",
		Types: map[ColumnType]string{
			ColumnString:    "TEXT",
			ColumnInteger:   "INTEGER",
			ColumnTimestamp: "DATETIME",
		},
		MaxParams: 32766,
	},
}

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	d, ok := dialects[strings.ToLower(name)]
	if !ok {
		return Dialect{}, apperrors.New(apperrors.ErrCodeUnsupportedDialect,
			fmt.Sprintf("Unsupported warehouse dialect %q", name)).
			WithSuggestions("Use one of: snowflake, postgres, sqlite")
	}
	return d, nil
}

// Rebind converts '?' placeholders to the dialect's bind style.
func (d Dialect) Rebind(query string) string {
	return sqlx.Rebind(d.BindType, query)
}

// QuoteAlias quotes a result column alias so that its case survives
// identifier folding.
func (d Dialect) QuoteAlias(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ClearStatement empties a table. DELETE is used when the clear must share a
// transaction with the inserts that follow.
func (d Dialect) ClearStatement(table string, transactional bool) string {
	if d.SupportsTruncate && !transactional {
		return "TRUNCATE TABLE " + table
	}
	return "DELETE FROM " + table
}

// RowsPerStatement caps a batch so one INSERT stays within driver limits.
func (d Dialect) RowsPerStatement(batchSize, columns int) int {
	n := batchSize
	if n < 1 {
		n = 1
	}
	if d.MaxValuesRows > 0 && n > d.MaxValuesRows {
		n = d.MaxValuesRows
	}
	if d.MaxParams > 0 && columns > 0 && n*columns > d.MaxParams {
		n = d.MaxParams / columns
	}
	return n
}
