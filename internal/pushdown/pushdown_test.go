package pushdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repdata/internal/rollup"
	"repdata/internal/warehouse"
	apperrors "repdata/pkg/errors"
)

var testTables = Tables{
	Quotes:         "SRC.PUBLIC.QUOTES",
	Outbounds:      "SRC.PUBLIC.OUTBOUNDS",
	RepData:        "repdata",
	AttemptDetails: "attempt_details",
}

func newTestBuilder(t *testing.T, opts rollup.Options) *Builder {
	t.Helper()
	d, err := warehouse.DialectFor("snowflake")
	require.NoError(t, err)
	b, err := NewBuilder(d, testTables, opts)
	require.NoError(t, err)
	return b
}

func TestNewBuilderRequiresSnowflake(t *testing.T) {
	d, err := warehouse.DialectFor("postgres")
	require.NoError(t, err)

	_, err = NewBuilder(d, testTables, rollup.DefaultOptions())
	assert.Equal(t, apperrors.ErrCodeUnsupportedDialect, apperrors.GetErrorCode(err))
}

func TestEveryMeasureHasExpression(t *testing.T) {
	for _, m := range rollup.MeasureColumns {
		_, ok := measureSQL[m.Name]
		assert.True(t, ok, "measure %s", m.Name)
	}
	assert.Len(t, measureSQL, len(rollup.MeasureColumns))
}

func TestRepDataInsertShape(t *testing.T) {
	sql, err := newTestBuilder(t, rollup.DefaultOptions()).RepDataInsert()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sql,
		"INSERT INTO repdata (date_type, date_value, product, quote_channel, sale_count, quote_count,"))
	for _, cte := range []string{
		"bound_summary AS (",
		"enriched_outbound AS (",
		"attempt_sequencer AS (",
		"period_aggregator AS (",
		"period_aggregator_product AS (",
		"period_aggregator_product_quote_channel AS (",
	} {
		assert.Contains(t, sql, cte)
	}

	assert.Contains(t, sql, "FROM SRC.PUBLIC.QUOTES")
	assert.Contains(t, sql, "LEFT JOIN bound_summary s ON o.quote_number = s.quote_number")
	assert.Contains(t, sql, "WHERE o.created_at_dtm IS NOT NULL AND o.quote_number IS NOT NULL")
	assert.Contains(t, sql, "(o.created_at_dtm <= s.last_entry_date OR COALESCE(s.bound_count, 0) = 0)")
	assert.Contains(t, sql, "ORDER BY created_at_dtm ASC NULLS FIRST, id")
	assert.Contains(t, sql, "FLOOR(DATEDIFF(day, '1900-01-01'::DATE, o.created_at_dtm) / 7) * 7 + 4")
	assert.Contains(t, sql, "COALESCE(s.product, 'Unknown')")
	assert.Equal(t, 3, strings.Count(sql, " AS date_type, "))
	assert.Contains(t, sql, "'All' AS product")
	assert.Contains(t, sql, "'All' AS quote_channel")
	assert.True(t, strings.HasSuffix(sql, "ORDER BY date_type, date_value, product, quote_channel"))
}

func TestRepDataInsertOptions(t *testing.T) {
	opts := rollup.Options{
		Filter:       rollup.FilterLastEntry,
		OrderBy:      rollup.OrderByAssigned,
		UnknownLabel: "n/a 'x'",
	}
	sql, err := newTestBuilder(t, opts).RepDataInsert()
	require.NoError(t, err)

	assert.NotContains(t, sql, "COALESCE(s.bound_count, 0) = 0")
	assert.Contains(t, sql, "AND o.created_at_dtm <= s.last_entry_date")
	assert.Contains(t, sql, "ORDER BY assigned_at_dtm ASC NULLS FIRST, id")
	assert.Contains(t, sql, "COALESCE(s.quote_channel, 'n/a ''x''')")
}

func TestAttemptDetailsInsertShape(t *testing.T) {
	sql := newTestBuilder(t, rollup.DefaultOptions()).AttemptDetailsInsert()

	assert.True(t, strings.HasPrefix(sql,
		"INSERT INTO attempt_details (date_type, date_value, product, quote_channel, series_name, series_value)"))
	assert.Contains(t, sql, "CASE WHEN result IS NULL THEN 'None' WHEN result = 'Total' THEN 'Other' ELSE result END AS series_name")
	assert.Equal(t, 3, strings.Count(sql, "'Total' AS series_name"))
	// series_name stays in the group key of both rollup levels
	assert.Contains(t, sql, "GROUP BY date_type, date_value, quote_channel, series_name")
	assert.Contains(t, sql, "GROUP BY date_type, date_value, product, series_name")
	assert.True(t, strings.HasSuffix(sql, "ORDER BY date_type, date_value, product, quote_channel, series_name"))
}

func TestScript(t *testing.T) {
	script, err := newTestBuilder(t, rollup.DefaultOptions()).Script()
	require.NoError(t, err)

	var heads []string
	for _, stmt := range strings.Split(script, ";\n\n") {
		heads = append(heads, strings.SplitN(strings.TrimSpace(stmt), "\n", 2)[0])
	}
	require.Len(t, heads, 4)
	assert.Equal(t, "DELETE FROM repdata", heads[0])
	assert.True(t, strings.HasPrefix(heads[1], "INSERT INTO repdata"))
	assert.Equal(t, "DELETE FROM attempt_details", heads[2])
	assert.True(t, strings.HasPrefix(heads[3], "INSERT INTO attempt_details"))
	assert.NotContains(t, script, "TRUNCATE")
	assert.NotContains(t, script, "CREATE TABLE")
}

func TestDDL(t *testing.T) {
	b := newTestBuilder(t, rollup.DefaultOptions())

	specs := b.Specs()
	require.Len(t, specs, 2)
	assert.Equal(t, "repdata", specs[0].Name)
	assert.Equal(t, "attempt_details", specs[1].Name)

	ddl := b.DDL()
	stmts := strings.Split(strings.TrimSuffix(ddl, ";\n"), ";\n\n")
	require.Len(t, stmts, 2)
	assert.True(t, strings.HasPrefix(stmts[0], "CREATE TABLE IF NOT EXISTS repdata ("))
	assert.True(t, strings.HasPrefix(stmts[1], "CREATE TABLE IF NOT EXISTS attempt_details ("))
	assert.NotContains(t, ddl, "DELETE")
}
