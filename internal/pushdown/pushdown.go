// Package pushdown renders the rollup pipeline as Snowflake SQL so the whole
// computation runs inside the warehouse.
package pushdown

import (
	"fmt"
	"strings"

	"repdata/internal/rollup"
	"repdata/internal/warehouse"
	apperrors "repdata/pkg/errors"
)

// Tables names the source and destination tables of a push-down run.
type Tables struct {
	Quotes         string
	Outbounds      string
	RepData        string
	AttemptDetails string
}

// Builder renders push-down scripts.
type Builder struct {
	dialect warehouse.Dialect
	tables  Tables
	opts    rollup.Options
}

// NewBuilder returns a builder for the snowflake dialect only.
func NewBuilder(d warehouse.Dialect, tables Tables, opts rollup.Options) (*Builder, error) {
	if d.Name != "snowflake" {
		return nil, apperrors.New(apperrors.ErrCodeUnsupportedDialect,
			fmt.Sprintf("The pushdown strategy requires snowflake, destination is %s", d.Name)).
			WithSuggestions("Set pipeline.strategy to memory")
	}
	if err := opts.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeConfigInvalid, "Invalid pipeline options")
	}
	return &Builder{dialect: d, tables: tables, opts: opts}, nil
}

// measureSQL holds the aggregate expression of every repdata measure over
// the sequenced CTE.
var measureSQL = map[string]string{
	"sale_count":                "SUM(CASE WHEN result = " + literal(rollup.ResultSalePolicy) + " THEN 1 ELSE 0 END)",
	"quote_count":               "COUNT(*)",
	"sum_attempts":              "SUM(attempt_ind)",
	"new_leads_given":           "SUM(CASE WHEN attempt_no = 1 THEN 1 ELSE 0 END)",
	"new_leads_contacted":       "SUM(CASE WHEN attempt_no = 1 THEN attempt_ind ELSE 0 END)",
	"leads_no_recontact_needed": "SUM(CASE WHEN result = " + literal(rollup.ResultSaleNoRecontact) + " THEN 1 ELSE 0 END)",
}

const epoch = "'1900-01-01'::DATE"

var periodColumns = map[rollup.DateType]string{
	rollup.Week:  "week_end_date",
	rollup.Month: "month_end_date",
	rollup.Year:  "year_end_date",
}

func literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Specs returns the destination tables a push-down run writes.
func (b *Builder) Specs() []warehouse.TableSpec {
	return []warehouse.TableSpec{
		warehouse.RepDataSpec(b.tables.RepData),
		warehouse.AttemptDetailsSpec(b.tables.AttemptDetails),
	}
}

// DDL returns the CREATE statements for both destination tables. They must
// run before Script's transaction opens, since Snowflake commits an open
// transaction on DDL.
func (b *Builder) DDL() string {
	var stmts []string
	for _, spec := range b.Specs() {
		stmts = append(stmts, b.dialect.CreateTableSQL(spec))
	}
	return strings.Join(stmts, ";\n\n") + ";\n"
}

// Script returns the DML that replaces both destination tables. It runs in
// one transaction and holds no DDL.
func (b *Builder) Script() (string, error) {
	repdata, err := b.RepDataInsert()
	if err != nil {
		return "", err
	}
	details := b.AttemptDetailsInsert()

	stmts := []string{
		b.dialect.ClearStatement(b.tables.RepData, true),
		repdata,
		b.dialect.ClearStatement(b.tables.AttemptDetails, true),
		details,
	}
	return strings.Join(stmts, ";\n\n") + ";\n", nil
}

// sequencedCTEs renders BoundSummary, EnrichedOutbound and AttemptSequencer.
func (b *Builder) sequencedCTEs() string {
	unknown := literal(b.opts.UnknownLabel)

	filter := "(o.created_at_dtm <= s.last_entry_date OR COALESCE(s.bound_count, 0) = 0)"
	if b.opts.Filter == rollup.FilterLastEntry {
		filter = "o.created_at_dtm <= s.last_entry_date"
	}

	orderBy := "created_at_dtm"
	if b.opts.OrderBy == rollup.OrderByAssigned {
		orderBy = "assigned_at_dtm"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `%s AS (
  SELECT quote_number,
    SUM(CASE WHEN transaction_status = %s THEN 1 ELSE 0 END) AS bound_count,
    MAX(last_entry_date) AS last_entry_date,
    MAX(product) AS product,
    MAX(quote_channel) AS quote_channel
  FROM %s
  WHERE quote_number IS NOT NULL
  GROUP BY quote_number
),
`, rollup.StageBoundSummary, literal(rollup.StatusBound), b.tables.Quotes)

	fmt.Fprintf(&sb, `%s AS (
  SELECT o.id, o.quote_number, o.result, o.assigned_at_dtm, o.created_at_dtm,
    COALESCE(s.product, %s) AS product,
    COALESCE(s.quote_channel, %s) AS quote_channel,
    CASE WHEN (o.scheduled_outbound_dt IS NULL AND o.completed_at_dtm IS NULL)
      OR o.result IS NULL OR o.result = %s THEN 0 ELSE 1 END AS attempt_ind,
    DATEADD(day, FLOOR(DATEDIFF(day, %s, o.created_at_dtm) / 7) * 7 + 4, %s) AS week_end_date,
    DATEADD(day, -1, DATEADD(month, DATEDIFF(month, %s, o.created_at_dtm) + 1, %s)) AS month_end_date,
    DATEADD(day, -1, DATEADD(year, DATEDIFF(year, %s, o.created_at_dtm) + 1, %s)) AS year_end_date
  FROM %s o
  LEFT JOIN %s s ON o.quote_number = s.quote_number
  WHERE o.created_at_dtm IS NOT NULL AND o.quote_number IS NOT NULL
    AND %s
),
`, rollup.StageEnrich, unknown, unknown, literal(rollup.ResultSaleNoRecontact),
		epoch, epoch, epoch, epoch, epoch, epoch,
		b.tables.Outbounds, rollup.StageBoundSummary, filter)

	fmt.Fprintf(&sb, `%s AS (
  SELECT e.*,
    ROW_NUMBER() OVER (PARTITION BY quote_number ORDER BY %s ASC NULLS FIRST, id) AS attempt_no
  FROM %s e
)`, rollup.StageSequence, orderBy, rollup.StageEnrich)

	return sb.String()
}

// rollupCTEs renders one CTE per rollup dimension. Each level unions its
// input with a copy where the dimension is replaced by All and the values
// summed, grouped by every other key column.
func rollupCTEs(base string, keys []string, values []string) (string, string) {
	var sb strings.Builder
	prev := base
	for _, dim := range rollup.RollupDimensions {
		name := prev + "_" + dim

		var groupBy, selectRolled []string
		for _, k := range keys {
			if k == dim {
				selectRolled = append(selectRolled, literal(rollup.All)+" AS "+k)
				continue
			}
			groupBy = append(groupBy, k)
			selectRolled = append(selectRolled, k)
		}
		for _, v := range values {
			selectRolled = append(selectRolled, fmt.Sprintf("SUM(%s) AS %s", v, v))
		}

		fmt.Fprintf(&sb, ",\n%s AS (\n  SELECT %s FROM %s\n  UNION ALL\n  SELECT %s FROM %s\n  GROUP BY %s\n)",
			name,
			strings.Join(append(append([]string{}, keys...), values...), ", "), prev,
			strings.Join(selectRolled, ", "), prev,
			strings.Join(groupBy, ", "))
		prev = name
	}
	return sb.String(), prev
}

// RepDataInsert renders INSERT INTO repdata ... WITH ... SELECT.
func (b *Builder) RepDataInsert() (string, error) {
	var measures, exprs []string
	for _, m := range rollup.MeasureColumns {
		expr, ok := measureSQL[m.Name]
		if !ok {
			return "", apperrors.New(apperrors.ErrCodeInternal,
				fmt.Sprintf("No push-down expression for measure %s", m.Name))
		}
		measures = append(measures, m.Name)
		exprs = append(exprs, expr+" AS "+m.Name)
	}

	var periods []string
	for _, dt := range rollup.DateTypes {
		col := periodColumns[dt]
		periods = append(periods, fmt.Sprintf(
			"  SELECT %s AS date_type, %s AS date_value, product, quote_channel, %s\n  FROM %s\n  GROUP BY %s, product, quote_channel",
			literal(string(dt)), col, strings.Join(exprs, ", "), rollup.StageSequence, col))
	}

	keys := []string{"date_type", "date_value", rollup.DimProduct, rollup.DimChannel}
	levels, last := rollupCTEs(rollup.StageAggregate, keys, measures)
	columns := append(append([]string{}, keys...), measures...)

	return fmt.Sprintf("INSERT INTO %s (%s)\nWITH %s,\n%s AS (\n%s\n)%s\nSELECT %s FROM %s\nORDER BY date_type, date_value, %s, %s",
		b.tables.RepData, strings.Join(columns, ", "),
		b.sequencedCTEs(),
		rollup.StageAggregate, strings.Join(periods, "\n  UNION ALL\n"),
		levels,
		strings.Join(columns, ", "), last,
		rollup.DimProduct, rollup.DimChannel), nil
}

// AttemptDetailsInsert renders INSERT INTO attempt_details ... WITH ... SELECT.
// series_name is held fixed through the rollup.
func (b *Builder) AttemptDetailsInsert() string {
	series := fmt.Sprintf(`detail_series AS (
  SELECT q.*,
    CASE WHEN result IS NULL THEN %s WHEN result = %s THEN %s ELSE result END AS series_name
  FROM %s q
)`, literal(rollup.SeriesNone), literal(rollup.SeriesTotal), literal(rollup.SeriesOther), rollup.StageSequence)

	var periods []string
	for _, dt := range rollup.DateTypes {
		col := periodColumns[dt]
		periods = append(periods,
			fmt.Sprintf("  SELECT %s AS date_type, %s AS date_value, product, quote_channel, series_name, COUNT(*) AS series_value\n  FROM detail_series\n  GROUP BY %s, product, quote_channel, series_name",
				literal(string(dt)), col, col),
			fmt.Sprintf("  SELECT %s AS date_type, %s AS date_value, product, quote_channel, %s AS series_name, COUNT(*) AS series_value\n  FROM detail_series\n  GROUP BY %s, product, quote_channel",
				literal(string(dt)), col, literal(rollup.SeriesTotal), col))
	}

	keys := []string{"date_type", "date_value", rollup.DimProduct, rollup.DimChannel, "series_name"}
	levels, last := rollupCTEs(rollup.StageAttemptDetail, keys, []string{"series_value"})
	columns := append(append([]string{}, keys...), "series_value")

	return fmt.Sprintf("INSERT INTO %s (%s)\nWITH %s,\n%s,\n%s AS (\n%s\n)%s\nSELECT %s FROM %s\nORDER BY date_type, date_value, %s, %s, series_name",
		b.tables.AttemptDetails, strings.Join(columns, ", "),
		b.sequencedCTEs(),
		series,
		rollup.StageAttemptDetail, strings.Join(periods, "\n  UNION ALL\n"),
		levels,
		strings.Join(columns, ", "), last,
		rollup.DimProduct, rollup.DimChannel)
}
