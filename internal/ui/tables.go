package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"repdata/internal/rollup"
	"repdata/internal/warehouse"
)

const dateLayout = "2006-01-02"

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

// dimension highlights rollup rows
func dimension(v string) string {
	if v == rollup.All {
		return color.CyanString(v)
	}
	return v
}

// RenderRepData renders repdata rows with one column per measure.
func RenderRepData(w io.Writer, rows []rollup.RepDataRow) {
	header := []string{"date_type", "date_value", rollup.DimProduct, rollup.DimChannel}
	for _, m := range rollup.MeasureColumns {
		header = append(header, m.Name)
	}

	table := newTable(w, header)
	for _, r := range rows {
		line := []string{string(r.DateType), r.DateValue.Format(dateLayout), dimension(r.Product), dimension(r.Channel)}
		for _, m := range rollup.MeasureColumns {
			line = append(line, strconv.FormatInt(m.Value(r.Measures), 10))
		}
		table.Append(line)
	}
	table.Render()
}

// RenderDetails renders attempt_details rows.
func RenderDetails(w io.Writer, rows []rollup.AttemptDetailRow) {
	table := newTable(w, []string{"date_type", "date_value", rollup.DimProduct, rollup.DimChannel, "series_name", "series_value"})
	for _, r := range rows {
		name := r.SeriesName
		if name == rollup.SeriesTotal {
			name = color.New(color.Bold).Sprint(name)
		}
		table.Append([]string{
			string(r.DateType),
			r.DateValue.Format(dateLayout),
			dimension(r.Product),
			dimension(r.Channel),
			name,
			strconv.FormatInt(r.SeriesValue, 10),
		})
	}
	table.Render()
}

// RenderSeries renders melted repdata points.
func RenderSeries(w io.Writer, points []rollup.SeriesPoint) {
	table := newTable(w, []string{"date_value", "series_name", "series_value"})
	for _, p := range points {
		table.Append([]string{p.DateValue.Format(dateLayout), p.SeriesName, strconv.FormatInt(p.SeriesValue, 10)})
	}
	table.Render()
}

// RenderInconsistencies lists quotes whose history disagrees.
func RenderInconsistencies(w io.Writer, items []rollup.Inconsistency) {
	table := newTable(w, []string{"quote_number", "field", "values"})
	for _, inc := range items {
		table.Append([]string{inc.QuoteNumber, inc.Field, color.YellowString(strings.Join(inc.Values, ", "))})
	}
	table.Render()
}

// RenderCollisions lists quotes whose product or channel equals a reserved
// label.
func RenderCollisions(w io.Writer, items []rollup.Collision) {
	table := newTable(w, []string{"quote_number", "field", "value"})
	for _, c := range items {
		value := color.YellowString(c.Value)
		if c.Sentinel() {
			value = color.RedString(c.Value)
		}
		table.Append([]string{c.QuoteNumber, c.Field, value})
	}
	table.Render()
}

// RenderLoads summarizes destination table replacements.
func RenderLoads(w io.Writer, loads []*warehouse.LoadResult) {
	table := newTable(w, []string{"table", "rows", "batches", "duration"})
	for _, l := range loads {
		table.Append([]string{
			l.Table,
			strconv.Itoa(l.Rows),
			strconv.Itoa(l.Batches),
			formatDuration(l.Duration),
		})
	}
	table.Render()
}

// RenderStages summarizes per-stage row counts.
func RenderStages(w io.Writer, stages []StageEvent) {
	table := newTable(w, []string{"stage", "rows", "duration"})
	for _, s := range stages {
		table.Append([]string{s.Name, fmt.Sprint(s.Rows), formatDuration(s.Duration)})
	}
	table.Render()
}
