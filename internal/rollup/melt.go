package rollup

import "time"

// SeriesPoint is one measure of one repdata row in long form.
type SeriesPoint struct {
	DateValue   time.Time
	SeriesName  string
	SeriesValue int64
}

// MeltRepData reshapes repdata rows into one point per measure column.
func MeltRepData(rows []RepDataRow) []SeriesPoint {
	out := make([]SeriesPoint, 0, len(rows)*len(MeasureColumns))
	for _, r := range rows {
		for _, col := range MeasureColumns {
			out = append(out, SeriesPoint{
				DateValue:   r.DateValue,
				SeriesName:  col.Name,
				SeriesValue: col.Value(r.Measures),
			})
		}
	}
	return out
}

// RepDataFilter selects the rows a report consumer asks for. Empty fields
// match everything.
type RepDataFilter struct {
	DateType DateType
	Product  string
	Channel  string
}

// Match reports whether a row with these keys passes the filter.
func (f RepDataFilter) Match(dt DateType, product, channel string) bool {
	if f.DateType != "" && f.DateType != dt {
		return false
	}
	if f.Product != "" && f.Product != product {
		return false
	}
	return f.Channel == "" || f.Channel == channel
}

// FilterRepData returns the rows matching f.
func FilterRepData(rows []RepDataRow, f RepDataFilter) []RepDataRow {
	var out []RepDataRow
	for _, r := range rows {
		if f.Match(r.DateType, r.Product, r.Channel) {
			out = append(out, r)
		}
	}
	return out
}

// FilterDetails returns the detail rows matching f.
func FilterDetails(rows []AttemptDetailRow, f RepDataFilter) []AttemptDetailRow {
	var out []AttemptDetailRow
	for _, r := range rows {
		if f.Match(r.DateType, r.Product, r.Channel) {
			out = append(out, r)
		}
	}
	return out
}
