package rollup

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrSentinelCollision is returned when a base row already carries the "All"
// sentinel in a dimension that is about to be rolled up.
var ErrSentinelCollision = errors.New("dimension value collides with rollup sentinel")

// Rollupable is a row with named string dimensions and summable measures.
type Rollupable[T any] interface {
	// Dimension returns the value of a named dimension.
	Dimension(name string) string
	// WithDimension returns a copy with the named dimension replaced.
	WithDimension(name, value string) T
	// GroupKey identifies the row across every grouping column.
	GroupKey() string
	// Plus returns a copy whose measures are the sum of both rows.
	Plus(other T) T
}

// RollupDimension returns rows followed by one aggregated row per group of
// the remaining keys, with dim set to All and measures summed.
func RollupDimension[T Rollupable[T]](rows []T, dim string) ([]T, error) {
	out := make([]T, len(rows), len(rows)*2)
	copy(out, rows)

	index := make(map[string]int)
	for _, r := range rows {
		if r.Dimension(dim) == All {
			return nil, fmt.Errorf("%w: %s=%q in %s", ErrSentinelCollision, dim, All, r.GroupKey())
		}
		rolled := r.WithDimension(dim, All)
		key := rolled.GroupKey()
		if i, ok := index[key]; ok {
			out[i] = out[i].Plus(r)
			continue
		}
		index[key] = len(out)
		out = append(out, rolled)
	}
	return out, nil
}

// Expand rolls up each dimension in turn. With k dimensions every base key
// yields 2^k rows.
func Expand[T Rollupable[T]](rows []T, dims ...string) ([]T, error) {
	var err error
	for _, d := range dims {
		if rows, err = RollupDimension(rows, d); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func joinKey(dt DateType, date time.Time, parts ...string) string {
	return string(dt) + "\x00" + date.Format(time.DateOnly) + "\x00" + strings.Join(parts, "\x00")
}

// Dimension implements Rollupable.
func (r RepDataRow) Dimension(name string) string {
	switch name {
	case DimProduct:
		return r.Product
	case DimChannel:
		return r.Channel
	}
	return ""
}

// WithDimension implements Rollupable.
func (r RepDataRow) WithDimension(name, value string) RepDataRow {
	switch name {
	case DimProduct:
		r.Product = value
	case DimChannel:
		r.Channel = value
	}
	return r
}

// GroupKey implements Rollupable.
func (r RepDataRow) GroupKey() string {
	return joinKey(r.DateType, r.DateValue, r.Product, r.Channel)
}

// Plus implements Rollupable.
func (r RepDataRow) Plus(o RepDataRow) RepDataRow {
	r.Measures = r.Measures.Plus(o.Measures)
	return r
}

// Dimension implements Rollupable.
func (r AttemptDetailRow) Dimension(name string) string {
	switch name {
	case DimProduct:
		return r.Product
	case DimChannel:
		return r.Channel
	}
	return ""
}

// WithDimension implements Rollupable.
func (r AttemptDetailRow) WithDimension(name, value string) AttemptDetailRow {
	switch name {
	case DimProduct:
		r.Product = value
	case DimChannel:
		r.Channel = value
	}
	return r
}

// GroupKey implements Rollupable. The series name is part of the key so it
// is held fixed while product and channel roll up.
func (r AttemptDetailRow) GroupKey() string {
	return joinKey(r.DateType, r.DateValue, r.Product, r.Channel, r.SeriesName)
}

// Plus implements Rollupable.
func (r AttemptDetailRow) Plus(o AttemptDetailRow) AttemptDetailRow {
	r.SeriesValue += o.SeriesValue
	return r
}

// SortRepData orders rows by date type name, date, product, channel.
func SortRepData(rows []RepDataRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.DateType != b.DateType {
			return a.DateType < b.DateType
		}
		if !a.DateValue.Equal(b.DateValue) {
			return a.DateValue.Before(b.DateValue)
		}
		if a.Product != b.Product {
			return a.Product < b.Product
		}
		return a.Channel < b.Channel
	})
}

// SortDetails orders rows by date type, date, product, channel, series.
func SortDetails(rows []AttemptDetailRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.DateType != b.DateType {
			return a.DateType < b.DateType
		}
		if !a.DateValue.Equal(b.DateValue) {
			return a.DateValue.Before(b.DateValue)
		}
		if a.Product != b.Product {
			return a.Product < b.Product
		}
		if a.Channel != b.Channel {
			return a.Channel < b.Channel
		}
		return a.SeriesName < b.SeriesName
	})
}
