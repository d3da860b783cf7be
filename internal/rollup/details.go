package rollup

import "time"

type seriesKey struct {
	dateType DateType
	date     time.Time
	product  string
	channel  string
	series   string
}

// SeriesName maps an attempt result to its attempt_details series. Null
// results become "None"; a literal "Total" result is counted as "Other" so
// it cannot merge with the synthetic total.
func SeriesName(result *string) string {
	if result == nil {
		return SeriesNone
	}
	if *result == SeriesTotal {
		return SeriesOther
	}
	return *result
}

// Details counts attempts per result category for every granularity and
// appends a synthetic Total series per (period end, product, channel).
// The output is not yet rolled up.
func Details(rows []EnrichedAttempt, unknownLabel string) []AttemptDetailRow {
	var out []AttemptDetailRow
	index := make(map[seriesKey]int)

	add := func(k seriesKey) {
		if i, ok := index[k]; ok {
			out[i].SeriesValue++
			return
		}
		index[k] = len(out)
		out = append(out, AttemptDetailRow{
			DateType:    k.dateType,
			DateValue:   k.date,
			Product:     k.product,
			Channel:     k.channel,
			SeriesName:  k.series,
			SeriesValue: 1,
		})
	}

	for _, dt := range DateTypes {
		for _, e := range rows {
			k := seriesKey{
				dateType: dt,
				date:     e.PeriodEnd(dt),
				product:  Label(e.Product, unknownLabel),
				channel:  Label(e.Channel, unknownLabel),
				series:   SeriesName(e.Result),
			}
			add(k)
			k.series = SeriesTotal
			add(k)
		}
	}
	return out
}
