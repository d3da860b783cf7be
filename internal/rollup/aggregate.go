package rollup

import "time"

// Label returns the dimension value or the fallback when it is null.
func Label(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return *v
}

type periodKey struct {
	dateType DateType
	date     time.Time
	product  string
	channel  string
}

// MeasuresOf returns the contribution of a single sequenced attempt.
func MeasuresOf(e EnrichedAttempt) Measures {
	m := Measures{
		QuoteCount:  1,
		SumAttempts: int64(e.AttemptIndicator),
	}
	switch e.ResultLabel() {
	case ResultSalePolicy:
		m.SaleCount = 1
	case ResultSaleNoRecontact:
		m.LeadsNoRecontactNeeded = 1
	}
	if e.NewLead == 1 {
		m.NewLeadsGiven = 1
		m.NewLeadsContacted = int64(e.AttemptIndicator)
	}
	return m
}

// Aggregate groups sequenced attempts by (period end, product, channel) for
// every granularity and returns the union tagged with date type. Null
// dimensions are reported under unknownLabel.
func Aggregate(rows []EnrichedAttempt, unknownLabel string) []PeriodAggregate {
	var out []PeriodAggregate
	for _, dt := range DateTypes {
		index := make(map[periodKey]int)
		for _, e := range rows {
			k := periodKey{
				dateType: dt,
				date:     e.PeriodEnd(dt),
				product:  Label(e.Product, unknownLabel),
				channel:  Label(e.Channel, unknownLabel),
			}
			i, ok := index[k]
			if !ok {
				i = len(out)
				index[k] = i
				out = append(out, PeriodAggregate{
					DateType:  dt,
					DateValue: k.date,
					Product:   k.product,
					Channel:   k.channel,
				})
			}
			out[i].Measures = out[i].Measures.Plus(MeasuresOf(e))
		}
	}
	return out
}
