package rollup

// Collision reports a quote whose product or channel equals a label the
// engine assigns itself.
type Collision struct {
	QuoteNumber string
	Field       string
	Value       string
}

// Sentinel reports whether the value is the rollup sentinel. Such rows make
// the expansion fail; the others merge silently with unlabelled attempts.
func (c Collision) Sentinel() bool {
	return c.Value == All
}

// ReservedCollisions lists summaries whose product or channel equals All or
// the unknown label.
func ReservedCollisions(summaries []BoundSummary, unknownLabel string) []Collision {
	var out []Collision
	check := func(quote, field string, v *string) {
		if v == nil {
			return
		}
		if *v == All || *v == unknownLabel {
			out = append(out, Collision{QuoteNumber: quote, Field: field, Value: *v})
		}
	}
	for _, s := range summaries {
		check(s.QuoteNumber, DimProduct, s.Product)
		check(s.QuoteNumber, DimChannel, s.Channel)
	}
	return out
}

// SentinelCollisions filters collisions down to those that abort a run.
func SentinelCollisions(items []Collision) []Collision {
	var out []Collision
	for _, c := range items {
		if c.Sentinel() {
			out = append(out, c)
		}
	}
	return out
}
