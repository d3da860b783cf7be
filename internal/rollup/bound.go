package rollup

import (
	"sort"
	"time"
)

// Inconsistency reports a quote whose history disagrees on a dimension that
// the summary resolves with max().
type Inconsistency struct {
	QuoteNumber string
	Field       string
	Values      []string
}

// SummarizeQuotes collapses quote history into one BoundSummary per quote.
//
// Product and channel are taken as the max non-null value, which assumes they
// are constant across a quote's history. Quotes that break the assumption are
// returned as inconsistencies; the summary is still produced.
func SummarizeQuotes(events []QuoteEvent) ([]BoundSummary, []Inconsistency) {
	index := make(map[string]int)
	summaries := make([]BoundSummary, 0)
	products := make(map[string]map[string]struct{})
	channels := make(map[string]map[string]struct{})

	for _, ev := range events {
		i, ok := index[ev.QuoteNumber]
		if !ok {
			i = len(summaries)
			index[ev.QuoteNumber] = i
			summaries = append(summaries, BoundSummary{QuoteNumber: ev.QuoteNumber})
		}
		s := &summaries[i]

		if ev.Status == StatusBound {
			s.BoundCount++
		}
		s.LastEntryDate = maxTime(s.LastEntryDate, ev.LastEntryDate)
		s.Product = maxString(s.Product, ev.Product)
		s.Channel = maxString(s.Channel, ev.Channel)

		collect(products, ev.QuoteNumber, ev.Product)
		collect(channels, ev.QuoteNumber, ev.Channel)
	}

	sort.Slice(summaries, func(a, b int) bool {
		return summaries[a].QuoteNumber < summaries[b].QuoteNumber
	})

	var issues []Inconsistency
	for _, s := range summaries {
		if vals := distinct(products[s.QuoteNumber]); len(vals) > 1 {
			issues = append(issues, Inconsistency{QuoteNumber: s.QuoteNumber, Field: DimProduct, Values: vals})
		}
		if vals := distinct(channels[s.QuoteNumber]); len(vals) > 1 {
			issues = append(issues, Inconsistency{QuoteNumber: s.QuoteNumber, Field: DimChannel, Values: vals})
		}
	}
	return summaries, issues
}

// IndexSummaries keys summaries by quote number.
func IndexSummaries(summaries []BoundSummary) map[string]BoundSummary {
	out := make(map[string]BoundSummary, len(summaries))
	for _, s := range summaries {
		out[s.QuoteNumber] = s
	}
	return out
}

func maxTime(cur, next *time.Time) *time.Time {
	if next == nil {
		return cur
	}
	if cur == nil || next.After(*cur) {
		v := *next
		return &v
	}
	return cur
}

func maxString(cur, next *string) *string {
	if next == nil {
		return cur
	}
	if cur == nil || *next > *cur {
		v := *next
		return &v
	}
	return cur
}

func collect(into map[string]map[string]struct{}, quote string, v *string) {
	if v == nil || *v == "" {
		return
	}
	set, ok := into[quote]
	if !ok {
		set = make(map[string]struct{})
		into[quote] = set
	}
	set[*v] = struct{}{}
}

func distinct(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
