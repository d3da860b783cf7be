package rollup

// AttemptIndicator is 0 for attempts that never reached the customer: nothing
// scheduled or completed, no result, or a sale that needs no recontact.
func AttemptIndicator(a OutboundAttempt) int {
	if a.ScheduledAt == nil && a.CompletedAt == nil {
		return 0
	}
	if a.Result == nil || *a.Result == ResultSaleNoRecontact {
		return 0
	}
	return 1
}

// Keep applies the organic filter to an enriched attempt.
func (f OrganicFilter) Keep(e EnrichedAttempt) bool {
	inPlay := e.LastEntryDate != nil && !e.CreatedAt.After(*e.LastEntryDate)
	if f == FilterLastEntry {
		return inPlay
	}
	return inPlay || e.BoundCount == 0
}

// Enrich left-joins attempts to their quote summary, derives period ends and
// the attempt indicator, and drops rows rejected by the filter. It returns
// the kept rows and the number dropped.
func Enrich(attempts []OutboundAttempt, summaries map[string]BoundSummary, filter OrganicFilter) ([]EnrichedAttempt, int) {
	out := make([]EnrichedAttempt, 0, len(attempts))
	dropped := 0
	for _, a := range attempts {
		e := EnrichedAttempt{
			OutboundAttempt:  a,
			WeekEnd:          WeekEnd(a.CreatedAt),
			MonthEnd:         MonthEnd(a.CreatedAt),
			YearEnd:          YearEnd(a.CreatedAt),
			AttemptIndicator: AttemptIndicator(a),
		}
		if s, ok := summaries[a.QuoteNumber]; ok {
			e.BoundCount = s.BoundCount
			e.LastEntryDate = s.LastEntryDate
			e.Product = s.Product
			e.Channel = s.Channel
		}
		if !filter.Keep(e) {
			dropped++
			continue
		}
		out = append(out, e)
	}
	return out, dropped
}
