package rollup

import (
	"sort"
	"time"
)

func (k OrderingKey) timestamp(e EnrichedAttempt) *time.Time {
	if k == OrderByAssigned {
		return e.AssignedAt
	}
	t := e.CreatedAt
	return &t
}

// Sequence numbers attempts within each quote from 1 by ascending ordering
// key and flags the first one as the new lead. Null keys sort first and ties
// fall back to the attempt id. The slice is reordered by quote, then sequence.
func Sequence(rows []EnrichedAttempt, key OrderingKey) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.QuoteNumber != b.QuoteNumber {
			return a.QuoteNumber < b.QuoteNumber
		}
		ta, tb := key.timestamp(a), key.timestamp(b)
		switch {
		case ta == nil && tb != nil:
			return true
		case ta != nil && tb == nil:
			return false
		case ta != nil && tb != nil && !ta.Equal(*tb):
			return ta.Before(*tb)
		}
		return a.ID < b.ID
	})

	n := 0
	for i := range rows {
		if i == 0 || rows[i].QuoteNumber != rows[i-1].QuoteNumber {
			n = 0
		}
		n++
		rows[i].AttemptNo = n
		rows[i].NewLead = 0
		if n == 1 {
			rows[i].NewLead = 1
		}
	}
}
