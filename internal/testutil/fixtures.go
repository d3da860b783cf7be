package testutil

import (
	"time"

	"repdata/internal/rollup"
)

// Str returns a pointer to s.
func Str(s string) *string { return &s }

// At parses an RFC 3339 timestamp or a bare date and panics on bad input.
func At(s string) time.Time {
	layouts := []string{time.RFC3339, "2006-01-02 15:04", time.DateOnly}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t
		}
	}
	panic("testutil: bad timestamp " + s)
}

// AtPtr is At returning a pointer.
func AtPtr(s string) *time.Time {
	t := At(s)
	return &t
}

// QuoteBuilder builds quote history rows.
type QuoteBuilder struct {
	ev rollup.QuoteEvent
}

// Quote starts a quote event with a product, channel and last entry date.
func Quote(number, product, channel, lastEntry string) *QuoteBuilder {
	return &QuoteBuilder{ev: rollup.QuoteEvent{
		QuoteNumber:   number,
		Status:        "Quoted",
		Product:       Str(product),
		Channel:       Str(channel),
		LastEntryDate: AtPtr(lastEntry),
	}}
}

// Bound marks the event as bound.
func (b *QuoteBuilder) Bound() *QuoteBuilder {
	b.ev.Status = rollup.StatusBound
	return b
}

// Status sets the transaction status.
func (b *QuoteBuilder) Status(s string) *QuoteBuilder {
	b.ev.Status = s
	return b
}

// Build returns the event.
func (b *QuoteBuilder) Build() rollup.QuoteEvent { return b.ev }

// AttemptBuilder builds outbound attempts.
type AttemptBuilder struct {
	a rollup.OutboundAttempt
}

// Attempt starts a completed attempt with the given result.
func Attempt(id int64, quote, createdAt, result string) *AttemptBuilder {
	created := At(createdAt)
	return &AttemptBuilder{a: rollup.OutboundAttempt{
		ID:          id,
		QuoteNumber: quote,
		Result:      Str(result),
		AssignedAt:  &created,
		CompletedAt: &created,
		CreatedAt:   created,
	}}
}

// NoResult clears the result.
func (b *AttemptBuilder) NoResult() *AttemptBuilder {
	b.a.Result = nil
	return b
}

// Unscheduled clears both the scheduled and completed timestamps.
func (b *AttemptBuilder) Unscheduled() *AttemptBuilder {
	b.a.ScheduledAt = nil
	b.a.CompletedAt = nil
	return b
}

// AssignedAt overrides the assignment timestamp; "" clears it.
func (b *AttemptBuilder) AssignedAt(s string) *AttemptBuilder {
	if s == "" {
		b.a.AssignedAt = nil
		return b
	}
	b.a.AssignedAt = AtPtr(s)
	return b
}

// Build returns the attempt.
func (b *AttemptBuilder) Build() rollup.OutboundAttempt { return b.a }

// SampleQuotes is a small quote history covering bound, unbound and
// inconsistent quotes.
func SampleQuotes() []rollup.QuoteEvent {
	return []rollup.QuoteEvent{
		Quote("Q1", "Home", "Web", "2024-03-10").Build(),
		Quote("Q1", "Home", "Web", "2024-03-20").Bound().Build(),
		Quote("Q2", "Auto", "Phone", "2024-03-12").Build(),
		Quote("Q3", "Auto", "Web", "2024-04-02").Bound().Build(),
	}
}

// SampleAttempts is a set of attempts against SampleQuotes plus one orphan.
func SampleAttempts() []rollup.OutboundAttempt {
	return []rollup.OutboundAttempt{
		Attempt(1, "Q1", "2024-03-11 09:00", "Call back scheduled").Build(),
		Attempt(2, "Q1", "2024-03-15 10:00", rollup.ResultSalePolicy).Build(),
		Attempt(3, "Q1", "2024-03-25 10:00", "Call back scheduled").Build(),
		Attempt(4, "Q2", "2024-03-13 11:00", "Too expensive").Build(),
		Attempt(5, "Q2", "2024-03-14 11:00", "").NoResult().Build(),
		Attempt(6, "Q3", "2024-04-01 08:00", rollup.ResultSaleNoRecontact).Build(),
		Attempt(7, "Q9", "2024-04-03 08:00", "Bad phone number").Build(),
	}
}
