package rollup_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repdata/internal/rollup"
	"repdata/internal/testutil"
)

func TestSummarizeQuotes(t *testing.T) {
	events := append(testutil.SampleQuotes(),
		testutil.Quote("Q4", "Home", "Web", "2024-01-01").Build(),
		testutil.Quote("Q4", "Life", "Web", "2024-01-05").Build(),
		rollup.QuoteEvent{QuoteNumber: "Q4", Status: "Quoted"},
	)

	summaries, issues := rollup.SummarizeQuotes(events)
	require.Len(t, summaries, 4)

	byQuote := rollup.IndexSummaries(summaries)
	assert.Equal(t, 1, byQuote["Q1"].BoundCount)
	assert.Equal(t, testutil.At("2024-03-20"), *byQuote["Q1"].LastEntryDate)
	assert.Equal(t, 0, byQuote["Q2"].BoundCount)
	assert.Equal(t, "Life", *byQuote["Q4"].Product)
	assert.Equal(t, testutil.At("2024-01-05"), *byQuote["Q4"].LastEntryDate)

	require.Len(t, issues, 1)
	assert.Equal(t, rollup.Inconsistency{QuoteNumber: "Q4", Field: rollup.DimProduct, Values: []string{"Home", "Life"}}, issues[0])
}

func TestAttemptIndicator(t *testing.T) {
	tests := []struct {
		name    string
		attempt rollup.OutboundAttempt
		want    int
	}{
		{
			name:    "completed with result",
			attempt: testutil.Attempt(1, "Q", "2024-03-01", "Too expensive").Build(),
			want:    1,
		},
		{
			name:    "never scheduled nor completed",
			attempt: testutil.Attempt(1, "Q", "2024-03-01", "Too expensive").Unscheduled().Build(),
			want:    0,
		},
		{
			name:    "null result",
			attempt: testutil.Attempt(1, "Q", "2024-03-01", "").NoResult().Build(),
			want:    0,
		},
		{
			name:    "sale without recontact",
			attempt: testutil.Attempt(1, "Q", "2024-03-01", rollup.ResultSaleNoRecontact).Build(),
			want:    0,
		},
		{
			name:    "sale policy counts",
			attempt: testutil.Attempt(1, "Q", "2024-03-01", rollup.ResultSalePolicy).Build(),
			want:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rollup.AttemptIndicator(tt.attempt))
		})
	}

	t.Run("scheduled only", func(t *testing.T) {
		a := testutil.Attempt(1, "Q", "2024-03-01", "Call back scheduled").Unscheduled().Build()
		a.ScheduledAt = testutil.AtPtr("2024-03-02")
		assert.Equal(t, 1, rollup.AttemptIndicator(a))
	})
}

func TestEnrichFilter(t *testing.T) {
	summaries, _ := rollup.SummarizeQuotes(testutil.SampleQuotes())
	index := rollup.IndexSummaries(summaries)

	tests := []struct {
		name        string
		filter      rollup.OrganicFilter
		wantKept    []int64
		wantDropped int
	}{
		{
			name:        "last entry or unbound",
			filter:      rollup.FilterLastEntryOrUnbound,
			wantKept:    []int64{1, 2, 4, 5, 6, 7},
			wantDropped: 1,
		},
		{
			name:        "last entry only",
			filter:      rollup.FilterLastEntry,
			wantKept:    []int64{1, 2, 6},
			wantDropped: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kept, dropped := rollup.Enrich(testutil.SampleAttempts(), index, tt.filter)
			var ids []int64
			for _, e := range kept {
				ids = append(ids, e.ID)
			}
			assert.Equal(t, tt.wantKept, ids)
			assert.Equal(t, tt.wantDropped, dropped)
		})
	}
}

func TestEnrichOrphanAttempt(t *testing.T) {
	orphan := testutil.Attempt(7, "Q9", "2024-04-03 08:00", "Bad phone number").Build()
	kept, dropped := rollup.Enrich([]rollup.OutboundAttempt{orphan}, nil, rollup.FilterLastEntryOrUnbound)

	require.Len(t, kept, 1)
	assert.Zero(t, dropped)
	e := kept[0]
	assert.Equal(t, 0, e.BoundCount)
	assert.Nil(t, e.Product)
	assert.Nil(t, e.Channel)
	assert.Nil(t, e.LastEntryDate)
	assert.Equal(t, testutil.At("2024-04-05"), e.WeekEnd)
	assert.Equal(t, testutil.At("2024-04-30"), e.MonthEnd)
	assert.Equal(t, testutil.At("2024-12-31"), e.YearEnd)
}

func TestEnrichKeepsAttemptAtLastEntry(t *testing.T) {
	quotes := []rollup.QuoteEvent{testutil.Quote("Q1", "Home", "Web", "2024-03-20 10:00").Bound().Build()}
	summaries, _ := rollup.SummarizeQuotes(quotes)
	attempts := []rollup.OutboundAttempt{
		testutil.Attempt(1, "Q1", "2024-03-20 10:00", "Too expensive").Build(),
		testutil.Attempt(2, "Q1", "2024-03-20 10:01", "Too expensive").Build(),
	}

	kept, dropped := rollup.Enrich(attempts, rollup.IndexSummaries(summaries), rollup.FilterLastEntryOrUnbound)
	require.Len(t, kept, 1)
	assert.Equal(t, int64(1), kept[0].ID)
	assert.Equal(t, 1, dropped)
}

func TestSequence(t *testing.T) {
	attempts := []rollup.OutboundAttempt{
		testutil.Attempt(30, "Q1", "2024-03-03", "x").AssignedAt("2024-03-01").Build(),
		testutil.Attempt(10, "Q1", "2024-03-01", "x").AssignedAt("2024-03-05").Build(),
		testutil.Attempt(20, "Q1", "2024-03-02", "x").AssignedAt("").Build(),
		testutil.Attempt(40, "Q2", "2024-03-02", "x").Build(),
		testutil.Attempt(35, "Q2", "2024-03-02", "x").Build(),
	}

	tests := []struct {
		name  string
		key   rollup.OrderingKey
		order []int64
	}{
		{name: "by created with id tiebreak", key: rollup.OrderByCreated, order: []int64{10, 20, 30, 35, 40}},
		{name: "by assigned with nulls first", key: rollup.OrderByAssigned, order: []int64{20, 30, 10, 35, 40}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, _ := rollup.Enrich(attempts, nil, rollup.FilterLastEntryOrUnbound)
			rollup.Sequence(rows, tt.key)

			var ids []int64
			var seq, leads []int
			for _, r := range rows {
				ids = append(ids, r.ID)
				seq = append(seq, r.AttemptNo)
				leads = append(leads, r.NewLead)
			}
			assert.Equal(t, tt.order, ids)
			assert.Equal(t, []int{1, 2, 3, 1, 2}, seq)
			assert.Equal(t, []int{1, 0, 0, 1, 0}, leads)
		})
	}
}

func TestAggregateMeasures(t *testing.T) {
	summaries, _ := rollup.SummarizeQuotes(testutil.SampleQuotes())
	rows, _ := rollup.Enrich(testutil.SampleAttempts(), rollup.IndexSummaries(summaries), rollup.FilterLastEntryOrUnbound)
	rollup.Sequence(rows, rollup.OrderByCreated)

	aggs := rollup.Aggregate(rows, rollup.DefaultLabel)

	find := func(dt rollup.DateType, date, product, channel string) rollup.Measures {
		for _, a := range aggs {
			if a.DateType == dt && a.DateValue.Equal(testutil.At(date)) && a.Product == product && a.Channel == channel {
				return a.Measures
			}
		}
		t.Fatalf("no aggregate for %s %s %s %s", dt, date, product, channel)
		return rollup.Measures{}
	}

	assert.Equal(t, rollup.Measures{QuoteCount: 2, SaleCount: 1, SumAttempts: 2, NewLeadsGiven: 1, NewLeadsContacted: 1},
		find(rollup.Month, "2024-03-31", "Home", "Web"))
	assert.Equal(t, rollup.Measures{QuoteCount: 2, SumAttempts: 1, NewLeadsGiven: 1, NewLeadsContacted: 1},
		find(rollup.Month, "2024-03-31", "Auto", "Phone"))
	assert.Equal(t, rollup.Measures{QuoteCount: 1, NewLeadsGiven: 1, LeadsNoRecontactNeeded: 1},
		find(rollup.Week, "2024-04-05", "Auto", "Web"))
	assert.Equal(t, rollup.Measures{QuoteCount: 1, SumAttempts: 1, NewLeadsGiven: 1, NewLeadsContacted: 1},
		find(rollup.Year, "2024-12-31", rollup.DefaultLabel, rollup.DefaultLabel))

	// 4 groups per week/month, 4 groups per year.
	assert.Len(t, aggs, 4+4+4)
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*rollup.Options)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*rollup.Options) {}},
		{name: "bad filter", mutate: func(o *rollup.Options) { o.Filter = "nope" }, wantErr: true},
		{name: "bad ordering", mutate: func(o *rollup.Options) { o.OrderBy = "updated" }, wantErr: true},
		{name: "label is sentinel", mutate: func(o *rollup.Options) { o.UnknownLabel = rollup.All }, wantErr: true},
		{name: "empty label", mutate: func(o *rollup.Options) { o.UnknownLabel = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := rollup.DefaultOptions()
			tt.mutate(&o)
			if tt.wantErr {
				assert.Error(t, o.Validate())
			} else {
				assert.NoError(t, o.Validate())
			}
		})
	}
}
