package rollup

import "time"

// Result codes the engine interprets. Every other result is an opaque label.
const (
	StatusBound           = "Bound"
	ResultSalePolicy      = "Sale - Policy"
	ResultSaleNoRecontact = "Sale - No recontact"
)

// Sentinels written into the destination tables.
const (
	All          = "All"
	SeriesNone   = "None"
	SeriesTotal  = "Total"
	SeriesOther  = "Other"
	DefaultLabel = "Unknown"
)

// QuoteEvent is one row of quote history. A quote appears once per event.
type QuoteEvent struct {
	QuoteNumber   string
	Status        string
	Product       *string
	Channel       *string
	LastEntryDate *time.Time
}

// OutboundAttempt is a single outbound call attempt. Read-only to the engine.
type OutboundAttempt struct {
	ID          int64
	QuoteNumber string
	Result      *string
	ScheduledAt *time.Time
	AssignedAt  *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// BoundSummary is the per-quote digest of quote history.
type BoundSummary struct {
	QuoteNumber   string
	BoundCount    int
	LastEntryDate *time.Time
	Product       *string
	Channel       *string
}

// EnrichedAttempt is an attempt joined with its quote summary and tagged with
// period ends. AttemptNo and NewLead are filled by Sequence.
type EnrichedAttempt struct {
	OutboundAttempt

	BoundCount    int
	LastEntryDate *time.Time
	Product       *string
	Channel       *string

	WeekEnd  time.Time
	MonthEnd time.Time
	YearEnd  time.Time

	AttemptIndicator int
	AttemptNo        int
	NewLead          int
}

// PeriodEnd returns the period end for the given granularity.
func (e EnrichedAttempt) PeriodEnd(dt DateType) time.Time {
	switch dt {
	case Week:
		return e.WeekEnd
	case Month:
		return e.MonthEnd
	default:
		return e.YearEnd
	}
}

// ResultLabel returns the attempt result or "" when null.
func (e EnrichedAttempt) ResultLabel() string {
	if e.Result == nil {
		return ""
	}
	return *e.Result
}

// Measures are the summable counters of a repdata row.
type Measures struct {
	QuoteCount             int64
	SaleCount              int64
	SumAttempts            int64
	NewLeadsGiven          int64
	NewLeadsContacted      int64
	LeadsNoRecontactNeeded int64
}

// Plus returns the field-wise sum of m and o.
func (m Measures) Plus(o Measures) Measures {
	return Measures{
		QuoteCount:             m.QuoteCount + o.QuoteCount,
		SaleCount:              m.SaleCount + o.SaleCount,
		SumAttempts:            m.SumAttempts + o.SumAttempts,
		NewLeadsGiven:          m.NewLeadsGiven + o.NewLeadsGiven,
		NewLeadsContacted:      m.NewLeadsContacted + o.NewLeadsContacted,
		LeadsNoRecontactNeeded: m.LeadsNoRecontactNeeded + o.LeadsNoRecontactNeeded,
	}
}

// MeasureColumn binds a destination column to its value in Measures.
type MeasureColumn struct {
	Name  string
	Label string
	Value func(Measures) int64
}

// MeasureColumns lists the repdata measures in destination column order.
// Table DDL, push-down SQL and the melted view all iterate this slice.
var MeasureColumns = []MeasureColumn{
	{Name: "sale_count", Label: "Sales", Value: func(m Measures) int64 { return m.SaleCount }},
	{Name: "quote_count", Label: "Quotes", Value: func(m Measures) int64 { return m.QuoteCount }},
	{Name: "sum_attempts", Label: "Attempts", Value: func(m Measures) int64 { return m.SumAttempts }},
	{Name: "new_leads_given", Label: "New Leads Given", Value: func(m Measures) int64 { return m.NewLeadsGiven }},
	{Name: "new_leads_contacted", Label: "New Leads Contacted", Value: func(m Measures) int64 { return m.NewLeadsContacted }},
	{Name: "leads_no_recontact_needed", Label: "No Recontact Needed", Value: func(m Measures) int64 { return m.LeadsNoRecontactNeeded }},
}

// Dimension names shared by repdata and attempt_details.
const (
	DimProduct = "product"
	DimChannel = "quote_channel"
)

// RollupDimensions is the rollup hierarchy, innermost first.
var RollupDimensions = []string{DimProduct, DimChannel}

// PeriodAggregate is one (date_type, period end, product, channel) group
// before rollup expansion.
type PeriodAggregate struct {
	DateType  DateType
	DateValue time.Time
	Product   string
	Channel   string
	Measures
}

// Row converts the aggregate to a repdata row.
func (p PeriodAggregate) Row() RepDataRow {
	return RepDataRow{
		DateType:  p.DateType,
		DateValue: p.DateValue,
		Product:   p.Product,
		Channel:   p.Channel,
		Measures:  p.Measures,
	}
}

// RepDataRow is one row of the repdata table.
type RepDataRow struct {
	DateType  DateType
	DateValue time.Time
	Product   string
	Channel   string
	Measures
}

// AttemptDetailRow is one row of the attempt_details table.
type AttemptDetailRow struct {
	DateType    DateType
	DateValue   time.Time
	Product     string
	Channel     string
	SeriesName  string
	SeriesValue int64
}
