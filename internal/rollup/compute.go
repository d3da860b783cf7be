package rollup

// Stage names, in execution order.
const (
	StageBoundSummary  = "bound_summary"
	StageEnrich        = "enriched_outbound"
	StageSequence      = "attempt_sequencer"
	StageAggregate     = "period_aggregator"
	StageExpand        = "rollup_expander"
	StageAttemptDetail = "attempt_detail_aggregator"
)

// StageCount is the number of stages Compute runs.
const StageCount = 6

// StageFunc runs one stage. fn returns the number of rows the stage produced.
// Callers use it to attach tracing and logging around each stage.
type StageFunc func(name string, fn func() (int, error)) error

func runDirect(_ string, fn func() (int, error)) error {
	_, err := fn()
	return err
}

// Report is the full output of one engine run.
type Report struct {
	Summaries       []BoundSummary
	Inconsistencies []Inconsistency
	// Collisions lists quotes carrying a reserved label as a real value.
	Collisions      []Collision
	AttemptsRead    int
	AttemptsKept    int
	AttemptsDropped int
	Aggregates      []PeriodAggregate
	RepData         []RepDataRow
	Details         []AttemptDetailRow
}

// Empty reports whether the run produced no destination rows.
func (r *Report) Empty() bool {
	return len(r.RepData) == 0 && len(r.Details) == 0
}

// Compute runs every stage over the given source rows. stage may be nil.
func Compute(quotes []QuoteEvent, attempts []OutboundAttempt, opts Options, stage StageFunc) (*Report, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if stage == nil {
		stage = runDirect
	}

	rep := &Report{AttemptsRead: len(attempts)}
	var enriched []EnrichedAttempt

	steps := []struct {
		name string
		fn   func() (int, error)
	}{
		{StageBoundSummary, func() (int, error) {
			rep.Summaries, rep.Inconsistencies = SummarizeQuotes(quotes)
			rep.Collisions = ReservedCollisions(rep.Summaries, opts.UnknownLabel)
			return len(rep.Summaries), nil
		}},
		{StageEnrich, func() (int, error) {
			enriched, rep.AttemptsDropped = Enrich(attempts, IndexSummaries(rep.Summaries), opts.Filter)
			rep.AttemptsKept = len(enriched)
			return len(enriched), nil
		}},
		{StageSequence, func() (int, error) {
			Sequence(enriched, opts.OrderBy)
			return len(enriched), nil
		}},
		{StageAggregate, func() (int, error) {
			rep.Aggregates = Aggregate(enriched, opts.UnknownLabel)
			return len(rep.Aggregates), nil
		}},
		{StageExpand, func() (int, error) {
			base := make([]RepDataRow, len(rep.Aggregates))
			for i, a := range rep.Aggregates {
				base[i] = a.Row()
			}
			rows, err := Expand(base, RollupDimensions...)
			if err != nil {
				return 0, err
			}
			SortRepData(rows)
			rep.RepData = rows
			return len(rows), nil
		}},
		{StageAttemptDetail, func() (int, error) {
			rows, err := Expand(Details(enriched, opts.UnknownLabel), RollupDimensions...)
			if err != nil {
				return 0, err
			}
			SortDetails(rows)
			rep.Details = rows
			return len(rows), nil
		}},
	}

	for _, s := range steps {
		if err := stage(s.name, s.fn); err != nil {
			return nil, err
		}
	}
	return rep, nil
}
