// Package pipeline runs one full recompute-and-replace of the reporting
// tables.
package pipeline

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"repdata/internal/lock"
	"repdata/internal/observability"
	"repdata/internal/pushdown"
	"repdata/internal/rollup"
	"repdata/internal/warehouse"
	apperrors "repdata/pkg/errors"
)

// Strategy selects where the rollup is computed.
type Strategy string

const (
	StrategyMemory   Strategy = "memory"
	StrategyPushdown Strategy = "pushdown"
)

// Source reads the quote and outbound tables.
type Source interface {
	ReadSource(ctx context.Context, tables warehouse.SourceTables) (*warehouse.SourceData, error)
}

// Destination receives the reporting tables.
type Destination interface {
	Dialect() warehouse.Dialect
	EnsureTable(ctx context.Context, spec warehouse.TableSpec) error
	ReplaceTable(ctx context.Context, spec warehouse.TableSpec, rows [][]interface{}, opts warehouse.LoadOptions) (*warehouse.LoadResult, error)
	ExecuteSQL(ctx context.Context, script string) error
	CountRows(ctx context.Context, table string) (int64, error)
}

// Locker guards a destination against concurrent runs.
type Locker interface {
	Acquire(ctx context.Context, name string) (*lock.Lock, error)
}

// Tables names every table a run touches.
type Tables struct {
	Quotes         string
	Outbounds      string
	RepData        string
	AttemptDetails string
}

// Options configure a run.
type Options struct {
	Tables   Tables
	Engine   rollup.Options
	Strategy Strategy
	Load     warehouse.LoadOptions
	// DryRun computes without writing.
	DryRun  bool
	Timeout time.Duration
}

// Deps are the collaborators of a Runner. Destination and Locker may be nil
// for compute-only use.
type Deps struct {
	Source      Source
	Destination Destination
	Locker      Locker
	Logger      *observability.Logger
	Telemetry   *observability.Telemetry
	// OnStage is called after every engine stage that succeeds.
	OnStage func(name string, rows int, d time.Duration)
}

// Runner executes runs. It holds no state between runs.
type Runner struct {
	deps Deps
	opts Options
}

// Result summarizes a finished run.
type Result struct {
	RunID    string
	Strategy Strategy
	DryRun   bool

	// Report is nil for push-down runs.
	Report          *rollup.Report
	SkippedAttempts int
	OrphanAttempts  int
	Loads           []*warehouse.LoadResult

	RepDataRows int64
	DetailRows  int64
	Script      string
	Duration    time.Duration
}

// Empty reports whether the run computed no rows.
func (r *Result) Empty() bool {
	return r.RepDataRows == 0 && r.DetailRows == 0
}

// NewRunner validates opts and returns a runner.
func NewRunner(deps Deps, opts Options) (*Runner, error) {
	if deps.Source == nil && opts.Strategy != StrategyPushdown {
		return nil, apperrors.New(apperrors.ErrCodeInternal, "Runner needs a source")
	}
	if err := opts.Engine.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeConfigInvalid, "Invalid pipeline options")
	}
	switch opts.Strategy {
	case StrategyMemory, StrategyPushdown:
	case "":
		opts.Strategy = StrategyMemory
	default:
		return nil, apperrors.ConfigError(fmt.Sprintf("unknown strategy %q", opts.Strategy), "pipeline.strategy")
	}
	if deps.Logger == nil {
		deps.Logger = observability.NewNopLogger()
	}
	if deps.Telemetry == nil {
		deps.Telemetry = observability.NewNoopTelemetry()
	}
	return &Runner{deps: deps, opts: opts}, nil
}

// NewRunID returns a sortable run identifier.
func NewRunID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// Run recomputes both reporting tables and replaces their contents.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: NewRunID(), Strategy: r.opts.Strategy, DryRun: r.opts.DryRun}
	log := r.deps.Logger.WithFields(map[string]interface{}{
		"run_id":   res.RunID,
		"strategy": string(r.opts.Strategy),
	})

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	ctx, span := r.deps.Telemetry.Tracer.Start(ctx, "repdata.run",
		trace.WithAttributes(
			attribute.String("run_id", res.RunID),
			attribute.String("strategy", string(r.opts.Strategy)),
			attribute.Bool("dry_run", r.opts.DryRun),
		))
	defer span.End()
	log = log.WithContext(ctx)

	if !r.opts.DryRun && r.deps.Destination == nil {
		return nil, apperrors.New(apperrors.ErrCodeInternal, "Runner needs a destination to write")
	}

	log.Info("Run started")

	if r.deps.Locker != nil && !r.opts.DryRun {
		held, err := r.deps.Locker.Acquire(ctx, r.opts.Tables.RepData)
		if err != nil {
			return nil, r.fail(span, log, err)
		}
		defer func() {
			if err := held.Release(context.WithoutCancel(ctx)); err != nil {
				log.WithError(err).Warn("Failed to release run lock")
			}
		}()
	}

	var err error
	switch r.opts.Strategy {
	case StrategyPushdown:
		err = r.runPushdown(ctx, log, res)
	default:
		err = r.runMemory(ctx, log, res)
	}
	if err != nil {
		return nil, r.fail(span, log, err)
	}

	res.Duration = time.Since(start)
	r.deps.Telemetry.RunDuration.Record(ctx, res.Duration.Seconds(),
		metric.WithAttributes(attribute.String("strategy", string(r.opts.Strategy))))

	fields := map[string]interface{}{
		"repdata_rows":         res.RepDataRows,
		"attempt_details_rows": res.DetailRows,
		"duration_ms":          res.Duration.Milliseconds(),
		"dry_run":              res.DryRun,
	}
	switch {
	case res.DryRun && res.Strategy == StrategyPushdown:
		log.InfoWithFields("Dry run rendered push-down script", fields)
	case res.Empty():
		log.InfoWithFields("No rows computed", fields)
	default:
		log.InfoWithFields("Run completed", fields)
	}
	return res, nil
}

func (r *Runner) fail(span trace.Span, log *observability.Logger, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	log.WithError(err).WithField("code", string(apperrors.GetErrorCode(err))).Error("Run failed")
	return err
}

// Compute reads the source and runs every engine stage without writing.
func (r *Runner) Compute(ctx context.Context) (*rollup.Report, *warehouse.SourceData, error) {
	data, err := r.Read(ctx)
	if err != nil {
		return nil, nil, err
	}
	report, err := r.ComputeFrom(ctx, data)
	if err != nil {
		return nil, nil, err
	}
	return report, data, nil
}

// Read takes one snapshot of the source tables.
func (r *Runner) Read(ctx context.Context) (*warehouse.SourceData, error) {
	if r.deps.Source == nil {
		return nil, apperrors.New(apperrors.ErrCodeInternal, "Runner needs a source to compute")
	}
	log := r.deps.Logger.WithContext(ctx)

	readCtx, span := r.deps.Telemetry.Tracer.Start(ctx, "source.read")
	data, err := r.deps.Source.ReadSource(readCtx, warehouse.SourceTables{
		Quotes:    r.opts.Tables.Quotes,
		Outbounds: r.opts.Tables.Outbounds,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("quotes", len(data.Quotes)),
		attribute.Int("attempts", len(data.Attempts)),
	)
	span.End()

	log.WithFields(map[string]interface{}{
		"quote_events": len(data.Quotes),
		"attempts":     len(data.Attempts),
	}).Debug("Source read")
	if data.SkippedAttempts > 0 {
		log.WithField("skipped", data.SkippedAttempts).Warn("Outbound rows without created_at_dtm were skipped")
	}
	if data.OrphanAttempts > 0 {
		log.WithField("skipped", data.OrphanAttempts).Warn("Outbound rows without quote_number were skipped")
	}
	return data, nil
}

// ComputeFrom runs every engine stage over an existing snapshot.
func (r *Runner) ComputeFrom(ctx context.Context, data *warehouse.SourceData) (*rollup.Report, error) {
	log := r.deps.Logger.WithContext(ctx)

	report, err := rollup.Compute(data.Quotes, data.Attempts, r.opts.Engine, r.stageFunc(ctx, log))
	if err != nil {
		return nil, err
	}

	for _, inc := range report.Inconsistencies {
		log.WithFields(map[string]interface{}{
			"quote_number": inc.QuoteNumber,
			"field":        inc.Field,
			"values":       inc.Values,
		}).Warn("Quote history disagrees across events, using the maximum")
	}
	for _, c := range report.Collisions {
		log.WithFields(map[string]interface{}{
			"quote_number": c.QuoteNumber,
			"field":        c.Field,
			"value":        c.Value,
		}).Warn("Source value equals the unknown label, its rows merge with unlabelled attempts")
	}
	return report, nil
}

func (r *Runner) stageFunc(ctx context.Context, log *observability.Logger) rollup.StageFunc {
	return func(name string, fn func() (int, error)) error {
		stageCtx, span := r.deps.Telemetry.Tracer.Start(ctx, "stage."+name)
		defer span.End()

		start := time.Now()
		n, err := fn()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return apperrors.Wrap(err, apperrors.ErrCodePipelineStage, fmt.Sprintf("Stage %s failed", name)).
				WithContext("stage", name)
		}

		span.SetAttributes(attribute.Int("rows", n))
		r.deps.Telemetry.StageRows.Add(stageCtx, int64(n), metric.WithAttributes(attribute.String("stage", name)))
		elapsed := time.Since(start)
		log.WithFields(map[string]interface{}{
			"stage":       name,
			"rows":        n,
			"duration_ms": elapsed.Milliseconds(),
		}).Debug("Stage finished")
		if r.deps.OnStage != nil {
			r.deps.OnStage(name, n, elapsed)
		}
		return nil
	}
}

func (r *Runner) runMemory(ctx context.Context, log *observability.Logger, res *Result) error {
	report, data, err := r.Compute(ctx)
	if err != nil {
		return err
	}
	res.Report = report
	res.SkippedAttempts = data.SkippedAttempts
	res.OrphanAttempts = data.OrphanAttempts
	res.RepDataRows = int64(len(report.RepData))
	res.DetailRows = int64(len(report.Details))

	if r.opts.DryRun {
		return nil
	}

	loads := []struct {
		spec warehouse.TableSpec
		rows [][]interface{}
	}{
		{warehouse.RepDataSpec(r.opts.Tables.RepData), warehouse.RepDataValues(report.RepData)},
		{warehouse.AttemptDetailsSpec(r.opts.Tables.AttemptDetails), warehouse.AttemptDetailValues(report.Details)},
	}
	for _, l := range loads {
		loadCtx, span := r.deps.Telemetry.Tracer.Start(ctx, "destination.replace",
			trace.WithAttributes(attribute.String("table", l.spec.Name)))
		result, err := r.deps.Destination.ReplaceTable(loadCtx, l.spec, l.rows, r.opts.Load)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			return err
		}
		span.SetAttributes(attribute.Int("rows", result.Rows))
		span.End()

		r.deps.Telemetry.RowsWritten.Add(ctx, int64(result.Rows), metric.WithAttributes(attribute.String("table", l.spec.Name)))
		log.WithFields(map[string]interface{}{
			"table":   result.Table,
			"rows":    result.Rows,
			"batches": result.Batches,
		}).Info("Table replaced")
		res.Loads = append(res.Loads, result)
	}
	return nil
}

func (r *Runner) runPushdown(ctx context.Context, log *observability.Logger, res *Result) error {
	if r.deps.Destination == nil {
		return apperrors.New(apperrors.ErrCodeInternal, "The pushdown strategy needs a destination session")
	}
	b, err := pushdown.NewBuilder(r.deps.Destination.Dialect(), pushdown.Tables{
		Quotes:         r.opts.Tables.Quotes,
		Outbounds:      r.opts.Tables.Outbounds,
		RepData:        r.opts.Tables.RepData,
		AttemptDetails: r.opts.Tables.AttemptDetails,
	}, r.opts.Engine)
	if err != nil {
		return err
	}
	script, err := b.Script()
	if err != nil {
		return err
	}
	res.Script = b.DDL() + "\n" + script

	if r.opts.DryRun {
		log.Debug("Dry run, push-down script not executed")
		return nil
	}

	execCtx, span := r.deps.Telemetry.Tracer.Start(ctx, "destination.pushdown")
	for _, spec := range b.Specs() {
		if err = r.deps.Destination.EnsureTable(execCtx, spec); err != nil {
			span.End()
			return err
		}
	}
	err = r.deps.Destination.ExecuteSQL(execCtx, script)
	span.End()
	if err != nil {
		return err
	}

	if res.RepDataRows, err = r.deps.Destination.CountRows(ctx, r.opts.Tables.RepData); err != nil {
		return err
	}
	if res.DetailRows, err = r.deps.Destination.CountRows(ctx, r.opts.Tables.AttemptDetails); err != nil {
		return err
	}
	r.deps.Telemetry.RowsWritten.Add(ctx, res.RepDataRows, metric.WithAttributes(attribute.String("table", r.opts.Tables.RepData)))
	r.deps.Telemetry.RowsWritten.Add(ctx, res.DetailRows, metric.WithAttributes(attribute.String("table", r.opts.Tables.AttemptDetails)))
	return nil
}
