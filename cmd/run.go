package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"repdata/internal/pipeline"
	"repdata/internal/rollup"
	"repdata/internal/ui"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Recompute and replace the reporting tables",
		Long: `Read the quote and outbound tables, recompute every rollup, and replace the
contents of the repdata and attempt_details tables.

With --strategy pushdown the whole computation runs as SQL inside the
destination warehouse (Snowflake only) and no rows pass through this process.
With --dry-run nothing is written: the memory strategy reports row counts and
the pushdown strategy prints the script it would execute.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, root, dryRun)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&dryRun, "dry-run", false, "Compute without writing to the destination")
	flags.String("strategy", "", "Computation strategy: memory or pushdown (default: pipeline.strategy)")
	flags.Int("batch-size", 0, "Rows per insert batch (default: destination.batch_size)")
	flags.Bool("atomic", false, "Replace each table in a single transaction")
	flags.Duration("timeout", 0, "Abort the run after this long (default: pipeline.timeout)")
	bindConfigFlag(flags, "strategy", "pipeline.strategy")
	bindConfigFlag(flags, "batch-size", "destination.batch_size")
	bindConfigFlag(flags, "atomic", "destination.atomic_replace")
	bindConfigFlag(flags, "timeout", "pipeline.timeout")
	return cmd
}

func runRun(cmd *cobra.Command, root *rootOptions, dryRun bool) error {
	ctx := cmd.Context()
	a, err := newApp(cmd, root)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	opts := pipeline.OptionsFromConfig(a.cfg)
	opts.DryRun = dryRun

	progress := ui.NewStageProgress(a.out.Out(), rollup.StageCount, a.out.Quiet)
	deps := pipeline.Deps{
		Logger:    a.log,
		Telemetry: a.telemetry,
		OnStage:   progress.Stage,
	}

	a.out.Header("repdata run")
	a.out.KeyValue("Strategy", string(opts.Strategy))
	a.out.KeyValue("Destination", fmt.Sprintf("%s, %s", opts.Tables.RepData, opts.Tables.AttemptDetails))
	if opts.DryRun {
		a.out.Warning("Dry run: the destination will not be modified")
	}

	if opts.Strategy == pipeline.StrategyPushdown {
		dst, err := a.connect(ctx, a.cfg.Destination.Connection)
		if err != nil {
			return err
		}
		deps.Destination = dst
	} else {
		src, dst, err := a.warehouses(ctx)
		if err != nil {
			return err
		}
		deps.Source = src
		deps.Destination = dst
	}

	if !opts.DryRun {
		l, err := a.locker()
		if err != nil {
			return err
		}
		deps.Locker = l
	}

	runner, err := pipeline.NewRunner(deps, opts)
	if err != nil {
		return err
	}

	res, err := runner.Run(ctx)
	progress.Finish(err == nil)
	if err != nil {
		return err
	}

	printRunResult(a.out, res)
	return nil
}

func printRunResult(out *ui.Printer, res *pipeline.Result) {
	if res.DryRun && res.Strategy == pipeline.StrategyPushdown {
		fmt.Fprintln(out.Out(), res.Script)
		return
	}

	if res.SkippedAttempts > 0 {
		out.Warning(fmt.Sprintf("%d outbound attempts had no creation time and were skipped", res.SkippedAttempts))
	}
	if res.OrphanAttempts > 0 {
		out.Warning(fmt.Sprintf("%d outbound attempts had no quote number and were skipped", res.OrphanAttempts))
	}
	if res.Report != nil && len(res.Report.Collisions) > 0 {
		out.Warning(fmt.Sprintf("%d quotes use the unknown label as a real value, run 'repdata check' for details", len(res.Report.Collisions)))
	}
	if res.Report != nil && len(res.Report.Inconsistencies) > 0 {
		out.Warning(fmt.Sprintf("%d quotes have conflicting history, run 'repdata check' for details", len(res.Report.Inconsistencies)))
	}

	if !out.Quiet && len(res.Loads) > 0 {
		out.Section("Loaded tables")
		ui.RenderLoads(out.Out(), res.Loads)
	}

	out.KeyValue("Run ID", res.RunID)
	out.KeyValue("repdata rows", fmt.Sprint(res.RepDataRows))
	out.KeyValue("attempt_details rows", fmt.Sprint(res.DetailRows))

	switch {
	case res.DryRun:
		out.Success("Dry run complete")
	case res.Empty():
		out.Warning("No rows computed; the reporting tables are now empty")
	default:
		out.Success(fmt.Sprintf("Reporting tables replaced in %s", res.Duration.Round(time.Millisecond)))
	}
}
