package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"repdata/internal/pipeline"
	"repdata/internal/rollup"
	"repdata/internal/ui"
	apperrors "repdata/pkg/errors"
)

func newCheckCmd(root *rootOptions) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and inspect the source data",
		Long: `Load and validate the configuration, connect to the source, and report
data quality issues the rollup tolerates silently: quotes whose history
disagrees on product or channel, products or channels equal to the unknown
label, outbound attempts without a creation time or quote number, and
attempts dropped as organic activity.

A product or channel equal to "All" makes every run fail; check lists the
offending quotes instead of stopping at the first one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, root, strict)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when any quote history is inconsistent or uses the unknown label")
	return cmd
}

func runCheck(cmd *cobra.Command, root *rootOptions, strict bool) error {
	ctx := cmd.Context()
	a, err := newApp(cmd, root)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	a.out.Header("repdata check")
	a.out.Success("Configuration is valid")

	src, err := a.connect(ctx, a.cfg.Source.Connection)
	if err != nil {
		return err
	}
	a.out.Success(fmt.Sprintf("Connected to %s source", a.cfg.Source.Dialect))

	opts := pipeline.OptionsFromConfig(a.cfg)
	opts.Strategy = pipeline.StrategyMemory
	opts.DryRun = true
	runner, err := pipeline.NewRunner(pipeline.Deps{Source: src, Logger: a.log, Telemetry: a.telemetry}, opts)
	if err != nil {
		return err
	}

	data, err := runner.Read(ctx)
	if err != nil {
		return err
	}

	summaries, _ := rollup.SummarizeQuotes(data.Quotes)
	if blocking := rollup.SentinelCollisions(rollup.ReservedCollisions(summaries, opts.Engine.UnknownLabel)); len(blocking) > 0 {
		a.out.Warning(fmt.Sprintf("%d source values equal the rollup sentinel %q", len(blocking), rollup.All))
		ui.RenderCollisions(cmd.OutOrStdout(), blocking)
		return apperrors.New(apperrors.ErrCodeValidationFailed,
			fmt.Sprintf("%d quotes use %q as a product or channel, every run will fail", len(blocking), rollup.All)).
			WithSuggestions("Rename the values listed above in the quotes table")
	}

	rep, err := runner.ComputeFrom(ctx, data)
	if err != nil {
		return err
	}

	a.out.Section("Source")
	a.out.KeyValue("Quote events", fmt.Sprint(len(data.Quotes)))
	a.out.KeyValue("Quotes", fmt.Sprint(len(rep.Summaries)))
	a.out.KeyValue("Attempts read", fmt.Sprint(rep.AttemptsRead))
	a.out.KeyValue("Attempts kept", fmt.Sprint(rep.AttemptsKept))
	a.out.KeyValue("Organic, dropped", fmt.Sprint(rep.AttemptsDropped))
	a.out.KeyValue("Missing created_at", fmt.Sprint(data.SkippedAttempts))
	a.out.KeyValue("Missing quote_number", fmt.Sprint(data.OrphanAttempts))

	if data.SkippedAttempts > 0 {
		a.out.Warning(fmt.Sprintf("%d outbound attempts have no creation time", data.SkippedAttempts))
	}
	if data.OrphanAttempts > 0 {
		a.out.Warning(fmt.Sprintf("%d outbound attempts have no quote number", data.OrphanAttempts))
	}

	if len(rep.Collisions) > 0 {
		a.out.Warning(fmt.Sprintf("%d source values equal the unknown label %q and merge with unlabelled attempts",
			len(rep.Collisions), opts.Engine.UnknownLabel))
		if !a.out.Quiet {
			ui.RenderCollisions(cmd.OutOrStdout(), rep.Collisions)
		}
	}

	if len(rep.Inconsistencies) == 0 {
		a.out.Success("Quote history is consistent")
	} else {
		a.out.Warning(fmt.Sprintf("%d quote history conflicts, the maximum value is used", len(rep.Inconsistencies)))
		if !a.out.Quiet {
			ui.RenderInconsistencies(cmd.OutOrStdout(), rep.Inconsistencies)
		}
	}

	if strict && (len(rep.Inconsistencies) > 0 || len(rep.Collisions) > 0) {
		return apperrors.New(apperrors.ErrCodeValidationFailed,
			fmt.Sprintf("%d quotes have inconsistent history, %d use the unknown label", len(rep.Inconsistencies), len(rep.Collisions))).
			WithSuggestions("Fix the quote rows listed above or rerun without --strict")
	}
	return nil
}
