package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"repdata/internal/pipeline"
	"repdata/internal/rollup"
	"repdata/internal/ui"
	apperrors "repdata/pkg/errors"
)

type previewFlags struct {
	dateType string
	product  string
	channel  string
	details  bool
	melted   bool
	limit    int
}

func newPreviewCmd(root *rootOptions) *cobra.Command {
	flags := &previewFlags{}

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Compute the rollup and print it without writing",
		Long: `Compute the reporting rows in memory and print a slice of them.

Filters select one date type and one dimension value each; "All" selects the
rolled-up rows. --melted prints one row per measure, the shape a chart reads.`,
		Example: `  repdata preview --date-type month --product All --channel All
  repdata preview --date-type week --channel Web --melted
  repdata preview --details --date-type month`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd, root, flags)
		},
	}

	cmd.Flags().StringVar(&flags.dateType, "date-type", "", "Only rows of this period: week, month or year")
	cmd.Flags().StringVar(&flags.product, "product", "", "Only rows with this product (All for the rollup)")
	cmd.Flags().StringVar(&flags.channel, "channel", "", "Only rows with this quote channel (All for the rollup)")
	cmd.Flags().BoolVar(&flags.details, "details", false, "Show attempt_details instead of repdata")
	cmd.Flags().BoolVar(&flags.melted, "melted", false, "Show one row per measure")
	cmd.Flags().IntVar(&flags.limit, "limit", 50, "Maximum rows to print, 0 for all")
	return cmd
}

func (f *previewFlags) filter() (rollup.RepDataFilter, error) {
	dt := rollup.DateType(f.dateType)
	switch dt {
	case "", rollup.Week, rollup.Month, rollup.Year:
	default:
		return rollup.RepDataFilter{}, apperrors.New(apperrors.ErrCodeInvalidInput,
			fmt.Sprintf("unknown date type %q", f.dateType)).
			WithSuggestions("Use week, month or year")
	}
	if f.details && f.melted {
		return rollup.RepDataFilter{}, apperrors.New(apperrors.ErrCodeInvalidInput,
			"--details and --melted cannot be combined")
	}
	return rollup.RepDataFilter{DateType: dt, Product: f.product, Channel: f.channel}, nil
}

func runPreview(cmd *cobra.Command, root *rootOptions, flags *previewFlags) error {
	filter, err := flags.filter()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(cmd, root)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	src, err := a.connect(ctx, a.cfg.Source.Connection)
	if err != nil {
		return err
	}

	opts := pipeline.OptionsFromConfig(a.cfg)
	opts.Strategy = pipeline.StrategyMemory
	opts.DryRun = true
	runner, err := pipeline.NewRunner(pipeline.Deps{Source: src, Logger: a.log, Telemetry: a.telemetry}, opts)
	if err != nil {
		return err
	}

	rep, _, err := runner.Compute(ctx)
	if err != nil {
		return err
	}
	if rep.Empty() {
		a.out.Warning("No rows computed, no outbound attempts survived filtering")
		return nil
	}

	w := cmd.OutOrStdout()
	switch {
	case flags.details:
		rows := rollup.FilterDetails(rep.Details, filter)
		ui.RenderDetails(w, limit(rows, flags.limit))
		a.out.Info(fmt.Sprintf("%d of %d attempt_details rows match", len(rows), len(rep.Details)))
	case flags.melted:
		rows := rollup.FilterRepData(rep.RepData, filter)
		points := rollup.MeltRepData(rows)
		ui.RenderSeries(w, limit(points, flags.limit))
		a.out.Info(fmt.Sprintf("%d points from %d repdata rows", len(points), len(rows)))
	default:
		rows := rollup.FilterRepData(rep.RepData, filter)
		ui.RenderRepData(w, limit(rows, flags.limit))
		a.out.Info(fmt.Sprintf("%d of %d repdata rows match", len(rows), len(rep.RepData)))
	}
	return nil
}

func limit[T any](rows []T, n int) []T {
	if n > 0 && len(rows) > n {
		return rows[:n]
	}
	return rows
}
