package pipeline

import (
	"repdata/internal/config"
	"repdata/internal/rollup"
	"repdata/internal/warehouse"
	"repdata/pkg/models"
)

// OptionsFromConfig maps a validated config onto run options.
func OptionsFromConfig(cfg *models.Config) Options {
	return Options{
		Tables: Tables{
			Quotes:         cfg.Source.QuotesTable,
			Outbounds:      cfg.Source.OutboundsTable,
			RepData:        cfg.Destination.RepDataTable,
			AttemptDetails: cfg.Destination.AttemptDetailsTable,
		},
		Engine: rollup.Options{
			Filter:       rollup.OrganicFilter(cfg.Pipeline.OrganicFilter),
			OrderBy:      rollup.OrderingKey(cfg.Pipeline.OrderingKey),
			UnknownLabel: cfg.Pipeline.UnknownLabel,
		},
		Strategy: Strategy(cfg.Pipeline.Strategy),
		Load: warehouse.LoadOptions{
			BatchSize: cfg.Destination.BatchSize,
			Atomic:    cfg.Destination.AtomicReplace,
		},
		Timeout: config.Duration(cfg.Pipeline.Timeout),
	}
}
