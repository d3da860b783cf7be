package config

import (
	"github.com/spf13/viper"

	"repdata/internal/rollup"
	"repdata/pkg/models"
)

// Defaults returns the configuration used when a key is absent.
func Defaults() models.Config {
	return models.Config{
		Source: models.Source{
			Connection:     models.Connection{Dialect: "snowflake", Timeout: "30s"},
			QuotesTable:    "quotes",
			OutboundsTable: "outbounds",
		},
		Destination: models.Destination{
			Connection:          models.Connection{Dialect: "snowflake", Timeout: "30s"},
			RepDataTable:        "repdata",
			AttemptDetailsTable: "attempt_details",
			BatchSize:           1000,
		},
		Pipeline: models.Pipeline{
			Strategy:      "memory",
			OrganicFilter: string(rollup.FilterLastEntryOrUnbound),
			OrderingKey:   string(rollup.OrderByCreated),
			UnknownLabel:  rollup.DefaultLabel,
		},
		Lock: models.Lock{
			Addr:      "localhost:6379",
			TTL:       "30m",
			KeyPrefix: "repdata:",
		},
		Logging: models.Logging{Level: "info", Format: "json"},
		Telemetry: models.Telemetry{
			ServiceName: "repdata",
		},
	}
}

// setDefaults registers every key so that environment overrides reach
// Unmarshal even when the file omits the key.
func setDefaults(v *viper.Viper) {
	d := Defaults()

	for prefix, c := range map[string]models.Connection{
		"source":      d.Source.Connection,
		"destination": d.Destination.Connection,
	} {
		v.SetDefault(prefix+".dialect", c.Dialect)
		v.SetDefault(prefix+".account", c.Account)
		v.SetDefault(prefix+".username", c.Username)
		v.SetDefault(prefix+".password", c.Password)
		v.SetDefault(prefix+".role", c.Role)
		v.SetDefault(prefix+".warehouse", c.Warehouse)
		v.SetDefault(prefix+".database", c.Database)
		v.SetDefault(prefix+".schema", c.Schema)
		v.SetDefault(prefix+".dsn", c.DSN)
		v.SetDefault(prefix+".timeout", c.Timeout)
	}
	v.SetDefault("source.quotes_table", d.Source.QuotesTable)
	v.SetDefault("source.outbounds_table", d.Source.OutboundsTable)

	v.SetDefault("destination.repdata_table", d.Destination.RepDataTable)
	v.SetDefault("destination.attempt_details_table", d.Destination.AttemptDetailsTable)
	v.SetDefault("destination.batch_size", d.Destination.BatchSize)
	v.SetDefault("destination.atomic_replace", d.Destination.AtomicReplace)

	v.SetDefault("pipeline.strategy", d.Pipeline.Strategy)
	v.SetDefault("pipeline.organic_filter", d.Pipeline.OrganicFilter)
	v.SetDefault("pipeline.ordering_key", d.Pipeline.OrderingKey)
	v.SetDefault("pipeline.unknown_label", d.Pipeline.UnknownLabel)
	v.SetDefault("pipeline.timeout", d.Pipeline.Timeout)

	v.SetDefault("lock.enabled", d.Lock.Enabled)
	v.SetDefault("lock.addr", d.Lock.Addr)
	v.SetDefault("lock.password", d.Lock.Password)
	v.SetDefault("lock.db", d.Lock.DB)
	v.SetDefault("lock.ttl", d.Lock.TTL)
	v.SetDefault("lock.key_prefix", d.Lock.KeyPrefix)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("telemetry.endpoint", d.Telemetry.Endpoint)
	v.SetDefault("telemetry.service_name", d.Telemetry.ServiceName)
	v.SetDefault("telemetry.insecure", d.Telemetry.Insecure)
}
