package models

// Config is the on-disk configuration of a repdata installation.
type Config struct {
	Source      Source      `yaml:"source" mapstructure:"source"`
	Destination Destination `yaml:"destination" mapstructure:"destination"`
	Pipeline    Pipeline    `yaml:"pipeline" mapstructure:"pipeline"`
	Lock        Lock        `yaml:"lock" mapstructure:"lock"`
	Logging     Logging     `yaml:"logging" mapstructure:"logging"`
	Telemetry   Telemetry   `yaml:"telemetry" mapstructure:"telemetry"`
}

// Connection describes how to reach a warehouse. Snowflake uses the account
// fields; postgres and sqlite use DSN.
type Connection struct {
	Dialect   string `yaml:"dialect" mapstructure:"dialect" validate:"required,oneof=snowflake postgres sqlite"`
	Account   string `yaml:"account,omitempty" mapstructure:"account" validate:"required_if=Dialect snowflake"`
	Username  string `yaml:"username,omitempty" mapstructure:"username" validate:"required_if=Dialect snowflake"`
	Password  string `yaml:"password,omitempty" mapstructure:"password"`
	Role      string `yaml:"role,omitempty" mapstructure:"role"`
	Warehouse string `yaml:"warehouse,omitempty" mapstructure:"warehouse"`
	Database  string `yaml:"database,omitempty" mapstructure:"database" validate:"required_if=Dialect snowflake"`
	Schema    string `yaml:"schema,omitempty" mapstructure:"schema"`
	DSN       string `yaml:"dsn,omitempty" mapstructure:"dsn" validate:"required_unless=Dialect snowflake"`
	Timeout   string `yaml:"timeout,omitempty" mapstructure:"timeout"` // e.g. "30s"
}

// Source points at the quoting database.
type Source struct {
	Connection     `yaml:",inline" mapstructure:",squash"`
	QuotesTable    string `yaml:"quotes_table" mapstructure:"quotes_table" validate:"required,sqlident"`
	OutboundsTable string `yaml:"outbounds_table" mapstructure:"outbounds_table" validate:"required,sqlident"`
}

// Destination points at the reporting tables.
type Destination struct {
	Connection          `yaml:",inline" mapstructure:",squash"`
	RepDataTable        string `yaml:"repdata_table" mapstructure:"repdata_table" validate:"required,sqlident"`
	AttemptDetailsTable string `yaml:"attempt_details_table" mapstructure:"attempt_details_table" validate:"required,sqlident,nefield=RepDataTable"`
	BatchSize           int    `yaml:"batch_size" mapstructure:"batch_size" validate:"min=1,max=16384"`
	AtomicReplace       bool   `yaml:"atomic_replace" mapstructure:"atomic_replace"`
}

// Pipeline tunes the engine.
type Pipeline struct {
	Strategy      string `yaml:"strategy" mapstructure:"strategy" validate:"oneof=memory pushdown"`
	OrganicFilter string `yaml:"organic_filter" mapstructure:"organic_filter" validate:"oneof=last-entry-or-unbound last-entry"`
	OrderingKey   string `yaml:"ordering_key" mapstructure:"ordering_key" validate:"oneof=created assigned"`
	UnknownLabel  string `yaml:"unknown_label" mapstructure:"unknown_label" validate:"required,ne=All"`
	Timeout       string `yaml:"timeout" mapstructure:"timeout"` // whole-run deadline, empty for none
}

// Lock configures the optional single-writer guard.
type Lock struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Addr      string `yaml:"addr" mapstructure:"addr" validate:"required_if=Enabled true"`
	Password  string `yaml:"password,omitempty" mapstructure:"password"`
	DB        int    `yaml:"db" mapstructure:"db" validate:"min=0"`
	TTL       string `yaml:"ttl" mapstructure:"ttl"`
	KeyPrefix string `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// Logging configures the structured logger.
type Logging struct {
	Level  string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=json text"`
}

// Telemetry configures OpenTelemetry export. An empty endpoint disables it.
type Telemetry struct {
	Endpoint    string `yaml:"endpoint,omitempty" mapstructure:"endpoint"`
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
	Insecure    bool   `yaml:"insecure" mapstructure:"insecure"`
}
