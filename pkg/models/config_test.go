package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConnectionIsInlined(t *testing.T) {
	raw := `
source:
  dialect: snowflake
  account: xy12345.us-east-1
  username: etl_user
  database: QUOTING
  quotes_table: quote_history
  outbounds_table: outbound
destination:
  dialect: sqlite
  dsn: file:report.db
  repdata_table: repdata
  attempt_details_table: attempt_details
  batch_size: 500
`
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(raw), &cfg))

	assert.Equal(t, "snowflake", cfg.Source.Dialect)
	assert.Equal(t, "xy12345.us-east-1", cfg.Source.Account)
	assert.Equal(t, "quote_history", cfg.Source.QuotesTable)
	assert.Equal(t, "file:report.db", cfg.Destination.DSN)
	assert.Equal(t, 500, cfg.Destination.BatchSize)
}

func TestEmptyPasswordIsOmitted(t *testing.T) {
	cfg := Config{Source: Source{Connection: Connection{Dialect: "sqlite", DSN: "file:x.db"}}}

	data, err := yaml.Marshal(&cfg)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "password")
	assert.Contains(t, string(data), "dsn: file:x.db")
}
