package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repdata/internal/security"
	apperrors "repdata/pkg/errors"
	"repdata/pkg/models"
)

const sqliteConfig = `
source:
  dialect: sqlite
  dsn: file:source.db
destination:
  dialect: sqlite
  dsn: file:report.db
  batch_size: 250
pipeline:
  ordering_key: assigned
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestGetConfigFile(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		t.Setenv(ConfigEnv, "")
		home, _ := os.UserHomeDir()
		assert.Equal(t, filepath.Join(home, ".repdata", "config.yaml"), GetConfigFile())
		assert.Equal(t, filepath.Join(home, ".repdata"), GetConfigPath())
	})

	t.Run("env override", func(t *testing.T) {
		t.Setenv(ConfigEnv, "/etc/repdata/prod.yaml")
		assert.Equal(t, "/etc/repdata/prod.yaml", GetConfigFile())
		assert.Equal(t, "/etc/repdata", GetConfigPath())
	})
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(NewViper(), writeConfig(t, sqliteConfig))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Source.Dialect)
	assert.Equal(t, "quotes", cfg.Source.QuotesTable)
	assert.Equal(t, "outbounds", cfg.Source.OutboundsTable)
	assert.Equal(t, "repdata", cfg.Destination.RepDataTable)
	assert.Equal(t, 250, cfg.Destination.BatchSize)
	assert.Equal(t, "assigned", cfg.Pipeline.OrderingKey)
	assert.Equal(t, "memory", cfg.Pipeline.Strategy)
	assert.Equal(t, "last-entry-or-unbound", cfg.Pipeline.OrganicFilter)
	assert.Equal(t, "Unknown", cfg.Pipeline.UnknownLabel)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("REPDATA_PIPELINE_STRATEGY", "pushdown")
	t.Setenv("REPDATA_DESTINATION_REPDATA_TABLE", "reporting.repdata")

	cfg, err := Load(NewViper(), writeConfig(t, sqliteConfig))
	require.NoError(t, err)
	assert.Equal(t, "pushdown", cfg.Pipeline.Strategy)
	assert.Equal(t, "reporting.repdata", cfg.Destination.RepDataTable)
}

func TestLoadMissingFileUsesEnvironment(t *testing.T) {
	t.Setenv("REPDATA_SOURCE_DIALECT", "sqlite")
	t.Setenv("REPDATA_SOURCE_DSN", "file:a.db")
	t.Setenv("REPDATA_DESTINATION_DIALECT", "sqlite")
	t.Setenv("REPDATA_DESTINATION_DSN", "file:b.db")

	cfg, err := Load(NewViper(), filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "file:b.db", cfg.Destination.DSN)
}

func TestValidate(t *testing.T) {
	base := func() models.Config {
		cfg := Defaults()
		cfg.Source.Connection = models.Connection{Dialect: "snowflake", Account: "acct", Username: "u", Database: "DB", Timeout: "30s"}
		cfg.Destination.Connection = models.Connection{Dialect: "postgres", DSN: "postgres://localhost/report"}
		return cfg
	}

	tests := []struct {
		name      string
		mutate    func(*models.Config)
		wantField string
	}{
		{name: "valid", mutate: func(*models.Config) {}},
		{name: "unknown dialect", mutate: func(c *models.Config) { c.Source.Dialect = "oracle" }, wantField: "source.dialect"},
		{name: "snowflake needs account", mutate: func(c *models.Config) { c.Source.Account = "" }, wantField: "source.account"},
		{name: "postgres needs dsn", mutate: func(c *models.Config) { c.Destination.DSN = "" }, wantField: "destination.dsn"},
		{name: "table injection", mutate: func(c *models.Config) { c.Source.QuotesTable = "quotes; DROP TABLE x" }, wantField: "source.quotes_table"},
		{name: "same destination tables", mutate: func(c *models.Config) { c.Destination.AttemptDetailsTable = c.Destination.RepDataTable }, wantField: "destination.attempt_details_table"},
		{name: "batch size", mutate: func(c *models.Config) { c.Destination.BatchSize = 0 }, wantField: "destination.batch_size"},
		{name: "strategy", mutate: func(c *models.Config) { c.Pipeline.Strategy = "spark" }, wantField: "pipeline.strategy"},
		{name: "label is sentinel", mutate: func(c *models.Config) { c.Pipeline.UnknownLabel = "All" }, wantField: "pipeline.unknown_label"},
		{name: "lock needs addr", mutate: func(c *models.Config) { c.Lock.Enabled = true; c.Lock.Addr = "" }, wantField: "lock.addr"},
		{name: "bad duration", mutate: func(c *models.Config) { c.Pipeline.Timeout = "soon" }, wantField: "pipeline.timeout"},
		{name: "lock ttl", mutate: func(c *models.Config) { c.Lock.Enabled = true; c.Lock.TTL = "" }, wantField: "lock.ttl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := Validate(&cfg)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperrors.ErrCodeConfigInvalid, appErr.Code)
			assert.Equal(t, tt.wantField, appErr.Context["field"])
		})
	}
}

func TestSaveRoundTripsThroughLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := Defaults()
	cfg.Source.Connection = models.Connection{Dialect: "sqlite", DSN: "file:src.db"}
	cfg.Destination.Connection = models.Connection{Dialect: "sqlite", DSN: "file:dst.db"}

	require.NoError(t, Save(&cfg, path))
	assert.True(t, Exists(path))

	loaded, err := Load(NewViper(), path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Destination.DSN, loaded.Destination.DSN)
}

type fakeStore map[string]string

func (f fakeStore) Lookup(scope, user string) (string, error) {
	if v, ok := f["err"]; ok {
		return "", fmt.Errorf("%s", v)
	}
	return f[security.CredentialKey(scope, user)], nil
}

func TestResolveSecrets(t *testing.T) {
	t.Setenv(security.EncryptionKeyEnv, "test-key")
	sealed, err := security.Encrypt("from-file")
	require.NoError(t, err)

	cfg := Defaults()
	cfg.Source.Connection = models.Connection{Dialect: "snowflake", Username: "etl", Password: sealed}
	cfg.Destination.Connection = models.Connection{Dialect: "snowflake", Username: "loader"}

	store := fakeStore{"destination/loader": "from-keyring", "lock": "unused"}
	require.NoError(t, ResolveSecrets(&cfg, store))

	assert.Equal(t, "from-file", cfg.Source.Password)
	assert.Equal(t, "from-keyring", cfg.Destination.Password)
	assert.Empty(t, cfg.Lock.Password, "lock disabled")

	t.Run("keyring failure", func(t *testing.T) {
		cfg := Defaults()
		cfg.Source.Connection = models.Connection{Dialect: "snowflake", Username: "etl"}
		err := ResolveSecrets(&cfg, fakeStore{"err": "locked"})
		assert.Equal(t, apperrors.ErrCodeAuthenticationFailed, apperrors.GetErrorCode(err))
	})
}

func TestEncryptSecrets(t *testing.T) {
	t.Setenv(security.EncryptionKeyEnv, "test-key")

	cfg := Defaults()
	cfg.Source.Password = "one"
	cfg.Lock.Password = "two"

	n, err := EncryptSecrets(&cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, security.IsEncrypted(cfg.Source.Password))
	assert.Empty(t, cfg.Destination.Password)

	n, err = EncryptSecrets(&cfg)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, ResolveSecrets(&cfg, nil))
	assert.Equal(t, "one", cfg.Source.Password)
	assert.Equal(t, "two", cfg.Lock.Password)
}
