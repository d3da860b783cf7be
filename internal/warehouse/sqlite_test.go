package warehouse

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repdata/internal/rollup"
	"repdata/internal/testutil"
)

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, err := NewService(Config{Dialect: "sqlite", DSN: filepath.Join(t.TempDir(), "warehouse.db")})
	require.NoError(t, err)
	require.NoError(t, svc.Connect(ctx))
	defer svc.Close()

	require.NoError(t, testutil.SeedSource(ctx, svc.db.DB, "quotes", "outbounds",
		testutil.SampleQuotes(), testutil.SampleAttempts()))

	data, err := svc.ReadSource(ctx, SourceTables{Quotes: "quotes", Outbounds: "outbounds"})
	require.NoError(t, err)
	assert.Len(t, data.Quotes, 4)
	assert.Len(t, data.Attempts, 7)
	assert.True(t, testutil.At("2024-03-11 09:00").Equal(data.Attempts[0].CreatedAt))

	rep, err := rollup.Compute(data.Quotes, data.Attempts, rollup.DefaultOptions(), nil)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = svc.ReplaceTable(ctx, RepDataSpec("repdata"), RepDataValues(rep.RepData), LoadOptions{BatchSize: 7})
		require.NoError(t, err)
	}
	n, err := svc.CountRows(ctx, "repdata")
	require.NoError(t, err)
	assert.Equal(t, int64(len(rep.RepData)), n)

	_, err = svc.ReplaceTable(ctx, AttemptDetailsSpec("attempt_details"), AttemptDetailValues(rep.Details), LoadOptions{Atomic: true})
	require.NoError(t, err)
	n, err = svc.CountRows(ctx, "attempt_details")
	require.NoError(t, err)
	assert.Equal(t, int64(len(rep.Details)), n)
}
