package rollup_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"repdata/internal/rollup"
	"repdata/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestEpochIsMonday(t *testing.T) {
	assert.Equal(t, time.Monday, rollup.Epoch.Weekday())
}

func TestWeekEnd(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "friday maps to itself", in: "2024-03-15 14:30", want: "2024-03-15"},
		{name: "monday", in: "2024-03-11 00:00", want: "2024-03-15"},
		{name: "saturday stays in week", in: "2024-03-16 23:59", want: "2024-03-15"},
		{name: "sunday closes the week", in: "2024-03-17 08:00", want: "2024-03-15"},
		{name: "next monday starts new week", in: "2024-03-18 00:00", want: "2024-03-22"},
		{name: "epoch", in: "1900-01-01", want: "1900-01-05"},
		{name: "before epoch floors", in: "1899-12-31", want: "1899-12-29"},
		{name: "year boundary", in: "2024-12-31 12:00", want: "2025-01-03"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rollup.WeekEnd(testutil.At(tt.in))
			assert.Equal(t, testutil.At(tt.want), got)
			assert.Equal(t, time.Friday, got.Weekday())
		})
	}
}

func TestMonthAndYearEnd(t *testing.T) {
	tests := []struct {
		in        string
		wantMonth string
		wantYear  string
	}{
		{in: "2024-03-15 10:00", wantMonth: "2024-03-31", wantYear: "2024-12-31"},
		{in: "2024-02-10", wantMonth: "2024-02-29", wantYear: "2024-12-31"},
		{in: "2023-02-28 23:59", wantMonth: "2023-02-28", wantYear: "2023-12-31"},
		{in: "2023-12-01", wantMonth: "2023-12-31", wantYear: "2023-12-31"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ts := testutil.At(tt.in)
			assert.Equal(t, testutil.At(tt.wantMonth), rollup.MonthEnd(ts))
			assert.Equal(t, testutil.At(tt.wantYear), rollup.YearEnd(ts))
		})
	}
}

func TestPeriodEndUsesWallClockDate(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	ts := time.Date(2024, time.March, 31, 23, 30, 0, 0, loc)

	assert.Equal(t, testutil.At("2024-03-31"), rollup.MonthEnd(ts))
	assert.Equal(t, testutil.At("2024-03-29"), rollup.PeriodEnd(rollup.Week, ts))
}

func TestParseDateType(t *testing.T) {
	dt, err := rollup.ParseDateType("month")
	require.NoError(t, err)
	assert.Equal(t, rollup.Month, dt)

	_, err = rollup.ParseDateType("quarter")
	assert.Error(t, err)
}
