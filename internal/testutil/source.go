package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"repdata/internal/rollup"
)

// SQLiteSourceDDL creates the two source tables in sqlite.
func SQLiteSourceDDL(quotes, outbounds string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE %s (
  quote_number TEXT,
  transaction_status TEXT,
  product TEXT,
  quote_channel TEXT,
  last_entry_date DATETIME
)`, quotes),
		fmt.Sprintf(`CREATE TABLE %s (
  id INTEGER PRIMARY KEY,
  quote_number TEXT,
  result TEXT,
  scheduled_outbound_dt DATETIME,
  assigned_at_dtm DATETIME,
  completed_at_dtm DATETIME,
  created_at_dtm DATETIME
)`, outbounds),
	}
}

// SeedSource creates the source tables in a sqlite database and loads rows.
func SeedSource(ctx context.Context, db *sql.DB, quotesTable, outboundsTable string, quotes []rollup.QuoteEvent, attempts []rollup.OutboundAttempt) error {
	for _, ddl := range SQLiteSourceDDL(quotesTable, outboundsTable) {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create source table: %w", err)
		}
	}

	for _, q := range quotes {
		_, err := db.ExecContext(ctx,
			"INSERT INTO "+quotesTable+" VALUES (?, ?, ?, ?, ?)",
			q.QuoteNumber, q.Status, deref(q.Product), deref(q.Channel), derefTime(q.LastEntryDate))
		if err != nil {
			return fmt.Errorf("insert quote %s: %w", q.QuoteNumber, err)
		}
	}

	for _, a := range attempts {
		_, err := db.ExecContext(ctx,
			"INSERT INTO "+outboundsTable+" VALUES (?, ?, ?, ?, ?, ?, ?)",
			a.ID, a.QuoteNumber, deref(a.Result),
			derefTime(a.ScheduledAt), derefTime(a.AssignedAt), derefTime(a.CompletedAt), a.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert attempt %d: %w", a.ID, err)
		}
	}
	return nil
}

func deref(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func derefTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
