package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"repdata/internal/rollup"
	apperrors "repdata/pkg/errors"
)

// SourceTables names the two source tables.
type SourceTables struct {
	Quotes    string
	Outbounds string
}

// SourceData is one consistent snapshot of the source tables.
type SourceData struct {
	Quotes   []rollup.QuoteEvent
	Attempts []rollup.OutboundAttempt
	// SkippedAttempts counts outbound rows without a creation timestamp.
	SkippedAttempts int
	// OrphanAttempts counts outbound rows without a quote number.
	OrphanAttempts int
}

type quoteRecord struct {
	QuoteNumber   sql.NullString `db:"quote_number"`
	Status        sql.NullString `db:"transaction_status"`
	Product       sql.NullString `db:"product"`
	Channel       sql.NullString `db:"quote_channel"`
	LastEntryDate sql.NullTime   `db:"last_entry_date"`
}

type outboundRecord struct {
	ID          int64          `db:"id"`
	QuoteNumber sql.NullString `db:"quote_number"`
	Result      sql.NullString `db:"result"`
	ScheduledAt sql.NullTime   `db:"scheduled_outbound_dt"`
	AssignedAt  sql.NullTime   `db:"assigned_at_dtm"`
	CompletedAt sql.NullTime   `db:"completed_at_dtm"`
	CreatedAt   sql.NullTime   `db:"created_at_dtm"`
}

var (
	quoteColumns    = []string{"quote_number", "transaction_status", "product", "quote_channel", "last_entry_date"}
	outboundColumns = []string{"id", "quote_number", "result", "scheduled_outbound_dt", "assigned_at_dtm", "completed_at_dtm", "created_at_dtm"}
)

// SelectSQL renders a full-table read with each column aliased to its
// lowercase name.
func (d Dialect) SelectSQL(table string, columns []string) string {
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = fmt.Sprintf("%s AS %s", c, d.QuoteAlias(c))
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(parts, ", "), table)
}

// ReadSource reads both source tables inside one transaction so the engine
// sees a single snapshot.
func (s *Service) ReadSource(ctx context.Context, tables SourceTables) (*SourceData, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: s.dialect.ReadOnlyTx})
	if err != nil {
		return nil, apperrors.SourceError("Failed to open source transaction", tables.Quotes, err)
	}

	var quotes []quoteRecord
	var outbounds []outboundRecord

	handler := apperrors.NewTransactionHandler(tx.Commit, tx.Rollback)
	err = handler.Execute(func() error {
		if err := tx.SelectContext(ctx, &quotes, s.dialect.SelectSQL(tables.Quotes, quoteColumns)); err != nil {
			return apperrors.SourceError("Failed to read quote history", tables.Quotes, err)
		}
		if err := tx.SelectContext(ctx, &outbounds, s.dialect.SelectSQL(tables.Outbounds, outboundColumns)); err != nil {
			return apperrors.SourceError("Failed to read outbound attempts", tables.Outbounds, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	data := &SourceData{Quotes: make([]rollup.QuoteEvent, 0, len(quotes))}
	for _, q := range quotes {
		if !q.QuoteNumber.Valid {
			continue
		}
		data.Quotes = append(data.Quotes, rollup.QuoteEvent{
			QuoteNumber:   q.QuoteNumber.String,
			Status:        q.Status.String,
			Product:       nullString(q.Product),
			Channel:       nullString(q.Channel),
			LastEntryDate: nullTime(q.LastEntryDate),
		})
	}

	data.Attempts = make([]rollup.OutboundAttempt, 0, len(outbounds))
	for _, o := range outbounds {
		if !o.QuoteNumber.Valid {
			data.OrphanAttempts++
			continue
		}
		if !o.CreatedAt.Valid {
			data.SkippedAttempts++
			continue
		}
		data.Attempts = append(data.Attempts, rollup.OutboundAttempt{
			ID:          o.ID,
			QuoteNumber: o.QuoteNumber.String,
			Result:      nullString(o.Result),
			ScheduledAt: nullTime(o.ScheduledAt),
			AssignedAt:  nullTime(o.AssignedAt),
			CompletedAt: nullTime(o.CompletedAt),
			CreatedAt:   o.CreatedAt.Time.UTC(),
		})
	}
	return data, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}
