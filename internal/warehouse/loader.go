package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	apperrors "repdata/pkg/errors"
)

// DefaultBatchSize is the number of rows per INSERT when none is configured.
const DefaultBatchSize = 1000

// LoadOptions control a table replacement.
type LoadOptions struct {
	BatchSize int
	// Atomic clears and inserts in a single transaction.
	Atomic bool
}

// LoadResult describes one completed table replacement.
type LoadResult struct {
	Table    string
	Rows     int
	Batches  int
	Duration time.Duration
}

// EnsureTable creates spec's table if it does not exist. It runs outside any
// transaction: Snowflake commits an open transaction before DDL.
func (s *Service) EnsureTable(ctx context.Context, spec TableSpec) error {
	if err := s.ensureConnected(); err != nil {
		return err
	}
	ddl := s.dialect.CreateTableSQL(spec)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return s.writeError(spec, "Failed to create table", ddl, err)
	}
	return nil
}

// ReplaceTable creates spec's table if needed, empties it and inserts rows.
// The table is created before the replace transaction opens. Without Atomic
// the clear is committed before the first insert, so readers may briefly see
// an empty table.
func (s *Service) ReplaceTable(ctx context.Context, spec TableSpec, rows [][]interface{}, opts LoadOptions) (*LoadResult, error) {
	if err := s.EnsureTable(ctx, spec); err != nil {
		return nil, err
	}
	start := time.Now()
	result := &LoadResult{Table: spec.Name}

	batch := opts.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	batch = s.dialect.RowsPerStatement(batch, len(spec.Columns))

	clearTable := func(tx *sqlx.Tx) error {
		stmt := s.dialect.ClearStatement(spec.Name, opts.Atomic)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return s.writeError(spec, "Failed to clear table", stmt, err)
		}
		return nil
	}

	insert := func(tx *sqlx.Tx) error {
		for startRow := 0; startRow < len(rows); startRow += batch {
			end := startRow + batch
			if end > len(rows) {
				end = len(rows)
			}
			chunk := rows[startRow:end]

			args := make([]interface{}, 0, len(chunk)*len(spec.Columns))
			for _, r := range chunk {
				if len(r) != len(spec.Columns) {
					return apperrors.New(apperrors.ErrCodeDataShape,
						fmt.Sprintf("Row has %d values, table %s has %d columns", len(r), spec.Name, len(spec.Columns)))
				}
				args = append(args, r...)
			}

			query := s.dialect.InsertSQL(spec, len(chunk))
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return s.writeError(spec, "Failed to insert rows", query, err).
					WithContext("batch_start", startRow)
			}
			result.Rows += len(chunk)
			result.Batches++
		}
		return nil
	}

	if opts.Atomic {
		err := s.inTx(ctx, func(tx *sqlx.Tx) error {
			if err := clearTable(tx); err != nil {
				return err
			}
			return insert(tx)
		})
		if err != nil {
			return nil, err
		}
	} else {
		if err := s.inTx(ctx, clearTable); err != nil {
			return nil, err
		}
		if err := s.inTx(ctx, insert); err != nil {
			return nil, err
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

// CountRows returns the number of rows in table.
func (s *Service) CountRows(ctx context.Context, table string) (int64, error) {
	if err := s.ensureConnected(); err != nil {
		return 0, err
	}
	var n int64
	query := "SELECT COUNT(*) FROM " + table
	if err := s.db.GetContext(ctx, &n, query); err != nil {
		return 0, apperrors.SQLError("Failed to count rows", query, err).WithContext("table", table)
	}
	return n, nil
}

func (s *Service) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeSQLTransaction, "Failed to begin transaction")
	}
	handler := apperrors.NewTransactionHandler(tx.Commit, tx.Rollback)
	return handler.Execute(func() error { return fn(tx) })
}

func (s *Service) writeError(spec TableSpec, message, query string, cause error) *apperrors.AppError {
	err := apperrors.SQLError(message, query, cause).
		WithContext("table", spec.Name).
		WithSeverity(apperrors.SeverityCritical)
	if err.Code == apperrors.ErrCodeSQLExecution {
		err.Code = apperrors.ErrCodeDestinationWrite
	}
	return err
}
