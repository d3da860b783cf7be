package errors

import (
	"errors"
)

// TransactionHandler runs a unit of work between a commit and a rollback.
type TransactionHandler struct {
	commitFunc   func() error
	rollbackFunc func() error
	committed    bool
}

// NewTransactionHandler creates a handler for one transaction
func NewTransactionHandler(commit, rollback func() error) *TransactionHandler {
	return &TransactionHandler{
		commitFunc:   commit,
		rollbackFunc: rollback,
	}
}

// Execute runs fn and commits. On failure the transaction is rolled back and
// a rollback failure is joined to the original error.
func (th *TransactionHandler) Execute(fn func() error) error {
	if th.committed {
		return New(ErrCodeSQLTransaction, "Transaction already committed")
	}

	if err := fn(); err != nil {
		if th.rollbackFunc != nil {
			if rbErr := th.rollbackFunc(); rbErr != nil {
				return errors.Join(err, Wrap(rbErr, ErrCodeSQLTransaction, "Failed to rollback transaction"))
			}
		}
		return err
	}

	if th.commitFunc != nil {
		if err := th.commitFunc(); err != nil {
			return Wrap(err, ErrCodeSQLTransaction, "Failed to commit transaction").
				WithSeverity(SeverityCritical)
		}
	}
	th.committed = true
	return nil
}

// Committed reports whether Execute finished successfully
func (th *TransactionHandler) Committed() bool {
	return th.committed
}
