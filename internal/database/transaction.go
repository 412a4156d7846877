package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Transaction wraps a GORM transaction. Commit and Rollback are idempotent;
// whichever runs first settles the transaction and the other becomes a no-op.
type Transaction struct {
	tx      *gorm.DB
	settled bool
}

// NewTransaction begins a transaction on the database.
func NewTransaction(ctx context.Context, db Database) (Transaction, error) {
	tx := db.Session(ctx).Begin()
	if tx.Error != nil {
		return Transaction{}, fmt.Errorf("begin transaction: %w", tx.Error)
	}
	return Transaction{tx: tx}, nil
}

// Session returns the transactional session for executing queries.
func (t Transaction) Session() *gorm.DB {
	return t.tx
}

// Commit commits the transaction.
func (t *Transaction) Commit() error {
	if t.settled {
		return nil
	}
	t.settled = true
	if err := t.tx.Commit().Error; err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Rollback rolls the transaction back.
func (t *Transaction) Rollback() error {
	if t.settled {
		return nil
	}
	t.settled = true
	if err := t.tx.Rollback().Error; err != nil {
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}

// WithTransaction runs fn in a transaction, committing when fn returns nil
// and rolling back otherwise. The vector stores use this to keep a batch of
// chunk writes atomic.
func WithTransaction(ctx context.Context, db Database, fn func(tx *gorm.DB) error) error {
	txn, err := NewTransaction(ctx, db)
	if err != nil {
		return err
	}
	defer func() { _ = txn.Rollback() }()

	if err := fn(txn.Session()); err != nil {
		return err
	}
	return txn.Commit()
}
