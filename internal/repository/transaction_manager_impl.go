package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jnst/event-outbox/internal/db"
)

type txKey struct{}

// TransactionManagerImpl implements TransactionManager using PostgreSQL.
type TransactionManagerImpl struct {
	pool    *pgxpool.Pool
	queries *db.Queries
}

// NewTransactionManagerImpl creates a new TransactionManager implementation.
func NewTransactionManagerImpl(pool *pgxpool.Pool) *TransactionManagerImpl {
	return &TransactionManagerImpl{
		pool:    pool,
		queries: db.New(pool),
	}
}

// WithTransaction executes a function within a database transaction.
// Repositories called with the ctx passed to fn run on that transaction.
func (tm *TransactionManagerImpl) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if tm.InTransaction(ctx) {
		return fn(ctx)
	}

	tx, err := tm.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
			return fmt.Errorf("transaction failed: %w, rollback failed: %v", err, rollbackErr)
		}

		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			return fmt.Errorf("commit failed: %w, rollback failed: %v", err, rollbackErr)
		}

		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// InTransaction reports whether ctx carries a transaction opened by WithTransaction.
func (*TransactionManagerImpl) InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(pgx.Tx)
	return ok
}

// Querier returns queries bound to the transaction in ctx, or to the pool.
func (tm *TransactionManagerImpl) Querier(ctx context.Context) db.Querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tm.queries.WithTx(tx)
	}

	return tm.queries
}
