package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"reserve-swap/internal/storage"
)

// DefaultMaxAttempts bounds how often a conflicting unit of work is retried.
const DefaultMaxAttempts = 3

// UnitOfWork implements storage.UnitOfWork with serializable transactions.
type UnitOfWork struct {
	pool        *Pool
	maxAttempts int
}

// NewUnitOfWork creates a UnitOfWork on pool.
func NewUnitOfWork(pool *Pool) *UnitOfWork {
	return &UnitOfWork{pool: pool, maxAttempts: DefaultMaxAttempts}
}

// Compile-time interface check.
var _ storage.UnitOfWork = (*UnitOfWork)(nil)

// Atomic runs fn inside a serializable transaction. Serialization failures
// and deadlocks re-run fn from scratch; after maxAttempts the error wraps
// storage.ErrConflict.
func (u *UnitOfWork) Atomic(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	var lastErr error
	for attempt := 0; attempt < u.maxAttempts; attempt++ {
		err := u.attempt(ctx, fn)
		if err == nil || !isConflictError(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("%w: %w", storage.ErrConflict, lastErr)
}

func (u *UnitOfWork) attempt(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	tx, err := u.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &txStores{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if isConflictError(err) {
			return err
		}
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// txStores binds the stores to one transaction.
type txStores struct {
	tx pgx.Tx
}

func (t *txStores) Reserves() storage.ReserveStore {
	return &ReserveStore{q: t.tx}
}

func (t *txStores) Accounts() storage.TokenAccountStore {
	return &TokenAccountStore{q: t.tx, lock: true}
}

var _ storage.Tx = (*txStores)(nil)
