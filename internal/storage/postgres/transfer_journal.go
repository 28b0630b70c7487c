package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"reserve-swap/internal/domain"
	"reserve-swap/internal/storage"
)

// TransferJournal implements storage.TransferJournal using PostgreSQL.
type TransferJournal struct {
	pool *Pool
}

// NewTransferJournal creates a new TransferJournal.
func NewTransferJournal(pool *Pool) *TransferJournal {
	return &TransferJournal{pool: pool}
}

// Compile-time interface check.
var _ storage.TransferJournal = (*TransferJournal)(nil)

// AppendBulk records transfers atomically. Fails entire batch on any duplicate.
func (j *TransferJournal) AppendBulk(ctx context.Context, transfers []*domain.Transfer) error {
	if len(transfers) == 0 {
		return nil
	}

	start := time.Now()
	err := j.appendBulk(ctx, transfers)
	observe("append_transfers", start, err)
	return err
}

func (j *TransferJournal) appendBulk(ctx context.Context, transfers []*domain.Transfer) error {
	tx, err := j.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO transfers (
			id, operation_id, operation, leg, from_account, to_account, mint, amount, authority, executed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8::text::numeric, $9, $10)
	`

	for _, t := range transfers {
		if t == nil || t.ID == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			t.ID,
			t.OperationID,
			t.Operation,
			t.Leg,
			t.From,
			t.To,
			t.Mint,
			formatAmount(t.Amount),
			t.Authority,
			t.ExecutedAt,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert transfer in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByAccount retrieves transfers touching an account, ordered by executed_at, operation_id, leg.
func (j *TransferJournal) GetByAccount(ctx context.Context, address string) ([]*domain.Transfer, error) {
	query := `
		SELECT id, operation_id, operation, leg, from_account, to_account, mint, amount::text, authority, executed_at
		FROM transfers
		WHERE from_account = $1 OR to_account = $1
		ORDER BY executed_at ASC, operation_id ASC, leg ASC
	`

	rows, err := j.pool.Query(ctx, query, address)
	if err != nil {
		return nil, fmt.Errorf("get transfers by account: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

// GetByTimeRange retrieves transfers executed within [start, end] (inclusive).
func (j *TransferJournal) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Transfer, error) {
	query := `
		SELECT id, operation_id, operation, leg, from_account, to_account, mint, amount::text, authority, executed_at
		FROM transfers
		WHERE executed_at >= $1 AND executed_at <= $2
		ORDER BY executed_at ASC, operation_id ASC, leg ASC
	`

	rows, err := j.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get transfers by time range: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

// scanTransfers scans multiple rows into a slice of Transfer.
func scanTransfers(rows pgx.Rows) ([]*domain.Transfer, error) {
	var transfers []*domain.Transfer

	for rows.Next() {
		var (
			t      domain.Transfer
			amount string
		)
		err := rows.Scan(
			&t.ID,
			&t.OperationID,
			&t.Operation,
			&t.Leg,
			&t.From,
			&t.To,
			&t.Mint,
			&amount,
			&t.Authority,
			&t.ExecutedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		if t.Amount, err = parseAmount(amount); err != nil {
			return nil, err
		}
		transfers = append(transfers, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfers: %w", err)
	}

	return transfers, nil
}
