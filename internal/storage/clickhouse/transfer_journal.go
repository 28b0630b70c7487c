package clickhouse

import (
	"context"
	"fmt"
	"time"

	"reserve-swap/internal/domain"
	"reserve-swap/internal/observability"
	"reserve-swap/internal/storage"
)

// TransferJournal implements storage.TransferJournal using ClickHouse.
// MergeTree does not enforce keys; duplicates are rejected by lookup before insert.
type TransferJournal struct {
	conn *Conn
}

// NewTransferJournal creates a new TransferJournal.
func NewTransferJournal(conn *Conn) *TransferJournal {
	return &TransferJournal{conn: conn}
}

// Compile-time interface check.
var _ storage.TransferJournal = (*TransferJournal)(nil)

// AppendBulk records transfers. Fails entire batch on duplicate transfer ID.
func (j *TransferJournal) AppendBulk(ctx context.Context, transfers []*domain.Transfer) error {
	if len(transfers) == 0 {
		return nil
	}

	start := time.Now()
	err := j.appendBulk(ctx, transfers)
	observability.RecordDBQuery("clickhouse", "append_transfers", time.Since(start).Seconds(), err)
	return err
}

func (j *TransferJournal) appendBulk(ctx context.Context, transfers []*domain.Transfer) error {
	// Check for intra-batch duplicates
	ids := make([]string, 0, len(transfers))
	seen := make(map[string]struct{}, len(transfers))
	for _, t := range transfers {
		if t == nil || t.ID == "" || t.Leg < 0 || t.Leg > 255 {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[t.ID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[t.ID] = struct{}{}
		ids = append(ids, t.ID)
	}

	// Check for duplicates against existing rows
	var count uint64
	if err := j.conn.QueryRow(ctx, `SELECT count(*) FROM transfers WHERE id IN (?)`, ids).Scan(&count); err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if count > 0 {
		return storage.ErrDuplicateKey
	}

	batch, err := j.conn.PrepareBatch(ctx, `
		INSERT INTO transfers (
			id, operation_id, operation, leg, from_account, to_account, mint, amount, authority, executed_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, t := range transfers {
		err = batch.Append(
			t.ID, t.OperationID, t.Operation, uint8(t.Leg),
			t.From, t.To, t.Mint, t.Amount, t.Authority, t.ExecutedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByAccount retrieves transfers touching an account, ordered by executed_at, operation_id, leg.
func (j *TransferJournal) GetByAccount(ctx context.Context, address string) ([]*domain.Transfer, error) {
	query := `
		SELECT id, operation_id, operation, leg, from_account, to_account, mint, amount, authority, executed_at
		FROM transfers
		WHERE from_account = ? OR to_account = ?
		ORDER BY executed_at ASC, operation_id ASC, leg ASC
	`

	rows, err := j.conn.Query(ctx, query, address, address)
	if err != nil {
		return nil, fmt.Errorf("query by account: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

// GetByTimeRange retrieves transfers executed within [start, end] (inclusive).
func (j *TransferJournal) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Transfer, error) {
	query := `
		SELECT id, operation_id, operation, leg, from_account, to_account, mint, amount, authority, executed_at
		FROM transfers
		WHERE executed_at >= ? AND executed_at <= ?
		ORDER BY executed_at ASC, operation_id ASC, leg ASC
	`

	rows, err := j.conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

// scanTransfers scans multiple rows.
func scanTransfers(rows chRows) ([]*domain.Transfer, error) {
	var transfers []*domain.Transfer

	for rows.Next() {
		var t domain.Transfer
		var leg uint8

		err := rows.Scan(
			&t.ID, &t.OperationID, &t.Operation, &leg,
			&t.From, &t.To, &t.Mint, &t.Amount, &t.Authority, &t.ExecutedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transfer row: %w", err)
		}

		t.Leg = int(leg)
		transfers = append(transfers, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfer rows: %w", err)
	}

	return transfers, nil
}
