package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"reserve-swap/internal/domain"
	"reserve-swap/internal/storage"
)

// Address kinds recorded in the addresses registry.
const (
	kindPremiumReserve = "premium_reserve"
	kindNormalReserve  = "normal_reserve"
	kindTokenAccount   = "token_account"
)

// ReserveStore implements storage.ReserveStore using PostgreSQL.
type ReserveStore struct {
	q querier
}

// NewReserveStore creates a new ReserveStore that runs outside any unit of work.
func NewReserveStore(pool *Pool) *ReserveStore {
	return &ReserveStore{q: pool.Pool}
}

// Compile-time interface check.
var _ storage.ReserveStore = (*ReserveStore)(nil)

// InsertPremium persists a new premium reserve. Returns ErrDuplicateKey if the address is taken.
func (s *ReserveStore) InsertPremium(ctx context.Context, r *domain.PremiumReserve) error {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}

	start := time.Now()
	err := withSavepoint(ctx, s.q, func(q querier) error {
		if err := claimAddress(ctx, q, r.ID, kindPremiumReserve); err != nil {
			return err
		}
		_, err := q.Exec(ctx, `
			INSERT INTO premium_reserves (
				id, premium_mint, premium_vault, go_live_at, created_at, capacity, owner, label, bump, vault_bump
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
			r.ID,
			r.PremiumMint,
			r.PremiumVault,
			r.GoLiveAt,
			r.CreatedAt,
			int64(r.Capacity),
			r.Owner,
			r.Label,
			int16(r.Bump),
			int16(r.VaultBump),
		)
		return err
	})
	observe("insert_premium_reserve", start, err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert premium reserve: %w", err)
	}
	return nil
}

// GetPremium loads a premium reserve. Returns ErrNotFound if not exists,
// ErrTypeMismatch if the address holds another record type.
func (s *ReserveStore) GetPremium(ctx context.Context, id string) (*domain.PremiumReserve, error) {
	start := time.Now()
	row := s.q.QueryRow(ctx, `
		SELECT id, premium_mint, premium_vault, go_live_at, created_at, capacity, owner, label, bump, vault_bump
		FROM premium_reserves
		WHERE id = $1
	`, id)

	var (
		r               domain.PremiumReserve
		capacity        int64
		bump, vaultBump int16
	)
	err := row.Scan(
		&r.ID,
		&r.PremiumMint,
		&r.PremiumVault,
		&r.GoLiveAt,
		&r.CreatedAt,
		&capacity,
		&r.Owner,
		&r.Label,
		&bump,
		&vaultBump,
	)
	observe("get_premium_reserve", start, err)
	if err != nil {
		if isNotFoundError(err) {
			return nil, missingRecord(ctx, s.q, id)
		}
		return nil, fmt.Errorf("get premium reserve: %w", err)
	}

	r.Capacity = uint32(capacity)
	r.Bump = uint8(bump)
	r.VaultBump = uint8(vaultBump)
	return &r, nil
}

// InsertNormal persists a new normal reserve. Returns ErrDuplicateKey if the address is taken.
func (s *ReserveStore) InsertNormal(ctx context.Context, r *domain.NormalReserve) error {
	if r == nil || r.ID == "" || r.ParentID == "" {
		return storage.ErrInvalidInput
	}

	start := time.Now()
	err := withSavepoint(ctx, s.q, func(q querier) error {
		if err := claimAddress(ctx, q, r.ID, kindNormalReserve); err != nil {
			return err
		}
		_, err := q.Exec(ctx, `
			INSERT INTO normal_reserves (
				id, parent_id, normal_mint, normal_vault, go_live_at, created_at, bump, vault_bump
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			r.ID,
			r.ParentID,
			r.NormalMint,
			r.NormalVault,
			r.GoLiveAt,
			r.CreatedAt,
			int16(r.Bump),
			int16(r.VaultBump),
		)
		return err
	})
	observe("insert_normal_reserve", start, err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert normal reserve: %w", err)
	}
	return nil
}

// GetNormal loads a normal reserve. Returns ErrNotFound if not exists,
// ErrTypeMismatch if the address holds another record type.
func (s *ReserveStore) GetNormal(ctx context.Context, id string) (*domain.NormalReserve, error) {
	start := time.Now()
	row := s.q.QueryRow(ctx, `
		SELECT id, parent_id, normal_mint, normal_vault, go_live_at, created_at, bump, vault_bump
		FROM normal_reserves
		WHERE id = $1
	`, id)

	r, err := scanNormal(row)
	observe("get_normal_reserve", start, err)
	if err != nil {
		if isNotFoundError(err) {
			return nil, missingRecord(ctx, s.q, id)
		}
		return nil, fmt.Errorf("get normal reserve: %w", err)
	}
	return r, nil
}

// ListNormal retrieves all children of a premium reserve, ordered by created_at ASC, id ASC.
func (s *ReserveStore) ListNormal(ctx context.Context, parentID string) ([]*domain.NormalReserve, error) {
	start := time.Now()
	rows, err := s.q.Query(ctx, `
		SELECT id, parent_id, normal_mint, normal_vault, go_live_at, created_at, bump, vault_bump
		FROM normal_reserves
		WHERE parent_id = $1
		ORDER BY created_at ASC, id ASC
	`, parentID)
	observe("list_normal_reserves", start, err)
	if err != nil {
		return nil, fmt.Errorf("list normal reserves: %w", err)
	}
	defer rows.Close()

	var result []*domain.NormalReserve
	for rows.Next() {
		r, err := scanNormal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan normal reserve: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate normal reserves: %w", err)
	}
	return result, nil
}

func scanNormal(row pgx.Row) (*domain.NormalReserve, error) {
	var (
		r               domain.NormalReserve
		bump, vaultBump int16
	)
	err := row.Scan(
		&r.ID,
		&r.ParentID,
		&r.NormalMint,
		&r.NormalVault,
		&r.GoLiveAt,
		&r.CreatedAt,
		&bump,
		&vaultBump,
	)
	if err != nil {
		return nil, err
	}
	r.Bump = uint8(bump)
	r.VaultBump = uint8(vaultBump)
	return &r, nil
}

// claimAddress registers address for a record kind. Fails with a unique
// violation when the address is already in use by any record.
func claimAddress(ctx context.Context, q querier, address, kind string) error {
	_, err := q.Exec(ctx, `INSERT INTO addresses (address, kind) VALUES ($1, $2)`, address, kind)
	return err
}

// missingRecord distinguishes an unused address from one holding another kind.
func missingRecord(ctx context.Context, q querier, address string) error {
	var kind string
	err := q.QueryRow(ctx, `SELECT kind FROM addresses WHERE address = $1`, address).Scan(&kind)
	if err != nil {
		if isNotFoundError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("lookup address kind: %w", err)
	}
	return fmt.Errorf("%w: %s holds a %s", storage.ErrTypeMismatch, address, kind)
}

// withSavepoint runs fn so that a failed multi-statement insert leaves no
// partial rows. Inside a unit of work Begin opens a savepoint, which keeps
// the outer transaction usable after the error.
func withSavepoint(ctx context.Context, q querier, fn func(q querier) error) error {
	tx, err := q.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
