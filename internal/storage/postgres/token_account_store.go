package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"reserve-swap/internal/domain"
	"reserve-swap/internal/storage"
)

// TokenAccountStore implements storage.TokenAccountStore using PostgreSQL.
type TokenAccountStore struct {
	q querier
	// lock makes Get take a row lock; set inside a unit of work so a
	// read-then-write on a balance cannot interleave with another one.
	lock bool
}

// NewTokenAccountStore creates a new TokenAccountStore that runs outside any unit of work.
func NewTokenAccountStore(pool *Pool) *TokenAccountStore {
	return &TokenAccountStore{q: pool.Pool}
}

// Compile-time interface check.
var _ storage.TokenAccountStore = (*TokenAccountStore)(nil)

// Insert opens a new account. Returns ErrDuplicateKey if the address is taken.
func (s *TokenAccountStore) Insert(ctx context.Context, a *domain.TokenAccount) error {
	if a == nil || a.Address == "" {
		return storage.ErrInvalidInput
	}

	start := time.Now()
	err := withSavepoint(ctx, s.q, func(q querier) error {
		if err := claimAddress(ctx, q, a.Address, kindTokenAccount); err != nil {
			return err
		}
		_, err := q.Exec(ctx, `
			INSERT INTO token_accounts (address, mint, owner, amount, frozen)
			VALUES ($1, $2, $3, $4::text::numeric, $5)
		`,
			a.Address,
			a.Mint,
			a.Owner,
			formatAmount(a.Amount),
			a.Frozen,
		)
		return err
	})
	observe("insert_token_account", start, err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token account: %w", err)
	}
	return nil
}

// Get loads an account. Returns ErrNotFound if not exists,
// ErrTypeMismatch if the address holds a reserve.
func (s *TokenAccountStore) Get(ctx context.Context, address string) (*domain.TokenAccount, error) {
	query := `
		SELECT address, mint, owner, amount::text, frozen
		FROM token_accounts
		WHERE address = $1
	`
	if s.lock {
		query += " FOR UPDATE"
	}

	start := time.Now()
	a, err := scanTokenAccount(s.q.QueryRow(ctx, query, address))
	observe("get_token_account", start, err)
	if err != nil {
		if isNotFoundError(err) {
			return nil, missingRecord(ctx, s.q, address)
		}
		return nil, fmt.Errorf("get token account: %w", err)
	}
	return a, nil
}

// SetAmount overwrites the balance of an account. Returns ErrNotFound if not exists.
func (s *TokenAccountStore) SetAmount(ctx context.Context, address string, amount uint64) error {
	start := time.Now()
	tag, err := s.q.Exec(ctx, `
		UPDATE token_accounts SET amount = $2::text::numeric WHERE address = $1
	`, address, formatAmount(amount))
	observe("set_token_amount", start, err)
	if err != nil {
		return fmt.Errorf("set token amount: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListByOwner retrieves all accounts of an owner, ordered by address ASC.
func (s *TokenAccountStore) ListByOwner(ctx context.Context, owner string) ([]*domain.TokenAccount, error) {
	start := time.Now()
	rows, err := s.q.Query(ctx, `
		SELECT address, mint, owner, amount::text, frozen
		FROM token_accounts
		WHERE owner = $1
		ORDER BY address ASC
	`, owner)
	observe("list_token_accounts", start, err)
	if err != nil {
		return nil, fmt.Errorf("list token accounts: %w", err)
	}
	defer rows.Close()

	var result []*domain.TokenAccount
	for rows.Next() {
		a, err := scanTokenAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token account: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token accounts: %w", err)
	}
	return result, nil
}

func scanTokenAccount(row pgx.Row) (*domain.TokenAccount, error) {
	var (
		a      domain.TokenAccount
		amount string
	)
	if err := row.Scan(&a.Address, &a.Mint, &a.Owner, &amount, &a.Frozen); err != nil {
		return nil, err
	}
	v, err := parseAmount(amount)
	if err != nil {
		return nil, err
	}
	a.Amount = v
	return &a, nil
}
