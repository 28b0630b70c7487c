package storage

import (
	"context"

	"reserve-swap/internal/domain"
)

// ReserveStore provides access to premium and normal reserve records.
// Records are written once at creation and never updated or deleted.
type ReserveStore interface {
	// InsertPremium persists a new premium reserve. Returns ErrDuplicateKey if the ID exists.
	InsertPremium(ctx context.Context, r *domain.PremiumReserve) error

	// GetPremium loads a premium reserve. Returns ErrNotFound if not exists,
	// ErrTypeMismatch if the address holds another record type.
	GetPremium(ctx context.Context, id string) (*domain.PremiumReserve, error)

	// InsertNormal persists a new normal reserve. Returns ErrDuplicateKey if the ID exists.
	InsertNormal(ctx context.Context, r *domain.NormalReserve) error

	// GetNormal loads a normal reserve. Returns ErrNotFound if not exists,
	// ErrTypeMismatch if the address holds another record type.
	GetNormal(ctx context.Context, id string) (*domain.NormalReserve, error)

	// ListNormal retrieves all children of a premium reserve, ordered by created_at ASC, id ASC.
	ListNormal(ctx context.Context, parentID string) ([]*domain.NormalReserve, error)
}

// TokenAccountStore provides access to token account balances.
type TokenAccountStore interface {
	// Insert opens a new account. Returns ErrDuplicateKey if the address exists.
	Insert(ctx context.Context, a *domain.TokenAccount) error

	// Get loads an account. Returns ErrNotFound if not exists.
	Get(ctx context.Context, address string) (*domain.TokenAccount, error)

	// SetAmount overwrites the balance of an account. Returns ErrNotFound if not exists.
	SetAmount(ctx context.Context, address string, amount uint64) error

	// ListByOwner retrieves all accounts of an owner, ordered by address ASC.
	ListByOwner(ctx context.Context, owner string) ([]*domain.TokenAccount, error)
}

// TransferJournal is an append-only log of executed transfers.
type TransferJournal interface {
	// AppendBulk records transfers. Fails entire batch on duplicate transfer ID.
	AppendBulk(ctx context.Context, transfers []*domain.Transfer) error

	// GetByAccount retrieves transfers touching an account, ordered by executed_at, operation_id, leg.
	GetByAccount(ctx context.Context, address string) ([]*domain.Transfer, error)

	// GetByTimeRange retrieves transfers executed within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Transfer, error)
}

// Tx exposes the stores bound to one unit of work.
type Tx interface {
	Reserves() ReserveStore
	Accounts() TokenAccountStore
}

// UnitOfWork runs operations all-or-nothing.
type UnitOfWork interface {
	// Atomic runs fn inside a unit of work. Writes made through tx become
	// visible only if fn returns nil; otherwise every write is discarded and
	// fn's error is returned unchanged. A backend may run fn again after a
	// serialization conflict, so fn must derive all its state from tx.
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
