// Package token executes debit/credit transfers between token accounts.
package token

import (
	"context"
	"errors"
	"fmt"
	"math"

	"reserve-swap/internal/domain"
	"reserve-swap/internal/pda"
	"reserve-swap/internal/storage"
)

// Transfer errors. Every rejected transfer matches ErrTransfer plus one
// specific kind.
var (
	ErrTransfer          = errors.New("transfer rejected")
	ErrAccountNotFound   = errors.New("token account not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOwnerMismatch     = errors.New("owner does not match")
	ErrMintMismatch      = errors.New("account not associated with this mint")
	ErrAccountFrozen     = errors.New("account is frozen")
	ErrOverflow          = errors.New("operation overflowed")
	ErrSelfTransfer      = errors.New("source and destination are the same account")
	ErrInvalidSigner     = errors.New("signer is not an ed25519 public key")
)

// Ledger moves balances between token accounts stored in a TokenAccountStore.
// It holds no state; pass the store of the current unit of work.
type Ledger struct {
	deriver *pda.Deriver
}

// NewLedger creates a ledger that derives user account addresses with d.
func NewLedger(d *pda.Deriver) *Ledger {
	return &Ledger{deriver: d}
}

// Transfer moves amount from one account to another, authorized by auth.
// The returned record has no ID or operation fields set.
func (l *Ledger) Transfer(
	ctx context.Context,
	accounts storage.TokenAccountStore,
	from, to string,
	auth Authority,
	amount uint64,
) (*domain.Transfer, error) {
	if from == to {
		return nil, reject(ErrSelfTransfer, "%s", from)
	}
	// Only Custody may speak for a derived address.
	if auth != nil && !auth.Custodial() {
		if err := pda.ValidateSigner(auth.Key()); err != nil {
			return nil, reject(ErrInvalidSigner, "%v", err)
		}
	}

	src, err := l.load(ctx, accounts, from)
	if err != nil {
		return nil, err
	}
	dst, err := l.load(ctx, accounts, to)
	if err != nil {
		return nil, err
	}

	if src.Mint != dst.Mint {
		return nil, reject(ErrMintMismatch, "%s holds %s, %s holds %s", from, src.Mint, to, dst.Mint)
	}
	if src.Frozen {
		return nil, reject(ErrAccountFrozen, "%s", from)
	}
	if dst.Frozen {
		return nil, reject(ErrAccountFrozen, "%s", to)
	}
	if auth == nil || auth.Key() != src.Owner {
		return nil, reject(ErrOwnerMismatch, "%s is not the owner of %s", keyOf(auth), from)
	}
	if src.Amount < amount {
		return nil, reject(ErrInsufficientFunds, "%s has %d, need %d", from, src.Amount, amount)
	}

	record := &domain.Transfer{
		From:      from,
		To:        to,
		Mint:      src.Mint,
		Amount:    amount,
		Authority: auth.Key(),
	}

	if dst.Amount > math.MaxUint64-amount {
		return nil, reject(ErrOverflow, "credit %d to %s", amount, to)
	}

	if err := accounts.SetAmount(ctx, from, src.Amount-amount); err != nil {
		return nil, fmt.Errorf("debit %s: %w", from, err)
	}
	if err := accounts.SetAmount(ctx, to, dst.Amount+amount); err != nil {
		return nil, fmt.Errorf("credit %s: %w", to, err)
	}

	return record, nil
}

// Balance returns the amount held by an account.
func (l *Ledger) Balance(ctx context.Context, accounts storage.TokenAccountStore, address string) (uint64, error) {
	a, err := l.load(ctx, accounts, address)
	if err != nil {
		return 0, err
	}
	return a.Amount, nil
}

// OpenVault creates an empty account at address owned by the custodian key.
func (l *Ledger) OpenVault(ctx context.Context, accounts storage.TokenAccountStore, address, mint, custodian string) (*domain.TokenAccount, error) {
	a := &domain.TokenAccount{
		Address: address,
		Mint:    mint,
		Owner:   custodian,
	}
	if err := accounts.Insert(ctx, a); err != nil {
		return nil, fmt.Errorf("open vault %s: %w", address, err)
	}
	return a, nil
}

// OpenAccount creates the default account of owner for mint.
func (l *Ledger) OpenAccount(ctx context.Context, accounts storage.TokenAccountStore, owner, mint string) (*domain.TokenAccount, error) {
	if err := pda.ValidateSigner(owner); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}
	address, _, err := l.deriver.TokenAccount(owner, mint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}
	a := &domain.TokenAccount{
		Address: address,
		Mint:    mint,
		Owner:   owner,
	}
	if err := accounts.Insert(ctx, a); err != nil {
		return nil, fmt.Errorf("open account %s: %w", address, err)
	}
	return a, nil
}

// MintTo credits amount to an account out of thin air. Development faucet only.
func (l *Ledger) MintTo(ctx context.Context, accounts storage.TokenAccountStore, address string, amount uint64) (*domain.TokenAccount, error) {
	a, err := l.load(ctx, accounts, address)
	if err != nil {
		return nil, err
	}
	if a.Frozen {
		return nil, reject(ErrAccountFrozen, "%s", address)
	}
	if a.Amount > math.MaxUint64-amount {
		return nil, reject(ErrOverflow, "mint %d to %s", amount, address)
	}
	a.Amount += amount
	if err := accounts.SetAmount(ctx, address, a.Amount); err != nil {
		return nil, fmt.Errorf("mint to %s: %w", address, err)
	}
	return a, nil
}

func (l *Ledger) load(ctx context.Context, accounts storage.TokenAccountStore, address string) (*domain.TokenAccount, error) {
	a, err := accounts.Get(ctx, address)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrTypeMismatch) {
			return nil, reject(ErrAccountNotFound, "%s", address)
		}
		return nil, fmt.Errorf("load token account %s: %w", address, err)
	}
	return a, nil
}

func reject(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %w: %s", ErrTransfer, kind, fmt.Sprintf(format, args...))
}

func keyOf(auth Authority) string {
	if auth == nil {
		return "<none>"
	}
	return auth.Key()
}
