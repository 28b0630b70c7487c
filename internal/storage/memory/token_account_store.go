package memory

import (
	"context"
	"fmt"

	"reserve-swap/internal/domain"
	"reserve-swap/internal/layout"
	"reserve-swap/internal/storage"
)

// TokenAccountStore is an in-memory implementation of storage.TokenAccountStore.
type TokenAccountStore struct {
	data accountData
}

// NewTokenAccountStore creates a standalone in-memory token account store.
func NewTokenAccountStore() *TokenAccountStore {
	return &TokenAccountStore{data: (*lockedView)(NewStore())}
}

// Insert opens a new account. Returns ErrDuplicateKey if exists.
func (s *TokenAccountStore) Insert(_ context.Context, a *domain.TokenAccount) error {
	if a == nil || a.Address == "" {
		return storage.ErrInvalidInput
	}
	data, err := layout.EncodeTokenAccount(a)
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}
	if !s.data.insert(a.Address, data) {
		return storage.ErrDuplicateKey
	}
	return nil
}

// Get loads an account. Returns ErrNotFound if not exists.
func (s *TokenAccountStore) Get(_ context.Context, address string) (*domain.TokenAccount, error) {
	data, ok := s.data.load(address)
	if !ok {
		return nil, storage.ErrNotFound
	}
	a, err := layout.DecodeTokenAccount(address, data)
	if err != nil {
		return nil, decodeError(err)
	}
	return a, nil
}

// SetAmount overwrites the balance of an account. Returns ErrNotFound if not exists.
func (s *TokenAccountStore) SetAmount(ctx context.Context, address string, amount uint64) error {
	a, err := s.Get(ctx, address)
	if err != nil {
		return err
	}
	a.Amount = amount
	data, err := layout.EncodeTokenAccount(a)
	if err != nil {
		return fmt.Errorf("encode token account: %w", err)
	}
	s.data.store(address, data)
	return nil
}

// ListByOwner retrieves all accounts of an owner, ordered by address ASC.
func (s *TokenAccountStore) ListByOwner(_ context.Context, owner string) ([]*domain.TokenAccount, error) {
	var result []*domain.TokenAccount
	s.data.each(func(address string, data []byte) {
		if len(data) != layout.TokenAccountLen {
			return
		}
		a, err := layout.DecodeTokenAccount(address, data)
		if err != nil || a.Owner != owner {
			return
		}
		result = append(result, a)
	})
	return result, nil
}

var _ storage.TokenAccountStore = (*TokenAccountStore)(nil)
