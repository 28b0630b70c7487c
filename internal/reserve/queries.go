package reserve

import (
	"context"
	"errors"
	"fmt"

	"reserve-swap/internal/domain"
	"reserve-swap/internal/storage"
)

// GetPremium loads a premium reserve.
func (s *Service) GetPremium(ctx context.Context, id string) (*domain.PremiumReserve, error) {
	var r *domain.PremiumReserve
	err := s.uow.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		r, err = loadPremium(ctx, tx, id)
		return err
	})
	return r, err
}

// GetNormal loads a normal reserve.
func (s *Service) GetNormal(ctx context.Context, id string) (*domain.NormalReserve, error) {
	var r *domain.NormalReserve
	err := s.uow.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		r, err = loadNormal(ctx, tx, id)
		return err
	})
	return r, err
}

// ListNormal returns the normal reserves created under a premium reserve.
func (s *Service) ListNormal(ctx context.Context, premiumID string) ([]*domain.NormalReserve, error) {
	var out []*domain.NormalReserve
	err := s.uow.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := loadPremium(ctx, tx, premiumID); err != nil {
			return err
		}
		var err error
		out, err = tx.Reserves().ListNormal(ctx, premiumID)
		return err
	})
	return out, err
}

// OpenAccount creates the default token account of owner for mint.
func (s *Service) OpenAccount(ctx context.Context, owner, mint string) (*domain.TokenAccount, error) {
	var a *domain.TokenAccount
	err := s.uow.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		a, err = s.ledger.OpenAccount(ctx, tx.Accounts(), owner, mint)
		return err
	})
	if err != nil {
		if errors.Is(err, storage.ErrInvalidInput) {
			return nil, rejectf(ErrInvalidRequest, "%v", err)
		}
		return nil, err
	}
	return a, nil
}

// Account loads a token account.
func (s *Service) Account(ctx context.Context, address string) (*domain.TokenAccount, error) {
	var a *domain.TokenAccount
	err := s.uow.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		a, err = tx.Accounts().Get(ctx, address)
		return err
	})
	return a, err
}

// AccountsOf lists the token accounts owned by owner.
func (s *Service) AccountsOf(ctx context.Context, owner string) ([]*domain.TokenAccount, error) {
	var out []*domain.TokenAccount
	err := s.uow.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		out, err = tx.Accounts().ListByOwner(ctx, owner)
		return err
	})
	return out, err
}

// Fund credits amount to an existing account without a source. It backs the
// development faucet and test setup; nothing in the swap path calls it.
func (s *Service) Fund(ctx context.Context, address string, amount uint64) (*domain.TokenAccount, error) {
	if amount == 0 {
		return nil, rejectf(ErrInvalidRequest, "amount must be positive")
	}

	op := s.begin(domain.OpMintTo)
	var a *domain.TokenAccount
	err := s.uow.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		a, err = s.ledger.MintTo(ctx, tx.Accounts(), address, amount)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrTransferFailure, err)
		}
		return nil
	})
	s.finish(ctx, op, err)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// History returns the journaled transfers touching an account.
func (s *Service) History(ctx context.Context, address string) ([]*domain.Transfer, error) {
	if s.journal == nil {
		return nil, nil
	}
	return s.journal.GetByAccount(ctx, address)
}
