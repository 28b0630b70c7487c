package reserve

import (
	"context"
	"fmt"

	"reserve-swap/internal/domain"
	"reserve-swap/internal/observability"
	"reserve-swap/internal/pda"
	"reserve-swap/internal/storage"
	"reserve-swap/internal/token"
)

// CreatePremiumRequest opens a new premium reserve.
type CreatePremiumRequest struct {
	Owner    string // verified signer; becomes the reserve's owner
	Mint     string // premium token type
	Vault    string // optional; must match the derived vault when set
	GoLiveAt int64  // requested activation, clamped to now
	Capacity uint32 // declared number of normal reserves; not enforced
	Label    string // seed string, at most 32 bytes
}

// CreatePremium creates a premium reserve and its empty vault.
func (s *Service) CreatePremium(ctx context.Context, req CreatePremiumRequest) (*domain.PremiumReserve, error) {
	op := s.begin(domain.OpCreatePremium)
	r, err := s.createPremium(ctx, op, req)
	s.finish(ctx, op, err)
	if err != nil {
		return nil, err
	}

	observability.RecordReserveCreated("premium")
	s.logger.WithField("reserve", r.ID).WithField("go_live_at", r.GoLiveAt).Info("premium reserve created")
	return r, nil
}

func (s *Service) createPremium(ctx context.Context, op *operation, req CreatePremiumRequest) (*domain.PremiumReserve, error) {
	if err := pda.ValidateSigner(req.Owner); err != nil {
		return nil, rejectf(ErrInvalidRequest, "owner: %v", err)
	}
	id, bump, err := s.deriver.PremiumReserve(req.Mint, req.Label)
	if err != nil {
		return nil, rejectf(ErrInvalidRequest, "%v", err)
	}
	vault, vaultBump, err := s.deriver.PremiumVault(id)
	if err != nil {
		return nil, fmt.Errorf("derive premium vault: %w", err)
	}
	if req.Vault != "" && req.Vault != vault {
		return nil, rejectf(ErrAccountMismatch, msgInvalidPremiumVault)
	}

	r := &domain.PremiumReserve{
		ID:           id,
		PremiumMint:  req.Mint,
		PremiumVault: vault,
		GoLiveAt:     domain.ClampGoLive(req.GoLiveAt, op.now),
		CreatedAt:    op.now,
		Capacity:     req.Capacity,
		Owner:        req.Owner,
		Label:        req.Label,
		Bump:         bump,
		VaultBump:    vaultBump,
	}

	err = s.uow.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Reserves().InsertPremium(ctx, r); err != nil {
			return fmt.Errorf("insert premium reserve %s: %w", id, err)
		}
		_, err := s.ledger.OpenVault(ctx, tx.Accounts(), vault, req.Mint, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// CreateNormalRequest opens a normal reserve under an existing premium reserve.
type CreateNormalRequest struct {
	Payer         string // verified signer; must own the parent
	Vault         string // optional; must match the derived vault when set
	Mint          string // normal token type, distinct from the parent's
	PremiumID     string // parent reserve
	GoLiveAt      int64  // requested activation, clamped to now
	InitializedAt int64  // recorded creation time; now when zero
}

// CreateNormal creates a normal reserve linked to its parent and an empty vault.
func (s *Service) CreateNormal(ctx context.Context, req CreateNormalRequest) (*domain.NormalReserve, error) {
	op := s.begin(domain.OpCreateNormal)
	r, err := s.createNormal(ctx, op, req)
	s.finish(ctx, op, err)
	if err != nil {
		return nil, err
	}

	observability.RecordReserveCreated("normal")
	s.logger.WithField("reserve", r.ID).WithField("parent", r.ParentID).Info("normal reserve created")
	return r, nil
}

func (s *Service) createNormal(ctx context.Context, op *operation, req CreateNormalRequest) (*domain.NormalReserve, error) {
	if _, err := pda.ParseKey(req.Mint); err != nil {
		return nil, rejectf(ErrInvalidRequest, "normal mint: %v", err)
	}

	var created *domain.NormalReserve
	err := s.uow.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		parent, err := loadPremium(ctx, tx, req.PremiumID)
		if err != nil {
			return err
		}
		if req.Mint == parent.PremiumMint {
			return rejectf(ErrMintCollision, msgMintCollision)
		}
		if req.Payer != parent.Owner {
			return rejectf(ErrAuthorityMismatch, msgAuthoritiesMismatch)
		}

		id, bump, err := s.deriver.NormalReserve(parent.ID, req.Mint)
		if err != nil {
			return fmt.Errorf("derive normal reserve: %w", err)
		}
		vault, vaultBump, err := s.deriver.NormalVault(id)
		if err != nil {
			return fmt.Errorf("derive normal vault: %w", err)
		}
		if req.Vault != "" && req.Vault != vault {
			return rejectf(ErrAccountMismatch, msgInvalidNormalVault)
		}

		createdAt := req.InitializedAt
		if createdAt == 0 {
			createdAt = op.now
		}

		r := &domain.NormalReserve{
			ID:          id,
			ParentID:    parent.ID,
			NormalMint:  req.Mint,
			NormalVault: vault,
			GoLiveAt:    domain.ClampGoLive(req.GoLiveAt, op.now),
			CreatedAt:   createdAt,
			Bump:        bump,
			VaultBump:   vaultBump,
		}
		if err := tx.Reserves().InsertNormal(ctx, r); err != nil {
			return fmt.Errorf("insert normal reserve %s: %w", id, err)
		}
		if _, err := s.ledger.OpenVault(ctx, tx.Accounts(), vault, req.Mint, id); err != nil {
			return err
		}
		created = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// WithdrawPremiumRequest moves tokens out of a premium vault.
type WithdrawPremiumRequest struct {
	Authority   string
	PremiumID   string
	Vault       string
	Destination string
	Amount      uint64
}

// WithdrawPremium transfers amount from the premium vault to destination.
// Only the reserve owner may withdraw. Balance is checked by the ledger.
func (s *Service) WithdrawPremium(ctx context.Context, req WithdrawPremiumRequest) (*Receipt, error) {
	op := s.begin(domain.OpWithdrawPremium)
	err := s.withdrawPremium(ctx, op, req)
	return s.finish(ctx, op, err), err
}

func (s *Service) withdrawPremium(ctx context.Context, op *operation, req WithdrawPremiumRequest) error {
	if req.Amount == 0 {
		return rejectf(ErrInvalidRequest, "amount must be positive")
	}

	return s.uow.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		op.restart()
		premium, err := loadPremium(ctx, tx, req.PremiumID)
		if err != nil {
			return err
		}
		if req.Authority != premium.Owner {
			return rejectf(ErrAuthorityMismatch, msgInvalidAuthority)
		}
		if req.Vault != premium.PremiumVault {
			return rejectf(ErrAccountMismatch, msgInvalidPremiumVault)
		}
		return s.transfer(ctx, tx, op, premium.PremiumVault, req.Destination, token.Custody(premium), req.Amount)
	})
}

// WithdrawNormalRequest moves tokens out of a normal vault.
type WithdrawNormalRequest struct {
	Authority   string
	PremiumID   string
	NormalID    string
	Vault       string
	Destination string
	Amount      uint64
}

// WithdrawNormal transfers amount from the normal vault to destination.
// Only the owner of the parent premium reserve may withdraw.
func (s *Service) WithdrawNormal(ctx context.Context, req WithdrawNormalRequest) (*Receipt, error) {
	op := s.begin(domain.OpWithdrawNormal)
	err := s.withdrawNormal(ctx, op, req)
	return s.finish(ctx, op, err), err
}

func (s *Service) withdrawNormal(ctx context.Context, op *operation, req WithdrawNormalRequest) error {
	if req.Amount == 0 {
		return rejectf(ErrInvalidRequest, "amount must be positive")
	}

	return s.uow.Atomic(ctx, func(ctx context.Context, tx storage.Tx) error {
		op.restart()
		premium, err := loadPremium(ctx, tx, req.PremiumID)
		if err != nil {
			return err
		}
		normal, err := loadNormal(ctx, tx, req.NormalID)
		if err != nil {
			return err
		}
		if req.Authority != premium.Owner {
			return rejectf(ErrAuthorityMismatch, msgInvalidAuthority)
		}
		if normal.ParentID != premium.ID {
			return rejectf(ErrRelationshipMismatch, msgNotRelated)
		}
		if req.Vault != normal.NormalVault {
			return rejectf(ErrAccountMismatch, msgInvalidNormalVault)
		}
		return s.transfer(ctx, tx, op, normal.NormalVault, req.Destination, token.Custody(normal), req.Amount)
	})
}
