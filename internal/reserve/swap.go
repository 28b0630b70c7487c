package reserve

import (
	"context"

	"reserve-swap/internal/domain"
	"reserve-swap/internal/observability"
	"reserve-swap/internal/pda"
	"reserve-swap/internal/storage"
	"reserve-swap/internal/token"
)

// Direction selects which side of a pair the caller pays in.
type Direction int

// Swap directions.
const (
	PremiumForNormal Direction = iota // caller pays premium tokens, receives normal tokens
	NormalForPremium                  // caller pays normal tokens, receives premium tokens
)

func (d Direction) String() string {
	switch d {
	case PremiumForNormal:
		return "premium_for_normal"
	case NormalForPremium:
		return "normal_for_premium"
	default:
		return "unknown"
	}
}

func (d Direction) operation() string {
	if d == NormalForPremium {
		return domain.OpSwapNormalForPremium
	}
	return domain.OpSwapPremiumForNormal
}

// SwapRequest exchanges Amount base units 1:1 across a reserve pair.
type SwapRequest struct {
	Signer       string // verified signer; owner of Source
	PremiumID    string
	NormalID     string
	PremiumVault string // must equal the premium reserve's vault
	NormalVault  string // must equal the normal reserve's vault
	Source       string // caller account debited by the inbound leg
	Destination  string // caller account credited by the outbound leg
	Amount       uint64
}

// SwapPremiumForNormal moves premium tokens into the premium vault and pays
// the same amount of normal tokens out of the normal vault.
func (s *Service) SwapPremiumForNormal(ctx context.Context, req SwapRequest) (*Receipt, error) {
	return s.Swap(ctx, PremiumForNormal, req)
}

// SwapNormalForPremium moves normal tokens into the normal vault and pays
// the same amount of premium tokens out of the premium vault.
func (s *Service) SwapNormalForPremium(ctx context.Context, req SwapRequest) (*Receipt, error) {
	return s.Swap(ctx, NormalForPremium, req)
}

// Swap validates the pair and executes both legs as one unit of work.
func (s *Service) Swap(ctx context.Context, dir Direction, req SwapRequest) (*Receipt, error) {
	op := s.begin(dir.operation())
	err := s.swap(ctx, op, dir, req)
	if err == nil {
		observability.RecordSwap(dir.String(), req.Amount, op.now)
	}
	return s.finish(ctx, op, err), err
}

func (s *Service) swap(ctx context.Context, op *operation, dir Direction, req SwapRequest) error {
	if dir != PremiumForNormal && dir != NormalForPremium {
		return rejectf(ErrInvalidRequest, "unknown swap direction %d", int(dir))
	}
	if req.Amount == 0 {
		return rejectf(ErrInvalidRequest, "amount must be positive")
	}
	if err := pda.ValidateSigner(req.Signer); err != nil {
		return rejectf(ErrInvalidRequest, "signer: %v", err)
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

		if err := checkPair(premium, normal, req.PremiumVault, req.NormalVault); err != nil {
			return err
		}
		if err := checkLive(premium, normal, op.now); err != nil {
			return err
		}

		var (
			inbound, outbound string
			payer             token.Authority
		)
		if dir == PremiumForNormal {
			inbound, outbound = premium.PremiumVault, normal.NormalVault
			payer = token.Custody(normal)
		} else {
			inbound, outbound = normal.NormalVault, premium.PremiumVault
			payer = token.Custody(premium)
		}

		// 1:1 rate: the paying vault must cover the full amount.
		available, err := s.ledger.Balance(ctx, tx.Accounts(), outbound)
		if err != nil {
			return rejectf(ErrTransferFailure, "%v", err)
		}
		if available < req.Amount {
			return rejectf(ErrInsufficientBalance, msgAmountTooLow)
		}

		if err := s.transfer(ctx, tx, op, req.Source, inbound, token.Signer(req.Signer), req.Amount); err != nil {
			return err
		}
		return s.transfer(ctx, tx, op, outbound, req.Destination, payer, req.Amount)
	})
}

// checkPair verifies the pair linkage and that the presented vaults are the
// ones recorded on the reserves.
func checkPair(premium *domain.PremiumReserve, normal *domain.NormalReserve, premiumVault, normalVault string) error {
	if normal.ParentID != premium.ID {
		return rejectf(ErrRelationshipMismatch, msgNotRelated)
	}
	if premiumVault != premium.PremiumVault {
		return rejectf(ErrAccountMismatch, msgInvalidPremiumVault)
	}
	if normalVault != normal.NormalVault {
		return rejectf(ErrAccountMismatch, msgInvalidNormalVault)
	}
	return nil
}

// checkLive requires both sides of the pair to be past their go-live time.
func checkLive(premium *domain.PremiumReserve, normal *domain.NormalReserve, now int64) error {
	if !domain.IsLive(premium.GoLiveAt, now) {
		return rejectf(ErrNotLive, msgPremiumNotLive)
	}
	if !domain.IsLive(normal.GoLiveAt, now) {
		return rejectf(ErrNotLive, msgNormalNotLive)
	}
	return nil
}
