package reserve

import (
	"errors"
	"fmt"
)

// Operation errors. Each rejection wraps exactly one of these with a
// message naming the failed condition.
var (
	ErrMintCollision        = errors.New("mint collision")
	ErrAuthorityMismatch    = errors.New("authority mismatch")
	ErrRelationshipMismatch = errors.New("relationship mismatch")
	ErrAccountMismatch      = errors.New("account mismatch")
	ErrNotLive              = errors.New("not live")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrTransferFailure      = errors.New("transfer failure")
	ErrInvalidRequest       = errors.New("invalid request")
)

// Rejection messages.
const (
	msgMintCollision       = "premium mint can't be the same as normal mint"
	msgAuthoritiesMismatch = "authorities do not match"
	msgInvalidAuthority    = "invalid authority"
	msgNotRelated          = "the premium and the normal reserves are not related"
	msgInvalidPremiumVault = "invalid premium token account"
	msgInvalidNormalVault  = "invalid normal token account"
	msgPremiumNotLive      = "premium reserve not live yet"
	msgNormalNotLive       = "normal reserve not live yet"
	msgAmountTooLow        = "token amount too low to swap"
)

func rejectf(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// Kind returns a stable snake_case name for the error class of err,
// or "internal" when err is not a reserve rejection.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrMintCollision):
		return "mint_collision"
	case errors.Is(err, ErrAuthorityMismatch):
		return "authority_mismatch"
	case errors.Is(err, ErrRelationshipMismatch):
		return "relationship_mismatch"
	case errors.Is(err, ErrAccountMismatch):
		return "account_mismatch"
	case errors.Is(err, ErrNotLive):
		return "not_live"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrTransferFailure):
		return "transfer_failure"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return "internal"
	}
}
