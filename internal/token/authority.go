package token

import "reserve-swap/internal/domain"

// Authority is the identity that authorizes a debit.
// Values come only from Signer or Custody.
type Authority interface {
	// Key must equal the owner of the debited account.
	Key() string
	// Custodial reports whether a reserve record signs for its own vault.
	Custodial() bool

	sealed()
}

type signer struct {
	key string
}

// Signer returns the authority of an external key whose signature the
// caller has already verified. Ledger.Transfer rejects a Signer whose key is
// a derived address.
func Signer(key string) Authority {
	return signer{key: key}
}

func (s signer) Key() string     { return s.key }
func (s signer) Custodial() bool { return false }
func (signer) sealed()           {}

// Custodian is satisfied only by reserve records.
type Custodian interface {
	*domain.PremiumReserve | *domain.NormalReserve
	CustodyKey() string
}

type custody struct {
	key string
}

// Custody returns the authority of a reserve record over its own vault.
// It can only be built from a loaded record.
func Custody[R Custodian](record R) Authority {
	return custody{key: record.CustodyKey()}
}

func (c custody) Key() string     { return c.key }
func (c custody) Custodial() bool { return true }
func (custody) sealed()           {}
