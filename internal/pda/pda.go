// Package pda derives deterministic account addresses for reserves and vaults.
//
// Addresses follow the Solana program-derived address rules: seeds, a bump
// byte, the program ID and a fixed marker are hashed with SHA256 and the
// first bump whose hash is not a valid ed25519 point wins. Nobody holds a
// private key for such an address, so only the owning record can act for it.
package pda

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// DefaultProgramID is the program namespace used when none is configured.
const DefaultProgramID = "Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS"

// Seed prefixes, one per account role.
const (
	SeedPremiumReserve = "premium-reserve"
	SeedPremiumVault   = "premium-tokens"
	SeedNormalReserve  = "normal-mint-reserve"
	SeedNormalVault    = "normal-token-account"
	SeedTokenAccount   = "token-account"
)

// MaxSeedLen is the longest single seed accepted.
const MaxSeedLen = 32

const pdaMarker = "ProgramDerivedAddress"

var (
	// ErrInvalidKey is returned when a string is not a base58 32-byte key.
	ErrInvalidKey = errors.New("invalid key")

	// ErrSeedTooLong is returned when a seed exceeds MaxSeedLen bytes.
	ErrSeedTooLong = errors.New("seed too long")

	// ErrNoViableBump is returned when every bump yields an on-curve point.
	ErrNoViableBump = errors.New("unable to find a viable program address bump")
)

// ParseKey decodes a base58 address into its 32 raw bytes.
func ParseKey(s string) ([32]byte, error) {
	var key [32]byte
	decoded, err := base58.Decode(s)
	if err != nil {
		return key, fmt.Errorf("%w: %q: %v", ErrInvalidKey, s, err)
	}
	if len(decoded) != 32 {
		return key, fmt.Errorf("%w: %q decodes to %d bytes", ErrInvalidKey, s, len(decoded))
	}
	copy(key[:], decoded)
	return key, nil
}

// EncodeKey encodes 32 raw bytes as a base58 address.
func EncodeKey(key [32]byte) string {
	return base58.Encode(key[:])
}

// IsOnCurve reports whether point is a valid compressed ed25519 point.
func IsOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// ValidateSigner checks that s is an ed25519 public key, i.e. something that
// can produce signatures. Derived addresses fail this check.
func ValidateSigner(s string) error {
	key, err := ParseKey(s)
	if err != nil {
		return err
	}
	if !IsOnCurve(key[:]) {
		return fmt.Errorf("%w: %q is not an ed25519 public key", ErrInvalidKey, s)
	}
	return nil
}

// Deriver derives addresses under one program namespace.
type Deriver struct {
	programID [32]byte
}

// NewDeriver creates a Deriver for the given base58 program ID.
func NewDeriver(programID string) (*Deriver, error) {
	if programID == "" {
		programID = DefaultProgramID
	}
	key, err := ParseKey(programID)
	if err != nil {
		return nil, fmt.Errorf("parse program id: %w", err)
	}
	return &Deriver{programID: key}, nil
}

// MustDeriver is NewDeriver for known-good program IDs.
func MustDeriver(programID string) *Deriver {
	d, err := NewDeriver(programID)
	if err != nil {
		panic(err)
	}
	return d
}

// ProgramID returns the base58 program namespace.
func (d *Deriver) ProgramID() string {
	return EncodeKey(d.programID)
}

// FindAddress returns the first off-curve address for seeds, with its bump.
func (d *Deriver) FindAddress(seeds ...[]byte) (string, uint8, error) {
	for _, seed := range seeds {
		if len(seed) > MaxSeedLen {
			return "", 0, fmt.Errorf("%w: %d bytes", ErrSeedTooLong, len(seed))
		}
	}

	for bump := byte(255); bump > 0; bump-- {
		data := make([]byte, 0, 64)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, d.programID[:]...)
		data = append(data, []byte(pdaMarker)...)

		hash := sha256.Sum256(data)

		if !IsOnCurve(hash[:]) {
			return base58.Encode(hash[:]), bump, nil
		}
	}

	return "", 0, ErrNoViableBump
}

// PremiumReserve derives the address of the premium reserve for (mint, label).
func (d *Deriver) PremiumReserve(mint, label string) (string, uint8, error) {
	mintKey, err := ParseKey(mint)
	if err != nil {
		return "", 0, fmt.Errorf("premium mint: %w", err)
	}
	return d.FindAddress([]byte(SeedPremiumReserve), mintKey[:], []byte(label))
}

// PremiumVault derives the vault address owned by a premium reserve.
func (d *Deriver) PremiumVault(reserveID string) (string, uint8, error) {
	return d.childAddress(SeedPremiumVault, reserveID)
}

// NormalReserve derives the address of the normal reserve for (parent, mint).
func (d *Deriver) NormalReserve(parentID, mint string) (string, uint8, error) {
	parentKey, err := ParseKey(parentID)
	if err != nil {
		return "", 0, fmt.Errorf("parent reserve: %w", err)
	}
	mintKey, err := ParseKey(mint)
	if err != nil {
		return "", 0, fmt.Errorf("normal mint: %w", err)
	}
	return d.FindAddress([]byte(SeedNormalReserve), parentKey[:], mintKey[:])
}

// NormalVault derives the vault address owned by a normal reserve.
func (d *Deriver) NormalVault(reserveID string) (string, uint8, error) {
	return d.childAddress(SeedNormalVault, reserveID)
}

// TokenAccount derives the default token account of owner for mint.
func (d *Deriver) TokenAccount(owner, mint string) (string, uint8, error) {
	ownerKey, err := ParseKey(owner)
	if err != nil {
		return "", 0, fmt.Errorf("owner: %w", err)
	}
	mintKey, err := ParseKey(mint)
	if err != nil {
		return "", 0, fmt.Errorf("mint: %w", err)
	}
	return d.FindAddress([]byte(SeedTokenAccount), ownerKey[:], mintKey[:])
}

func (d *Deriver) childAddress(role, parent string) (string, uint8, error) {
	parentKey, err := ParseKey(parent)
	if err != nil {
		return "", 0, fmt.Errorf("%s parent: %w", role, err)
	}
	return d.FindAddress([]byte(role), parentKey[:])
}
