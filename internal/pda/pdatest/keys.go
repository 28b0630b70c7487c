// Package pdatest provides deterministic keys for tests.
package pdatest

import (
	"crypto/ed25519"
	"crypto/sha256"

	"github.com/mr-tron/base58"
)

// Signer returns the base58 ed25519 public key derived from name.
func Signer(name string) string {
	seed := sha256.Sum256([]byte("signer:" + name))
	pub := ed25519.NewKeyFromSeed(seed[:]).Public().(ed25519.PublicKey)
	return base58.Encode(pub)
}

// Mint returns a base58 32-byte key derived from name.
func Mint(name string) string {
	sum := sha256.Sum256([]byte("mint:" + name))
	return base58.Encode(sum[:])
}
