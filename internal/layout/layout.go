// Package layout encodes reserve records and token accounts as raw account data.
//
// Reserve records use an 8-byte discriminator (first 8 bytes of
// SHA256("account:<Name>")) followed by their fields in declaration order.
// Pubkeys are 32 raw bytes, integers are little-endian, strings carry a u32
// length prefix. Token accounts use the 165-byte SPL token account layout.
package layout

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"reserve-swap/internal/domain"
	"reserve-swap/internal/pda"
)

// DiscriminatorLen is the size of the record type header.
const DiscriminatorLen = 8

// TokenAccountLen is the size of an SPL token account.
const TokenAccountLen = 165

// Account names hashed into discriminators.
const (
	PremiumReserveName = "PremiumMintReserve"
	NormalReserveName  = "NormalMintReserve"
)

// SPL token account states.
const (
	tokenStateUninitialized byte = 0
	tokenStateInitialized   byte = 1
	tokenStateFrozen        byte = 2
)

var (
	// ErrDiscriminator is returned when account data belongs to another record type.
	ErrDiscriminator = errors.New("account discriminator mismatch")

	// ErrShortData is returned when account data ends before all fields are read.
	ErrShortData = errors.New("account data too short")

	premiumDiscriminator = Discriminator(PremiumReserveName)
	normalDiscriminator  = Discriminator(NormalReserveName)
)

// Discriminator returns the 8-byte type header for an account name.
func Discriminator(name string) [DiscriminatorLen]byte {
	var d [DiscriminatorLen]byte
	sum := sha256.Sum256([]byte("account:" + name))
	copy(d[:], sum[:DiscriminatorLen])
	return d
}

// EncodePremium serializes a premium reserve. The ID is the account address
// and is not part of the data.
func EncodePremium(r *domain.PremiumReserve) ([]byte, error) {
	w := newWriter(premiumDiscriminator)
	w.pubkey(r.PremiumMint)
	w.pubkey(r.PremiumVault)
	w.i64(r.GoLiveAt)
	w.i64(r.CreatedAt)
	w.u32(r.Capacity)
	w.pubkey(r.Owner)
	w.str(r.Label)
	w.u8(r.Bump)
	w.u8(r.VaultBump)
	if w.err != nil {
		return nil, fmt.Errorf("encode premium reserve: %w", w.err)
	}
	return w.buf, nil
}

// DecodePremium materializes the premium reserve stored at id.
func DecodePremium(id string, data []byte) (*domain.PremiumReserve, error) {
	rd, err := newReader(data, premiumDiscriminator)
	if err != nil {
		return nil, err
	}
	r := &domain.PremiumReserve{ID: id}
	r.PremiumMint = rd.pubkey()
	r.PremiumVault = rd.pubkey()
	r.GoLiveAt = rd.i64()
	r.CreatedAt = rd.i64()
	r.Capacity = rd.u32()
	r.Owner = rd.pubkey()
	r.Label = rd.str()
	r.Bump = rd.u8()
	r.VaultBump = rd.u8()
	if rd.err != nil {
		return nil, fmt.Errorf("decode premium reserve %s: %w", id, rd.err)
	}
	return r, nil
}

// EncodeNormal serializes a normal reserve.
func EncodeNormal(r *domain.NormalReserve) ([]byte, error) {
	w := newWriter(normalDiscriminator)
	w.pubkey(r.ParentID)
	w.pubkey(r.NormalMint)
	w.pubkey(r.NormalVault)
	w.i64(r.GoLiveAt)
	w.i64(r.CreatedAt)
	w.u8(r.Bump)
	w.u8(r.VaultBump)
	if w.err != nil {
		return nil, fmt.Errorf("encode normal reserve: %w", w.err)
	}
	return w.buf, nil
}

// DecodeNormal materializes the normal reserve stored at id.
func DecodeNormal(id string, data []byte) (*domain.NormalReserve, error) {
	rd, err := newReader(data, normalDiscriminator)
	if err != nil {
		return nil, err
	}
	r := &domain.NormalReserve{ID: id}
	r.ParentID = rd.pubkey()
	r.NormalMint = rd.pubkey()
	r.NormalVault = rd.pubkey()
	r.GoLiveAt = rd.i64()
	r.CreatedAt = rd.i64()
	r.Bump = rd.u8()
	r.VaultBump = rd.u8()
	if rd.err != nil {
		return nil, fmt.Errorf("decode normal reserve %s: %w", id, rd.err)
	}
	return r, nil
}

// EncodeTokenAccount serializes a token account in SPL layout:
// mint(32) | owner(32) | amount(8) | delegate(36) | state(1) |
// is_native(12) | delegated_amount(8) | close_authority(36).
func EncodeTokenAccount(a *domain.TokenAccount) ([]byte, error) {
	w := &writer{buf: make([]byte, 0, TokenAccountLen)}
	w.pubkey(a.Mint)
	w.pubkey(a.Owner)
	w.u64(a.Amount)
	w.zero(36)
	if a.Frozen {
		w.u8(tokenStateFrozen)
	} else {
		w.u8(tokenStateInitialized)
	}
	w.zero(12 + 8 + 36)
	if w.err != nil {
		return nil, fmt.Errorf("encode token account: %w", w.err)
	}
	return w.buf, nil
}

// DecodeTokenAccount materializes the token account stored at address.
func DecodeTokenAccount(address string, data []byte) (*domain.TokenAccount, error) {
	if len(data) != TokenAccountLen {
		return nil, fmt.Errorf("%w: token account %s has %d bytes", ErrDiscriminator, address, len(data))
	}
	rd := &reader{data: data}
	a := &domain.TokenAccount{Address: address}
	a.Mint = rd.pubkey()
	a.Owner = rd.pubkey()
	a.Amount = rd.u64()
	rd.skip(36)
	state := rd.u8()
	if rd.err != nil {
		return nil, fmt.Errorf("decode token account %s: %w", address, rd.err)
	}
	if state == tokenStateUninitialized {
		return nil, fmt.Errorf("decode token account %s: uninitialized", address)
	}
	a.Frozen = state == tokenStateFrozen
	return a, nil
}

type writer struct {
	buf []byte
	err error
}

func newWriter(disc [DiscriminatorLen]byte) *writer {
	w := &writer{buf: make([]byte, 0, 256)}
	w.buf = append(w.buf, disc[:]...)
	return w
}

func (w *writer) pubkey(s string) {
	if w.err != nil {
		return
	}
	key, err := pda.ParseKey(s)
	if err != nil {
		w.err = err
		return
	}
	w.buf = append(w.buf, key[:]...)
}

func (w *writer) i64(v int64)  { w.buf = binary.LittleEndian.AppendUint64(w.buf, uint64(v)) }
func (w *writer) u64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }
func (w *writer) u32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *writer) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *writer) zero(n int)   { w.buf = append(w.buf, make([]byte, n)...) }

func (w *writer) str(s string) {
	w.u32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

type reader struct {
	data []byte
	off  int
	err  error
}

func newReader(data []byte, disc [DiscriminatorLen]byte) (*reader, error) {
	if len(data) < DiscriminatorLen {
		return nil, ErrShortData
	}
	if [DiscriminatorLen]byte(data[:DiscriminatorLen]) != disc {
		return nil, ErrDiscriminator
	}
	return &reader{data: data, off: DiscriminatorLen}, nil
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.data) {
		r.err = ErrShortData
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) pubkey() string {
	b := r.take(32)
	if b == nil {
		return ""
	}
	return pda.EncodeKey([32]byte(b))
}

func (r *reader) i64() int64 {
	return int64(r.u64())
}

func (r *reader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) str() string {
	n := r.u32()
	b := r.take(int(n))
	if b == nil {
		return ""
	}
	return string(b)
}

func (r *reader) skip(n int) { r.take(n) }
