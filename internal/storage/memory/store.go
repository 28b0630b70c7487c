package memory

import (
	"context"
	"sort"
	"sync"

	"reserve-swap/internal/storage"
)

// accountData is a keyed space of raw account data.
type accountData interface {
	load(address string) ([]byte, bool)
	store(address string, data []byte)
	insert(address string, data []byte) bool
	each(fn func(address string, data []byte))
}

// Store is an in-memory account store. Reserve records and token accounts
// share one address space and are kept as encoded account data.
// It implements storage.UnitOfWork with a single writer lock.
type Store struct {
	mu       sync.RWMutex
	accounts map[string][]byte
}

// NewStore creates a new in-memory account store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[string][]byte),
	}
}

// Atomic runs fn with exclusive access. Writes are staged and applied only
// when fn returns nil. Calling the Store's own Reserves/Accounts from inside
// fn deadlocks; use tx.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	staged := &stagedView{base: s.accounts, dirty: make(map[string][]byte)}
	if err := fn(ctx, &tx{data: staged}); err != nil {
		return err
	}

	for address, data := range staged.dirty {
		s.accounts[address] = data
	}
	return nil
}

// Reserves returns a reserve store that reads and writes outside any unit of work.
func (s *Store) Reserves() storage.ReserveStore {
	return &ReserveStore{data: (*lockedView)(s)}
}

// Accounts returns a token account store that reads and writes outside any unit of work.
func (s *Store) Accounts() storage.TokenAccountStore {
	return &TokenAccountStore{data: (*lockedView)(s)}
}

// tx binds stores to a staged view.
type tx struct {
	data accountData
}

func (t *tx) Reserves() storage.ReserveStore      { return &ReserveStore{data: t.data} }
func (t *tx) Accounts() storage.TokenAccountStore { return &TokenAccountStore{data: t.data} }

// lockedView reads and writes the committed accounts under the store lock.
type lockedView Store

func (v *lockedView) load(address string) ([]byte, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	data, ok := v.accounts[address]
	return data, ok
}

func (v *lockedView) store(address string, data []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.accounts[address] = append([]byte(nil), data...)
}

func (v *lockedView) insert(address string, data []byte) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, exists := v.accounts[address]; exists {
		return false
	}
	v.accounts[address] = append([]byte(nil), data...)
	return true
}

func (v *lockedView) each(fn func(address string, data []byte)) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, address := range sortedKeys(v.accounts) {
		fn(address, v.accounts[address])
	}
}

// stagedView overlays uncommitted writes on the committed accounts.
// The caller holds the store's write lock.
type stagedView struct {
	base  map[string][]byte
	dirty map[string][]byte
}

func (v *stagedView) load(address string) ([]byte, bool) {
	if data, ok := v.dirty[address]; ok {
		return data, true
	}
	data, ok := v.base[address]
	return data, ok
}

func (v *stagedView) store(address string, data []byte) {
	v.dirty[address] = append([]byte(nil), data...)
}

func (v *stagedView) insert(address string, data []byte) bool {
	if _, exists := v.load(address); exists {
		return false
	}
	v.store(address, data)
	return true
}

func (v *stagedView) each(fn func(address string, data []byte)) {
	merged := make(map[string][]byte, len(v.base)+len(v.dirty))
	for k, d := range v.base {
		merged[k] = d
	}
	for k, d := range v.dirty {
		merged[k] = d
	}
	for _, address := range sortedKeys(merged) {
		fn(address, merged[address])
	}
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var (
	_ storage.UnitOfWork = (*Store)(nil)
	_ storage.Tx         = (*tx)(nil)
	_ storage.Tx         = (*Store)(nil)
)
