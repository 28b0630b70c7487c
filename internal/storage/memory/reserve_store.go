package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"reserve-swap/internal/domain"
	"reserve-swap/internal/layout"
	"reserve-swap/internal/storage"
)

// ReserveStore is an in-memory implementation of storage.ReserveStore.
type ReserveStore struct {
	data accountData
}

// NewReserveStore creates a standalone in-memory reserve store.
func NewReserveStore() *ReserveStore {
	return &ReserveStore{data: (*lockedView)(NewStore())}
}

// InsertPremium persists a new premium reserve. Returns ErrDuplicateKey if exists.
func (s *ReserveStore) InsertPremium(_ context.Context, r *domain.PremiumReserve) error {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}
	data, err := layout.EncodePremium(r)
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}
	if !s.data.insert(r.ID, data) {
		return storage.ErrDuplicateKey
	}
	return nil
}

// GetPremium loads a premium reserve. Returns ErrNotFound if not exists.
func (s *ReserveStore) GetPremium(_ context.Context, id string) (*domain.PremiumReserve, error) {
	data, ok := s.data.load(id)
	if !ok {
		return nil, storage.ErrNotFound
	}
	r, err := layout.DecodePremium(id, data)
	if err != nil {
		return nil, decodeError(err)
	}
	return r, nil
}

// InsertNormal persists a new normal reserve. Returns ErrDuplicateKey if exists.
func (s *ReserveStore) InsertNormal(_ context.Context, r *domain.NormalReserve) error {
	if r == nil || r.ID == "" || r.ParentID == "" {
		return storage.ErrInvalidInput
	}
	data, err := layout.EncodeNormal(r)
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}
	if !s.data.insert(r.ID, data) {
		return storage.ErrDuplicateKey
	}
	return nil
}

// GetNormal loads a normal reserve. Returns ErrNotFound if not exists.
func (s *ReserveStore) GetNormal(_ context.Context, id string) (*domain.NormalReserve, error) {
	data, ok := s.data.load(id)
	if !ok {
		return nil, storage.ErrNotFound
	}
	r, err := layout.DecodeNormal(id, data)
	if err != nil {
		return nil, decodeError(err)
	}
	return r, nil
}

// ListNormal retrieves all children of a premium reserve, ordered by created_at ASC, id ASC.
func (s *ReserveStore) ListNormal(_ context.Context, parentID string) ([]*domain.NormalReserve, error) {
	disc := layout.Discriminator(layout.NormalReserveName)

	var result []*domain.NormalReserve
	var decodeErr error
	s.data.each(func(address string, data []byte) {
		if decodeErr != nil || !bytes.HasPrefix(data, disc[:]) {
			return
		}
		r, err := layout.DecodeNormal(address, data)
		if err != nil {
			decodeErr = err
			return
		}
		if r.ParentID == parentID {
			result = append(result, r)
		}
	})
	if decodeErr != nil {
		return nil, fmt.Errorf("list normal reserves: %w", decodeErr)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// decodeError maps layout errors to storage errors.
func decodeError(err error) error {
	if errors.Is(err, layout.ErrDiscriminator) || errors.Is(err, layout.ErrShortData) {
		return fmt.Errorf("%w: %v", storage.ErrTypeMismatch, err)
	}
	return err
}

var _ storage.ReserveStore = (*ReserveStore)(nil)
