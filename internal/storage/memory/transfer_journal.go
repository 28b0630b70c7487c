package memory

import (
	"context"
	"sort"
	"sync"

	"reserve-swap/internal/domain"
	"reserve-swap/internal/storage"
)

// TransferJournal is an in-memory implementation of storage.TransferJournal.
type TransferJournal struct {
	mu   sync.RWMutex
	data map[string]*domain.Transfer // keyed by transfer ID
}

// NewTransferJournal creates a new in-memory transfer journal.
func NewTransferJournal() *TransferJournal {
	return &TransferJournal{
		data: make(map[string]*domain.Transfer),
	}
}

// AppendBulk records transfers atomically. Fails entire batch on any duplicate.
func (j *TransferJournal) AppendBulk(_ context.Context, transfers []*domain.Transfer) error {
	if len(transfers) == 0 {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(transfers))

	for _, t := range transfers {
		if t == nil || t.ID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := j.data[t.ID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[t.ID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[t.ID] = struct{}{}
	}

	for _, t := range transfers {
		copy := *t
		j.data[t.ID] = &copy
	}

	return nil
}

// GetByAccount retrieves transfers touching an account, ordered by executed_at, operation_id, leg.
func (j *TransferJournal) GetByAccount(_ context.Context, address string) ([]*domain.Transfer, error) {
	return j.filter(func(t *domain.Transfer) bool {
		return t.From == address || t.To == address
	}), nil
}

// GetByTimeRange retrieves transfers executed within [start, end] (inclusive).
func (j *TransferJournal) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.Transfer, error) {
	return j.filter(func(t *domain.Transfer) bool {
		return t.ExecutedAt >= start && t.ExecutedAt <= end
	}), nil
}

func (j *TransferJournal) filter(keep func(t *domain.Transfer) bool) []*domain.Transfer {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var result []*domain.Transfer
	for _, t := range j.data {
		if keep(t) {
			copy := *t
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, k int) bool {
		if result[i].ExecutedAt != result[k].ExecutedAt {
			return result[i].ExecutedAt < result[k].ExecutedAt
		}
		if result[i].OperationID != result[k].OperationID {
			return result[i].OperationID < result[k].OperationID
		}
		return result[i].Leg < result[k].Leg
	})

	return result
}

var _ storage.TransferJournal = (*TransferJournal)(nil)
