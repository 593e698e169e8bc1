package repository

import (
	"context"
	"sync"
)

// MemorySlotRepository keeps slots in process memory.
// A positive quota caps the total bytes held across all slots.
type MemorySlotRepository struct {
	mu         sync.RWMutex
	slots      map[string]string
	quotaBytes int
}

// NewMemorySlotRepository creates an in-memory slot repository.
// quotaBytes <= 0 disables the quota.
func NewMemorySlotRepository(quotaBytes int) *MemorySlotRepository {
	return &MemorySlotRepository{
		slots:      make(map[string]string),
		quotaBytes: quotaBytes,
	}
}

func (r *MemorySlotRepository) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	value, ok := r.slots[key]
	return value, ok, nil
}

func (r *MemorySlotRepository) Put(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.quotaBytes > 0 {
		total := len(value)
		for k, v := range r.slots {
			if k != key {
				total += len(v)
			}
		}
		if total > r.quotaBytes {
			return ErrQuotaExceeded
		}
	}

	r.slots[key] = value
	return nil
}

func (r *MemorySlotRepository) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.slots, key)
	return nil
}

// Len returns the number of stored slots
func (r *MemorySlotRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.slots)
}
