package repository

import (
	"context"
	"sync"
)

// MemorySnapshotRepository keeps the snapshot in process memory.
type MemorySnapshotRepository struct {
	mu    sync.RWMutex
	data  []byte
	set   bool
	saves int
}

// NewMemorySnapshotRepository returns an empty in-memory repository.
func NewMemorySnapshotRepository() *MemorySnapshotRepository {
	return &MemorySnapshotRepository{}
}

// NewMemorySnapshotRepositoryWith returns a repository pre-seeded with raw content.
func NewMemorySnapshotRepositoryWith(data []byte) *MemorySnapshotRepository {
	r := &MemorySnapshotRepository{}
	r.data = append([]byte(nil), data...)
	r.set = true
	return r
}

func (r *MemorySnapshotRepository) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.set {
		return nil, ErrSnapshotNotFound
	}
	return append([]byte(nil), r.data...), nil
}

func (r *MemorySnapshotRepository) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.data = append([]byte(nil), data...)
	r.set = true
	r.saves++
	return nil
}

// Saves returns how many times the snapshot was overwritten.
func (r *MemorySnapshotRepository) Saves() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saves
}
