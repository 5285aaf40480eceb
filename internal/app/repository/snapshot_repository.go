package repository

import (
	"context"
	"errors"
)

var (
	// ErrSnapshotNotFound signals that the durable key holds no value yet.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// SnapshotRepository reads and overwrites the single durable key that holds the
// serialized link collection.
type SnapshotRepository interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}
