package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type redisSnapshotRepository struct {
	client redis.Cmdable
	key    string
}

// NewRedisSnapshotRepository keeps the snapshot under one Redis string key.
func NewRedisSnapshotRepository(client redis.Cmdable, key string) SnapshotRepository {
	return &redisSnapshotRepository{client: client, key: key}
}

func (r *redisSnapshotRepository) Load(ctx context.Context) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", r.key, err)
	}
	return data, nil
}

func (r *redisSnapshotRepository) Save(ctx context.Context, data []byte) error {
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	return nil
}
