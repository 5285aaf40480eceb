package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sifan077/QuickLink/internal/app/model"
)

// PgxQuerier is the subset of *pgxpool.Pool used by the Postgres repository.
type PgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var (
	selectSnapshotSQL = fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, model.StorageEntry{}.TableName())
	upsertSnapshotSQL = fmt.Sprintf(`INSERT INTO %s (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`, model.StorageEntry{}.TableName())
)

type postgresSnapshotRepository struct {
	db  PgxQuerier
	key string
}

// NewPostgresSnapshotRepository keeps the snapshot in one row of storage_entries.
// The table is created by GORM AutoMigrate on model.StorageEntry.
func NewPostgresSnapshotRepository(db PgxQuerier, key string) SnapshotRepository {
	return &postgresSnapshotRepository{db: db, key: key}
}

func (r *postgresSnapshotRepository) Load(ctx context.Context) ([]byte, error) {
	var value string
	if err := r.db.QueryRow(ctx, selectSnapshotSQL, r.key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("select snapshot: %w", err)
	}
	return []byte(value), nil
}

func (r *postgresSnapshotRepository) Save(ctx context.Context, data []byte) error {
	if _, err := r.db.Exec(ctx, upsertSnapshotSQL, r.key, string(data)); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}
