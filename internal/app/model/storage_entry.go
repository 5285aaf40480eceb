package model

import "time"

// StorageEntry is the Postgres row that holds one durable key (the link snapshot).
type StorageEntry struct {
	Key       string    `db:"key" gorm:"primaryKey;size:128"`
	Value     string    `db:"value" gorm:"type:text;not null"`
	UpdatedAt time.Time `db:"updated_at" gorm:"autoUpdateTime"`
}

// TableName pins the table name used by both GORM migrations and raw pgx queries.
func (StorageEntry) TableName() string { return "storage_entries" }
