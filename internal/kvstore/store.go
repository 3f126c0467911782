package kvstore

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("kv_not_found")
	ErrInvalidKey = errors.New("kv_invalid_key")
)

// Store is the byte-oriented persistence used for photo blobs and
// collection snapshots.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}

// Entry is the row layout of the database-backed store.
type Entry struct {
	Key       string    `gorm:"column:entry_key;type:varchar(255);primaryKey"`
	Value     []byte    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (Entry) TableName() string { return "kv_entries" }
