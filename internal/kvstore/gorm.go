package kvstore

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormStore struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Get(ctx context.Context, key string) ([]byte, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrInvalidKey
	}
	var entry Entry
	err := s.db.WithContext(ctx).Raw(
		`SELECT entry_key, value, updated_at FROM kv_entries WHERE entry_key = ?`,
		key,
	).Scan(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.Key == "" {
		return nil, ErrNotFound
	}
	return entry.Value, nil
}

func (s *gormStore) Put(ctx context.Context, key string, value []byte) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	entry := Entry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}

func (s *gormStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Exec(`DELETE FROM kv_entries WHERE entry_key = ?`, key).Error
}

func (s *gormStore) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	if strings.TrimSpace(prefix) == "" {
		return 0, ErrInvalidKey
	}
	res := s.db.WithContext(ctx).Exec(`DELETE FROM kv_entries WHERE entry_key LIKE ?`, prefix+"%")
	return res.RowsAffected, res.Error
}
