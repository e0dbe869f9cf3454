package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"github.com/lightpoint/trustlines/internal/store/schema"
)

type journalStore struct {
	db *gorm.DB
}

// NewJournalStore creates a new journal store
func NewJournalStore(db *gorm.DB) JournalStore {
	return &journalStore{db: db}
}

// ListChanges reads journal entries with a cursor greater than afterCursor,
// oldest first
func (s *journalStore) ListChanges(ctx context.Context, afterCursor int64, limit int) ([]schema.ChangesJournal, error) {
	var entries []schema.ChangesJournal
	err := s.db.WithContext(ctx).
		Where(`"cursor" > ?`, afterCursor).
		Order(`"cursor" ASC`).
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}

	return entries, nil
}

// GetJournalCursor retrieves the last journal cursor processed by a consumer
func (s *journalStore) GetJournalCursor(ctx context.Context, consumer string) (int64, error) {
	key := fmt.Sprintf("journal_cursor:%s", consumer)

	var kv schema.KeyValueStore
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&kv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil // Start from the beginning if no cursor exists
		}
		return 0, fmt.Errorf("failed to get journal cursor: %w", err)
	}

	cursor, err := strconv.ParseInt(kv.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse journal cursor: %w", err)
	}

	return cursor, nil
}

// SetJournalCursor stores the last journal cursor processed by a consumer
func (s *journalStore) SetJournalCursor(ctx context.Context, consumer string, cursor int64) error {
	key := fmt.Sprintf("journal_cursor:%s", consumer)

	kv := schema.KeyValueStore{
		Key:   key,
		Value: strconv.FormatInt(cursor, 10),
	}

	err := s.db.WithContext(ctx).Save(&kv).Error
	if err != nil {
		return fmt.Errorf("failed to set journal cursor: %w", err)
	}

	return nil
}
