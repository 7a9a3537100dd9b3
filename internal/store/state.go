package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Keys of the independently versioned state entries.
const (
	KeyAuth          = "auth"
	KeyVariables     = "variables"
	KeyCustomCookies = "custom_cookies"
	KeySelection     = "selection"
)

// SaveState stores v as JSON under key, tagged with version.
func (s *Store) SaveState(ctx context.Context, key string, version int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding state %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO state (key, version, value, updated_at)
		VALUES (?, ?, ?, ?)`,
		key, version, string(data), time.Now().UnixMilli(),
	)
	return err
}

// LoadState decodes the entry stored under key into out. An entry written
// with another version, or one that no longer decodes, is treated as absent
// so that one stale entry never affects the others.
func (s *Store) LoadState(ctx context.Context, key string, version int, out any) (bool, error) {
	var stored int
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT version, value FROM state WHERE key = ?", key).Scan(&stored, &value)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if stored != version {
		return false, nil
	}
	if err := json.Unmarshal([]byte(value), out); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *Store) DeleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM state WHERE key = ?", key)
	return err
}
