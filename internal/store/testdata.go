package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kolah/speclens/internal/proxy"
)

// TestData is what was last entered and received for one endpoint.
type TestData struct {
	PathParams     map[string]string `json:"pathParams,omitempty"`
	QueryParams    map[string]string `json:"queryParams,omitempty"`
	Headers        map[string]string `json:"headers,omitempty"`
	RequestBody    string            `json:"requestBody,omitempty"`
	SelectedServer string            `json:"selectedServer,omitempty"`
	Response       *proxy.Response   `json:"response,omitempty"`
}

func (s *Store) SaveTestData(ctx context.Context, sourceID, endpointKey string, data TestData) error {
	value, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding test data: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO test_data (source_id, endpoint_key, value, updated_at)
		VALUES (?, ?, ?, ?)`,
		sourceID, endpointKey, string(value), time.Now().UnixMilli(),
	)
	return err
}

// LoadTestData returns ErrNotFound when nothing was saved for the endpoint.
func (s *Store) LoadTestData(ctx context.Context, sourceID, endpointKey string) (*TestData, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM test_data WHERE source_id = ? AND endpoint_key = ?",
		sourceID, endpointKey,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var data TestData
	if err := json.Unmarshal([]byte(value), &data); err != nil {
		return nil, fmt.Errorf("decoding test data: %w", err)
	}
	return &data, nil
}

// ClearTestData drops the saved data of every source.
func (s *Store) ClearTestData(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM test_data")
	return err
}
