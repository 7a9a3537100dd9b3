package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type SourceType string

const (
	SourceFile SourceType = "file"
	SourceURL  SourceType = "url"
)

// SpecSource describes where the current document came from. ID is its
// identity: a different ID means persisted test data no longer applies.
type SpecSource struct {
	ID           string     `json:"id"`
	Type         SourceType `json:"type"`
	Name         string     `json:"name"`
	ETag         string     `json:"etag,omitempty"`
	LastModified string     `json:"lastModified,omitempty"`
	LoadedAt     time.Time  `json:"loadedAt"`
	RefreshedAt  *time.Time `json:"refreshedAt,omitempty"`
}

func SourceID(t SourceType, name string) string {
	return string(t) + ":" + name
}

type StoredSpec struct {
	Source SpecSource
	Data   []byte
}

// SaveSpec replaces the stored document.
func (s *Store) SaveSpec(ctx context.Context, spec StoredSpec) error {
	var refreshed sql.NullInt64
	if spec.Source.RefreshedAt != nil {
		refreshed = sql.NullInt64{Int64: spec.Source.RefreshedAt.UnixMilli(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO specs (
			id, source_id, source_type, name, etag, last_modified, loaded_at, refreshed_at, data
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)`,
		spec.Source.ID, string(spec.Source.Type), spec.Source.Name,
		spec.Source.ETag, spec.Source.LastModified,
		spec.Source.LoadedAt.UnixMilli(), refreshed, spec.Data,
	)
	return err
}

// LoadSpec returns ErrNotFound when no document is stored.
func (s *Store) LoadSpec(ctx context.Context) (*StoredSpec, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT source_id, source_type, name, etag, last_modified, loaded_at, refreshed_at, data
		FROM specs WHERE id = 1`)

	var spec StoredSpec
	var sourceType string
	var loadedAt int64
	var refreshed sql.NullInt64
	err := row.Scan(
		&spec.Source.ID, &sourceType, &spec.Source.Name,
		&spec.Source.ETag, &spec.Source.LastModified,
		&loadedAt, &refreshed, &spec.Data,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	spec.Source.Type = SourceType(sourceType)
	spec.Source.LoadedAt = time.UnixMilli(loadedAt).UTC()
	if refreshed.Valid {
		at := time.UnixMilli(refreshed.Int64).UTC()
		spec.Source.RefreshedAt = &at
	}
	return &spec, nil
}

func (s *Store) ClearSpec(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM specs")
	return err
}
