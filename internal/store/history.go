package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kolah/speclens/internal/cookies"
	"github.com/kolah/speclens/internal/proxy"
)

const (
	DefaultHistoryLimit = 50

	redacted = "[REDACTED]"
)

type HistoryEntry struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Method    string          `json:"method"`
	URL       string          `json:"url"`
	Request   proxy.Request   `json:"request"`
	Response  *proxy.Response `json:"response"`
	Error     string          `json:"error,omitempty"`
	Duration  *int64          `json:"duration,omitempty"`
}

var sensitiveHeaders = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"www-authenticate":    true,

	"cookie":          true,
	"set-cookie":      true,
	"x-api-key":       true,
	"api-key":         true,
	"x-auth-token":    true,
	"x-csrf-token":    true,
	"x-xsrf-token":    true,
	"x-access-token":  true,
	"x-refresh-token": true,
	"x-session-token": true,

	"x-amz-security-token": true,
	"x-amz-credential":     true,
	"x-amz-signature":      true,
}

// RedactHeaders returns a copy of h with credential bearing values replaced.
func RedactHeaders(h map[string]string, extra ...string) map[string]string {
	if h == nil {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		if sensitiveHeaders[strings.ToLower(k)] || containsFold(extra, k) {
			out[k] = redacted
			continue
		}
		out[k] = v
	}
	return out
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// AddHistory redacts e, assigns an id and timestamp when missing, appends
// it and keeps only the newest limit entries.
func (s *Store) AddHistory(ctx context.Context, e HistoryEntry, limit int, sensitive ...string) (HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	e = redactEntry(e, sensitive)

	request, err := json.Marshal(e.Request)
	if err != nil {
		return e, fmt.Errorf("encoding history request: %w", err)
	}
	var response sql.NullString
	if e.Response != nil {
		data, err := json.Marshal(e.Response)
		if err != nil {
			return e, fmt.Errorf("encoding history response: %w", err)
		}
		response = sql.NullString{String: string(data), Valid: true}
	}
	var errText sql.NullString
	if e.Error != "" {
		errText = sql.NullString{String: e.Error, Valid: true}
	}
	var duration sql.NullInt64
	if e.Duration != nil {
		duration = sql.NullInt64{Int64: *e.Duration, Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return e, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO history (id, timestamp, method, url, request, response, error, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp.UnixMilli(), e.Method, e.URL, string(request), response, errText, duration,
	)
	if err != nil {
		return e, err
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM history
		WHERE seq NOT IN (
			SELECT seq FROM history ORDER BY seq DESC LIMIT ?
		)`, limit)
	if err != nil {
		return e, err
	}

	return e, tx.Commit()
}

func redactEntry(e HistoryEntry, sensitive []string) HistoryEntry {
	e.Request.Headers = RedactHeaders(e.Request.Headers, sensitive...)
	if e.Response != nil {
		resp := *e.Response
		resp.Headers = RedactHeaders(resp.Headers, sensitive...)
		if len(resp.SetCookies) > 0 {
			masked := make([]cookies.SetCookie, len(resp.SetCookies))
			for i, c := range resp.SetCookies {
				c.Value = redacted
				masked[i] = c
			}
			resp.SetCookies = masked
		}
		e.Response = &resp
	}
	return e
}

// ListHistory returns the newest entries first.
func (s *Store) ListHistory(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, method, url, request, response, error, duration_ms
		FROM history
		ORDER BY seq DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []HistoryEntry{}
	for rows.Next() {
		e, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// GetHistory returns ErrNotFound for an unknown id.
func (s *Store) GetHistory(ctx context.Context, id string) (*HistoryEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, timestamp, method, url, request, response, error, duration_ms
		FROM history WHERE id = ?`, id)
	e, err := scanHistory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

func (s *Store) ClearHistory(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM history")
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanHistory(row scanner) (*HistoryEntry, error) {
	var e HistoryEntry
	var ts int64
	var request string
	var response, errText sql.NullString
	var duration sql.NullInt64

	if err := row.Scan(&e.ID, &ts, &e.Method, &e.URL, &request, &response, &errText, &duration); err != nil {
		return nil, err
	}

	e.Timestamp = time.UnixMilli(ts).UTC()
	if err := json.Unmarshal([]byte(request), &e.Request); err != nil {
		return nil, fmt.Errorf("decoding history request %s: %w", e.ID, err)
	}
	if response.Valid {
		e.Response = &proxy.Response{}
		if err := json.Unmarshal([]byte(response.String), e.Response); err != nil {
			return nil, fmt.Errorf("decoding history response %s: %w", e.ID, err)
		}
	}
	e.Error = errText.String
	if duration.Valid {
		d := duration.Int64
		e.Duration = &d
	}
	return &e, nil
}
