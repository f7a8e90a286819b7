// Package store persists the append-only download history.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"whatswizard/internal/core/domain"
)

// SQLiteStore is the default RecordStore backend.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// ensures the schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS downloads (
		id         TEXT PRIMARY KEY,
		url        TEXT NOT NULL,
		platform   TEXT NOT NULL,
		user_id    TEXT NOT NULL,
		timestamp  INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_downloads_created ON downloads(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateDownloadRecord inserts one record for a completed job.
func (s *SQLiteStore) CreateDownloadRecord(ctx context.Context, url string, platform domain.Platform, userID string, timestamp int64) (domain.DownloadRecord, error) {
	rec := domain.DownloadRecord{
		ID:        uuid.NewString(),
		URL:       url,
		Platform:  platform,
		UserID:    userID,
		Timestamp: timestamp,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO downloads (id, url, platform, user_id, timestamp, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.URL, string(rec.Platform), rec.UserID, rec.Timestamp, rec.CreatedAt)
	if err != nil {
		return domain.DownloadRecord{}, fmt.Errorf("insert download record: %w", err)
	}
	return rec, nil
}

// RecentRecords returns up to limit records, newest first.
func (s *SQLiteStore) RecentRecords(ctx context.Context, limit int) ([]domain.DownloadRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, url, platform, user_id, timestamp, created_at
FROM downloads ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list download records: %w", err)
	}
	defer rows.Close()

	var out []domain.DownloadRecord
	for rows.Next() {
		var rec domain.DownloadRecord
		var platform string
		if err := rows.Scan(&rec.ID, &rec.URL, &platform, &rec.UserID, &rec.Timestamp, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Platform = domain.Platform(platform)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
