package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"whatswizard/internal/core/domain"
)

// PostgresStore is the RecordStore backend for deployments that already
// run Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to conn and ensures the schema exists.
func NewPostgresStore(ctx context.Context, conn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres store: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS downloads (
	id         TEXT PRIMARY KEY,
	url        TEXT NOT NULL,
	platform   TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	timestamp  BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`)
	return err
}

// CreateDownloadRecord inserts one record for a completed job.
func (s *PostgresStore) CreateDownloadRecord(ctx context.Context, url string, platform domain.Platform, userID string, timestamp int64) (domain.DownloadRecord, error) {
	rec := domain.DownloadRecord{
		ID:        uuid.NewString(),
		URL:       url,
		Platform:  platform,
		UserID:    userID,
		Timestamp: timestamp,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO downloads (id, url, platform, user_id, timestamp, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.URL, string(rec.Platform), rec.UserID, rec.Timestamp, rec.CreatedAt)
	if err != nil {
		return domain.DownloadRecord{}, fmt.Errorf("insert download record: %w", err)
	}
	return rec, nil
}

// RecentRecords returns up to limit records, newest first.
func (s *PostgresStore) RecentRecords(ctx context.Context, limit int) ([]domain.DownloadRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
SELECT id, url, platform, user_id, timestamp, created_at
FROM downloads ORDER BY created_at DESC LIMIT $1`, limit)
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

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
