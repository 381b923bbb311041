package crawler

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/postgres"
)

type PageStatus string

const (
	StatusCrawled PageStatus = "CRAWLED"
	StatusFailed  PageStatus = "FAILED"
)

// StatusStore records the outcome of each fetch.
type StatusStore interface {
	Record(ctx context.Context, crawlID, url string, status PageStatus, words int, cause error) error
}

const schema = `CREATE TABLE IF NOT EXISTS crawled_pages (
	url        TEXT PRIMARY KEY,
	crawl_id   TEXT NOT NULL,
	status     TEXT NOT NULL,
	words      INTEGER NOT NULL DEFAULT 0,
	error      TEXT,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const upsert = `INSERT INTO crawled_pages (url, crawl_id, status, words, error, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW())
ON CONFLICT (url) DO UPDATE SET
	crawl_id = EXCLUDED.crawl_id,
	status = EXCLUDED.status,
	words = EXCLUDED.words,
	error = EXCLUDED.error,
	updated_at = EXCLUDED.updated_at`

// PostgresStore keeps one row per URL in crawled_pages.
type PostgresStore struct {
	db *postgres.Client
}

// NewPostgresStore creates the crawled_pages table if needed.
func NewPostgresStore(ctx context.Context, db *postgres.Client) (*PostgresStore, error) {
	if err := db.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("creating crawled_pages: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Record(ctx context.Context, crawlID, url string, status PageStatus, words int, cause error) error {
	var msg any
	if cause != nil {
		msg = cause.Error()
	}
	if _, err := s.db.DB.ExecContext(ctx, upsert, url, crawlID, string(status), words, msg); err != nil {
		return fmt.Errorf("recording %s as %s: %w", url, status, err)
	}
	return nil
}

// Counts returns the number of pages per status for one crawl.
func (s *PostgresStore) Counts(ctx context.Context, crawlID string) (map[PageStatus]int, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM crawled_pages WHERE crawl_id = $1 GROUP BY status`, crawlID)
	if err != nil {
		return nil, fmt.Errorf("counting pages of %s: %w", crawlID, err)
	}
	defer rows.Close()
	counts := make(map[PageStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		counts[PageStatus(status)] = n
	}
	return counts, rows.Err()
}
