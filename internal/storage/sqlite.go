package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists reports and sent stories in a SQLite database.
type SQLiteStore struct {
	db      *sql.DB
	sentTTL time.Duration
	now     func() time.Time
}

func OpenSQLite(path string, sentTTL time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A second connection to ":memory:" would see an empty database.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=10000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &SQLiteStore{db: db, sentTTL: sentTTL, now: time.Now}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		stories TEXT NOT NULL,
		stats TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at);

	CREATE TABLE IF NOT EXISTS sent_stories (
		key TEXT PRIMARY KEY,
		headline TEXT NOT NULL,
		url TEXT,
		sent_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sent_stories_sent_at ON sent_stories(sent_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveReport(ctx context.Context, r Report) error {
	stories, err := json.Marshal(r.Stories)
	if err != nil {
		return fmt.Errorf("failed to marshal stories: %w", err)
	}
	stats, err := json.Marshal(r.Stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (id, created_at, stories, stats) VALUES (?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET created_at = excluded.created_at, stories = excluded.stories, stats = excluded.stats`,
		r.ID, r.CreatedAt.UnixNano(), string(stories), string(stats))
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LatestReport(ctx context.Context) (*Report, error) {
	reports, err := s.ListReports(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, ErrNotFound
	}
	return &reports[0], nil
}

func (s *SQLiteStore) ListReports(ctx context.Context, limit int) ([]Report, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, stories, stats FROM reports ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var out []Report
	for rows.Next() {
		var (
			r              Report
			createdAt      int64
			stories, stats string
		)
		if err := rows.Scan(&r.ID, &createdAt, &stories, &stats); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		r.CreatedAt = time.Unix(0, createdAt).UTC()
		if err := json.Unmarshal([]byte(stories), &r.Stories); err != nil {
			return nil, fmt.Errorf("failed to unmarshal stories of %s: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(stats), &r.Stats); err != nil {
			return nil, fmt.Errorf("failed to unmarshal stats of %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) IsAlreadySent(ctx context.Context, key string) (bool, error) {
	var sentAt int64
	err := s.db.QueryRowContext(ctx, `SELECT sent_at FROM sent_stories WHERE key = ?`, key).Scan(&sentAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check sent story: %w", err)
	}
	return sentAt > s.cutoff(), nil
}

func (s *SQLiteStore) MarkAsSent(ctx context.Context, key, headline, url string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sent_stories (key, headline, url, sent_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET sent_at = excluded.sent_at`,
		key, headline, url, s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to mark as sent: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Cleanup(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sent_stories WHERE sent_at <= ?`, s.cutoff()); err != nil {
		return fmt.Errorf("failed to cleanup: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) cutoff() int64 {
	return s.now().Add(-s.sentTTL).UnixNano()
}
