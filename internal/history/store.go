package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one finished transcription
type Entry struct {
	ID              int64     `json:"id"`
	SessionID       string    `json:"session_id"`
	Source          string    `json:"source"`
	Text            string    `json:"text"`
	DurationSeconds float64   `json:"duration_seconds"`
	RecordingPath   string    `json:"recording_path,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Config controls the transcript store
type Config struct {
	Path          string
	RetentionDays int
}

// Store wraps a SQLite-backed transcript history. A nil *Store is a
// valid no-op store for when persistence is disabled.
type Store struct {
	db    *sql.DB
	cfg   Config
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the transcript store at the configured path
func Open(ctx context.Context, cfg Config, log *slog.Logger) (*Store, error) {
	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log, clock: time.Now}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if err := s.Prune(ctx); err != nil {
		log.Warn("History prune on start failed", "error", err)
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS transcripts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    source TEXT NOT NULL,
    text TEXT NOT NULL,
    duration_seconds REAL NOT NULL,
    recording_path TEXT,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transcripts_created ON transcripts(created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Close releases underlying resources
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Insert stores one finished transcript
func (s *Store) Insert(ctx context.Context, entry Entry) error {
	if s == nil || s.db == nil {
		return nil
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.clock().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transcripts(session_id, source, text, duration_seconds, recording_path, created_at)
		 VALUES(?, ?, ?, ?, ?, ?)`,
		entry.SessionID, entry.Source, entry.Text, entry.DurationSeconds, entry.RecordingPath,
		entry.CreatedAt.Format(time.RFC3339Nano))
	return err
}

// Recent returns up to limit transcripts, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, source, text, duration_seconds, recording_path, created_at
		 FROM transcripts ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Source, &e.Text, &e.DurationSeconds, &e.RecordingPath, &created); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			e.CreatedAt = ts
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes transcripts older than the configured retention
func (s *Store) Prune(ctx context.Context) error {
	if s == nil || s.db == nil || s.cfg.RetentionDays <= 0 {
		return nil
	}
	cutoff := s.clock().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM transcripts WHERE created_at < ?`,
		cutoff.UTC().Format(time.RFC3339Nano))
	return err
}
