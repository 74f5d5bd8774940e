package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/andresmejia3/doorman/internal/types"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite is the embedded EventStore for single-box deployments.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database file at path. ":memory:" works for tests.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one writer; an in-memory database also lives only as long as its connection
	db.SetMaxOpenConns(1)

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS unlock_events (
			id          TEXT PRIMARY KEY,
			unlocked_at TEXT NOT NULL,
			label       TEXT NOT NULL,
			confidence  REAL NOT NULL,
			faces       TEXT NOT NULL DEFAULT '[]'
		)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close(context.Context) {
	s.db.Close()
}

func (s *SQLite) InsertUnlockEvent(ctx context.Context, ev types.UnlockEvent) error {
	faces, err := encodeFaces(ev.Faces)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO unlock_events (id, unlocked_at, label, confidence, faces) VALUES (?, ?, ?, ?, ?)`,
		ev.ID, ev.At.UTC().Format(timeLayout), ev.Label, ev.Confidence, faces)
	if err != nil {
		return fmt.Errorf("insert unlock event: %w", err)
	}
	return nil
}

func (s *SQLite) ListUnlockEvents(ctx context.Context, limit int) ([]types.UnlockEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, unlocked_at, label, confidence, faces FROM unlock_events ORDER BY unlocked_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []types.UnlockEvent
	for rows.Next() {
		var ev types.UnlockEvent
		var at, faces string
		if err := rows.Scan(&ev.ID, &at, &ev.Label, &ev.Confidence, &faces); err != nil {
			return nil, err
		}
		if ev.At, err = time.Parse(timeLayout, at); err != nil {
			return nil, err
		}
		if ev.Faces, err = decodeFaces(faces); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *SQLite) Reset(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS unlock_events`)
	return err
}
