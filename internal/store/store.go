package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/andresmejia3/doorman/internal/types"
	"github.com/jackc/pgx/v5"
)

// EventStore persists unlock events for later auditing.
type EventStore interface {
	InsertUnlockEvent(ctx context.Context, ev types.UnlockEvent) error
	ListUnlockEvents(ctx context.Context, limit int) ([]types.UnlockEvent, error)
	Reset(ctx context.Context) error
	Close(ctx context.Context)
}

// Open picks the backend from the URL scheme: sqlite:// for an embedded file,
// anything else is handed to pgx.
func Open(ctx context.Context, url string) (EventStore, error) {
	if path, ok := strings.CutPrefix(url, "sqlite://"); ok {
		return NewSQLite(ctx, path)
	}
	return New(ctx, url)
}

// Store manages the PostgreSQL connection.
type Store struct {
	conn *pgx.Conn
}

// New establishes a connection to the database and ensures the schema is initialized.
func New(ctx context.Context, connString string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	// Initialize schema (Auto-Migration)
	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

// initSchema creates the audit table if it doesn't exist (Auto-Migration).
func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS unlock_events (
			id TEXT PRIMARY KEY,
			unlocked_at TIMESTAMPTZ NOT NULL,
			label TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			faces JSONB NOT NULL DEFAULT '[]'
		);
		CREATE INDEX IF NOT EXISTS unlock_events_unlocked_at_idx ON unlock_events (unlocked_at DESC);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Store) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

// InsertUnlockEvent appends one audit row. Events are write-once.
func (s *Store) InsertUnlockEvent(ctx context.Context, ev types.UnlockEvent) error {
	faces, err := encodeFaces(ev.Faces)
	if err != nil {
		return err
	}
	_, err = s.conn.Exec(ctx, `
		INSERT INTO unlock_events (id, unlocked_at, label, confidence, faces)
		VALUES ($1, $2, $3, $4, $5::jsonb)
	`, ev.ID, ev.At, ev.Label, ev.Confidence, faces)
	return err
}

// ListUnlockEvents returns the newest events first.
func (s *Store) ListUnlockEvents(ctx context.Context, limit int) ([]types.UnlockEvent, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, unlocked_at, label, confidence, faces::text
		FROM unlock_events ORDER BY unlocked_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []types.UnlockEvent
	for rows.Next() {
		var ev types.UnlockEvent
		var faces string
		if err := rows.Scan(&ev.ID, &ev.At, &ev.Label, &ev.Confidence, &faces); err != nil {
			return nil, err
		}
		if ev.Faces, err = decodeFaces(faces); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Reset drops the audit table to clear the database state.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `DROP TABLE IF EXISTS unlock_events CASCADE;`)
	return err
}

func encodeFaces(faces []types.Face) (string, error) {
	if faces == nil {
		faces = []types.Face{}
	}
	data, err := json.Marshal(faces)
	if err != nil {
		return "", fmt.Errorf("failed to encode faces: %w", err)
	}
	return string(data), nil
}

func decodeFaces(raw string) ([]types.Face, error) {
	var faces []types.Face
	if err := json.Unmarshal([]byte(raw), &faces); err != nil {
		return nil, fmt.Errorf("failed to decode faces: %w", err)
	}
	return faces, nil
}
