package history

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
)

const createHandsTable = `
CREATE TABLE IF NOT EXISTS hand_history (
	hand_id   TEXT PRIMARY KEY,
	table_id  TEXT NOT NULL,
	played_at TIMESTAMPTZ NOT NULL,
	record    JSONB NOT NULL
)`

const insertHand = `
INSERT INTO hand_history (hand_id, table_id, played_at, record)
VALUES ($1, $2, $3, $4)
ON CONFLICT (hand_id) DO NOTHING`

// PostgresSink stores each hand as a JSONB row keyed by hand id.
type PostgresSink struct {
	db *sql.DB
}

// NewPostgresSink connects, pings, and ensures the table exists.
func NewPostgresSink(dsn string) (*PostgresSink, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.Exec(createHandsTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create hand_history table: %w", err)
	}
	return &PostgresSink{db: db}, nil
}

// Name implements Sink.
func (s *PostgresSink) Name() string { return "postgres" }

// Write inserts one record. Replayed hand ids are ignored.
func (s *PostgresSink) Write(rec *HandRecord) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode hand %s: %w", rec.HandID, err)
	}
	if _, err := s.db.Exec(insertHand, rec.HandID, rec.TableID, rec.PlayedAt, doc); err != nil {
		return fmt.Errorf("insert hand %s: %w", rec.HandID, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresSink) Close() error {
	return s.db.Close()
}
