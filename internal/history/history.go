// Package history records agent executions in an embedded SQLite
// database so past runs can be inspected after the fact.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/shiki-ai/shiki/internal/model"
)

// Store persists execution records. All methods are safe for
// concurrent use; database/sql serializes access to the single
// connection modernc.org/sqlite provides.
type Store struct {
	db *sql.DB
}

// Open creates or opens the history database at dbPath and applies the
// schema.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", dbPath, err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS executions (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL,
		status TEXT NOT NULL,
		output_file TEXT,
		result_preview TEXT,
		error TEXT,
		started_at TIMESTAMP NOT NULL,
		duration_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_executions_agent ON executions(agent_id);
	CREATE INDEX IF NOT EXISTS idx_executions_started ON executions(started_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("history: migrate: %w", err)
	}
	return nil
}

// Record inserts one execution record. A zero record ID is assigned.
func (s *Store) Record(ctx context.Context, rec model.ExecutionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO executions (id, agent_id, status, output_file, result_preview, error, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.AgentID, string(rec.Status), rec.OutputFile, rec.Preview, rec.Error,
		rec.StartedAt.UTC().Format(time.RFC3339Nano), rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("history: record execution: %w", err)
	}
	return nil
}

// List returns the most recent executions, newest first. agentID
// filters to one agent when non-empty; limit caps the result and
// defaults to 50.
func (s *Store) List(ctx context.Context, agentID string, limit int) ([]model.ExecutionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, agent_id, status, output_file, result_preview, error, started_at, duration_ms
		FROM executions`
	args := []any{}
	if agentID != "" {
		query += ` WHERE agent_id = ?`
		args = append(args, agentID)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: list executions: %w", err)
	}
	defer rows.Close()

	var out []model.ExecutionRecord
	for rows.Next() {
		var rec model.ExecutionRecord
		var status, startedAt string
		var durationMS int64
		if err := rows.Scan(&rec.ID, &rec.AgentID, &status, &rec.OutputFile, &rec.Preview, &rec.Error, &startedAt, &durationMS); err != nil {
			return nil, fmt.Errorf("history: scan execution: %w", err)
		}
		rec.Status = model.Status(status)
		ts, err := time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("history: parse started_at %q: %w", startedAt, err)
		}
		rec.StartedAt = ts
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		rec.DurationMS = durationMS
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: list executions: %w", err)
	}
	return out, nil
}
