package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"NomadScanner/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	base_url TEXT NOT NULL,
	codes TEXT NOT NULL,
	status TEXT NOT NULL,
	started_at DATETIME NOT NULL,
	finished_at DATETIME,
	codes_processed INTEGER NOT NULL DEFAULT 0,
	picked_entries INTEGER NOT NULL DEFAULT 0,
	error_message TEXT
);`

// SQLiteHistory keeps one row per collection run for later inspection.
type SQLiteHistory struct {
	db *sql.DB
}

var _ ports.RunHistory = (*SQLiteHistory)(nil)

// Open creates or opens the history database and ensures the schema.
func Open(path string) (*SQLiteHistory, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure runs table: %w", err)
	}

	return &SQLiteHistory{db: db}, nil
}

// StartRun inserts a pending row for the run.
func (h *SQLiteHistory) StartRun(ctx context.Context, runID, baseURL string, codes []string) error {
	_, err := sq.Insert("runs").
		Columns("id", "base_url", "codes", "status", "started_at").
		Values(runID, baseURL, strings.Join(codes, ","), "running", time.Now().UTC()).
		RunWith(h.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", runID, err)
	}
	return nil
}

// FinishRun records the final status and counters for the run.
func (h *SQLiteHistory) FinishRun(ctx context.Context, runID, status string, codesProcessed, pickedEntries int, runErr error) error {
	update := sq.Update("runs").
		Set("status", status).
		Set("finished_at", time.Now().UTC()).
		Set("codes_processed", codesProcessed).
		Set("picked_entries", pickedEntries).
		Where(sq.Eq{"id": runID})
	if runErr != nil {
		update = update.Set("error_message", runErr.Error())
	}

	if _, err := update.RunWith(h.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("update run %s: %w", runID, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (h *SQLiteHistory) Close() error {
	return h.db.Close()
}
