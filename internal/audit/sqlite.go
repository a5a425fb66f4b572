package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteWriter persists run headers and per-table detail rows to a
// SQLite database, grounded on the teacher's runs/tasks checkpoint
// schema (internal/checkpoint/state.go): one row per run, one row per
// table per run, upserted as the table progresses.
type SQLiteWriter struct {
	db *sql.DB
}

// OpenSQLite opens (creating if absent) the audit database at path and
// runs its migration.
func OpenSQLite(path string) (*SQLiteWriter, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening audit database: %w", err)
	}
	w := &SQLiteWriter{db: db}
	if err := w.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return w, nil
}

func (w *SQLiteWriter) migrate() error {
	_, err := w.db.Exec(`
		CREATE TABLE IF NOT EXISTS archive_runs (
			job_run_id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT,
			status TEXT NOT NULL,
			host_name TEXT,
			total_tables INTEGER NOT NULL DEFAULT 0,
			succeeded_tables INTEGER NOT NULL DEFAULT 0,
			failed_tables INTEGER NOT NULL DEFAULT 0,
			message TEXT
		);

		CREATE TABLE IF NOT EXISTS archive_run_tables (
			job_run_id TEXT NOT NULL,
			table_name TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT,
			status TEXT NOT NULL,
			source_scanned INTEGER NOT NULL DEFAULT 0,
			inserted_to_history INTEGER NOT NULL DEFAULT 0,
			deleted_from_source INTEGER NOT NULL DEFAULT 0,
			exported_to_csv INTEGER NOT NULL DEFAULT 0,
			deleted_from_history INTEGER NOT NULL DEFAULT 0,
			message TEXT,
			PRIMARY KEY (job_run_id, table_name)
		);
	`)
	if err != nil {
		return fmt.Errorf("migrating audit database: %w", err)
	}
	return nil
}

func (w *SQLiteWriter) BeginRun(ctx context.Context, hostName string, totalTables int) (string, error) {
	runID := uuid.NewString()
	_, err := w.db.ExecContext(ctx, `
		INSERT INTO archive_runs (job_run_id, started_at, status, host_name, total_tables)
		VALUES (?, datetime('now'), ?, ?, ?)
	`, runID, StatusRunning, hostName, totalTables)
	if err != nil {
		return "", fmt.Errorf("beginning run: %w", err)
	}
	return runID, nil
}

func (w *SQLiteWriter) EndRun(ctx context.Context, runID string, status Status, succeededTables, failedTables int, message string) error {
	_, err := w.db.ExecContext(ctx, `
		UPDATE archive_runs
		SET ended_at = datetime('now'), status = ?, succeeded_tables = ?, failed_tables = ?, message = ?
		WHERE job_run_id = ?
	`, status, succeededTables, failedTables, message, runID)
	if err != nil {
		return fmt.Errorf("ending run %s: %w", runID, err)
	}
	return nil
}

func (w *SQLiteWriter) BeginTable(ctx context.Context, runID, tableName string) error {
	_, err := w.db.ExecContext(ctx, `
		INSERT INTO archive_run_tables (job_run_id, table_name, started_at, status)
		VALUES (?, ?, datetime('now'), ?)
		ON CONFLICT(job_run_id, table_name) DO UPDATE SET
			started_at = datetime('now'), status = excluded.status
	`, runID, tableName, StatusRunning)
	if err != nil {
		return fmt.Errorf("beginning table %s for run %s: %w", tableName, runID, err)
	}
	return nil
}

func (w *SQLiteWriter) EndTable(ctx context.Context, runID, tableName string, c Counters, status Status, message string) error {
	_, err := w.db.ExecContext(ctx, `
		UPDATE archive_run_tables
		SET ended_at = datetime('now'), status = ?,
			source_scanned = ?, inserted_to_history = ?, deleted_from_source = ?,
			exported_to_csv = ?, deleted_from_history = ?, message = ?
		WHERE job_run_id = ? AND table_name = ?
	`, status, c.SourceScanned, c.InsertedToHistory, c.DeletedFromSource,
		c.ExportedToCsv, c.DeletedFromHistory, message, runID, tableName)
	if err != nil {
		return fmt.Errorf("ending table %s for run %s: %w", tableName, runID, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (w *SQLiteWriter) Close() error {
	return w.db.Close()
}
