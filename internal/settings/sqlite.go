package settings

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteProvider implements Provider against the ArchiveSettings table
// schema specified in §6, backed by modernc.org/sqlite — grounded in the
// teacher's checkpoint.State (internal/checkpoint/state.go), applied here
// to settings instead of run/task checkpoints.
type SQLiteProvider struct {
	db *sql.DB
}

// OpenSQLite opens (creating if absent) the settings database at path and
// runs its migration.
func OpenSQLite(path string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening settings database: %w", err)
	}
	p := &SQLiteProvider{db: db}
	if err := p.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

func (p *SQLiteProvider) migrate() error {
	_, err := p.db.Exec(`
		CREATE TABLE IF NOT EXISTS archive_settings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source_connection_name TEXT NOT NULL,
			target_connection_name TEXT NOT NULL,
			table_name TEXT NOT NULL,
			date_column TEXT NOT NULL,
			primary_key_column TEXT NOT NULL,
			online_retention_date TEXT NOT NULL,
			history_retention_date TEXT NOT NULL,
			batch_size INTEGER NOT NULL DEFAULT 0,
			csv_enabled INTEGER NOT NULL DEFAULT 0,
			csv_root_folder TEXT,
			is_physical_delete_enabled INTEGER NOT NULL DEFAULT 0,
			enabled INTEGER NOT NULL DEFAULT 1
		);
	`)
	if err != nil {
		return fmt.Errorf("migrating settings database: %w", err)
	}
	return nil
}

func (p *SQLiteProvider) ListAll(ctx context.Context) ([]ArchiveSetting, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, source_connection_name, target_connection_name, table_name,
		       date_column, primary_key_column, online_retention_date, history_retention_date,
		       batch_size, csv_enabled, csv_root_folder, is_physical_delete_enabled, enabled
		FROM archive_settings
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("listing archive settings: %w", err)
	}
	defer rows.Close()

	var out []ArchiveSetting
	for rows.Next() {
		var s ArchiveSetting
		var onlineStr, historyStr string
		var csvRoot sql.NullString
		if err := rows.Scan(&s.ID, &s.SourceConnection, &s.TargetConnection, &s.TableName,
			&s.DateColumn, &s.PrimaryKeyColumn, &onlineStr, &historyStr,
			&s.BatchSize, &s.CsvEnabled, &csvRoot, &s.PhysicalDeleteEnabled, &s.Enabled); err != nil {
			return nil, fmt.Errorf("scanning archive setting: %w", err)
		}
		s.CsvRootFolder = csvRoot.String
		if s.OnlineCutoff, err = parseDateOnly(onlineStr); err != nil {
			return nil, fmt.Errorf("setting %d: online_retention_date: %w", s.ID, err)
		}
		if s.HistoryCutoff, err = parseDateOnly(historyStr); err != nil {
			return nil, fmt.Errorf("setting %d: history_retention_date: %w", s.ID, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Insert adds one setting row, used by tests and first-run bootstrapping.
func (p *SQLiteProvider) Insert(ctx context.Context, s ArchiveSetting) (int64, error) {
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO archive_settings (
			source_connection_name, target_connection_name, table_name, date_column,
			primary_key_column, online_retention_date, history_retention_date, batch_size,
			csv_enabled, csv_root_folder, is_physical_delete_enabled, enabled
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.SourceConnection, s.TargetConnection, s.TableName, s.DateColumn, s.PrimaryKeyColumn,
		s.OnlineCutoff.Format("2006-01-02"), s.HistoryCutoff.Format("2006-01-02"), s.BatchSize,
		s.CsvEnabled, s.CsvRootFolder, s.PhysicalDeleteEnabled, s.Enabled)
	if err != nil {
		return 0, fmt.Errorf("inserting archive setting: %w", err)
	}
	return res.LastInsertId()
}

// Close releases the underlying database handle.
func (p *SQLiteProvider) Close() error {
	return p.db.Close()
}
