package gateway

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/johndauphine/archive-engine/internal/dialect"
	"github.com/johndauphine/archive-engine/internal/row"
	"github.com/johndauphine/archive-engine/internal/sqlbuilder"
)

// MSSQL implements Gateway over database/sql with the go-mssqldb driver.
// It has no native binary bulk-load protocol wired here, so BulkLoad
// falls back to the multi-row INSERT form the spec permits as an
// equivalent (§4.3, "alternative equivalent").
type MSSQL struct {
	db *sql.DB
}

// NewMSSQL opens dsn and returns a ready Gateway.
func NewMSSQL(ctx context.Context, dsn string) (*MSSQL, error) {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening mssql connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging mssql: %w", err)
	}
	return &MSSQL{db: db}, nil
}

func (g *MSSQL) Dialect() dialect.Dialect { return dialect.MSSQL{} }

func (g *MSSQL) QueryBatch(ctx context.Context, query string, args ...any) (row.Batch, error) {
	rows, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var batch row.Batch
	for rows.Next() {
		vals := make([]any, len(cols))
		scanDests := make([]any, len(cols))
		for i := range vals {
			scanDests[i] = &vals[i]
		}
		if err := rows.Scan(scanDests...); err != nil {
			return nil, err
		}
		batch = append(batch, row.New(cols, vals))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return batch, nil
}

func (g *MSSQL) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := g.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// maxRowsPerInsert bounds how many rows one multi-row INSERT statement
// carries, so len(cols)*rows never exceeds MaxParamsPerCommand.
func maxRowsPerInsert(numCols int) int {
	if numCols <= 0 {
		numCols = 1
	}
	n := dialect.MaxParamsPerCommand / numCols
	if n < 1 {
		n = 1
	}
	return n
}

func (g *MSSQL) BulkLoad(ctx context.Context, schema, table string, cols []string, rows row.Batch) error {
	if len(rows) == 0 {
		return nil
	}

	builder := sqlbuilder.New(g.Dialect())
	chunkSize := maxRowsPerInsert(len(cols))

	for start := 0; start < len(rows); start += chunkSize {
		end := start + chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		args := make([]any, 0, len(chunk)*len(cols))
		for _, r := range chunk {
			args = append(args, orderedValues(r, cols)...)
		}

		query := builder.MultiRowInsertQuery(schema, table, cols, len(chunk))
		if _, err := g.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("bulk loading into %s.%s: %w", schema, table, err)
		}
	}
	return nil
}

func (g *MSSQL) Close() error {
	return g.db.Close()
}
