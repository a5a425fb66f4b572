package gateway

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/johndauphine/archive-engine/internal/dialect"
	"github.com/johndauphine/archive-engine/internal/row"
)

// Postgres implements Gateway over a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to dsn and returns a ready Gateway.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (g *Postgres) Dialect() dialect.Dialect { return dialect.Postgres{} }

func (g *Postgres) QueryBatch(ctx context.Context, query string, args ...any) (row.Batch, error) {
	rows, err := g.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Name
	}

	var batch row.Batch
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		batch = append(batch, row.New(cols, vals))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return batch, nil
}

func (g *Postgres) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := g.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// BulkLoad streams rows into schema.table via pgx's binary COPY protocol —
// the same mechanism the teacher's target pool uses for its staging-table
// upsert, applied here directly against the target table since the
// caller has already filtered out rows that exist (§4.3).
func (g *Postgres) BulkLoad(ctx context.Context, schema, table string, cols []string, rows row.Batch) error {
	if len(rows) == 0 {
		return nil
	}

	conn, err := g.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	copyRows := make([][]any, len(rows))
	for i, r := range rows {
		copyRows[i] = orderedValues(r, cols)
	}

	qualified := dialect.Postgres{}.QualifyTable(schema, table)
	ident := pgx.Identifier{table}
	if schema != "" {
		ident = pgx.Identifier{schema, table}
	}
	_, err = conn.Conn().CopyFrom(ctx, ident, cols, pgx.CopyFromRows(copyRows))
	if err != nil {
		return fmt.Errorf("bulk loading into %s: %w", qualified, err)
	}
	return nil
}

func (g *Postgres) Close() error {
	g.pool.Close()
	return nil
}

// orderedValues returns r's values in cols order, regardless of the order
// they were scanned in.
func orderedValues(r row.Row, cols []string) []any {
	vals := make([]any, len(cols))
	for i, c := range cols {
		v, _ := r.Get(c)
		vals[i] = v
	}
	return vals
}
