// Package gateway implements DatabaseGateway: connection handling,
// parameterized query execution, and the dialect-specific fast path for
// bulk-loading a batch of rows into a target table.
package gateway

import (
	"context"
	"time"

	"github.com/johndauphine/archive-engine/internal/dialect"
	"github.com/johndauphine/archive-engine/internal/row"
)

// BulkLoadTimeout is the fixed timeout for a bulk-load operation (§4.3).
const BulkLoadTimeout = 180 * time.Second

// Gateway opens connections by logical name or full connection string and
// executes parameterized queries, bulk-loads, and scalar probes against
// one database. Implementations are dialect-specific; the rest of the
// engine only depends on this interface.
type Gateway interface {
	// Dialect returns the SQL dialect this gateway speaks.
	Dialect() dialect.Dialect

	// QueryBatch runs query with args and returns every row, preserving
	// column order as returned by the driver.
	QueryBatch(ctx context.Context, query string, args ...any) (row.Batch, error)

	// Exec runs query with args and returns the number of rows affected.
	Exec(ctx context.Context, query string, args ...any) (int64, error)

	// BulkLoad inserts rows into schema.table using cols as the column
	// list, via the fastest mechanism the dialect offers. Callers must
	// have already filtered out rows that would violate a primary-key
	// uniqueness constraint (§4.3's filter step happens before BulkLoad
	// is called, not inside it).
	BulkLoad(ctx context.Context, schema, table string, cols []string, rows row.Batch) error

	// Close releases the underlying connection pool.
	Close() error
}

// Config describes how to reach one database: either a logical name that
// resolves via an external connection registry, or a full DSN.
type Config struct {
	DialectName string
	DSN         string
}
