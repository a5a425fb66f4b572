// Package cursor implements CursorBatchReader: a lazy sequence of row
// batches strictly older than a cutoff, advancing a monotonic
// (date, primary key) cursor across calls (§4.2).
package cursor

import (
	"context"
	"fmt"
	"time"

	"github.com/johndauphine/archive-engine/internal/gateway"
	"github.com/johndauphine/archive-engine/internal/row"
	"github.com/johndauphine/archive-engine/internal/sqlbuilder"
)

// Cursor is the (lastDate, lastPrimaryKey) position within one phase's
// execution. The zero value represents "no cursor yet" — the first call
// to Next omits the cursor predicate (§3).
type Cursor struct {
	set        bool
	lastDate   time.Time
	lastPK     any
}

// Advance returns the cursor positioned at row r's date/pk columns.
func Advance(dateCol, pkCol string, r row.Row) (Cursor, error) {
	dv, err := r.MustGet(dateCol)
	if err != nil {
		return Cursor{}, err
	}
	pk, err := r.MustGet(pkCol)
	if err != nil {
		return Cursor{}, err
	}
	t, ok := dv.(time.Time)
	if !ok {
		return Cursor{}, fmt.Errorf("cursor: column %q is not a date/time value (got %T)", dateCol, dv)
	}
	return Cursor{set: true, lastDate: t, lastPK: pk}, nil
}

// Reader produces successive batches from one table via gw, strictly
// older than cutoff, in (date, pk) order.
type Reader struct {
	gw      gateway.Gateway
	builder *sqlbuilder.Builder
}

// New returns a Reader over gw.
func New(gw gateway.Gateway) *Reader {
	return &Reader{gw: gw, builder: sqlbuilder.New(gw.Dialect())}
}

// Next returns the next batch of at most size rows from schema.table
// where dateCol < cutoff, strictly past cur, ordered by (dateCol, pkCol).
// An empty batch is terminal for the phase (§4.2).
func (r *Reader) Next(ctx context.Context, schema, table, dateCol, pkCol string, cols []string, cutoff time.Time, size int, cur Cursor) (row.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := r.builder.CursorQuery(schema, table, dateCol, pkCol, cols, cur.set)

	args := []any{cutoff}
	if cur.set {
		args = append(args, cur.lastDate, cur.lastPK)
	}
	args = append(args, size)

	batch, err := r.gw.QueryBatch(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("reading batch from %s: %w", r.gw.Dialect().QualifyTable(schema, table), err)
	}
	return batch, nil
}
