// Package row models a single database row as an ordered name→value map.
// Tables are discovered at runtime from ArchiveSetting configuration, not
// known at compile time, so the engine never imposes a struct schema on a
// row — only a stable column order and named lookup.
package row

import (
	"fmt"

	"github.com/johndauphine/archive-engine/internal/archiveerr"
)

// Row is an ordered mapping from column name to value. Column order
// matches the order columns were selected in; Values[i] corresponds to
// Columns[i].
type Row struct {
	Columns []string
	Values  []any
}

// New builds a Row from parallel column/value slices. Panics if the
// lengths disagree — a caller bug, not a runtime condition to recover
// from.
func New(columns []string, values []any) Row {
	if len(columns) != len(values) {
		panic(fmt.Sprintf("row: %d columns but %d values", len(columns), len(values)))
	}
	return Row{Columns: columns, Values: values}
}

// Get returns the value stored under column name and whether it was found.
func (r Row) Get(name string) (any, bool) {
	for i, c := range r.Columns {
		if c == name {
			return r.Values[i], true
		}
	}
	return nil, false
}

// MustGet returns the value under column name, or a ConfigurationError if
// the column is absent — the batch is malformed, not merely missing a
// value.
func (r Row) MustGet(name string) (any, error) {
	v, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: row: missing required column %q", archiveerr.ErrConfiguration, name)
	}
	return v, nil
}

// Batch is an ordered sequence of rows returned together by a single
// CursorBatchReader call.
type Batch []Row

// Empty reports whether the batch has no rows — emptiness is terminal for
// a phase (§4.2).
func (b Batch) Empty() bool { return len(b) == 0 }
