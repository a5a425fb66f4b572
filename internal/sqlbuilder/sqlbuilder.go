// Package sqlbuilder emits the dialect-neutral SQL strings the archive
// engine needs: the existence-probe SELECT used for target-side
// de-duplication, the chunked DELETE-IN, and a multi-row INSERT fallback
// for dialects without a native bulk-load path. Every identifier passes
// through the supplied Dialect's quoting; every value is a bound
// parameter — no value is ever interpolated into the returned string.
package sqlbuilder

import (
	"fmt"
	"strings"

	"github.com/johndauphine/archive-engine/internal/dialect"
)

// Builder emits SQL text for one Dialect.
type Builder struct {
	d dialect.Dialect
}

// New returns a Builder bound to d.
func New(d dialect.Dialect) *Builder {
	return &Builder{d: d}
}

// ExistingPKQuery returns "SELECT CAST(pk AS VARCHAR(255)) FROM table WHERE pk IN (...)"
// for n id placeholders, used to probe which of a batch's primary keys
// already exist in the target before a bulk-load (§4.3 step 2).
func (b *Builder) ExistingPKQuery(schema, table, pkCol string, n int) string {
	return fmt.Sprintf(
		"SELECT CAST(%s AS VARCHAR(255)) FROM %s WHERE %s",
		b.d.QuoteIdentifier(pkCol),
		b.d.QualifyTable(schema, table),
		dialect.InClause(b.d, pkCol, 1, n),
	)
}

// DeleteByPKQuery returns "DELETE FROM table WHERE pk IN (...)" for n id
// placeholders, used for the chunked source/target delete (§4.3).
func (b *Builder) DeleteByPKQuery(schema, table, pkCol string, n int) string {
	return fmt.Sprintf(
		"DELETE FROM %s WHERE %s",
		b.d.QualifyTable(schema, table),
		dialect.InClause(b.d, pkCol, 1, n),
	)
}

// MultiRowInsertQuery returns an "INSERT INTO table (cols) VALUES (...), (...)"
// statement for nRows rows of len(cols) values each — the fallback
// bulk-load form for dialects without a native bulk-load protocol (§4.3,
// "alternative equivalent").
func (b *Builder) MultiRowInsertQuery(schema, table string, cols []string, nRows int) string {
	quotedCols := make([]string, len(cols))
	for i, c := range cols {
		quotedCols[i] = b.d.QuoteIdentifier(c)
	}

	tuples := make([]string, nRows)
	idx := 1
	for r := 0; r < nRows; r++ {
		ph := make([]string, len(cols))
		for c := range cols {
			ph[c] = b.d.Placeholder(idx)
			idx++
		}
		tuples[r] = "(" + strings.Join(ph, ", ") + ")"
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES %s",
		b.d.QualifyTable(schema, table),
		strings.Join(quotedCols, ", "),
		strings.Join(tuples, ", "),
	)
}

// CursorQuery returns the keyset-pagination SELECT described in §4.2:
// rows strictly older than cutoff, ordered by (dateCol, pkCol), advancing
// past the given cursor when hasCursor is true, read-past-hinted per
// dialect, limited to size rows. An empty cols selects "*" — the caller
// doesn't yet know the table's columns before the first batch comes back.
//
// Placeholder order: cutoff, [lastDate, lastPK if hasCursor], limit.
func (b *Builder) CursorQuery(schema, table, dateCol, pkCol string, cols []string, hasCursor bool) string {
	selectList := "*"
	if len(cols) > 0 {
		quotedCols := make([]string, len(cols))
		for i, c := range cols {
			quotedCols[i] = b.d.QuoteIdentifier(c)
		}
		selectList = strings.Join(quotedCols, ", ")
	}

	hint := b.d.ReadPastHint()
	if hint != "" {
		hint = " " + hint
	}

	qDate := b.d.QuoteIdentifier(dateCol)
	qPK := b.d.QuoteIdentifier(pkCol)

	next := 1
	ph := func() string {
		p := b.d.Placeholder(next)
		next++
		return p
	}

	cutoffPH := ph()
	cursorClause := ""
	if hasCursor {
		lastDatePH := ph()
		lastPKPH := ph()
		cursorClause = fmt.Sprintf(" AND (%s > %s OR (%s = %s AND %s > %s))",
			qDate, lastDatePH, qDate, lastDatePH, qPK, lastPKPH)
	}
	limitPH := ph()

	switch b.d.Name() {
	case "mssql":
		return fmt.Sprintf(
			"SELECT TOP (%s) %s FROM %s%s WHERE %s < %s%s ORDER BY %s ASC, %s ASC",
			limitPH, selectList, b.d.QualifyTable(schema, table), hint,
			qDate, cutoffPH, cursorClause, qDate, qPK,
		)
	default:
		return fmt.Sprintf(
			"SELECT %s FROM %s WHERE %s < %s%s ORDER BY %s ASC, %s ASC LIMIT %s",
			selectList, b.d.QualifyTable(schema, table),
			qDate, cutoffPH, cursorClause, qDate, qPK, limitPH,
		)
	}
}
