// Package dialect isolates the dialect-specific slivers of SQL the archive
// engine must emit: identifier quoting, parameter placeholders, and
// row-locking hints. Every identifier the engine writes into a SQL string
// passes through a Dialect; every value travels as a bound parameter.
package dialect

import (
	"fmt"
	"strings"
)

// identAllowed is the defensive allow-list for characters permitted in a
// bare identifier before quoting. Quoting alone makes injection through
// identifiers hard; this catches stray delimiter and control characters
// that quoting doesn't neutralize for every driver.
func identAllowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
	case r >= 'A' && r <= 'Z':
	case r >= '0' && r <= '9':
	case r == '_' || r == '.' || r == '$':
	default:
		return false
	}
	return true
}

// ValidIdentifier reports whether name contains only characters from the
// defensive allow-list. Settings carry operator-chosen identifiers, not
// user input, but the engine still refuses to quote something that looks
// like it escaped its column.
func ValidIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !identAllowed(r) {
			return false
		}
	}
	return true
}

// Dialect supplies the identifier-quoting and placeholder conventions the
// rest of the engine needs to stay dialect-neutral.
type Dialect interface {
	// Name identifies the dialect for logging and policy-name construction.
	Name() string

	// QuoteIdentifier encloses name in the dialect's identifier delimiter,
	// escaping any embedded delimiter characters.
	QuoteIdentifier(name string) string

	// QualifyTable returns a schema-qualified, quoted table reference, or
	// just the quoted table name when schema is empty.
	QualifyTable(schema, table string) string

	// Placeholder returns the parameter placeholder for the 1-based
	// position index ("$1", "@p1", "?", ...).
	Placeholder(index int) string

	// ReadPastHint returns the table-hint or query-suffix fragment that
	// skips row-locked rows during a cursor read (SQL Server's READPAST).
	// Returns "" when the dialect relies on MVCC instead (Postgres).
	ReadPastHint() string
}

// MaxParamsPerCommand bounds every IN-list this engine emits, per spec.
const MaxParamsPerCommand = 1000

// ChunkStrings splits ids into chunks of at most size elements (defaulting
// to MaxParamsPerCommand when size <= 0), preserving order. Used by both
// the source-side delete and the target-side existence filter.
func ChunkStrings(ids []string, size int) [][]string {
	if size <= 0 {
		size = MaxParamsPerCommand
	}
	if len(ids) == 0 {
		return nil
	}
	var chunks [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

// placeholderList renders n placeholders starting at startIndex (1-based)
// using d's convention, joined by ", ".
func placeholderList(d Dialect, startIndex, n int) string {
	ph := make([]string, n)
	for i := 0; i < n; i++ {
		ph[i] = d.Placeholder(startIndex + i)
	}
	return strings.Join(ph, ", ")
}

// InClause renders "col IN (ph, ph, ...)" for n values starting at
// placeholder index startIndex.
func InClause(d Dialect, column string, startIndex, n int) string {
	return fmt.Sprintf("%s IN (%s)", d.QuoteIdentifier(column), placeholderList(d, startIndex, n))
}
