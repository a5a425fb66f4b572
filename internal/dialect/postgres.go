package dialect

import (
	"fmt"
	"strings"
)

// Postgres implements Dialect for PostgreSQL-family targets and sources.
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d Postgres) QualifyTable(schema, table string) string {
	if schema == "" {
		return d.QuoteIdentifier(table)
	}
	return d.QuoteIdentifier(schema) + "." + d.QuoteIdentifier(table)
}

func (Postgres) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

// ReadPastHint is empty for Postgres: MVCC snapshot isolation means a
// plain read never blocks behind a row-level write lock, so there's no
// dialect-level hint to skip locked rows for a read-only cursor query.
func (Postgres) ReadPastHint() string { return "" }
