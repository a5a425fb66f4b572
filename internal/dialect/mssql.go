package dialect

import (
	"fmt"
	"strings"
)

// MSSQL implements Dialect for SQL Server sources.
type MSSQL struct{}

func (MSSQL) Name() string { return "mssql" }

func (MSSQL) QuoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (d MSSQL) QualifyTable(schema, table string) string {
	if schema == "" {
		return d.QuoteIdentifier(table)
	}
	return d.QuoteIdentifier(schema) + "." + d.QuoteIdentifier(table)
}

func (MSSQL) Placeholder(index int) string {
	return fmt.Sprintf("@p%d", index)
}

// ReadPastHint skips rows held under a row lock by a concurrent writer so
// the cursor read doesn't stall behind it. A skipped row is picked up on a
// later run, which the engine treats as correct (§4.2 of the spec).
func (MSSQL) ReadPastHint() string { return "WITH (READPAST)" }
