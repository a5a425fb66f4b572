// Package audit implements the AuditWriter external collaborator (§6): a
// run header and per-table detail rows the engine emits in real time.
// The audit writer is not on the critical path — a failure to write an
// audit row never fails a run.
package audit

import "context"

// Status is the enum shared by the run header and per-table detail rows.
type Status string

const (
	StatusRunning     Status = "Running"
	StatusSuccess     Status = "Success"
	StatusPartialFail Status = "PartialFail"
	StatusFail        Status = "Fail"
	StatusSkipped     Status = "Skipped"
)

// Counters mirrors the per-table counters §6 requires: rows scanned from
// source, inserted to target, deleted from source, exported to CSV,
// deleted from target.
type Counters struct {
	SourceScanned      int64
	InsertedToHistory  int64
	DeletedFromSource  int64
	ExportedToCsv      int64
	DeletedFromHistory int64
}

// Add accumulates delta into c in place.
func (c *Counters) Add(delta Counters) {
	c.SourceScanned += delta.SourceScanned
	c.InsertedToHistory += delta.InsertedToHistory
	c.DeletedFromSource += delta.DeletedFromSource
	c.ExportedToCsv += delta.ExportedToCsv
	c.DeletedFromHistory += delta.DeletedFromHistory
}

// Writer is the external collaborator consumed by ArchiveEngine.
type Writer interface {
	// BeginRun writes the run header and returns its jobRunId.
	BeginRun(ctx context.Context, hostName string, totalTables int) (string, error)

	// EndRun finalizes the run header with an ended timestamp, the given
	// status, table counts, and a free-form message.
	EndRun(ctx context.Context, runID string, status Status, succeededTables, failedTables int, message string) error

	// BeginTable writes a per-table detail row in Running status.
	BeginTable(ctx context.Context, runID, tableName string) error

	// EndTable finalizes a per-table detail row with final counters,
	// status, and an error message (empty on success).
	EndTable(ctx context.Context, runID, tableName string, counters Counters, status Status, message string) error
}

// NoOp discards every write. Used when the caller runs without an audit
// backend configured — the engine still calls a Writer unconditionally,
// matching §6's "optional" contract via a null-object implementation
// rather than nil checks scattered through the engine.
type NoOp struct{}

func (NoOp) BeginRun(context.Context, string, int) (string, error) { return "", nil }
func (NoOp) EndRun(context.Context, string, Status, int, int, string) error { return nil }
func (NoOp) BeginTable(context.Context, string, string) error { return nil }
func (NoOp) EndTable(context.Context, string, string, Counters, Status, string) error { return nil }
