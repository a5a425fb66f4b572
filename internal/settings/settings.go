// Package settings implements the SettingsProvider external collaborator
// (§6): a read-only-during-a-run repository of ArchiveSetting records.
package settings

import (
	"context"
	"time"
)

// ArchiveSetting is the per-table contract described in §3. A run reads a
// snapshot via Provider.ListAll and never mutates it.
type ArchiveSetting struct {
	ID      int
	Enabled bool

	SourceConnection string
	TargetConnection string

	TableName         string
	DateColumn        string
	PrimaryKeyColumn  string

	OnlineCutoff  time.Time
	HistoryCutoff time.Time

	// BatchSize is the initial requested batch size; 0 means "use the
	// engine default" (§3, §4.4).
	BatchSize int

	CsvEnabled    bool
	CsvRootFolder string

	// PhysicalDeleteEnabled, when false, leaves Phase 1 moving data into
	// target without deleting it from source.
	PhysicalDeleteEnabled bool
}

// Provider is the external collaborator consumed by ArchiveEngine.
// ListAll returns every configured setting; the engine filters to
// Enabled == true itself (§4.1 step 1).
type Provider interface {
	ListAll(ctx context.Context) ([]ArchiveSetting, error)
}
