package settings

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// yamlSetting is the YAML wire shape for one ArchiveSetting, using
// date-only strings for the cutoffs per §3's "date only" invariant.
type yamlSetting struct {
	ID                    int    `yaml:"id"`
	Enabled               bool   `yaml:"enabled"`
	SourceConnection      string `yaml:"source_connection"`
	TargetConnection      string `yaml:"target_connection"`
	TableName             string `yaml:"table_name"`
	DateColumn            string `yaml:"date_column"`
	PrimaryKeyColumn      string `yaml:"primary_key_column"`
	OnlineCutoff          string `yaml:"online_cutoff"`
	HistoryCutoff         string `yaml:"history_cutoff"`
	BatchSize             int    `yaml:"batch_size"`
	CsvEnabled            bool   `yaml:"csv_enabled"`
	CsvRootFolder         string `yaml:"csv_root_folder"`
	PhysicalDeleteEnabled bool   `yaml:"physical_delete_enabled"`
}

type yamlFile struct {
	Settings []yamlSetting `yaml:"settings"`
}

// FileProvider implements Provider from a single YAML file — for
// headless/no-database operation, mirroring the teacher's FileState
// vs. SQLite state duality (internal/checkpoint/filestate.go).
type FileProvider struct {
	mu   sync.RWMutex
	path string
}

// NewFileProvider returns a Provider backed by the YAML file at path.
// The file is read on every ListAll call rather than cached, so an
// operator's edits take effect on the next run without a restart.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

func (p *FileProvider) ListAll(ctx context.Context) ([]ArchiveSetting, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("reading settings file %s: %w", p.path, err)
	}

	var doc yamlFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing settings file %s: %w", p.path, err)
	}

	out := make([]ArchiveSetting, 0, len(doc.Settings))
	for _, s := range doc.Settings {
		online, err := parseDateOnly(s.OnlineCutoff)
		if err != nil {
			return nil, fmt.Errorf("setting %q: online_cutoff: %w", s.TableName, err)
		}
		history, err := parseDateOnly(s.HistoryCutoff)
		if err != nil {
			return nil, fmt.Errorf("setting %q: history_cutoff: %w", s.TableName, err)
		}
		out = append(out, ArchiveSetting{
			ID:                    s.ID,
			Enabled:               s.Enabled,
			SourceConnection:      s.SourceConnection,
			TargetConnection:      s.TargetConnection,
			TableName:             s.TableName,
			DateColumn:            s.DateColumn,
			PrimaryKeyColumn:      s.PrimaryKeyColumn,
			OnlineCutoff:          online,
			HistoryCutoff:         history,
			BatchSize:             s.BatchSize,
			CsvEnabled:            s.CsvEnabled,
			CsvRootFolder:         s.CsvRootFolder,
			PhysicalDeleteEnabled: s.PhysicalDeleteEnabled,
		})
	}
	return out, nil
}

func parseDateOnly(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	return time.ParseInLocation("2006-01-02", s, time.UTC)
}
