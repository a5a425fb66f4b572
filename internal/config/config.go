// Package config loads the archive engine's YAML configuration: named
// database connections, the SettingsProvider and AuditWriter backends,
// retry/batch/CSV defaults, logging, and the optional Slack notifier —
// following the teacher's expand-then-default-then-validate loading
// pattern (internal/config/config.go in the original migration tool).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// expandTilde expands ~ or ~/ at the start of a path to the user's home directory.
func expandTilde(path string) string {
	if path == "" {
		return path
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// Config holds all configuration for the archive engine.
type Config struct {
	Connections map[string]ConnectionConfig `yaml:"connections"`
	Settings    SettingsConfig              `yaml:"settings"`
	Audit       AuditConfig                 `yaml:"audit"`
	Retry       RetryConfig                 `yaml:"retry"`
	Batch       BatchConfig                 `yaml:"batch"`
	Csv         CsvConfig                   `yaml:"csv"`
	Logging     LoggingConfig               `yaml:"logging"`
	Slack       SlackConfig                 `yaml:"slack"`
}

// ConnectionConfig names one database an ArchiveSetting can reference as
// its SourceConnection or TargetConnection.
type ConnectionConfig struct {
	Type string `yaml:"type"` // "postgres" or "mssql"
	DSN  string `yaml:"dsn"`
}

// SettingsConfig selects and locates the SettingsProvider backend.
type SettingsConfig struct {
	Backend string `yaml:"backend"` // "sqlite" (default) or "yaml"
	Path    string `yaml:"path"`
}

// AuditConfig selects and locates the AuditWriter backend.
type AuditConfig struct {
	Backend string `yaml:"backend"` // "sqlite" (default) or "none"
	Path    string `yaml:"path"`
}

// RetryConfig mirrors retry.Policy's YAML-bound defaults (§6).
type RetryConfig struct {
	Enabled           bool `yaml:"enabled"`
	MaxRetryCount     int  `yaml:"max_retry_count"`
	RetryDelaySeconds int  `yaml:"retry_delay_seconds"`
}

// BatchConfig mirrors batchsize.Bounds's YAML-bound defaults (§4.4, §6).
type BatchConfig struct {
	Min           int     `yaml:"min"`
	Max           int     `yaml:"max"`
	TargetSeconds float64 `yaml:"target_seconds"`
}

// CsvConfig mirrors csvwriter.Options's YAML-bound defaults (§4.6, §6).
type CsvConfig struct {
	Delimiter        string `yaml:"delimiter"`
	MaxRowsPerFile   int    `yaml:"max_rows_per_file"`
	FileNameTemplate string `yaml:"file_name_template"`
}

// LoggingConfig holds the logging section of the config file. Load fills
// in its defaults; cmd/archiveengine sets the process-wide logger (§5)
// from its --verbosity and --log-format flags and does not read it.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info (default), warn, error
	Format string `yaml:"format"` // text (default) or json
}

// SlackConfig holds Slack notification settings for the post-run hook.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	Channel    string `yaml:"channel"`
	Username   string `yaml:"username"`
	Enabled    bool   `yaml:"enabled"`
}

// LoadOptions controls configuration loading behavior.
type LoadOptions struct {
	SuppressWarnings bool
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	return LoadWithOptions(path, LoadOptions{})
}

// LoadWithOptions reads configuration from a YAML file with options.
func LoadWithOptions(path string, opts LoadOptions) (*Config, error) {
	if warning := checkFilePermissions(path); warning != "" && !opts.SuppressWarnings {
		fmt.Fprint(os.Stderr, warning)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return LoadBytes(data)
}

// LoadBytes reads configuration from YAML bytes, expanding environment
// variables before parsing so ${DB_PASSWORD}-style references resolve.
func LoadBytes(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// DefaultDataDir returns the default data directory for the settings and
// audit SQLite databases when no explicit path is configured.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".archive-engine")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	if err := os.Chmod(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}

func (c *Config) applyDefaults() {
	if c.Settings.Backend == "" {
		c.Settings.Backend = "sqlite"
	}
	if c.Settings.Path == "" {
		if dir, err := DefaultDataDir(); err == nil {
			ext := "db"
			if c.Settings.Backend == "yaml" {
				ext = "yaml"
			}
			c.Settings.Path = filepath.Join(dir, "settings."+ext)
		}
	} else {
		c.Settings.Path = expandTilde(c.Settings.Path)
	}

	if c.Audit.Backend == "" {
		c.Audit.Backend = "sqlite"
	}
	if c.Audit.Path == "" {
		if dir, err := DefaultDataDir(); err == nil {
			c.Audit.Path = filepath.Join(dir, "audit.db")
		}
	} else {
		c.Audit.Path = expandTilde(c.Audit.Path)
	}

	if !c.Retry.Enabled && c.Retry.MaxRetryCount == 0 && c.Retry.RetryDelaySeconds == 0 {
		c.Retry.Enabled = true
	}
	if c.Retry.MaxRetryCount == 0 {
		c.Retry.MaxRetryCount = 3
	}
	if c.Retry.RetryDelaySeconds == 0 {
		c.Retry.RetryDelaySeconds = 5
	}

	if c.Batch.Min == 0 {
		c.Batch.Min = 100
	}
	if c.Batch.Max == 0 {
		c.Batch.Max = 2000
	}
	if c.Batch.TargetSeconds == 0 {
		c.Batch.TargetSeconds = 20
	}

	if c.Csv.Delimiter == "" {
		c.Csv.Delimiter = ","
	}
	if c.Csv.MaxRowsPerFile == 0 {
		c.Csv.MaxRowsPerFile = 100_000
	}
	if c.Csv.FileNameTemplate == "" {
		c.Csv.FileNameTemplate = "{TableName}_{FromDate:yyyyMMdd}_{ToDate:yyyyMMdd}_Part{PartIndex}.csv"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

func (c *Config) validate() error {
	for name, conn := range c.Connections {
		if conn.Type != "postgres" && conn.Type != "mssql" {
			return fmt.Errorf("connections.%s.type must be 'postgres' or 'mssql', got %q", name, conn.Type)
		}
		if conn.DSN == "" {
			return fmt.Errorf("connections.%s.dsn is required", name)
		}
	}
	if c.Settings.Backend != "sqlite" && c.Settings.Backend != "yaml" {
		return fmt.Errorf("settings.backend must be 'sqlite' or 'yaml', got %q", c.Settings.Backend)
	}
	if c.Audit.Backend != "sqlite" && c.Audit.Backend != "none" {
		return fmt.Errorf("audit.backend must be 'sqlite' or 'none', got %q", c.Audit.Backend)
	}
	if c.Retry.MaxRetryCount < 0 || c.Retry.MaxRetryCount > 10 {
		return fmt.Errorf("retry.max_retry_count must be between 0 and 10, got %d", c.Retry.MaxRetryCount)
	}
	if c.Retry.RetryDelaySeconds < 0 || c.Retry.RetryDelaySeconds > 300 {
		return fmt.Errorf("retry.retry_delay_seconds must be between 0 and 300, got %d", c.Retry.RetryDelaySeconds)
	}
	if c.Batch.Min <= 0 || c.Batch.Max < c.Batch.Min {
		return fmt.Errorf("batch.min must be positive and batch.max must be >= batch.min")
	}
	return nil
}

// Sanitized returns a copy of the config with sensitive fields redacted,
// safe to log at startup.
func (c *Config) Sanitized() *Config {
	sanitized := *c
	sanitized.Connections = make(map[string]ConnectionConfig, len(c.Connections))
	for name, conn := range c.Connections {
		conn.DSN = "[REDACTED]"
		sanitized.Connections[name] = conn
	}
	if sanitized.Slack.WebhookURL != "" {
		sanitized.Slack.WebhookURL = "[REDACTED]"
	}
	return &sanitized
}
