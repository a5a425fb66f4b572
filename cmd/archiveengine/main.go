package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/johndauphine/archive-engine/internal/audit"
	"github.com/johndauphine/archive-engine/internal/batchsize"
	"github.com/johndauphine/archive-engine/internal/config"
	"github.com/johndauphine/archive-engine/internal/csvwriter"
	"github.com/johndauphine/archive-engine/internal/engine"
	"github.com/johndauphine/archive-engine/internal/gateway"
	"github.com/johndauphine/archive-engine/internal/logging"
	"github.com/johndauphine/archive-engine/internal/notify"
	"github.com/johndauphine/archive-engine/internal/retry"
	"github.com/johndauphine/archive-engine/internal/settings"
	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "archiveengine",
		Usage:   "Batched, cursor-driven archival of aging rows to a historical database and cold CSV storage",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yaml",
				Usage:   "Path to configuration file",
			},
			&cli.StringFlag{
				Name:  "verbosity",
				Value: "info",
				Usage: "Log verbosity level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Value: "text",
				Usage: "Log format: text or json",
			},
			&cli.BoolFlag{
				Name:  "output-json",
				Usage: "Print the run result as JSON to stdout on completion (logs go to stderr)",
			},
			&cli.StringFlag{
				Name:  "output-file",
				Usage: "Write the run result as JSON to a file on completion",
			},
		},
		Before: func(c *cli.Context) error {
			level, err := logging.ParseLevel(c.String("verbosity"))
			if err != nil {
				return err
			}
			logging.SetLevel(level)

			if c.String("log-format") == "json" {
				logging.SetFormat("json")
			}
			if c.Bool("output-json") || c.String("output-file") != "" {
				logging.SetOutput(os.Stderr)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run one archive pass over every enabled table",
				Action: runOnce,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runResult is the JSON shape emitted with --output-json/--output-file.
type runResult struct {
	Succeeded bool     `json:"succeeded"`
	Messages  []string `json:"messages"`
	Error     string   `json:"error,omitempty"`
}

func runOnce(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	settingsProvider, closeSettings, err := buildSettingsProvider(cfg)
	if err != nil {
		return fmt.Errorf("opening settings backend: %w", err)
	}
	defer closeSettings()

	auditWriter, closeAudit, err := buildAuditWriter(cfg)
	if err != nil {
		return fmt.Errorf("opening audit backend: %w", err)
	}
	defer closeAudit()

	opened := map[string]gateway.Gateway{}
	defer func() {
		for _, gw := range opened {
			gw.Close()
		}
	}()

	e := engine.New(settingsProvider, auditWriter, gatewayFactory(cfg, opened), nil)
	e.RetryPolicy = retry.Policy{
		Enabled:           cfg.Retry.Enabled,
		MaxRetryCount:     cfg.Retry.MaxRetryCount,
		RetryDelaySeconds: cfg.Retry.RetryDelaySeconds,
	}
	e.BatchBounds = batchsize.Bounds{
		Min:           cfg.Batch.Min,
		Max:           cfg.Batch.Max,
		TargetSeconds: cfg.Batch.TargetSeconds,
	}
	e.Csv = csvwriter.Options{
		Delimiter:        cfg.Csv.Delimiter,
		MaxRowsPerFile:   cfg.Csv.MaxRowsPerFile,
		FileNameTemplate: cfg.Csv.FileNameTemplate,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nInterrupted. Cancelling the run...")
		cancel()
	}()

	logging.Info("starting archive run (config=%s)", c.String("config"))
	result := e.RunOnce(ctx)

	notifier := notify.New(&cfg.Slack)
	if result.Succeeded {
		if err := notifier.RunSucceeded("", len(result.Messages), result.Messages); err != nil {
			logging.Warn("slack notification failed: %v", err)
		}
	} else {
		failedTable := ""
		if len(result.Messages) > 0 {
			failedTable = result.Messages[len(result.Messages)-1]
		}
		if err := notifier.RunFailed("", failedTable, fmt.Errorf("%s", failedTable), result.Messages); err != nil {
			logging.Warn("slack notification failed: %v", err)
		}
	}

	for _, m := range result.Messages {
		logging.Info("%s", m)
	}

	if !c.Bool("output-json") {
		printRunSummary(result)
	}

	if c.Bool("output-json") || c.String("output-file") != "" {
		rr := runResult{Succeeded: result.Succeeded, Messages: result.Messages}
		if !result.Succeeded && len(result.Messages) > 0 {
			rr.Error = result.Messages[len(result.Messages)-1]
		}
		if err := outputJSON(c, rr); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to output JSON: %v\n", err)
		}
	}

	if !result.Succeeded {
		return fmt.Errorf("archive run failed")
	}
	return nil
}

func buildSettingsProvider(cfg *config.Config) (settings.Provider, func(), error) {
	switch cfg.Settings.Backend {
	case "yaml":
		return settings.NewFileProvider(cfg.Settings.Path), func() {}, nil
	default:
		p, err := settings.OpenSQLite(cfg.Settings.Path)
		if err != nil {
			return nil, nil, err
		}
		return p, func() { p.Close() }, nil
	}
}

func buildAuditWriter(cfg *config.Config) (audit.Writer, func(), error) {
	switch cfg.Audit.Backend {
	case "none":
		return audit.NoOp{}, func() {}, nil
	default:
		w, err := audit.OpenSQLite(cfg.Audit.Path)
		if err != nil {
			return nil, nil, err
		}
		return w, func() { w.Close() }, nil
	}
}

// gatewayFactory returns an engine.GatewayFactory that opens (and caches
// for the lifetime of the run) one Gateway per logical connection name
// declared in cfg.Connections.
func gatewayFactory(cfg *config.Config, opened map[string]gateway.Gateway) engine.GatewayFactory {
	return func(ctx context.Context, name string) (gateway.Gateway, error) {
		if gw, ok := opened[name]; ok {
			return gw, nil
		}
		conn, ok := cfg.Connections[name]
		if !ok {
			return nil, fmt.Errorf("no connection named %q in config", name)
		}

		var gw gateway.Gateway
		var err error
		switch conn.Type {
		case "postgres":
			gw, err = gateway.NewPostgres(ctx, conn.DSN)
		case "mssql":
			gw, err = gateway.NewMSSQL(ctx, conn.DSN)
		default:
			return nil, fmt.Errorf("connection %q: unsupported type %q", name, conn.Type)
		}
		if err != nil {
			return nil, err
		}
		opened[name] = gw
		return gw, nil
	}
}

func outputJSON(c *cli.Context, result runResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	if c.Bool("output-json") {
		fmt.Println(string(data))
	}
	if outputFile := c.String("output-file"); outputFile != "" {
		if err := os.WriteFile(outputFile, data, 0600); err != nil {
			return fmt.Errorf("writing output file: %w", err)
		}
	}
	return nil
}
