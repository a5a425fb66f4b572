// Package engine implements ArchiveEngine: the orchestrator that walks
// every enabled ArchiveSetting and drives Phase 1 (move online rows into
// the historical target) and Phase 2 (export historical rows to CSV and
// purge them), per §4.1. It owns no SQL and no CSV formatting itself —
// every leaf concern lives in dialect, sqlbuilder, gateway, cursor,
// batchsize, csvwriter, and retry. The engine's job is sequencing,
// cursor advancement, idempotent filtering, and bookkeeping.
package engine

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/johndauphine/archive-engine/internal/archiveerr"
	"github.com/johndauphine/archive-engine/internal/audit"
	"github.com/johndauphine/archive-engine/internal/batchsize"
	"github.com/johndauphine/archive-engine/internal/cursor"
	"github.com/johndauphine/archive-engine/internal/csvwriter"
	"github.com/johndauphine/archive-engine/internal/dialect"
	"github.com/johndauphine/archive-engine/internal/gateway"
	"github.com/johndauphine/archive-engine/internal/logging"
	"github.com/johndauphine/archive-engine/internal/retry"
	"github.com/johndauphine/archive-engine/internal/row"
	"github.com/johndauphine/archive-engine/internal/settings"
	"github.com/johndauphine/archive-engine/internal/sqlbuilder"
)

// GatewayFactory opens a Gateway for a logical connection name, as found
// in an ArchiveSetting's SourceConnection/TargetConnection fields. The
// engine never constructs a Gateway directly — connection resolution is
// the caller's concern (config-driven in production, in-memory fakes in
// tests).
type GatewayFactory func(ctx context.Context, connectionName string) (gateway.Gateway, error)

// Result is RunOnce's return value: whether the run as a whole should be
// considered successful, and the accumulated human-readable messages —
// warnings for skipped tables, errors for the table that halted the run.
type Result struct {
	Succeeded bool
	Messages  []string
}

// Engine wires the external collaborators (SettingsProvider, AuditWriter,
// a Gateway factory) together and exposes RunOnce as its one operation.
type Engine struct {
	Settings settings.Provider
	Audit    audit.Writer
	Gateways GatewayFactory

	// RetryPolicy governs both the "{table}-Archive" and "{table}-Csv"
	// named retries. New sets it to retry.DefaultPolicy; a zero value
	// (Enabled=false) runs each phase once without retry.
	RetryPolicy retry.Policy

	// BatchBounds governs BatchSizeController; zero value falls back to
	// batchsize.DefaultBounds.
	BatchBounds batchsize.Bounds

	// Csv supplies the delimiter, per-file row cap, and filename template
	// shared by every table's CSV export; RootFolder/Table/FromDate/ToDate
	// are filled in per call from the setting and the batch being written.
	Csv csvwriter.Options

	retry *retry.Executor
}

// New returns an Engine ready to run. classify may be nil to use
// retry.DefaultClassifier.
func New(settingsProvider settings.Provider, auditWriter audit.Writer, gateways GatewayFactory, classify retry.Classifier) *Engine {
	if auditWriter == nil {
		auditWriter = audit.NoOp{}
	}
	return &Engine{
		Settings:    settingsProvider,
		Audit:       auditWriter,
		Gateways:    gateways,
		RetryPolicy: retry.DefaultPolicy(),
		BatchBounds: batchsize.DefaultBounds(),
		retry:       retry.New(classify),
	}
}

// RunOnce implements §4.1: load enabled settings, process them in list
// order, and halt at the first table whose processing fails after retry.
func (e *Engine) RunOnce(ctx context.Context) Result {
	all, err := e.Settings.ListAll(ctx)
	if err != nil {
		return Result{Succeeded: false, Messages: []string{fmt.Sprintf("loading archive settings: %v", err)}}
	}

	var enabled []settings.ArchiveSetting
	for _, s := range all {
		if s.Enabled {
			enabled = append(enabled, s)
		}
	}
	if len(enabled) == 0 {
		return Result{Succeeded: true, Messages: []string{"no enabled settings"}}
	}

	hostName, _ := os.Hostname()
	runID, err := e.Audit.BeginRun(ctx, hostName, len(enabled))
	if err != nil {
		logging.Warn("audit: beginning run: %v", err)
	}

	var messages []string
	succeededTables, failedTables := 0, 0

	for _, s := range enabled {
		if err := ctx.Err(); err != nil {
			messages = append(messages, fmt.Sprintf("%s: run cancelled before processing: %v", s.TableName, err))
			failedTables++
			break
		}

		online := dateOnly(s.OnlineCutoff)
		history := dateOnly(s.HistoryCutoff)
		if !online.After(history) {
			msg := fmt.Sprintf("%s: skipped — onlineCutoff (%s) must be after historyCutoff (%s)",
				s.TableName, online.Format("2006-01-02"), history.Format("2006-01-02"))
			logging.Warn("%s", msg)
			messages = append(messages, msg)
			continue
		}

		_ = e.Audit.BeginTable(ctx, runID, s.TableName)
		counters, tableErr := e.processTable(ctx, s, online, history)

		if tableErr != nil {
			msg := fmt.Sprintf("%s: %v", s.TableName, tableErr)
			logging.Error("%s", msg)
			messages = append(messages, msg)
			failedTables++
			_ = e.Audit.EndTable(ctx, runID, s.TableName, counters, audit.StatusFail, tableErr.Error())
			_ = e.Audit.EndRun(ctx, runID, audit.StatusFail, succeededTables, failedTables, msg)
			return Result{Succeeded: false, Messages: messages}
		}

		_ = e.Audit.EndTable(ctx, runID, s.TableName, counters, audit.StatusSuccess, "")
		messages = append(messages, fmt.Sprintf("%s moved (online>%s; history>%s)",
			s.TableName, online.Format("2006-01-02"), history.Format("2006-01-02")))
		succeededTables++
	}

	status := audit.StatusSuccess
	if failedTables > 0 {
		status = audit.StatusPartialFail
	}
	_ = e.Audit.EndRun(ctx, runID, status, succeededTables, failedTables, "")

	return Result{Succeeded: failedTables == 0, Messages: messages}
}

// dateOnly truncates t to midnight UTC, normalizing whatever zone the
// setting arrived in (§9 open question: cutoffs compare in UTC).
func dateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// processTable runs Phase 1 and, if enabled, Phase 2 for one setting,
// each under its own named retry wrap, and returns the accumulated
// counters regardless of where a failure occurred.
func (e *Engine) processTable(ctx context.Context, s settings.ArchiveSetting, online, history time.Time) (audit.Counters, error) {
	var counters audit.Counters

	for _, ident := range []string{s.TableName, s.DateColumn, s.PrimaryKeyColumn} {
		if !dialect.ValidIdentifier(ident) {
			return counters, fmt.Errorf("%w: invalid identifier %q", archiveerr.ErrConfiguration, ident)
		}
	}

	sourceGW, err := e.Gateways(ctx, s.SourceConnection)
	if err != nil {
		return counters, fmt.Errorf("opening source connection %q: %w", s.SourceConnection, err)
	}
	targetGW, err := e.Gateways(ctx, s.TargetConnection)
	if err != nil {
		return counters, fmt.Errorf("opening target connection %q: %w", s.TargetConnection, err)
	}

	archiveName := s.TableName + "-Archive"
	var phase1 audit.Counters
	err = e.retry.Execute(ctx, archiveName, e.RetryPolicy, func(ctx context.Context) error {
		phase1 = audit.Counters{}
		c, err := e.runMovePhase(ctx, s, sourceGW, targetGW, online)
		phase1 = c
		return err
	})
	counters.Add(phase1)
	if err != nil {
		return counters, fmt.Errorf("phase 1 (move): %w", err)
	}

	if !s.CsvEnabled {
		return counters, nil
	}

	csvName := s.TableName + "-Csv"
	var phase2 audit.Counters
	err = e.retry.Execute(ctx, csvName, e.RetryPolicy, func(ctx context.Context) error {
		phase2 = audit.Counters{}
		c, err := e.runExportPhase(ctx, s, targetGW, history)
		phase2 = c
		return err
	})
	counters.Add(phase2)
	if err != nil {
		return counters, fmt.Errorf("phase 2 (export): %w", err)
	}

	return counters, nil
}

// runMovePhase implements §4.3: read batches of source rows older than
// online, filter out primary keys already present in target, bulk-load
// the new rows, optionally delete the moved rows from source, and adjust
// the batch size between iterations. A phase ends when a batch comes
// back empty.
func (e *Engine) runMovePhase(ctx context.Context, s settings.ArchiveSetting, sourceGW, targetGW gateway.Gateway, online time.Time) (audit.Counters, error) {
	var counters audit.Counters

	reader := cursor.New(sourceGW)
	size := batchsize.InitialSize(s.BatchSize)
	cur := cursor.Cursor{}

	var cols []string

	for {
		if err := ctx.Err(); err != nil {
			return counters, err
		}

		start := time.Now()
		batch, err := reader.Next(ctx, "", s.TableName, s.DateColumn, s.PrimaryKeyColumn, cols, online, size, cur)
		if err != nil {
			return counters, err
		}
		if batch.Empty() {
			return counters, nil
		}

		if cols == nil {
			cols = batch[0].Columns
		}

		counters.SourceScanned += int64(len(batch))

		fresh, err := filterExisting(ctx, targetGW, s, batch)
		if err != nil {
			return counters, fmt.Errorf("filtering existing rows in target: %w", err)
		}

		if len(fresh) > 0 {
			loadCtx, cancelLoad := context.WithTimeout(ctx, gateway.BulkLoadTimeout)
			err := targetGW.BulkLoad(loadCtx, "", s.TableName, cols, fresh)
			cancelLoad()
			if err != nil {
				return counters, fmt.Errorf("bulk-loading into target: %w", err)
			}
			counters.InsertedToHistory += int64(len(fresh))
		}

		if s.PhysicalDeleteEnabled {
			deleted, err := deleteRows(ctx, sourceGW, s.TableName, s.PrimaryKeyColumn, batch)
			if err != nil {
				return counters, fmt.Errorf("deleting moved rows from source: %w", err)
			}
			counters.DeletedFromSource += deleted
		}

		elapsed := time.Since(start)
		nextCur, err := cursor.Advance(s.DateColumn, s.PrimaryKeyColumn, batch[len(batch)-1])
		if err != nil {
			return counters, fmt.Errorf("advancing cursor: %w", err)
		}
		cur = nextCur
		size = batchsize.Adjust(size, len(batch), elapsed, e.BatchBounds)

		logging.Debug("%s: moved batch of %d rows (next size %d)", s.TableName, len(batch), size)
	}
}

// runExportPhase implements §4.2/§4.6: read batches of target rows older
// than history, write each batch to CSV, and delete the exported rows
// from target. A phase ends when a batch comes back empty.
func (e *Engine) runExportPhase(ctx context.Context, s settings.ArchiveSetting, targetGW gateway.Gateway, history time.Time) (audit.Counters, error) {
	var counters audit.Counters

	reader := cursor.New(targetGW)
	size := batchsize.InitialSize(s.BatchSize)
	cur := cursor.Cursor{}

	var cols []string

	for {
		if err := ctx.Err(); err != nil {
			return counters, err
		}

		start := time.Now()
		batch, err := reader.Next(ctx, "", s.TableName, s.DateColumn, s.PrimaryKeyColumn, cols, history, size, cur)
		if err != nil {
			return counters, err
		}
		if batch.Empty() {
			return counters, nil
		}

		if cols == nil {
			cols = batch[0].Columns
		}

		from, to, err := dateRange(s.DateColumn, batch)
		if err != nil {
			return counters, err
		}

		opts := e.Csv
		opts.RootFolder = s.CsvRootFolder
		opts.Table = s.TableName
		opts.FromDate = from
		opts.ToDate = to

		_, err = csvwriter.WriteParts(cols, batch, opts)
		if err != nil {
			return counters, fmt.Errorf("%w: %v", archiveerr.ErrFilesystem, err)
		}
		counters.ExportedToCsv += int64(len(batch))

		deleted, err := deleteRows(ctx, targetGW, s.TableName, s.PrimaryKeyColumn, batch)
		if err != nil {
			return counters, fmt.Errorf("deleting exported rows from target: %w", err)
		}
		counters.DeletedFromHistory += deleted

		elapsed := time.Since(start)
		nextCur, err := cursor.Advance(s.DateColumn, s.PrimaryKeyColumn, batch[len(batch)-1])
		if err != nil {
			return counters, fmt.Errorf("advancing cursor: %w", err)
		}
		cur = nextCur
		size = batchsize.Adjust(size, len(batch), elapsed, e.BatchBounds)

		logging.Debug("%s: exported batch of %d rows (next size %d)", s.TableName, len(batch), size)
	}
}

// filterExisting implements §4.3's "filter + bulk-load" idempotency
// check: probe target in chunks of at most dialect.MaxParamsPerCommand
// primary keys, and return only the rows of batch whose primary key was
// not found.
func filterExisting(ctx context.Context, targetGW gateway.Gateway, s settings.ArchiveSetting, batch row.Batch) (row.Batch, error) {
	ids := make([]string, len(batch))
	for i, r := range batch {
		pk, err := r.MustGet(s.PrimaryKeyColumn)
		if err != nil {
			return nil, err
		}
		ids[i] = fmt.Sprintf("%v", pk)
	}

	existing := make(map[string]bool, len(ids))
	builder := sqlbuilder.New(targetGW.Dialect())

	for _, chunk := range dialect.ChunkStrings(ids, dialect.MaxParamsPerCommand) {
		query := builder.ExistingPKQuery("", s.TableName, s.PrimaryKeyColumn, len(chunk))
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		found, err := targetGW.QueryBatch(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		for _, r := range found {
			if v, ok := r.Get(r.Columns[0]); ok {
				existing[fmt.Sprintf("%v", v)] = true
			}
		}
	}

	fresh := make(row.Batch, 0, len(batch))
	for i, r := range batch {
		if !existing[ids[i]] {
			fresh = append(fresh, r)
		}
	}
	return fresh, nil
}

// deleteRows chunks batch's primary keys and issues DELETE ... WHERE pk
// IN (...) against gw, respecting dialect.MaxParamsPerCommand.
func deleteRows(ctx context.Context, gw gateway.Gateway, table, pkCol string, batch row.Batch) (int64, error) {
	ids := make([]string, len(batch))
	for i, r := range batch {
		pk, err := r.MustGet(pkCol)
		if err != nil {
			return 0, err
		}
		ids[i] = fmt.Sprintf("%v", pk)
	}

	builder := sqlbuilder.New(gw.Dialect())
	var total int64
	for _, chunk := range dialect.ChunkStrings(ids, dialect.MaxParamsPerCommand) {
		query := builder.DeleteByPKQuery("", table, pkCol, len(chunk))
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		n, err := gw.Exec(ctx, query, args...)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// dateRange returns the min and max of column dateCol across batch, used
// as the CSV filename's {FromDate}/{ToDate} tokens.
func dateRange(dateCol string, batch row.Batch) (time.Time, time.Time, error) {
	var min, max time.Time
	for i, r := range batch {
		v, err := r.MustGet(dateCol)
		if err != nil {
			return min, max, err
		}
		t, ok := v.(time.Time)
		if !ok {
			return min, max, fmt.Errorf("%w: column %q is not a date/time value", archiveerr.ErrConfiguration, dateCol)
		}
		if i == 0 || t.Before(min) {
			min = t
		}
		if i == 0 || t.After(max) {
			max = t
		}
	}
	return min, max, nil
}
