package engine

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/johndauphine/archive-engine/internal/audit"
	"github.com/johndauphine/archive-engine/internal/dialect"
	"github.com/johndauphine/archive-engine/internal/gateway"
	"github.com/johndauphine/archive-engine/internal/row"
	"github.com/johndauphine/archive-engine/internal/settings"
)

// fakeGateway backs exactly one table's worth of data in memory. It
// distinguishes the two shapes of query the engine issues (the cursor
// SELECT and the existing-primary-key probe) by the SQL text sqlbuilder
// produces for each, rather than parsing SQL — good enough to exercise
// the engine's sequencing without a real database.
type fakeGateway struct {
	dateCol, pkCol string
	rows           []row.Row
}

func newFakeGateway(dateCol, pkCol string, rows []row.Row) *fakeGateway {
	return &fakeGateway{dateCol: dateCol, pkCol: pkCol, rows: append([]row.Row{}, rows...)}
}

func (g *fakeGateway) Dialect() dialect.Dialect { return dialect.Postgres{} }

func (g *fakeGateway) Close() error { return nil }

func (g *fakeGateway) QueryBatch(ctx context.Context, query string, args ...any) (row.Batch, error) {
	if strings.Contains(query, "CAST(") {
		return g.probeExisting(args), nil
	}
	return g.cursorBatch(args), nil
}

func (g *fakeGateway) probeExisting(args []any) row.Batch {
	want := make(map[string]bool, len(args))
	for _, a := range args {
		want[fmt.Sprintf("%v", a)] = true
	}
	var out row.Batch
	for _, r := range g.rows {
		pk, _ := r.Get(g.pkCol)
		if want[fmt.Sprintf("%v", pk)] {
			out = append(out, row.New([]string{g.pkCol}, []any{pk}))
		}
	}
	return out
}

func (g *fakeGateway) cursorBatch(args []any) row.Batch {
	cutoff := args[0].(time.Time)
	hasCursor := len(args) == 4
	var lastDate time.Time
	var lastPK any
	var limit int
	if hasCursor {
		lastDate = args[1].(time.Time)
		lastPK = args[2]
		limit = args[3].(int)
	} else {
		limit = args[1].(int)
	}

	var matched []row.Row
	for _, r := range g.rows {
		dv, _ := r.Get(g.dateCol)
		d := dv.(time.Time)
		if !d.Before(cutoff) {
			continue
		}
		if hasCursor {
			pv, _ := r.Get(g.pkCol)
			if !(d.After(lastDate) || (d.Equal(lastDate) && pkGreater(pv, lastPK))) {
				continue
			}
		}
		matched = append(matched, r)
	}

	sort.Slice(matched, func(i, j int) bool {
		di, _ := matched[i].Get(g.dateCol)
		dj, _ := matched[j].Get(g.dateCol)
		ti, tj := di.(time.Time), dj.(time.Time)
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		pi, _ := matched[i].Get(g.pkCol)
		pj, _ := matched[j].Get(g.pkCol)
		return pkGreater(pj, pi)
	})

	if len(matched) > limit {
		matched = matched[:limit]
	}
	return row.Batch(matched)
}

func pkGreater(a, b any) bool {
	ai, aok := a.(int)
	bi, bok := b.(int)
	if aok && bok {
		return ai > bi
	}
	return fmt.Sprintf("%v", a) > fmt.Sprintf("%v", b)
}

func (g *fakeGateway) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	want := make(map[string]bool, len(args))
	for _, a := range args {
		want[fmt.Sprintf("%v", a)] = true
	}
	var kept []row.Row
	var deleted int64
	for _, r := range g.rows {
		pk, _ := r.Get(g.pkCol)
		if want[fmt.Sprintf("%v", pk)] {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	g.rows = kept
	return deleted, nil
}

func (g *fakeGateway) BulkLoad(ctx context.Context, schema, table string, cols []string, rows row.Batch) error {
	g.rows = append(g.rows, rows...)
	return nil
}

func gatewaysOf(named map[string]gateway.Gateway) GatewayFactory {
	return func(ctx context.Context, name string) (gateway.Gateway, error) {
		gw, ok := named[name]
		if !ok {
			return nil, fmt.Errorf("no gateway registered for connection %q", name)
		}
		return gw, nil
	}
}

type fakeProvider struct {
	settings []settings.ArchiveSetting
}

func (p fakeProvider) ListAll(ctx context.Context) ([]settings.ArchiveSetting, error) {
	return p.settings, nil
}

func sampleRows(n int, base time.Time) []row.Row {
	rows := make([]row.Row, n)
	for i := 0; i < n; i++ {
		rows[i] = row.New(
			[]string{"id", "created_at", "value"},
			[]any{i + 1, base.AddDate(0, 0, i), fmt.Sprintf("row-%d", i+1)},
		)
	}
	return rows
}

func baseSetting() settings.ArchiveSetting {
	return settings.ArchiveSetting{
		ID:                    1,
		Enabled:               true,
		SourceConnection:      "source",
		TargetConnection:      "target",
		TableName:             "orders",
		DateColumn:            "created_at",
		PrimaryKeyColumn:      "id",
		OnlineCutoff:          time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		HistoryCutoff:         time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		BatchSize:             100,
		PhysicalDeleteEnabled: true,
	}
}

// S1: a basic move of rows strictly older than onlineCutoff from source
// into an empty target, deleting them from source.
func TestRunOnce_BasicMove(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	source := newFakeGateway("created_at", "id", sampleRows(3, base))
	target := newFakeGateway("created_at", "id", nil)

	e := New(fakeProvider{settings: []settings.ArchiveSetting{baseSetting()}}, audit.NoOp{},
		gatewaysOf(map[string]gateway.Gateway{"source": source, "target": target}), nil)

	result := e.RunOnce(context.Background())

	if !result.Succeeded {
		t.Fatalf("expected success, got messages: %v", result.Messages)
	}
	if len(target.rows) != 3 {
		t.Fatalf("expected 3 rows moved into target, got %d", len(target.rows))
	}
	if len(source.rows) != 0 {
		t.Fatalf("expected source rows deleted, got %d remaining", len(source.rows))
	}
	wantMessages := []string{"orders moved (online>2026-01-01; history>2025-01-01)"}
	if !reflect.DeepEqual(result.Messages, wantMessages) {
		t.Fatalf("Messages = %v, want %v", result.Messages, wantMessages)
	}
}

// S2: re-running after a successful move must not duplicate rows already
// present in target — the filter+bulk-load step is idempotent.
func TestRunOnce_IdempotentRerun(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	source := newFakeGateway("created_at", "id", sampleRows(3, base))
	target := newFakeGateway("created_at", "id", nil)

	setting := baseSetting()
	setting.PhysicalDeleteEnabled = false // leave source rows in place so a rerun re-reads them

	e := New(fakeProvider{settings: []settings.ArchiveSetting{setting}}, audit.NoOp{},
		gatewaysOf(map[string]gateway.Gateway{"source": source, "target": target}), nil)

	if r := e.RunOnce(context.Background()); !r.Succeeded {
		t.Fatalf("first run failed: %v", r.Messages)
	}
	if r := e.RunOnce(context.Background()); !r.Succeeded {
		t.Fatalf("second run failed: %v", r.Messages)
	}

	if len(target.rows) != 3 {
		t.Fatalf("expected target to still hold exactly 3 rows after rerun, got %d", len(target.rows))
	}
}

// S5: a misconfigured setting (onlineCutoff not after historyCutoff) is
// skipped with a warning, not treated as a run failure.
func TestRunOnce_CutoffMisconfiguration(t *testing.T) {
	source := newFakeGateway("created_at", "id", sampleRows(3, time.Now().AddDate(0, 0, -30)))
	target := newFakeGateway("created_at", "id", nil)

	setting := baseSetting()
	setting.OnlineCutoff = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	setting.HistoryCutoff = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	e := New(fakeProvider{settings: []settings.ArchiveSetting{setting}}, audit.NoOp{},
		gatewaysOf(map[string]gateway.Gateway{"source": source, "target": target}), nil)

	result := e.RunOnce(context.Background())

	if !result.Succeeded {
		t.Fatalf("expected success despite skip, got messages: %v", result.Messages)
	}
	found := false
	for _, m := range result.Messages {
		if strings.Contains(m, "skipped") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a skip warning in messages, got: %v", result.Messages)
	}
	if len(source.rows) != 3 {
		t.Fatalf("expected source untouched, got %d rows", len(source.rows))
	}
}

// No enabled settings at all is a successful no-op run.
func TestRunOnce_NoEnabledSettings(t *testing.T) {
	setting := baseSetting()
	setting.Enabled = false

	e := New(fakeProvider{settings: []settings.ArchiveSetting{setting}}, audit.NoOp{},
		gatewaysOf(map[string]gateway.Gateway{}), nil)

	result := e.RunOnce(context.Background())
	if !result.Succeeded {
		t.Fatalf("expected success, got messages: %v", result.Messages)
	}
	if len(result.Messages) != 1 || result.Messages[0] != "no enabled settings" {
		t.Fatalf("unexpected messages: %v", result.Messages)
	}
}
