package sqlbuilder

import (
	"strings"
	"testing"

	"github.com/johndauphine/archive-engine/internal/dialect"
)

func TestExistingPKQuery(t *testing.T) {
	b := New(dialect.Postgres{})
	got := b.ExistingPKQuery("", "orders", "order_id", 3)
	want := `SELECT CAST("order_id" AS VARCHAR(255)) FROM "orders" WHERE "order_id" IN ($1, $2, $3)`
	if got != want {
		t.Errorf("ExistingPKQuery = %q, want %q", got, want)
	}
}

func TestDeleteByPKQuery_MSSQL(t *testing.T) {
	b := New(dialect.MSSQL{})
	got := b.DeleteByPKQuery("dbo", "orders", "order_id", 2)
	want := `DELETE FROM [dbo].[orders] WHERE [order_id] IN (@p1, @p2)`
	if got != want {
		t.Errorf("DeleteByPKQuery = %q, want %q", got, want)
	}
}

func TestMultiRowInsertQuery(t *testing.T) {
	b := New(dialect.MSSQL{})
	got := b.MultiRowInsertQuery("", "orders", []string{"id", "amount"}, 2)
	want := `INSERT INTO [orders] ([id], [amount]) VALUES (@p1, @p2), (@p3, @p4)`
	if got != want {
		t.Errorf("MultiRowInsertQuery = %q, want %q", got, want)
	}
}

func TestCursorQuery_Postgres_NoCursor(t *testing.T) {
	b := New(dialect.Postgres{})
	got := b.CursorQuery("", "orders", "created_at", "order_id", []string{"order_id", "created_at"}, false)
	want := `SELECT "order_id", "created_at" FROM "orders" WHERE "created_at" < $1 ORDER BY "created_at" ASC, "order_id" ASC LIMIT $2`
	if got != want {
		t.Errorf("CursorQuery = %q, want %q", got, want)
	}
}

func TestCursorQuery_Postgres_WithCursor(t *testing.T) {
	b := New(dialect.Postgres{})
	got := b.CursorQuery("", "orders", "created_at", "order_id", []string{"order_id"}, true)
	if !strings.Contains(got, `AND ("created_at" > $2 OR ("created_at" = $2 AND "order_id" > $3))`) {
		t.Errorf("CursorQuery missing cursor predicate: %q", got)
	}
	if !strings.HasSuffix(got, "LIMIT $4") {
		t.Errorf("CursorQuery placeholder numbering wrong: %q", got)
	}
}

func TestCursorQuery_MSSQL_UsesTopAndReadPast(t *testing.T) {
	b := New(dialect.MSSQL{})
	got := b.CursorQuery("dbo", "orders", "created_at", "order_id", []string{"order_id"}, false)
	want := `SELECT TOP (@p2) [order_id] FROM [dbo].[orders] WITH (READPAST) WHERE [created_at] < @p1 ORDER BY [created_at] ASC, [order_id] ASC`
	if got != want {
		t.Errorf("CursorQuery = %q, want %q", got, want)
	}
}

func TestCursorQuery_NoColumns_SelectsStar(t *testing.T) {
	pg := New(dialect.Postgres{})
	got := pg.CursorQuery("", "orders", "created_at", "order_id", nil, false)
	want := `SELECT * FROM "orders" WHERE "created_at" < $1 ORDER BY "created_at" ASC, "order_id" ASC LIMIT $2`
	if got != want {
		t.Errorf("CursorQuery(nil cols) = %q, want %q", got, want)
	}

	ms := New(dialect.MSSQL{})
	got = ms.CursorQuery("dbo", "orders", "created_at", "order_id", nil, false)
	want = `SELECT TOP (@p2) * FROM [dbo].[orders] WITH (READPAST) WHERE [created_at] < @p1 ORDER BY [created_at] ASC, [order_id] ASC`
	if got != want {
		t.Errorf("CursorQuery(nil cols) = %q, want %q", got, want)
	}
}
