package dialect

import "testing"

func TestValidIdentifier(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"orders", true},
		{"dbo.orders", true},
		{"order_line_items", true},
		{"", false},
		{"orders; DROP TABLE x", false},
		{`orders"`, false},
		{"orders--comment", false},
	}
	for _, tt := range tests {
		if got := ValidIdentifier(tt.name); got != tt.want {
			t.Errorf("ValidIdentifier(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestChunkStrings(t *testing.T) {
	ids := []string{"1", "2", "3", "4", "5"}

	chunks := ChunkStrings(ids, 2)
	want := [][]string{{"1", "2"}, {"3", "4"}, {"5"}}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d", len(chunks), len(want))
	}
	for i := range want {
		if len(chunks[i]) != len(want[i]) {
			t.Fatalf("chunk %d: got %v, want %v", i, chunks[i], want[i])
		}
	}

	if got := ChunkStrings(nil, 2); got != nil {
		t.Errorf("ChunkStrings(nil) = %v, want nil", got)
	}

	full := ChunkStrings(ids, 0)
	if len(full) != 1 || len(full[0]) != 5 {
		t.Errorf("ChunkStrings with size<=0 should default to MaxParamsPerCommand, got %v", full)
	}
}

func TestInClause_Postgres(t *testing.T) {
	got := InClause(Postgres{}, "id", 1, 3)
	want := `"id" IN ($1, $2, $3)`
	if got != want {
		t.Errorf("InClause = %q, want %q", got, want)
	}
}

func TestInClause_MSSQL(t *testing.T) {
	got := InClause(MSSQL{}, "id", 1, 2)
	want := `[id] IN (@p1, @p2)`
	if got != want {
		t.Errorf("InClause = %q, want %q", got, want)
	}
}

func TestQualifyTable(t *testing.T) {
	if got := (Postgres{}).QualifyTable("archive", "orders"); got != `"archive"."orders"` {
		t.Errorf("Postgres QualifyTable = %q", got)
	}
	if got := (Postgres{}).QualifyTable("", "orders"); got != `"orders"` {
		t.Errorf("Postgres QualifyTable (no schema) = %q, want unqualified", got)
	}
	if got := (MSSQL{}).QualifyTable("dbo", "orders"); got != `[dbo].[orders]` {
		t.Errorf("MSSQL QualifyTable = %q", got)
	}
	if got := (MSSQL{}).QualifyTable("", "orders"); got != `[orders]` {
		t.Errorf("MSSQL QualifyTable (no schema) = %q, want unqualified", got)
	}
}

func TestReadPastHint(t *testing.T) {
	if got := (MSSQL{}).ReadPastHint(); got != "WITH (READPAST)" {
		t.Errorf("MSSQL ReadPastHint = %q", got)
	}
	if got := (Postgres{}).ReadPastHint(); got != "" {
		t.Errorf("Postgres ReadPastHint = %q, want empty (relies on MVCC)", got)
	}
}
