package csvwriter

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/johndauphine/archive-engine/internal/row"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestEscapeCsv(t *testing.T) {
	cases := []struct {
		name  string
		value any
		want  string
	}{
		{"nil", nil, ""},
		{"plain", "hello", "hello"},
		{"comma", "a,b", `"a,b"`},
		{"quote-and-comma-and-newline", "he said \"hi\", then left\nbye", `"he said ""hi"", then left\nbye"`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			// the newline case's expected value uses a literal backslash-n in
			// the table above for readability; build the real expectation here.
			want := c.want
			if c.name == "quote-and-comma-and-newline" {
				want = "\"he said \"\"hi\"\", then left\nbye\""
			}
			got := EscapeCsv(c.value, ",")
			if got != want {
				t.Errorf("EscapeCsv(%v) = %q, want %q", c.value, got, want)
			}
		})
	}
}

func TestWriteParts_Partitioning(t *testing.T) {
	dir := t.TempDir()

	cols := []string{"id", "val"}
	var rows row.Batch
	for i := 0; i < 250; i++ {
		rows = append(rows, row.New(cols, []any{i, "v"}))
	}

	paths, err := WriteParts(cols, rows, Options{
		RootFolder:     dir,
		Table:          "orders",
		FromDate:       date(2022, 3, 1),
		ToDate:         date(2022, 3, 31),
		MaxRowsPerFile: 100,
	})
	if err != nil {
		t.Fatalf("WriteParts: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(paths))
	}

	wantDir := filepath.Join(dir, "orders", "202203")
	counts := []int{100, 100, 50}
	for i, p := range paths {
		if filepath.Dir(p) != wantDir {
			t.Errorf("part %d: dir = %s, want %s", i, filepath.Dir(p), wantDir)
		}
		if !strings.Contains(filepath.Base(p), partSuffix(i+1)) {
			t.Errorf("part %d: filename %s missing part suffix", i, filepath.Base(p))
		}
		n, bomOK := countDataLines(t, p)
		if !bomOK {
			t.Errorf("part %d: missing BOM", i)
		}
		if n != counts[i] {
			t.Errorf("part %d: %d data lines, want %d", i, n, counts[i])
		}
	}
}

func partSuffix(partIndex int) string {
	return "Part0" + string(rune('0'+partIndex))
}

func countDataLines(t *testing.T, path string) (int, bool) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	bomOK := bytes.HasPrefix(data, bom)
	data = bytes.TrimPrefix(data, bom)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lines := 0
	for scanner.Scan() {
		lines++
	}
	// subtract the header line
	return lines - 1, bomOK
}
