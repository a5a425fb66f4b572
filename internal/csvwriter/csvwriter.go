// Package csvwriter streams ordered, column-tagged rows into one or more
// UTF-8 files with a byte-order mark, splitting by a row-count limit and
// escaping per §4.6 of the engine spec.
package csvwriter

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/johndauphine/archive-engine/internal/row"
)

// bom is the UTF-8 byte-order mark. The spec pins CSV output to include
// it (§4.6, §9 open question resolved).
var bom = []byte{0xEF, 0xBB, 0xBF}

// DefaultDelimiter, DefaultMaxRowsPerFile, and DefaultFileNameTemplate
// match §6's recognized CSV options.
const (
	DefaultDelimiter        = ","
	DefaultMaxRowsPerFile   = 100_000
	DefaultFileNameTemplate = "{TableName}_{FromDate:yyyyMMdd}_{ToDate:yyyyMMdd}_Part{PartIndex}.csv"
)

// Options configures one writeParts call.
type Options struct {
	RootFolder       string
	Table            string
	FromDate         time.Time
	ToDate           time.Time
	Delimiter        string
	MaxRowsPerFile   int
	FileNameTemplate string
}

func (o Options) withDefaults() Options {
	if o.Delimiter == "" {
		o.Delimiter = DefaultDelimiter
	}
	if o.MaxRowsPerFile <= 0 {
		o.MaxRowsPerFile = DefaultMaxRowsPerFile
	}
	if o.FileNameTemplate == "" {
		o.FileNameTemplate = DefaultFileNameTemplate
	}
	return o
}

// WriteParts partitions rows into chunks of at most opts.MaxRowsPerFile
// and writes one file per chunk under
// <rootFolder>/<table>/<yyyyMM of toDate>/, returning the written file
// paths in part order. The destination folder is created idempotently.
// Each file is overwritten if it already exists, so a re-run after a
// crash reproduces identical output (§6, filesystem contract).
func WriteParts(columns []string, rows row.Batch, opts Options) ([]string, error) {
	opts = opts.withDefaults()

	dir := filepath.Join(opts.RootFolder, opts.Table, opts.ToDate.Format("200601"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive folder %s: %w", dir, err)
	}

	var written []string
	total := len(rows)
	for start, partIndex := 0, 1; start < total; start, partIndex = start+opts.MaxRowsPerFile, partIndex+1 {
		end := start + opts.MaxRowsPerFile
		if end > total {
			end = total
		}
		chunk := rows[start:end]

		name := resolveFileName(opts.FileNameTemplate, opts.Table, opts.FromDate, opts.ToDate, partIndex)
		path := filepath.Join(dir, name)

		if err := writeFile(path, columns, chunk, opts.Delimiter); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writeFile(path string, columns []string, rows row.Batch, delimiter string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.Write(bom); err != nil {
		return fmt.Errorf("writing BOM to %s: %w", path, err)
	}

	header := make([]string, len(columns))
	copy(header, columns)
	if _, err := w.WriteString(strings.Join(header, delimiter) + "\n"); err != nil {
		return fmt.Errorf("writing header to %s: %w", path, err)
	}

	for _, r := range rows {
		fields := make([]string, len(columns))
		for i, c := range columns {
			v, _ := r.Get(c)
			fields[i] = EscapeCsv(v, delimiter)
		}
		if _, err := w.WriteString(strings.Join(fields, delimiter) + "\n"); err != nil {
			return fmt.Errorf("writing row to %s: %w", path, err)
		}
	}

	return w.Flush()
}

// EscapeCsv stringifies value and quotes it when it contains the
// delimiter, a double-quote, or a newline, doubling any embedded
// double-quote (§4.6).
func EscapeCsv(value any, delimiter string) string {
	if value == nil {
		return ""
	}

	s := stringify(value)
	if strings.Contains(s, delimiter) || strings.Contains(s, `"`) || strings.Contains(s, "\n") || strings.Contains(s, "\r") {
		s = `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
		return s
	}
	return s
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case time.Time:
		return v.UTC().Format("2006-01-02T15:04:05.000Z")
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// resolveFileName substitutes the template tokens described in §3:
// {TableName}, {FromDate:yyyyMMdd}, {ToDate:yyyyMMdd}, {PartIndex}
// (zero-padded to width 2).
func resolveFileName(template, table string, from, to time.Time, partIndex int) string {
	name := template
	name = strings.ReplaceAll(name, "{TableName}", table)
	name = strings.ReplaceAll(name, "{FromDate:yyyyMMdd}", from.Format("20060102"))
	name = strings.ReplaceAll(name, "{ToDate:yyyyMMdd}", to.Format("20060102"))
	name = strings.ReplaceAll(name, "{PartIndex}", fmt.Sprintf("%02d", partIndex))
	return name
}
