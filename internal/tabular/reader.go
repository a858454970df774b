package tabular

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Row is one data row keyed by lowercased header name.
type Row struct {
	Line   int
	Values map[string]string
}

// Get returns the trimmed value of a column, or "" when the row has none.
func (r Row) Get(column string) string {
	return strings.TrimSpace(r.Values[column])
}

// Raw returns the untrimmed value of a column.
func (r Row) Raw(column string) string {
	return r.Values[column]
}

// Table is a parsed delimited-text file.
type Table struct {
	Path string
	// Name identifies the file in record ids. Empty means the base name of Path.
	Name   string
	Header []string
	Rows   []Row
}

// DisplayName returns Name, or the base name of Path when Name is unset.
func (t *Table) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return filepath.Base(t.Path)
}

// HasColumn reports whether the header names column.
func (t *Table) HasColumn(column string) bool {
	for _, h := range t.Header {
		if h == column {
			return true
		}
	}
	return false
}

// ReadFile loads a table, choosing the format by extension: .jsonl/.json are
// one JSON object per line, .csv is comma separated, anything else is tab
// separated with no quoting. Byte order marks select UTF-16 or UTF-8;
// unmarked files are read as UTF-8.
func ReadFile(path string) (*Table, error) {
	slog.Debug("Opening table", "path", path)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	r := Decode(file)

	var table *Table
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".json":
		table, err = ReadJSONL(r)
	case ".csv":
		table, err = ReadCSV(r)
	default:
		table, err = ReadTSV(r)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	table.Path = path

	slog.Debug("Finished reading table", "path", path, "columns", len(table.Header), "rows", len(table.Rows))
	return table, nil
}

// Decode wraps r so that UTF-16 and UTF-8 byte order marks are honored and
// stripped.
func Decode(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// ReadTSV reads tab-separated rows. The exports this tool consumes never quote
// fields, so quotes are kept as data.
func ReadTSV(r io.Reader) (*Table, error) {
	scanner := bufio.NewScanner(r)

	// Increase buffer size for long title rows
	const maxCapacity = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxCapacity)

	table := &Table{}
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if lineNum == 1 {
			table.Header = normalizeHeader(strings.Split(line, "\t"))
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		table.Rows = append(table.Rows, table.row(lineNum, strings.Split(line, "\t")))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading line %d: %w", lineNum+1, err)
	}
	if table.Header == nil {
		return nil, fmt.Errorf("missing header row")
	}
	return table, nil
}

// ReadCSV reads comma-separated rows with standard quoting.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	table := &Table{Header: normalizeHeader(header)}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		line, _ := reader.FieldPos(0)
		table.Rows = append(table.Rows, table.row(line, record))
	}
	return table, nil
}

// ReadJSONL reads one JSON object per line. Scalar values are rendered as
// text; the header is the set of keys in order of first appearance.
func ReadJSONL(r io.Reader) (*Table, error) {
	scanner := bufio.NewScanner(r)

	// Increase buffer size for large JSON lines
	const maxCapacity = 10 * 1024 * 1024 // 10MB per line
	scanner.Buffer(make([]byte, 64*1024), maxCapacity)

	table := &Table{}
	seen := make(map[string]struct{})
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var object map[string]any
		if err := json.Unmarshal(line, &object); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}

		keys := make([]string, 0, len(object))
		for k := range object {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		values := make(map[string]string, len(object))
		for _, k := range keys {
			name := strings.ToLower(strings.TrimSpace(k))
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				table.Header = append(table.Header, name)
			}
			values[name] = jsonText(object[k])
		}
		table.Rows = append(table.Rows, Row{Line: lineNum, Values: values})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading dataset: %w", err)
	}
	return table, nil
}

func (t *Table) row(line int, fields []string) Row {
	values := make(map[string]string, len(t.Header))
	for i, name := range t.Header {
		if i < len(fields) {
			values[name] = fields[i]
		} else {
			values[name] = ""
		}
	}
	return Row{Line: line, Values: values}
}

func normalizeHeader(fields []string) []string {
	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = strings.ToLower(strings.TrimSpace(f))
	}
	return header
}

func jsonText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}

// MergeHeaders returns the union of the tables' headers in order of first
// appearance.
func MergeHeaders(tables ...*Table) []string {
	seen := make(map[string]struct{})
	var header []string
	for _, t := range tables {
		for _, h := range t.Header {
			if _, ok := seen[h]; ok {
				continue
			}
			seen[h] = struct{}{}
			header = append(header, h)
		}
	}
	return header
}
