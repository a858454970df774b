package tabular

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"golang.org/x/text/encoding/unicode"
)

func TestReadTSV(t *testing.T) {
	input := "ID\t Title \tEndDate\n" +
		"ssj0001\t\"Quoted\" Journal\t2015\n" +
		"\n" +
		"ssj0002\tShort Row\r\n"

	table, err := ReadTSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadTSV failed: %v", err)
	}

	wantHeader := []string{"id", "title", "enddate"}
	if !reflect.DeepEqual(table.Header, wantHeader) {
		t.Errorf("Header = %v, want %v", table.Header, wantHeader)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(table.Rows))
	}

	first := table.Rows[0]
	if first.Line != 2 {
		t.Errorf("first row line = %d, want 2", first.Line)
	}
	if got := first.Get("title"); got != `"Quoted" Journal` {
		t.Errorf("quotes should be kept as data, got %q", got)
	}

	second := table.Rows[1]
	if second.Line != 4 {
		t.Errorf("second row line = %d, want 4", second.Line)
	}
	if got := second.Get("title"); got != "Short Row" {
		t.Errorf("title = %q, want %q", got, "Short Row")
	}
	if got := second.Raw("enddate"); got != "" {
		t.Errorf("missing trailing field should be empty, got %q", got)
	}
	if got := second.Get("nonexistent"); got != "" {
		t.Errorf("unknown column should be empty, got %q", got)
	}
}

func TestReadTSVEmpty(t *testing.T) {
	if _, err := ReadTSV(strings.NewReader("")); err == nil {
		t.Error("Expected error for input without header")
	}
}

func TestReadCSV(t *testing.T) {
	input := "ssj#,Title,ISSN1\n" +
		"ssj0001,\"Journal, The\",1234-5678\n" +
		"ssj0002,Other\n"

	table, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if !table.HasColumn("issn1") {
		t.Errorf("expected lowercased issn1 column in %v", table.Header)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(table.Rows))
	}
	if got := table.Rows[0].Get("title"); got != "Journal, The" {
		t.Errorf("title = %q", got)
	}
	if got := table.Rows[0].Line; got != 2 {
		t.Errorf("line = %d, want 2", got)
	}
	if got := table.Rows[1].Get("issn1"); got != "" {
		t.Errorf("short row issn1 = %q, want empty", got)
	}
}

func TestReadJSONL(t *testing.T) {
	input := `{"1": "ss0001", "022|a": "1234-5678", "count": 3}` + "\n" +
		"\n" +
		`{"1": "12345", "Extra": true, "missing": null}` + "\n"

	table, err := ReadJSONL(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadJSONL failed: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(table.Rows))
	}

	wantHeader := []string{"022|a", "1", "count", "extra", "missing"}
	if !reflect.DeepEqual(table.Header, wantHeader) {
		t.Errorf("Header = %v, want %v", table.Header, wantHeader)
	}
	if got := table.Rows[0].Get("count"); got != "3" {
		t.Errorf("count = %q, want 3", got)
	}
	if got := table.Rows[1].Get("extra"); got != "true" {
		t.Errorf("extra = %q, want true", got)
	}
	if got := table.Rows[1].Line; got != 3 {
		t.Errorf("line = %d, want 3", got)
	}

	if _, err := ReadJSONL(strings.NewReader("{not json}\n")); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestReadFileUTF16(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sierra.txt")

	encoded, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String("1\t245\nss0001\tJournal é\n")
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}
	if err := os.WriteFile(path, []byte(encoded), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	table, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if table.Path != path {
		t.Errorf("Path = %q, want %q", table.Path, path)
	}
	if !reflect.DeepEqual(table.Header, []string{"1", "245"}) {
		t.Errorf("Header = %q, byte order mark should be stripped", table.Header)
	}
	if got := table.Rows[0].Get("245"); got != "Journal é" {
		t.Errorf("245 = %q", got)
	}
}

func TestReadFileUTF8BOM(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "titles.csv")
	if err := os.WriteFile(path, []byte("\xef\xbb\xbfssj#,issn1\nssj0001,1234-5678\n"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	table, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !table.HasColumn("ssj#") {
		t.Errorf("Header = %q, want ssj# first", table.Header)
	}
}

func TestReadFileMissing(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestMergeHeaders(t *testing.T) {
	a := &Table{Header: []string{"1", "245", "022|a"}}
	b := &Table{Header: []string{"1", "776|x", "245"}}

	got := MergeHeaders(a, b)
	want := []string{"1", "245", "022|a", "776|x"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MergeHeaders = %v, want %v", got, want)
	}
}
