// Package report writes the reconciliation results: the matched and
// ambiguous record reports, the data-quality check lists, a Parquet export
// and the run summary.
package report

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/srp/internal/holdings"
	"github.com/lehigh-university-libraries/srp/internal/match"
)

// Views returns the ranking views reported. The free and paid views need
// free/paid data in the licensing dataset.
func Views(hasAccess bool) []holdings.Filter {
	if hasAccess {
		return []holdings.Filter{holdings.FilterAll, holdings.FilterPaid, holdings.FilterFree}
	}
	return []holdings.Filter{holdings.FilterAll}
}

// ResultColumns are appended after the input columns of the matched report.
var ResultColumns = []string{
	"matchcount",
	"notes",
	"all_identifiers",
	"matching_key",
	"matching_title",
	"strategy",
}

// ViewColumns returns the best-access column names for one view.
func ViewColumns(f holdings.Filter) []string {
	cols := []string{"best_type", "best_date", "best_resources"}
	if suffix := f.Suffix(); suffix != "" {
		for i := range cols {
			cols[i] += "_" + suffix
		}
	}
	return cols
}

// MatchedHeader is the full header of the matched report.
func MatchedHeader(input []string, views []holdings.Filter) []string {
	header := append([]string{}, input...)
	header = append(header, ResultColumns...)
	for _, v := range views {
		header = append(header, ViewColumns(v)...)
	}
	return header
}

// SummaryValues renders a ranking summary as type, date and resources.
func SummaryValues(s holdings.Summary) []string {
	if s.Empty() {
		return []string{"", "", ""}
	}
	return []string{s.End.Mode.String(), s.End.Display, s.Resources}
}

// MatchedValues renders one record as a matched report row. Records without
// a match only carry their input values, the count and the notes.
func MatchedValues(r *match.Record, input []string, views []holdings.Filter) []string {
	row := make([]string, 0, len(input)+len(ResultColumns)+3*len(views))
	src := r.Source.Row()
	for _, h := range input {
		row = append(row, src.Raw(h))
	}
	row = append(row,
		strconv.Itoa(r.MatchCount()),
		r.Annotation(),
		strings.Join(r.Identifiers(), " | "),
	)

	best := r.Best()
	if best == nil {
		return row
	}
	row = append(row, best.Key, best.Name(), string(r.Strategy))
	for _, v := range views {
		row = append(row, SummaryValues(best.Summary(v))...)
	}
	return row
}

// WriteMatched writes the matched report for records of one source. Only
// records with at most one match are written; ambiguous records belong in
// the ambiguous report until resolved.
func WriteMatched(path string, input []string, records []*match.Record, views []holdings.Filter) error {
	return writeLines(path, func(w *bufio.Writer) error {
		if err := writeRow(w, MatchedHeader(input, views)); err != nil {
			return err
		}
		for _, r := range records {
			if r.Ambiguous() {
				continue
			}
			if err := writeRow(w, MatchedValues(r, input, views)); err != nil {
				return err
			}
		}
		return nil
	})
}

// tsvCleaner keeps field values on one line and inside one column.
var tsvCleaner = strings.NewReplacer("\t", " ", "\r\n", " ", "\n", " ", "\r", " ")

func writeRow(w *bufio.Writer, values []string) error {
	for i, v := range values {
		if i > 0 {
			if err := w.WriteByte('\t'); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(tsvCleaner.Replace(v)); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}

// writeLines creates path, runs fill against a buffered writer and flushes.
func writeLines(path string, fill func(w *bufio.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if err := fill(w); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}
