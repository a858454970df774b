package report

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/srp/internal/holdings"
	"github.com/lehigh-university-libraries/srp/internal/match"
)

// WriteAmbiguous writes every multi-matched record for manual triage. Each
// block starts with a sequence number and the record id (the value to use
// in a resolutions file), then the record itself, then one line per
// candidate title, best access first.
func WriteAmbiguous(path string, input []string, records []*match.Record, views []holdings.Filter) error {
	return writeLines(path, func(w *bufio.Writer) error {
		n := 0
		for _, r := range records {
			if !r.Ambiguous() {
				continue
			}
			if err := writeRow(w, []string{strconv.Itoa(n), r.ID()}); err != nil {
				return err
			}
			if err := writeRow(w, MatchedValues(r, input, views)); err != nil {
				return err
			}
			for _, t := range r.Ranked() {
				if err := writeRow(w, CandidateValues(t, views)); err != nil {
					return err
				}
			}
			if err := w.WriteByte('\n'); err != nil {
				return err
			}
			n++
		}
		return nil
	})
}

// CandidateValues renders one candidate title of an ambiguous record. The
// leading empty column indents candidates under their record.
func CandidateValues(t *holdings.Title, views []holdings.Filter) []string {
	row := []string{"", t.Key, t.Name(), strings.Join(t.Identifiers(), " | ")}
	for _, v := range views {
		row = append(row, SummaryValues(t.Summary(v))...)
	}
	return row
}
