package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/lehigh-university-libraries/srp/internal/holdings"
	"github.com/lehigh-university-libraries/srp/internal/match"
)

// MatchedRow is the columnar form of a reconciled record, used for loading
// results into analysis tools. Ambiguous records are included with their
// first-ranked candidate so the export is complete.
type MatchedRow struct {
	RunID         string   `parquet:"run_id"`
	Source        string   `parquet:"source"`
	Record        string   `parquet:"record"`
	MatchCount    int32    `parquet:"match_count"`
	Ambiguous     bool     `parquet:"ambiguous"`
	NeedsReview   bool     `parquet:"needs_review"`
	Strategy      string   `parquet:"strategy"`
	Notes         string   `parquet:"notes"`
	Identifiers   []string `parquet:"identifiers"`
	TitleKey      string   `parquet:"title_key"`
	TitleName     string   `parquet:"title_name"`
	BestType      string   `parquet:"best_type"`
	BestDate      string   `parquet:"best_date"`
	BestResources string   `parquet:"best_resources"`
	PaidType      string   `parquet:"best_type_paid"`
	PaidDate      string   `parquet:"best_date_paid"`
	PaidResources string   `parquet:"best_resources_paid"`
	FreeType      string   `parquet:"best_type_free"`
	FreeDate      string   `parquet:"best_date_free"`
	FreeResources string   `parquet:"best_resources_free"`
}

// NewMatchedRow flattens a record. Free and paid columns stay empty unless
// hasAccess is set.
func NewMatchedRow(runID string, r *match.Record, hasAccess bool) MatchedRow {
	row := MatchedRow{
		RunID:       runID,
		Source:      string(r.Source.Kind()),
		Record:      r.ID(),
		MatchCount:  int32(r.MatchCount()),
		Ambiguous:   r.Ambiguous(),
		NeedsReview: r.NeedsReview,
		Strategy:    string(r.Strategy),
		Notes:       r.Annotation(),
		Identifiers: append([]string{}, r.Identifiers()...),
	}

	var best *holdings.Title
	if r.Ambiguous() {
		best = r.Ranked()[0]
	} else {
		best = r.Best()
	}
	if best == nil {
		return row
	}

	row.TitleKey = best.Key
	row.TitleName = best.Name()
	row.BestType, row.BestDate, row.BestResources = summaryFields(best.Summary(holdings.FilterAll))
	if hasAccess {
		row.PaidType, row.PaidDate, row.PaidResources = summaryFields(best.Summary(holdings.FilterPaid))
		row.FreeType, row.FreeDate, row.FreeResources = summaryFields(best.Summary(holdings.FilterFree))
	}
	return row
}

func summaryFields(s holdings.Summary) (string, string, string) {
	v := SummaryValues(s)
	return v[0], v[1], v[2]
}

// WriteParquet writes rows to path.
func WriteParquet(path string, rows []MatchedRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("failed to write parquet %s: %w", path, err)
	}
	return nil
}
