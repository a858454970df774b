package match

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lehigh-university-libraries/srp/internal/holdings"
	"github.com/lehigh-university-libraries/srp/internal/tabular"
)

// KeyPrefix marks values that live in the licensing report's key namespace.
const KeyPrefix = "ss"

// Kind names the feed a record came from.
type Kind string

const (
	KindSierra    Kind = "sierra"
	KindTitleList Kind = "titlelist"
)

// Source is an external record that can be matched against licensed titles.
type Source interface {
	// ID is stable across runs over the same input file.
	ID() string
	Kind() Kind
	// Row is the input row, echoed into the reports.
	Row() tabular.Row
	// KeyCandidate is the record's guess at a title key, or "".
	KeyCandidate() string
	Identifiers() []string
	// LookupKey is the bibliographic lookup identifier, or "" when the record
	// has none and fallback enrichment must be skipped.
	LookupKey() string
	// WeakIdentifiers are last-resort identifiers with a high false positive
	// rate.
	WeakIdentifiers() []string
}

func recordID(name string, row tabular.Row) string {
	return fmt.Sprintf("%s:%d", name, row.Line)
}

func keyCandidate(raw string) string {
	if strings.HasPrefix(raw, KeyPrefix) {
		return raw
	}
	return ""
}

// SierraColumns names the ILS export columns.
type SierraColumns struct {
	BibNumber string `yaml:"bib_number" validate:"required"`
	Title     string `yaml:"title"`
	ISSNa     string `yaml:"issn_a"`
	ISSNl     string `yaml:"issn_l"`
	ISSNy     string `yaml:"issn_y"`
	Linking   string `yaml:"linking_issn"`
}

// DefaultSierraColumns matches the headers of a Sierra "create list" export.
func DefaultSierraColumns() SierraColumns {
	return SierraColumns{
		BibNumber: "1",
		Title:     "245",
		ISSNa:     "022|a",
		ISSNl:     "022|l",
		ISSNy:     "022|y",
		Linking:   "776|x",
	}
}

var oclcNumber = regexp.MustCompile(`^[0-9]+`)

// SierraRecord is one row of the ILS export.
type SierraRecord struct {
	id   string
	row  tabular.Row
	bib  string
	ids  []string
	weak []string
}

// NewSierraRecord extracts identifiers from an ILS export row of the file
// named name. The 022 fields are space separated, 776|x is semicolon separated.
func NewSierraRecord(name string, row tabular.Row, cols SierraColumns) *SierraRecord {
	r := &SierraRecord{
		id:  recordID(name, row),
		row: row,
		bib: row.Get(cols.BibNumber),
	}
	r.ids = appendClean(r.ids, strings.Fields(row.Raw(cols.ISSNa))...)
	r.ids = appendClean(r.ids, strings.Fields(row.Raw(cols.ISSNl))...)
	r.ids = appendClean(r.ids, strings.Split(row.Raw(cols.Linking), ";")...)
	r.weak = appendClean(r.weak, strings.Fields(row.Raw(cols.ISSNy))...)
	return r
}

func (r *SierraRecord) ID() string                { return r.id }
func (r *SierraRecord) Kind() Kind                { return KindSierra }
func (r *SierraRecord) Row() tabular.Row          { return r.row }
func (r *SierraRecord) KeyCandidate() string      { return keyCandidate(r.bib) }
func (r *SierraRecord) Identifiers() []string     { return r.ids }
func (r *SierraRecord) WeakIdentifiers() []string { return r.weak }

// LookupKey is the bib number when it is an OCLC number.
func (r *SierraRecord) LookupKey() string {
	return oclcNumber.FindString(r.bib)
}

// TitleListColumns names the publisher title list columns.
type TitleListColumns struct {
	Key   string `yaml:"key"`
	Title string `yaml:"title"`
	ISSN1 string `yaml:"issn1"`
	ISSN2 string `yaml:"issn2"`
}

// DefaultTitleListColumns matches the title list template sent to publishers.
func DefaultTitleListColumns() TitleListColumns {
	return TitleListColumns{
		Key:   "ssj#",
		Title: "title",
		ISSN1: "issn1",
		ISSN2: "issn2",
	}
}

// TitleListRecord is one row of a publisher title list.
type TitleListRecord struct {
	id  string
	row tabular.Row
	key string
	ids []string
}

// NewTitleListRecord extracts the print and online ISSN of a title list row.
func NewTitleListRecord(name string, row tabular.Row, cols TitleListColumns) *TitleListRecord {
	r := &TitleListRecord{
		id:  recordID(name, row),
		row: row,
		key: keyCandidate(row.Get(cols.Key)),
	}
	r.ids = appendClean(r.ids, row.Raw(cols.ISSN1), row.Raw(cols.ISSN2))
	return r
}

func (r *TitleListRecord) ID() string                { return r.id }
func (r *TitleListRecord) Kind() Kind                { return KindTitleList }
func (r *TitleListRecord) Row() tabular.Row          { return r.row }
func (r *TitleListRecord) KeyCandidate() string      { return r.key }
func (r *TitleListRecord) Identifiers() []string     { return r.ids }
func (r *TitleListRecord) LookupKey() string         { return "" }
func (r *TitleListRecord) WeakIdentifiers() []string { return nil }

// appendClean appends the non-placeholder values of raw that are not already
// in ids.
func appendClean(ids []string, raw ...string) []string {
	for _, v := range raw {
		id, ok := holdings.CleanIdentifier(v)
		if !ok || contains(ids, id) {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// Sources builds records from an input table of the given kind. Record ids
// use the table's display name, so tables of one run need distinct names.
func Sources(table *tabular.Table, kind Kind, sierra SierraColumns, titleList TitleListColumns) ([]Source, error) {
	var required []string
	switch kind {
	case KindSierra:
		required = []string{sierra.BibNumber}
	case KindTitleList:
		required = []string{titleList.ISSN1}
	default:
		return nil, fmt.Errorf("unknown record kind: %s", kind)
	}
	for _, c := range required {
		if c != "" && !table.HasColumn(c) {
			return nil, fmt.Errorf("%s: %s export has no %q column", table.Path, kind, c)
		}
	}

	name := table.DisplayName()
	sources := make([]Source, 0, len(table.Rows))
	for _, row := range table.Rows {
		if kind == KindSierra {
			sources = append(sources, NewSierraRecord(name, row, sierra))
		} else {
			sources = append(sources, NewTitleListRecord(name, row, titleList))
		}
	}
	return sources, nil
}
