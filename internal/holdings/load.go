package holdings

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/lehigh-university-libraries/srp/internal/tabular"
)

// Columns names the licensing dataset columns (lowercased header names).
// Include and Free may be empty when the export has no such column.
type Columns struct {
	Key      string `yaml:"key" validate:"required"`
	Title    string `yaml:"title"`
	ISSN     string `yaml:"issn"`
	EISSN    string `yaml:"eissn"`
	Resource string `yaml:"resource" validate:"required"`
	EndDate  string `yaml:"enddate" validate:"required"`
	Include  string `yaml:"include"`
	Free     string `yaml:"free"`
}

// DefaultColumns matches the current licensing report export.
func DefaultColumns() Columns {
	return Columns{
		Key:      "id",
		Title:    "title",
		ISSN:     "issn",
		EISSN:    "eissn",
		Resource: "resource",
		EndDate:  "enddate",
		Include:  "include as alt-access point?",
		Free:     "freely avail?",
	}
}

// Catalog is the loaded licensing dataset.
type Catalog struct {
	// Titles in order of first appearance.
	Titles []*Title
	// Excluded holds the keys of access points that were whitelisted out.
	Excluded map[string]struct{}
	// HasAccess is true when every licensing file has free/paid data, enabling
	// the free and paid ranking views.
	HasAccess bool
	// AccessPoints counts the included access points.
	AccessPoints int
}

// ExcludedKeys returns the excluded keys sorted.
func (c *Catalog) ExcludedKeys() []string {
	keys := make([]string, 0, len(c.Excluded))
	for k := range c.Excluded {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Load builds titles from licensing tables. Titles are created the first time
// a key is seen and receive access points in row order. Excluded access
// points are dropped but their key is remembered. An invalid whitelist or
// free/paid value stops the load with a *FlagError.
func Load(tables []*tabular.Table, cols Columns, today time.Time) (*Catalog, error) {
	catalog := &Catalog{
		Excluded:  make(map[string]struct{}),
		HasAccess: cols.Free != "",
	}
	byKey := make(map[string]*Title)

	// The free and paid views need the column in every file, but cells are
	// checked wherever the column exists.
	for _, table := range tables {
		if err := checkColumns(table, cols); err != nil {
			return nil, err
		}
		if cols.Free != "" && !table.HasColumn(cols.Free) {
			catalog.HasAccess = false
		}
	}

	for _, table := range tables {
		withAccess := cols.Free != "" && table.HasColumn(cols.Free)
		for _, row := range table.Rows {
			ap, err := accessPointFromRow(row, cols, withAccess, today)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", table.Path, err)
			}
			if ap.TitleKey == "" {
				slog.Warn("Skipping licensing row without key", "path", table.Path, "line", row.Line)
				continue
			}
			if !ap.Included() {
				catalog.Excluded[ap.TitleKey] = struct{}{}
				continue
			}

			title, ok := byKey[ap.TitleKey]
			if !ok {
				title = NewTitle(ap.TitleKey)
				byKey[ap.TitleKey] = title
				catalog.Titles = append(catalog.Titles, title)
			}
			title.Add(ap)
			catalog.AccessPoints++
		}
	}

	slog.Info("Licensing dataset loaded",
		"titles", len(catalog.Titles),
		"access_points", catalog.AccessPoints,
		"excluded_keys", len(catalog.Excluded),
		"free_paid", catalog.HasAccess)

	return catalog, nil
}

func checkColumns(table *tabular.Table, cols Columns) error {
	required := []string{cols.Key, cols.Resource, cols.EndDate}
	if cols.Include != "" {
		required = append(required, cols.Include)
	}
	for _, c := range required {
		if !table.HasColumn(c) {
			return fmt.Errorf("%s: licensing dataset has no %q column", table.Path, c)
		}
	}
	return nil
}

func accessPointFromRow(row tabular.Row, cols Columns, withAccess bool, today time.Time) (*AccessPoint, error) {
	ap := AccessPoint{
		TitleKey:   row.Get(cols.Key),
		TitleName:  row.Get(cols.Title),
		Resource:   row.Get(cols.Resource),
		Descriptor: row.Raw(cols.EndDate),
		ISSN:       row.Get(cols.ISSN),
		EISSN:      row.Get(cols.EISSN),
	}

	if cols.Include != "" {
		inclusion, err := ParseInclusion(row.Raw(cols.Include))
		if err != nil {
			return nil, flagError(row, cols.Include, err)
		}
		ap.Inclusion = inclusion
	}

	if withAccess {
		access, err := ParseAccess(row.Raw(cols.Free))
		if err != nil {
			return nil, flagError(row, cols.Free, err)
		}
		ap.Access = access
	}

	return NewAccessPoint(ap, today), nil
}

func flagError(row tabular.Row, column string, err error) error {
	if !errors.Is(err, ErrInvalidFlag) {
		return err
	}
	return &FlagError{Line: row.Line, Column: column, Value: row.Raw(column)}
}
