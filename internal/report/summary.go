package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/srp/internal/enrich"
)

// SummaryFile is the run summary file name.
const SummaryFile = "run_summary.yaml"

// Inputs lists the files a run read.
type Inputs struct {
	Licensing []string `yaml:"licensing"`
	Sierra    []string `yaml:"sierra,omitempty"`
	TitleList []string `yaml:"titlelist,omitempty"`
}

// SourceCounts counts outcomes for one record source.
type SourceCounts struct {
	Kind        string `yaml:"kind"`
	Records     int    `yaml:"records"`
	Matched     int    `yaml:"matched"`
	Unmatched   int    `yaml:"unmatched"`
	Ambiguous   int    `yaml:"ambiguous"`
	Resolved    int    `yaml:"resolved"`
	NeedsReview int    `yaml:"needs_review"`
}

// LookupCounts describes the bibliographic lookup activity.
type LookupCounts struct {
	Provider  string `yaml:"provider"`
	Cache     string `yaml:"cache,omitempty"`
	CacheHits int64  `yaml:"cache_hits"`
	Fetches   int64  `yaml:"fetches"`
}

// Summary is the machine-readable record of one run.
type Summary struct {
	RunID             string         `yaml:"run_id"`
	Timestamp         string         `yaml:"timestamp"`
	Today             string         `yaml:"today"`
	Inputs            Inputs         `yaml:"inputs"`
	Titles            int            `yaml:"titles"`
	AccessPoints      int            `yaml:"access_points"`
	ExcludedKeys      int            `yaml:"excluded_keys"`
	FreePaidViews     bool           `yaml:"free_paid_views"`
	MissingKeys       int            `yaml:"missing_keys"`
	SharedIdentifiers int            `yaml:"shared_identifiers"`
	FailedDescriptors int            `yaml:"failed_descriptors"`
	Sources           []SourceCounts `yaml:"sources"`
	Strategies        map[string]int `yaml:"strategies"`
	Enrichment        enrich.Stats   `yaml:"enrichment"`
	Lookup            LookupCounts   `yaml:"lookup"`
	Outputs           []string       `yaml:"outputs"`
	Warnings          []string       `yaml:"warnings,omitempty"`
}

// SaveSummary writes s as YAML.
func SaveSummary(path string, s *Summary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write YAML file: %w", err)
	}
	return nil
}

// LoadSummary reads a summary written by SaveSummary.
func LoadSummary(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read summary: %w", err)
	}
	var s Summary
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse summary: %w", err)
	}
	return &s, nil
}

// RenderSummary prints the per-source counts and strategy counts. Styled
// output is a rounded table for terminals; otherwise CSV for piping.
func RenderSummary(w io.Writer, s *Summary, styled bool) error {
	tw := table.NewWriter()
	tw.SetTitle("Run " + s.RunID)
	tw.AppendHeader(table.Row{"source", "records", "matched", "unmatched", "ambiguous", "resolved", "needs review"})
	for _, c := range s.Sources {
		tw.AppendRow(table.Row{c.Kind, c.Records, c.Matched, c.Unmatched, c.Ambiguous, c.Resolved, c.NeedsReview})
	}

	configs := []table.ColumnConfig{{Number: 1, Align: text.AlignLeft}}
	for i := 2; i <= 7; i++ {
		configs = append(configs, table.ColumnConfig{Number: i, Align: text.AlignRight, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	strategies := make([]string, 0, len(s.Strategies))
	for k := range s.Strategies {
		strategies = append(strategies, k)
	}
	sort.Strings(strategies)

	st := table.NewWriter()
	st.AppendHeader(table.Row{"strategy", "records"})
	for _, k := range strategies {
		st.AppendRow(table.Row{k, strconv.Itoa(s.Strategies[k])})
	}

	var out string
	if styled {
		tw.SetStyle(table.StyleRounded)
		st.SetStyle(table.StyleRounded)
		out = tw.Render() + "\n" + st.Render() + "\n"
	} else {
		out = tw.RenderCSV() + "\n" + st.RenderCSV() + "\n"
	}
	_, err := io.WriteString(w, out)
	return err
}
