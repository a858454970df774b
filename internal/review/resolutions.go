// Package review carries manual decisions about ambiguous matches from one
// run to the next. Ambiguity is never resolved without an operator entry.
package review

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/srp/internal/holdings"
	"github.com/lehigh-university-libraries/srp/internal/match"
)

// Resolution is an operator decision for one ambiguous record. Keep names
// the single correct title; Drop names wrong candidates.
type Resolution struct {
	Record string   `yaml:"record" validate:"required"`
	Keep   string   `yaml:"keep,omitempty" validate:"excluded_with=Drop"`
	Drop   []string `yaml:"drop,omitempty"`
	Note   string   `yaml:"note,omitempty"`
}

func (r Resolution) empty() bool {
	return strings.TrimSpace(r.Keep) == "" && len(r.Drop) == 0
}

// File is the resolutions file layout.
type File struct {
	Resolutions []Resolution `yaml:"resolutions" validate:"dive"`
}

// Load reads a resolutions file. An empty path or a missing file gives no
// resolutions.
func Load(path string) (*File, error) {
	if path == "" {
		return &File{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &File{}, nil
		}
		return nil, fmt.Errorf("failed to read resolutions: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse resolutions %s: %w", path, err)
	}
	if err := validator.New().Struct(f); err != nil {
		return nil, fmt.Errorf("invalid resolutions %s: %w", path, err)
	}
	return &f, nil
}

// Outcome summarizes Apply.
type Outcome struct {
	Resolved int
	// Warnings describe entries that could not be applied.
	Warnings []string
}

// Apply narrows ambiguous records according to the resolutions. A record is
// resolved once at most one title remains; it is then noted and its strategy
// becomes manual. Entries for unknown or unambiguous records, and keys that
// were not candidates, produce warnings.
func (f *File) Apply(records []*match.Record) Outcome {
	var out Outcome
	byID := make(map[string]*match.Record, len(records))
	for _, r := range records {
		byID[r.ID()] = r
	}

	for _, res := range f.Resolutions {
		if res.empty() {
			continue
		}
		r, ok := byID[res.Record]
		if !ok {
			out.Warnings = append(out.Warnings, fmt.Sprintf("%s: no such record", res.Record))
			continue
		}
		if !r.Ambiguous() {
			out.Warnings = append(out.Warnings, fmt.Sprintf("%s: record is not ambiguous (%d matches)", res.Record, r.MatchCount()))
			continue
		}

		if keep := strings.TrimSpace(res.Keep); keep != "" {
			if !r.Keep(keep) {
				out.Warnings = append(out.Warnings, fmt.Sprintf("%s: %s is not a candidate", res.Record, keep))
				continue
			}
		} else {
			for _, key := range r.Drop(res.Drop...) {
				out.Warnings = append(out.Warnings, fmt.Sprintf("%s: %s is not a candidate", res.Record, key))
			}
		}

		if r.Ambiguous() {
			out.Warnings = append(out.Warnings, fmt.Sprintf("%s: still %d candidates after resolution", res.Record, r.MatchCount()))
			continue
		}

		r.Note(match.NoteResolved)
		if res.Note != "" {
			r.Note(res.Note)
		}
		r.Strategy = match.StrategyNone
		r.Settle(match.StrategyManual)
		out.Resolved++
	}

	return out
}

// WriteTemplate writes a resolutions file with one empty entry per
// ambiguous record. Each entry is commented with its candidates, best first,
// so the operator only has to fill in keep or drop.
func WriteTemplate(w io.Writer, ambiguous []*match.Record) error {
	list := &yaml.Node{Kind: yaml.SequenceNode}
	for _, r := range ambiguous {
		var lines []string
		for _, t := range r.Ranked() {
			s := t.Summary(holdings.FilterAll)
			lines = append(lines, fmt.Sprintf("%s  %s  [%s %s] %s",
				t.Key, t.Name(), s.End.Mode, s.End.Display, s.Resources))
		}

		entry := &yaml.Node{
			Kind:        yaml.MappingNode,
			HeadComment: strings.Join(lines, "\n"),
			Content: []*yaml.Node{
				scalar("record"), scalar(r.ID()),
				scalar("keep"), scalar(""),
			},
		}
		list.Content = append(list.Content, entry)
	}

	doc := &yaml.Node{
		Kind: yaml.DocumentNode,
		Content: []*yaml.Node{{
			Kind:    yaml.MappingNode,
			Content: []*yaml.Node{scalar("resolutions"), list},
		}},
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode resolutions template: %w", err)
	}
	return enc.Close()
}

func scalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}
