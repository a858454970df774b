package report

import (
	"bufio"
	"strings"

	"github.com/lehigh-university-libraries/srp/internal/holdings"
	"github.com/lehigh-university-libraries/srp/internal/match"
)

// Check file names.
const (
	DescriptorsFile       = "CHECK_used_date_descriptors.txt"
	MissingKeysFile       = "CHECK_keys_not_in_licensing_report.txt"
	SharedIdentifiersFile = "CHECK_shared_identifiers.txt"
)

// DescriptorUse is one distinct end-date descriptor and how it was read.
type DescriptorUse struct {
	Descriptor string
	Mode       holdings.EndMode
	Display    string
}

// Failed reports whether the descriptor could not be read as a date.
func (d DescriptorUse) Failed() bool {
	return strings.HasPrefix(d.Display, "error: ")
}

// UsedDescriptors collects the distinct descriptors of every access point of
// every title matched by records, in the order first seen.
func UsedDescriptors(records ...[]*match.Record) []DescriptorUse {
	seen := make(map[DescriptorUse]struct{})
	var uses []DescriptorUse
	for _, batch := range records {
		for _, r := range batch {
			for _, t := range r.Matches() {
				for _, ap := range t.AccessPoints() {
					use := DescriptorUse{
						Descriptor: strings.TrimSpace(ap.Descriptor),
						Mode:       ap.EndMode(),
						Display:    ap.End().Display,
					}
					if _, ok := seen[use]; ok {
						continue
					}
					seen[use] = struct{}{}
					uses = append(uses, use)
				}
			}
		}
	}
	return uses
}

// WriteDescriptors writes one line per descriptor: the descriptor, its mode
// and its display value. Unreadable descriptors show the error marker.
func WriteDescriptors(path string, uses []DescriptorUse) error {
	return writeLines(path, func(w *bufio.Writer) error {
		for _, u := range uses {
			if err := writeRow(w, []string{u.Descriptor, u.Mode.String(), u.Display}); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteList writes one value per line.
func WriteList(path string, values []string) error {
	return writeLines(path, func(w *bufio.Writer) error {
		for _, v := range values {
			if err := writeRow(w, []string{v}); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteSharedIdentifiers writes each identifier that maps to more than one
// title with the keys it maps to.
func WriteSharedIdentifiers(path string, shared []match.SharedIdentifier) error {
	return writeLines(path, func(w *bufio.Writer) error {
		for _, s := range shared {
			if err := writeRow(w, []string{s.Identifier, strings.Join(s.TitleKeys, " | ")}); err != nil {
				return err
			}
		}
		return nil
	})
}
