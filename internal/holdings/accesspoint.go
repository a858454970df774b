package holdings

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidFlag is returned when a whitelist or free/paid cell holds a value
// outside its two recognized values. The licensing data is malformed and
// ranking policy cannot be inferred, so callers should stop the run.
var ErrInvalidFlag = errors.New("invalid flag value")

// FlagError describes which cell of the licensing dataset was invalid.
type FlagError struct {
	Line   int
	Column string
	Value  string
}

func (e *FlagError) Error() string {
	return fmt.Sprintf("line %d: column %q: %v %q", e.Line, e.Column, ErrInvalidFlag, e.Value)
}

func (e *FlagError) Unwrap() error {
	return ErrInvalidFlag
}

// Inclusion reports whether an access point counts toward matching.
type Inclusion int

const (
	Included Inclusion = iota
	Excluded
)

// ParseInclusion reads the "include as alt-access point?" whitelist cell.
func ParseInclusion(raw string) (Inclusion, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "include":
		return Included, nil
	case "no", "exclude":
		return Excluded, nil
	default:
		return Included, fmt.Errorf("%w: whitelist must be yes/no, got %q", ErrInvalidFlag, raw)
	}
}

// Access is the free/paid axis of an access point, independent of its end date.
type Access int

const (
	// AccessUnknown is used when the licensing dataset carries no free/paid data.
	AccessUnknown Access = iota
	Free
	Paid
)

func (a Access) String() string {
	switch a {
	case Free:
		return "free"
	case Paid:
		return "paid"
	default:
		return ""
	}
}

// ParseAccess reads the "freely avail?" cell.
func ParseAccess(raw string) (Access, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "free":
		return Free, nil
	case "no", "paid":
		return Paid, nil
	default:
		return AccessUnknown, fmt.Errorf("%w: status is neither free nor paid, got %q", ErrInvalidFlag, raw)
	}
}

// AccessPoint is one licensed route to a title through a specific resource.
type AccessPoint struct {
	TitleKey   string
	TitleName  string
	Resource   string
	Descriptor string
	ISSN       string
	EISSN      string
	Inclusion  Inclusion
	Access     Access

	end EndDate
}

// NewAccessPoint copies ap and classifies its end-date descriptor against
// today. The classification is fixed for the lifetime of the access point.
func NewAccessPoint(ap AccessPoint, today time.Time) *AccessPoint {
	ap.end = Classify(ap.Descriptor, ap.Resource, today)
	return &ap
}

// End returns the classified end date.
func (a *AccessPoint) End() EndDate {
	return a.end
}

// EndMode returns the end-date classification.
func (a *AccessPoint) EndMode() EndMode {
	return a.end.Mode
}

// Included reports whether the access point counts toward matching.
func (a *AccessPoint) Included() bool {
	return a.Inclusion == Included
}

// Identifiers returns the non-placeholder ISSN and eISSN.
func (a *AccessPoint) Identifiers() []string {
	var ids []string
	for _, raw := range []string{a.ISSN, a.EISSN} {
		if id, ok := CleanIdentifier(raw); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// CleanIdentifier trims an identifier and rejects the placeholders vendors
// put in empty identifier cells.
func CleanIdentifier(raw string) (string, bool) {
	id := strings.TrimSpace(raw)
	switch id {
	case "", "-", "0":
		return "", false
	}
	return id, true
}
