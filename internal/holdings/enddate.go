package holdings

import (
	"cmp"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is how absolute end dates are displayed in reports.
const DateLayout = "2006-01-02"

// EndMode classifies how (or whether) access through an access point ends.
// Larger values rank higher: an active access point beats any embargo, and an
// embargo beats any fixed end regardless of the embargo length.
type EndMode int

const (
	// Ended access stopped permanently at a known date ("fixed").
	Ended EndMode = iota + 1
	// TimeLimited access trails the present by a rolling window ("embargo").
	TimeLimited
	// Active access is presently unrestricted ("current").
	Active
)

// String returns the label used in reports.
func (m EndMode) String() string {
	switch m {
	case Active:
		return "current"
	case TimeLimited:
		return "embargo"
	case Ended:
		return "fixed"
	default:
		return ""
	}
}

// EndDate is the classified form of an end-date descriptor. It doubles as the
// comparator used to rank access points within a mode.
type EndDate struct {
	Mode EndMode
	// Date is the comparable end date. It is zero for Active access points and
	// for descriptors that could not be read as a date.
	Date time.Time
	// Valid is false when the descriptor could not be parsed; such end dates
	// sort below every valid date of the same mode.
	Valid bool
	// Display is the human-readable end date.
	Display string
}

// Compare orders end dates by mode first and then by date. All Active end
// dates are equal, and invalid dates are equal to each other and lower than
// any valid date.
func (e EndDate) Compare(o EndDate) int {
	if e.Mode != o.Mode {
		return cmp.Compare(e.Mode, o.Mode)
	}
	if e.Mode == Active {
		return 0
	}
	switch {
	case !e.Valid && !o.Valid:
		return 0
	case !e.Valid:
		return -1
	case !o.Valid:
		return 1
	}
	return e.Date.Compare(o.Date)
}

// Comparator renders the comparable value: "current", an ISO date, or the
// error marker for unparseable descriptors.
func (e EndDate) Comparator() string {
	switch {
	case e.Mode == Active:
		return "current"
	case !e.Valid:
		return e.Display
	default:
		return e.Date.Format(DateLayout)
	}
}

var (
	seasons = strings.NewReplacer(
		"Fall ", "9/20/",
		"Winter ", "12/20/",
		"Spring ", "3/20/",
		"Summer ", "6/20/",
	)
	quantityPattern = regexp.MustCompile(`[0-9]+`)
)

// Classify converts a free-text end-date descriptor into an EndDate.
//
// Empty descriptors and descriptors mentioning "current" are Active.
// Descriptors mentioning "ago" are relative embargoes, and anything on a JSTOR
// resource is treated as an embargo as well. Everything else is a fixed end.
// Classify never fails; unreadable dates carry an "error: " marker instead.
func Classify(descriptor, resource string, today time.Time) EndDate {
	desc := strings.TrimSpace(descriptor)
	lower := strings.ToLower(desc)
	today = civilDate(today)

	switch {
	case desc == "" || strings.Contains(lower, "current"):
		return EndDate{Mode: Active, Valid: true, Display: "current"}
	case strings.Contains(lower, "ago"):
		return relativeEmbargo(desc, lower, today)
	case strings.Contains(strings.ToLower(resource), "jstor"):
		return yearEmbargo(desc, today)
	}

	date, ok := ParseEndDate(desc)
	if !ok {
		return EndDate{Mode: Ended, Display: errorMarker(desc)}
	}
	return EndDate{Mode: Ended, Date: date, Valid: true, Display: date.Format(DateLayout)}
}

// ParseEndDate reads an absolute end date. Season names are replaced with a
// month and day ("Fall 2015" is 9/20/2015) and the result is read as
// month/day/year; failing that the descriptor is read as a bare year, which
// resolves to January 1.
func ParseEndDate(descriptor string) (time.Time, bool) {
	desc := strings.TrimSpace(descriptor)
	if t, err := time.Parse("1/2/2006", seasons.Replace(desc)); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006", desc); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// relativeEmbargo handles descriptors such as "2 years ago". Units are
// deliberately coarse: a year is 365 days, a month 30 and a week 7.
func relativeEmbargo(desc, lower string, today time.Time) EndDate {
	days := unitDays(lower)
	token := quantityPattern.FindString(desc)
	quantity, err := strconv.Atoi(token)
	if days == 0 || err != nil {
		return EndDate{Mode: TimeLimited, Display: errorMarker(desc)}
	}
	return EndDate{
		Mode:    TimeLimited,
		Date:    today.AddDate(0, 0, -quantity*days),
		Valid:   true,
		Display: desc,
	}
}

// yearEmbargo handles JSTOR access points with a literal end date. The
// display only counts whole calendar years back from today.
func yearEmbargo(desc string, today time.Time) EndDate {
	date, ok := ParseEndDate(desc)
	if !ok {
		return EndDate{Mode: TimeLimited, Display: errorMarker(desc)}
	}
	return EndDate{
		Mode:    TimeLimited,
		Date:    date,
		Valid:   true,
		Display: yearsAgo(today.Year() - date.Year()),
	}
}

func unitDays(lower string) int {
	switch {
	case strings.Contains(lower, "year"):
		return 365
	case strings.Contains(lower, "month"):
		return 30
	case strings.Contains(lower, "week"):
		return 7
	case strings.Contains(lower, "day"):
		return 1
	default:
		return 0
	}
}

func yearsAgo(years int) string {
	if years == 1 {
		return "1 year ago"
	}
	return fmt.Sprintf("%d years ago", years)
}

func errorMarker(desc string) string {
	return "error: " + desc
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
