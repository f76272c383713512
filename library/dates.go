package library

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// On-disk layouts for calendar dates and local date-times.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02T15:04"
)

// ParseDate parses YYYY-MM-DD in the local time zone.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, Validationf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// ParseDateTime parses YYYY-MM-DDTHH:MM in the local time zone.
func ParseDateTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateTimeLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, Validationf("invalid date-time %q, expected YYYY-MM-DDTHH:MM", s)
	}
	return t, nil
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string { return t.Format(DateLayout) }

// FormatDateTime renders t as YYYY-MM-DD'T'HH:MM.
func FormatDateTime(t time.Time) string { return t.Format(DateTimeLayout) }

// DateOf truncates t to midnight of its calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Date builds a local calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.Local)
}

// fold returns the case-folded form of s used for every case-insensitive
// comparison in the package.
func fold(s string) string {
	return cases.Fold().String(s)
}

// containsFold is the text filter rule: a blank needle matches everything.
func containsFold(haystack, needle string) bool {
	if strings.TrimSpace(needle) == "" {
		return true
	}
	return strings.Contains(fold(haystack), fold(needle))
}

func equalFold(a, b string) bool {
	return fold(a) == fold(b)
}

// inDateRange is the range filter rule: both ends inclusive, a zero end is open.
func inDateRange(d, from, to time.Time) bool {
	d = DateOf(d)
	if !from.IsZero() && d.Before(DateOf(from)) {
		return false
	}
	if !to.IsZero() && d.After(DateOf(to)) {
		return false
	}
	return true
}
