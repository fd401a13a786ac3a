// Package dates parses the date cells found in logistics sheets and counts
// business days between milestones.
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	yearFirst = regexp.MustCompile(`^(\d{4})[/-](\d{1,2})[/-](\d{1,2})`)
	dayFirst  = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{4})`)
)

// fallbackLayouts are tried in order once neither numeric pattern matched
var fallbackLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	time.ANSIC,
	time.UnixDate,
	"Mon Jan 02 2006 15:04:05 GMT-0700",
	"Mon Jan 02 2006",
	"January 2, 2006 15:04",
	"January 2, 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
}

// Parse converts a cell value into an instant. Year-first strings are tried
// before day-first ones; both yield midnight in loc. The zero Time means
// the value holds no usable date. Numbers are not dates.
func Parse(value any, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}

	switch v := value.(type) {
	case time.Time:
		return v
	case *time.Time:
		if v == nil {
			return time.Time{}
		}
		return *v
	case string:
		return parseString(strings.TrimSpace(v), loc)
	}
	return time.Time{}
}

func parseString(s string, loc *time.Location) time.Time {
	if s == "" {
		return time.Time{}
	}

	if m := yearFirst.FindStringSubmatch(s); m != nil {
		return midnight(atoi(m[1]), atoi(m[2]), atoi(m[3]), loc)
	}
	if m := dayFirst.FindStringSubmatch(s); m != nil {
		return midnight(atoi(m[3]), atoi(m[2]), atoi(m[1]), loc)
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}

// midnight normalises out-of-range months and days the way a calendar
// rollover would, e.g. month 13 becomes January of the next year.
func midnight(year, month, day int, loc *time.Location) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// ParseInstant parses a user supplied reference time, RFC3339 or YYYY-MM-DD
func ParseInstant(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}

// Ptr returns nil for the zero Time
func Ptr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Latest returns the most recent non-zero instant, or the zero Time
func Latest(ts ...time.Time) time.Time {
	var latest time.Time
	for _, t := range ts {
		if !t.IsZero() && t.After(latest) {
			latest = t
		}
	}
	return latest
}

// FirstSet returns the first non-zero instant, or the zero Time
func FirstSet(ts ...time.Time) time.Time {
	for _, t := range ts {
		if !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}
