// Package rows holds the loosely typed row model produced by the sheet
// loaders and the helpers that read identifiers and fields out of it.
package rows

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Row maps a column name to a cell value: string, number, bool, time.Time or nil
type Row map[string]any

var nonAlphanumeric = regexp.MustCompile(`[^A-Z0-9]`)

// SanitizeID canonicalises a raw identifier: trimmed, upper-cased, reduced
// to [A-Z0-9] and stripped of leading zeros. Absent input yields "".
func SanitizeID(raw any) string {
	s := ToString(raw)
	if s == "" {
		return ""
	}
	clean := nonAlphanumeric.ReplaceAllString(strings.ToUpper(strings.TrimSpace(s)), "")
	return strings.TrimLeft(clean, "0")
}

// Normalize returns a copy of raw with trimmed, lower-cased keys.
// Values are shared, not copied. A nil row yields an empty row.
func Normalize(raw Row) Row {
	out := make(Row, len(raw))
	for key, value := range raw {
		out[strings.ToLower(strings.TrimSpace(key))] = value
	}
	return out
}

// NormalizeAll applies Normalize to every row
func NormalizeAll(raw []Row) []Row {
	out := make([]Row, len(raw))
	for i, r := range raw {
		out[i] = Normalize(r)
	}
	return out
}

// Merge returns base overlaid with every field of overlay
func Merge(base, overlay Row) Row {
	out := make(Row, len(base)+len(overlay))
	for key, value := range base {
		out[key] = value
	}
	for key, value := range overlay {
		out[key] = value
	}
	return out
}

// Lookup returns the first value among keys that is present and not blank
func (r Row) Lookup(keys ...string) (any, bool) {
	for _, key := range keys {
		value, ok := r[key]
		if !ok || isBlank(value) {
			continue
		}
		return value, true
	}
	return nil, false
}

// String returns the first non-blank value among keys as a trimmed string
func (r Row) String(keys ...string) string {
	value, ok := r.Lookup(keys...)
	if !ok {
		return ""
	}
	return strings.TrimSpace(ToString(value))
}

// Number returns the first non-blank value among keys as a decimal.
// Unparseable values yield zero and false.
func (r Row) Number(keys ...string) (decimal.Decimal, bool) {
	value, ok := r.Lookup(keys...)
	if !ok {
		return decimal.Zero, false
	}
	return ToDecimal(value)
}

func isBlank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case bool:
		return !v
	case time.Time:
		return v.IsZero()
	}
	return false
}

// ToString renders a cell value as text
func ToString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format(time.RFC3339)
	case fmt.Stringer:
		return v.String()
	}
	s, err := cast.ToStringE(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	return s
}

// ToDecimal converts a cell value to a decimal, accepting a decimal comma
func ToDecimal(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, true
	case string:
		s := strings.TrimSpace(v)
		if strings.Contains(s, ",") && !strings.Contains(s, ".") {
			s = strings.ReplaceAll(s, ",", ".")
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	}
	f, err := cast.ToFloat64E(value)
	if err != nil {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}

// Upper upper-cases text with Spanish casing rules
func Upper(s string) string {
	return cases.Upper(language.Spanish).String(s)
}

// Fold lower-cases text and removes diacritics so "Devolución" matches "devolucion"
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return cases.Lower(language.Spanish).String(folded)
}
