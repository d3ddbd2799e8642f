package core

// convert.go provides type conversion functions for import cell values.
//
// These functions handle the messy reality of user-provided spreadsheet data:
//   - Multiple date formats (US, EU, ISO, etc.)
//   - Currency symbols and thousand separators in numbers
//   - Various boolean representations (yes/no, true/false, 1/0)
//   - Excel formula prefixes (="value")
//
// Every parse* function expects a non-empty, cleaned value and returns an
// error describing the expected format when the value does not convert.

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// Date layouts split by year format for proper 2-digit year handling
var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006 15:04:05", "1/2/2006 3:04:05 PM",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
	}
)

// parseBool accepts true/false, yes/no, t/f, y/n and 1/0, case-insensitively.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1":
		return true, nil
	case "false", "f", "no", "n", "0":
		return false, nil
	default:
		return false, fmt.Errorf("cannot convert %q to a boolean", s)
	}
}

// parseDecimal handles currency symbols, thousands separators, and
// accounting format (parentheses for negative).
func parseDecimal(s string) (decimal.Decimal, error) {
	raw := s
	s = strings.TrimSpace(s)

	// Detect negative accounting format "(123.45)"
	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	// Remove common currency symbols and thousands separators
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return decimal.Zero, fmt.Errorf("cannot convert %q to a number", raw)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("cannot convert %q to a number: %w", raw, err)
	}
	return d, nil
}

// parseInt accepts integers and decimals with a zero fraction ("5.00").
func parseInt(s string) (int, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return 0, fmt.Errorf("cannot convert %q to an integer", s)
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("cannot convert %q to an integer: fractional value", s)
	}
	return int(d.IntPart()), nil
}

// parseDate supports multiple date formats and handles 2-digit years with pivot.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	// Try 4-digit year layouts first (unambiguous)
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	// Try 2-digit year layouts with pivot year adjustment
	pivotYear := time.Now().Year() + TwoDigitYearPivot

	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("cannot convert %q to a date", s)
}

// convertConstant checks that a mapped constant is valid for the field type.
func convertConstant(t FieldType, s string) error {
	if s == "" {
		return nil
	}
	var err error
	switch t {
	case FieldBool:
		_, err = parseBool(s)
	case FieldInt:
		_, err = parseInt(s)
	case FieldDecimal:
		_, err = parseDecimal(s)
	case FieldDate:
		_, err = parseDate(s)
	}
	return err
}

// HeaderIndex maps column names (lowercase) to their position in the row.
type HeaderIndex map[string]int

// MakeHeaderIndex creates a HeaderIndex from a header row.
// Keys are lowercased for case-insensitive matching. The first occurrence
// of a duplicated column wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		if _, dup := idx[key]; dup {
			continue
		}
		idx[key] = i
	}
	return idx
}

// Lookup returns the column position for name, case-insensitively.
func (h HeaderIndex) Lookup(name string) (int, bool) {
	i, ok := h[strings.ToLower(strings.TrimSpace(name))]
	return i, ok
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}

	return s
}
