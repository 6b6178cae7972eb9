package core

// convert.go provides tolerant cell conversions for device exports.
//
// Device software is inconsistent about formatting:
//   - Several timestamp styles (ISO, US month-first, EU day-first, 12-hour clock)
//   - Excel formula prefixes (="value") and stray quotes
//   - Thousands separators and trailing units in numeric cells
//
// Conversions never guess: a cell that matches no accepted form is reported
// as unparseable and the caller decides how to count it.

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// unitSuffixes are stripped from numeric cells before validation.
var unitSuffixes = []string{"mg/dl", "units", "u", "g"}

// TimestampLayouts is the global, ordered list of accepted timestamp forms.
// A layout's own TimestampLayouts are tried first; the first successful parse wins.
var TimestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"01/02/2006 03:04:05 PM",
	"01/02/2006 03:04 PM",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"01/02/06 15:04",
	"1/2/06 15:04",
}

// DayFirstLayouts is preferred by exports written with European date order.
var DayFirstLayouts = []string{
	"02/01/2006 15:04",
	"02/01/2006 15:04:05",
	"2/1/2006 15:04",
	"02-01-2006 15:04",
	"02.01.2006 15:04",
}

// ParseTimestamp parses s with the preferred layouts, then the global list.
// Values without a zone are read as UTC; values with an offset are converted to UTC.
func ParseTimestamp(s string, preferred []string) (time.Time, bool) {
	s = CleanCell(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range preferred {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	for _, layout := range TimestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// cellStatus is the outcome of reading one numeric cell.
type cellStatus int

const (
	cellEmpty cellStatus = iota
	cellInvalid
	cellOK
)

// ParseNumber converts a cleaned numeric cell to float64.
// Thousands separators and a trailing unit (mg/dL, U, g) are accepted.
func ParseNumber(s string) (float64, bool) {
	v, status := parseNumeric(s)
	return v, status == cellOK
}

func parseNumeric(s string) (float64, cellStatus) {
	s = CleanCell(s)
	if s == "" {
		return 0, cellEmpty
	}

	lower := strings.ToLower(s)
	for _, unit := range unitSuffixes {
		if strings.HasSuffix(lower, unit) {
			lower = strings.TrimSpace(strings.TrimSuffix(lower, unit))
			break
		}
	}
	lower = strings.ReplaceAll(lower, ",", "")

	if !numericRegex.MatchString(lower) {
		return 0, cellInvalid
	}
	v, err := strconv.ParseFloat(lower, 64)
	if err != nil {
		return 0, cellInvalid
	}
	return v, cellOK
}

// HeaderIndex maps normalized header names to column positions.
type HeaderIndex map[string]int

// MakeHeaderIndex creates a HeaderIndex from a CSV header row.
// Keys are normalized; on duplicates the first column wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if key == "" {
			continue
		}
		if _, seen := idx[key]; !seen {
			idx[key] = i
		}
	}
	return idx
}

// CleanCell removes common CSV artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}

// normalizeHeader lowercases, maps '_' and '-' to spaces and collapses whitespace,
// so "Glucose_Value" and "glucose value" compare equal.
func normalizeHeader(s string) string {
	s = strings.ToLower(CleanCell(s))
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// isBlankRecord reports whether every cell is empty after cleaning.
func isBlankRecord(rec []string) bool {
	for _, c := range rec {
		if CleanCell(c) != "" {
			return false
		}
	}
	return true
}
