// Package ingest turns a legacy production spreadsheet export into order drafts.
//
// The pipeline never touches the store: it reads a CSV or XLSX file into a
// Table, resolves the header against a Layout, parses each row into a
// models.Order with its stage and status inferred from the stage timestamps,
// and leaves order numbering and persistence to the caller.
package ingest

import (
	"strings"
	"time"

	"github.com/jinzhu/now"
)

const (
	minYear = 1
	maxYear = 9999
)

// ParseDate reads a spreadsheet date cell.
//
// DD/MM/YY and DD/MM/YYYY are tried first (two-digit years land in 2000-2099),
// then any layout jinzhu/now understands. Anything else, including an empty
// cell, yields nil: a bad date is an absent date, never a rejected row.
func ParseDate(raw string, loc *time.Location) *time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}

	if parts := strings.Split(s, "/"); len(parts) == 3 {
		day, okDay := leadingInt(parts[0])
		month, okMonth := leadingInt(parts[1])
		year, okYear := leadingInt(parts[2])
		if okDay && okMonth && okYear {
			if year < 100 {
				year += 2000
			}
			// out-of-range days and months roll over like a date constructor would
			return inRange(time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc))
		}
	}

	if t, err := now.ParseInLocation(loc, s); err == nil {
		return inRange(t)
	}
	return nil
}

// inRange drops dates outside years 1-9999, which neither JSON nor the store round-trip
func inRange(t time.Time) *time.Time {
	if y := t.Year(); y < minYear || y > maxYear {
		return nil
	}
	return &t
}

// leadingInt parses the optional sign and digit run at the start of s,
// ignoring whatever follows ("18th" reads as 18).
func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	negative := false
	switch s[0] {
	case '-':
		negative = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	n, digits := 0, 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
		digits++
		if digits > 9 {
			return 0, false
		}
	}
	if digits == 0 {
		return 0, false
	}
	if negative {
		n = -n
	}
	return n, true
}
