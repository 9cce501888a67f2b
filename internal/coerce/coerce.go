// Package coerce parses the loosely-typed cell values of an uploaded
// spreadsheet into canonical dates and decimal amounts. Every function
// returns an explicit ok signal instead of an error or panic so the import
// loop can skip bad rows uniformly.
package coerce

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kenralotamd/spending-tracker/internal/domain"
)

// dateLayouts are tried in order before falling back to the D/M/Y regex.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"02-Jan-2006",
	"2-Jan-2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// dmyPattern matches D/M/Y-shaped strings with 1-2 digit day/month and a
// 2 or 4 digit year, with /, - or . separators.
var dmyPattern = regexp.MustCompile(`^(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{2,4})$`)

// Date coerces a cell value to a calendar date in YYYY-MM-DD form.
// Native time values pass through; strings go through layout parsing and
// then a D/M/Y regex fallback that tries day-first before month-first,
// accepting the first interpretation that is a real calendar date. Years
// below 100 mean 2000+year. Returns ok=false when unparseable; the caller
// must skip the row, never guess.
func Date(v any) (string, bool) {
	switch val := v.(type) {
	case time.Time:
		if val.IsZero() {
			return "", false
		}
		return val.Format("2006-01-02"), true
	case string:
		return parseDateString(val)
	case fmt.Stringer:
		return parseDateString(val.String())
	default:
		return "", false
	}
}

func parseDateString(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}

	m := dmyPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	first, _ := strconv.Atoi(m[1])
	second, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if year < 100 {
		year += 2000
	}

	// Day-first, then month-first; first valid calendar date wins.
	if date, ok := calendarDate(year, second, first); ok {
		return date, true
	}
	if date, ok := calendarDate(year, first, second); ok {
		return date, true
	}
	return "", false
}

// calendarDate validates that year/month/day denote a real date. time.Date
// normalizes out-of-range components (Feb 30 becomes Mar 2), so the result
// is checked against the inputs.
func calendarDate(year, month, day int) (string, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

// Amount coerces a cell value to a finite decimal. Thousands separators
// (commas) are stripped and surrounding whitespace trimmed. Returns
// ok=false for empty cells, non-numeric text and non-finite values.
func Amount(v any) (decimal.Decimal, bool) {
	switch val := v.(type) {
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(val), true
	case float32:
		return Amount(float64(val))
	case int:
		return decimal.NewFromInt(int64(val)), true
	case int64:
		return decimal.NewFromInt(val), true
	case decimal.Decimal:
		return val, true
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(val), ",", "")
		if s == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}

// Resolve turns a row's raw amount fields into a single non-negative spend
// magnitude under the household sign convention, or rejects the row.
//
// Debit/credit mode: max(0, debit) - max(0, credit), floored at zero, so
// credits and refunds resolve to zero and are rejected as non-spend.
// Single-amount mode with negativesAreSpend: negative raw values become
// positive spend, positive raw values are non-spend. Without the flag the
// raw sign is taken as-is. Any result not strictly above zero is rejected.
func Resolve(row domain.RawRow, mapping domain.ColumnMapping, negativesAreSpend bool) (decimal.Decimal, bool) {
	if mapping.HasDebitCredit() {
		debit, _ := Amount(row[mapping.Debit])
		credit, _ := Amount(row[mapping.Credit])
		resolved := clampZero(debit).Sub(clampZero(credit))
		if resolved.Sign() <= 0 {
			return decimal.Zero, false
		}
		return resolved, true
	}

	raw, ok := Amount(row[mapping.Amount])
	if !ok {
		return decimal.Zero, false
	}
	var resolved decimal.Decimal
	if negativesAreSpend {
		resolved = clampZero(raw.Neg())
	} else {
		resolved = clampZero(raw)
	}
	if resolved.Sign() <= 0 {
		return decimal.Zero, false
	}
	return resolved, true
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.Sign() < 0 {
		return decimal.Zero
	}
	return d
}
