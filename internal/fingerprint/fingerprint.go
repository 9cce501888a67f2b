// Package fingerprint derives the stable de-duplication key for imported
// transactions from their content.
package fingerprint

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeText canonicalizes merchant and description text for hashing and
// rule keys: whitespace collapsed to single spaces, diacritics folded,
// upper-cased. Identical inputs always produce identical output; that is
// the whole point.
func NormalizeText(s string) string {
	collapsed := strings.Join(strings.Fields(s), " ")

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, collapsed)
	if err != nil {
		// Fold failures keep the collapsed text; determinism matters more
		// than prettiness here.
		folded = collapsed
	}
	return strings.ToUpper(folded)
}

// Compute derives the fingerprint for an imported row.
//
// The absolute amount is rounded to whole cents, merchant and description
// are normalized, and "date|cents|MERCHANT|DESCRIPTION" is reduced through
// a 32-bit signed rolling hash (h = h*31 + codepoint, wrapping), rendered
// as its decimal string. Not collision-resistant; a false-duplicate skip is
// the accepted failure mode and is preferred over a duplicate insert.
func Compute(date string, amount decimal.Decimal, merchant, description string) string {
	cents := amount.Abs().Mul(decimal.NewFromInt(100)).Round(0).IntPart()

	payload := date + "|" + strconv.FormatInt(cents, 10) + "|" +
		NormalizeText(merchant) + "|" + NormalizeText(description)

	var h int32
	for _, r := range payload {
		h = h*31 + int32(r)
	}
	return strconv.FormatInt(int64(h), 10)
}
