package fingerprint

import (
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"uppercases", "woolworths", "WOOLWORTHS"},
		{"collapses internal whitespace", "coles   express", "COLES EXPRESS"},
		{"trims ends", "  Shell  ", "SHELL"},
		{"folds diacritics", "Café Nero", "CAFE NERO"},
		{"empty", "", ""},
		{"tabs and newlines", "BP\tConnect\nCBD", "BP CONNECT CBD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeText(tt.input); got != tt.want {
				t.Errorf("NormalizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCompute_Deterministic(t *testing.T) {
	amount := decimal.RequireFromString("45.00")
	a := Compute("2024-01-31", amount, "Shell", "SHELL COBURG VIC")
	b := Compute("2024-01-31", amount, "Shell", "SHELL COBURG VIC")
	if a != b {
		t.Errorf("Compute() not deterministic: %q vs %q", a, b)
	}
	if _, err := strconv.ParseInt(a, 10, 64); err != nil {
		t.Errorf("Compute() = %q, want a decimal integer string: %v", a, err)
	}
}

func TestCompute_NormalizationInsensitive(t *testing.T) {
	amount := decimal.RequireFromString("12.30")
	base := Compute("2024-02-01", amount, "WOOLWORTHS", "WOOLWORTHS 1234 PRESTON")

	variants := []struct {
		name     string
		merchant string
	}{
		{"trailing space", "Woolworths "},
		{"lower case", "woolworths"},
		{"extra internal space is absent here", "WOOLWORTHS"},
	}
	for _, tt := range variants {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute("2024-02-01", amount, tt.merchant, "woolworths  1234 preston")
			if got != base {
				t.Errorf("Compute() = %q, want %q for normalized-equal input", got, base)
			}
		})
	}
}

func TestCompute_SensitiveToContent(t *testing.T) {
	amount := decimal.RequireFromString("45.00")
	base := Compute("2024-01-31", amount, "Shell", "fuel")

	if got := Compute("2024-02-01", amount, "Shell", "fuel"); got == base {
		t.Error("Compute() ignored the date")
	}
	if got := Compute("2024-01-31", decimal.RequireFromString("45.01"), "Shell", "fuel"); got == base {
		t.Error("Compute() ignored a one-cent difference")
	}
	if got := Compute("2024-01-31", amount, "BP", "fuel"); got == base {
		t.Error("Compute() ignored the merchant")
	}
}

func TestCompute_CentsRounding(t *testing.T) {
	// 45.004 and 45.0 both round to 4500 cents; 45.006 rounds to 4501.
	a := Compute("2024-01-31", decimal.RequireFromString("45.004"), "Shell", "fuel")
	b := Compute("2024-01-31", decimal.RequireFromString("45.00"), "Shell", "fuel")
	c := Compute("2024-01-31", decimal.RequireFromString("45.006"), "Shell", "fuel")
	if a != b {
		t.Errorf("Compute() distinguished sub-cent noise: %q vs %q", a, b)
	}
	if c == b {
		t.Error("Compute() collapsed a genuine cent difference")
	}
}

func TestCompute_SignInsensitive(t *testing.T) {
	// Fingerprints hash the absolute cents; resolution has already fixed the sign.
	pos := Compute("2024-01-31", decimal.RequireFromString("45.00"), "Shell", "fuel")
	neg := Compute("2024-01-31", decimal.RequireFromString("-45.00"), "Shell", "fuel")
	if pos != neg {
		t.Errorf("Compute() sign-sensitive: %q vs %q", pos, neg)
	}
}
