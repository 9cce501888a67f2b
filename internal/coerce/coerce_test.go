package coerce

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kenralotamd/spending-tracker/internal/domain"
)

func TestDate(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		want   string
		wantOK bool
	}{
		{"iso date", "2024-01-31", "2024-01-31", true},
		{"slash iso date", "2024/01/31", "2024-01-31", true},
		{"day first", "31/01/2024", "2024-01-31", true},
		{"day first with dashes", "31-01-2024", "2024-01-31", true},
		{"month first fallback", "01/31/2024", "2024-01-31", true},
		{"ambiguous prefers day first", "03/04/2024", "2024-04-03", true},
		{"two digit year", "31/01/24", "2024-01-31", true},
		{"single digit day and month", "5/2/2024", "2024-02-05", true},
		{"textual month", "31-Jan-2024", "2024-01-31", true},
		{"native time value", time.Date(2024, 1, 31, 15, 4, 5, 0, time.UTC), "2024-01-31", true},
		{"not a date", "not-a-date", "", false},
		{"impossible both ways", "13/32/2024", "", false},
		{"empty string", "", "", false},
		{"whitespace only", "   ", "", false},
		{"nil cell", nil, "", false},
		{"numeric cell", 42.0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Date(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("Date(%v) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Date(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestAmount(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		want   string
		wantOK bool
	}{
		{"plain decimal", "45.00", "45", true},
		{"negative", "-45.00", "-45", true},
		{"thousands separators", "1,234.56", "1234.56", true},
		{"surrounding whitespace", "  12.30 ", "12.3", true},
		{"native float", 99.95, "99.95", true},
		{"native int", 7, "7", true},
		{"empty cell", "", "", false},
		{"text", "abc", "", false},
		{"nil cell", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Amount(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("Amount(%v) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if !tt.wantOK {
				return
			}
			want := decimal.RequireFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("Amount(%v) = %s, want %s", tt.input, got, want)
			}
		})
	}
}

func TestResolve_SingleAmount(t *testing.T) {
	mapping := domain.ColumnMapping{Date: "Date", Description: "Description", Amount: "Amount"}

	tests := []struct {
		name              string
		raw               any
		negativesAreSpend bool
		want              string
		wantOK            bool
	}{
		{"negative raw becomes spend", "-45.00", true, "45", true},
		{"positive raw rejected as non-spend", "45.00", true, "", false},
		{"positive raw accepted when negatives off", "45.00", false, "45", true},
		{"negative raw rejected when negatives off", "-45.00", false, "", false},
		{"zero rejected either way", "0.00", true, "", false},
		{"unparseable rejected", "n/a", true, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := domain.RawRow{"Amount": tt.raw}
			got, ok := Resolve(row, mapping, tt.negativesAreSpend)
			if ok != tt.wantOK {
				t.Fatalf("Resolve() ok = %v, want %v", ok, tt.wantOK)
			}
			if !tt.wantOK {
				return
			}
			if want := decimal.RequireFromString(tt.want); !got.Equal(want) {
				t.Errorf("Resolve() = %s, want %s", got, want)
			}
		})
	}
}

func TestResolve_DebitCredit(t *testing.T) {
	mapping := domain.ColumnMapping{Date: "Date", Description: "Description", Debit: "Debit", Credit: "Credit"}

	tests := []struct {
		name   string
		debit  any
		credit any
		want   string
		wantOK bool
	}{
		{"debit only", "120.00", "", "120", true},
		{"credit nets against debit", "120.00", "20.00", "100", true},
		{"pure credit floored to zero and rejected", "", "55.00", "", false},
		{"credit exceeding debit rejected", "10.00", "55.00", "", false},
		{"negative debit clamped", "-10.00", "", "", false},
		{"both empty rejected", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := domain.RawRow{"Debit": tt.debit, "Credit": tt.credit}
			got, ok := Resolve(row, mapping, true)
			if ok != tt.wantOK {
				t.Fatalf("Resolve() ok = %v, want %v", ok, tt.wantOK)
			}
			if !tt.wantOK {
				return
			}
			if want := decimal.RequireFromString(tt.want); !got.Equal(want) {
				t.Errorf("Resolve() = %s, want %s", got, want)
			}
		})
	}
}
