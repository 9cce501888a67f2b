package domain

import "testing"

func TestValidateSource(t *testing.T) {
	t.Run("valid sources", func(t *testing.T) {
		for _, src := range []Source{SourceManual, SourceImport} {
			if !ValidateSource(src) {
				t.Errorf("Expected %s to be valid", src)
			}
		}
	})

	t.Run("invalid sources", func(t *testing.T) {
		invalidCases := []Source{
			"",
			"Manual",  // wrong case
			"IMPORT",  // wrong case
			"imports", // plural
			"import ", // trailing space
			"api",
		}

		for _, src := range invalidCases {
			if ValidateSource(src) {
				t.Errorf("Expected %s to be invalid", src)
			}
		}
	})
}

func validTransaction() Transaction {
	return Transaction{
		ID:          "txn-1",
		HouseholdID: "hh-1",
		Date:        "2024-03-15",
		Description: "WOOLWORTHS 1234 SYDNEY",
		Amount:      45.00,
		Source:      SourceImport,
		ExternalID:  "123456789",
	}
}

func TestTransactionValidate(t *testing.T) {
	t.Run("valid transaction", func(t *testing.T) {
		txn := validTransaction()
		if err := txn.Validate(); err != nil {
			t.Fatalf("expected valid transaction, got %v", err)
		}
	})

	t.Run("defaults applied", func(t *testing.T) {
		txn := validTransaction()
		if err := txn.Validate(); err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		if txn.Category != CategoryUncategorized {
			t.Errorf("expected default category %q, got %q", CategoryUncategorized, txn.Category)
		}
		if txn.Person != PersonBoth {
			t.Errorf("expected default person %q, got %q", PersonBoth, txn.Person)
		}
		if txn.Tags == nil {
			t.Error("expected tags to default to empty slice")
		}
	})

	t.Run("existing values kept", func(t *testing.T) {
		txn := validTransaction()
		txn.Category = "Groceries"
		txn.Person = "alex"
		if err := txn.Validate(); err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		if txn.Category != "Groceries" || txn.Person != "alex" {
			t.Errorf("defaults overwrote explicit values: %s/%s", txn.Category, txn.Person)
		}
	})

	t.Run("invalid transactions", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(*Transaction)
		}{
			{"missing ID", func(tx *Transaction) { tx.ID = "" }},
			{"missing household", func(tx *Transaction) { tx.HouseholdID = "" }},
			{"empty date", func(tx *Transaction) { tx.Date = "" }},
			{"wrong date format", func(tx *Transaction) { tx.Date = "15/03/2024" }},
			{"impossible date", func(tx *Transaction) { tx.Date = "2024-13-45" }},
			{"invalid source", func(tx *Transaction) { tx.Source = "spreadsheet" }},
			{"manual with external ID", func(tx *Transaction) { tx.Source = SourceManual }},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				txn := validTransaction()
				tt.mutate(&txn)
				if err := txn.Validate(); err == nil {
					t.Error("expected validation error")
				}
			})
		}
	})

	t.Run("manual without external ID", func(t *testing.T) {
		txn := validTransaction()
		txn.Source = SourceManual
		txn.ExternalID = ""
		if err := txn.Validate(); err != nil {
			t.Errorf("expected valid manual transaction, got %v", err)
		}
	})
}

func TestNewCategory(t *testing.T) {
	t.Run("valid category", func(t *testing.T) {
		cat, err := NewCategory("hh-1", "Groceries")
		if err != nil {
			t.Fatalf("NewCategory failed: %v", err)
		}
		if cat.HouseholdID != "hh-1" || cat.Name != "Groceries" {
			t.Errorf("unexpected category: %+v", cat)
		}
	})

	t.Run("missing household", func(t *testing.T) {
		if _, err := NewCategory("", "Groceries"); err == nil {
			t.Error("expected error for empty household")
		}
	})

	t.Run("missing name", func(t *testing.T) {
		if _, err := NewCategory("hh-1", ""); err == nil {
			t.Error("expected error for empty name")
		}
	})
}

func TestSettingsValidPerson(t *testing.T) {
	s := &Settings{
		HouseholdID: "hh-1",
		Members:     []string{"alex", "sam"},
	}

	tests := []struct {
		person string
		want   bool
	}{
		{"both", true},
		{"alex", true},
		{"sam", true},
		{"stranger", false},
		{"Alex", false}, // wrong case
		{"", false},
	}

	for _, tt := range tests {
		if got := s.ValidPerson(tt.person); got != tt.want {
			t.Errorf("ValidPerson(%q) = %v, want %v", tt.person, got, tt.want)
		}
	}
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings("hh-1")
	if s.HouseholdID != "hh-1" {
		t.Errorf("unexpected household: %s", s.HouseholdID)
	}
	if !s.NegativesAreSpend {
		t.Error("expected NegativesAreSpend to default to true")
	}
	if !s.ValidPerson("both") {
		t.Error("expected shared tag to always be valid")
	}
}

func TestColumnMappingValidate(t *testing.T) {
	tests := []struct {
		name    string
		mapping ColumnMapping
		wantErr bool
	}{
		{"single amount", ColumnMapping{Date: "Date", Description: "Narration", Amount: "Amount"}, false},
		{"debit and credit", ColumnMapping{Date: "Date", Description: "Narration", Debit: "Debit", Credit: "Credit"}, false},
		{"missing date", ColumnMapping{Description: "Narration", Amount: "Amount"}, true},
		{"missing description", ColumnMapping{Date: "Date", Amount: "Amount"}, true},
		{"no amount columns", ColumnMapping{Date: "Date", Description: "Narration"}, true},
		{"debit without credit", ColumnMapping{Date: "Date", Description: "Narration", Debit: "Debit"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mapping.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestHasDebitCredit(t *testing.T) {
	m := ColumnMapping{Date: "Date", Description: "Narration", Debit: "Debit", Credit: "Credit"}
	if !m.HasDebitCredit() {
		t.Error("expected split columns to be detected")
	}

	m.Credit = ""
	if m.HasDebitCredit() {
		t.Error("debit alone must not count as split columns")
	}
}
