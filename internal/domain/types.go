// Package domain defines the household spending data model.
package domain

import (
	"fmt"
	"time"
)

// CategoryUncategorized is the sentinel category assigned to transactions
// that have not been categorized yet.
const CategoryUncategorized = "Uncategorized"

// PersonBoth tags a transaction as shared between all household members.
const PersonBoth = "both"

// Source identifies how a transaction entered the system.
// Use ValidateSource to ensure validity before use.
type Source string

const (
	SourceManual Source = "manual"
	SourceImport Source = "import"
)

var validSources = map[Source]struct{}{
	SourceManual: {},
	SourceImport: {},
}

// ValidateSource checks if source is valid
func ValidateSource(s Source) bool {
	_, ok := validSources[s]
	return ok
}

// Transaction is a single spend or refund belonging to a household.
//
// Amount sign convention:
//
//	Positive = spend
//	Negative = refund
//
// ExternalID is empty for manual entries. For imported rows it carries the
// content fingerprint used as the per-household uniqueness key; the record
// store enforces that uniqueness, not this package.
type Transaction struct {
	ID          string    `firestore:"id" json:"id"`
	HouseholdID string    `firestore:"householdId" json:"householdId"`
	Date        string    `firestore:"date" json:"date"` // ISO format YYYY-MM-DD
	Person      string    `firestore:"person" json:"person"`
	Merchant    string    `firestore:"merchant" json:"merchant"`
	Description string    `firestore:"description" json:"description"`
	Amount      float64   `firestore:"amount" json:"amount"`
	Category    string    `firestore:"category" json:"category"`
	Tags        []string  `firestore:"tags" json:"tags"`
	Notes       string    `firestore:"notes" json:"notes"`
	Source      Source    `firestore:"source" json:"source"`
	ExternalID  string    `firestore:"externalId,omitempty" json:"externalId,omitempty"`
	CreatedAt   time.Time `firestore:"createdAt" json:"createdAt"`
}

// Validate checks if the Transaction has valid data, defaulting the
// category and person tags where they are empty.
func (t *Transaction) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("transaction ID is required")
	}
	if t.HouseholdID == "" {
		return fmt.Errorf("household ID is required")
	}
	if _, err := time.Parse("2006-01-02", t.Date); err != nil {
		return fmt.Errorf("invalid date format (expected YYYY-MM-DD): %w", err)
	}
	if !ValidateSource(t.Source) {
		return fmt.Errorf("invalid source: %s", t.Source)
	}
	if t.Source == SourceManual && t.ExternalID != "" {
		return fmt.Errorf("manual transactions must not carry an external ID")
	}
	if t.Category == "" {
		t.Category = CategoryUncategorized
	}
	if t.Person == "" {
		t.Person = PersonBoth
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return nil
}

// Category is a household-scoped spending category. Name is unique per
// household (enforced by the record store).
type Category struct {
	HouseholdID string    `firestore:"householdId" json:"householdId"`
	Name        string    `firestore:"name" json:"name"`
	Color       string    `firestore:"color,omitempty" json:"color,omitempty"`
	SortOrder   int       `firestore:"sortOrder" json:"sortOrder"`
	CreatedAt   time.Time `firestore:"createdAt" json:"createdAt"`
}

// NewCategory creates a validated category
func NewCategory(householdID, name string) (*Category, error) {
	if householdID == "" {
		return nil, fmt.Errorf("household ID cannot be empty")
	}
	if name == "" {
		return nil, fmt.Errorf("category name cannot be empty")
	}
	return &Category{
		HouseholdID: householdID,
		Name:        name,
	}, nil
}

// BudgetRow is a per-category monthly budget amount for a household.
type BudgetRow struct {
	HouseholdID string  `firestore:"householdId" json:"householdId"`
	Category    string  `firestore:"category" json:"category"`
	Amount      float64 `firestore:"amount" json:"amount"`
}

// Settings holds the household-scoped flags read by the import engine.
// NegativesAreSpend selects the sign convention for single-amount columns:
// when true, negative raw values are treated as spending (the usual bank
// export convention) and positive values are discarded as non-spend.
type Settings struct {
	HouseholdID       string   `firestore:"householdId" json:"householdId"`
	NegativesAreSpend bool     `firestore:"negativesAreSpend" json:"negativesAreSpend"`
	Members           []string `firestore:"members" json:"members"`
}

// DefaultSettings returns the settings used before a household has saved any.
func DefaultSettings(householdID string) *Settings {
	return &Settings{
		HouseholdID:       householdID,
		NegativesAreSpend: true,
		Members:           []string{},
	}
}

// ValidPerson reports whether person is one of the household's member tags
// or the shared "both" tag.
func (s *Settings) ValidPerson(person string) bool {
	if person == PersonBoth {
		return true
	}
	for _, m := range s.Members {
		if m == person {
			return true
		}
	}
	return false
}

// ColumnMapping assigns raw spreadsheet headers to semantic roles.
// Empty fields are unset roles.
type ColumnMapping struct {
	Date        string `json:"date,omitempty"`
	Description string `json:"description,omitempty"`
	Amount      string `json:"amount,omitempty"`
	Debit       string `json:"debit,omitempty"`
	Credit      string `json:"credit,omitempty"`
}

// Validate checks the mapping covers the roles an import needs: date and
// description, plus either a single amount column or both debit and credit.
func (m *ColumnMapping) Validate() error {
	if m.Date == "" {
		return fmt.Errorf("no date column mapped")
	}
	if m.Description == "" {
		return fmt.Errorf("no description column mapped")
	}
	if m.Amount == "" && (m.Debit == "" || m.Credit == "") {
		return fmt.Errorf("no amount column mapped (need amount, or both debit and credit)")
	}
	return nil
}

// HasDebitCredit reports whether the mapping uses split debit/credit columns.
// When true the debit/credit resolution rule applies instead of the
// single-amount rule.
func (m *ColumnMapping) HasDebitCredit() bool {
	return m.Debit != "" && m.Credit != ""
}

// RawRow is one loosely-typed spreadsheet row keyed by raw header. Cell
// values are whatever the file parser produced (string, float64, time.Time);
// all type assumptions are pushed through the coerce package.
type RawRow map[string]any
