// Package store defines the record-store collaborator the import engine
// talks to. Everything is scoped by household identifier. Implementations
// must surface uniqueness violations as ErrConflict so the importer can
// treat duplicates as skips rather than failures.
package store

import (
	"context"
	"errors"

	"github.com/kenralotamd/spending-tracker/internal/domain"
)

// ErrConflict signals a uniqueness violation: a transaction with the same
// (household, external ID), or a category with the same (household, name).
var ErrConflict = errors.New("record already exists")

// ErrNotFound signals a missing record.
var ErrNotFound = errors.New("record not found")

// Store is the persistence collaborator. Backends: Firestore (remote),
// sqlite (local file), Memory (tests and dry runs).
type Store interface {
	// InsertTransaction inserts a transaction. Returns ErrConflict when the
	// non-empty external ID is already present for the household.
	InsertTransaction(ctx context.Context, t *domain.Transaction) error

	// UpdateTransactionCategory sets the category of one transaction.
	UpdateTransactionCategory(ctx context.Context, householdID, id, category string) error

	// ListTransactions returns all transactions for a household, newest
	// date first.
	ListTransactions(ctx context.Context, householdID string) ([]*domain.Transaction, error)

	// QueryTransactionsByCategory returns the household's transactions in
	// the named category.
	QueryTransactionsByCategory(ctx context.Context, householdID, category string) ([]*domain.Transaction, error)

	// ReassignTransactionCategory moves every transaction in oldName to
	// newName, returning how many were moved.
	ReassignTransactionCategory(ctx context.Context, householdID, oldName, newName string) (int, error)

	// DeleteTransaction removes one transaction.
	DeleteTransaction(ctx context.Context, householdID, id string) error

	// DeleteTransactionsByDateRange removes transactions dated within
	// [from, to] inclusive (YYYY-MM-DD), returning how many were removed.
	DeleteTransactionsByDateRange(ctx context.Context, householdID, from, to string) (int, error)

	// CreateCategory inserts a category. Returns ErrConflict when the name
	// already exists for the household.
	CreateCategory(ctx context.Context, c *domain.Category) error

	// ListCategories returns the household's categories in sort order.
	ListCategories(ctx context.Context, householdID string) ([]*domain.Category, error)

	// UpdateCategoryName renames a category record. Returns ErrNotFound if
	// oldName does not exist, ErrConflict if newName already does.
	UpdateCategoryName(ctx context.Context, householdID, oldName, newName string) error

	// DeleteCategory removes a category record. The referential-integrity
	// check lives in the categories package, not here.
	DeleteCategory(ctx context.Context, householdID, name string) error

	// GetBudgetRow returns the budget row for a category, or ErrNotFound.
	GetBudgetRow(ctx context.Context, householdID, category string) (*domain.BudgetRow, error)

	// UpsertBudgetRow creates or replaces the budget row for its category.
	UpsertBudgetRow(ctx context.Context, b *domain.BudgetRow) error

	// DeleteBudgetRow removes the budget row for a category.
	DeleteBudgetRow(ctx context.Context, householdID, category string) error

	// LoadRules returns the household's learned key -> category map.
	LoadRules(ctx context.Context, householdID string) (map[string]string, error)

	// PutRule stores or overwrites one learned key -> category association.
	PutRule(ctx context.Context, householdID, key, category string) error

	// GetSettings returns the household settings, or defaults when none
	// have been saved yet.
	GetSettings(ctx context.Context, householdID string) (*domain.Settings, error)

	// SetSettings saves the household settings.
	SetSettings(ctx context.Context, s *domain.Settings) error
}
